package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"go.uber.org/zap"

	"github.com/meinhoongagan/wheel-refurb/classifier"
	"github.com/meinhoongagan/wheel-refurb/config"
	"github.com/meinhoongagan/wheel-refurb/controllers"
	"github.com/meinhoongagan/wheel-refurb/cron"
	"github.com/meinhoongagan/wheel-refurb/db"
	"github.com/meinhoongagan/wheel-refurb/intake"
	"github.com/meinhoongagan/wheel-refurb/logger"
	"github.com/meinhoongagan/wheel-refurb/mirror"
	"github.com/meinhoongagan/wheel-refurb/redis"
	"github.com/meinhoongagan/wheel-refurb/routes"
	"github.com/meinhoongagan/wheel-refurb/store"
	"github.com/meinhoongagan/wheel-refurb/submission"
	"github.com/meinhoongagan/wheel-refurb/utils"
	"github.com/meinhoongagan/wheel-refurb/web"
)

const reaperSchedule = "@every 10m"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zl, err := logger.New()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zl.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gdb, err := db.Open(cfg.Database.URL, zl)
	if err != nil {
		zl.Fatal("Failed to connect to database", zap.Error(err))
	}
	if err := db.Migrate(gdb, zl); err != nil {
		zl.Fatal("Failed to migrate database", zap.Error(err))
	}
	records := store.NewRecords(gdb)

	objects, err := newObjectStore(ctx, cfg, zl)
	if err != nil {
		zl.Fatal("Failed to initialise object storage", zap.String("backend", cfg.Storage.Backend), zap.Error(err))
	}

	var (
		check    classifier.Classifier = classifier.AcceptAll{}
		assessor controllers.Assessor
	)
	if cfg.ClassifierActive() {
		gemini, err := classifier.NewGemini(ctx, cfg.Classifier.APIKey, cfg.Classifier.Model)
		if err != nil {
			zl.Fatal("Failed to create Gemini client", zap.Error(err))
		}
		defer gemini.Close()
		check = classifier.NewVision(gemini, zl)
		assessor = classifier.NewAssessor(gemini)
	} else {
		zl.Warn("Image classification disabled; every photo will be accepted")
	}

	var syncer mirror.Syncer
	if w := mirror.New(cfg.Mirror.URL, cfg.Mirror.Timeout, zl); w != nil {
		syncer = w
	} else {
		zl.Info("No sheet webhook configured; appointments will not be mirrored")
	}

	previews := intake.NewThumbnailPreviewer(zl)
	registry := submission.NewRegistry(previews, cfg.Attempts.TTL)
	orchestrator := submission.New(check, store.NewClient(objects, records), syncer, zl)

	pages, err := web.NewRenderer()
	if err != nil {
		zl.Fatal("Failed to parse templates", zap.Error(err))
	}

	handler := &controllers.Handler{
		Registry:     registry,
		Submitter:    orchestrator,
		Previews:     previews,
		Assessor:     assessor,
		Appointments: records,
		Admin:        cfg.Admin,
		Pages:        pages,
		Log:          zl,
	}

	if cfg.Redis.Addr != "" {
		idem, err := redis.NewIdempotency(ctx, cfg.Redis.Addr, cfg.Redis.IdempotencyTTL, zl)
		if err != nil {
			zl.Warn("Idempotency keys disabled", zap.Error(err))
		} else {
			defer idem.Close()
			handler.Idempotency = idem
		}
	}

	scheduler := cron.New(zl)
	if err := scheduler.AddReaper(reaperSchedule, registry.Reap); err != nil {
		zl.Fatal("Failed to schedule attempt reaper", zap.Error(err))
	}
	if cfg.MailEnabled() {
		digest := cron.NewDigest(records, utils.NewMailer(cfg.Mail), cfg.Digest.To, zl).
			WithTimezone(cfg.Digest.Timezone)
		if err := scheduler.AddDigest(cfg.Digest.Schedule, digest); err != nil {
			zl.Fatal("Failed to schedule digest", zap.Error(err))
		}
	}
	scheduler.Start()
	defer scheduler.Stop()

	app := fiber.New(controllers.AppConfig())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
	}))

	routes.SetupPageRoutes(app, handler)
	routes.SetupAttemptRoutes(app, handler)
	routes.SetupAppointmentRoutes(app, handler)
	routes.SetupAdminRoutes(app, handler)

	go func() {
		<-ctx.Done()
		zl.Info("Shutting down server")
		if err := app.ShutdownWithTimeout(30 * time.Second); err != nil {
			zl.Error("Server shutdown failed", zap.Error(err))
		}
	}()

	zl.Info("Server started", zap.String("port", cfg.Server.Port))
	if err := app.Listen(":" + cfg.Server.Port); err != nil {
		zl.Error("Server stopped", zap.Error(err))
	}
}

func newObjectStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (store.ObjectStore, error) {
	if cfg.Storage.Backend == config.BackendS3 {
		return store.NewS3(ctx, cfg.Storage.S3, cfg.Storage.Bucket, log)
	}
	return store.NewCloudinary(cfg.Storage.Cloudinary, cfg.Storage.Bucket, log)
}
