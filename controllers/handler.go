package controllers

import (
	"context"
	"errors"
	"mime/multipart"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/meinhoongagan/wheel-refurb/classifier"
	"github.com/meinhoongagan/wheel-refurb/config"
	"github.com/meinhoongagan/wheel-refurb/intake"
	"github.com/meinhoongagan/wheel-refurb/models"
	"github.com/meinhoongagan/wheel-refurb/redis"
	"github.com/meinhoongagan/wheel-refurb/submission"
	"github.com/meinhoongagan/wheel-refurb/utils"
	"github.com/meinhoongagan/wheel-refurb/web"
)

// Form field names shared by the JSON API and the HTML form.
const (
	fieldName  = "name"
	fieldPhone = "phone"
	fieldFiles = "files"
	fieldFile  = "file"
)

type Submitter interface {
	Submit(ctx context.Context, a *submission.Attempt, name, phone string) error
}

type PreviewSource interface {
	Get(handle string) ([]byte, string, bool)
}

type Assessor interface {
	Assess(ctx context.Context, img *intake.CandidateImage) (*classifier.Assessment, error)
}

type AppointmentLister interface {
	ListRecent(ctx context.Context, limit int) ([]models.Appointment, error)
}

type IdempotencyStore interface {
	Begin(ctx context.Context, key string) (*redis.Response, error)
	Complete(ctx context.Context, key string, resp redis.Response) error
	Release(ctx context.Context, key string) error
}

// Handler serves the HTTP API. Assessor, Idempotency and Appointments may be
// nil; the endpoints that need them then answer 503.
type Handler struct {
	Registry     *submission.Registry
	Submitter    Submitter
	Previews     PreviewSource
	Assessor     Assessor
	Idempotency  IdempotencyStore
	Appointments AppointmentLister
	Pages        *web.Renderer
	Admin        config.AdminConfig
	Log          *zap.Logger
}

// AppConfig is the fiber configuration the handlers rely on. Form values
// outlive the request (attempts keep the submitted name and phone), so
// fiber must hand out copies instead of views into its pooled buffers.
func AppConfig() fiber.Config {
	return fiber.Config{
		Immutable: true,
		BodyLimit: 64 * 1024 * 1024,
	}
}

func badRequest(c *fiber.Ctx, msg string, err error) error {
	resp := utils.ErrorResponse{Message: msg}
	if err != nil {
		resp.Error = err.Error()
	}
	return c.Status(fiber.StatusBadRequest).JSON(resp)
}

func unavailable(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusServiceUnavailable).JSON(utils.ErrorResponse{
		Message: msg,
		Error:   "Service Unavailable",
	})
}

// readFiles converts uploaded parts into intake files. Unreadable parts
// fail the whole request.
func readFiles(headers []*multipart.FileHeader) ([]intake.RawFile, error) {
	files := make([]intake.RawFile, 0, len(headers))
	for _, fh := range headers {
		f, err := intake.FromMultipart(fh)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, nil
}

// submitStatus maps the outcome of a submission to an HTTP status.
func submitStatus(err error) int {
	var subErr *submission.Error
	switch {
	case err == nil:
		return fiber.StatusOK
	case errors.Is(err, submission.ErrAttemptBusy):
		return fiber.StatusConflict
	case errors.As(err, &subErr):
		return fiber.StatusUnprocessableEntity
	default:
		return fiber.StatusInternalServerError
	}
}
