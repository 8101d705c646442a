// Package submission turns a customer's name, phone number and photos into a
// stored appointment.
//
// A submission moves through Validating, Classifying, Uploading, Persisting
// and Syncing. Classification gates every irreversible step: no photo is
// stored and no row is written unless every photo was judged to be a wheel.
// Syncing to the sheet mirror can only add a warning, since by then the
// appointment is already stored.
package submission

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/meinhoongagan/wheel-refurb/classifier"
	"github.com/meinhoongagan/wheel-refurb/intake"
	"github.com/meinhoongagan/wheel-refurb/mirror"
	"github.com/meinhoongagan/wheel-refurb/models"
	"github.com/meinhoongagan/wheel-refurb/store"
)

const cleanupTimeout = 30 * time.Second

// Store is the subset of the appointment store a submission needs.
type Store interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Remove(ctx context.Context, key string) error
	Insert(ctx context.Context, a store.NewAppointment) (*models.Appointment, error)
}

type Orchestrator struct {
	classifier classifier.Classifier
	store      Store
	mirror     mirror.Syncer
	log        *zap.Logger
	newKey     func(filename, contentType string) string
}

// New builds an orchestrator. m may be nil when no sheet is configured.
func New(c classifier.Classifier, s Store, m mirror.Syncer, log *zap.Logger) *Orchestrator {
	return &Orchestrator{
		classifier: c,
		store:      s,
		mirror:     m,
		log:        log,
		newKey:     store.NewObjectKey,
	}
}

// Submit runs one submission for the attempt. It returns ErrAttemptBusy if
// the attempt can't start, or an *Error if the attempt ended in StateError.
// A nil return means the attempt reached StateSuccess, possibly with a sync
// warning set on it.
func (o *Orchestrator) Submit(ctx context.Context, a *Attempt, name, phone string) error {
	images, err := a.begin(name, phone)
	if err != nil {
		return err
	}
	log := o.log.With(zap.String("attempt_id", a.ID))

	if e := o.run(ctx, a, log, images, name, phone); e != nil {
		log.Warn("Submission failed",
			zap.String("kind", string(e.Kind)),
			zap.Error(e.Err))
		a.fail(e)
		return e
	}
	return nil
}

func (o *Orchestrator) run(ctx context.Context, a *Attempt, log *zap.Logger, images []*intake.CandidateImage, name, phone string) *Error {
	if strings.TrimSpace(name) == "" || strings.TrimSpace(phone) == "" || len(images) == 0 {
		return &Error{Kind: KindValidation, Message: MsgMissingFields}
	}

	a.transition(StateClassifying)
	if e := o.classifyAll(ctx, log, images); e != nil {
		return e
	}

	a.transition(StateUploading)
	keys, urls, e := o.uploadAll(ctx, log, images)
	if e != nil {
		return e
	}

	a.transition(StatePersisting)
	if err := ctx.Err(); err != nil {
		o.cleanup(ctx, log, keys)
		return &Error{Kind: KindCancelled, Message: MsgCancelled, Err: err}
	}
	appt, err := o.store.Insert(ctx, store.NewAppointment{
		CustomerName:  name,
		CustomerPhone: phone,
		ImageURLs:     urls,
	})
	if err != nil {
		o.cleanup(ctx, log, keys)
		return &Error{Kind: KindPersist, Message: MsgPersistError, Err: err}
	}
	log.Info("Appointment stored",
		zap.String("appointment_id", appt.ID),
		zap.Int("images", len(urls)))

	a.transition(StateSyncing)
	if o.mirror != nil {
		if err := o.mirror.Sync(ctx, appt); err != nil {
			log.Warn("Sheet sync failed",
				zap.String("appointment_id", appt.ID),
				zap.Error(err))
			a.warn(syncWarning(err))
		}
	}

	a.succeed(appt)
	return nil
}

// classifyAll checks every photo concurrently and waits for all answers. Any
// failed call fails the phase; otherwise any "no" rejects the whole set.
func (o *Orchestrator) classifyAll(ctx context.Context, log *zap.Logger, images []*intake.CandidateImage) *Error {
	verdicts := make([]bool, len(images))

	var g errgroup.Group
	for i, img := range images {
		i, img := i, img
		g.Go(func() error {
			ok, err := o.classifier.Classify(ctx, img)
			if err != nil {
				return err
			}
			verdicts[i] = ok
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			return &Error{Kind: KindCancelled, Message: MsgCancelled, Err: err}
		}
		return &Error{Kind: KindClassifier, Message: MsgClassifierError, Err: err}
	}

	for i, ok := range verdicts {
		if !ok {
			log.Info("Photo rejected by classifier", zap.String("filename", images[i].Filename))
			return &Error{Kind: KindRejected, Message: MsgNotWheels}
		}
	}
	return nil
}

// uploadAll stores every photo concurrently under a fresh key. On failure the
// photos that did upload are removed before returning.
func (o *Orchestrator) uploadAll(ctx context.Context, log *zap.Logger, images []*intake.CandidateImage) ([]string, []string, *Error) {
	keys := make([]string, len(images))
	urls := make([]string, len(images))
	for i, img := range images {
		keys[i] = o.newKey(img.Filename, img.ContentType)
	}

	var g errgroup.Group
	for i, img := range images {
		i, img := i, img
		g.Go(func() error {
			url, err := o.store.Upload(ctx, keys[i], img.Data, img.ContentType)
			if err != nil {
				return err
			}
			urls[i] = url
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		var uploaded []string
		for i, url := range urls {
			if url != "" {
				uploaded = append(uploaded, keys[i])
			}
		}
		o.cleanup(ctx, log, uploaded)
		if ctx.Err() != nil {
			return nil, nil, &Error{Kind: KindCancelled, Message: MsgCancelled, Err: err}
		}
		return nil, nil, &Error{Kind: KindUpload, Message: MsgUploadError, Err: err}
	}
	return keys, urls, nil
}

// cleanup deletes objects left behind by a failed attempt. It runs even when
// ctx is cancelled and only logs its own failures.
func (o *Orchestrator) cleanup(ctx context.Context, log *zap.Logger, keys []string) {
	if len(keys) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	for _, key := range keys {
		if err := o.store.Remove(ctx, key); err != nil {
			log.Error("Failed to remove orphaned upload",
				zap.String("key", key),
				zap.Error(err))
			continue
		}
		log.Info("Removed orphaned upload", zap.String("key", key))
	}
}

func syncWarning(err error) string {
	if errors.Is(err, mirror.ErrNetwork) {
		return MsgSyncNetwork
	}
	return MsgSyncFailed
}
