package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/meinhoongagan/wheel-refurb/intake"
	"github.com/meinhoongagan/wheel-refurb/redis"
	"github.com/meinhoongagan/wheel-refurb/submission"
	"github.com/meinhoongagan/wheel-refurb/utils"
)

const idempotencyHeader = "Idempotency-Key"

// submitOnce runs a throwaway attempt for a form posted in a single request.
// If any file is refused by intake the attempt is not submitted and the
// rejections are returned with a nil error.
func (h *Handler) submitOnce(ctx context.Context, form *multipart.Form, name, phone string) (submission.View, []intake.Rejection, error) {
	a := submission.NewAttempt(intake.NoPreview{})
	defer a.Discard()

	files, err := readFiles(form.File[fieldFiles])
	if err != nil {
		return submission.View{}, nil, err
	}
	rejected, err := a.AddImages(files)
	if err != nil {
		return submission.View{}, nil, err
	}
	if len(rejected) > 0 {
		return a.View(), rejected, nil
	}

	err = h.Submitter.Submit(ctx, a, name, phone)
	return a.View(), nil, err
}

// CreateAppointment godoc
// @Summary Submit the whole form in one request
// @Description Same pipeline as the attempt API. Retries carrying the same
// @Description Idempotency-Key header get the stored response instead of a
// @Description second appointment.
// @Tags appointments
// @Accept multipart/form-data
// @Produce json
// @Param Idempotency-Key header string false "Client generated request key"
// @Success 201 {object} attemptResponse
// @Failure 400 {object} utils.ErrorResponse
// @Failure 409 {object} utils.ErrorResponse
// @Failure 422 {object} attemptResponse
// @Router /api/appointments [post]
func (h *Handler) CreateAppointment(c *fiber.Ctx) error {
	ctx := c.UserContext()
	key := c.Get(idempotencyHeader)
	log := h.Log.With(zap.String("key", key))

	owned := false
	if key != "" && h.Idempotency != nil {
		stored, err := h.Idempotency.Begin(ctx, key)
		switch {
		case errors.Is(err, redis.ErrInProgress):
			return c.Status(fiber.StatusConflict).JSON(utils.ErrorResponse{
				Message: "A request with this Idempotency-Key is still being processed",
				Error:   err.Error(),
			})
		case err != nil:
			log.Warn("Idempotency check failed, continuing without it", zap.Error(err))
		case stored != nil:
			c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
			return c.Status(stored.Status).Send(stored.Body)
		default:
			owned = true
		}
	}
	release := func() {
		if owned {
			if err := h.Idempotency.Release(context.WithoutCancel(ctx), key); err != nil {
				log.Warn("Failed to release idempotency key", zap.Error(err))
			}
		}
	}

	form, err := c.MultipartForm()
	if err != nil {
		release()
		return badRequest(c, "Expected a multipart form", err)
	}
	view, rejected, err := h.submitOnce(ctx, form, c.FormValue(fieldName), c.FormValue(fieldPhone))
	var subErr *submission.Error
	switch {
	case len(rejected) > 0:
		release()
		return c.Status(fiber.StatusUnprocessableEntity).JSON(newAttemptResponse(view, rejected))
	case errors.As(err, &subErr):
		release()
		return c.Status(fiber.StatusUnprocessableEntity).JSON(newAttemptResponse(view, nil))
	case err != nil:
		release()
		return badRequest(c, "Failed to read uploaded file", err)
	}

	body, err := json.Marshal(newAttemptResponse(view, nil))
	if err != nil {
		release()
		return err
	}
	if owned {
		resp := redis.Response{Status: fiber.StatusCreated, Body: body}
		if err := h.Idempotency.Complete(context.WithoutCancel(ctx), key, resp); err != nil {
			log.Warn("Failed to store idempotent response", zap.Error(err))
		}
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Status(fiber.StatusCreated).Send(body)
}

// ListAppointments godoc
// @Summary List recent appointments
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Maximum rows" default(50)
// @Success 200 {array} models.Appointment
// @Failure 401 {object} utils.ErrorResponse
// @Failure 500 {object} utils.ErrorResponse
// @Router /admin/appointments [get]
func (h *Handler) ListAppointments(c *fiber.Ctx) error {
	if h.Appointments == nil {
		return unavailable(c, "Appointment listing is not configured")
	}
	limit := c.QueryInt("limit", 50)
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	appointments, err := h.Appointments.ListRecent(c.UserContext(), limit)
	if err != nil {
		h.Log.Error("Failed to list appointments", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(utils.ErrorResponse{
			Message: "Failed to fetch appointments",
			Error:   err.Error(),
		})
	}
	return c.JSON(appointments)
}
