package controllers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/meinhoongagan/wheel-refurb/intake"
	"github.com/meinhoongagan/wheel-refurb/models"
	"github.com/meinhoongagan/wheel-refurb/submission"
	"github.com/meinhoongagan/wheel-refurb/utils"
)

type imageResponse struct {
	Index      int    `json:"index"`
	Filename   string `json:"filename"`
	Size       int64  `json:"size"`
	PreviewURL string `json:"preview_url,omitempty"`
}

type attemptResponse struct {
	ID          string              `json:"id"`
	State       submission.State    `json:"state"`
	Message     string              `json:"message,omitempty"`
	Level       submission.Level    `json:"level,omitempty"`
	Name        string              `json:"name,omitempty"`
	Phone       string              `json:"phone,omitempty"`
	Images      []imageResponse     `json:"images"`
	Appointment *models.Appointment `json:"appointment,omitempty"`
	Rejected    []rejectionResponse `json:"rejected,omitempty"`
}

type rejectionResponse struct {
	Filename string        `json:"filename"`
	Reason   intake.Reason `json:"reason"`
	Message  string        `json:"message"`
}

func newAttemptResponse(v submission.View, rejected []intake.Rejection) attemptResponse {
	images := make([]imageResponse, len(v.Images))
	for i, img := range v.Images {
		images[i] = imageResponse{Index: img.Index, Filename: img.Filename, Size: img.Size}
		if img.Preview != "" {
			images[i].PreviewURL = "/api/previews/" + img.Preview
		}
	}
	resp := attemptResponse{
		ID:          v.ID,
		State:       v.State,
		Message:     v.Message,
		Level:       v.Level,
		Name:        v.Name,
		Phone:       v.Phone,
		Images:      images,
		Appointment: v.Appointment,
	}
	for _, r := range rejected {
		resp.Rejected = append(resp.Rejected, rejectionResponse{
			Filename: r.Filename,
			Reason:   r.Reason,
			Message:  r.Message(),
		})
	}
	return resp
}

func (h *Handler) attempt(c *fiber.Ctx) (*submission.Attempt, error) {
	a, ok := h.Registry.Get(c.Params("id"))
	if !ok {
		return nil, c.Status(fiber.StatusNotFound).JSON(utils.ErrorResponse{
			Message: "Attempt not found",
			Error:   "Not Found",
		})
	}
	return a, nil
}

func busy(c *fiber.Ctx, a *submission.Attempt) error {
	return c.Status(fiber.StatusConflict).JSON(utils.ErrorResponse{
		Message: "Attempt cannot be changed while it is " + string(a.State()),
		Error:   submission.ErrAttemptBusy.Error(),
	})
}

// CreateAttempt godoc
// @Summary Start a new form attempt
// @Tags attempts
// @Produce json
// @Success 201 {object} attemptResponse
// @Router /api/attempts [post]
func (h *Handler) CreateAttempt(c *fiber.Ctx) error {
	a := h.Registry.Create()
	h.Log.Debug("Attempt created", zap.String("attempt_id", a.ID))
	return c.Status(fiber.StatusCreated).JSON(newAttemptResponse(a.View(), nil))
}

// GetAttempt godoc
// @Summary Get the current state of an attempt
// @Tags attempts
// @Produce json
// @Param id path string true "Attempt ID"
// @Success 200 {object} attemptResponse
// @Failure 404 {object} utils.ErrorResponse
// @Router /api/attempts/{id} [get]
func (h *Handler) GetAttempt(c *fiber.Ctx) error {
	a, err := h.attempt(c)
	if a == nil {
		return err
	}
	return c.JSON(newAttemptResponse(a.View(), nil))
}

// AddAttemptImages godoc
// @Summary Add photos to an attempt
// @Tags attempts
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Attempt ID"
// @Success 200 {object} attemptResponse
// @Failure 400 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Failure 409 {object} utils.ErrorResponse
// @Router /api/attempts/{id}/images [post]
func (h *Handler) AddAttemptImages(c *fiber.Ctx) error {
	a, err := h.attempt(c)
	if a == nil {
		return err
	}

	form, err := c.MultipartForm()
	if err != nil {
		return badRequest(c, "Expected a multipart form", err)
	}
	files, err := readFiles(form.File[fieldFiles])
	if err != nil {
		return badRequest(c, "Failed to read uploaded file", err)
	}

	rejected, err := a.AddImages(files)
	if errors.Is(err, submission.ErrAttemptBusy) {
		return busy(c, a)
	}
	return c.JSON(newAttemptResponse(a.View(), rejected))
}

// RemoveAttemptImage godoc
// @Summary Remove one photo from an attempt
// @Tags attempts
// @Produce json
// @Param id path string true "Attempt ID"
// @Param index path int true "Image index"
// @Success 200 {object} attemptResponse
// @Failure 400 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Failure 409 {object} utils.ErrorResponse
// @Router /api/attempts/{id}/images/{index} [delete]
func (h *Handler) RemoveAttemptImage(c *fiber.Ctx) error {
	a, err := h.attempt(c)
	if a == nil {
		return err
	}
	index, err := strconv.Atoi(c.Params("index"))
	if err != nil {
		return badRequest(c, "Invalid image index", err)
	}

	switch err := a.RemoveImage(index); {
	case errors.Is(err, submission.ErrAttemptBusy):
		return busy(c, a)
	case errors.Is(err, intake.ErrIndexOutOfRange):
		return c.Status(fiber.StatusNotFound).JSON(utils.ErrorResponse{
			Message: "Image not found",
			Error:   err.Error(),
		})
	}
	return c.JSON(newAttemptResponse(a.View(), nil))
}

// SubmitAttempt godoc
// @Summary Submit an attempt
// @Description Classifies, uploads and stores the attempt's photos, then
// @Description mirrors the appointment to the sheet.
// @Tags attempts
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Attempt ID"
// @Success 200 {object} attemptResponse
// @Failure 404 {object} utils.ErrorResponse
// @Failure 409 {object} utils.ErrorResponse
// @Failure 422 {object} attemptResponse
// @Router /api/attempts/{id}/submit [post]
func (h *Handler) SubmitAttempt(c *fiber.Ctx) error {
	a, err := h.attempt(c)
	if a == nil {
		return err
	}

	err = h.Submitter.Submit(c.UserContext(), a, c.FormValue(fieldName), c.FormValue(fieldPhone))
	if errors.Is(err, submission.ErrAttemptBusy) {
		return busy(c, a)
	}
	return c.Status(submitStatus(err)).JSON(newAttemptResponse(a.View(), nil))
}

// ResetAttempt godoc
// @Summary Return an attempt to an empty form
// @Tags attempts
// @Produce json
// @Param id path string true "Attempt ID"
// @Success 200 {object} attemptResponse
// @Failure 404 {object} utils.ErrorResponse
// @Failure 409 {object} utils.ErrorResponse
// @Router /api/attempts/{id}/reset [post]
func (h *Handler) ResetAttempt(c *fiber.Ctx) error {
	a, err := h.attempt(c)
	if a == nil {
		return err
	}
	if err := a.Reset(); err != nil {
		return busy(c, a)
	}
	return c.JSON(newAttemptResponse(a.View(), nil))
}

// DeleteAttempt godoc
// @Summary Discard an attempt and its previews
// @Tags attempts
// @Param id path string true "Attempt ID"
// @Success 204
// @Failure 404 {object} utils.ErrorResponse
// @Router /api/attempts/{id} [delete]
func (h *Handler) DeleteAttempt(c *fiber.Ctx) error {
	if !h.Registry.Delete(c.Params("id")) {
		return c.Status(fiber.StatusNotFound).JSON(utils.ErrorResponse{
			Message: "Attempt not found",
			Error:   "Not Found",
		})
	}
	return c.SendStatus(fiber.StatusNoContent)
}
