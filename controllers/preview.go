package controllers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/meinhoongagan/wheel-refurb/intake"
	"github.com/meinhoongagan/wheel-refurb/utils"
)

// GetPreview godoc
// @Summary Thumbnail of a candidate photo
// @Tags previews
// @Produce image/jpeg
// @Param handle path string true "Preview handle"
// @Success 200
// @Failure 404 {object} utils.ErrorResponse
// @Router /api/previews/{handle} [get]
func (h *Handler) GetPreview(c *fiber.Ctx) error {
	data, contentType, ok := h.Previews.Get(c.Params("handle"))
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(utils.ErrorResponse{
			Message: "Preview not found",
			Error:   "Not Found",
		})
	}
	c.Set(fiber.HeaderContentType, contentType)
	c.Set(fiber.HeaderCacheControl, "private, no-store")
	return c.Send(data)
}

// CreateAssessment godoc
// @Summary Rough damage assessment of one wheel photo
// @Tags assessments
// @Accept multipart/form-data
// @Produce json
// @Success 200 {object} classifier.Assessment
// @Failure 400 {object} utils.ErrorResponse
// @Failure 502 {object} utils.ErrorResponse
// @Failure 503 {object} utils.ErrorResponse
// @Router /api/assessments [post]
func (h *Handler) CreateAssessment(c *fiber.Ctx) error {
	if h.Assessor == nil {
		return unavailable(c, "Assessments are not available")
	}

	fh, err := c.FormFile(fieldFile)
	if err != nil {
		return badRequest(c, "An image file is required", err)
	}
	raw, err := intake.FromMultipart(fh)
	if err != nil {
		return badRequest(c, "Failed to read uploaded file", err)
	}
	if reason, ok := intake.Check(raw); !ok {
		r := intake.Rejection{Filename: raw.Filename, Reason: reason}
		return badRequest(c, r.Message(), nil)
	}

	img := &intake.CandidateImage{
		Filename:    raw.Filename,
		ContentType: raw.ContentType,
		Size:        raw.Size,
		Data:        raw.Data,
	}
	assessment, err := h.Assessor.Assess(c.UserContext(), img)
	if err != nil {
		h.Log.Warn("Assessment failed", zap.String("filename", raw.Filename), zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(utils.ErrorResponse{
			Message: "We couldn't assess your photo right now. Please try again.",
			Error:   err.Error(),
		})
	}
	return c.JSON(assessment)
}

// Healthcheck godoc
// @Summary Liveness probe
// @Tags health
// @Success 200 {object} map[string]interface{}
// @Router /healthcheck [get]
func (h *Handler) Healthcheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":   "ok",
		"attempts": h.Registry.Len(),
	})
}
