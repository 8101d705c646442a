package controllers

import (
	"bytes"
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/meinhoongagan/wheel-refurb/submission"
	"github.com/meinhoongagan/wheel-refurb/web"
)

func (h *Handler) renderPage(c *fiber.Ctx, status int, p web.Page) error {
	var buf bytes.Buffer
	if err := h.Pages.Render(&buf, p); err != nil {
		h.Log.Error("Failed to render page", zap.Error(err))
		return fiber.ErrInternalServerError
	}
	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.Status(status).Send(buf.Bytes())
}

// ShowForm renders an empty request form.
func (h *Handler) ShowForm(c *fiber.Ctx) error {
	return h.renderPage(c, fiber.StatusOK, web.Page{
		Variant: web.VariantFor(c.Query("variant")),
		View:    submission.View{State: submission.StateIdle},
	})
}

// SubmitForm handles a plain HTML form post and renders the outcome.
func (h *Handler) SubmitForm(c *fiber.Ctx) error {
	page := web.Page{Variant: web.VariantFor(c.Query("variant"))}
	name, phone := c.FormValue(fieldName), c.FormValue(fieldPhone)

	form, err := c.MultipartForm()
	if err != nil {
		page.View = submission.View{
			State:   submission.StateError,
			Message: submission.MsgMissingFields,
			Level:   submission.LevelError,
			Name:    name,
			Phone:   phone,
		}
		return h.renderPage(c, fiber.StatusBadRequest, page)
	}

	view, rejected, err := h.submitOnce(c.UserContext(), form, name, phone)
	var subErr *submission.Error
	switch {
	case len(rejected) > 0:
		view.Name, view.Phone = name, phone
		page.View = view
		for _, r := range rejected {
			page.Rejected = append(page.Rejected, r.Filename+": "+r.Message())
		}
		return h.renderPage(c, fiber.StatusUnprocessableEntity, page)
	case errors.As(err, &subErr):
		page.View = view
		return h.renderPage(c, fiber.StatusUnprocessableEntity, page)
	case err != nil:
		h.Log.Warn("Failed to read form upload", zap.Error(err))
		page.View = submission.View{
			State:   submission.StateError,
			Message: "We couldn't read your photos. Please try again.",
			Level:   submission.LevelError,
			Name:    name,
			Phone:   phone,
		}
		return h.renderPage(c, fiber.StatusBadRequest, page)
	}

	page.View = view
	return h.renderPage(c, fiber.StatusOK, page)
}
