package controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/meinhoongagan/wheel-refurb/utils"
)

type loginRequest struct {
	Password string `json:"password"`
}

// AdminLogin godoc
// @Summary Exchange the admin password for a token
// @Tags admin
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 401 {object} utils.ErrorResponse
// @Router /admin/login [post]
func (h *Handler) AdminLogin(c *fiber.Ctx) error {
	if h.Admin.JWTSecret == "" || h.Admin.PasswordHash == "" {
		return unavailable(c, "Admin access is not configured")
	}

	var input loginRequest
	if err := c.BodyParser(&input); err != nil {
		return badRequest(c, "Cannot parse JSON", err)
	}
	if input.Password == "" {
		return badRequest(c, "Password is required", nil)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(h.Admin.PasswordHash), []byte(input.Password)); err != nil {
		h.Log.Info("Admin login refused", zap.String("ip", c.IP()))
		return c.Status(fiber.StatusUnauthorized).JSON(utils.ErrorResponse{
			Message: "Invalid credentials",
			Error:   "Unauthorized",
		})
	}

	expires := time.Now().Add(h.Admin.TokenTTL)
	claims := jwt.MapClaims{
		"sub":  "admin",
		"role": "admin",
		"exp":  expires.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(h.Admin.JWTSecret))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(utils.ErrorResponse{
			Message: "Failed to generate token",
			Error:   err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"token":      tokenString,
		"expires_at": expires.UTC().Format(time.RFC3339),
	})
}

// AdminUnavailable answers admin routes when no JWT secret is configured.
func (h *Handler) AdminUnavailable(c *fiber.Ctx) error {
	return unavailable(c, "Admin access is not configured")
}
