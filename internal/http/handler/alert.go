package handler

import (
	"encoding/base64"

	"github.com/gofiber/fiber/v2"

	"homeguard/internal/http/middleware"
	"homeguard/internal/service"
)

type alertRequest struct {
	Image     string `json:"image"`
	Timestamp string `json:"timestamp"`
}

type alertResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// SendAlert godoc
// @Summary Report an unknown face
// @Tags alerts
// @Accept json
// @Produce json
// @Param body body alertRequest true "Base64 image and capture time"
// @Success 200 {object} alertResponse
// @Failure 400 {object} errorPayload
// @Failure 500 {object} alertResponse
// @Router /send-alert [post]
func SendAlert(alerts service.AlertService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req alertRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_INPUT", "invalid request body")
		}
		img, err := base64.StdEncoding.DecodeString(req.Image)
		if err != nil || len(img) == 0 {
			return writeError(c, fiber.StatusBadRequest, "INVALID_INPUT", "image must be non-empty base64")
		}

		a := service.Alert{Image: img, Timestamp: req.Timestamp}
		if id, ok := middleware.IdentityFrom(c); ok {
			a.ReportedBy = id.RecognizedName
			if id.IsUser() {
				a.ReportedBy = id.Email
			}
		}

		if err := alerts.SendUnknownFaceAlert(c.UserContext(), a); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(alertResponse{
				Status:  "error",
				Message: "Failed to send alert email",
			})
		}
		return c.JSON(alertResponse{Status: "success", Message: "Alert email sent successfully"})
	}
}
