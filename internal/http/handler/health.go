package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"homeguard/internal/database"
)

// Readiness reports whether a dependency finished initializing.
type Readiness interface {
	Ready() bool
}

// HealthCheck godoc
// @Summary Readiness probe
// @Description Pings the database and reports whether blob storage is attached.
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} errorPayload
// @Router /health [get]
func HealthCheck(db database.Pinger, blobs ...Readiness) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := database.Healthy(c.UserContext(), db, 2*time.Second); err != nil {
			return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
		}
		for _, b := range blobs {
			if !b.Ready() {
				return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "storage initializing")
			}
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy"})
	}
}

// LivenessProbe godoc
// @Summary Liveness probe
// @Tags health
// @Success 200
// @Router /healthz [get]
func LivenessProbe() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}
}
