package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/swagger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"homeguard/docs"
	"homeguard/internal/database"
	"homeguard/internal/http/middleware"
	"homeguard/internal/service"
)

// Deps are the shared handles the routes are built from.
type Deps struct {
	DB       database.Pinger
	Blobs    Readiness
	Tokens   middleware.TokenVerifier
	Users    service.UserService
	Files    service.FileService
	Alerts   service.AlertService
	Gatherer prometheus.Gatherer
}

// RegisterRoutes attaches every HTTP route to app.
func RegisterRoutes(app *fiber.App, d Deps) {
	var ready []Readiness
	if d.Blobs != nil {
		ready = append(ready, d.Blobs)
	}
	app.Get("/health", HealthCheck(d.DB, ready...))
	app.Get("/healthz", LivenessProbe())
	if d.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}
	app.Get("/swagger/*", swaggerUI)

	requireAuth := middleware.Auth(d.Tokens, d.Users)

	authGroup := app.Group("/auth")
	authGroup.Post("/signup", Signup(d.Users))
	authGroup.Post("/login", Login(d.Users))
	authGroup.Post("/verify-token", requireAuth, VerifyToken(d.Users))
	authGroup.Post("/logout", Logout())

	files := app.Group("/api/files", requireAuth, middleware.RequireUser())
	files.Post("/upload", UploadFile(d.Files))
	files.Get("/", ListFiles(d.Files))
	files.Get("/download/:filename", DownloadFile(d.Files))
	files.Delete("/delete/:fileId", DeleteFile(d.Files, "fileId"))
	files.Delete("/:fileId", DeleteFile(d.Files, "fileId"))

	app.Post("/send-alert", middleware.OptionalAuth(d.Tokens, d.Users), SendAlert(d.Alerts))
}

// swaggerUI serves the API docs with host and scheme taken from the request.
func swaggerUI(c *fiber.Ctx) error {
	scheme := c.Protocol()
	if proto := c.Get("X-Forwarded-Proto"); proto != "" {
		scheme = strings.Split(proto, ",")[0]
	}
	docs.SwaggerInfo.Host = c.Get(fiber.HeaderHost)
	docs.SwaggerInfo.Schemes = []string{scheme}
	return swagger.HandlerDefault(c)
}
