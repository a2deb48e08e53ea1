package middleware

import (
	"io"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel/trace"

	"homeguard/internal/logging"
)

// Logger writes one structured line per request with request_id, method,
// path, status and latency in milliseconds. Authenticated requests also
// carry user_id, and sampled requests carry trace_id.
func Logger(log *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		attrs := []any{
			"request_id", RequestIDFrom(c),
			"method", c.Method(),
			"path", c.Path(),
			"status", statusOf(c, err),
			"latency", float64(time.Since(start).Microseconds()) / 1000,
		}
		if id, ok := IdentityFrom(c); ok && id.IsUser() {
			attrs = append(attrs, "user_id", id.UserID)
		}
		if sc := trace.SpanContextFromContext(c.UserContext()); sc.IsValid() {
			attrs = append(attrs, "trace_id", sc.TraceID().String())
		}

		log.Info("http_request", attrs...)
		return err
	}
}

// LoggerWithWriter is Logger over a fresh JSON logger that writes to w with
// timestamps in loc.
func LoggerWithWriter(w io.Writer, loc *time.Location) fiber.Handler {
	return Logger(logging.New(w, loc, slog.LevelInfo))
}
