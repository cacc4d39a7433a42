package http

import (
	qrcode "github.com/skip2/go-qrcode"

	"github.com/gofiber/fiber/v2"

	"github.com/alexallen1/sing-box-suger/internal/core/domain"
	"github.com/alexallen1/sing-box-suger/internal/core/ports"
)

// ShareHandler serves read-only deployment information: the connection
// link, the base64 subscription body, and a QR image, so clients can import
// the node without shell access to the host.
type ShareHandler struct {
	service ports.DeploymentReporter
}

// NewShareHandler creates a new share handler.
func NewShareHandler(service ports.DeploymentReporter) *ShareHandler {
	return &ShareHandler{service: service}
}

// Health reports whether the proxy container is running.
func (h *ShareHandler) Health(c *fiber.Ctx) error {
	running, err := h.service.Status(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	if len(running) == 0 {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "container not running",
		})
	}
	return c.JSON(fiber.Map{
		"status": "ok",
		"state":  running[0].State,
	})
}

// Link returns the connection descriptor as JSON.
func (h *ShareHandler) Link(c *fiber.Ctx) error {
	dep, err := h.service.Describe(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(fiber.Map{
		"link": dep.Link(h.service.Tag(dep.Host)),
		"host": dep.Host,
		"port": dep.Port,
	})
}

// Subscription returns the base64 subscription body, importable by URL.
func (h *ShareHandler) Subscription(c *fiber.Ctx) error {
	dep, err := h.service.Describe(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	body := domain.Subscription([]string{dep.Link(h.service.Tag(dep.Host))})
	c.Set("Content-Type", "text/plain; charset=utf-8")
	return c.SendString(body)
}

// QR returns the connection link as a PNG QR code.
func (h *ShareHandler) QR(c *fiber.Ctx) error {
	dep, err := h.service.Describe(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	png, err := qrcode.Encode(dep.Link(h.service.Tag(dep.Host)), qrcode.Medium, 256)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	c.Set("Content-Type", "image/png")
	return c.Send(png)
}
