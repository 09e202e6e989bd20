package server

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/shineum/contact-relay/internal/contact"
)

const healthPath = "/api/health"

// Client-facing messages.
const (
	messageHealthy          = "Portfolio backend is running"
	messageSent             = "Email sent successfully!"
	messageSendFailed       = "Failed to send email. Please try again later."
	messageInvalidBody      = "Invalid request body"
	messageNotFound         = "Endpoint not found"
	messageInternalError    = "Internal server error"
	messageOriginNotAllowed = "Origin not allowed"
	messageRateLimited      = "Too many email requests from this IP, please try again later."
)

// timestampLayout matches JavaScript's Date.toISOString.
const timestampLayout = "2006-01-02T15:04:05.000Z"

// Response is the body of every contact and error response.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// HealthResponse is the body of the health endpoint.
type HealthResponse struct {
	Status         string   `json:"status"`
	Message        string   `json:"message"`
	Timestamp      string   `json:"timestamp"`
	AllowedOrigins []string `json:"allowedOrigins"`
}

func failure(message string) Response {
	return Response{Success: false, Message: message}
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{
		Status:         "OK",
		Message:        messageHealthy,
		Timestamp:      s.config.Now().UTC().Format(timestampLayout),
		AllowedOrigins: s.config.Guard.Origins(),
	})
}

func (s *Server) handleContact(c *fiber.Ctx) error {
	var req contact.Request
	if err := parseBody(c, &req); err != nil {
		slog.Debug("failed to parse contact body", "error", err)
		return c.Status(fiber.StatusBadRequest).JSON(failure(messageInvalidBody))
	}

	sub, err := contact.Validate(req)
	if err != nil {
		var ve *contact.ValidationError
		if errors.As(err, &ve) {
			return c.Status(fiber.StatusBadRequest).JSON(failure(ve.Message()))
		}
		return err
	}

	if s.config.Mailer == nil {
		return errors.New("no mailer configured")
	}
	if _, err := s.config.Mailer.SendContactEmail(c.UserContext(), sub); err != nil {
		slog.Error("email sending error", "error", err, "request_id", c.Locals("requestid"))
		return c.Status(fiber.StatusInternalServerError).JSON(failure(messageSendFailed))
	}

	return c.JSON(Response{Success: true, Message: messageSent})
}

// parseBody decodes JSON and urlencoded form bodies. Other content types and
// empty bodies leave req empty.
func parseBody(c *fiber.Ctx, req *contact.Request) error {
	if len(c.Body()) == 0 {
		return nil
	}
	ctype := strings.ToLower(c.Get(fiber.HeaderContentType))
	if strings.HasPrefix(ctype, fiber.MIMEApplicationJSON) || strings.HasPrefix(ctype, fiber.MIMEApplicationForm) {
		return c.BodyParser(req)
	}
	return nil
}

func handleNotFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(failure(messageNotFound))
}

// errorHandler renders errors that escape handlers, including recovered
// panics. Client errors raised by fiber keep their status.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := messageInternalError

	var e *fiber.Error
	if errors.As(err, &e) && e.Code < fiber.StatusInternalServerError {
		code = e.Code
		message = e.Message
		if code == fiber.StatusNotFound {
			message = messageNotFound
		}
	} else {
		slog.Error("server error", "error", err, "path", c.Path())
	}

	return c.Status(code).JSON(failure(message))
}
