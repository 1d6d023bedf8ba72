package web

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/goodtune/daygauge/internal/identity"
	"github.com/goodtune/daygauge/internal/storage"
	"github.com/goodtune/daygauge/internal/submit"
	"github.com/goodtune/daygauge/internal/window"
)

type submitRequest struct {
	Start string `json:"start" form:"start"`
}

type startResponse struct {
	Record  *storage.StartRecord `json:"record"`
	Readout Readout              `json:"readout"`
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "ok",
		"time":   s.clock.Now().Format(time.RFC3339),
	})
}

// handleSubmitStart records a new start time for the caller.
func (s *Server) handleSubmitStart(c *fiber.Ctx) error {
	var req submitRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	record, err := s.submitter.Submit(c.UserContext(), req.Start, ownerFrom(c))
	if err != nil {
		switch {
		case errors.Is(err, submit.ErrInvalidInput):
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		case errors.Is(err, identity.ErrAuthRequired):
			return fiber.NewError(fiber.StatusUnauthorized, "authentication required")
		default:
			return fiber.NewError(fiber.StatusServiceUnavailable, "start time could not be stored")
		}
	}

	return c.Status(fiber.StatusCreated).JSON(s.startResponse(record))
}

// handleLatestStart returns the caller's active start time with its current
// breakdown.
func (s *Server) handleLatestStart(c *fiber.Ctx) error {
	record, err := s.starts.Latest(c.UserContext(), ownerFrom(c))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "no start time recorded")
		}
		s.logger.Error().Err(err).Msg("Failed to load latest start time")
		return fiber.NewError(fiber.StatusServiceUnavailable, "start time unavailable")
	}

	return c.JSON(s.startResponse(record))
}

func (s *Server) startResponse(record *storage.StartRecord) startResponse {
	m := window.Compute(record.Start, s.clock.Now(), window.Length)
	return startResponse{Record: record, Readout: NewReadout(m, s.loc)}
}

// handleError renders errors as {"error": message}.
func (s *Server) handleError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "internal server error"

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		message = fe.Message
	} else {
		s.logger.Error().Err(err).Str("path", c.Path()).Msg("Unhandled error")
	}

	return c.Status(code).JSON(fiber.Map{"error": message})
}
