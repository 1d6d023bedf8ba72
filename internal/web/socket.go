package web

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/goodtune/daygauge/internal/display"
	"github.com/goodtune/daygauge/internal/window"
	"github.com/rs/zerolog"
)

// jsonWriter is the write half of a websocket connection.
type jsonWriter interface {
	WriteJSON(v interface{}) error
}

// socketSurface draws a display by sending JSON frames. Every method writes
// exactly one frame.
type socketSurface struct {
	mu     sync.Mutex
	conn   jsonWriter
	loc    *time.Location
	logger zerolog.Logger

	statistic func(float64) string
}

func newSocketSurface(conn jsonWriter, loc *time.Location, logger zerolog.Logger) *socketSurface {
	return &socketSurface{conn: conn, loc: loc, logger: logger, statistic: window.Statistic}
}

func (s *socketSurface) write(frame interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.conn.WriteJSON(frame); err != nil {
		s.logger.Debug().Err(err).Msg("Websocket write failed")
	}
}

// Render sends the scene, then hands the display a gauge bound to this
// connection.
func (s *socketSurface) Render(scene display.Scene) {
	s.write(newSceneFrame(scene, s.loc))

	s.mu.Lock()
	if scene.Gauge.Statistic != nil {
		s.statistic = scene.Gauge.Statistic
	}
	s.mu.Unlock()

	scene.Gauge.OnReady(socketGauge{surface: s})
}

func (s *socketSurface) Readout(m window.Metrics) {
	s.write(readoutFrame{Type: frameReadout, Readout: NewReadout(m, s.loc)})
}

func (s *socketSurface) Blank(state display.State) {
	s.write(stateFrame{Type: frameState, State: state.String()})
}

func (s *socketSurface) sendError(message string) {
	s.write(errorFrame{Type: frameError, Error: message})
}

type socketGauge struct {
	surface *socketSurface
}

func (g socketGauge) SetValue(percent float64) {
	g.surface.mu.Lock()
	statistic := g.surface.statistic
	g.surface.mu.Unlock()

	g.surface.write(valueFrame{Type: frameValue, Percent: percent, Statistic: statistic(percent)})
}

// handleSocket runs one display session for the lifetime of the connection.
func (s *Server) handleSocket(c *websocket.Conn) {
	logger := s.logger.With().Str("remote_addr", c.RemoteAddr().String()).Logger()

	tickInterval := display.WideTickInterval
	if narrow, _ := c.Locals(localNarrow).(bool); narrow {
		tickInterval = display.NarrowTickInterval
	}

	surface := newSocketSurface(c, s.loc, logger)
	syncer := display.New(s.starts, surface, display.Config{
		Clock:        s.clock,
		Location:     s.loc,
		TickInterval: tickInterval,
		Surface:      "web",
	}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = syncer.Run(ctx)
	}()
	// The surface must not write after this handler returns.
	defer func() {
		cancel()
		<-done
	}()

	if owner, _ := c.Locals(localOwner).(string); owner != "" {
		syncer.SetOwner(owner)
	}

	logger.Debug().Msg("Websocket connected")

	for {
		messageType, message, err := c.ReadMessage()
		if err != nil {
			logger.Debug().Err(err).Msg("Websocket closed")
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		var frame clientFrame
		if err := json.Unmarshal(message, &frame); err != nil {
			surface.sendError("malformed frame")
			continue
		}

		switch frame.Type {
		case frameAuth:
			if frame.Token == "" {
				syncer.SetOwner("")
				continue
			}
			owner, err := s.auth.Verify(frame.Token)
			if err != nil {
				surface.sendError("invalid token")
				syncer.SetOwner("")
				continue
			}
			syncer.SetOwner(owner)
		default:
			surface.sendError("unknown frame type: " + frame.Type)
		}
	}
}
