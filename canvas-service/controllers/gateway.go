package controllers

import (
	"context"
	"encoding/json"
	"time"

	"github.com/canvasly/canvasly-server/canvas-service/rooms"
	"github.com/canvasly/canvasly-server/utils-go"
	"github.com/rs/zerolog/log"
)

const (
	eventJoin  = "join_canvas"
	eventLeave = "leave_canvas"
	eventDraw  = "draw"
)

// Authorizer decides whether userId may join the project's room.
type Authorizer func(ctx context.Context, userId, projectId int64) (bool, error)

type GatewayConfig struct {
	SendBuffer     int
	MaxMessageSize int64
	MaxPoints      int
	// PingInterval paces heartbeats. A peer that sends nothing, not even a
	// pong, for PongWait is dropped. Zero disables either.
	PingInterval   time.Duration
	PongWait       time.Duration
	Authorize      Authorizer
}

// Gateway binds websocket connections to rooms and relays strokes between them.
type Gateway struct {
	registry *rooms.Registry
	config   GatewayConfig
}

func NewGateway(registry *rooms.Registry, config GatewayConfig) *Gateway {
	return &Gateway{registry: registry, config: config}
}

type envelope struct {
	Event       string          `json:"event"`
	ProjectId   utils.NumericId `json:"projectId"`
	DrawingData json.RawMessage `json:"drawingData"`
}

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// DrawEvent is one stroke. It is checked for shape and relayed as received.
type DrawEvent struct {
	Points []Point `json:"points" validate:"required,min=1"`
	Color  string  `json:"color" validate:"max=64"`
	Width  float64 `json:"width" validate:"gt=0,lte=200"`
}

// Serve runs the read loop for one connection until it fails, closes or goes
// quiet for longer than PongWait. The session leaves its room exactly once on
// the way out.
func (g *Gateway) Serve(ctx context.Context, userId int64, socket Socket) {
	s := newSession(userId, socket, g.config.SendBuffer)

	g.keepAlive(s)
	socket.SetPongHandler(func(string) error {
		g.keepAlive(s)
		return nil
	})
	go s.writeLoop(g.config.PingInterval)

	log.Debug().Str("session", s.id).Int64("user", userId).Msg("Session opened")

	defer func() {
		g.leave(s)
		close(s.done)
		_ = socket.Close()
		log.Debug().Str("session", s.id).Msg("Session closed")
	}()

	for {
		_, frame, err := socket.ReadMessage()
		if err != nil {
			log.Debug().Err(err).Str("session", s.id).Msg("Read failed")
			return
		}

		g.keepAlive(s)
		g.handle(ctx, s, frame)
	}
}

func (g *Gateway) keepAlive(s *session) {
	if g.config.PongWait <= 0 {
		return
	}

	if err := s.socket.SetReadDeadline(time.Now().Add(g.config.PongWait)); err != nil {
		log.Debug().Err(err).Str("session", s.id).Msg("Failed to extend read deadline")
	}
}

func (g *Gateway) handle(ctx context.Context, s *session, frame []byte) {
	if g.config.MaxMessageSize > 0 && int64(len(frame)) > g.config.MaxMessageSize {
		log.Debug().Str("session", s.id).Int("size", len(frame)).Msg("Dropped oversized frame")
		return
	}

	msg := new(envelope)
	if err := json.Unmarshal(frame, msg); err != nil {
		log.Debug().Err(err).Str("session", s.id).Msg("Dropped malformed frame")
		return
	}

	projectId := int64(msg.ProjectId)
	if projectId <= 0 {
		log.Debug().Str("session", s.id).Str("event", msg.Event).Msg("Dropped frame without project")
		return
	}

	switch msg.Event {
	case eventJoin:
		g.join(ctx, s, projectId)
	case eventLeave:
		if s.joined && s.room == projectId {
			g.leave(s)
		}
	case eventDraw:
		g.draw(s, projectId, msg.DrawingData)
	default:
		log.Debug().Str("session", s.id).Str("event", msg.Event).Msg("Dropped unknown event")
	}
}

func (g *Gateway) join(ctx context.Context, s *session, projectId int64) {
	if s.joined && s.room == projectId {
		return
	}

	if g.config.Authorize != nil {
		ok, err := g.config.Authorize(ctx, s.userId, projectId)
		if err != nil {
			log.Error().Err(err).Str("session", s.id).Int64("project", projectId).Msg("Membership check failed")
			return
		}
		if !ok {
			log.Info().Str("session", s.id).Int64("user", s.userId).Int64("project", projectId).Msg("Join refused")
			return
		}
	}

	g.leave(s)
	g.registry.Join(projectId, s)
	s.room, s.joined = projectId, true
}

func (g *Gateway) leave(s *session) {
	if !s.joined {
		return
	}

	g.registry.Leave(s.room, s)
	s.room, s.joined = 0, false
}

func (g *Gateway) draw(s *session, projectId int64, data json.RawMessage) {
	if !s.joined || s.room != projectId {
		log.Debug().Str("session", s.id).Int64("project", projectId).Msg("Dropped draw outside room")
		return
	}

	event := new(DrawEvent)
	if err := json.Unmarshal(data, event); err != nil {
		log.Debug().Err(err).Str("session", s.id).Msg("Dropped malformed stroke")
		return
	}
	if errs := utils.ValidateStruct(utils.Validator.Struct(event)); len(errs) > 0 {
		log.Debug().Str("session", s.id).Str("field", errs[0].FailedField).Msg("Dropped invalid stroke")
		return
	}
	if g.config.MaxPoints > 0 && len(event.Points) > g.config.MaxPoints {
		log.Debug().Str("session", s.id).Int("points", len(event.Points)).Msg("Dropped oversized stroke")
		return
	}

	g.registry.Broadcast(projectId, s.id, rooms.Encode(rooms.EventDraw, data))
}

// Rooms reports the number of live rooms.
func (g *Gateway) Rooms() int {
	return g.registry.Rooms()
}
