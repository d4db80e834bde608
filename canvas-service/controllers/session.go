package controllers

import (
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Socket is the part of a websocket connection a session needs.
type Socket interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetReadDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
}

type session struct {
	id     string
	userId int64
	socket Socket
	out    chan []byte
	done   chan struct{}

	// room and joined are only touched by the read loop.
	room   int64
	joined bool
}

func newSession(userId int64, socket Socket, buffer int) *session {
	if buffer <= 0 {
		buffer = 1
	}

	return &session{
		id:     uuid.NewString(),
		userId: userId,
		socket: socket,
		out:    make(chan []byte, buffer),
		done:   make(chan struct{}),
	}
}

func (s *session) ID() string {
	return s.id
}

func (s *session) Send(frame []byte) bool {
	if frame == nil {
		return false
	}

	select {
	case <-s.done:
		return false
	default:
	}

	select {
	case s.out <- frame:
		return true
	default:
		log.Debug().Str("session", s.id).Msg("Send queue full, dropping frame")
		return false
	}
}

// writeLoop is the only writer on the socket. It drains the queue and pings
// the peer every pingInterval; a zero interval disables pings.
func (s *session) writeLoop(pingInterval time.Duration) {
	var ping <-chan time.Time
	if pingInterval > 0 {
		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()
		ping = ticker.C
	}

	for {
		var err error
		select {
		case <-s.done:
			return
		case frame := <-s.out:
			err = s.socket.WriteMessage(websocket.TextMessage, frame)
		case <-ping:
			err = s.socket.WriteMessage(websocket.PingMessage, nil)
		}

		if err != nil {
			log.Debug().Err(err).Str("session", s.id).Msg("Write failed")
			_ = s.socket.Close()
			return
		}
	}
}
