// Package rooms tracks which live sessions are drawing on which project.
package rooms

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"
)

const (
	EventDraw             = "draw"
	EventParticipantCount = "participant_count"
)

// Session is one live connection. Send must not block; it reports false when
// the frame was dropped.
type Session interface {
	ID() string
	Send(frame []byte) bool
}

// Message is the server to client envelope.
type Message struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

func Encode(event string, data interface{}) []byte {
	frame, err := json.Marshal(Message{Event: event, Data: data})
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("Failed to encode frame")
		return nil
	}
	return frame
}

type countData struct {
	Count int `json:"count"`
}

type room struct {
	mu       sync.RWMutex
	sessions map[string]Session
	// closed is set once the room was emptied and unlinked from the registry.
	closed bool
}

func (r *room) fanout(frame []byte, skip string) int {
	delivered := 0
	for id, s := range r.sessions {
		if id == skip {
			continue
		}
		if s.Send(frame) {
			delivered++
		}
	}
	return delivered
}

// Registry maps project ids to rooms. Rooms exist only while they have at
// least one session.
type Registry struct {
	mu    sync.Mutex
	rooms map[int64]*room
}

func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[int64]*room),
	}
}

func (r *Registry) acquire(projectId int64) *room {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[projectId]
	if !ok {
		rm = &room{sessions: make(map[string]Session)}
		r.rooms[projectId] = rm
	}
	return rm
}

func (r *Registry) lookup(projectId int64) *room {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rooms[projectId]
}

// Join adds s to the project's room and sends the new participant count to
// everyone in it, s included.
func (r *Registry) Join(projectId int64, s Session) int {
	for {
		rm := r.acquire(projectId)

		rm.mu.Lock()
		if rm.closed {
			// Lost to the last Leave; the next acquire sees a fresh room.
			rm.mu.Unlock()
			continue
		}

		rm.sessions[s.ID()] = s
		count := len(rm.sessions)
		rm.fanout(Encode(EventParticipantCount, countData{Count: count}), "")
		rm.mu.Unlock()

		log.Debug().Int64("project", projectId).Str("session", s.ID()).Int("count", count).Msg("Joined room")
		return count
	}
}

// Leave removes s from the project's room. Unknown rooms and sessions are
// ignored. The room is dropped when it becomes empty.
func (r *Registry) Leave(projectId int64, s Session) int {
	rm := r.lookup(projectId)
	if rm == nil {
		return 0
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()

	if _, ok := rm.sessions[s.ID()]; !ok {
		return len(rm.sessions)
	}

	delete(rm.sessions, s.ID())
	count := len(rm.sessions)
	log.Debug().Int64("project", projectId).Str("session", s.ID()).Int("count", count).Msg("Left room")

	if count == 0 {
		rm.closed = true

		r.mu.Lock()
		if r.rooms[projectId] == rm {
			delete(r.rooms, projectId)
		}
		r.mu.Unlock()
		return 0
	}

	rm.fanout(Encode(EventParticipantCount, countData{Count: count}), "")
	return count
}

// Broadcast relays frame to every session in the room except origin and
// returns how many accepted it.
func (r *Registry) Broadcast(projectId int64, origin string, frame []byte) int {
	rm := r.lookup(projectId)
	if rm == nil {
		return 0
	}

	rm.mu.RLock()
	defer rm.mu.RUnlock()

	return rm.fanout(frame, origin)
}

// Count returns the number of sessions in the project's room.
func (r *Registry) Count(projectId int64) int {
	rm := r.lookup(projectId)
	if rm == nil {
		return 0
	}

	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return len(rm.sessions)
}

// Rooms returns the number of live rooms.
func (r *Registry) Rooms() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms)
}
