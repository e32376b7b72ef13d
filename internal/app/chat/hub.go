/*
Package chat contains the core logic for handling live sessions and message broadcasting.

This file defines the Hub struct, the broadcast fanout for the single chat room. It owns
the registry of currently connected sessions, mutated only on connect/disconnect, and
delivers every broadcast to a consistent snapshot of that set.
*/
package chat

import (
	"sync"

	"github.com/rs/zerolog"

	"friendchat/internal/pkg/logx"
)

const broadcastChannelBuffer = 1024

// Hub coordinates all connected sessions and fans events out to them.
type Hub struct {
	// sessions is the set of currently connected sessions.
	sessions map[*Session]struct{}

	// register is the channel for sessions joining the fanout.
	register chan *Session

	// unregister is the channel for sessions leaving the fanout.
	unregister chan *Session

	// broadcast carries pre-marshaled frames destined for every session.
	broadcast chan []byte

	// stopChan signals the Run loop to terminate immediately.
	stopChan chan struct{}

	// wg waits for the Run loop to finish during shutdown.
	wg sync.WaitGroup

	// mu protects access to the sessions set.
	mu sync.RWMutex

	// structured logger with Hub context.
	logger zerolog.Logger
}

// NewHub constructs a Hub and starts its Run loop.
func NewHub() *Hub {
	h := &Hub{
		sessions: make(map[*Session]struct{}),
		register: make(chan *Session),

		// Buffered so dispatch can schedule a slow session's removal from
		// inside the run loop without dropping the request.
		unregister: make(chan *Session, 16),
		broadcast:  make(chan []byte, broadcastChannelBuffer),
		stopChan:   make(chan struct{}),
		logger:     logx.Logger().With().Str("component", "Hub").Logger(),
	}

	h.wg.Add(1)

	go h.run()

	return h
}

// run is the main event loop for the Hub. It handles session registration,
// deregistration and frame fanout until Shutdown is called.
func (h *Hub) run() {
	defer func() {
		h.mu.Lock()
		for session := range h.sessions {
			session.closeSend()
		}
		h.sessions = make(map[*Session]struct{})
		h.mu.Unlock()

		h.wg.Done()

		h.logger.Info().Msg("Hub run loop stopped.")
	}()

	h.logger.Info().Msg("Hub run loop started.")

	for {
		select {
		case session := <-h.register:
			h.mu.Lock()
			h.sessions[session] = struct{}{}
			total := len(h.sessions)
			h.mu.Unlock()

			h.logger.Info().
				Str("session_id", session.id).
				Int("total_sessions", total).
				Msg("Session connected.")

		case session := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.sessions[session]; ok {
				delete(h.sessions, session)
				session.closeSend()

				h.logger.Info().
					Str("session_id", session.id).
					Int("total_sessions", len(h.sessions)).
					Msg("Session disconnected.")
			}
			h.mu.Unlock()

		case frame := <-h.broadcast:
			h.dispatch(frame)

		case <-h.stopChan:
			return
		}
	}
}

// dispatch delivers one frame to the snapshot of sessions connected at this
// moment. Delivery to each session is a non-blocking enqueue; a session whose
// send queue is full is scheduled for deregistration rather than allowed to
// stall the dispatcher.
func (h *Hub) dispatch(frame []byte) {
	h.mu.RLock()
	snapshot := make([]*Session, 0, len(h.sessions))
	for session := range h.sessions {
		snapshot = append(snapshot, session)
	}
	h.mu.RUnlock()

	for _, session := range snapshot {
		if session.enqueue(frame) {
			continue
		}

		h.logger.Warn().
			Str("session_id", session.id).
			Msg("Session send queue full, scheduling disconnect.")

		select {
		case h.unregister <- session:
		default:
			h.logger.Warn().Msg("Unregister channel full, skipping session cleanup.")
		}
	}
}

// Broadcast queues one frame for delivery to every connected session, including
// the sender. Frames from a single session arrive here in the order that session
// issued them and are dispatched in that same order.
func (h *Hub) Broadcast(frame []byte) {
	select {
	case h.broadcast <- frame:
	default:
		h.logger.Warn().Msg("Broadcast channel full, dropping frame.")
	}
}

// BroadcastEvent marshals an outbound event and broadcasts it.
func (h *Hub) BroadcastEvent(eventType EventType, payload any) {
	frame, err := MarshalEvent(eventType, payload)
	if err != nil {
		h.logger.Error().Err(err).Str("event_type", string(eventType)).Msg("Failed to marshal broadcast event.")
		return
	}

	h.Broadcast(frame)
}

// EmitToOne delivers one frame only to the given session. Used for request
// replies and history replay, which are not part of the general broadcast.
func (h *Hub) EmitToOne(session *Session, frame []byte) {
	if !session.enqueue(frame) {
		h.logger.Warn().
			Str("session_id", session.id).
			Msg("Session send queue full, reply dropped.")
	}
}

// Register queues a session into the fanout set.
func (h *Hub) Register(session *Session) {
	select {
	case h.register <- session:
	case <-h.stopChan:
		session.closeSend()
	}
}

// Unregister removes a session from the fanout set. Safe to call for sessions
// that were never registered or are already gone.
func (h *Hub) Unregister(session *Session) {
	select {
	case h.unregister <- session:
	case <-h.stopChan:
	}
}

// SessionCount reports the number of currently connected sessions.
func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.sessions)
}

// Shutdown terminates the Run loop and closes every session's send queue.
func (h *Hub) Shutdown() {
	h.logger.Info().Msg("Shutting down Hub...")

	select {
	case <-h.stopChan:
	default:
		close(h.stopChan)
	}

	h.wg.Wait()

	h.logger.Info().Msg("Hub shutdown complete.")
}
