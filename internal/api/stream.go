package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/talgya/world-api/internal/environment"
)

// wsMessage is the envelope for websocket frames.
type wsMessage struct {
	Type  string             `json:"type"` // "state" or "change"
	State *environment.State `json:"state,omitempty"`
	Event *Event             `json:"event,omitempty"`
}

// acquireStream reserves one streaming slot.
func (s *Server) acquireStream(w http.ResponseWriter) bool {
	if s.streamConns.Add(1) > maxStreamConns {
		s.streamConns.Add(-1)
		http.Error(w, "too many stream connections", http.StatusServiceUnavailable)
		return false
	}
	return true
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if !s.acquireStream(w) {
		return
	}
	defer s.streamConns.Add(-1)

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	// SSE headers.
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	subID, ch := s.Events.Subscribe()
	defer s.Events.Unsubscribe(subID)

	// Current state as catch-up.
	writeSSE(w, "state", s.View.State())
	flusher.Flush()

	s.Logger.Info("SSE client connected", "sub_id", subID)

	// Stream loop with heartbeat.
	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case e, ok := <-ch:
			if !ok {
				return
			}
			writeSSE(w, "change", e)
			flusher.Flush()
		case <-heartbeat.C:
			fmt.Fprintf(w, ": heartbeat\n\n")
			flusher.Flush()
		case <-r.Context().Done():
			s.Logger.Info("SSE client disconnected", "sub_id", subID)
			return
		}
	}
}

// writeSSE writes a single event in SSE format.
func writeSSE(w http.ResponseWriter, event string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	if !s.acquireStream(w) {
		return
	}
	defer s.streamConns.Add(-1)

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	subID, ch := s.Events.Subscribe()
	defer s.Events.Unsubscribe(subID)

	state := s.View.State()
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteJSON(wsMessage{Type: "state", State: &state}); err != nil {
		return
	}
	s.Logger.Info("websocket client connected", "sub_id", subID)

	// Reader: the stream is one-way, so reads only detect the close.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case e, ok := <-ch:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(wsMessage{Type: "change", Event: &e}); err != nil {
				return
			}
		case <-closed:
			s.Logger.Info("websocket client disconnected", "sub_id", subID)
			return
		case <-r.Context().Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
				time.Now().Add(time.Second))
			return
		}
	}
}
