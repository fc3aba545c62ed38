package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/talgya/world-api/internal/environment"
	"github.com/talgya/world-api/internal/persistence"
	"github.com/talgya/world-api/internal/presets"
	"github.com/talgya/world-api/internal/snapshot"
)

// frameWait bounds how long a write waits for the engine to pick it up.
const frameWait = 5 * time.Second

func (s *Server) do(r *http.Request, fn func(h *environment.Hub) error) error {
	ctx, cancel := context.WithTimeout(r.Context(), frameWait)
	defer cancel()
	return s.Eng.Do(ctx, fn)
}

func (s *Server) fail(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		http.Error(w, "engine not responding", http.StatusServiceUnavailable)
		return
	}
	s.Logger.Error(op+" failed", "error", err)
	http.Error(w, op+" failed", http.StatusInternalServerError)
}

func (s *Server) handleField(w http.ResponseWriter, r *http.Request) {
	if !postOnly(w, r) {
		return
	}
	var req struct {
		Field string  `json:"field"`
		Value float64 `json:"value"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	f, err := environment.ParseField(req.Field)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var stored float64
	err = s.do(r, func(h *environment.Hub) error {
		if err := h.SetFloat(f, req.Value); err != nil {
			return err
		}
		stored, err = h.Float(f)
		return err
	})
	if err != nil {
		s.fail(w, "set field", err)
		return
	}
	s.Logger.Info("field set", "field", f.String(), "value", stored)
	writeJSON(w, map[string]any{"field": f.String(), "value": stored})
}

func (s *Server) handleActive(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		var req struct {
			Active bool `json:"active"`
		}
		if !decodeBody(w, r, &req) {
			return
		}
		err := s.do(r, func(h *environment.Hub) error {
			h.SetActive(req.Active)
			// Inactive hubs skip LateTick, so the view has to learn about
			// the transition here.
			if !h.Active() {
				s.View.Sync(environment.ActiveChanged, h.State())
			}
			return nil
		})
		if err != nil {
			s.fail(w, "set active", err)
			return
		}
		s.Logger.Info("hub activity changed", "active", req.Active)
		writeJSON(w, map[string]bool{"active": req.Active})
		return
	}
	writeJSON(w, map[string]bool{"active": s.View.State().Active})
}

func (s *Server) handleTime(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		t := s.View.State().GameTime
		writeJSON(w, map[string]any{"game_time": t, "hours": environment.DecimalHours(t)})
		return
	}
	var req struct {
		Hours    *float64   `json:"hours"`
		GameTime *time.Time `json:"game_time"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Hours == nil && req.GameTime == nil {
		http.Error(w, "hours or game_time required", http.StatusBadRequest)
		return
	}

	var now time.Time
	err := s.do(r, func(h *environment.Hub) error {
		if req.GameTime != nil {
			h.SetGameTime(*req.GameTime)
		}
		if req.Hours != nil {
			h.SetDecimalTime(*req.Hours)
		}
		now = h.GameTime()
		return nil
	})
	if err != nil {
		s.fail(w, "set time", err)
		return
	}
	writeJSON(w, map[string]any{"game_time": now, "hours": environment.DecimalHours(now)})
}

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		var req struct {
			Speed float64 `json:"speed"`
		}
		if !decodeBody(w, r, &req) {
			return
		}
		if req.Speed < 0 || req.Speed > 1000 {
			http.Error(w, "speed must be 0-1000", http.StatusBadRequest)
			return
		}
		s.Eng.SetSpeed(req.Speed)
		s.Logger.Info("speed changed", "speed", req.Speed)
	}

	writeJSON(w, map[string]float64{"speed": s.Eng.Speed()})
}

// handleSnapshot lists snapshots on GET. POST saves a new one, or restores
// the snapshot named by "restore".
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "database not available", http.StatusServiceUnavailable)
		return
	}
	if r.Method != http.MethodPost {
		headers, err := s.DB.ListSnapshots(r.Context(), 50)
		if err != nil {
			s.fail(w, "list snapshots", err)
			return
		}
		writeJSON(w, headers)
		return
	}

	var req struct {
		Restore string `json:"restore"`
	}
	if r.ContentLength != 0 && !decodeBody(w, r, &req) {
		return
	}

	if req.Restore != "" {
		env, err := s.DB.LoadSnapshot(r.Context(), req.Restore)
		if errors.Is(err, persistence.ErrNoSnapshot) {
			http.Error(w, "snapshot not found", http.StatusNotFound)
			return
		}
		if err != nil {
			s.fail(w, "load snapshot", err)
			return
		}
		err = s.do(r, func(h *environment.Hub) error {
			if err := snapshot.Restore(h, env); err != nil {
				return err
			}
			if s.OnRestore != nil {
				s.OnRestore(h)
			}
			return nil
		})
		if err != nil {
			if errors.Is(err, snapshot.ErrVersion) || errors.Is(err, environment.ErrUnknownExtension) {
				http.Error(w, err.Error(), http.StatusUnprocessableEntity)
				return
			}
			s.fail(w, "restore snapshot", err)
			return
		}
		s.Logger.Info("snapshot restored", "id", env.Header.ID, "frame", env.Header.Frame)
		writeJSON(w, map[string]any{"header": env.Header, "message": "snapshot restored"})
		return
	}

	var env snapshot.Envelope
	err := s.do(r, func(h *environment.Hub) error {
		var err error
		env, err = snapshot.Capture(h, s.Eng.Frame())
		return err
	})
	if err != nil {
		s.fail(w, "capture snapshot", err)
		return
	}
	if err := s.DB.SaveSnapshot(r.Context(), env); err != nil {
		s.fail(w, "save snapshot", err)
		return
	}

	writeJSON(w, map[string]any{
		"header":  env.Header,
		"message": "snapshot saved",
	})
}

// handlePreset lists preset names on GET. POST applies the preset named by
// "apply", or stores the current values under "capture".
func (s *Server) handlePreset(w http.ResponseWriter, r *http.Request) {
	if s.Presets == nil {
		http.Error(w, "presets not available", http.StatusServiceUnavailable)
		return
	}
	if r.Method != http.MethodPost {
		writeJSON(w, s.Presets.Names())
		return
	}

	var req struct {
		Apply   string   `json:"apply"`
		Capture string   `json:"capture"`
		Fields  []string `json:"fields"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	switch {
	case req.Apply != "":
		p, err := s.Presets.Load(req.Apply)
		if errors.Is(err, presets.ErrNotFound) {
			http.Error(w, "preset not found", http.StatusNotFound)
			return
		}
		if err != nil {
			s.fail(w, "load preset", err)
			return
		}
		if err := s.do(r, func(h *environment.Hub) error { return presets.Apply(h, p) }); err != nil {
			if errors.Is(err, environment.ErrUnknownField) {
				http.Error(w, err.Error(), http.StatusUnprocessableEntity)
				return
			}
			s.fail(w, "apply preset", err)
			return
		}
		s.Logger.Info("preset applied", "name", p.Name)
		writeJSON(w, p)

	case req.Capture != "":
		fields := make([]environment.Field, 0, len(req.Fields))
		for _, name := range req.Fields {
			f, err := environment.ParseField(name)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			fields = append(fields, f)
		}
		var p presets.Preset
		err := s.do(r, func(h *environment.Hub) error {
			p = presets.CaptureFrom(h, req.Capture, fields...)
			return nil
		})
		if err != nil {
			s.fail(w, "capture preset", err)
			return
		}
		if err := s.Presets.Save(p); err != nil {
			if errors.Is(err, presets.ErrInvalidName) {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			s.fail(w, "save preset", err)
			return
		}
		writeJSON(w, p)

	default:
		http.Error(w, "apply or capture required", http.StatusBadRequest)
	}
}
