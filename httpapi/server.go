package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"pkt.systems/chatdeck/core"
	"pkt.systems/chatdeck/internal/logx"
	"pkt.systems/chatdeck/schema"
)

// maxStateSize bounds the accepted tab-set payload.
const maxStateSize = 1 << 20

// Server serves the local control API the shell UI talks to.
type Server struct {
	cfg     Config
	service core.Service
	ready   *core.ReadyQueue
	hub     *Hub
}

// NewServer constructs the control API server.
func NewServer(cfg Config, service core.Service, ready *core.ReadyQueue, hub *Hub) *Server {
	return &Server{
		cfg:     cfg,
		service: service,
		ready:   ready,
		hub:     hub,
	}
}

// Handler returns an http.Handler for the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/tabs", s.handleTabs)
	mux.HandleFunc("/api/tabs/save", s.handleSaveState)
	mux.HandleFunc("/api/tabs/new", s.handleCreateTab)
	mux.HandleFunc("/api/tabs/close", s.handleCloseTab)
	mux.HandleFunc("/api/tabs/activate", s.handleActivateTab)
	mux.HandleFunc("/api/tabs/title", s.handleUpdateTitle)

	mux.HandleFunc("/api/quick-entry/submit", s.handleQuickEntrySubmit)
	mux.HandleFunc("/api/quick-entry/ready", s.handleQuickEntryReady)
	mux.HandleFunc("/api/quick-entry/hide", s.handleQuickEntryHide)
	mux.HandleFunc("/api/quick-entry/cancel", s.handleQuickEntryCancel)
	if s.cfg.DeterministicReady {
		mux.HandleFunc("/api/quick-entry/flush", s.handleQuickEntryFlush)
	}

	mux.HandleFunc("/api/stream", s.handleStream)

	return withRequestLogging(mux)
}

func (s *Server) handleTabs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	log := logx.Ctx(r.Context())
	state, err := s.service.GetState(r.Context())
	if err != nil {
		log.Warn("http tabs failed", "err", err)
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, state)
	log.Info("http tabs ok", "count", len(state.Tabs))
}

func (s *Server) handleSaveState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	log := logx.Ctx(r.Context())
	body, err := io.ReadAll(io.LimitReader(r.Body, maxStateSize+1))
	if err != nil {
		log.Warn("http save read failed", "err", err)
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if len(body) > maxStateSize {
		writeError(w, http.StatusBadRequest, errors.New("tab set exceeds 1MB limit"))
		return
	}
	state, err := s.service.SaveState(r.Context(), body)
	if err != nil {
		log.Warn("http save failed", "err", err)
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, state)
	log.Info("http save ok", "tabs", len(state.Tabs))
}

func (s *Server) handleCreateTab(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	log := logx.Ctx(r.Context())
	var payload schema.CreateTabRequest
	if err := decodeJSON(r.Body, &payload); err != nil && !errors.Is(err, io.EOF) {
		log.Warn("http tab create decode failed", "err", err)
		writeError(w, http.StatusBadRequest, err)
		return
	}
	tab, err := s.service.CreateTab(r.Context(), payload)
	if err != nil {
		log.Warn("http tab create failed", "err", err)
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, tab)
	log.Info("http tab create ok", "tab", tab.ID)
}

func (s *Server) handleCloseTab(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	log := logx.Ctx(r.Context())
	var payload schema.CloseTabRequest
	if err := decodeJSON(r.Body, &payload); err != nil {
		log.Warn("http tab close decode failed", "err", err)
		writeError(w, http.StatusBadRequest, err)
		return
	}
	state, err := s.service.CloseTab(r.Context(), payload)
	if err != nil {
		log.Warn("http tab close failed", "err", err)
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, state)
	log.Info("http tab close ok", "tab", payload.TabID)
}

func (s *Server) handleActivateTab(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	log := logx.Ctx(r.Context())
	var payload schema.ActivateTabRequest
	if err := decodeJSON(r.Body, &payload); err != nil {
		log.Warn("http tab activate decode failed", "err", err)
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.service.ActivateTab(r.Context(), payload); err != nil {
		log.Warn("http tab activate failed", "err", err)
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	log.Info("http tab activate ok", "tab", payload.TabID)
}

func (s *Server) handleUpdateTitle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	log := logx.Ctx(r.Context())
	var payload schema.UpdateTitleRequest
	if err := decodeJSON(r.Body, &payload); err != nil {
		log.Warn("http title decode failed", "err", err)
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.service.UpdateTitle(r.Context(), payload); err != nil {
		log.Warn("http title failed", "err", err)
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleQuickEntrySubmit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	log := logx.Ctx(r.Context())
	var payload schema.QuickEntrySubmit
	if err := decodeJSON(r.Body, &payload); err != nil {
		log.Warn("http quick entry decode failed", "err", err)
		writeError(w, http.StatusBadRequest, err)
		return
	}
	receipt, err := s.service.SubmitQuickEntry(r.Context(), payload)
	if err != nil {
		log.Warn("http quick entry submit failed", "err", err)
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
	log.Info("http quick entry submit ok", "request", receipt.RequestID, "tab", receipt.TargetTabID)
}

func (s *Server) handleQuickEntryReady(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	log := logx.Ctx(r.Context())
	var payload schema.QuickEntryReady
	if err := decodeJSON(r.Body, &payload); err != nil {
		log.Warn("http quick entry ready decode failed", "err", err)
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.ready.Ready(r.Context(), payload); err != nil {
		// Rejections here are protocol outcomes, not transport errors; they
		// still answer 200, with the reason in the body.
		log.Warn("http quick entry ready rejected", "err", err)
		writeJSON(w, http.StatusOK, readyOutcome{Reason: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, readyOutcome{Accepted: true})
}

type readyOutcome struct {
	Accepted bool   `json:"accepted"`
	Reason   string `json:"reason,omitempty"`
}

func (s *Server) handleQuickEntryHide(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	s.service.HideQuickEntry(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleQuickEntryCancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	s.service.CancelQuickEntry(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleQuickEntryFlush(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	s.ready.Flush(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	logx.Ctx(r.Context()).Info("http quick entry flush ok")
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, errors.New("stream unsupported"))
		return
	}
	log := logx.Ctx(r.Context())

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	lastID := parseUint(r.Header.Get("Last-Event-ID"))

	// Subscribe before replaying so nothing published in between is lost;
	// the returned history is consistent with the channel's first event.
	ch, unsubscribe, _, history := s.hub.Subscribe()
	defer unsubscribe()

	snapshot := s.buildSnapshot(r)
	_ = writeSSEvent(w, StreamEvent{
		Type:      "snapshot",
		Snapshot:  &snapshot,
		Timestamp: time.Now(),
	})
	flusher.Flush()

	replayCount := 0
	if lastID > 0 {
		for _, event := range history {
			if event.Seq > lastID {
				_ = writeSSEvent(w, event)
				replayCount++
			}
		}
		flusher.Flush()
	}

	notify := r.Context().Done()
	log.Info("http stream opened", "last_id", lastID, "replay", replayCount, "tabs", len(snapshot.Tabs))
	for {
		select {
		case <-notify:
			log.Info("http stream closed")
			return
		case event := <-ch:
			_ = writeSSEvent(w, event)
			flusher.Flush()
		}
	}
}

func (s *Server) buildSnapshot(r *http.Request) SnapshotPayload {
	state, err := s.service.GetState(r.Context())
	if err != nil {
		return SnapshotPayload{}
	}
	return SnapshotPayload{
		Tabs:      state.Tabs,
		ActiveTab: state.ActiveTabID,
	}
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, schema.ErrTabNotFound), errors.Is(err, schema.ErrFrameNotFound):
		return http.StatusNotFound
	default:
		return http.StatusBadRequest
	}
}

func decodeJSON(body io.Reader, target any) error {
	decoder := json.NewDecoder(body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(target)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	data, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"error": err.Error()})
}

func writeSSEvent(w http.ResponseWriter, event StreamEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if event.Seq > 0 {
		_, _ = fmt.Fprintf(w, "id: %d\n", event.Seq)
	}
	_, _ = fmt.Fprintf(w, "data: %s\n\n", strings.TrimSpace(string(data)))
	return nil
}

func parseUint(value string) uint64 {
	if value == "" {
		return 0
	}
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0
	}
	return parsed
}
