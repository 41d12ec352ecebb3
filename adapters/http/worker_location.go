package authhttp

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/servxpert/authcore/realtime"
)

func (s *Service) handleWorkerLocationPOST(w http.ResponseWriter, r *http.Request) {
	if !s.allow(r, RLWorkerLocation) {
		tooMany(w)
		return
	}
	cl, err := getClaims(r.Context())
	if err != nil {
		unauthorized(w, "unauthorized")
		return
	}

	var req struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
		Status    string  `json:"status,omitempty"`
	}
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid_request")
		return
	}
	if req.Latitude < -90 || req.Latitude > 90 || req.Longitude < -180 || req.Longitude > 180 {
		badRequest(w, "validation_error")
		return
	}

	now := time.Now()
	if err := s.market.UpdateWorkerLocation(r.Context(), cl.UserID, req.Latitude, req.Longitude, now); err != nil {
		serverErr(w, "try_again_later")
		return
	}
	if s.feed != nil {
		_ = s.feed.Publish(r.Context(), realtime.WorkerLocation{
			WorkerID:  cl.UserID,
			Latitude:  req.Latitude,
			Longitude: req.Longitude,
			Status:    req.Status,
			UpdatedAt: now,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Service) handleWorkerLocationGET(w http.ResponseWriter, r *http.Request) {
	if !s.allow(r, RLWorkerLocation) {
		tooMany(w)
		return
	}
	workerID := strings.TrimSpace(r.PathValue("id"))
	if workerID == "" {
		badRequest(w, "missing_worker_id")
		return
	}
	p, err := s.market.GetWorkerProfile(r.Context(), workerID)
	if err != nil {
		sendMarketErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// handleWorkerLocationStreamGET pushes location updates as server-sent
// events. Each event is a full-state replacement; the client renders the
// latest one and discards the rest.
func (s *Service) handleWorkerLocationStreamGET(w http.ResponseWriter, r *http.Request) {
	if !s.allow(r, RLWorkerLocStream) {
		tooMany(w)
		return
	}
	workerID := strings.TrimSpace(r.PathValue("id"))
	if workerID == "" {
		badRequest(w, "missing_worker_id")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		serverErr(w, "streaming_unsupported")
		return
	}

	sub, err := s.feed.Subscribe(r.Context(), workerID)
	if err != nil {
		serverErr(w, "try_again_later")
		return
	}
	defer sub.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	// Seed with the last persisted state so a cold subscriber is not blank.
	if p, err := s.market.GetWorkerProfile(r.Context(), workerID); err == nil && p.Latitude != nil && p.Longitude != nil {
		seed := realtime.WorkerLocation{WorkerID: workerID, Latitude: *p.Latitude, Longitude: *p.Longitude}
		if p.LocationAt != nil {
			seed.UpdatedAt = *p.LocationAt
		}
		writeSSE(w, seed)
		flusher.Flush()
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case loc, ok := <-sub.Updates():
			if !ok {
				return
			}
			writeSSE(w, loc)
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, loc realtime.WorkerLocation) {
	b, err := json.Marshal(loc)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: location\ndata: %s\n\n", b)
}
