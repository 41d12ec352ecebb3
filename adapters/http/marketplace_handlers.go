package authhttp

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/servxpert/authcore/core"
	"github.com/servxpert/authcore/marketplace"
)

func sendMarketErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, marketplace.ErrNotFound):
		notFound(w, "not_found")
	case errors.Is(err, marketplace.ErrBadTransition):
		badRequest(w, "invalid_status_transition")
	default:
		serverErr(w, "try_again_later")
	}
}

func (s *Service) handleServicesGET(w http.ResponseWriter, r *http.Request) {
	if !s.allow(r, RLServicesList) {
		tooMany(w)
		return
	}
	offerings, err := s.market.ListOfferings(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		serverErr(w, "try_again_later")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"services": offerings})
}

func (s *Service) handleBookingCreatePOST(w http.ResponseWriter, r *http.Request) {
	if !s.allow(r, RLBookingCreate) {
		tooMany(w)
		return
	}
	cl, err := getClaims(r.Context())
	if err != nil {
		unauthorized(w, "unauthorized")
		return
	}
	if !cl.HasRole(string(core.RoleCustomer)) && !cl.HasRole(string(core.RoleAdmin)) {
		forbidden(w, "forbidden")
		return
	}

	var req struct {
		OfferingID  string    `json:"offeringId"`
		Address     string    `json:"address"`
		ScheduledAt time.Time `json:"scheduledAt"`
	}
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid_request")
		return
	}
	if strings.TrimSpace(req.OfferingID) == "" || req.ScheduledAt.IsZero() {
		badRequest(w, "validation_error")
		return
	}

	b, err := s.market.CreateBooking(r.Context(), cl.UserID, req.OfferingID, req.Address, req.ScheduledAt)
	if err != nil {
		sendMarketErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

// handleBookingsGET is role-scoped: customers see their bookings, workers
// their assignments, admins everything.
func (s *Service) handleBookingsGET(w http.ResponseWriter, r *http.Request) {
	if !s.allow(r, RLBookingList) {
		tooMany(w)
		return
	}
	cl, err := getClaims(r.Context())
	if err != nil {
		unauthorized(w, "unauthorized")
		return
	}

	var bookings []marketplace.Booking
	switch {
	case cl.HasRole(string(core.RoleAdmin)):
		bookings, err = s.market.ListAllBookings(r.Context())
	case cl.HasRole(string(core.RoleWorker)):
		bookings, err = s.market.ListBookingsForWorker(r.Context(), cl.UserID)
	default:
		bookings, err = s.market.ListBookingsForCustomer(r.Context(), cl.UserID)
	}
	if err != nil {
		serverErr(w, "try_again_later")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": bookings})
}

func (s *Service) handleBookingAssignPOST(w http.ResponseWriter, r *http.Request) {
	if !s.allow(r, RLBookingAssign) {
		tooMany(w)
		return
	}
	bookingID := strings.TrimSpace(r.PathValue("id"))
	var req struct {
		WorkerID string `json:"workerId"`
	}
	if err := decodeJSON(r, &req); err != nil || bookingID == "" || strings.TrimSpace(req.WorkerID) == "" {
		badRequest(w, "invalid_request")
		return
	}

	// The assignee must be a provisioned worker.
	worker, err := s.svc.GetIdentity(r.Context(), req.WorkerID)
	if err != nil {
		serverErr(w, "try_again_later")
		return
	}
	if worker == nil || worker.Role == nil || *worker.Role != core.RoleWorker {
		badRequest(w, "not_a_worker")
		return
	}

	b, err := s.market.AssignWorker(r.Context(), bookingID, req.WorkerID)
	if err != nil {
		sendMarketErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Service) handleBookingStatusPOST(w http.ResponseWriter, r *http.Request) {
	if !s.allow(r, RLBookingStatus) {
		tooMany(w)
		return
	}
	cl, err := getClaims(r.Context())
	if err != nil {
		unauthorized(w, "unauthorized")
		return
	}
	bookingID := strings.TrimSpace(r.PathValue("id"))
	var req struct {
		Status string `json:"status"`
	}
	if err := decodeJSON(r, &req); err != nil || bookingID == "" {
		badRequest(w, "invalid_request")
		return
	}

	b, err := s.market.GetBooking(r.Context(), bookingID)
	if err != nil {
		sendMarketErr(w, err)
		return
	}
	// Workers may only move their own assignments.
	if b.WorkerID == nil || *b.WorkerID != cl.UserID {
		forbidden(w, "forbidden")
		return
	}

	updated, err := s.market.UpdateBookingStatus(r.Context(), bookingID, marketplace.BookingStatus(req.Status))
	if err != nil {
		sendMarketErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}
