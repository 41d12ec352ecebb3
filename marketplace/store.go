package marketplace

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

var ErrNotFound = errors.New("not found")

// Store persists marketplace state through bun.
type Store struct {
	db *bun.DB
}

func NewStore(db *bun.DB) *Store {
	return &Store{db: db}
}

// ListOfferings returns the active service catalog, optionally filtered by
// category.
func (s *Store) ListOfferings(ctx context.Context, category string) ([]Offering, error) {
	var out []Offering
	q := s.db.NewSelect().Model(&out).Where("active").Order("category", "name")
	if category != "" {
		q = q.Where("category = ?", category)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateBooking inserts a pending booking for the customer.
func (s *Store) CreateBooking(ctx context.Context, customerID, offeringID, address string, scheduledAt time.Time) (*Booking, error) {
	exists, err := s.db.NewSelect().Model((*Offering)(nil)).
		Where("id = ?", offeringID).Where("active").Exists(ctx)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: offering %s", ErrNotFound, offeringID)
	}
	b := &Booking{
		CustomerID:  customerID,
		OfferingID:  offeringID,
		Status:      StatusPending,
		Address:     address,
		ScheduledAt: scheduledAt,
	}
	if _, err := s.db.NewInsert().Model(b).Returning("*").Exec(ctx); err != nil {
		return nil, err
	}
	return b, nil
}

// ListBookingsForCustomer returns the customer's bookings, newest first.
func (s *Store) ListBookingsForCustomer(ctx context.Context, customerID string) ([]Booking, error) {
	var out []Booking
	err := s.db.NewSelect().Model(&out).
		Where("customer_id = ?", customerID).
		Order("created_at DESC").
		Scan(ctx)
	return out, err
}

// ListBookingsForWorker returns bookings assigned to the worker, newest first.
func (s *Store) ListBookingsForWorker(ctx context.Context, workerID string) ([]Booking, error) {
	var out []Booking
	err := s.db.NewSelect().Model(&out).
		Where("worker_id = ?", workerID).
		Order("created_at DESC").
		Scan(ctx)
	return out, err
}

// ListAllBookings is the admin view.
func (s *Store) ListAllBookings(ctx context.Context) ([]Booking, error) {
	var out []Booking
	err := s.db.NewSelect().Model(&out).Order("created_at DESC").Scan(ctx)
	return out, err
}

func (s *Store) GetBooking(ctx context.Context, id string) (*Booking, error) {
	b := &Booking{}
	err := s.db.NewSelect().Model(b).Where("b.id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: booking %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// AssignWorker moves a pending or confirmed booking to assigned with the
// given worker.
func (s *Store) AssignWorker(ctx context.Context, bookingID, workerID string) (*Booking, error) {
	b, err := s.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if err := CheckTransition(b.Status, StatusAssigned); err != nil {
		return nil, err
	}
	b.WorkerID = &workerID
	b.Status = StatusAssigned
	b.UpdatedAt = time.Now()
	_, err = s.db.NewUpdate().Model(b).
		Column("worker_id", "status", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// UpdateBookingStatus applies a lifecycle step after validating it.
func (s *Store) UpdateBookingStatus(ctx context.Context, bookingID string, to BookingStatus) (*Booking, error) {
	if !ValidStatus(to) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrBadTransition, to)
	}
	b, err := s.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if err := CheckTransition(b.Status, to); err != nil {
		return nil, err
	}
	b.Status = to
	b.UpdatedAt = time.Now()
	_, err = s.db.NewUpdate().Model(b).
		Column("status", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// UpsertWorkerProfile creates or replaces skills/availability for a worker.
func (s *Store) UpsertWorkerProfile(ctx context.Context, p *WorkerProfile) error {
	_, err := s.db.NewInsert().Model(p).
		On("CONFLICT (user_id) DO UPDATE").
		Set("skills = EXCLUDED.skills").
		Set("available = EXCLUDED.available").
		Exec(ctx)
	return err
}

// UpdateWorkerLocation mirrors the latest realtime payload into the profile
// row so a cold subscriber has a starting point.
func (s *Store) UpdateWorkerLocation(ctx context.Context, workerID string, lat, lng float64, at time.Time) error {
	res, err := s.db.NewUpdate().Model((*WorkerProfile)(nil)).
		Set("latitude = ?", lat).
		Set("longitude = ?", lng).
		Set("location_at = ?", at).
		Where("user_id = ?", workerID).
		Exec(ctx)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		p := &WorkerProfile{UserID: workerID, Available: true, Latitude: &lat, Longitude: &lng, LocationAt: &at}
		_, err = s.db.NewInsert().Model(p).Exec(ctx)
	}
	return err
}

// GetWorkerProfile returns the worker's profile including last known
// location, or ErrNotFound.
func (s *Store) GetWorkerProfile(ctx context.Context, workerID string) (*WorkerProfile, error) {
	p := &WorkerProfile{}
	err := s.db.NewSelect().Model(p).Where("user_id = ?", workerID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: worker %s", ErrNotFound, workerID)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}
