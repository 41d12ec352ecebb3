// Package marketplace holds the booking and catalog collaborators around the
// auth core: offerings, bookings and worker profiles. Dashboards receive a
// verified identity and a role from the auth flow and operate on these.
package marketplace

import (
	"time"

	"github.com/uptrace/bun"
)

// BookingStatus is the booking lifecycle state.
type BookingStatus string

const (
	StatusPending    BookingStatus = "pending"
	StatusConfirmed  BookingStatus = "confirmed"
	StatusAssigned   BookingStatus = "assigned"
	StatusInProgress BookingStatus = "in_progress"
	StatusCompleted  BookingStatus = "completed"
	StatusCancelled  BookingStatus = "cancelled"
)

// Offering is one entry in the service catalog.
type Offering struct {
	bun.BaseModel `bun:"table:marketplace.offerings,alias:o"`

	ID          string    `bun:"id,pk,type:uuid,default:gen_random_uuid()" json:"id"`
	Name        string    `bun:"name,notnull" json:"name"`
	Category    string    `bun:"category,notnull" json:"category"`
	Description string    `bun:"description" json:"description"`
	BasePrice   int64     `bun:"base_price,notnull" json:"basePrice"` // smallest currency unit
	Active      bool      `bun:"active,notnull,default:true" json:"active"`
	CreatedAt   time.Time `bun:"created_at,notnull,default:now()" json:"createdAt"`
}

// Booking ties a customer to an offering, optionally to a worker once
// assigned.
type Booking struct {
	bun.BaseModel `bun:"table:marketplace.bookings,alias:b"`

	ID          string        `bun:"id,pk,type:uuid,default:gen_random_uuid()" json:"id"`
	CustomerID  string        `bun:"customer_id,notnull,type:uuid" json:"customerId"`
	OfferingID  string        `bun:"offering_id,notnull,type:uuid" json:"offeringId"`
	WorkerID    *string       `bun:"worker_id,type:uuid" json:"workerId,omitempty"`
	Status      BookingStatus `bun:"status,notnull,default:'pending'" json:"status"`
	Address     string        `bun:"address" json:"address"`
	ScheduledAt time.Time     `bun:"scheduled_at,notnull" json:"scheduledAt"`
	CreatedAt   time.Time     `bun:"created_at,notnull,default:now()" json:"createdAt"`
	UpdatedAt   time.Time     `bun:"updated_at,notnull,default:now()" json:"updatedAt"`
}

// WorkerProfile is per-worker marketplace state, including the last reported
// location mirrored from the realtime feed.
type WorkerProfile struct {
	bun.BaseModel `bun:"table:marketplace.worker_profiles,alias:w"`

	UserID     string     `bun:"user_id,pk,type:uuid" json:"userId"`
	Skills     []string   `bun:"skills,array" json:"skills"`
	Available  bool       `bun:"available,notnull,default:true" json:"available"`
	Latitude   *float64   `bun:"latitude" json:"latitude,omitempty"`
	Longitude  *float64   `bun:"longitude" json:"longitude,omitempty"`
	LocationAt *time.Time `bun:"location_at" json:"locationAt,omitempty"`
}
