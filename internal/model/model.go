// Package model defines the core domain types for the experience booking system.
package model

import (
	"strings"
	"time"
)

// ExperienceStatus is the lifecycle state of an experience.
type ExperienceStatus string

const (
	ExperienceUpcoming ExperienceStatus = "Upcoming"
	ExperienceActive   ExperienceStatus = "Active"
	ExperienceSoldOut  ExperienceStatus = "SoldOut"
)

// Valid reports whether s is a recognised experience status.
func (s ExperienceStatus) Valid() bool {
	switch s {
	case ExperienceUpcoming, ExperienceActive, ExperienceSoldOut:
		return true
	}
	return false
}

// Experience is a scheduled, capacity-limited culinary event offered by a chef.
type Experience struct {
	ID                string           `json:"id"`
	ChefID            string           `json:"chef_id"`
	Title             string           `json:"title"`
	Description       string           `json:"description"`
	Location          string           `json:"location"`
	Capacity          int              `json:"capacity"`
	RemainingCapacity int              `json:"remaining_capacity"`
	Status            ExperienceStatus `json:"status"`
	Date              time.Time        `json:"date"`
	CreatedAt         time.Time        `json:"created_at"`
}

// IsSoldOut returns true when the experience is sold out. Status and counter
// are kept in step by the capacity ledger, so either signal is sufficient.
func (e *Experience) IsSoldOut() bool {
	return e.Status == ExperienceSoldOut || (e.Status == ExperienceActive && e.RemainingCapacity == 0)
}

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
	BookingExpired   BookingStatus = "expired"
)

// Terminal reports whether no further transition is allowed out of s.
func (s BookingStatus) Terminal() bool {
	return s == BookingConfirmed || s == BookingCancelled || s == BookingExpired
}

// PaymentMethod is the declared (not captured) payment method of a booking.
type PaymentMethod string

const (
	PaymentOnSite       PaymentMethod = "OnSite"
	PaymentBankTransfer PaymentMethod = "BankTransfer"
)

// Valid reports whether m is one of the two recognised payment methods.
func (m PaymentMethod) Valid() bool {
	return m == PaymentOnSite || m == PaymentBankTransfer
}

// Label is the human-readable form used in tickets and emails.
func (m PaymentMethod) Label() string {
	switch m {
	case PaymentOnSite:
		return "Pay on site"
	case PaymentBankTransfer:
		return "Bank transfer"
	}
	return string(m)
}

// Credential is the scannable token for one seat of a booking.
type Credential struct {
	Seat    int    `json:"seat"`
	Payload string `json:"payload"`
	// Image is a data URL of the PNG QR code for Payload.
	Image string `json:"image"`
}

// Booking represents a reservation of one or more seats in an experience.
type Booking struct {
	ID            string        `json:"id"`
	UserID        string        `json:"user_id"`
	ExperienceID  string        `json:"experience_id"`
	Name          string        `json:"name"`
	Email         string        `json:"email"`
	Phone         string        `json:"phone"`
	People        int           `json:"people"`
	TermsAccepted bool          `json:"terms_accepted"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	Status        BookingStatus `json:"status"`
	Code          string        `json:"booking_code"`
	Credentials   []Credential  `json:"credentials"`
	CreatedAt     time.Time     `json:"created_at"`
}

// Role is the account role carried by the authenticated requester.
type Role string

const (
	RoleUser  Role = "user"
	RoleChef  Role = "chef"
	RoleAdmin Role = "admin"
)

// User is the read-only account projection the booking engine needs.
type User struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Avatar string `json:"avatar,omitempty"`
	Role   Role   `json:"role"`
}

// Requester identifies the authenticated caller of an operation.
type Requester struct {
	UserID string
	Role   Role
}

// IsAdmin reports whether the requester holds the administrative role.
func (r Requester) IsAdmin() bool { return r.Role == RoleAdmin }

// BookingDetail is a booking joined with its experience and requester profile.
type BookingDetail struct {
	Booking
	Experience *Experience `json:"experience"`
	User       *User       `json:"user,omitempty"`
}

// CreateExperienceRequest is the payload for publishing a new experience.
type CreateExperienceRequest struct {
	Title       string           `json:"title" validate:"required,max=200"`
	Description string           `json:"description" validate:"max=5000"`
	Location    string           `json:"location" validate:"max=300"`
	Capacity    int              `json:"capacity" validate:"required,min=1,max=100000"`
	Date        time.Time        `json:"date" validate:"required"`
	Status      ExperienceStatus `json:"status" validate:"omitempty,oneof=Upcoming Active"`
}

// CreateBookingRequest is the payload for reserving seats.
type CreateBookingRequest struct {
	ExperienceID  string        `json:"experience_id" validate:"required"`
	People        int           `json:"people" validate:"required,min=1,max=50"`
	Name          string        `json:"name" validate:"required"`
	Email         string        `json:"email" validate:"required,email"`
	Phone         string        `json:"phone" validate:"required"`
	TermsAccepted bool          `json:"terms_accepted" validate:"required"`
	PaymentMethod PaymentMethod `json:"payment_method" validate:"required"`
}

// Normalize trims whitespace from the free-text fields. The attendee name is
// part of the duplicate-booking key, so it must be normalised before lookup.
func (r *CreateBookingRequest) Normalize() {
	r.ExperienceID = strings.TrimSpace(r.ExperienceID)
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(strings.ToLower(r.Email))
	r.Phone = strings.TrimSpace(r.Phone)
}

// DeletionCodeRequest is the payload for requesting an experience deletion code.
type DeletionCodeRequest struct {
	Email string `json:"email"`
}

// ConfirmDeletionRequest is the payload for deleting an experience.
type ConfirmDeletionRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
