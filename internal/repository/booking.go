package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Shivanand-hulikatti/gourmetgo-booking/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Constraint names from schema.sql, used to classify unique violations.
const (
	constraintBookingCode     = "bookings_booking_code_key"
	constraintBookingIdentity = "bookings_identity_key"
)

const bookingColumns = `id, user_id, experience_id, name, email, phone, people,
	terms_accepted, payment_method, status, booking_code, credentials, created_at`

func scanBooking(row pgx.Row) (*model.Booking, error) {
	var b model.Booking
	err := row.Scan(&b.ID, &b.UserID, &b.ExperienceID, &b.Name, &b.Email, &b.Phone, &b.People,
		&b.TermsAccepted, &b.PaymentMethod, &b.Status, &b.Code, &b.Credentials, &b.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// BookingRepository handles persistence for bookings.
type BookingRepository struct {
	db DB
}

// NewBookingRepository constructs a BookingRepository.
func NewBookingRepository(db DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// Create inserts a booking, assigning its ID and creation time. Unique
// violations are reported as ErrDuplicateCode (booking_code) or
// ErrDuplicateBooking (user, experience, name).
func (r *BookingRepository) Create(ctx context.Context, b *model.Booking) error {
	b.ID = uuid.New().String()
	b.CreatedAt = time.Now().UTC()

	_, err := r.db.Exec(ctx,
		`INSERT INTO bookings (`+bookingColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		b.ID, b.UserID, b.ExperienceID, b.Name, b.Email, b.Phone, b.People,
		b.TermsAccepted, b.PaymentMethod, b.Status, b.Code, b.Credentials, b.CreatedAt,
	)
	if err != nil {
		switch {
		case isUniqueViolation(err, constraintBookingCode):
			return ErrDuplicateCode
		case isUniqueViolation(err, constraintBookingIdentity):
			return ErrDuplicateBooking
		}
		return fmt.Errorf("insert booking: %w", err)
	}
	return nil
}

// GetByID returns a single booking or ErrNotFound.
func (r *BookingRepository) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	b, err := scanBooking(r.db.QueryRow(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get booking: %w", err)
	}
	return b, nil
}

// FindByIdentity returns the booking a user already holds for an experience
// under the given attendee name, or ErrNotFound.
func (r *BookingRepository) FindByIdentity(ctx context.Context, userID, experienceID, name string) (*model.Booking, error) {
	b, err := scanBooking(r.db.QueryRow(ctx,
		`SELECT `+bookingColumns+` FROM bookings
		 WHERE user_id = $1 AND experience_id = $2 AND name = $3`,
		userID, experienceID, name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find booking: %w", err)
	}
	return b, nil
}

// ListByUser returns all bookings made by a user, newest first.
func (r *BookingRepository) ListByUser(ctx context.Context, userID string) ([]model.Booking, error) {
	return r.query(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE user_id = $1 ORDER BY created_at DESC`,
		userID,
	)
}

// ListByChef returns all bookings across every experience owned by a chef.
func (r *BookingRepository) ListByChef(ctx context.Context, chefID string) ([]model.Booking, error) {
	return r.query(ctx,
		`SELECT b.id, b.user_id, b.experience_id, b.name, b.email, b.phone, b.people,
		        b.terms_accepted, b.payment_method, b.status, b.booking_code, b.credentials, b.created_at
		 FROM bookings b
		 JOIN experiences e ON e.id = b.experience_id
		 WHERE e.chef_id = $1
		 ORDER BY b.created_at DESC`,
		chefID,
	)
}

func (r *BookingRepository) query(ctx context.Context, sql string, args ...any) ([]model.Booking, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	var bookings []model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

// TransitionStatus moves a booking from one status to another in a single
// conditional update. It returns ErrNotFound when no booking has that id and
// ErrStatusConflict when the booking is not currently in status from, so two
// racing cancellations cannot both succeed.
func (r *BookingRepository) TransitionStatus(ctx context.Context, id string, from, to model.BookingStatus) (*model.Booking, error) {
	b, err := scanBooking(r.db.QueryRow(ctx,
		`UPDATE bookings SET status = $3
		 WHERE id = $1 AND status = $2
		 RETURNING `+bookingColumns,
		id, from, to))
	if err == nil {
		return b, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("update booking status: %w", err)
	}
	if _, getErr := r.GetByID(ctx, id); getErr != nil {
		return nil, getErr
	}
	return nil, ErrStatusConflict
}
