package memory

import (
	"context"

	"github.com/Shivanand-hulikatti/gourmetgo-booking/internal/model"
)

// Experiences exposes the experience half of a Store with the method set of
// repository.ExperienceRepository.
type Experiences struct{ s *Store }

// Bookings exposes the booking half of a Store with the method set of
// repository.BookingRepository.
type Bookings struct{ s *Store }

// Users exposes the user half of a Store with the method set of
// repository.UserRepository.
type Users struct{ s *Store }

// Experiences returns the experience view of s.
func (s *Store) Experiences() Experiences { return Experiences{s} }

// Bookings returns the booking view of s.
func (s *Store) Bookings() Bookings { return Bookings{s} }

// Users returns the user view of s.
func (s *Store) Users() Users { return Users{s} }

// Create stores e, assigning ID and creation time when they are empty.
func (v Experiences) Create(ctx context.Context, e *model.Experience) error {
	return v.s.CreateExperience(ctx, e)
}

// GetByID returns a copy of the experience or repository.ErrNotFound.
func (v Experiences) GetByID(ctx context.Context, id string) (*model.Experience, error) {
	return v.s.GetExperience(ctx, id)
}

// List returns all experiences ordered by date.
func (v Experiences) List(ctx context.Context) ([]model.Experience, error) {
	return v.s.ListExperiences(ctx)
}

// ListByChef returns the experiences owned by chefID.
func (v Experiences) ListByChef(ctx context.Context, chefID string) ([]model.Experience, error) {
	return v.s.ListExperiencesByChef(ctx, chefID)
}

// Activate moves an Upcoming experience to Active.
func (v Experiences) Activate(ctx context.Context, id string) (*model.Experience, error) {
	return v.s.ActivateExperience(ctx, id)
}

// Delete removes an experience unless it is sold out.
func (v Experiences) Delete(ctx context.Context, id string) error {
	return v.s.DeleteExperience(ctx, id)
}

// Create stores b, enforcing the code and identity uniqueness keys.
func (v Bookings) Create(ctx context.Context, b *model.Booking) error {
	return v.s.CreateBooking(ctx, b)
}

// GetByID returns a copy of the booking or repository.ErrNotFound.
func (v Bookings) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	return v.s.GetBooking(ctx, id)
}

// FindByIdentity looks a booking up by user, experience and attendee name.
func (v Bookings) FindByIdentity(ctx context.Context, userID, experienceID, name string) (*model.Booking, error) {
	return v.s.FindBookingByIdentity(ctx, userID, experienceID, name)
}

// ListByUser returns the bookings made by userID.
func (v Bookings) ListByUser(ctx context.Context, userID string) ([]model.Booking, error) {
	return v.s.ListBookingsByUser(ctx, userID)
}

// ListByChef returns the bookings across chefID's experiences.
func (v Bookings) ListByChef(ctx context.Context, chefID string) ([]model.Booking, error) {
	return v.s.ListBookingsByChef(ctx, chefID)
}

// TransitionStatus moves a booking from one status to another.
func (v Bookings) TransitionStatus(ctx context.Context, id string, from, to model.BookingStatus) (*model.Booking, error) {
	return v.s.TransitionBookingStatus(ctx, id, from, to)
}

// GetByID returns a copy of the user or repository.ErrNotFound.
func (v Users) GetByID(ctx context.Context, id string) (*model.User, error) {
	return v.s.GetUser(ctx, id)
}
