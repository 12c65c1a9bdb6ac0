// Package memory is an in-process implementation of the repository
// contracts. A single mutex guards all state, which gives every operation
// the same atomicity the PostgreSQL row locks provide.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Shivanand-hulikatti/gourmetgo-booking/internal/ledger"
	"github.com/Shivanand-hulikatti/gourmetgo-booking/internal/model"
	"github.com/Shivanand-hulikatti/gourmetgo-booking/internal/repository"
	"github.com/google/uuid"
)

type identity struct {
	userID, experienceID, name string
}

// Store holds users, experiences and bookings in memory.
type Store struct {
	mu          sync.Mutex
	users       map[string]model.User
	experiences map[string]model.Experience
	bookings    map[string]model.Booking
	codes       map[string]string
	identities  map[identity]string
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		users:       make(map[string]model.User),
		experiences: make(map[string]model.Experience),
		bookings:    make(map[string]model.Booking),
		codes:       make(map[string]string),
		identities:  make(map[identity]string),
	}
}

var _ ledger.Store = (*Store)(nil)

// PutUser inserts or replaces a user. Accounts are owned elsewhere; this
// exists for seeding.
func (s *Store) PutUser(u model.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

// GetUser returns a single user or repository.ErrNotFound.
func (s *Store) GetUser(_ context.Context, id string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

// CreateExperience inserts an experience, assigning ID and creation time
// when they are empty.
func (s *Store) CreateExperience(_ context.Context, e *model.Experience) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	s.experiences[e.ID] = *e
	return nil
}

// GetExperience returns a single experience or repository.ErrNotFound.
func (s *Store) GetExperience(_ context.Context, id string) (*model.Experience, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.experiences[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &e, nil
}

// ListExperiences returns all experiences ordered by date.
func (s *Store) ListExperiences(_ context.Context) ([]model.Experience, error) {
	return s.filterExperiences(func(model.Experience) bool { return true }), nil
}

// ListExperiencesByChef returns the experiences owned by a chef.
func (s *Store) ListExperiencesByChef(_ context.Context, chefID string) ([]model.Experience, error) {
	return s.filterExperiences(func(e model.Experience) bool { return e.ChefID == chefID }), nil
}

func (s *Store) filterExperiences(keep func(model.Experience) bool) []model.Experience {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Experience
	for _, e := range s.experiences {
		if keep(e) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// ActivateExperience moves an Upcoming experience to Active.
func (s *Store) ActivateExperience(_ context.Context, id string) (*model.Experience, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.experiences[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if e.Status != model.ExperienceUpcoming {
		return nil, repository.ErrStatusConflict
	}
	e.Status = model.ExperienceActive
	s.experiences[id] = e
	return &e, nil
}

// DeleteExperience removes an experience unless it is sold out.
func (s *Store) DeleteExperience(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.experiences[id]
	if !ok {
		return repository.ErrNotFound
	}
	if e.IsSoldOut() {
		return repository.ErrStatusConflict
	}
	delete(s.experiences, id)
	return nil
}

// ReserveSeats implements ledger.Store.
func (s *Store) ReserveSeats(_ context.Context, experienceID string, seats int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.experiences[experienceID]
	if !ok {
		return 0, ledger.ErrExperienceNotFound
	}
	if e.Status != model.ExperienceActive && e.Status != model.ExperienceSoldOut {
		return 0, ledger.ErrNotBookable
	}
	if seats > e.RemainingCapacity {
		return 0, ledger.ErrInsufficientCapacity
	}
	e.RemainingCapacity -= seats
	if e.RemainingCapacity == 0 {
		e.Status = model.ExperienceSoldOut
	}
	s.experiences[experienceID] = e
	return e.RemainingCapacity, nil
}

// ReleaseSeats implements ledger.Store.
func (s *Store) ReleaseSeats(_ context.Context, experienceID string, seats int) (ledger.ReleaseResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.experiences[experienceID]
	if !ok {
		return ledger.ReleaseResult{}, ledger.ErrExperienceNotFound
	}
	res := ledger.Restore(e.Capacity, e.RemainingCapacity, seats)
	e.RemainingCapacity = res.Remaining
	if e.Status == model.ExperienceSoldOut && e.RemainingCapacity > 0 {
		e.Status = model.ExperienceActive
	}
	s.experiences[experienceID] = e
	return res, nil
}

// CreateBooking inserts a booking, enforcing the same uniqueness rules as
// the bookings table.
func (s *Store) CreateBooking(_ context.Context, b *model.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.codes[b.Code]; taken {
		return repository.ErrDuplicateCode
	}
	key := identity{b.UserID, b.ExperienceID, b.Name}
	if _, taken := s.identities[key]; taken {
		return repository.ErrDuplicateBooking
	}
	b.ID = uuid.New().String()
	b.CreatedAt = time.Now().UTC()
	s.bookings[b.ID] = cloneBooking(*b)
	s.codes[b.Code] = b.ID
	s.identities[key] = b.ID
	return nil
}

// GetBooking returns a single booking or repository.ErrNotFound.
func (s *Store) GetBooking(_ context.Context, id string) (*model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	b = cloneBooking(b)
	return &b, nil
}

// FindBookingByIdentity returns the booking held under (user, experience, name).
func (s *Store) FindBookingByIdentity(_ context.Context, userID, experienceID, name string) (*model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.identities[identity{userID, experienceID, name}]
	if !ok {
		return nil, repository.ErrNotFound
	}
	b := cloneBooking(s.bookings[id])
	return &b, nil
}

// ListBookingsByUser returns a user's bookings, newest first.
func (s *Store) ListBookingsByUser(_ context.Context, userID string) ([]model.Booking, error) {
	return s.filterBookings(func(b model.Booking) bool { return b.UserID == userID }), nil
}

// ListBookingsByChef returns bookings for every experience owned by chefID.
func (s *Store) ListBookingsByChef(_ context.Context, chefID string) ([]model.Booking, error) {
	s.mu.Lock()
	owned := make(map[string]bool)
	for id, e := range s.experiences {
		if e.ChefID == chefID {
			owned[id] = true
		}
	}
	s.mu.Unlock()
	return s.filterBookings(func(b model.Booking) bool { return owned[b.ExperienceID] }), nil
}

func (s *Store) filterBookings(keep func(model.Booking) bool) []model.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Booking
	for _, b := range s.bookings {
		if keep(b) {
			out = append(out, cloneBooking(b))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// TransitionBookingStatus moves a booking from one status to another.
func (s *Store) TransitionBookingStatus(_ context.Context, id string, from, to model.BookingStatus) (*model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if b.Status != from {
		return nil, repository.ErrStatusConflict
	}
	b.Status = to
	s.bookings[id] = b
	b = cloneBooking(b)
	return &b, nil
}

func cloneBooking(b model.Booking) model.Booking {
	b.Credentials = append([]model.Credential(nil), b.Credentials...)
	return b
}
