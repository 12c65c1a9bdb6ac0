package service

import (
	"context"
	"errors"

	"github.com/Shivanand-hulikatti/gourmetgo-booking/internal/apperr"
	"github.com/Shivanand-hulikatti/gourmetgo-booking/internal/document"
	"github.com/Shivanand-hulikatti/gourmetgo-booking/internal/model"
	"github.com/Shivanand-hulikatti/gourmetgo-booking/internal/repository"
	"github.com/Shivanand-hulikatti/gourmetgo-booking/internal/ticket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	codeAttempts    = 3
	releaseAttempts = 3
)

// BookingCreated is the outcome of a successful reservation.
type BookingCreated struct {
	Booking  *model.Booking `json:"booking"`
	Warnings []string       `json:"warnings,omitempty"`
}

// BookingCancelled is the outcome of a successful cancellation.
type BookingCancelled struct {
	Booking  *model.Booking `json:"booking"`
	Warnings []string       `json:"warnings,omitempty"`
}

// BookingOptions tunes access rules.
type BookingOptions struct {
	// ChefBookingsAnyChef lets any chef list bookings for any chef ID.
	ChefBookingsAnyChef bool
}

// BookingService orchestrates the booking lifecycle.
type BookingService struct {
	experiences ExperienceStore
	bookings    BookingStore
	users       UserStore
	ledger      CapacityLedger
	delivery    *Delivery
	renderer    Renderer
	opts        BookingOptions
	logger      *zap.Logger
	tracer      trace.Tracer

	newCode func() string
}

// NewBookingService constructs a BookingService with its dependencies.
func NewBookingService(
	experiences ExperienceStore,
	bookings BookingStore,
	users UserStore,
	ledger CapacityLedger,
	delivery *Delivery,
	renderer Renderer,
	opts BookingOptions,
	logger *zap.Logger,
) *BookingService {
	return &BookingService{
		experiences: experiences,
		bookings:    bookings,
		users:       users,
		ledger:      ledger,
		delivery:    delivery,
		renderer:    renderer,
		opts:        opts,
		logger:      logger.Named("bookings"),
		tracer:      otel.Tracer("gourmetgo/service"),
		newCode:     ticket.NewBookingCode,
	}
}

// CreateBooking validates the request, reserves seats, and persists a pending
// booking with one credential per seat. Seats are released again on every
// failure after the reservation. Ticket rendering and the confirmation email
// are best-effort and only ever produce warnings.
func (s *BookingService) CreateBooking(ctx context.Context, requester model.Requester, req model.CreateBookingRequest) (*BookingCreated, error) {
	ctx, span := s.tracer.Start(ctx, "booking.create")
	defer span.End()

	if err := requireAuthenticated(requester); err != nil {
		return nil, err
	}
	req.Normalize()
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if !req.PaymentMethod.Valid() {
		return nil, apperr.Newf(apperr.KindInvalidRequest,
			"payment_method must be one of: %s, %s", model.PaymentOnSite, model.PaymentBankTransfer)
	}
	span.SetAttributes(
		attribute.String("experience.id", req.ExperienceID),
		attribute.Int("booking.people", req.People),
	)

	exp, err := s.experiences.GetByID(ctx, req.ExperienceID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "experience not found")
		}
		return nil, apperr.Wrap(apperr.KindInternal, "load experience", err)
	}
	// SoldOut passes here so the ledger reports InsufficientCapacity.
	if exp.Status == model.ExperienceUpcoming {
		return nil, apperr.New(apperr.KindExperienceUnavailable, "experience is not open for booking yet")
	}

	if err := s.ledger.Reserve(ctx, exp.ID, req.People); err != nil {
		return nil, err
	}

	existing, err := s.bookings.FindByIdentity(ctx, requester.UserID, exp.ID, req.Name)
	switch {
	case err == nil && existing != nil:
		s.compensate(ctx, exp.ID, req.People)
		return nil, apperr.New(apperr.KindDuplicateBooking, "a booking for this attendee already exists")
	case err != nil && !errors.Is(err, repository.ErrNotFound):
		s.compensate(ctx, exp.ID, req.People)
		return nil, apperr.Wrap(apperr.KindInternal, "check existing booking", err)
	}

	b := &model.Booking{
		UserID:        requester.UserID,
		ExperienceID:  exp.ID,
		Name:          req.Name,
		Email:         req.Email,
		Phone:         req.Phone,
		People:        req.People,
		TermsAccepted: req.TermsAccepted,
		PaymentMethod: req.PaymentMethod,
		Status:        model.BookingPending,
	}
	if err := s.persist(ctx, b); err != nil {
		s.compensate(ctx, exp.ID, req.People)
		return nil, err
	}

	s.logger.Info("booking created",
		zap.String("booking_id", b.ID),
		zap.String("experience_id", exp.ID),
		zap.String("booking_code", b.Code),
		zap.Int("people", b.People),
	)

	warnings := s.delivery.BookingConfirmation(ctx, b, exp)
	return &BookingCreated{Booking: b, Warnings: warnings}, nil
}

// persist mints a code and credentials and inserts the booking, minting a new
// code when the previous one collides.
func (s *BookingService) persist(ctx context.Context, b *model.Booking) error {
	for attempt := 1; ; attempt++ {
		b.Code = s.newCode()
		creds, err := ticket.Credentials(b.Code, b.People)
		if err != nil {
			return apperr.Wrap(apperr.KindInternal, "generate credentials", err)
		}
		b.Credentials = creds

		err = s.bookings.Create(ctx, b)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, repository.ErrDuplicateBooking):
			return apperr.New(apperr.KindDuplicateBooking, "a booking for this attendee already exists")
		case errors.Is(err, repository.ErrDuplicateCode) && attempt < codeAttempts:
			s.logger.Warn("booking code collision, retrying", zap.String("booking_code", b.Code), zap.Int("attempt", attempt))
			continue
		case !errors.Is(err, repository.ErrDuplicateCode) && s.committed(ctx, b):
			// The insert reached the store even though Create reported an
			// error, typically a cancellation racing the commit.
			s.logger.Warn("booking saved despite create error", zap.String("booking_id", b.ID), zap.Error(err))
			return nil
		}
		return apperr.Wrap(apperr.KindInternal, "save booking", err)
	}
}

// committed reports whether b, with its current code, is in the store. On
// success b is replaced by the stored copy.
func (s *BookingService) committed(ctx context.Context, b *model.Booking) bool {
	found, err := s.bookings.FindByIdentity(context.WithoutCancel(ctx), b.UserID, b.ExperienceID, b.Name)
	if err != nil || found.Code != b.Code {
		return false
	}
	*b = *found
	return true
}

// compensate returns seats taken by a reservation that did not become a
// booking. It runs detached from request cancellation; a failure here leaves
// seats leaked and is logged at error level.
func (s *BookingService) compensate(ctx context.Context, experienceID string, seats int) {
	ctx = context.WithoutCancel(ctx)
	var err error
	for i := 0; i < releaseAttempts; i++ {
		if err = s.ledger.Release(ctx, experienceID, seats); err == nil {
			return
		}
	}
	s.logger.Error("compensating release failed",
		zap.String("experience_id", experienceID),
		zap.Int("seats", seats),
		zap.Error(err),
	)
}

// ListMyBookings returns the requester's bookings, newest first, each with its
// experience attached when it still exists.
func (s *BookingService) ListMyBookings(ctx context.Context, requester model.Requester) ([]model.BookingDetail, error) {
	if err := requireAuthenticated(requester); err != nil {
		return nil, err
	}
	bookings, err := s.bookings.ListByUser(ctx, requester.UserID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "list bookings", err)
	}
	out := make([]model.BookingDetail, 0, len(bookings))
	for _, b := range bookings {
		d := model.BookingDetail{Booking: b}
		if d.Experience, err = s.optionalExperience(ctx, b.ExperienceID); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// GetBookingDetail returns one booking with its experience and requester
// profile. Only the owner or an admin may read it.
func (s *BookingService) GetBookingDetail(ctx context.Context, requester model.Requester, id string) (*model.BookingDetail, error) {
	b, err := s.readable(ctx, requester, id)
	if err != nil {
		return nil, err
	}
	d := &model.BookingDetail{Booking: *b}
	if d.Experience, err = s.optionalExperience(ctx, b.ExperienceID); err != nil {
		return nil, err
	}
	u, err := s.users.GetByID(ctx, b.UserID)
	switch {
	case err == nil:
		d.User = u
	case !errors.Is(err, repository.ErrNotFound):
		return nil, apperr.Wrap(apperr.KindInternal, "load user", err)
	}
	return d, nil
}

// CancelBooking moves the requester's pending booking to cancelled and gives
// its seats back.
func (s *BookingService) CancelBooking(ctx context.Context, requester model.Requester, id string) (*BookingCancelled, error) {
	ctx, span := s.tracer.Start(ctx, "booking.cancel")
	defer span.End()
	span.SetAttributes(attribute.String("booking.id", id))

	if err := requireAuthenticated(requester); err != nil {
		return nil, err
	}
	b, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "booking not found")
		}
		return nil, apperr.Wrap(apperr.KindInternal, "load booking", err)
	}
	// Other users' bookings are indistinguishable from missing ones.
	if b.UserID != requester.UserID {
		return nil, apperr.New(apperr.KindNotFound, "booking not found")
	}
	if b.Status.Terminal() {
		return nil, apperr.Newf(apperr.KindInvalidState, "booking is %s and cannot be cancelled", b.Status)
	}

	b, err = s.bookings.TransitionStatus(ctx, id, model.BookingPending, model.BookingCancelled)
	if err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			return nil, apperr.New(apperr.KindInvalidState, "booking is no longer pending")
		}
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "booking not found")
		}
		return nil, apperr.Wrap(apperr.KindInternal, "cancel booking", err)
	}

	var warnings []string
	if err := s.ledger.Release(context.WithoutCancel(ctx), b.ExperienceID, b.People); err != nil {
		// The booking is already cancelled; an orphaned booking has no
		// experience left to give seats back to.
		s.logger.Error("seat release after cancellation failed",
			zap.String("booking_id", b.ID),
			zap.String("experience_id", b.ExperienceID),
			zap.Error(err),
		)
	}

	s.logger.Info("booking cancelled", zap.String("booking_id", b.ID), zap.Int("people", b.People))

	exp, err := s.optionalExperience(ctx, b.ExperienceID)
	if err != nil {
		s.logger.Warn("experience lookup for cancellation notice failed", zap.Error(err))
	}
	warnings = append(warnings, s.delivery.BookingCancellation(ctx, b, exp)...)
	return &BookingCancelled{Booking: b, Warnings: warnings}, nil
}

// ListBookingsForChef returns bookings across the chef's experiences.
func (s *BookingService) ListBookingsForChef(ctx context.Context, requester model.Requester, chefID string) ([]model.Booking, error) {
	if err := requireAuthenticated(requester); err != nil {
		return nil, err
	}
	allowed := requester.IsAdmin() ||
		requester.UserID == chefID ||
		(s.opts.ChefBookingsAnyChef && requester.Role == model.RoleChef)
	if !allowed {
		return nil, apperr.New(apperr.KindForbidden, "not allowed to view these bookings")
	}
	bookings, err := s.bookings.ListByChef(ctx, chefID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "list chef bookings", err)
	}
	return bookings, nil
}

// RegenerateTickets re-renders the ticket document for an existing booking.
// Credentials are deterministic in the booking code, so they are rebuilt
// rather than read back.
func (s *BookingService) RegenerateTickets(ctx context.Context, requester model.Requester, id string) (*document.Artifact, error) {
	b, err := s.readable(ctx, requester, id)
	if err != nil {
		return nil, err
	}
	exp, err := s.optionalExperience(ctx, b.ExperienceID)
	if err != nil {
		return nil, err
	}
	if exp == nil {
		return nil, apperr.New(apperr.KindNotFound, "experience no longer exists")
	}
	if b.Credentials, err = ticket.Credentials(b.Code, b.People); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "generate credentials", err)
	}
	artifact, err := s.renderer.Render(document.SummaryOf(b, exp))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "render tickets", err)
	}
	return artifact, nil
}

func (s *BookingService) readable(ctx context.Context, requester model.Requester, id string) (*model.Booking, error) {
	if err := requireAuthenticated(requester); err != nil {
		return nil, err
	}
	b, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "booking not found")
		}
		return nil, apperr.Wrap(apperr.KindInternal, "load booking", err)
	}
	if b.UserID != requester.UserID && !requester.IsAdmin() {
		return nil, apperr.New(apperr.KindForbidden, "not allowed to view this booking")
	}
	return b, nil
}

// optionalExperience returns nil without error when the experience is gone.
func (s *BookingService) optionalExperience(ctx context.Context, id string) (*model.Experience, error) {
	e, err := s.experiences.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, apperr.Wrap(apperr.KindInternal, "load experience", err)
	}
	return e, nil
}
