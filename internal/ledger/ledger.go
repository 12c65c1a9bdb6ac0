// Package ledger owns the remaining-seat counter of every experience.
//
// Reserve and Release are the only operations allowed to move
// Experience.RemainingCapacity. Both are delegated to a Store that must apply
// the read-check-write as one atomic step (a row lock or a conditional
// update), so concurrent reservations can never take the counter below zero.
package ledger

import (
	"context"
	"errors"

	"github.com/Shivanand-hulikatti/gourmetgo-booking/internal/apperr"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Store errors.
var (
	ErrExperienceNotFound   = errors.New("experience not found")
	ErrNotBookable          = errors.New("experience is not open for booking")
	ErrInsufficientCapacity = errors.New("not enough remaining capacity")
)

// ReleaseResult reports the counter after a release. Overflow is the number
// of seats that could not be restored because the counter hit capacity.
type ReleaseResult struct {
	Remaining int
	Overflow  int
}

// Store applies capacity mutations atomically.
//
// ReserveSeats returns ErrExperienceNotFound, ErrNotBookable (Upcoming) or
// ErrInsufficientCapacity (including SoldOut) without modifying anything
// when the reservation cannot be taken. On success it returns the new remaining count
// and marks the experience SoldOut when that count is zero.
//
// ReleaseSeats adds seats back, clamped at capacity, and moves a SoldOut
// experience back to Active once seats are available again.
type Store interface {
	ReserveSeats(ctx context.Context, experienceID string, seats int) (remaining int, err error)
	ReleaseSeats(ctx context.Context, experienceID string, seats int) (ReleaseResult, error)
}

// Ledger is the capacity authority used by the booking lifecycle.
type Ledger struct {
	store  Store
	logger *zap.Logger
	tracer trace.Tracer
}

// New constructs a Ledger.
func New(store Store, logger *zap.Logger) *Ledger {
	return &Ledger{
		store:  store,
		logger: logger.Named("ledger"),
		tracer: otel.Tracer("gourmetgo/ledger"),
	}
}

// Reserve takes seats from the experience's remaining capacity.
func (l *Ledger) Reserve(ctx context.Context, experienceID string, seats int) error {
	ctx, span := l.tracer.Start(ctx, "ledger.reserve")
	defer span.End()
	span.SetAttributes(
		attribute.String("experience.id", experienceID),
		attribute.Int("ledger.seats", seats),
	)

	if seats < 1 {
		return apperr.Newf(apperr.KindInvalidRequest, "seat count must be at least 1, got %d", seats)
	}

	remaining, err := l.store.ReserveSeats(ctx, experienceID, seats)
	if err != nil {
		span.RecordError(err)
		switch {
		case errors.Is(err, ErrExperienceNotFound):
			return apperr.Wrap(apperr.KindNotFound, "experience not found", err)
		case errors.Is(err, ErrNotBookable):
			return apperr.Wrap(apperr.KindExperienceUnavailable, "experience is not available for booking", err)
		case errors.Is(err, ErrInsufficientCapacity):
			return apperr.Wrap(apperr.KindInsufficientCapacity, "not enough seats available", err)
		}
		return apperr.Wrap(apperr.KindInternal, "reserve seats", err)
	}

	span.SetAttributes(attribute.Int("ledger.remaining", remaining))
	l.logger.Debug("seats reserved",
		zap.String("experience_id", experienceID),
		zap.Int("seats", seats),
		zap.Int("remaining", remaining),
	)
	return nil
}

// Release gives seats back to the experience. A release that would push the
// counter past capacity is clamped and logged as an anomaly, not failed.
func (l *Ledger) Release(ctx context.Context, experienceID string, seats int) error {
	ctx, span := l.tracer.Start(ctx, "ledger.release")
	defer span.End()
	span.SetAttributes(
		attribute.String("experience.id", experienceID),
		attribute.Int("ledger.seats", seats),
	)

	if seats < 1 {
		return apperr.Newf(apperr.KindInvalidRequest, "seat count must be at least 1, got %d", seats)
	}

	res, err := l.store.ReleaseSeats(ctx, experienceID, seats)
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, ErrExperienceNotFound) {
			return apperr.Wrap(apperr.KindNotFound, "experience not found", err)
		}
		return apperr.Wrap(apperr.KindInternal, "release seats", err)
	}

	if res.Overflow > 0 {
		l.logger.Warn("capacity release clamped at capacity",
			zap.String("experience_id", experienceID),
			zap.Int("seats", seats),
			zap.Int("overflow", res.Overflow),
			zap.Int("remaining", res.Remaining),
		)
	}
	return nil
}

// Restore computes a clamped release: remaining never exceeds capacity.
func Restore(capacity, remaining, seats int) ReleaseResult {
	next := remaining + seats
	if next > capacity {
		return ReleaseResult{Remaining: capacity, Overflow: next - capacity}
	}
	return ReleaseResult{Remaining: next}
}
