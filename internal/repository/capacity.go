package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Shivanand-hulikatti/gourmetgo-booking/internal/ledger"
	"github.com/Shivanand-hulikatti/gourmetgo-booking/internal/model"
	"github.com/jackc/pgx/v5"
)

// CapacityRepository is the PostgreSQL-backed ledger.Store.
//
// ─────────────────────────────────────────────────────────────────────────────
// WHY THE ROW LOCK
// ─────────────────────────────────────────────────────────────────────────────
//
// Naive read-then-write approach (BROKEN):
//
//	request A: SELECT remaining_capacity … → 1
//	request B: SELECT remaining_capacity … → 1
//	request A: 1 >= 1, OK → UPDATE remaining_capacity = 0
//	request B: 1 >= 1, OK → UPDATE remaining_capacity = 0
//	Result: two bookings for a one-seat experience.
//
// SELECT … FOR UPDATE takes an exclusive row lock inside the transaction.
// A second reserve on the same experience blocks on its own SELECT until
// the first commits, then reads the already-decremented counter.
//
// The status column is written in the same statement as the counter so the
// two can never disagree.
// ─────────────────────────────────────────────────────────────────────────────
type CapacityRepository struct {
	db DB
}

// NewCapacityRepository constructs a CapacityRepository.
func NewCapacityRepository(db DB) *CapacityRepository {
	return &CapacityRepository{db: db}
}

var _ ledger.Store = (*CapacityRepository)(nil)

type lockedCounter struct {
	capacity  int
	remaining int
	status    model.ExperienceStatus
}

func lockCounter(ctx context.Context, tx pgx.Tx, experienceID string) (*lockedCounter, error) {
	var c lockedCounter
	err := tx.QueryRow(ctx,
		`SELECT capacity, remaining_capacity, status
		 FROM experiences
		 WHERE id = $1
		 FOR UPDATE`,
		experienceID,
	).Scan(&c.capacity, &c.remaining, &c.status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ledger.ErrExperienceNotFound
		}
		return nil, fmt.Errorf("lock experience row: %w", err)
	}
	return &c, nil
}

// ReserveSeats implements ledger.Store.
func (r *CapacityRepository) ReserveSeats(ctx context.Context, experienceID string, seats int) (remaining int, err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	c, err := lockCounter(ctx, tx, experienceID)
	if err != nil {
		return 0, err
	}
	// SoldOut is Active with an empty counter, so it reads as a capacity
	// failure rather than an unavailable experience.
	if c.status != model.ExperienceActive && c.status != model.ExperienceSoldOut {
		return 0, ledger.ErrNotBookable
	}
	if seats > c.remaining {
		return 0, ledger.ErrInsufficientCapacity
	}

	remaining = c.remaining - seats
	status := model.ExperienceActive
	if remaining == 0 {
		status = model.ExperienceSoldOut
	}
	if _, err = tx.Exec(ctx,
		`UPDATE experiences SET remaining_capacity = $2, status = $3 WHERE id = $1`,
		experienceID, remaining, status,
	); err != nil {
		return 0, fmt.Errorf("decrement remaining_capacity: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}
	return remaining, nil
}

// ReleaseSeats implements ledger.Store.
func (r *CapacityRepository) ReleaseSeats(ctx context.Context, experienceID string, seats int) (res ledger.ReleaseResult, err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return res, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	c, err := lockCounter(ctx, tx, experienceID)
	if err != nil {
		return res, err
	}

	res = ledger.Restore(c.capacity, c.remaining, seats)
	status := c.status
	if status == model.ExperienceSoldOut && res.Remaining > 0 {
		status = model.ExperienceActive
	}
	if _, err = tx.Exec(ctx,
		`UPDATE experiences SET remaining_capacity = $2, status = $3 WHERE id = $1`,
		experienceID, res.Remaining, status,
	); err != nil {
		return res, fmt.Errorf("restore remaining_capacity: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return res, fmt.Errorf("commit transaction: %w", err)
	}
	return res, nil
}
