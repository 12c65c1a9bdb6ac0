// Package repository implements all database queries for the booking engine.
// It uses pgx directly (no ORM) for transparency and performance.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Shivanand-hulikatti/gourmetgo-booking/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the part of *pgxpool.Pool the repositories use.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicateBooking is returned when (user, experience, attendee name) is already booked.
var ErrDuplicateBooking = errors.New("booking already exists for this attendee")

// ErrDuplicateCode is returned when a freshly minted booking code collides.
var ErrDuplicateCode = errors.New("booking code already in use")

// ErrStatusConflict is returned when a conditional status update finds the
// row in a different state than expected.
var ErrStatusConflict = errors.New("status changed concurrently")

const uniqueViolation = "23505"

const experienceColumns = `id, chef_id, title, description, location, capacity,
	remaining_capacity, status, date, created_at`

func scanExperience(row pgx.Row) (*model.Experience, error) {
	var e model.Experience
	err := row.Scan(&e.ID, &e.ChefID, &e.Title, &e.Description, &e.Location, &e.Capacity,
		&e.RemainingCapacity, &e.Status, &e.Date, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// ExperienceRepository handles persistence for experiences.
type ExperienceRepository struct {
	db DB
}

// NewExperienceRepository constructs an ExperienceRepository.
func NewExperienceRepository(db DB) *ExperienceRepository {
	return &ExperienceRepository{db: db}
}

// Create inserts a new experience, assigning its ID and creation time.
func (r *ExperienceRepository) Create(ctx context.Context, e *model.Experience) error {
	e.ID = uuid.New().String()
	e.CreatedAt = time.Now().UTC()

	_, err := r.db.Exec(ctx,
		`INSERT INTO experiences (`+experienceColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		e.ID, e.ChefID, e.Title, e.Description, e.Location, e.Capacity,
		e.RemainingCapacity, e.Status, e.Date, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert experience: %w", err)
	}
	return nil
}

// List returns all experiences ordered by date ascending.
func (r *ExperienceRepository) List(ctx context.Context) ([]model.Experience, error) {
	return r.query(ctx, `SELECT `+experienceColumns+` FROM experiences ORDER BY date ASC`)
}

// ListByChef returns the experiences owned by a chef.
func (r *ExperienceRepository) ListByChef(ctx context.Context, chefID string) ([]model.Experience, error) {
	return r.query(ctx,
		`SELECT `+experienceColumns+` FROM experiences WHERE chef_id = $1 ORDER BY date ASC`,
		chefID,
	)
}

func (r *ExperienceRepository) query(ctx context.Context, sql string, args ...any) ([]model.Experience, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list experiences: %w", err)
	}
	defer rows.Close()

	var experiences []model.Experience
	for rows.Next() {
		e, err := scanExperience(rows)
		if err != nil {
			return nil, fmt.Errorf("scan experience: %w", err)
		}
		experiences = append(experiences, *e)
	}
	return experiences, rows.Err()
}

// GetByID returns a single experience or ErrNotFound.
func (r *ExperienceRepository) GetByID(ctx context.Context, id string) (*model.Experience, error) {
	e, err := scanExperience(r.db.QueryRow(ctx,
		`SELECT `+experienceColumns+` FROM experiences WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get experience: %w", err)
	}
	return e, nil
}

// Activate moves an Upcoming experience to Active. It returns
// ErrStatusConflict when the experience exists but is not Upcoming.
func (r *ExperienceRepository) Activate(ctx context.Context, id string) (*model.Experience, error) {
	e, err := scanExperience(r.db.QueryRow(ctx,
		`UPDATE experiences SET status = 'Active'
		 WHERE id = $1 AND status = 'Upcoming'
		 RETURNING `+experienceColumns, id))
	if err == nil {
		return e, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("activate experience: %w", err)
	}
	if _, getErr := r.GetByID(ctx, id); getErr != nil {
		return nil, getErr
	}
	return nil, ErrStatusConflict
}

// Delete removes an experience unless it is sold out. The status guard is
// part of the statement so a concurrent sell-out cannot slip between the
// caller's check and the delete.
func (r *ExperienceRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM experiences
		 WHERE id = $1 AND status <> 'SoldOut'
		   AND NOT (status = 'Active' AND remaining_capacity = 0)`,
		id,
	)
	if err != nil {
		return fmt.Errorf("delete experience: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, getErr := r.GetByID(ctx, id); getErr != nil {
			return getErr
		}
		return ErrStatusConflict
	}
	return nil
}

// UserRepository reads account projections. Accounts themselves are managed
// by the account service; this side only ever reads.
type UserRepository struct {
	db DB
}

// NewUserRepository constructs a UserRepository.
func NewUserRepository(db DB) *UserRepository {
	return &UserRepository{db: db}
}

// GetByID returns a single user or ErrNotFound.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	err := r.db.QueryRow(ctx,
		`SELECT id, name, email, avatar, role FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Name, &u.Email, &u.Avatar, &u.Role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == constraint
}
