package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/gourmetgo-booking/internal/ledger"
	"github.com/Shivanand-hulikatti/gourmetgo-booking/internal/model"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		mock.Close()
	})
	return mock
}

func sql(fragment string) string { return regexp.QuoteMeta(fragment) }

var (
	lockSQL    = sql(`SELECT capacity, remaining_capacity, status`)
	counterSQL = sql(`UPDATE experiences SET remaining_capacity = $2, status = $3 WHERE id = $1`)
)

func counterRow(capacity, remaining int, status model.ExperienceStatus) *pgxmock.Rows {
	return pgxmock.NewRows([]string{"capacity", "remaining_capacity", "status"}).
		AddRow(capacity, remaining, status)
}

var experienceCols = []string{"id", "chef_id", "title", "description", "location", "capacity",
	"remaining_capacity", "status", "date", "created_at"}

func experienceRow(id string, status model.ExperienceStatus) *pgxmock.Rows {
	at := time.Date(2026, 12, 1, 19, 0, 0, 0, time.UTC)
	return pgxmock.NewRows(experienceCols).
		AddRow(id, "chef-1", "Tasting menu", "", "", 4, 4, status, at, at)
}

var bookingCols = []string{"id", "user_id", "experience_id", "name", "email", "phone", "people",
	"terms_accepted", "payment_method", "status", "booking_code", "credentials", "created_at"}

func bookingRow(id string, status model.BookingStatus) *pgxmock.Rows {
	return pgxmock.NewRows(bookingCols).
		AddRow(id, "user-a", "exp-1", "Ana", "ana@example.com", "1", 1,
			true, model.PaymentOnSite, status, "ABCD1234", []model.Credential{}, time.Now().UTC())
}

func TestReserveSeatsWritesCounterAndStatusTogether(t *testing.T) {
	mock := newMock(t)
	repo := NewCapacityRepository(mock)

	mock.ExpectBegin()
	mock.ExpectQuery(lockSQL + ".*FOR UPDATE").WithArgs("exp-1").
		WillReturnRows(counterRow(4, 2, model.ExperienceActive))
	mock.ExpectExec(counterSQL).WithArgs("exp-1", 0, model.ExperienceSoldOut).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	remaining, err := repo.ReserveSeats(context.Background(), "exp-1", 2)
	require.NoError(t, err)
	assert.Equal(t, 0, remaining)
}

func TestReserveSeatsRejectionsRollBack(t *testing.T) {
	tests := []struct {
		name    string
		rows    *pgxmock.Rows
		seats   int
		wantErr error
	}{
		{"missing", pgxmock.NewRows([]string{"capacity", "remaining_capacity", "status"}), 1, ledger.ErrExperienceNotFound},
		{"upcoming", counterRow(4, 4, model.ExperienceUpcoming), 1, ledger.ErrNotBookable},
		{"over capacity", counterRow(4, 1, model.ExperienceActive), 2, ledger.ErrInsufficientCapacity},
		{"sold out", counterRow(4, 0, model.ExperienceSoldOut), 1, ledger.ErrInsufficientCapacity},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			mock := newMock(t)
			repo := NewCapacityRepository(mock)

			mock.ExpectBegin()
			mock.ExpectQuery(lockSQL).WithArgs("exp-1").WillReturnRows(tc.rows)
			mock.ExpectRollback()

			_, err := repo.ReserveSeats(context.Background(), "exp-1", tc.seats)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestReleaseSeatsReopensAndClamps(t *testing.T) {
	mock := newMock(t)
	repo := NewCapacityRepository(mock)

	mock.ExpectBegin()
	mock.ExpectQuery(lockSQL).WithArgs("exp-1").
		WillReturnRows(counterRow(4, 0, model.ExperienceSoldOut))
	mock.ExpectExec(counterSQL).WithArgs("exp-1", 4, model.ExperienceActive).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	res, err := repo.ReleaseSeats(context.Background(), "exp-1", 6)
	require.NoError(t, err)
	assert.Equal(t, ledger.ReleaseResult{Remaining: 4, Overflow: 2}, res)
}

func TestReleaseSeatsFailedUpdateRollsBack(t *testing.T) {
	mock := newMock(t)
	repo := NewCapacityRepository(mock)

	mock.ExpectBegin()
	mock.ExpectQuery(lockSQL).WithArgs("exp-1").
		WillReturnRows(counterRow(4, 1, model.ExperienceActive))
	mock.ExpectExec(counterSQL).WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	_, err := repo.ReleaseSeats(context.Background(), "exp-1", 1)
	assert.ErrorContains(t, err, "connection reset")
}

func TestCreateBookingClassifiesUniqueViolations(t *testing.T) {
	tests := []struct {
		constraint string
		wantErr    error
	}{
		{constraintBookingCode, ErrDuplicateCode},
		{constraintBookingIdentity, ErrDuplicateBooking},
	}
	for _, tc := range tests {
		t.Run(tc.constraint, func(t *testing.T) {
			mock := newMock(t)
			repo := NewBookingRepository(mock)

			mock.ExpectExec(sql(`INSERT INTO bookings`)).
				WillReturnError(&pgconn.PgError{Code: uniqueViolation, ConstraintName: tc.constraint})

			err := repo.Create(context.Background(), &model.Booking{Code: "ABCD1234", People: 1})
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestCreateBookingOtherErrorsAreNotDuplicates(t *testing.T) {
	mock := newMock(t)
	repo := NewBookingRepository(mock)

	mock.ExpectExec(sql(`INSERT INTO bookings`)).
		WillReturnError(&pgconn.PgError{Code: "23514", ConstraintName: "bookings_people_check"})

	err := repo.Create(context.Background(), &model.Booking{Code: "ABCD1234"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrDuplicateCode)
	assert.NotErrorIs(t, err, ErrDuplicateBooking)
}

func TestTransitionStatusFallbacks(t *testing.T) {
	updateSQL := sql(`UPDATE bookings SET status = $3`)
	selectSQL := sql(`FROM bookings WHERE id = $1`)

	t.Run("applied", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(updateSQL).WithArgs("b-1", model.BookingPending, model.BookingCancelled).
			WillReturnRows(bookingRow("b-1", model.BookingCancelled))

		b, err := NewBookingRepository(mock).TransitionStatus(context.Background(), "b-1", model.BookingPending, model.BookingCancelled)
		require.NoError(t, err)
		assert.Equal(t, model.BookingCancelled, b.Status)
	})

	t.Run("wrong status", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(updateSQL).WillReturnRows(pgxmock.NewRows(bookingCols))
		mock.ExpectQuery(selectSQL).WithArgs("b-1").WillReturnRows(bookingRow("b-1", model.BookingCancelled))

		_, err := NewBookingRepository(mock).TransitionStatus(context.Background(), "b-1", model.BookingPending, model.BookingCancelled)
		assert.ErrorIs(t, err, ErrStatusConflict)
	})

	t.Run("missing", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(updateSQL).WillReturnRows(pgxmock.NewRows(bookingCols))
		mock.ExpectQuery(selectSQL).WithArgs("b-1").WillReturnRows(pgxmock.NewRows(bookingCols))

		_, err := NewBookingRepository(mock).TransitionStatus(context.Background(), "b-1", model.BookingPending, model.BookingCancelled)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestActivateFallbacks(t *testing.T) {
	updateSQL := sql(`UPDATE experiences SET status = 'Active'`)
	selectSQL := sql(`FROM experiences WHERE id = $1`)

	t.Run("not upcoming", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(updateSQL).WithArgs("exp-1").WillReturnRows(pgxmock.NewRows(experienceCols))
		mock.ExpectQuery(selectSQL).WithArgs("exp-1").WillReturnRows(experienceRow("exp-1", model.ExperienceActive))

		_, err := NewExperienceRepository(mock).Activate(context.Background(), "exp-1")
		assert.ErrorIs(t, err, ErrStatusConflict)
	})

	t.Run("missing", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(updateSQL).WithArgs("exp-1").WillReturnRows(pgxmock.NewRows(experienceCols))
		mock.ExpectQuery(selectSQL).WithArgs("exp-1").WillReturnRows(pgxmock.NewRows(experienceCols))

		_, err := NewExperienceRepository(mock).Activate(context.Background(), "exp-1")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestDeleteFallbacks(t *testing.T) {
	deleteSQL := sql(`DELETE FROM experiences`)
	selectSQL := sql(`FROM experiences WHERE id = $1`)

	t.Run("deleted", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectExec(deleteSQL).WithArgs("exp-1").WillReturnResult(pgxmock.NewResult("DELETE", 1))
		assert.NoError(t, NewExperienceRepository(mock).Delete(context.Background(), "exp-1"))
	})

	t.Run("sold out", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectExec(deleteSQL).WithArgs("exp-1").WillReturnResult(pgxmock.NewResult("DELETE", 0))
		mock.ExpectQuery(selectSQL).WithArgs("exp-1").WillReturnRows(experienceRow("exp-1", model.ExperienceSoldOut))
		assert.ErrorIs(t, NewExperienceRepository(mock).Delete(context.Background(), "exp-1"), ErrStatusConflict)
	})

	t.Run("missing", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectExec(deleteSQL).WithArgs("exp-1").WillReturnResult(pgxmock.NewResult("DELETE", 0))
		mock.ExpectQuery(selectSQL).WithArgs("exp-1").WillReturnRows(pgxmock.NewRows(experienceCols))
		assert.ErrorIs(t, NewExperienceRepository(mock).Delete(context.Background(), "exp-1"), ErrNotFound)
	})
}

func TestUserGetByIDMissing(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(sql(`FROM users WHERE id = $1`)).WithArgs("ghost").
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "email", "avatar", "role"}))

	_, err := NewUserRepository(mock).GetByID(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}
