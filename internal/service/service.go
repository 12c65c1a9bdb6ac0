// Package service implements business logic, validation, and orchestration
// between HTTP handlers and the repository layer.
package service

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/Shivanand-hulikatti/gourmetgo-booking/internal/apperr"
	"github.com/Shivanand-hulikatti/gourmetgo-booking/internal/model"
	"github.com/go-playground/validator/v10"
)

// ExperienceStore persists experiences. Implemented by
// repository.ExperienceRepository and memory.Experiences.
type ExperienceStore interface {
	Create(ctx context.Context, e *model.Experience) error
	GetByID(ctx context.Context, id string) (*model.Experience, error)
	List(ctx context.Context) ([]model.Experience, error)
	ListByChef(ctx context.Context, chefID string) ([]model.Experience, error)
	Activate(ctx context.Context, id string) (*model.Experience, error)
	Delete(ctx context.Context, id string) error
}

// BookingStore persists bookings. Implemented by
// repository.BookingRepository and memory.Bookings.
type BookingStore interface {
	Create(ctx context.Context, b *model.Booking) error
	GetByID(ctx context.Context, id string) (*model.Booking, error)
	FindByIdentity(ctx context.Context, userID, experienceID, name string) (*model.Booking, error)
	ListByUser(ctx context.Context, userID string) ([]model.Booking, error)
	ListByChef(ctx context.Context, chefID string) ([]model.Booking, error)
	TransitionStatus(ctx context.Context, id string, from, to model.BookingStatus) (*model.Booking, error)
}

// UserStore reads account projections.
type UserStore interface {
	GetByID(ctx context.Context, id string) (*model.User, error)
}

// CapacityLedger is the only path allowed to move remaining capacity.
// Implemented by *ledger.Ledger.
type CapacityLedger interface {
	Reserve(ctx context.Context, experienceID string, seats int) error
	Release(ctx context.Context, experienceID string, seats int) error
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// validateRequest runs the struct tags and turns failures into a single
// InvalidRequest with a readable message.
func validateRequest(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperr.Wrap(apperr.KindInvalidRequest, "invalid request", err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, describe(fe))
	}
	return apperr.New(apperr.KindInvalidRequest, strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		if fe.Kind() == reflect.Bool {
			return fmt.Sprintf("%s must be accepted", fe.Field())
		}
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return fmt.Sprintf("%s is not a valid email address", fe.Field())
	case "min":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	}
	return fmt.Sprintf("%s is invalid", fe.Field())
}

func requireAuthenticated(r model.Requester) error {
	if r.UserID == "" {
		return apperr.New(apperr.KindUnauthorized, "authentication required")
	}
	return nil
}
