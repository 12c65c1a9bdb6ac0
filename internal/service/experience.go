package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"github.com/Shivanand-hulikatti/gourmetgo-booking/internal/apperr"
	"github.com/Shivanand-hulikatti/gourmetgo-booking/internal/challenge"
	"github.com/Shivanand-hulikatti/gourmetgo-booking/internal/model"
	"github.com/Shivanand-hulikatti/gourmetgo-booking/internal/repository"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ExperienceService orchestrates experience publishing and the
// challenge-gated deletion flow.
type ExperienceService struct {
	experiences  ExperienceStore
	users        UserStore
	challenges   challenge.Store
	delivery     *Delivery
	challengeTTL time.Duration
	logger       *zap.Logger
	tracer       trace.Tracer

	newCode func() (string, error)
}

// NewExperienceService constructs an ExperienceService with its dependencies.
func NewExperienceService(
	experiences ExperienceStore,
	users UserStore,
	challenges challenge.Store,
	delivery *Delivery,
	challengeTTL time.Duration,
	logger *zap.Logger,
) *ExperienceService {
	return &ExperienceService{
		experiences:  experiences,
		users:        users,
		challenges:   challenges,
		delivery:     delivery,
		challengeTTL: challengeTTL,
		logger:       logger.Named("experiences"),
		tracer:       otel.Tracer("gourmetgo/service"),
		newCode:      challenge.NewCode,
	}
}

// CreateExperience publishes a new experience owned by the requesting chef.
// Status defaults to Active.
func (s *ExperienceService) CreateExperience(ctx context.Context, requester model.Requester, req model.CreateExperienceRequest) (*model.Experience, error) {
	if err := requireAuthenticated(requester); err != nil {
		return nil, err
	}
	if requester.Role != model.RoleChef && !requester.IsAdmin() {
		return nil, apperr.New(apperr.KindForbidden, "only chefs can publish experiences")
	}
	req.Title = strings.TrimSpace(req.Title)
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	status := req.Status
	if status == "" {
		status = model.ExperienceActive
	}

	e := &model.Experience{
		ChefID:            requester.UserID,
		Title:             req.Title,
		Description:       strings.TrimSpace(req.Description),
		Location:          strings.TrimSpace(req.Location),
		Capacity:          req.Capacity,
		RemainingCapacity: req.Capacity,
		Status:            status,
		Date:              req.Date.UTC(),
	}
	if err := s.experiences.Create(ctx, e); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "create experience", err)
	}
	s.logger.Info("experience created",
		zap.String("experience_id", e.ID),
		zap.String("chef_id", e.ChefID),
		zap.Int("capacity", e.Capacity),
	)
	return e, nil
}

// ListExperiences returns all experiences.
func (s *ExperienceService) ListExperiences(ctx context.Context) ([]model.Experience, error) {
	list, err := s.experiences.List(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "list experiences", err)
	}
	return list, nil
}

// ListChefExperiences returns the experiences a chef has published.
func (s *ExperienceService) ListChefExperiences(ctx context.Context, chefID string) ([]model.Experience, error) {
	list, err := s.experiences.ListByChef(ctx, chefID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "list chef experiences", err)
	}
	return list, nil
}

// GetExperience returns a single experience by ID.
func (s *ExperienceService) GetExperience(ctx context.Context, id string) (*model.Experience, error) {
	if id == "" {
		return nil, apperr.New(apperr.KindInvalidRequest, "experience id is required")
	}
	return s.load(ctx, id)
}

// ActivateExperience opens an Upcoming experience for booking. Only its chef
// or an admin may do so.
func (s *ExperienceService) ActivateExperience(ctx context.Context, requester model.Requester, id string) (*model.Experience, error) {
	if err := requireAuthenticated(requester); err != nil {
		return nil, err
	}
	e, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.ChefID != requester.UserID && !requester.IsAdmin() {
		return nil, apperr.New(apperr.KindForbidden, "only the owning chef can activate this experience")
	}
	e, err = s.experiences.Activate(ctx, id)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrStatusConflict):
			return nil, apperr.New(apperr.KindInvalidState, "only upcoming experiences can be activated")
		case errors.Is(err, repository.ErrNotFound):
			return nil, apperr.New(apperr.KindNotFound, "experience not found")
		}
		return nil, apperr.Wrap(apperr.KindInternal, "activate experience", err)
	}
	s.logger.Info("experience activated", zap.String("experience_id", id))
	return e, nil
}

// RequestDeletionCode issues a challenge code for (experience, email) and
// sends it to that email. The email is only checked against the owner when
// the code is redeemed, so a code may be delivered to an address that can
// never use it.
func (s *ExperienceService) RequestDeletionCode(ctx context.Context, experienceID, email string) ([]string, error) {
	ctx, span := s.tracer.Start(ctx, "experience.request_delete")
	defer span.End()
	span.SetAttributes(attribute.String("experience.id", experienceID))

	email = strings.TrimSpace(email)
	if email == "" {
		return nil, apperr.New(apperr.KindInvalidRequest, "email is required")
	}
	e, err := s.load(ctx, experienceID)
	if err != nil {
		return nil, err
	}
	if e.IsSoldOut() {
		return nil, apperr.New(apperr.KindNotDeletable, "sold-out experiences cannot be deleted")
	}

	owner, err := s.users.GetByID(ctx, e.ChefID)
	switch {
	case err == nil && !strings.EqualFold(owner.Email, email):
		s.logger.Warn("deletion code requested for non-owner email", zap.String("experience_id", e.ID))
	case err != nil && !errors.Is(err, repository.ErrNotFound):
		return nil, apperr.Wrap(apperr.KindInternal, "load owner", err)
	}

	code, err := s.newCode()
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "generate deletion code", err)
	}
	if err := s.challenges.Put(ctx, challenge.NewKey(e.ID, email), code); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "store deletion code", err)
	}
	s.logger.Info("deletion code issued", zap.String("experience_id", e.ID))

	return s.delivery.DeletionCode(ctx, email, e, code, s.challengeTTL), nil
}

// ConfirmDeletion deletes the experience once the email matches its owner
// and the code matches the live challenge. The challenge is consumed on
// success.
func (s *ExperienceService) ConfirmDeletion(ctx context.Context, experienceID, email, code string) error {
	ctx, span := s.tracer.Start(ctx, "experience.confirm_delete")
	defer span.End()
	span.SetAttributes(attribute.String("experience.id", experienceID))

	email = strings.TrimSpace(email)
	code = strings.ToUpper(strings.TrimSpace(code))
	if email == "" || code == "" {
		return apperr.New(apperr.KindInvalidRequest, "email and code are required")
	}

	e, err := s.load(ctx, experienceID)
	if err != nil {
		return err
	}
	owner, err := s.users.GetByID(ctx, e.ChefID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.New(apperr.KindNotFound, "experience owner not found")
		}
		return apperr.Wrap(apperr.KindInternal, "load owner", err)
	}
	if e.IsSoldOut() {
		return apperr.New(apperr.KindNotDeletable, "sold-out experiences cannot be deleted")
	}
	if !strings.EqualFold(owner.Email, email) {
		return apperr.New(apperr.KindUnauthorized, "email does not belong to the experience owner")
	}

	key := challenge.NewKey(e.ID, email)
	stored, err := s.challenges.Get(ctx, key)
	if err != nil {
		if errors.Is(err, challenge.ErrNotFound) {
			return apperr.New(apperr.KindInvalidCode, "deletion code is invalid or expired")
		}
		return apperr.Wrap(apperr.KindInternal, "load deletion code", err)
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(code)) != 1 {
		return apperr.New(apperr.KindInvalidCode, "deletion code is invalid or expired")
	}

	if err := s.experiences.Delete(ctx, e.ID); err != nil {
		switch {
		case errors.Is(err, repository.ErrStatusConflict):
			return apperr.New(apperr.KindNotDeletable, "sold-out experiences cannot be deleted")
		case errors.Is(err, repository.ErrNotFound):
			return apperr.New(apperr.KindNotFound, "experience not found")
		}
		return apperr.Wrap(apperr.KindInternal, "delete experience", err)
	}
	if err := s.challenges.Delete(ctx, key); err != nil {
		s.logger.Warn("deletion code not cleared", zap.String("experience_id", e.ID), zap.Error(err))
	}
	s.logger.Info("experience deleted", zap.String("experience_id", e.ID), zap.String("chef_id", e.ChefID))
	return nil
}

func (s *ExperienceService) load(ctx context.Context, id string) (*model.Experience, error) {
	e, err := s.experiences.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "experience not found")
		}
		return nil, apperr.Wrap(apperr.KindInternal, "load experience", err)
	}
	return e, nil
}
