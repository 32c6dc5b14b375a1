package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/invigilo/proctor-api/internal/dto"
	"github.com/invigilo/proctor-api/internal/models"
	appErrors "github.com/invigilo/proctor-api/pkg/errors"
)

type staffReactivator interface {
	FindByID(ctx context.Context, id string) (*models.Staff, error)
	Reactivate(ctx context.Context, id string) error
}

type staffWorkloadReader interface {
	ParticipationCount(ctx context.Context, staffID string, asOf time.Time) (int, error)
}

// StaffService exposes the small staff operations the engine needs alongside the
// directory it reads from.
type StaffService struct {
	staff   staffReactivator
	history staffWorkloadReader
	logger  *zap.Logger
}

func NewStaffService(staff staffReactivator, history staffWorkloadReader, logger *zap.Logger) *StaffService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StaffService{staff: staff, history: history, logger: logger}
}

// Get loads a single staff member together with their rolling-window workload.
func (s *StaffService) Get(ctx context.Context, id string) (*dto.StaffDetail, error) {
	staff, err := s.staff.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "staff member not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to load staff member")
	}
	count, err := s.history.ParticipationCount(ctx, id, time.Now().UTC())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to load participation count")
	}
	return &dto.StaffDetail{Staff: *staff, ParticipationInWindow: count}, nil
}

// Reactivate lifts a suspension and zeroes the consecutive absence counter. Only
// suspended staff can be reactivated; anything else is a precondition failure.
func (s *StaffService) Reactivate(ctx context.Context, id string) (*models.Staff, error) {
	if err := s.staff.Reactivate(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			current, lookupErr := s.staff.FindByID(ctx, id)
			if lookupErr != nil {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "staff member not found")
			}
			return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "staff member is "+string(current.Status)+", not SUSPENDED")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to reactivate staff member")
	}

	s.logger.Info("staff member reactivated", zap.String("staff_id", id))

	staff, err := s.staff.FindByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to reload staff member")
	}
	return staff, nil
}
