package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/invigilo/proctor-api/internal/dto"
	"github.com/invigilo/proctor-api/internal/models"
	appErrors "github.com/invigilo/proctor-api/pkg/errors"
)

type staffDirectory interface {
	FindByID(ctx context.Context, id string) (*models.Staff, error)
	UpdateAbsenceState(ctx context.Context, exec sqlx.ExtContext, id string, count int, lastAbsence time.Time, status models.StaffStatus) error
}

type rosterReader interface {
	FindByRoom(ctx context.Context, date time.Time, session models.Session, roomID string) (*models.DailyAssignment, error)
}

type absenceRecorder interface {
	Insert(ctx context.Context, exec sqlx.ExtContext, record *models.AbsenceReplacementRecord) error
}

type absenceObserver interface {
	ObserveAbsence(suspended bool)
}

type snapshotInvalidator interface {
	InvalidateSnapshot(ctx context.Context, date, session string)
}

// AbsenceService records absence events and applies the auto-suspension policy. It
// marks the absence and moves the counter; pulling the absentee off the roster is the
// replacement flow's job.
type AbsenceService struct {
	staff     staffDirectory
	rosters   rosterReader
	records   absenceRecorder
	tx        txProvider
	snapshots snapshotInvalidator
	metrics   absenceObserver
	validator *validator.Validate
	logger    *zap.Logger
	threshold int
}

// NewAbsenceService wires dependencies. threshold <= 0 falls back to 2 consecutive
// absences.
func NewAbsenceService(
	staff staffDirectory,
	rosters rosterReader,
	records absenceRecorder,
	tx txProvider,
	snapshots snapshotInvalidator,
	metrics absenceObserver,
	validate *validator.Validate,
	logger *zap.Logger,
	threshold int,
) *AbsenceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if threshold <= 0 {
		threshold = 2
	}
	return &AbsenceService{
		staff:     staff,
		rosters:   rosters,
		records:   records,
		tx:        tx,
		snapshots: snapshots,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		threshold: threshold,
	}
}

// Record appends the audit row, bumps the consecutive-absence counter and suspends the
// staff member once the threshold is reached, all inside one transaction.
func (s *AbsenceService) Record(ctx context.Context, req dto.RecordAbsenceRequest) (*dto.RecordAbsenceResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid absence payload")
	}
	date, err := time.ParseInLocation(dateLayout, req.Date, time.UTC)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date must be formatted as YYYY-MM-DD")
	}
	session := models.Session(req.Session)

	staff, err := s.staff.FindByID(ctx, req.StaffID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "staff member not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to load staff member")
	}

	assignment, err := s.rosters.FindByRoom(ctx, date, session, req.RoomID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no roster exists for this room, date and session")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to load roster")
	}
	if !rosterHolds(assignment, req.StaffID) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "staff member is not on this roster")
	}

	newCount := staff.ConsecutiveAbsenceDays + 1
	status := staff.Status
	suspended := false
	if newCount >= s.threshold {
		status = models.StaffSuspended
		suspended = true
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	record := &models.AbsenceReplacementRecord{
		Date:            date,
		Session:         session,
		RoomID:          req.RoomID,
		OriginalStaffID: req.StaffID,
		Action:          models.ActionAbsence,
		Reason:          req.Reason,
	}
	if err = s.records.Insert(ctx, tx, record); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to append absence record")
		return nil, err
	}
	if err = s.staff.UpdateAbsenceState(ctx, tx, req.StaffID, newCount, date, status); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to update absence counter")
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to commit absence")
		return nil, err
	}

	if s.snapshots != nil {
		s.snapshots.InvalidateSnapshot(ctx, req.Date, req.Session)
	}
	if s.metrics != nil {
		s.metrics.ObserveAbsence(suspended)
	}
	s.logger.Info("absence recorded",
		zap.String("staff_id", req.StaffID),
		zap.String("room_id", req.RoomID),
		zap.Int("consecutive_absences", newCount),
		zap.Bool("suspended", suspended),
	)

	return &dto.RecordAbsenceResponse{
		StaffID:             req.StaffID,
		ConsecutiveAbsences: newCount,
		WasSuspended:        suspended,
	}, nil
}

// rosterHolds reports whether the staff member occupies any seat of the roster.
func rosterHolds(assignment *models.DailyAssignment, staffID string) bool {
	if assignment.SupervisorID != nil && *assignment.SupervisorID == staffID {
		return true
	}
	for _, id := range assignment.ObserverIDs {
		if id == staffID {
			return true
		}
	}
	return false
}
