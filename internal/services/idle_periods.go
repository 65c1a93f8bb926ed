package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/railfleet-backend/internal/data/repos"
	types "github.com/yungbote/railfleet-backend/internal/domain"
	"github.com/yungbote/railfleet-backend/internal/pkg/dbctx"
	"github.com/yungbote/railfleet-backend/internal/pkg/logger"
)

// IdlePeriodService opens and closes the stretches a car spends off rent.
type IdlePeriodService interface {
	// Open starts an idle period unless one is already open for the car.
	Open(ctx context.Context, carID uuid.UUID, carNumber, reason string, at time.Time) (*types.IdlePeriod, error)
	// Close ends the open idle period for the car, if any.
	Close(ctx context.Context, carID uuid.UUID, at time.Time) (int64, error)
}

type idlePeriodService struct {
	db      *gorm.DB
	log     *logger.Logger
	periods repos.IdlePeriodRepo
}

func NewIdlePeriodService(db *gorm.DB, baseLog *logger.Logger, periods repos.IdlePeriodRepo) IdlePeriodService {
	return &idlePeriodService{
		db:      db,
		log:     baseLog.With("service", "IdlePeriodService"),
		periods: periods,
	}
}

func (s *idlePeriodService) Open(ctx context.Context, carID uuid.UUID, carNumber, reason string, at time.Time) (*types.IdlePeriod, error) {
	if s == nil || s.periods == nil {
		return nil, fmt.Errorf("idle period service not configured")
	}
	if carID == uuid.Nil {
		return nil, fmt.Errorf("missing car_id")
	}
	dbc := dbctx.Context{Ctx: ctx}
	open, err := s.periods.GetOpenByCar(dbc, carID)
	if err != nil {
		return nil, err
	}
	if open != nil {
		return open, nil
	}
	row := &types.IdlePeriod{
		ID:        uuid.New(),
		CarID:     carID,
		CarNumber: strings.TrimSpace(carNumber),
		Reason:    strings.TrimSpace(reason),
		StartedAt: at.UTC(),
		CreatedAt: at.UTC(),
		UpdatedAt: at.UTC(),
	}
	if _, err := s.periods.Create(dbc, []*types.IdlePeriod{row}); err != nil {
		return nil, err
	}
	return row, nil
}

func (s *idlePeriodService) Close(ctx context.Context, carID uuid.UUID, at time.Time) (int64, error) {
	if s == nil || s.periods == nil {
		return 0, fmt.Errorf("idle period service not configured")
	}
	return s.periods.CloseOpenByCar(dbctx.Context{Ctx: ctx}, carID, at.UTC())
}
