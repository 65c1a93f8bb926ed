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

const (
	AlertSeverityInfo    = "info"
	AlertSeverityWarning = "warning"
)

type AlertInput struct {
	AlertType  string
	Severity   string
	Title      string
	Message    string
	EntityType string
	EntityID   *uuid.UUID
}

type AlertService interface {
	CreateAlert(ctx context.Context, in AlertInput) (*types.Alert, error)
	ListForEntity(ctx context.Context, entityType string, entityID uuid.UUID) ([]*types.Alert, error)
}

type alertService struct {
	db     *gorm.DB
	log    *logger.Logger
	alerts repos.AlertRepo
}

func NewAlertService(db *gorm.DB, baseLog *logger.Logger, alerts repos.AlertRepo) AlertService {
	return &alertService{
		db:     db,
		log:    baseLog.With("service", "AlertService"),
		alerts: alerts,
	}
}

func (s *alertService) CreateAlert(ctx context.Context, in AlertInput) (*types.Alert, error) {
	if s == nil || s.alerts == nil {
		return nil, fmt.Errorf("alert service not configured")
	}
	alertType := strings.TrimSpace(in.AlertType)
	title := strings.TrimSpace(in.Title)
	if alertType == "" || title == "" {
		return nil, fmt.Errorf("alert needs type and title")
	}
	severity := strings.TrimSpace(in.Severity)
	if severity == "" {
		severity = AlertSeverityInfo
	}
	row := &types.Alert{
		ID:         uuid.New(),
		AlertType:  alertType,
		Severity:   severity,
		Title:      title,
		Message:    strings.TrimSpace(in.Message),
		EntityType: strings.TrimSpace(in.EntityType),
		EntityID:   in.EntityID,
		CreatedAt:  time.Now().UTC(),
	}
	if _, err := s.alerts.Create(dbctx.Context{Ctx: ctx}, []*types.Alert{row}); err != nil {
		return nil, err
	}
	s.log.Debug("alert created", "alert_type", alertType, "entity_id", in.EntityID)
	return row, nil
}

func (s *alertService) ListForEntity(ctx context.Context, entityType string, entityID uuid.UUID) ([]*types.Alert, error) {
	if s == nil || s.alerts == nil {
		return nil, fmt.Errorf("alert service not configured")
	}
	return s.alerts.ListByEntity(dbctx.Context{Ctx: ctx}, entityType, entityID)
}
