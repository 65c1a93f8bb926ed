package ledger

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/railfleet-backend/internal/domain"
	"github.com/yungbote/railfleet-backend/internal/pkg/dbctx"
	"github.com/yungbote/railfleet-backend/internal/pkg/logger"
)

// TransitionLogRepo is the append-only store behind the transition ledger.
// Rows are never deleted; only the reversal columns are ever updated.
type TransitionLogRepo interface {
	Create(dbc dbctx.Context, rows []*types.TransitionLogEntry) ([]*types.TransitionLogEntry, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.TransitionLogEntry, error)

	// Last returns the newest entry for the entity that has not been reversed.
	Last(dbc dbctx.Context, process types.ProcessType, entityID uuid.UUID) (*types.TransitionLogEntry, error)
	// ListByEntity returns every entry for the entity, oldest first.
	ListByEntity(dbc dbctx.Context, process types.ProcessType, entityID uuid.UUID) ([]*types.TransitionLogEntry, error)

	// MarkReverted sets the reversal columns when they are still empty and
	// reports whether a row changed.
	MarkReverted(dbc dbctx.Context, id uuid.UUID, reversedBy string, reversalID *uuid.UUID, at time.Time) (bool, error)
}

type transitionLogRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTransitionLogRepo(db *gorm.DB, baseLog *logger.Logger) TransitionLogRepo {
	return &transitionLogRepo{db: db, log: baseLog.With("repo", "TransitionLogRepo")}
}

func (r *transitionLogRepo) Create(dbc dbctx.Context, rows []*types.TransitionLogEntry) ([]*types.TransitionLogEntry, error) {
	if len(rows) == 0 {
		return []*types.TransitionLogEntry{}, nil
	}
	if err := dbc.Conn(r.db).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *transitionLogRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.TransitionLogEntry, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var out []*types.TransitionLogEntry
	if err := dbc.Conn(r.db).Where("id = ?", id).Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *transitionLogRepo) Last(dbc dbctx.Context, process types.ProcessType, entityID uuid.UUID) (*types.TransitionLogEntry, error) {
	if entityID == uuid.Nil {
		return nil, nil
	}
	var out []*types.TransitionLogEntry
	err := dbc.Conn(r.db).
		Where("process_type = ? AND entity_id = ? AND reversed_at IS NULL", process, entityID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(1).
		Find(&out).Error
	if err != nil || len(out) == 0 {
		return nil, err
	}
	return out[0], nil
}

func (r *transitionLogRepo) ListByEntity(dbc dbctx.Context, process types.ProcessType, entityID uuid.UUID) ([]*types.TransitionLogEntry, error) {
	var out []*types.TransitionLogEntry
	if entityID == uuid.Nil {
		return out, nil
	}
	err := dbc.Conn(r.db).
		Where("process_type = ? AND entity_id = ?", process, entityID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&out).Error
	return out, err
}

func (r *transitionLogRepo) MarkReverted(dbc dbctx.Context, id uuid.UUID, reversedBy string, reversalID *uuid.UUID, at time.Time) (bool, error) {
	if id == uuid.Nil {
		return false, nil
	}
	updates := map[string]interface{}{
		"reversed_at": at,
		"reversed_by": reversedBy,
	}
	if reversalID != nil && *reversalID != uuid.Nil {
		updates["reversal_transition_id"] = *reversalID
	}
	res := dbc.Conn(r.db).
		Model(&types.TransitionLogEntry{}).
		Where("id = ? AND reversed_at IS NULL", id).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
