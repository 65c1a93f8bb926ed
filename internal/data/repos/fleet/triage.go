package fleet

import (
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/railfleet-backend/internal/domain"
	"github.com/yungbote/railfleet-backend/internal/domain/fleet"
	"github.com/yungbote/railfleet-backend/internal/pkg/dbctx"
	"github.com/yungbote/railfleet-backend/internal/pkg/logger"
)

// TriageFilter narrows List. An empty State matches both open and resolved entries.
type TriageFilter struct {
	State     string
	Reason    string
	CarNumber string
	Limit     int
}

type TriageRepo interface {
	Create(dbc dbctx.Context, rows []*types.TriageEntry) ([]*types.TriageEntry, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.TriageEntry, error)
	LockByID(dbc dbctx.Context, id uuid.UUID) (*types.TriageEntry, error)
	GetOpenByCar(dbc dbctx.Context, carID uuid.UUID) (*types.TriageEntry, error)
	List(dbc dbctx.Context, filter TriageFilter) ([]*types.TriageEntry, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
}

type triageRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTriageRepo(db *gorm.DB, baseLog *logger.Logger) TriageRepo {
	return &triageRepo{db: db, log: baseLog.With("repo", "TriageRepo")}
}

func (r *triageRepo) Create(dbc dbctx.Context, rows []*types.TriageEntry) ([]*types.TriageEntry, error) {
	return createRows(dbc, r.db, rows)
}

func (r *triageRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.TriageEntry, error) {
	return getByID[types.TriageEntry](dbc, r.db, id)
}

func (r *triageRepo) LockByID(dbc dbctx.Context, id uuid.UUID) (*types.TriageEntry, error) {
	return lockByID[types.TriageEntry](dbc, r.db, id)
}

func (r *triageRepo) GetOpenByCar(dbc dbctx.Context, carID uuid.UUID) (*types.TriageEntry, error) {
	if carID == uuid.Nil {
		return nil, nil
	}
	var out []*types.TriageEntry
	err := dbc.Conn(r.db).
		Where("car_id = ? AND resolved_at IS NULL", carID).
		Limit(1).
		Find(&out).Error
	if err != nil || len(out) == 0 {
		return nil, err
	}
	return out[0], nil
}

// List returns open entries first, then by ascending priority and age.
func (r *triageRepo) List(dbc dbctx.Context, filter TriageFilter) ([]*types.TriageEntry, error) {
	q := dbc.Conn(r.db).Model(&types.TriageEntry{})
	switch strings.TrimSpace(filter.State) {
	case fleet.TriageStateOpen:
		q = q.Where("resolved_at IS NULL")
	case fleet.TriageStateResolved:
		q = q.Where("resolved_at IS NOT NULL")
	}
	if s := strings.TrimSpace(filter.Reason); s != "" {
		q = q.Where("reason = ?", s)
	}
	if s := strings.TrimSpace(filter.CarNumber); s != "" {
		q = q.Where("car_number = ?", s)
	}
	var out []*types.TriageEntry
	err := q.
		Order("CASE WHEN resolved_at IS NULL THEN 0 ELSE 1 END").
		Order("priority ASC").
		Order("created_at ASC").
		Limit(clampLimit(filter.Limit)).
		Find(&out).Error
	return out, err
}

func (r *triageRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	return updateFields[types.TriageEntry](dbc, r.db, id, updates)
}

type AlertRepo interface {
	Create(dbc dbctx.Context, rows []*types.Alert) ([]*types.Alert, error)
	ListByEntity(dbc dbctx.Context, entityType string, entityID uuid.UUID) ([]*types.Alert, error)
}

type alertRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAlertRepo(db *gorm.DB, baseLog *logger.Logger) AlertRepo {
	return &alertRepo{db: db, log: baseLog.With("repo", "AlertRepo")}
}

func (r *alertRepo) Create(dbc dbctx.Context, rows []*types.Alert) ([]*types.Alert, error) {
	return createRows(dbc, r.db, rows)
}

func (r *alertRepo) ListByEntity(dbc dbctx.Context, entityType string, entityID uuid.UUID) ([]*types.Alert, error) {
	var out []*types.Alert
	err := dbc.Conn(r.db).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("created_at ASC").
		Find(&out).Error
	return out, err
}
