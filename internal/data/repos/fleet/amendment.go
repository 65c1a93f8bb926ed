package fleet

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/railfleet-backend/internal/domain"
	"github.com/yungbote/railfleet-backend/internal/domain/fleet"
	"github.com/yungbote/railfleet-backend/internal/pkg/dbctx"
	"github.com/yungbote/railfleet-backend/internal/pkg/logger"
)

type AmendmentRepo interface {
	Create(dbc dbctx.Context, rows []*types.LeaseAmendment) ([]*types.LeaseAmendment, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.LeaseAmendment, error)
	LockByID(dbc dbctx.Context, id uuid.UUID) (*types.LeaseAmendment, error)
	// LockActiveByRider locks the rider's Active amendment, skipping excludeID.
	LockActiveByRider(dbc dbctx.Context, riderID uuid.UUID, excludeID uuid.UUID) (*types.LeaseAmendment, error)
	ListByRider(dbc dbctx.Context, riderID uuid.UUID) ([]*types.LeaseAmendment, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
}

type amendmentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAmendmentRepo(db *gorm.DB, baseLog *logger.Logger) AmendmentRepo {
	return &amendmentRepo{db: db, log: baseLog.With("repo", "AmendmentRepo")}
}

func (r *amendmentRepo) Create(dbc dbctx.Context, rows []*types.LeaseAmendment) ([]*types.LeaseAmendment, error) {
	return createRows(dbc, r.db, rows)
}

func (r *amendmentRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.LeaseAmendment, error) {
	return getByID[types.LeaseAmendment](dbc, r.db, id)
}

func (r *amendmentRepo) LockByID(dbc dbctx.Context, id uuid.UUID) (*types.LeaseAmendment, error) {
	return lockByID[types.LeaseAmendment](dbc, r.db, id)
}

func (r *amendmentRepo) LockActiveByRider(dbc dbctx.Context, riderID uuid.UUID, excludeID uuid.UUID) (*types.LeaseAmendment, error) {
	if riderID == uuid.Nil {
		return nil, nil
	}
	var out []*types.LeaseAmendment
	err := dbc.Conn(r.db).
		Clauses(lockingClause()).
		Where("rider_id = ? AND status = ? AND id <> ?", riderID, fleet.AmendmentStatusActive, excludeID).
		Limit(1).
		Find(&out).Error
	if err != nil || len(out) == 0 {
		return nil, err
	}
	return out[0], nil
}

func (r *amendmentRepo) ListByRider(dbc dbctx.Context, riderID uuid.UUID) ([]*types.LeaseAmendment, error) {
	var out []*types.LeaseAmendment
	err := dbc.Conn(r.db).
		Where("rider_id = ?", riderID).
		Order("created_at ASC").
		Find(&out).Error
	return out, err
}

func (r *amendmentRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	return updateFields[types.LeaseAmendment](dbc, r.db, id, updates)
}
