package fleet

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/railfleet-backend/internal/domain"
	"github.com/yungbote/railfleet-backend/internal/pkg/dbctx"
	"github.com/yungbote/railfleet-backend/internal/pkg/logger"
)

type LeaseRepo interface {
	Create(dbc dbctx.Context, rows []*types.Lease) ([]*types.Lease, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Lease, error)
	LockByID(dbc dbctx.Context, id uuid.UUID) (*types.Lease, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
}

type leaseRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLeaseRepo(db *gorm.DB, baseLog *logger.Logger) LeaseRepo {
	return &leaseRepo{db: db, log: baseLog.With("repo", "LeaseRepo")}
}

func (r *leaseRepo) Create(dbc dbctx.Context, rows []*types.Lease) ([]*types.Lease, error) {
	return createRows(dbc, r.db, rows)
}

func (r *leaseRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Lease, error) {
	return getByID[types.Lease](dbc, r.db, id)
}

func (r *leaseRepo) LockByID(dbc dbctx.Context, id uuid.UUID) (*types.Lease, error) {
	return lockByID[types.Lease](dbc, r.db, id)
}

func (r *leaseRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	return updateFields[types.Lease](dbc, r.db, id, updates)
}

type LeaseRiderRepo interface {
	Create(dbc dbctx.Context, rows []*types.LeaseRider) ([]*types.LeaseRider, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.LeaseRider, error)
	LockByID(dbc dbctx.Context, id uuid.UUID) (*types.LeaseRider, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
}

type leaseRiderRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLeaseRiderRepo(db *gorm.DB, baseLog *logger.Logger) LeaseRiderRepo {
	return &leaseRiderRepo{db: db, log: baseLog.With("repo", "LeaseRiderRepo")}
}

func (r *leaseRiderRepo) Create(dbc dbctx.Context, rows []*types.LeaseRider) ([]*types.LeaseRider, error) {
	return createRows(dbc, r.db, rows)
}

func (r *leaseRiderRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.LeaseRider, error) {
	return getByID[types.LeaseRider](dbc, r.db, id)
}

func (r *leaseRiderRepo) LockByID(dbc dbctx.Context, id uuid.UUID) (*types.LeaseRider, error) {
	return lockByID[types.LeaseRider](dbc, r.db, id)
}

func (r *leaseRiderRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	return updateFields[types.LeaseRider](dbc, r.db, id, updates)
}

type RateHistoryRepo interface {
	Create(dbc dbctx.Context, rows []*types.RiderRateHistory) ([]*types.RiderRateHistory, error)
	ListByRider(dbc dbctx.Context, riderID uuid.UUID) ([]*types.RiderRateHistory, error)
}

type rateHistoryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRateHistoryRepo(db *gorm.DB, baseLog *logger.Logger) RateHistoryRepo {
	return &rateHistoryRepo{db: db, log: baseLog.With("repo", "RateHistoryRepo")}
}

func (r *rateHistoryRepo) Create(dbc dbctx.Context, rows []*types.RiderRateHistory) ([]*types.RiderRateHistory, error) {
	return createRows(dbc, r.db, rows)
}

func (r *rateHistoryRepo) ListByRider(dbc dbctx.Context, riderID uuid.UUID) ([]*types.RiderRateHistory, error) {
	var out []*types.RiderRateHistory
	if riderID == uuid.Nil {
		return out, nil
	}
	err := dbc.Conn(r.db).
		Where("rider_id = ?", riderID).
		Order("effective_date ASC, created_at ASC").
		Find(&out).Error
	return out, err
}
