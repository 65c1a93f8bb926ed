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

type ReleaseFilter struct {
	CarNumber string
	Statuses  []string
	RiderID   uuid.UUID
	Limit     int
}

type ReleaseRepo interface {
	Create(dbc dbctx.Context, rows []*types.CarRelease) ([]*types.CarRelease, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.CarRelease, error)
	LockByID(dbc dbctx.Context, id uuid.UUID) (*types.CarRelease, error)
	// GetOpenByCarNumber returns the release in INITIATED/APPROVED/EXECUTING for carNumber, if any.
	GetOpenByCarNumber(dbc dbctx.Context, carNumber string) (*types.CarRelease, error)
	List(dbc dbctx.Context, filter ReleaseFilter) ([]*types.CarRelease, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
}

type releaseRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewReleaseRepo(db *gorm.DB, baseLog *logger.Logger) ReleaseRepo {
	return &releaseRepo{db: db, log: baseLog.With("repo", "ReleaseRepo")}
}

func (r *releaseRepo) Create(dbc dbctx.Context, rows []*types.CarRelease) ([]*types.CarRelease, error) {
	return createRows(dbc, r.db, rows)
}

func (r *releaseRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.CarRelease, error) {
	return getByID[types.CarRelease](dbc, r.db, id)
}

func (r *releaseRepo) LockByID(dbc dbctx.Context, id uuid.UUID) (*types.CarRelease, error) {
	return lockByID[types.CarRelease](dbc, r.db, id)
}

func (r *releaseRepo) GetOpenByCarNumber(dbc dbctx.Context, carNumber string) (*types.CarRelease, error) {
	carNumber = strings.TrimSpace(carNumber)
	if carNumber == "" {
		return nil, nil
	}
	var out []*types.CarRelease
	err := dbc.Conn(r.db).
		Where("car_number = ? AND status IN ?", carNumber, fleet.OpenReleaseStatuses).
		Limit(1).
		Find(&out).Error
	if err != nil || len(out) == 0 {
		return nil, err
	}
	return out[0], nil
}

func (r *releaseRepo) List(dbc dbctx.Context, filter ReleaseFilter) ([]*types.CarRelease, error) {
	q := dbc.Conn(r.db).Model(&types.CarRelease{})
	if s := strings.TrimSpace(filter.CarNumber); s != "" {
		q = q.Where("car_number = ?", s)
	}
	if len(filter.Statuses) > 0 {
		q = q.Where("status IN ?", filter.Statuses)
	}
	if filter.RiderID != uuid.Nil {
		q = q.Where("rider_id = ?", filter.RiderID)
	}
	var out []*types.CarRelease
	err := q.Order("created_at DESC").Limit(clampLimit(filter.Limit)).Find(&out).Error
	return out, err
}

func (r *releaseRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	return updateFields[types.CarRelease](dbc, r.db, id, updates)
}

type AssignmentRepo interface {
	Create(dbc dbctx.Context, rows []*types.CarAssignment) ([]*types.CarAssignment, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.CarAssignment, error)
	LockByID(dbc dbctx.Context, id uuid.UUID) (*types.CarAssignment, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
}

type assignmentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAssignmentRepo(db *gorm.DB, baseLog *logger.Logger) AssignmentRepo {
	return &assignmentRepo{db: db, log: baseLog.With("repo", "AssignmentRepo")}
}

func (r *assignmentRepo) Create(dbc dbctx.Context, rows []*types.CarAssignment) ([]*types.CarAssignment, error) {
	return createRows(dbc, r.db, rows)
}

func (r *assignmentRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.CarAssignment, error) {
	return getByID[types.CarAssignment](dbc, r.db, id)
}

func (r *assignmentRepo) LockByID(dbc dbctx.Context, id uuid.UUID) (*types.CarAssignment, error) {
	return lockByID[types.CarAssignment](dbc, r.db, id)
}

func (r *assignmentRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	return updateFields[types.CarAssignment](dbc, r.db, id, updates)
}

type LeaseTransitionRepo interface {
	Create(dbc dbctx.Context, rows []*types.CarLeaseTransition) ([]*types.CarLeaseTransition, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.CarLeaseTransition, error)
	LockByID(dbc dbctx.Context, id uuid.UUID) (*types.CarLeaseTransition, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
}

type leaseTransitionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLeaseTransitionRepo(db *gorm.DB, baseLog *logger.Logger) LeaseTransitionRepo {
	return &leaseTransitionRepo{db: db, log: baseLog.With("repo", "LeaseTransitionRepo")}
}

func (r *leaseTransitionRepo) Create(dbc dbctx.Context, rows []*types.CarLeaseTransition) ([]*types.CarLeaseTransition, error) {
	return createRows(dbc, r.db, rows)
}

func (r *leaseTransitionRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.CarLeaseTransition, error) {
	return getByID[types.CarLeaseTransition](dbc, r.db, id)
}

func (r *leaseTransitionRepo) LockByID(dbc dbctx.Context, id uuid.UUID) (*types.CarLeaseTransition, error) {
	return lockByID[types.CarLeaseTransition](dbc, r.db, id)
}

func (r *leaseTransitionRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	return updateFields[types.CarLeaseTransition](dbc, r.db, id, updates)
}
