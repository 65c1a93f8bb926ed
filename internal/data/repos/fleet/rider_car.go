package fleet

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/railfleet-backend/internal/domain"
	"github.com/yungbote/railfleet-backend/internal/domain/fleet"
	"github.com/yungbote/railfleet-backend/internal/pkg/dbctx"
	"github.com/yungbote/railfleet-backend/internal/pkg/logger"
)

type RiderCarRepo interface {
	Create(dbc dbctx.Context, rows []*types.RiderCar) ([]*types.RiderCar, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.RiderCar, error)
	LockByID(dbc dbctx.Context, id uuid.UUID) (*types.RiderCar, error)

	// GetActiveOnRider returns the active binding of carNumber to riderID, if any.
	GetActiveOnRider(dbc dbctx.Context, carNumber string, riderID uuid.UUID) (*types.RiderCar, error)
	// GetOnRentByCar returns the rider car currently billing for carID, skipping excludeID.
	GetOnRentByCar(dbc dbctx.Context, carID uuid.UUID, excludeID uuid.UUID) (*types.RiderCar, error)
	CountBillableByRider(dbc dbctx.Context, riderID uuid.UUID) (int64, error)

	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	// SetAmendmentFlags updates the amendment flags on every active car of the rider.
	SetAmendmentFlags(dbc dbctx.Context, riderID uuid.UUID, pending, conflict bool, at time.Time) (int64, error)
}

type riderCarRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRiderCarRepo(db *gorm.DB, baseLog *logger.Logger) RiderCarRepo {
	return &riderCarRepo{db: db, log: baseLog.With("repo", "RiderCarRepo")}
}

func (r *riderCarRepo) Create(dbc dbctx.Context, rows []*types.RiderCar) ([]*types.RiderCar, error) {
	return createRows(dbc, r.db, rows)
}

func (r *riderCarRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.RiderCar, error) {
	return getByID[types.RiderCar](dbc, r.db, id)
}

func (r *riderCarRepo) LockByID(dbc dbctx.Context, id uuid.UUID) (*types.RiderCar, error) {
	return lockByID[types.RiderCar](dbc, r.db, id)
}

func (r *riderCarRepo) GetActiveOnRider(dbc dbctx.Context, carNumber string, riderID uuid.UUID) (*types.RiderCar, error) {
	carNumber = strings.TrimSpace(carNumber)
	if carNumber == "" || riderID == uuid.Nil {
		return nil, nil
	}
	var out []*types.RiderCar
	err := dbc.Conn(r.db).
		Where("car_number = ? AND rider_id = ? AND is_active = ?", carNumber, riderID, true).
		Order("created_at DESC").
		Limit(1).
		Find(&out).Error
	if err != nil || len(out) == 0 {
		return nil, err
	}
	return out[0], nil
}

func (r *riderCarRepo) GetOnRentByCar(dbc dbctx.Context, carID uuid.UUID, excludeID uuid.UUID) (*types.RiderCar, error) {
	if carID == uuid.Nil {
		return nil, nil
	}
	var out []*types.RiderCar
	err := dbc.Conn(r.db).
		Where("car_id = ? AND status = ? AND is_active = ? AND id <> ?", carID, fleet.RiderCarStatusOnRent, true, excludeID).
		Limit(1).
		Find(&out).Error
	if err != nil || len(out) == 0 {
		return nil, err
	}
	return out[0], nil
}

func (r *riderCarRepo) CountBillableByRider(dbc dbctx.Context, riderID uuid.UUID) (int64, error) {
	var n int64
	err := dbc.Conn(r.db).
		Model(&types.RiderCar{}).
		Where("rider_id = ? AND is_active = ? AND status IN ?", riderID, true, []string{fleet.RiderCarStatusOnRent, fleet.RiderCarStatusReleasing}).
		Count(&n).Error
	return n, err
}

func (r *riderCarRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	return updateFields[types.RiderCar](dbc, r.db, id, updates)
}

func (r *riderCarRepo) SetAmendmentFlags(dbc dbctx.Context, riderID uuid.UUID, pending, conflict bool, at time.Time) (int64, error) {
	if riderID == uuid.Nil {
		return 0, nil
	}
	res := dbc.Conn(r.db).
		Model(&types.RiderCar{}).
		Where("rider_id = ? AND is_active = ?", riderID, true).
		Updates(map[string]interface{}{
			"has_pending_amendment": pending,
			"amendment_conflict":    conflict,
			"updated_at":            at,
		})
	return res.RowsAffected, res.Error
}

type OnRentHistoryRepo interface {
	Create(dbc dbctx.Context, rows []*types.OnRentHistory) ([]*types.OnRentHistory, error)
	ListByRiderCar(dbc dbctx.Context, riderCarID uuid.UUID) ([]*types.OnRentHistory, error)
}

type onRentHistoryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewOnRentHistoryRepo(db *gorm.DB, baseLog *logger.Logger) OnRentHistoryRepo {
	return &onRentHistoryRepo{db: db, log: baseLog.With("repo", "OnRentHistoryRepo")}
}

func (r *onRentHistoryRepo) Create(dbc dbctx.Context, rows []*types.OnRentHistory) ([]*types.OnRentHistory, error) {
	return createRows(dbc, r.db, rows)
}

func (r *onRentHistoryRepo) ListByRiderCar(dbc dbctx.Context, riderCarID uuid.UUID) ([]*types.OnRentHistory, error) {
	var out []*types.OnRentHistory
	err := dbc.Conn(r.db).
		Where("rider_car_id = ?", riderCarID).
		Order("effective_at ASC").
		Find(&out).Error
	return out, err
}

type IdlePeriodRepo interface {
	Create(dbc dbctx.Context, rows []*types.IdlePeriod) ([]*types.IdlePeriod, error)
	GetOpenByCar(dbc dbctx.Context, carID uuid.UUID) (*types.IdlePeriod, error)
	CloseOpenByCar(dbc dbctx.Context, carID uuid.UUID, endedAt time.Time) (int64, error)
}

type idlePeriodRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewIdlePeriodRepo(db *gorm.DB, baseLog *logger.Logger) IdlePeriodRepo {
	return &idlePeriodRepo{db: db, log: baseLog.With("repo", "IdlePeriodRepo")}
}

func (r *idlePeriodRepo) Create(dbc dbctx.Context, rows []*types.IdlePeriod) ([]*types.IdlePeriod, error) {
	return createRows(dbc, r.db, rows)
}

func (r *idlePeriodRepo) GetOpenByCar(dbc dbctx.Context, carID uuid.UUID) (*types.IdlePeriod, error) {
	var out []*types.IdlePeriod
	err := dbc.Conn(r.db).
		Where("car_id = ? AND ended_at IS NULL", carID).
		Order("started_at DESC").
		Limit(1).
		Find(&out).Error
	if err != nil || len(out) == 0 {
		return nil, err
	}
	return out[0], nil
}

func (r *idlePeriodRepo) CloseOpenByCar(dbc dbctx.Context, carID uuid.UUID, endedAt time.Time) (int64, error) {
	res := dbc.Conn(r.db).
		Model(&types.IdlePeriod{}).
		Where("car_id = ? AND ended_at IS NULL", carID).
		Updates(map[string]interface{}{"ended_at": endedAt, "updated_at": endedAt})
	return res.RowsAffected, res.Error
}
