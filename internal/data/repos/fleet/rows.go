package fleet

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/railfleet-backend/internal/pkg/dbctx"
)

// Shared row helpers. Every fleet table keys on a uuid "id" column.

func createRows[T any](dbc dbctx.Context, db *gorm.DB, rows []*T) ([]*T, error) {
	if len(rows) == 0 {
		return []*T{}, nil
	}
	if err := dbc.Conn(db).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func getByID[T any](dbc dbctx.Context, db *gorm.DB, id uuid.UUID) (*T, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var out []*T
	if err := dbc.Conn(db).Where("id = ?", id).Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

// lockByID takes a row lock (SELECT ... FOR UPDATE) when the dialect supports it.
func lockByID[T any](dbc dbctx.Context, db *gorm.DB, id uuid.UUID) (*T, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var out []*T
	err := dbc.Conn(db).
		Clauses(lockingClause()).
		Where("id = ?", id).
		Limit(1).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func lockingClause() clause.Locking {
	return clause.Locking{Strength: "UPDATE"}
}

func updateFields[T any](dbc dbctx.Context, db *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil {
		return nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	var model T
	return dbc.Conn(db).Model(&model).Where("id = ?", id).Updates(updates).Error
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > 500 {
		return 100
	}
	return limit
}
