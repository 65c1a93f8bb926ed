package testutil

import (
	"context"
	"sync"

	"gorm.io/gorm"

	"github.com/yungbote/railfleet-backend/internal/data/aggregates"
	"github.com/yungbote/railfleet-backend/internal/pkg/dbctx"
)

// InjectedTxRunner is a test helper for aggregate integration tests.
// Without DB the body runs with no transaction. With DB the body runs in a real
// transaction and FailCommit is returned from inside it, so every write the
// body made is rolled back.
type InjectedTxRunner struct {
	mu sync.Mutex

	DB *gorm.DB

	FailBegin      error
	FailBeforeBody error
	FailCommit     error

	BeginCalls    int
	CommitCalls   int
	RollbackCalls int
	BodyCalls     int
}

var _ aggregates.TxRunner = (*InjectedTxRunner)(nil)

func (r *InjectedTxRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	r.mu.Lock()
	r.BeginCalls++
	failBegin := r.FailBegin
	failBeforeBody := r.FailBeforeBody
	failCommit := r.FailCommit
	db := r.DB
	r.mu.Unlock()

	if failBegin != nil {
		return failBegin
	}
	if failBeforeBody != nil {
		r.count(&r.RollbackCalls)
		return failBeforeBody
	}
	if fn == nil {
		r.count(&r.CommitCalls)
		return nil
	}
	if db != nil {
		err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			r.count(&r.BodyCalls)
			if err := fn(dbctx.Context{Ctx: ctx, Tx: tx}); err != nil {
				return err
			}
			return failCommit
		})
		if err != nil {
			r.count(&r.RollbackCalls)
			return err
		}
		r.count(&r.CommitCalls)
		return nil
	}

	r.count(&r.BodyCalls)
	if err := fn(dbctx.Context{Ctx: ctx}); err != nil {
		r.count(&r.RollbackCalls)
		return err
	}
	if failCommit != nil {
		r.count(&r.RollbackCalls)
		return failCommit
	}
	r.count(&r.CommitCalls)
	return nil
}

func (r *InjectedTxRunner) count(field *int) {
	r.mu.Lock()
	*field++
	r.mu.Unlock()
}
