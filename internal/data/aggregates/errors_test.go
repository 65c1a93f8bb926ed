package aggregates

import (
	"errors"
	"fmt"
	"testing"

	domainagg "github.com/yungbote/railfleet-backend/internal/domain/aggregates"
	"gorm.io/gorm"
)

func TestMapError_Validation(t *testing.T) {
	err := MapError("op", ValidationError("bad input"))
	if !domainagg.IsCode(err, domainagg.CodeValidation) {
		t.Fatalf("expected validation code, got %q (%v)", domainagg.CodeOf(err), err)
	}
}

func TestMapError_Conflict(t *testing.T) {
	err := MapError("op", ConflictError("stale"))
	if !domainagg.IsCode(err, domainagg.CodeConflict) {
		t.Fatalf("expected conflict code, got %q (%v)", domainagg.CodeOf(err), err)
	}
}

func TestMapError_NotFound(t *testing.T) {
	err := MapError("op", gorm.ErrRecordNotFound)
	if !domainagg.IsCode(err, domainagg.CodeNotFound) {
		t.Fatalf("expected not_found code, got %q (%v)", domainagg.CodeOf(err), err)
	}
}

func TestMapError_PassthroughAggregateError(t *testing.T) {
	in := domainagg.NewError(domainagg.CodeRetryable, "op", "retry", errors.New("boom"))
	out := MapError("other", in)
	if out != in {
		t.Fatalf("expected passthrough aggregate error")
	}
}

func TestMapError_PassthroughWrappedAggregateError(t *testing.T) {
	inner := domainagg.NewError(domainagg.CodePreconditionFailed, "Fleet.Release.Complete", "rider car gone", nil)
	in := fmt.Errorf("complete release: %w", inner)
	out := MapError("Fleet.Release.Complete", in)
	if !domainagg.IsCode(out, domainagg.CodePreconditionFailed) {
		t.Fatalf("code: want=%s got=%s (%v)", domainagg.CodePreconditionFailed, domainagg.CodeOf(out), out)
	}
	if domainagg.MessageOf(out) != "rider car gone" {
		t.Fatalf("message: got=%q", domainagg.MessageOf(out))
	}
}

func TestMapError_UniqueViolationAcrossDialects(t *testing.T) {
	cases := []error{
		gorm.ErrDuplicatedKey,
		errors.New("UNIQUE constraint failed: car_release.car_number"),
		errors.New(`ERROR: duplicate key value violates unique constraint "idx_car_release_open_per_car"`),
	}
	for _, in := range cases {
		err := MapError("op", in)
		if !domainagg.IsCode(err, domainagg.CodeConflict) {
			t.Fatalf("%v: want=conflict got=%q", in, domainagg.CodeOf(err))
		}
		if !IsUniqueViolation(in) {
			t.Fatalf("IsUniqueViolation(%v): want=true", in)
		}
	}
	if IsUniqueViolation(errors.New("boom")) {
		t.Fatalf("IsUniqueViolation(boom): want=false")
	}
}

func TestMapError_SQLiteBusyIsRetryable(t *testing.T) {
	err := MapError("op", errors.New("database is locked"))
	if !domainagg.IsCode(err, domainagg.CodeRetryable) {
		t.Fatalf("want=retryable got=%q", domainagg.CodeOf(err))
	}
}
