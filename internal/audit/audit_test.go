package audit

import (
	"errors"
	"testing"
	"time"

	pkgerrors "github.com/runitlabs/prediction-backend/internal/pkg/errors"
	"github.com/runitlabs/prediction-backend/internal/platform/logger"
)

type fakeRecord struct {
	active    bool
	deletedAt *time.Time
	updatedAt time.Time
}

func (f *fakeRecord) AuditState() (bool, *time.Time) { return f.active, f.deletedAt }
func (f *fakeRecord) SetAuditState(active bool, deletedAt *time.Time, at time.Time) {
	f.active = active
	f.deletedAt = deletedAt
	f.updatedAt = at
}

func newCoordinator(t *testing.T) *Coordinator {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return NewCoordinator(log)
}

func TestSoftDeleteStampsOnce(t *testing.T) {
	c := newCoordinator(t)
	rec := &fakeRecord{active: true}

	c.SoftDelete(rec)
	if rec.active {
		t.Fatal("record still active after soft delete")
	}
	if rec.deletedAt == nil {
		t.Fatal("deleted_at not stamped")
	}
	first := *rec.deletedAt

	time.Sleep(5 * time.Millisecond)
	c.SoftDelete(rec)
	if !rec.deletedAt.Equal(first) {
		t.Fatalf("repeat delete moved deleted_at from %v to %v", first, *rec.deletedAt)
	}
}

func TestRestoreClearsDeletedAt(t *testing.T) {
	c := newCoordinator(t)
	rec := &fakeRecord{active: true}
	c.SoftDelete(rec)

	if err := c.Restore(rec, nil); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if !rec.active {
		t.Fatal("record not active after restore")
	}
	if rec.deletedAt != nil {
		t.Fatalf("deleted_at = %v after restore, want nil", *rec.deletedAt)
	}
}

func TestRestoreUnderDeletedParentFails(t *testing.T) {
	c := newCoordinator(t)
	rec := &fakeRecord{active: true}
	c.SoftDelete(rec)

	err := c.Restore(rec, func() (bool, error) { return false, nil })
	if !errors.Is(err, pkgerrors.ErrConsistency) {
		t.Fatalf("error = %v, want ErrConsistency", err)
	}
	if rec.active {
		t.Fatal("record was reactivated despite consistency failure")
	}
}

func TestRestorePropagatesParentLookupError(t *testing.T) {
	c := newCoordinator(t)
	rec := &fakeRecord{}
	boom := errors.New("boom")

	err := c.Restore(rec, func() (bool, error) { return false, boom })
	if !errors.Is(err, boom) {
		t.Fatalf("error = %v, want parent lookup error", err)
	}
}

func TestMarkActiveClearsPriorDeletion(t *testing.T) {
	c := newCoordinator(t)
	rec := &fakeRecord{active: true}
	c.SoftDelete(rec)

	c.MarkActive(rec)
	if !rec.active || rec.deletedAt != nil {
		t.Fatalf("record = {active:%v deleted_at:%v}, want live", rec.active, rec.deletedAt)
	}
}
