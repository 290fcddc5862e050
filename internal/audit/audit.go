package audit

import (
	"time"

	"gorm.io/gorm"

	pkgerrors "github.com/runitlabs/prediction-backend/internal/pkg/errors"
	"github.com/runitlabs/prediction-backend/internal/platform/logger"
)

// Record is implemented by every soft-deletable entity. ModelVersion is
// deliberately not one: trained versions are retained forever.
type Record interface {
	AuditState() (active bool, deletedAt *time.Time)
	SetAuditState(active bool, deletedAt *time.Time, at time.Time)
}

// Coordinator is the single place that knows how soft delete, restore, and
// default active-only filtering work. Repos never touch is_active or
// deleted_at except through it, which keeps the discipline testable instead
// of being a transparent query rewrite.
type Coordinator struct {
	log *logger.Logger
}

func NewCoordinator(baseLog *logger.Logger) *Coordinator {
	return &Coordinator{log: baseLog.With("component", "AuditCoordinator")}
}

// MarkActive puts a record into the live state and bumps updated_at.
// created_at is owned by the insert path and never touched here.
func (c *Coordinator) MarkActive(r Record) {
	r.SetAuditState(true, nil, time.Now())
}

// SoftDelete deactivates a record and stamps deleted_at. Deleting an
// already-deleted record is a no-op so the original deletion timestamp
// survives retries.
func (c *Coordinator) SoftDelete(r Record) {
	if active, _ := r.AuditState(); !active {
		return
	}
	now := time.Now()
	r.SetAuditState(false, &now, now)
}

// Restore clears deleted_at and reactivates a record. parentActive reports
// whether the record's parent (if any) is live; restoring a child under a
// deleted parent fails with ErrConsistency. Pass nil for root entities.
func (c *Coordinator) Restore(r Record, parentActive func() (bool, error)) error {
	if parentActive != nil {
		ok, err := parentActive()
		if err != nil {
			return err
		}
		if !ok {
			return pkgerrors.ErrConsistency
		}
	}
	r.SetAuditState(true, nil, time.Now())
	return nil
}

// Scope is applied by every repo read. Default filtering is active-only;
// history and audit queries opt in with includeDeleted.
func (c *Coordinator) Scope(includeDeleted bool) func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB {
		if includeDeleted {
			return q
		}
		return q.Where("is_active = ?", true)
	}
}

// SoftDeleteAssignments is the UPDATE form of SoftDelete for set-based
// cascades. Callers must pair it with `deleted_at IS NULL` so repeated
// deletes stay no-ops.
func (c *Coordinator) SoftDeleteAssignments(now time.Time) map[string]interface{} {
	return map[string]interface{}{
		"is_active":  false,
		"deleted_at": now,
		"updated_at": now,
	}
}

// RestoreAssignments is the UPDATE form of Restore.
func (c *Coordinator) RestoreAssignments(now time.Time) map[string]interface{} {
	return map[string]interface{}{
		"is_active":  true,
		"deleted_at": nil,
		"updated_at": now,
	}
}
