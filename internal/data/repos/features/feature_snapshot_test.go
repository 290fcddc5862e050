package features

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/runitlabs/prediction-backend/internal/audit"
	"github.com/runitlabs/prediction-backend/internal/data/repos/testutil"
	"github.com/runitlabs/prediction-backend/internal/pkg/dbctx"
	pkgerrors "github.com/runitlabs/prediction-backend/internal/pkg/errors"
)

func TestFeatureSnapshotRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	log := testutil.Logger(t)
	repo := NewFeatureSnapshotRepo(db, log, audit.NewCoordinator(log))

	userID := uuid.New()
	seeded := testutil.SeedSnapshot(t, ctx, tx, userID)

	got, err := repo.GetByUserID(dbc, userID, false)
	if err != nil {
		t.Fatalf("GetByUserID: %v", err)
	}
	if got.ID != seeded.ID {
		t.Fatalf("GetByUserID: got %s, want %s", got.ID, seeded.ID)
	}
	if got.EngagementScore != seeded.EngagementScore {
		t.Fatalf("EngagementScore = %v, want %v", got.EngagementScore, seeded.EngagementScore)
	}

	if _, err := repo.GetByUserID(dbc, uuid.New(), false); !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Fatalf("missing user: err = %v, want ErrNotFound", err)
	}

	// one snapshot per user
	dup := *seeded
	dup.ID = uuid.New()
	if err := repo.Create(dbc, &dup); !errors.Is(err, pkgerrors.ErrConflict) {
		t.Fatalf("duplicate user snapshot: err = %v, want ErrConflict", err)
	}

	// update in place
	got.RunsLast30Days = 2
	got.EngagementScore = 12.5
	if err := repo.Save(dbc, got); err != nil {
		t.Fatalf("Save: %v", err)
	}
	reread, err := repo.GetByUserID(dbc, userID, false)
	if err != nil {
		t.Fatalf("GetByUserID after save: %v", err)
	}
	if reread.RunsLast30Days != 2 || reread.EngagementScore != 12.5 {
		t.Fatalf("save did not persist: runs=%d engagement=%v", reread.RunsLast30Days, reread.EngagementScore)
	}

	ids, err := repo.ListActiveUserIDs(dbc)
	if err != nil {
		t.Fatalf("ListActiveUserIDs: %v", err)
	}
	if !containsID(ids, userID) {
		t.Fatalf("ListActiveUserIDs missing %s", userID)
	}
}

func TestFeatureSnapshotRepoSoftDelete(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	log := testutil.Logger(t)
	repo := NewFeatureSnapshotRepo(db, log, audit.NewCoordinator(log))

	userID := uuid.New()
	testutil.SeedSnapshot(t, ctx, tx, userID)

	if err := repo.SoftDeleteByUserID(dbc, userID); err != nil {
		t.Fatalf("SoftDeleteByUserID: %v", err)
	}

	// default reads exclude deleted rows
	if _, err := repo.GetByUserID(dbc, userID, false); !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Fatalf("deleted snapshot visible: err = %v, want ErrNotFound", err)
	}

	// audit reads opt in
	got, err := repo.GetByUserID(dbc, userID, true)
	if err != nil {
		t.Fatalf("GetByUserID includeDeleted: %v", err)
	}
	if got.IsActive || got.DeletedAt == nil {
		t.Fatalf("audit state = {active:%v deleted_at:%v}, want deleted", got.IsActive, got.DeletedAt)
	}
	firstDeletedAt := *got.DeletedAt

	// repeated delete keeps the original timestamp
	if err := repo.SoftDeleteByUserID(dbc, userID); err != nil {
		t.Fatalf("repeat SoftDeleteByUserID: %v", err)
	}
	again, err := repo.GetByUserID(dbc, userID, true)
	if err != nil {
		t.Fatalf("GetByUserID after repeat delete: %v", err)
	}
	if !again.DeletedAt.Equal(firstDeletedAt) {
		t.Fatalf("repeat delete moved deleted_at from %v to %v", firstDeletedAt, again.DeletedAt)
	}

	ids, err := repo.ListActiveUserIDs(dbc)
	if err != nil {
		t.Fatalf("ListActiveUserIDs: %v", err)
	}
	if containsID(ids, userID) {
		t.Fatalf("ListActiveUserIDs includes deleted user %s", userID)
	}

	if err := repo.RestoreByUserID(dbc, userID); err != nil {
		t.Fatalf("RestoreByUserID: %v", err)
	}
	restored, err := repo.GetByUserID(dbc, userID, false)
	if err != nil {
		t.Fatalf("GetByUserID after restore: %v", err)
	}
	if !restored.IsActive || restored.DeletedAt != nil {
		t.Fatalf("restore state = {active:%v deleted_at:%v}, want live", restored.IsActive, restored.DeletedAt)
	}
}

func containsID(ids []uuid.UUID, want uuid.UUID) bool {
	for _, id := range ids {
		if id == want {
			return true
		}
	}
	return false
}
