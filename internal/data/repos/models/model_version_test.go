package models

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/runitlabs/prediction-backend/internal/data/repos/testutil"
	types "github.com/runitlabs/prediction-backend/internal/domain"
	"github.com/runitlabs/prediction-backend/internal/pkg/dbctx"
	pkgerrors "github.com/runitlabs/prediction-backend/internal/pkg/errors"
)

func TestModelVersionRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewModelVersionRepo(db, testutil.Logger(t))

	v1 := testutil.SeedModelVersion(t, ctx, tx, types.ModelTypeChurn, "v1.0.0", false)

	// same (type, name) pair is rejected
	dup := &types.ModelVersion{
		ID:          uuid.New(),
		ModelType:   types.ModelTypeChurn,
		VersionName: "v1.0.0",
		FilePath:    "models/dup.pkl",
		TrainedAt:   time.Now(),
	}
	if err := repo.Create(dbc, dup); !errors.Is(err, pkgerrors.ErrDuplicateVersion) {
		t.Fatalf("duplicate version: err = %v, want ErrDuplicateVersion", err)
	}

	// same name under the other type is fine
	ltv := &types.ModelVersion{
		ID:          uuid.New(),
		ModelType:   types.ModelTypeLTV,
		VersionName: "v1.0.0",
		FilePath:    "models/ltv.pkl",
		TrainedAt:   time.Now(),
	}
	if err := repo.Create(dbc, ltv); err != nil {
		t.Fatalf("Create ltv: %v", err)
	}

	got, err := repo.GetByTypeAndName(dbc, types.ModelTypeChurn, "v1.0.0")
	if err != nil {
		t.Fatalf("GetByTypeAndName: %v", err)
	}
	if got.ID != v1.ID {
		t.Fatalf("GetByTypeAndName: got %s, want %s", got.ID, v1.ID)
	}

	if _, err := repo.GetByTypeAndName(dbc, types.ModelTypeChurn, "v9.9.9"); !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Fatalf("missing version: err = %v, want ErrNotFound", err)
	}
}

func TestModelVersionRepoActivation(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewModelVersionRepo(db, testutil.Logger(t))

	v1 := testutil.SeedModelVersion(t, ctx, tx, types.ModelTypeChurn, "v1.0.0", true)
	v2 := testutil.SeedModelVersion(t, ctx, tx, types.ModelTypeChurn, "v1.0.1", false)
	ltv := testutil.SeedModelVersion(t, ctx, tx, types.ModelTypeLTV, "v2.0.0", true)

	active, err := repo.GetActive(dbc, types.ModelTypeChurn)
	if err != nil {
		t.Fatalf("GetActive: %v", err)
	}
	if active.ID != v1.ID {
		t.Fatalf("GetActive: got %s, want %s", active.VersionName, v1.VersionName)
	}

	if err := repo.SetActiveExclusive(dbc, types.ModelTypeChurn, v2.ID); err != nil {
		t.Fatalf("SetActiveExclusive: %v", err)
	}

	active, err = repo.GetActive(dbc, types.ModelTypeChurn)
	if err != nil {
		t.Fatalf("GetActive after switch: %v", err)
	}
	if active.ID != v2.ID {
		t.Fatalf("GetActive after switch: got %s, want %s", active.VersionName, v2.VersionName)
	}

	// the previous version was deactivated
	old, err := repo.GetByTypeAndName(dbc, types.ModelTypeChurn, "v1.0.0")
	if err != nil {
		t.Fatalf("GetByTypeAndName v1: %v", err)
	}
	if old.Active {
		t.Fatal("v1.0.0 still active after v1.0.1 activation")
	}

	// activation is scoped per type
	ltvActive, err := repo.GetActive(dbc, types.ModelTypeLTV)
	if err != nil {
		t.Fatalf("GetActive LTV: %v", err)
	}
	if ltvActive.ID != ltv.ID {
		t.Fatal("LTV activation disturbed by CHURN switch")
	}

	// exactly one active version of the type
	rows, err := repo.ListByType(dbc, types.ModelTypeChurn)
	if err != nil {
		t.Fatalf("ListByType: %v", err)
	}
	activeCount := 0
	for _, row := range rows {
		if row.Active {
			activeCount++
		}
	}
	if activeCount != 1 {
		t.Fatalf("active versions = %d, want 1", activeCount)
	}

	if err := repo.SetActiveExclusive(dbc, types.ModelTypeChurn, uuid.New()); !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Fatalf("activate unknown id: err = %v, want ErrNotFound", err)
	}
}

func TestModelVersionRepoGetActiveMissing(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}
	repo := NewModelVersionRepo(db, testutil.Logger(t))

	if _, err := repo.GetActive(dbc, types.ModelTypeLTV); !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Fatalf("no active version: err = %v, want ErrNotFound", err)
	}
}
