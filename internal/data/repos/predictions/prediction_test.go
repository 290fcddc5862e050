package predictions

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/runitlabs/prediction-backend/internal/audit"
	"github.com/runitlabs/prediction-backend/internal/data/repos/testutil"
	types "github.com/runitlabs/prediction-backend/internal/domain"
	"github.com/runitlabs/prediction-backend/internal/pkg/dbctx"
	pkgerrors "github.com/runitlabs/prediction-backend/internal/pkg/errors"
)

func TestPredictionRepoLatestAndHistory(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	log := testutil.Logger(t)
	repo := NewPredictionRepo(db, log, audit.NewCoordinator(log))

	userID := uuid.New()
	testutil.SeedPrediction(t, ctx, tx, userID, types.ModelTypeChurn, 0.2)
	testutil.SeedPrediction(t, ctx, tx, userID, types.ModelTypeChurn, 0.5)
	newest := testutil.SeedPrediction(t, ctx, tx, userID, types.ModelTypeChurn, 0.8)
	testutil.SeedPrediction(t, ctx, tx, userID, types.ModelTypeLTV, 0.4)

	latest, err := repo.Latest(dbc, userID, types.ModelTypeChurn)
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if latest.ID != newest.ID {
		t.Fatalf("Latest: got score %v, want %v", latest.Score, newest.Score)
	}

	if _, err := repo.Latest(dbc, uuid.New(), types.ModelTypeChurn); !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Fatalf("Latest for unknown user: err = %v, want ErrNotFound", err)
	}

	rows, total, err := repo.History(dbc, userID, 2, 0, false)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if total != 4 {
		t.Fatalf("History total = %d, want 4", total)
	}
	if len(rows) != 2 {
		t.Fatalf("History page len = %d, want 2", len(rows))
	}
	// newest first
	if rows[0].ID != newest.ID {
		t.Fatalf("History order: first = %v, want newest", rows[0].Score)
	}

	rest, _, err := repo.History(dbc, userID, 2, 2, false)
	if err != nil {
		t.Fatalf("History second page: %v", err)
	}
	if len(rest) != 2 {
		t.Fatalf("History second page len = %d, want 2", len(rest))
	}
}

func TestPredictionRepoRiskQueries(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	log := testutil.Logger(t)
	repo := NewPredictionRepo(db, log, audit.NewCoordinator(log))

	testutil.SeedPrediction(t, ctx, tx, uuid.New(), types.ModelTypeChurn, 0.1)
	testutil.SeedPrediction(t, ctx, tx, uuid.New(), types.ModelTypeChurn, 0.5)
	high1 := testutil.SeedPrediction(t, ctx, tx, uuid.New(), types.ModelTypeChurn, 0.95)
	high2 := testutil.SeedPrediction(t, ctx, tx, uuid.New(), types.ModelTypeChurn, 0.75)

	rows, total, err := repo.ListByRisk(dbc, types.ModelTypeChurn, types.RiskLevelHigh, 10, 0)
	if err != nil {
		t.Fatalf("ListByRisk: %v", err)
	}
	if total != 2 || len(rows) != 2 {
		t.Fatalf("ListByRisk: total=%d len=%d, want 2/2", total, len(rows))
	}
	// highest score first
	if rows[0].ID != high1.ID || rows[1].ID != high2.ID {
		t.Fatalf("ListByRisk order: got %v, %v", rows[0].Score, rows[1].Score)
	}

	counts, err := repo.CountByRisk(dbc, types.ModelTypeChurn)
	if err != nil {
		t.Fatalf("CountByRisk: %v", err)
	}
	if counts[types.RiskLevelLow] != 1 || counts[types.RiskLevelMedium] != 1 || counts[types.RiskLevelHigh] != 2 {
		t.Fatalf("CountByRisk = %v, want LOW:1 MEDIUM:1 HIGH:2", counts)
	}

	// empty buckets are reported as zero, not missing
	ltvCounts, err := repo.CountByRisk(dbc, types.ModelTypeLTV)
	if err != nil {
		t.Fatalf("CountByRisk LTV: %v", err)
	}
	for _, rl := range []types.RiskLevel{types.RiskLevelLow, types.RiskLevelMedium, types.RiskLevelHigh} {
		if n, ok := ltvCounts[rl]; !ok || n != 0 {
			t.Fatalf("CountByRisk LTV[%s] = %d (present=%v), want 0", rl, n, ok)
		}
	}
}

func TestPredictionRepoSoftDeleteVisibility(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	log := testutil.Logger(t)
	repo := NewPredictionRepo(db, log, audit.NewCoordinator(log))

	userID := uuid.New()
	p1 := testutil.SeedPrediction(t, ctx, tx, userID, types.ModelTypeChurn, 0.8)
	p2 := testutil.SeedPrediction(t, ctx, tx, userID, types.ModelTypeChurn, 0.4)

	if err := repo.SoftDeleteByID(dbc, p2.ID); err != nil {
		t.Fatalf("SoftDeleteByID: %v", err)
	}

	if _, err := repo.GetByID(dbc, p2.ID, false); !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Fatalf("deleted prediction visible: err = %v, want ErrNotFound", err)
	}
	if _, err := repo.GetByID(dbc, p2.ID, true); err != nil {
		t.Fatalf("GetByID includeDeleted: %v", err)
	}

	// latest skips deleted rows
	latest, err := repo.Latest(dbc, userID, types.ModelTypeChurn)
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if latest.ID != p1.ID {
		t.Fatalf("Latest returned deleted row")
	}

	_, activeTotal, err := repo.History(dbc, userID, 10, 0, false)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if activeTotal != 1 {
		t.Fatalf("active history total = %d, want 1", activeTotal)
	}
	_, auditTotal, err := repo.History(dbc, userID, 10, 0, true)
	if err != nil {
		t.Fatalf("History includeDeleted: %v", err)
	}
	if auditTotal != 2 {
		t.Fatalf("audit history total = %d, want 2", auditTotal)
	}

	if err := repo.RestoreByID(dbc, p2.ID); err != nil {
		t.Fatalf("RestoreByID: %v", err)
	}
	restored, err := repo.GetByID(dbc, p2.ID, false)
	if err != nil {
		t.Fatalf("GetByID after restore: %v", err)
	}
	if !restored.IsActive || restored.DeletedAt != nil {
		t.Fatalf("restore state = {active:%v deleted_at:%v}, want live", restored.IsActive, restored.DeletedAt)
	}
}

func TestPredictionExplanationRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	log := testutil.Logger(t)
	repo := NewPredictionExplanationRepo(db, log, audit.NewCoordinator(log))

	p := testutil.SeedPrediction(t, ctx, tx, uuid.New(), types.ModelTypeChurn, 0.6)
	testutil.SeedExplanation(t, ctx, tx, p.ID, 2, 0.21)
	testutil.SeedExplanation(t, ctx, tx, p.ID, 1, 0.42)
	testutil.SeedExplanation(t, ctx, tx, p.ID, 3, 0.05)

	rows, err := repo.GetByPredictionID(dbc, p.ID, false)
	if err != nil {
		t.Fatalf("GetByPredictionID: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("explanations = %d, want 3", len(rows))
	}
	for i, row := range rows {
		if row.Rank != i+1 {
			t.Fatalf("rank order broken at position %d: rank=%d", i, row.Rank)
		}
	}

	if err := repo.SoftDeleteByPredictionID(dbc, p.ID); err != nil {
		t.Fatalf("SoftDeleteByPredictionID: %v", err)
	}
	active, err := repo.GetByPredictionID(dbc, p.ID, false)
	if err != nil {
		t.Fatalf("GetByPredictionID after delete: %v", err)
	}
	if len(active) != 0 {
		t.Fatalf("deleted explanations visible: %d", len(active))
	}
	all, err := repo.GetByPredictionID(dbc, p.ID, true)
	if err != nil {
		t.Fatalf("GetByPredictionID includeDeleted: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("audit read = %d rows, want 3", len(all))
	}

	if err := repo.RestoreByPredictionID(dbc, p.ID); err != nil {
		t.Fatalf("RestoreByPredictionID: %v", err)
	}
	active, err = repo.GetByPredictionID(dbc, p.ID, false)
	if err != nil {
		t.Fatalf("GetByPredictionID after restore: %v", err)
	}
	if len(active) != 3 {
		t.Fatalf("restored explanations = %d, want 3", len(active))
	}
}
