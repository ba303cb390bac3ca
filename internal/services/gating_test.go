package services

import (
	"context"
	"errors"
	"testing"

	types "github.com/yungbote/clearpath-backend/internal/domain"
	"github.com/yungbote/clearpath-backend/internal/platform/apierr"
	"github.com/yungbote/clearpath-backend/internal/platform/dbctx"
)

func TestGatingServiceListModules(t *testing.T) {
	h := newHarness(t)
	h.complete(t, "01-foundations")
	svc := NewGatingService(h.log, h.engine, h.progress)

	views, err := svc.ListModules(h.ctx)
	if err != nil {
		t.Fatalf("ListModules: %v", err)
	}
	if len(views) != 8 {
		t.Fatalf("views=%d want 8", len(views))
	}
	if views[0].Slug != "01-foundations" || views[0].Status != types.ModuleStatusCompleted || !views[0].Prerequisites.IsUnlocked {
		t.Fatalf("first view=%+v", views[0])
	}
	if !views[1].Prerequisites.IsUnlocked || views[1].Status != types.ModuleStatusNotStarted {
		t.Fatalf("second view=%+v", views[1])
	}
	if !views[3].IsSafetyGate || views[3].Prerequisites.IsUnlocked {
		t.Fatalf("binders view=%+v", views[3])
	}
}

func TestGatingServiceUnknownSlugAndAuth(t *testing.T) {
	h := newHarness(t)
	svc := NewGatingService(h.log, h.engine, h.progress)

	if _, err := svc.CheckModuleGating(h.ctx, "99-unknown"); !errors.Is(err, apierr.ErrNotFound) {
		t.Fatalf("err=%v want not found", err)
	}
	if _, err := svc.CanSafelyProceed(h.ctx, "99-unknown"); !errors.Is(err, apierr.ErrNotFound) {
		t.Fatalf("err=%v want not found", err)
	}
	if _, err := svc.GetUnlockedModules(context.Background()); !errors.Is(err, apierr.ErrUnauthorized) {
		t.Fatalf("err=%v want unauthorized", err)
	}

	g, err := svc.CheckModuleGating(h.ctx, "04-binders")
	if err != nil || !g.IsLocked || !g.IsSafetyGate {
		t.Fatalf("gating=%+v err=%v", g, err)
	}
	hints, err := svc.GetUnlockInstructions(h.ctx, "04-binders")
	if err != nil || len(hints) != 2 {
		t.Fatalf("hints=%v err=%v", hints, err)
	}
}

func TestGatingStoreAdapter(t *testing.T) {
	h := newHarness(t)
	store := NewGatingStore(h.users, h.progress, h.readings, h.tools)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}

	for i, score := range []float64{81, 82, 83} {
		row := &types.ReadinessRecord{UserID: h.user.ID, Date: fixedNow.AddDate(0, 0, -i), Score: score}
		if err := h.readings.UpsertByDate(dbc, row); err != nil {
			t.Fatalf("UpsertByDate: %v", err)
		}
	}
	points, err := store.FindReadinessRecords(ctx, h.user.ID, fixedNow.AddDate(0, 0, -1))
	if err != nil {
		t.Fatalf("FindReadinessRecords: %v", err)
	}
	if len(points) != 2 || points[0].Score != 81 || points[1].Score != 82 {
		t.Fatalf("points=%+v", points)
	}

	enr, err := store.FindUser(ctx, h.user.ID)
	if err != nil || enr == nil || !enr.CreatedAt.Equal(fixedNow.AddDate(0, 0, -30)) {
		t.Fatalf("enrollment=%+v err=%v", enr, err)
	}
	if missing, err := store.FindModuleProgress(ctx, h.user.ID, "01-foundations"); err != nil || missing != nil {
		t.Fatalf("progress=%+v err=%v", missing, err)
	}
	if blob, err := store.FindToolState(ctx, h.user.ID, "binder-tolerance"); err != nil || blob != nil {
		t.Fatalf("tool state=%+v err=%v", blob, err)
	}

	h.complete(t, "01-foundations")
	if n, err := store.CountModuleProgress(ctx, h.user.ID, "completed"); err != nil || n != 1 {
		t.Fatalf("count=%d err=%v", n, err)
	}
}
