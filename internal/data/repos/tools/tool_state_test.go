package tools

import (
	"context"
	"strings"
	"testing"
	"time"

	"gorm.io/datatypes"

	"github.com/yungbote/clearpath-backend/internal/data/repos/testutil"
	types "github.com/yungbote/clearpath-backend/internal/domain"
	"github.com/yungbote/clearpath-backend/internal/platform/dbctx"
)

func TestToolStateRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewToolStateRepo(db, testutil.Logger(t))
	u := testutil.SeedUser(t, ctx, tx, time.Now())

	if row, err := repo.Get(dbc, u.ID, types.ToolTypeBinderTolerance); err != nil || row != nil {
		t.Fatalf("Get (missing): row=%+v err=%v", row, err)
	}

	first := &types.ToolState{UserID: u.ID, ToolType: types.ToolTypeBinderTolerance, State: datatypes.JSON(`{"passed":false}`)}
	if err := repo.Upsert(dbc, first); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	second := &types.ToolState{UserID: u.ID, ToolType: types.ToolTypeBinderTolerance, State: datatypes.JSON(`{"passed":true}`)}
	if err := repo.Upsert(dbc, second); err != nil {
		t.Fatalf("Upsert (replace): %v", err)
	}

	got, err := repo.Get(dbc, u.ID, types.ToolTypeBinderTolerance)
	if err != nil || got == nil {
		t.Fatalf("Get: row=%+v err=%v", got, err)
	}
	if !strings.Contains(string(got.State), "true") {
		t.Fatalf("state=%s", got.State)
	}
}
