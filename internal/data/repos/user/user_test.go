package user

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/clearpath-backend/internal/data/repos/testutil"
	types "github.com/yungbote/clearpath-backend/internal/domain"
	"github.com/yungbote/clearpath-backend/internal/platform/dbctx"
)

func TestUserRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	repo := NewUserRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}

	email := "userrepo@example.com"
	created, err := repo.Create(dbc, []*types.User{{Email: &email, DisplayName: "A"}})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(created) != 1 || created[0].ID == uuid.Nil {
		t.Fatalf("Create: unexpected result: %+v", created)
	}

	got, err := repo.GetByID(dbc, created[0].ID)
	if err != nil || got == nil || got.DisplayName != "A" {
		t.Fatalf("GetByID: got=%+v err=%v", got, err)
	}

	missing, err := repo.GetByID(dbc, uuid.New())
	if err != nil || missing != nil {
		t.Fatalf("GetByID (missing): got=%+v err=%v", missing, err)
	}

	if rows, err := repo.GetByIDs(dbc, []uuid.UUID{created[0].ID}); err != nil || len(rows) != 1 {
		t.Fatalf("GetByIDs: err=%v len=%d", err, len(rows))
	}

	if err := repo.UpdateDisplayName(dbc, created[0].ID, " B "); err != nil {
		t.Fatalf("UpdateDisplayName: %v", err)
	}
	if got, _ := repo.GetByID(dbc, created[0].ID); got == nil || got.DisplayName != "B" {
		t.Fatalf("UpdateDisplayName: got=%+v", got)
	}
}

func TestUserRepoEnsureKeepsEnrollment(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	repo := NewUserRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}
	id := uuid.New()

	first, err := repo.Ensure(dbc, id, "Patient@Example.com", "Pat")
	if err != nil || first == nil {
		t.Fatalf("Ensure: got=%+v err=%v", first, err)
	}
	if first.Email == nil || *first.Email != "patient@example.com" {
		t.Fatalf("Ensure: email=%v", first.Email)
	}

	time.Sleep(10 * time.Millisecond)
	second, err := repo.Ensure(dbc, id, "other@example.com", "Other")
	if err != nil || second == nil {
		t.Fatalf("Ensure (again): got=%+v err=%v", second, err)
	}
	if !second.CreatedAt.Equal(first.CreatedAt) || second.DisplayName != "Pat" {
		t.Fatalf("Ensure must not modify an existing user: first=%+v second=%+v", first, second)
	}

	anon, err := repo.Ensure(dbc, uuid.New(), "", "")
	if err != nil || anon == nil || anon.Email != nil {
		t.Fatalf("Ensure (no email): got=%+v err=%v", anon, err)
	}
}
