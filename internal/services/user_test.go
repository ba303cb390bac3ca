package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/clearpath-backend/internal/platform/apierr"
	"github.com/yungbote/clearpath-backend/internal/platform/ctxutil"
)

func TestUserServiceEnsureAndGetMe(t *testing.T) {
	h := newHarness(t)
	svc := NewUserService(h.log, h.users)

	ctx := ctxutil.WithRequestData(context.Background(), &ctxutil.RequestData{UserID: uuid.New()})
	if _, err := svc.GetMe(ctx); !errors.Is(err, apierr.ErrNotFound) {
		t.Fatalf("err=%v want not found", err)
	}
	u, err := svc.EnsureUser(ctx, "new@example.com", "New Patient")
	if err != nil {
		t.Fatalf("EnsureUser: %v", err)
	}
	me, err := svc.GetMe(ctx)
	if err != nil || me.ID != u.ID || me.DisplayName != "New Patient" {
		t.Fatalf("me=%+v err=%v", me, err)
	}

	existing, err := svc.EnsureUser(h.ctx, "", "")
	if err != nil || !existing.CreatedAt.Equal(h.user.CreatedAt) {
		t.Fatalf("existing=%+v err=%v", existing, err)
	}
	if _, err := svc.GetMe(context.Background()); !errors.Is(err, apierr.ErrUnauthorized) {
		t.Fatalf("err=%v want unauthorized", err)
	}
}
