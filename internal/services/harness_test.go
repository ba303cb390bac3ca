package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/clearpath-backend/internal/data/repos"
	"github.com/yungbote/clearpath-backend/internal/data/repos/testutil"
	types "github.com/yungbote/clearpath-backend/internal/domain"
	"github.com/yungbote/clearpath-backend/internal/gating"
	"github.com/yungbote/clearpath-backend/internal/platform/ctxutil"
	"github.com/yungbote/clearpath-backend/internal/platform/dbctx"
	"github.com/yungbote/clearpath-backend/internal/platform/logger"
)

var fixedNow = time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

type recordedEvent struct {
	kind string
	slug string
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (n *fakeNotifier) ModuleUnlocked(_ context.Context, _ uuid.UUID, m gating.Module) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, recordedEvent{kind: "unlocked", slug: m.Slug})
}

func (n *fakeNotifier) ModuleCompleted(_ context.Context, _ uuid.UUID, m gating.Module) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, recordedEvent{kind: "completed", slug: m.Slug})
}

func (n *fakeNotifier) ReadinessLogged(context.Context, uuid.UUID, time.Time, float64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, recordedEvent{kind: "readiness"})
}

func (n *fakeNotifier) count(kind, slug string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, e := range n.events {
		if e.kind == kind && e.slug == slug {
			c++
		}
	}
	return c
}

type harness struct {
	db       *gorm.DB
	log      *logger.Logger
	users    repos.UserRepo
	progress repos.ModuleProgressRepo
	readings repos.ReadinessRecordRepo
	tools    repos.ToolStateRepo
	engine   *gating.Engine
	notifier *fakeNotifier
	user     *types.User
	ctx      context.Context
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	h := &harness{
		db:       db,
		log:      log,
		users:    repos.NewUserRepo(db, log),
		progress: repos.NewModuleProgressRepo(db, log),
		readings: repos.NewReadinessRecordRepo(db, log),
		tools:    repos.NewToolStateRepo(db, log),
		notifier: &fakeNotifier{},
	}
	cfg, err := gating.DefaultConfig()
	if err != nil {
		t.Fatalf("DefaultConfig: %v", err)
	}
	store := NewGatingStore(h.users, h.progress, h.readings, h.tools)
	h.engine, err = gating.NewEngine(store, cfg,
		gating.WithClock(func() time.Time { return fixedNow }),
		gating.WithLogger(log),
	)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	h.user = testutil.SeedUser(t, context.Background(), db, fixedNow.AddDate(0, 0, -30))
	h.ctx = ctxutil.WithRequestData(context.Background(), &ctxutil.RequestData{UserID: h.user.ID})
	return h
}

func (h *harness) complete(t *testing.T, slugs ...string) {
	t.Helper()
	for _, slug := range slugs {
		row := &types.ModuleProgress{UserID: h.user.ID, ModuleSlug: slug, Status: types.ModuleStatusCompleted}
		if err := h.progress.Upsert(dbctx.Context{Ctx: context.Background()}, row); err != nil {
			t.Fatalf("complete %s: %v", slug, err)
		}
	}
}

func (h *harness) tracking() *trackingService {
	s := NewTrackingService(h.db, h.log, h.readings, h.engine, h.notifier).(*trackingService)
	s.now = func() time.Time { return fixedNow }
	return s
}

func (h *harness) progressSvc() *progressService {
	s := NewProgressService(h.db, h.log, h.progress, h.engine, h.notifier).(*progressService)
	s.now = func() time.Time { return fixedNow }
	return s
}

func ptr[T any](v T) *T { return &v }
