package services

import (
	"errors"
	"net/http"
	"testing"

	types "github.com/yungbote/clearpath-backend/internal/domain"
	"github.com/yungbote/clearpath-backend/internal/platform/apierr"
)

func TestStartModuleRejectsLockedModule(t *testing.T) {
	h := newHarness(t)
	_, err := h.progressSvc().StartModule(h.ctx, "02-testing-diagnosis")
	if !errors.Is(err, ErrModuleLocked) {
		t.Fatalf("err=%v want ErrModuleLocked", err)
	}
	if status, code := apierr.Status(err); status != http.StatusForbidden || code != "module_locked" {
		t.Fatalf("status=%d code=%s", status, code)
	}
}

func TestStartModule(t *testing.T) {
	h := newHarness(t)
	upd, err := h.progressSvc().StartModule(h.ctx, "01-foundations")
	if err != nil {
		t.Fatalf("StartModule: %v", err)
	}
	if upd.Progress.Status != types.ModuleStatusInProgress || upd.Progress.StartedAt == nil {
		t.Fatalf("progress=%+v", upd.Progress)
	}
	if len(upd.Unlocked) != 0 {
		t.Fatalf("unlocked=%v", upd.Unlocked)
	}
}

func TestCompleteLessonsCompletesModuleAndUnlocksNext(t *testing.T) {
	h := newHarness(t)
	svc := h.progressSvc()
	m, _ := h.engine.Config().Module("01-foundations")

	var last *ProgressUpdate
	for i, lesson := range m.Lessons {
		upd, err := svc.CompleteLesson(h.ctx, m.Slug, lesson)
		if err != nil {
			t.Fatalf("CompleteLesson %s: %v", lesson, err)
		}
		if i < len(m.Lessons)-1 && upd.Progress.Status != types.ModuleStatusInProgress {
			t.Fatalf("after %d lessons status=%s", i+1, upd.Progress.Status)
		}
		last = upd
	}
	if last.Progress.Status != types.ModuleStatusCompleted || last.Progress.CompletedAt == nil {
		t.Fatalf("final progress=%+v", last.Progress)
	}
	if len(last.Progress.LessonIDs()) != len(m.Lessons) {
		t.Fatalf("lessons=%v", last.Progress.LessonIDs())
	}
	if len(last.Unlocked) != 1 || last.Unlocked[0] != "02-testing-diagnosis" {
		t.Fatalf("unlocked=%v", last.Unlocked)
	}
	if h.notifier.count("completed", "01-foundations") != 1 || h.notifier.count("unlocked", "02-testing-diagnosis") != 1 {
		t.Fatalf("events=%+v", h.notifier.events)
	}

	// Repeating a lesson is idempotent and does not re-announce anything.
	upd, err := svc.CompleteLesson(h.ctx, m.Slug, m.Lessons[0])
	if err != nil {
		t.Fatalf("CompleteLesson (repeat): %v", err)
	}
	if len(upd.Progress.LessonIDs()) != len(m.Lessons) || h.notifier.count("completed", "01-foundations") != 1 {
		t.Fatalf("repeat changed state: %+v", upd.Progress)
	}
}

func TestCompleteLessonUnknown(t *testing.T) {
	h := newHarness(t)
	svc := h.progressSvc()
	if _, err := svc.CompleteLesson(h.ctx, "01-foundations", "no-such-lesson"); !errors.Is(err, apierr.ErrNotFound) {
		t.Fatalf("err=%v want not found", err)
	}
	if _, err := svc.CompleteModule(h.ctx, "99-unknown"); !errors.Is(err, apierr.ErrNotFound) {
		t.Fatalf("err=%v want not found", err)
	}
}

func TestCompleteModuleAndList(t *testing.T) {
	h := newHarness(t)
	svc := h.progressSvc()
	if _, err := svc.CompleteModule(h.ctx, "01-foundations"); err != nil {
		t.Fatalf("CompleteModule: %v", err)
	}
	if _, err := svc.StartModule(h.ctx, "02-testing-diagnosis"); err != nil {
		t.Fatalf("StartModule: %v", err)
	}
	rows, err := svc.ListProgress(h.ctx)
	if err != nil {
		t.Fatalf("ListProgress: %v", err)
	}
	if len(rows) != 2 || rows[0].ModuleSlug != "01-foundations" || rows[0].Status != types.ModuleStatusCompleted {
		t.Fatalf("rows=%+v", rows)
	}
}
