package services

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"testing"
	"time"

	"github.com/yungbote/clearpath-backend/internal/platform/apierr"
)

func TestRecordReadinessUnlocksBinders(t *testing.T) {
	h := newHarness(t)
	h.complete(t, "01-foundations", "02-testing-diagnosis", "03-drainage")
	svc := h.tracking()

	for i := 6; i >= 1; i-- {
		_, unlocked, err := svc.RecordReadiness(h.ctx, fixedNow.AddDate(0, 0, -i), ReadinessInput{Score: ptr(85.0)})
		if err != nil {
			t.Fatalf("RecordReadiness day -%d: %v", i, err)
		}
		if len(unlocked) != 0 {
			t.Fatalf("day -%d unlocked %v too early", i, unlocked)
		}
	}

	rec, unlocked, err := svc.RecordReadiness(h.ctx, fixedNow, ReadinessInput{Score: ptr(85.0), Notes: " steady "})
	if err != nil {
		t.Fatalf("RecordReadiness today: %v", err)
	}
	if rec.Score != 85 || rec.Notes != "steady" {
		t.Fatalf("record=%+v", rec)
	}
	if !reflect.DeepEqual(unlocked, []string{"04-binders"}) {
		t.Fatalf("unlocked=%v want [04-binders]", unlocked)
	}
	if n := h.notifier.count("unlocked", "04-binders"); n != 1 {
		t.Fatalf("ModuleUnlocked events=%d want 1", n)
	}

	// Rewriting today with the same score changes nothing.
	if _, unlocked, err = svc.RecordReadiness(h.ctx, fixedNow, ReadinessInput{Score: ptr(90.0)}); err != nil || len(unlocked) != 0 {
		t.Fatalf("rewrite: unlocked=%v err=%v", unlocked, err)
	}
}

func TestRecordReadinessValidation(t *testing.T) {
	h := newHarness(t)
	svc := h.tracking()

	cases := []struct {
		name string
		date time.Time
		in   ReadinessInput
	}{
		{name: "score_above_range", date: fixedNow, in: ReadinessInput{Score: ptr(101.0)}},
		{name: "score_below_range", date: fixedNow, in: ReadinessInput{Score: ptr(-1.0)}},
		{name: "unknown_pathway", date: fixedNow, in: ReadinessInput{SubMetrics: map[string]int{"spleen": 5}}},
		{name: "sub_metric_range", date: fixedNow, in: ReadinessInput{SubMetrics: map[string]int{"bowel": 11}}},
		{name: "empty", date: fixedNow, in: ReadinessInput{}},
		{name: "future", date: fixedNow.AddDate(0, 0, 1), in: ReadinessInput{Score: ptr(50.0)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := svc.RecordReadiness(h.ctx, tc.date, tc.in)
			if !errors.Is(err, apierr.ErrInvalidArgument) {
				t.Fatalf("err=%v want invalid argument", err)
			}
		})
	}
}

func TestRecordReadinessDerivesScoreFromSubMetrics(t *testing.T) {
	h := newHarness(t)
	rec, _, err := h.tracking().RecordReadiness(h.ctx, fixedNow, ReadinessInput{SubMetrics: map[string]int{"bowel": 8, "liver": 6}})
	if err != nil {
		t.Fatalf("RecordReadiness: %v", err)
	}
	if rec.Score != 70 {
		t.Fatalf("score=%v want 70", rec.Score)
	}
	if len(rec.SubMetrics) == 0 {
		t.Fatalf("sub metrics not stored")
	}
}

func TestListReadiness(t *testing.T) {
	h := newHarness(t)
	svc := h.tracking()
	for i := 0; i < 5; i++ {
		if _, _, err := svc.RecordReadiness(h.ctx, fixedNow.AddDate(0, 0, -i), ReadinessInput{Score: ptr(float64(50 + i))}); err != nil {
			t.Fatalf("RecordReadiness: %v", err)
		}
	}
	rows, err := svc.ListReadiness(h.ctx, 3)
	if err != nil {
		t.Fatalf("ListReadiness: %v", err)
	}
	if len(rows) != 3 || rows[0].Score != 50 || rows[2].Score != 52 {
		t.Fatalf("rows=%+v", rows)
	}
	if _, err := svc.ListReadiness(h.ctx, 1000); !errors.Is(err, apierr.ErrInvalidArgument) {
		t.Fatalf("err=%v want invalid argument", err)
	}
	if _, err := svc.ListReadiness(context.Background(), 3); !errors.Is(err, apierr.ErrUnauthorized) {
		t.Fatalf("err=%v want unauthorized", err)
	}
}

func TestRecordReadinessPastDayIsClosed(t *testing.T) {
	h := newHarness(t)
	h.complete(t, "01-foundations", "02-testing-diagnosis", "03-drainage")
	svc := h.tracking()

	for i := 6; i >= 0; i-- {
		score := 85.0
		if i == 3 {
			score = 50
		}
		if _, _, err := svc.RecordReadiness(h.ctx, fixedNow.AddDate(0, 0, -i), ReadinessInput{Score: ptr(score)}); err != nil {
			t.Fatalf("RecordReadiness day -%d: %v", i, err)
		}
	}

	_, unlocked, err := svc.RecordReadiness(h.ctx, fixedNow.AddDate(0, 0, -3), ReadinessInput{Score: ptr(95.0)})
	if !errors.Is(err, ErrReadinessClosed) {
		t.Fatalf("err=%v want ErrReadinessClosed", err)
	}
	if status, code := apierr.Status(err); status != http.StatusConflict || code != "readiness_closed" {
		t.Fatalf("status=%d code=%q", status, code)
	}
	if len(unlocked) != 0 || h.notifier.count("unlocked", "04-binders") != 0 {
		t.Fatalf("rejected rewrite must not unlock: %v", unlocked)
	}

	rows, err := svc.ListReadiness(h.ctx, 7)
	if err != nil {
		t.Fatalf("ListReadiness: %v", err)
	}
	if len(rows) != 7 || rows[3].Score != 50 {
		t.Fatalf("past record changed: %+v", rows)
	}

	g, err := h.engine.CheckModuleGating(h.ctx, "04-binders", h.user.ID)
	if err != nil {
		t.Fatalf("CheckModuleGating: %v", err)
	}
	if !g.IsLocked {
		t.Fatalf("04-binders must stay locked: %+v", g)
	}
}

func TestRecordReadinessBackfillsMissingPastDay(t *testing.T) {
	h := newHarness(t)
	svc := h.tracking()

	rec, _, err := svc.RecordReadiness(h.ctx, fixedNow.AddDate(0, 0, -2), ReadinessInput{Score: ptr(70.0)})
	if err != nil {
		t.Fatalf("backfill: %v", err)
	}
	if rec.Score != 70 {
		t.Fatalf("record=%+v", rec)
	}
}
