package gating

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/clearpath-backend/internal/domain/tools"
)

const (
	unitDays    = "days"
	unitPercent = "%"

	requirementCustom = "Additional requirements not met"
)

// outcome is the result of one rule. NoData marks a lock caused by missing
// rows rather than by data that fails a threshold.
type outcome struct {
	rule        Rule
	result      GatingResult
	requirement string
	noData      bool
}

func passed(r Rule) outcome { return outcome{rule: r} }

type evaluator func(e *Engine, ctx context.Context, slug string, userID uuid.UUID, r Rule) (outcome, error)

var evaluators = map[RuleType]evaluator{
	RuleModule:     (*Engine).evalModule,
	RuleDrainage:   (*Engine).evalDrainage,
	RuleCompletion: (*Engine).evalCompletion,
	RuleTime:       (*Engine).evalTime,
	RuleCustom:     (*Engine).evalCustom,
}

func (e *Engine) evalRule(ctx context.Context, slug string, userID uuid.UUID, r Rule) (outcome, error) {
	eval, ok := evaluators[r.Type]
	if !ok {
		// Unreachable with a validated config; fail closed anyway.
		return outcome{
			rule:        r,
			result:      GatingResult{IsLocked: true, LockReason: fmt.Sprintf("Unsupported requirement type %q", r.Type)},
			requirement: requirementCustom,
		}, nil
	}
	return eval(e, ctx, slug, userID, r)
}

func (e *Engine) evalModule(ctx context.Context, _ string, userID uuid.UUID, r Rule) (outcome, error) {
	var missing []string
	anyRow := false
	for _, req := range r.Condition.modules() {
		row, err := e.store.FindModuleProgress(ctx, userID, req)
		if err != nil {
			return outcome{}, fmt.Errorf("find module progress %s: %w", req, err)
		}
		if row != nil {
			anyRow = true
		}
		if row == nil || row.Status != StatusCompleted {
			missing = append(missing, req)
		}
	}
	if len(missing) == 0 {
		return passed(r), nil
	}

	titles := make([]string, 0, len(missing))
	for _, slug := range missing {
		titles = append(titles, fmt.Sprintf("%q", e.cfg.title(slug)))
	}
	reason := r.Message
	if reason == "" {
		reason = fmt.Sprintf("Complete %s first", strings.Join(missing, ", "))
	}
	for _, slug := range missing {
		if !strings.Contains(reason, slug) {
			reason = fmt.Sprintf("%s (requires %s)", reason, strings.Join(missing, ", "))
			break
		}
	}
	return outcome{
		rule: r,
		result: GatingResult{
			IsLocked:   true,
			LockReason: reason,
			UnlockHint: fmt.Sprintf("Complete the %s module", strings.Join(titles, ", ")),
		},
		requirement: "Complete modules: " + strings.Join(missing, ", "),
		noData:      !anyRow,
	}, nil
}

// drainageWindow summarizes the readiness days ending at the window anchor.
type drainageWindow struct {
	required int
	// anchor is today when today is logged, otherwise yesterday.
	anchor  time.Time
	tracked int
	latest  float64
	failing int
	// streak counts contiguous passing days back from the anchor.
	streak int
}

// met requires every calendar day of the window to be logged and passing.
func (w drainageWindow) met() bool { return w.tracked >= w.required && w.failing == 0 }

func dayOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// readinessWindow walks `days` consecutive calendar days back from the
// anchor. A user who has not logged today is judged on the window ending
// yesterday. A day without a record counts as untracked and ends the streak.
func (e *Engine) readinessWindow(ctx context.Context, userID uuid.UUID, minScore float64, days int) (drainageWindow, error) {
	today := e.today()
	w := drainageWindow{required: days, anchor: today.AddDate(0, 0, -1)}
	records, err := e.store.FindReadinessRecords(ctx, userID, today.AddDate(0, 0, -days))
	if err != nil {
		return w, fmt.Errorf("find readiness records: %w", err)
	}
	byDay := make(map[time.Time]float64, len(records))
	for _, rec := range records {
		byDay[dayOf(rec.Date)] = rec.Score
	}
	if _, ok := byDay[today]; ok {
		w.anchor = today
	}
	if len(records) > 0 {
		w.latest = records[0].Score
	}

	inStreak := true
	for i := 0; i < days; i++ {
		score, ok := byDay[w.anchor.AddDate(0, 0, -i)]
		switch {
		case !ok:
			inStreak = false
		case score >= minScore:
			w.tracked++
			if inStreak {
				w.streak++
			}
		default:
			w.tracked++
			w.failing++
			inStreak = false
		}
	}
	return w, nil
}

// estimate returns the earliest day the window can be fully passing, assuming
// every future day is logged and passes. When today is not logged yet it
// still counts as one of the days needed.
func (e *Engine) estimate(w drainageWindow) time.Time {
	remaining := w.required - w.streak
	if remaining <= 0 {
		return e.today()
	}
	if w.anchor.Before(e.today()) {
		remaining--
	}
	return e.today().AddDate(0, 0, remaining)
}

func (e *Engine) evalDrainage(ctx context.Context, _ string, userID uuid.UUID, r Rule) (outcome, error) {
	minScore, days := r.Condition.MinScore, r.Condition.ConsecutiveDays
	w, err := e.readinessWindow(ctx, userID, minScore, days)
	if err != nil {
		return outcome{}, err
	}
	if w.met() {
		return passed(r), nil
	}

	reason := r.Message
	if reason == "" {
		reason = fmt.Sprintf("Drainage readiness must stay at or above %.0f%% for %d consecutive days", minScore, days)
	}
	eta := e.estimate(w)

	if w.tracked < days {
		return outcome{
			rule: r,
			result: GatingResult{
				IsLocked:            true,
				LockReason:          reason,
				UnlockHint:          fmt.Sprintf("Track your drainage readiness for %d more day(s)", days-w.tracked),
				Progress:            &Progress{Current: float64(w.tracked), Required: float64(days), Unit: unitDays},
				EstimatedUnlockDate: &eta,
			},
			requirement: fmt.Sprintf("Need %d days of drainage tracking, have %d", days, w.tracked),
			noData:      w.tracked == 0,
		}, nil
	}

	return outcome{
		rule: r,
		result: GatingResult{
			IsLocked:            true,
			LockReason:          reason,
			UnlockHint:          fmt.Sprintf("Keep your drainage readiness at %.0f%% or higher every day for %d days in a row", minScore, days),
			Progress:            &Progress{Current: w.latest, Required: minScore, Unit: unitPercent},
			EstimatedUnlockDate: &eta,
		},
		requirement: fmt.Sprintf("Drainage readiness is %.0f%%, need %.0f%% for %d consecutive days", w.latest, minScore, days),
	}, nil
}

// completionStats returns completed modules, catalog size and the rounded
// completion percentage.
func (e *Engine) completionStats(ctx context.Context, userID uuid.UUID) (completed, total, rate int, err error) {
	total = len(e.cfg.Modules)
	completed, err = e.store.CountModuleProgress(ctx, userID, StatusCompleted)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("count completed modules: %w", err)
	}
	if total > 0 {
		rate = int(math.Round(float64(completed) / float64(total) * 100))
	}
	return completed, total, rate, nil
}

func modulesNeeded(minPercentage float64, total, completed int) int {
	n := int(math.Ceil(minPercentage*float64(total)/100)) - completed
	if n < 0 {
		return 0
	}
	return n
}

func (e *Engine) evalCompletion(ctx context.Context, _ string, userID uuid.UUID, r Rule) (outcome, error) {
	minPct := r.Condition.MinPercentage
	completed, total, rate, err := e.completionStats(ctx, userID)
	if err != nil {
		return outcome{}, err
	}
	if float64(rate) >= minPct {
		return passed(r), nil
	}
	needed := modulesNeeded(minPct, total, completed)
	reason := r.Message
	if reason == "" {
		reason = fmt.Sprintf("Complete %.0f%% of the course to unlock this module", minPct)
	}
	return outcome{
		rule: r,
		result: GatingResult{
			IsLocked:   true,
			LockReason: reason,
			UnlockHint: fmt.Sprintf("Complete %d more module(s)", needed),
			Progress:   &Progress{Current: float64(rate), Required: minPct, Unit: unitPercent},
		},
		requirement: fmt.Sprintf("Complete %d more module(s) (%d%% done, need %.0f%%)", needed, rate, minPct),
		noData:      completed == 0,
	}, nil
}

func (e *Engine) evalTime(ctx context.Context, _ string, userID uuid.UUID, r Rule) (outcome, error) {
	days := r.Condition.DaysFromEnrollment
	u, err := e.store.FindUser(ctx, userID)
	if err != nil {
		return outcome{}, fmt.Errorf("find user: %w", err)
	}
	if u == nil {
		return outcome{
			rule:        r,
			result:      GatingResult{IsLocked: true, LockReason: "User not found"},
			requirement: "User not found",
			noData:      true,
		}, nil
	}
	elapsed := int(e.now().Sub(u.CreatedAt) / (24 * time.Hour))
	if elapsed >= days {
		return passed(r), nil
	}
	remaining := days - elapsed
	eta := u.CreatedAt.UTC().AddDate(0, 0, days)
	reason := r.Message
	if reason == "" {
		reason = fmt.Sprintf("Available %d days after enrollment", days)
	}
	return outcome{
		rule: r,
		result: GatingResult{
			IsLocked:            true,
			LockReason:          reason,
			UnlockHint:          fmt.Sprintf("Available in %d more day(s)", remaining),
			Progress:            &Progress{Current: float64(elapsed), Required: float64(days), Unit: unitDays},
			EstimatedUnlockDate: &eta,
		},
		requirement: fmt.Sprintf("Available in %d more day(s)", remaining),
	}, nil
}

func (e *Engine) evalCustom(ctx context.Context, slug string, userID uuid.UUID, r Rule) (outcome, error) {
	check, ok := e.checks[r.Condition.Check]
	if !ok {
		return outcome{
			rule:        r,
			result:      GatingResult{IsLocked: true, LockReason: fmt.Sprintf("Requirement %q is not available", r.Condition.Check)},
			requirement: requirementCustom,
		}, nil
	}
	res, err := check(ctx, userID)
	if err != nil {
		return outcome{}, fmt.Errorf("custom check %s: %w", r.Condition.Check, err)
	}
	if !res.IsLocked {
		return passed(r), nil
	}
	if r.Message != "" && res.LockReason == "" {
		res.LockReason = r.Message
	}
	return outcome{rule: r, result: res, requirement: requirementCustom}, nil
}

// binderToleranceCheck requires a stored, schema-valid tolerance test result
// with passed=true. Unreadable records lock.
func (e *Engine) binderToleranceCheck(ctx context.Context, userID uuid.UUID) (GatingResult, error) {
	blob, err := e.store.FindToolState(ctx, userID, tools.ToolTypeBinderTolerance)
	if err != nil {
		return GatingResult{}, fmt.Errorf("find tool state: %w", err)
	}
	if blob == nil {
		return GatingResult{
			IsLocked:   true,
			LockReason: "Binder tolerance test has not been completed",
			UnlockHint: "Complete the binder tolerance assessment",
		}, nil
	}
	state, err := tools.DecodeBinderTolerance(blob.State)
	if err != nil {
		if !errors.Is(err, tools.ErrMalformedState) {
			return GatingResult{}, err
		}
		e.log.Warn("binder tolerance state unreadable; keeping module locked", "user_id", userID, "error", err)
		return GatingResult{
			IsLocked:   true,
			LockReason: "Binder tolerance assessment record is unreadable",
			UnlockHint: "Retake the binder tolerance assessment",
		}, nil
	}
	if !state.Passed {
		return GatingResult{
			IsLocked:   true,
			LockReason: "Binder tolerance test not yet passed",
			UnlockHint: "Continue the binder tolerance test until you pass",
		}, nil
	}
	return GatingResult{}, nil
}
