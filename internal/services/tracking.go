package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"sort"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/clearpath-backend/internal/data/repos"
	types "github.com/yungbote/clearpath-backend/internal/domain"
	"github.com/yungbote/clearpath-backend/internal/domain/tracking"
	"github.com/yungbote/clearpath-backend/internal/gating"
	"github.com/yungbote/clearpath-backend/internal/platform/apierr"
	"github.com/yungbote/clearpath-backend/internal/platform/dbctx"
	"github.com/yungbote/clearpath-backend/internal/platform/logger"
)

const (
	defaultReadinessDays = 30
	maxReadinessDays     = 365
	maxNotesLength       = 2000
)

// ReadinessInput is one day's entry. When Score is nil it is derived from
// SubMetrics as the mean pathway rating scaled to 0..100.
// ErrReadinessClosed is returned when a past day that already has a record
// is written again.
var ErrReadinessClosed = errors.New("readiness day closed")

type ReadinessInput struct {
	Score      *float64       `json:"score"`
	SubMetrics map[string]int `json:"sub_metrics"`
	Notes      string         `json:"notes"`
}

type TrackingService interface {
	RecordReadiness(ctx context.Context, date time.Time, in ReadinessInput) (*types.ReadinessRecord, []string, error)
	ListReadiness(ctx context.Context, days int) ([]*types.ReadinessRecord, error)
}

type trackingService struct {
	db        *gorm.DB
	log       *logger.Logger
	readiness repos.ReadinessRecordRepo
	watcher   *unlockWatcher
	notifier  ModuleNotifier
	now       func() time.Time
}

func NewTrackingService(db *gorm.DB, log *logger.Logger, readiness repos.ReadinessRecordRepo, engine *gating.Engine, notifier ModuleNotifier) TrackingService {
	serviceLog := log.With("service", "TrackingService")
	return &trackingService{
		db:        db,
		log:       serviceLog,
		readiness: readiness,
		watcher:   &unlockWatcher{log: serviceLog, engine: engine, notifier: notifier},
		notifier:  notifier,
		now:       time.Now,
	}
}

func validateReadiness(in ReadinessInput) (float64, error) {
	for key, v := range in.SubMetrics {
		if !knownPathway(key) {
			return 0, apierr.Invalid("unknown pathway %q", key)
		}
		if v < tracking.MinSubMetric || v > tracking.MaxSubMetric {
			return 0, apierr.Invalid("%s must be between %d and %d", key, tracking.MinSubMetric, tracking.MaxSubMetric)
		}
	}
	if len(in.Notes) > maxNotesLength {
		return 0, apierr.Invalid("notes longer than %d characters", maxNotesLength)
	}
	if in.Score != nil {
		score := *in.Score
		if math.IsNaN(score) || score < tracking.MinScore || score > tracking.MaxScore {
			return 0, apierr.Invalid("score must be between %d and %d", tracking.MinScore, tracking.MaxScore)
		}
		return score, nil
	}
	if len(in.SubMetrics) == 0 {
		return 0, apierr.Invalid("score or sub_metrics required")
	}
	sum := 0
	for _, v := range in.SubMetrics {
		sum += v
	}
	mean := float64(sum) / float64(len(in.SubMetrics))
	return math.Round(mean / tracking.MaxSubMetric * 100), nil
}

func knownPathway(key string) bool {
	for _, p := range tracking.Pathways {
		if p == key {
			return true
		}
	}
	return false
}

// RecordReadiness upserts the day's record and returns it along with the
// modules the write unlocked. Today's record may be rewritten. A past day
// may be backfilled once; an existing past record is closed and yields 409.
func (s *trackingService) RecordReadiness(ctx context.Context, date time.Time, in ReadinessInput) (*types.ReadinessRecord, []string, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, nil, err
	}
	day := tracking.Day(date)
	today := tracking.Day(s.now())
	if day.After(today) {
		return nil, nil, apierr.Invalid("date %s is in the future", day.Format("2006-01-02"))
	}
	score, err := validateReadiness(in)
	if err != nil {
		return nil, nil, err
	}

	var subMetrics datatypes.JSON
	if len(in.SubMetrics) > 0 {
		raw, err := json.Marshal(in.SubMetrics)
		if err != nil {
			return nil, nil, err
		}
		subMetrics = datatypes.JSON(raw)
	}

	watched := s.watcher.engine.Config().ModulesWithRule(gating.RuleDrainage)
	before := s.watcher.snapshot(ctx, userID, watched)

	var out *types.ReadinessRecord
	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		if day.Before(today) {
			existing, err := s.readiness.GetByDate(dbc, userID, day)
			if err != nil {
				return err
			}
			if existing != nil {
				return apierr.New(http.StatusConflict, "readiness_closed",
					fmt.Errorf("%w: %s already recorded", ErrReadinessClosed, day.Format("2006-01-02")))
			}
		}
		row := &types.ReadinessRecord{
			UserID:     userID,
			Date:       day,
			Score:      score,
			SubMetrics: subMetrics,
			Notes:      strings.TrimSpace(in.Notes),
		}
		if err := s.readiness.UpsertByDate(dbc, row); err != nil {
			return fmt.Errorf("upsert readiness: %w", err)
		}
		saved, err := s.readiness.GetByDate(dbc, userID, day)
		if err != nil {
			return err
		}
		out = saved
		return nil
	}); err != nil {
		if errors.Is(err, ErrReadinessClosed) {
			return nil, nil, err
		}
		s.log.Error("record readiness failed", "user_id", userID, "error", err)
		return nil, nil, err
	}

	s.log.Debug("readiness recorded", "user_id", userID, "date", day.Format("2006-01-02"), "score", score, "sub_metrics", in.SubMetrics)
	if s.notifier != nil {
		s.notifier.ReadinessLogged(ctx, userID, day, score)
	}
	unlocked := s.watcher.publish(ctx, userID, before)
	return out, unlocked, nil
}

// ListReadiness returns the last days calendar days of records, most recent first.
func (s *trackingService) ListReadiness(ctx context.Context, days int) ([]*types.ReadinessRecord, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	if days <= 0 {
		days = defaultReadinessDays
	}
	if days > maxReadinessDays {
		return nil, apierr.Invalid("days must be at most %d", maxReadinessDays)
	}
	since := tracking.Day(s.now()).AddDate(0, 0, -(days - 1))
	rows, err := s.readiness.ListSince(dbctx.Context{Ctx: ctx}, userID, since)
	if err != nil {
		return nil, fmt.Errorf("list readiness: %w", err)
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Date.After(rows[j].Date) })
	return rows, nil
}
