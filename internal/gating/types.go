package gating

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type RuleType string

const (
	RuleModule     RuleType = "module"
	RuleDrainage   RuleType = "drainage"
	RuleCompletion RuleType = "completion"
	RuleTime       RuleType = "time"
	RuleCustom     RuleType = "custom"
)

type Priority string

const (
	PriorityCritical  Priority = "critical"
	PriorityImportant Priority = "important"
	PriorityNormal    Priority = "normal"
)

// Mode selects how a rule list is walked.
type Mode int

const (
	// ModeShortCircuit stops at the first locked rule.
	ModeShortCircuit Mode = iota
	// ModeExhaustive evaluates every rule.
	ModeExhaustive
)

// Condition is the type-specific parameter bag of a Rule. Only the fields
// relevant to the rule type are read.
type Condition struct {
	RequiredModule     string   `yaml:"required_module,omitempty" json:"requiredModule,omitempty"`
	RequiredModules    []string `yaml:"required_modules,omitempty" json:"requiredModules,omitempty"`
	MinScore           float64  `yaml:"min_score,omitempty" json:"minScore,omitempty"`
	ConsecutiveDays    int      `yaml:"consecutive_days,omitempty" json:"consecutiveDays,omitempty"`
	MinPercentage      float64  `yaml:"min_percentage,omitempty" json:"minPercentage,omitempty"`
	DaysFromEnrollment int      `yaml:"days_from_enrollment,omitempty" json:"daysFromEnrollment,omitempty"`
	Check              string   `yaml:"check,omitempty" json:"check,omitempty"`
}

// modules returns RequiredModule followed by RequiredModules.
func (c Condition) modules() []string {
	out := make([]string, 0, len(c.RequiredModules)+1)
	if c.RequiredModule != "" {
		out = append(out, c.RequiredModule)
	}
	return append(out, c.RequiredModules...)
}

type Rule struct {
	Type      RuleType  `yaml:"type" json:"type"`
	Condition Condition `yaml:"condition" json:"condition"`
	Message   string    `yaml:"message,omitempty" json:"message,omitempty"`
	Priority  Priority  `yaml:"priority,omitempty" json:"priority,omitempty"`
}

type Progress struct {
	Current  float64 `json:"current"`
	Required float64 `json:"required"`
	Unit     string  `json:"unit"`
}

// GatingResult is the UI-facing verdict for one module.
type GatingResult struct {
	IsLocked            bool       `json:"isLocked"`
	LockReason          string     `json:"lockReason,omitempty"`
	UnlockHint          string     `json:"unlockHint,omitempty"`
	Progress            *Progress  `json:"progress,omitempty"`
	EstimatedUnlockDate *time.Time `json:"estimatedUnlockDate,omitempty"`
	IsSafetyGate        bool       `json:"isSafetyGate,omitempty"`
}

// PrerequisiteResult is the checklist verdict. Reason is the first entry of
// MissingRequirements.
type PrerequisiteResult struct {
	IsUnlocked          bool     `json:"isUnlocked"`
	Reason              string   `json:"reason,omitempty"`
	MissingRequirements []string `json:"missingRequirements,omitempty"`
	ProgressPercentage  *int     `json:"progressPercentage,omitempty"`
}

// SafetyAdvice is advisory only; it never locks a module.
type SafetyAdvice struct {
	Safe     bool     `json:"safe"`
	Warnings []string `json:"warnings"`
}

// CustomCheck evaluates a named custom rule. A nil error with IsLocked=false
// means the requirement is met.
type CustomCheck func(ctx context.Context, userID uuid.UUID) (GatingResult, error)

// Predicate adapts a boolean check into a CustomCheck.
func Predicate(fn func(ctx context.Context, userID uuid.UUID) (bool, error), reason, hint string) CustomCheck {
	return func(ctx context.Context, userID uuid.UUID) (GatingResult, error) {
		ok, err := fn(ctx, userID)
		if err != nil {
			return GatingResult{}, err
		}
		if ok {
			return GatingResult{}, nil
		}
		return GatingResult{IsLocked: true, LockReason: reason, UnlockHint: hint}, nil
	}
}
