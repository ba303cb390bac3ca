package tools

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrMalformedState = errors.New("malformed tool state")

const (
	ReactionNone     = "none"
	ReactionMild     = "mild"
	ReactionModerate = "moderate"
	ReactionSevere   = "severe"
)

// BinderToleranceState is the saved result of the binder tolerance test.
type BinderToleranceState struct {
	Passed      bool      `json:"passed"`
	Binder      string    `json:"binder"`
	DoseMg      float64   `json:"dose_mg"`
	Reaction    string    `json:"reaction"`
	CompletedAt time.Time `json:"completed_at"`
}

// Validate enforces the stored schema. A passed test cannot carry a severe
// reaction.
func (s BinderToleranceState) Validate() error {
	switch s.Reaction {
	case ReactionNone, ReactionMild, ReactionModerate, ReactionSevere:
	default:
		return fmt.Errorf("%w: unknown reaction %q", ErrMalformedState, s.Reaction)
	}
	if strings.TrimSpace(s.Binder) == "" {
		return fmt.Errorf("%w: binder is required", ErrMalformedState)
	}
	if s.DoseMg < 0 {
		return fmt.Errorf("%w: negative dose", ErrMalformedState)
	}
	if s.CompletedAt.IsZero() {
		return fmt.Errorf("%w: completed_at is required", ErrMalformedState)
	}
	if s.Passed && s.Reaction == ReactionSevere {
		return fmt.Errorf("%w: passed with severe reaction", ErrMalformedState)
	}
	return nil
}

// DecodeBinderTolerance parses and validates a stored state blob. Unknown
// fields are rejected.
func DecodeBinderTolerance(raw []byte) (BinderToleranceState, error) {
	var s BinderToleranceState
	if len(bytes.TrimSpace(raw)) == 0 {
		return s, fmt.Errorf("%w: empty", ErrMalformedState)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&s); err != nil {
		return BinderToleranceState{}, fmt.Errorf("%w: %v", ErrMalformedState, err)
	}
	if err := s.Validate(); err != nil {
		return BinderToleranceState{}, err
	}
	return s, nil
}

func EncodeBinderTolerance(s BinderToleranceState) ([]byte, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(s)
}
