package progress

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// StageKey identifies a high-level step in the generation pipeline.
type StageKey string

const (
	StageInitializing StageKey = "initializing"
	StageTitle        StageKey = "title"
	StageScript       StageKey = "script"
	StageImages       StageKey = "images"
	StageVoice        StageKey = "voice"
	StageVideo        StageKey = "video"
	StageCompleted    StageKey = "completed"
)

// ErrUnknownStage is matched by errors.Is for any event whose stage is not in the catalog.
var ErrUnknownStage = errors.New("unknown stage")

// UnknownStageError reports the offending key.
type UnknownStageError struct {
	Key StageKey
}

func (e *UnknownStageError) Error() string {
	return fmt.Sprintf("unknown stage %q", string(e.Key))
}

func (e *UnknownStageError) Is(target error) bool {
	return target == ErrUnknownStage
}

// Event is one progress snapshot reported by the external generation job.
// Percent is relative to the current stage, not the whole pipeline, and is not trusted to be in 0..100.
type Event struct {
	JobID   string   `json:"jobId,omitempty" yaml:"jobId,omitempty"`
	Stage   StageKey `json:"stage" yaml:"stage"`
	Percent float64  `json:"progress" yaml:"progress"`
	Message string   `json:"message,omitempty" yaml:"message,omitempty"`

	Details   *string  `json:"details,omitempty" yaml:"details,omitempty"`     // free text; legacy error marker
	Error     string   `json:"error,omitempty" yaml:"error,omitempty"`         // structured error payload
	Timestamp *float64 `json:"timestamp,omitempty" yaml:"timestamp,omitempty"` // unix seconds
	VideoURL  string   `json:"videoUrl,omitempty" yaml:"videoUrl,omitempty"`
}

// legacyErrorMarker is the case-sensitive substring older job runners put in Details on failure.
const legacyErrorMarker = "Error"

// ReportsError reports whether the job flagged this event as failed.
// The structured Error field wins; the Details substring check is kept for runners that cannot send it.
func (e Event) ReportsError() bool {
	if e.Error != "" {
		return true
	}
	return e.Details != nil && strings.Contains(*e.Details, legacyErrorMarker)
}

// Time returns the event timestamp, or ok=false when absent or not a finite number.
func (e Event) Time() (t time.Time, ok bool) {
	if e.Timestamp == nil {
		return time.Time{}, false
	}
	ts := *e.Timestamp
	if math.IsNaN(ts) || math.IsInf(ts, 0) {
		return time.Time{}, false
	}
	sec, frac := math.Modf(ts)
	return time.Unix(int64(sec), int64(frac*float64(time.Second))), true
}

// StringPtr is a small helper for building events with Details.
func StringPtr(s string) *string {
	return &s
}

// Float64Ptr is a small helper for building events with Timestamp.
func Float64Ptr(f float64) *float64 {
	return &f
}
