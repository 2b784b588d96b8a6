// Package viewstate turns raw progress events into the resolved state the widgets render.
package viewstate

import (
	"time"

	"github.com/samber/lo"
	"golang.org/x/text/language"

	"genreel/internal/progress"
	"genreel/internal/util/format"
)

// Status is the single classification a widget shows for a job.
type Status int

const (
	StatusRunning Status = iota
	StatusComplete
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusComplete:
		return "complete"
	case StatusError:
		return "error"
	default:
		return "running"
	}
}

// StageProgress is one row of the per-stage breakdown. Percent is verbatim for the current stage.
type StageProgress struct {
	Stage   progress.StageDescriptor `json:"stage" yaml:"stage"`
	Percent float64                  `json:"percent" yaml:"percent"`
}

// ViewState is derived from exactly one event. Each Derive call allocates a fresh Stages slice;
// callers treat the value as read-only.
type ViewState struct {
	CurrentStageIndex  int                      `json:"currentStageIndex" yaml:"currentStageIndex"`
	CurrentStage       progress.StageDescriptor `json:"currentStage" yaml:"currentStage"`
	Percent            float64                  `json:"percent" yaml:"percent"`
	OverallIsComplete  bool                     `json:"overallIsComplete" yaml:"overallIsComplete"`
	HasError           bool                     `json:"hasError" yaml:"hasError"`
	Stages             []StageProgress          `json:"stages" yaml:"stages"`
	Message            string                   `json:"message,omitempty" yaml:"message,omitempty"`
	Details            string                   `json:"details,omitempty" yaml:"details,omitempty"`
	ErrorText          string                   `json:"error,omitempty" yaml:"error,omitempty"`
	FormattedTimestamp string                   `json:"formattedTimestamp" yaml:"formattedTimestamp"`
}

// Status classifies the state. An error wins over completion.
func (v ViewState) Status() Status {
	switch {
	case v.HasError:
		return StatusError
	case v.OverallIsComplete:
		return StatusComplete
	default:
		return StatusRunning
	}
}

// DisplayPercent is the current stage percent clamped for rendering.
func (v ViewState) DisplayPercent() float64 {
	return format.ClampPercent(v.Percent)
}

// OverallPercent is the mean of the clamped per-stage percents.
func (v ViewState) OverallPercent() float64 {
	if len(v.Stages) == 0 {
		return 0
	}
	sum := lo.SumBy(v.Stages, func(s StageProgress) float64 { return format.ClampPercent(s.Percent) })
	return sum / float64(len(v.Stages))
}

// Deriver resolves events against a catalog. It holds no mutable state.
type Deriver struct {
	catalog  *progress.Catalog
	locale   language.Tag
	location *time.Location
}

// Option configures a Deriver.
type Option func(*Deriver)

// WithLocale sets the locale used to pick the time-of-day layout.
func WithLocale(tag language.Tag) Option {
	return func(d *Deriver) {
		d.locale = tag
	}
}

// WithLocation sets the time zone timestamps are rendered in.
func WithLocation(loc *time.Location) Option {
	return func(d *Deriver) {
		if loc != nil {
			d.location = loc
		}
	}
}

// NewDeriver builds a Deriver. A nil catalog means progress.DefaultCatalog().
func NewDeriver(catalog *progress.Catalog, opts ...Option) *Deriver {
	if catalog == nil {
		catalog = progress.DefaultCatalog()
	}
	d := &Deriver{
		catalog:  catalog,
		locale:   language.AmericanEnglish,
		location: time.Local,
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Catalog returns the catalog the deriver resolves against.
func (d *Deriver) Catalog() *progress.Catalog {
	return d.catalog
}

// Derive maps ev to a ViewState. It fails only with *progress.UnknownStageError.
func (d *Deriver) Derive(ev progress.Event) (ViewState, error) {
	current, desc, err := d.catalog.Resolve(ev.Stage)
	if err != nil {
		return ViewState{}, err
	}

	stages := lo.Map(d.catalog.All(), func(s progress.StageDescriptor, i int) StageProgress {
		sp := StageProgress{Stage: s}
		switch {
		case i < current:
			sp.Percent = 100
		case i == current:
			sp.Percent = ev.Percent
		}
		return sp
	})

	vs := ViewState{
		CurrentStageIndex: current,
		CurrentStage:      desc,
		Percent:           ev.Percent,
		OverallIsComplete: ev.Percent == 100,
		HasError:          ev.ReportsError(),
		Stages:            stages,
		Message:           ev.Message,
		ErrorText:         ev.Error,
	}
	if ev.Details != nil {
		vs.Details = *ev.Details
	}
	if ts, ok := ev.Time(); ok {
		vs.FormattedTimestamp = format.TimeOfDay(ts, d.locale, d.location)
	}
	return vs, nil
}
