package progress

import (
	"errors"
	"fmt"

	"github.com/samber/lo"
)

// StageDescriptor describes one pipeline stage. Presentation fields are passed through untouched.
type StageDescriptor struct {
	Key         StageKey   `json:"key" yaml:"key"`
	DisplayName string     `json:"displayName" yaml:"displayName"`
	Icon        string     `json:"icon" yaml:"icon"`
	Color       string     `json:"color" yaml:"color"`
	Description string     `json:"description" yaml:"description"`
	Aliases     []StageKey `json:"aliases,omitempty" yaml:"aliases,omitempty"`
}

func (d StageDescriptor) matches(key StageKey) bool {
	return d.Key == key || lo.Contains(d.Aliases, key)
}

// Catalog is the ordered, immutable list of stages.
// Order is execution order; it decides which stages count as already finished.
type Catalog struct {
	stages []StageDescriptor
}

// NewCatalog validates descriptors and builds a catalog in the given order.
func NewCatalog(descs ...StageDescriptor) (*Catalog, error) {
	if len(descs) == 0 {
		return nil, errors.New("catalog needs at least one stage")
	}
	keys := lo.FlatMap(descs, func(d StageDescriptor, _ int) []StageKey {
		return append([]StageKey{d.Key}, d.Aliases...)
	})
	if lo.Contains(keys, "") {
		return nil, errors.New("stage key must not be empty")
	}
	if dups := lo.FindDuplicates(keys); len(dups) > 0 {
		return nil, fmt.Errorf("duplicate stage key %q", string(dups[0]))
	}
	stages := make([]StageDescriptor, len(descs))
	copy(stages, descs)
	return &Catalog{stages: stages}, nil
}

var defaultStages = []StageDescriptor{
	{Key: StageInitializing, DisplayName: "Initializing", Icon: "⚙️", Color: "#6B7280", Description: "Setting up the generation pipeline", Aliases: []StageKey{"initialize"}},
	{Key: StageTitle, DisplayName: "Title", Icon: "✏️", Color: "#3B82F6", Description: "Generating a catchy title"},
	{Key: StageScript, DisplayName: "Script", Icon: "📝", Color: "#8B5CF6", Description: "Writing the video script"},
	{Key: StageImages, DisplayName: "Images", Icon: "🖼️", Color: "#EC4899", Description: "Creating visuals for each scene"},
	{Key: StageVoice, DisplayName: "Voice", Icon: "🎙️", Color: "#F59E0B", Description: "Recording the voiceover"},
	{Key: StageVideo, DisplayName: "Video", Icon: "🎬", Color: "#EF4444", Description: "Assembling the final video"},
	{Key: StageCompleted, DisplayName: "Completed", Icon: "✅", Color: "#22C55E", Description: "Your video is ready"},
}

// DefaultCatalog returns the seven stages of the video generation pipeline.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(defaultStages...)
	if err != nil {
		panic(err)
	}
	return c
}

// Lookup returns the descriptor for key or one of its aliases.
func (c *Catalog) Lookup(key StageKey) (StageDescriptor, bool) {
	d, _, ok := lo.FindIndexOf(c.stages, func(d StageDescriptor) bool { return d.matches(key) })
	return d, ok
}

// IndexOf returns the position of key in execution order.
func (c *Catalog) IndexOf(key StageKey) (int, bool) {
	_, idx, ok := lo.FindIndexOf(c.stages, func(d StageDescriptor) bool { return d.matches(key) })
	return idx, ok
}

// Resolve is IndexOf plus Lookup, failing with *UnknownStageError.
func (c *Catalog) Resolve(key StageKey) (int, StageDescriptor, error) {
	d, idx, ok := lo.FindIndexOf(c.stages, func(d StageDescriptor) bool { return d.matches(key) })
	if !ok {
		return -1, StageDescriptor{}, &UnknownStageError{Key: key}
	}
	return idx, d, nil
}

// All returns a copy of the stages in order.
func (c *Catalog) All() []StageDescriptor {
	out := make([]StageDescriptor, len(c.stages))
	copy(out, c.stages)
	return out
}

func (c *Catalog) Len() int {
	return len(c.stages)
}
