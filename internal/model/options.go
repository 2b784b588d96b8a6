package model

import (
	"time"

	"golang.org/x/text/language"
)

// WatchOptions holds the resolved inputs of watch and demo, as parsed from flags and config.
type WatchOptions struct {
	Sources     []string // files or "-" for stdin; one job each
	View        string   // compact | player
	NoUI        bool     // Disable TUI when true
	VideoURL    string   // delivered video location supplied out of band
	MetricsFile string   // node_exporter textfile written when all jobs end

	Grace    time.Duration
	Locale   language.Tag
	Location *time.Location
}

// ReadsStdin reports whether any source is standard input. The TUI cannot share stdin with it.
func (o WatchOptions) ReadsStdin() bool {
	for _, s := range o.Sources {
		if s == "-" {
			return true
		}
	}
	return false
}
