// Package format holds small display helpers shared by the deriver and the widgets.
package format

import (
	"math"
	"strconv"
	"time"

	"golang.org/x/text/language"
)

const (
	layout12h = "3:04:05 PM"
	layout24h = "15:04:05"
)

// Regions whose default clock is 12-hour.
var twelveHourRegions = map[string]bool{
	"US": true, "CA": true, "AU": true, "NZ": true, "IN": true,
	"PH": true, "PK": true, "BD": true, "EG": true, "SA": true,
}

// ParseLocale parses a BCP 47 tag such as "en-US" or "de_DE". Empty or invalid input yields en-US.
func ParseLocale(s string) language.Tag {
	if s == "" {
		return language.AmericanEnglish
	}
	tag, err := language.Parse(s)
	if err != nil {
		return language.AmericanEnglish
	}
	return tag
}

// TimeLayout picks the time-of-day layout for a locale.
func TimeLayout(tag language.Tag) string {
	region, _ := tag.Region()
	if twelveHourRegions[region.String()] {
		return layout12h
	}
	return layout24h
}

// TimeOfDay renders t as hours:minutes:seconds in loc using the locale's clock convention.
func TimeOfDay(t time.Time, tag language.Tag, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format(TimeLayout(tag))
}

// Clamp returns v constrained to [min, max]. NaN maps to min.
func Clamp(v, min, max float64) float64 {
	if math.IsNaN(v) || v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// ClampPercent is Clamp to [0, 100].
func ClampPercent(p float64) float64 {
	return Clamp(p, 0, 100)
}

// Percent renders a clamped percentage with one decimal, e.g. "42.5%".
func Percent(p float64) string {
	var buf [8]byte
	s := strconv.AppendFloat(buf[:0], ClampPercent(p), 'f', 1, 64)
	return string(s) + "%"
}
