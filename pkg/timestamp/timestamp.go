// Package timestamp converts between Unix timestamps and human-readable
// dates.
package timestamp

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/ncruces/go-strftime"
)

// MillisThreshold is the largest value read as seconds. Anything above it
// is milliseconds.
const MillisThreshold = 9999999999

// ErrUnparseable is returned when no layout matches a date string.
var ErrUnparseable = errors.New("unrecognized date")

const (
	isoLayout   = "2006-01-02T15:04:05.000Z07:00"
	utcLayout   = "Mon, 02 Jan 2006 15:04:05 GMT"
	localLayout = "1/2/2006, 3:04:05 PM"
)

// FromUnix interprets v as seconds, or as milliseconds above MillisThreshold.
func FromUnix(v int64) time.Time {
	if v > MillisThreshold {
		return time.UnixMilli(v)
	}
	return time.Unix(v, 0)
}

// ParseUnix reads the leading integer of s, ignoring anything after it.
func ParseUnix(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
	}
	v, err := strconv.ParseInt(s[:end], 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return FromUnix(v), nil
}

// Formats holds every rendering of one instant.
type Formats struct {
	Unix     int64  `json:"unix"`
	Millis   int64  `json:"millis"`
	ISO      string `json:"iso"`
	Local    string `json:"local"`
	UTC      string `json:"utc"`
	Relative string `json:"relative"`
	Custom   string `json:"custom,omitempty"`
}

// Options controls Format.
type Options struct {
	// Location for the local rendering. Nil means time.Local.
	Location *time.Location
	// Strftime, when set, adds a Custom rendering (e.g. "%Y-%m-%d %H:%M").
	Strftime string
	// Now is the reference for Relative. Zero means time.Now().
	Now time.Time
}

// Format renders t in every supported form.
func Format(t time.Time, opts Options) Formats {
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	f := Formats{
		Unix:     floorDiv(t.UnixMilli(), 1000),
		Millis:   t.UnixMilli(),
		ISO:      t.UTC().Format(isoLayout),
		Local:    t.In(loc).Format(localLayout),
		UTC:      t.UTC().Format(utcLayout),
		Relative: Relative(t, now),
	}
	if opts.Strftime != "" {
		f.Custom = strftime.Format(opts.Strftime, t.In(loc))
	}
	return f
}

var pastMagnitudes = []humanize.RelTimeMagnitude{
	{D: 2 * time.Second, Format: "1 second %s", DivBy: 1},
	{D: time.Minute, Format: "%d seconds %s", DivBy: time.Second},
	{D: 2 * time.Minute, Format: "1 minute %s", DivBy: 1},
	{D: time.Hour, Format: "%d minutes %s", DivBy: time.Minute},
	{D: 2 * time.Hour, Format: "1 hour %s", DivBy: 1},
	{D: humanize.Day, Format: "%d hours %s", DivBy: time.Hour},
	{D: 2 * humanize.Day, Format: "1 day %s", DivBy: 1},
	{D: math.MaxInt64, Format: "%d days %s", DivBy: humanize.Day},
}

// Relative describes how long before now t was, in the largest whole unit
// from days down to seconds. Anything under a second old, or in the future,
// is "just now".
func Relative(t, now time.Time) string {
	if now.Sub(t) < time.Second {
		return "just now"
	}
	return humanize.CustomRelTime(t, now, "ago", "from now", pastMagnitudes)
}

// Layouts tried by ParseHuman, most specific first. Layouts without a zone
// are read in the caller's location, except a bare date which is UTC.
var Layouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	time.RFC1123,
	time.RFC1123Z,
	time.RFC850,
	time.RFC822,
	time.RFC822Z,
	time.ANSIC,
	time.UnixDate,
	localLayout,
	"1/2/2006 15:04:05",
	"1/2/2006",
	"Jan 2, 2006 15:04:05",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
}

// ParseHuman parses a date string. If layout is set it is a strftime
// format and the only one tried.
func ParseHuman(s, layout string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if loc == nil {
		loc = time.Local
	}
	if layout != "" {
		goLayout, err := strftime.Layout(layout)
		if err != nil {
			return time.Time{}, fmt.Errorf("bad format %q: %w", layout, err)
		}
		return time.ParseInLocation(goLayout, s, loc)
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	for _, l := range Layouts {
		if t, err := time.ParseInLocation(l, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrUnparseable, s)
}

// ToUnix parses a date string and returns whole seconds, rounded down.
func ToUnix(s, layout string, loc *time.Location) (int64, error) {
	t, err := ParseHuman(s, layout, loc)
	if err != nil {
		return 0, err
	}
	return floorDiv(t.UnixMilli(), 1000), nil
}

// Now returns the current time in every rendering.
func Now(opts Options) Formats {
	now := time.Now()
	opts.Now = now
	return Format(now, opts)
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}
