package date

import (
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// CalendarMarker is the sentinel that makes a checklist line
// calendar-relevant. Tasks without it are never aggregated.
const CalendarMarker = "📅"

// LegacyFilenamePattern matches daily notes named before the month-note
// format became configurable.
const LegacyFilenamePattern = "YYYY-MM-DD"

var (
	markerDate = regexp.MustCompile(CalendarMarker + `\s*(\d{4}-\d{2}-\d{2})`)
	isoDate    = regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2})\b`)
	slashDate  = regexp.MustCompile(`\b(\d{2}/\d{2}/\d{4})\b`)
	dotDate    = regexp.MustCompile(`\b(\d{2}\.\d{2}\.\d{4})\b`)

	// Keyword tokens are tried in this order so an explicit due date wins
	// over start/scheduled when a line carries several.
	keywordDates = []*regexp.Regexp{
		regexp.MustCompile(`due::?\s*(\d{4}-\d{2}-\d{2})`),
		regexp.MustCompile(`start::?\s*(\d{4}-\d{2}-\d{2})`),
		regexp.MustCompile(`scheduled::?\s*(\d{4}-\d{2}-\d{2})`),
	}

	doubledSpace = regexp.MustCompile(`[ \t]{2,}`)
)

// Midnight truncates t to local midnight. All task dates are stored this
// way; comparisons are by calendar day, never by instant.
func Midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// SameDay reports whether a and b fall on the same calendar day.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// BeforeDay reports whether a falls on a strictly earlier calendar day
// than b. Time-of-day never participates.
func BeforeDay(a, b time.Time) bool {
	return Midnight(a).Before(Midnight(b))
}

// Extract returns the first recognizable date token in text, normalized to
// midnight. Token forms are tried in priority order: the calendar marker
// followed by an ISO date, due/start/scheduled keywords, a bare ISO date,
// DD/MM/YYYY, then DD.MM.YYYY.
func Extract(text string) (time.Time, bool) {
	if m := markerDate.FindStringSubmatch(text); m != nil {
		if t, err := parseISO(m[1]); err == nil {
			return t, true
		}
	}
	for _, re := range keywordDates {
		if m := re.FindStringSubmatch(text); m != nil {
			if t, err := parseISO(m[1]); err == nil {
				return t, true
			}
		}
	}
	if m := isoDate.FindStringSubmatch(text); m != nil {
		if t, err := parseISO(m[1]); err == nil {
			return t, true
		}
	}
	if m := slashDate.FindStringSubmatch(text); m != nil {
		if t, err := time.ParseInLocation("02/01/2006", m[1], time.Local); err == nil {
			return Midnight(t), true
		}
	}
	if m := dotDate.FindStringSubmatch(text); m != nil {
		if t, err := time.ParseInLocation("02.01.2006", m[1], time.Local); err == nil {
			return Midnight(t), true
		}
	}
	return time.Time{}, false
}

// ParseISO parses a YYYY-MM-DD string in the local zone, at midnight.
func ParseISO(s string) (time.Time, error) {
	return parseISO(s)
}

func parseISO(s string) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", s, time.Local)
	if err != nil {
		return time.Time{}, err
	}
	return Midnight(t), nil
}

// StripTokens removes every recognized date token from text, collapsing the
// whitespace each removal leaves behind. The detail popup uses this so task
// lines do not repeat the date shown in its header.
func StripTokens(text string) string {
	out := markerDate.ReplaceAllString(text, "")
	for _, re := range keywordDates {
		out = re.ReplaceAllString(out, "")
	}
	out = isoDate.ReplaceAllString(out, "")
	out = slashDate.ReplaceAllString(out, "")
	out = dotDate.ReplaceAllString(out, "")
	out = doubledSpace.ReplaceAllString(out, " ")
	return strings.TrimRight(out, " \t")
}

// momentTokens maps moment-style pattern tokens to Go reference layout
// fragments, longest token first so YYYY is not consumed as two YYs.
var momentTokens = []struct {
	token  string
	layout string
}{
	{"YYYY", "2006"},
	{"YY", "06"},
	{"MM", "01"},
	{"M", "1"},
	{"DD", "02"},
	{"D", "2"},
}

// Layout converts a moment-style date pattern (the convention note apps use
// for filename formats) into a Go time layout. Unrecognized runes pass
// through as literals.
func Layout(pattern string) string {
	var b strings.Builder
	for i := 0; i < len(pattern); {
		matched := false
		for _, mt := range momentTokens {
			if strings.HasPrefix(pattern[i:], mt.token) {
				b.WriteString(mt.layout)
				i += len(mt.token)
				matched = true
				break
			}
		}
		if !matched {
			b.WriteByte(pattern[i])
			i++
		}
	}
	return b.String()
}

// Format renders t using a moment-style pattern.
func Format(t time.Time, pattern string) string {
	return t.Format(Layout(pattern))
}

// FromFilename resolves a date from a note's filename: first against the
// configured pattern, then against the legacy daily-note pattern. A month
// pattern without a day token resolves to the first of that month.
func FromFilename(name, pattern string) (time.Time, bool) {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	for _, p := range []string{pattern, LegacyFilenamePattern} {
		if p == "" {
			continue
		}
		if t, err := time.ParseInLocation(Layout(p), base, time.Local); err == nil {
			return Midnight(t), true
		}
	}
	return time.Time{}, false
}
