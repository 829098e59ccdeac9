package boss

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ETA label grammars observed on the world boss page. The site renders the
// headline countdown as "2h 14m 03s" but falls back to prose
// ("1 day, 2 hours, 3 mins"), clock forms, or a bare "Active" marker.
var (
	hmsCompactRe = regexp.MustCompile(`^(?:(\d+)\s*h\s*)?(?:(\d+)\s*m\s*)?(?:(\d+)\s*s)?$`)
	proseRe      = regexp.MustCompile(`^(?:(\d+)\s*days?,?\s*)?(?:(\d+)\s*hours?,?\s*)?(?:(\d+)\s*min(?:ute)?s?)?$`)
	clockRe      = regexp.MustCompile(`^(?:(\d{1,2}):)?(\d{1,2}):(\d{2})$`)
	bareMinRe    = regexp.MustCompile(`^(\d+)\s*(?:minutes?|mins?|m)$`)
	bareSecsRe   = regexp.MustCompile(`^\d+$`)
)

// ParseETA normalizes a countdown label to whole seconds. The second return
// reports an "in progress" indicator; an active boss parses as (0, true).
// Unrecognized labels return an error rather than a guessed value.
func ParseETA(label string) (int, bool, error) {
	norm := strings.ToLower(strings.Join(strings.Fields(label), " "))
	if norm == "" {
		return 0, false, fmt.Errorf("empty eta label")
	}
	if strings.Contains(norm, "active") || strings.Contains(norm, "actif") || strings.Contains(norm, "in progress") {
		return 0, true, nil
	}

	if m := hmsCompactRe.FindStringSubmatch(norm); m != nil && (m[1] != "" || m[2] != "" || m[3] != "") {
		return atoi(m[1])*3600 + atoi(m[2])*60 + atoi(m[3]), false, nil
	}
	if m := proseRe.FindStringSubmatch(norm); m != nil && (m[1] != "" || m[2] != "" || m[3] != "") {
		return atoi(m[1])*86400 + atoi(m[2])*3600 + atoi(m[3])*60, false, nil
	}
	if m := clockRe.FindStringSubmatch(norm); m != nil {
		return atoi(m[1])*3600 + atoi(m[2])*60 + atoi(m[3]), false, nil
	}
	if m := bareMinRe.FindStringSubmatch(norm); m != nil {
		return atoi(m[1]) * 60, false, nil
	}
	if bareSecsRe.MatchString(norm) {
		return atoi(norm), false, nil
	}
	return 0, false, fmt.Errorf("unrecognized eta label %q", label)
}

// FormatETA renders seconds in the site's compact form, e.g. 3723 ->
// "1h 02m 03s". FormatETA and ParseETA round-trip.
func FormatETA(seconds int) string {
	if seconds <= 0 {
		return "0s"
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%dh %02dm %02ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm %02ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}

func atoi(s string) int {
	if s == "" {
		return 0
	}
	n, _ := strconv.Atoi(s)
	return n
}
