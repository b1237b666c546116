// Package rx parses human-written prescription strings like "3x5-8",
// "2-3 x 10-15/side" or "alt: 3x8, 4x6-8" into numeric set/rep targets.
package rx

import (
	"regexp"
	"strconv"
	"strings"
)

// Scheme is the numeric target extracted from a prescription string.
// For ranges the upper bound wins, since the logbook pre-fills the
// ambitious end of the prescription.
type Scheme struct {
	MaxSets int `json:"maxSets"`
	MaxReps int `json:"maxReps"`
}

// A[-B] x C[-D], with optional whitespace, x/X/× separators,
// and hyphen or en-dash ranges. Anchored so that prose that merely
// contains a scheme ("warmup then 3x5 heavy") is rejected.
var schemeRegex = regexp.MustCompile(`^(\d+)(?:\s*[-–]\s*(\d+))?\s*[xX×]\s*(\d+)(?:\s*[-–]\s*(\d+))?$`)

var perSideRegex = regexp.MustCompile(`(?i)\s*/\s*side\s*$`)

// Parse extracts a Scheme from a prescription string. Returns ok=false
// for empty or unrecognized input; never an error, callers simply skip
// the auto-fill.
func Parse(rx string) (Scheme, bool) {
	s := strings.TrimSpace(rx)
	if s == "" {
		return Scheme{}, false
	}

	// "alt: 3x8, 4x6-8" prescribes alternatives; the last one is the
	// current prescription.
	if rest, ok := cutAltPrefix(s); ok {
		parts := strings.Split(rest, ",")
		s = strings.TrimSpace(parts[len(parts)-1])
	}

	s = perSideRegex.ReplaceAllString(s, "")

	m := schemeRegex.FindStringSubmatch(s)
	if m == nil {
		return Scheme{}, false
	}

	sets, _ := strconv.Atoi(m[1])
	if m[2] != "" {
		sets, _ = strconv.Atoi(m[2])
	}
	reps, _ := strconv.Atoi(m[3])
	if m[4] != "" {
		reps, _ = strconv.Atoi(m[4])
	}

	return Scheme{MaxSets: sets, MaxReps: reps}, true
}

func cutAltPrefix(s string) (string, bool) {
	if len(s) < 4 || !strings.EqualFold(s[:4], "alt:") {
		return s, false
	}
	return strings.TrimSpace(s[4:]), true
}
