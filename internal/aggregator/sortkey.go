package aggregator

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var firstNumber = regexp.MustCompile(`\d+`)

// groupKey orders phase and building labels. Labels containing digits sort
// numerically on their first integer ahead of purely textual labels, so
// "Phase_5" and "5" land in the same place and "10" follows "9".
type groupKey struct {
	raw     string
	num     int
	numeric bool
}

func newGroupKey(label string) groupKey {
	k := groupKey{raw: label}
	if m := firstNumber.FindString(label); m != "" {
		if n, err := strconv.Atoi(m); err == nil {
			k.num = n
			k.numeric = true
		}
	}
	return k
}

func (k groupKey) less(other groupKey) bool {
	if k.numeric != other.numeric {
		return k.numeric
	}
	if k.numeric && k.num != other.num {
		return k.num < other.num
	}
	return k.raw < other.raw
}

// sortLabels sorts labels in place by mixed key.
func sortLabels(labels []string) {
	sort.SliceStable(labels, func(i, j int) bool {
		return newGroupKey(labels[i]).less(newGroupKey(labels[j]))
	})
}

// displayNumber renders spreadsheet numbers without a trailing ".0".
func displayNumber(s string) string {
	if f, err := strconv.ParseFloat(s, 64); err == nil && f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return s
}

// PhaseLabel is the display name of a phase key.
func PhaseLabel(phase string) string {
	if strings.HasPrefix(strings.ToLower(phase), "phase") {
		return phase
	}
	return "Phase " + displayNumber(phase)
}

// BuildingLabel is the short display name of a building key.
func BuildingLabel(building string) string {
	return "B" + displayNumber(building)
}
