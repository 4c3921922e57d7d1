package labels

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fe-devtools/devflow/internal/regex"
)

// LabelSet keeps labels in the order they were first added, without
// duplicates. The zero value is ready to use.
type LabelSet struct {
	order []string
	seen  map[string]struct{}
}

func NewLabelSet(labels ...string) *LabelSet {
	s := &LabelSet{}
	s.Add(labels...)
	return s
}

// Add appends the labels not already present. Blank labels are ignored.
func (s *LabelSet) Add(labels ...string) {
	if s.seen == nil {
		s.seen = make(map[string]struct{})
	}
	for _, l := range labels {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		if _, ok := s.seen[l]; ok {
			continue
		}
		s.seen[l] = struct{}{}
		s.order = append(s.order, l)
	}
}

func (s *LabelSet) Has(label string) bool {
	_, ok := s.seen[label]
	return ok
}

func (s *LabelSet) Len() int {
	return len(s.order)
}

// List returns a copy of the labels in insertion order.
func (s *LabelSet) List() []string {
	return append([]string(nil), s.order...)
}

type version struct {
	major, minor, patch int
}

func parseVersion(v string) (version, bool) {
	m := regex.SemVer.FindStringSubmatch(strings.TrimSpace(v))
	if m == nil {
		return version{}, false
	}
	var out version
	out.major, _ = strconv.Atoi(m[1])
	out.minor, _ = strconv.Atoi(m[2])
	if m[3] != "" {
		out.patch, _ = strconv.Atoi(m[3])
	}
	return out, true
}

// ExtractVersionLabel turns a fix version such as "5.35.3" into "v5.35".
func ExtractVersionLabel(fixVersion string) (string, bool) {
	v, ok := parseVersion(fixVersion)
	if !ok {
		return "", false
	}
	return fmt.Sprintf("v%d.%d", v.major, v.minor), true
}

// IsHotfix reports whether the fix version has a non-zero patch component.
func IsHotfix(fixVersion string) bool {
	v, ok := parseVersion(fixVersion)
	return ok && v.patch != 0
}

// ExtractReleaseBranch returns release/{major}.{minor} for a fix version.
func ExtractReleaseBranch(fixVersion string) (string, bool) {
	v, ok := parseVersion(fixVersion)
	if !ok {
		return "", false
	}
	return fmt.Sprintf("release/%d.%d", v.major, v.minor), true
}
