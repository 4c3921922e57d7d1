package impact

import (
	"context"

	"github.com/fe-devtools/devflow/internal/models"
)

type Variant int

const (
	V3 Variant = iota + 1
	V4
)

func (v Variant) String() string {
	switch v {
	case V3:
		return "v3"
	case V4:
		return "v4"
	default:
		return "unknown"
	}
}

func (v Variant) other() Variant {
	if v == V3 {
		return V4
	}
	return V3
}

// Scope is the set of UI variants a change affects.
type Scope struct {
	V3 bool `json:"v3"`
	V4 bool `json:"v4"`
}

// All is the fail-open answer used when nothing points at a variant.
var All = Scope{V3: true, V4: true}

func (s Scope) Empty() bool {
	return !s.V3 && !s.V4
}

func (s Scope) Has(v Variant) bool {
	if v == V3 {
		return s.V3
	}
	return s.V4
}

func (s *Scope) Add(v Variant) {
	if v == V3 {
		s.V3 = true
	} else {
		s.V4 = true
	}
}

func (s *Scope) Remove(v Variant) {
	if v == V3 {
		s.V3 = false
	} else {
		s.V4 = false
	}
}

func (s Scope) Or(o Scope) Scope {
	return Scope{V3: s.V3 || o.V3, V4: s.V4 || o.V4}
}

// Signal is what one file says about the variants. A signal without Evidence
// carries no information and does not narrow the overall scope.
type Signal struct {
	Scope
	Evidence bool
	Reasons  []string
}

func (s *Signal) mark(v Variant, reason string) {
	s.Add(v)
	s.Evidence = true
	s.Reasons = append(s.Reasons, reason)
}

// FileChange is everything a classifier may look at for one file.
type FileChange struct {
	Path     string
	Status   models.ChangeStatus
	Hunks    []models.DiffHunk
	Content  string
	PreImage string
}

// Classifier decides which variants a file change affects. Implementations
// never fail; no evidence is reported as a Signal without Evidence.
type Classifier interface {
	Classify(ctx context.Context, change FileChange) Signal
}
