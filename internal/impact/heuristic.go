package impact

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/fe-devtools/devflow/internal/logger"
	"github.com/fe-devtools/devflow/internal/models"
	"github.com/fe-devtools/devflow/internal/regex"
)

const (
	headerLines     = 20
	ternaryWindow   = 30
	proximityWindow = 10
)

var _ Classifier = HeuristicClassifier{}

// HeuristicClassifier guesses the affected variants from text alone. It is
// best effort: it knows nothing about the language beyond brackets, strings
// and comments, and it will both miss and invent impact.
type HeuristicClassifier struct{}

func (HeuristicClassifier) Classify(ctx context.Context, change FileChange) Signal {
	var sig Signal
	if change.Status == models.StatusDeleted {
		return sig
	}

	if pathSignal(change.Path, &sig) {
		return sig
	}
	if headerSignal(change.Content, &sig) {
		return sig
	}

	current := strings.Split(change.Content, "\n")
	var previous []string
	if change.PreImage != "" {
		previous = strings.Split(change.PreImage, "\n")
	}

	for _, h := range change.Hunks {
		for _, line := range h.Lines {
			lines, idx := current, line.LineNumber-1
			if line.Kind == models.LineRemoved {
				if previous != nil {
					lines = previous
				} else {
					idx = line.Anchor - 1
				}
			}
			if idx < 0 || idx >= len(lines) {
				continue
			}

			if scope, ok := ternaryScope(lines, idx, line, h); ok {
				for _, v := range []Variant{V3, V4} {
					if scope.Has(v) {
						sig.mark(v, fmt.Sprintf("ternary %s line %d", v, line.LineNumber))
					}
				}
				continue
			}
			if scope, ok := proximityScope(lines, idx); ok {
				for _, v := range []Variant{V3, V4} {
					if scope.Has(v) {
						sig.mark(v, fmt.Sprintf("near %s predicate line %d", v, line.LineNumber))
					}
				}
			}
		}
	}

	if sig.V3 && sig.V4 && change.PreImage != "" {
		suppressRestored(ctx, change, &sig)
	}
	return sig
}

func pathSignal(path string, sig *Signal) bool {
	if regex.PathV3.MatchString(path) {
		sig.mark(V3, "path "+path)
	}
	if regex.PathV4.MatchString(path) {
		sig.mark(V4, "path "+path)
	}
	return sig.Evidence
}

func headerSignal(content string, sig *Signal) bool {
	lines := strings.SplitN(content, "\n", headerLines+1)
	if len(lines) > headerLines {
		lines = lines[:headerLines]
	}
	for _, l := range lines {
		if regex.HeaderV3.MatchString(l) {
			sig.mark(V3, "header comment")
		}
		if regex.HeaderV4.MatchString(l) {
			sig.mark(V4, "header comment")
		}
	}
	return sig.Evidence
}

type predicate struct {
	start, end int
	variant    Variant
}

// predicates returns the version predicates in s, with negation folded into
// the variant.
func predicates(s string) []predicate {
	var out []predicate
	for _, m := range regex.VersionPredicate.FindAllStringSubmatchIndex(s, -1) {
		v := V3
		if s[m[4]:m[5]] == "4" {
			v = V4
		}
		if m[2] >= 0 {
			v = v.other()
		}
		out = append(out, predicate{start: m[0], end: m[1], variant: v})
	}
	return out
}

// window joins lines[idx-radius, idx+radius] and returns the text with the
// byte range of line idx inside it.
func window(lines []string, idx, radius int) (text string, ls, le int) {
	from := idx - radius
	if from < 0 {
		from = 0
	}
	to := idx + radius + 1
	if to > len(lines) {
		to = len(lines)
	}
	for i := from; i < idx; i++ {
		ls += len(lines[i]) + 1
	}
	return strings.Join(lines[from:to], "\n"), ls, ls + len(lines[idx])
}

// ternaryScope finds the innermost version ternary around the line. The line
// belongs to the predicate's variant in the true branch and to the other one
// in the false branch. When the line holds the condition itself the branches
// are compared with the paired line, or both variants are returned.
func ternaryScope(lines []string, idx int, line models.ChangedLine, h models.DiffHunk) (Scope, bool) {
	text, ls, le := window(lines, idx, ternaryWindow)

	var (
		best     ternary
		bestPred predicate
		found    bool
	)
	for _, p := range predicates(text) {
		if p.start >= le {
			break
		}
		t, ok := findTernary(text, p.end)
		if !ok || t.end <= ls {
			continue
		}
		if !found || t.end-p.start < best.end-bestPred.start {
			best, bestPred, found = t, p, true
		}
	}
	if !found {
		return Scope{}, false
	}

	v := bestPred.variant
	if ls <= best.q {
		if le <= best.q || strings.TrimSpace(text[ls:best.q]) != "" {
			return conditionLineScope(line, h, v), true
		}
		// The line opens with the ? of a condition written above it.
		ls = best.q + 1
	}
	if ls <= best.colon && strings.TrimSpace(text[ls:best.colon]) == "" {
		// The line opens with the : of the false branch.
		ls = best.colon + 1
	}

	var scope Scope
	switch {
	case le <= best.colon:
		scope.Add(v)
	case ls > best.colon:
		scope.Add(v.other())
	default:
		scope = All
	}
	return scope, true
}

// conditionLineScope handles a changed line that carries the ternary's
// condition. A one-line ternary is compared branch by branch with its paired
// line; anything else affects both variants.
func conditionLineScope(line models.ChangedLine, h models.DiffHunk, v Variant) Scope {
	newT, newOK := lineTernary(line.Content, v)
	pair, hasPair := pairedContent(line, h)
	if !newOK || !hasPair {
		return All
	}
	oldT, oldOK := lineTernary(pair, v)
	if !oldOK {
		return All
	}

	var scope Scope
	if newT.whenTrue != oldT.whenTrue {
		scope.Add(v)
	}
	if newT.whenFalse != oldT.whenFalse {
		scope.Add(v.other())
	}
	if scope.Empty() {
		return All
	}
	return scope
}

type branches struct {
	whenTrue, whenFalse string
}

// lineTernary extracts the branches of the ternary on a single line whose
// predicate selects v.
func lineTernary(s string, v Variant) (branches, bool) {
	for _, p := range predicates(s) {
		t, ok := findTernary(s, p.end)
		if !ok || t.end > len(s) {
			continue
		}
		b := branches{
			whenTrue:  strings.TrimSpace(s[t.q+1 : t.colon]),
			whenFalse: strings.TrimSpace(s[t.colon+1 : t.end]),
		}
		if p.variant != v {
			b.whenTrue, b.whenFalse = b.whenFalse, b.whenTrue
		}
		return b, true
	}
	return branches{}, false
}

func pairedContent(line models.ChangedLine, h models.DiffHunk) (string, bool) {
	if line.PairedLineNumber == nil {
		return "", false
	}
	want := models.LineRemoved
	if line.Kind == models.LineRemoved {
		want = models.LineAdded
	}
	for _, l := range h.Lines {
		if l.Kind == want && l.LineNumber == *line.PairedLineNumber {
			return l.Content, true
		}
	}
	return "", false
}

// proximityScope looks for predicates within proximityWindow lines. The
// nearer variant wins; equally near variants are both kept.
func proximityScope(lines []string, idx int) (Scope, bool) {
	nearest := map[Variant]int{}
	for i := idx - proximityWindow; i <= idx+proximityWindow; i++ {
		if i < 0 || i >= len(lines) {
			continue
		}
		dist := i - idx
		if dist < 0 {
			dist = -dist
		}
		for _, p := range predicates(lines[i]) {
			if d, ok := nearest[p.variant]; !ok || dist < d {
				nearest[p.variant] = dist
			}
		}
	}

	d3, ok3 := nearest[V3]
	d4, ok4 := nearest[V4]
	var scope Scope
	switch {
	case ok3 && ok4 && d3 == d4:
		return All, true
	case ok3 && (!ok4 || d3 < d4):
		scope.Add(V3)
	case ok4:
		scope.Add(V4)
	default:
		return Scope{}, false
	}
	return scope, true
}

// suppressRestored drops a flagged variant whose class-builder output is the
// same before and after the change, as long as another variant stays flagged.
// It only applies when every changed line sits inside a class-builder call.
func suppressRestored(ctx context.Context, change FileChange, sig *Signal) {
	after := builderCalls(change.Content)
	before := builderCalls(change.PreImage)

	for _, h := range change.Hunks {
		for _, l := range h.Lines {
			calls := after
			if l.Kind == models.LineRemoved {
				calls = before
			}
			if !insideCall(calls, l.LineNumber) {
				return
			}
		}
	}

	for _, v := range []Variant{V3, V4} {
		if !sig.Has(v) {
			continue
		}
		if equalLists(classLists(before, v), classLists(after, v)) {
			sig.Remove(v)
			if sig.Empty() {
				sig.Add(v)
				return
			}
			sig.Reasons = append(sig.Reasons, fmt.Sprintf("%s output unchanged", v))
			logger.Debug(ctx, "variant output restored, dropping", "path", change.Path, "variant", v.String())
		}
	}
}

type builderCall struct {
	firstLine, lastLine int
	args                string
}

func builderCalls(content string) []builderCall {
	var calls []builderCall
	for _, m := range regex.ClassBuilder.FindAllStringIndex(content, -1) {
		open := m[1] - 1
		end, ok := closingParen(content, open)
		if !ok {
			continue
		}
		calls = append(calls, builderCall{
			firstLine: strings.Count(content[:m[0]], "\n") + 1,
			lastLine:  strings.Count(content[:end], "\n") + 1,
			args:      content[open+1 : end],
		})
	}
	return calls
}

func insideCall(calls []builderCall, line int) bool {
	for _, c := range calls {
		if line >= c.firstLine && line <= c.lastLine {
			return true
		}
	}
	return false
}

func classLists(calls []builderCall, v Variant) []string {
	lists := make([]string, 0, len(calls))
	for _, c := range calls {
		set := map[string]struct{}{}
		for _, arg := range splitTopLevel(c.args, ',') {
			for _, cls := range classesOf(strings.TrimSpace(arg), v) {
				set[cls] = struct{}{}
			}
		}
		classes := make([]string, 0, len(set))
		for cls := range set {
			classes = append(classes, cls)
		}
		sort.Strings(classes)
		lists = append(lists, strings.Join(classes, " "))
	}
	return lists
}

// classesOf evaluates one class-builder argument for variant v. Unknown
// expressions are kept verbatim so that they compare equal when untouched.
func classesOf(arg string, v Variant) []string {
	if arg == "" {
		return nil
	}
	if lit, ok := stringLiteral(arg); ok {
		return strings.Fields(lit)
	}
	if strings.HasPrefix(arg, "{") && strings.HasSuffix(arg, "}") {
		var out []string
		for _, entry := range splitTopLevel(arg[1:len(arg)-1], ',') {
			entry = strings.TrimSpace(entry)
			if entry == "" {
				continue
			}
			key, value := entry, entry
			if i := indexTopLevel(entry, ":"); i >= 0 {
				key, value = strings.TrimSpace(entry[:i]), strings.TrimSpace(entry[i+1:])
			}
			if !truthy(value, v) {
				continue
			}
			if lit, ok := stringLiteral(key); ok {
				out = append(out, strings.Fields(lit)...)
			} else {
				out = append(out, strings.Trim(key, "[]"))
			}
		}
		return out
	}
	if t, ok := findTernary(arg, 0); ok && t.end >= len(arg) {
		if truthy(arg[:t.q], v) {
			return classesOf(strings.TrimSpace(arg[t.q+1:t.colon]), v)
		}
		return classesOf(strings.TrimSpace(arg[t.colon+1:]), v)
	}
	if i := indexTopLevel(arg, "&&"); i >= 0 {
		if truthy(arg[:i], v) {
			return classesOf(strings.TrimSpace(arg[i+2:]), v)
		}
		return nil
	}
	return []string{"{" + arg + "}"}
}

// truthy evaluates a condition for variant v. Only version predicates are
// understood; anything else counts as true.
func truthy(expr string, v Variant) bool {
	expr = strings.TrimSpace(expr)
	for strings.HasPrefix(expr, "(") && strings.HasSuffix(expr, ")") {
		if end, ok := closingParen(expr, 0); !ok || end != len(expr)-1 {
			break
		}
		expr = strings.TrimSpace(expr[1 : len(expr)-1])
	}
	if parts := splitOperator(expr, "||"); len(parts) > 1 {
		for _, p := range parts {
			if truthy(p, v) {
				return true
			}
		}
		return false
	}
	if parts := splitOperator(expr, "&&"); len(parts) > 1 {
		for _, p := range parts {
			if !truthy(p, v) {
				return false
			}
		}
		return true
	}
	preds := predicates(expr)
	if len(preds) == 0 {
		return true
	}
	return preds[0].variant == v
}

func splitOperator(expr, op string) []string {
	var parts []string
	for {
		i := indexTopLevel(expr, op)
		if i < 0 {
			return append(parts, expr)
		}
		parts = append(parts, expr[:i])
		expr = expr[i+len(op):]
	}
}

func stringLiteral(s string) (string, bool) {
	if len(s) < 2 {
		return "", false
	}
	q := s[0]
	if (q != '\'' && q != '"' && q != '`') || s[len(s)-1] != q {
		return "", false
	}
	if skipQuoted(s, 0) != len(s)-1 {
		return "", false
	}
	return s[1 : len(s)-1], true
}

func equalLists(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
