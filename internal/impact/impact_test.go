package impact

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fe-devtools/devflow/internal/models"
)

func lines(ls ...string) string {
	return strings.Join(ls, "\n") + "\n"
}

func TestParseDiff(t *testing.T) {
	diff := lines(
		"diff --git a/src/Button.tsx b/src/Button.tsx",
		"index 1111111..2222222 100644",
		"--- a/src/Button.tsx",
		"+++ b/src/Button.tsx",
		"@@ -10,4 +10,5 @@ export function Button() {",
		"   const a = 1;",
		"-  const pad = 4;",
		"+  const pad = 8;",
		"+  const gap = 2;",
		"   return a;",
		`\ No newline at end of file`,
		"@@ -30 +31 @@",
		"-old",
		"+new",
	)

	hunks := ParseDiff(diff)
	require.Len(t, hunks, 2)

	h := hunks[0]
	assert.Equal(t, 10, h.OldStart)
	assert.Equal(t, 4, h.OldLines)
	assert.Equal(t, 10, h.NewStart)
	assert.Equal(t, 5, h.NewLines)
	require.Len(t, h.Lines, 3)

	removed, pad, gap := h.Lines[0], h.Lines[1], h.Lines[2]
	assert.Equal(t, models.LineRemoved, removed.Kind)
	assert.Equal(t, 11, removed.LineNumber)
	assert.Equal(t, 11, removed.Anchor)
	assert.Equal(t, "  const pad = 4;", removed.Content)

	assert.Equal(t, models.LineAdded, pad.Kind)
	assert.Equal(t, 11, pad.LineNumber)
	require.NotNil(t, pad.PairedLineNumber)
	assert.Equal(t, 11, *pad.PairedLineNumber)
	require.NotNil(t, removed.PairedLineNumber)
	assert.Equal(t, 11, *removed.PairedLineNumber)

	assert.Equal(t, 12, gap.LineNumber)
	assert.Nil(t, gap.PairedLineNumber)

	assert.Equal(t, 1, hunks[1].OldLines)
	assert.Equal(t, 31, hunks[1].Lines[1].LineNumber)
}

func TestParseDiff_Malformed(t *testing.T) {
	assert.Empty(t, ParseDiff("not a diff\n+added without header"))
	assert.Empty(t, ParseDiff(""))
}

func TestPairLines_Window(t *testing.T) {
	h := models.DiffHunk{}
	h.Lines = append(h.Lines, models.ChangedLine{LineNumber: 1, Kind: models.LineRemoved})
	for i := 0; i < 6; i++ {
		h.Lines = append(h.Lines, models.ChangedLine{LineNumber: 1 + i, Kind: models.LineAdded})
	}
	PairLines(&h)
	assert.NotNil(t, h.Lines[1].PairedLineNumber)
	for _, l := range h.Lines[2:] {
		assert.Nil(t, l.PairedLineNumber)
	}

	far := models.DiffHunk{Lines: []models.ChangedLine{{LineNumber: 1, Kind: models.LineRemoved}}}
	for i := 0; i < 5; i++ {
		far.Lines = append(far.Lines, models.ChangedLine{LineNumber: 9, Kind: models.LineRemoved})
		far.Lines[len(far.Lines)-1].PairedLineNumber = new(int)
	}
	far.Lines = append(far.Lines, models.ChangedLine{LineNumber: 2, Kind: models.LineAdded})
	PairLines(&far)
	assert.Nil(t, far.Lines[6].PairedLineNumber, "removed line is 6 positions away")
}

func classify(path, diff, content, preimage string) Signal {
	return NewAnalyzer(nil, nil).AnalyzeDiffImpact(context.Background(), path, diff, content, preimage)
}

var jsxButton = lines(
	"export function Button() {",
	"  return (",
	"    <div>",
	"      {isV4() ? (",
	`        <NewButton size="lg" />`,
	"      ) : (",
	"        <OldButton compact />",
	"      )}",
	"    </div>",
	"  );",
	"}",
)

func TestHeuristic_TernaryTrueBranch(t *testing.T) {
	diff := lines(
		"@@ -3,5 +3,5 @@",
		"     <div>",
		"       {isV4() ? (",
		`-        <NewButton size="md" />`,
		`+        <NewButton size="lg" />`,
		"       ) : (",
		"         <OldButton compact />",
	)

	sig := classify("src/Button.tsx", diff, jsxButton, "")
	assert.True(t, sig.Evidence)
	assert.Equal(t, Scope{V4: true}, sig.Scope)
}

func TestHeuristic_TernaryFalseBranch(t *testing.T) {
	diff := lines(
		"@@ -5,4 +5,4 @@",
		`         <NewButton size="lg" />`,
		"       ) : (",
		"-        <OldButton />",
		"+        <OldButton compact />",
		"       )}",
	)

	sig := classify("src/Button.tsx", diff, jsxButton, "")
	assert.Equal(t, Scope{V3: true}, sig.Scope)
}

func TestHeuristic_TernaryLeadingQuestionMark(t *testing.T) {
	content := lines(
		"const Icon = () =>",
		"  isV3()",
		"    ? <SmallIcon />",
		"    : <LargeIcon />;",
	)
	diff := lines(
		"@@ -3,1 +3,1 @@",
		"-    ? <TinyIcon />",
		"+    ? <SmallIcon />",
	)

	sig := classify("src/Icon.tsx", diff, content, "")
	assert.Equal(t, Scope{V3: true}, sig.Scope)
}

func TestHeuristic_TernaryLeadingColon(t *testing.T) {
	content := lines(
		"const x = isV3()",
		"  ? foo",
		"  : baz;",
	)
	diff := lines(
		"@@ -3,1 +3,1 @@",
		"-  : bar;",
		"+  : baz;",
	)

	sig := classify("src/x.ts", diff, content, "")
	assert.Equal(t, Scope{V4: true}, sig.Scope)
}

func TestHeuristic_SingleLineTernaryComparesBranches(t *testing.T) {
	tests := []struct {
		name    string
		before  string
		after   string
		expects Scope
	}{
		{"false branch changed", "const size = isV4() ? 'lg' : 'sm';", "const size = isV4() ? 'lg' : 'md';", Scope{V3: true}},
		{"true branch changed", "const size = isV4() ? 'xl' : 'md';", "const size = isV4() ? 'lg' : 'md';", Scope{V4: true}},
		{"negated predicate flips", "const size = !isV3() ? 'lg' : 'sm';", "const size = !isV3() ? 'lg' : 'md';", Scope{V3: true}},
		{"new ternary affects both", "const size = 'md';", "const size = isV4() ? 'lg' : 'md';", All},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content := lines("function f() {", "  "+tt.after, "}")
			diff := lines("@@ -2,1 +2,1 @@", "-  "+tt.before, "+  "+tt.after)

			sig := classify("src/size.ts", diff, content, "")
			assert.True(t, sig.Evidence)
			assert.Equal(t, tt.expects, sig.Scope)
		})
	}
}

func proximityFile() string {
	return lines(
		"function f() {",
		"  if (isV3()) {",
		"    a();",
		"  }",
		"  const x = 1;",
		"  const y = 2;",
		"  const z = 3;",
		"  if (isV4()) {",
		"    b();",
		"  }",
		"}",
	)
}

func TestHeuristic_Proximity(t *testing.T) {
	tests := []struct {
		name    string
		line    int
		expects Scope
	}{
		{"equidistant marks both", 5, All},
		{"nearer v4 wins", 6, Scope{V4: true}},
		{"nearer v3 wins", 3, Scope{V3: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content := proximityFile()
			changed := strings.Split(content, "\n")[tt.line-1]
			diff := lines(fmt.Sprintf("@@ -%d,0 +%d,1 @@", tt.line-1, tt.line), "+"+changed)

			sig := classify("src/f.ts", diff, content, "")
			assert.True(t, sig.Evidence)
			assert.Equal(t, tt.expects, sig.Scope)
		})
	}
}

func TestHeuristic_NoMarkersHasNoEvidence(t *testing.T) {
	content := lines("export const add = (a, b) => a + b;", "export const sub = (a, b) => a - b;")
	diff := lines("@@ -2,0 +2,1 @@", "+export const sub = (a, b) => a - b;")

	sig := classify("src/math.ts", diff, content, "")
	assert.False(t, sig.Evidence)
	assert.True(t, sig.Empty())
}

func TestHeuristic_PathAndHeader(t *testing.T) {
	assert.Equal(t, Scope{V3: true}, classify("src/v3/Button.tsx", "", "", "").Scope)
	assert.Equal(t, Scope{V4: true}, classify("src/Button.v4.tsx", "", "", "").Scope)

	header := lines("// v4 only: new design system", "export const x = 1;")
	sig := classify("src/tokens.ts", lines("@@ -2,0 +2,1 @@", "+export const x = 1;"), header, "")
	assert.Equal(t, Scope{V4: true}, sig.Scope)

	late := strings.Repeat("\n", 25) + "// v4 only\n"
	assert.False(t, classify("src/late.ts", "", late, "").Evidence)
}

func TestHeuristic_RestoreSuppression(t *testing.T) {
	before := lines(
		"export const Button = () => (",
		"  <button className={classNames('btn', 'p-4')} />",
		");",
	)
	after := lines(
		"export const Button = () => (",
		"  <button className={classNames('btn', isV4() ? 'p-2' : 'p-4')} />",
		");",
	)
	diff := lines(
		"@@ -2,1 +2,1 @@",
		"-  <button className={classNames('btn', 'p-4')} />",
		"+  <button className={classNames('btn', isV4() ? 'p-2' : 'p-4')} />",
	)

	t.Run("without pre-image both variants stay", func(t *testing.T) {
		assert.Equal(t, All, classify("src/Button.tsx", diff, after, "").Scope)
	})

	t.Run("unchanged v3 output is dropped", func(t *testing.T) {
		sig := classify("src/Button.tsx", diff, after, before)
		assert.Equal(t, Scope{V4: true}, sig.Scope)
	})

	t.Run("object syntax", func(t *testing.T) {
		objBefore := lines("const c = cx('card', isV3() && 'card-old', { 'card-flat': isV4() });")
		objAfter := lines("const c = cx('card', isV3() && 'card-old', { 'card-flat': isV4(), 'card-dense': isV4() });")
		objDiff := lines("@@ -1,1 +1,1 @@", "-"+strings.TrimSuffix(objBefore, "\n"), "+"+strings.TrimSuffix(objAfter, "\n"))

		sig := classify("src/Card.tsx", objDiff, objAfter, objBefore)
		assert.Equal(t, Scope{V4: true}, sig.Scope)
	})

	t.Run("changes outside class builders are kept", func(t *testing.T) {
		b := lines("const a = isV3();", "const pad = 4;", "const b = isV4();")
		a := lines("const a = isV3();", "const pad = 8;", "const b = isV4();")
		d := lines("@@ -2,1 +2,1 @@", "-const pad = 4;", "+const pad = 8;")

		sig := classify("src/s.ts", d, a, b)
		assert.Equal(t, All, sig.Scope)
	})
}

type fakeSource struct {
	diffs    map[string]string
	files    map[string]string
	base     map[string]string
	diffErr  error
	mergeErr error
}

func (f fakeSource) DiffFile(_ context.Context, _, path string) (string, error) {
	if f.diffErr != nil {
		return "", f.diffErr
	}
	return f.diffs[path], nil
}

func (f fakeSource) ShowFile(_ context.Context, ref, path string) (string, error) {
	src := f.files
	if ref != "HEAD" {
		src = f.base
	}
	content, ok := src[path]
	if !ok {
		return "", errors.New("fatal: path does not exist")
	}
	return content, nil
}

func (f fakeSource) MergeBase(context.Context, string, string) (string, error) {
	if f.mergeErr != nil {
		return "", f.mergeErr
	}
	return "abc123", nil
}

func TestAnalyzeImpactScope(t *testing.T) {
	ctx := context.Background()
	neutral := models.ChangedFile{Path: "src/utils/format.ts", Status: models.StatusModified}
	neutralDiff := lines("@@ -1,1 +1,1 @@", "-export const f = 1;", "+export const f = 2;")

	t.Run("no evidence fails open", func(t *testing.T) {
		src := fakeSource{
			diffs: map[string]string{neutral.Path: neutralDiff},
			files: map[string]string{neutral.Path: "export const f = 2;\n"},
		}
		scope := NewAnalyzer(src, nil).AnalyzeImpactScope(ctx, []models.ChangedFile{neutral}, "origin/develop")
		assert.Equal(t, All, scope)
	})

	t.Run("evidence narrows and ORs across files", func(t *testing.T) {
		v3 := models.ChangedFile{Path: "src/v3/Header.tsx", Status: models.StatusModified}
		src := fakeSource{
			diffs: map[string]string{neutral.Path: neutralDiff},
			files: map[string]string{neutral.Path: "export const f = 2;\n"},
		}
		scope := NewAnalyzer(src, nil).AnalyzeImpactScope(ctx, []models.ChangedFile{neutral, v3}, "origin/develop")
		assert.Equal(t, Scope{V3: true}, scope)

		v4 := models.ChangedFile{Path: "src/v4/Header.tsx", Status: models.StatusAdded}
		scope = NewAnalyzer(src, nil).AnalyzeImpactScope(ctx, []models.ChangedFile{v3, v4}, "origin/develop")
		assert.Equal(t, All, scope)
	})

	t.Run("deleted files carry no evidence", func(t *testing.T) {
		deleted := models.ChangedFile{Path: "src/v3/Old.tsx", Status: models.StatusDeleted}
		scope := NewAnalyzer(fakeSource{}, nil).AnalyzeImpactScope(ctx, []models.ChangedFile{deleted}, "origin/develop")
		assert.Equal(t, All, scope)
	})

	t.Run("git errors degrade to path heuristics", func(t *testing.T) {
		src := fakeSource{diffErr: errors.New("boom"), mergeErr: errors.New("no base")}
		files := []models.ChangedFile{{Path: "src/Button.v4.tsx", Status: models.StatusModified}, neutral}
		scope := NewAnalyzer(src, nil).AnalyzeImpactScope(ctx, files, "origin/develop")
		assert.Equal(t, Scope{V4: true}, scope)
	})

	t.Run("pre-image read from merge base", func(t *testing.T) {
		path := "src/Button.tsx"
		before := "const c = cx('btn', 'p-4');\n"
		after := "const c = cx('btn', isV4() ? 'p-2' : 'p-4');\n"
		src := fakeSource{
			diffs: map[string]string{path: lines("@@ -1,1 +1,1 @@", "-"+strings.TrimSuffix(before, "\n"), "+"+strings.TrimSuffix(after, "\n"))},
			files: map[string]string{path: after},
			base:  map[string]string{path: before},
		}
		scope := NewAnalyzer(src, nil).AnalyzeImpactScope(ctx, []models.ChangedFile{{Path: path, Status: models.StatusModified}}, "origin/develop")
		assert.Equal(t, Scope{V4: true}, scope)
	})
}

type stubClassifier struct{ sig Signal }

func (s stubClassifier) Classify(context.Context, FileChange) Signal { return s.sig }

func TestAnalyzer_PluggableClassifier(t *testing.T) {
	src := fakeSource{files: map[string]string{}}
	a := NewAnalyzer(src, stubClassifier{sig: Signal{Scope: Scope{V4: true}, Evidence: true}})

	scope := a.AnalyzeImpactScope(context.Background(), []models.ChangedFile{{Path: "x.ts", Status: models.StatusModified}}, "origin/develop")
	assert.Equal(t, Scope{V4: true}, scope)
}
