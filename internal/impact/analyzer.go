package impact

import (
	"context"
	"time"

	"github.com/fe-devtools/devflow/internal/logger"
	"github.com/fe-devtools/devflow/internal/models"
)

// DiffSource is the part of the git service the analyzer reads from.
type DiffSource interface {
	DiffFile(ctx context.Context, target, path string) (string, error)
	ShowFile(ctx context.Context, ref, path string) (string, error)
	MergeBase(ctx context.Context, a, b string) (string, error)
}

type Analyzer struct {
	src        DiffSource
	classifier Classifier
}

// NewAnalyzer uses the heuristic classifier when classifier is nil.
func NewAnalyzer(src DiffSource, classifier Classifier) *Analyzer {
	if classifier == nil {
		classifier = HeuristicClassifier{}
	}
	return &Analyzer{src: src, classifier: classifier}
}

// AnalyzeImpactScope ORs the signals of all files changed against target.
// When no file carries evidence every variant is reported.
func (a *Analyzer) AnalyzeImpactScope(ctx context.Context, files []models.ChangedFile, target string) Scope {
	log := logger.FromContext(ctx)
	start := time.Now()

	base, err := a.src.MergeBase(ctx, target, "HEAD")
	if err != nil {
		log.Debug("no merge base, restore check disabled", "target", target, "error", err)
		base = ""
	}

	var (
		scope    Scope
		evidence bool
	)
	for _, f := range files {
		sig := a.AnalyzeFileImpact(ctx, f, target, base)
		if !sig.Evidence {
			continue
		}
		log.Debug("variant evidence", "path", f.Path, "v3", sig.V3, "v4", sig.V4, "reasons", sig.Reasons)
		evidence = true
		scope = scope.Or(sig.Scope)
	}

	if !evidence || scope.Empty() {
		scope = All
	}

	log.Info("impact scope analyzed",
		"files", len(files),
		"evidence", evidence,
		"v3", scope.V3,
		"v4", scope.V4,
		"duration_ms", time.Since(start).Milliseconds())
	return scope
}

// AnalyzeFileImpact classifies one file. base is the commit the diff starts
// from and is used to read the pre-image; pass "" to skip it. Errors reading
// git degrade to the path and header checks.
func (a *Analyzer) AnalyzeFileImpact(ctx context.Context, file models.ChangedFile, target, base string) Signal {
	if file.Status == models.StatusDeleted {
		return Signal{}
	}
	log := logger.FromContext(ctx)

	diff, err := a.src.DiffFile(ctx, target, file.Path)
	if err != nil {
		log.Debug("diff unavailable, using path heuristics", "path", file.Path, "error", err)
		diff = ""
	}

	content, err := a.src.ShowFile(ctx, "HEAD", file.Path)
	if err != nil {
		log.Debug("content unavailable", "path", file.Path, "error", err)
		content = ""
	}

	var preimage string
	if base != "" && file.Status != models.StatusAdded {
		old := file.Path
		if file.OldPath != "" {
			old = file.OldPath
		}
		if preimage, err = a.src.ShowFile(ctx, base, old); err != nil {
			log.Debug("pre-image unavailable", "path", old, "error", err)
			preimage = ""
		}
	}

	return a.classifier.Classify(ctx, FileChange{
		Path:     file.Path,
		Status:   file.Status,
		Hunks:    ParseDiff(diff),
		Content:  content,
		PreImage: preimage,
	})
}

// AnalyzeDiffImpact classifies a diff given the file's current content and,
// optionally, its pre-image.
func (a *Analyzer) AnalyzeDiffImpact(ctx context.Context, path, diff, content, preimage string) Signal {
	return a.classifier.Classify(ctx, FileChange{
		Path:     path,
		Status:   models.StatusModified,
		Hunks:    ParseDiff(diff),
		Content:  content,
		PreImage: preimage,
	})
}
