package labels

import (
	"context"

	"github.com/fe-devtools/devflow/internal/impact"
	"github.com/fe-devtools/devflow/internal/models"
)

// ScopeAnalyzer is implemented by impact.Analyzer.
type ScopeAnalyzer interface {
	AnalyzeImpactScope(ctx context.Context, files []models.ChangedFile, target string) impact.Scope
}

var _ Source = (*ImpactSource)(nil)

// ImpactSource maps the diff-impact scope to the variant labels.
type ImpactSource struct {
	analyzer ScopeAnalyzer
	v3Label  string
	v4Label  string
}

func NewImpactSource(analyzer ScopeAnalyzer, v3Label, v4Label string) *ImpactSource {
	return &ImpactSource{analyzer: analyzer, v3Label: v3Label, v4Label: v4Label}
}

func (s *ImpactSource) Name() string { return "impact" }

// Labels never fails: an undecidable change gets both variant labels.
func (s *ImpactSource) Labels(ctx context.Context, in Input) ([]string, error) {
	scope := s.analyzer.AnalyzeImpactScope(ctx, in.Files, in.TargetBranch)

	var out []string
	if scope.V3 {
		out = append(out, s.v3Label)
	}
	if scope.V4 {
		out = append(out, s.v4Label)
	}
	return out, nil
}

type remoteTarget struct {
	analyzer ScopeAnalyzer
	remote   string
}

// OnRemote makes analyzer compare against the remote-tracking ref of the
// target branch, which is what a fetch updates.
func OnRemote(analyzer ScopeAnalyzer, remote string) ScopeAnalyzer {
	return remoteTarget{analyzer: analyzer, remote: remote}
}

func (r remoteTarget) AnalyzeImpactScope(ctx context.Context, files []models.ChangedFile, target string) impact.Scope {
	return r.analyzer.AnalyzeImpactScope(ctx, files, r.remote+"/"+target)
}
