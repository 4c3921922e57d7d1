package labels

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/fe-devtools/devflow/internal/config"
	"github.com/fe-devtools/devflow/internal/errors"
	"github.com/fe-devtools/devflow/internal/logger"
	"github.com/fe-devtools/devflow/internal/models"
)

type (
	// TicketSource looks tickets up in the issue tracker.
	TicketSource interface {
		GetTicketInfo(ctx context.Context, key string) (*models.TicketInfo, error)
	}

	// OriginSource tells whether a ticket went through the planned task flow.
	OriginSource interface {
		HasTaskOrigin(ctx context.Context, ticket string) (bool, error)
	}

	// Source suggests labels from the change itself.
	Source interface {
		Name() string
		Labels(ctx context.Context, in Input) ([]string, error)
	}
)

// Input is what a label decision is made from. Summary is filled in by the
// Decider from the ticket when one could be fetched.
type Input struct {
	Ticket       string
	Files        []models.ChangedFile
	TargetBranch string
	Summary      string
}

// Decision is the ordered label list plus the release branch a hotfix must
// target instead of the requested one.
type Decision struct {
	Labels        []string `json:"labels"`
	ReleaseBranch string   `json:"releaseBranch,omitempty"`
	FixVersion    string   `json:"fixVersion,omitempty"`
	Warnings      []string `json:"warnings,omitempty"`
}

type Decider struct {
	cfg      config.LabelsConfig
	source   Source
	fallback Source
	tickets  TicketSource
	origin   OriginSource
}

type Option func(*Decider)

func WithTickets(t TicketSource) Option {
	return func(d *Decider) { d.tickets = t }
}

func WithOrigin(o OriginSource) Option {
	return func(d *Decider) { d.origin = o }
}

// WithFallback sets the source used when the main one fails.
func WithFallback(s Source) Option {
	return func(d *Decider) { d.fallback = s }
}

func NewDecider(cfg config.LabelsConfig, source Source, opts ...Option) *Decider {
	d := &Decider{cfg: cfg, source: source}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Decide applies the label rules in order. Rules only ever add labels. When
// Jira rejects the credentials the labels gathered so far are returned
// together with the auth error; any other Jira failure is a warning.
func (d *Decider) Decide(ctx context.Context, in Input) (Decision, error) {
	log := logger.FromContext(ctx).With("ticket", in.Ticket, "target", in.TargetBranch)
	start := time.Now()

	var (
		set      LabelSet
		decision Decision
		ticket   *models.TicketInfo
		jiraErr  error
	)
	hasTicket := in.Ticket != "" && in.Ticket != models.NoTicket

	if hasTicket && d.tickets != nil {
		ticket, jiraErr = d.tickets.GetTicketInfo(ctx, in.Ticket)
		if jiraErr == nil && ticket != nil {
			in.Summary = ticket.Summary
		}
	}

	if hasTicket && d.origin != nil {
		ok, err := d.origin.HasTaskOrigin(ctx, in.Ticket)
		switch {
		case err != nil:
			decision.warn(log, "task origin check failed", err)
		case ok:
			set.Add(d.cfg.OriginLabel)
		}
	}

	if hasTicket {
		set.Add(d.boardLabels(in.Ticket)...)
	}

	set.Add(d.sourceLabels(ctx, log, in, &decision)...)

	switch {
	case !hasTicket:
	case d.tickets == nil:
		decision.warn(log, "jira is not configured, version labels skipped", nil)
	case jiraErr != nil && errors.IsKind(jiraErr, errors.TypeAuth):
		decision.Labels = set.List()
		log.Error("jira auth failed, version labels skipped", "error", jiraErr)
		return decision, jiraErr
	case jiraErr != nil:
		decision.warn(log, "jira lookup failed, version labels skipped", jiraErr)
	default:
		d.applyVersion(ticket, &set, &decision)
	}

	decision.Labels = set.List()
	log.Info("labels decided",
		"labels", strings.Join(decision.Labels, ","),
		"labels_count", len(decision.Labels),
		"release_branch", decision.ReleaseBranch,
		"duration_ms", time.Since(start).Milliseconds())
	return decision, nil
}

// boardLabels returns the labels of every configured prefix the ticket has,
// in prefix order.
func (d *Decider) boardLabels(ticket string) []string {
	prefixes := make([]string, 0, len(d.cfg.BoardPrefixes))
	for p := range d.cfg.BoardPrefixes {
		prefixes = append(prefixes, p)
	}
	sort.Strings(prefixes)

	var out []string
	for _, p := range prefixes {
		if strings.HasPrefix(ticket, p) {
			out = append(out, d.cfg.BoardPrefixes[p])
		}
	}
	return out
}

func (d *Decider) sourceLabels(ctx context.Context, log *slog.Logger, in Input, decision *Decision) []string {
	if d.source == nil {
		return nil
	}
	got, err := d.source.Labels(ctx, in)
	if err == nil {
		log.Debug("source labels", "source", d.source.Name(), "labels", strings.Join(got, ","))
		return got
	}

	decision.warn(log, fmt.Sprintf("%s labels unavailable", d.source.Name()), err)
	if d.fallback == nil {
		return nil
	}
	got, err = d.fallback.Labels(ctx, in)
	if err != nil {
		decision.warn(log, fmt.Sprintf("%s labels unavailable", d.fallback.Name()), err)
		return nil
	}
	return got
}

// applyVersion adds the version label of the first parseable fix version and,
// for a hotfix, the hotfix label and release branch.
func (d *Decider) applyVersion(ticket *models.TicketInfo, set *LabelSet, decision *Decision) {
	if ticket == nil {
		return
	}
	for _, fv := range ticket.FixVersions {
		label, ok := ExtractVersionLabel(fv)
		if !ok {
			continue
		}
		decision.FixVersion = fv
		set.Add(label)
		if IsHotfix(fv) {
			set.Add(d.cfg.HotfixLabel)
			decision.ReleaseBranch, _ = ExtractReleaseBranch(fv)
		}
		return
	}
}

func (dc *Decision) warn(log *slog.Logger, msg string, err error) {
	if err != nil {
		log.Warn(msg, "error", err)
		msg = fmt.Sprintf("%s: %v", msg, err)
	} else {
		log.Warn(msg)
	}
	dc.Warnings = append(dc.Warnings, msg)
}
