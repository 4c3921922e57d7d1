package git

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fe-devtools/devflow/internal/errors"
	"github.com/fe-devtools/devflow/internal/models"
	"github.com/fe-devtools/devflow/internal/shell"
)

const DefaultRemote = "origin"

// conflictCodes are the porcelain XY codes git uses for unmerged paths.
var conflictCodes = map[string]struct{}{
	"DD": {}, "AU": {}, "UD": {}, "UA": {}, "DU": {}, "AA": {}, "UU": {},
}

// StatusEntry is one line of git status --porcelain.
type StatusEntry struct {
	Code string
	Path string
}

func (e StatusEntry) Conflicted() bool {
	_, ok := conflictCodes[e.Code]
	return ok
}

type PushOptions struct {
	Branch         string
	ForceWithLease bool
	SetUpstream    bool
}

type GitService struct {
	runner shell.Runner
	dir    string
	remote string
}

func NewGitService(runner shell.Runner, dir string) *GitService {
	return &GitService{
		runner: runner,
		dir:    dir,
		remote: DefaultRemote,
	}
}

func (s *GitService) Remote() string {
	return s.remote
}

func (s *GitService) git(ctx context.Context, args ...string) (string, error) {
	res, err := s.runner.Run(ctx, shell.Command{Name: "git", Args: args, Dir: s.dir})
	return res.Stdout, err
}

// Status returns the parsed output of git status --porcelain.
func (s *GitService) Status(ctx context.Context) ([]StatusEntry, error) {
	out, err := s.git(ctx, "status", "--porcelain")
	if err != nil {
		return nil, errors.ErrGetStatus.WithError(err).WithContext("stderr", shell.Stderr(err))
	}

	var entries []StatusEntry
	for _, line := range strings.Split(out, "\n") {
		if len(line) < 4 {
			continue
		}
		path := strings.TrimSpace(line[3:])
		if idx := strings.Index(path, " -> "); idx >= 0 {
			path = path[idx+4:]
		}
		entries = append(entries, StatusEntry{
			Code: line[:2],
			Path: strings.Trim(path, `"`),
		})
	}
	return entries, nil
}

// HasUncommittedChanges reports tracked modifications, staged or not.
// Untracked files do not count.
func (s *GitService) HasUncommittedChanges(ctx context.Context) (bool, error) {
	entries, err := s.Status(ctx)
	if err != nil {
		return false, err
	}
	for _, e := range entries {
		if e.Code != "??" {
			return true, nil
		}
	}
	return false, nil
}

// ConflictedFiles lists paths left unmerged by a rebase or merge.
func (s *GitService) ConflictedFiles(ctx context.Context) ([]string, error) {
	entries, err := s.Status(ctx)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.Conflicted() {
			files = append(files, e.Path)
		}
	}
	return files, nil
}

// HasStagedChanges checks if there are changes in the staging area
func (s *GitService) HasStagedChanges(ctx context.Context) (bool, error) {
	_, err := s.git(ctx, "diff", "--cached", "--quiet")
	if err == nil {
		return false, nil
	}
	if shell.ExitCode(err) == 1 {
		return true, nil
	}
	return false, errors.ErrGetDiff.WithError(err)
}

func (s *GitService) CurrentBranch(ctx context.Context) (string, error) {
	out, err := s.git(ctx, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", errors.ErrGetBranch.WithError(err).WithContext("stderr", shell.Stderr(err))
	}

	branch := strings.TrimSpace(out)
	if branch == "" || branch == "HEAD" {
		return "", errors.ErrNoBranch
	}
	return branch, nil
}

func (s *GitService) RevParse(ctx context.Context, ref string) (string, error) {
	out, err := s.git(ctx, "rev-parse", ref)
	if err != nil {
		return "", fmt.Errorf("rev-parse %s: %w", ref, err)
	}
	return strings.TrimSpace(out), nil
}

func (s *GitService) RepoRoot(ctx context.Context) (string, error) {
	out, err := s.git(ctx, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", errors.ErrGetRepoRoot.WithError(err)
	}
	return strings.TrimSpace(out), nil
}

// UserName returns git config user.name, or an empty string when unset.
func (s *GitService) UserName(ctx context.Context) string {
	out, err := s.git(ctx, "config", "user.name")
	if err != nil {
		return ""
	}
	return strings.TrimSpace(out)
}

// LogOneline returns git log --oneline for rangeSpec, newest first.
func (s *GitService) LogOneline(ctx context.Context, rangeSpec string) ([]string, error) {
	out, err := s.git(ctx, "log", "--oneline", "--no-decorate", rangeSpec)
	if err != nil {
		return nil, fmt.Errorf("git log %s: %w", rangeSpec, err)
	}
	return splitLines(out), nil
}

// DiffNameStatus lists files changed on HEAD since it diverged from target.
func (s *GitService) DiffNameStatus(ctx context.Context, target string) ([]models.ChangedFile, error) {
	out, err := s.git(ctx, "diff", "--name-status", target+"...HEAD")
	if err != nil {
		return nil, errors.ErrGetDiff.WithError(err).WithContext("stderr", shell.Stderr(err))
	}
	return parseNameStatus(out), nil
}

func (s *GitService) DiffStat(ctx context.Context, target string) (string, error) {
	out, err := s.git(ctx, "diff", "--stat", target+"...HEAD")
	if err != nil {
		return "", errors.ErrGetDiff.WithError(err)
	}
	return out, nil
}

// DiffFile returns the unified diff of one file between the merge base of
// target and HEAD.
func (s *GitService) DiffFile(ctx context.Context, target, path string) (string, error) {
	out, err := s.git(ctx, "diff", target+"...HEAD", "--", path)
	if err != nil {
		return "", errors.ErrGetDiff.WithError(err).WithContext("path", path)
	}
	return out, nil
}

// ShowFile returns the content of path at ref.
func (s *GitService) ShowFile(ctx context.Context, ref, path string) (string, error) {
	out, err := s.git(ctx, "show", ref+":"+path)
	if err != nil {
		return "", fmt.Errorf("git show %s:%s: %w", ref, path, err)
	}
	return out, nil
}

func (s *GitService) MergeBase(ctx context.Context, a, b string) (string, error) {
	out, err := s.git(ctx, "merge-base", a, b)
	if err != nil {
		return "", fmt.Errorf("git merge-base %s %s: %w", a, b, err)
	}
	return strings.TrimSpace(out), nil
}

// IsAncestor reports whether ancestor is reachable from descendant.
func (s *GitService) IsAncestor(ctx context.Context, ancestor, descendant string) (bool, error) {
	_, err := s.git(ctx, "merge-base", "--is-ancestor", ancestor, descendant)
	if err == nil {
		return true, nil
	}
	if shell.ExitCode(err) == 1 {
		return false, nil
	}
	return false, fmt.Errorf("git merge-base --is-ancestor: %w", err)
}

// HashObject writes content to the object database as a blob and returns its id.
func (s *GitService) HashObject(ctx context.Context, content string) (string, error) {
	res, err := s.runner.Run(ctx, shell.Command{Name: "git", Args: []string{"hash-object", "-w", "--stdin"}, Dir: s.dir, Stdin: content})
	if err != nil {
		return "", fmt.Errorf("git hash-object: %w", err)
	}
	return strings.TrimSpace(res.Stdout), nil
}

// NotesShow reads the note attached to commit under refs/notes/<ref>. A missing
// note is not an error.
func (s *GitService) NotesShow(ctx context.Context, ref, commit string) (string, bool, error) {
	out, err := s.git(ctx, "notes", "--ref="+ref, "show", commit)
	if err != nil {
		if shell.ExitCode(err) == 1 && strings.Contains(strings.ToLower(shell.Stderr(err)), "no note found") {
			return "", false, nil
		}
		return "", false, errors.ErrNotes.WithError(err).WithContext("stderr", shell.Stderr(err))
	}
	return strings.TrimRight(out, "\n"), true, nil
}

// NotesAdd writes (or overwrites) the note attached to commit.
func (s *GitService) NotesAdd(ctx context.Context, ref, commit, message string) error {
	if _, err := s.git(ctx, "notes", "--ref="+ref, "add", "-f", "-m", message, commit); err != nil {
		return errors.ErrNotes.WithError(err).WithContext("stderr", shell.Stderr(err))
	}
	return nil
}

func (s *GitService) Fetch(ctx context.Context, branch string) error {
	args := []string{"fetch", s.remote}
	if branch != "" {
		args = append(args, branch)
	}
	if _, err := s.git(ctx, args...); err != nil {
		return errors.ErrFetch.WithError(err).WithContext("stderr", shell.Stderr(err))
	}
	return nil
}

// Rebase rebases HEAD onto onto. When git stops on conflicts the returned error
// is ErrRebaseConflict with the conflicted files in its context.
func (s *GitService) Rebase(ctx context.Context, onto string) error {
	_, err := s.git(ctx, "rebase", onto)
	if err == nil {
		return nil
	}

	files, statusErr := s.ConflictedFiles(ctx)
	if statusErr == nil && len(files) > 0 {
		return errors.ErrRebaseConflict.WithError(err).
			WithContext("files", files).
			WithContext("onto", onto)
	}
	return errors.ErrRebase.WithError(err).WithContext("stderr", shell.Stderr(err))
}

// RebaseInProgress checks for the rebase-merge and rebase-apply state
// directories.
func (s *GitService) RebaseInProgress(ctx context.Context) (bool, error) {
	for _, name := range []string{"rebase-merge", "rebase-apply"} {
		out, err := s.git(ctx, "rev-parse", "--git-path", name)
		if err != nil {
			return false, errors.ErrGetRepoRoot.WithError(err)
		}
		path := strings.TrimSpace(out)
		if !filepath.IsAbs(path) && s.dir != "" {
			path = filepath.Join(s.dir, path)
		}
		if _, err := os.Stat(path); err == nil {
			return true, nil
		}
	}
	return false, nil
}

// Push pushes branch to the remote, streaming git's output.
func (s *GitService) Push(ctx context.Context, opts PushOptions) error {
	args := []string{"push"}
	if opts.SetUpstream {
		args = append(args, "-u")
	}
	if opts.ForceWithLease {
		args = append(args, "--force-with-lease")
	}
	args = append(args, s.remote, opts.Branch)

	if _, err := s.runner.Run(ctx, shell.Command{Name: "git", Args: args, Dir: s.dir, Stream: true}); err != nil {
		return errors.ErrPush.WithError(err).WithContext("stderr", shell.Stderr(err))
	}
	return nil
}

// RemoteBranchExists checks the remote-tracking ref, so it reflects the last fetch.
func (s *GitService) RemoteBranchExists(ctx context.Context, branch string) (bool, error) {
	return s.refExists(ctx, "refs/remotes/"+s.remote+"/"+branch)
}

func (s *GitService) LocalBranchExists(ctx context.Context, branch string) (bool, error) {
	return s.refExists(ctx, "refs/heads/"+branch)
}

func (s *GitService) refExists(ctx context.Context, ref string) (bool, error) {
	_, err := s.git(ctx, "rev-parse", "--verify", "--quiet", ref)
	if err == nil {
		return true, nil
	}
	if shell.ExitCode(err) == 1 {
		return false, nil
	}
	return false, fmt.Errorf("git rev-parse --verify %s: %w", ref, err)
}

// CreateBranch creates name from start and checks it out.
func (s *GitService) CreateBranch(ctx context.Context, name, start string) error {
	exists, err := s.LocalBranchExists(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		return errors.ErrBranchExists.WithContext("branch", name)
	}

	args := []string{"checkout", "-b", name}
	if start != "" {
		args = append(args, start)
	}
	if _, err := s.git(ctx, args...); err != nil {
		return errors.ErrCreateBranch.WithError(err).WithContext("stderr", shell.Stderr(err))
	}
	return nil
}

func (s *GitService) RenameBranch(ctx context.Context, oldName, newName string) error {
	if _, err := s.git(ctx, "branch", "-m", oldName, newName); err != nil {
		return errors.ErrCreateBranch.WithError(err).WithContext("stderr", shell.Stderr(err))
	}
	return nil
}

func (s *GitService) Commit(ctx context.Context, message string) error {
	staged, err := s.HasStagedChanges(ctx)
	if err != nil {
		return err
	}
	if !staged {
		return errors.ErrNoStagedChanges
	}

	if _, err := s.git(ctx, "commit", "-m", message); err != nil {
		return errors.ErrCreateCommit.WithError(err).WithContext("stderr", shell.Stderr(err))
	}
	return nil
}

func parseNameStatus(out string) []models.ChangedFile {
	var files []models.ChangedFile
	for _, line := range splitLines(out) {
		parts := strings.Split(line, "\t")
		if len(parts) < 2 || parts[0] == "" {
			continue
		}

		switch parts[0][0] {
		case 'R':
			if len(parts) < 3 {
				continue
			}
			files = append(files, models.ChangedFile{Path: parts[2], OldPath: parts[1], Status: models.StatusRenamed})
		case 'C':
			path := parts[len(parts)-1]
			files = append(files, models.ChangedFile{Path: path, Status: models.StatusAdded})
		case 'A':
			files = append(files, models.ChangedFile{Path: parts[1], Status: models.StatusAdded})
		case 'D':
			files = append(files, models.ChangedFile{Path: parts[1], Status: models.StatusDeleted})
		default:
			files = append(files, models.ChangedFile{Path: parts[1], Status: models.StatusModified})
		}
	}
	return files
}

func splitLines(out string) []string {
	var lines []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
