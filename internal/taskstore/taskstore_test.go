package taskstore

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fe-devtools/devflow/internal/git"
	"github.com/fe-devtools/devflow/internal/models"
	"github.com/fe-devtools/devflow/internal/shell"
)

func startInfo(ticket, base string) models.StartTaskInfo {
	return models.StartTaskInfo{
		Ticket:     ticket,
		Summary:    "Button padding",
		IssueType:  "Bug",
		Branch:     "feature/" + ticket,
		BaseBranch: base,
		StartedAt:  time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestFileStore_StartInfo(t *testing.T) {
	ctx := context.Background()
	store := NewFileStore(t.TempDir())

	missing, err := store.LoadStartInfo(ctx, "FE-1")
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, store.SaveStartInfo(ctx, startInfo("FE-1", "develop")))

	loaded, err := store.LoadStartInfo(ctx, "FE-1")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, startInfo("FE-1", "develop"), *loaded)
	assert.FileExists(t, filepath.Join(store.TicketDir("FE-1"), StartInfoFile))
}

func TestFileStore_DescriptionInfo(t *testing.T) {
	store := NewFileStore(t.TempDir())
	info := models.MergeRequestDescriptionInfo{
		Ticket: "FE-1",
		Plan:   models.DevelopmentPlan{Goal: "fix padding", Steps: []string{"a", "b"}},
	}

	require.NoError(t, store.SaveDescriptionInfo(info))
	loaded, err := store.LoadDescriptionInfo("FE-1")
	require.NoError(t, err)
	assert.Equal(t, info, *loaded)

	none, err := store.LoadDescriptionInfo("FE-2")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestFileStore_RejectsEmptyTicket(t *testing.T) {
	store := NewFileStore(t.TempDir())
	assert.Error(t, store.SaveStartInfo(context.Background(), models.StartTaskInfo{}))
}

func TestFileStore_CorruptStartInfo(t *testing.T) {
	store := NewFileStore(t.TempDir())
	require.NoError(t, os.MkdirAll(store.TicketDir("FE-1"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(store.TicketDir("FE-1"), StartInfoFile), []byte("{"), 0o644))

	_, err := store.LoadStartInfo(context.Background(), "FE-1")
	assert.Error(t, err)
}

func writeTaskFile(t *testing.T, store *FileStore, ticket, name, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(store.TicketDir(ticket), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(store.TicketDir(ticket), name), []byte(content), 0o644))
}

func TestOriginChecker(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		setup  func(t *testing.T, s *FileStore)
		expect bool
	}{
		{
			name:   "nothing recorded",
			setup:  func(t *testing.T, s *FileStore) {},
			expect: false,
		},
		{
			name: "start info without plan or report",
			setup: func(t *testing.T, s *FileStore) {
				require.NoError(t, s.SaveStartInfo(ctx, startInfo("FE-1", "develop")))
				writeTaskFile(t, s, "FE-1", PlanFile, "  \n")
			},
			expect: false,
		},
		{
			name: "start info with plan",
			setup: func(t *testing.T, s *FileStore) {
				require.NoError(t, s.SaveStartInfo(ctx, startInfo("FE-1", "develop")))
				writeTaskFile(t, s, "FE-1", PlanFile, "# Goal\nfix")
			},
			expect: true,
		},
		{
			name: "start info with report only",
			setup: func(t *testing.T, s *FileStore) {
				require.NoError(t, s.SaveStartInfo(ctx, startInfo("FE-1", "develop")))
				writeTaskFile(t, s, "FE-1", ReportFile, "## Summary\ndone")
			},
			expect: true,
		},
		{
			name: "plan without start info",
			setup: func(t *testing.T, s *FileStore) {
				writeTaskFile(t, s, "FE-1", PlanFile, "# Goal\nfix")
			},
			expect: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewFileStore(t.TempDir())
			tt.setup(t, store)

			ok, err := NewOriginChecker(store, store).HasTaskOrigin(ctx, "FE-1")
			require.NoError(t, err)
			assert.Equal(t, tt.expect, ok)
		})
	}
}

func runGit(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", append([]string{"-c", "user.email=dev@example.com", "-c", "user.name=Dev"}, args...)...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, string(out))
}

func commitFile(t *testing.T, dir, name string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(name+"\n"), 0o644))
	runGit(t, dir, "add", ".")
	runGit(t, dir, "commit", "-m", "add "+name)
}

// gitClone creates a bare remote with a develop branch, a seed clone that
// pushes to it, and a working clone checked out on feature/FE-1.
func gitClone(t *testing.T) (clone, seed string) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	root := t.TempDir()
	remote := filepath.Join(root, "remote.git")
	seed = filepath.Join(root, "seed")
	clone = filepath.Join(root, "clone")

	runGit(t, root, "init", "--bare", "-b", "develop", remote)
	runGit(t, root, "clone", remote, seed)
	commitFile(t, seed, "a.txt")
	runGit(t, seed, "push", "origin", "HEAD:develop")

	runGit(t, root, "clone", remote, clone)
	runGit(t, clone, "checkout", "-b", "feature/FE-1")
	commitFile(t, clone, "b.txt")
	return clone, seed
}

func TestNotesStore_KeyedByTicket(t *testing.T) {
	ctx := context.Background()
	dir, _ := gitClone(t)
	store := NewNotesStore(git.NewGitService(shell.NewExecRunner(), dir))

	none, err := store.LoadStartInfo(ctx, "FE-1")
	require.NoError(t, err)
	assert.Nil(t, none)

	require.NoError(t, store.SaveStartInfo(ctx, startInfo("FE-1", "develop")))
	require.NoError(t, store.SaveStartInfo(ctx, startInfo("FE-2", "release/3.2")))

	first, err := store.LoadStartInfo(ctx, "FE-1")
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, "feature/FE-1", first.Branch)
	assert.Equal(t, "develop", first.BaseBranch)

	second, err := store.LoadStartInfo(ctx, "FE-2")
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.Equal(t, "release/3.2", second.BaseBranch)
}

func TestNotesStore_SurvivesRebase(t *testing.T) {
	ctx := context.Background()
	dir, seed := gitClone(t)
	store := NewNotesStore(git.NewGitService(shell.NewExecRunner(), dir))

	require.NoError(t, store.SaveStartInfo(ctx, startInfo("FE-1", "develop")))

	commitFile(t, seed, "c.txt")
	runGit(t, seed, "push", "origin", "HEAD:develop")
	runGit(t, dir, "fetch", "origin")
	runGit(t, dir, "rebase", "origin/develop")

	info, err := store.LoadStartInfo(ctx, "FE-1")
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, "develop", info.BaseBranch)
}
