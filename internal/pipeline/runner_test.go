package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/orbidlo/badgesync/internal/badge"
	"github.com/orbidlo/badgesync/internal/config"
	"github.com/orbidlo/badgesync/internal/gitrepo"
	"github.com/orbidlo/badgesync/internal/leaderboard"
)

type fakeProvider struct {
	starsByYear map[int]int
	err         error
	calls       int
}

func (f *fakeProvider) FetchStars(_ context.Context, q leaderboard.Query) (int, error) {
	f.calls++
	if f.err != nil {
		return 0, f.err
	}
	return f.starsByYear[q.Year], nil
}

type fakePublisher struct {
	err     error
	calls   int
	changes []gitrepo.FileChange
	message string
}

func (f *fakePublisher) Publish(_ context.Context, changes []gitrepo.FileChange, message string) error {
	f.calls++
	f.changes = changes
	f.message = message
	return f.err
}

func testConfig(repoPath string) *config.Config {
	return &config.Config{
		SessionToken:   "s3cr3t",
		UserID:         "12345",
		LeaderboardURL: "https://example.com/{year}/board.json",
		Year:           2022,
		TargetFile:     "README.md",
		RepoPath:       repoPath,
		CommitMessage:  "Update stars badge for {{.Year}} to {{.Stars}}",
	}
}

func writeReadme(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "README.md")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestRunPublishesWhenBadgeOutdated(t *testing.T) {
	dir := t.TempDir()
	writeReadme(t, dir, "prefix stars%202022⭐-41-yellow suffix\n")

	provider := &fakeProvider{starsByYear: map[int]int{2022: 52}}
	publisher := &fakePublisher{}
	runner := NewRunner(testConfig(dir), provider, publisher, zap.NewNop().Sugar())

	result, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, result.Changed)
	assert.NotEmpty(t, result.RunID)
	require.Len(t, result.Targets, 1)
	assert.Equal(t, 52, result.Targets[0].Stars)

	require.Equal(t, 1, publisher.calls)
	require.Len(t, publisher.changes, 1)
	assert.Equal(t, "README.md", publisher.changes[0].Path)
	assert.Contains(t, string(publisher.changes[0].Content), "stars%202022⭐-52-yellow")
	assert.Equal(t, "Update stars badge for 2022 to 52", publisher.message)
}

func TestRunNoChangeSkipsPublisher(t *testing.T) {
	dir := t.TempDir()
	writeReadme(t, dir, "stars%202022⭐-52-yellow\n")

	provider := &fakeProvider{starsByYear: map[int]int{2022: 52}}
	publisher := &fakePublisher{}
	runner := NewRunner(testConfig(dir), provider, publisher, zap.NewNop().Sugar())

	result, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.False(t, result.Changed)
	assert.Equal(t, 0, publisher.calls)
}

func TestRunDryRunSkipsPublisher(t *testing.T) {
	dir := t.TempDir()
	writeReadme(t, dir, "stars%202022⭐-41-yellow\n")

	cfg := testConfig(dir)
	cfg.DryRun = true
	provider := &fakeProvider{starsByYear: map[int]int{2022: 52}}
	publisher := &fakePublisher{}
	runner := NewRunner(cfg, provider, publisher, zap.NewNop().Sugar())

	result, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, result.Changed)
	assert.Equal(t, 0, publisher.calls)

	// Dry run leaves the file alone
	content, err := os.ReadFile(filepath.Join(dir, "README.md"))
	require.NoError(t, err)
	assert.Contains(t, string(content), "-41-")
}

func TestRunFetchFailureAborts(t *testing.T) {
	dir := t.TempDir()
	writeReadme(t, dir, "stars%202022⭐-41-yellow\n")

	fetchErr := &leaderboard.FetchError{URL: "https://example.com", Err: errors.New("boom")}
	provider := &fakeProvider{err: fetchErr}
	publisher := &fakePublisher{}
	runner := NewRunner(testConfig(dir), provider, publisher, zap.NewNop().Sugar())

	_, err := runner.Run(context.Background())
	var asFetch *leaderboard.FetchError
	require.ErrorAs(t, err, &asFetch)
	assert.Equal(t, 0, publisher.calls)
}

func TestRunPatternNotFoundLeavesFileUntouched(t *testing.T) {
	dir := t.TempDir()
	original := "no badge in here\n"
	path := writeReadme(t, dir, original)

	provider := &fakeProvider{starsByYear: map[int]int{2022: 52}}
	publisher := &fakePublisher{}
	runner := NewRunner(testConfig(dir), provider, publisher, zap.NewNop().Sugar())

	_, err := runner.Run(context.Background())
	require.ErrorIs(t, err, badge.ErrPatternNotFound)
	assert.Equal(t, 0, publisher.calls)

	content, readErr := os.ReadFile(path)
	require.NoError(t, readErr)
	assert.Equal(t, original, string(content))
}

func TestRunAmbiguousPatternAborts(t *testing.T) {
	dir := t.TempDir()
	writeReadme(t, dir, "stars%202022⭐-41-yellow stars%202022⭐-41-yellow\n")

	provider := &fakeProvider{starsByYear: map[int]int{2022: 52}}
	publisher := &fakePublisher{}
	runner := NewRunner(testConfig(dir), provider, publisher, zap.NewNop().Sugar())

	_, err := runner.Run(context.Background())
	require.ErrorIs(t, err, badge.ErrAmbiguousPatch)
	assert.Equal(t, 0, publisher.calls)
}

func TestRunPublishFailureSurfaces(t *testing.T) {
	dir := t.TempDir()
	writeReadme(t, dir, "stars%202022⭐-41-yellow\n")

	provider := &fakeProvider{starsByYear: map[int]int{2022: 52}}
	publisher := &fakePublisher{err: &gitrepo.PublishError{Op: "push", Err: errors.New("rejected")}}
	runner := NewRunner(testConfig(dir), provider, publisher, zap.NewNop().Sugar())

	_, err := runner.Run(context.Background())
	var pubErr *gitrepo.PublishError
	assert.ErrorAs(t, err, &pubErr)
}

func TestRunMultipleTargetsShareFetchPerYear(t *testing.T) {
	dir := t.TempDir()
	writeReadme(t, dir, "stars%202022⭐-41-yellow\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "STATS.md"), []byte("stars%202022⭐-40-yellow\n"), 0644))

	targetsPath := filepath.Join(dir, "targets.yaml")
	require.NoError(t, os.WriteFile(targetsPath, []byte(
		"targets:\n  - year: 2022\n    file: README.md\n  - year: 2022\n    file: STATS.md\n"), 0644))

	cfg := testConfig(dir)
	cfg.TargetsFile = targetsPath

	provider := &fakeProvider{starsByYear: map[int]int{2022: 52}}
	publisher := &fakePublisher{}
	runner := NewRunner(cfg, provider, publisher, zap.NewNop().Sugar())

	result, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, provider.calls)
	assert.True(t, result.Changed)
	require.Equal(t, 1, publisher.calls)
	assert.Len(t, publisher.changes, 2)
	assert.Equal(t, "Update stars badges", publisher.message)
}

func TestRunTargetsSharingOneFileAccumulate(t *testing.T) {
	dir := t.TempDir()
	writeReadme(t, dir, "stars%202022⭐-41-yellow\nstars%202023⭐-10-yellow\n")

	targetsPath := filepath.Join(dir, "targets.yaml")
	require.NoError(t, os.WriteFile(targetsPath, []byte(
		"targets:\n  - year: 2022\n    file: README.md\n  - year: 2023\n    file: README.md\n"), 0644))

	cfg := testConfig(dir)
	cfg.TargetsFile = targetsPath

	provider := &fakeProvider{starsByYear: map[int]int{2022: 52, 2023: 14}}
	publisher := &fakePublisher{}
	runner := NewRunner(cfg, provider, publisher, zap.NewNop().Sugar())

	result, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, result.Changed)
	require.Len(t, result.Targets, 2)
	assert.True(t, result.Targets[0].Changed)
	assert.True(t, result.Targets[1].Changed)

	// One file change carrying both substitutions, neither lost
	require.Equal(t, 1, publisher.calls)
	require.Len(t, publisher.changes, 1)
	content := string(publisher.changes[0].Content)
	assert.Contains(t, content, "stars%202022⭐-52-yellow")
	assert.Contains(t, content, "stars%202023⭐-14-yellow")
}

func TestRunSharedFileOnlyOneBadgeOutdated(t *testing.T) {
	dir := t.TempDir()
	writeReadme(t, dir, "stars%202022⭐-52-yellow\nstars%202023⭐-10-yellow\n")

	targetsPath := filepath.Join(dir, "targets.yaml")
	require.NoError(t, os.WriteFile(targetsPath, []byte(
		"targets:\n  - year: 2022\n    file: README.md\n  - year: 2023\n    file: README.md\n"), 0644))

	cfg := testConfig(dir)
	cfg.TargetsFile = targetsPath

	provider := &fakeProvider{starsByYear: map[int]int{2022: 52, 2023: 14}}
	publisher := &fakePublisher{}
	runner := NewRunner(cfg, provider, publisher, zap.NewNop().Sugar())

	result, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.False(t, result.Targets[0].Changed)
	assert.True(t, result.Targets[1].Changed)
	require.Len(t, publisher.changes, 1)
	content := string(publisher.changes[0].Content)
	assert.Contains(t, content, "stars%202022⭐-52-yellow")
	assert.Contains(t, content, "stars%202023⭐-14-yellow")
	// Single changed target renders the template even on a shared file
	assert.Equal(t, "Update stars badge for 2023 to 14", publisher.message)
}

func TestRunMixedChangedAndCurrentTargets(t *testing.T) {
	dir := t.TempDir()
	writeReadme(t, dir, "stars%202022⭐-52-yellow\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "STATS.md"), []byte("stars%202021⭐-10-yellow\n"), 0644))

	targetsPath := filepath.Join(dir, "targets.yaml")
	require.NoError(t, os.WriteFile(targetsPath, []byte(
		"targets:\n  - year: 2022\n    file: README.md\n  - year: 2021\n    file: STATS.md\n"), 0644))

	cfg := testConfig(dir)
	cfg.TargetsFile = targetsPath

	provider := &fakeProvider{starsByYear: map[int]int{2022: 52, 2021: 14}}
	publisher := &fakePublisher{}
	runner := NewRunner(cfg, provider, publisher, zap.NewNop().Sugar())

	result, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, provider.calls)
	assert.True(t, result.Changed)
	require.Len(t, publisher.changes, 1)
	assert.Equal(t, "STATS.md", publisher.changes[0].Path)
	// Single changed target renders the template
	assert.Equal(t, "Update stars badge for 2021 to 14", publisher.message)
}

func TestChanged(t *testing.T) {
	assert.False(t, Changed([]byte("same"), []byte("same")))
	assert.True(t, Changed([]byte("a"), []byte("b")))
	assert.False(t, Changed(nil, []byte{}))
}
