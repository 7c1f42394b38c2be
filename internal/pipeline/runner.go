// Package pipeline drives one fetch-patch-publish run. Each run moves
// through Fetching, Patching and, only when content actually changed,
// Publishing; any failure is terminal and leaves the run for the next
// scheduled trigger.
package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"text/template"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/orbidlo/badgesync/internal/badge"
	"github.com/orbidlo/badgesync/internal/config"
	"github.com/orbidlo/badgesync/internal/gitrepo"
	"github.com/orbidlo/badgesync/internal/leaderboard"
)

// MetricProvider supplies the star count for one leaderboard query.
type MetricProvider interface {
	FetchStars(ctx context.Context, q leaderboard.Query) (int, error)
}

// ChangePublisher commits and pushes patched files.
type ChangePublisher interface {
	Publish(ctx context.Context, changes []gitrepo.FileChange, message string) error
}

// TargetResult records the outcome of one badge target.
type TargetResult struct {
	Path    string
	Year    int
	Stars   int
	Changed bool
}

// RunResult summarizes one pipeline invocation.
type RunResult struct {
	RunID   string
	Changed bool
	Targets []TargetResult
}

// Changed reports whether the patched content differs from the original.
// Byte-for-byte, no normalization.
func Changed(before, after []byte) bool {
	return !bytes.Equal(before, after)
}

// Runner executes the pipeline once per invocation.
type Runner struct {
	cfg       *config.Config
	provider  MetricProvider
	publisher ChangePublisher
	log       *zap.SugaredLogger
}

// NewRunner wires a Runner from its collaborators.
func NewRunner(cfg *config.Config, provider MetricProvider, publisher ChangePublisher, log *zap.SugaredLogger) *Runner {
	return &Runner{cfg: cfg, provider: provider, publisher: publisher, log: log}
}

// Run fetches the star counts, patches every target and publishes a single
// commit when anything changed. A failing target aborts the whole run before
// publish, so a partially patched tree is never committed.
func (r *Runner) Run(ctx context.Context) (RunResult, error) {
	result := RunResult{RunID: uuid.NewString()}
	log := r.log.With("run_id", result.RunID)

	specs, err := r.cfg.Targets()
	if err != nil {
		return result, err
	}

	// One leaderboard fetch per year, shared across targets
	starsByYear := make(map[int]int)

	// Targets may share a file (one README holding a badge per year), so
	// patches accumulate per path and each target sees the previous
	// target's output as its input. Disk content is read once per path.
	original := make(map[string][]byte)
	current := make(map[string][]byte)
	var paths []string

	for _, spec := range specs {
		target, err := badge.NewTarget(spec.File, spec.Year, spec.Pattern)
		if err != nil {
			return result, err
		}

		stars, fetched := starsByYear[spec.Year]
		if !fetched {
			stars, err = r.provider.FetchStars(ctx, leaderboard.Query{
				BaseURL:      r.cfg.LeaderboardURL,
				Year:         spec.Year,
				UserID:       r.cfg.UserID,
				SessionToken: r.cfg.SessionToken,
			})
			if err != nil {
				return result, err
			}
			starsByYear[spec.Year] = stars
		}

		before, seen := current[spec.File]
		if !seen {
			before, err = os.ReadFile(filepath.Join(r.cfg.RepoPath, spec.File))
			if err != nil {
				return result, fmt.Errorf("failed to read target file %s: %w", spec.File, err)
			}
			original[spec.File] = before
			paths = append(paths, spec.File)
		}

		after, err := target.Apply(before, stars)
		if err != nil {
			return result, err
		}
		current[spec.File] = after

		targetResult := TargetResult{
			Path:    spec.File,
			Year:    spec.Year,
			Stars:   stars,
			Changed: Changed(before, after),
		}
		result.Targets = append(result.Targets, targetResult)

		if targetResult.Changed {
			log.Infow("badge out of date", "file", spec.File, "year", spec.Year, "stars", stars)
		} else {
			log.Infow("badge already current", "file", spec.File, "year", spec.Year, "stars", stars)
		}
	}

	var changes []gitrepo.FileChange
	for _, path := range paths {
		if Changed(original[path], current[path]) {
			changes = append(changes, gitrepo.FileChange{Path: path, Content: current[path]})
		}
	}

	result.Changed = len(changes) > 0
	if !result.Changed {
		return result, nil
	}

	if r.cfg.DryRun {
		log.Infow("dry run, skipping publish", "changed_files", len(changes))
		return result, nil
	}

	message, err := r.commitMessage(result)
	if err != nil {
		return result, err
	}
	if err := r.publisher.Publish(ctx, changes, message); err != nil {
		return result, err
	}

	log.Infow("published badge update", "files", len(changes))
	return result, nil
}

// commitMessage renders the configured message template. With more than one
// changed target there is no single {Year, Stars} pair, so a summary line is
// used instead.
func (r *Runner) commitMessage(result RunResult) (string, error) {
	var changed []TargetResult
	for _, t := range result.Targets {
		if t.Changed {
			changed = append(changed, t)
		}
	}
	if len(changed) != 1 {
		return "Update stars badges", nil
	}

	tmpl, err := template.New("commit").Parse(r.cfg.CommitMessage)
	if err != nil {
		return "", fmt.Errorf("invalid commit message template: %w", err)
	}

	var buf bytes.Buffer
	data := struct {
		Year  int
		Stars int
	}{Year: changed[0].Year, Stars: changed[0].Stars}
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render commit message: %w", err)
	}
	return buf.String(), nil
}
