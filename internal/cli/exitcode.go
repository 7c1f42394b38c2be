package cli

import (
	"errors"

	"github.com/orbidlo/badgesync/internal/badge"
	"github.com/orbidlo/badgesync/internal/gitrepo"
	"github.com/orbidlo/badgesync/internal/leaderboard"
)

// Exit codes. 0 covers both a published update and a no-op run.
const (
	ExitOK      = 0
	ExitGeneric = 1
	ExitFetch   = 2
	ExitPatch   = 3
	ExitPublish = 4
)

// ExitCode maps an error to the process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	var fetchErr *leaderboard.FetchError
	if errors.As(err, &fetchErr) {
		return ExitFetch
	}
	if errors.Is(err, badge.ErrPatternNotFound) || errors.Is(err, badge.ErrAmbiguousPatch) {
		return ExitPatch
	}
	var publishErr *gitrepo.PublishError
	if errors.As(err, &publishErr) {
		return ExitPublish
	}

	return ExitGeneric
}
