package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/orbidlo/badgesync/internal/config"
	"github.com/orbidlo/badgesync/internal/gitrepo"
	"github.com/orbidlo/badgesync/internal/leaderboard"
	"github.com/orbidlo/badgesync/internal/pipeline"
)

type runOptions struct {
	configFile string
	dryRun     bool
	verbose    bool
}

func newRunCmd() *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Fetch the star count and update the badge once",
		Long: `Run one fetch-patch-publish cycle: fetch the star count from the
leaderboard, patch the badge in the target file and, if the content changed,
commit and push it. Configuration comes from the environment (SESSION_TOKEN,
USER_ID, LEADERBOARD_URL, YEAR, TARGET_FILE, ...).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.configFile, "config", "", "optional config file layered under the environment")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "patch and report, but do not commit or push")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "verbose logging")

	return cmd
}

func runOnce(cmd *cobra.Command, opts *runOptions) error {
	log, err := newLogger(opts.verbose)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	cfg, err := config.NewManager(opts.configFile).Load()
	if err != nil {
		return err
	}
	if opts.dryRun {
		cfg.DryRun = true
	}

	provider := leaderboard.NewClient(cfg.HTTPTimeout, log)
	publisher, err := gitrepo.NewPublisher(gitrepo.Options{
		RepoPath:    cfg.RepoPath,
		Remote:      cfg.GitRemote,
		Branch:      cfg.GitBranch,
		Username:    cfg.GitUsername,
		Token:       cfg.GitToken,
		AuthorName:  cfg.AuthorName,
		AuthorEmail: cfg.AuthorEmail,
	}, log)
	if err != nil {
		return err
	}

	runner := pipeline.NewRunner(cfg, provider, publisher, log)
	result, err := runner.Run(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, target := range result.Targets {
		fmt.Fprintf(out, "%s (year %d): %d stars, changed=%t\n", target.Path, target.Year, target.Stars, target.Changed)
	}
	switch {
	case !result.Changed:
		fmt.Fprintln(out, "badge already up to date, nothing to commit")
	case cfg.DryRun:
		fmt.Fprintln(out, "dry run: changes not committed")
	default:
		fmt.Fprintln(out, "badge updated and pushed")
	}

	return nil
}

func newLogger(verbose bool) (*zap.SugaredLogger, error) {
	var logger *zap.Logger
	var err error
	if verbose {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	return logger.Sugar(), nil
}
