package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/specscan/backend/internal/server"
	"github.com/specscan/backend/internal/services"
)

type failuresOptions struct {
	root      *rootOptions
	token     string
	output    string
	rulesFile string
}

func newFailuresCommand(root *rootOptions) *cobra.Command {
	opts := &failuresOptions{root: root}

	cmd := &cobra.Command{
		Use:   "failures <build-url>",
		Short: "Report failing specs for every failed job of a Buildkite build",
		Long: `Failures fetches a Buildkite build, walks its failed jobs in order and
extracts failing specs from each job log.

Example:
  specscan failures https://buildkite.com/acme/web/builds/1234
  specscan failures https://buildkite.com/acme/web/builds/1234 --output yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFailures(cmd.Context(), cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.token, "token", "", "Buildkite API token (default: BUILDKITE_ACCESS_TOKEN)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "json", "output format (json, yaml)")
	cmd.Flags().StringVar(&opts.rulesFile, "fingerprints", "", "YAML or TOML file of extra fingerprint rules (default: FINGERPRINTS_FILE)")
	return cmd
}

func runFailures(ctx context.Context, cmd *cobra.Command, buildURL string, opts *failuresOptions) error {
	cfg, err := opts.root.loadConfig()
	if err != nil {
		return err
	}
	if opts.rulesFile != "" {
		cfg.Extract.FingerprintsFile = opts.rulesFile
	}
	if opts.token != "" {
		cfg.Buildkite.Token = opts.token
	}
	if !cfg.HasToken() {
		return fmt.Errorf("a Buildkite token is required (set BUILDKITE_ACCESS_TOKEN or --token)")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	extractor, err := newExtractor(cfg.Extract.FingerprintsFile)
	if err != nil {
		return err
	}

	svc := services.NewFailureService(server.NewClient(cfg), extractor)
	report, err := svc.ListFailedSpecs(ctx, buildURL)
	if err != nil {
		return err
	}
	return writeOutput(cmd.OutOrStdout(), report, opts.output)
}
