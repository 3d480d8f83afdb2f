package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/specscan/backend/internal/models"
	"github.com/specscan/backend/internal/services"
)

type extractOptions struct {
	root        *rootOptions
	mode        string
	output      string
	job         models.JobContext
	failOnFound bool
	rulesFile   string
}

func newExtractCommand(root *rootOptions) *cobra.Command {
	opts := &extractOptions{root: root}

	cmd := &cobra.Command{
		Use:   "extract [file|-]",
		Short: "Extract failing specs from a log file or stdin",
		Long: `Extract runs the failure extraction over a single log.

The authoritative mode (default) tries a fixed cascade of strategies and
reports the first that finds anything. The all mode sweeps every framework
pattern and reports every match.

Example:
  specscan extract build.log
  buildkite-agent artifact download log - | specscan extract --mode all -
  specscan extract build.log --job-id 0190 --output yaml`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtract(cmd, args, opts)
		},
	}

	cmd.Flags().StringVar(&opts.mode, "mode", services.ModeAuthoritative, "extraction mode (authoritative, all)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "json", "output format (json, yaml)")
	cmd.Flags().StringVar(&opts.job.ID, "job-id", "", "job id attached to records")
	cmd.Flags().StringVar(&opts.job.Name, "job-name", "", "job name attached to records")
	cmd.Flags().StringVar(&opts.job.URL, "job-url", "", "job link attached to records")
	cmd.Flags().StringVar(&opts.job.BuildNumber, "build-number", "", "build number attached to records")
	cmd.Flags().BoolVar(&opts.failOnFound, "fail-on-found", false, "exit non-zero when failures are found")
	cmd.Flags().StringVar(&opts.rulesFile, "fingerprints", "", "YAML or TOML file of extra fingerprint rules (default: FINGERPRINTS_FILE)")
	return cmd
}

func runExtract(cmd *cobra.Command, args []string, opts *extractOptions) error {
	var (
		in  io.Reader = cmd.InOrStdin()
		src           = "stdin"
	)
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open log: %w", err)
		}
		defer f.Close()
		in, src = f, args[0]
	}

	data, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", src, err)
	}

	rulesFile, err := opts.root.rulesFile(opts.rulesFile)
	if err != nil {
		return err
	}
	extractor, err := newExtractor(rulesFile)
	if err != nil {
		return err
	}

	result, err := extractor.Extract(string(data), opts.mode, opts.job)
	if err != nil {
		return err
	}
	if err := writeOutput(cmd.OutOrStdout(), result, opts.output); err != nil {
		return err
	}

	if opts.failOnFound && result.Count > 0 {
		return fmt.Errorf("%d failure(s) found in %s", result.Count, src)
	}
	return nil
}
