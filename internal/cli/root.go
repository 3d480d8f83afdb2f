// Package cli implements the specscan command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/specscan/backend/internal/config"
	"github.com/specscan/backend/internal/logger"
	"github.com/specscan/backend/internal/services"
)

// Version is set at build time.
var Version = "dev"

type rootOptions struct {
	envFile  string
	logLevel string
	verbose  bool
}

// NewRootCommand builds the specscan command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "specscan",
		Short: "Extract failing tests from CI build logs",
		Long: `specscan reads CI job logs and reports the failing test specs they mention.

Logs can come from local files or standard input, or be fetched from
Buildkite for every failed job of a build.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := opts.logLevel
			if opts.verbose {
				level = "DEBUG"
			}
			logger.Initialize(logger.Options{Level: level})
		},
	}

	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", "", "load environment from this file (default: .env if present)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "WARN", "log level (DEBUG, INFO, WARN, ERROR)")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "verbose logging")

	cmd.AddCommand(
		newExtractCommand(opts),
		newFailuresCommand(opts),
		newServeCommand(opts),
		newVersionCommand(),
	)
	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCommand().Execute()
}

func (o *rootOptions) loadConfig() (*config.Config, error) {
	if o.envFile != "" {
		return config.Load(o.envFile)
	}
	return config.Load()
}

// rulesFile returns the fingerprint rules path: the flag when given,
// otherwise FINGERPRINTS_FILE.
func (o *rootOptions) rulesFile(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	cfg, err := o.loadConfig()
	if err != nil {
		return "", err
	}
	return cfg.Extract.FingerprintsFile, nil
}

// newExtractor builds an extraction service whose cascade includes the
// custom fingerprint rules in path.
func newExtractor(path string) (*services.ExtractionService, error) {
	rules, err := services.LoadFingerprintRules(path)
	if err != nil {
		return nil, err
	}
	ruleService, err := services.NewFingerprintRuleService(rules)
	if err != nil {
		return nil, fmt.Errorf("invalid fingerprint rules: %w", err)
	}
	return services.NewExtractionService(ruleService.Engine()), nil
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "specscan %s\n", Version)
		},
	}
}

// writeOutput renders v as JSON or YAML.
func writeOutput(w io.Writer, v interface{}, format string) error {
	switch strings.ToLower(format) {
	case "", "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported output format %q (expected json or yaml)", format)
	}
}
