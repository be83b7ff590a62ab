// Package cli holds the site-cms commands: the web server and the backup and
// markdown import tools that talk to the same REST API.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"site-cms/pkg/apiclient"
	"site-cms/pkg/config"
	"site-cms/pkg/logger"
)

// NewRootCommand builds the command tree. Config is loaded once before any
// subcommand runs.
func NewRootCommand() *cobra.Command {
	var apiURL string

	root := &cobra.Command{
		Use:           "site-cms",
		Short:         "Marketing site and CMS admin dashboard",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			config.Init()
			if apiURL != "" {
				config.APIBaseURL = apiURL
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	root.PersistentFlags().StringVar(&apiURL, "api", "", "CMS REST API base URL (overrides API_BASE_URL)")

	root.AddCommand(newServeCommand())
	root.AddCommand(newBackupCommand())
	root.AddCommand(newImportMarkdownCommand())
	return root
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	if err := NewRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}

// newClient builds the REST client from config. A nil logger logs nothing and
// a nil registerer disables metrics.
func newClient(log *zap.Logger, reg prometheus.Registerer) (*apiclient.Client, error) {
	if log == nil {
		log = zap.NewNop()
	}
	opts := []apiclient.Option{
		apiclient.WithLogger(log),
		apiclient.WithTimeout(config.APITimeout),
	}
	if reg != nil {
		opts = append(opts, apiclient.WithMetrics(apiclient.NewMetrics(reg)))
	}
	return apiclient.New(config.APIBaseURL, opts...)
}

func newLogger() (*zap.Logger, error) {
	return logger.New(config.LogLevel, config.LogDevelopment)
}

// tokenFlag adds --token, defaulting to the CMS_TOKEN environment variable.
func tokenFlag(cmd *cobra.Command, token *string) {
	cmd.Flags().StringVar(token, "token", "", "bearer token for the CMS API (default $CMS_TOKEN)")
}

func credential(token string) (apiclient.Credential, error) {
	if token == "" {
		token = os.Getenv("CMS_TOKEN")
	}
	if token == "" {
		return apiclient.Credential{}, fmt.Errorf("a token is required: pass --token or set CMS_TOKEN")
	}
	return apiclient.Credential{Token: token}, nil
}
