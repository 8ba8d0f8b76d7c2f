// Package cli implements the chemxgen command line client.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/turtacn/ChemXGen/internal/config"
	"github.com/turtacn/ChemXGen/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ChemXGen/pkg/client"
	"github.com/turtacn/ChemXGen/pkg/errors"
)

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

const defaultServer = "http://localhost:8080"

type cliContextKey struct{}

// RootOptions holds global CLI flags.
type RootOptions struct {
	ConfigPath   string
	LogLevel     string
	OutputFormat string
	Verbose      bool
	Timeout      time.Duration
	ServerAddr   string
	Token        string
}

// CLIContext carries initialized dependencies through the command tree.
type CLIContext struct {
	Logger       logging.Logger
	Client       *client.Client
	Fs           afero.Fs
	OutputFormat string
	Timeout      time.Duration
}

// NewRootCommand creates the root command with its global flags and every
// subcommand. fs backs molecule file reads; nil means the OS filesystem.
func NewRootCommand(fs afero.Fs) *cobra.Command {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "chemxgen",
		Short: "ChemXGen CLI: submit and follow AI chemistry analyses",
		Long: "chemxgen talks to a ChemXGen API server. It submits synthesis, toxicity,\n" +
			"property, similarity and reaction-condition analyses to the task queue,\n" +
			"follows their progress and renders molecular structures.",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildDate),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return persistentPreRun(cmd, opts, fs)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.ConfigPath, "config", "c", "", "server config file, used for the default port")
	pf.StringVar(&opts.LogLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	pf.StringVarP(&opts.OutputFormat, "output", "o", "text", "output format (text, json)")
	pf.BoolVarP(&opts.Verbose, "verbose", "v", false, "enable debug logging")
	pf.DurationVar(&opts.Timeout, "timeout", 30*time.Second, "per-request timeout")
	pf.StringVar(&opts.ServerAddr, "server", "", "API server address (env CHEMXGEN_SERVER, default "+defaultServer+")")
	pf.StringVar(&opts.Token, "token", "", "access token (env CHEMXGEN_TOKEN)")

	cmd.AddCommand(
		newSubmitCmd(),
		newListCmd(),
		newGetCmd(),
		newClearCmd(),
		newWatchCmd(),
		newRenderCmd(),
		newPredictCmd(),
		newGenerateCmd(),
		newVersionCmd(),
	)
	return cmd
}

func persistentPreRun(cmd *cobra.Command, opts *RootOptions, fs afero.Fs) error {
	logger, err := initLogger(opts)
	if err != nil {
		return fmt.Errorf("logger initialization failed: %w", err)
	}
	addr, err := serverAddr(opts)
	if err != nil {
		return err
	}
	token := opts.Token
	if token == "" {
		token = os.Getenv("CHEMXGEN_TOKEN")
	}
	apiClient, err := client.NewClient(addr,
		client.WithToken(token),
		client.WithTimeout(opts.Timeout),
		client.WithUserAgent("chemxgen-cli/"+Version),
		client.WithLogger(clientLogger{logger}),
	)
	if err != nil {
		return err
	}

	cliCtx := &CLIContext{
		Logger:       logger,
		Client:       apiClient,
		Fs:           fs,
		OutputFormat: strings.ToLower(opts.OutputFormat),
		Timeout:      opts.Timeout,
	}
	cmd.SetContext(context.WithValue(cmd.Context(), cliContextKey{}, cliCtx))
	return nil
}

// serverAddr resolves the API address: flag, then environment, then the
// port of a server config file, then the default.
func serverAddr(opts *RootOptions) (string, error) {
	if opts.ServerAddr != "" {
		return opts.ServerAddr, nil
	}
	if env := os.Getenv("CHEMXGEN_SERVER"); env != "" {
		return env, nil
	}
	if opts.ConfigPath != "" {
		cfg, err := config.Load(opts.ConfigPath)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("http://localhost:%d", cfg.Server.Port), nil
	}
	return defaultServer, nil
}

// initLogger creates a console logger on stderr.
func initLogger(opts *RootOptions) (logging.Logger, error) {
	level := opts.LogLevel
	if opts.Verbose {
		level = "debug"
	}
	return logging.NewLogger(logging.LogConfig{
		Level:            level,
		Format:           "console",
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	})
}

// clientLogger adapts the structured logger to the SDK's printf logger.
type clientLogger struct{ l logging.Logger }

func (c clientLogger) Debugf(format string, args ...interface{}) {
	c.l.Debug(fmt.Sprintf(format, args...))
}
func (c clientLogger) Infof(format string, args ...interface{}) {
	c.l.Info(fmt.Sprintf(format, args...))
}
func (c clientLogger) Errorf(format string, args ...interface{}) {
	c.l.Error(fmt.Sprintf(format, args...))
}

// GetCLIContext extracts CLIContext from a command's context.
func GetCLIContext(cmd *cobra.Command) (*CLIContext, error) {
	ctx := cmd.Context()
	if ctx == nil {
		return nil, errors.Internal("command context is nil")
	}
	cliCtx, ok := ctx.Value(cliContextKey{}).(*CLIContext)
	if !ok || cliCtx == nil {
		return nil, errors.Internal("CLI context not initialised")
	}
	return cliCtx, nil
}

// Execute is the main entry point for the CLI application.
func Execute() error {
	rootCmd := NewRootCommand(nil)
	if err := rootCmd.Execute(); err != nil {
		PrintError(rootCmd, err)
		return err
	}
	return nil
}

// PrintResult writes data as JSON in json mode and via text otherwise.
func PrintResult(cmd *cobra.Command, cliCtx *CLIContext, data interface{}, text func() string) error {
	if cliCtx.OutputFormat == "json" || text == nil {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	}
	fmt.Fprint(cmd.OutOrStdout(), text())
	return nil
}

// PrintError writes a formatted error message to stderr.
func PrintError(cmd *cobra.Command, err error) {
	if err == nil {
		return
	}
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %s (%s)\n", apiErr.Message, apiErr.Code)
		if apiErr.Detail != "" {
			fmt.Fprintf(cmd.ErrOrStderr(), "  %s\n", apiErr.Detail)
		}
		return
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Error: %s\n", err.Error())
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "chemxgen %s\n  commit: %s\n  built:  %s\n", Version, GitCommit, BuildDate)
		},
	}
}

// requestContext bounds one command's API calls by the global timeout.
func requestContext(cmd *cobra.Command, cliCtx *CLIContext) (context.Context, context.CancelFunc) {
	if cliCtx.Timeout <= 0 {
		return context.WithCancel(cmd.Context())
	}
	return context.WithTimeout(cmd.Context(), cliCtx.Timeout)
}
