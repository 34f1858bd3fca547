package cli

import (
	"io"
	"log/slog"
	"strings"

	"github.com/specialistvlad/assetgrid/internal/app"
	"github.com/spf13/cobra"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

const longHelp = `AssetGrid - bundles the JavaScript and CSS dependencies of web pages.

CONFIG_PATH is a single .hcl (or .hcl.json) file or a directory containing
them. Each --page names a page and the package descriptor that lists its
dependencies, relative to the project root.`

// Parse processes command-line arguments. It returns a populated app.Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")

	var (
		configPath string
		pages      []string
		flags      []string
		healthPort int
		logFormat  string
		logLevel   string
		workers    int
		resultPath string
		parsed     *app.Config
	)

	cmd := &cobra.Command{
		Use:           "assetgrid [options] [CONFIG_PATH]",
		Short:         "Bundle page dependencies",
		Long:          longHelp,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := configPath
			if path == "" && len(args) > 0 {
				path = args[0]
			}
			slog.Debug("Config path determined.", "path", path)
			if path == "" {
				slog.Debug("No config path provided, printing usage and exiting.")
				return cmd.Usage()
			}

			logFormat = strings.ToLower(logFormat)
			if logFormat != "text" && logFormat != "json" {
				return &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
			}
			logLevel = strings.ToLower(logLevel)
			switch logLevel {
			case "debug", "info", "warn", "error":
				// valid
			default:
				return &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
			}

			specs := make([]app.PageSpec, 0, len(pages))
			for _, p := range pages {
				spec, err := app.ParsePageSpec(p)
				if err != nil {
					return &ExitError{Code: 2, Message: err.Error()}
				}
				specs = append(specs, spec)
			}
			slog.Debug("CLI parameter validation complete.")

			cfg, err := app.NewConfig(app.Config{
				ConfigPath:      path,
				Pages:           specs,
				Flags:           flags,
				LogFormat:       logFormat,
				LogLevel:        logLevel,
				HealthcheckPort: healthPort,
				WorkerCount:     workers,
				ResultPath:      resultPath,
			})
			if err != nil {
				return &ExitError{Code: 2, Message: err.Error()}
			}
			parsed = cfg
			return nil
		},
	}
	cmd.SetArgs(args)
	cmd.SetOut(output)
	cmd.SetErr(output)

	f := cmd.Flags()
	f.StringVarP(&configPath, "config", "c", "", "Path to the config file or directory.")
	f.StringArrayVarP(&pages, "page", "p", nil, "Page to build as name=descriptor; repeatable.")
	f.StringArrayVarP(&flags, "flag", "f", nil, "Build flag to set; repeatable.")
	f.IntVar(&healthPort, "healthcheck-port", 0, "Port for the HTTP health check and metrics server. 0 is disabled.")
	f.StringVar(&logFormat, "log-format", "json", "Log output format. Options: 'text' or 'json'.")
	f.StringVar(&logLevel, "log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	f.IntVar(&workers, "workers", 0, "Number of concurrent workers. 0 uses the configured value.")
	f.StringVarP(&resultPath, "output", "o", "-", "File to write page results to as JSON. '-' writes to stdout.")

	if err := cmd.Execute(); err != nil {
		if exitErr, ok := err.(*ExitError); ok {
			return nil, false, exitErr
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	if parsed == nil {
		// Help was requested or no config path was given.
		return nil, true, nil
	}

	slog.Debug("CLI parser finished successfully.", "config", parsed)
	return parsed, false, nil
}
