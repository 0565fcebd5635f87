package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gvsds/jar-matrix/internal/config"
	"github.com/gvsds/jar-matrix/internal/domain/release"
	"github.com/gvsds/jar-matrix/internal/logger"
	"github.com/gvsds/jar-matrix/internal/service/matrix"
	"github.com/gvsds/jar-matrix/internal/version"
)

var (
	// configPath to the optional configuration YAML file.
	configPath string
	// options collects the flags passed to matrix.Run.
	options matrix.Options
	// logLevel is the minimum level of log entries.
	logLevel string

	// errUnknownLogLevel is returned for an unsupported --log-level value.
	errUnknownLogLevel = errors.New("unknown log level")

	// rootCmd represents the base command for building version-specific archives.
	rootCmd = &cobra.Command{
		Use:   "jar-matrix --input-jar <path> (--version <mc-version> | --all)",
		Short: "Create version-specific JAR files for Minecraft mods",
		Long: `Creates one copy of a Fabric mod JAR per Minecraft version.

Each copy carries the canonical fabric.mod.json with depends.minecraft pinned
to exactly that version ("[1.20.1]"). Output names insert the version after the
first dot-separated part of the input name: mod.jar -> mod-1.20.1.jar.

A failing version is reported and the remaining versions are still built.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			level, ok := logger.ParseLogLevel(logLevel)
			if !ok {
				return fmt.Errorf("%w: %s", errUnknownLogLevel, logLevel)
			}

			logger.SetLevel(level)

			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options.ConfigPath = configPath

			results, err := matrix.Run(ctx, &options)
			if errors.Is(err, release.ErrNoSelection) {
				_ = cmd.Usage()
			}

			if err != nil {
				return err
			}

			succeeded, total := matrix.Summary(results)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(),
				"\nProcessing complete. Successfully created %d of %d JAR files.\n", succeeded, total)

			return nil
		},
	}
)

// Execute runs the jar-matrix CLI and exits with non-zero status on a fatal error.
func Execute() {
	if code := execute(); code != 0 {
		os.Exit(code)
	}
}

// execute runs the root command and returns the process exit code.
func execute() int {
	defer logger.Sync()

	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintln(rootCmd.ErrOrStderr(), "Error:", err)

		return 1
	}

	return 0
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	version.AttachCobraVersionCommand(rootCmd)

	flags := rootCmd.Flags()

	flags.StringVarP(&options.InputPath, "input-jar", "i", "", "path to the input JAR file")
	flags.StringVarP(&options.OutputDir, "output-dir", "o", "",
		"output directory for version-specific JARs (default "+config.DefaultOutputDir+")")
	flags.StringVarP(&options.Version, "version", "v", "", "specific Minecraft version to target")
	flags.BoolVarP(&options.All, "all", "a", false, "generate JARs for all supported versions")
	flags.StringVarP(&options.Range, "range", "r", "", `semver constraint narrowing --all (e.g. ">=1.20, <1.21")`)
	flags.StringVarP(&options.ManifestPath, "manifest", "m", "",
		"canonical fabric.mod.json (default "+config.DefaultManifestPath+")")
	flags.IntVarP(&options.Workers, "workers", "w", 0, "number of versions built at once (default 1)")

	_ = rootCmd.MarkFlagRequired("input-jar")

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"path to configuration file (default "+config.DefaultConfigFilename+" if present)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
}
