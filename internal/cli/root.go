// Package cli implements blockc, the command-line front end: it evaluates
// block scripts, generates Arduino sketches from them and drives
// arduino-cli.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/chazu/blockstudio/internal/config"
	"github.com/chazu/blockstudio/internal/logging"
	"github.com/chazu/blockstudio/pkg/toolchain"
)

// env is the state shared by every subcommand once configuration is loaded.
type env struct {
	cfg      config.Config
	logger   *slog.Logger
	closeLog func() error
	out      io.Writer
}

// newRunner builds the arduino-cli runner for a command. Tests replace it.
var newRunner = func(cfg config.Config, fqbn, port string, logger *slog.Logger) *toolchain.Runner {
	r := toolchain.NewRunner(cfg.ArduinoCLI, fqbn, port, logger)
	r.Timeout = cfg.UploadTimeout
	return r
}

// NewRootCmd returns the blockc command tree.
func NewRootCmd() *cobra.Command {
	e := &env{logger: logging.Discard(), closeLog: func() error { return nil }}

	root := &cobra.Command{
		Use:   "blockc",
		Short: "Build Arduino sketches from block programs",
		Long: "blockc evaluates block scripts, checks the program they build, " +
			"generates Arduino C++ from it and uploads the sketch with arduino-cli.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return e.init(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return e.closeLog()
		},
	}

	root.PersistentFlags().String("config", "", "config file (default .blockc.yaml)")
	root.PersistentFlags().BoolP("verbose", "v", false, "verbose output")
	_ = viper.BindPFlag("verbose", root.PersistentFlags().Lookup("verbose"))

	root.AddCommand(
		newGenerateCmd(e),
		newUploadCmd(e),
		newWatchCmd(e),
		newKindsCmd(e),
		newCheckCmd(e),
		newMonitorCmd(e),
	)
	return root
}

// Execute runs blockc and exits non-zero on failure.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func (e *env) init(cmd *cobra.Command) error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}
	cfgFile, _ := cmd.Flags().GetString("config")
	if err := config.Init(cfgFile); err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	level := cfg.LogLevel
	if cfg.Verbose {
		level = "debug"
	}
	logger, closeLog, err := logging.New(logging.Options{
		Level:  level,
		File:   cfg.LogFile,
		Writer: cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}

	e.cfg = cfg
	e.logger = logger
	e.closeLog = closeLog
	e.out = cmd.OutOrStdout()
	return nil
}
