package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/richinsley/comfymeta/internal/config"
	"github.com/richinsley/comfymeta/internal/logger"
)

// app carries the state shared by all subcommands of one invocation.
type app struct {
	v       *viper.Viper
	cfgFile string
	cfg     config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	rootCmd := &cobra.Command{
		Use:   "comfymeta",
		Short: "Extract generation metadata from ComfyUI images",
		Long: `comfymeta reads the prompt and workflow documents ComfyUI embeds in the
images it saves and prints the generation parameters they describe.`,
		Version:           fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage:      true,
		PersistentPreRunE: a.initConfig,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&a.cfgFile, "config", "c", "",
		"config file (default: ./comfymeta.yaml or ~/.config/comfymeta/config.yaml)")
	flags.StringP("output", "o", "json", "output format (json, yaml)")
	flags.String("log-level", "warn", "log level (debug, info, warn, error)")
	flags.String("log-format", "text", "log format (text, json)")
	flags.IntP("workers", "w", 4, "files parsed concurrently")
	flags.Int64("max-input-bytes", 64<<20, "reject inputs larger than this")
	flags.Bool("progress", true, "show a progress bar when parsing several files")

	// Bind flags to viper
	_ = a.v.BindPFlag("output", flags.Lookup("output"))
	_ = a.v.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = a.v.BindPFlag("log.format", flags.Lookup("log-format"))
	_ = a.v.BindPFlag("workers", flags.Lookup("workers"))
	_ = a.v.BindPFlag("max_input_bytes", flags.Lookup("max-input-bytes"))
	_ = a.v.BindPFlag("progress", flags.Lookup("progress"))

	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(
		a.newParseCmd(),
		a.newEncodeCmd(),
		a.newSamplersCmd(),
		newVersionCmd(),
	)
	return rootCmd
}

func (a *app) initConfig(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.v, a.cfgFile)
	if err != nil {
		return err
	}
	a.cfg = cfg

	slog.SetDefault(logger.NewWithWriter(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format))
	slog.Debug("config loaded", "file", a.v.ConfigFileUsed(), "output", cfg.Output, "workers", cfg.Workers)
	return nil
}
