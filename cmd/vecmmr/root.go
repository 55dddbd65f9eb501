package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/vecmmr"
	"github.com/hupe1980/vecmmr/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// persistent flag name -> viper key
var globalFlags = map[string]string{
	"data-dir":   "data_dir",
	"store":      "store",
	"log-level":  "log_level",
	"log-format": "log_format",
}

type app struct {
	v *viper.Viper
}

// NewRootCmd creates the root vecmmr command with all subcommands registered.
func NewRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:           "vecmmr",
		Short:         "Vector search with MMR re-ranking",
		Long:          "vecmmr loads vector tables, stores them as snapshots and runs nearest-neighbor searches with optional Maximal Marginal Relevance re-ranking.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.initViper(cmd)
		},
	}

	root.PersistentFlags().StringP("config", "c", "", "path to config file")
	root.PersistentFlags().String("data-dir", "", "snapshot directory for the local store")
	root.PersistentFlags().String("store", "", fmt.Sprintf("snapshot store %v", config.Stores()))
	root.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	root.PersistentFlags().String("log-format", "", "log format (text, json)")

	root.AddCommand(
		newImportCmd(a),
		newSearchCmd(a),
		newSnapshotCmd(a),
		newVersionCmd(),
	)

	return root
}

// initViper resolves settings with the precedence flag > env > file > defaults.
func (a *app) initViper(cmd *cobra.Command) error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}

	config.SetDefaults(a.v)
	config.SetupEnv(a.v)

	if cfgFile, _ := cmd.Flags().GetString("config"); cfgFile != "" {
		a.v.SetConfigFile(cfgFile)
		if err := a.v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config file: %w", err)
		}
	} else {
		a.v.SetConfigName("vecmmr")
		a.v.AddConfigPath(".")
		a.v.AddConfigPath("$HOME/.config/vecmmr")
		if err := a.v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return fmt.Errorf("reading config: %w", err)
			}
		}
	}

	for flag, key := range globalFlags {
		if err := a.v.BindPFlag(key, cmd.Root().PersistentFlags().Lookup(flag)); err != nil {
			return fmt.Errorf("binding %s flag: %w", flag, err)
		}
	}
	return nil
}

func (a *app) openDB(ctx context.Context) (*vecmmr.DB, error) {
	cfg, err := config.FromViper(a.v)
	if err != nil {
		return nil, err
	}
	opts, err := cfg.Options(ctx)
	if err != nil {
		return nil, err
	}
	return vecmmr.New(opts...)
}
