package main

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"fastllamad/internal/common/fsutil"
	"fastllamad/internal/config"
	"fastllamad/internal/registry"
	"fastllamad/internal/store"
)

// Defaults for settings left empty by file, environment and flags.
const (
	defaultAddr      = ":8080"
	defaultDataDir   = "~/.fastllamad"
	defaultModelsDir = "~/models"
	defaultLogLevel  = "info"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "fastllamad",
		Short:         "Streaming chat sessions over a local llama engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	f := root.PersistentFlags()
	f.String("config", "", "Config file (.yaml, .yml, .json, .toml)")
	f.String("env-file", ".env", "Dotenv file loaded before FASTLLAMAD_* variables are read")
	f.String("data-dir", "", "Directory for saved sessions (default "+defaultDataDir+")")
	f.String("models-dir", "", "Directory scanned for model files (default "+defaultModelsDir+")")
	f.String("index-backend", "", "Saved session index: json|sqlite")
	f.String("log-level", "", "Log level: trace|debug|info|warn|error")
	f.String("log-format", "", "Log format: console|json")

	root.AddCommand(newServeCmd(), newModelsCmd(), newSessionsCmd())
	return root
}

// resolveConfig merges config file, dotenv/environment and changed flags, in
// increasing precedence, then fills defaults.
func resolveConfig(cmd *cobra.Command) (config.Config, error) {
	var cfg config.Config
	flags := cmd.Flags()

	envFile, _ := flags.GetString("env-file")
	if envFile != "" {
		if err := config.LoadDotEnv(envFile); err != nil {
			return cfg, err
		}
	}
	if path, _ := flags.GetString("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return cfg, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}
	cfg, err := config.ApplyEnv(cfg, os.LookupEnv)
	if err != nil {
		return cfg, err
	}

	str := func(name string, dst *string) {
		if flags.Changed(name) {
			*dst, _ = flags.GetString(name)
		}
	}
	str("addr", &cfg.Addr)
	str("data-dir", &cfg.DataDir)
	str("models-dir", &cfg.ModelsDir)
	str("workspace-dir", &cfg.WorkspaceDir)
	str("index-backend", &cfg.IndexBackend)
	str("log-level", &cfg.LogLevel)
	str("log-format", &cfg.LogFormat)
	if flags.Changed("max-sessions") {
		cfg.MaxSessions, _ = flags.GetInt("max-sessions")
	}
	if flags.Changed("max-message-bytes") {
		cfg.MaxMessageBytes, _ = flags.GetInt64("max-message-bytes")
	}
	if flags.Changed("cors-origins") {
		v, _ := flags.GetString("cors-origins")
		cfg.CORS.Enabled = true
		cfg.CORS.Origins = config.SplitCSV(v)
	}
	return withDefaults(cfg)
}

func withDefaults(cfg config.Config) (config.Config, error) {
	if cfg.Addr == "" {
		cfg.Addr = defaultAddr
	}
	if cfg.DataDir == "" {
		cfg.DataDir = defaultDataDir
	}
	if cfg.ModelsDir == "" {
		cfg.ModelsDir = defaultModelsDir
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = defaultLogLevel
	}
	if cfg.IndexBackend == "" {
		cfg.IndexBackend = store.BackendJSON
	}
	var err error
	if cfg.DataDir, err = fsutil.ExpandHome(cfg.DataDir); err != nil {
		return cfg, err
	}
	if cfg.ModelsDir, err = fsutil.ExpandHome(cfg.ModelsDir); err != nil {
		return cfg, err
	}
	if cfg.WorkspaceDir == "" {
		cfg.WorkspaceDir = cfg.ModelsDir
	}
	if cfg.WorkspaceDir, err = fsutil.ExpandHome(cfg.WorkspaceDir); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func savesDir(cfg config.Config) string { return filepath.Join(cfg.DataDir, "saves") }

func newModelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List model files found in the models directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			models, err := registry.LoadDir(cfg.ModelsDir)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tFORMAT\tSIZE\tPATH")
			for _, m := range models {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", m.ID, m.Format, m.SizeBytes, m.Path)
			}
			return tw.Flush()
		},
	}
}

func newSessionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "List saved sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			st, err := store.Open(savesDir(cfg), cfg.IndexBackend)
			if err != nil {
				return err
			}
			defer st.Close()
			saves, err := st.List()
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTITLE\tMODEL\tSAVED")
			for _, d := range saves {
				saved := time.UnixMilli(d.Date).UTC().Format(time.RFC3339)
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", d.ID, d.Title, d.ModelPath, saved)
			}
			return tw.Flush()
		},
	}
}
