package config

import (
	"os"
	"path/filepath"
	"time"

	coreconfig "github.com/mattsolo1/grove-core/config"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mattsolo1/nb-tagger/pkg/bulk"
	"github.com/mattsolo1/nb-tagger/pkg/kv"
	"github.com/mattsolo1/nb-tagger/pkg/render"
	"github.com/mattsolo1/nb-tagger/pkg/service"
)

var (
	cfgFile string
	rootCmd *cobra.Command
)

// Extension is the "nbtag" section of the grove config.
type Extension struct {
	Headings     []string `yaml:"headings"`
	ExportPrefix string   `yaml:"export_prefix"`
}

func InitConfig() {
	if rootCmd != nil {
		if v, err := rootCmd.PersistentFlags().GetString("config"); err == nil {
			cfgFile = v
		}
	}
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		configDir := filepath.Join(home, ".config", "nbtag")
		viper.AddConfigPath(configDir)
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("NBTAG")

	home, _ := os.UserHomeDir()
	viper.SetDefault("data_dir", filepath.Join(home, ".local", "share", "nbtag"))
	viper.SetDefault("backend", string(kv.KindSQLite))
	viper.SetDefault("debounce", 300*time.Millisecond)
	viper.SetDefault("export_prefix", bulk.DefaultExportPrefix)
	viper.SetDefault("headings", render.DefaultHeadings)
	viper.SetDefault("log_level", "warn")

	// A missing config file is fine; defaults apply.
	_ = viper.ReadInConfig()
}

// NewLogger builds the stderr logger at the configured level.
func NewLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	level, err := logrus.ParseLevel(viper.GetString("log_level"))
	if err != nil {
		level = logrus.WarnLevel
	}
	logger.SetLevel(level)
	return logger
}

// InitService opens the configured backend and builds the tag service.
func InitService(log logrus.FieldLogger) (*service.Service, error) {
	cfg := &service.Config{
		DataDir:     viper.GetString("data_dir"),
		Backend:     kv.Kind(viper.GetString("backend")),
		QuietPeriod: QuietPeriod(),
		Render:      RenderOptions(log),
	}
	return service.New(cfg, log)
}

// RenderOptions merges viper settings with the grove config extension, which
// wins when it sets a value.
func RenderOptions(log logrus.FieldLogger) render.Options {
	opts := render.Options{
		Headings:     viper.GetStringSlice("headings"),
		ExportPrefix: viper.GetString("export_prefix"),
	}

	coreCfg, err := coreconfig.LoadDefault()
	if err != nil {
		log.WithError(err).Debug("no grove config, using local settings")
		return withDefaults(opts)
	}
	var ext Extension
	if err := coreCfg.UnmarshalExtension("nbtag", &ext); err != nil {
		log.WithError(err).Debug("ignoring nbtag extension")
		return withDefaults(opts)
	}
	if len(ext.Headings) > 0 {
		opts.Headings = ext.Headings
	}
	if ext.ExportPrefix != "" {
		opts.ExportPrefix = ext.ExportPrefix
	}
	return withDefaults(opts)
}

// QuietPeriod is the configured debounce window.
func QuietPeriod() time.Duration {
	if d := viper.GetDuration("debounce"); d > 0 {
		return d
	}
	return 300 * time.Millisecond
}

func withDefaults(opts render.Options) render.Options {
	if len(opts.Headings) == 0 {
		opts.Headings = render.DefaultHeadings
	}
	if opts.ExportPrefix == "" {
		opts.ExportPrefix = bulk.DefaultExportPrefix
	}
	return opts
}

func AddGlobalFlags(cmd *cobra.Command) {
	// The standard grove command may already carry --config.
	if cmd.PersistentFlags().Lookup("config") != nil {
		rootCmd = cmd
		return
	}
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/nbtag/config.yaml)")
}
