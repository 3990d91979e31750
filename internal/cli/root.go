package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/scientia/internal/logging"
	"github.com/ppiankov/scientia/internal/model"
)

// Version is stamped at build time with -ldflags "-X .../internal/cli.Version=..."
var Version = "v0.1.0"

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "scientia",
	Short: "Scientia - look up a scientist's dates and article intro",
	Long: `Scientia finds a scientist's article in an online encyclopedia and reports
the birth date, the date of death, the age and the lead paragraphs.

When the name does not match an article directly, Scientia searches the
encyclopedia and asks you to pick among the results.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "scientia %s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.scientia/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	_ = viper.BindPFlag("output.verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if err := registerDefaults(viper.GetViper(), model.DefaultConfig()); err != nil {
		fmt.Fprintf(os.Stderr, "Error registering defaults: %v\n", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}

		viper.AddConfigPath(filepath.Join(home, ".scientia"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// SCIENTIA_BROWSER_ENGINE overrides browser.engine
	viper.SetEnvPrefix("SCIENTIA")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// registerDefaults makes every config key known to v, so environment
// variables reach Unmarshal even when no config file sets the key
func registerDefaults(v *viper.Viper, cfg *model.Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal defaults: %w", err)
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return fmt.Errorf("unmarshal defaults: %w", err)
	}
	setDefaults(v, "", tree)

	// omitted from the YAML when empty
	v.SetDefault("http.http_proxy", cfg.HTTP.HTTPProxy)
	v.SetDefault("http.https_proxy", cfg.HTTP.HTTPSProxy)
	return nil
}

func setDefaults(v *viper.Viper, prefix string, tree map[string]any) {
	for key, value := range tree {
		if prefix != "" {
			key = prefix + "." + key
		}
		if sub, ok := value.(map[string]any); ok {
			setDefaults(v, key, sub)
			continue
		}
		v.SetDefault(key, value)
	}
}

// loadConfig resolves the effective configuration from v
func loadConfig(v *viper.Viper) (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	switch cfg.Browser.Engine {
	case model.EngineBrowser, model.EngineHTTP:
	default:
		return nil, fmt.Errorf("invalid browser.engine %q (want %q or %q)", cfg.Browser.Engine, model.EngineBrowser, model.EngineHTTP)
	}
	switch cfg.Output.Format {
	case "text", "json":
	default:
		return nil, fmt.Errorf("invalid output.format %q (want text or json)", cfg.Output.Format)
	}
	if cfg.Source.BaseURL == "" {
		return nil, fmt.Errorf("source.base_url must be set")
	}
	cfg.Source.BaseURL = strings.TrimRight(cfg.Source.BaseURL, "/")
	return cfg, nil
}

// newLogger builds the run logger; --verbose switches to debug console output
func newLogger(cfg *model.Config) (*zap.Logger, error) {
	logCfg := logging.DefaultConfig()
	if cfg.Output.Verbose {
		logCfg = logging.VerboseConfig()
	} else if cfg.Log.Level != "" {
		logCfg.Level = cfg.Log.Level
	}
	return logging.New(logCfg)
}
