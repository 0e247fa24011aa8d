// Package cli implements the rangescan command-line interface.
package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cyberrange/rangescan/internal/config"
	"github.com/cyberrange/rangescan/internal/db"
	"github.com/cyberrange/rangescan/internal/logging"
)

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "rangescan",
	Short: "Network scan orchestration and inventory for cyber ranges",
	Long: `rangescan runs nmap scans against lab networks, parses the streamed
output into a device and vulnerability inventory, and keeps scan history
in PostgreSQL.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig, initLogging)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default rangescan.yaml in . or $HOME/.rangescan)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("db-host", "", "database host")
	rootCmd.PersistentFlags().Int("db-port", 0, "database port")

	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("database.host", rootCmd.PersistentFlags().Lookup("db-host"))
	_ = viper.BindPFlag("database.port", rootCmd.PersistentFlags().Lookup("db-port"))
}

// setConfigDefaults seeds viper with the baseline configuration so every
// key resolves even without a config file.
func setConfigDefaults() {
	defaults := config.Default()

	viper.SetDefault("database.host", defaults.Database.Host)
	viper.SetDefault("database.port", defaults.Database.Port)
	viper.SetDefault("database.database", defaults.Database.Database)
	viper.SetDefault("database.username", defaults.Database.Username)
	viper.SetDefault("database.password", defaults.Database.Password)
	viper.SetDefault("database.ssl_mode", defaults.Database.SSLMode)
	viper.SetDefault("database.max_open_conns", defaults.Database.MaxOpenConns)
	viper.SetDefault("database.max_idle_conns", defaults.Database.MaxIdleConns)
	viper.SetDefault("database.conn_max_lifetime", defaults.Database.ConnMaxLifetime)
	viper.SetDefault("database.conn_max_idle_time", defaults.Database.ConnMaxIdleTime)

	viper.SetDefault("scanner.binary", defaults.Scanner.Binary)
	viper.SetDefault("scanner.default_template", defaults.Scanner.DefaultTemplate)
	viper.SetDefault("scanner.templates_file", defaults.Scanner.TemplatesFile)
	viper.SetDefault("scanner.reports_dir", defaults.Scanner.ReportsDir)

	viper.SetDefault("logging.level", string(defaults.Logging.Level))
	viper.SetDefault("logging.format", string(defaults.Logging.Format))
	viper.SetDefault("logging.output", defaults.Logging.Output)
	viper.SetDefault("logging.add_source", defaults.Logging.AddSource)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("rangescan")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.rangescan")
	}

	viper.SetEnvPrefix("RANGESCAN")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setConfigDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(rootCmd.ErrOrStderr(), "warning: failed to read config: %v\n", err)
		}
	}

	cfg = config.Default()
	cfg.Database.Host = viper.GetString("database.host")
	cfg.Database.Port = viper.GetInt("database.port")
	cfg.Database.Database = viper.GetString("database.database")
	cfg.Database.Username = viper.GetString("database.username")
	cfg.Database.Password = viper.GetString("database.password")
	cfg.Database.SSLMode = viper.GetString("database.ssl_mode")
	cfg.Database.MaxOpenConns = viper.GetInt("database.max_open_conns")
	cfg.Database.MaxIdleConns = viper.GetInt("database.max_idle_conns")
	cfg.Database.ConnMaxLifetime = viper.GetDuration("database.conn_max_lifetime")
	cfg.Database.ConnMaxIdleTime = viper.GetDuration("database.conn_max_idle_time")

	cfg.Scanner.Binary = viper.GetString("scanner.binary")
	cfg.Scanner.DefaultTemplate = viper.GetString("scanner.default_template")
	cfg.Scanner.TemplatesFile = viper.GetString("scanner.templates_file")
	cfg.Scanner.ReportsDir = viper.GetString("scanner.reports_dir")

	cfg.Logging.Level = logging.LogLevel(viper.GetString("logging.level"))
	cfg.Logging.Format = logging.LogFormat(viper.GetString("logging.format"))
	cfg.Logging.Output = viper.GetString("logging.output")
	cfg.Logging.AddSource = viper.GetBool("logging.add_source")
}

func initLogging() {
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(rootCmd.ErrOrStderr(), "warning: failed to initialize logging: %v\n", err)
		return
	}
	logging.SetDefault(logger)
}

// openDatabase connects to the configured database and applies pending
// migrations.
func openDatabase(ctx context.Context) (*db.DB, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return db.ConnectAndMigrate(ctx, &cfg.Database)
}
