package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"db-sync/internal/gitstore"
	"db-sync/internal/introspect"
	"db-sync/internal/registry"
	"db-sync/internal/syncer"
)

var (
	cfgFile string
	verbose bool
)

var RootCmd = &cobra.Command{
	Use:   "db-sync",
	Short: "Synchronize database schema objects with a git repository",
	Long: `db-sync keeps schema objects (tables, procedures, triggers, functions,
views, user types, synonyms, sequences) in sync between live databases and a
version-controlled file tree, in both directions.

Objects live in the repository as <database>/<type>/<schema>/<name>.sql.
Databases are onboarded through the databases list in the config file.`,
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./db-sync.yaml)")
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")

	viper.SetDefault("repository.path", ".")
	viper.SetDefault("repository.branch", "main")
	viper.SetDefault("repository.author.name", "db-sync")
	viper.SetDefault("repository.author.email", "db-sync@localhost")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// Executable directory first, then current directory.
		if ex, err := os.Executable(); err == nil {
			viper.AddConfigPath(filepath.Dir(ex))
		}
		viper.AddConfigPath(".")

		viper.SetConfigName("db-sync")
		viper.SetConfigType("yaml")
	}

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Println("Using config file:", viper.ConfigFileUsed())
	}
}

func newLogger() (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// loadRegistry builds the onboarded-database registry from config.
func loadRegistry() (*registry.Registry, error) {
	var dbs []registry.Database
	if err := viper.UnmarshalKey("databases", &dbs); err != nil {
		return nil, fmt.Errorf("failed to parse databases config: %w", err)
	}
	if len(dbs) == 0 {
		return nil, fmt.Errorf("no databases configured (add a databases list to the config file)")
	}
	return registry.New(dbs), nil
}

// newSyncer wires registry, router, introspector and git store together for
// one command invocation.
func newSyncer() (*syncer.Syncer, *zap.Logger, error) {
	logger, err := newLogger()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build logger: %w", err)
	}

	reg, err := loadRegistry()
	if err != nil {
		return nil, nil, err
	}

	store, err := gitstore.Open(viper.GetString("repository.path"), logger)
	if err != nil {
		return nil, nil, err
	}

	author := syncer.Signature{
		Name:  viper.GetString("repository.author.name"),
		Email: viper.GetString("repository.author.email"),
	}

	s := syncer.New(
		reg,
		registry.NewRouter(reg),
		introspect.New(reg, logger),
		store,
		author,
		viper.GetString("repository.branch"),
		logger,
	)
	return s, logger, nil
}
