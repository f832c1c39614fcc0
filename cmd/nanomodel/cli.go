package main

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/arthur-debert/nanomodel/config"
	"github.com/arthur-debert/nanomodel/model"
	"github.com/arthur-debert/nanomodel/store"
)

// CLI is the Viper-driven nanomodel command line
type CLI struct {
	rootCmd   *cobra.Command
	viperInst *viper.Viper
	logger    *slog.Logger
}

// NewCLI creates the command tree
func NewCLI() *CLI {
	cli := &CLI{
		viperInst: viper.New(),
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	cli.setupViperConfig()
	cli.createRootCommand()
	cli.addCommands()
	return cli
}

// Execute runs the CLI
func (cli *CLI) Execute() error {
	return cli.rootCmd.Execute()
}

// setupViperConfig configures Viper with environment variables and config files
func (cli *CLI) setupViperConfig() {
	// NANOMODEL_CONFIG points at a custom config file
	if configFile := os.Getenv("NANOMODEL_CONFIG"); configFile != "" {
		cli.viperInst.SetConfigFile(configFile)
	} else {
		cli.viperInst.SetConfigName("nanomodel")
		cli.viperInst.SetConfigType("yaml")
		cli.viperInst.AddConfigPath(".")
		cli.viperInst.AddConfigPath("$HOME/.nanomodel")
	}

	cli.viperInst.SetEnvPrefix("NANOMODEL")
	// Replace dash with underscore in env vars (e.g., --log-level -> NANOMODEL_LOG_LEVEL)
	cli.viperInst.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	cli.viperInst.AutomaticEnv()

	// Read config file if it exists (ignore errors)
	_ = cli.viperInst.ReadInConfig()
}

func (cli *CLI) createRootCommand() {
	cli.rootCmd = &cobra.Command{
		Use:   "nanomodel",
		Short: "Schema-driven documents in a JSON file store",
		Long: `nanomodel validates and persists documents against the models declared in a
YAML or TOML definitions file.

Configuration Sources (in order of precedence):
1. Command line flags
2. Environment variables (NANOMODEL_*)
3. Configuration file (NANOMODEL_CONFIG, ./nanomodel.yaml, ~/.nanomodel/nanomodel.yaml)

Examples:
  nanomodel --models library.yaml create Book '{"title": "Kindred"}'
  nanomodel --models library.yaml find Book '{"year": {"$gte": 1970}}' --sort -year
  NANOMODEL_MODELS=library.yaml nanomodel get Book 2e3f4a5b-6c7d-4e8f-9a0b-1c2d3e4f5a6b`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_ = cli.viperInst.BindPFlags(cmd.Flags())
			logger, err := initLogging(
				cli.viperInst.GetString("log-level"),
				cli.viperInst.GetString("log-file"),
				cli.viperInst.GetBool("verbose"),
			)
			if err != nil {
				return NewConfigError("initialize logging", err.Error())
			}
			cli.logger = logger
			return nil
		},
	}
	cli.addGlobalFlags()
}

// addGlobalFlags adds persistent flags that apply to all commands
func (cli *CLI) addGlobalFlags() {
	flags := cli.rootCmd.PersistentFlags()
	flags.StringP("models", "m", "", "Model definitions file (.yaml, .yml or .toml)")
	flags.StringP("db", "d", "", "JSON database file (defaults to the definitions file's database)")
	flags.StringP("format", "f", "json", "Output format (json|yaml)")
	flags.String("log-level", "warn", "Log level (debug|info|warn|error)")
	flags.String("log-file", "", "Log file path (defaults to the XDG cache directory)")
	flags.BoolP("verbose", "v", false, "Also log to stderr")

	for _, flag := range []string{"models", "db", "format", "log-level", "log-file", "verbose"} {
		_ = cli.viperInst.BindPFlag(flag, flags.Lookup(flag))
	}
}

// session is the state shared by commands touching the store
type session struct {
	defs     *config.File
	db       *store.JSONFile
	registry *config.Registry
}

func (s *session) Close() error {
	return s.db.Close()
}

func (s *session) class(operation, name string) (*model.Class, error) {
	c, ok := s.registry.Class(name)
	if !ok {
		return nil, NewModelNotFoundError(operation, name, s.registry.Names())
	}
	return c, nil
}

func (cli *CLI) loadDefinitions(operation string) (*config.File, string, error) {
	path := cli.viperInst.GetString("models")
	if path == "" {
		return nil, "", NewConfigError(operation, "no definitions file",
			"Use --models to point at a YAML or TOML definitions file",
			"Or set NANOMODEL_MODELS")
	}
	defs, err := config.Load(path)
	if err != nil {
		return nil, "", &CLIError{Operation: operation, Cause: "invalid definitions file", Details: err.Error(), Underlying: err}
	}
	return defs, path, nil
}

func (cli *CLI) openSession(operation string) (*session, error) {
	defs, path, err := cli.loadDefinitions(operation)
	if err != nil {
		return nil, err
	}

	dbPath := cli.viperInst.GetString("db")
	if dbPath == "" && defs.Database != "" {
		dbPath = defs.Database
		if !filepath.IsAbs(dbPath) {
			dbPath = filepath.Join(filepath.Dir(path), dbPath)
		}
	}
	if dbPath == "" {
		return nil, NewConfigError(operation, "no database file",
			"Use --db to point at a JSON database file",
			"Or set database in the definitions file")
	}

	ids, err := defs.IDs()
	if err != nil {
		return nil, WrapError(operation, err)
	}
	db, err := store.NewJSONFile(dbPath, ids, store.WithLogger(cli.logger))
	if err != nil {
		return nil, WrapError(operation, err)
	}
	registry, err := defs.Build(db, cli.logger)
	if err != nil {
		_ = db.Close()
		return nil, WrapError(operation, err)
	}
	return &session{defs: defs, db: db, registry: registry}, nil
}
