package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/Lumos-Labs-HQ/tablefaker/internal/config"
	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile    string
	configErr  error
	tableFlags map[string]int
	Version    = "0.4.0"
)

func showBanner() {
	greenColor := color.New(color.FgGreen, color.Bold)

	banner := []string{
		"╔══════════════════════════════════════════════════════════════╗",
		"║   ████████╗ █████╗ ██████╗ ██╗     ███████╗                  ║",
		"║   ╚══██╔══╝██╔══██╗██╔══██╗██║     ██╔════╝                  ║",
		"║      ██║   ███████║██████╔╝██║     █████╗   faker            ║",
		"║      ██║   ██╔══██║██╔══██╗██║     ██╔══╝                    ║",
		"║      ██║   ██║  ██║██████╔╝███████╗███████╗                  ║",
		"║      ╚═╝   ╚═╝  ╚═╝╚═════╝ ╚══════╝╚══════╝                  ║",
		"║                                                              ║",
		"║       🌱 Deterministic multi-table synthetic data 🌱         ║",
		"╚══════════════════════════════════════════════════════════════╝",
	}

	for _, line := range banner {
		greenColor.Println(line)
	}

	fmt.Print("                        ")
	color.New(color.FgCyan, color.Bold).Print("Version: ")
	color.New(color.FgYellow, color.Bold).Printf("%s\n", Version)
}

var rootCmd = &cobra.Command{
	Use:   "tablefaker",
	Short: "Generate related synthetic tables from a schema",
	Long: `
tablefaker generates synthetic datasets across related tables. Every foreign
key points at a generated parent key, and nullability, length, domain and
uniqueness constraints hold for every row. Output is identical for the same
schema, seed and configuration.

Schema formats:
- YAML / JSON documents
- SQL CREATE TABLE statements (a file or a directory of .sql files)
- CSV column listings

Outputs:
- CSV or JSON Lines files, one per table
- PostgreSQL, MySQL or SQLite databases`,

	SilenceUsage:  true,
	SilenceErrors: true,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return configErr
	},

	Run: func(cmd *cobra.Command, args []string) {
		showVersion, _ := cmd.Flags().GetBool("version")
		if showVersion {
			fmt.Printf("tablefaker version %s\n", Version)
			os.Exit(0)
		}

		if len(args) == 0 {
			showBanner()
			fmt.Println()
			cmd.Help()
		}
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./tablefaker.config.yaml)")
	rootCmd.PersistentFlags().StringP("schema", "s", "", "schema file or directory of .sql files")
	rootCmd.PersistentFlags().IntP("count", "n", 0, "rows per table when the schema and config give none")
	rootCmd.PersistentFlags().StringToIntVar(&tableFlags, "table", nil, "row count for one table, e.g. --table users=50")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error, disabled)")
	rootCmd.PersistentFlags().String("log-format", "", "log format (console, json)")
	rootCmd.PersistentFlags().BoolP("force", "f", false, "Overwrite existing files")

	bindFlags(rootCmd, map[string]string{
		"schema":     "schema",
		"count":      "count",
		"log.level":  "log-level",
		"log.format": "log-format",
	}, true)

	rootCmd.Flags().BoolP("version", "v", false, "Show CLI version")
}

func bindFlags(cmd *cobra.Command, keys map[string]string, persistent bool) {
	flags := cmd.Flags()
	if persistent {
		flags = cmd.PersistentFlags()
	}
	for key, name := range keys {
		if err := viper.BindPFlag(key, flags.Lookup(name)); err != nil {
			panic(fmt.Sprintf("bind flag %s: %v", name, err))
		}
	}
}

func initConfig() {
	if err := godotenv.Load(); err != nil {
		godotenv.Load(".env.local")
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(config.DefaultConfigName)
	}

	viper.SetEnvPrefix(config.EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			configErr = fmt.Errorf("failed to read config: %w", err)
		}
	}
}
