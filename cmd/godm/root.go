package main

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/godm-io/godm"
	"github.com/godm-io/godm/driver/jsonstore"
	"github.com/godm-io/godm/manifest"
)

const version = "0.3.0"

var rootCmd = &cobra.Command{
	Use:   "godm",
	Short: "typed schemas over a schemaless document store",
	Long: fmt.Sprintf(`godm (v%s)

Declares typed document schemas, validates data against them, and keeps
collection indexes reconciled with their declarations.`, version),
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of godm",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("godm v%s\n", version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringP("manifest", "m", "godm.yaml", "path to the schema manifest")
	rootCmd.PersistentFlags().StringP("store", "s", "godm.json", "path to the JSON store file")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "show schema warnings and store activity")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(indexesCmd)
	rootCmd.AddCommand(inspectCmd)
}

// initConfig wires the environment: .env files first, then GODM_* variables
// override matching flags.
func initConfig() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	viper.SetEnvPrefix("godm")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func bindFlags(cmd *cobra.Command) {
	_ = viper.BindPFlags(cmd.Flags())
	_ = viper.BindPFlags(cmd.Root().PersistentFlags())
}

// setupLogger routes schema and index logs to the console. Warnings show by
// default; --verbose opens everything up.
func setupLogger() *zap.Logger {
	cfg := zap.NewDevelopmentConfig()
	if viper.GetBool("verbose") {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	} else {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		logger = zap.NewNop()
	}
	godm.SetLogger(logger)
	return logger
}

func loadManifest() (*manifest.Manifest, error) {
	return manifest.Load(viper.GetString("manifest"))
}

func openStore() (*jsonstore.Store, error) {
	return jsonstore.Open(viper.GetString("store"))
}
