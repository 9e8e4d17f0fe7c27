// cmd/root.go - Root command implementation
package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"maptile-reader/internal/logging"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "tileread",
	Short: "Inspect the viewport-driven tile reading pipeline",
	Long: `Tileread is an inspection tool around the tile reading library: a
viewport-driven coordinator that keeps a live set of map tiles decoded from a
binary feature container.

Commands:
- decode: decode a single feature record and print it as GeoJSON or JSON
- simulate: drive the read manager through a viewport script over a
  synthetic container and report scheduling behavior

Examples:
  # Decode a feature record from a file at scale 15
  tileread decode --file feature.bin --scale 15

  # Decode an inline hex record
  tileread decode --hex 06011a0c... --scale 15 --format json

  # Pan a viewport across a seeded container with 4 workers
  tileread simulate --features 2000 --seed 42 --steps 12 --concurrency 4`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logging.Setup(viper.GetString("logging.level"), viper.GetString("logging.format"))
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.tileread.yaml)")

	// Output flags
	rootCmd.PersistentFlags().StringP("format", "f", "geojson", "output format (geojson, json)")
	rootCmd.PersistentFlags().Bool("pretty", false, "pretty print JSON output")

	// Processing flags
	rootCmd.PersistentFlags().Int("concurrency", 0, "worker pool size (0 = max(NumCPU-2, 1))")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text, json)")

	// Bind flags to viper
	viper.BindPFlag("output.format", rootCmd.PersistentFlags().Lookup("format"))
	viper.BindPFlag("output.pretty", rootCmd.PersistentFlags().Lookup("pretty"))
	viper.BindPFlag("reader.concurrency", rootCmd.PersistentFlags().Lookup("concurrency"))
	viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".tileread" (without extension)
		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".tileread")
	}

	// Environment variables
	viper.SetEnvPrefix("TILEREAD")
	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in
	viper.ReadInConfig()
}
