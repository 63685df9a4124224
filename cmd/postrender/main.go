// Command postrender applies denoise, stabilize, color correction and
// artifact removal to a media file, with parameters chosen from presets,
// command-line overrides and an optional Gemini scene analysis.
package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/postrender/internal/config"
	"github.com/fpang/postrender/internal/logging"
)

var (
	envFile     string
	presetsFile string
	verbose     bool
)

var rootCmd = &cobra.Command{
	Use:   "postrender",
	Short: "Adaptive post-processing for video and audio",
	Long: `Postrender runs an ordered list of enhancement operations over a media file.

Each operation's parameters come from a preset, optionally overridden per run,
and are adjusted by an AI scene analysis of sampled frames when available.

Examples:
  postrender process clip.mp4 --ops stabilize,denoise,color_correct
  postrender process s3://bucket/raw/clip.mp4 --preset heavy --output out/
  postrender process clip.mp4 --ops denoise --param denoise.strength=0.8
  postrender probe clip.mp4
  postrender presets list`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Init()
		if verbose {
			zerolog.SetGlobalLevel(zerolog.DebugLevel)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Environment file loaded before reading settings")
	rootCmd.PersistentFlags().StringVar(&presetsFile, "presets-file", "", "YAML file of custom presets (default ~/.postrender/presets.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

// loadConfig reads settings and applies the persistent flag overrides.
func loadConfig() config.Config {
	cfg, err := config.Load(envFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	if presetsFile != "" {
		cfg.PresetsFile = presetsFile
	}
	return cfg
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
