package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var probeCmd = &cobra.Command{
	Use:   "probe <input>",
	Short: "Print the container and stream metadata of a media file as JSON",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		ctx := context.Background()

		resolver := newResolver(cfg, args[0])
		path, cleanup, err := resolver.Fetch(ctx, args[0])
		if err != nil {
			log.Fatal().Err(err).Str("input", args[0]).Msg("Failed to fetch input")
		}
		defer cleanup()

		ffprobe, _ := cfg.Toolchain()
		info, err := ffprobe.Probe(ctx, path)
		if err != nil {
			log.Fatal().Err(err).Str("input", args[0]).Msg("Probe failed")
		}
		info.Path = args[0]

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(info); err != nil {
			log.Fatal().Err(err).Msg("Failed to encode probe result")
		}
	},
}

func init() {
	rootCmd.AddCommand(probeCmd)
}
