package main

import (
	"encoding/json"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/postrender/internal/cli"
	"github.com/fpang/postrender/internal/pipeline"
)

var reportJSON bool

var reportCmd = &cobra.Command{
	Use:   "report <file>",
	Short: "Show a saved processing report (.json or .json.zst)",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		r, err := pipeline.ReadReport(args[0])
		if err != nil {
			log.Fatal().Err(err).Str("path", args[0]).Msg("Failed to read report")
		}
		if !reportJSON {
			cli.PrintSummary(os.Stdout, r)
			return
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(r); err != nil {
			log.Fatal().Err(err).Msg("Failed to encode report")
		}
	},
}

func init() {
	reportCmd.Flags().BoolVar(&reportJSON, "json", false, "Print the full report as JSON")
	rootCmd.AddCommand(reportCmd)
}
