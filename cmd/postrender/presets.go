package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/fpang/postrender/internal/preset"
)

var (
	presetName        string
	presetDescription string
	presetFromFile    string
	presetParams      []string
)

var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "List, show and manage custom presets",
}

var presetsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List built-in and custom presets",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		store := newPresetStore(context.Background(), loadConfig())
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tTYPE\tOPERATIONS")
		for _, p := range store.List() {
			kind := "custom"
			if p.BuiltIn {
				kind = "built-in"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.ID, p.Name, kind, strings.Join(operationKeys(p), ","))
		}
		w.Flush()
	},
}

var presetsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print a preset as YAML",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		store := newPresetStore(context.Background(), loadConfig())
		p, ok := store.Get(args[0])
		if !ok {
			log.Fatal().Str("preset", args[0]).Msg("Preset not found")
		}
		if err := yaml.NewEncoder(os.Stdout).Encode(p); err != nil {
			log.Fatal().Err(err).Msg("Failed to encode preset")
		}
	},
}

var presetsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a custom preset",
	Long: `Create a custom preset from a YAML file and/or --param assignments.

Examples:
  postrender presets create --name "Night Walk" --param denoise.strength=0.9 --param stabilize.method=deshake
  postrender presets create --from-file night.yaml`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		store := newPresetStore(ctx, loadConfig())

		p, err := buildPreset(presetFromFile, presetParams)
		if err != nil {
			log.Fatal().Err(err).Msg("Invalid preset definition")
		}
		if presetName != "" {
			p.Name = presetName
		}
		if presetDescription != "" {
			p.Description = presetDescription
		}

		created, err := store.Create(ctx, p)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create preset")
		}
		fmt.Println(created.ID)
	},
}

var presetsUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Replace the operations of a custom preset",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		store := newPresetStore(ctx, loadConfig())

		p, err := buildPreset(presetFromFile, presetParams)
		if err != nil {
			log.Fatal().Err(err).Msg("Invalid preset definition")
		}
		if presetName != "" {
			p.Name = presetName
		}
		if presetDescription != "" {
			p.Description = presetDescription
		}

		ok, err := store.Update(ctx, args[0], p)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to update preset")
		}
		if !ok {
			log.Fatal().Str("preset", args[0]).Msg("No custom preset with that id (built-in presets are read-only)")
		}
		log.Info().Str("preset", args[0]).Msg("Preset updated")
	},
}

var presetsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a custom preset",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		store := newPresetStore(ctx, loadConfig())

		ok, err := store.Delete(ctx, args[0])
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to delete preset")
		}
		if !ok {
			log.Fatal().Str("preset", args[0]).Msg("No custom preset with that id (built-in presets are read-only)")
		}
		log.Info().Str("preset", args[0]).Msg("Preset deleted")
	},
}

func init() {
	for _, c := range []*cobra.Command{presetsCreateCmd, presetsUpdateCmd} {
		c.Flags().StringVar(&presetName, "name", "", "Display name (create derives the id from it)")
		c.Flags().StringVar(&presetDescription, "description", "", "Description")
		c.Flags().StringVarP(&presetFromFile, "from-file", "f", "", "YAML or JSON preset definition")
		c.Flags().StringArrayVar(&presetParams, "param", nil, "Parameter operation.key=value (repeatable)")
	}
	presetsCmd.AddCommand(presetsListCmd, presetsShowCmd, presetsCreateCmd, presetsUpdateCmd, presetsDeleteCmd)
	rootCmd.AddCommand(presetsCmd)
}

// buildPreset reads a preset definition from path, if given, and applies
// assignments on top of its operations.
func buildPreset(path string, assignments []string) (preset.Preset, error) {
	var p preset.Preset
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return p, fmt.Errorf("read preset file: %w", err)
		}
		if err := yaml.Unmarshal(data, &p); err != nil {
			return p, fmt.Errorf("parse preset file %s: %w", path, err)
		}
	}

	ops := preset.Overrides(p.Operations)
	if ops == nil {
		ops = preset.Overrides{}
	}
	for _, a := range assignments {
		if err := ops.ParseAssignment(a); err != nil {
			return p, err
		}
	}
	p.Operations = ops.Normalize()
	return p, nil
}

func operationKeys(p preset.Preset) []string {
	keys := make([]string, 0, len(p.Operations))
	for op := range p.Operations {
		keys = append(keys, op)
	}
	sort.Strings(keys)
	return keys
}
