package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/fpang/postrender/internal/config"
	"github.com/fpang/postrender/internal/lambdaboot"
	"github.com/fpang/postrender/internal/preset"
	"github.com/fpang/postrender/internal/storage"
	"github.com/fpang/postrender/internal/store"
)

// defaultPresetsFile is ~/.postrender/presets.yaml, next to the encrypted
// credentials file.
func defaultPresetsFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".postrender", "presets.yaml")
	}
	return filepath.Join(home, ".postrender", "presets.yaml")
}

// newPresetStore builds the preset store over the configured repository:
// the DynamoDB table when PRESETS_TABLE_NAME is set, the YAML file otherwise.
func newPresetStore(ctx context.Context, cfg config.Config) *preset.Store {
	var repo preset.Repository
	if cfg.PresetsTable != "" {
		aws := lambdaboot.InitAWS()
		repo = lambdaboot.InitPresetTable(aws.Config, cfg.PresetsTable)
	} else {
		path := cfg.PresetsFile
		if path == "" {
			path = defaultPresetsFile()
		}
		fs := store.NewFileStore(path)
		log.Debug().Str("file", fs.Path()).Msg("Using preset file")
		repo = fs
	}

	s := preset.NewStore(repo)
	if err := s.LoadCustom(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to load custom presets")
	}
	return s
}

// newResolver returns a resolver for refs, with an S3 client only when
// one of them is an s3:// location.
func newResolver(cfg config.Config, refs ...string) *storage.Resolver {
	for _, ref := range refs {
		loc, err := storage.ParseLocation(ref)
		if err != nil || loc.Scheme != storage.SchemeS3 {
			continue
		}
		aws := lambdaboot.InitAWS()
		return lambdaboot.InitStorage(aws.Config, cfg.ScratchDir)
	}
	return &storage.Resolver{TempDir: cfg.ScratchDir}
}
