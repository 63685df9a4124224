// Package store persists custom presets. Two backends are provided: a
// DynamoDB single-table layout for the Lambda deployment and a YAML file
// for the command-line tool. Both satisfy preset.Repository.
package store

import (
	"github.com/fpang/postrender/internal/preset"
)

// Compile-time interface checks.
var (
	_ preset.Repository = (*DynamoStore)(nil)
	_ preset.Repository = (*FileStore)(nil)
)
