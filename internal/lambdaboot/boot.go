// Package lambdaboot holds the Lambda cold-start wiring: AWS config, the S3
// resolver, the optional DynamoDB preset table and the Gemini key from SSM.
package lambdaboot

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/rs/zerolog/log"

	"github.com/fpang/postrender/internal/auth"
	"github.com/fpang/postrender/internal/logging"
	"github.com/fpang/postrender/internal/storage"
	"github.com/fpang/postrender/internal/store"
)

// EnvAPIKeyParam names the SSM parameter holding the Gemini API key.
const EnvAPIKeyParam = "SSM_API_KEY_PARAM"

// DefaultAPIKeyParam is used when EnvAPIKeyParam is unset.
const DefaultAPIKeyParam = "/postrender/prod/gemini-api-key"

// AWSClients holds the shared AWS config and SSM client.
type AWSClients struct {
	Config aws.Config
	SSM    *ssm.Client
}

// InitAWS loads the default AWS config. Fatal on failure.
func InitAWS() AWSClients {
	cfg, err := awsconfig.LoadDefaultConfig(context.Background())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load AWS config")
	}
	log.Debug().Str("region", cfg.Region).Msg("AWS config loaded")
	return AWSClients{Config: cfg, SSM: ssm.NewFromConfig(cfg)}
}

// InitStorage creates an S3-backed resolver for s3:// inputs and outputs.
func InitStorage(cfg aws.Config, tempDir string) *storage.Resolver {
	r := storage.NewS3Resolver(s3.NewFromConfig(cfg))
	r.TempDir = tempDir
	return r
}

// InitPresetTable creates the DynamoDB preset repository when tableName is
// set. Returns nil otherwise; custom presets then live only in memory.
func InitPresetTable(cfg aws.Config, tableName string) *store.DynamoStore {
	if tableName == "" {
		log.Warn().Msg("Preset table not configured, custom presets are not persisted")
		return nil
	}
	return store.NewDynamoStore(dynamodb.NewFromConfig(cfg), tableName)
}

// ParameterGetter is the SSM call used to read secrets.
type ParameterGetter interface {
	GetParameter(ctx context.Context, in *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// LoadGeminiKey copies the Gemini API key from SSM into GEMINI_API_KEY
// unless it is already set. Scene analysis is optional, so a missing key is
// reported as an error for the caller to log rather than a fatal.
func LoadGeminiKey(ctx context.Context, client ParameterGetter) error {
	if os.Getenv(auth.EnvAPIKey) != "" {
		return nil
	}
	name := logging.EnvOrDefault(EnvAPIKeyParam, DefaultAPIKeyParam)

	start := time.Now()
	out, err := client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           &name,
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return fmt.Errorf("read SSM parameter %s: %w", name, err)
	}
	if out.Parameter == nil || out.Parameter.Value == nil || *out.Parameter.Value == "" {
		return fmt.Errorf("SSM parameter %s is empty", name)
	}
	os.Setenv(auth.EnvAPIKey, *out.Parameter.Value)
	log.Debug().Str("param", name).Dur("elapsed", time.Since(start)).Msg("Gemini API key loaded from SSM")
	return nil
}

// StartupLog starts a startup summary stamped with the cold-start duration.
func StartupLog(name string, initStart time.Time) *logging.StartupLogger {
	return logging.NewStartupLogger(name).InitDuration(time.Since(initStart))
}
