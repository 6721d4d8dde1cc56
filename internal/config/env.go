package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type BaseEnv struct {
	Env      string `envconfig:"ENV" default:"local"`
	HTTPHost string `envconfig:"HTTP_HOST" default:""`
	HTTPPort string `envconfig:"HTTP_PORT" default:"8000"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"debug"`
	APIKey   string `envconfig:"API_KEY"`
}

type StorageEnv struct {
	Type    string `envconfig:"STORAGE_TYPE" default:"local"`
	BaseDir string `envconfig:"STORAGE_BASE_DIR" default:".chipcliff/data"`
	// S3 settings (used when Type == "s3")
	S3Bucket string `envconfig:"S3_BUCKET"`
	S3Prefix string `envconfig:"S3_PREFIX" default:"chipcliff/"`
	S3Region string `envconfig:"S3_REGION" default:"ap-northeast-1"`
}

type ClassifierEnv struct {
	ModelDir string `envconfig:"MODEL_DIR" default:"models/task-classifier"`
	ModelURL string `envconfig:"MODEL_URL"`
}

type ProviderEnv struct {
	OpenAIAPIKey    string        `envconfig:"OPENAI_API_KEY"`
	AnthropicAPIKey string        `envconfig:"ANTHROPIC_API_KEY"`
	DeepSeekAPIKey  string        `envconfig:"DEEPSEEK_API_KEY"`
	Timeout         time.Duration `envconfig:"PROVIDER_TIMEOUT" default:"30s"`
	// CredentialsFile optionally points at a YAML file whose keys override
	// the environment; it is re-read when it changes on disk.
	CredentialsFile string `envconfig:"PROVIDER_CREDENTIALS_FILE"`
}

type HandlerEnv struct {
	WorkDir       string `envconfig:"HANDLER_WORK_DIR" default:".chipcliff/work"`
	SearchBaseURL string `envconfig:"SEARCH_BASE_URL"`
}

type Env struct {
	BaseEnv
	StorageEnv
	ClassifierEnv
	ProviderEnv
	HandlerEnv
}

const namespace = "CHIPCLIFF"

func LoadEnv() (*Env, error) {
	var env Env
	if err := envconfig.Process(namespace, &env); err != nil {
		return nil, fmt.Errorf("failed to load env: %w", err)
	}
	return &env, nil
}

func (e *BaseEnv) SlogLevel() slog.Level {
	if e == nil {
		return slog.LevelDebug
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(e.LogLevel)); err != nil {
		return slog.LevelDebug
	}
	return level
}
