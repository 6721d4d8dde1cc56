package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// debounceInterval is the delay after a file event before re-reading the
// credentials file, so editors that write in multiple steps trigger one
// reload instead of several.
const debounceInterval = 100 * time.Millisecond

// ProviderCredentials holds one API key per enabled provider. An empty key
// disables the provider.
type ProviderCredentials struct {
	OpenAIAPIKey    string `yaml:"openai_api_key"`
	AnthropicAPIKey string `yaml:"anthropic_api_key"`
	DeepSeekAPIKey  string `yaml:"deepseek_api_key"`
}

// Configured reports whether at least one provider has a key.
func (c ProviderCredentials) Configured() bool {
	return c.OpenAIAPIKey != "" || c.AnthropicAPIKey != "" || c.DeepSeekAPIKey != ""
}

// CredentialsFromEnv builds the base credential set from the environment.
func CredentialsFromEnv(env *ProviderEnv) ProviderCredentials {
	return ProviderCredentials{
		OpenAIAPIKey:    env.OpenAIAPIKey,
		AnthropicAPIKey: env.AnthropicAPIKey,
		DeepSeekAPIKey:  env.DeepSeekAPIKey,
	}
}

// LoadProviderCredentials merges the credentials file over the base set.
// A missing file is not an error; the base set is returned unchanged.
func LoadProviderCredentials(path string, base ProviderCredentials) (ProviderCredentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return base, nil
		}
		return base, fmt.Errorf("failed to read credentials file: %w", err)
	}
	var fromFile ProviderCredentials
	if err := yaml.Unmarshal(data, &fromFile); err != nil {
		return base, fmt.Errorf("failed to parse credentials file: %w", err)
	}
	if fromFile.OpenAIAPIKey != "" {
		base.OpenAIAPIKey = fromFile.OpenAIAPIKey
	}
	if fromFile.AnthropicAPIKey != "" {
		base.AnthropicAPIKey = fromFile.AnthropicAPIKey
	}
	if fromFile.DeepSeekAPIKey != "" {
		base.DeepSeekAPIKey = fromFile.DeepSeekAPIKey
	}
	return base, nil
}

// WatchProviderCredentials re-reads the credentials file whenever it changes
// and hands the merged set to onChange. It blocks until ctx is cancelled.
// The parent directory is watched rather than the file itself so that
// rename-style rewrites keep working.
func WatchProviderCredentials(ctx context.Context, path string, base ProviderCredentials, onChange func(ProviderCredentials)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	target := filepath.Clean(path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			time.Sleep(debounceInterval)
			creds, err := LoadProviderCredentials(path, base)
			if err != nil {
				slog.Warn("failed to reload provider credentials", "path", path, "error", err)
				continue
			}
			slog.Info("provider credentials reloaded", "path", path)
			onChange(creds)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("credentials watcher error", "error", err)
		}
	}
}
