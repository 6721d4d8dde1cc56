// Package classifier assigns one of the two task categories to free-form
// text. The model is loaded once at startup and is read-only afterwards, so a
// single Classifier is safe to share across concurrent requests.
package classifier

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode"

	"github.com/kazz187/chipcliff/internal/task"
)

// maxTokens bounds the number of tokens fed to the model. Longer input is
// truncated, never rejected.
const maxTokens = 512

// ClassificationError reports a recoverable classification failure. The
// dispatcher treats it as a loggable business outcome, not a fault.
type ClassificationError struct {
	Err error
}

func (e *ClassificationError) Error() string {
	return fmt.Sprintf("classification failed: %v", e.Err)
}

func (e *ClassificationError) Unwrap() error {
	return e.Err
}

type Config struct {
	// ModelDir is the local cache directory for model weights.
	ModelDir string
	// ModelURL optionally points at a pretrained model to fetch when the
	// cache is empty. Empty means: seed the cache from the embedded baseline.
	ModelURL string
	// Client is used for the one-time model fetch. Defaults to a client with
	// a 60s timeout.
	Client *http.Client
}

type Classifier struct {
	m *model
}

// Load builds a Classifier from the cached model, fetching and caching it
// first if needed. This is the one-time, possibly slow initialization; Load
// must be called before any Classify.
func Load(ctx context.Context, cfg Config) (*Classifier, error) {
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	m, err := loadOrFetchModel(ctx, cfg.ModelDir, cfg.ModelURL, client)
	if err != nil {
		return nil, err
	}
	return &Classifier{m: m}, nil
}

// Classify maps text to a category. The only results are a valid category or
// a ClassificationError; no third label and no panic escapes this boundary.
func (c *Classifier) Classify(text string) (task.Category, error) {
	if c == nil || c.m == nil {
		return "", &ClassificationError{Err: fmt.Errorf("model not loaded")}
	}

	scores := make([]float64, len(c.m.Bias))
	copy(scores, c.m.Bias)
	for _, token := range tokenize(text) {
		if w, ok := c.m.Weights[token]; ok {
			for i := range scores {
				scores[i] += w[i]
			}
		}
	}

	best := 0
	for i := range scores {
		if scores[i] > scores[best] {
			best = i
		}
	}
	categories := task.Categories()
	if best < 0 || best >= len(categories) {
		return "", &ClassificationError{Err: fmt.Errorf("label index %d out of range", best)}
	}
	return categories[best], nil
}

// tokenize lowercases, splits on non-alphanumeric runes and truncates to
// maxTokens. Empty or malformed input yields an empty token list, which still
// classifies (on bias alone).
func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	if len(fields) > maxTokens {
		fields = fields[:maxTokens]
	}
	return fields
}
