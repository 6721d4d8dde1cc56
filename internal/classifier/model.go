package classifier

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
)

// model is a linear bag-of-words text classifier: per-term weight vectors
// plus a bias, one column per label. The label order is part of the model
// contract: index 0 is coding, index 1 is research.
type model struct {
	Labels  []string             `json:"labels"`
	Bias    []float64            `json:"bias"`
	Weights map[string][]float64 `json:"weights"`
}

//go:embed baseline_model.json
var baselineModel []byte

const modelFileName = "model.json"

func (m *model) validate() error {
	if len(m.Labels) != 2 || m.Labels[0] != "coding" || m.Labels[1] != "research" {
		return fmt.Errorf("model labels must be [coding research], got %v", m.Labels)
	}
	if len(m.Bias) != len(m.Labels) {
		return fmt.Errorf("model bias has %d entries for %d labels", len(m.Bias), len(m.Labels))
	}
	for term, w := range m.Weights {
		if len(w) != len(m.Labels) {
			return fmt.Errorf("weight vector for %q has %d entries for %d labels", term, len(w), len(m.Labels))
		}
	}
	return nil
}

func parseModel(data []byte) (*model, error) {
	var m model
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal model: %w", err)
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// loadOrFetchModel reads the cached model file, fetching it from the
// pretrained source (or falling back to the embedded baseline) and persisting
// it to the cache when absent. This runs once at process start and is the
// only slow path in the classifier.
func loadOrFetchModel(ctx context.Context, dir, url string, client *http.Client) (*model, error) {
	path := filepath.Join(dir, modelFileName)
	if data, err := os.ReadFile(path); err == nil {
		return parseModel(data)
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read cached model: %w", err)
	}

	data := baselineModel
	if url != "" {
		fetched, err := fetchModel(ctx, url, client)
		if err != nil {
			return nil, err
		}
		data = fetched
	}
	m, err := parseModel(data)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create model cache dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to cache model: %w", err)
	}
	return m, nil
}

func fetchModel(ctx context.Context, url string, client *http.Client) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create model request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch model from %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch model from %s: status %d", url, resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read model body: %w", err)
	}
	return data, nil
}
