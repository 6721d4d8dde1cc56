package classifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/chipcliff/internal/task"
)

func loadBaseline(t *testing.T) *Classifier {
	t.Helper()
	c, err := Load(context.Background(), Config{ModelDir: t.TempDir()})
	require.NoError(t, err)
	return c
}

func TestClassifyCoding(t *testing.T) {
	c := loadBaseline(t)

	for _, text := range []string{
		"Write HTML code for a landing page",
		"debug the parser implementation",
		"Create a function to sort a list",
	} {
		got, err := c.Classify(text)
		require.NoError(t, err, text)
		assert.Equal(t, task.CategoryCoding, got, text)
	}
}

func TestClassifyResearch(t *testing.T) {
	c := loadBaseline(t)

	for _, text := range []string{
		"Research best practices for microservices",
		"study recent papers on distributed consensus",
		"find tutorials about container orchestration",
	} {
		got, err := c.Classify(text)
		require.NoError(t, err, text)
		assert.Equal(t, task.CategoryResearch, got, text)
	}
}

func TestClassifyAlwaysYieldsValidCategory(t *testing.T) {
	c := loadBaseline(t)

	for _, text := range []string{
		"",
		"   \t\n",
		"!!! ??? ###",
		"zzz qqq completely unknown tokens",
	} {
		got, err := c.Classify(text)
		require.NoError(t, err, "input %q", text)
		assert.Contains(t, task.Categories(), got, "input %q", text)
	}
}

func TestClassifyTruncatesLongInput(t *testing.T) {
	c := loadBaseline(t)

	// Way past the token cap; must classify, not reject.
	text := strings.Repeat("research study analysis ", 1000)
	got, err := c.Classify(text)
	require.NoError(t, err)
	assert.Equal(t, task.CategoryResearch, got)
}

func TestClassifyUnloadedModel(t *testing.T) {
	var c *Classifier
	_, err := c.Classify("anything")
	require.Error(t, err)
	var clsErr *ClassificationError
	assert.ErrorAs(t, err, &clsErr)
}

func TestLoadSeedsAndReusesCache(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	_, err := Load(ctx, Config{ModelDir: dir})
	require.NoError(t, err)
	_, statErr := os.Stat(filepath.Join(dir, "model.json"))
	assert.NoError(t, statErr, "baseline must be persisted to the cache")

	// Second load must come from the cache: a URL pointing nowhere is fine.
	_, err = Load(ctx, Config{ModelDir: dir, ModelURL: "http://127.0.0.1:1/unreachable"})
	assert.NoError(t, err)
}

func TestLoadFetchesPretrainedModel(t *testing.T) {
	fetched := model{
		Labels: []string{"coding", "research"},
		Bias:   []float64{0, 0},
		Weights: map[string][]float64{
			"flamingo": {0, 2.0},
		},
	}
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		require.NoError(t, json.NewEncoder(w).Encode(fetched))
	}))
	defer srv.Close()

	c, err := Load(context.Background(), Config{ModelDir: t.TempDir(), ModelURL: srv.URL})
	require.NoError(t, err)
	assert.Equal(t, 1, hits)

	got, err := c.Classify("flamingo")
	require.NoError(t, err)
	assert.Equal(t, task.CategoryResearch, got, "the fetched weights must be in effect")
}

func TestLoadFetchFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := Load(context.Background(), Config{ModelDir: t.TempDir(), ModelURL: srv.URL})
	assert.Error(t, err)
}

func TestLoadRejectsMalformedModel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"labels":["up","down"],"bias":[0,0],"weights":{}}`))
	}))
	defer srv.Close()

	_, err := Load(context.Background(), Config{ModelDir: t.TempDir(), ModelURL: srv.URL})
	assert.Error(t, err)
}

func TestTokenize(t *testing.T) {
	tokens := tokenize("Fix the API, then re-test it!")
	assert.Equal(t, []string{"fix", "the", "api", "then", "re", "test", "it"}, tokens)

	long := strings.Repeat("word ", maxTokens+50)
	assert.Len(t, tokenize(long), maxTokens)
}
