package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/kazz187/chipcliff/internal/task"
)

type memJournal struct {
	mu      sync.Mutex
	errors  []string
	results []string
}

func (j *memJournal) AppendError(_ context.Context, message string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, message)
	return nil
}

func (j *memJournal) AppendResult(_ context.Context, summary string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.results = append(j.results, summary)
	return nil
}

type stubEnhancer struct {
	response string
	err      error
}

func (e *stubEnhancer) Complete(context.Context, string, string) (string, error) {
	return e.response, e.err
}

// searchStub serves a fixed number of h3 results per query and counts hits.
func searchStub(t *testing.T, resultsPerQuery int) (*httptest.Server, *int) {
	t.Helper()
	var hits int
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits++
		mu.Unlock()
		var sb strings.Builder
		sb.WriteString("<html><body>")
		for i := 0; i < resultsPerQuery; i++ {
			fmt.Fprintf(&sb, "<h3>Result %d for %s</h3><p>Snippet %d</p>", i, r.URL.Query().Get("q"), i)
		}
		sb.WriteString("</body></html>")
		_, _ = w.Write([]byte(sb.String()))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestResearcherCategory(t *testing.T) {
	r := NewResearcher(nil, "", &memJournal{})
	assert.Equal(t, task.CategoryResearch, r.Category())
}

func TestResearcherBaseQueriesWithoutEnhancer(t *testing.T) {
	srv, hits := searchStub(t, 1)
	journal := &memJournal{}
	r := NewResearcher(nil, "", journal).WithSearchURL(srv.URL + "/?q=%s")

	verdict, err := r.Execute(context.Background(), "message queues")
	require.NoError(t, err)
	assert.Equal(t, "Research completed", verdict.Feedback)
	assert.Equal(t, 2, *hits, "exactly the two base queries must be searched")
	assert.Contains(t, verdict.Output, "message queues best practices")
	assert.Contains(t, verdict.Output, "message queues tutorials")
}

func TestResearcherEnhancedQueries(t *testing.T) {
	srv, hits := searchStub(t, 1)
	enhancer := &stubEnhancer{response: "queue durability benchmarks\nkafka vs rabbitmq\n\nexactly once delivery"}
	r := NewResearcher(enhancer, "openai", &memJournal{}).WithSearchURL(srv.URL + "/?q=%s")

	_, err := r.Execute(context.Background(), "message queues")
	require.NoError(t, err)
	// Two base queries plus three enhanced ones; the blank line is dropped.
	assert.Equal(t, 5, *hits)
}

func TestResearcherEnhancerFailureFallsBack(t *testing.T) {
	srv, hits := searchStub(t, 1)
	journal := &memJournal{}
	enhancer := &stubEnhancer{err: errors.New("provider down")}
	r := NewResearcher(enhancer, "openai", journal).WithSearchURL(srv.URL + "/?q=%s")

	verdict, err := r.Execute(context.Background(), "message queues")
	require.NoError(t, err, "a degraded run is still a completed run")
	assert.Equal(t, "Research completed", verdict.Feedback)
	assert.Equal(t, 2, *hits)

	require.NotEmpty(t, journal.errors)
	assert.Contains(t, journal.errors[0], "failed to generate enhanced queries")
}

func TestResearcherNoResults(t *testing.T) {
	srv, _ := searchStub(t, 0)
	journal := &memJournal{}
	r := NewResearcher(nil, "", journal).WithSearchURL(srv.URL + "/?q=%s")

	verdict, err := r.Execute(context.Background(), "anything")
	require.NoError(t, err)
	assert.Equal(t, "No results found.", verdict.Output)
	assert.Empty(t, journal.results, "an empty run must not be recorded as a result")
}

func TestResearcherSummaryCapsResults(t *testing.T) {
	srv, _ := searchStub(t, 8)
	journal := &memJournal{}
	r := NewResearcher(nil, "", journal).WithSearchURL(srv.URL + "/?q=%s")

	verdict, err := r.Execute(context.Background(), "anything")
	require.NoError(t, err)
	assert.Equal(t, 5, strings.Count(verdict.Output, "Title: "))

	require.Len(t, journal.results, 1)
	assert.Equal(t, verdict.Output, journal.results[0])
}

func TestResearcherUnreachableSearch(t *testing.T) {
	journal := &memJournal{}
	r := NewResearcher(nil, "", journal).WithSearchURL("http://127.0.0.1:1/?q=%s")

	verdict, err := r.Execute(context.Background(), "anything")
	require.NoError(t, err)
	assert.Equal(t, "No results found.", verdict.Output)
	require.Len(t, journal.errors, 2, "each failed query is logged")
	assert.Contains(t, journal.errors[0], "failed to fetch data")
}

func TestExtractResults(t *testing.T) {
	page := `<html><body>
		<h3>First Title</h3><p>First snippet</p>
		<h3></h3><span></span>
		<h3>Lonely Title</h3>
	</body></html>`

	doc, err := html.Parse(strings.NewReader(page))
	require.NoError(t, err)
	results := extractResults(doc)
	require.Len(t, results, 3)
	assert.Equal(t, "First Title", results[0].Title)
	assert.Equal(t, "First snippet", results[0].Description)
	assert.Equal(t, "No Title", results[1].Title)
	assert.Equal(t, "No Description", results[1].Description)
	assert.Equal(t, "Lonely Title", results[2].Title)
	assert.Equal(t, "No Description", results[2].Description)
}
