package handler

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/kazz187/chipcliff/internal/task"
)

const noResults = "No results found."

// maxSummaryResults caps how many scraped results make it into the summary.
const maxSummaryResults = 5

// QueryEnhancer is the slice of the model gateway the researcher needs.
type QueryEnhancer interface {
	Complete(ctx context.Context, provider, prompt string) (string, error)
}

type searchResult struct {
	Title       string
	Description string
}

// Researcher answers a task by searching the web: two base queries derived
// from the description, optional LLM-enhanced queries on top, scrape,
// summarize. Gateway or fetch failures degrade the run (logged to the
// journal), they never fail it.
type Researcher struct {
	enhancer   QueryEnhancer
	provider   string
	journal    Journal
	searchURL  string // format string, %s is the url-escaped query
	httpClient *http.Client
}

func NewResearcher(enhancer QueryEnhancer, provider string, journal Journal) *Researcher {
	return &Researcher{
		enhancer:   enhancer,
		provider:   provider,
		journal:    journal,
		searchURL:  "https://html.duckduckgo.com/html/?q=%s",
		httpClient: &http.Client{},
	}
}

// WithSearchURL overrides the search endpoint, used by tests.
func (r *Researcher) WithSearchURL(searchURL string) *Researcher {
	r.searchURL = searchURL
	return r
}

func (r *Researcher) Category() task.Category {
	return task.CategoryResearch
}

func (r *Researcher) Execute(ctx context.Context, description string) (*Verdict, error) {
	baseQueries := []string{
		description + " best practices",
		description + " tutorials",
	}
	queries := r.enhanceQueries(ctx, description, baseQueries)
	results := r.fetchData(ctx, queries)
	summary := r.summarize(ctx, results)
	return &Verdict{Output: summary, Feedback: "Research completed"}, nil
}

// enhanceQueries asks the gateway for more targeted queries. On any gateway
// failure the base queries are used as-is.
func (r *Researcher) enhanceQueries(ctx context.Context, description string, baseQueries []string) []string {
	if r.enhancer == nil {
		return baseQueries
	}
	prompt := fmt.Sprintf(
		"Given the task: %q and base queries: %v, generate 3 more specific and targeted search queries.",
		description, baseQueries,
	)
	response, err := r.enhancer.Complete(ctx, r.provider, prompt)
	if err != nil {
		r.logError(ctx, fmt.Sprintf("failed to generate enhanced queries: %v", err))
		return baseQueries
	}

	queries := baseQueries
	for _, line := range strings.Split(response, "\n") {
		if q := strings.TrimSpace(line); q != "" {
			queries = append(queries, q)
		}
	}
	return queries
}

func (r *Researcher) fetchData(ctx context.Context, queries []string) []searchResult {
	var data []searchResult
	for _, query := range queries {
		results, err := r.fetchQuery(ctx, query)
		if err != nil {
			r.logError(ctx, fmt.Sprintf("failed to fetch data for query %q: %v", query, err))
			continue
		}
		data = append(data, results...)
	}
	return data
}

func (r *Researcher) fetchQuery(ctx context.Context, query string) ([]searchResult, error) {
	searchURL := fmt.Sprintf(r.searchURL, url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, err
	}
	return extractResults(doc), nil
}

// extractResults treats each h3 as one result title, with the following
// element's text as its description.
func extractResults(doc *html.Node) []searchResult {
	var results []searchResult
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "h3" {
			result := searchResult{
				Title:       strings.TrimSpace(nodeText(n)),
				Description: "No Description",
			}
			if result.Title == "" {
				result.Title = "No Title"
			}
			for sibling := n.NextSibling; sibling != nil; sibling = sibling.NextSibling {
				if sibling.Type == html.ElementNode {
					if desc := strings.TrimSpace(nodeText(sibling)); desc != "" {
						result.Description = desc
					}
					break
				}
			}
			results = append(results, result)
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)
	return results
}

// summarize renders the top results and records the summary in the ledger's
// results collection. No data yields the fixed no-results text.
func (r *Researcher) summarize(ctx context.Context, results []searchResult) string {
	if len(results) == 0 {
		return noResults
	}
	if len(results) > maxSummaryResults {
		results = results[:maxSummaryResults]
	}
	var sb strings.Builder
	for _, result := range results {
		fmt.Fprintf(&sb, "Title: %s\nDescription: %s\n\n", result.Title, result.Description)
	}
	summary := strings.TrimSuffix(sb.String(), "\n")
	if r.journal != nil {
		if err := r.journal.AppendResult(ctx, summary); err != nil {
			r.logError(ctx, fmt.Sprintf("failed to store research summary: %v", err))
		}
	}
	return summary
}

func (r *Researcher) logError(ctx context.Context, message string) {
	if r.journal == nil {
		return
	}
	// Journal failures here have nowhere left to go; drop them.
	_ = r.journal.AppendError(ctx, message)
}
