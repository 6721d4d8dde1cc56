// Package llm is the uniform boundary to external language-model providers.
// Each provider client is a stateless single-shot request wrapper with a
// bounded timeout and no retries; retrying is the caller's call. Failures
// cross this boundary only as *ProviderError, never as raw transport errors.
package llm

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderDeepSeek  = "deepseek"
)

// DefaultTimeout bounds a single provider call when the gateway config does
// not override it.
const DefaultTimeout = 30 * time.Second

// ErrUnknownProvider marks a request addressed to a provider that is not in
// the gateway's current configuration.
var ErrUnknownProvider = errors.New("provider not configured")

// ProviderError wraps any provider-side failure with the provider name and
// the underlying cause.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Client is one configured provider.
type Client interface {
	Name() string
	Complete(ctx context.Context, prompt string) (string, error)
}

// Gateway routes completion requests to the configured provider set. The
// set is fixed at startup but can be swapped wholesale when credentials are
// reloaded; individual calls see a consistent snapshot.
type Gateway struct {
	mu      sync.RWMutex
	clients map[string]Client
	timeout time.Duration
}

func NewGateway(timeout time.Duration, clients ...Client) *Gateway {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	g := &Gateway{timeout: timeout}
	g.Reconfigure(clients...)
	return g
}

// Reconfigure replaces the provider set.
func (g *Gateway) Reconfigure(clients ...Client) {
	next := make(map[string]Client, len(clients))
	for _, c := range clients {
		next[c.Name()] = c
	}
	g.mu.Lock()
	g.clients = next
	g.mu.Unlock()
}

// Providers returns the configured provider names, sorted.
func (g *Gateway) Providers() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	names := make([]string, 0, len(g.clients))
	for name := range g.clients {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Operational reports whether at least one provider is configured.
func (g *Gateway) Operational() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.clients) > 0
}

// Complete runs one bounded-timeout completion against the named provider.
func (g *Gateway) Complete(ctx context.Context, provider, prompt string) (string, error) {
	g.mu.RLock()
	client, ok := g.clients[provider]
	g.mu.RUnlock()
	if !ok {
		return "", &ProviderError{Provider: provider, Err: ErrUnknownProvider}
	}
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	text, err := client.Complete(ctx, prompt)
	if err != nil {
		if perr, ok := err.(*ProviderError); ok {
			return "", perr
		}
		return "", &ProviderError{Provider: provider, Err: err}
	}
	return text, nil
}
