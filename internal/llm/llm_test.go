package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubClient struct {
	name     string
	response string
	err      error
	block    bool
}

func (c *stubClient) Name() string {
	return c.name
}

func (c *stubClient) Complete(ctx context.Context, _ string) (string, error) {
	if c.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return c.response, c.err
}

func TestGatewayComplete(t *testing.T) {
	g := NewGateway(time.Second, &stubClient{name: "openai", response: "answer"})

	text, err := g.Complete(context.Background(), "openai", "question")
	require.NoError(t, err)
	assert.Equal(t, "answer", text)
}

func TestGatewayUnknownProvider(t *testing.T) {
	g := NewGateway(time.Second, &stubClient{name: "openai"})

	_, err := g.Complete(context.Background(), "mystery", "question")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownProvider)

	var perr *ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "mystery", perr.Provider)
}

func TestGatewayWrapsClientErrors(t *testing.T) {
	g := NewGateway(time.Second, &stubClient{name: "openai", err: errors.New("boom")})

	_, err := g.Complete(context.Background(), "openai", "question")
	require.Error(t, err)
	var perr *ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "openai", perr.Provider)
	assert.ErrorContains(t, perr.Err, "boom")
}

func TestGatewayTimeout(t *testing.T) {
	g := NewGateway(20*time.Millisecond, &stubClient{name: "openai", block: true})

	start := time.Now()
	_, err := g.Complete(context.Background(), "openai", "question")
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGatewayProvidersSorted(t *testing.T) {
	g := NewGateway(time.Second,
		&stubClient{name: "deepseek"},
		&stubClient{name: "anthropic"},
		&stubClient{name: "openai"},
	)
	assert.Equal(t, []string{"anthropic", "deepseek", "openai"}, g.Providers())
	assert.True(t, g.Operational())
}

func TestGatewayReconfigure(t *testing.T) {
	g := NewGateway(time.Second)
	assert.False(t, g.Operational())
	assert.Empty(t, g.Providers())

	g.Reconfigure(&stubClient{name: "anthropic", response: "hi"})
	assert.True(t, g.Operational())
	assert.Equal(t, []string{"anthropic"}, g.Providers())

	text, err := g.Complete(context.Background(), "anthropic", "question")
	require.NoError(t, err)
	assert.Equal(t, "hi", text)

	g.Reconfigure()
	assert.False(t, g.Operational())
	_, err = g.Complete(context.Background(), "anthropic", "question")
	assert.ErrorIs(t, err, ErrUnknownProvider)
}
