package langchain

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"

	"github.com/joseph-ayodele/patient-intake/internal/common"
	"github.com/joseph-ayodele/patient-intake/internal/ratelimit"
)

type stubModel struct {
	resp     *llms.ContentResponse
	err      error
	messages []llms.MessageContent
}

func (s *stubModel) GenerateContent(_ context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	s.messages = messages
	if s.err != nil {
		return nil, s.err
	}
	return s.resp, nil
}

func (s *stubModel) Call(context.Context, string, ...llms.CallOption) (string, error) {
	return "", errors.New("not implemented")
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newStubClient(model llms.Model, limiter *ratelimit.Limiter) *Client {
	return &Client{
		cfg:     Config{Model: "gpt-4o", Timeout: time.Second}.withDefaults(),
		model:   model,
		limiter: limiter,
		log:     testLogger(),
	}
}

func choiceResponse(content string) *llms.ContentResponse {
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: content}},
	}
}

func TestConfigWithDefaults(t *testing.T) {
	got := Config{}.withDefaults()
	assert.Equal(t, "gpt-4o", got.Model)
	assert.Equal(t, 45*time.Second, got.Timeout)

	custom := Config{Model: "gpt-4o-mini", Timeout: 10 * time.Second, Temperature: 0.7}.withDefaults()
	assert.Equal(t, "gpt-4o-mini", custom.Model)
	assert.Equal(t, 10*time.Second, custom.Timeout)
	assert.EqualValues(t, 0.7, custom.Temperature)
}

func TestNewClientWithoutKey(t *testing.T) {
	c, err := NewClient(Config{}, nil, testLogger())
	require.NoError(t, err, "a missing key degrades, it does not fail construction")
	assert.False(t, c.Available())

	_, err = c.Complete(context.Background(), "anything")
	assert.ErrorIs(t, err, common.ErrReasoningUnavailable)
}

func TestCompleteSendsHumanMessage(t *testing.T) {
	stub := &stubModel{resp: choiceResponse("hello")}
	c := newStubClient(stub, nil)

	out, err := c.Complete(context.Background(), "say hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", out)

	require.Len(t, stub.messages, 1)
	msg := stub.messages[0]
	assert.Equal(t, schema.ChatMessageTypeHuman, msg.Role)
	require.Len(t, msg.Parts, 1)
	assert.Equal(t, llms.TextContent{Text: "say hello"}, msg.Parts[0])
}

func TestCompleteWithImageAttachesDataURL(t *testing.T) {
	stub := &stubModel{resp: choiceResponse("a scanned form")}
	c := newStubClient(stub, nil)

	_, err := c.CompleteWithImage(context.Background(), "describe this", "data:image/jpeg;base64,abc")
	require.NoError(t, err)

	require.Len(t, stub.messages, 1)
	parts := stub.messages[0].Parts
	require.Len(t, parts, 2)
	assert.Equal(t, llms.TextContent{Text: "describe this"}, parts[0])
	assert.Equal(t, llms.ImageURLContent{URL: "data:image/jpeg;base64,abc"}, parts[1])
}

func TestCompleteProviderFailure(t *testing.T) {
	stub := &stubModel{err: errors.New("upstream 500")}
	c := newStubClient(stub, nil)

	_, err := c.Complete(context.Background(), "prompt")
	assert.ErrorIs(t, err, common.ErrReasoningUnavailable)
}

func TestCompleteEmptyChoices(t *testing.T) {
	stub := &stubModel{resp: &llms.ContentResponse{}}
	c := newStubClient(stub, nil)

	_, err := c.Complete(context.Background(), "prompt")
	assert.ErrorIs(t, err, common.ErrReasoningMalformed)
}

func TestCompleteRefusedByLimiter(t *testing.T) {
	limiter := ratelimit.NewLimiter(ratelimit.Limits{RequestsPerMinute: 1}, testLogger())
	require.True(t, limiter.Acquire(1), "consume the only slot")

	stub := &stubModel{resp: choiceResponse("never reached")}
	c := newStubClient(stub, limiter)

	_, err := c.Complete(context.Background(), "prompt")
	assert.ErrorIs(t, err, common.ErrRateLimited)
	assert.Empty(t, stub.messages, "a refused reservation must not reach the provider")
}

func TestCompleteReconcilesTokenUsage(t *testing.T) {
	// "x" estimates at 100 tokens. With a 150-token budget a second call
	// only fits if the books were corrected down to the actual count.
	limiter := ratelimit.NewLimiter(ratelimit.Limits{TokensPerMinute: 150}, testLogger())
	stub := &stubModel{resp: &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{
			Content:        "ok",
			GenerationInfo: map[string]any{"TotalTokens": 10},
		}},
	}}
	c := newStubClient(stub, limiter)

	_, err := c.Complete(context.Background(), "x")
	require.NoError(t, err)
	assert.True(t, limiter.Acquire(100), "actual usage of 10 leaves room for another call")
}
