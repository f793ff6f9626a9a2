package llamacpp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/menta2k/image-tracer/pkg/svg"
)

const (
	// DefaultURL is the address of a local llama.cpp server
	DefaultURL = "http://localhost:8080"

	completionsPath  = "/v1/chat/completions"
	defaultMaxTokens = 8192
	queryTimeout     = 300 * time.Second

	// cap on the error body quoted back to the caller
	maxErrorBody = 4 << 10
)

var (
	// ErrNoChoices is returned when the server answers without a completion
	ErrNoChoices = errors.New("llama.cpp: no choices in response")

	// ErrEmptyAnswer is returned when the completion carries no text
	ErrEmptyAnswer = errors.New("llama.cpp: empty answer")
)

// StatusError reports a non-200 reply from the server
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("llama.cpp: server returned status %d: %s", e.Code, e.Body)
}

// Client talks to the OpenAI-compatible chat endpoint of llama-server
type Client struct {
	endpoint string
	http     *http.Client

	// MaxTokens bounds the length of the generated document
	MaxTokens int
}

// ContentPart is one element of a multimodal user message
type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

type ImageURL struct {
	URL string `json:"url"`
}

type ChatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []UserMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Stream      bool          `json:"stream"`
}

type UserMessage struct {
	Role    string        `json:"role"`
	Content []ContentPart `json:"content"`
}

type ChatCompletionResponse struct {
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
}

type Choice struct {
	Index        int          `json:"index"`
	Message      ReplyMessage `json:"message"`
	FinishReason string       `json:"finish_reason,omitempty"`
}

// ReplyMessage keeps the content raw: servers send either a string or a list of parts
type ReplyMessage struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

// Text returns the answer, joining the text parts of a multimodal reply
func (m ReplyMessage) Text() (string, error) {
	if len(m.Content) == 0 || string(m.Content) == "null" {
		return "", nil
	}

	var s string
	if err := json.Unmarshal(m.Content, &s); err == nil {
		return s, nil
	}

	var parts []ContentPart
	if err := json.Unmarshal(m.Content, &parts); err != nil {
		return "", fmt.Errorf("llama.cpp: unexpected message content: %w", err)
	}
	var b strings.Builder
	for _, p := range parts {
		if p.Type == "text" || p.Type == "" {
			b.WriteString(p.Text)
		}
	}
	return b.String(), nil
}

func NewClient(serverURL string) (*Client, error) {
	if serverURL == "" {
		serverURL = DefaultURL
	}
	return &Client{
		endpoint:  strings.TrimSuffix(serverURL, "/") + completionsPath,
		http:      &http.Client{Timeout: 5 * time.Minute},
		MaxTokens: defaultMaxTokens,
	}, nil
}

// visionRequest builds a deterministic single-turn request with the image inlined as a PNG data URL
func (c *Client) visionRequest(model, prompt, imgB64 string) ChatCompletionRequest {
	parts := []ContentPart{{Type: "text", Text: prompt}}
	if imgB64 != "" {
		parts = append(parts, ContentPart{
			Type:     "image_url",
			ImageURL: &ImageURL{URL: "data:image/png;base64," + imgB64},
		})
	}
	return ChatCompletionRequest{
		Model:     model,
		Messages:  []UserMessage{{Role: "user", Content: parts}},
		MaxTokens: c.MaxTokens,
	}
}

// SimpleQuery sends the prompt and image and returns the raw answer text
func (c *Client) SimpleQuery(ctx context.Context, model, prompt, imgB64 string) (string, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, queryTimeout)
		defer cancel()
	}

	var resp ChatCompletionResponse
	if err := c.post(ctx, c.visionRequest(model, prompt, imgB64), &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoChoices
	}
	return resp.Choices[0].Message.Text()
}

// TraceImage asks the model for an SVG tracing of the image and extracts the document
func (c *Client) TraceImage(ctx context.Context, model, prompt, imgB64 string) (string, error) {
	answer, err := c.SimpleQuery(ctx, model, prompt, imgB64)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(answer) == "" {
		return "", ErrEmptyAnswer
	}
	return svg.Extract(answer)
}

func (c *Client) post(ctx context.Context, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("llama.cpp: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("llama.cpp: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("llama.cpp: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("llama.cpp: decode response: %w", err)
	}
	return nil
}
