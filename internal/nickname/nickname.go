// Package nickname asks a chat-completion endpoint (Ollama's /api/chat
// shape) for a short list of nicknames.
package nickname

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"
)

const (
	DefaultModel = "tinyllama:1.1b"
	count        = 8
)

var (
	ErrNotConfigured = errors.New("nickname generator is not configured")
	enumeration      = regexp.MustCompile(`^\d+[.)]\s*`)
)

type Client struct {
	url        string
	model      string
	httpClient *http.Client
}

func New(url, model string, httpClient *http.Client) *Client {
	if model == "" {
		model = DefaultModel
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Client{url: url, model: model, httpClient: httpClient}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type chatResponse struct {
	Message chatMessage `json:"message"`
}

// Prompt builds the request text; theme is optional.
func Prompt(theme string) string {
	theme = strings.TrimSpace(theme)
	vibe := ""
	if theme != "" {
		vibe = " with a " + theme + " vibe"
	}
	return fmt.Sprintf("Generate %d short, fun nicknames%s. Return them as a plain numbered list.", count, vibe)
}

// Generate issues a single request; failures are returned, never retried.
func (c *Client) Generate(ctx context.Context, theme string) ([]string, error) {
	if c == nil || c.url == "" {
		return nil, ErrNotConfigured
	}

	body, err := json.Marshal(chatRequest{
		Model:    c.model,
		Messages: []chatMessage{{Role: "user", Content: Prompt(theme)}},
		Stream:   false,
	})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("nickname request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return ParseList(out.Message.Content), nil
}

// ParseList splits a numbered list into entries, dropping "1." / "2)"
// markers and blank lines.
func ParseList(content string) []string {
	lines := strings.Split(content, "\n")
	names := make([]string, 0, len(lines))
	for _, l := range lines {
		l = strings.TrimSpace(enumeration.ReplaceAllString(strings.TrimSpace(l), ""))
		if l != "" {
			names = append(names, l)
		}
	}
	return names
}
