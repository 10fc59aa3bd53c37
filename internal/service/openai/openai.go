package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sirliboyev-uz/ai-blog-agent/internal/config"
)

// GeneratedPost is the structured output of one content generation call.
type GeneratedPost struct {
	Title           string   `json:"title"`
	MetaDescription string   `json:"meta_description"`
	BodyHTML        string   `json:"body_html"`
	Categories      []string `json:"categories"`
	Tags            []string `json:"tags"`
}

// PostRequest describes the topic the model should write about.
type PostRequest struct {
	Subject       string
	Business      string
	Location      string
	InternalLinks []string
}

// Client talks to the OpenAI API for text and image generation.
type Client struct {
	config *config.OpenAIConfig
	client *http.Client
	logger *zap.Logger
}

func NewClient(cfg *config.OpenAIConfig, logger *zap.Logger) *Client {
	return &Client{
		config: cfg,
		client: &http.Client{
			Timeout: 120 * time.Second,
		},
		logger: logger,
	}
}

// GeneratePost produces a complete SEO-ready post for a topic in a single
// structured completion call.
func (c *Client) GeneratePost(ctx context.Context, req PostRequest) (*GeneratedPost, error) {
	systemPrompt := "You are an expert SEO content writer. Respond with a single JSON object with keys: " +
		"title, meta_description, body_html, categories (array of strings), tags (array of strings). " +
		"body_html must be clean HTML using p, h2, h3 and a tags, 800-1000 words, with 3-6 headings. " +
		"meta_description must be under 160 characters."

	var sb strings.Builder
	fmt.Fprintf(&sb, "Write a blog post about: %s.", req.Subject)
	if req.Business != "" {
		fmt.Fprintf(&sb, " The post is for a %s business.", req.Business)
	}
	if req.Location != "" {
		fmt.Fprintf(&sb, " The audience is in %s.", req.Location)
	}
	if len(req.InternalLinks) > 0 {
		fmt.Fprintf(&sb, " Naturally link to these pages where contextually relevant: %s.", strings.Join(req.InternalLinks, ", "))
	}

	content, err := c.chatCompletion(ctx, systemPrompt, sb.String())
	if err != nil {
		return nil, err
	}

	var post GeneratedPost
	if err := json.Unmarshal([]byte(content), &post); err != nil {
		return nil, fmt.Errorf("failed to parse generated post: %w", err)
	}
	if post.Title == "" || post.BodyHTML == "" {
		return nil, fmt.Errorf("generated post is missing title or body")
	}

	return &post, nil
}

// AltText asks the model for a short image alt text. Callers fall back to a
// deterministic derivation when this fails.
func (c *Client) AltText(ctx context.Context, topic string) (string, error) {
	systemPrompt := "You write concise, descriptive alt text for blog images. Respond with the alt text only, no quotes, under 120 characters."
	userPrompt := fmt.Sprintf("Alt text for the featured image of a blog post about: %s", topic)

	content, err := c.chatCompletion(ctx, systemPrompt, userPrompt)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(content), nil
}

// GenerateImage creates an image and returns its URL. Implements the
// images.ImageGenerator oracle.
func (c *Client) GenerateImage(ctx context.Context, prompt string) (string, error) {
	url := c.config.BaseURL + "/images/generations"

	body := map[string]any{
		"model":  c.config.ImageModel,
		"prompt": prompt,
		"n":      1,
		"size":   c.config.ImageSize,
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("openai API returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var response struct {
		Data []struct {
			URL string `json:"url"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(response.Data) == 0 || response.Data[0].URL == "" {
		return "", fmt.Errorf("openai API returned no image")
	}

	return response.Data[0].URL, nil
}

// Ping lists models to verify credentials.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", c.config.BaseURL+"/models", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("openai API returned status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

func (c *Client) chatCompletion(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	url := c.config.BaseURL + "/chat/completions"

	body := map[string]any{
		"model": c.config.Model,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": userPrompt},
		},
	}
	if strings.Contains(systemPrompt, "JSON") {
		body["response_format"] = map[string]string{"type": "json_object"}
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("openai API returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var response struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("openai API returned no choices")
	}

	return response.Choices[0].Message.Content, nil
}
