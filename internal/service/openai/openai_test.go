package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sirliboyev-uz/ai-blog-agent/internal/config"
)

func newTestClient(baseURL string) *Client {
	return NewClient(&config.OpenAIConfig{
		APIKey:     "sk-test",
		BaseURL:    baseURL,
		Model:      "gpt-4o",
		ImageModel: "dall-e-3",
		ImageSize:  "1792x1024",
	}, zap.NewNop())
}

func chatResponse(content string) string {
	b, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]string{"content": content}},
		},
	})
	return string(b)
}

func TestGeneratePost(t *testing.T) {
	var gotBody map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		post := `{"title": "Best Coffee Shops", "meta_description": "Where to work.", "body_html": "<p>body</p>", "categories": ["Guides"], "tags": ["coffee"]}`
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(chatResponse(post)))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	post, err := client.GeneratePost(context.Background(), PostRequest{
		Subject:       "best coffee shops for remote work",
		Business:      "coffee shop",
		Location:      "Portland, OR",
		InternalLinks: []string{"https://site.example/menu"},
	})
	require.NoError(t, err)

	assert.Equal(t, "Best Coffee Shops", post.Title)
	assert.Equal(t, "<p>body</p>", post.BodyHTML)
	assert.Equal(t, []string{"Guides"}, post.Categories)

	assert.Equal(t, "gpt-4o", gotBody["model"])
	format, ok := gotBody["response_format"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "json_object", format["type"])

	messages, ok := gotBody["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 2)
	user := messages[1].(map[string]any)["content"].(string)
	assert.Contains(t, user, "best coffee shops for remote work")
	assert.Contains(t, user, "coffee shop")
	assert.Contains(t, user, "Portland, OR")
	assert.Contains(t, user, "https://site.example/menu")
}

func TestGeneratePostRejectsIncompleteOutput(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(chatResponse(`{"title": "", "body_html": ""}`)))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.GeneratePost(context.Background(), PostRequest{Subject: "anything"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing title or body")
}

func TestGeneratePostReportsAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error": {"code": "invalid_api_key"}}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.GeneratePost(context.Background(), PostRequest{Subject: "anything"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
}

func TestAltText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(chatResponse("  A barista pouring latte art in a sunny cafe  ")))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	alt, err := client.AltText(context.Background(), "best coffee shops")
	require.NoError(t, err)
	assert.Equal(t, "A barista pouring latte art in a sunny cafe", alt)
}

func TestGenerateImage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/images/generations", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "dall-e-3", body["model"])
		assert.Equal(t, "1792x1024", body["size"])

		w.Write([]byte(`{"data": [{"url": "https://images.example/generated.png"}]}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	url, err := client.GenerateImage(context.Background(), "a cozy cafe interior")
	require.NoError(t, err)
	assert.Equal(t, "https://images.example/generated.png", url)
}

func TestGenerateImageEmptyResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": []}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.GenerateImage(context.Background(), "anything")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no image")
}
