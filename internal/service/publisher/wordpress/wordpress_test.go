package wordpress

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sirliboyev-uz/ai-blog-agent/internal/service/images"
	"github.com/sirliboyev-uz/ai-blog-agent/internal/service/publisher"
)

func samplePayload() *publisher.PostPayload {
	return &publisher.PostPayload{
		Title:           "Best Coffee Shops for Remote Work",
		Slug:            "best-coffee-shops-for-remote-work",
		BodyHTML:        "<p>Find a table near an outlet.</p>",
		MetaDescription: "Where to work away from home.",
		DedupKey:        "aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee",
	}
}

func TestCreatePostSuccess(t *testing.T) {
	var gotBody map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username, password, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "editor", username)
		assert.Equal(t, "app-pass", password)
		assert.Equal(t, "aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee", r.Header.Get("X-Idempotency-Key"))
		assert.Equal(t, "/wp-json/wp/v2/posts", r.URL.Path)

		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id": 123, "link": "https://site.example/best-coffee-shops-for-remote-work"}`))
	}))
	defer server.Close()

	client := NewClient(zap.NewNop(), "test-site", server.URL, "editor", "app-pass")

	result, err := client.CreatePost(context.Background(), samplePayload())
	require.NoError(t, err)

	assert.Equal(t, "123", result.ResourceID)
	assert.Equal(t, "https://site.example/best-coffee-shops-for-remote-work", result.URL)

	assert.Equal(t, "Best Coffee Shops for Remote Work", gotBody["title"])
	assert.Equal(t, "publish", gotBody["status"])
	meta, ok := gotBody["meta"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee", meta["dedup_key"])
}

func TestCreatePostDeliversTaxonomyAndFeaturedMedia(t *testing.T) {
	var gotBody map[string]any
	var gotAltBody map[string]string
	var uploadDisposition string

	mux := http.NewServeMux()
	mux.HandleFunc("/images/featured.jpg", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte("jpeg-bytes"))
	})
	mux.HandleFunc("/wp-json/wp/v2/media", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "POST", r.Method)
		uploadDisposition = r.Header.Get("Content-Disposition")
		assert.Equal(t, "image/jpeg", r.Header.Get("Content-Type"))

		data, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.Equal(t, "jpeg-bytes", string(data))

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id": 55, "source_url": "https://site.example/wp-content/uploads/featured.jpg"}`))
	})
	mux.HandleFunc("/wp-json/wp/v2/media/55", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotAltBody))
		w.Write([]byte(`{}`))
	})
	mux.HandleFunc("/wp-json/wp/v2/categories", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == "GET" {
			assert.Equal(t, "Guides", r.URL.Query().Get("search"))
			w.Write([]byte(`[]`))
			return
		}
		var term map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&term))
		assert.Equal(t, "Guides", term["name"])
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id": 7}`))
	})
	mux.HandleFunc("/wp-json/wp/v2/tags", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "GET", r.Method, "an existing tag must not be re-created")
		w.Write([]byte(`[{"id": 3}]`))
	})
	mux.HandleFunc("/wp-json/wp/v2/posts", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id": 123, "link": "https://site.example/p"}`))
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	client := NewClient(zap.NewNop(), "test-site", server.URL, "editor", "app-pass")

	payload := samplePayload()
	payload.Categories = []string{"Guides"}
	payload.Tags = []string{"local"}
	payload.FeaturedImage = images.Candidate{
		Source:  images.SourcePexels,
		URL:     server.URL + "/images/featured.jpg",
		AltText: "a wooden table",
	}
	payload.BodyHTML = `<figure><img src="` + payload.FeaturedImage.URL + `" alt="a wooden table"/></figure><p>body</p>`

	result, err := client.CreatePost(context.Background(), payload)
	require.NoError(t, err)
	assert.Equal(t, "123", result.ResourceID)

	assert.Equal(t, []any{float64(7)}, gotBody["categories"], "categories from the payload must be delivered")
	assert.Equal(t, []any{float64(3)}, gotBody["tags"], "tags from the payload must be delivered")
	assert.Equal(t, float64(55), gotBody["featured_media"])

	// The post body references the hosted copy, not the provider CDN
	content := gotBody["content"].(string)
	assert.Contains(t, content, "https://site.example/wp-content/uploads/featured.jpg")
	assert.NotContains(t, content, "/images/featured.jpg")

	assert.Contains(t, uploadDisposition, payload.DedupKey)
	assert.Equal(t, "a wooden table", gotAltBody["alt_text"])
}

func TestCreatePostMediaUploadFailureDegrades(t *testing.T) {
	var gotBody map[string]any

	mux := http.NewServeMux()
	mux.HandleFunc("/images/missing.jpg", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/wp-json/wp/v2/posts", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id": 124, "link": "https://site.example/q"}`))
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	client := NewClient(zap.NewNop(), "test-site", server.URL, "editor", "app-pass")

	payload := samplePayload()
	payload.FeaturedImage = images.Candidate{
		Source: images.SourceUnsplash,
		URL:    server.URL + "/images/missing.jpg",
	}
	payload.BodyHTML = `<img src="` + payload.FeaturedImage.URL + `"/>`

	result, err := client.CreatePost(context.Background(), payload)
	require.NoError(t, err, "a failed upload must not fail the post")
	assert.Equal(t, "124", result.ResourceID)

	_, hasMedia := gotBody["featured_media"]
	assert.False(t, hasMedia)
	assert.Contains(t, gotBody["content"].(string), "/images/missing.jpg")
}

func TestCreatePostRateLimitedIsRecoverable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient(zap.NewNop(), "test-site", server.URL, "editor", "app-pass")

	_, err := client.CreatePost(context.Background(), samplePayload())
	require.Error(t, err)

	var pubErr *publisher.Error
	require.True(t, errors.As(err, &pubErr))
	assert.Equal(t, publisher.KindRecoverable, pubErr.Kind)
	assert.Equal(t, http.StatusTooManyRequests, pubErr.StatusCode)
}

func TestCreatePostServerErrorIsRecoverable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(zap.NewNop(), "test-site", server.URL, "editor", "app-pass")

	_, err := client.CreatePost(context.Background(), samplePayload())
	require.Error(t, err)
	assert.Equal(t, publisher.KindRecoverable, publisher.KindOf(err))
}

func TestCreatePostAuthFailureIsFatal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"code": "rest_cannot_create"}`))
	}))
	defer server.Close()

	client := NewClient(zap.NewNop(), "test-site", server.URL, "editor", "bad-pass")

	_, err := client.CreatePost(context.Background(), samplePayload())
	require.Error(t, err)

	var pubErr *publisher.Error
	require.True(t, errors.As(err, &pubErr))
	assert.Equal(t, publisher.KindFatal, pubErr.Kind)
	assert.Contains(t, pubErr.Message, "rest_cannot_create")
}

func TestCreatePostBadRequestIsFatal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	client := NewClient(zap.NewNop(), "test-site", server.URL, "editor", "app-pass")

	_, err := client.CreatePost(context.Background(), samplePayload())
	require.Error(t, err)
	assert.Equal(t, publisher.KindFatal, publisher.KindOf(err))
}

func TestCreatePostNetworkErrorIsRecoverable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := NewClient(zap.NewNop(), "test-site", server.URL, "editor", "app-pass")

	_, err := client.CreatePost(context.Background(), samplePayload())
	require.Error(t, err)
	assert.Equal(t, publisher.KindRecoverable, publisher.KindOf(err))
}

func TestPing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/wp-json/wp/v2/users/me", r.URL.Path)
		w.Write([]byte(`{"id": 1}`))
	}))
	defer server.Close()

	client := NewClient(zap.NewNop(), "test-site", server.URL, "editor", "app-pass")
	assert.NoError(t, client.Ping(context.Background()))
}

func TestPingRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClient(zap.NewNop(), "test-site", server.URL, "editor", "bad-pass")
	assert.Error(t, client.Ping(context.Background()))
}
