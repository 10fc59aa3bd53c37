package images

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

const unsplashSearchURL = "https://api.unsplash.com/search/photos"

// UnsplashProvider queries the Unsplash photo search API.
type UnsplashProvider struct {
	accessKey string
	baseURL   string
	client    *http.Client
	logger    *zap.Logger
}

func NewUnsplashProvider(logger *zap.Logger, accessKey string) *UnsplashProvider {
	return &UnsplashProvider{
		accessKey: accessKey,
		baseURL:   unsplashSearchURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

func (p *UnsplashProvider) Name() string { return "unsplash" }

func (p *UnsplashProvider) Source() Source { return SourceUnsplash }

func (p *UnsplashProvider) Search(ctx context.Context, query string) ([]Result, error) {
	reqURL := fmt.Sprintf("%s?query=%s&per_page=5&orientation=landscape", p.baseURL, url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Client-ID "+p.accessKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		body, _ := io.ReadAll(resp.Body)
		return nil, Fatal(fmt.Errorf("unsplash API rejected credentials with status %d: %s", resp.StatusCode, string(body)))
	default:
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("unsplash API returned status %d: %s", resp.StatusCode, string(body))
	}

	var response struct {
		Results []struct {
			Description    string `json:"description"`
			AltDescription string `json:"alt_description"`
			URLs           struct {
				Regular string `json:"regular"`
				Full    string `json:"full"`
			} `json:"urls"`
			User struct {
				Name  string `json:"name"`
				Links struct {
					HTML string `json:"html"`
				} `json:"links"`
			} `json:"user"`
		} `json:"results"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	var results []Result
	for _, photo := range response.Results {
		imageURL := photo.URLs.Regular
		if imageURL == "" {
			imageURL = photo.URLs.Full
		}
		if imageURL == "" {
			continue
		}
		description := photo.Description
		if description == "" {
			description = photo.AltDescription
		}
		results = append(results, Result{
			URL:         imageURL,
			Description: description,
			Attribution: fmt.Sprintf("Photo by %s on Unsplash (%s)", photo.User.Name, photo.User.Links.HTML),
		})
	}

	return results, nil
}
