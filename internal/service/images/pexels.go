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

const pexelsSearchURL = "https://api.pexels.com/v1/search"

// PexelsProvider queries the Pexels photo search API.
type PexelsProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

func NewPexelsProvider(logger *zap.Logger, apiKey string) *PexelsProvider {
	return &PexelsProvider{
		apiKey:  apiKey,
		baseURL: pexelsSearchURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

func (p *PexelsProvider) Name() string { return "pexels" }

func (p *PexelsProvider) Source() Source { return SourcePexels }

func (p *PexelsProvider) Search(ctx context.Context, query string) ([]Result, error) {
	reqURL := fmt.Sprintf("%s?query=%s&per_page=5&orientation=landscape", p.baseURL, url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		body, _ := io.ReadAll(resp.Body)
		return nil, Fatal(fmt.Errorf("pexels API rejected credentials with status %d: %s", resp.StatusCode, string(body)))
	default:
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("pexels API returned status %d: %s", resp.StatusCode, string(body))
	}

	var response struct {
		Photos []struct {
			Alt             string `json:"alt"`
			Photographer    string `json:"photographer"`
			PhotographerURL string `json:"photographer_url"`
			Src             struct {
				Large2x string `json:"large2x"`
				Large   string `json:"large"`
			} `json:"src"`
		} `json:"photos"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	var results []Result
	for _, photo := range response.Photos {
		imageURL := photo.Src.Large2x
		if imageURL == "" {
			imageURL = photo.Src.Large
		}
		if imageURL == "" {
			continue
		}
		results = append(results, Result{
			URL:         imageURL,
			Description: photo.Alt,
			Attribution: fmt.Sprintf("Photo by %s on Pexels (%s)", photo.Photographer, photo.PhotographerURL),
		})
	}

	return results, nil
}
