package wordpress

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sirliboyev-uz/ai-blog-agent/internal/service/publisher"
)

// Client publishes posts to one WordPress site over the REST v2 API using
// application-password basic auth.
type Client struct {
	name        string
	baseURL     string
	username    string
	appPassword string
	client      *http.Client
	logger      *zap.Logger
}

func NewClient(logger *zap.Logger, name, baseURL, username, appPassword string) *Client {
	return &Client{
		name:        name,
		baseURL:     strings.TrimRight(baseURL, "/"),
		username:    username,
		appPassword: appPassword,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

func (c *Client) SiteName() string { return c.name }

// CreatePost delivers one payload. The featured image is uploaded to the
// site's media library first and the post body rewritten to reference the
// hosted copy; an upload failure degrades to the original image URL rather
// than failing the post. Failures come back as *publisher.Error so the
// executor can decide between retry and rejection; plain transport errors
// are wrapped as recoverable.
func (c *Client) CreatePost(ctx context.Context, payload *publisher.PostPayload) (*publisher.CreateResult, error) {
	url := c.baseURL + "/wp-json/wp/v2/posts"

	bodyHTML := payload.BodyHTML
	var mediaID int
	if payload.FeaturedImage.URL != "" {
		media, err := c.uploadFeaturedImage(ctx, payload)
		if err != nil {
			c.logger.Warn("Featured image upload failed, keeping source URL",
				zap.String("site", c.name),
				zap.String("image_url", payload.FeaturedImage.URL),
				zap.Error(err))
		} else {
			mediaID = media.ID
			if media.SourceURL != "" {
				bodyHTML = strings.ReplaceAll(bodyHTML, payload.FeaturedImage.URL, media.SourceURL)
			}
		}
	}

	body := map[string]any{
		"title":   payload.Title,
		"content": bodyHTML,
		"excerpt": payload.MetaDescription,
		"slug":    payload.Slug,
		"status":  "publish",
		"meta": map[string]any{
			"dedup_key":          payload.DedupKey,
			"featured_image_url": payload.FeaturedImage.URL,
			"featured_image_alt": payload.FeaturedImage.AltText,
		},
	}
	if mediaID != 0 {
		body["featured_media"] = mediaID
	}
	if ids := c.resolveTerms(ctx, "categories", payload.Categories); len(ids) > 0 {
		body["categories"] = ids
	}
	if ids := c.resolveTerms(ctx, "tags", payload.Tags); len(ids) > 0 {
		body["tags"] = ids
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, publisher.NonRecoverable(err, "failed to marshal post payload")
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, publisher.NonRecoverable(err, "failed to create request")
	}

	req.SetBasicAuth(c.username, c.appPassword)
	req.Header.Set("Content-Type", "application/json")
	// Resent unchanged on every retry so the site can deduplicate.
	req.Header.Set("X-Idempotency-Key", payload.DedupKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, publisher.Recoverable(err, fmt.Sprintf("request to %s failed: %v", c.name, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated {
		var response struct {
			ID   int    `json:"id"`
			Link string `json:"link"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
			return nil, publisher.Recoverable(err, "failed to decode response")
		}
		return &publisher.CreateResult{
			ResourceID: fmt.Sprintf("%d", response.ID),
			URL:        response.Link,
		}, nil
	}

	respBody, _ := io.ReadAll(resp.Body)
	message := fmt.Sprintf("wordpress API returned status %d: %s", resp.StatusCode, string(respBody))

	if publisher.ClassifyStatus(resp.StatusCode) == publisher.KindRecoverable {
		return nil, &publisher.Error{Kind: publisher.KindRecoverable, StatusCode: resp.StatusCode, Message: message}
	}
	return nil, &publisher.Error{Kind: publisher.KindFatal, StatusCode: resp.StatusCode, Message: message}
}

type mediaItem struct {
	ID        int    `json:"id"`
	SourceURL string `json:"source_url"`
}

// uploadFeaturedImage downloads the resolved image and stores it in the
// site's media library so the post does not hotlink the provider's CDN.
func (c *Client) uploadFeaturedImage(ctx context.Context, payload *publisher.PostPayload) (*mediaItem, error) {
	data, ext, err := c.downloadImage(ctx, payload.FeaturedImage.URL)
	if err != nil {
		return nil, err
	}

	url := c.baseURL + "/wp-json/wp/v2/media"

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth(c.username, c.appPassword)
	req.Header.Set("Content-Disposition", fmt.Sprintf(`attachment; filename="featured-%s.%s"`, payload.DedupKey, ext))
	req.Header.Set("Content-Type", "image/"+ext)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to upload media: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("wordpress API returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var media mediaItem
	if err := json.NewDecoder(resp.Body).Decode(&media); err != nil {
		return nil, fmt.Errorf("failed to decode media response: %w", err)
	}

	c.setMediaAltText(ctx, media.ID, payload.FeaturedImage.AltText)

	c.logger.Info("Featured image uploaded",
		zap.String("site", c.name),
		zap.Int("media_id", media.ID))
	return &media, nil
}

func (c *Client) downloadImage(ctx context.Context, imageURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", imageURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("image download returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read image: %w", err)
	}

	ext := "jpeg"
	if strings.Contains(strings.ToLower(imageURL), "png") ||
		strings.Contains(resp.Header.Get("Content-Type"), "png") {
		ext = "png"
	}
	return data, ext, nil
}

// setMediaAltText is best-effort; a missing alt on the media item still
// leaves the alt attribute in the post body intact.
func (c *Client) setMediaAltText(ctx context.Context, mediaID int, altText string) {
	if mediaID == 0 || altText == "" {
		return
	}

	url := fmt.Sprintf("%s/wp-json/wp/v2/media/%d", c.baseURL, mediaID)
	jsonBody, err := json.Marshal(map[string]string{"alt_text": altText})
	if err != nil {
		return
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return
	}
	req.SetBasicAuth(c.username, c.appPassword)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Warn("Failed to set media alt text", zap.Int("media_id", mediaID), zap.Error(err))
		return
	}
	resp.Body.Close()
}

// resolveTerms maps category or tag names to term IDs, creating missing
// terms. A name that cannot be resolved is skipped rather than failing the
// whole post.
func (c *Client) resolveTerms(ctx context.Context, taxonomy string, names []string) []int {
	var ids []int
	for _, name := range names {
		if name == "" {
			continue
		}
		id, err := c.findTerm(ctx, taxonomy, name)
		if err == nil && id == 0 {
			id, err = c.createTerm(ctx, taxonomy, name)
		}
		if err != nil {
			c.logger.Warn("Failed to resolve term",
				zap.String("taxonomy", taxonomy),
				zap.String("name", name),
				zap.Error(err))
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func (c *Client) findTerm(ctx context.Context, taxonomy, name string) (int, error) {
	reqURL := fmt.Sprintf("%s/wp-json/wp/v2/%s?search=%s", c.baseURL, taxonomy, url.QueryEscape(name))

	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth(c.username, c.appPassword)

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return 0, fmt.Errorf("wordpress API returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var terms []struct {
		ID int `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&terms); err != nil {
		return 0, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(terms) == 0 {
		return 0, nil
	}
	return terms[0].ID, nil
}

func (c *Client) createTerm(ctx context.Context, taxonomy, name string) (int, error) {
	reqURL := fmt.Sprintf("%s/wp-json/wp/v2/%s", c.baseURL, taxonomy)

	jsonBody, err := json.Marshal(map[string]string{"name": name})
	if err != nil {
		return 0, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", reqURL, bytes.NewBuffer(jsonBody))
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth(c.username, c.appPassword)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		return 0, fmt.Errorf("wordpress API returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var term struct {
		ID int `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&term); err != nil {
		return 0, fmt.Errorf("failed to decode response: %w", err)
	}

	c.logger.Info("Created term",
		zap.String("taxonomy", taxonomy),
		zap.String("name", name))
	return term.ID, nil
}

// Ping verifies credentials against the users/me endpoint.
func (c *Client) Ping(ctx context.Context) error {
	url := c.baseURL + "/wp-json/wp/v2/users/me"

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth(c.username, c.appPassword)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("wordpress API returned status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}
