package sheets

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"time"

	"github.com/sirliboyev-uz/ai-blog-agent/internal/config"
)

const sheetsBaseURL = "https://sheets.googleapis.com/v4"

type apiClient struct {
	config  *config.SheetsConfig
	baseURL string
	client  *http.Client
}

func newAPIClient(cfg *config.SheetsConfig) *apiClient {
	return &apiClient{
		config:  cfg,
		baseURL: sheetsBaseURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *apiClient) getValues(ctx context.Context, sheetRange string) ([][]string, int, error) {
	reqURL := fmt.Sprintf("%s/spreadsheets/%s/values/%s",
		c.baseURL, c.config.SpreadsheetID, url.PathEscape(sheetRange))

	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	c.authorize(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, 0, fmt.Errorf("sheets API returned status %d: %s", resp.StatusCode, string(body))
	}

	var response struct {
		Range  string     `json:"range"`
		Values [][]string `json:"values"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, 0, fmt.Errorf("failed to decode response: %w", err)
	}

	return response.Values, firstRowOfRange(sheetRange), nil
}

func (c *apiClient) updateValues(ctx context.Context, sheetRange string, values [][]string) error {
	reqURL := fmt.Sprintf("%s/spreadsheets/%s/values/%s?valueInputOption=RAW",
		c.baseURL, c.config.SpreadsheetID, url.PathEscape(sheetRange))

	body := map[string]any{
		"range":          sheetRange,
		"majorDimension": "ROWS",
		"values":         values,
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "PUT", reqURL, bytes.NewBuffer(jsonBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("sheets API returned status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

func (c *apiClient) authorize(req *http.Request) {
	if c.config.AccessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.AccessToken)
		return
	}
	q := req.URL.Query()
	q.Set("key", c.config.APIKey)
	req.URL.RawQuery = q.Encode()
}

var rangeStartRegexp = regexp.MustCompile(`![A-Z]+(\d+)`)

// firstRowOfRange extracts the starting row number from an A1-notation
// range, defaulting to 2 (first data row under a header).
func firstRowOfRange(sheetRange string) int {
	match := rangeStartRegexp.FindStringSubmatch(sheetRange)
	if len(match) == 2 {
		if n, err := strconv.Atoi(match[1]); err == nil {
			return n
		}
	}
	return 2
}
