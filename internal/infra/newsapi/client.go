package newsapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/aliskhannn/exam-prep/internal/domain/entities"
)

const defaultPageSize = 20

var ErrMissingAPIKey = errors.New("news api key is not configured")

// Client fetches articles from a newsapi.org compatible endpoint.
type Client struct {
	baseURL    string
	apiKey     string
	query      string
	pageSize   int
	httpClient *http.Client
}

// NewClient creates a news client searching for query.
func NewClient(baseURL, apiKey, query string, pageSize int) *Client {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		query:      query,
		pageSize:   pageSize,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

type articleSource struct {
	Name string `json:"name"`
}

type articlePayload struct {
	Source      articleSource `json:"source"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	URL         string        `json:"url"`
	URLToImage  string        `json:"urlToImage"`
	PublishedAt time.Time     `json:"publishedAt"`
}

type everythingResponse struct {
	Status   string           `json:"status"`
	Code     string           `json:"code,omitempty"`
	Message  string           `json:"message,omitempty"`
	Articles []articlePayload `json:"articles"`
}

// TopHeadlines returns the most recent articles matching the configured query.
func (c *Client) TopHeadlines(ctx context.Context) ([]entities.Article, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	params := url.Values{}
	params.Set("q", c.query)
	params.Set("language", "en")
	params.Set("sortBy", "publishedAt")
	params.Set("pageSize", strconv.Itoa(c.pageSize))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/everything?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	var body everythingResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)
	}

	if resp.StatusCode != http.StatusOK || body.Status != "ok" {
		return nil, fmt.Errorf("news api error %d %s: %s", resp.StatusCode, body.Code, body.Message)
	}

	articles := make([]entities.Article, 0, len(body.Articles))
	for _, a := range body.Articles {
		if a.Title == "" || a.URL == "" || a.Title == "[Removed]" {
			continue
		}
		articles = append(articles, entities.Article{
			Title:       a.Title,
			Description: a.Description,
			URL:         a.URL,
			ImageURL:    a.URLToImage,
			Source:      a.Source.Name,
			PublishedAt: a.PublishedAt,
		})
	}

	return articles, nil
}
