package vatsim

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/kabili207/vatsim-listing/pkg/models"
)

// Client fetches the VATSIM v3 data feed. The feed requires no
// authentication and is replaced in full on every fetch.
type Client struct {
	url        string
	httpClient *http.Client
}

func NewClient(url string, timeout time.Duration) *Client {
	return &Client{
		url: url,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// rawFeed covers the subset of the feed document the listing needs. The
// feed also carries prefiles, ratings and facilities; they are ignored.
type rawFeed struct {
	General     models.NetworkOverview `json:"general"`
	Pilots      []models.Pilot         `json:"pilots"`
	Controllers []models.Controller    `json:"controllers"`
}

// Fetch retrieves and decodes the feed into a fresh snapshot.
func (c *Client) Fetch(ctx context.Context) (*models.NetworkSnapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating feed request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "vatsim-listing/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching vatsim data: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("vatsim feed returned status %d", resp.StatusCode)
	}

	var raw rawFeed
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding vatsim data: %w", err)
	}

	return &models.NetworkSnapshot{
		Overview:    raw.General,
		Pilots:      raw.Pilots,
		Controllers: raw.Controllers,
		FetchedAt:   time.Now().UTC(),
	}, nil
}
