package riot

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const (
	defaultRegionURL   = "https://euw1.api.riotgames.com"
	defaultAccountsURL = "https://europe.api.riotgames.com"
)

// Client handles Riot API requests.
type Client struct {
	apiKey      string
	regionURL   string
	accountsURL string
	httpClient  *http.Client
}

// NewClient creates a new Riot API client for the default region.
func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:      apiKey,
		regionURL:   defaultRegionURL,
		accountsURL: defaultAccountsURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// RankedEntry is one queue's ranked standing.
type RankedEntry struct {
	QueueType    string `json:"queueType"`
	Tier         string `json:"tier"`
	Rank         string `json:"rank"` // division, "I".."IV"
	LeaguePoints int    `json:"leaguePoints"`
	Wins         int    `json:"wins"`
	Losses       int    `json:"losses"`
}

type account struct {
	PUUID    string `json:"puuid"`
	GameName string `json:"gameName"`
	TagLine  string `json:"tagLine"`
}

// GetSoloQueueRank resolves a Riot ID ("name#tag") to its solo queue
// standing. Returns nil when the account exists but is unranked.
func (c *Client) GetSoloQueueRank(ctx context.Context, gameName, tagLine string) (*RankedEntry, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("no API key configured")
	}

	acct, err := c.getAccount(ctx, gameName, tagLine)
	if err != nil {
		return nil, err
	}

	entries, err := c.getLeagueEntries(ctx, acct.PUUID)
	if err != nil {
		return nil, err
	}

	for _, e := range entries {
		if e.QueueType == "RANKED_SOLO_5x5" {
			entry := e
			return &entry, nil
		}
	}
	return nil, nil
}

func (c *Client) getAccount(ctx context.Context, gameName, tagLine string) (*account, error) {
	reqURL := fmt.Sprintf("%s/riot/account/v1/accounts/by-riot-id/%s/%s",
		c.accountsURL, url.PathEscape(gameName), url.PathEscape(tagLine))

	var acct account
	if err := c.get(ctx, reqURL, &acct); err != nil {
		return nil, fmt.Errorf("failed to resolve riot id %s#%s: %w", gameName, tagLine, err)
	}
	return &acct, nil
}

func (c *Client) getLeagueEntries(ctx context.Context, puuid string) ([]RankedEntry, error) {
	reqURL := fmt.Sprintf("%s/lol/league/v4/entries/by-puuid/%s", c.regionURL, url.PathEscape(puuid))

	var entries []RankedEntry
	if err := c.get(ctx, reqURL, &entries); err != nil {
		return nil, fmt.Errorf("failed to fetch league entries: %w", err)
	}
	return entries, nil
}

func (c *Client) get(ctx context.Context, reqURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Riot-Token", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
