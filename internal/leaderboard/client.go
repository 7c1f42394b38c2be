// Package leaderboard retrieves star counts from an Advent of Code private
// leaderboard. A fetch is a single authenticated GET of the leaderboard JSON;
// there are no retries, the next scheduled run is the retry mechanism.
package leaderboard

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// yearPlaceholder in the configured URL is replaced with the target year,
// e.g. https://adventofcode.com/{year}/leaderboard/private/view/12345.json
const yearPlaceholder = "{year}"

// maxBodySize caps how much of the response is decoded. Private leaderboards
// are small; anything past this is not a leaderboard.
const maxBodySize = 4 << 20

const defaultTimeout = 30 * time.Second

// Query identifies one leaderboard fetch. Immutable once constructed.
type Query struct {
	BaseURL      string
	Year         int
	UserID       string
	SessionToken string
}

// FetchError wraps any failure while retrieving or decoding the leaderboard:
// network errors, rejected sessions and malformed responses all land here.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch leaderboard %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Client fetches star counts over HTTP.
type Client struct {
	httpClient *http.Client
	log        *zap.SugaredLogger
}

// NewClient creates a leaderboard client. A non-positive timeout falls back
// to the default.
func NewClient(timeout time.Duration, log *zap.SugaredLogger) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
			// An expired session redirects to the login page; surfacing the
			// redirect as a failed status beats decoding HTML as JSON.
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		log: log,
	}
}

type member struct {
	Name  string `json:"name"`
	Stars int    `json:"stars"`
}

type board struct {
	Members map[string]member `json:"members"`
}

// FetchStars performs a single authenticated request and returns the star
// count of the queried member. Any failure is terminal for the current run.
func (c *Client) FetchStars(ctx context.Context, q Query) (int, error) {
	url := strings.ReplaceAll(q.BaseURL, yearPlaceholder, strconv.Itoa(q.Year))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, &FetchError{URL: url, Err: err}
	}
	req.AddCookie(&http.Cookie{Name: "session", Value: q.SessionToken})
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "badgesync (github.com/orbidlo/badgesync)")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, &FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if err := validateStatus(resp); err != nil {
		return 0, &FetchError{URL: url, Err: err}
	}

	var b board
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodySize)).Decode(&b); err != nil {
		return 0, &FetchError{URL: url, Err: fmt.Errorf("malformed leaderboard response: %w", err)}
	}

	m, ok := b.Members[q.UserID]
	if !ok {
		return 0, &FetchError{URL: url, Err: fmt.Errorf("member %s not present in leaderboard", q.UserID)}
	}

	c.log.Debugw("fetched star count", "year", q.Year, "member", q.UserID, "name", m.Name, "stars", m.Stars)
	return m.Stars, nil
}

func validateStatus(resp *http.Response) error {
	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusFound, http.StatusSeeOther, http.StatusTemporaryRedirect:
		return fmt.Errorf("session rejected: HTTP %d redirect to %s", resp.StatusCode, resp.Header.Get("Location"))
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("authentication failed: HTTP %d", resp.StatusCode)
	case http.StatusNotFound:
		return fmt.Errorf("leaderboard not found: HTTP 404")
	default:
		return fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}
}
