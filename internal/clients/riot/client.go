package riot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/yungbote/fitlol-ingest/internal/platform/envutil"
	"github.com/yungbote/fitlol-ingest/internal/platform/logger"
)

const (
	defaultRegionHost = "https://americas.api.riotgames.com"
	defaultTimeout    = 10 * time.Second

	// Development-key budget. The limiter stays slightly under the provider's
	// published 20/s and 100/2min so bursts never trip a 429 on their own.
	requestsPerSecond  = 15
	requestsPerTwoMins = 90

	// MaxMatchCount is the hard provider-side cap on match-list page size.
	MaxMatchCount = 100
)

type Config struct {
	APIKey     string
	RegionHost string
	Timeout    time.Duration
}

func ConfigFromEnv() Config {
	return Config{
		APIKey:     envutil.String("RIOT_API_KEY", ""),
		RegionHost: envutil.String("RIOT_REGION_HOST", defaultRegionHost),
		Timeout:    envutil.Duration("RIOT_HTTP_TIMEOUT", defaultTimeout),
	}
}

// Client talks to the regional Riot HTTP API with a proactive sliding-window
// rate limiter and a single reactive Retry-After retry on 429.
type Client struct {
	cfg     Config
	http    *http.Client
	limiter *slidingLimiter
	log     *logger.Logger
}

func New(cfg Config, log *logger.Logger) *Client {
	if cfg.RegionHost == "" {
		cfg.RegionHost = defaultRegionHost
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: newSlidingLimiter(requestsPerSecond, requestsPerTwoMins),
		log:     log.With("component", "riot_client"),
	}
}

// ResolveAccount resolves a riot id (game name + tag line) to an account.
func (c *Client) ResolveAccount(ctx context.Context, gameName, tagLine string) (*AccountResponse, error) {
	path := fmt.Sprintf("/riot/account/v1/accounts/by-riot-id/%s/%s",
		url.PathEscape(gameName), url.PathEscape(tagLine))
	body, err := c.get(ctx, path, nil)
	if err != nil {
		return nil, err
	}
	var acct AccountResponse
	if err := json.Unmarshal(body, &acct); err != nil {
		return nil, &Error{Kind: KindTransport, Err: fmt.Errorf("decode account: %w", err)}
	}
	return &acct, nil
}

// MatchIDs lists the newest match ids for a puuid, newest first. count is
// clamped to the provider maximum.
func (c *Client) MatchIDs(ctx context.Context, puuid string, count int) ([]string, error) {
	if count <= 0 {
		count = 1
	}
	if count > MaxMatchCount {
		count = MaxMatchCount
	}
	path := fmt.Sprintf("/lol/match/v5/matches/by-puuid/%s/ids", url.PathEscape(puuid))
	body, err := c.get(ctx, path, url.Values{
		"start": {"0"},
		"count": {strconv.Itoa(count)},
	})
	if err != nil {
		return nil, err
	}
	var ids []string
	if err := json.Unmarshal(body, &ids); err != nil {
		return nil, &Error{Kind: KindTransport, Err: fmt.Errorf("decode match ids: %w", err)}
	}
	return ids, nil
}

// MatchDetail fetches a single match. The raw payload is preserved alongside
// the decoded fields.
func (c *Client) MatchDetail(ctx context.Context, matchID string) (*MatchDetail, error) {
	body, err := c.get(ctx, "/lol/match/v5/matches/"+url.PathEscape(matchID), nil)
	if err != nil {
		return nil, err
	}
	var detail MatchDetail
	if err := json.Unmarshal(body, &detail); err != nil {
		return nil, &Error{Kind: KindTransport, Err: fmt.Errorf("decode match %s: %w", matchID, err)}
	}
	detail.Raw = json.RawMessage(body)
	return &detail, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	target := c.cfg.RegionHost + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	for attempt := 0; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &Error{Kind: KindTimeout, Err: err}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return nil, &Error{Kind: KindTransport, Err: err}
		}
		req.Header.Set("X-Riot-Token", c.cfg.APIKey)
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, classifyTransport(err)
		}
		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
			if readErr != nil {
				return nil, &Error{Kind: KindTransport, Err: readErr}
			}
			return body, nil
		case resp.StatusCode == http.StatusTooManyRequests:
			if attempt > 0 {
				return nil, &Error{Kind: KindRateLimited, Status: resp.StatusCode}
			}
			wait := retryAfter(resp.Header)
			c.log.Warn("rate limited by provider, backing off",
				"path", path, "retry_after", wait.String())
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return nil, &Error{Kind: KindTimeout, Err: ctx.Err()}
			}
		case resp.StatusCode == http.StatusNotFound:
			return nil, &Error{Kind: KindNotFound, Status: resp.StatusCode}
		case resp.StatusCode >= 500:
			return nil, &Error{Kind: KindUnavailable, Status: resp.StatusCode}
		default:
			return nil, &Error{
				Kind:   KindTransport,
				Status: resp.StatusCode,
				Err:    fmt.Errorf("unexpected status %d", resp.StatusCode),
			}
		}
	}
}

func classifyTransport(err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) || os.IsTimeout(err) {
		return &Error{Kind: KindTimeout, Err: err}
	}
	var ue *url.Error
	if errors.As(err, &ue) && ue.Timeout() {
		return &Error{Kind: KindTimeout, Err: err}
	}
	return &Error{Kind: KindTransport, Err: err}
}

func retryAfter(h http.Header) time.Duration {
	if v := h.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return time.Second
}
