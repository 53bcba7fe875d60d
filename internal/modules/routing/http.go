// README: Shared HTTP plumbing for JSON routing upstreams.
package routing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

type httpUpstream struct {
	baseURL   string
	userAgent string
	http      *http.Client
}

func (u httpUpstream) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if u.userAgent != "" {
		req.Header.Set("User-Agent", u.userAgent)
	}
	resp, err := u.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return ErrRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%w: %d %s", ErrUpstreamStatus, resp.StatusCode, string(b))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
