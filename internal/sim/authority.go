package sim

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// WarStatusAuthority reads territory ownership from the realm-war
// status feed: a JSON object mapping territory ID to owning realm.
type WarStatusAuthority struct {
	url    string
	client *http.Client
}

func NewWarStatusAuthority(url string) *WarStatusAuthority {
	return &WarStatusAuthority{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (a *WarStatusAuthority) Ownership(ctx context.Context) (map[int64]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("war status fetch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("war status fetch: HTTP %d", resp.StatusCode)
	}

	var raw map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("war status decode: %w", err)
	}
	out := make(map[int64]string, len(raw))
	for k, realm := range raw {
		id, err := strconv.ParseInt(k, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("war status decode: bad territory id %q", k)
		}
		out[id] = realm
	}
	return out, nil
}
