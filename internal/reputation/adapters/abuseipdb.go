// Package adapters implements two concrete reputation adapters: an
// AbuseIPDB-like provider and an IPQualityScore-like provider.
package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"edgegate/internal/reputation"
)

// AbuseIPDB checks IP reputation against an AbuseIPDB-shaped upstream:
// GET <base>/check?ipAddress=<ip>&maxAgeInDays=<n>&verbose=true with header
// Key: <apiKey>. score = abuseConfidenceScore.
type AbuseIPDB struct {
	BaseURL      string
	APIKey       string
	MaxAgeInDays int
	HTTPClient   *http.Client
}

type abuseIPDBResponse struct {
	Data struct {
		AbuseConfidenceScore int      `json:"abuseConfidenceScore"`
		LastReportedAt       *string  `json:"lastReportedAt"`
		Reports               []struct {
			Categories []int `json:"categories"`
		} `json:"reports"`
	} `json:"data"`
}

// Name identifies the adapter in logs and metrics.
func (a *AbuseIPDB) Name() string { return "abuseipdb" }

// Check performs the upstream request and maps the response to a Result.
// Any transport/HTTP/JSON error is returned to the caller for logging; the
// caller (AdapterSet) converts it to an empty Result per the adapter
// contract — Check itself never panics.
func (a *AbuseIPDB) Check(ctx context.Context, ip string) (reputation.Result, error) {
	url := fmt.Sprintf("%s/check?ipAddress=%s&maxAgeInDays=%d&verbose=true", a.BaseURL, ip, a.MaxAgeInDays)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return reputation.Result{}, err
	}
	req.Header.Set("Key", a.APIKey)
	req.Header.Set("Accept", "application/json")

	client := a.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return reputation.Result{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return reputation.Result{}, fmt.Errorf("abuseipdb: unexpected status %d", resp.StatusCode)
	}

	var body abuseIPDBResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return reputation.Result{}, err
	}

	score := body.Data.AbuseConfidenceScore
	return reputation.Result{Score: &score}, nil
}
