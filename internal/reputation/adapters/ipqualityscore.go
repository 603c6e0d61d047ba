package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"edgegate/internal/reputation"
)

// IPQualityScore checks IP reputation against an IPQualityScore-shaped
// upstream: GET <base>/<apiKey>/<ip>?strictness=1&fast=true&allow_public_access_points=true.
// score = fraud_score. Categories are derived from recent_abuse,
// bot_status/is_crawler, and the proxy/vpn/tor flags.
type IPQualityScore struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

type ipqsResponse struct {
	FraudScore  int  `json:"fraud_score"`
	RecentAbuse bool `json:"recent_abuse"`
	BotStatus   bool `json:"bot_status"`
	IsCrawler   bool `json:"is_crawler"`
	Proxy       bool `json:"proxy"`
	VPN         bool `json:"vpn"`
	Tor         bool `json:"tor"`
}

// Name identifies the adapter in logs and metrics.
func (a *IPQualityScore) Name() string { return "ipqualityscore" }

// Check performs the upstream request and maps the response to a Result.
func (a *IPQualityScore) Check(ctx context.Context, ip string) (reputation.Result, error) {
	url := fmt.Sprintf("%s/%s/%s?strictness=1&fast=true&allow_public_access_points=true", a.BaseURL, a.APIKey, ip)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return reputation.Result{}, err
	}

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
		return reputation.Result{}, fmt.Errorf("ipqualityscore: unexpected status %d", resp.StatusCode)
	}

	var body ipqsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return reputation.Result{}, err
	}

	var categories []string
	if body.RecentAbuse {
		categories = append(categories, "abuse")
	}
	if body.BotStatus || body.IsCrawler {
		categories = append(categories, "bot")
	}
	switch {
	case body.Proxy:
		categories = append(categories, "proxy")
	case body.VPN:
		categories = append(categories, "vpn")
	case body.Tor:
		categories = append(categories, "tor")
	}

	score := body.FraudScore
	isProxy, isVpn, isTor := body.Proxy, body.VPN, body.Tor
	return reputation.Result{
		Score:      &score,
		Categories: categories,
		IsProxy:    &isProxy,
		IsVpn:      &isVpn,
		IsTor:      &isTor,
	}, nil
}
