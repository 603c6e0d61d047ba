package policy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGate_MissingIPRejects400(t *testing.T) {
	cache := NewCache(newFakeStore(), nil, nil)
	gate := NewGate(cache, nil)
	err := gate.Check(context.Background(), "")
	require.NotNil(t, err)
	assert.Equal(t, "invalid_client", string(err.Code))
}

func TestGate_InternalTrafficPasses(t *testing.T) {
	cache := NewCache(newFakeStore(), nil, nil)
	gate := NewGate(cache, nil)
	assert.Nil(t, gate.Check(context.Background(), "10.0.0.5"))
	assert.Nil(t, gate.Check(context.Background(), "127.0.0.1"))
}

func TestGate_AllowlistDominatesOverDenylist(t *testing.T) {
	store := newFakeStore()
	store.ipAllow["1.1.1.1"] = struct{}{}
	store.ipDeny["1.1.1.1"] = struct{}{}
	cache := NewCache(store, nil, nil)
	require.NoError(t, cache.Bootstrap(context.Background()))

	gate := NewGate(cache, nil)
	assert.Nil(t, gate.Check(context.Background(), "1.1.1.1"))
}

func TestGate_DenylistHitRejects403(t *testing.T) {
	store := newFakeStore()
	store.ipDeny["5.5.5.5"] = struct{}{}
	cache := NewCache(store, nil, nil)
	require.NoError(t, cache.Bootstrap(context.Background()))

	gate := NewGate(cache, nil)
	err := gate.Check(context.Background(), "5.5.5.5")
	require.NotNil(t, err)
	assert.Equal(t, "policy_block", string(err.Code))
}

func TestGate_CIDRDenylistHitRejects403(t *testing.T) {
	store := newFakeStore()
	store.cidrDeny["45.0.0.0/8"] = struct{}{}
	cache := NewCache(store, nil, nil)
	require.NoError(t, cache.Bootstrap(context.Background()))

	gate := NewGate(cache, nil)
	// Non-private address inside the denylisted range.
	err := gate.Check(context.Background(), "45.0.5.7")
	require.NotNil(t, err)
	assert.Equal(t, "policy_block", string(err.Code))
}

func TestGate_CountryBlockRejects403(t *testing.T) {
	store := newFakeStore()
	store.countryDeny["RU"] = struct{}{}
	cache := NewCache(store, nil, nil)
	require.NoError(t, cache.Bootstrap(context.Background()))

	lookup := func(ctx context.Context, ip string) (*GeoResult, error) {
		return &GeoResult{Country: "ru"}, nil
	}
	gate := NewGate(cache, lookup)
	err := gate.Check(context.Background(), "203.0.113.9")
	require.NotNil(t, err)
	assert.Equal(t, "policy_block", string(err.Code))
}

func TestGate_LookupFailureIsNonFatal(t *testing.T) {
	store := newFakeStore()
	store.countryDeny["RU"] = struct{}{}
	cache := NewCache(store, nil, nil)
	require.NoError(t, cache.Bootstrap(context.Background()))

	lookup := func(ctx context.Context, ip string) (*GeoResult, error) {
		return nil, assertErr
	}
	gate := NewGate(cache, lookup)
	assert.Nil(t, gate.Check(context.Background(), "203.0.113.9"))
}

var assertErr = errTest{}

type errTest struct{}

func (errTest) Error() string { return "lookup failed" }

func TestCountryNormalization(t *testing.T) {
	store := newFakeStore()
	store.countryDeny["us"] = struct{}{}
	cache := NewCache(store, nil, nil)
	require.NoError(t, cache.Bootstrap(context.Background()))

	assert.True(t, cache.IsCountryBlocked("us"))
	assert.True(t, cache.IsCountryBlocked("US"))
}
