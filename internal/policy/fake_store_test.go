package policy

import (
	"context"
	"sync"
)

// fakeStore is an in-memory Store for unit tests; no Redis required.
type fakeStore struct {
	mu          sync.Mutex
	ipAllow     map[string]struct{}
	ipDeny      map[string]struct{}
	cidrDeny    map[string]struct{}
	countryDeny map[string]struct{}
	loadErr     error
	loadCount   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		ipAllow:     map[string]struct{}{},
		ipDeny:      map[string]struct{}{},
		cidrDeny:    map[string]struct{}{},
		countryDeny: map[string]struct{}{},
	}
}

func keys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func (f *fakeStore) LoadAll(ctx context.Context) ([]string, []string, []string, []string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loadCount++
	if f.loadErr != nil {
		return nil, nil, nil, nil, f.loadErr
	}
	return keys(f.ipAllow), keys(f.ipDeny), keys(f.cidrDeny), keys(f.countryDeny), nil
}

func (f *fakeStore) AddIP(ctx context.Context, listKey, ip string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch listKey {
	case keyIPAllow:
		f.ipAllow[ip] = struct{}{}
	case keyIPDeny:
		f.ipDeny[ip] = struct{}{}
	case keyCIDRDeny:
		f.cidrDeny[ip] = struct{}{}
	case keyCountryDeny:
		f.countryDeny[ip] = struct{}{}
	}
	return nil
}

func (f *fakeStore) RemoveIP(ctx context.Context, listKey, ip string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch listKey {
	case keyIPAllow:
		delete(f.ipAllow, ip)
	case keyIPDeny:
		delete(f.ipDeny, ip)
	case keyCIDRDeny:
		delete(f.cidrDeny, ip)
	case keyCountryDeny:
		delete(f.countryDeny, ip)
	}
	return nil
}

func (f *fakeStore) Publish(ctx context.Context, channel, payload string) error {
	return nil
}
