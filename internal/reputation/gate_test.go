package reputation

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeVerdictStore is an in-memory VerdictStore for unit tests.
type fakeVerdictStore struct {
	mu          sync.Mutex
	verdicts    map[string]Verdict
	locked      map[string]string
	lockAttempts int32
}

func newFakeVerdictStore() *fakeVerdictStore {
	return &fakeVerdictStore{verdicts: map[string]Verdict{}, locked: map[string]string{}}
}

func (f *fakeVerdictStore) GetVerdict(ctx context.Context, ip string) (Verdict, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.verdicts[ip], nil
}

func (f *fakeVerdictStore) SetVerdict(ctx context.Context, ip string, verdict Verdict, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verdicts[ip] = verdict
	return nil
}

func (f *fakeVerdictStore) AcquireLock(ctx context.Context, ip string, ttl time.Duration) (string, error) {
	atomic.AddInt32(&f.lockAttempts, 1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, held := f.locked[ip]; held {
		return "", nil
	}
	token := "tok-" + ip
	f.locked[ip] = token
	return token, nil
}

func (f *fakeVerdictStore) ReleaseLock(ctx context.Context, ip, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.locked[ip] == token {
		delete(f.locked, ip)
	}
	return nil
}

func TestGate_MissingIPPasses(t *testing.T) {
	gate := NewGate(newFakeVerdictStore(), NewAdapterSet(nil, time.Second, nil, nil), time.Minute, time.Second, 50, nil)
	assert.Nil(t, gate.Check(context.Background(), ""))
}

func TestGate_CacheHitAboveThresholdRejects(t *testing.T) {
	store := newFakeVerdictStore()
	store.verdicts["8.8.4.4"] = Verdict{{Score: intPtr(80)}}
	gate := NewGate(store, NewAdapterSet(nil, time.Second, nil, nil), time.Minute, time.Second, 50, nil)

	err := gate.Check(context.Background(), "8.8.4.4")
	require.NotNil(t, err)
	assert.Equal(t, "reputation_block", string(err.Code))
}

func TestGate_CacheHitBelowThresholdPasses(t *testing.T) {
	store := newFakeVerdictStore()
	store.verdicts["8.8.4.4"] = Verdict{{Score: intPtr(10)}}
	gate := NewGate(store, NewAdapterSet(nil, time.Second, nil, nil), time.Minute, time.Second, 50, nil)

	assert.Nil(t, gate.Check(context.Background(), "8.8.4.4"))
}

func TestGate_CacheMissRunsAdaptersAndCaches(t *testing.T) {
	store := newFakeVerdictStore()
	a := &fakeAdapter{name: "a", res: Result{Score: intPtr(70)}}
	gate := NewGate(store, NewAdapterSet([]Adapter{a}, time.Second, nil, nil), time.Minute, time.Second, 50, nil)

	err := gate.Check(context.Background(), "9.9.9.9")
	require.NotNil(t, err)
	assert.Equal(t, "reputation_block", string(err.Code))

	cached, _ := store.GetVerdict(context.Background(), "9.9.9.9")
	assert.Equal(t, 70, cached.MaxScore())
}

func TestGate_LockNotAcquiredPassesWithoutBlocking(t *testing.T) {
	store := newFakeVerdictStore()
	store.locked["9.9.9.9"] = "someone-else"
	gate := NewGate(store, NewAdapterSet(nil, time.Second, nil, nil), time.Minute, time.Second, 50, nil)

	assert.Nil(t, gate.Check(context.Background(), "9.9.9.9"))
}

func TestGate_SingleFlightCollapsesConcurrentMisses(t *testing.T) {
	store := newFakeVerdictStore()
	var calls int32
	a := &fakeAdapter{name: "a"}
	_ = a
	slowAdapter := &slowCountingAdapter{delay: 30 * time.Millisecond}
	gate := NewGate(store, NewAdapterSet([]Adapter{slowAdapter}, time.Second, nil, nil), time.Minute, time.Second, 50, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			gate.Check(context.Background(), "1.1.1.1")
		}()
	}
	wg.Wait()

	calls = atomic.LoadInt32(&slowAdapter.calls)
	// In-process coalescing should mean far fewer than 8 adapter fan-outs;
	// the Redis lock attempts should also collapse to roughly one winner.
	assert.LessOrEqual(t, calls, int32(2))
}

type slowCountingAdapter struct {
	delay time.Duration
	calls int32
}

func (s *slowCountingAdapter) Name() string { return "slow" }
func (s *slowCountingAdapter) Check(ctx context.Context, ip string) (Result, error) {
	atomic.AddInt32(&s.calls, 1)
	time.Sleep(s.delay)
	return Result{Score: intPtr(10)}, nil
}
