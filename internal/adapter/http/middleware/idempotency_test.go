package middleware

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type fakeIdempotencyStore struct {
	mu       sync.Mutex
	values   map[string][]byte
	failWith error
	released []string
}

func newFakeIdempotencyStore() *fakeIdempotencyStore {
	return &fakeIdempotencyStore{values: map[string][]byte{}}
}

func (f *fakeIdempotencyStore) CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return false, nil, f.failWith
	}
	if v, ok := f.values[key]; ok {
		return true, v, nil
	}
	f.values[key] = []byte("processing")
	return false, nil, nil
}

func (f *fakeIdempotencyStore) Update(ctx context.Context, key string, response []byte, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[key] = response
	return nil
}

func (f *fakeIdempotencyStore) Release(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.values, key)
	f.released = append(f.released, key)
	return nil
}

func postWithKey(key string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/entries", bytes.NewBufferString(`{}`))
	req.Header.Set(IdempotencyKeyHeader, key)
	return req
}

func TestIdempotencyMiddleware_StoreErrorsFailRequest(t *testing.T) {
	var called bool
	store := newFakeIdempotencyStore()
	store.failWith = context.DeadlineExceeded
	mw := NewIdempotencyMiddleware(store, time.Minute, zerolog.Nop())

	rr := httptest.NewRecorder()
	mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})).ServeHTTP(rr, postWithKey("key-err"))

	if called {
		t.Fatalf("handler should not be called when store errors")
	}

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", rr.Code)
	}
}

func TestIdempotencyMiddleware_ReplaysSuccess(t *testing.T) {
	calls := 0
	store := newFakeIdempotencyStore()
	handler := NewIdempotencyMiddleware(store, time.Minute, zerolog.Nop()).Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"e1"}`))
	}))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, postWithKey("k1"))

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, postWithKey("k1"))

	if calls != 1 {
		t.Fatalf("expected handler to run once, ran %d times", calls)
	}
	if second.Code != http.StatusCreated || second.Body.String() != `{"id":"e1"}` {
		t.Fatalf("expected replayed 201, got %d %s", second.Code, second.Body.String())
	}
	if second.Header().Get("X-Idempotency-Replay") != "true" {
		t.Fatalf("expected replay header")
	}
}

func TestIdempotencyMiddleware_ReleasesFailedResponses(t *testing.T) {
	store := newFakeIdempotencyStore()
	mw := NewIdempotencyMiddleware(store, time.Minute, zerolog.Nop())

	rr := httptest.NewRecorder()
	mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})).ServeHTTP(rr, postWithKey("key-fail"))

	if len(store.released) != 1 || store.released[0] != "key-fail" {
		t.Fatalf("expected failed key to be released, got %v", store.released)
	}
	if _, ok := store.values["key-fail"]; ok {
		t.Fatalf("expected error responses not to be cached")
	}
}

func TestIdempotencyMiddleware_ReleasesOnPanic(t *testing.T) {
	store := newFakeIdempotencyStore()
	mw := NewIdempotencyMiddleware(store, time.Minute, zerolog.Nop())

	func() {
		defer func() {
			if recover() == nil {
				t.Fatalf("expected panic to propagate to the recovery middleware")
			}
		}()
		mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic("boom")
		})).ServeHTTP(httptest.NewRecorder(), postWithKey("key-panic"))
	}()

	if len(store.released) != 1 || store.released[0] != "key-panic" {
		t.Fatalf("expected panicking request to release its key, got %v", store.released)
	}
	if _, ok := store.values["key-panic"]; ok {
		t.Fatalf("expected key to be free for a retry")
	}
}

func TestIdempotencyMiddleware_InFlightConflict(t *testing.T) {
	store := newFakeIdempotencyStore()
	store.values["busy"] = []byte("processing")
	mw := NewIdempotencyMiddleware(store, time.Minute, zerolog.Nop())

	rr := httptest.NewRecorder()
	mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("handler must not run while key is in flight")
	})).ServeHTTP(rr, postWithKey("busy"))

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rr.Code)
	}
}

func TestIdempotencyMiddleware_SkipsReadsAndMissingKey(t *testing.T) {
	store := newFakeIdempotencyStore()
	mw := NewIdempotencyMiddleware(store, 0, zerolog.Nop())
	calls := 0
	handler := mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { calls++ }))

	get := httptest.NewRequest(http.MethodGet, "/api/entries", nil)
	get.Header.Set(IdempotencyKeyHeader, "k")
	handler.ServeHTTP(httptest.NewRecorder(), get)
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/entries", nil))

	if calls != 2 || len(store.values) != 0 {
		t.Fatalf("expected passthrough, calls=%d values=%v", calls, store.values)
	}
}
