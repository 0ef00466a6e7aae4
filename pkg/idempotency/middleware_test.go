package idempotency

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

type claimerFake struct {
	claimed map[string]bool
	seenErr error
}

func newClaimerFake() *claimerFake {
	return &claimerFake{claimed: map[string]bool{}}
}

func (f *claimerFake) Key(scope, key string) string { return scope + ":" + key }

func (f *claimerFake) Seen(_ context.Context, key string) (bool, error) {
	if f.seenErr != nil {
		return false, f.seenErr
	}
	if f.claimed[key] {
		return true, nil
	}
	f.claimed[key] = true
	return false, nil
}

func (f *claimerFake) Release(_ context.Context, key string) error {
	delete(f.claimed, key)
	return nil
}

func run(t *testing.T, claimer Claimer, handlerStatus int, key string) *httptest.ResponseRecorder {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := Middleware(log, claimer, "orders")(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(handlerStatus)
	}))

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	if key != "" {
		req.Header.Set(HeaderKey, key)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestMiddlewarePassesWithoutHeader(t *testing.T) {
	claimer := newClaimerFake()
	rr := run(t, claimer, http.StatusCreated, "")
	if rr.Code != http.StatusCreated {
		t.Fatalf("status: want 201, got %d", rr.Code)
	}
	if len(claimer.claimed) != 0 {
		t.Fatal("no key may be claimed without the header")
	}
}

func TestMiddlewareRejectsDuplicateAfterSuccess(t *testing.T) {
	claimer := newClaimerFake()

	if rr := run(t, claimer, http.StatusCreated, "k1"); rr.Code != http.StatusCreated {
		t.Fatalf("first request: want 201, got %d", rr.Code)
	}
	rr := run(t, claimer, http.StatusCreated, "k1")
	if rr.Code != http.StatusConflict {
		t.Fatalf("replay: want 409, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content type: got %q", ct)
	}
}

func TestMiddlewareFreesKeyOnHandlerFailure(t *testing.T) {
	claimer := newClaimerFake()

	// Placement fails (e.g. insufficient stock). The key must not be burned:
	// the same client retrying the same key gets through.
	if rr := run(t, claimer, http.StatusConflict, "k1"); rr.Code != http.StatusConflict {
		t.Fatalf("failed placement: want 409, got %d", rr.Code)
	}
	if rr := run(t, claimer, http.StatusCreated, "k1"); rr.Code != http.StatusCreated {
		t.Fatalf("retry after failure: want 201, got %d", rr.Code)
	}
	if rr := run(t, claimer, http.StatusCreated, "k1"); rr.Code != http.StatusConflict {
		t.Fatalf("replay after success: want 409, got %d", rr.Code)
	}
}

func TestMiddlewareStoreError(t *testing.T) {
	claimer := newClaimerFake()
	claimer.seenErr = errors.New("redis down")

	rr := run(t, claimer, http.StatusCreated, "k1")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status: want 503, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content type: got %q", ct)
	}
}
