package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/liveboard-dev/liveboard/pkg/document"
)

func TestPoller_FetchReplacesSnapshot(t *testing.T) {
	var serve atomic.Value
	serve.Store(`{"rows":[{"name":"a"}]}`)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(serve.Load().(string)))
	}))
	defer ts.Close()

	store := document.NewStore()
	p := NewPoller(ts.URL, store)

	if err := p.Fetch(context.Background()); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if string(store.Document()) != `{"rows":[{"name":"a"}]}` {
		t.Fatalf("document=%s", store.Document())
	}

	serve.Store(`["replaced"]`)
	if err := p.Fetch(context.Background()); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if string(store.Document()) != `["replaced"]` {
		t.Fatalf("document=%s, want wholesale replacement", store.Document())
	}
}

func TestPoller_FailuresKeepPreviousSnapshot(t *testing.T) {
	var status atomic.Int32
	status.Store(200)
	var body atomic.Value
	body.Store(`{"ok":true}`)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		code := int(status.Load())
		w.WriteHeader(code)
		if code == 200 {
			w.Write([]byte(body.Load().(string)))
		}
	}))
	defer ts.Close()

	store := document.NewStore()
	p := NewPoller(ts.URL, store)

	if err := p.Fetch(context.Background()); err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	status.Store(500)
	if err := p.Fetch(context.Background()); err == nil {
		t.Fatal("Fetch on 500 error=nil, want non-nil")
	}
	if string(store.Document()) != `{"ok":true}` {
		t.Fatalf("document=%s, want previous snapshot retained", store.Document())
	}

	status.Store(200)
	body.Store(`not json`)
	if err := p.Fetch(context.Background()); err == nil {
		t.Fatal("Fetch of invalid JSON error=nil, want non-nil")
	}
	if string(store.Document()) != `{"ok":true}` {
		t.Fatalf("document=%s, want previous snapshot retained", store.Document())
	}
}

func TestPoller_RunPollsUntilCancelled(t *testing.T) {
	var hits atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.Write([]byte(`{"n":1}`))
	}))
	defer ts.Close()

	store := document.NewStore()
	p := NewPoller(ts.URL, store, WithInterval(20*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && hits.Load() < 3 {
		time.Sleep(10 * time.Millisecond)
	}
	if hits.Load() < 3 {
		t.Fatalf("hits=%d, want repeated polling", hits.Load())
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop on cancellation")
	}
}
