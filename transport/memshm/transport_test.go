// File: transport/memshm/transport_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package memshm_test

import (
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/momentics/hioload-shm/api"
	"github.com/momentics/hioload-shm/transport/memshm"
)

func newTransport(t *testing.T, cfg memshm.Config) *memshm.Transport {
	t.Helper()
	tr, err := memshm.New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = tr.Close() })
	return tr
}

func TestTransport_PublishTakeFIFO(t *testing.T) {
	tr := newTransport(t, memshm.Config{})
	topic := tr.Topic("sensors")
	ep := topic.Subscribe()
	pub := topic.NewPublisher()

	var w api.GUID
	w[0] = 1
	for i := 0; i < 10; i++ {
		err := pub.Publish(api.ChunkHeader{Writer: w, Kind: api.KindData, KeyHash: 42},
			[]byte(fmt.Sprintf("%02d", i)))
		if err != nil {
			t.Fatal(err)
		}
	}
	for i := 0; i < 10; i++ {
		c, err := ep.TakeChunk()
		if err != nil {
			t.Fatal(err)
		}
		if got := string(c.Payload()); got != fmt.Sprintf("%02d", i) {
			t.Fatalf("take %d payload = %q", i, got)
		}
		hdr := c.Header()
		if hdr.Writer != w || hdr.KeyHash != 42 || hdr.Kind != api.KindData {
			t.Fatalf("take %d header = %+v", i, hdr)
		}
		if hdr.Timestamp == 0 {
			t.Fatal("publish did not stamp the timestamp")
		}
		c.Release()
	}
	if _, err := ep.TakeChunk(); !errors.Is(err, api.ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
}

func TestTransport_ReleaseRecyclesChunks(t *testing.T) {
	tr := newTransport(t, memshm.Config{ChunkCount: 8})
	topic := tr.Topic("t")
	ep := topic.Subscribe()
	pub := topic.NewPublisher()

	free := tr.FreeChunks()
	for round := 0; round < 5; round++ {
		for i := 0; i < 8; i++ {
			if err := pub.Publish(api.ChunkHeader{}, []byte("x")); err != nil {
				t.Fatalf("round %d publish %d: %v", round, i, err)
			}
		}
		for {
			c, err := ep.TakeChunk()
			if errors.Is(err, api.ErrNoData) {
				break
			}
			if err != nil {
				t.Fatal(err)
			}
			c.Release()
		}
		if got := tr.FreeChunks(); got != free {
			t.Fatalf("round %d: free = %d, want %d", round, got, free)
		}
	}
}

func TestTransport_ArenaExhaustion(t *testing.T) {
	tr := newTransport(t, memshm.Config{ChunkCount: 2, QueueDepth: 8})
	topic := tr.Topic("t")
	ep := topic.Subscribe()
	pub := topic.NewPublisher()

	if err := pub.Publish(api.ChunkHeader{}, nil); err != nil {
		t.Fatal(err)
	}
	if err := pub.Publish(api.ChunkHeader{}, nil); err != nil {
		t.Fatal(err)
	}
	if err := pub.Publish(api.ChunkHeader{}, nil); !errors.Is(err, api.ErrResourceExhausted) {
		t.Fatalf("expected ErrResourceExhausted, got %v", err)
	}
	// Taking and releasing frees arena capacity again.
	c, err := ep.TakeChunk()
	if err != nil {
		t.Fatal(err)
	}
	c.Release()
	if err := pub.Publish(api.ChunkHeader{}, nil); err != nil {
		t.Fatalf("publish after release: %v", err)
	}
}

func TestTransport_FullQueueDropsOldest(t *testing.T) {
	tr := newTransport(t, memshm.Config{ChunkCount: 64, QueueDepth: 4})
	topic := tr.Topic("t")
	ep := topic.Subscribe()
	pub := topic.NewPublisher()

	depth := 4 // QueueDepth rounds to a power of two; 4 already is one
	total := depth + 3
	for i := 0; i < total; i++ {
		if err := pub.Publish(api.ChunkHeader{}, []byte(fmt.Sprintf("%d", i))); err != nil {
			t.Fatal(err)
		}
	}
	if got := ep.Dropped(); got != 3 {
		t.Fatalf("dropped = %d, want 3", got)
	}
	// The survivors are the newest `depth` deliveries, still in order.
	for i := total - depth; i < total; i++ {
		c, err := ep.TakeChunk()
		if err != nil {
			t.Fatal(err)
		}
		if got := string(c.Payload()); got != fmt.Sprintf("%d", i) {
			t.Fatalf("payload = %q, want %q", got, fmt.Sprintf("%d", i))
		}
		c.Release()
	}
}

func TestTransport_PayloadTooLarge(t *testing.T) {
	tr := newTransport(t, memshm.Config{ChunkPayload: 16})
	pub := tr.Topic("t").NewPublisher()
	err := pub.Publish(api.ChunkHeader{}, make([]byte, 17))
	if !errors.Is(err, api.ErrChunkTooLarge) {
		t.Fatalf("expected ErrChunkTooLarge, got %v", err)
	}
}

func TestTransport_DeliveryFiresHook(t *testing.T) {
	tr := newTransport(t, memshm.Config{})
	topic := tr.Topic("t")
	ep := topic.Subscribe()
	var edges atomic.Int64
	ep.Bind(func() { edges.Add(1) })

	pub := topic.NewPublisher()
	if err := pub.Publish(api.ChunkHeader{}, []byte("x")); err != nil {
		t.Fatal(err)
	}
	if edges.Load() != 1 {
		t.Fatalf("edges = %d, want 1", edges.Load())
	}
}

func TestTransport_FanoutSharesOneChunk(t *testing.T) {
	tr := newTransport(t, memshm.Config{ChunkCount: 4})
	topic := tr.Topic("t")
	a := topic.Subscribe()
	b := topic.Subscribe()
	pub := topic.NewPublisher()

	free := tr.FreeChunks()
	if err := pub.Publish(api.ChunkHeader{}, []byte("shared")); err != nil {
		t.Fatal(err)
	}
	if got := tr.FreeChunks(); got != free-1 {
		t.Fatalf("fanout consumed %d chunks, want 1", free-got)
	}
	ca, err := a.TakeChunk()
	if err != nil {
		t.Fatal(err)
	}
	cb, err := b.TakeChunk()
	if err != nil {
		t.Fatal(err)
	}
	ca.Release()
	if got := tr.FreeChunks(); got != free-1 {
		t.Fatal("chunk recycled while a reference was still held")
	}
	cb.Release()
	if got := tr.FreeChunks(); got != free {
		t.Fatalf("free = %d after all releases, want %d", got, free)
	}
}

func TestTransport_UnsubscribeReleasesQueued(t *testing.T) {
	tr := newTransport(t, memshm.Config{ChunkCount: 4})
	topic := tr.Topic("t")
	ep := topic.Subscribe()
	pub := topic.NewPublisher()

	free := tr.FreeChunks()
	for i := 0; i < 3; i++ {
		if err := pub.Publish(api.ChunkHeader{}, []byte("x")); err != nil {
			t.Fatal(err)
		}
	}
	topic.Unsubscribe(ep)
	if got := tr.FreeChunks(); got != free {
		t.Fatalf("free = %d after unsubscribe, want %d", got, free)
	}
}

func TestTransport_NoDeliveryAfterUnsubscribe(t *testing.T) {
	tr := newTransport(t, memshm.Config{ChunkCount: 4})
	topic := tr.Topic("t")
	ep := topic.Subscribe()
	topic.Unsubscribe(ep)

	pub := topic.NewPublisher()
	free := tr.FreeChunks()
	if err := pub.Publish(api.ChunkHeader{}, []byte("x")); err != nil {
		t.Fatal(err)
	}
	if got := tr.FreeChunks(); got != free {
		t.Fatalf("free = %d, want %d: publish leaked into a detached endpoint", got, free)
	}
	if _, err := ep.TakeChunk(); !errors.Is(err, api.ErrNoData) {
		t.Fatalf("detached endpoint received a delivery: %v", err)
	}
}

// Publishing races subscribe/unsubscribe churn; afterwards every loaned
// chunk must have flowed back to the arena.
func TestTransport_UnsubscribeDuringPublish(t *testing.T) {
	const chunks = 64
	tr := newTransport(t, memshm.Config{ChunkCount: chunks, ChunkPayload: 16, QueueDepth: 8})
	topic := tr.Topic("t")
	pub := topic.NewPublisher()

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-stop:
				return
			default:
			}
			// Arena exhaustion is expected here; churn below frees chunks.
			_ = pub.Publish(api.ChunkHeader{}, []byte("x"))
		}
	}()

	for i := 0; i < 500; i++ {
		ep := topic.Subscribe()
		if i%2 == 0 {
			if c, err := ep.TakeChunk(); err == nil {
				c.Release()
			}
		}
		topic.Unsubscribe(ep)
	}
	close(stop)
	<-done

	deadline := time.Now().Add(2 * time.Second)
	for tr.FreeChunks() != chunks && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if got := tr.FreeChunks(); got != chunks {
		t.Fatalf("free = %d after churn, want %d", got, chunks)
	}
}
