package app

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/Nopitch/Bridge-webhook-tot-discord/internal/domain"
)

func TestIngestionQueue_Capacity(t *testing.T) {
	q := NewIngestionQueue(500)

	for i := 0; i < 500; i++ {
		if _, err := q.Enqueue(domain.RawEvent{}, fmt.Sprintf("m%d", i)); err != nil {
			t.Fatalf("Enqueue(%d) = %v, want nil", i, err)
		}
	}

	_, err := q.Enqueue(domain.RawEvent{}, "overflow")
	if !errors.Is(err, domain.ErrQueueFull) {
		t.Fatalf("Enqueue(501st) = %v, want ErrQueueFull", err)
	}
	if q.Len() != 500 {
		t.Errorf("Len() = %d, want 500", q.Len())
	}

	// The rejected event must not disturb existing entries.
	first := q.Drain(1)
	if len(first) != 1 || first[0].Text != "m0" || first[0].Seq != 1 {
		t.Errorf("Drain(1) = %+v, want m0 with seq 1", first)
	}
}

func TestIngestionQueue_DrainOrder(t *testing.T) {
	q := NewIngestionQueue(10)
	for i := 0; i < 5; i++ {
		_, _ = q.Enqueue(domain.RawEvent{Channel: "Global"}, fmt.Sprintf("m%d", i))
	}

	got := q.Drain(3)
	if len(got) != 3 {
		t.Fatalf("Drain(3) returned %d messages", len(got))
	}
	for i, m := range got {
		if m.Text != fmt.Sprintf("m%d", i) || m.Seq != uint64(i+1) || m.Channel != "Global" {
			t.Errorf("message %d = %+v", i, m)
		}
	}

	rest := q.Drain(10)
	if len(rest) != 2 || rest[0].Text != "m3" || rest[1].Text != "m4" {
		t.Errorf("Drain(10) = %+v, want m3, m4", rest)
	}
	if q.Drain(10) != nil {
		t.Error("Drain on empty queue returned messages")
	}
	if q.Drain(0) != nil {
		t.Error("Drain(0) returned messages")
	}
}

func TestIngestionQueue_SeqOnlyOnSuccess(t *testing.T) {
	q := NewIngestionQueue(1)

	_, _ = q.Enqueue(domain.RawEvent{}, "a")
	_, _ = q.Enqueue(domain.RawEvent{}, "rejected")
	q.Drain(1)

	m, err := q.Enqueue(domain.RawEvent{}, "b")
	if err != nil {
		t.Fatal(err)
	}
	if m.Seq != 2 {
		t.Errorf("Seq = %d, want 2", m.Seq)
	}
}

func TestIngestionQueue_ConcurrentProducers(t *testing.T) {
	const producers, perProducer = 8, 100
	q := NewIngestionQueue(producers * perProducer)

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				if _, err := q.Enqueue(domain.RawEvent{}, "x"); err != nil {
					t.Error(err)
					return
				}
			}
		}()
	}
	wg.Wait()

	msgs := q.Drain(producers * perProducer)
	if len(msgs) != producers*perProducer {
		t.Fatalf("drained %d messages, want %d", len(msgs), producers*perProducer)
	}
	for i, m := range msgs {
		if m.Seq != uint64(i+1) {
			t.Fatalf("message %d has seq %d, sequence must be dense and ordered", i, m.Seq)
		}
	}
}

func TestIngestionQueue_AdmitHook(t *testing.T) {
	admitted := 0
	var q *IngestionQueue
	q = NewIngestionQueue(2, WithAdmitHook(func() {
		// Runs under the queue lock: the message is already in place.
		admitted++
		if len(q.items) != admitted {
			t.Errorf("hook saw %d items, want %d", len(q.items), admitted)
		}
	}))

	_, _ = q.Enqueue(domain.RawEvent{}, "a")
	_, _ = q.Enqueue(domain.RawEvent{}, "b")
	if _, err := q.Enqueue(domain.RawEvent{}, "c"); !errors.Is(err, domain.ErrQueueFull) {
		t.Fatalf("Enqueue(c) = %v, want ErrQueueFull", err)
	}
	if admitted != 2 {
		t.Errorf("hook called %d times, want 2 (rejections are not admissions)", admitted)
	}
}
