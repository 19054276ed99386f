package queue

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestInMemoryPublishConsume(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := NewInMemory(4)
	if err := q.Publish(ctx, Message{Type: "activity", Body: []byte(`{"a":1}`)}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	msgs, err := q.Consume(ctx)
	if err != nil {
		t.Fatalf("Consume: %v", err)
	}
	select {
	case m := <-msgs:
		if m.Type != "activity" || string(m.Body) != `{"a":1}` {
			t.Errorf("got %+v", m)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
	}

	cancel()
	select {
	case _, ok := <-msgs:
		if ok {
			t.Error("expected closed channel after cancel")
		}
	case <-time.After(time.Second):
		t.Fatal("consumer did not stop")
	}
}

func TestInMemoryFull(t *testing.T) {
	q := NewInMemory(1)
	ctx := context.Background()
	if err := q.Publish(ctx, Message{Type: "a"}); err != nil {
		t.Fatal(err)
	}
	if err := q.Publish(ctx, Message{Type: "b"}); !errors.Is(err, ErrFull) {
		t.Fatalf("second publish: got %v, want ErrFull", err)
	}
	if q.Len() != 1 {
		t.Errorf("Len = %d", q.Len())
	}
}

func TestInMemoryCancelledPublish(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := NewInMemory(1).Publish(ctx, Message{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v", err)
	}
}
