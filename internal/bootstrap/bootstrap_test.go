package bootstrap

import (
	"context"
	"testing"

	"github.com/malandaymnhs/MALANDAYEDUTRACK-sub000/internal/config"
	"github.com/malandaymnhs/MALANDAYEDUTRACK-sub000/internal/docstore"
	"github.com/malandaymnhs/MALANDAYEDUTRACK-sub000/internal/queue"
)

func TestOpenMemoryBackends(t *testing.T) {
	b, err := Open(context.Background(), config.App{StoreBackend: "memory", QueueBackend: "memory"})
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()

	if _, ok := b.Store.(*docstore.Memory); !ok {
		t.Errorf("store = %T", b.Store)
	}
	if _, ok := b.Queue.(*queue.InMemory); !ok {
		t.Errorf("queue = %T", b.Queue)
	}
	if b.Archive != nil {
		t.Error("archive opened without a bucket")
	}
	if depth, ok := b.QueueDepth(); !ok || depth != 0 {
		t.Errorf("QueueDepth = %d, %v", depth, ok)
	}
	if checks := b.Healthy(context.Background()); len(checks) != 0 {
		t.Errorf("checks = %v", checks)
	}
}
