package gcp

import (
	"context"
	"errors"
	"testing"
)

func TestNewFirestoreClientNeedsProject(t *testing.T) {
	_, err := NewFirestoreClient(context.Background(), FirestoreOptions{DatabaseID: "portal"})
	if !errors.Is(err, ErrNoProject) {
		t.Fatalf("err = %v, want ErrNoProject", err)
	}
}
