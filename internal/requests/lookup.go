package requests

import (
	"context"
	"errors"

	"github.com/malandaymnhs/MALANDAYEDUTRACK-sub000/internal/docstore"
)

// Lookup finds stored requests for the QR normalizer's backfill.
type Lookup struct {
	store      docstore.Store
	legacyScan bool
}

// NewLookup creates a lookup. legacyScan enables the full collection scan
// for requests written before the itemRequestIds index existed.
func NewLookup(store docstore.Store, legacyScan bool) *Lookup {
	return &Lookup{store: store, legacyScan: legacyScan}
}

// ByRequestID matches the document id first, then a top-level requestId field.
func (l *Lookup) ByRequestID(ctx context.Context, requestID string) (map[string]any, error) {
	doc, err := l.store.Get(ctx, docstore.Requests, requestID)
	if err == nil {
		return doc, nil
	}
	if !errors.Is(err, docstore.ErrNotFound) {
		return nil, err
	}
	snaps, err := l.store.Query(ctx, docstore.Requests, docstore.Query{Limit: 1}.
		Where("requestId", docstore.Eq, requestID))
	if err != nil {
		return nil, err
	}
	if len(snaps) == 0 {
		return nil, nil
	}
	return snaps[0].Data, nil
}

// ScanByItemRequestID finds the request owning an item correlation key.
func (l *Lookup) ScanByItemRequestID(ctx context.Context, requestID string) (map[string]any, error) {
	snaps, err := l.store.Query(ctx, docstore.Requests, docstore.Query{Limit: 1}.
		Where("itemRequestIds", docstore.ArrayContains, requestID))
	if err != nil {
		return nil, err
	}
	if len(snaps) > 0 {
		return snaps[0].Data, nil
	}
	if !l.legacyScan {
		return nil, nil
	}

	// Legacy requests carry the key only inside documents[].
	all, err := l.store.All(ctx, docstore.Requests)
	if err != nil {
		return nil, err
	}
	for _, snap := range all {
		items, _ := snap.Data["documents"].([]any)
		for _, it := range items {
			item, ok := it.(map[string]any)
			if !ok {
				continue
			}
			if id, _ := item["requestId"].(string); id == requestID {
				return snap.Data, nil
			}
		}
	}
	return nil, nil
}
