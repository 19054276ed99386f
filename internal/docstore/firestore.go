package docstore

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Firestore is the Store backed by Cloud Firestore.
type Firestore struct {
	client *firestore.Client
}

// NewFirestore wraps an existing client. The caller owns its lifecycle.
func NewFirestore(client *firestore.Client) *Firestore {
	return &Firestore{client: client}
}

func wrapFirestoreErr(op, collection, id string, err error) error {
	switch status.Code(err) {
	case codes.NotFound:
		return fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	case codes.AlreadyExists:
		return fmt.Errorf("%s/%s: %w", collection, id, ErrAlreadyExists)
	}
	return fmt.Errorf("firestore %s %s/%s: %w", op, collection, id, err)
}

func (f *Firestore) Get(ctx context.Context, collection, id string) (Doc, error) {
	ref := f.client.Collection(collection).Doc(id)
	if ref == nil {
		// Ids that are not a single path segment cannot exist.
		return nil, fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	snap, err := ref.Get(ctx)
	if err != nil {
		return nil, wrapFirestoreErr("get", collection, id, err)
	}
	return snap.Data(), nil
}

func (f *Firestore) Create(ctx context.Context, collection, id string, data Doc) (string, error) {
	data, err := normalizeDoc(data)
	if err != nil {
		return "", err
	}
	col := f.client.Collection(collection)
	var ref *firestore.DocumentRef
	if id == "" {
		ref = col.NewDoc()
	} else {
		ref = col.Doc(id)
	}
	if _, err := ref.Create(ctx, data); err != nil {
		return "", wrapFirestoreErr("create", collection, ref.ID, err)
	}
	return ref.ID, nil
}

func (f *Firestore) Set(ctx context.Context, collection, id string, data Doc) error {
	data, err := normalizeDoc(data)
	if err != nil {
		return err
	}
	if _, err := f.client.Collection(collection).Doc(id).Set(ctx, data); err != nil {
		return wrapFirestoreErr("set", collection, id, err)
	}
	return nil
}

func (f *Firestore) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	patch, err := normalizeDoc(fields)
	if err != nil {
		return err
	}
	updates := make([]firestore.Update, 0, len(patch))
	for path, v := range patch {
		if !ValidField(path) {
			return fmt.Errorf("%w: %q", ErrInvalidField, path)
		}
		updates = append(updates, firestore.Update{Path: path, Value: v})
	}
	if _, err := f.client.Collection(collection).Doc(id).Update(ctx, updates); err != nil {
		return wrapFirestoreErr("update", collection, id, err)
	}
	return nil
}

func (f *Firestore) Delete(ctx context.Context, collection, id string) error {
	if _, err := f.client.Collection(collection).Doc(id).Delete(ctx); err != nil {
		return wrapFirestoreErr("delete", collection, id, err)
	}
	return nil
}

func (f *Firestore) Query(ctx context.Context, collection string, q Query) ([]Snapshot, error) {
	if err := validateQuery(q); err != nil {
		return nil, err
	}
	fq := f.client.Collection(collection).Query
	for _, flt := range q.Filters {
		fq = fq.Where(flt.Field, string(flt.Op), normalizeValue(flt.Value))
	}
	if q.OrderBy != "" {
		dir := firestore.Asc
		if q.Desc {
			dir = firestore.Desc
		}
		fq = fq.OrderBy(q.OrderBy, dir)
	}
	if q.Limit > 0 {
		fq = fq.Limit(q.Limit)
	}
	docs, err := fq.Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("firestore query %s: %w", collection, err)
	}
	return toSnapshots(docs), nil
}

func (f *Firestore) All(ctx context.Context, collection string) ([]Snapshot, error) {
	docs, err := f.client.Collection(collection).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("firestore scan %s: %w", collection, err)
	}
	return toSnapshots(docs), nil
}

func toSnapshots(docs []*firestore.DocumentSnapshot) []Snapshot {
	out := make([]Snapshot, 0, len(docs))
	for _, d := range docs {
		out = append(out, Snapshot{ID: d.Ref.ID, Data: d.Data()})
	}
	return out
}
