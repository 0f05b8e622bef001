package cms

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	pfirestore "finitefield.org/shopper-web/internal/platform/firestore"
)

// ClientProvider hands out a shared Firestore client.
type ClientProvider interface {
	Client(ctx context.Context) (*firestore.Client, error)
}

// FirestoreSource keeps one Firestore collection per content collection with the
// document ID as the record ID. An optional prefix namespaces the collections.
type FirestoreSource struct {
	provider ClientProvider
	prefix   string
}

// NewFirestoreSource returns a source backed by provider.
func NewFirestoreSource(provider ClientProvider, prefix string) *FirestoreSource {
	return &FirestoreSource{provider: provider, prefix: prefix}
}

func (s *FirestoreSource) Name() string { return "firestore" }

func (s *FirestoreSource) collection(name string) string {
	return s.prefix + name
}

func (s *FirestoreSource) Get(ctx context.Context, collection, id string) (SourceRecord, error) {
	id = sanitizeSlug(id)
	if id == "" {
		return SourceRecord{}, ErrNotFound
	}
	client, err := s.provider.Client(ctx)
	if err != nil {
		return SourceRecord{}, err
	}
	snap, err := client.Collection(s.collection(collection)).Doc(id).Get(ctx)
	if err != nil {
		if pfirestore.IsNotFound(err) {
			return SourceRecord{}, ErrNotFound
		}
		return SourceRecord{}, fmt.Errorf("cms: firestore get %s/%s: %w", collection, id, err)
	}
	return snapshotRecord(snap), nil
}

func (s *FirestoreSource) List(ctx context.Context, collection string) ([]SourceRecord, error) {
	client, err := s.provider.Client(ctx)
	if err != nil {
		return nil, err
	}
	iter := client.Collection(s.collection(collection)).Documents(ctx)
	defer iter.Stop()

	var out []SourceRecord
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("cms: firestore list %s: %w", collection, err)
		}
		out = append(out, snapshotRecord(snap))
	}
	return out, nil
}

func snapshotRecord(snap *firestore.DocumentSnapshot) SourceRecord {
	data := snap.Data()
	if data == nil {
		data = map[string]any{}
	}
	return SourceRecord{
		ID:     snap.Ref.ID,
		Path:   "firestore://" + snap.Ref.Path,
		Record: Record(data),
	}
}
