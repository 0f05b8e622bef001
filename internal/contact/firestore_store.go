package contact

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	pfirestore "finitefield.org/shopper-web/internal/platform/firestore"
)

const defaultRateCollection = "contact_rate_limits"

// ClientProvider hands out a shared Firestore client.
type ClientProvider interface {
	Client(ctx context.Context) (*firestore.Client, error)
}

// FirestoreStore keeps one document per key so that every instance shares the
// same windows. Increments run in a transaction.
type FirestoreStore struct {
	provider   ClientProvider
	collection string
	clock      func() time.Time
}

type rateDocument struct {
	Count   int       `firestore:"count"`
	ResetAt time.Time `firestore:"resetAt"`
}

// NewFirestoreStore returns a store writing to collection (default
// contact_rate_limits). A nil clock means time.Now.
func NewFirestoreStore(provider ClientProvider, collection string, clock func() time.Time) *FirestoreStore {
	if strings.TrimSpace(collection) == "" {
		collection = defaultRateCollection
	}
	if clock == nil {
		clock = time.Now
	}
	return &FirestoreStore{provider: provider, collection: collection, clock: clock}
}

func (s *FirestoreStore) doc(ctx context.Context, key string) (*firestore.DocumentRef, error) {
	client, err := s.provider.Client(ctx)
	if err != nil {
		return nil, err
	}
	return client.Collection(s.collection).Doc(documentID(key)), nil
}

func (s *FirestoreStore) Get(ctx context.Context, key string) (Window, bool, error) {
	ref, err := s.doc(ctx, key)
	if err != nil {
		return Window{}, false, err
	}
	snap, err := ref.Get(ctx)
	if err != nil {
		if pfirestore.IsNotFound(err) {
			return Window{}, false, nil
		}
		return Window{}, false, fmt.Errorf("contact: read rate window: %w", err)
	}
	var doc rateDocument
	if err := snap.DataTo(&doc); err != nil {
		return Window{}, false, fmt.Errorf("contact: decode rate window: %w", err)
	}
	w, ok := doc.live(s.clock())
	return w, ok, nil
}

// live returns the window unless it expired before now.
func (d rateDocument) live(now time.Time) (Window, bool) {
	if d.ResetAt.IsZero() || now.After(d.ResetAt) {
		return Window{}, false
	}
	return Window{Count: d.Count, ResetAt: d.ResetAt}, true
}

func (s *FirestoreStore) Increment(ctx context.Context, key string, now time.Time, window time.Duration) (Window, error) {
	ref, err := s.doc(ctx, key)
	if err != nil {
		return Window{}, err
	}
	client, err := s.provider.Client(ctx)
	if err != nil {
		return Window{}, err
	}
	var out Window
	err = client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc := rateDocument{}
		snap, err := tx.Get(ref)
		switch {
		case pfirestore.IsNotFound(err):
		case err != nil:
			return err
		default:
			if err := snap.DataTo(&doc); err != nil {
				return err
			}
		}
		if doc.ResetAt.IsZero() || now.After(doc.ResetAt) {
			doc = rateDocument{Count: 1, ResetAt: now.Add(window).UTC()}
		} else {
			doc.Count++
		}
		out = Window{Count: doc.Count, ResetAt: doc.ResetAt}
		return tx.Set(ref, doc)
	})
	if err != nil {
		return Window{}, fmt.Errorf("contact: increment rate window: %w", err)
	}
	return out, nil
}

func (s *FirestoreStore) Reset(ctx context.Context, key string) error {
	ref, err := s.doc(ctx, key)
	if err != nil {
		return err
	}
	if _, err := ref.Delete(ctx); err != nil && !pfirestore.IsNotFound(err) {
		return fmt.Errorf("contact: reset rate window: %w", err)
	}
	return nil
}

// documentID makes a client key safe for use as a document ID.
func documentID(key string) string {
	key = strings.ReplaceAll(key, "/", "_")
	if key == "" || key == "." || key == ".." {
		return unknownClientKey
	}
	return key
}
