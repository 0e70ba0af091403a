package firestore

import (
	"context"
	"fmt"
	"sort"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/PabloGalante/csr-lab/internal/domain"
)

// seqField orders documents by insertion; Firestore has no natural order.
const seqField = "_seq"

type Store struct {
	client *firestore.Client
	now    func() time.Time
}

// NewStore creates a Firestore document store.
// Uses the project passed (CSRLAB_GCP_PROJECT).
func NewStore(ctx context.Context, projectID string) (*Store, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID is required for Firestore store")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}

	return &Store{client: client, now: time.Now}, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

// ─────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────

// query pushes non-nil equalities to Firestore. Nil equalities come back as a
// residual filter applied in memory, because "== null" does not match a
// missing field.
func (s *Store) query(collection string, filter domain.Filter) (firestore.Query, domain.Filter, error) {
	f, err := filter.Normalize()
	if err != nil {
		return firestore.Query{}, nil, err
	}

	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	q := s.client.Collection(collection).Query
	residual := domain.Filter{}
	for _, k := range keys {
		if f[k] == nil {
			residual[k] = nil
			continue
		}
		q = q.Where(k, "==", f[k])
	}
	return q, residual, nil
}

func collect(iter *firestore.DocumentIterator) ([]*firestore.DocumentSnapshot, error) {
	defer iter.Stop()

	var snaps []*firestore.DocumentSnapshot
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, snap)
	}

	sort.SliceStable(snaps, func(i, j int) bool {
		return seqOf(snaps[i]) < seqOf(snaps[j])
	})
	return snaps, nil
}

func seqOf(snap *firestore.DocumentSnapshot) int64 {
	v, err := snap.DataAt(seqField)
	if err != nil {
		return 0
	}
	n, _ := v.(int64)
	return n
}

func toDocument(snap *firestore.DocumentSnapshot) (domain.Document, error) {
	data := snap.Data()
	delete(data, seqField)
	return domain.Document(data).Normalize()
}

// ─────────────────────────────────────────
// DocumentStore implementation
// ─────────────────────────────────────────

func (s *Store) Insert(ctx context.Context, collection string, doc domain.Document) (string, error) {
	norm, err := doc.Normalize()
	if err != nil {
		return "", err
	}
	data := map[string]interface{}(norm)
	if data == nil {
		data = map[string]interface{}{}
	}
	data[seqField] = s.now().UnixNano()

	ref, _, err := s.client.Collection(collection).Add(ctx, data)
	if err != nil {
		return "", fmt.Errorf("firestore Insert: %w", err)
	}
	return ref.ID, nil
}

func (s *Store) FindOne(ctx context.Context, collection string, filter domain.Filter) (domain.Document, error) {
	docs, err := s.Find(ctx, collection, filter)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, domain.ErrNotFound
	}
	return docs[0], nil
}

func (s *Store) Find(ctx context.Context, collection string, filter domain.Filter) ([]domain.Document, error) {
	q, residual, err := s.query(collection, filter)
	if err != nil {
		return nil, err
	}

	snaps, err := collect(q.Documents(ctx))
	if err != nil {
		return nil, fmt.Errorf("firestore Find: %w", err)
	}

	out := make([]domain.Document, 0, len(snaps))
	for _, snap := range snaps {
		doc, err := toDocument(snap)
		if err != nil {
			return nil, fmt.Errorf("firestore Find decode: %w", err)
		}
		if residual.Matches(doc) {
			out = append(out, doc)
		}
	}
	return out, nil
}

// UpdateOne runs inside a transaction so the read-match-write is atomic.
func (s *Store) UpdateOne(ctx context.Context, collection string, filter domain.Filter, updates domain.Document) (int, error) {
	q, residual, err := s.query(collection, filter)
	if err != nil {
		return 0, err
	}
	set, err := updates.Normalize()
	if err != nil {
		return 0, err
	}

	matched := 0
	err = s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		matched = 0

		snaps, err := collect(tx.Documents(q))
		if err != nil {
			return err
		}
		var target *firestore.DocumentRef
		for _, snap := range snaps {
			doc, err := toDocument(snap)
			if err != nil {
				return err
			}
			if residual.Matches(doc) {
				target = snap.Ref
				break
			}
		}
		if target == nil {
			return nil
		}

		fields := make([]firestore.Update, 0, len(set))
		for k, v := range set {
			fields = append(fields, firestore.Update{Path: k, Value: v})
		}
		if err := tx.Update(target, fields); err != nil {
			return err
		}
		matched = 1
		return nil
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return 0, nil
		}
		return 0, fmt.Errorf("firestore UpdateOne: %w", err)
	}
	return matched, nil
}

func (s *Store) Count(ctx context.Context, collection string, filter domain.Filter) (int, error) {
	docs, err := s.Find(ctx, collection, filter)
	if err != nil {
		return 0, err
	}
	return len(docs), nil
}
