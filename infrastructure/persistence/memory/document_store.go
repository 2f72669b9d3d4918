// Package memory provides an in-process DocumentStore used by tests and
// local development. It honors the full contract: full-snapshot replace
// subscriptions, atomic batches, and synchronous unsubscribe.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"canopy-backend/application/ports"
)

const snapshotBuffer = 64

// DocumentStore is an in-memory keyed-document store
type DocumentStore struct {
	mu          sync.Mutex
	collections map[string]map[string]map[string]interface{}
	subs        map[string][]*subscription
	failures    map[string]error
}

// NewDocumentStore creates an empty in-memory store
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		collections: make(map[string]map[string]map[string]interface{}),
		subs:        make(map[string][]*subscription),
		failures:    make(map[string]error),
	}
}

// SetError makes the named operation fail with err until cleared with a nil
// err. Used by tests to exercise remote failure paths.
func (s *DocumentStore) SetError(operation string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, operation)
		return
	}
	s.failures[operation] = err
}

// List returns every document in the collection
func (s *DocumentStore) List(ctx context.Context, c ports.Collection) ([]ports.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.failures["List"]; err != nil {
		return nil, err
	}

	coll := s.collections[collKey(c)]
	docs := make([]ports.Document, 0, len(coll))
	for id, fields := range coll {
		docs = append(docs, ports.Document{ID: id, Fields: copyFields(fields)})
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}

// Subscribe opens a live snapshot stream for one scope. The current snapshot
// is delivered immediately.
func (s *DocumentStore) Subscribe(ctx context.Context, c ports.Collection, q ports.Query) (ports.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.failures["Subscribe"]; err != nil {
		return nil, err
	}

	key := collKey(c)
	sub := &subscription{
		store: s,
		key:   key,
		query: q,
		ch:    make(chan []ports.Document, snapshotBuffer),
	}
	s.subs[key] = append(s.subs[key], sub)
	sub.send(s.scopedSnapshotLocked(key, q))
	return sub, nil
}

// CreateOne stores a new document under a generated id
func (s *DocumentStore) CreateOne(ctx context.Context, c ports.Collection, fields map[string]interface{}) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.failures["CreateOne"]; err != nil {
		return "", err
	}

	key := collKey(c)
	if s.collections[key] == nil {
		s.collections[key] = make(map[string]map[string]interface{})
	}
	id := uuid.New().String()
	s.collections[key][id] = copyFields(fields)
	s.notifyLocked(key)
	return id, nil
}

// WriteOne applies a partial field update, creating the document if absent
func (s *DocumentStore) WriteOne(ctx context.Context, c ports.Collection, id string, fields map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.failures["WriteOne"]; err != nil {
		return err
	}

	key := collKey(c)
	if s.collections[key] == nil {
		s.collections[key] = make(map[string]map[string]interface{})
	}
	doc := s.collections[key][id]
	if doc == nil {
		doc = make(map[string]interface{})
		s.collections[key][id] = doc
	}
	for k, v := range fields {
		doc[k] = v
	}
	s.notifyLocked(key)
	return nil
}

// WriteBatch applies all operations atomically under one lock acquisition;
// subscribers observe either none or all of them
func (s *DocumentStore) WriteBatch(ctx context.Context, c ports.Collection, ops []ports.WriteOp) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.failures["WriteBatch"]; err != nil {
		return err
	}

	key := collKey(c)
	if s.collections[key] == nil {
		s.collections[key] = make(map[string]map[string]interface{})
	}
	for _, op := range ops {
		doc := s.collections[key][op.ID]
		if doc == nil {
			doc = make(map[string]interface{})
			s.collections[key][op.ID] = doc
		}
		for k, v := range op.Fields {
			doc[k] = v
		}
	}
	s.notifyLocked(key)
	return nil
}

// DeleteOne removes a document; deleting an absent document is a no-op
func (s *DocumentStore) DeleteOne(ctx context.Context, c ports.Collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.failures["DeleteOne"]; err != nil {
		return err
	}

	key := collKey(c)
	delete(s.collections[key], id)
	s.notifyLocked(key)
	return nil
}

// Get returns one document, for test assertions
func (s *DocumentStore) Get(c ports.Collection, id string) (ports.Document, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fields, ok := s.collections[collKey(c)][id]
	if !ok {
		return ports.Document{}, false
	}
	return ports.Document{ID: id, Fields: copyFields(fields)}, true
}

// notifyLocked re-emits the full scoped list to every subscriber of the
// collection after any change
func (s *DocumentStore) notifyLocked(key string) {
	for _, sub := range s.subs[key] {
		sub.send(s.scopedSnapshotLocked(key, sub.query))
	}
}

// scopedSnapshotLocked builds the filtered, ordered sibling list for a scope
func (s *DocumentStore) scopedSnapshotLocked(key string, q ports.Query) []ports.Document {
	var docs []ports.Document
	for id, fields := range s.collections[key] {
		if fields[q.ParentField] != q.ParentValue {
			continue
		}
		docs = append(docs, ports.Document{ID: id, Fields: copyFields(fields)})
	}
	sort.Slice(docs, func(i, j int) bool {
		oi := numField(docs[i].Fields, q.OrderByField)
		oj := numField(docs[j].Fields, q.OrderByField)
		if oi != oj {
			return oi < oj
		}
		return docs[i].ID < docs[j].ID
	})
	return docs
}

type subscription struct {
	store *DocumentStore
	key   string
	query ports.Query
	ch    chan []ports.Document
	once  sync.Once
}

func (sub *subscription) Snapshots() <-chan []ports.Document {
	return sub.ch
}

// Unsubscribe removes the subscriber and closes its channel synchronously
func (sub *subscription) Unsubscribe() {
	sub.once.Do(func() {
		sub.store.mu.Lock()
		defer sub.store.mu.Unlock()

		subs := sub.store.subs[sub.key]
		for i, other := range subs {
			if other == sub {
				sub.store.subs[sub.key] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
		close(sub.ch)
	})
}

// send delivers a snapshot without blocking: when the subscriber lags, the
// oldest queued snapshot is dropped since only the latest full list matters
func (sub *subscription) send(docs []ports.Document) {
	for {
		select {
		case sub.ch <- docs:
			return
		default:
			select {
			case <-sub.ch:
			default:
			}
		}
	}
}

func collKey(c ports.Collection) string {
	return c.UserID + "/" + string(c.Kind)
}

func copyFields(fields map[string]interface{}) map[string]interface{} {
	copied := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		copied[k] = v
	}
	return copied
}

func numField(fields map[string]interface{}, key string) int64 {
	switch v := fields[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	default:
		return 0
	}
}
