// Package dynamodb implements the DocumentStore contract on a single
// DynamoDB table. Documents live under PK USER#<userID> with SK
// <KIND>#<id>; batched writes map onto TransactWriteItems so subscribers
// observe them atomically.
package dynamodb

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"canopy-backend/application/ports"
)

const snapshotBuffer = 64

// DocumentStore is the DynamoDB-backed document store
type DocumentStore struct {
	client    *awsdynamodb.Client
	tableName string
	logger    *zap.Logger

	mu   sync.Mutex
	subs map[string][]*subscription
}

// NewDocumentStore creates a DynamoDB document store
func NewDocumentStore(client *awsdynamodb.Client, tableName string, logger *zap.Logger) *DocumentStore {
	return &DocumentStore{
		client:    client,
		tableName: tableName,
		logger:    logger,
		subs:      make(map[string][]*subscription),
	}
}

func pk(c ports.Collection) string {
	return fmt.Sprintf("USER#%s", c.UserID)
}

func skPrefix(c ports.Collection) string {
	if c.Kind == ports.EntityKindNotes {
		return "NOTE#"
	}
	return "FOLDER#"
}

func sk(c ports.Collection, id string) string {
	return skPrefix(c) + id
}

func collKey(c ports.Collection) string {
	return c.UserID + "/" + string(c.Kind)
}

// List returns every document in the collection
func (s *DocumentStore) List(ctx context.Context, c ports.Collection) ([]ports.Document, error) {
	keyCond := expression.Key("PK").Equal(expression.Value(pk(c))).
		And(expression.Key("SK").BeginsWith(skPrefix(c)))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build query expression: %w", err)
	}

	var docs []ports.Document
	var lastKey map[string]types.AttributeValue
	for {
		out, err := s.client.Query(ctx, &awsdynamodb.QueryInput{
			TableName:                 aws.String(s.tableName),
			KeyConditionExpression:    expr.KeyCondition(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
			ExclusiveStartKey:         lastKey,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to query collection: %w", err)
		}

		for _, item := range out.Items {
			doc, err := s.documentFromItem(item)
			if err != nil {
				s.logger.Warn("skipping unreadable item", zap.Error(err))
				continue
			}
			docs = append(docs, doc)
		}

		lastKey = out.LastEvaluatedKey
		if lastKey == nil {
			break
		}
	}
	return docs, nil
}

// Subscribe opens a live snapshot stream for one scope. Change notification
// is process-local: every successful write through this store re-queries
// and re-emits the affected scopes. Edits arriving from other processes
// surface on the next write or reload, which last-write-wins tolerates.
func (s *DocumentStore) Subscribe(ctx context.Context, c ports.Collection, q ports.Query) (ports.Subscription, error) {
	sub := &subscription{
		store: s,
		coll:  c,
		query: q,
		ch:    make(chan []ports.Document, snapshotBuffer),
	}

	s.mu.Lock()
	s.subs[collKey(c)] = append(s.subs[collKey(c)], sub)
	s.mu.Unlock()

	// Deliver the current snapshot immediately.
	docs, err := s.List(ctx, c)
	if err != nil {
		sub.Unsubscribe()
		return nil, err
	}
	sub.send(filterScope(docs, q))
	return sub, nil
}

// CreateOne stores a new document under a fresh id
func (s *DocumentStore) CreateOne(ctx context.Context, c ports.Collection, fields map[string]interface{}) (string, error) {
	id := uuid.New().String()

	item, err := s.itemFromFields(c, id, fields)
	if err != nil {
		return "", err
	}

	_, err = s.client.PutItem(ctx, &awsdynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create document: %w", err)
	}

	s.notify(c)
	return id, nil
}

// WriteOne applies a partial field update, creating the document if absent
func (s *DocumentStore) WriteOne(ctx context.Context, c ports.Collection, id string, fields map[string]interface{}) error {
	update, err := buildUpdate(fields)
	if err != nil {
		return err
	}
	expr, err := expression.NewBuilder().WithUpdate(update).Build()
	if err != nil {
		return fmt.Errorf("failed to build update expression: %w", err)
	}

	_, err = s.client.UpdateItem(ctx, &awsdynamodb.UpdateItemInput{
		TableName:                 aws.String(s.tableName),
		Key:                       s.key(c, id),
		UpdateExpression:          expr.Update(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		return fmt.Errorf("failed to update document: %w", err)
	}

	s.notify(c)
	return nil
}

// WriteBatch submits all operations as one TransactWriteItems call: they
// apply atomically or not at all
func (s *DocumentStore) WriteBatch(ctx context.Context, c ports.Collection, ops []ports.WriteOp) error {
	if len(ops) == 0 {
		return nil
	}

	items := make([]types.TransactWriteItem, 0, len(ops))
	for _, op := range ops {
		update, err := buildUpdate(op.Fields)
		if err != nil {
			return err
		}
		expr, err := expression.NewBuilder().WithUpdate(update).Build()
		if err != nil {
			return fmt.Errorf("failed to build update expression: %w", err)
		}
		items = append(items, types.TransactWriteItem{
			Update: &types.Update{
				TableName:                 aws.String(s.tableName),
				Key:                       s.key(c, op.ID),
				UpdateExpression:          expr.Update(),
				ExpressionAttributeNames:  expr.Names(),
				ExpressionAttributeValues: expr.Values(),
			},
		})
	}

	_, err := s.client.TransactWriteItems(ctx, &awsdynamodb.TransactWriteItemsInput{
		TransactItems: items,
	})
	if err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}

	s.notify(c)
	return nil
}

// DeleteOne removes a document; deleting an absent document succeeds
func (s *DocumentStore) DeleteOne(ctx context.Context, c ports.Collection, id string) error {
	_, err := s.client.DeleteItem(ctx, &awsdynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key:       s.key(c, id),
	})
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	s.notify(c)
	return nil
}

// Shutdown closes every open subscription
func (s *DocumentStore) Shutdown() {
	s.mu.Lock()
	var all []*subscription
	for _, subs := range s.subs {
		all = append(all, subs...)
	}
	s.mu.Unlock()

	for _, sub := range all {
		sub.Unsubscribe()
	}
}

// notify re-queries and re-emits every subscribed scope of the collection
func (s *DocumentStore) notify(c ports.Collection) {
	s.mu.Lock()
	subs := make([]*subscription, len(s.subs[collKey(c)]))
	copy(subs, s.subs[collKey(c)])
	s.mu.Unlock()

	if len(subs) == 0 {
		return
	}

	go func() {
		ctx := context.Background()
		docs, err := s.List(ctx, c)
		if err != nil {
			s.logger.Warn("failed to refresh subscription snapshot", zap.Error(err))
			return
		}
		for _, sub := range subs {
			sub.sendIfActive(filterScope(docs, sub.query))
		}
	}()
}

func (s *DocumentStore) key(c ports.Collection, id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: pk(c)},
		"SK": &types.AttributeValueMemberS{Value: sk(c, id)},
	}
}

func (s *DocumentStore) itemFromFields(c ports.Collection, id string, fields map[string]interface{}) (map[string]types.AttributeValue, error) {
	record := make(map[string]interface{}, len(fields)+4)
	for k, v := range fields {
		record[k] = v
	}
	record["PK"] = pk(c)
	record["SK"] = sk(c, id)
	record["ID"] = id
	record["UserID"] = c.UserID

	item, err := attributevalue.MarshalMap(record)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal document: %w", err)
	}
	return item, nil
}

func (s *DocumentStore) documentFromItem(item map[string]types.AttributeValue) (ports.Document, error) {
	var fields map[string]interface{}
	if err := attributevalue.UnmarshalMap(item, &fields); err != nil {
		return ports.Document{}, fmt.Errorf("failed to unmarshal item: %w", err)
	}

	id, _ := fields["ID"].(string)
	if id == "" {
		// Fall back to the id embedded in the sort key.
		if skVal, ok := fields["SK"].(string); ok {
			if idx := strings.IndexByte(skVal, '#'); idx >= 0 {
				id = skVal[idx+1:]
			}
		}
	}
	if id == "" {
		return ports.Document{}, fmt.Errorf("item has no document id")
	}

	delete(fields, "PK")
	delete(fields, "SK")
	delete(fields, "ID")
	delete(fields, "UserID")
	return ports.Document{ID: id, Fields: fields}, nil
}

// buildUpdate maps a partial field set onto a SET update expression
func buildUpdate(fields map[string]interface{}) (expression.UpdateBuilder, error) {
	if len(fields) == 0 {
		return expression.UpdateBuilder{}, fmt.Errorf("update requires at least one field")
	}
	var update expression.UpdateBuilder
	for k, v := range fields {
		update = update.Set(expression.Name(k), expression.Value(v))
	}
	return update, nil
}

// filterScope narrows a collection listing to one query scope, ordered
func filterScope(docs []ports.Document, q ports.Query) []ports.Document {
	var scoped []ports.Document
	for _, doc := range docs {
		val, _ := doc.Fields[q.ParentField].(string)
		if val != q.ParentValue {
			continue
		}
		scoped = append(scoped, doc)
	}
	sort.Slice(scoped, func(i, j int) bool {
		oi := numField(scoped[i].Fields, q.OrderByField)
		oj := numField(scoped[j].Fields, q.OrderByField)
		if oi != oj {
			return oi < oj
		}
		return scoped[i].ID < scoped[j].ID
	})
	return scoped
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

type subscription struct {
	store  *DocumentStore
	coll   ports.Collection
	query  ports.Query
	ch     chan []ports.Document
	once   sync.Once
	mu     sync.Mutex
	closed bool
}

func (sub *subscription) Snapshots() <-chan []ports.Document {
	return sub.ch
}

// Unsubscribe removes the subscriber and closes its channel synchronously
func (sub *subscription) Unsubscribe() {
	sub.once.Do(func() {
		sub.store.mu.Lock()
		key := collKey(sub.coll)
		subs := sub.store.subs[key]
		for i, other := range subs {
			if other == sub {
				sub.store.subs[key] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
		sub.store.mu.Unlock()

		sub.mu.Lock()
		sub.closed = true
		close(sub.ch)
		sub.mu.Unlock()
	})
}

func (sub *subscription) sendIfActive(docs []ports.Document) {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	if sub.closed {
		return
	}
	sub.sendLocked(docs)
}

func (sub *subscription) send(docs []ports.Document) {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	sub.sendLocked(docs)
}

// sendLocked delivers without blocking: a lagging subscriber loses the
// oldest queued snapshot, never the newest
func (sub *subscription) sendLocked(docs []ports.Document) {
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
