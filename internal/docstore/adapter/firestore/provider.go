package firestore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"gym-assistant/internal/docstore/domain/model"
	"gym-assistant/internal/docstore/domain/repository"
	apperrors "gym-assistant/internal/shared/errors"
	"gym-assistant/internal/shared/logger"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Provider talks to Cloud Firestore (or its emulator) through the Go SDK.
type Provider struct {
	client *firestore.Client
	logger logger.Logger
}

// NewProvider wraps an open Firestore client.
func NewProvider(client *firestore.Client, log logger.Logger) *Provider {
	return &Provider{
		client: client,
		logger: logger.OrNop(log).WithComponent("firestore_provider"),
	}
}

// Connect opens a client for projectID. With FIRESTORE_EMULATOR_HOST set the
// SDK connects to the emulator.
func Connect(ctx context.Context, projectID string, log logger.Logger) (*Provider, error) {
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	return NewProvider(client, log), nil
}

// Close closes the underlying client.
func (p *Provider) Close() error {
	return p.client.Close()
}

// toNative converts write data to SDK values.
func toNative(data model.Fields) map[string]interface{} {
	out := make(map[string]interface{}, len(data))
	for k, v := range data {
		out[k] = nativeValue(v)
	}
	return out
}

func nativeValue(v interface{}) interface{} {
	switch val := v.(type) {
	case nil:
		return nil
	case model.Fields:
		return toNative(val)
	case map[string]interface{}:
		return toNative(val)
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = nativeValue(item)
		}
		return out
	default:
		if model.IsServerTimestamp(v) {
			return firestore.ServerTimestamp
		}
		return v
	}
}

// fromNative converts SDK values read from a snapshot. Timestamps are
// already time.Time; references become their slash separated path.
func fromNative(v interface{}) interface{} {
	switch val := v.(type) {
	case *firestore.DocumentRef:
		if val == nil {
			return nil
		}
		return val.Path
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, item := range val {
			out[k] = fromNative(item)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = fromNative(item)
		}
		return out
	default:
		return v
	}
}

func toSnapshot(doc *firestore.DocumentSnapshot) model.Snapshot {
	fields := make(model.Fields)
	for k, v := range doc.Data() {
		fields[k] = fromNative(v)
	}
	return model.Snapshot{ID: doc.Ref.ID, Fields: fields}
}

func (p *Provider) query(collection string, c model.Constraints) firestore.Query {
	q := p.client.Collection(collection).Query
	for _, f := range c.Filters {
		q = q.Where(f.Field, string(f.Operator), nativeValue(f.Value))
	}
	if c.Order != nil {
		dir := firestore.Asc
		if c.Order.Direction == model.Descending {
			dir = firestore.Desc
		}
		q = q.OrderBy(c.Order.Field, dir)
	}
	if c.Limit > 0 {
		q = q.Limit(c.Limit)
	}
	return q
}

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

// ReadOne fetches a document.
func (p *Provider) ReadOne(ctx context.Context, collection, id string) (*model.Snapshot, error) {
	doc, err := p.client.Collection(collection).Doc(id).Get(ctx)
	if isNotFound(err) {
		return nil, fmt.Errorf("%s/%s: %w", collection, id, apperrors.ErrDocumentNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s/%s: %w", collection, id, err)
	}
	snap := toSnapshot(doc)
	return &snap, nil
}

// ReadMany runs a query.
func (p *Provider) ReadMany(ctx context.Context, collection string, c model.Constraints) ([]model.Snapshot, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	iter := p.query(collection, c).Documents(ctx)
	defer iter.Stop()

	snaps := []model.Snapshot{}
	for {
		doc, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to query %s: %w", collection, err)
		}
		snaps = append(snaps, toSnapshot(doc))
	}
	return snaps, nil
}

// Insert adds a document with an auto-generated id.
func (p *Provider) Insert(ctx context.Context, collection string, data model.Fields) (string, error) {
	ref, _, err := p.client.Collection(collection).Add(ctx, toNative(data))
	if err != nil {
		return "", fmt.Errorf("failed to insert into %s: %w", collection, err)
	}
	return ref.ID, nil
}

// MergeUpdate updates the given fields; dotted keys address nested fields.
func (p *Provider) MergeUpdate(ctx context.Context, collection, id string, data model.Fields) error {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	updates := make([]firestore.Update, 0, len(keys))
	for _, k := range keys {
		updates = append(updates, firestore.Update{
			FieldPath: firestore.FieldPath(strings.Split(k, ".")),
			Value:     nativeValue(data[k]),
		})
	}
	_, err := p.client.Collection(collection).Doc(id).Update(ctx, updates)
	if isNotFound(err) {
		return fmt.Errorf("%s/%s: %w", collection, id, apperrors.ErrDocumentNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to update %s/%s: %w", collection, id, err)
	}
	return nil
}

// Delete removes a document.
func (p *Provider) Delete(ctx context.Context, collection, id string) error {
	if _, err := p.client.Collection(collection).Doc(id).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", collection, id, err)
	}
	return nil
}

// ObserveMany listens to query snapshots.
func (p *Provider) ObserveMany(collection string, c model.Constraints, onNext func([]model.Snapshot), onError func(error)) repository.CancelFunc {
	if err := c.Validate(); err != nil {
		go onError(err)
		return func() {}
	}
	ctx, cancel := context.WithCancel(context.Background())
	iter := p.query(collection, c).Snapshots(ctx)

	go func() {
		defer iter.Stop()
		for {
			qs, err := iter.Next()
			if err != nil {
				if ctx.Err() == nil && status.Code(err) != codes.Canceled {
					onError(fmt.Errorf("listen on %s: %w", collection, err))
				}
				return
			}
			snaps := []model.Snapshot{}
			for {
				doc, err := qs.Documents.Next()
				if errors.Is(err, iterator.Done) {
					break
				}
				if err != nil {
					onError(fmt.Errorf("listen on %s: %w", collection, err))
					return
				}
				snaps = append(snaps, toSnapshot(doc))
			}
			if ctx.Err() != nil {
				return
			}
			onNext(snaps)
		}
	}()
	return repository.CancelFunc(cancel)
}

// ObserveOne listens to a single document.
func (p *Provider) ObserveOne(collection, id string, onNext func(*model.Snapshot), onError func(error)) repository.CancelFunc {
	ctx, cancel := context.WithCancel(context.Background())
	iter := p.client.Collection(collection).Doc(id).Snapshots(ctx)

	go func() {
		defer iter.Stop()
		for {
			doc, err := iter.Next()
			if err != nil {
				if ctx.Err() == nil && status.Code(err) != codes.Canceled {
					onError(fmt.Errorf("listen on %s/%s: %w", collection, id, err))
				}
				return
			}
			if ctx.Err() != nil {
				return
			}
			if !doc.Exists() {
				onNext(nil)
				continue
			}
			snap := toSnapshot(doc)
			onNext(&snap)
		}
	}()
	return repository.CancelFunc(cancel)
}

var _ repository.DocumentProvider = (*Provider)(nil)
