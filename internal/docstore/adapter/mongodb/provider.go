package mongodb

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"gym-assistant/internal/docstore/adapter/observe"
	"gym-assistant/internal/docstore/domain/model"
	"gym-assistant/internal/docstore/domain/repository"
	apperrors "gym-assistant/internal/shared/errors"
	"gym-assistant/internal/shared/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

const defaultReadTimeout = 10 * time.Second

// Provider stores each collection in a Mongo collection of the same name.
// Documents are keyed by ObjectID; their hex form is the document id.
//
// Live queries re-read on change signals from the notifier and, when
// PollInterval is set, on a timer for writes made outside this service.
type Provider struct {
	db           *mongo.Database
	notifier     repository.ChangeNotifier
	pollInterval time.Duration
	readTimeout  time.Duration
	clock        *model.ServerClock
	logger       logger.Logger

	mu        sync.Mutex
	observers map[string]*observe.Observer
}

// NewProvider creates a Mongo-backed provider. notifier may be nil, in
// which case live queries rely on polling only.
func NewProvider(db *mongo.Database, notifier repository.ChangeNotifier, pollInterval time.Duration, log logger.Logger) *Provider {
	return &Provider{
		db:           db,
		notifier:     notifier,
		pollInterval: pollInterval,
		readTimeout:  defaultReadTimeout,
		clock:        model.NewServerClock(nil),
		logger:       logger.OrNop(log).WithComponent("mongodb_provider"),
		observers:    make(map[string]*observe.Observer),
	}
}

// documentKey converts a document id to its _id value. Ids that are not
// ObjectID hex strings are stored as plain strings.
func documentKey(id string) interface{} {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return oid
	}
	return id
}

func toSnapshot(raw bson.M) model.Snapshot {
	var id string
	switch v := raw["_id"].(type) {
	case primitive.ObjectID:
		id = v.Hex()
	case string:
		id = v
	default:
		id = fmt.Sprint(v)
	}
	delete(raw, "_id")
	return model.Snapshot{ID: id, Fields: model.Fields(raw)}
}

func (p *Provider) resolve(data model.Fields) model.Fields {
	return model.ResolveServerTimestamps(data, p.clock.Next(), func(t time.Time) interface{} {
		return primitive.NewDateTimeFromTime(t)
	})
}

// ReadOne finds a document by id.
func (p *Provider) ReadOne(ctx context.Context, collection, id string) (*model.Snapshot, error) {
	var raw bson.M
	err := p.db.Collection(collection).FindOne(ctx, bson.M{"_id": documentKey(id)}).Decode(&raw)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%s/%s: %w", collection, id, apperrors.ErrDocumentNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s/%s: %w", collection, id, err)
	}
	snap := toSnapshot(raw)
	return &snap, nil
}

// ReadMany runs a query.
func (p *Provider) ReadMany(ctx context.Context, collection string, c model.Constraints) ([]model.Snapshot, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	cursor, err := p.db.Collection(collection).Find(ctx, buildFilter(c.Filters, c.Order), buildFindOptions(c))
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", collection, err)
	}
	defer cursor.Close(ctx)

	var raws []bson.M
	if err := cursor.All(ctx, &raws); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", collection, err)
	}
	snaps := make([]model.Snapshot, 0, len(raws))
	for _, raw := range raws {
		snaps = append(snaps, toSnapshot(raw))
	}
	return snaps, nil
}

// Insert adds a document with a new ObjectID.
func (p *Provider) Insert(ctx context.Context, collection string, data model.Fields) (string, error) {
	oid := primitive.NewObjectID()
	doc := bson.M{"_id": oid}
	for k, v := range p.resolve(data) {
		doc[k] = v
	}
	if _, err := p.db.Collection(collection).InsertOne(ctx, doc); err != nil {
		return "", fmt.Errorf("failed to insert into %s: %w", collection, err)
	}
	p.changed(ctx, collection)
	return oid.Hex(), nil
}

// MergeUpdate $sets data on an existing document.
func (p *Provider) MergeUpdate(ctx context.Context, collection, id string, data model.Fields) error {
	update := bson.M{"$set": bson.M(p.resolve(data))}
	result, err := p.db.Collection(collection).UpdateOne(ctx, bson.M{"_id": documentKey(id)}, update)
	if err != nil {
		return fmt.Errorf("failed to update %s/%s: %w", collection, id, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%s/%s: %w", collection, id, apperrors.ErrDocumentNotFound)
	}
	p.changed(ctx, collection)
	return nil
}

// Delete removes a document; a missing document is not an error.
func (p *Provider) Delete(ctx context.Context, collection, id string) error {
	result, err := p.db.Collection(collection).DeleteOne(ctx, bson.M{"_id": documentKey(id)})
	if err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", collection, id, err)
	}
	if result.DeletedCount > 0 {
		p.changed(ctx, collection)
	}
	return nil
}

func (p *Provider) changed(ctx context.Context, collection string) {
	if p.notifier == nil {
		return
	}
	if err := p.notifier.Notify(ctx, collection); err != nil {
		p.logger.Warnf("change notification for %s failed: %v", collection, err)
	}
}

// ObserveMany re-runs the query on every change signal.
func (p *Provider) ObserveMany(collection string, c model.Constraints, onNext func([]model.Snapshot), onError func(error)) repository.CancelFunc {
	if err := c.Validate(); err != nil {
		go onError(err)
		return func() {}
	}
	return p.observe(collection, func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(context.Background(), p.readTimeout)
		defer cancel()
		return p.ReadMany(ctx, collection, c)
	}, func(v interface{}) { onNext(v.([]model.Snapshot)) }, onError)
}

// ObserveOne re-reads the document on every change signal.
func (p *Provider) ObserveOne(collection, id string, onNext func(*model.Snapshot), onError func(error)) repository.CancelFunc {
	return p.observe(collection, func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(context.Background(), p.readTimeout)
		defer cancel()
		snap, err := p.ReadOne(ctx, collection, id)
		if errors.Is(err, apperrors.ErrDocumentNotFound) {
			return (*model.Snapshot)(nil), nil
		}
		return snap, err
	}, func(v interface{}) { onNext(v.(*model.Snapshot)) }, onError)
}

func (p *Provider) observe(collection string, read func() (interface{}, error), push func(interface{}), onError func(error)) repository.CancelFunc {
	o := observe.New(read, push, onError)

	var stopListening func()
	if p.notifier != nil {
		stop, err := p.notifier.Listen(collection, o.Signal)
		if err != nil {
			go onError(fmt.Errorf("failed to listen for changes on %s: %w", collection, err))
			return func() {}
		}
		stopListening = stop
	}

	p.mu.Lock()
	p.observers[o.ID()] = o
	p.mu.Unlock()

	go o.Run()
	go func() {
		var tick <-chan time.Time
		if p.pollInterval > 0 {
			ticker := time.NewTicker(p.pollInterval)
			defer ticker.Stop()
			tick = ticker.C
		}
		for {
			select {
			case <-o.Done():
				if stopListening != nil {
					stopListening()
				}
				p.mu.Lock()
				delete(p.observers, o.ID())
				p.mu.Unlock()
				return
			case <-tick:
				o.Signal()
			}
		}
	}()
	return o.Cancel
}

// Close stops every live query.
func (p *Provider) Close() error {
	p.mu.Lock()
	all := make([]*observe.Observer, 0, len(p.observers))
	for _, o := range p.observers {
		all = append(all, o)
	}
	p.mu.Unlock()
	for _, o := range all {
		o.Cancel()
	}
	return nil
}

var _ repository.DocumentProvider = (*Provider)(nil)
