package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"gym-assistant/internal/docstore/adapter/observe"
	"gym-assistant/internal/docstore/domain/model"
	"gym-assistant/internal/docstore/domain/repository"
	apperrors "gym-assistant/internal/shared/errors"
	"gym-assistant/internal/shared/logger"

	"github.com/google/uuid"
)

// Op names a one-shot provider operation, used by hooks and fault injection.
type Op string

const (
	OpReadOne     Op = "read_one"
	OpReadMany    Op = "read_many"
	OpInsert      Op = "insert"
	OpMergeUpdate Op = "merge_update"
	OpDelete      Op = "delete"
)

type collectionData struct {
	docs  map[string]model.Fields
	order []string // insertion order
}

// Provider is an in-process DocumentProvider. Timestamps are stored as
// model.Timestamp so readers see a provider-native type.
type Provider struct {
	mu          sync.RWMutex
	collections map[string]*collectionData
	observers   map[string]map[string]*observe.Observer
	faults      map[Op][]error
	hook        func(ctx context.Context, op Op)
	closed      bool

	matcher *matcher
	now     func() time.Time
	clock   *model.ServerClock
	newID   func() string
	logger  logger.Logger
}

// Option configures a Provider.
type Option func(*Provider)

// WithClock sets the time source for server timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Provider) { p.now = now }
}

// WithIDGenerator sets the generator for inserted document ids.
func WithIDGenerator(gen func() string) Option {
	return func(p *Provider) { p.newID = gen }
}

// WithLogger sets the logger.
func WithLogger(log logger.Logger) Option {
	return func(p *Provider) { p.logger = log }
}

// NewProvider creates an empty in-memory provider.
func NewProvider(opts ...Option) (*Provider, error) {
	m, err := newMatcher()
	if err != nil {
		return nil, err
	}
	p := &Provider{
		collections: make(map[string]*collectionData),
		observers:   make(map[string]map[string]*observe.Observer),
		faults:      make(map[Op][]error),
		matcher:     m,
		now:         time.Now,
		newID:       func() string { return strings.ReplaceAll(uuid.NewString(), "-", "")[:20] },
		logger:      logger.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.clock = model.NewServerClock(p.now)
	p.logger = logger.OrNop(p.logger).WithComponent("memory_provider")
	return p, nil
}

// FailNext makes the next call of op return err.
func (p *Provider) FailNext(op Op, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.faults[op] = append(p.faults[op], err)
}

// SetHook installs fn to run at the start of every one-shot operation,
// outside the provider lock. Pass nil to remove it.
func (p *Provider) SetHook(fn func(ctx context.Context, op Op)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hook = fn
}

// BreakObservers terminates every observation of collection with err.
func (p *Provider) BreakObservers(collection string, err error) {
	p.mu.Lock()
	obs := make([]*observe.Observer, 0, len(p.observers[collection]))
	for _, o := range p.observers[collection] {
		obs = append(obs, o)
	}
	p.mu.Unlock()

	for _, o := range obs {
		o.Fail(err)
	}
}

// ObserverCount returns the number of live observations of collection.
func (p *Provider) ObserverCount(collection string) int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.observers[collection])
}

// Close stops every observation. Later calls fail with ErrProviderClosed.
func (p *Provider) Close() error {
	p.mu.Lock()
	p.closed = true
	var all []*observe.Observer
	for _, byID := range p.observers {
		for _, o := range byID {
			all = append(all, o)
		}
	}
	p.mu.Unlock()

	for _, o := range all {
		o.Cancel()
	}
	return nil
}

func (p *Provider) begin(ctx context.Context, op Op) error {
	p.mu.RLock()
	hook := p.hook
	p.mu.RUnlock()
	if hook != nil {
		hook(ctx, op)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return apperrors.ErrProviderClosed
	}
	if errs := p.faults[op]; len(errs) > 0 {
		p.faults[op] = errs[1:]
		return errs[0]
	}
	return ctx.Err()
}

func (p *Provider) collection(name string) *collectionData {
	c, ok := p.collections[name]
	if !ok {
		c = &collectionData{docs: make(map[string]model.Fields)}
		p.collections[name] = c
	}
	return c
}

// ReadOne returns a copy of the document.
func (p *Provider) ReadOne(ctx context.Context, collection, id string) (*model.Snapshot, error) {
	if err := p.begin(ctx, OpReadOne); err != nil {
		return nil, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	snap, ok := p.readLocked(collection, id)
	if !ok {
		return nil, fmt.Errorf("%s/%s: %w", collection, id, apperrors.ErrDocumentNotFound)
	}
	return snap, nil
}

// ReadMany returns the documents matching c.
func (p *Provider) ReadMany(ctx context.Context, collection string, c model.Constraints) ([]model.Snapshot, error) {
	if err := p.begin(ctx, OpReadMany); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.queryLocked(collection, c), nil
}

// Insert stores data under a generated id.
func (p *Provider) Insert(ctx context.Context, collection string, data model.Fields) (string, error) {
	if err := p.begin(ctx, OpInsert); err != nil {
		return "", err
	}

	p.mu.Lock()
	col := p.collection(collection)
	id := p.newID()
	for _, exists := col.docs[id]; exists; _, exists = col.docs[id] {
		id = p.newID()
	}
	col.docs[id] = p.resolve(data)
	col.order = append(col.order, id)
	p.mu.Unlock()

	p.logger.Debugf("inserted %s/%s", collection, id)
	p.notify(collection)
	return id, nil
}

// MergeUpdate merges data into an existing document. Dotted keys address
// nested fields.
func (p *Provider) MergeUpdate(ctx context.Context, collection, id string, data model.Fields) error {
	if err := p.begin(ctx, OpMergeUpdate); err != nil {
		return err
	}

	p.mu.Lock()
	col := p.collection(collection)
	doc, ok := col.docs[id]
	if !ok {
		p.mu.Unlock()
		return fmt.Errorf("%s/%s: %w", collection, id, apperrors.ErrDocumentNotFound)
	}
	for k, v := range p.resolve(data) {
		setPath(doc, k, v)
	}
	p.mu.Unlock()

	p.notify(collection)
	return nil
}

// Delete removes a document. Deleting a missing document succeeds.
func (p *Provider) Delete(ctx context.Context, collection, id string) error {
	if err := p.begin(ctx, OpDelete); err != nil {
		return err
	}

	p.mu.Lock()
	col := p.collection(collection)
	_, existed := col.docs[id]
	if existed {
		delete(col.docs, id)
		for i, docID := range col.order {
			if docID == id {
				col.order = append(col.order[:i], col.order[i+1:]...)
				break
			}
		}
	}
	p.mu.Unlock()

	if existed {
		p.notify(collection)
	}
	return nil
}

// ObserveMany starts a live query.
func (p *Provider) ObserveMany(collection string, c model.Constraints, onNext func([]model.Snapshot), onError func(error)) repository.CancelFunc {
	if err := c.Validate(); err != nil {
		go onError(err)
		return func() {}
	}
	return p.observe(collection, func() (interface{}, error) {
		p.mu.RLock()
		defer p.mu.RUnlock()
		return p.queryLocked(collection, c), nil
	}, func(v interface{}) { onNext(v.([]model.Snapshot)) }, onError)
}

// ObserveOne starts a live single-document read.
func (p *Provider) ObserveOne(collection, id string, onNext func(*model.Snapshot), onError func(error)) repository.CancelFunc {
	return p.observe(collection, func() (interface{}, error) {
		p.mu.RLock()
		defer p.mu.RUnlock()
		snap, _ := p.readLocked(collection, id)
		return snap, nil
	}, func(v interface{}) { onNext(v.(*model.Snapshot)) }, onError)
}

func (p *Provider) observe(collection string, read func() (interface{}, error), push func(interface{}), onError func(error)) repository.CancelFunc {
	o := observe.New(read, push, onError)

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		go onError(apperrors.ErrProviderClosed)
		return func() {}
	}
	if p.observers[collection] == nil {
		p.observers[collection] = make(map[string]*observe.Observer)
	}
	p.observers[collection][o.ID()] = o
	p.mu.Unlock()

	go func() {
		o.Run()
		p.mu.Lock()
		delete(p.observers[collection], o.ID())
		if len(p.observers[collection]) == 0 {
			delete(p.observers, collection)
		}
		p.mu.Unlock()
	}()
	return o.Cancel
}

func (p *Provider) notify(collection string) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, o := range p.observers[collection] {
		o.Signal()
	}
}

func (p *Provider) readLocked(collection, id string) (*model.Snapshot, bool) {
	col, ok := p.collections[collection]
	if !ok {
		return nil, false
	}
	doc, ok := col.docs[id]
	if !ok {
		return nil, false
	}
	return &model.Snapshot{ID: id, Fields: copyFields(doc)}, true
}

func (p *Provider) queryLocked(collection string, c model.Constraints) []model.Snapshot {
	col, ok := p.collections[collection]
	if !ok {
		return []model.Snapshot{}
	}
	docs := make([]model.Snapshot, 0, len(col.order))
	for _, id := range col.order {
		doc := col.docs[id]
		if p.matcher.matches(doc, c.Filters) {
			docs = append(docs, model.Snapshot{ID: id, Fields: copyFields(doc)})
		}
	}
	return applyOrderAndLimit(docs, c)
}

func (p *Provider) resolve(data model.Fields) model.Fields {
	resolved := model.ResolveServerTimestamps(data, p.clock.Next(), func(t time.Time) interface{} {
		return model.NewTimestamp(t)
	})
	return copyFields(resolved)
}

// setPath assigns v at a dotted path, creating intermediate maps.
func setPath(doc model.Fields, path string, v interface{}) {
	parts := strings.Split(path, ".")
	current := map[string]interface{}(doc)
	for _, part := range parts[:len(parts)-1] {
		next, ok := asMap(current[part])
		if !ok {
			next = make(map[string]interface{})
			current[part] = next
		}
		current = next
	}
	current[parts[len(parts)-1]] = v
}

func copyFields(f model.Fields) model.Fields {
	out := make(model.Fields, len(f))
	for k, v := range f {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v interface{}) interface{} {
	switch val := v.(type) {
	case model.Fields:
		return map[string]interface{}(copyFields(val))
	case map[string]interface{}:
		return map[string]interface{}(copyFields(val))
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = copyValue(item)
		}
		return out
	default:
		return v
	}
}

var _ repository.DocumentProvider = (*Provider)(nil)
