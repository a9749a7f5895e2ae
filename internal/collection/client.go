package collection

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"gym-assistant/internal/docstore/domain/model"
	"gym-assistant/internal/docstore/domain/repository"
	apperrors "gym-assistant/internal/shared/errors"
	"gym-assistant/internal/shared/logger"
	"gym-assistant/internal/shared/metrics"
)

// ErrMessageNotFound is recorded by GetByID when the document is absent.
const ErrMessageNotFound = "Document not found"

// State is an immutable view of a client's mirror.
type State[T any] struct {
	Documents []T
	Document  *T
	Loading   bool
	Error     string
	// Cause is the error behind Error, for errors.Is checks.
	Cause error
}

// mirror is owned by the client's loop goroutine.
type mirror[T any] struct {
	documents []T
	document  *T
	pending   int
	err       string
	cause     error
}

type message[T any] struct {
	apply func(*mirror[T])
	ack   chan struct{}
}

// Client is a typed, live view of one collection. Every change to the
// mirror runs on the client's loop goroutine; readers see the last
// published State without locking.
type Client[T any, PT recordPtr[T]] struct {
	collection string
	provider   repository.DocumentProvider
	logger     logger.Logger

	inbox     chan message[T]
	done      chan struct{}
	closeOnce sync.Once
	state     atomic.Pointer[State[T]]

	subsMu sync.Mutex
	subs   map[string]*Subscription
}

// Option configures a Client.
type Option func(*clientOptions)

type clientOptions struct {
	logger logger.Logger
}

// WithLogger sets the client's logger.
func WithLogger(log logger.Logger) Option {
	return func(o *clientOptions) { o.logger = log }
}

// New creates a client for collection and starts its loop.
func New[T any, PT recordPtr[T]](collection string, provider repository.DocumentProvider, opts ...Option) (*Client[T, PT], error) {
	if err := model.ValidateCollection(collection); err != nil {
		return nil, err
	}
	if provider == nil {
		return nil, errors.New("collection client requires a document provider")
	}
	o := clientOptions{}
	for _, opt := range opts {
		opt(&o)
	}

	c := &Client[T, PT]{
		collection: collection,
		provider:   provider,
		logger: logger.OrNop(o.logger).WithComponent("collection").
			WithFields(map[string]interface{}{"collection": collection}),
		inbox: make(chan message[T]),
		done:  make(chan struct{}),
		subs:  make(map[string]*Subscription),
	}
	c.state.Store(&State[T]{Documents: []T{}})
	go c.loop()
	return c, nil
}

func (c *Client[T, PT]) loop() {
	m := &mirror[T]{documents: []T{}}
	for {
		select {
		case <-c.done:
			return
		case msg := <-c.inbox:
			msg.apply(m)
			c.publish(m)
			close(msg.ack)
		}
	}
}

func (c *Client[T, PT]) publish(m *mirror[T]) {
	s := &State[T]{
		Documents: m.documents,
		Loading:   m.pending > 0,
		Error:     m.err,
		Cause:     m.cause,
	}
	if m.document != nil {
		doc := *m.document
		s.Document = &doc
	}
	c.state.Store(s)
}

// send applies fn on the loop and waits until it is visible to readers.
// After Close it is a no-op.
func (c *Client[T, PT]) send(fn func(*mirror[T])) {
	msg := message[T]{apply: fn, ack: make(chan struct{})}
	select {
	case c.inbox <- msg:
		<-msg.ack
	case <-c.done:
	}
}

// Collection returns the collection name.
func (c *Client[T, PT]) Collection() string { return c.collection }

// State returns the current mirror.
func (c *Client[T, PT]) State() State[T] {
	s := c.state.Load()
	out := *s
	out.Documents = append([]T(nil), s.Documents...)
	if out.Documents == nil {
		out.Documents = []T{}
	}
	return out
}

// Documents returns the list mirror.
func (c *Client[T, PT]) Documents() []T { return c.State().Documents }

// Document returns the single-document mirror.
func (c *Client[T, PT]) Document() *T { return c.State().Document }

// Loading reports whether any one-shot operation is in flight.
func (c *Client[T, PT]) Loading() bool { return c.state.Load().Loading }

// LastError returns the last recorded error message, or "".
func (c *Client[T, PT]) LastError() string { return c.state.Load().Error }

// LastCause returns the error behind LastError, or nil.
func (c *Client[T, PT]) LastCause() error { return c.state.Load().Cause }

// track brackets a one-shot operation: the error is cleared and loading
// raised on entry; on every exit loading drops and either the error or
// fn's mirror update is applied.
func (c *Client[T, PT]) track(operation string, fn func() (func(*mirror[T]), error)) {
	started := time.Now()
	c.send(func(m *mirror[T]) {
		m.pending++
		m.err = ""
		m.cause = nil
	})

	var (
		apply    func(*mirror[T])
		err      error
		finished bool
	)
	defer func() {
		c.send(func(m *mirror[T]) {
			m.pending--
			switch {
			case !finished:
			case err != nil:
				m.err = errorMessage(err)
				m.cause = err
			case apply != nil:
				apply(m)
			}
		})
		metrics.RecordCollectionOp(c.collection, operation, finished && err == nil, started)
	}()

	apply, err = fn()
	finished = true
	if err != nil {
		c.logger.Errorf("%s failed: %v", operation, err)
	}
}

// immutableField reports whether an update may not touch key: the id and
// the server-stamped creation time, including paths below them.
func immutableField(key string) bool {
	for _, f := range []string{"id", model.FieldCreatedAt} {
		if key == f || strings.HasPrefix(key, f+".") {
			return true
		}
	}
	return false
}

func errorMessage(err error) string {
	if errors.Is(err, apperrors.ErrDocumentNotFound) {
		return ErrMessageNotFound
	}
	return err.Error()
}

// GetAll reads the documents selected by opts into the list mirror. On
// failure it returns an empty slice and records the error.
func (c *Client[T, PT]) GetAll(ctx context.Context, opts *QueryOptions) []T {
	result := []T{}
	c.track("get_all", func() (func(*mirror[T]), error) {
		constraints, err := BuildConstraints(opts)
		if err != nil {
			return nil, err
		}
		snaps, err := c.provider.ReadMany(ctx, c.collection, constraints)
		if err != nil {
			return nil, err
		}
		docs, err := decodeAll[T, PT](snaps)
		if err != nil {
			return nil, err
		}
		result = docs
		return func(m *mirror[T]) { m.documents = docs }, nil
	})
	return append([]T{}, result...)
}

// GetByID reads one document into the document mirror. An absent document
// returns nil and records "Document not found".
func (c *Client[T, PT]) GetByID(ctx context.Context, id string) *T {
	var result *T
	c.track("get_by_id", func() (func(*mirror[T]), error) {
		if err := model.ValidateDocumentID(id); err != nil {
			return nil, err
		}
		snap, err := c.provider.ReadOne(ctx, c.collection, id)
		if err != nil {
			return nil, err
		}
		rec, err := decode[T, PT](*snap)
		if err != nil {
			return nil, err
		}
		result = &rec
		return func(m *mirror[T]) {
			doc := rec
			m.document = &doc
		}, nil
	})
	if result == nil {
		return nil
	}
	out := *result
	return &out
}

// Create writes data as a new document stamped with server createdAt and
// updatedAt. It returns the new id, or false on failure.
func (c *Client[T, PT]) Create(ctx context.Context, data T) (string, bool) {
	var id string
	ok := false
	c.track("create", func() (func(*mirror[T]), error) {
		fields, err := encode(PT(&data))
		if err != nil {
			return nil, err
		}
		delete(fields, "id")
		delete(fields, "_id")
		fields[model.FieldCreatedAt] = model.ServerTimestamp
		fields[model.FieldUpdatedAt] = model.ServerTimestamp

		newID, err := c.provider.Insert(ctx, c.collection, fields)
		if err != nil {
			return nil, err
		}
		id, ok = newID, true
		c.logger.Debugf("document created with ID: %s", newID)
		return nil, nil
	})
	return id, ok
}

// Update merges data onto an existing document and refreshes updatedAt.
// Fields absent from data are untouched; dotted keys address nested fields.
func (c *Client[T, PT]) Update(ctx context.Context, id string, data model.Fields) bool {
	ok := false
	c.track("update", func() (func(*mirror[T]), error) {
		if err := model.ValidateDocumentID(id); err != nil {
			return nil, err
		}
		fields := make(model.Fields, len(data)+1)
		for k, v := range data {
			if immutableField(k) {
				continue
			}
			value, err := canonicalValue(v)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", k, err)
			}
			fields[k] = value
		}
		fields[model.FieldUpdatedAt] = model.ServerTimestamp

		if err := c.provider.MergeUpdate(ctx, c.collection, id, fields); err != nil {
			return nil, err
		}
		ok = true
		c.logger.Debugf("document updated: %s", id)
		return nil, nil
	})
	return ok
}

// Remove deletes a document.
func (c *Client[T, PT]) Remove(ctx context.Context, id string) bool {
	ok := false
	c.track("remove", func() (func(*mirror[T]), error) {
		if err := model.ValidateDocumentID(id); err != nil {
			return nil, err
		}
		if err := c.provider.Delete(ctx, c.collection, id); err != nil {
			return nil, err
		}
		ok = true
		c.logger.Debugf("document deleted: %s", id)
		return nil, nil
	})
	return ok
}

// Subscribe binds the list mirror to a live query. Every push replaces the
// mirror and then calls callback, which may be nil, with the new list.
// Provider errors are recorded on the client and end the subscription.
func (c *Client[T, PT]) Subscribe(opts *QueryOptions, callback func([]T)) *Subscription {
	sub := c.register()

	constraints, err := BuildConstraints(opts)
	if err != nil {
		c.subscriptionFailed(sub, err)
		return sub
	}

	stop := c.provider.ObserveMany(c.collection, constraints,
		func(snaps []model.Snapshot) {
			if !sub.Active() {
				return
			}
			docs, err := decodeAll[T, PT](snaps)
			if err != nil {
				c.recordError(err)
				return
			}
			c.send(func(m *mirror[T]) { m.documents = docs })
			if callback != nil && sub.Active() {
				callback(append([]T{}, docs...))
			}
		},
		func(err error) { c.subscriptionFailed(sub, err) },
	)
	sub.attach(stop)
	return sub
}

// SubscribeToDocument binds the document mirror to one document. When the
// document stops existing the mirror becomes nil and callback gets nil.
func (c *Client[T, PT]) SubscribeToDocument(id string, callback func(*T)) *Subscription {
	sub := c.register()

	if err := model.ValidateDocumentID(id); err != nil {
		c.subscriptionFailed(sub, err)
		return sub
	}

	stop := c.provider.ObserveOne(c.collection, id,
		func(snap *model.Snapshot) {
			if !sub.Active() {
				return
			}
			var doc *T
			if snap != nil {
				rec, err := decode[T, PT](*snap)
				if err != nil {
					c.recordError(err)
					return
				}
				doc = &rec
			}
			c.send(func(m *mirror[T]) {
				if doc == nil {
					m.document = nil
					return
				}
				cp := *doc
				m.document = &cp
			})
			if callback != nil && sub.Active() {
				callback(doc)
			}
		},
		func(err error) { c.subscriptionFailed(sub, err) },
	)
	sub.attach(stop)
	return sub
}

func (c *Client[T, PT]) register() *Subscription {
	var sub *Subscription
	sub = newSubscription(c.collection, func() {
		c.subsMu.Lock()
		delete(c.subs, sub.ID())
		c.subsMu.Unlock()
		metrics.SubscriptionClosed(c.collection)
	})
	c.subsMu.Lock()
	c.subs[sub.ID()] = sub
	c.subsMu.Unlock()
	metrics.SubscriptionOpened(c.collection)
	return sub
}

func (c *Client[T, PT]) subscriptionFailed(sub *Subscription, err error) {
	if !sub.Active() {
		return
	}
	c.logger.Errorf("subscription %s failed: %v", sub.ID(), err)
	c.recordError(err)
	sub.finish(err)
}

func (c *Client[T, PT]) recordError(err error) {
	c.send(func(m *mirror[T]) {
		m.err = errorMessage(err)
		m.cause = err
	})
}

// ActiveSubscriptions returns the number of live subscriptions.
func (c *Client[T, PT]) ActiveSubscriptions() int {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	return len(c.subs)
}

// Close cancels every subscription and stops the loop. The last state
// stays readable.
func (c *Client[T, PT]) Close() {
	c.subsMu.Lock()
	subs := make([]*Subscription, 0, len(c.subs))
	for _, s := range c.subs {
		subs = append(subs, s)
	}
	c.subsMu.Unlock()

	for _, s := range subs {
		s.Cancel()
	}
	c.closeOnce.Do(func() { close(c.done) })
}
