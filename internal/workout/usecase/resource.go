package usecase

import (
	"context"
	"encoding/json"
	"errors"

	"gym-assistant/internal/collection"
	docmodel "gym-assistant/internal/docstore/domain/model"
	"gym-assistant/internal/docstore/domain/repository"
	apperrors "gym-assistant/internal/shared/errors"
	"gym-assistant/internal/shared/logger"
	"gym-assistant/internal/workout/domain/model"
)

// Resource is one collection exposed to signed-in users. Owned resources
// only ever see and touch documents whose userId is the caller's uid.
type Resource interface {
	Name() string
	Owned() bool
	List(ctx context.Context, owner string, opts *collection.QueryOptions) (interface{}, error)
	Get(ctx context.Context, owner, id string) (interface{}, error)
	Create(ctx context.Context, owner string, body []byte) (string, error)
	Update(ctx context.Context, owner, id string, fields docmodel.Fields) error
	Remove(ctx context.Context, owner, id string) error
	// Watch pushes the query result on every change until stopped.
	Watch(owner string, opts *collection.QueryOptions, push func(interface{})) (*Watch, error)
	// WatchDocument pushes the document, or nil, on every change.
	WatchDocument(owner, id string, push func(interface{})) (*Watch, error)
}

// Watch is a live query. Done closes when it is stopped or dropped by the
// provider, in which case Err reports why.
type Watch struct {
	sub  *collection.Subscription
	stop func()
}

// Done is closed when the watch ends.
func (w *Watch) Done() <-chan struct{} { return w.sub.Done() }

// Err returns the provider error that ended the watch.
func (w *Watch) Err() error {
	if err := w.sub.Err(); err != nil {
		return failure(err)
	}
	return nil
}

// Stop ends the watch and releases its client.
func (w *Watch) Stop() { w.stop() }

type resource[T any, PT interface {
	*T
	collection.Record
}] struct {
	name     string
	owned    bool
	provider repository.DocumentProvider
	logger   logger.Logger
}

func newResource[T any, PT interface {
	*T
	collection.Record
}](name string, owned bool, provider repository.DocumentProvider, log logger.Logger) *resource[T, PT] {
	return &resource[T, PT]{
		name:     name,
		owned:    owned,
		provider: provider,
		logger:   log.WithFields(map[string]interface{}{"collection": name}),
	}
}

func (r *resource[T, PT]) Name() string { return r.name }
func (r *resource[T, PT]) Owned() bool  { return r.owned }

// client returns a fresh client so its recorded error belongs to one call.
func (r *resource[T, PT]) client() (*collection.Client[T, PT], error) {
	c, err := collection.New[T, PT](r.name, r.provider, collection.WithLogger(r.logger))
	if err != nil {
		return nil, apperrors.WrapError(err, "failed to open collection "+r.name)
	}
	return c, nil
}

func (r *resource[T, PT]) scope(owner string, opts *collection.QueryOptions) *collection.QueryOptions {
	scoped := collection.Query()
	if opts != nil {
		scoped.Where = append(scoped.Where, opts.Where...)
		scoped.OrderBy = opts.OrderBy
		scoped.Limit = opts.Limit
	}
	if r.owned {
		scoped.Where = append([]collection.WhereClause{{
			Field:    model.FieldUserID,
			Operator: docmodel.OperatorEqual,
			Value:    owner,
		}}, scoped.Where...)
	}
	return scoped
}

func (r *resource[T, PT]) belongsTo(rec *T, owner string) bool {
	if !r.owned {
		return true
	}
	o, ok := any(PT(rec)).(model.Owned)
	return ok && o.GetUserID() == owner
}

func (r *resource[T, PT]) List(ctx context.Context, owner string, opts *collection.QueryOptions) (interface{}, error) {
	c, err := r.client()
	if err != nil {
		return nil, err
	}
	defer c.Close()

	docs := c.GetAll(ctx, r.scope(owner, opts))
	if cause := c.LastCause(); cause != nil {
		return nil, failure(cause)
	}
	return docs, nil
}

func (r *resource[T, PT]) get(ctx context.Context, c *collection.Client[T, PT], owner, id string) (*T, error) {
	doc := c.GetByID(ctx, id)
	if doc == nil {
		return nil, failure(c.LastCause())
	}
	if !r.belongsTo(doc, owner) {
		return nil, failure(apperrors.ErrDocumentNotFound)
	}
	return doc, nil
}

func (r *resource[T, PT]) Get(ctx context.Context, owner, id string) (interface{}, error) {
	c, err := r.client()
	if err != nil {
		return nil, err
	}
	defer c.Close()

	doc, err := r.get(ctx, c, owner, id)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (r *resource[T, PT]) Create(ctx context.Context, owner string, body []byte) (string, error) {
	var rec T
	if err := json.Unmarshal(body, &rec); err != nil {
		return "", apperrors.NewValidationError("Invalid document body").WithCause(err)
	}
	if r.owned {
		o, ok := any(PT(&rec)).(model.Owned)
		if !ok {
			return "", apperrors.NewInternalError(r.name + " records carry no owner")
		}
		o.SetUserID(owner)
	}

	c, err := r.client()
	if err != nil {
		return "", err
	}
	defer c.Close()

	id, ok := c.Create(ctx, rec)
	if !ok {
		return "", failure(c.LastCause())
	}
	r.logger.WithContext(ctx).Infof("document %s created", id)
	return id, nil
}

func (r *resource[T, PT]) Update(ctx context.Context, owner, id string, fields docmodel.Fields) error {
	c, err := r.client()
	if err != nil {
		return err
	}
	defer c.Close()

	if r.owned {
		if _, err := r.get(ctx, c, owner, id); err != nil {
			return err
		}
	}
	data := make(docmodel.Fields, len(fields))
	for k, v := range fields {
		if r.owned && k == model.FieldUserID {
			continue
		}
		data[k] = v
	}
	if !c.Update(ctx, id, data) {
		return failure(c.LastCause())
	}
	return nil
}

func (r *resource[T, PT]) Remove(ctx context.Context, owner, id string) error {
	c, err := r.client()
	if err != nil {
		return err
	}
	defer c.Close()

	if r.owned {
		if _, err := r.get(ctx, c, owner, id); err != nil {
			return err
		}
	}
	if !c.Remove(ctx, id) {
		return failure(c.LastCause())
	}
	r.logger.WithContext(ctx).Infof("document %s removed", id)
	return nil
}

func (r *resource[T, PT]) Watch(owner string, opts *collection.QueryOptions, push func(interface{})) (*Watch, error) {
	c, err := r.client()
	if err != nil {
		return nil, err
	}
	sub := c.Subscribe(r.scope(owner, opts), func(docs []T) { push(docs) })
	return r.watching(c, sub)
}

func (r *resource[T, PT]) WatchDocument(owner, id string, push func(interface{})) (*Watch, error) {
	c, err := r.client()
	if err != nil {
		return nil, err
	}
	sub := c.SubscribeToDocument(id, func(doc *T) {
		if doc == nil || !r.belongsTo(doc, owner) {
			push(nil)
			return
		}
		push(doc)
	})
	return r.watching(c, sub)
}

func (r *resource[T, PT]) watching(c *collection.Client[T, PT], sub *collection.Subscription) (*Watch, error) {
	if err := sub.Err(); err != nil {
		c.Close()
		return nil, failure(c.LastCause())
	}
	return &Watch{sub: sub, stop: c.Close}, nil
}

// failure turns the error a client recorded into an AppError.
func failure(cause error) error {
	var appErr *apperrors.AppError
	switch {
	case cause == nil:
		return apperrors.NewInternalError("operation failed")
	case errors.Is(cause, apperrors.ErrDocumentNotFound):
		return apperrors.NewNotFoundError("Document").WithCause(cause)
	case apperrors.IsValidation(cause):
		return apperrors.NewValidationError(cause.Error()).WithCause(cause)
	case errors.As(cause, &appErr):
		return appErr
	default:
		return apperrors.NewInfrastructureError(cause.Error()).WithCause(cause)
	}
}
