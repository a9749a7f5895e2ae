package repository

import (
	"context"

	"gym-assistant/internal/docstore/domain/model"
)

// CancelFunc stops an observation. It never blocks and is safe to call
// more than once.
type CancelFunc func()

// DocumentProvider is the boundary to a remote document store.
//
// ReadOne returns apperrors.ErrDocumentNotFound (wrapped) when the document
// does not exist. Write data may contain model.ServerTimestamp sentinels.
type DocumentProvider interface {
	ReadOne(ctx context.Context, collection, id string) (*model.Snapshot, error)
	ReadMany(ctx context.Context, collection string, c model.Constraints) ([]model.Snapshot, error)
	Insert(ctx context.Context, collection string, data model.Fields) (string, error)
	MergeUpdate(ctx context.Context, collection, id string, data model.Fields) error
	Delete(ctx context.Context, collection, id string) error

	// ObserveMany pushes the full matching set on start and after every
	// change. Calls to onNext for one observation are sequential.
	ObserveMany(collection string, c model.Constraints, onNext func([]model.Snapshot), onError func(error)) CancelFunc
	// ObserveOne pushes the document on start and after every change; a nil
	// snapshot means the document does not exist.
	ObserveOne(collection, id string, onNext func(*model.Snapshot), onError func(error)) CancelFunc
}

// ChangeNotifier fans out "collection changed" signals between writers and
// observers, possibly across processes.
type ChangeNotifier interface {
	Notify(ctx context.Context, collection string) error
	// Listen calls fn after every change to collection until the returned
	// function is called.
	Listen(collection string, fn func()) (stop func(), err error)
}
