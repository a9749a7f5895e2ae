// Package observe runs the delivery loop shared by providers that implement
// live queries by re-reading on change signals.
package observe

import (
	"reflect"
	"sync"

	"github.com/google/uuid"
)

// Observer re-reads its query whenever it is signalled and pushes the
// result when it differs from the last push. The first read is always
// pushed. Signals that arrive while a read is in flight coalesce.
type Observer struct {
	id      string
	read    func() (interface{}, error)
	push    func(interface{})
	onError func(error)

	dirty chan struct{}
	done  chan struct{}
	once  sync.Once

	mu  sync.Mutex
	err error
}

// New creates an observer that is already signalled once.
func New(read func() (interface{}, error), push func(interface{}), onError func(error)) *Observer {
	o := &Observer{
		id:      uuid.NewString(),
		read:    read,
		push:    push,
		onError: onError,
		dirty:   make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	o.Signal()
	return o
}

// ID identifies the observer.
func (o *Observer) ID() string { return o.id }

// Signal marks the observer dirty.
func (o *Observer) Signal() {
	select {
	case o.dirty <- struct{}{}:
	default:
	}
}

// Cancel stops the observer without reporting an error. Never blocks.
func (o *Observer) Cancel() {
	o.once.Do(func() { close(o.done) })
}

// Fail stops the observer and reports err, unless it was already stopped.
func (o *Observer) Fail(err error) {
	o.once.Do(func() {
		o.mu.Lock()
		o.err = err
		o.mu.Unlock()
		close(o.done)
	})
}

// Done is closed once the observer is stopped.
func (o *Observer) Done() <-chan struct{} { return o.done }

func (o *Observer) stopped() bool {
	select {
	case <-o.done:
		return true
	default:
		return false
	}
}

// Run delivers pushes until the observer is stopped. Call it on its own
// goroutine; pushes for one observer are therefore sequential.
func (o *Observer) Run() {
	var last interface{}
	first := true
	for {
		select {
		case <-o.done:
			o.mu.Lock()
			err := o.err
			o.mu.Unlock()
			if err != nil {
				o.onError(err)
			}
			return
		case <-o.dirty:
		}
		if o.stopped() {
			continue
		}

		current, err := o.read()
		if err != nil {
			o.Fail(err)
			continue
		}
		if !first && reflect.DeepEqual(current, last) {
			continue
		}
		if o.stopped() {
			continue
		}
		first = false
		last = current
		o.push(current)
	}
}
