package reconcile

import (
	"errors"
	"fmt"
	"reflect"

	"datatables/node"
	"datatables/registry"

	"go.uber.org/zap"
)

// ErrTypeMismatch is returned when merging values of different types.
var ErrTypeMismatch = errors.New("merge of different types")

// Reconciler clones and merges values of types known to a registry.
type Reconciler struct {
	reg    *registry.Registry
	logger *zap.Logger
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithLogger sets the logger contract violations are reported to.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Reconciler) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func New(reg *registry.Registry, opts ...Option) *Reconciler {
	r := &Reconciler{
		reg:    reg,
		logger: zap.NewNop(),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

func (r *Reconciler) mismatch(msg string, target, source reflect.Type) error {
	r.logger.DPanic(msg,
		zap.String("target", node.TypeString(target)),
		zap.String("source", node.TypeString(source)))

	return fmt.Errorf("%w: %s into %s", ErrTypeMismatch, node.TypeString(source), node.TypeString(target))
}

func (r *Reconciler) isLeaf(t reflect.Type) bool {
	switch r.reg.Shape(t) {
	case node.DispatcherSlice, node.DispatcherMap, node.DispatcherStruct, node.DispatcherPointer:
		return false
	}

	return true
}
