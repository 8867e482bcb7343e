package transaction

import (
	"context"
	"database/sql"
	"sync"

	"github.com/authzed/controller-idioms/typedctx"
	"sigs.k8s.io/controller-runtime/pkg/log"
)

// ctxUnitOfWork carries the request-scoped storage for the slot
var ctxUnitOfWork = typedctx.NewKey[*unitOfWork]()

// unitOfWork is the request-scoped storage entry. Extract removes the slot
// from it so a second extraction can be told apart from a missing install.
type unitOfWork struct {
	mu   sync.Mutex
	slot *Slot[*LazyTx]
}

func (u *unitOfWork) remove() *Slot[*LazyTx] {
	u.mu.Lock()
	defer u.mu.Unlock()
	slot := u.slot
	u.slot = nil
	return slot
}

// Install creates a slot wrapping an unopened transaction on pool and
// stores it in the returned context
func Install(ctx context.Context, pool Pool, opts *sql.TxOptions) (context.Context, *Slot[*LazyTx]) {
	if _, ok := ctxUnitOfWork.Value(ctx); ok {
		log.FromContext(ctx).V(1).Info("Replacing transaction slot already present in request context")
	}
	slot := NewSlot(NewLazyTx(pool, opts))
	return ctxUnitOfWork.WithValue(ctx, &unitOfWork{slot: slot}), slot
}

// Extract hands the request's transaction to its single owner
func Extract(ctx context.Context) (*Handle, error) {
	uow, ok := ctxUnitOfWork.Value(ctx)
	if !ok || uow == nil {
		return nil, ErrMissingMiddleware
	}

	slot := uow.remove()
	if slot == nil {
		return nil, ErrMultipleExtractors
	}

	lazy, state := slot.Take()
	if state != StateFilled {
		return nil, ErrMultipleExtractors
	}

	return &Handle{slot: slot, lazy: lazy}, nil
}

// Handle is the owner's view of the request transaction
type Handle struct {
	slot *Slot[*LazyTx]
	lazy *LazyTx
}

// Tx returns the transaction, opening it on first use
func (h *Handle) Tx(ctx context.Context) (*sql.Tx, error) {
	return h.lazy.Begin(ctx)
}

// Commit finalizes the transaction early. Handlers normally leave this to
// the middleware.
func (h *Handle) Commit() error {
	lazy, state := h.slot.Steal()
	if state != StateFilled {
		return ErrMultipleExtractors
	}
	return lazy.Commit()
}

// Rollback discards the transaction early
func (h *Handle) Rollback() error {
	lazy, state := h.slot.Steal()
	if state != StateFilled {
		return ErrMultipleExtractors
	}
	return lazy.Rollback()
}
