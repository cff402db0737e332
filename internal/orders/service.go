package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// IdentityClient is the capability consumed from the users service.
type IdentityClient interface {
	Authorize(ctx context.Context, token string) (Principal, error)
	UserExists(ctx context.Context, userID int) (bool, error)
}

// InventoryClient is the capability consumed from the inventory service.
// Reserve is all-or-nothing per call: it either reserves every item or
// changes nothing and returns ErrInsufficientInventory.
type InventoryClient interface {
	Reserve(ctx context.Context, orderID string, items []Item) error
	Release(ctx context.Context, orderID string, items []Item) error
}

// Publisher schedules outbound notifications. Implementations must not block
// the caller; delivery is best-effort.
type Publisher interface {
	Publish(event, orderID string, data any)
}

// CreateOrder is the create payload. Status defaults to pending.
type CreateOrder struct {
	ID         string `json:"id"`
	UserID     int    `json:"user_id"`
	Items      []Item `json:"items"`
	TotalCents int64  `json:"total_cents"`
	Status     Status `json:"status,omitempty"`
}

// UpdateOrder is a partial update. Nil fields are left untouched. Item edits
// do not touch inventory; status changes carry the inventory effect the state
// machine requires.
type UpdateOrder struct {
	Status     *Status `json:"status,omitempty"`
	Items      []Item  `json:"items,omitempty"`
	TotalCents *int64  `json:"total_cents,omitempty"`
}

// Service orchestrates the order saga: authorize, validate, reserve, persist,
// log, notify. It is stateless between calls; the store and event log are the
// source of truth.
type Service struct {
	store     Store
	events    EventLog
	identity  IdentityClient
	inventory InventoryClient
	notifier  Publisher
	logger    *zap.Logger
}

func NewService(store Store, events EventLog, identity IdentityClient, inventory InventoryClient, notifier Publisher, logger *zap.Logger) *Service {
	return &Service{
		store:     store,
		events:    events,
		identity:  identity,
		inventory: inventory,
		notifier:  notifier,
		logger:    logger,
	}
}

// errNoop aborts a store closure without treating it as a failure: the order
// is already in the requested state (or the patch was empty).
var errNoop = errors.New("no-op")

func (s *Service) authorize(ctx context.Context, token string) (Principal, error) {
	if token == "" {
		return Principal{}, ErrUnauthorized
	}
	return s.identity.Authorize(ctx, token)
}

func ownerCheck(p Principal, o *Order) error {
	if !p.Admin() && p.UserID != o.UserID {
		return ErrForbidden
	}
	return nil
}

// Create runs the create saga. On reservation failure nothing is persisted
// or logged. On persistence failure after a successful reservation a
// compensating release is issued exactly once before the error is returned.
func (s *Service) Create(ctx context.Context, token string, req CreateOrder) (*Order, error) {
	p, err := s.authorize(ctx, token)
	if err != nil {
		return nil, err
	}
	if req.Status == "" {
		req.Status = StatusPending
	}
	if err := ValidateCreate(req); err != nil {
		return nil, err
	}
	if !p.Admin() && p.UserID != req.UserID {
		return nil, ErrForbidden
	}
	if p.Admin() && p.UserID != req.UserID {
		ok, err := s.identity.UserExists(ctx, req.UserID)
		if err != nil {
			return nil, fmt.Errorf("resolve user %d: %w", req.UserID, err)
		}
		if !ok {
			return nil, invalid("unknown user %d", req.UserID)
		}
	}

	o := &Order{
		ID:         req.ID,
		UserID:     req.UserID,
		Items:      append([]Item(nil), req.Items...),
		TotalCents: req.TotalCents,
		Status:     req.Status,
	}

	// Orders born cancelled hold no reservation.
	reserved := o.Status != StatusCancelled
	if reserved {
		if err := s.inventory.Reserve(ctx, o.ID, o.Items); err != nil {
			return nil, err
		}
	}

	if err := s.store.Create(ctx, o); err != nil {
		if reserved {
			if cErr := s.compensateRelease(ctx, o.ID, o.Items); cErr != nil {
				return nil, cErr
			}
		}
		return nil, err
	}

	s.appendEvent(ctx, &Event{
		OrderID:     o.ID,
		Type:        EventCreated,
		ActorUserID: p.UserID,
		NewValue:    snapshot(o),
	})
	s.notifier.Publish(NotifyOrderCreated, o.ID, o)
	return o, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Order, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, offset, limit int) ([]Order, error) {
	return s.store.List(ctx, offset, limit)
}

// Update applies a partial update under per-order exclusion. Status changes
// go through the state machine; the required inventory effect runs before the
// new status is committed, so a failed effect leaves the order untouched.
func (s *Service) Update(ctx context.Context, token, id string, patch UpdateOrder) (*Order, error) {
	p, err := s.authorize(ctx, token)
	if err != nil {
		return nil, err
	}
	return s.update(ctx, p, id, patch, false)
}

// Cancel moves the order to cancelled, releasing its reservation. Cancelling
// an already-cancelled order is an idempotent no-op, never a second release.
func (s *Service) Cancel(ctx context.Context, token, id string) (*Order, error) {
	p, err := s.authorize(ctx, token)
	if err != nil {
		return nil, err
	}
	cancelled := StatusCancelled
	return s.update(ctx, p, id, UpdateOrder{Status: &cancelled}, true)
}

// Reactivate moves a cancelled order back to pending, re-reserving its
// items. If stock was consumed in the interim it fails with
// ErrInsufficientInventory and the order stays cancelled.
func (s *Service) Reactivate(ctx context.Context, token, id string) (*Order, error) {
	p, err := s.authorize(ctx, token)
	if err != nil {
		return nil, err
	}
	pending := StatusPending
	return s.update(ctx, p, id, UpdateOrder{Status: &pending}, false)
}

func (s *Service) update(ctx context.Context, p Principal, id string, patch UpdateOrder, noopIfSameStatus bool) (*Order, error) {
	var (
		fieldsChanged bool
		statusChanged bool
		statusFrom    Status
		statusTo      Status
		beforeSnap    []byte
		reservedItems []Item
		releasedItems []Item
	)

	updated, err := s.store.Update(ctx, id, func(o *Order) error {
		if err := ownerCheck(p, o); err != nil {
			return err
		}
		beforeSnap = snapshot(o)

		if patch.Items != nil {
			newTotal := Sum(patch.Items)
			if patch.TotalCents != nil && *patch.TotalCents != newTotal {
				return invalid("total %d does not match item sum %d", *patch.TotalCents, newTotal)
			}
			if err := ValidateItems(patch.Items, newTotal); err != nil {
				return err
			}
			o.Items = append([]Item(nil), patch.Items...)
			o.TotalCents = newTotal
			fieldsChanged = true
		} else if patch.TotalCents != nil {
			// Total cannot drift from the item sum, so a lone total patch
			// only passes when it restates the computed value.
			if *patch.TotalCents != Sum(o.Items) {
				return invalid("total %d does not match item sum %d", *patch.TotalCents, Sum(o.Items))
			}
		}

		if patch.Status != nil {
			target := *patch.Status
			if target == o.Status {
				if noopIfSameStatus && !fieldsChanged {
					return errNoop
				}
				if !noopIfSameStatus {
					return ErrInvalidTransition
				}
			} else {
				eff, err := Transition(o.Status, target)
				if err != nil {
					return err
				}
				items := append([]Item(nil), o.Items...)
				switch eff {
				case EffectRelease:
					if err := s.inventory.Release(ctx, o.ID, items); err != nil {
						s.logger.Error("release failed, transition aborted",
							zap.String("order_id", o.ID), zap.Error(err))
						return fmt.Errorf("release reserved stock: %w", err)
					}
					releasedItems = items
				case EffectReserve:
					if err := s.inventory.Reserve(ctx, o.ID, items); err != nil {
						return err
					}
					reservedItems = items
				}
				statusFrom, statusTo = o.Status, target
				o.Status = target
				statusChanged = true
			}
		}

		if !fieldsChanged && !statusChanged {
			return errNoop
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, errNoop) {
			return s.store.Get(ctx, id)
		}
		// The closure succeeded once an inventory effect was recorded, so any
		// error past that point is a failed commit: undo the effect.
		if reservedItems != nil {
			if cErr := s.compensateRelease(ctx, id, reservedItems); cErr != nil {
				return nil, cErr
			}
		}
		if releasedItems != nil {
			if cErr := s.compensateReserve(ctx, id, releasedItems); cErr != nil {
				return nil, cErr
			}
		}
		return nil, err
	}

	if fieldsChanged {
		s.appendEvent(ctx, &Event{
			OrderID:     id,
			Type:        EventUpdated,
			ActorUserID: p.UserID,
			OldValue:    beforeSnap,
			NewValue:    snapshot(updated),
		})
		s.notifier.Publish(NotifyOrderUpdated, id, updated)
	}
	if statusChanged {
		s.appendEvent(ctx, &Event{
			OrderID:     id,
			Type:        EventStatusChanged,
			ActorUserID: p.UserID,
			OldValue:    snapshot(statusFrom),
			NewValue:    snapshot(statusTo),
		})
		s.notifier.Publish(NotifyOrderStatusChanged, id, updated)
	}
	return updated, nil
}

// Delete cancels the order first (releasing inventory; deleting without the
// release would leak the reservation), logs the deletion, then removes the
// record. Orders that cannot reach cancelled (delivered) cannot be deleted.
func (s *Service) Delete(ctx context.Context, token, id string) error {
	p, err := s.authorize(ctx, token)
	if err != nil {
		return err
	}

	cancelled := StatusCancelled
	o, err := s.update(ctx, p, id, UpdateOrder{Status: &cancelled}, true)
	if err != nil {
		return err
	}

	// Logged before removal so the audit trail survives the order record.
	s.appendEvent(ctx, &Event{
		OrderID:     id,
		Type:        EventDeleted,
		ActorUserID: p.UserID,
		OldValue:    snapshot(o),
	})

	err = s.store.Delete(ctx, id, func(cur *Order) error {
		if err := ownerCheck(p, cur); err != nil {
			return err
		}
		if cur.Status != StatusCancelled {
			// A concurrent reactivation slipped in; its reservation is live.
			return ErrInvalidTransition
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.notifier.Publish(NotifyOrderDeleted, id, o)
	return nil
}

// Timeline returns the audit events for an order, oldest first. Unknown
// orders yield an empty timeline, not an error.
func (s *Service) Timeline(ctx context.Context, id string) ([]Event, error) {
	return s.events.List(ctx, id)
}

func (s *Service) Analytics(ctx context.Context) (*Analytics, error) {
	return s.store.Analytics(ctx)
}

// compensateRelease undoes a reservation after a later saga step failed. It
// runs detached from the request context: the caller may already be gone, but
// the reservation landed and must be returned.
func (s *Service) compensateRelease(ctx context.Context, orderID string, items []Item) error {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.inventory.Release(cctx, orderID, items); err != nil {
		cerr := &ConsistencyError{OrderID: orderID, Err: err}
		s.logger.Error("compensating release failed, inventory leaked",
			zap.String("order_id", orderID), zap.Error(err))
		return cerr
	}
	return nil
}

// compensateReserve undoes a release when the status commit failed after the
// stock had already been returned.
func (s *Service) compensateReserve(ctx context.Context, orderID string, items []Item) error {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.inventory.Reserve(cctx, orderID, items); err != nil {
		cerr := &ConsistencyError{OrderID: orderID, Err: err}
		s.logger.Error("compensating re-reserve failed, stock drifted",
			zap.String("order_id", orderID), zap.Error(err))
		return cerr
	}
	return nil
}

// appendEvent records a mutation in the audit log. The mutation itself is
// already committed, so a failed append is logged rather than unwound.
func (s *Service) appendEvent(ctx context.Context, e *Event) {
	e.ID = uuid.NewString()
	e.CreatedAt = time.Now().UTC()
	if err := s.events.Append(ctx, e); err != nil {
		s.logger.Error("event append failed",
			zap.String("order_id", e.OrderID), zap.String("type", string(e.Type)), zap.Error(err))
	}
}
