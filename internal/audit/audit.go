package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"smartlotto.org/internal/apperr"
	"smartlotto.org/internal/paging"
)

// Entity identifies the resource kind a change log entry refers to.
type Entity string

const (
	EntityEnterprise Entity = "Enterprise"
	EntityCustomer   Entity = "Customer"
	EntityItemType   Entity = "ItemType"
	EntityOrder      Entity = "Order"
	EntityOrderItem  Entity = "OrderItem"
	EntityQuickNote  Entity = "QuickNote"
	EntityLottery    Entity = "Lottery"
)

var entities = map[Entity]struct{}{
	EntityEnterprise: {},
	EntityCustomer:   {},
	EntityItemType:   {},
	EntityOrder:      {},
	EntityOrderItem:  {},
	EntityQuickNote:  {},
	EntityLottery:    {},
}

// Valid reports whether e is one of the known entity tags.
func (e Entity) Valid() bool {
	_, ok := entities[e]
	return ok
}

// ParseEntity converts a raw tag into an Entity.
func ParseEntity(raw string) (Entity, error) {
	e := Entity(raw)
	if !e.Valid() {
		return "", apperr.BadRequest("audit.parse_entity", fmt.Sprintf("unknown entity %q", raw))
	}
	return e, nil
}

// Action is the kind of mutation recorded.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Valid reports whether a is create, update or delete.
func (a Action) Valid() bool {
	switch a {
	case ActionCreate, ActionUpdate, ActionDelete:
		return true
	}
	return false
}

// Actor is the authenticated user on whose behalf a mutation runs, bound to one tenant.
type Actor struct {
	UserID       int64
	EnterpriseID int64
}

// Entry is an immutable change log row.
type Entry struct {
	ID           int64           `json:"log_id"`
	Entity       Entity          `json:"entity_name"`
	Action       Action          `json:"action"`
	EntityID     int64           `json:"entity_id"`
	Before       json.RawMessage `json:"before_data"`
	After        json.RawMessage `json:"after_data"`
	UserID       int64           `json:"user_id"`
	EnterpriseID int64           `json:"enterprise_id"`
	ChangeTime   time.Time       `json:"change_time"`
}

// Event is the input of Writer.Record. Before and After hold record values;
// nil means the snapshot is absent.
type Event struct {
	Entity       Entity
	Action       Action
	EntityID     int64
	Before       any
	After        any
	UserID       int64
	EnterpriseID int64
}

// Appender persists an entry and assigns its ID. Implementations append only.
type Appender interface {
	AppendChangeLog(ctx context.Context, entry *Entry) error
}

// Filter narrows a change log listing. Zero values match everything.
type Filter struct {
	Entity   Entity
	EntityID int64
	Page     paging.Request
}

// Reader lists the change log of one tenant, newest first.
type Reader interface {
	ListChangeLogs(ctx context.Context, enterpriseID int64, f Filter) ([]Entry, int, error)
}

// Writer validates events and hands the resulting entries to an Appender.
type Writer struct {
	now func() time.Time
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithClock overrides the time source used for change_time.
func WithClock(fn func() time.Time) WriterOption {
	return func(w *Writer) {
		if fn != nil {
			w.now = fn
		}
	}
}

// NewWriter constructs a Writer.
func NewWriter(opts ...WriterOption) *Writer {
	w := &Writer{now: time.Now}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Record validates ev, snapshots its states and appends the entry through app.
// Every failure is reported as an audit failure so callers can tell it apart
// from a failed primary write.
func (w *Writer) Record(ctx context.Context, app Appender, ev Event) (Entry, error) {
	const op = "audit.record"
	if err := validate(ev); err != nil {
		return Entry{}, apperr.Wrap(apperr.KindAudit, op, err)
	}
	before, err := snapshot(ev.Before)
	if err != nil {
		return Entry{}, apperr.Wrap(apperr.KindAudit, op, fmt.Errorf("encode before_data: %w", err))
	}
	after, err := snapshot(ev.After)
	if err != nil {
		return Entry{}, apperr.Wrap(apperr.KindAudit, op, fmt.Errorf("encode after_data: %w", err))
	}
	entry := Entry{
		Entity:       ev.Entity,
		Action:       ev.Action,
		EntityID:     ev.EntityID,
		Before:       before,
		After:        after,
		UserID:       ev.UserID,
		EnterpriseID: ev.EnterpriseID,
		ChangeTime:   w.now().UTC(),
	}
	if err := app.AppendChangeLog(ctx, &entry); err != nil {
		return Entry{}, apperr.Wrap(apperr.KindAudit, op, err)
	}
	return entry, nil
}

func validate(ev Event) error {
	if !ev.Entity.Valid() {
		return fmt.Errorf("unknown entity %q", ev.Entity)
	}
	if !ev.Action.Valid() {
		return fmt.Errorf("unknown action %q", ev.Action)
	}
	if ev.EntityID <= 0 {
		return fmt.Errorf("entity id is required")
	}
	if ev.UserID <= 0 || ev.EnterpriseID <= 0 {
		return fmt.Errorf("actor and enterprise are required")
	}
	hasBefore, hasAfter := ev.Before != nil, ev.After != nil
	switch ev.Action {
	case ActionCreate:
		if hasBefore || !hasAfter {
			return fmt.Errorf("create requires after_data only")
		}
	case ActionUpdate:
		if !hasBefore || !hasAfter {
			return fmt.Errorf("update requires before_data and after_data")
		}
	case ActionDelete:
		if !hasBefore || hasAfter {
			return fmt.Errorf("delete requires before_data only")
		}
	}
	return nil
}

func snapshot(v any) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(data), nil
}
