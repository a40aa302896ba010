package mutation

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"smartlotto.org/internal/apperr"
	"smartlotto.org/internal/audit"
	"smartlotto.org/internal/obs"
	"smartlotto.org/internal/paging"
)

// Option configures a Resource.
type Option func(*options)

type options struct {
	writer        *audit.Writer
	createsTenant bool
}

// WithWriter replaces the default audit writer.
func WithWriter(w *audit.Writer) Option {
	return func(o *options) {
		if w != nil {
			o.writer = w
		}
	}
}

// CreatesTenant marks a resource whose rows are tenants themselves. The
// change log entry of a create is attributed to the new tenant.
func CreatesTenant() Option {
	return func(o *options) { o.createsTenant = true }
}

// Resource runs authorized, audited mutations for one entity kind.
type Resource[T Record, C any, P Patch] struct {
	entity audit.Entity
	store  Store[T, C, P]
	opts   options
}

// New builds a Resource for entity backed by store.
func New[T Record, C any, P Patch](entity audit.Entity, store Store[T, C, P], opts ...Option) *Resource[T, C, P] {
	o := options{writer: audit.NewWriter()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Resource[T, C, P]{entity: entity, store: store, opts: o}
}

// Entity returns the change log tag of the resource.
func (r *Resource[T, C, P]) Entity() audit.Entity { return r.entity }

// Create inserts in and records a create entry with after_data equal to the new row.
func (r *Resource[T, C, P]) Create(ctx context.Context, actor audit.Actor, in C) (T, error) {
	op := r.op("create")
	var out T
	err := r.precheck(op, actor, in)
	if err == nil {
		err = r.store.InTx(ctx, func(ctx context.Context, tx Tx[T, C, P]) error {
			rec, err := r.insert(ctx, op, tx, actor, in)
			if err != nil {
				return err
			}
			out = rec
			return nil
		})
	}
	return out, r.finish(ctx, op, audit.ActionCreate, err)
}

// CreateMany inserts every input and its change log entry in one transaction.
// Nothing is written if any input is rejected.
func (r *Resource[T, C, P]) CreateMany(ctx context.Context, actor audit.Actor, ins []C) ([]T, error) {
	op := r.op("create_many")
	var err error
	if len(ins) == 0 {
		err = apperr.BadRequest(op, "at least one item is required")
	}
	for i := 0; err == nil && i < len(ins); i++ {
		if err = r.precheck(op, actor, ins[i]); err != nil {
			err = fmt.Errorf("item %d: %w", i, err)
		}
	}
	var out []T
	if err == nil {
		err = r.store.InTx(ctx, func(ctx context.Context, tx Tx[T, C, P]) error {
			created := make([]T, 0, len(ins))
			for _, in := range ins {
				rec, err := r.insert(ctx, op, tx, actor, in)
				if err != nil {
					return err
				}
				created = append(created, rec)
			}
			out = created
			return nil
		})
	}
	if err := r.finish(ctx, op, audit.ActionCreate, err); err != nil {
		return nil, err
	}
	return out, nil
}

// Update reads the caller's row, applies patch and records before and after
// snapshots. A missing or foreign row is NotFound and nothing is written.
func (r *Resource[T, C, P]) Update(ctx context.Context, actor audit.Actor, id int64, patch P) (T, error) {
	op := r.op("update")
	var out T
	err := r.precheck(op, actor, patch)
	if err == nil && patch.IsEmpty() {
		err = apperr.BadRequest(op, "nothing to update")
	}
	if err == nil {
		err = r.store.InTx(ctx, func(ctx context.Context, tx Tx[T, C, P]) error {
			before, err := tx.Find(ctx, actor.EnterpriseID, id)
			if err != nil {
				return apperr.Persistence(op, err)
			}
			after, err := tx.Update(ctx, actor, id, patch)
			if err != nil {
				return apperr.Persistence(op, err)
			}
			if _, err := r.opts.writer.Record(ctx, tx, audit.Event{
				Entity:       r.entity,
				Action:       audit.ActionUpdate,
				EntityID:     id,
				Before:       before,
				After:        after,
				UserID:       actor.UserID,
				EnterpriseID: actor.EnterpriseID,
			}); err != nil {
				return err
			}
			out = after
			return nil
		})
	}
	return out, r.finish(ctx, op, audit.ActionUpdate, err)
}

// Delete removes the caller's row and records its last state. Repeating a
// delete yields NotFound.
func (r *Resource[T, C, P]) Delete(ctx context.Context, actor audit.Actor, id int64) error {
	op := r.op("delete")
	err := checkActor(op, actor)
	if err == nil {
		err = r.store.InTx(ctx, func(ctx context.Context, tx Tx[T, C, P]) error {
			before, err := tx.Find(ctx, actor.EnterpriseID, id)
			if err != nil {
				return apperr.Persistence(op, err)
			}
			if _, err := tx.Delete(ctx, actor.EnterpriseID, id); err != nil {
				return apperr.Persistence(op, err)
			}
			_, err = r.opts.writer.Record(ctx, tx, audit.Event{
				Entity:       r.entity,
				Action:       audit.ActionDelete,
				EntityID:     id,
				Before:       before,
				UserID:       actor.UserID,
				EnterpriseID: actor.EnterpriseID,
			})
			return err
		})
	}
	return r.finish(ctx, op, audit.ActionDelete, err)
}

// Get returns the caller's row with the given id.
func (r *Resource[T, C, P]) Get(ctx context.Context, actor audit.Actor, id int64) (T, error) {
	op := r.op("get")
	if err := checkActor(op, actor); err != nil {
		var zero T
		return zero, err
	}
	rec, err := r.store.Find(ctx, actor.EnterpriseID, id)
	return rec, apperr.Persistence(op, err)
}

// List returns one page of the caller's rows.
func (r *Resource[T, C, P]) List(ctx context.Context, actor audit.Actor, page paging.Request) (paging.Result[T], error) {
	op := r.op("list")
	if err := checkActor(op, actor); err != nil {
		return paging.Result[T]{}, err
	}
	page = page.Normalize()
	items, total, err := r.store.List(ctx, actor.EnterpriseID, page)
	if err != nil {
		return paging.Result[T]{}, apperr.Persistence(op, err)
	}
	return paging.NewResult(items, total, page), nil
}

func (r *Resource[T, C, P]) insert(ctx context.Context, op string, tx Tx[T, C, P], actor audit.Actor, in C) (T, error) {
	rec, err := tx.Insert(ctx, actor, in)
	if err != nil {
		return rec, apperr.Persistence(op, err)
	}
	tenant := actor.EnterpriseID
	if r.opts.createsTenant {
		tenant = rec.TenantID()
	}
	_, err = r.opts.writer.Record(ctx, tx, audit.Event{
		Entity:       r.entity,
		Action:       audit.ActionCreate,
		EntityID:     rec.RecordID(),
		After:        rec,
		UserID:       actor.UserID,
		EnterpriseID: tenant,
	})
	return rec, err
}

func (r *Resource[T, C, P]) precheck(op string, actor audit.Actor, in any) error {
	if err := checkActor(op, actor); err != nil {
		return err
	}
	if c, ok := in.(TenantClaimer); ok {
		if claimed := c.ClaimedEnterprise(); claimed != 0 && claimed != actor.EnterpriseID {
			return apperr.Unauthorized(op, "enterprise_id does not match the caller's enterprise")
		}
	}
	if v, ok := in.(interface{ Validate() error }); ok {
		if err := v.Validate(); err != nil {
			return &apperr.Error{Kind: apperr.KindBadRequest, Op: op, Msg: err.Error()}
		}
	}
	return nil
}

func (r *Resource[T, C, P]) finish(ctx context.Context, op string, action audit.Action, err error) error {
	err = apperr.Persistence(op, err)
	outcome := "ok"
	if err != nil {
		outcome = string(apperr.KindOf(err))
	}
	obs.ObserveMutation(string(r.entity), string(action), outcome)
	if errors.Is(err, apperr.ErrAudit) {
		obs.LoggerFrom(ctx).Error("change log write failed; mutation rolled back",
			zap.String("entity", string(r.entity)),
			zap.String("action", string(action)),
			zap.Error(err))
	}
	return err
}

func (r *Resource[T, C, P]) op(action string) string {
	return "mutation." + string(r.entity) + "." + action
}

func checkActor(op string, actor audit.Actor) error {
	if actor.UserID <= 0 || actor.EnterpriseID <= 0 {
		return apperr.Unauthorized(op, "caller is not bound to an enterprise")
	}
	return nil
}
