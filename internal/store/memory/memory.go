// Package memory is an in-process implementation of the back-office stores.
// A single mutex serialises access; InTx snapshots the whole state and
// restores it when the callback fails, which gives the same all-or-nothing
// behaviour as a database transaction.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"smartlotto.org/internal/apperr"
	"smartlotto.org/internal/audit"
	"smartlotto.org/internal/auth"
	"smartlotto.org/internal/backoffice"
	"smartlotto.org/internal/mutation"
	"smartlotto.org/internal/paging"
)

var (
	_ backoffice.Stores = (*Store)(nil)
	_ auth.UserStore    = (*userStore)(nil)
)

type state struct {
	enterprises map[int64]backoffice.Enterprise
	customers   map[int64]backoffice.Customer
	itemTypes   map[int64]backoffice.ItemType
	orders      map[int64]backoffice.Order
	orderItems  map[int64]backoffice.OrderItem
	quickNotes  map[int64]backoffice.QuickNote
	lotteries   map[int64]backoffice.Lottery
	users       map[int64]auth.User
	changeLogs  []audit.Entry
	seq         map[string]int64
}

func newState() *state {
	return &state{
		enterprises: map[int64]backoffice.Enterprise{},
		customers:   map[int64]backoffice.Customer{},
		itemTypes:   map[int64]backoffice.ItemType{},
		orders:      map[int64]backoffice.Order{},
		orderItems:  map[int64]backoffice.OrderItem{},
		quickNotes:  map[int64]backoffice.QuickNote{},
		lotteries:   map[int64]backoffice.Lottery{},
		users:       map[int64]auth.User{},
		seq:         map[string]int64{},
	}
}

func (s *state) clone() *state {
	return &state{
		enterprises: cloneMap(s.enterprises),
		customers:   cloneMap(s.customers),
		itemTypes:   cloneMap(s.itemTypes),
		orders:      cloneMap(s.orders),
		orderItems:  cloneMap(s.orderItems),
		quickNotes:  cloneMap(s.quickNotes),
		lotteries:   cloneMap(s.lotteries),
		users:       cloneMap(s.users),
		changeLogs:  append([]audit.Entry(nil), s.changeLogs...),
		seq:         cloneMap(s.seq),
	}
}

func (s *state) next(name string) int64 {
	s.seq[name]++
	return s.seq[name]
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source for created_at/updated_at.
func WithClock(fn func() time.Time) Option {
	return func(s *Store) {
		if fn != nil {
			s.now = fn
		}
	}
}

// WithChangeLogHook installs fn in front of every change log append. A non-nil
// error aborts the append, which lets tests exercise audit failures.
func WithChangeLogHook(fn func(*audit.Entry) error) Option {
	return func(s *Store) { s.hook = fn }
}

// Store holds all back-office state in memory.
type Store struct {
	mu   sync.Mutex
	st   *state
	now  func() time.Time
	hook func(*audit.Entry) error
}

// New returns an empty Store.
func New(opts ...Option) *Store {
	s := &Store{st: newState(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Enterprises() mutation.Store[backoffice.Enterprise, backoffice.EnterpriseInput, backoffice.EnterprisePatch] {
	return &table[backoffice.Enterprise, backoffice.EnterpriseInput, backoffice.EnterprisePatch]{db: s, def: enterprises}
}

func (s *Store) Customers() mutation.Store[backoffice.Customer, backoffice.CustomerInput, backoffice.CustomerPatch] {
	return &table[backoffice.Customer, backoffice.CustomerInput, backoffice.CustomerPatch]{db: s, def: customers}
}

func (s *Store) ItemTypes() mutation.Store[backoffice.ItemType, backoffice.ItemTypeInput, backoffice.ItemTypePatch] {
	return &table[backoffice.ItemType, backoffice.ItemTypeInput, backoffice.ItemTypePatch]{db: s, def: itemTypes}
}

func (s *Store) Orders() mutation.Store[backoffice.Order, backoffice.OrderInput, backoffice.OrderPatch] {
	return &table[backoffice.Order, backoffice.OrderInput, backoffice.OrderPatch]{db: s, def: orders}
}

func (s *Store) OrderItems() mutation.Store[backoffice.OrderItem, backoffice.OrderItemInput, backoffice.OrderItemPatch] {
	return &table[backoffice.OrderItem, backoffice.OrderItemInput, backoffice.OrderItemPatch]{db: s, def: orderItems}
}

func (s *Store) QuickNotes() mutation.Store[backoffice.QuickNote, backoffice.QuickNoteInput, backoffice.QuickNotePatch] {
	return &table[backoffice.QuickNote, backoffice.QuickNoteInput, backoffice.QuickNotePatch]{db: s, def: quickNotes}
}

func (s *Store) Lotteries() mutation.Store[backoffice.Lottery, backoffice.LotteryInput, backoffice.LotteryPatch] {
	return &table[backoffice.Lottery, backoffice.LotteryInput, backoffice.LotteryPatch]{db: s, def: lotteries}
}

func (s *Store) ChangeLogs() audit.Reader { return changeLogReader{db: s} }

// Users returns the credential store.
func (s *Store) Users() auth.UserStore { return &userStore{db: s} }

// SeedEnterprise inserts a tenant without auditing. Used by fixtures.
func (s *Store) SeedEnterprise(name string) backoffice.Enterprise {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now().UTC()
	e := backoffice.Enterprise{ID: s.st.next("enterprise"), Name: name, CreatedAt: now, UpdatedAt: now}
	s.st.enterprises[e.ID] = e
	return e
}

// Ping reports whether the store is usable. It always is.
func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

func (s *Store) appendChangeLog(entry *audit.Entry) error {
	if s.hook != nil {
		if err := s.hook(entry); err != nil {
			return err
		}
	}
	entry.ID = s.st.next("change_log")
	s.st.changeLogs = append(s.st.changeLogs, *entry)
	return nil
}

// def describes one entity table. build and apply run with the store lock
// held and may consult other tables to check references.
type def[T mutation.Record, C any, P mutation.Patch] struct {
	name  string
	rows  func(*state) map[int64]T
	build func(st *state, actor audit.Actor, id int64, in C, now time.Time) (T, error)
	apply func(st *state, actor audit.Actor, row T, p P, now time.Time) (T, error)
	inUse func(st *state, row T) bool
}

func (d def[T, C, P]) find(st *state, tenantID, id int64) (T, error) {
	row, ok := d.rows(st)[id]
	if !ok || row.TenantID() != tenantID {
		var zero T
		return zero, apperr.NotFound("memory."+d.name+".find", d.name+" not found")
	}
	return row, nil
}

type table[T mutation.Record, C any, P mutation.Patch] struct {
	db  *Store
	def def[T, C, P]
}

func (t *table[T, C, P]) tx() *txTable[T, C, P] { return &txTable[T, C, P]{db: t.db, def: t.def} }

func (t *table[T, C, P]) Find(ctx context.Context, tenantID, id int64) (T, error) {
	t.db.mu.Lock()
	defer t.db.mu.Unlock()
	return t.tx().Find(ctx, tenantID, id)
}

func (t *table[T, C, P]) Insert(ctx context.Context, actor audit.Actor, in C) (T, error) {
	t.db.mu.Lock()
	defer t.db.mu.Unlock()
	return t.tx().Insert(ctx, actor, in)
}

func (t *table[T, C, P]) Update(ctx context.Context, actor audit.Actor, id int64, p P) (T, error) {
	t.db.mu.Lock()
	defer t.db.mu.Unlock()
	return t.tx().Update(ctx, actor, id, p)
}

func (t *table[T, C, P]) Delete(ctx context.Context, tenantID, id int64) (T, error) {
	t.db.mu.Lock()
	defer t.db.mu.Unlock()
	return t.tx().Delete(ctx, tenantID, id)
}

func (t *table[T, C, P]) List(ctx context.Context, tenantID int64, page paging.Request) ([]T, int, error) {
	t.db.mu.Lock()
	defer t.db.mu.Unlock()
	return t.tx().List(ctx, tenantID, page)
}

func (t *table[T, C, P]) InTx(ctx context.Context, fn func(ctx context.Context, tx mutation.Tx[T, C, P]) error) error {
	if err := ctx.Err(); err != nil {
		return apperr.Wrap(apperr.KindPersistence, "memory.begin", err)
	}
	t.db.mu.Lock()
	defer t.db.mu.Unlock()
	snapshot := t.db.st.clone()
	if err := fn(ctx, t.tx()); err != nil {
		t.db.st = snapshot
		return err
	}
	return nil
}

// txTable operates on the live state and expects the store lock to be held.
type txTable[T mutation.Record, C any, P mutation.Patch] struct {
	db  *Store
	def def[T, C, P]
}

func (t *txTable[T, C, P]) Find(_ context.Context, tenantID, id int64) (T, error) {
	return t.def.find(t.db.st, tenantID, id)
}

func (t *txTable[T, C, P]) Insert(_ context.Context, actor audit.Actor, in C) (T, error) {
	st := t.db.st
	row, err := t.def.build(st, actor, st.seq[t.def.name]+1, in, t.db.now().UTC())
	if err != nil {
		return row, err
	}
	st.next(t.def.name)
	t.def.rows(st)[row.RecordID()] = row
	return row, nil
}

func (t *txTable[T, C, P]) Update(_ context.Context, actor audit.Actor, id int64, p P) (T, error) {
	st := t.db.st
	row, err := t.def.find(st, actor.EnterpriseID, id)
	if err != nil {
		return row, err
	}
	row, err = t.def.apply(st, actor, row, p, t.db.now().UTC())
	if err != nil {
		return row, err
	}
	t.def.rows(st)[id] = row
	return row, nil
}

func (t *txTable[T, C, P]) Delete(_ context.Context, tenantID, id int64) (T, error) {
	st := t.db.st
	row, err := t.def.find(st, tenantID, id)
	if err != nil {
		return row, err
	}
	if t.def.inUse != nil && t.def.inUse(st, row) {
		var zero T
		return zero, apperr.Conflict("memory."+t.def.name+".delete", t.def.name+" is still referenced")
	}
	delete(t.def.rows(st), id)
	return row, nil
}

func (t *txTable[T, C, P]) List(_ context.Context, tenantID int64, page paging.Request) ([]T, int, error) {
	var rows []T
	for _, row := range t.def.rows(t.db.st) {
		if row.TenantID() == tenantID {
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].RecordID() < rows[j].RecordID() })
	start, end := paging.Window(len(rows), page)
	return rows[start:end], len(rows), nil
}

func (t *txTable[T, C, P]) AppendChangeLog(_ context.Context, entry *audit.Entry) error {
	return t.db.appendChangeLog(entry)
}

type changeLogReader struct{ db *Store }

func (r changeLogReader) ListChangeLogs(_ context.Context, enterpriseID int64, f audit.Filter) ([]audit.Entry, int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var matched []audit.Entry
	logs := r.db.st.changeLogs
	for i := len(logs) - 1; i >= 0; i-- {
		e := logs[i]
		if e.EnterpriseID != enterpriseID {
			continue
		}
		if f.Entity != "" && e.Entity != f.Entity {
			continue
		}
		if f.EntityID != 0 && e.EntityID != f.EntityID {
			continue
		}
		matched = append(matched, e)
	}
	start, end := paging.Window(len(matched), f.Page)
	return matched[start:end], len(matched), nil
}
