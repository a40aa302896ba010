package mutation_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"smartlotto.org/internal/apperr"
	"smartlotto.org/internal/audit"
	"smartlotto.org/internal/backoffice"
	"smartlotto.org/internal/mutation"
	"smartlotto.org/internal/paging"
	"smartlotto.org/internal/store/memory"
)

type fixture struct {
	store   *memory.Store
	svc     *backoffice.Service
	actor   audit.Actor
	foreign audit.Actor
}

func newFixture(t *testing.T, opts ...memory.Option) fixture {
	t.Helper()
	store := memory.New(opts...)
	a := store.SeedEnterprise("Smart Lotto Thailand")
	b := store.SeedEnterprise("Smart Lotto International")
	return fixture{
		store:   store,
		svc:     backoffice.NewService(store),
		actor:   audit.Actor{UserID: 1, EnterpriseID: a.ID},
		foreign: audit.Actor{UserID: 2, EnterpriseID: b.ID},
	}
}

func (f fixture) logs(t *testing.T, actor audit.Actor) []audit.Entry {
	t.Helper()
	res, err := f.svc.ChangeLog(context.Background(), actor, audit.Filter{Page: paging.Request{Limit: paging.MaxLimit}})
	require.NoError(t, err)
	return res.Items
}

func jsonOf(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

func strp(s string) *string { return &s }

func johnDoe() backoffice.CustomerInput {
	return backoffice.CustomerInput{Name: "John Doe", Code: "JD123", Email: "john@example.com"}
}

func TestCreateRecordsAfterSnapshot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c, err := f.svc.Customers.Create(ctx, f.actor, johnDoe())
	require.NoError(t, err)
	require.Equal(t, f.actor.EnterpriseID, c.EnterpriseID)

	logs := f.logs(t, f.actor)
	require.Len(t, logs, 1)
	entry := logs[0]
	require.Equal(t, audit.ActionCreate, entry.Action)
	require.Equal(t, audit.EntityCustomer, entry.Entity)
	require.Equal(t, c.ID, entry.EntityID)
	require.Equal(t, f.actor.UserID, entry.UserID)
	require.Nil(t, entry.Before)
	require.JSONEq(t, jsonOf(t, c), string(entry.After))

	var after map[string]any
	require.NoError(t, json.Unmarshal(entry.After, &after))
	require.Equal(t, "John Doe", after["customer_name"])
}

func TestUpdateRecordsBeforeAndAfter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	before, err := f.svc.Customers.Create(ctx, f.actor, johnDoe())
	require.NoError(t, err)

	after, err := f.svc.Customers.Update(ctx, f.actor, before.ID, backoffice.CustomerPatch{Email: strp("jd@example.com")})
	require.NoError(t, err)
	require.Equal(t, "jd@example.com", after.Email)
	require.Equal(t, "John Doe", after.Name)

	logs := f.logs(t, f.actor)
	require.Len(t, logs, 2)
	entry := logs[0]
	require.Equal(t, audit.ActionUpdate, entry.Action)
	require.JSONEq(t, jsonOf(t, before), string(entry.Before))
	require.JSONEq(t, jsonOf(t, after), string(entry.After))
}

func TestDeleteRecordsBeforeOnlyAndIsNotIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c, err := f.svc.Customers.Create(ctx, f.actor, johnDoe())
	require.NoError(t, err)

	require.NoError(t, f.svc.Customers.Delete(ctx, f.actor, c.ID))
	logs := f.logs(t, f.actor)
	require.Len(t, logs, 2)
	require.Equal(t, audit.ActionDelete, logs[0].Action)
	require.JSONEq(t, jsonOf(t, c), string(logs[0].Before))
	require.Nil(t, logs[0].After)

	err = f.svc.Customers.Delete(ctx, f.actor, c.ID)
	require.ErrorIs(t, err, apperr.ErrNotFound)
	require.Len(t, f.logs(t, f.actor), 2)

	_, err = f.svc.Customers.Get(ctx, f.actor, c.ID)
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestMissingIDWritesNoLog(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Customers.Update(ctx, f.actor, 404, backoffice.CustomerPatch{Name: strp("x")})
	require.ErrorIs(t, err, apperr.ErrNotFound)
	err = f.svc.Customers.Delete(ctx, f.actor, 404)
	require.ErrorIs(t, err, apperr.ErrNotFound)
	require.Empty(t, f.logs(t, f.actor))
}

func TestForeignTenantRowIsNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	theirs, err := f.svc.Customers.Create(ctx, f.foreign, johnDoe())
	require.NoError(t, err)

	_, err = f.svc.Customers.Get(ctx, f.actor, theirs.ID)
	require.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = f.svc.Customers.Update(ctx, f.actor, theirs.ID, backoffice.CustomerPatch{Name: strp("Mallory")})
	require.ErrorIs(t, err, apperr.ErrNotFound)
	err = f.svc.Customers.Delete(ctx, f.actor, theirs.ID)
	require.ErrorIs(t, err, apperr.ErrNotFound)

	got, err := f.svc.Customers.Get(ctx, f.foreign, theirs.ID)
	require.NoError(t, err)
	require.Equal(t, theirs, got)
	require.Empty(t, f.logs(t, f.actor))
	require.Len(t, f.logs(t, f.foreign), 1)
}

func TestForeignTenantReferenceIsNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	theirs, err := f.svc.Customers.Create(ctx, f.foreign, johnDoe())
	require.NoError(t, err)

	_, err = f.svc.Orders.Create(ctx, f.actor, backoffice.OrderInput{
		CustomerID: theirs.ID, TotalPrice: "100.00", OrderStatus: "Pending", PaymentStatus: "Unpaid",
	})
	require.ErrorIs(t, err, apperr.ErrNotFound)
	require.Empty(t, f.logs(t, f.actor))
}

func TestAuditFailureRollsBackPrimaryWrite(t *testing.T) {
	disk := errors.New("change log unavailable")
	f := newFixture(t, memory.WithChangeLogHook(func(*audit.Entry) error { return disk }))
	ctx := context.Background()

	_, err := f.svc.Customers.Create(ctx, f.actor, johnDoe())
	require.ErrorIs(t, err, apperr.ErrAudit)
	require.ErrorIs(t, err, disk)
	require.NotErrorIs(t, err, apperr.ErrPersistence)

	page, err := f.svc.Customers.List(ctx, f.actor, paging.Request{})
	require.NoError(t, err)
	require.Zero(t, page.Total)
	require.Empty(t, page.Items)
}

func TestClaimedEnterpriseMustMatchCaller(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	in := johnDoe()
	in.EnterpriseID = f.foreign.EnterpriseID

	_, err := f.svc.Customers.Create(ctx, f.actor, in)
	require.ErrorIs(t, err, apperr.ErrUnauthorized)

	in.EnterpriseID = f.actor.EnterpriseID
	_, err = f.svc.Customers.Create(ctx, f.actor, in)
	require.NoError(t, err)
	require.Len(t, f.logs(t, f.actor), 1)
}

func TestRejectsEmptyPatchAndInvalidInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c, err := f.svc.Customers.Create(ctx, f.actor, johnDoe())
	require.NoError(t, err)

	_, err = f.svc.Customers.Update(ctx, f.actor, c.ID, backoffice.CustomerPatch{})
	require.ErrorIs(t, err, apperr.ErrBadRequest)

	_, err = f.svc.Customers.Create(ctx, f.actor, backoffice.CustomerInput{Name: "No Email", Code: "NE"})
	require.ErrorIs(t, err, apperr.ErrBadRequest)

	_, err = f.svc.Customers.Update(ctx, f.actor, c.ID, backoffice.CustomerPatch{Email: strp("not-an-email")})
	require.ErrorIs(t, err, apperr.ErrBadRequest)
	require.Len(t, f.logs(t, f.actor), 1)
}

func TestRequiresTenantBoundActor(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Customers.Create(context.Background(), audit.Actor{UserID: 1}, johnDoe())
	require.ErrorIs(t, err, apperr.ErrUnauthorized)
}

func TestCreateManyIsAtomic(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c, err := f.svc.Customers.Create(ctx, f.actor, johnDoe())
	require.NoError(t, err)
	o, err := f.svc.Orders.Create(ctx, f.actor, backoffice.OrderInput{
		CustomerID: c.ID, TotalPrice: "150.50", OrderStatus: "Pending", PaymentStatus: "Unpaid",
	})
	require.NoError(t, err)
	it, err := f.svc.ItemTypes.Create(ctx, f.actor, backoffice.ItemTypeInput{TypeName: "2 top"})
	require.NoError(t, err)
	theirType, err := f.svc.ItemTypes.Create(ctx, f.foreign, backoffice.ItemTypeInput{TypeName: "3 top"})
	require.NoError(t, err)
	logsBefore := len(f.logs(t, f.actor))

	good := backoffice.OrderItemInput{OrderID: o.ID, NumberValue: "12", ItemTypeID: it.ID, Quantity: 2, Price: "50.00"}
	bad := good
	bad.ItemTypeID = theirType.ID

	_, err = f.svc.OrderItems.CreateMany(ctx, f.actor, []backoffice.OrderItemInput{good, bad})
	require.ErrorIs(t, err, apperr.ErrNotFound)
	page, err := f.svc.OrderItems.List(ctx, f.actor, paging.Request{})
	require.NoError(t, err)
	require.Zero(t, page.Total)
	require.Len(t, f.logs(t, f.actor), logsBefore)

	second := good
	second.NumberValue = "34"
	items, err := f.svc.OrderItems.CreateMany(ctx, f.actor, []backoffice.OrderItemInput{good, second})
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Len(t, f.logs(t, f.actor), logsBefore+2)

	_, err = f.svc.OrderItems.CreateMany(ctx, f.actor, nil)
	require.ErrorIs(t, err, apperr.ErrBadRequest)
}

func TestEnterpriseCreateIsAttributedToNewTenant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	e, err := f.svc.Enterprises.Create(ctx, f.actor, backoffice.EnterpriseInput{Name: "Smart Lotto Laos"})
	require.NoError(t, err)
	require.Empty(t, f.logs(t, f.actor))

	newTenant := audit.Actor{UserID: f.actor.UserID, EnterpriseID: e.ID}
	logs := f.logs(t, newTenant)
	require.Len(t, logs, 1)
	require.Equal(t, audit.EntityEnterprise, logs[0].Entity)
	require.Equal(t, e.ID, logs[0].EntityID)

	// Only the caller's own enterprise can be changed.
	_, err = f.svc.Enterprises.Update(ctx, f.actor, e.ID, backoffice.EnterprisePatch{Name: strp("x")})
	require.ErrorIs(t, err, apperr.ErrNotFound)
	renamed, err := f.svc.Enterprises.Update(ctx, f.actor, f.actor.EnterpriseID, backoffice.EnterprisePatch{Name: strp("Smart Lotto TH")})
	require.NoError(t, err)
	require.Equal(t, "Smart Lotto TH", renamed.Name)
}

func TestListPassesPagingThrough(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, name := range []string{"a", "b", "c"} {
		_, err := f.svc.ItemTypes.Create(ctx, f.actor, backoffice.ItemTypeInput{TypeName: name})
		require.NoError(t, err)
	}
	page, err := f.svc.ItemTypes.List(ctx, f.actor, paging.Request{Page: 2, Limit: 2})
	require.NoError(t, err)
	require.Equal(t, 3, page.Total)
	require.Equal(t, 2, page.Page)
	require.Equal(t, 2, page.Limit)
	require.Len(t, page.Items, 1)
	require.Equal(t, "c", page.Items[0].TypeName)
	require.Equal(t, f.actor.UserID, page.Items[0].LastModifiedBy)
}

var _ mutation.Patch = backoffice.OrderPatch{}
