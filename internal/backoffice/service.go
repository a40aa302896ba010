package backoffice

import (
	"context"

	"smartlotto.org/internal/apperr"
	"smartlotto.org/internal/audit"
	"smartlotto.org/internal/mutation"
	"smartlotto.org/internal/paging"
)

// Stores is the persistence backend of the back office.
type Stores interface {
	Enterprises() mutation.Store[Enterprise, EnterpriseInput, EnterprisePatch]
	Customers() mutation.Store[Customer, CustomerInput, CustomerPatch]
	ItemTypes() mutation.Store[ItemType, ItemTypeInput, ItemTypePatch]
	Orders() mutation.Store[Order, OrderInput, OrderPatch]
	OrderItems() mutation.Store[OrderItem, OrderItemInput, OrderItemPatch]
	QuickNotes() mutation.Store[QuickNote, QuickNoteInput, QuickNotePatch]
	Lotteries() mutation.Store[Lottery, LotteryInput, LotteryPatch]
	ChangeLogs() audit.Reader
}

type (
	EnterpriseResource = mutation.Resource[Enterprise, EnterpriseInput, EnterprisePatch]
	CustomerResource   = mutation.Resource[Customer, CustomerInput, CustomerPatch]
	ItemTypeResource   = mutation.Resource[ItemType, ItemTypeInput, ItemTypePatch]
	OrderResource      = mutation.Resource[Order, OrderInput, OrderPatch]
	OrderItemResource  = mutation.Resource[OrderItem, OrderItemInput, OrderItemPatch]
	QuickNoteResource  = mutation.Resource[QuickNote, QuickNoteInput, QuickNotePatch]
	LotteryResource    = mutation.Resource[Lottery, LotteryInput, LotteryPatch]
)

// Service exposes one audited resource per entity kind plus the change log.
type Service struct {
	Enterprises *EnterpriseResource
	Customers   *CustomerResource
	ItemTypes   *ItemTypeResource
	Orders      *OrderResource
	OrderItems  *OrderItemResource
	QuickNotes  *QuickNoteResource
	Lotteries   *LotteryResource

	changeLogs audit.Reader
}

// NewService binds every resource to stores. opts apply to all resources.
func NewService(stores Stores, opts ...mutation.Option) *Service {
	withTenant := append(append([]mutation.Option{}, opts...), mutation.CreatesTenant())
	return &Service{
		Enterprises: mutation.New(audit.EntityEnterprise, stores.Enterprises(), withTenant...),
		Customers:   mutation.New(audit.EntityCustomer, stores.Customers(), opts...),
		ItemTypes:   mutation.New(audit.EntityItemType, stores.ItemTypes(), opts...),
		Orders:      mutation.New(audit.EntityOrder, stores.Orders(), opts...),
		OrderItems:  mutation.New(audit.EntityOrderItem, stores.OrderItems(), opts...),
		QuickNotes:  mutation.New(audit.EntityQuickNote, stores.QuickNotes(), opts...),
		Lotteries:   mutation.New(audit.EntityLottery, stores.Lotteries(), opts...),
		changeLogs:  stores.ChangeLogs(),
	}
}

// ChangeLog lists the caller's change log, newest first.
func (s *Service) ChangeLog(ctx context.Context, actor audit.Actor, f audit.Filter) (paging.Result[audit.Entry], error) {
	const op = "backoffice.change_log"
	if actor.UserID <= 0 || actor.EnterpriseID <= 0 {
		return paging.Result[audit.Entry]{}, apperr.Unauthorized(op, "caller is not bound to an enterprise")
	}
	if f.Entity != "" && !f.Entity.Valid() {
		return paging.Result[audit.Entry]{}, apperr.BadRequest(op, "unknown entity "+string(f.Entity))
	}
	f.Page = f.Page.Normalize()
	entries, total, err := s.changeLogs.ListChangeLogs(ctx, actor.EnterpriseID, f)
	if err != nil {
		return paging.Result[audit.Entry]{}, apperr.Persistence(op, err)
	}
	return paging.NewResult(entries, total, f.Page), nil
}
