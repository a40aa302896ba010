package memory

import (
	"time"

	"smartlotto.org/internal/apperr"
	"smartlotto.org/internal/audit"
	"smartlotto.org/internal/backoffice"
)

func sameTenant[T interface{ TenantID() int64 }](rows map[int64]T, id, tenantID int64) bool {
	row, ok := rows[id]
	return ok && row.TenantID() == tenantID
}

func refMissing(op, what string) error {
	return apperr.NotFound(op, what+" not found")
}

var enterprises = def[backoffice.Enterprise, backoffice.EnterpriseInput, backoffice.EnterprisePatch]{
	name: "enterprise",
	rows: func(st *state) map[int64]backoffice.Enterprise { return st.enterprises },
	build: func(_ *state, _ audit.Actor, id int64, in backoffice.EnterpriseInput, now time.Time) (backoffice.Enterprise, error) {
		return backoffice.Enterprise{ID: id, Name: in.Name, CreatedAt: now, UpdatedAt: now}, nil
	},
	apply: func(_ *state, _ audit.Actor, row backoffice.Enterprise, p backoffice.EnterprisePatch, now time.Time) (backoffice.Enterprise, error) {
		if p.Name != nil {
			row.Name = *p.Name
		}
		row.UpdatedAt = now
		return row, nil
	},
	inUse: func(st *state, row backoffice.Enterprise) bool {
		for _, u := range st.users {
			if u.EnterpriseID == row.ID {
				return true
			}
		}
		for _, c := range st.customers {
			if c.EnterpriseID == row.ID {
				return true
			}
		}
		for _, it := range st.itemTypes {
			if it.EnterpriseID == row.ID {
				return true
			}
		}
		for _, o := range st.orders {
			if o.EnterpriseID == row.ID {
				return true
			}
		}
		for _, l := range st.lotteries {
			if l.EnterpriseID == row.ID {
				return true
			}
		}
		return false
	},
}

var customers = def[backoffice.Customer, backoffice.CustomerInput, backoffice.CustomerPatch]{
	name: "customer",
	rows: func(st *state) map[int64]backoffice.Customer { return st.customers },
	build: func(_ *state, actor audit.Actor, id int64, in backoffice.CustomerInput, _ time.Time) (backoffice.Customer, error) {
		return backoffice.Customer{
			ID:           id,
			Name:         in.Name,
			Code:         in.Code,
			Email:        in.Email,
			EnterpriseID: actor.EnterpriseID,
		}, nil
	},
	apply: func(_ *state, _ audit.Actor, row backoffice.Customer, p backoffice.CustomerPatch, _ time.Time) (backoffice.Customer, error) {
		if p.Name != nil {
			row.Name = *p.Name
		}
		if p.Email != nil {
			row.Email = *p.Email
		}
		return row, nil
	},
	inUse: func(st *state, row backoffice.Customer) bool {
		for _, o := range st.orders {
			if o.CustomerID == row.ID {
				return true
			}
		}
		return false
	},
}

var itemTypes = def[backoffice.ItemType, backoffice.ItemTypeInput, backoffice.ItemTypePatch]{
	name: "item_type",
	rows: func(st *state) map[int64]backoffice.ItemType { return st.itemTypes },
	build: func(_ *state, actor audit.Actor, id int64, in backoffice.ItemTypeInput, _ time.Time) (backoffice.ItemType, error) {
		return backoffice.ItemType{
			ID:             id,
			TypeName:       in.TypeName,
			EnterpriseID:   actor.EnterpriseID,
			LastModifiedBy: actor.UserID,
		}, nil
	},
	apply: func(_ *state, actor audit.Actor, row backoffice.ItemType, p backoffice.ItemTypePatch, _ time.Time) (backoffice.ItemType, error) {
		if p.TypeName != nil {
			row.TypeName = *p.TypeName
		}
		row.LastModifiedBy = actor.UserID
		return row, nil
	},
	inUse: func(st *state, row backoffice.ItemType) bool {
		for _, it := range st.orderItems {
			if it.ItemTypeID == row.ID {
				return true
			}
		}
		return false
	},
}

var orders = def[backoffice.Order, backoffice.OrderInput, backoffice.OrderPatch]{
	name: "order",
	rows: func(st *state) map[int64]backoffice.Order { return st.orders },
	build: func(st *state, actor audit.Actor, id int64, in backoffice.OrderInput, _ time.Time) (backoffice.Order, error) {
		if !sameTenant(st.customers, in.CustomerID, actor.EnterpriseID) {
			return backoffice.Order{}, refMissing("memory.order.insert", "customer")
		}
		return backoffice.Order{
			ID:             id,
			CustomerID:     in.CustomerID,
			TotalPrice:     in.TotalPrice,
			OrderStatus:    in.OrderStatus,
			PaymentStatus:  in.PaymentStatus,
			PaySlipImage:   in.PaySlipImage,
			EnterpriseID:   actor.EnterpriseID,
			LastModifiedBy: actor.UserID,
		}, nil
	},
	apply: func(st *state, actor audit.Actor, row backoffice.Order, p backoffice.OrderPatch, _ time.Time) (backoffice.Order, error) {
		if p.CustomerID != nil {
			if !sameTenant(st.customers, *p.CustomerID, actor.EnterpriseID) {
				return row, refMissing("memory.order.update", "customer")
			}
			row.CustomerID = *p.CustomerID
		}
		if p.TotalPrice != nil {
			row.TotalPrice = *p.TotalPrice
		}
		if p.OrderStatus != nil {
			row.OrderStatus = *p.OrderStatus
		}
		if p.PaymentStatus != nil {
			row.PaymentStatus = *p.PaymentStatus
		}
		if p.PaySlipImage != nil {
			img := *p.PaySlipImage
			row.PaySlipImage = &img
		}
		row.LastModifiedBy = actor.UserID
		return row, nil
	},
	inUse: func(st *state, row backoffice.Order) bool {
		for _, it := range st.orderItems {
			if it.OrderID == row.ID {
				return true
			}
		}
		for _, n := range st.quickNotes {
			if n.OrderID == row.ID {
				return true
			}
		}
		return false
	},
}

var orderItems = def[backoffice.OrderItem, backoffice.OrderItemInput, backoffice.OrderItemPatch]{
	name: "order_item",
	rows: func(st *state) map[int64]backoffice.OrderItem { return st.orderItems },
	build: func(st *state, actor audit.Actor, id int64, in backoffice.OrderItemInput, _ time.Time) (backoffice.OrderItem, error) {
		const op = "memory.order_item.insert"
		if !sameTenant(st.orders, in.OrderID, actor.EnterpriseID) {
			return backoffice.OrderItem{}, refMissing(op, "order")
		}
		if !sameTenant(st.itemTypes, in.ItemTypeID, actor.EnterpriseID) {
			return backoffice.OrderItem{}, refMissing(op, "item type")
		}
		return backoffice.OrderItem{
			ID:             id,
			OrderID:        in.OrderID,
			NumberValue:    in.NumberValue,
			ItemTypeID:     in.ItemTypeID,
			Quantity:       in.Quantity,
			Price:          in.Price,
			EnterpriseID:   actor.EnterpriseID,
			LastModifiedBy: actor.UserID,
		}, nil
	},
	apply: func(st *state, actor audit.Actor, row backoffice.OrderItem, p backoffice.OrderItemPatch, _ time.Time) (backoffice.OrderItem, error) {
		const op = "memory.order_item.update"
		if p.OrderID != nil {
			if !sameTenant(st.orders, *p.OrderID, actor.EnterpriseID) {
				return row, refMissing(op, "order")
			}
			row.OrderID = *p.OrderID
		}
		if p.ItemTypeID != nil {
			if !sameTenant(st.itemTypes, *p.ItemTypeID, actor.EnterpriseID) {
				return row, refMissing(op, "item type")
			}
			row.ItemTypeID = *p.ItemTypeID
		}
		if p.NumberValue != nil {
			row.NumberValue = *p.NumberValue
		}
		if p.Quantity != nil {
			row.Quantity = *p.Quantity
		}
		if p.Price != nil {
			row.Price = *p.Price
		}
		row.LastModifiedBy = actor.UserID
		return row, nil
	},
}

var quickNotes = def[backoffice.QuickNote, backoffice.QuickNoteInput, backoffice.QuickNotePatch]{
	name: "quick_note",
	rows: func(st *state) map[int64]backoffice.QuickNote { return st.quickNotes },
	build: func(st *state, actor audit.Actor, id int64, in backoffice.QuickNoteInput, _ time.Time) (backoffice.QuickNote, error) {
		if !sameTenant(st.orders, in.OrderID, actor.EnterpriseID) {
			return backoffice.QuickNote{}, refMissing("memory.quick_note.insert", "order")
		}
		return backoffice.QuickNote{
			ID:             id,
			Description:    in.Description,
			OrderID:        in.OrderID,
			EnterpriseID:   actor.EnterpriseID,
			LastModifiedBy: actor.UserID,
		}, nil
	},
	apply: func(_ *state, actor audit.Actor, row backoffice.QuickNote, p backoffice.QuickNotePatch, _ time.Time) (backoffice.QuickNote, error) {
		if p.Description != nil {
			row.Description = *p.Description
		}
		row.LastModifiedBy = actor.UserID
		return row, nil
	},
}

var lotteries = def[backoffice.Lottery, backoffice.LotteryInput, backoffice.LotteryPatch]{
	name: "lottery",
	rows: func(st *state) map[int64]backoffice.Lottery { return st.lotteries },
	build: func(_ *state, actor audit.Actor, id int64, in backoffice.LotteryInput, _ time.Time) (backoffice.Lottery, error) {
		return backoffice.Lottery{
			ID:             id,
			Name:           in.Name,
			DrawDate:       in.DrawDate.UTC(),
			Status:         in.StatusOrDefault(),
			EnterpriseID:   actor.EnterpriseID,
			LastModifiedBy: actor.UserID,
		}, nil
	},
	apply: func(_ *state, actor audit.Actor, row backoffice.Lottery, p backoffice.LotteryPatch, _ time.Time) (backoffice.Lottery, error) {
		if p.Name != nil {
			row.Name = *p.Name
		}
		if p.DrawDate != nil {
			row.DrawDate = p.DrawDate.UTC()
		}
		if p.Status != nil {
			row.Status = *p.Status
		}
		row.LastModifiedBy = actor.UserID
		return row, nil
	},
}
