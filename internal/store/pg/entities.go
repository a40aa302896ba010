package pg

import (
	"database/sql"

	"smartlotto.org/internal/audit"
	"smartlotto.org/internal/backoffice"
)

const numeric = "::text::numeric"

var enterprises = entity[backoffice.Enterprise, backoffice.EnterpriseInput, backoffice.EnterprisePatch]{
	name:    "enterprise",
	table:   "enterprises",
	idCol:   "enterprise_id",
	selects: "enterprise_id, enterprise_name, created_at, updated_at",
	scan: func(r scanner) (backoffice.Enterprise, error) {
		var e backoffice.Enterprise
		err := r.Scan(&e.ID, &e.Name, &e.CreatedAt, &e.UpdatedAt)
		return e, err
	},
	insertCols: []column{{name: "enterprise_name"}},
	insertArgs: func(_ audit.Actor, in backoffice.EnterpriseInput) []any {
		return []any{in.Name}
	},
	patch: func(_ audit.Actor, p backoffice.EnterprisePatch) []assign {
		var out []assign
		if p.Name != nil {
			out = append(out, assign{col: "enterprise_name", val: *p.Name})
		}
		return append(out, assign{col: "updated_at", raw: "now()"})
	},
}

var customers = entity[backoffice.Customer, backoffice.CustomerInput, backoffice.CustomerPatch]{
	name:    "customer",
	table:   "customers",
	idCol:   "customer_id",
	selects: "customer_id, customer_name, customer_code, customer_email, enterprise_id",
	scan: func(r scanner) (backoffice.Customer, error) {
		var c backoffice.Customer
		err := r.Scan(&c.ID, &c.Name, &c.Code, &c.Email, &c.EnterpriseID)
		return c, err
	},
	insertCols: []column{{name: "customer_name"}, {name: "customer_code"}, {name: "customer_email"}, {name: "enterprise_id"}},
	insertArgs: func(actor audit.Actor, in backoffice.CustomerInput) []any {
		return []any{in.Name, in.Code, in.Email, actor.EnterpriseID}
	},
	patch: func(_ audit.Actor, p backoffice.CustomerPatch) []assign {
		var out []assign
		if p.Name != nil {
			out = append(out, assign{col: "customer_name", val: *p.Name})
		}
		if p.Email != nil {
			out = append(out, assign{col: "customer_email", val: *p.Email})
		}
		return out
	},
}

var itemTypes = entity[backoffice.ItemType, backoffice.ItemTypeInput, backoffice.ItemTypePatch]{
	name:    "item_type",
	table:   "item_types",
	idCol:   "item_type_id",
	selects: "item_type_id, type_name, enterprise_id, last_modified_by",
	scan: func(r scanner) (backoffice.ItemType, error) {
		var it backoffice.ItemType
		err := r.Scan(&it.ID, &it.TypeName, &it.EnterpriseID, &it.LastModifiedBy)
		return it, err
	},
	insertCols: []column{{name: "type_name"}, {name: "enterprise_id"}, {name: "last_modified_by"}},
	insertArgs: func(actor audit.Actor, in backoffice.ItemTypeInput) []any {
		return []any{in.TypeName, actor.EnterpriseID, actor.UserID}
	},
	patch: func(actor audit.Actor, p backoffice.ItemTypePatch) []assign {
		var out []assign
		if p.TypeName != nil {
			out = append(out, assign{col: "type_name", val: *p.TypeName})
		}
		return append(out, assign{col: "last_modified_by", val: actor.UserID})
	},
}

var orders = entity[backoffice.Order, backoffice.OrderInput, backoffice.OrderPatch]{
	name:    "order",
	table:   "orders",
	idCol:   "order_id",
	selects: "order_id, customer_id, total_price::text, order_status, payment_status, pay_slip_image, enterprise_id, last_modified_by",
	scan: func(r scanner) (backoffice.Order, error) {
		var (
			o   backoffice.Order
			img sql.NullString
		)
		err := r.Scan(&o.ID, &o.CustomerID, &o.TotalPrice, &o.OrderStatus, &o.PaymentStatus, &img, &o.EnterpriseID, &o.LastModifiedBy)
		if img.Valid {
			o.PaySlipImage = &img.String
		}
		return o, err
	},
	insertCols: []column{
		{name: "customer_id"}, {name: "total_price", cast: numeric}, {name: "order_status"},
		{name: "payment_status"}, {name: "pay_slip_image"}, {name: "enterprise_id"}, {name: "last_modified_by"},
	},
	insertArgs: func(actor audit.Actor, in backoffice.OrderInput) []any {
		return []any{in.CustomerID, in.TotalPrice, in.OrderStatus, in.PaymentStatus, nullString(in.PaySlipImage), actor.EnterpriseID, actor.UserID}
	},
	insertRefs: func(in backoffice.OrderInput) []ref {
		return []ref{{table: "customers", col: "customer_id", id: in.CustomerID, what: "customer"}}
	},
	patch: func(actor audit.Actor, p backoffice.OrderPatch) []assign {
		var out []assign
		if p.CustomerID != nil {
			out = append(out, assign{col: "customer_id", val: *p.CustomerID})
		}
		if p.TotalPrice != nil {
			out = append(out, assign{col: "total_price", val: *p.TotalPrice, cast: numeric})
		}
		if p.OrderStatus != nil {
			out = append(out, assign{col: "order_status", val: *p.OrderStatus})
		}
		if p.PaymentStatus != nil {
			out = append(out, assign{col: "payment_status", val: *p.PaymentStatus})
		}
		if p.PaySlipImage != nil {
			out = append(out, assign{col: "pay_slip_image", val: *p.PaySlipImage})
		}
		return append(out, assign{col: "last_modified_by", val: actor.UserID})
	},
	patchRefs: func(p backoffice.OrderPatch) []ref {
		if p.CustomerID == nil {
			return nil
		}
		return []ref{{table: "customers", col: "customer_id", id: *p.CustomerID, what: "customer"}}
	},
}

var orderItems = entity[backoffice.OrderItem, backoffice.OrderItemInput, backoffice.OrderItemPatch]{
	name:    "order_item",
	table:   "order_items",
	idCol:   "order_item_id",
	selects: "order_item_id, order_id, number_value, item_type_id, quantity, price::text, enterprise_id, last_modified_by",
	scan: func(r scanner) (backoffice.OrderItem, error) {
		var it backoffice.OrderItem
		err := r.Scan(&it.ID, &it.OrderID, &it.NumberValue, &it.ItemTypeID, &it.Quantity, &it.Price, &it.EnterpriseID, &it.LastModifiedBy)
		return it, err
	},
	insertCols: []column{
		{name: "order_id"}, {name: "number_value"}, {name: "item_type_id"}, {name: "quantity"},
		{name: "price", cast: numeric}, {name: "enterprise_id"}, {name: "last_modified_by"},
	},
	insertArgs: func(actor audit.Actor, in backoffice.OrderItemInput) []any {
		return []any{in.OrderID, in.NumberValue, in.ItemTypeID, in.Quantity, in.Price, actor.EnterpriseID, actor.UserID}
	},
	insertRefs: func(in backoffice.OrderItemInput) []ref {
		return []ref{
			{table: "orders", col: "order_id", id: in.OrderID, what: "order"},
			{table: "item_types", col: "item_type_id", id: in.ItemTypeID, what: "item type"},
		}
	},
	patch: func(actor audit.Actor, p backoffice.OrderItemPatch) []assign {
		var out []assign
		if p.OrderID != nil {
			out = append(out, assign{col: "order_id", val: *p.OrderID})
		}
		if p.NumberValue != nil {
			out = append(out, assign{col: "number_value", val: *p.NumberValue})
		}
		if p.ItemTypeID != nil {
			out = append(out, assign{col: "item_type_id", val: *p.ItemTypeID})
		}
		if p.Quantity != nil {
			out = append(out, assign{col: "quantity", val: *p.Quantity})
		}
		if p.Price != nil {
			out = append(out, assign{col: "price", val: *p.Price, cast: numeric})
		}
		return append(out, assign{col: "last_modified_by", val: actor.UserID})
	},
	patchRefs: func(p backoffice.OrderItemPatch) []ref {
		var refs []ref
		if p.OrderID != nil {
			refs = append(refs, ref{table: "orders", col: "order_id", id: *p.OrderID, what: "order"})
		}
		if p.ItemTypeID != nil {
			refs = append(refs, ref{table: "item_types", col: "item_type_id", id: *p.ItemTypeID, what: "item type"})
		}
		return refs
	},
}

var quickNotes = entity[backoffice.QuickNote, backoffice.QuickNoteInput, backoffice.QuickNotePatch]{
	name:    "quick_note",
	table:   "quick_notes",
	idCol:   "note_id",
	selects: "note_id, note_description, order_id, enterprise_id, last_modified_by",
	scan: func(r scanner) (backoffice.QuickNote, error) {
		var n backoffice.QuickNote
		err := r.Scan(&n.ID, &n.Description, &n.OrderID, &n.EnterpriseID, &n.LastModifiedBy)
		return n, err
	},
	insertCols: []column{{name: "note_description"}, {name: "order_id"}, {name: "enterprise_id"}, {name: "last_modified_by"}},
	insertArgs: func(actor audit.Actor, in backoffice.QuickNoteInput) []any {
		return []any{in.Description, in.OrderID, actor.EnterpriseID, actor.UserID}
	},
	insertRefs: func(in backoffice.QuickNoteInput) []ref {
		return []ref{{table: "orders", col: "order_id", id: in.OrderID, what: "order"}}
	},
	patch: func(actor audit.Actor, p backoffice.QuickNotePatch) []assign {
		var out []assign
		if p.Description != nil {
			out = append(out, assign{col: "note_description", val: *p.Description})
		}
		return append(out, assign{col: "last_modified_by", val: actor.UserID})
	},
}

var lotteries = entity[backoffice.Lottery, backoffice.LotteryInput, backoffice.LotteryPatch]{
	name:    "lottery",
	table:   "lotteries",
	idCol:   "lottery_id",
	selects: "lottery_id, lottery_name, draw_date, status, enterprise_id, last_modified_by",
	scan: func(r scanner) (backoffice.Lottery, error) {
		var l backoffice.Lottery
		err := r.Scan(&l.ID, &l.Name, &l.DrawDate, &l.Status, &l.EnterpriseID, &l.LastModifiedBy)
		l.DrawDate = l.DrawDate.UTC()
		return l, err
	},
	insertCols: []column{{name: "lottery_name"}, {name: "draw_date"}, {name: "status"}, {name: "enterprise_id"}, {name: "last_modified_by"}},
	insertArgs: func(actor audit.Actor, in backoffice.LotteryInput) []any {
		return []any{in.Name, in.DrawDate.UTC(), in.StatusOrDefault(), actor.EnterpriseID, actor.UserID}
	},
	patch: func(actor audit.Actor, p backoffice.LotteryPatch) []assign {
		var out []assign
		if p.Name != nil {
			out = append(out, assign{col: "lottery_name", val: *p.Name})
		}
		if p.DrawDate != nil {
			out = append(out, assign{col: "draw_date", val: p.DrawDate.UTC()})
		}
		if p.Status != nil {
			out = append(out, assign{col: "status", val: *p.Status})
		}
		return append(out, assign{col: "last_modified_by", val: actor.UserID})
	},
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
