// Package backoffice defines the tenant-scoped resources of the back office
// and binds each of them to the audited mutation flow.
package backoffice

import "time"

// Enterprise is a tenant. Its own id is its tenant id.
type Enterprise struct {
	ID        int64     `json:"enterprise_id"`
	Name      string    `json:"enterprise_name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (e Enterprise) RecordID() int64 { return e.ID }
func (e Enterprise) TenantID() int64 { return e.ID }

type Customer struct {
	ID           int64  `json:"customer_id"`
	Name         string `json:"customer_name"`
	Code         string `json:"customer_code"`
	Email        string `json:"customer_email"`
	EnterpriseID int64  `json:"enterprise_id"`
}

func (c Customer) RecordID() int64 { return c.ID }
func (c Customer) TenantID() int64 { return c.EnterpriseID }

type ItemType struct {
	ID             int64  `json:"item_type_id"`
	TypeName       string `json:"type_name"`
	EnterpriseID   int64  `json:"enterprise_id"`
	LastModifiedBy int64  `json:"last_modified_by"`
}

func (i ItemType) RecordID() int64 { return i.ID }
func (i ItemType) TenantID() int64 { return i.EnterpriseID }

// Order is a customer's purchase. TotalPrice is a decimal string with at most
// two fractional digits.
type Order struct {
	ID             int64   `json:"order_id"`
	CustomerID     int64   `json:"customer_id"`
	TotalPrice     string  `json:"total_price"`
	OrderStatus    string  `json:"order_status"`
	PaymentStatus  string  `json:"payment_status"`
	PaySlipImage   *string `json:"pay_slip_image"`
	EnterpriseID   int64   `json:"enterprise_id"`
	LastModifiedBy int64   `json:"last_modified_by"`
}

func (o Order) RecordID() int64 { return o.ID }
func (o Order) TenantID() int64 { return o.EnterpriseID }

// OrderItem is one numbered line of an order.
type OrderItem struct {
	ID             int64  `json:"order_item_id"`
	OrderID        int64  `json:"order_id"`
	NumberValue    string `json:"number_value"`
	ItemTypeID     int64  `json:"item_type_id"`
	Quantity       int    `json:"quantity"`
	Price          string `json:"price"`
	EnterpriseID   int64  `json:"enterprise_id"`
	LastModifiedBy int64  `json:"last_modified_by"`
}

func (i OrderItem) RecordID() int64 { return i.ID }
func (i OrderItem) TenantID() int64 { return i.EnterpriseID }

type QuickNote struct {
	ID             int64  `json:"note_id"`
	Description    string `json:"note_description"`
	OrderID        int64  `json:"order_id"`
	EnterpriseID   int64  `json:"enterprise_id"`
	LastModifiedBy int64  `json:"last_modified_by"`
}

func (n QuickNote) RecordID() int64 { return n.ID }
func (n QuickNote) TenantID() int64 { return n.EnterpriseID }

// Lottery is a scheduled draw run by an enterprise.
type Lottery struct {
	ID             int64     `json:"lottery_id"`
	Name           string    `json:"lottery_name"`
	DrawDate       time.Time `json:"draw_date"`
	Status         string    `json:"status"`
	EnterpriseID   int64     `json:"enterprise_id"`
	LastModifiedBy int64     `json:"last_modified_by"`
}

func (l Lottery) RecordID() int64 { return l.ID }
func (l Lottery) TenantID() int64 { return l.EnterpriseID }
