package backoffice

import (
	"regexp"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

var decimalPattern = regexp.MustCompile(`^-?\d{1,10}(\.\d{1,2})?$`)

var decimalRule = validation.Match(decimalPattern).Error("must be a decimal with at most two fractional digits")

func claimedPtr(id *int64) int64 {
	if id == nil {
		return 0
	}
	return *id
}

type EnterpriseInput struct {
	Name string `json:"enterprise_name"`
}

func (in EnterpriseInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.Required, validation.Length(1, 200)),
	)
}

type EnterprisePatch struct {
	Name *string `json:"enterprise_name"`
}

func (p EnterprisePatch) IsEmpty() bool { return p.Name == nil }

func (p EnterprisePatch) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Name, validation.NilOrNotEmpty, validation.Length(1, 200)),
	)
}

// CustomerInput uses the short field names accepted by the create endpoint.
type CustomerInput struct {
	Name         string `json:"name"`
	Code         string `json:"code"`
	Email        string `json:"email"`
	EnterpriseID int64  `json:"enterprise_id,omitempty"`
}

func (in CustomerInput) ClaimedEnterprise() int64 { return in.EnterpriseID }

func (in CustomerInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&in.Code, validation.Required, validation.Length(1, 50)),
		validation.Field(&in.Email, validation.Required, is.Email),
	)
}

type CustomerPatch struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
}

func (p CustomerPatch) IsEmpty() bool { return p.Name == nil && p.Email == nil }

func (p CustomerPatch) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Name, validation.NilOrNotEmpty, validation.Length(1, 200)),
		validation.Field(&p.Email, validation.NilOrNotEmpty, is.Email),
	)
}

type ItemTypeInput struct {
	TypeName     string `json:"type_name"`
	EnterpriseID int64  `json:"enterprise_id,omitempty"`
}

func (in ItemTypeInput) ClaimedEnterprise() int64 { return in.EnterpriseID }

func (in ItemTypeInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.TypeName, validation.Required, validation.Length(1, 100)),
	)
}

type ItemTypePatch struct {
	TypeName     *string `json:"type_name"`
	EnterpriseID *int64  `json:"enterprise_id,omitempty"`
}

func (p ItemTypePatch) IsEmpty() bool             { return p.TypeName == nil }
func (p ItemTypePatch) ClaimedEnterprise() int64 { return claimedPtr(p.EnterpriseID) }

func (p ItemTypePatch) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.TypeName, validation.NilOrNotEmpty, validation.Length(1, 100)),
	)
}

type OrderInput struct {
	CustomerID    int64   `json:"customer_id"`
	TotalPrice    string  `json:"total_price"`
	OrderStatus   string  `json:"order_status"`
	PaymentStatus string  `json:"payment_status"`
	PaySlipImage  *string `json:"pay_slip_image,omitempty"`
	EnterpriseID  int64   `json:"enterprise_id,omitempty"`
}

func (in OrderInput) ClaimedEnterprise() int64 { return in.EnterpriseID }

func (in OrderInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.CustomerID, validation.Required, validation.Min(int64(1))),
		validation.Field(&in.TotalPrice, validation.Required, decimalRule),
		validation.Field(&in.OrderStatus, validation.Required, validation.Length(1, 50)),
		validation.Field(&in.PaymentStatus, validation.Required, validation.Length(1, 50)),
	)
}

type OrderPatch struct {
	CustomerID    *int64  `json:"customer_id,omitempty"`
	TotalPrice    *string `json:"total_price,omitempty"`
	OrderStatus   *string `json:"order_status,omitempty"`
	PaymentStatus *string `json:"payment_status,omitempty"`
	PaySlipImage  *string `json:"pay_slip_image,omitempty"`
	EnterpriseID  *int64  `json:"enterprise_id,omitempty"`
}

func (p OrderPatch) IsEmpty() bool {
	return p.CustomerID == nil && p.TotalPrice == nil && p.OrderStatus == nil &&
		p.PaymentStatus == nil && p.PaySlipImage == nil
}

func (p OrderPatch) ClaimedEnterprise() int64 { return claimedPtr(p.EnterpriseID) }

func (p OrderPatch) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.CustomerID, validation.NilOrNotEmpty, validation.Min(int64(1))),
		validation.Field(&p.TotalPrice, validation.NilOrNotEmpty, decimalRule),
		validation.Field(&p.OrderStatus, validation.NilOrNotEmpty),
		validation.Field(&p.PaymentStatus, validation.NilOrNotEmpty),
	)
}

type OrderItemInput struct {
	OrderID      int64  `json:"order_id"`
	NumberValue  string `json:"number_value"`
	ItemTypeID   int64  `json:"item_type_id"`
	Quantity     int    `json:"quantity"`
	Price        string `json:"price"`
	EnterpriseID int64  `json:"enterprise_id,omitempty"`
}

func (in OrderItemInput) ClaimedEnterprise() int64 { return in.EnterpriseID }

func (in OrderItemInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.OrderID, validation.Required, validation.Min(int64(1))),
		validation.Field(&in.NumberValue, validation.Required, validation.Length(1, 20)),
		validation.Field(&in.ItemTypeID, validation.Required, validation.Min(int64(1))),
		validation.Field(&in.Price, validation.Required, decimalRule),
	)
}

type OrderItemPatch struct {
	OrderID      *int64  `json:"order_id,omitempty"`
	NumberValue  *string `json:"number_value,omitempty"`
	ItemTypeID   *int64  `json:"item_type_id,omitempty"`
	Quantity     *int    `json:"quantity,omitempty"`
	Price        *string `json:"price,omitempty"`
	EnterpriseID *int64  `json:"enterprise_id,omitempty"`
}

func (p OrderItemPatch) IsEmpty() bool {
	return p.OrderID == nil && p.NumberValue == nil && p.ItemTypeID == nil &&
		p.Quantity == nil && p.Price == nil
}

func (p OrderItemPatch) ClaimedEnterprise() int64 { return claimedPtr(p.EnterpriseID) }

func (p OrderItemPatch) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.OrderID, validation.NilOrNotEmpty, validation.Min(int64(1))),
		validation.Field(&p.NumberValue, validation.NilOrNotEmpty, validation.Length(1, 20)),
		validation.Field(&p.ItemTypeID, validation.NilOrNotEmpty, validation.Min(int64(1))),
		validation.Field(&p.Price, validation.NilOrNotEmpty, decimalRule),
	)
}

type QuickNoteInput struct {
	Description  string `json:"note_description"`
	OrderID      int64  `json:"order_id"`
	EnterpriseID int64  `json:"enterprise_id,omitempty"`
}

func (in QuickNoteInput) ClaimedEnterprise() int64 { return in.EnterpriseID }

func (in QuickNoteInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Description, validation.Required),
		validation.Field(&in.OrderID, validation.Required, validation.Min(int64(1))),
	)
}

type QuickNotePatch struct {
	Description  *string `json:"note_description"`
	EnterpriseID *int64  `json:"enterprise_id,omitempty"`
}

func (p QuickNotePatch) IsEmpty() bool             { return p.Description == nil }
func (p QuickNotePatch) ClaimedEnterprise() int64 { return claimedPtr(p.EnterpriseID) }

func (p QuickNotePatch) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Description, validation.NilOrNotEmpty),
	)
}

// LotteryStatusScheduled is the status of a lottery created without one.
const LotteryStatusScheduled = "scheduled"

type LotteryInput struct {
	Name         string    `json:"lottery_name"`
	DrawDate     time.Time `json:"draw_date"`
	Status       string    `json:"status,omitempty"`
	EnterpriseID int64     `json:"enterprise_id,omitempty"`
}

func (in LotteryInput) ClaimedEnterprise() int64 { return in.EnterpriseID }

// StatusOrDefault is the status to store for in.
func (in LotteryInput) StatusOrDefault() string {
	if in.Status == "" {
		return LotteryStatusScheduled
	}
	return in.Status
}

func (in LotteryInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&in.DrawDate, validation.Required),
		validation.Field(&in.Status, validation.Length(1, 50)),
	)
}

type LotteryPatch struct {
	Name         *string    `json:"lottery_name,omitempty"`
	DrawDate     *time.Time `json:"draw_date,omitempty"`
	Status       *string    `json:"status,omitempty"`
	EnterpriseID *int64     `json:"enterprise_id,omitempty"`
}

func (p LotteryPatch) IsEmpty() bool {
	return p.Name == nil && p.DrawDate == nil && p.Status == nil
}

func (p LotteryPatch) ClaimedEnterprise() int64 { return claimedPtr(p.EnterpriseID) }

func (p LotteryPatch) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Name, validation.NilOrNotEmpty, validation.Length(1, 200)),
		validation.Field(&p.DrawDate, validation.NilOrNotEmpty),
		validation.Field(&p.Status, validation.NilOrNotEmpty, validation.Length(1, 50)),
	)
}
