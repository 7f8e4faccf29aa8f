package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Wholesale ShopType = "wholesale"
	Retail    ShopType = "retail"
)

const (
	Paid    PaymentStatus = "paid"
	Unpaid  PaymentStatus = "unpaid"
	Partial PaymentStatus = "partial"
)

// DeletePolicy decides what happens when a shop or variety that still has
// orders is deleted: refuse, or take the orders down with it. The source
// data model left this open, so it is an explicit configuration choice.
const (
	DeleteBlock   DeletePolicy = "block"
	DeleteCascade DeletePolicy = "cascade"
)

type DeletePolicy string

func (p DeletePolicy) Validate() error {
	switch p {
	case DeleteBlock, DeleteCascade:
		return nil
	}
	return errors.New("invalid delete policy")
}

type (
	ShopType      string
	PaymentStatus string

	Date struct {
		time.Time
	}

	// Shop is a wholesale or retail sales channel/customer.
	Shop struct {
		ID   int64
		Name string
		Type ShopType
	}

	// Variety is a brownie product type with a default price.
	Variety struct {
		ID           int64
		Name         string
		DefaultPrice decimal.Decimal
	}

	// Order is a recorded sale of a variety by a shop on a delivery date.
	Order struct {
		ID            int64
		ShopID        int64
		VarietyID     int64
		Quantity      int64
		UnitPrice     decimal.Decimal
		DeliveryDate  Date
		PaymentStatus PaymentStatus
		PaidAmount    decimal.Decimal
		CreatedAt     time.Time
	}
)

var (
	ErrInvalidMonth    = errors.New("invalid month")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidQuantity = errors.New("invalid quantity")
	ErrEmptyName       = errors.New("empty name")
	ErrDuplicateName   = errors.New("duplicate name")
	ErrInvalidPayment  = errors.New("invalid payment")
	ErrNotFound        = errors.New("not found")
	// ErrReferenced is returned when deleting a shop or variety that still
	// has orders and the delete policy is "block".
	ErrReferenced = errors.New("still referenced by orders")
	// ErrUnknownReference is returned by the aggregator under the strict
	// label policy when an order points at a missing shop or variety.
	ErrUnknownReference = errors.New("unknown shop or variety reference")
)

// NewDate creates a Date at midnight UTC.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string into a Date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	return nil
}

func (t ShopType) Validate() error {
	switch t {
	case Wholesale, Retail:
		return nil
	}
	return errors.New("invalid shop type")
}

func (s Shop) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return ErrEmptyName
	}
	if len(s.Name) > 100 {
		return errors.New("name too long (max 100 characters)")
	}
	return s.Type.Validate()
}

func (v Variety) Validate() error {
	if strings.TrimSpace(v.Name) == "" {
		return ErrEmptyName
	}
	if len(v.Name) > 100 {
		return errors.New("name too long (max 100 characters)")
	}
	if !v.DefaultPrice.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}

// LineTotal is quantity × unit price, exact.
func (o Order) LineTotal() decimal.Decimal {
	return o.UnitPrice.Mul(decimal.NewFromInt(o.Quantity))
}

// Pending is the unpaid remainder of the order.
func (o Order) Pending() decimal.Decimal {
	return o.LineTotal().Sub(o.PaidAmount)
}

func (o Order) Validate() error {
	if err := o.DeliveryDate.Validate(); err != nil {
		return err
	}
	if o.ShopID <= 0 || o.VarietyID <= 0 {
		return ErrUnknownReference
	}
	if o.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	if !o.UnitPrice.IsPositive() {
		return ErrInvalidAmount
	}
	switch o.PaymentStatus {
	case Paid:
		if !o.PaidAmount.Equal(o.LineTotal()) {
			return ErrInvalidPayment
		}
	case Unpaid:
		if !o.PaidAmount.IsZero() {
			return ErrInvalidPayment
		}
	case Partial:
		// Partial payment must be strictly between zero and the line total.
		if !o.PaidAmount.IsPositive() || o.PaidAmount.GreaterThanOrEqual(o.LineTotal()) {
			return ErrInvalidPayment
		}
	default:
		return ErrInvalidPayment
	}
	return nil
}

// NormalizePayment fills PaidAmount from the status the way the entry form
// does: paid pins it to the line total, unpaid zeroes it, partial keeps the
// submitted amount for Validate to judge.
func (o *Order) NormalizePayment() {
	switch o.PaymentStatus {
	case Paid:
		o.PaidAmount = o.LineTotal()
	case Partial:
	default:
		o.PaymentStatus = Unpaid
		o.PaidAmount = decimal.Zero
	}
}
