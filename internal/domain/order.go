package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type OrderItem struct {
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

// Order is the unit tracked by the store. ID is immutable for the order's
// lifetime; Total is derived from Items and never mutated on its own.
type Order struct {
	ID           string          `json:"id"`
	CustomerName string          `json:"customer_name"`
	Phone        string          `json:"customer_phone,omitempty"`
	TableNumber  *string         `json:"table_number,omitempty"`
	Items        []OrderItem     `json:"items"`
	Total        decimal.Decimal `json:"total"`
	Notes        string          `json:"notes,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	Status       Status          `json:"status"`
}

// ItemsTotal computes the amount the order must carry as Total.
func (o Order) ItemsTotal() decimal.Decimal {
	sum := decimal.Zero
	for _, it := range o.Items {
		sum = sum.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return sum
}

func (o Order) Validate() error {
	if o.ID == "" {
		return errors.New("order id is required")
	}
	if o.CustomerName == "" {
		return errors.New("customer name is required")
	}
	if len(o.Items) == 0 {
		return errors.New("at least one item is required")
	}
	for _, it := range o.Items {
		if it.Name == "" {
			return errors.New("item name is required")
		}
		if it.Quantity < 1 {
			return fmt.Errorf("invalid quantity %d for item %s", it.Quantity, it.Name)
		}
		if it.Price.IsNegative() {
			return fmt.Errorf("negative price for item %s", it.Name)
		}
	}
	if !o.Status.Valid() {
		return fmt.Errorf("unknown order status %q", string(o.Status))
	}
	if !o.Total.Equal(o.ItemsTotal()) {
		return fmt.Errorf("total %s does not match items total %s", o.Total, o.ItemsTotal())
	}
	return nil
}

// OrderPatch is a partial update against an existing order. Nil fields are
// left untouched. Items and Total travel together: a patch that replaces the
// line items must carry the matching recomputed total.
type OrderPatch struct {
	ID           string
	CustomerName *string
	Phone        *string
	TableNumber  *string
	Items        []OrderItem
	Total        *decimal.Decimal
	Notes        *string
	Status       *Status
}

func (p OrderPatch) Validate() error {
	if p.ID == "" {
		return errors.New("order id is required")
	}
	if p.Status != nil && !p.Status.Valid() {
		return fmt.Errorf("unknown order status %q", string(*p.Status))
	}
	if p.Items != nil {
		if p.Total == nil {
			return errors.New("items patch without recomputed total")
		}
		sum := decimal.Zero
		for _, it := range p.Items {
			if it.Name == "" {
				return errors.New("item name is required")
			}
			if it.Quantity < 1 {
				return fmt.Errorf("invalid quantity %d for item %s", it.Quantity, it.Name)
			}
			if it.Price.IsNegative() {
				return fmt.Errorf("negative price for item %s", it.Name)
			}
			sum = sum.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
		}
		if !p.Total.Equal(sum) {
			return fmt.Errorf("total %s does not match items total %s", p.Total, sum)
		}
	} else if p.Total != nil {
		return errors.New("total cannot change without its items")
	}
	return nil
}

// FullPatch converts a complete order into a patch against the same ID,
// used when a duplicate new-order event degrades into an update.
func FullPatch(o Order) OrderPatch {
	st := o.Status
	name := o.CustomerName
	phone := o.Phone
	notes := o.Notes
	total := o.Total
	return OrderPatch{
		ID:           o.ID,
		CustomerName: &name,
		Phone:        &phone,
		TableNumber:  o.TableNumber,
		Items:        o.Items,
		Total:        &total,
		Notes:        &notes,
		Status:       &st,
	}
}
