package cart

import (
	"crumble/globals"
	"crumble/models"
)

// CartState is an immutable snapshot of one shopper's cart. Mutations go
// through Reduce, which returns a fresh snapshot and never edits the input.
type CartState struct {
	Items  []models.LineItem
	Coupon *Coupon
}

// Command is a tagged cart mutation handled by Reduce.
type Command interface{ isCommand() }

type AddItem struct{ Item models.LineItem }
type RemoveItem struct{ ID string }
type UpdateQuantity struct {
	ID       string
	Quantity int
}
type ClearCart struct{}
type ApplyCoupon struct{ Code string }
type RemoveCoupon struct{}

func (AddItem) isCommand()        {}
func (RemoveItem) isCommand()     {}
func (UpdateQuantity) isCommand() {}
func (ClearCart) isCommand()      {}
func (ApplyCoupon) isCommand()    {}
func (RemoveCoupon) isCommand()   {}

// Reduce applies one command to a snapshot and returns the next snapshot.
// Item mutations always succeed; only ApplyCoupon can fail, with
// ErrInvalidCoupon or *MinimumNotMetError.
func Reduce(s CartState, cmd Command) (CartState, error) {
	switch c := cmd.(type) {
	case AddItem:
		item := c.Item
		if item.ShopID == "" {
			item.ShopID = globals.DefaultShopID
		}
		next := cloneItems(s.Items)
		for i := range next {
			if next[i].ID == item.ID {
				next[i].Quantity++
				return CartState{Items: next, Coupon: s.Coupon}, nil
			}
		}
		item.Quantity = 1
		return CartState{Items: append(next, item), Coupon: s.Coupon}, nil

	case RemoveItem:
		next := make([]models.LineItem, 0, len(s.Items))
		for _, it := range s.Items {
			if it.ID != c.ID {
				next = append(next, it)
			}
		}
		return CartState{Items: next, Coupon: s.Coupon}, nil

	case UpdateQuantity:
		if c.Quantity <= 0 {
			return Reduce(s, RemoveItem{ID: c.ID})
		}
		next := cloneItems(s.Items)
		for i := range next {
			if next[i].ID == c.ID {
				next[i].Quantity = c.Quantity
			}
		}
		return CartState{Items: next, Coupon: s.Coupon}, nil

	case ClearCart:
		return CartState{}, nil

	case ApplyCoupon:
		// No implicit replacement: callers remove the active coupon first.
		if s.Coupon != nil {
			return s, ErrCouponApplied
		}
		coupon, ok := LookupCoupon(c.Code)
		if !ok {
			return s, ErrInvalidCoupon
		}
		if subtotal := s.Subtotal(); subtotal < coupon.MinAmount {
			return s, &MinimumNotMetError{Required: coupon.MinAmount, Subtotal: subtotal}
		}
		return CartState{Items: cloneItems(s.Items), Coupon: &coupon}, nil

	case RemoveCoupon:
		return CartState{Items: cloneItems(s.Items)}, nil
	}
	return s, nil
}

// Subtotal is the coupon-independent sum of price*quantity.
func (s CartState) Subtotal() float64 {
	var total float64
	for _, it := range s.Items {
		total += it.Price * float64(it.Quantity)
	}
	return total
}

// ItemCount sums quantities across all line items.
func (s CartState) ItemCount() int {
	var n int
	for _, it := range s.Items {
		n += it.Quantity
	}
	return n
}

// Discount computes the applied coupon's value against the current subtotal.
// Returns 0 when no coupon is set or the subtotal has dropped below the
// coupon's minimum since it was applied.
func (s CartState) Discount() float64 {
	if s.Coupon == nil {
		return 0
	}
	return s.Coupon.DiscountFor(s.Subtotal())
}

// Clean drops line items violating the cart invariants and reports how many
// were removed. Running it twice removes nothing the second time.
func (s CartState) Clean() (CartState, int) {
	kept := make([]models.LineItem, 0, len(s.Items))
	for _, it := range s.Items {
		if it.Valid() {
			kept = append(kept, it)
		}
	}
	removed := len(s.Items) - len(kept)
	return CartState{Items: kept, Coupon: s.Coupon}, removed
}

func cloneItems(items []models.LineItem) []models.LineItem {
	next := make([]models.LineItem, len(items))
	copy(next, items)
	return next
}
