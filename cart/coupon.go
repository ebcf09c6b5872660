package cart

import "strings"

// Coupon types
const (
	CouponPercentage = "percentage"
	CouponFixed      = "fixed"
	CouponShipping   = "shipping"
)

// FreeShippingThreshold is the subtotal above which shipping is already free,
// making a shipping coupon worth nothing.
const FreeShippingThreshold = 50.0

type Coupon struct {
	Code        string  `json:"code" bson:"code"`
	Discount    float64 `json:"discount" bson:"discount"`
	Type        string  `json:"type" bson:"type"`
	MinAmount   float64 `json:"minAmount" bson:"minAmount"`
	Description string  `json:"description" bson:"description"`
}

// couponCatalog is the fixed set of valid codes, keyed by lowercase code.
var couponCatalog = map[string]Coupon{
	"welcome10": {Code: "WELCOME10", Discount: 10, Type: CouponPercentage, MinAmount: 0, Description: "10% off your first order"},
	"save20":    {Code: "SAVE20", Discount: 20, Type: CouponPercentage, MinAmount: 50, Description: "20% off orders over $50"},
	"flat50":    {Code: "FLAT50", Discount: 50, Type: CouponFixed, MinAmount: 100, Description: "$50 off orders over $100"},
	"freeship":  {Code: "FREESHIP", Discount: 5.99, Type: CouponShipping, MinAmount: 30, Description: "Free shipping on orders over $30"},
	"holiday15": {Code: "HOLIDAY15", Discount: 15, Type: CouponPercentage, MinAmount: 75, Description: "15% off holiday orders over $75"},
}

// LookupCoupon matches a code case-insensitively against the catalog.
func LookupCoupon(code string) (Coupon, bool) {
	c, ok := couponCatalog[strings.ToLower(strings.TrimSpace(code))]
	return c, ok
}

// DiscountFor computes the coupon's value against a subtotal. A subtotal
// below the coupon's minimum yields 0 rather than an error; the coupon stays
// applied and becomes worth something again if the cart grows back.
func (c Coupon) DiscountFor(subtotal float64) float64 {
	if subtotal < c.MinAmount {
		return 0
	}
	switch c.Type {
	case CouponPercentage:
		return subtotal * c.Discount / 100
	case CouponFixed:
		if c.Discount > subtotal {
			return subtotal
		}
		return c.Discount
	case CouponShipping:
		// Waives the shipping fee that applies below the free-shipping line.
		if subtotal >= FreeShippingThreshold {
			return 0
		}
		return c.Discount
	}
	return 0
}
