package models

import "time"

// Order statuses, in lifecycle order.
const (
	OrderPending   = "pending"
	OrderConfirmed = "confirmed"
	OrderBaking    = "baking"
	OrderReady     = "ready"
	OrderDelivered = "delivered"
	OrderCancelled = "cancelled"
)

// Order is a finalized checkout snapshot. Items are copied out of the cart
// at checkout time; later catalog edits do not affect past orders.
type Order struct {
	OrderID       string     `json:"orderId" bson:"orderid"`
	UserID        string     `json:"userId" bson:"userid"`
	Items         []LineItem `json:"items" bson:"items"`
	Address       string     `json:"address" bson:"address"`
	PaymentMethod string     `json:"paymentMethod" bson:"paymentmethod"`
	CouponCode    string     `json:"couponCode,omitempty" bson:"couponcode,omitempty"`
	Subtotal      float64    `json:"subtotal" bson:"subtotal"`
	Discount      float64    `json:"discount" bson:"discount"`
	ShippingFee   float64    `json:"shippingFee" bson:"shippingfee"`
	Total         float64    `json:"total" bson:"total"`
	Status        string     `json:"status" bson:"status"`
	PickupCode    string     `json:"pickupCode" bson:"pickupcode"`
	CreatedAt     time.Time  `json:"createdAt" bson:"createdat"`
	UpdatedAt     time.Time  `json:"updatedAt" bson:"updatedat"`
}

// NextStatuses maps each order status to the transitions the shop owner may
// take from it.
var NextStatuses = map[string][]string{
	OrderPending:   {OrderConfirmed, OrderCancelled},
	OrderConfirmed: {OrderBaking, OrderCancelled},
	OrderBaking:    {OrderReady},
	OrderReady:     {OrderDelivered},
}

func ValidTransition(from, to string) bool {
	for _, s := range NextStatuses[from] {
		if s == to {
			return true
		}
	}
	return false
}
