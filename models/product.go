package models

import "time"

// Product is a cake in the shop catalog.
type Product struct {
	ProductID   string    `json:"productId" bson:"productid"`
	Name        string    `json:"name" bson:"name"`
	Description string    `json:"description" bson:"description"`
	Category    string    `json:"category" bson:"category"` // e.g. "birthday", "wedding", "cupcake", "cheesecake"
	Flavor      string    `json:"flavor,omitempty" bson:"flavor,omitempty"`
	Price       float64   `json:"price" bson:"price"`
	ShopID      string    `json:"shopId" bson:"shopid"`
	Image       string    `json:"image,omitempty" bson:"image,omitempty"`
	Thumbnail   string    `json:"thumbnail,omitempty" bson:"thumbnail,omitempty"`
	Rating      float64   `json:"rating" bson:"rating"`
	Reviews     int       `json:"reviews" bson:"reviews"`
	InStock     bool      `json:"inStock" bson:"instock"`
	ServesUpTo  int       `json:"servesUpTo,omitempty" bson:"servesupto,omitempty"`
	CreatedBy   string    `json:"createdBy" bson:"createdby"`
	CreatedAt   time.Time `json:"createdAt" bson:"createdat"`
	UpdatedAt   time.Time `json:"updatedAt" bson:"updatedat"`
}

// ToLineItem builds a full cart line item for this product with quantity 1.
func (p Product) ToLineItem() LineItem {
	return LineItem{
		ID:          p.ProductID,
		Name:        p.Name,
		Price:       p.Price,
		Quantity:    1,
		ShopID:      p.ShopID,
		Image:       p.Image,
		Description: p.Description,
		Rating:      p.Rating,
		Reviews:     p.Reviews,
	}
}
