package models

import "crumble/globals"

// LineItem is the full representation of one product entry in a cart,
// including display-only fields used by the storefront UI.
type LineItem struct {
	ID          string  `json:"id" bson:"id"`
	Name        string  `json:"name" bson:"name"`
	Price       float64 `json:"price" bson:"price"` // unit price
	Quantity    int     `json:"quantity" bson:"quantity"`
	ShopID      string  `json:"shopId" bson:"shopId"`
	Image       string  `json:"image,omitempty" bson:"image,omitempty"`
	Description string  `json:"description,omitempty" bson:"description,omitempty"`
	Rating      float64 `json:"rating,omitempty" bson:"rating,omitempty"`
	Reviews     int     `json:"reviews,omitempty" bson:"reviews,omitempty"`

	// Compressed marks an item lifted from the compressed shape whose display
	// fields still need a catalog lookup. Internal bookkeeping, never stored.
	Compressed bool `json:"-" bson:"-"`
}

// CompressedLineItem strips display-only fields to keep the device-local
// tier small. Conversion back to LineItem goes through a catalog lookup.
type CompressedLineItem struct {
	ID       string  `json:"id" bson:"id"`
	Name     string  `json:"name" bson:"name"`
	Price    float64 `json:"price" bson:"price"`
	Quantity int     `json:"quantity" bson:"quantity"`
	ShopID   string  `json:"shopId" bson:"shopId"`
}

// Compress drops display fields, keeping only what pricing and merge need.
func (li LineItem) Compress() CompressedLineItem {
	shop := li.ShopID
	if shop == "" {
		shop = globals.DefaultShopID
	}
	return CompressedLineItem{
		ID:       li.ID,
		Name:     li.Name,
		Price:    li.Price,
		Quantity: li.Quantity,
		ShopID:   shop,
	}
}

// Expand lifts a compressed item back into the full shape with display
// fields left empty; RestoreFullProductInfo fills them from the catalog.
func (ci CompressedLineItem) Expand() LineItem {
	shop := ci.ShopID
	if shop == "" {
		shop = globals.DefaultShopID
	}
	return LineItem{
		ID:         ci.ID,
		Name:       ci.Name,
		Price:      ci.Price,
		Quantity:   ci.Quantity,
		ShopID:     shop,
		Compressed: true,
	}
}

// Valid reports whether the entry satisfies the cart invariants: non-empty
// id and name, non-negative price, positive quantity.
func (li LineItem) Valid() bool {
	return li.ID != "" && li.Name != "" && li.Price >= 0 && li.Quantity > 0
}

// CartExport is the downloadable backup format produced by the export
// endpoint and accepted back by import.
type CartExport struct {
	Items      []LineItem `json:"items"`
	ExportDate string     `json:"exportDate"`
	TotalItems int        `json:"totalItems"`
	TotalValue float64    `json:"totalValue"`
	Version    string     `json:"version"`
}
