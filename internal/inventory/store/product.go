package store

import "time"

// Product represents an inventory record.
// JSON field names are the persisted snapshot format and must not change.
type Product struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Quantity  int       `json:"quantity"`
	Barcode   string    `json:"barcode"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewProduct holds the caller supplied fields of a product to add.
type NewProduct struct {
	Name     string
	Quantity int
	Barcode  string
}

// ProductUpdate is a partial update; nil fields are left untouched.
type ProductUpdate struct {
	Name     *string
	Quantity *int
	Barcode  *string
}

// apply merges u into p.
func (u ProductUpdate) apply(p *Product) {
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.Quantity != nil {
		p.Quantity = *u.Quantity
	}
	if u.Barcode != nil {
		p.Barcode = *u.Barcode
	}
}
