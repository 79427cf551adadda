// Package catalog provides read access to the product catalog and the
// admin-only product creation path.
package catalog

import "errors"

// ErrNotFound is returned when a product id does not resolve.
var ErrNotFound = errors.New("catalog: product not found")

// Product is a single sellable item. Prices are integers in the shop's
// single currency unit.
type Product struct {
	ID          int64  `db:"id"`
	Name        string `db:"name"`
	Price       int64  `db:"price"`
	Description string `db:"description"`
	ImageRef    string `db:"image_ref"`
	Category    string `db:"category"`
}

// Draft holds the fields collected by the admin product-entry form before
// the store assigns an id.
type Draft struct {
	Name        string
	Price       int64
	Description string
	ImageRef    string
	Category    string
}
