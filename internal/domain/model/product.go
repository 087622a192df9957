package model

// Product is a catalog item as shown to the user.
type Product struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Description    string `json:"description"`
	Price          string `json:"price"`
	ImageURL       string `json:"image_url"`
	Stock          int    `json:"stock"`
	QuantityInCart int    `json:"quantity_in_cart"`
}

// Category groups products in the catalog.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}
