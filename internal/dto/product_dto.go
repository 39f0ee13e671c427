package dto

// Product is the snapshot of a product returned by a barcode lookup and
// stored verbatim inside a device's saved items.
type Product struct {
	ID           int64    `json:"id"`
	Barcode      string   `json:"barcode"`
	Name         string   `json:"name"`
	Brand        string   `json:"brand,omitempty"`
	ImageURL     string   `json:"image_url,omitempty"`
	Ingredients  []string `json:"ingredients,omitempty"`
	SafetyRating string   `json:"safety_rating,omitempty"`
	FodmapLevel  string   `json:"fodmap_level,omitempty"`
	Allergens    []string `json:"allergens,omitempty"`
}

type ScanResponse struct {
	Product Product `json:"product"`
	Source  string  `json:"source"`
}
