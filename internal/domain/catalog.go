package domain

import (
	"encoding/json"
	"time"
)

const CatalogVersion = "1.0"

// CatalogDocument es el documento completo que se guarda en cada backend.
type CatalogDocument struct {
	Products      []Product `json:"productos"`
	LastUpdated   time.Time `json:"lastUpdated"`
	TotalProducts int       `json:"totalProducts"`
	Version       string    `json:"version,omitempty"`
}

func NewCatalogDocument(products []Product, now time.Time, version string) CatalogDocument {
	if products == nil {
		products = []Product{}
	}
	return CatalogDocument{
		Products:      products,
		LastUpdated:   now.UTC(),
		TotalProducts: len(products),
		Version:       version,
	}
}

// UnmarshalJSON acepta "products" como alias de "productos".
func (d *CatalogDocument) UnmarshalJSON(b []byte) error {
	type plain CatalogDocument
	var aux struct {
		plain
		Alias []Product `json:"products"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*d = CatalogDocument(aux.plain)
	if d.Products == nil && aux.Alias != nil {
		d.Products = aux.Alias
	}
	return nil
}
