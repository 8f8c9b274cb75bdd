package domain

import (
	"encoding/json"
	"strings"
	"time"
)

const (
	PlaceholderURL      = "./images/placeholder.jpg"
	PlaceholderFilename = "placeholder.jpg"

	// MaxImagesPerProduct es el tope de imágenes por producto.
	MaxImagesPerProduct = 5
)

type Product struct {
	ID             string         `json:"id"`
	Name           string         `json:"nombre"`
	Category       string         `json:"categoria"`
	Description    string         `json:"descripcion"`
	PriceMin       float64        `json:"precioMin"`
	PriceMax       float64        `json:"precioMax"`
	Specifications Specifications `json:"especificaciones"`
	InquiryCount   int            `json:"consultas"`
	Sold           bool           `json:"vendido"`
	PrincipalImage string         `json:"imagenPrincipal"`
	Images         []ProductImage `json:"imagenes"`
	Active         bool           `json:"activo"`
	CreatedAt      time.Time      `json:"fechaCreacion"`
	UpdatedAt      time.Time      `json:"fechaActualizacion"`
}

// ProductImage pertenece a un único producto. Ref es la referencia del blob
// en el backend que lo produjo (vacía si la imagen viaja embebida).
type ProductImage struct {
	ID        string `json:"id"`
	URL       string `json:"url"`
	Filename  string `json:"nombre"`
	Principal bool   `json:"principal"`
	Order     int    `json:"orden"`
	Ref       string `json:"ref,omitempty"`
}

func (im ProductImage) IsPlaceholder() bool {
	return im.URL == PlaceholderURL
}

// Clone devuelve una copia sin slices compartidos.
func (p Product) Clone() Product {
	out := p
	if p.Specifications != nil {
		out.Specifications = append(Specifications(nil), p.Specifications...)
	}
	if p.Images != nil {
		out.Images = append([]ProductImage(nil), p.Images...)
	}
	return out
}

// ImageRefs lista las referencias remotas de las imágenes del producto.
func (p Product) ImageRefs() []string {
	refs := make([]string, 0, len(p.Images))
	for _, im := range p.Images {
		if im.Ref != "" {
			refs = append(refs, im.Ref)
		}
	}
	return refs
}

// Specifications viaja como un único string separado por "; ".
type Specifications []string

func (s Specifications) String() string {
	return strings.Join(s, "; ")
}

func (s Specifications) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Specifications) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err == nil {
		*s = ParseSpecifications(raw)
		return nil
	}
	var list []string
	if err := json.Unmarshal(b, &list); err != nil {
		return err
	}
	*s = CleanSpecifications(list)
	return nil
}

func ParseSpecifications(raw string) Specifications {
	return CleanSpecifications(strings.Split(raw, ";"))
}

// CleanSpecifications recorta espacios y descarta fragmentos vacíos.
func CleanSpecifications(parts []string) Specifications {
	out := Specifications{}
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ProductDraft es lo que llega desde el formulario del admin.
type ProductDraft struct {
	Name           string
	Category       string
	NewCategory    string
	Description    string
	PriceMin       string
	PriceMax       string
	Specifications []string
	Sold           *bool
}

// FinalCategory prioriza la categoría elegida sobre la nueva.
func (d ProductDraft) FinalCategory() string {
	if c := strings.TrimSpace(d.Category); c != "" {
		return c
	}
	return strings.TrimSpace(d.NewCategory)
}

// RawFile es un archivo tal cual lo subió el admin.
type RawFile struct {
	Filename    string
	ContentType string
	Size        int64
	Data        []byte
}

// UploadedImage vive entre la subida y el guardado exitoso.
type UploadedImage struct {
	Filename string
	Data     []byte
	Width    int
	Height   int
	Preview  string
}

// StoredImage es un blob ya alojado en un backend.
type StoredImage struct {
	Ref      string `json:"id"`
	Filename string `json:"name"`
	URL      string `json:"url"`
}
