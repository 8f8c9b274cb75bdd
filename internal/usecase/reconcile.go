package usecase

import (
	"fmt"

	"github.com/phenrril/catalog-admin/internal/domain"
)

// ImageID deriva el id de una imagen a partir de su posición.
func ImageID(productID string, order int) string {
	return fmt.Sprintf("%s_%02d", productID, order)
}

// ImageFilename es el nombre del blob remoto para esa posición.
func ImageFilename(productID string, order int) string {
	return ImageID(productID, order) + ".jpg"
}

// CheckImageLimit rechaza el lote completo si supera el tope por producto.
func CheckImageLimit(existing, uploads int) error {
	if existing+uploads > domain.MaxImagesPerProduct {
		return &domain.ImageError{Kind: domain.ErrImageLimitExceeded}
	}
	return nil
}

// Survivors devuelve las imágenes existentes que el admin conservó, en su
// orden previo. Los placeholders nunca sobreviven.
func Survivors(existing []domain.ProductImage, keptIDs []string) []domain.ProductImage {
	if len(existing) == 0 || len(keptIDs) == 0 {
		return nil
	}
	kept := make(map[string]struct{}, len(keptIDs))
	for _, id := range keptIDs {
		kept[id] = struct{}{}
	}
	out := make([]domain.ProductImage, 0, len(existing))
	for _, im := range existing {
		if im.IsPlaceholder() {
			continue
		}
		if _, ok := kept[im.ID]; ok {
			out = append(out, im)
		}
	}
	return out
}

// KeepsPlaceholder reporta si entre los ids conservados está el placeholder
// actual. No sobrevive como imagen, pero cuenta como imagen del formulario:
// Reconcile lo vuelve a generar si no hay nada más.
func KeepsPlaceholder(existing []domain.ProductImage, keptIDs []string) bool {
	for _, im := range existing {
		if !im.IsPlaceholder() {
			continue
		}
		for _, id := range keptIDs {
			if id == im.ID {
				return true
			}
		}
	}
	return false
}

// Reconcile arma la lista final de imágenes: primero las subidas nuevas (en
// orden de subida), después las existentes conservadas. Orden, principal e id
// se recalculan siempre desde la posición, así que repetir la operación con
// las mismas entradas produce la misma lista.
func Reconcile(existing []domain.ProductImage, keptIDs []string, uploaded []domain.UploadedImage, productID string) ([]domain.ProductImage, error) {
	survivors := Survivors(existing, keptIDs)
	if err := CheckImageLimit(len(survivors), len(uploaded)); err != nil {
		return nil, err
	}

	out := make([]domain.ProductImage, 0, len(uploaded)+len(survivors)+1)
	for _, up := range uploaded {
		out = append(out, domain.ProductImage{URL: up.Preview, Filename: up.Filename})
	}
	out = append(out, survivors...)
	if len(out) == 0 {
		out = append(out, domain.ProductImage{URL: domain.PlaceholderURL, Filename: domain.PlaceholderFilename})
	}

	for i := range out {
		order := i + 1
		out[i].Order = order
		out[i].Principal = order == 1
		out[i].ID = ImageID(productID, order)
	}
	return out, nil
}
