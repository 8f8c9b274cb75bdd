package usecase

import (
	"math"
	"strconv"
	"strings"

	"github.com/phenrril/catalog-admin/internal/domain"
)

// ValidateDraft comprueba los campos obligatorios del formulario y devuelve
// los precios ya parseados. imageSources cuenta subidas más imágenes
// existentes conservadas.
func ValidateDraft(d domain.ProductDraft, imageSources int) (float64, float64, error) {
	var failed []string
	if strings.TrimSpace(d.Name) == "" {
		failed = append(failed, domain.FieldName)
	}
	if d.FinalCategory() == "" {
		failed = append(failed, domain.FieldCategory)
	}
	if strings.TrimSpace(d.Description) == "" {
		failed = append(failed, domain.FieldDescription)
	}
	priceMin, okMin := parsePrice(d.PriceMin)
	if !okMin {
		failed = append(failed, domain.FieldPriceMin)
	}
	priceMax, okMax := parsePrice(d.PriceMax)
	if !okMax {
		failed = append(failed, domain.FieldPriceMax)
	}
	if okMin && okMax && priceMin > priceMax {
		failed = append(failed, domain.FieldPriceRange)
	}
	if len(domain.CleanSpecifications(d.Specifications)) == 0 {
		failed = append(failed, domain.FieldSpecifications)
	}
	if imageSources < 1 {
		failed = append(failed, domain.FieldImages)
	}
	if len(failed) > 0 {
		return 0, 0, &domain.ValidationError{Fields: failed}
	}
	return priceMin, priceMax, nil
}

func parsePrice(raw string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, false
	}
	return v, true
}
