package usecase

import (
	"fmt"
	"time"

	"github.com/phenrril/catalog-admin/internal/domain"
)

var sampleImageBases = []string{
	"https://picsum.photos/400/300",
	"https://placehold.co/400x300/3498db/white",
	"https://placehold.co/400x300/2ecc71/white",
	"https://placehold.co/400x300/e74c3c/white",
}

func sampleImageURL(product, image int) string {
	base := sampleImageBases[(product+image)%len(sampleImageBases)]
	return fmt.Sprintf("%s?text=Producto%d_Img%d", base, product, image)
}

func sampleImages(product int, id, stem string, n int) []domain.ProductImage {
	out := make([]domain.ProductImage, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, domain.ProductImage{
			ID:        ImageID(id, i),
			URL:       sampleImageURL(product, i),
			Filename:  fmt.Sprintf("%s_%02d.jpg", stem, i),
			Principal: i == 1,
			Order:     i,
		})
	}
	return out
}

// SampleProducts es el catálogo de demostración para un backend vacío.
func SampleProducts(now time.Time) []domain.Product {
	now = now.UTC()
	prods := []domain.Product{
		{
			ID:             "ejemplo_1",
			Name:           "Smartphone Samsung Galaxy",
			Category:       "Electrónicos",
			Description:    "Smartphone de última generación con cámara de alta resolución",
			PriceMin:       350,
			PriceMax:       400,
			Specifications: domain.Specifications{`Pantalla 6.5"`, "128GB almacenamiento", "Cámara 48MP", "Batería 5000mAh"},
			InquiryCount:   8,
			Images:         sampleImages(1, "ejemplo_1", "samsung_galaxy", 3),
		},
		{
			ID:             "ejemplo_2",
			Name:           "Laptop HP Pavilion",
			Category:       "Computadoras",
			Description:    "Laptop ideal para trabajo y entretenimiento",
			PriceMin:       550,
			PriceMax:       600,
			Specifications: domain.Specifications{"Procesador Intel i5", "8GB RAM", "SSD 256GB", `Pantalla 15.6"`},
			InquiryCount:   12,
			Images:         sampleImages(2, "ejemplo_2", "hp_pavilion", 2),
		},
		{
			ID:             "ejemplo_3",
			Name:           "Audífonos Sony Wireless",
			Category:       "Audio",
			Description:    "Audífonos inalámbricos con cancelación de ruido",
			PriceMin:       120,
			PriceMax:       120,
			Specifications: domain.Specifications{"Cancelación de ruido activa", "Batería 30 horas", "Bluetooth 5.0"},
			InquiryCount:   15,
			Sold:           true,
			Images:         sampleImages(3, "ejemplo_3", "sony_headphones", 1),
		},
	}
	for i := range prods {
		prods[i].PrincipalImage = prods[i].Images[0].URL
		prods[i].Active = true
		prods[i].CreatedAt = now
		prods[i].UpdatedAt = now
	}
	return prods
}
