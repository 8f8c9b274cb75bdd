package domain

import (
	"fmt"
	"strings"

	"github.com/go-faster/errors"
)

var (
	ErrNotFound           = errors.New("producto no encontrado")
	ErrUnsupportedType    = errors.New("tipo de imagen no soportado")
	ErrTooLarge           = errors.New("imagen demasiado grande")
	ErrImageLimitExceeded = errors.New("límite de imágenes por producto excedido")
	ErrSaveInProgress     = errors.New("ya hay un guardado en curso")
	ErrEmbeddedImages     = errors.New("el backend local no aloja imágenes")
)

// Restricciones que puede reportar un ValidationError.
const (
	FieldName           = "nombre"
	FieldCategory       = "categoria"
	FieldDescription    = "descripcion"
	FieldPriceMin       = "precioMin"
	FieldPriceMax       = "precioMax"
	FieldPriceRange     = "precioMin<=precioMax"
	FieldSpecifications = "especificaciones"
	FieldImages         = "imagenes"
)

type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "datos inválidos: " + strings.Join(e.Fields, ", ")
}

// Has reporta si la restricción dada falló.
func (e *ValidationError) Has(field string) bool {
	for _, f := range e.Fields {
		if f == field {
			return true
		}
	}
	return false
}

// ImageError se reporta por archivo; Kind es uno de los sentinels de imagen.
type ImageError struct {
	Filename string
	Kind     error
}

func (e *ImageError) Error() string {
	if e.Filename == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Filename, e.Kind)
}

func (e *ImageError) Unwrap() error { return e.Kind }

// PersistenceError indica que ni el backend remoto ni el local pudieron
// completar la operación.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistencia %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
