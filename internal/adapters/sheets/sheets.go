package sheets

import (
	"io"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/xuri/excelize/v2"

	"github.com/phenrril/catalog-admin/internal/domain"
)

const (
	CatalogSheet       = "Productos"
	NotificationsSheet = "Notificaciones"
)

var catalogHeader = []any{
	"ID", "Nombre", "Categoría", "Descripción", "Precio mín", "Precio máx", "Especificaciones",
	"Consultas", "Vendido", "Activo", "Imágenes", "Imagen principal", "Creado", "Actualizado",
}

var notificationsHeader = []any{"ID", "Fecha", "Producto ID", "Producto", "Nombre", "Contacto", "Mensaje"}

func siNo(v bool) string {
	if v {
		return "Sí"
	}
	return "No"
}

// newBook crea un libro con una única hoja llamada sheet.
func newBook(sheet string) *excelize.File {
	f := excelize.NewFile()
	f.SetSheetName("Sheet1", sheet)
	return f
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &rows[i]); err != nil {
			return errors.Wrapf(err, "fila %d", i+1)
		}
	}
	return nil
}

// WriteCatalog exporta el catálogo como planilla.
func WriteCatalog(w io.Writer, products []domain.Product) error {
	f := newBook(CatalogSheet)
	defer f.Close()

	rows := make([][]any, 0, len(products)+1)
	rows = append(rows, catalogHeader)
	for _, p := range products {
		rows = append(rows, []any{
			p.ID,
			p.Name,
			p.Category,
			p.Description,
			p.PriceMin,
			p.PriceMax,
			p.Specifications.String(),
			p.InquiryCount,
			siNo(p.Sold),
			siNo(p.Active),
			len(p.Images),
			exportURL(p.PrincipalImage),
			p.CreatedAt.Format(time.RFC3339),
			p.UpdatedAt.Format(time.RFC3339),
		})
	}
	if err := writeRows(f, CatalogSheet, rows); err != nil {
		return err
	}
	_ = f.SetPanes(CatalogSheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
	_, err := f.WriteTo(w)
	return errors.Wrap(err, "escribir planilla")
}

// exportURL no vuelca previews embebidas en la celda.
func exportURL(u string) string {
	if strings.HasPrefix(u, "data:") {
		return "(embebida)"
	}
	return u
}

func notificationRow(n domain.Notification) []any {
	return []any{
		n.ID.String(),
		n.CreatedAt.UTC().Format(time.RFC3339),
		n.ProductID,
		n.ProductName,
		n.Name,
		n.Contact,
		n.Message,
	}
}

func notificationsBook(list []domain.Notification) (*excelize.File, error) {
	f := newBook(NotificationsSheet)
	rows := make([][]any, 0, len(list)+1)
	rows = append(rows, notificationsHeader)
	for _, n := range list {
		rows = append(rows, notificationRow(n))
	}
	if err := writeRows(f, NotificationsSheet, rows); err != nil {
		_ = f.Close()
		return nil, err
	}
	return f, nil
}

func WriteNotifications(w io.Writer, list []domain.Notification) error {
	f, err := notificationsBook(list)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteTo(w)
	return errors.Wrap(err, "escribir planilla")
}
