package httpserver

import (
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"github.com/rs/zerolog/log"

	"github.com/phenrril/catalog-admin/internal/domain"
	"github.com/phenrril/catalog-admin/internal/usecase"
)

const (
	fieldImages = "imagenes"
	fieldKeep   = "keep"
)

type rejectedImage struct {
	File  string `json:"archivo"`
	Error string `json:"error"`
}

type saveResponse struct {
	Message  string          `json:"message"`
	Product  domain.Product  `json:"producto"`
	Degraded bool            `json:"degraded"`
	Rejected []rejectedImage `json:"rechazadas,omitempty"`
}

func newSaveResponse(rep usecase.SaveReport, ok, degraded string) saveResponse {
	msg := ok
	if rep.Degraded {
		msg = degraded
	}
	out := saveResponse{Message: msg, Product: rep.Product, Degraded: rep.Degraded}
	for _, e := range rep.Rejected {
		out.Rejected = append(out.Rejected, rejectedImage{File: e.Filename, Error: e.Kind.Error()})
	}
	return out
}

func (s *Server) apiListProducts(w http.ResponseWriter, r *http.Request) {
	list := s.products.List()
	writeJSON(w, http.StatusOK, map[string]any{"productos": list, "total": len(list)})
}

func (s *Server) apiGetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := s.products.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) apiCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"categorias": s.products.Categories()})
}

func (s *Server) apiProductImages(w http.ResponseWriter, r *http.Request) {
	imgs, res, err := s.products.FetchImages(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"imagenes": imgs, "backend": res.Backend, "degraded": res.Degraded})
}

func (s *Server) apiCreateProduct(w http.ResponseWriter, r *http.Request) {
	form, ok := s.parseMultipart(w, r)
	if !ok {
		return
	}
	files, err := s.readFiles(form)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "No se pudieron leer las imágenes")
		return
	}
	rep, err := s.products.Create(r.Context(), parseDraft(form), files)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newSaveResponse(rep,
		"Producto creado",
		"Producto guardado localmente: Drive no está disponible"))
}

func (s *Server) apiUpdateProduct(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	form, ok := s.parseMultipart(w, r)
	if !ok {
		return
	}
	files, err := s.readFiles(form)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "No se pudieron leer las imágenes")
		return
	}
	keep, sent := form.Value[fieldKeep]
	if !sent {
		// sin "keep" se conservan todas las imágenes actuales
		current, err := s.products.Get(id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		for _, im := range current.Images {
			keep = append(keep, im.ID)
		}
	}
	rep, err := s.products.Update(r.Context(), id, parseDraft(form), files, splitValues(keep, ","))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newSaveResponse(rep,
		"Producto actualizado",
		"Cambios guardados localmente: Drive no está disponible"))
}

func (s *Server) apiDeleteProduct(w http.ResponseWriter, r *http.Request) {
	rep, err := s.products.Delete(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newSaveResponse(rep,
		"Producto eliminado",
		"Producto eliminado localmente: Drive no está disponible"))
}

type inquiryRequest struct {
	Name    string `json:"nombre"`
	Contact string `json:"contacto"`
	Message string `json:"mensaje"`
}

func (s *Server) apiInquiry(w http.ResponseWriter, r *http.Request) {
	var req inquiryRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(io.LimitReader(r.Body, 64<<10)).Decode(&req); err != nil {
			writeMessage(w, http.StatusBadRequest, "JSON inválido")
			return
		}
	}
	rep, err := s.products.RecordInquiry(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if s.notifications != nil {
		in := domain.Inquiry{Name: req.Name, Contact: req.Contact, Message: req.Message}
		if _, err := s.notifications.Register(r.Context(), rep.Product, in); err != nil {
			// la consulta ya quedó contada; sólo se pierde el detalle
			log.Warn().Err(err).Str("product_id", rep.Product.ID).Msg("no se pudo registrar la notificación")
		}
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message":   "Consulta registrada",
		"consultas": rep.Product.InquiryCount,
		"degraded":  rep.Degraded,
	})
}

func (s *Server) parseMultipart(w http.ResponseWriter, r *http.Request) (*multipart.Form, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeMessage(w, http.StatusRequestEntityTooLarge, "La solicitud supera el tamaño permitido")
			return nil, false
		}
		writeMessage(w, http.StatusBadRequest, "Se esperaba un formulario multipart")
		return nil, false
	}
	return r.MultipartForm, true
}

// readFiles no lee archivos que ya superan el tope; el procesador los rechaza
// por tamaño.
func (s *Server) readFiles(form *multipart.Form) ([]domain.RawFile, error) {
	headers := form.File[fieldImages]
	out := make([]domain.RawFile, 0, len(headers))
	for _, fh := range headers {
		raw := domain.RawFile{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
		}
		if fh.Size <= s.maxUpload {
			data, err := readPart(fh)
			if err != nil {
				return nil, errors.Wrapf(err, "leer %s", fh.Filename)
			}
			raw.Data = data
		}
		out = append(out, raw)
	}
	return out, nil
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func parseDraft(form *multipart.Form) domain.ProductDraft {
	get := func(k string) string {
		if v := form.Value[k]; len(v) > 0 {
			return v[0]
		}
		return ""
	}
	d := domain.ProductDraft{
		Name:           get("nombre"),
		Category:       get("categoria"),
		NewCategory:    get("nuevaCategoria"),
		Description:    get("descripcion"),
		PriceMin:       get("precioMin"),
		PriceMax:       get("precioMax"),
		Specifications: splitValues(form.Value["especificaciones"], ";"),
	}
	if v, ok := form.Value["vendido"]; ok && len(v) > 0 {
		sold := parseBool(v[0])
		d.Sold = &sold
	}
	return d
}

// splitValues acepta tanto campos repetidos como un único valor separado
// por sep.
func splitValues(values []string, sep string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, sep) {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "on", "si", "sí", "yes":
		return true
	}
	b, _ := strconv.ParseBool(v)
	return b
}
