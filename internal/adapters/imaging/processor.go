package imaging

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/jpeg"
	_ "image/png"
	"math"
	"mime"
	"strings"

	"github.com/go-faster/errors"
	"golang.org/x/image/draw"

	"github.com/phenrril/catalog-admin/internal/domain"
)

const (
	MaxBytes  = 5 << 20
	MaxWidth  = 800
	MaxHeight = 640
	Quality   = 85

	// MaxPixels acota el raster decodificado; 5 MiB de PNG pueden expandirse
	// a varios GB.
	MaxPixels = 40_000_000

	previewPrefix = "data:image/jpeg;base64,"
)

var allowedTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/jpg":  {},
	"image/png":  {},
}

// Processor reescala y recodifica a JPEG las imágenes subidas. No tiene
// estado compartido: puede usarse desde varias goroutines.
type Processor struct {
	MaxBytes  int64
	MaxWidth  int
	MaxHeight int
	MaxPixels int
	Quality   int
}

func NewProcessor() *Processor {
	return &Processor{MaxBytes: MaxBytes, MaxWidth: MaxWidth, MaxHeight: MaxHeight, MaxPixels: MaxPixels, Quality: Quality}
}

func (p *Processor) Process(ctx context.Context, f domain.RawFile) (domain.UploadedImage, error) {
	if err := ctx.Err(); err != nil {
		return domain.UploadedImage{}, err
	}
	if !allowedType(f.ContentType) {
		return domain.UploadedImage{}, &domain.ImageError{Filename: f.Filename, Kind: domain.ErrUnsupportedType}
	}
	size := f.Size
	if n := int64(len(f.Data)); n > size {
		size = n
	}
	if size > p.MaxBytes {
		return domain.UploadedImage{}, &domain.ImageError{Filename: f.Filename, Kind: domain.ErrTooLarge}
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(f.Data))
	if err != nil {
		return domain.UploadedImage{}, &domain.ImageError{
			Filename: f.Filename,
			Kind:     errors.Wrap(domain.ErrUnsupportedType, err.Error()),
		}
	}
	if p.MaxPixels > 0 && int64(cfg.Width)*int64(cfg.Height) > int64(p.MaxPixels) {
		return domain.UploadedImage{}, &domain.ImageError{Filename: f.Filename, Kind: domain.ErrTooLarge}
	}

	src, _, err := image.Decode(bytes.NewReader(f.Data))
	if err != nil {
		return domain.UploadedImage{}, &domain.ImageError{
			Filename: f.Filename,
			Kind:     errors.Wrap(domain.ErrUnsupportedType, err.Error()),
		}
	}

	b := src.Bounds()
	w, h := FitDimensions(b.Dx(), b.Dy(), p.MaxWidth, p.MaxHeight)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	// fondo blanco para PNG con transparencia
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: p.Quality}); err != nil {
		return domain.UploadedImage{}, errors.Wrap(err, "encode jpeg")
	}
	data := buf.Bytes()
	return domain.UploadedImage{
		Filename: f.Filename,
		Data:     data,
		Width:    w,
		Height:   h,
		Preview:  previewPrefix + base64.StdEncoding.EncodeToString(data),
	}, nil
}

// FitDimensions achica (nunca agranda) conservando la proporción. Primero
// ajusta el ancho y después el alto: el primer recorte puede dejar el alto
// todavía fuera de rango.
func FitDimensions(w, h, maxW, maxH int) (int, int) {
	width, height := float64(w), float64(h)
	if width > float64(maxW) {
		height = height * float64(maxW) / width
		width = float64(maxW)
	}
	if height > float64(maxH) {
		width = width * float64(maxH) / height
		height = float64(maxH)
	}
	return atLeastOne(math.Round(width)), atLeastOne(math.Round(height))
}

func atLeastOne(v float64) int {
	if v < 1 {
		return 1
	}
	return int(v)
}

func allowedType(ct string) bool {
	if mt, _, err := mime.ParseMediaType(ct); err == nil {
		ct = mt
	}
	_, ok := allowedTypes[strings.ToLower(strings.TrimSpace(ct))]
	return ok
}
