package drivestore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/go-faster/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/phenrril/catalog-admin/internal/domain"
	"github.com/phenrril/catalog-admin/internal/pkg/clock"
)

const (
	folderMime = "application/vnd.google-apps.folder"
	jsonMime   = "application/json"
	jpegMime   = "image/jpeg"

	// ImageURLBase sirve el blob público a partir de su id.
	ImageURLBase = "https://lh3.googleusercontent.com/d/"
)

type Config struct {
	// SharedFolder es la carpeta raíz compartida con la cuenta de servicio.
	SharedFolder string
	CatalogFile  string
	ImagesFolder string
}

func (c Config) withDefaults() Config {
	if c.SharedFolder == "" {
		c.SharedFolder = "snoopy"
	}
	if c.CatalogFile == "" {
		c.CatalogFile = "products.json"
	}
	if c.ImagesFolder == "" {
		c.ImagesFolder = "productos"
	}
	return c
}

// Store es el RemoteStore sobre Google Drive: el catálogo vive en un único
// products.json y cada imagen es un archivo en la subcarpeta de imágenes.
type Store struct {
	svc   *drive.Service
	cfg   Config
	clock clock.Clock

	mu       sync.Mutex
	rootID   string
	imagesID string
}

// New arma el cliente de Drive. Con credentialsJSON vacío se usan las
// credenciales por defecto del entorno (o las que traigan opts).
func New(ctx context.Context, credentialsJSON []byte, cfg Config, clk clock.Clock, opts ...option.ClientOption) (*Store, error) {
	if len(credentialsJSON) > 0 {
		creds, err := google.CredentialsFromJSON(ctx, credentialsJSON, drive.DriveScope)
		if err != nil {
			return nil, errors.Wrap(err, "leer credenciales de drive")
		}
		opts = append(opts, option.WithCredentials(creds))
	}
	svc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "crear servicio de drive")
	}
	if clk == nil {
		clk = clock.NewRealClock()
	}
	return &Store{svc: svc, cfg: cfg.withDefaults(), clock: clk}, nil
}

func ImageURL(fileID string) string {
	return ImageURLBase + fileID
}

// Probe resuelve (o crea) la carpeta compartida y la de imágenes.
func (s *Store) Probe(ctx context.Context) error {
	if _, err := s.root(ctx); err != nil {
		return err
	}
	_, err := s.images(ctx)
	return err
}

func (s *Store) root(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rootID != "" {
		return s.rootID, nil
	}
	id, err := s.findOrCreateFolder(ctx, s.cfg.SharedFolder, "")
	if err != nil {
		return "", err
	}
	s.rootID = id
	return id, nil
}

func (s *Store) images(ctx context.Context) (string, error) {
	root, err := s.root(ctx)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.imagesID != "" {
		return s.imagesID, nil
	}
	id, err := s.findOrCreateFolder(ctx, s.cfg.ImagesFolder, root)
	if err != nil {
		return "", err
	}
	s.imagesID = id
	return id, nil
}

var queryEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

func quote(v string) string {
	return "'" + queryEscaper.Replace(v) + "'"
}

func (s *Store) findOrCreateFolder(ctx context.Context, name, parent string) (string, error) {
	q := fmt.Sprintf("name=%s and mimeType=%s and trashed=false", quote(name), quote(folderMime))
	if parent != "" {
		q += fmt.Sprintf(" and %s in parents", quote(parent))
	}
	id, err := s.findOne(ctx, q)
	if err != nil || id != "" {
		return id, err
	}
	meta := &drive.File{Name: name, MimeType: folderMime}
	if parent != "" {
		meta.Parents = []string{parent}
	}
	f, err := s.svc.Files.Create(meta).Fields("id").Context(ctx).Do()
	if err != nil {
		return "", errors.Wrapf(err, "crear carpeta %s", name)
	}
	log.Info().Str("folder", name).Str("id", f.Id).Msg("carpeta de drive creada")
	return f.Id, nil
}

func (s *Store) findOne(ctx context.Context, q string) (string, error) {
	list, err := s.svc.Files.List().Q(q).Fields("files(id, name)").Spaces("drive").PageSize(1).Context(ctx).Do()
	if err != nil {
		return "", errors.Wrap(err, "buscar en drive")
	}
	if len(list.Files) == 0 {
		return "", nil
	}
	return list.Files[0].Id, nil
}

func (s *Store) catalogFileID(ctx context.Context) (root, id string, err error) {
	root, err = s.root(ctx)
	if err != nil {
		return "", "", err
	}
	q := fmt.Sprintf("name=%s and %s in parents and trashed=false", quote(s.cfg.CatalogFile), quote(root))
	id, err = s.findOne(ctx, q)
	return root, id, err
}

// ListProducts devuelve una lista vacía si products.json todavía no existe.
func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	_, id, err := s.catalogFileID(ctx)
	if err != nil {
		return nil, err
	}
	if id == "" {
		return []domain.Product{}, nil
	}
	resp, err := s.svc.Files.Get(id).Context(ctx).Download()
	if err != nil {
		return nil, errors.Wrap(err, "descargar catálogo")
	}
	defer resp.Body.Close()

	var doc domain.CatalogDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, errors.Wrap(err, "decodificar catálogo")
	}
	if doc.Products == nil {
		doc.Products = []domain.Product{}
	}
	return doc.Products, nil
}

func (s *Store) SaveAllProducts(ctx context.Context, products []domain.Product) error {
	root, id, err := s.catalogFileID(ctx)
	if err != nil {
		return err
	}
	doc := domain.NewCatalogDocument(products, s.clock.Now(), domain.CatalogVersion)
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return errors.Wrap(err, "codificar catálogo")
	}
	media := googleapi.ContentType(jsonMime)
	if id != "" {
		_, err = s.svc.Files.Update(id, &drive.File{}).Media(bytes.NewReader(b), media).Fields("id").Context(ctx).Do()
		return errors.Wrap(err, "actualizar catálogo")
	}
	meta := &drive.File{Name: s.cfg.CatalogFile, MimeType: jsonMime, Parents: []string{root}}
	_, err = s.svc.Files.Create(meta).Media(bytes.NewReader(b), media).Fields("id").Context(ctx).Do()
	return errors.Wrap(err, "crear catálogo")
}

func (s *Store) StoreImage(ctx context.Context, filename string, data []byte) (domain.StoredImage, error) {
	folder, err := s.images(ctx)
	if err != nil {
		return domain.StoredImage{}, err
	}
	meta := &drive.File{Name: filename, MimeType: jpegMime, Parents: []string{folder}}
	f, err := s.svc.Files.Create(meta).Media(bytes.NewReader(data), googleapi.ContentType(jpegMime)).Fields("id, name").Context(ctx).Do()
	if err != nil {
		return domain.StoredImage{}, errors.Wrapf(err, "subir %s", filename)
	}
	return domain.StoredImage{Ref: f.Id, Filename: filename, URL: ImageURL(f.Id)}, nil
}

// FetchProductImages lista los blobs cuyo nombre empieza con "{id}_".
func (s *Store) FetchProductImages(ctx context.Context, productID string) ([]domain.StoredImage, error) {
	folder, err := s.images(ctx)
	if err != nil {
		return nil, err
	}
	prefix := productID + "_"
	q := fmt.Sprintf("%s in parents and name contains %s and trashed=false", quote(folder), quote(prefix))
	out := []domain.StoredImage{}
	err = s.svc.Files.List().Q(q).Fields("nextPageToken, files(id, name)").OrderBy("name").Pages(ctx, func(list *drive.FileList) error {
		for _, f := range list.Files {
			// "contains" también matchea en medio del nombre
			if !strings.HasPrefix(f.Name, prefix) {
				continue
			}
			out = append(out, domain.StoredImage{Ref: f.Id, Filename: f.Name, URL: ImageURL(f.Id)})
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "listar imágenes")
	}
	return out, nil
}

// DeleteImage considera borrado un blob que ya no existe.
func (s *Store) DeleteImage(ctx context.Context, ref string) error {
	err := s.svc.Files.Delete(ref).Context(ctx).Do()
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusNotFound {
		return nil
	}
	return errors.Wrapf(err, "borrar %s", ref)
}
