package drivestore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/phenrril/catalog-admin/internal/domain"
	"github.com/phenrril/catalog-admin/internal/pkg/clock"
)

type fakeFile struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	MimeType string   `json:"mimeType,omitempty"`
	Parents  []string `json:"parents,omitempty"`
	data     []byte
}

// fakeDrive entiende sólo las consultas que arma Store.
type fakeDrive struct {
	mu     sync.Mutex
	files  map[string]*fakeFile
	seq    int
	denied bool
}

func newFakeDrive() *fakeDrive {
	return &fakeDrive{files: map[string]*fakeFile{}}
}

var (
	reName     = regexp.MustCompile(`name='((?:\\.|[^'])*)'`)
	reMime     = regexp.MustCompile(`mimeType='((?:\\.|[^'])*)'`)
	reParent   = regexp.MustCompile(`'((?:\\.|[^'])*)' in parents`)
	reContains = regexp.MustCompile(`name contains '((?:\\.|[^'])*)'`)
)

func unquote(v string) string {
	return strings.NewReplacer(`\'`, `'`, `\\`, `\`).Replace(v)
}

func capture(re *regexp.Regexp, q string) (string, bool) {
	m := re.FindStringSubmatch(q)
	if m == nil {
		return "", false
	}
	return unquote(m[1]), true
}

func (d *fakeDrive) match(f *fakeFile, q string) bool {
	if v, ok := capture(reContains, q); ok && !strings.Contains(f.Name, v) {
		return false
	}
	if v, ok := capture(reName, strings.ReplaceAll(q, "name contains", "")); ok && f.Name != v {
		return false
	}
	if v, ok := capture(reMime, q); ok && f.MimeType != v {
		return false
	}
	if v, ok := capture(reParent, q); ok {
		found := false
		for _, p := range f.Parents {
			found = found || p == v
		}
		if !found {
			return false
		}
	}
	return true
}

func (d *fakeDrive) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.denied {
		http.Error(w, `{"error":{"code":403,"message":"forbidden"}}`, http.StatusForbidden)
		return
	}

	path := r.URL.Path
	i := strings.LastIndex(path, "/files")
	if i < 0 {
		http.NotFound(w, r)
		return
	}
	id := strings.TrimPrefix(path[i+len("/files"):], "/")
	upload := r.URL.Query().Get("uploadType") != ""

	switch {
	case r.Method == http.MethodGet && id == "":
		q := r.URL.Query().Get("q")
		out := []*fakeFile{}
		for _, f := range d.files {
			if d.match(f, q) {
				out = append(out, f)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
		writeJSON(w, map[string]any{"files": out})
	case r.Method == http.MethodGet:
		f, ok := d.files[id]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(f.data)
	case r.Method == http.MethodPost:
		meta, data := readBody(r, upload)
		d.seq++
		meta.ID = fmt.Sprintf("f%d", d.seq)
		meta.data = data
		d.files[meta.ID] = meta
		writeJSON(w, meta)
	case r.Method == http.MethodPatch:
		f, ok := d.files[id]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, data := readBody(r, upload)
		f.data = data
		writeJSON(w, f)
	case r.Method == http.MethodDelete:
		if _, ok := d.files[id]; !ok {
			http.Error(w, `{"error":{"code":404,"message":"not found"}}`, http.StatusNotFound)
			return
		}
		delete(d.files, id)
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "unsupported", http.StatusBadRequest)
	}
}

func readBody(r *http.Request, upload bool) (*fakeFile, []byte) {
	meta := &fakeFile{}
	if !upload {
		_ = json.NewDecoder(r.Body).Decode(meta)
		return meta, nil
	}
	mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") {
		data, _ := io.ReadAll(r.Body)
		return meta, data
	}
	mr := multipart.NewReader(r.Body, params["boundary"])
	var data []byte
	for n := 0; ; n++ {
		part, err := mr.NextPart()
		if err != nil {
			break
		}
		b, _ := io.ReadAll(part)
		if n == 0 {
			_ = json.Unmarshal(b, meta)
		} else {
			data = b
		}
	}
	return meta, data
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func newTestStore(t *testing.T) (*Store, *fakeDrive) {
	t.Helper()
	fake := newFakeDrive()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	s, err := New(context.Background(), nil, Config{}, clock.NewMockClock(time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)),
		option.WithEndpoint(srv.URL+"/drive/v3/"),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)
	return s, fake
}

func TestStore_ProbeCreatesFolders(t *testing.T) {
	s, fake := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Probe(ctx))
	require.NoError(t, s.Probe(ctx))

	var names []string
	for _, f := range fake.files {
		names = append(names, f.Name)
	}
	assert.ElementsMatch(t, []string{"snoopy", "productos"}, names)
}

func TestStore_ProbeDenied(t *testing.T) {
	s, fake := newTestStore(t)
	fake.denied = true
	assert.Error(t, s.Probe(context.Background()))
}

func TestStore_CatalogRoundTrip(t *testing.T) {
	s, fake := newTestStore(t)
	ctx := context.Background()

	list, err := s.ListProducts(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	products := []domain.Product{{ID: "p1", Name: "Mate", Specifications: domain.Specifications{"Calabaza"}}}
	require.NoError(t, s.SaveAllProducts(ctx, products))
	products[0].Name = "Mate imperial"
	require.NoError(t, s.SaveAllProducts(ctx, products))

	catalogs := 0
	for _, f := range fake.files {
		if f.Name == "products.json" {
			catalogs++
			var doc map[string]any
			require.NoError(t, json.Unmarshal(f.data, &doc))
			assert.Contains(t, doc, "productos")
			assert.EqualValues(t, 1, doc["totalProducts"])
			assert.Equal(t, "1.0", doc["version"])
		}
	}
	assert.Equal(t, 1, catalogs)

	list, err = s.ListProducts(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Mate imperial", list[0].Name)
	assert.Equal(t, "Calabaza", list[0].Specifications.String())
}

func TestStore_Images(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	a, err := s.StoreImage(ctx, "p1_01.jpg", []byte{0xff, 0xd8, 0x01})
	require.NoError(t, err)
	assert.Equal(t, ImageURL(a.Ref), a.URL)
	_, err = s.StoreImage(ctx, "p1_02.jpg", []byte{0xff, 0xd8, 0x02})
	require.NoError(t, err)
	_, err = s.StoreImage(ctx, "xp1_01.jpg", []byte{0xff})
	require.NoError(t, err)

	imgs, err := s.FetchProductImages(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, imgs, 2)
	assert.Equal(t, "p1_01.jpg", imgs[0].Filename)
	assert.Equal(t, "p1_02.jpg", imgs[1].Filename)

	require.NoError(t, s.DeleteImage(ctx, a.Ref))
	require.NoError(t, s.DeleteImage(ctx, a.Ref), "borrar dos veces no es error")

	imgs, err = s.FetchProductImages(ctx, "p1")
	require.NoError(t, err)
	assert.Len(t, imgs, 1)
}

func TestQuoteEscapes(t *testing.T) {
	assert.Equal(t, `'O\'Brien'`, quote("O'Brien"))
	assert.Equal(t, `'a\\b'`, quote(`a\b`))
}
