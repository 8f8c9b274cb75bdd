package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phenrril/catalog-admin/internal/domain"
)

func existingImages(pid string, n int) []domain.ProductImage {
	out := make([]domain.ProductImage, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, domain.ProductImage{
			ID:        ImageID(pid, i),
			URL:       "https://lh3.googleusercontent.com/d/blob" + ImageID(pid, i),
			Filename:  ImageFilename(pid, i),
			Principal: i == 1,
			Order:     i,
			Ref:       "blob" + ImageID(pid, i),
		})
	}
	return out
}

func uploads(names ...string) []domain.UploadedImage {
	out := make([]domain.UploadedImage, 0, len(names))
	for _, n := range names {
		out = append(out, domain.UploadedImage{Filename: n, Preview: "data:image/jpeg;base64," + n})
	}
	return out
}

func assertImageInvariants(t *testing.T, pid string, list []domain.ProductImage) {
	t.Helper()
	require.NotEmpty(t, list)
	principals := 0
	for i, im := range list {
		assert.Equal(t, i+1, im.Order)
		assert.Equal(t, ImageID(pid, i+1), im.ID)
		if im.Principal {
			principals++
			assert.Equal(t, 1, im.Order)
		}
	}
	assert.Equal(t, 1, principals)
}

func TestImageID(t *testing.T) {
	assert.Equal(t, "prod_1_abc_01", ImageID("prod_1_abc", 1))
	assert.Equal(t, "prod_1_abc_05.jpg", ImageFilename("prod_1_abc", 5))
}

func TestReconcile(t *testing.T) {
	pid := "prod_1_abc"

	t.Run("uploads first then survivors", func(t *testing.T) {
		existing := existingImages(pid, 3)
		got, err := Reconcile(existing, []string{existing[0].ID, existing[2].ID}, uploads("a.jpg"), pid)
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, "a.jpg", got[0].Filename)
		assert.Equal(t, existing[0].Ref, got[1].Ref)
		assert.Equal(t, existing[2].Ref, got[2].Ref)
		assertImageInvariants(t, pid, got)
	})

	t.Run("nothing kept and nothing uploaded gives placeholder", func(t *testing.T) {
		got, err := Reconcile(existingImages(pid, 2), nil, nil, pid)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.True(t, got[0].IsPlaceholder())
		assertImageInvariants(t, pid, got)
	})

	t.Run("placeholder never survives", func(t *testing.T) {
		placeholder, err := Reconcile(nil, nil, nil, pid)
		require.NoError(t, err)
		got, err := Reconcile(placeholder, []string{placeholder[0].ID}, uploads("b.png"), pid)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.False(t, got[0].IsPlaceholder())
	})

	t.Run("keeping everything is idempotent", func(t *testing.T) {
		first, err := Reconcile(existingImages(pid, 2), []string{ImageID(pid, 1), ImageID(pid, 2)}, uploads("x.jpg"), pid)
		require.NoError(t, err)
		ids := make([]string, 0, len(first))
		for _, im := range first {
			ids = append(ids, im.ID)
		}
		second, err := Reconcile(first, ids, nil, pid)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("composing with a kept prefix equals keeping the intersection", func(t *testing.T) {
		existing := existingImages(pid, 4)
		prefix := []string{ImageID(pid, 1), ImageID(pid, 2), ImageID(pid, 3)}
		first, err := Reconcile(existing, prefix, nil, pid)
		require.NoError(t, err)

		for _, later := range [][]string{
			{ImageID(pid, 2)},
			{ImageID(pid, 1), ImageID(pid, 3)},
			prefix,
		} {
			lhs, err := Reconcile(first, later, nil, pid)
			require.NoError(t, err)
			rhs, err := Reconcile(existing, later, nil, pid)
			require.NoError(t, err)
			assert.Equal(t, rhs, lhs, "kept %v", later)
		}
	})

	t.Run("keeping every id of a previous result is a no-op", func(t *testing.T) {
		existing := existingImages(pid, 4)
		first, err := Reconcile(existing, []string{ImageID(pid, 2), ImageID(pid, 4)}, nil, pid)
		require.NoError(t, err)
		ids := []string{first[0].ID, first[1].ID}
		second, err := Reconcile(first, ids, nil, pid)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("unknown kept ids are ignored", func(t *testing.T) {
		got, err := Reconcile(existingImages(pid, 2), []string{"otro_01"}, uploads("n.jpg"), pid)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "n.jpg", got[0].Filename)
	})

	t.Run("limit exceeded rejects the batch", func(t *testing.T) {
		existing := existingImages(pid, 4)
		kept := []string{existing[0].ID, existing[1].ID, existing[2].ID, existing[3].ID}
		_, err := Reconcile(existing, kept, uploads("1", "2", "3", "4", "5", "6"), pid)
		require.ErrorIs(t, err, domain.ErrImageLimitExceeded)
	})

	t.Run("exactly at the limit", func(t *testing.T) {
		existing := existingImages(pid, 4)
		got, err := Reconcile(existing, []string{existing[3].ID}, uploads("1", "2", "3", "4"), pid)
		require.NoError(t, err)
		assert.Len(t, got, domain.MaxImagesPerProduct)
		assertImageInvariants(t, pid, got)
	})
}

func TestCheckImageLimit(t *testing.T) {
	assert.NoError(t, CheckImageLimit(0, 5))
	assert.NoError(t, CheckImageLimit(3, 2))
	assert.ErrorIs(t, CheckImageLimit(5, 1), domain.ErrImageLimitExceeded)
	assert.ErrorIs(t, CheckImageLimit(0, 6), domain.ErrImageLimitExceeded)
}

func TestKeepsPlaceholder(t *testing.T) {
	const pid = "prod_x"
	placeholder, err := Reconcile(nil, nil, nil, pid)
	require.NoError(t, err)
	require.True(t, placeholder[0].IsPlaceholder())

	assert.True(t, KeepsPlaceholder(placeholder, []string{placeholder[0].ID}))
	assert.False(t, KeepsPlaceholder(placeholder, nil))
	assert.False(t, KeepsPlaceholder(existingImages(pid, 2), []string{ImageID(pid, 1)}))
}
