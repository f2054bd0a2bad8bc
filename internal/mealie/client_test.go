package mealie

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/kdelwat9/snap2mealie/internal/config"
)

func newTestClient(t *testing.T, serverURL string) *Client {
	t.Helper()
	return NewClient(config.MealieConfig{
		BaseURL: serverURL,
		Token:   "test-token",
	}, zaptest.NewLogger(t))
}

func TestCreateRecipe(t *testing.T) {
	var gotAuth, gotPath string
	var gotBody payload

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(raw, &gotBody))
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`"pancakes-deluxe"`))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	slug, err := c.CreateRecipe(context.Background(), `<script type="application/ld+json">{"name":"Pancakes"}</script>`)
	require.NoError(t, err)

	assert.Equal(t, "pancakes-deluxe", slug)
	assert.Equal(t, "Bearer test-token", gotAuth)
	assert.Equal(t, "/api/recipes/create/html", gotPath)
	assert.False(t, gotBody.IncludeTags)
	assert.Contains(t, gotBody.Data, `"name":"Pancakes"`)
}

func TestCreateRecipeServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid recipe data", http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	_, err := c.CreateRecipe(context.Background(), "<script></script>")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "422")
}

func TestCreateRecipeNotConfigured(t *testing.T) {
	c := NewClient(config.MealieConfig{}, zaptest.NewLogger(t))
	_, err := c.CreateRecipe(context.Background(), "<script></script>")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestUploadThumbnail(t *testing.T) {
	var gotMethod, gotPath, gotExt string
	var gotImage []byte

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		require.NoError(t, r.ParseMultipartForm(1<<20))
		gotExt = r.FormValue("extension")
		file, _, err := r.FormFile("image")
		require.NoError(t, err)
		defer file.Close()
		gotImage, _ = io.ReadAll(file)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	imgPath := filepath.Join(t.TempDir(), "thumbnail.png")
	require.NoError(t, os.WriteFile(imgPath, []byte("png-bytes"), 0o644))

	c := newTestClient(t, server.URL)
	err := c.UploadThumbnail(context.Background(), "pancakes-deluxe", imgPath)
	require.NoError(t, err)

	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "/api/recipes/pancakes-deluxe/image", gotPath)
	assert.Equal(t, "png", gotExt)
	assert.Equal(t, []byte("png-bytes"), gotImage)
}

func TestUploadThumbnailMissingFile(t *testing.T) {
	c := newTestClient(t, "http://localhost:1")
	err := c.UploadThumbnail(context.Background(), "slug", "/nonexistent/file.png")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "opening thumbnail")
}
