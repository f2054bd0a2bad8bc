// Package mealie submits finalized recipe documents to a Mealie instance.
// The recipe is delivered through Mealie's create-from-HTML endpoint as a
// JSON-LD script wrapped in the expected envelope; an optional thumbnail is
// attached afterwards.
package mealie

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/kdelwat9/snap2mealie/internal/config"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrNotConfigured indicates the client has no base URL to talk to.
var ErrNotConfigured = errors.New("mealie sink not configured")

// payload is the envelope the create-from-HTML endpoint expects. Data carries
// the JSON-LD script element as raw HTML.
type payload struct {
	IncludeTags bool   `json:"includeTags"`
	Data        string `json:"data"`
}

// Client talks to one Mealie instance.
type Client struct {
	baseURL string
	token   string
	httpc   *http.Client
	logger  *zap.Logger
}

// NewClient creates a Client from the sink configuration.
func NewClient(cfg config.MealieConfig, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		httpc:   &http.Client{Timeout: timeout},
		logger:  logger.Named("mealie"),
	}
}

// Configured reports whether the client has a target instance.
func (c *Client) Configured() bool {
	return c != nil && c.baseURL != ""
}

// CreateRecipe submits the JSON-LD script to Mealie and returns the slug of
// the created recipe.
func (c *Client) CreateRecipe(ctx context.Context, jsonLD string) (string, error) {
	if !c.Configured() {
		return "", ErrNotConfigured
	}

	body, err := json.Marshal(payload{IncludeTags: false, Data: jsonLD})
	if err != nil {
		return "", fmt.Errorf("encoding recipe payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/recipes/create/html", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("submitting recipe: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("reading create response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("recipe create failed: status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	// Mealie answers with the new slug as a JSON string.
	var slug string
	if err := json.Unmarshal(raw, &slug); err != nil {
		slug = strings.Trim(strings.TrimSpace(string(raw)), `"`)
	}
	if slug == "" {
		return "", fmt.Errorf("recipe create returned no slug")
	}

	c.logger.Info("Recipe created in Mealie.", zap.String("slug", slug))
	return slug, nil
}

// UploadThumbnail attaches a local image file to an existing recipe.
func (c *Client) UploadThumbnail(ctx context.Context, slug, imagePath string) error {
	if !c.Configured() {
		return ErrNotConfigured
	}

	f, err := os.Open(imagePath)
	if err != nil {
		return fmt.Errorf("opening thumbnail %s: %w", imagePath, err)
	}
	defer f.Close()

	ext := strings.TrimPrefix(filepath.Ext(imagePath), ".")
	if ext == "" {
		ext = "png"
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("image", filepath.Base(imagePath))
	if err != nil {
		return fmt.Errorf("building multipart body: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return fmt.Errorf("copying thumbnail into request: %w", err)
	}
	if err := mw.WriteField("extension", ext); err != nil {
		return fmt.Errorf("building multipart body: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("finalizing multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut,
		fmt.Sprintf("%s/api/recipes/%s/image", c.baseURL, slug), &buf)
	if err != nil {
		return fmt.Errorf("building upload request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	c.authorize(req)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("uploading thumbnail: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("thumbnail upload failed: status %d", resp.StatusCode)
	}

	c.logger.Info("Thumbnail uploaded.", zap.String("slug", slug), zap.String("file", imagePath))
	return nil
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}
