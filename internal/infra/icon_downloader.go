package infra

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
)

// IconDownloader handles downloading and caching asset icons
type IconDownloader struct {
	basePath string
	size     int
	client   *http.Client
}

// NewIconDownloader creates a new IconDownloader rooted at dir.
func NewIconDownloader(dir string, size int) (*IconDownloader, error) {
	if err := EnsureDir(dir); err != nil {
		return nil, fmt.Errorf("failed to create assets directory: %w", err)
	}

	// Optimize HTTP Transport to prevent connection leaks
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConns = 100
	transport.MaxConnsPerHost = 10
	transport.IdleConnTimeout = 30 * time.Second

	return &IconDownloader{
		basePath: dir,
		size:     size,
		client: &http.Client{
			Timeout:   10 * time.Second,
			Transport: transport,
		},
	}, nil
}

// DownloadIcon fetches imageURL for the asset id unless it is already cached.
// Returns the local file path on success.
// Images are resized to size x size pixels for consistent UI display.
func (d *IconDownloader) DownloadIcon(id, imageURL string) (string, error) {
	// Security: Sanitize id to prevent path traversal
	safeID := sanitizeID(id)
	if safeID == "" {
		return "", fmt.Errorf("invalid asset id: %q", id)
	}
	if imageURL == "" {
		return "", fmt.Errorf("no image url for %s", id)
	}

	filePath := d.GetIconPath(safeID)

	if _, err := os.Stat(filePath); err == nil {
		return filePath, nil // Cache Hit
	}

	req, err := http.NewRequest(http.MethodGet, imageURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", DefaultUserAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("bad status: %s", resp.Status)
	}

	srcImg, err := imaging.Decode(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to decode image: %w", err)
	}

	resizedImg := imaging.Resize(srcImg, d.size, d.size, imaging.Lanczos)

	if err := imaging.Save(resizedImg, filePath); err != nil {
		return "", fmt.Errorf("failed to save resized image: %w", err)
	}

	return filePath, nil
}

// CachedIcon returns the path of the cached icon for id, if one exists.
func (d *IconDownloader) CachedIcon(id string) (string, bool) {
	safeID := sanitizeID(id)
	if safeID == "" {
		return "", false
	}
	path := d.GetIconPath(safeID)
	if _, err := os.Stat(path); err != nil {
		return "", false
	}
	return path, true
}

// GetIconPath returns the local path for an asset's icon
func (d *IconDownloader) GetIconPath(id string) string {
	return filepath.Join(d.basePath, strings.ToLower(sanitizeID(id))+".png")
}

// sanitizeID keeps CoinGecko id characters (letters, digits, dash).
func sanitizeID(id string) string {
	res := make([]rune, 0, len(id))
	for _, r := range id {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' {
			res = append(res, r)
		}
	}
	return string(res)
}
