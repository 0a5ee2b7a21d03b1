package sitekit

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/image/draw"
)

const (
	maxImageWidth = 1600
	jpegQuality   = 82
	maxAssetSize  = 10 << 20 // 10MB
)

// Asset describes one emitted image asset.
type Asset struct {
	Path    string `json:"path"`
	Width   int    `json:"width,omitempty"`
	Height  int    `json:"height,omitempty"`
	Size    int    `json:"size"`
	Resized bool   `json:"resized,omitempty"`
}

// processImage decodes an image from src, resizes it to maxImageWidth when it
// is wider, and encodes it as JPEG.
func processImage(src io.Reader) (Asset, []byte, error) {
	img, _, err := image.Decode(src)
	if err != nil {
		return Asset{}, nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	resized := false

	if w > maxImageWidth {
		newH := h * maxImageWidth / w
		dst := image.NewRGBA(image.Rect(0, 0, maxImageWidth, newH))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		img = dst
		w = maxImageWidth
		h = newH
		resized = true
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return Asset{}, nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return Asset{Width: w, Height: h, Size: buf.Len(), Resized: resized}, buf.Bytes(), nil
}

// assetFile maps an asset path used in a page ("/assets/me.jpg") to a
// relative file path, rejecting paths that climb out of the root.
func assetFile(assetPath string) (string, error) {
	clean := path.Clean("/" + strings.TrimSpace(assetPath))
	rel := strings.TrimPrefix(clean, "/")
	if rel == "" || strings.HasPrefix(rel, "../") || rel == ".." {
		return "", fmt.Errorf("invalid asset path %q", assetPath)
	}
	return filepath.FromSlash(rel), nil
}

// emitAsset copies one asset from the project into outDir. JPEG images are
// re-encoded and scaled down to maxImageWidth; other files are copied as is.
func emitAsset(projectDir, outDir, assetPath string) (Asset, error) {
	rel, err := assetFile(assetPath)
	if err != nil {
		return Asset{}, err
	}
	data, err := os.ReadFile(filepath.Join(projectDir, rel))
	if err != nil {
		return Asset{}, fmt.Errorf("read asset: %w", err)
	}
	if len(data) > maxAssetSize {
		return Asset{}, fmt.Errorf("asset %s too large (max 10MB)", assetPath)
	}

	asset := Asset{Path: assetPath, Size: len(data)}
	switch strings.ToLower(filepath.Ext(rel)) {
	case ".jpg", ".jpeg":
		processed, encoded, err := processImage(bytes.NewReader(data))
		if err != nil {
			return Asset{}, fmt.Errorf("asset %s: %w", assetPath, err)
		}
		processed.Path = assetPath
		asset, data = processed, encoded
	}

	dst := filepath.Join(outDir, rel)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return Asset{}, err
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return Asset{}, fmt.Errorf("write asset: %w", err)
	}
	return asset, nil
}
