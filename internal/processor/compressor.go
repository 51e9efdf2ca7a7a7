package processor

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	// Register the decoders for the formats we accept.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
)

// userAgent mirrors what a browser would send; some image hosts refuse
// requests without one.
const userAgent = "Mozilla/5.0"

// jpegQuality is the fixed lossy re-encode quality. Half quality trades
// fidelity for a substantial size reduction.
const jpegQuality = 50

// Uploader stores a compressed image under a key, appending a suffix when
// the key collides, and returns the object's public URL.
type Uploader interface {
	UploadUnique(ctx context.Context, key, contentType string, payload []byte) (string, error)
}

// Compressor is the per-URL unit: fetch an image, re-encode it as a
// quality-50 JPEG and upload the result.
type Compressor struct {
	client   *http.Client
	uploader Uploader
}

func NewCompressor(uploader Uploader) *Compressor {
	return &Compressor{
		client:   &http.Client{Timeout: 60 * time.Second},
		uploader: uploader,
	}
}

// NewCompressorWithClient is used by tests to point the unit at a stub
// server.
func NewCompressorWithClient(uploader Uploader, client *http.Client) *Compressor {
	return &Compressor{client: client, uploader: uploader}
}

// Process runs the full fetch → decode → re-encode → upload pipeline for
// one source URL and returns the destination URL. Every failure concerns
// this URL alone; the caller decides whether to continue.
func (c *Compressor) Process(ctx context.Context, rawURL string) (string, error) {
	body, err := c.fetch(ctx, rawURL)
	if err != nil {
		return "", err
	}

	compressed, err := Compress(body)
	if err != nil {
		return "", fmt.Errorf("compress %s: %w", rawURL, err)
	}

	dest, err := c.uploader.UploadUnique(ctx, ObjectKey(rawURL), "image/jpeg", compressed)
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", rawURL, err)
	}

	return dest, nil
}

func (c *Compressor) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", rawURL, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: unexpected status %d", rawURL, resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "image") {
		return nil, fmt.Errorf("fetch %s: content type %q is not an image", rawURL, ct)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, fmt.Errorf("read body of %s: %w", rawURL, err)
	}
	return buf.Bytes(), nil
}

// Compress decodes an image in any registered format, flattens it onto an
// opaque RGB canvas and re-encodes it as a quality-50 JPEG.
func Compress(data []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		// The stdlib registry has no webp decoder.
		wimg, werr := webp.Decode(bytes.NewReader(data))
		if werr != nil {
			return nil, fmt.Errorf("decode image: %w", err)
		}
		img = wimg
	}

	// JPEG has no alpha channel; composite transparent sources over black
	// before encoding.
	bounds := img.Bounds()
	rgb := image.NewRGBA(bounds)
	draw.Draw(rgb, bounds, image.NewUniform(color.Black), image.Point{}, draw.Src)
	draw.Draw(rgb, bounds, img, bounds.Min, draw.Over)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, rgb, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// ObjectKey derives a storage key from the URL path: the basename with
// query parameters and the file extension stripped.
func ObjectKey(rawURL string) string {
	name := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		name = u.Path
	}
	name = path.Base(name)
	return strings.TrimSuffix(name, path.Ext(name))
}
