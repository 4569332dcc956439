package plex

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/disintegration/imaging"
)

// ArtKind selects posters or background art.
type ArtKind string

const (
	ArtPoster     ArtKind = "poster"
	ArtBackground ArtKind = "art"
)

// ParseArtKind maps poster, art and background onto an ArtKind.
func ParseArtKind(s string) (ArtKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "poster":
		return ArtPoster, nil
	case "art", "background":
		return ArtBackground, nil
	}
	return "", fmt.Errorf("art_type must be 'poster', 'art', or 'background'")
}

// endpoint returns the list/upload path segment and the select segment.
func (k ArtKind) endpoint() (string, string) {
	if k == ArtBackground {
		return "arts", "art"
	}
	return "posters", "poster"
}

// Image is downloaded and decoded artwork.
type Image struct {
	Data        []byte
	ContentType string
	Width       int
	Height      int
}

// Artwork lists the artwork candidates Plex knows for an item.
func (c *Client) Artwork(ctx context.Context, id int, kind ArtKind) ([]Metadata, error) {
	list, _ := kind.endpoint()
	mc, err := c.get(ctx, "list artwork", fmt.Sprintf("/library/metadata/%d/%s", id, list), nil)
	if err != nil {
		return nil, err
	}
	return mc.Metadata, nil
}

// SelectArtwork makes an existing candidate (by its key) the active artwork.
func (c *Client) SelectArtwork(ctx context.Context, id int, kind ArtKind, key string) error {
	_, sel := kind.endpoint()
	q := url.Values{}
	q.Set("url", key)
	_, err := c.exec(ctx, "select artwork", http.MethodPut, fmt.Sprintf("/library/metadata/%d/%s", id, sel), q)
	return err
}

// UploadArtworkURL tells Plex to download artwork from a public URL.
func (c *Client) UploadArtworkURL(ctx context.Context, id int, kind ArtKind, imageURL string) error {
	if _, err := parseBaseURL(imageURL); err != nil {
		return fmt.Errorf("upload artwork: invalid URL: %w", err)
	}
	list, _ := kind.endpoint()
	q := url.Values{}
	q.Set("url", imageURL)
	_, err := c.exec(ctx, "upload artwork", http.MethodPost, fmt.Sprintf("/library/metadata/%d/%s", id, list), q)
	return err
}

// UploadArtwork uploads image bytes. The data must decode as an image.
func (c *Client) UploadArtwork(ctx context.Context, id int, kind ArtKind, data []byte) error {
	if _, err := DecodeImage(data); err != nil {
		return fmt.Errorf("upload artwork: %w", err)
	}
	list, _ := kind.endpoint()
	_, _, err := c.send(ctx, request{
		op:          "upload artwork",
		method:      http.MethodPost,
		base:        c.baseURL,
		path:        fmt.Sprintf("/library/metadata/%d/%s", id, list),
		body:        data,
		contentType: http.DetectContentType(data),
	})
	return err
}

// FetchImage downloads server artwork (a thumb or art path) and decodes it.
// When maxDim > 0 and the image is larger, it is scaled to fit and
// re-encoded as JPEG.
func (c *Client) FetchImage(ctx context.Context, path string, maxDim int) (*Image, error) {
	data, contentType, err := c.Fetch(ctx, path)
	if err != nil {
		return nil, err
	}
	return ProcessImage(data, contentType, maxDim)
}

// DecodeImage reports the dimensions of encoded image data.
func DecodeImage(data []byte) (*Image, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("not a supported image: %w", err)
	}
	b := img.Bounds()
	return &Image{Data: data, ContentType: http.DetectContentType(data), Width: b.Dx(), Height: b.Dy()}, nil
}

// ProcessImage decodes data and optionally scales it down to maxDim.
func ProcessImage(data []byte, contentType string, maxDim int) (*Image, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("not a supported image: %w", err)
	}
	if contentType == "" || !strings.HasPrefix(contentType, "image/") {
		contentType = http.DetectContentType(data)
	}

	b := img.Bounds()
	if maxDim <= 0 || (b.Dx() <= maxDim && b.Dy() <= maxDim) {
		return &Image{Data: data, ContentType: contentType, Width: b.Dx(), Height: b.Dy()}, nil
	}

	scaled := imaging.Fit(img, maxDim, maxDim, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, scaled, imaging.JPEG, imaging.JPEGQuality(90)); err != nil {
		return nil, fmt.Errorf("failed to encode resized image: %w", err)
	}
	sb := scaled.Bounds()
	return &Image{Data: buf.Bytes(), ContentType: "image/jpeg", Width: sb.Dx(), Height: sb.Dy()}, nil
}
