package blob

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/eringen/folio/content"
)

const (
	maxImageWidth = 1600
	jpegQuality   = 82
)

// Disk writes uploads into a local directory served by the web app.
// Images wider than maxImageWidth are scaled down and stored as JPEG.
type Disk struct {
	dir     string
	urlBase string
	now     func() time.Time
}

// NewDisk creates a disk store writing into dir and linking files under
// urlBase (default /public/uploads).
func NewDisk(dir, urlBase string) *Disk {
	urlBase = strings.TrimRight(urlBase, "/")
	if urlBase == "" {
		urlBase = "/public/uploads"
	}
	return &Disk{dir: dir, urlBase: urlBase, now: time.Now}
}

func (d *Disk) Mode() content.BlobMode { return content.BlobDisk }

func (d *Disk) Put(_ context.Context, name, contentType string, data []byte) (content.Media, error) {
	ext := strings.ToLower(filepath.Ext(name))
	if strings.HasPrefix(contentType, "image/") {
		if scaled, ok, err := downscale(data); err != nil {
			return content.Media{}, fmt.Errorf("%w: %s: %v", content.ErrInvalid, name, err)
		} else if ok {
			data = scaled
			ext = ".jpg"
		}
	}

	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return content.Media{}, fmt.Errorf("%w: create uploads dir: %v", content.ErrStorageUnavailable, err)
	}
	filename := d.uniqueFilename(slugifyFilename(name), ext)
	if err := os.WriteFile(filepath.Join(d.dir, filename), data, 0o644); err != nil {
		return content.Media{}, fmt.Errorf("%w: write upload: %v", content.ErrStorageUnavailable, err)
	}
	return content.Media{URL: d.urlBase + "/" + filename, Size: int64(len(data))}, nil
}

// Remove deletes a file this store wrote. URLs outside the uploads
// prefix are ignored.
func (d *Disk) Remove(_ context.Context, m content.Media) error {
	if !strings.HasPrefix(m.URL, d.urlBase+"/") {
		return nil
	}
	name := filepath.Base(strings.TrimPrefix(m.URL, d.urlBase+"/"))
	if err := os.Remove(filepath.Join(d.dir, name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: remove upload: %v", content.ErrStorageUnavailable, err)
	}
	return nil
}

// downscale decodes an image and, when it is wider than maxImageWidth,
// resizes it and encodes it as JPEG. ok is false when the original bytes
// should be kept. Formats the decoders do not know (svg, heic) are kept
// as they are.
func downscale(data []byte) (out []byte, ok bool, err error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		if err == image.ErrFormat {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("decode image: %w", err)
	}
	if cfg.Width <= maxImageWidth {
		return nil, false, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, false, fmt.Errorf("decode image: %w", err)
	}
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	newH := h * maxImageWidth / w
	dst := image.NewRGBA(image.Rect(0, 0, maxImageWidth, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, false, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), true, nil
}

// uniqueFilename appends a counter while a file with the name exists.
func (d *Disk) uniqueFilename(base, ext string) string {
	base = fmt.Sprintf("%s-%d", base, d.now().UnixMilli())
	candidate := base + ext
	for counter := 2; ; counter++ {
		if _, err := os.Stat(filepath.Join(d.dir, candidate)); err != nil {
			return candidate
		}
		candidate = fmt.Sprintf("%s-%d%s", base, counter, ext)
	}
}

// slugifyFilename converts a file name without its extension to a
// URL-safe slug.
func slugifyFilename(name string) string {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	base = strings.ToLower(strings.TrimSpace(base))
	var b strings.Builder
	prev := false
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prev = false
		default:
			if !prev && b.Len() > 0 {
				b.WriteByte('-')
				prev = true
			}
		}
	}
	if s := strings.TrimRight(b.String(), "-"); s != "" {
		return s
	}
	return "upload"
}
