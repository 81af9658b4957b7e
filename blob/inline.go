package blob

import (
	"context"
	"encoding/base64"

	"github.com/eringen/folio/content"
)

// Inline embeds the bytes in the record as a data URL.
type Inline struct{}

func (Inline) Mode() content.BlobMode { return content.BlobInline }

func (Inline) Put(_ context.Context, _ string, contentType string, data []byte) (content.Media, error) {
	return content.Media{
		Data: "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data),
		Size: int64(len(data)),
	}, nil
}
