package upload

import (
	"context"
	"encoding/base64"

	"github.com/valyala/bytebufferpool"
)

// encodeChunkSize balances abort latency against per-chunk overhead. A chunk
// must be a multiple of 3 so base64 output stays padding-free until the end.
const encodeChunkSize = 48 * 1024

// encodeBase64 encodes data to transport-safe text, checking the context
// between chunks so an abort interrupts a large encode instead of waiting it
// out.
func encodeBase64(ctx context.Context, data []byte) (string, error) {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	enc := base64.NewEncoder(base64.StdEncoding, buf)
	for off := 0; off < len(data); off += encodeChunkSize {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		end := off + encodeChunkSize
		if end > len(data) {
			end = len(data)
		}
		if _, err := enc.Write(data[off:end]); err != nil {
			return "", err
		}
	}
	if err := enc.Close(); err != nil {
		return "", err
	}

	return buf.String(), nil
}
