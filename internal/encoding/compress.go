package encoding

import (
	"archive/zip"
	"bytes"
	"compress/gzip"
	"fmt"
	"time"
)

// fixed archive timestamp so compressed artifacts are byte-reproducible
var archiveEpoch = time.Unix(0, 0).UTC()

// Gzip compresses data at the default level. The gzip header carries no name
// or mtime so output depends only on the payload.
func Gzip(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("gzip write: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("gzip close: %w", err)
	}
	return buf.Bytes(), nil
}

// ZipSingle wraps one file into a zip archive. Container formats like xlsx
// are themselves zip files, so gzip gains little there and a nested zip keeps
// the inner filename visible to the consumer.
func ZipSingle(filename string, data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	hdr := &zip.FileHeader{
		Name:     filename,
		Method:   zip.Deflate,
		Modified: archiveEpoch,
	}
	fw, err := zw.CreateHeader(hdr)
	if err != nil {
		return nil, fmt.Errorf("zip entry: %w", err)
	}
	if _, err := fw.Write(data); err != nil {
		return nil, fmt.Errorf("zip write: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("zip close: %w", err)
	}
	return buf.Bytes(), nil
}

// Ratio reports original size over compressed size. Values above 1 mean the
// compression shrank the payload; 0 when the compressed size is zero.
func Ratio(originalSize, compressedSize int) float64 {
	if compressedSize <= 0 {
		return 0
	}
	return float64(originalSize) / float64(compressedSize)
}
