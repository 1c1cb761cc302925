package pypi

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/mail"

	"github.com/bilusteknoloji/pipg/internal/downloader"
	"github.com/bilusteknoloji/pipg/internal/resolver"
)

// GetWheelMetadata implements resolver.RegistryClient: the authoritative,
// slow source of a release's requirements, read straight out of the wheel
// archive's own METADATA member via downloader's range-request reader
// rather than downloading the wheel itself.
func (s *Service) GetWheelMetadata(ctx context.Context, file resolver.FileRecord) (resolver.Metadata, error) {
	data, err := downloader.ReadWheelMetadataBytes(ctx, s.httpClient, file.URL)
	if err != nil {
		return resolver.Metadata{}, fmt.Errorf("reading wheel metadata for %s: %w", file.Filename, err)
	}

	md, err := parseCoreMetadata(bytes.NewReader(data))
	if err != nil {
		return resolver.Metadata{}, fmt.Errorf("parsing METADATA in %s: %w", file.Filename, err)
	}

	return md, nil
}

// parseCoreMetadata reads a wheel's METADATA file (RFC 822 headers, the
// same shape net/mail already knows how to parse) and keeps only what the
// resolver needs: the Requires-Dist lines.
func parseCoreMetadata(r io.Reader) (resolver.Metadata, error) {
	var buf bytes.Buffer

	if _, err := buf.ReadFrom(r); err != nil {
		return resolver.Metadata{}, fmt.Errorf("reading metadata body: %w", err)
	}

	buf.WriteByte('\n') // net/mail requires a body, even an empty one

	msg, err := mail.ReadMessage(&buf)
	if err != nil {
		return resolver.Metadata{}, fmt.Errorf("parsing core metadata headers: %w", err)
	}

	return resolver.Metadata{RequiresDist: msg.Header["Requires-Dist"]}, nil
}
