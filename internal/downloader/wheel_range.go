package downloader

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ReadWheelMetadataBytes returns the raw contents of a wheel's dist-info
// METADATA member, fetched with HTTP range requests rather than a full
// download. archive/zip keeps its directory at the end of the file, so this
// only ever needs random access into the tail of the archive plus the one
// local file header holding METADATA, not a sequential read of the whole
// wheel.
func ReadWheelMetadataBytes(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	size, err := rangeContentLength(ctx, client, url)
	if err != nil {
		return nil, fmt.Errorf("sizing %s: %w", url, err)
	}

	ra := &rangeReaderAt{ctx: ctx, client: client, url: url}

	zr, err := zip.NewReader(ra, size)
	if err != nil {
		return nil, fmt.Errorf("opening %s as zip: %w", url, err)
	}

	for _, f := range zr.File {
		dir, name, ok := strings.Cut(f.Name, "/")
		if !ok || !strings.HasSuffix(dir, ".dist-info") || name != "METADATA" {
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("reading METADATA in %s: %w", url, err)
		}

		data, err := io.ReadAll(rc)

		_ = rc.Close()

		if err != nil {
			return nil, fmt.Errorf("reading METADATA in %s: %w", url, err)
		}

		return data, nil
	}

	return nil, fmt.Errorf("no dist-info METADATA member found in %s", url)
}

// rangeContentLength issues a HEAD request to learn a remote file's size,
// which archive/zip.NewReader needs to locate the end-of-central-directory
// record.
func rangeContentLength(ctx context.Context, client *http.Client, url string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return 0, fmt.Errorf("building HEAD request for %s: %w", url, err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("requesting %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("unexpected status %d from HEAD %s", resp.StatusCode, url)
	}

	if resp.ContentLength < 0 {
		return 0, fmt.Errorf("%s did not report a content length", url)
	}

	return resp.ContentLength, nil
}

// rangeReaderAt satisfies io.ReaderAt over HTTP using Range requests, so
// archive/zip can seek around a remote file without fetching all of it.
type rangeReaderAt struct {
	ctx    context.Context
	client *http.Client
	url    string
}

func (r *rangeReaderAt) ReadAt(p []byte, off int64) (int, error) {
	req, err := http.NewRequestWithContext(r.ctx, http.MethodGet, r.url, nil)
	if err != nil {
		return 0, err
	}

	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", off, off+int64(len(p))-1))

	resp, err := r.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("ranged GET %s: %w", r.url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusPartialContent && resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("unexpected status %d from ranged GET %s", resp.StatusCode, r.url)
	}

	n, err := io.ReadFull(resp.Body, p)
	if err != nil && err != io.ErrUnexpectedEOF {
		return n, err
	}

	return n, nil
}
