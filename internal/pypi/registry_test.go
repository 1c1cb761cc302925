package pypi_test

import (
	"archive/zip"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bilusteknoloji/pipg/internal/pypi"
	"github.com/bilusteknoloji/pipg/internal/resolver"
)

func TestGetReleases(t *testing.T) {
	info := pypi.PackageInfo{
		Info: pypi.Info{Name: "six"},
		Releases: map[string][]pypi.URL{
			"1.16.0": {{Filename: "six-1.16.0-py2.py3-none-any.whl", URL: "https://files/six-1.16.0.whl", Size: 100, Digests: pypi.Digests{SHA256: "aaa"}}},
			"1.17.0": {{Filename: "six-1.17.0-py2.py3-none-any.whl", URL: "https://files/six-1.17.0.whl", Size: 110, Digests: pypi.Digests{SHA256: "bbb"}}},
		},
	}

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		encodeJSON(t, w, info)
	})

	svc, ok := client.(*pypi.Service)
	if !ok {
		t.Fatalf("newTestClient() did not return *pypi.Service")
	}

	releases, err := svc.GetReleases(context.Background(), "six")
	if err != nil {
		t.Fatalf("GetReleases() error: %v", err)
	}

	if len(releases) != 2 {
		t.Fatalf("expected 2 releases, got %d", len(releases))
	}

	files := releases["1.17.0"]
	if len(files) != 1 {
		t.Fatalf("expected 1 file for 1.17.0, got %d", len(files))
	}

	if files[0].HashDigest != "bbb" {
		t.Errorf("expected sha256 %q, got %q", "bbb", files[0].HashDigest)
	}

	if files[0].Size != 110 {
		t.Errorf("expected size 110, got %d", files[0].Size)
	}
}

func TestGetMetadata(t *testing.T) {
	info := pypi.PackageInfo{
		Info: pypi.Info{
			Name:         "flask",
			Version:      "3.0.0",
			RequiresDist: []string{"werkzeug>=3.0.0", "jinja2>=3.1.2"},
		},
	}

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		encodeJSON(t, w, info)
	})

	svc := client.(*pypi.Service)

	md, err := svc.GetMetadata(context.Background(), "flask", "3.0.0")
	if err != nil {
		t.Fatalf("GetMetadata() error: %v", err)
	}

	if len(md.RequiresDist) != 2 {
		t.Fatalf("expected 2 requires_dist entries, got %d", len(md.RequiresDist))
	}
}

func TestGetWheelMetadata(t *testing.T) {
	metadata := "Metadata-Version: 2.1\nName: flask\nVersion: 3.0.0\nRequires-Dist: werkzeug>=3.0.0\n"

	var buf bytes.Buffer

	zw := zip.NewWriter(&buf)

	w, err := zw.Create("flask-3.0.0.dist-info/METADATA")
	if err != nil {
		t.Fatalf("creating METADATA member: %v", err)
	}

	if _, err := w.Write([]byte(metadata)); err != nil {
		t.Fatalf("writing METADATA: %v", err)
	}

	if err := zw.Close(); err != nil {
		t.Fatalf("closing zip writer: %v", err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.ServeContent(w, r, "flask-3.0.0-py3-none-any.whl", time.Time{}, bytes.NewReader(buf.Bytes()))
	}))
	t.Cleanup(srv.Close)

	svc := pypi.New(pypi.WithHTTPClient(srv.Client()))

	file := resolver.FileRecord{
		Filename: "flask-3.0.0-py3-none-any.whl",
		URL:      srv.URL + "/flask-3.0.0-py3-none-any.whl",
	}

	md, err := svc.GetWheelMetadata(context.Background(), file)
	if err != nil {
		t.Fatalf("GetWheelMetadata() error: %v", err)
	}

	if len(md.RequiresDist) != 1 || md.RequiresDist[0] != "werkzeug>=3.0.0" {
		t.Errorf("GetWheelMetadata() RequiresDist = %v, want [werkzeug>=3.0.0]", md.RequiresDist)
	}
}
