package resolver_test

import (
	"context"
	"errors"
	"testing"

	"github.com/bilusteknoloji/pipg/internal/resolver"
)

func TestResolveWithExtras(t *testing.T) {
	reg := newFakeRegistry()
	reg.addRelease("ibis-framework", "9.0.0",
		"pandas>=1.0",
		`duckdb>=0.8; extra == "duckdb"`,
		`pyarrow>=10.0; extra == "duckdb"`,
	)
	reg.addRelease("pandas", "2.2.0")
	reg.addRelease("duckdb", "0.10.0")
	reg.addRelease("pyarrow", "15.0.0")

	svc := resolver.NewService(reg, newMemCache())

	full, err := svc.Resolve(context.Background(), []string{"ibis-framework[duckdb]"}, "", linux, nil)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}

	byName := make(map[string]resolver.ResolvedPackage, len(full))
	for _, pkg := range full {
		byName[pkg.Name] = pkg
	}

	if _, ok := byName["duckdb"]; !ok {
		t.Error("expected duckdb extra dependency to be pulled in")
	}

	if _, ok := byName["pyarrow"]; !ok {
		t.Error("expected pyarrow extra dependency to be pulled in")
	}
}

func TestResolveWithoutExtrasSkipsExtraDeps(t *testing.T) {
	reg := newFakeRegistry()
	reg.addRelease("ibis-framework", "9.0.0",
		"pandas>=1.0",
		`duckdb>=0.8; extra == "duckdb"`,
	)
	reg.addRelease("pandas", "2.2.0")
	reg.addRelease("duckdb", "0.10.0")

	byName := resolveNames(t, reg, []string{"ibis-framework"})

	if _, ok := byName["duckdb"]; ok {
		t.Error("duckdb should not be pulled in without the [duckdb] extra")
	}
}

func TestResolvePrereleaseRequiresExplicitRequest(t *testing.T) {
	reg := newFakeRegistry()
	reg.addRelease("pkg", "1.0.0")
	reg.addRelease("pkg", "2.0.0a1")

	byName := resolveNames(t, reg, []string{"pkg"})

	if byName["pkg"].Version != "1.0.0" {
		t.Errorf("expected stable version %q without explicit prerelease request, got %q", "1.0.0", byName["pkg"].Version)
	}
}

func TestResolvePrereleaseAllowedWhenRequested(t *testing.T) {
	reg := newFakeRegistry()
	reg.addRelease("pkg", "1.0.0")
	reg.addRelease("pkg", "2.0.0a1")

	byName := resolveNames(t, reg, []string{"pkg>=2.0.0a1"})

	if byName["pkg"].Version != "2.0.0a1" {
		t.Errorf("expected prerelease %q to be selected, got %q", "2.0.0a1", byName["pkg"].Version)
	}
}

func TestResolveAllPrereleaseOnlyPromotesAll(t *testing.T) {
	reg := newFakeRegistry()
	reg.addRelease("pkg", "1.0.0a1")
	reg.addRelease("pkg", "1.0.0a2")

	byName := resolveNames(t, reg, []string{"pkg"})

	if byName["pkg"].Version != "1.0.0a2" {
		t.Errorf("expected newest prerelease %q when no stable release exists, got %q", "1.0.0a2", byName["pkg"].Version)
	}
}

func TestResolveDownloadWheelsReconcilesMissingMetadata(t *testing.T) {
	reg := newFakeRegistry()
	// Index reports no dependencies at all; the wheel's own METADATA
	// reveals the real requirement.
	reg.addRelease("flask", "3.0.0")
	reg.addRelease("werkzeug", "3.0.1")
	reg.addWheelMetadata("flask", "3.0.0", "werkzeug>=3.0.0")
	reg.addWheelMetadata("werkzeug", "3.0.1")

	svc := resolver.NewService(reg, newMemCache(), resolver.WithDownloadWheels(true))

	result, err := svc.Resolve(context.Background(), []string{"flask"}, "", linux, nil)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}

	byName := make(map[string]resolver.ResolvedPackage, len(result))
	for _, pkg := range result {
		byName[pkg.Name] = pkg
	}

	if _, ok := byName["werkzeug"]; !ok {
		t.Error("expected werkzeug to be discovered via wheel metadata reconciliation")
	}
}

func TestResolveDownloadWheelsDropsUnreadableVersion(t *testing.T) {
	reg := newFakeRegistry()
	reg.addRelease("pkg", "2.0.0")
	reg.addRelease("pkg", "1.0.0")
	reg.failWheelMetadata("pkg", "2.0.0", errors.New("connection reset"))
	reg.addWheelMetadata("pkg", "1.0.0") // wheel read succeeds, reporting no extra deps

	svc := resolver.NewService(reg, newMemCache(), resolver.WithDownloadWheels(true))

	result, err := svc.Resolve(context.Background(), []string{"pkg"}, "", linux, nil)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}

	if len(result) != 1 || result[0].Version != "1.0.0" {
		t.Fatalf("expected resolution to fall back to 1.0.0 after 2.0.0's wheel read failed, got %+v", result)
	}
}

func TestResolveDownloadWheelsReusesPersistentCache(t *testing.T) {
	reg := newFakeRegistry()
	reg.addRelease("flask", "3.0.0")
	reg.addRelease("werkzeug", "3.0.1")
	reg.addWheelMetadata("flask", "3.0.0", "werkzeug>=3.0.0")
	reg.addWheelMetadata("werkzeug", "3.0.1")

	store := newMemCache()

	run := func() []resolver.ResolvedPackage {
		svc := resolver.NewService(reg, store, resolver.WithDownloadWheels(true))

		result, err := svc.Resolve(context.Background(), []string{"flask"}, "", linux, nil)
		if err != nil {
			t.Fatalf("Resolve() error: %v", err)
		}

		return result
	}

	first := run()
	if len(first) != 2 {
		t.Fatalf("expected flask + werkzeug on first resolve, got %+v", first)
	}

	callsAfterFirst := reg.wheelMetadataCalls
	if callsAfterFirst == 0 {
		t.Fatal("expected at least one GetWheelMetadata call on a cold cache")
	}

	second := run()
	if len(second) != 2 {
		t.Fatalf("expected flask + werkzeug on second resolve, got %+v", second)
	}

	if reg.wheelMetadataCalls != callsAfterFirst {
		t.Errorf("expected wheel metadata to be served from the persistent cache on the second resolve, "+
			"but GetWheelMetadata was called %d more time(s)", reg.wheelMetadataCalls-callsAfterFirst)
	}
}

func TestResolveSdistOnlyFailsWithoutBuildDriver(t *testing.T) {
	reg := newFakeRegistry()
	reg.addSdistOnlyRelease("pkg", "1.0.0", nil, "pkg-1.0.0.tar.gz")

	svc := resolver.NewService(reg, newMemCache())

	_, err := svc.Resolve(context.Background(), []string{"pkg"}, "", linux, nil)
	if err == nil {
		t.Fatal("expected an error resolving an sdist-only package with no build driver configured")
	}

	var be *resolver.BuildError
	if !errors.As(err, &be) {
		t.Errorf("expected a *resolver.BuildError, got %T: %v", err, err)
	}
}

func TestResolveAmbiguousSdistErrors(t *testing.T) {
	reg := newFakeRegistry()
	reg.addSdistOnlyRelease("pkg", "1.0.0", nil, "pkg-1.0.0.zip", "pkg-1.0.0.tar.gz")

	svc := resolver.NewService(reg, newMemCache())

	_, err := svc.Resolve(context.Background(), []string{"pkg"}, "", linux, nil)
	if err == nil {
		t.Fatal("expected an error for a release with more than one sdist candidate")
	}

	var ae *resolver.AmbiguousSdistError
	if !errors.As(err, &ae) {
		t.Errorf("expected a *resolver.AmbiguousSdistError, got %T: %v", err, err)
	}
}

func TestResolveRequiresPythonFiltersMarker(t *testing.T) {
	reg := newFakeRegistry()
	reg.addRelease("flask", "3.0.0",
		`importlib-metadata>=3.6.0; python_version < "3.8"`,
	)
	reg.addRelease("importlib-metadata", "6.0.0")

	svc := resolver.NewService(reg, newMemCache())

	result, err := svc.Resolve(context.Background(), []string{"flask"}, ">=3.9", linux, nil)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}

	for _, pkg := range result {
		if pkg.Name == "importlib-metadata" {
			t.Error("importlib-metadata should not be live for requires-python >=3.9")
		}
	}
}
