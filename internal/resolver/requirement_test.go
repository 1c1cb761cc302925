package resolver_test

import (
	"testing"

	"github.com/bilusteknoloji/pipg/internal/resolver"
)

func TestParseRequirement(t *testing.T) {
	tests := []struct {
		input      string
		wantName   string
		wantSpec   string
		wantExtras []string
		wantMark   string
		wantErr    bool
	}{
		{input: "flask", wantName: "flask"},
		{input: "Flask", wantName: "flask"},
		{input: "flask>=3.0", wantName: "flask", wantSpec: ">=3.0"},
		{input: "flask>=3.0,<4.0", wantName: "flask", wantSpec: ">=3.0,<4.0"},
		{input: "flask (>=3.0)", wantName: "flask", wantSpec: ">=3.0"},
		{
			input:    `importlib-metadata>=3.6.0; python_version < "3.10"`,
			wantName: "importlib-metadata", wantSpec: ">=3.6.0", wantMark: `python_version < "3.10"`,
		},
		{input: "my_package", wantName: "my-package"},
		{input: "My.Package>=1.0", wantName: "my-package", wantSpec: ">=1.0"},
		{input: "package[extra]>=1.0", wantName: "package", wantSpec: ">=1.0", wantExtras: []string{"extra"}},
		{input: "requests", wantName: "requests"},
		{
			input:    `typing-extensions>=3.7.4; python_version < "3.8"`,
			wantName: "typing-extensions", wantSpec: ">=3.7.4", wantMark: `python_version < "3.8"`,
		},
		{input: "package[a,B,a]>=1.0", wantName: "package", wantSpec: ">=1.0", wantExtras: []string{"a", "b"}},
		{input: "package[a", wantErr: true},
		{input: "[extra]", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			req, err := resolver.ParseRequirement(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseRequirement(%q) succeeded, want error", tt.input)
				}

				return
			}

			if err != nil {
				t.Fatalf("ParseRequirement(%q) unexpected error: %v", tt.input, err)
			}

			if req.Name != tt.wantName {
				t.Errorf("Name = %q, want %q", req.Name, tt.wantName)
			}

			if req.Specifier != tt.wantSpec {
				t.Errorf("Specifier = %q, want %q", req.Specifier, tt.wantSpec)
			}

			if len(req.Extras) != len(tt.wantExtras) {
				t.Errorf("Extras = %v, want %v", req.Extras, tt.wantExtras)
			} else {
				for i := range req.Extras {
					if req.Extras[i] != tt.wantExtras[i] {
						t.Errorf("Extras = %v, want %v", req.Extras, tt.wantExtras)

						break
					}
				}
			}

			gotMark := ""
			if req.Marker != nil {
				gotMark = req.Marker.String()
			}

			if gotMark != tt.wantMark {
				t.Errorf("Marker = %q, want %q", gotMark, tt.wantMark)
			}
		})
	}
}

func TestParseRequirementFixup(t *testing.T) {
	// django-elasticsearch-dsl style missing comma.
	const broken = "elasticsearch-dsl (>=7.2.0<8.0.0)"

	req, warning, err := resolver.ParseRequirementFixup(broken, "django-elasticsearch-dsl 7.2.2")
	if err != nil {
		t.Fatalf("ParseRequirementFixup(%q) unexpected error: %v", broken, err)
	}

	if req.Name != "elasticsearch-dsl" {
		t.Errorf("Name = %q, want elasticsearch-dsl", req.Name)
	}

	if req.Specifier != ">=7.2.0,<8.0.0" {
		t.Errorf("Specifier = %q, want >=7.2.0,<8.0.0", req.Specifier)
	}

	wantWarning := "Requirement `elasticsearch-dsl (>=7.2.0<8.0.0)` for django-elasticsearch-dsl 7.2.2 is invalid (missing comma)"
	if warning != wantWarning {
		t.Errorf("warning = %q, want %q", warning, wantWarning)
	}
}

func TestParseRequirementFixupSuppressedWarning(t *testing.T) {
	const broken = "elasticsearch-dsl (>=7.2.0<8.0.0)"

	_, warning, err := resolver.ParseRequirementFixup(broken, "")
	if err != nil {
		t.Fatalf("ParseRequirementFixup(%q) unexpected error: %v", broken, err)
	}

	if warning != "" {
		t.Errorf("warning = %q, want empty", warning)
	}
}

func TestParseRequirementFixupUnfixable(t *testing.T) {
	_, _, err := resolver.ParseRequirementFixup("[extra]", "pkg 1.0")
	if err == nil {
		t.Fatal("ParseRequirementFixup succeeded, want error")
	}
}

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Flask", "flask"},
		{"my_package", "my-package"},
		{"My.Package", "my-package"},
		{"some--name", "some-name"},
		{"a_.b", "a-b"},
		{"requests", "requests"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := resolver.NormalizeName(tt.input); got != tt.want {
				t.Errorf("NormalizeName(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
