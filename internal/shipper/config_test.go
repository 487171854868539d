package shipper

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "shipper.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
sources:
  - name: nginx
    path: /var/log/nginx/access.log
    format: json
  - name: app
    path: /var/log/app.log
    level: warn
    from_start: true
batch_size: 500
workers: 2
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if len(cfg.Sources) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(cfg.Sources))
	}
	if cfg.Sources[0].Format != FormatJSON {
		t.Errorf("expected json format, got %q", cfg.Sources[0].Format)
	}
	// Формат по умолчанию — plain
	if cfg.Sources[1].Format != FormatPlain {
		t.Errorf("expected plain default, got %q", cfg.Sources[1].Format)
	}
	if !cfg.Sources[1].FromStart {
		t.Error("from_start should be true")
	}
	if cfg.BatchSize != 500 || cfg.Workers != 2 {
		t.Errorf("unexpected tuning: %+v", cfg)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want error
	}{
		{
			name: "no sources",
			cfg:  Config{},
			want: ErrNoSources,
		},
		{
			name: "empty name",
			cfg:  Config{Sources: []SourceConfig{{Path: "/x"}}},
			want: ErrEmptySourceName,
		},
		{
			name: "empty path",
			cfg:  Config{Sources: []SourceConfig{{Name: "a"}}},
			want: ErrEmptySourcePath,
		},
		{
			name: "duplicate name",
			cfg: Config{Sources: []SourceConfig{
				{Name: "a", Path: "/x"},
				{Name: "a", Path: "/y"},
			}},
			want: ErrDuplicateSource,
		},
		{
			name: "unknown format",
			cfg:  Config{Sources: []SourceConfig{{Name: "a", Path: "/x", Format: "xml"}}},
			want: ErrUnknownFormat,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestConfigValidate_Defaults(t *testing.T) {
	cfg := Config{Sources: []SourceConfig{{Name: "a", Path: "/x"}}}
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}

	if cfg.Sources[0].Format != FormatPlain {
		t.Errorf("expected plain default, got %q", cfg.Sources[0].Format)
	}
	if cfg.Sources[0].Level != "INFO" {
		t.Errorf("expected INFO default, got %q", cfg.Sources[0].Level)
	}
}
