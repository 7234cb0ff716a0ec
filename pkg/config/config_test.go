package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/openfroyo/conformance/pkg/artifact"
)

func newTestLoader(t *testing.T) *Loader {
	t.Helper()
	l, err := NewLoader()
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}
	return l
}

func TestSchemaDefaultsMatchDefault(t *testing.T) {
	l := newTestLoader(t)

	got, err := l.LoadString("empty.cue", "")
	if err != nil {
		t.Fatalf("LoadString() error = %v", err)
	}

	if diff := cmp.Diff(Default(), got, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("schema defaults differ from Default() (-want +got):\n%s", diff)
	}
}

func TestLoadString(t *testing.T) {
	l := newTestLoader(t)

	tests := []struct {
		name      string
		src       string
		wantErr   bool
		errSubstr string
		check     func(*testing.T, *Config)
	}{
		{
			name: "overrides",
			src: `
parallelism: 2
format:      "markdown"
paths: "Dockerfile": "docker/Dockerfile"
history: enabled: true
logging: level: "debug"
`,
			check: func(t *testing.T, c *Config) {
				if c.Parallelism != 2 {
					t.Errorf("Parallelism = %d, want 2", c.Parallelism)
				}
				if c.Format != "markdown" {
					t.Errorf("Format = %q, want markdown", c.Format)
				}
				if c.Paths[artifact.Dockerfile] != "docker/Dockerfile" {
					t.Errorf("Paths = %v", c.Paths)
				}
				if !c.History.Enabled || c.History.Path != ".conform/history.db" {
					t.Errorf("History = %+v", c.History)
				}
				if c.Logging.Level != "debug" || c.Logging.Format != "console" {
					t.Errorf("Logging = %+v", c.Logging)
				}
			},
		},
		{
			name: "remote target",
			src:  `remote: {target: "deploy@web1:/srv/app", port: 2222}`,
			check: func(t *testing.T, c *Config) {
				if c.Remote.Target != "deploy@web1:/srv/app" || c.Remote.Port != 2222 {
					t.Errorf("Remote = %+v", c.Remote)
				}
			},
		},
		{
			name:      "unknown field",
			src:       `parallelsim: 2`,
			wantErr:   true,
			errSubstr: "parallelsim",
		},
		{
			name:      "out of range",
			src:       `parallelism: 0`,
			wantErr:   true,
			errSubstr: "parallelism",
		},
		{
			name:      "bad format",
			src:       `format: "html"`,
			wantErr:   true,
			errSubstr: "format",
		},
		{
			name:      "empty path override",
			src:       `paths: "nginx.conf": ""`,
			wantErr:   true,
			errSubstr: "nginx.conf",
		},
		{
			name:    "syntax error",
			src:     `parallelism: {`,
			wantErr: true,
		},
		{
			name:      "otlp without endpoint",
			src:       `tracing: {enabled: true, exporter: "otlp"}`,
			wantErr:   true,
			errSubstr: "tracing.endpoint: is required",
		},
		{
			name:      "bad listen address",
			src:       `metrics: listen: "not an address"`,
			wantErr:   true,
			errSubstr: "metrics.listen: must be host:port",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := l.LoadString("conform.cue", tt.src)
			if (err != nil) != tt.wantErr {
				t.Fatalf("LoadString() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				var le *LoadError
				if !errors.As(err, &le) {
					t.Fatalf("error %T is not a *LoadError", err)
				}
				if tt.errSubstr != "" && !strings.Contains(err.Error(), tt.errSubstr) {
					t.Errorf("error %q does not mention %q", err, tt.errSubstr)
				}
				return
			}
			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestLoadErrorCarriesPosition(t *testing.T) {
	l := newTestLoader(t)

	_, err := l.LoadString("conform.cue", "format: \"text\"\nbogus: true\n")
	var le *LoadError
	if !errors.As(err, &le) {
		t.Fatalf("LoadString() error = %v, want *LoadError", err)
	}

	found := false
	for _, ve := range le.Errors {
		if ve.File == "conform.cue" && ve.Line == 2 {
			found = true
		}
	}
	if !found {
		t.Errorf("no error positioned at conform.cue:2 in %+v", le.Errors)
	}
}

func TestValidate(t *testing.T) {
	l := newTestLoader(t)

	tests := []struct {
		name   string
		mutate func(*Config)
		want   []string
	}{
		{name: "default is valid", mutate: func(*Config) {}},
		{
			name:   "history without path",
			mutate: func(c *Config) { c.History = HistoryConfig{Enabled: true} },
			want:   []string{"history.path"},
		},
		{
			name: "several problems",
			mutate: func(c *Config) {
				c.Parallelism = 100
				c.Shell = ""
				c.Logging.Level = "verbose"
			},
			want: []string{"parallelism", "shell", "logging.level"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := l.Validate(cfg)
			if len(tt.want) == 0 {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}

			var le *LoadError
			if !errors.As(err, &le) {
				t.Fatalf("Validate() error = %v, want *LoadError", err)
			}
			var got []string
			for _, ve := range le.Errors {
				got = append(got, ve.Path)
			}
			if diff := cmp.Diff(tt.want, got, cmpopts.SortSlices(func(a, b string) bool { return a < b })); diff != "" {
				t.Errorf("error paths mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestResolve(t *testing.T) {
	l := newTestLoader(t)

	t.Run("defaults when no file", func(t *testing.T) {
		root := t.TempDir()
		cfg, file, err := l.Resolve("", root)
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if file != "" {
			t.Errorf("file = %q, want none", file)
		}
		if cfg.Root != root {
			t.Errorf("Root = %q, want %q", cfg.Root, root)
		}
	})

	t.Run("file in root", func(t *testing.T) {
		root := t.TempDir()
		path := filepath.Join(root, DefaultFile)
		if err := os.WriteFile(path, []byte("parallelism: 1\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		cfg, file, err := l.Resolve("", root)
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if file != path || cfg.Parallelism != 1 {
			t.Errorf("Resolve() = (%d, %q), want (1, %q)", cfg.Parallelism, file, path)
		}
	})

	t.Run("explicit file missing", func(t *testing.T) {
		if _, _, err := l.Resolve(filepath.Join(t.TempDir(), "nope.cue"), "."); err == nil {
			t.Fatal("expected error for missing explicit file")
		}
	})
}

func TestConfigLayout(t *testing.T) {
	cfg := Default()
	cfg.Paths = map[string]string{artifact.Dockerfile: "build/Dockerfile"}

	layout, err := cfg.Layout()
	if err != nil {
		t.Fatalf("Layout() error = %v", err)
	}
	d, _ := layout.Lookup(artifact.Dockerfile)
	if d.Path != "build/Dockerfile" {
		t.Errorf("Dockerfile path = %q", d.Path)
	}

	cfg.Paths = map[string]string{"Makefile": "Makefile"}
	if _, err := cfg.Layout(); err == nil {
		t.Error("expected error for unknown artifact name")
	}
}

func TestConfigTelemetry(t *testing.T) {
	cfg := Default()
	cfg.Logging.Format = "json"
	cfg.Tracing = TracingConfig{Enabled: true, Exporter: "otlp", Endpoint: "localhost:4317"}
	cfg.Metrics.Textfile = "/tmp/conform.prom"

	tc := cfg.Telemetry("1.2.3")
	if err := tc.Validate(); err != nil {
		t.Fatalf("telemetry config invalid: %v", err)
	}
	if tc.ServiceVersion != "1.2.3" || tc.Logging.Format != "json" || tc.Tracing.Endpoint != "localhost:4317" || tc.Metrics.Textfile != "/tmp/conform.prom" {
		t.Errorf("Telemetry() = %+v", tc)
	}
}
