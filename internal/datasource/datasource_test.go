package datasource

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"waferstats/internal/config"
	"waferstats/internal/datasource/file"
	"waferstats/internal/datasource/httpds"
)

func TestReadAll_Inline(t *testing.T) {
	t.Parallel()

	src := NewInline("", "a,b\n1,2")
	if src.Name() != "inline" {
		t.Fatalf("Name() = %q, want inline", src.Name())
	}
	got, err := ReadAll(context.Background(), src)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if got != "a,b\n1,2" {
		t.Fatalf("ReadAll = %q", got)
	}
}

func TestReadAll_Canceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := ReadAll(ctx, NewInline("x", "data")); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestReadAll_File(t *testing.T) {
	t.Parallel()

	p := filepath.Join(t.TempDir(), "w.csv")
	if err := os.WriteFile(p, []byte("h\n1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	src, err := FromConfig(config.Source{Kind: "file", File: config.SourceFile{Path: p}})
	if err != nil {
		t.Fatalf("FromConfig: %v", err)
	}
	if _, ok := src.(*file.Local); !ok {
		t.Fatalf("FromConfig(file) = %T, want *file.Local", src)
	}
	got, err := ReadAll(context.Background(), src)
	if err != nil || got != "h\n1\n" {
		t.Fatalf("ReadAll = %q, %v", got, err)
	}
}

func TestFromConfig(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		cfg     config.Source
		wantErr bool
		check   func(t *testing.T, s Source)
	}{
		{
			name: "http",
			cfg:  config.Source{Kind: "http", HTTP: config.SourceHTTP{URL: "https://example.com/w.csv"}},
			check: func(t *testing.T, s Source) {
				if _, ok := s.(*httpds.Remote); !ok {
					t.Fatalf("got %T, want *httpds.Remote", s)
				}
				if s.Name() != "https://example.com/w.csv" {
					t.Fatalf("Name() = %q", s.Name())
				}
			},
		},
		{
			name: "inline",
			cfg:  config.Source{Kind: "inline", Inline: config.SourceInline{Text: "a"}},
			check: func(t *testing.T, s Source) {
				if _, ok := s.(*Inline); !ok {
					t.Fatalf("got %T, want *Inline", s)
				}
			},
		},
		{name: "file_without_path", cfg: config.Source{Kind: "file"}, wantErr: true},
		{name: "http_without_url", cfg: config.Source{Kind: "http"}, wantErr: true},
		{name: "unknown", cfg: config.Source{Kind: "ftp"}, wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			s, err := FromConfig(tc.cfg)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got source %T", s)
				}
				return
			}
			if err != nil {
				t.Fatalf("FromConfig: %v", err)
			}
			tc.check(t, s)
		})
	}
}
