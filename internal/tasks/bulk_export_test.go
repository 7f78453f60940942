package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/playshare/internal/formatter"
	"github.com/desertthunder/playshare/internal/shared"
	th "github.com/desertthunder/playshare/internal/testing"
)

func seeded() *th.MockService {
	svc := th.NewMockService()
	svc.SeedPlaylists("alice", 3)
	svc.SeedPlaylists("bob", 14)
	return svc
}

func TestBulkExport_SuccessfulExport(t *testing.T) {
	tests := []struct {
		name           string
		format         formatter.Format
		sources        []Source
		wantSuccess    int
		validateResult func(t *testing.T, result *BulkExportResult, tempDir string)
	}{
		{
			name:        "single collection text export",
			format:      formatter.Text,
			sources:     []Source{PlaylistsOf("bob")},
			wantSuccess: 1,
			validateResult: func(t *testing.T, result *BulkExportResult, tempDir string) {
				if result.Results[0].Playlists != 14 {
					t.Errorf("expected 14 playlists, got %d", result.Results[0].Playlists)
				}
				th.AssertFileExists(t, filepath.Join(tempDir, "bob-s-playlists_playlists.txt"))
			},
		},
		{
			name:        "multiple collections csv export",
			format:      formatter.CSV,
			sources:     []Source{PlaylistsOf("alice"), PlaylistsOf("bob")},
			wantSuccess: 2,
			validateResult: func(t *testing.T, result *BulkExportResult, tempDir string) {
				for _, res := range result.Results {
					if len(res.Files) != 2 {
						t.Errorf("CSV export should create 2 files, got %d", len(res.Files))
					}
				}
				th.AssertFileExists(t, filepath.Join(tempDir, "alice-s-playlists_playlists.csv"))
				th.AssertFileExists(t, filepath.Join(tempDir, "alice-s-playlists_metadata.json"))
			},
		},
		{
			name:        "markdown export without covers",
			format:      formatter.Markdown,
			sources:     []Source{PlaylistsOf("alice")},
			wantSuccess: 1,
			validateResult: func(t *testing.T, result *BulkExportResult, tempDir string) {
				readme := filepath.Join(tempDir, "alice-s-playlists", "README.md")
				content := th.MustReadFile(t, readme)
				if !strings.Contains(content, "alice mix 00") {
					t.Errorf("expected playlist titles in README, got %s", content)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tempDir := t.TempDir()
			engine := NewExportEngine(seeded(), 5, nil)

			result, err := engine.BulkExport(context.Background(), nil, tt.sources, BulkExportOpts{
				Format:    tt.format,
				OutputDir: tempDir,
				RateLimit: 100,
			})
			if err != nil {
				t.Fatalf("BulkExport() error = %v", err)
			}
			if result.SuccessfulExports != tt.wantSuccess || result.FailedExports != 0 {
				t.Errorf("got %d successful, %d failed", result.SuccessfulExports, result.FailedExports)
			}
			tt.validateResult(t, result, tempDir)
		})
	}
}

func TestBulkExport_Manifest(t *testing.T) {
	tempDir := t.TempDir()
	engine := NewExportEngine(seeded(), 12, nil)

	result, err := engine.BulkExport(context.Background(), nil, []Source{PlaylistsOf("alice"), LikedBy("")}, BulkExportOpts{
		Format:    formatter.Text,
		OutputDir: tempDir,
		RateLimit: 100,
	})
	if err != nil {
		t.Fatalf("BulkExport() error = %v", err)
	}
	if result.ManifestPath != filepath.Join(tempDir, "export_manifest.json") {
		t.Errorf("unexpected manifest path %q", result.ManifestPath)
	}

	var manifest BulkExportResult
	if err := json.Unmarshal([]byte(th.MustReadFile(t, result.ManifestPath)), &manifest); err != nil {
		t.Fatalf("manifest is not valid JSON: %v", err)
	}
	if manifest.TotalSources != 2 || manifest.SuccessfulExports != 1 || manifest.FailedExports != 1 {
		t.Errorf("unexpected manifest counts: %+v", manifest)
	}
	for _, res := range manifest.Results {
		if !res.Success && !strings.Contains(res.Message, "missing required argument") {
			t.Errorf("expected failure message in manifest, got %q", res.Message)
		}
	}
}

func TestBulkExport_PartialFailures(t *testing.T) {
	svc := seeded()
	engine := NewExportEngine(svc, 12, nil)
	progressCh := make(chan ProgressUpdate, 100)

	result, err := engine.BulkExport(context.Background(), progressCh, []Source{PlaylistsOf("alice"), LikedBy("")}, BulkExportOpts{
		OutputDir: t.TempDir(),
		RateLimit: 100,
	})
	close(progressCh)
	if err != nil {
		t.Fatalf("BulkExport() error = %v", err)
	}
	if result.SuccessfulExports != 1 || result.FailedExports != 1 {
		t.Fatalf("got %d successful, %d failed", result.SuccessfulExports, result.FailedExports)
	}

	var failed bool
	for _, res := range result.Results {
		if !res.Success && errors.Is(res.Error, shared.ErrMissingArgument) {
			failed = true
		}
	}
	if !failed {
		t.Error("expected the liked source without a user to fail")
	}

	phases := map[Phase]bool{}
	for update := range progressCh {
		phases[update.Phase] = true
	}
	for _, p := range []Phase{WriteExport, FetchPage, ExportDone, ExportFailed} {
		if !phases[p] {
			t.Errorf("expected %s in progress updates", p)
		}
	}
}

func TestBulkExport_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	engine := NewExportEngine(seeded(), 12, nil)
	result, err := engine.BulkExport(ctx, nil, []Source{PlaylistsOf("alice"), PlaylistsOf("bob")}, BulkExportOpts{
		OutputDir: t.TempDir(),
		RateLimit: 100,
	})
	if err != nil {
		t.Fatalf("BulkExport() error = %v", err)
	}
	if result.FailedExports != 2 {
		t.Errorf("expected both sources to fail after cancel, got %d", result.FailedExports)
	}
}

func TestBulkExport_DefaultOptions(t *testing.T) {
	dir, wd := t.TempDir(), th.MustGetwd(t)
	th.MustChdir(t, dir)
	t.Cleanup(func() { th.MustChdir(t, wd) })

	engine := NewExportEngine(seeded(), 0, nil)
	result, err := engine.BulkExport(context.Background(), nil, []Source{PlaylistsOf("alice")}, BulkExportOpts{})
	if err != nil {
		t.Fatalf("BulkExport() error = %v", err)
	}
	if result.Format != formatter.Text {
		t.Errorf("expected default text format, got %q", result.Format)
	}
	if !strings.HasPrefix(result.OutputDirectory, "playshare_export_") {
		t.Errorf("unexpected default output directory %q", result.OutputDirectory)
	}
	th.AssertDirExists(t, filepath.Join(dir, result.OutputDirectory))
}

func TestBulkExport_InvalidOutputDirectory(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(file, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	engine := NewExportEngine(seeded(), 12, nil)
	_, err := engine.BulkExport(context.Background(), nil, []Source{PlaylistsOf("alice")}, BulkExportOpts{
		OutputDir: filepath.Join(file, "nested"),
	})
	if err == nil {
		t.Error("expected error for an output directory under a file")
	}
}
