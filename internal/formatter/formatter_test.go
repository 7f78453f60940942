package formatter

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/playshare/internal/models"
	"github.com/desertthunder/playshare/internal/shared"
	th "github.com/desertthunder/playshare/internal/testing"
)

func testCollection() *Collection {
	created := time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC)
	return &Collection{
		Name:  "Alice's Playlists",
		Owner: &models.Profile{UserID: "alice", Nickname: "Alice", Followers: 3},
		Playlists: []models.Playlist{
			{
				ID:        "p1",
				Title:     "Road Trip",
				UserID:    "alice",
				Tags:      []string{"rock", "summer"},
				ImgURLs:   []string{"https://img.example/p1.png"},
				Public:    true,
				Likes:     4,
				CreatedAt: created,
			},
			{
				ID:        "p2",
				Title:     "Late, Night",
				UserID:    "alice",
				Public:    false,
				CreatedAt: created,
			},
		},
	}
}

func TestParseFormat(t *testing.T) {
	tt := []struct {
		in   string
		want Format
	}{
		{"csv", CSV},
		{"CSV", CSV},
		{"md", Markdown},
		{"markdown", Markdown},
		{"txt", Text},
		{"", Text},
	}
	for _, tc := range tt {
		got, err := ParseFormat(tc.in)
		if err != nil || got != tc.want {
			t.Errorf("ParseFormat(%q) = %q, %v; want %q", tc.in, got, err, tc.want)
		}
	}

	if _, err := ParseFormat("pdf"); !errors.Is(err, shared.ErrInvalidFlag) {
		t.Errorf("expected ErrInvalidFlag, got %v", err)
	}
	if Markdown.Ext() != ".md" || CSV.Ext() != ".csv" || Text.Ext() != ".txt" {
		t.Error("unexpected file extensions")
	}
}

func TestSlug(t *testing.T) {
	tt := map[string]string{
		"Alice's Playlists": "alice-s-playlists",
		"  jazz  ":          "jazz",
		"!!!":               "playlists",
	}
	for name, want := range tt {
		c := &Collection{Name: name}
		if got := c.Slug(); got != want {
			t.Errorf("Slug(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestExporters(t *testing.T) {
	t.Run("ExportToCSV", func(t *testing.T) {
		data, err := ExportToCSV(testCollection())
		if err != nil {
			t.Fatalf("ExportToCSV failed: %v", err)
		}

		output := string(data)
		if !strings.HasPrefix(output, "ID,Title,Owner,Tags,Likes,Visibility,Cover,Created\n") {
			t.Errorf("CSV missing headers, got: %s", output)
		}
		if !strings.Contains(output, "p1,Road Trip,alice,rock;summer,4,public,https://img.example/p1.png,2024-03-09") {
			t.Errorf("CSV missing p1 row, got: %s", output)
		}
		if !strings.Contains(output, `"Late, Night"`) {
			t.Errorf("CSV should quote titles containing commas, got: %s", output)
		}
		if !strings.Contains(output, ",private,") {
			t.Errorf("CSV missing private visibility")
		}
	})

	t.Run("ExportToMarkdown", func(t *testing.T) {
		data, err := ExportToMarkdown(testCollection(), map[string]string{"p1": "covers/p1.jpg"})
		if err != nil {
			t.Fatalf("ExportToMarkdown failed: %v", err)
		}

		output := string(data)
		for _, want := range []string{
			"# Alice's Playlists",
			"**Owner**: Alice (@alice)",
			"**Playlists**: 2",
			"1. **Road Trip** #rock #summer [public, 4 likes]",
			"![Cover](covers/p1.jpg)",
			"2. **Late, Night** [private, 0 likes]",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("Markdown missing %q, got:\n%s", want, output)
			}
		}
	})

	t.Run("ExportToMarkdownRemoteCovers", func(t *testing.T) {
		data, _ := ExportToMarkdown(testCollection(), nil)
		if !strings.Contains(string(data), "![Cover](https://img.example/p1.png)") {
			t.Errorf("expected remote cover link, got:\n%s", data)
		}
	})

	t.Run("ExportToText", func(t *testing.T) {
		data, err := ExportToText(testCollection())
		if err != nil {
			t.Fatalf("ExportToText failed: %v", err)
		}

		output := string(data)
		if !strings.Contains(output, "Collection: Alice's Playlists") {
			t.Errorf("Text missing header")
		}
		if !strings.Contains(output, "1. Road Trip - @alice #rock #summer") {
			t.Errorf("Text missing first playlist, got:\n%s", output)
		}
	})

	t.Run("ExportWithoutOwner", func(t *testing.T) {
		c := testCollection()
		c.Owner = nil
		data, _ := ExportToText(c)
		if strings.Contains(string(data), "Owner:") {
			t.Error("expected no owner line")
		}
	})

	t.Run("ToMetadataJSON", func(t *testing.T) {
		data, err := ToMetadataJSON(testCollection())
		if err != nil {
			t.Fatalf("ToMetadataJSON failed: %v", err)
		}
		if !strings.Contains(string(data), `"disclosureStatus": true`) {
			t.Errorf("JSON missing playlist fields, got:\n%s", data)
		}
	})
}

func TestRender(t *testing.T) {
	for _, f := range []Format{CSV, Markdown, Text} {
		var buf bytes.Buffer
		if err := Render(&buf, f, testCollection()); err != nil {
			t.Fatalf("Render(%s) error = %v", f, err)
		}
		if !strings.Contains(buf.String(), "Road Trip") {
			t.Errorf("Render(%s) missing playlist title", f)
		}
	}

	if err := Render(&th.FWriter{}, CSV, testCollection()); err == nil {
		t.Error("expected write error to be returned")
	}
}

func TestDownloadImage(t *testing.T) {
	t.Run("EmptyURL", func(t *testing.T) {
		_, err := DownloadImage("")
		if err == nil {
			t.Error("DownloadImage with empty URL should return error")
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		defer srv.Close()

		if _, err := DownloadImage(srv.URL + "/missing.png"); err == nil {
			t.Error("expected error for 404")
		}
	})
}

func TestWriters(t *testing.T) {
	t.Run("WriteCSVExport", func(t *testing.T) {
		t.Run("WithDefaultPath", func(t *testing.T) {
			tempDir := t.TempDir()
			originalDir := th.MustGetwd(t)
			th.MustChdir(t, tempDir)
			defer th.MustChdir(t, originalDir)

			result, err := WriteCSVExport(testCollection(), "")
			if err != nil {
				t.Fatalf("WriteCSVExport failed: %v", err)
			}

			if result.PlaylistsFile != "alice-s-playlists_playlists.csv" {
				t.Errorf("unexpected playlists file %q", result.PlaylistsFile)
			}
			if result.MetadataFile != "alice-s-playlists_metadata.json" {
				t.Errorf("unexpected metadata file %q", result.MetadataFile)
			}

			th.AssertFileExists(t, result.PlaylistsFile)
			th.AssertFileExists(t, result.MetadataFile)

			metadataContent := th.MustReadFile(t, result.MetadataFile)
			if !strings.Contains(metadataContent, `"name": "Alice's Playlists"`) {
				t.Errorf("Metadata JSON missing name")
			}
		})

		t.Run("WithCustomPath", func(t *testing.T) {
			base := filepath.Join(t.TempDir(), "custom_export")

			result, err := WriteCSVExport(testCollection(), base)
			if err != nil {
				t.Fatalf("WriteCSVExport failed: %v", err)
			}
			if result.PlaylistsFile != base+"_playlists.csv" {
				t.Errorf("unexpected playlists file %q", result.PlaylistsFile)
			}
			th.AssertFileExists(t, result.PlaylistsFile)
		})
	})

	t.Run("WriteMarkdownExport", func(t *testing.T) {
		t.Run("WithoutCovers", func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), "out")

			result, err := WriteMarkdownExport(testCollection(), dir, false)
			if err != nil {
				t.Fatalf("WriteMarkdownExport failed: %v", err)
			}
			th.AssertDirExists(t, result.Directory)
			th.AssertFileExists(t, filepath.Join(dir, "README.md"))
			if result.Covers != 0 {
				t.Errorf("expected no covers, got %d", result.Covers)
			}
		})

		t.Run("WithCovers", func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path == "/broken.png" {
					http.NotFound(w, r)
					return
				}
				w.Write([]byte("png-bytes"))
			}))
			defer srv.Close()

			c := testCollection()
			c.Playlists[0].ImgURLs = []string{srv.URL + "/p1.png"}
			c.Playlists[1].ImgURLs = []string{srv.URL + "/broken.png"}
			dir := filepath.Join(t.TempDir(), "out")

			result, err := WriteMarkdownExport(c, dir, true)
			if err != nil {
				t.Fatalf("WriteMarkdownExport failed: %v", err)
			}
			if result.Covers != 1 || len(result.Warnings) != 1 {
				t.Errorf("expected 1 cover and 1 warning, got %d and %v", result.Covers, result.Warnings)
			}
			if got := th.MustReadFile(t, filepath.Join(dir, "covers", "p1.jpg")); got != "png-bytes" {
				t.Errorf("unexpected cover content %q", got)
			}

			readme := th.MustReadFile(t, filepath.Join(dir, "README.md"))
			if !strings.Contains(readme, "![Cover](covers/p1.jpg)") || !strings.Contains(readme, "broken.png") {
				t.Errorf("expected local and remote cover links, got:\n%s", readme)
			}
		})
	})

	t.Run("WriteTextExport", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "list.txt")
		got, err := WriteTextExport(testCollection(), path)
		if err != nil {
			t.Fatalf("WriteTextExport failed: %v", err)
		}
		if got != path {
			t.Errorf("expected %q, got %q", path, got)
		}
		if !strings.Contains(th.MustReadFile(t, path), "Road Trip") {
			t.Error("text export missing playlist")
		}
	})
}
