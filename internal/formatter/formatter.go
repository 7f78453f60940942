// package formatter provides functions to export playlist collections to various formats (CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/playshare/internal/models"
	"github.com/desertthunder/playshare/internal/shared"
)

// Format names an export format.
type Format string

const (
	CSV      Format = "csv"
	Markdown Format = "markdown"
	Text     Format = "txt"
)

// ParseFormat accepts the format names used on the command line.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return CSV, nil
	case "markdown", "md":
		return Markdown, nil
	case "txt", "text", "":
		return Text, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q (csv, markdown, txt)", shared.ErrInvalidFlag, s)
	}
}

// Ext returns the file extension for f.
func (f Format) Ext() string {
	switch f {
	case CSV:
		return ".csv"
	case Markdown:
		return ".md"
	default:
		return ".txt"
	}
}

// Collection is a titled list of playlists: a user's playlists, their likes or search results.
type Collection struct {
	Name      string            `json:"name"`
	Owner     *models.Profile   `json:"owner,omitempty"`
	Playlists []models.Playlist `json:"playlists"`
}

// Slug returns a filesystem-friendly version of the collection name.
func (c *Collection) Slug() string {
	var b strings.Builder
	for _, r := range strings.ToLower(c.Name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case b.Len() > 0 && !strings.HasSuffix(b.String(), "-"):
			b.WriteByte('-')
		}
	}
	slug := strings.TrimSuffix(b.String(), "-")
	if slug == "" {
		return "playlists"
	}
	return slug
}

// ExportToCSV converts a Collection to CSV format with columns: ID, Title, Owner, Tags, Likes, Visibility, Cover, Created
func ExportToCSV(c *Collection) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Title", "Owner", "Tags", "Likes", "Visibility", "Cover", "Created"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, p := range c.Playlists {
		record := []string{
			p.ID,
			p.Title,
			p.UserID,
			strings.Join(p.Tags, ";"),
			strconv.Itoa(p.Likes),
			shared.VisibilityString(p.Public),
			p.Cover(),
			formatDate(p.CreatedAt),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts a Collection to Markdown. covers maps playlist IDs to local image
// paths; playlists without one link their remote cover instead.
func ExportToMarkdown(c *Collection, covers map[string]string) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", c.Name)

	if c.Owner != nil {
		fmt.Fprintf(&buf, "**Owner**: %s (@%s)\n", c.Owner.Nickname, c.Owner.UserID)
		fmt.Fprintf(&buf, "**Followers**: %d\n", c.Owner.Followers)
	}
	fmt.Fprintf(&buf, "**Playlists**: %d\n\n", len(c.Playlists))

	buf.WriteString("## Playlists\n\n")
	for i, p := range c.Playlists {
		fmt.Fprintf(&buf, "%d. **%s**", i+1, p.Title)
		if len(p.Tags) > 0 {
			fmt.Fprintf(&buf, " %s", hashTags(p.Tags))
		}
		fmt.Fprintf(&buf, " [%s, %d likes]\n", shared.VisibilityString(p.Public), p.Likes)

		if cover, ok := covers[p.ID]; ok {
			fmt.Fprintf(&buf, "   ![Cover](%s)\n", cover)
		} else if p.Cover() != "" {
			fmt.Fprintf(&buf, "   ![Cover](%s)\n", p.Cover())
		}
	}

	return buf.Bytes(), nil
}

// ExportToText converts a Collection to plain text format
func ExportToText(c *Collection) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Collection: %s\n", c.Name)
	if c.Owner != nil {
		fmt.Fprintf(&buf, "Owner: %s (@%s)\n", c.Owner.Nickname, c.Owner.UserID)
	}
	fmt.Fprintf(&buf, "Playlists: %d\n\n", len(c.Playlists))

	for i, p := range c.Playlists {
		fmt.Fprintf(&buf, "%d. %s - @%s", i+1, p.Title, p.UserID)
		if len(p.Tags) > 0 {
			fmt.Fprintf(&buf, " %s", hashTags(p.Tags))
		}
		buf.WriteString("\n")
	}

	return buf.Bytes(), nil
}

// Render writes c to w in format f. Markdown output links remote covers.
func Render(w io.Writer, f Format, c *Collection) error {
	var (
		data []byte
		err  error
	)
	switch f {
	case CSV:
		data, err = ExportToCSV(c)
	case Markdown:
		data, err = ExportToMarkdown(c, nil)
	default:
		data, err = ExportToText(c)
	}
	if err != nil {
		return err
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	return nil
}

// DownloadImage downloads an image from the given URL and returns the raw bytes
func DownloadImage(url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("empty URL provided")
	}

	client := &http.Client{
		Timeout: 30 * time.Second,
	}

	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: status %d", resp.StatusCode)
	}

	imageData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}

	return imageData, nil
}

// ToMetadataJSON generates a JSON representation of the collection
func ToMetadataJSON(c *Collection) ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}

// CSVExportResult contains the paths of files created by WriteCSVExport
type CSVExportResult struct {
	PlaylistsFile string
	MetadataFile  string
}

// WriteCSVExport exports a collection to CSV format with accompanying metadata JSON file.
//
// Defaults to the collection slug as the base filename & creates {base}_playlists.csv and {base}_metadata.json
func WriteCSVExport(c *Collection, baseFilepath string) (*CSVExportResult, error) {
	if baseFilepath == "" {
		baseFilepath = c.Slug()
	}

	csvData, err := ExportToCSV(c)
	if err != nil {
		return nil, fmt.Errorf("failed to generate CSV: %w", err)
	}

	playlistsFile := baseFilepath + "_playlists.csv"
	if err := os.WriteFile(playlistsFile, csvData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write CSV file: %w", err)
	}

	metadataJSON, err := ToMetadataJSON(c)
	if err != nil {
		return nil, fmt.Errorf("failed to generate metadata JSON: %w", err)
	}

	metadataFile := baseFilepath + "_metadata.json"
	if err := os.WriteFile(metadataFile, metadataJSON, 0644); err != nil {
		return nil, fmt.Errorf("failed to write metadata file: %w", err)
	}

	return &CSVExportResult{
		PlaylistsFile: playlistsFile,
		MetadataFile:  metadataFile,
	}, nil
}

// MarkdownExportResult contains information about files created by WriteMarkdownExport
type MarkdownExportResult struct {
	Directory string
	Files     []string
	Covers    int
	Warnings  []string
}

// WriteMarkdownExport exports a collection to Markdown format in a dedicated directory.
//
// Directory name defaults to the collection slug. When downloadCovers is set, each playlist's
// cover is saved to {dir}/covers/{id}.jpg; failed downloads are reported as warnings and the
// remote URL is linked instead.
func WriteMarkdownExport(c *Collection, outputDir string, downloadCovers bool) (*MarkdownExportResult, error) {
	if outputDir == "" {
		outputDir = c.Slug()
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	result := &MarkdownExportResult{
		Directory: outputDir,
		Files:     []string{},
	}

	covers := map[string]string{}
	if downloadCovers {
		coverDir := filepath.Join(outputDir, "covers")
		if err := os.MkdirAll(coverDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create covers directory: %w", err)
		}

		for _, p := range c.Playlists {
			if p.Cover() == "" {
				continue
			}
			imageData, err := DownloadImage(p.Cover())
			if err != nil {
				result.Warnings = append(result.Warnings, fmt.Sprintf("%s: %v", p.ID, err))
				continue
			}
			name := p.ID + ".jpg"
			if err := os.WriteFile(filepath.Join(coverDir, name), imageData, 0644); err != nil {
				result.Warnings = append(result.Warnings, fmt.Sprintf("%s: %v", p.ID, err))
				continue
			}
			covers[p.ID] = "covers/" + name
			result.Files = append(result.Files, filepath.Join(coverDir, name))
			result.Covers++
		}
	}

	mdData, err := ExportToMarkdown(c, covers)
	if err != nil {
		return nil, fmt.Errorf("failed to generate Markdown: %w", err)
	}

	mdFile := filepath.Join(outputDir, "README.md")
	if err := os.WriteFile(mdFile, mdData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write Markdown file: %w", err)
	}

	result.Files = append(result.Files, mdFile)

	return result, nil
}

// WriteTextExport exports a collection to plain text format.
//
// Defaults to {slug}_playlists.txt as the filename.
func WriteTextExport(c *Collection, path string) (string, error) {
	if path == "" {
		path = c.Slug() + "_playlists.txt"
	}

	textData, err := ExportToText(c)
	if err != nil {
		return "", fmt.Errorf("failed to generate text: %w", err)
	}

	if err := os.WriteFile(path, textData, 0644); err != nil {
		return "", fmt.Errorf("failed to write text file: %w", err)
	}

	return path, nil
}

func hashTags(tags []string) string {
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = "#" + t
	}
	return strings.Join(out, " ")
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.DateOnly)
}
