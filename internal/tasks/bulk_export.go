package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/desertthunder/playshare/internal/formatter"
	"golang.org/x/time/rate"
)

// BulkExportOpts contains configuration for bulk collection exports.
type BulkExportOpts struct {
	Format     formatter.Format // Export format: csv, markdown, txt
	OutputDir  string           // Base output directory (default: playshare_export_{epoch})
	NumWorkers int              // Concurrent workers (default: 4, max 8)
	RateLimit  float64          // Collections started per second (default: 5)
	Covers     bool             // Download cover images for Markdown exports
}

// SourceExportResult describes the export of one [Source].
type SourceExportResult struct {
	Source    string   `json:"source"`
	Name      string   `json:"name"`
	Playlists int      `json:"playlists"`
	Files     []string `json:"files"`
	Warnings  []string `json:"warnings,omitempty"`
	Success   bool     `json:"success"`
	Error     error    `json:"-"`
	Message   string   `json:"error,omitempty"`
}

// BulkExportResult summarizes a [ExportEngine.BulkExport] run.
type BulkExportResult struct {
	Format            formatter.Format     `json:"format"`
	TotalSources      int                  `json:"totalSources"`
	SuccessfulExports int                  `json:"successfulExports"`
	FailedExports     int                  `json:"failedExports"`
	OutputDirectory   string               `json:"outputDirectory"`
	ManifestPath      string               `json:"-"`
	ExportedAt        time.Time            `json:"exportedAt"`
	Results           []SourceExportResult `json:"results"`
}

// BulkExport exports several collections concurrently with rate limiting and progress tracking.
//
// Sources are dispatched to a worker pool no faster than opts.RateLimit per second. A failed
// source is recorded in the result and does not stop the others. A manifest summarizing the run
// is written to {OutputDir}/export_manifest.json.
func (e *ExportEngine) BulkExport(ctx context.Context, prog chan<- ProgressUpdate, sources []Source, opts BulkExportOpts) (*BulkExportResult, error) {
	if opts.Format == "" {
		opts.Format = formatter.Text
	}
	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("playshare_export_%d", time.Now().Unix())
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 4
	}
	if opts.NumWorkers > 8 {
		opts.NumWorkers = 8
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5.0
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	result := &BulkExportResult{
		Format:          opts.Format,
		TotalSources:    len(sources),
		OutputDirectory: opts.OutputDir,
		ExportedAt:      time.Now().UTC(),
		Results:         make([]SourceExportResult, 0, len(sources)),
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	jobs := make(chan Source)
	results := make(chan SourceExportResult, len(sources))

	var wg sync.WaitGroup
	for range opts.NumWorkers {
		wg.Add(1)
		go e.exportWorker(ctx, &wg, jobs, results, prog, opts)
	}

	go func() {
		defer close(jobs)
		for i, src := range sources {
			if err := limiter.Wait(ctx); err != nil {
				for _, rest := range sources[i:] {
					results <- SourceExportResult{Source: rest.String(), Error: err}
				}
				return
			}
			e.sendProgress(prog, writeExportUpdate(i+1, len(sources), src.String()))
			select {
			case jobs <- src:
			case <-ctx.Done():
				for _, rest := range sources[i:] {
					results <- SourceExportResult{Source: rest.String(), Error: ctx.Err()}
				}
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for res := range results {
		completed++
		if res.Error != nil {
			res.Message = res.Error.Error()
			result.FailedExports++
			e.sendProgress(prog, exportFailedUpdate(completed, len(sources), res.Source, res.Error))
		} else {
			res.Success = true
			result.SuccessfulExports++
			e.sendProgress(prog, exportDoneUpdate(completed, len(sources), res.Name, len(res.Files)))
		}
		result.Results = append(result.Results, res)
	}

	manifestPath := filepath.Join(opts.OutputDir, "export_manifest.json")
	if err := writeManifest(result, manifestPath); err != nil {
		return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath
	return result, nil
}

// exportWorker exports sources from the jobs channel until it closes.
func (e *ExportEngine) exportWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	jobs <-chan Source,
	results chan<- SourceExportResult,
	prog chan<- ProgressUpdate,
	opts BulkExportOpts,
) {
	defer wg.Done()
	for src := range jobs {
		results <- e.exportSource(ctx, src, prog, opts)
	}
}

// exportSource collects one source and writes it in the requested format.
func (e *ExportEngine) exportSource(ctx context.Context, src Source, prog chan<- ProgressUpdate, opts BulkExportOpts) SourceExportResult {
	result := SourceExportResult{Source: src.String(), Files: []string{}}

	c, err := e.Collect(ctx, src, prog)
	if err != nil {
		result.Error = err
		return result
	}
	result.Name = c.Name
	result.Playlists = len(c.Playlists)

	base := filepath.Join(opts.OutputDir, c.Slug())
	switch opts.Format {
	case formatter.CSV:
		res, err := formatter.WriteCSVExport(c, base)
		if err != nil {
			result.Error = fmt.Errorf("CSV export failed: %w", err)
			return result
		}
		result.Files = []string{res.PlaylistsFile, res.MetadataFile}
	case formatter.Markdown:
		res, err := formatter.WriteMarkdownExport(c, base, opts.Covers)
		if err != nil {
			result.Error = fmt.Errorf("markdown export failed: %w", err)
			return result
		}
		result.Files = res.Files
		result.Warnings = res.Warnings
	default:
		path, err := formatter.WriteTextExport(c, base+"_playlists.txt")
		if err != nil {
			result.Error = fmt.Errorf("text export failed: %w", err)
			return result
		}
		result.Files = []string{path}
	}
	return result
}

func writeManifest(result *BulkExportResult, path string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}
