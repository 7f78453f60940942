package tasks

import (
	"fmt"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	FetchProfile Phase = iota
	FetchPage
	WriteExport
	ExportDone
	ExportFailed
)

func (p Phase) String() string {
	switch p {
	case FetchProfile:
		return "fetch_profile"
	case FetchPage:
		return "fetch_page"
	case WriteExport:
		return "write_export"
	case ExportDone:
		return "export_done"
	case ExportFailed:
		return "export_failed"
	default:
		return ""
	}
}

func fetchProfileUpdate(src Source) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchProfile,
		Message: fmt.Sprintf("Fetching profile for %s", src.UserID),
	}
}

// pageUpdate reports a settled page; Total is zero while more pages may follow.
func pageUpdate(src Source, loaded int, more bool) ProgressUpdate {
	u := ProgressUpdate{
		Phase:   FetchPage,
		Step:    loaded,
		Message: fmt.Sprintf("Loaded %d playlists from %s", loaded, src),
		Data:    src,
	}
	if !more {
		u.Total = loaded
	}
	return u
}

func writeExportUpdate(step, total int, name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   WriteExport,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Exporting %s (%d/%d)", name, step, total),
	}
}

func exportDoneUpdate(step, total int, name string, files int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportDone,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("✓ %s (%d files)", name, files),
	}
}

func exportFailedUpdate(step, total int, name string, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportFailed,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("✗ %s: %v", name, err),
		Data:    err,
	}
}
