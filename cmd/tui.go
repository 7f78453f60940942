package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/playshare/internal/shared"
	"github.com/desertthunder/playshare/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive playlist browser.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	logPath, err := shared.ExpandPath(r.config.UI.LogPath)
	if err != nil {
		return err
	}
	fileLogger, err := shared.NewFileLogger(logPath)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	model := ui.NewModel(ctx, r.client(), r.tuiOptions())
	defer model.Close()

	p := tea.NewProgram(model, tea.WithContext(ctx), tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}

func (r *Runner) tuiOptions() ui.Options {
	return ui.Options{
		PageSize:        r.config.UI.PageSize,
		ScrollThreshold: r.config.UI.ScrollThreshold,
		ScrollRateLimit: r.config.UI.ScrollRateLimit(),
		BaseURL:         r.config.Client.BaseURL,
		TokenPath:       r.config.Client.TokenPath,
		Logger:          r.logger,
	}
}
