package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/playshare/internal/formatter"
	"github.com/desertthunder/playshare/internal/paging"
	"github.com/desertthunder/playshare/internal/services"
	"github.com/desertthunder/playshare/internal/shared"
	"github.com/desertthunder/playshare/internal/tasks"
	"github.com/urfave/cli/v3"
)

func (r *Runner) engine() *tasks.ExportEngine {
	return tasks.NewExportEngine(r.client(), r.config.UI.PageSize, r.logger)
}

// userOrSelf returns --user, falling back to the signed-in user.
func (r *Runner) userOrSelf(cmd *cli.Command) (string, error) {
	if userID := cmd.String("user"); userID != "" {
		return userID, nil
	}
	if userID, ok := r.client().CurrentUser(); ok {
		return userID, nil
	}
	return "", fmt.Errorf("%w: --user is required when not signed in", shared.ErrMissingArgument)
}

// printCollection drains src and writes it to the output as JSON or in --format.
func (r *Runner) printCollection(ctx context.Context, cmd *cli.Command, src tasks.Source) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	r.logger.Info("collecting", "source", src.String())
	c, err := r.engine().Collect(ctx, src, nil)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(c, cmd.Bool("pretty"))
	}
	return formatter.Render(r.output, format, c)
}

// PlaylistsList prints every playlist a user shares.
func (r *Runner) PlaylistsList(ctx context.Context, cmd *cli.Command) error {
	userID, err := r.userOrSelf(cmd)
	if err != nil {
		return err
	}
	return r.printCollection(ctx, cmd, tasks.PlaylistsOf(userID))
}

// Liked prints the playlists a user liked.
func (r *Runner) Liked(ctx context.Context, cmd *cli.Command) error {
	userID, err := r.userOrSelf(cmd)
	if err != nil {
		return err
	}
	return r.printCollection(ctx, cmd, tasks.LikedBy(userID))
}

// Search prints every playlist matching TERM.
func (r *Runner) Search(ctx context.Context, cmd *cli.Command) error {
	term := cmd.StringArg("term")
	filter := cmd.String("filter")
	switch filter {
	case "", "recent", "popular":
	default:
		return fmt.Errorf("%w: --filter must be recent or popular, got %q", shared.ErrInvalidFlag, filter)
	}
	return r.printCollection(ctx, cmd, tasks.SearchFor(term, filter))
}

// PlaylistsExport writes the playlists (and optionally likes) of each --user to files.
func (r *Runner) PlaylistsExport(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	users := cmd.StringSlice("user")
	if len(users) == 0 {
		return fmt.Errorf("%w: at least one --user", shared.ErrMissingArgument)
	}

	sources := make([]tasks.Source, 0, len(users)*2)
	for _, userID := range users {
		sources = append(sources, tasks.PlaylistsOf(userID))
		if cmd.Bool("liked") {
			sources = append(sources, tasks.LikedBy(userID))
		}
	}

	opts := tasks.BulkExportOpts{
		Format:     format,
		OutputDir:  cmd.String("output"),
		NumWorkers: cmd.Int("workers"),
		RateLimit:  cmd.Float64("rate"),
		Covers:     cmd.Bool("covers"),
	}

	r.logger.Info("starting export", "sources", len(sources), "format", format)
	r.writePlain("Exporting %d collections as %s...\n\n", len(sources), format)

	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			switch update.Phase {
			case tasks.WriteExport:
				r.writePlain("📥 %s\n", update.Message)
			case tasks.ExportDone, tasks.ExportFailed:
				r.writePlain("   %s\n", update.Message)
			}
		}
	}()

	result, err := r.engine().BulkExport(ctx, progressCh, sources, opts)
	close(progressCh)
	<-done

	if result == nil {
		return err
	}

	r.writePlain("\n")
	r.writePlainHeader("Export Complete!")
	r.writePlain("Output: %s\n", result.OutputDirectory)
	r.writePlain("Exported: %d/%d\n", result.SuccessfulExports, result.TotalSources)
	if result.ManifestPath != "" {
		r.writePlain("Manifest: %s\n", result.ManifestPath)
	}

	if result.FailedExports > 0 {
		r.writePlain("\nFailed to export %d collections:\n", result.FailedExports)
		for _, res := range result.Results {
			if !res.Success {
				r.writePlain("  - %s: %s\n", res.Source, res.Message)
			}
		}
	}
	return err
}

// PlaylistsCreate shares a new playlist as the signed-in user.
func (r *Runner) PlaylistsCreate(ctx context.Context, cmd *cli.Command) error {
	title := cmd.StringArg("title")
	if title == "" {
		return fmt.Errorf("%w: title", shared.ErrMissingArgument)
	}

	p, err := r.client().CreatePlaylist(ctx, title, shared.NormalizeTags(cmd.StringSlice("tag")), cmd.StringSlice("image"), !cmd.Bool("private"))
	if err != nil {
		return fmt.Errorf("failed to create playlist: %w", err)
	}

	r.logger.Info("playlist created", "id", p.ID)
	r.writePlain("✓ Created %s (%s)\n", p.Title, shared.VisibilityString(p.Public))
	return r.writePlain("  ID: %s\n", p.ID)
}

// PlaylistsLike likes a playlist, or removes the like with --undo.
func (r *Runner) PlaylistsLike(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: playlist id", shared.ErrMissingArgument)
	}

	if cmd.Bool("undo") {
		if err := r.client().Unlike(ctx, id); err != nil {
			return err
		}
		return r.writePlain("✓ Removed like from %s\n", id)
	}
	if err := r.client().Like(ctx, id); err != nil {
		return err
	}
	return r.writePlain("✓ Liked %s\n", id)
}

// Follow follows a user, or unfollows with --undo.
func (r *Runner) Follow(ctx context.Context, cmd *cli.Command) error {
	userID := cmd.StringArg("user")
	if userID == "" {
		return fmt.Errorf("%w: user id", shared.ErrMissingArgument)
	}

	if cmd.Bool("undo") {
		if err := r.client().Unfollow(ctx, userID); err != nil {
			return err
		}
		return r.writePlain("✓ Unfollowed %s\n", userID)
	}
	if err := r.client().Follow(ctx, userID); err != nil {
		return err
	}
	return r.writePlain("✓ Following %s\n", userID)
}

// Following prints every user a user follows, draining the list page by page.
func (r *Runner) Following(ctx context.Context, cmd *cli.Command) error {
	userID, err := r.userOrSelf(cmd)
	if err != nil {
		return err
	}

	feed := paging.NewFeed(r.config.UI.PageSize, services.FollowingFetcher(r.client(), userID))
	following, err := paging.Drain(ctx, feed)
	if err != nil {
		return fmt.Errorf("failed to list following for %s: %w", userID, err)
	}
	r.logger.Debug("drained following", "user", userID, "count", len(following))

	if cmd.Bool("json") {
		return r.writeJSON(following, true)
	}

	r.writePlainHeader(fmt.Sprintf("@%s follows %d users", userID, len(following)))
	for _, p := range following {
		r.writePlain("@%-16s %-24s %d playlists, %d followers\n", p.UserID, p.Nickname, p.Playlists, p.Followers)
	}
	return nil
}
