package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/playshare/internal/models"
	"github.com/desertthunder/playshare/internal/services"
	"github.com/desertthunder/playshare/internal/shared"
	"github.com/urfave/cli/v3"
)

// SignIn exchanges a user id and password for a session and saves it to client.token_path.
func (r *Runner) SignIn(ctx context.Context, cmd *cli.Command) error {
	userID := cmd.StringArg("user")
	if userID == "" {
		return fmt.Errorf("%w: user id", shared.ErrMissingArgument)
	}
	return r.signIn(ctx, userID, cmd.String("password"))
}

// SignUp creates an account, then signs in with it.
func (r *Runner) SignUp(ctx context.Context, cmd *cli.Command) error {
	userID := cmd.StringArg("user")
	if userID == "" {
		return fmt.Errorf("%w: user id", shared.ErrMissingArgument)
	}

	nickname := cmd.String("nickname")
	if nickname == "" {
		nickname = userID
	}

	profile, err := r.client().SignUp(ctx, userID, cmd.String("password"), nickname)
	if err != nil {
		return fmt.Errorf("sign up failed: %w", err)
	}
	r.logger.Info("account created", "user", profile.UserID)
	r.writePlain("✓ Account %s created\n", profile.UserID)

	return r.signIn(ctx, userID, cmd.String("password"))
}

func (r *Runner) signIn(ctx context.Context, userID, password string) error {
	creds, err := r.client().SignIn(ctx, userID, password)
	if err != nil {
		return fmt.Errorf("sign in failed: %w", err)
	}

	if err := services.SaveCredentials(r.config.Client.TokenPath, creds); err != nil {
		return err
	}
	r.logger.Debug("session saved", "path", r.config.Client.TokenPath)

	return r.writePlain("✓ Signed in as %s (session expires %s)\n", creds.UserID, creds.Expiry.Format("2006-01-02 15:04"))
}

// SignOut forgets the session locally. The token stays valid on the server until it expires.
func (r *Runner) SignOut(ctx context.Context, cmd *cli.Command) error {
	r.client().SignOut()
	if err := services.RemoveCredentials(r.config.Client.TokenPath); err != nil {
		return err
	}
	return r.writePlain("✓ Signed out\n")
}

// WhoAmI prints the signed-in user's profile.
func (r *Runner) WhoAmI(ctx context.Context, cmd *cli.Command) error {
	userID, ok := r.client().CurrentUser()
	if !ok {
		return fmt.Errorf("%w: run 'playshare signin' first", shared.ErrNotAuthenticated)
	}

	profile, err := r.client().Profile(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load profile: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(profile, true)
	}
	r.writeProfile(profile)
	return nil
}

func (r *Runner) writeProfile(p *models.Profile) {
	r.writePlainHeader(fmt.Sprintf("%s (@%s)", p.Nickname, p.UserID))
	r.writePlain("Playlists: %d\n", p.Playlists)
	r.writePlain("Followers: %d\n", p.Followers)
	r.writePlain("Following: %d\n", p.Following)
	if p.ProfileImage != "" {
		r.writePlain("Image:     %s\n", p.ProfileImage)
	}
}
