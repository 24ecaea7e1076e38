package cloud

import (
	"context"
	"errors"

	"evalgo.org/portico/internal/ux"
)

// LoginFunc runs an interactive login and stores the new secret key.
type LoginFunc func(ctx context.Context) error

// PromptLogin checks that client is authenticated. If not, it offers to run
// login, reloads the client and checks again. A second failure is returned
// to the caller as-is.
func PromptLogin(ctx context.Context, client *Client, prompter ux.Prompter, login LoginFunc) error {
	err := client.EnsureAuthenticated()
	if err == nil || !errors.Is(err, ErrNotAuthenticated) {
		return err
	}

	ok, perr := prompter.Confirm(ctx, "You're not authenticated to the cloud yet, login now?", true)
	if perr != nil {
		return perr
	}
	if !ok {
		return ErrAborted
	}

	if err := login(ctx); err != nil {
		return err
	}
	if err := client.Reinit(); err != nil {
		return err
	}
	return client.EnsureAuthenticated()
}
