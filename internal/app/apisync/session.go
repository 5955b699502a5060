// internal/app/apisync/session.go
package apisync

import (
	"context"
	"errors"
	"fmt"

	"github.com/clubsuite/membersync/internal/app/system/apiclient"
	"go.uber.org/zap"
)

// ClearSession revokes the remote session behind a bearer token, so a local
// logout also logs the user out of the remote API. A token that no longer
// resolves to a session is a no-op.
func (e *Engine) ClearSession(ctx context.Context, token string) error {
	sess, err := e.api.FindSessionByToken(ctx, token)
	if errors.Is(err, apiclient.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	if err := e.api.DeleteSession(ctx, sess.ID, sess.Etag, token); err != nil {
		return fmt.Errorf("clear session %q: %w", sess.ID, err)
	}
	e.log.Info("remote session revoked", zap.String("uid", sess.User.ID))
	return nil
}
