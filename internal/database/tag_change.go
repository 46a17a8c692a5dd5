package database

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TagChangeHandler is invoked after a write changes which tags a user's records carry.
type TagChangeHandler func(ctx context.Context, userID uuid.UUID) error

// tagChangeNotifier is embedded by repositories whose records carry tags.
type tagChangeNotifier struct {
	logger  *zap.Logger
	handler TagChangeHandler
}

// SetLogger sets the logger used to report handler failures.
func (n *tagChangeNotifier) SetLogger(logger *zap.Logger) {
	n.logger = logger
}

// SetTagChangeHandler registers the callback fired when tags change.
func (n *tagChangeNotifier) SetTagChangeHandler(h TagChangeHandler) {
	n.handler = h
}

// notify runs the handler. Failures are logged and never fail the write that
// triggered them; the statistics are recomputed on the next change.
func (n *tagChangeNotifier) notify(ctx context.Context, userID uuid.UUID) {
	if n.handler == nil {
		return
	}
	if err := n.handler(ctx, userID); err != nil && n.logger != nil {
		n.logger.Warn("tag_change_handler_failed",
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
	}
}
