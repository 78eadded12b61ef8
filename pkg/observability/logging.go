package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/tendril/pkg/domain"
)

// LoggingHooks returns lifecycle hooks that record every event on logger.
func LoggingHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnReplyCommitted: func(ctx context.Context, e *domain.ReplyEvent) {
			logger.InfoContext(ctx, "reply_committed",
				"subject", e.SubjectID,
				"parent_id", e.ParentID,
				"node_id", e.NodeID,
				"depth", e.Depth,
			)
		},
		OnReplyRejected: func(ctx context.Context, e *domain.ReplyEvent) {
			logger.WarnContext(ctx, "reply_rejected",
				"subject", e.SubjectID,
				"parent_id", e.ParentID,
				"err", e.Err,
			)
		},
		OnComposerToggled: func(ctx context.Context, e *domain.ComposerEvent) {
			logger.DebugContext(ctx, "composer_toggled", "subject", e.SubjectID, "node_id", e.NodeID, "open", e.Open)
		},
		OnLike: func(ctx context.Context, e *domain.LikeEvent) {
			logger.InfoContext(ctx, "like", "subject", e.SubjectID, "node_id", e.NodeID)
		},
	}
}
