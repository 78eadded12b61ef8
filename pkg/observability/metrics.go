package observability

import (
	"context"
	"errors"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "tendril"

// Metrics holds the Prometheus collectors fed by lifecycle hooks.
type Metrics struct {
	RepliesCommitted prometheus.Counter
	RepliesRejected  *prometheus.CounterVec
	ReplyDepth       prometheus.Histogram
	ComposerToggles  *prometheus.CounterVec
	Likes            prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg skips registration.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		RepliesCommitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "replies_committed_total",
			Help:      "Total number of replies appended to a thread.",
		}),
		RepliesRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "replies_rejected_total",
			Help:      "Total number of rejected replies by reason.",
		}, []string{"reason"}),
		ReplyDepth: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reply_depth",
			Help:      "Depth of committed replies.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13},
		}),
		ComposerToggles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "composer_toggles_total",
			Help:      "Total number of composer toggles by resulting state.",
		}, []string{"state"}),
		Likes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "likes_total",
			Help:      "Total number of like activations.",
		}),
	}

	if reg != nil {
		for _, c := range []prometheus.Collector{m.RepliesCommitted, m.RepliesRejected, m.ReplyDepth, m.ComposerToggles, m.Likes} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

// Hooks returns lifecycle hooks that update the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnReplyCommitted: func(_ context.Context, e *domain.ReplyEvent) {
			m.RepliesCommitted.Inc()
			m.ReplyDepth.Observe(float64(e.Depth))
		},
		OnReplyRejected: func(_ context.Context, e *domain.ReplyEvent) {
			m.RepliesRejected.WithLabelValues(RejectReason(e.Err)).Inc()
		},
		OnComposerToggled: func(_ context.Context, e *domain.ComposerEvent) {
			state := "closed"
			if e.Open {
				state = "open"
			}
			m.ComposerToggles.WithLabelValues(state).Inc()
		},
		OnLike: func(context.Context, *domain.LikeEvent) {
			m.Likes.Inc()
		},
	}
}

// RejectReason maps a reply error to a low-cardinality label.
func RejectReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrParentNotFound):
		return "parent_not_found"
	case errors.Is(err, domain.ErrEmptyBody):
		return "empty_body"
	case errors.Is(err, domain.ErrPersistence):
		return "persistence"
	default:
		return "other"
	}
}
