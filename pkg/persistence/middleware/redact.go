package middleware

import (
	"context"
	"regexp"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/ports"
)

// RedactedMask replaces every match in persisted copies.
const RedactedMask = "***"

type redactMiddleware struct {
	next     ports.ThreadStore
	patterns []*regexp.Regexp
}

// NewRedactMiddleware masks substrings matching any pattern in the bodies and
// author labels of persisted threads (e.g. e-mail addresses, phone numbers).
// The in-memory thread is not touched; only the stored copy is masked.
func NewRedactMiddleware(patternStrings []string) (Middleware, error) {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, err
		}
		patterns[i] = re
	}
	return func(next ports.ThreadStore) ports.ThreadStore {
		return &redactMiddleware{next: next, patterns: patterns}
	}, nil
}

func (m *redactMiddleware) Save(ctx context.Context, subjectID string, thread *domain.Thread) error {
	cloned := thread.Clone()
	m.maskNodes(cloned.Roots)
	return m.next.Save(ctx, subjectID, cloned)
}

func (m *redactMiddleware) Load(ctx context.Context, subjectID string) (*domain.Thread, error) {
	return m.next.Load(ctx, subjectID)
}

func (m *redactMiddleware) Delete(ctx context.Context, subjectID string) error {
	return m.next.Delete(ctx, subjectID)
}

func (m *redactMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

func (m *redactMiddleware) maskNodes(nodes []domain.CommentNode) {
	for i := range nodes {
		nodes[i].Body = m.mask(nodes[i].Body)
		nodes[i].AuthorLabel = m.mask(nodes[i].AuthorLabel)
		m.maskNodes(nodes[i].Children)
	}
}

func (m *redactMiddleware) mask(s string) string {
	for _, re := range m.patterns {
		s = re.ReplaceAllString(s, RedactedMask)
	}
	return s
}
