package thread

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/aretw0/tendril/internal/logging"
	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/ports"
)

// rootPrefix is prepended to the ordinal of top-level comment ids ("c1", "c2", ...).
const rootPrefix = "c"

// Store owns the comment tree of one subject.
// Safe for concurrent use; writers are serialized.
type Store struct {
	mu      sync.RWMutex
	thread  *domain.Thread
	index   map[string][]int  // node id -> child positions from the roots
	parents map[string]string // node id -> parent id (domain.RootID for roots)

	clock  func() time.Time
	logger *slog.Logger
	hooks  domain.LifecycleHooks
	sink   ports.CommitSink
}

// New creates a store holding an empty thread for subjectID.
func New(subjectID string, opts ...Option) *Store {
	s := &Store{
		thread:  domain.NewThread(subjectID),
		index:   make(map[string][]int),
		parents: make(map[string]string),
		clock:   time.Now,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Hydrate creates a store from a thread loaded from an external source.
// The thread is validated and deep-copied; the caller keeps ownership of t.
func Hydrate(t *domain.Thread, opts ...Option) (*Store, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	s := New(t.SubjectID, opts...)
	s.thread = t.Clone()
	s.reindex()
	return s, nil
}

// SubjectID returns the discussion subject this store belongs to.
func (s *Store) SubjectID() string {
	return s.thread.SubjectID
}

// AddReply commits a new comment under parentID (or domain.RootID for a top-level comment).
//
// The body must contain non-whitespace text. On success the new node is
// returned by value. On error the tree is left unchanged.
func (s *Store) AddReply(ctx context.Context, parentID, authorLabel, body string, opts ...ReplyOption) (domain.CommentNode, error) {
	var ro replyOptions
	for _, opt := range opts {
		opt(&ro)
	}

	node, err := s.addReply(ctx, parentID, authorLabel, body, ro)
	if err != nil {
		s.logger.Debug("reply rejected", "subject", s.SubjectID(), "parent_id", parentID, "err", err)
		if s.hooks.OnReplyRejected != nil {
			s.hooks.OnReplyRejected(ctx, &domain.ReplyEvent{
				EventBase: s.event(domain.EventReplyRejected),
				ParentID:  parentID,
				Err:       err,
			})
		}
		return domain.CommentNode{}, err
	}

	s.logger.Debug("reply committed", "subject", s.SubjectID(), "parent_id", parentID, "node_id", node.ID, "depth", node.Depth)
	if s.hooks.OnReplyCommitted != nil {
		s.hooks.OnReplyCommitted(ctx, &domain.ReplyEvent{
			EventBase: s.event(domain.EventReplyCommitted),
			ParentID:  parentID,
			NodeID:    node.ID,
			Depth:     node.Depth,
		})
	}
	return node, nil
}

func (s *Store) addReply(ctx context.Context, parentID, authorLabel, body string, ro replyOptions) (domain.CommentNode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	siblings, depth, ok := s.childrenOf(parentID)
	if !ok {
		return domain.CommentNode{}, fmt.Errorf("%w: %q", domain.ErrParentNotFound, parentID)
	}
	if domain.IsBlank(body) {
		return domain.CommentNode{}, domain.ErrEmptyBody
	}

	node := domain.CommentNode{
		ID:          s.mintID(parentID, len(*siblings)),
		AuthorLabel: authorLabel,
		AvatarRef:   ro.avatarRef,
		Body:        body,
		CreatedAt:   s.clock(),
		Depth:       depth,
	}

	if s.sink != nil {
		if err := s.sink.Commit(ctx, s.thread.SubjectID, parentID, node); err != nil {
			s.logger.Warn("commit sink rejected reply", "subject", s.thread.SubjectID, "parent_id", parentID, "err", err)
			return domain.CommentNode{}, fmt.Errorf("%w: %w", domain.ErrPersistence, err)
		}
	}

	parentPath := s.index[parentID] // nil for the root level
	path := make([]int, len(parentPath)+1)
	copy(path, parentPath)
	path[len(parentPath)] = len(*siblings)

	*siblings = append(*siblings, node)
	s.index[node.ID] = path
	s.parents[node.ID] = parentID

	return node, nil
}

// FindNode returns a copy of the node with the given id, including its subtree.
func (s *Store) FindNode(id string) (domain.CommentNode, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := s.lookup(id)
	if n == nil {
		return domain.CommentNode{}, false
	}
	return n.Clone(), true
}

// ParentOf returns the parent id of a node, or domain.RootID for a top-level comment.
func (s *Store) ParentOf(id string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	parent, ok := s.parents[id]
	return parent, ok
}

// ListRoots returns copies of the top-level comments in insertion order.
func (s *Store) ListRoots() []domain.CommentNode {
	s.mu.RLock()
	defer s.mu.RUnlock()

	roots := make([]domain.CommentNode, len(s.thread.Roots))
	for i, r := range s.thread.Roots {
		roots[i] = r.Clone()
	}
	return roots
}

// Snapshot returns a deep copy of the whole thread.
func (s *Store) Snapshot() *domain.Thread {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.thread.Clone()
}

// Len returns the number of nodes in the thread.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.index)
}

// Like accepts a like on a node. The engine models no reaction state: the
// call validates the id, emits OnLike and changes nothing.
func (s *Store) Like(ctx context.Context, id string) error {
	s.mu.RLock()
	_, ok := s.index[id]
	s.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %q", domain.ErrNodeNotFound, id)
	}
	if s.hooks.OnLike != nil {
		s.hooks.OnLike(ctx, &domain.LikeEvent{
			EventBase: s.event(domain.EventLike),
			NodeID:    id,
		})
	}
	return nil
}

// childrenOf resolves the children slice that a reply to parentID appends to,
// and the depth such a reply gets. Caller must hold s.mu.
func (s *Store) childrenOf(parentID string) (*[]domain.CommentNode, int, bool) {
	if parentID == domain.RootID {
		return &s.thread.Roots, 0, true
	}
	parent := s.lookup(parentID)
	if parent == nil {
		return nil, 0, false
	}
	return &parent.Children, parent.Depth + 1, true
}

// lookup follows the index path to the canonical node. Caller must hold s.mu.
func (s *Store) lookup(id string) *domain.CommentNode {
	path, ok := s.index[id]
	if !ok {
		return nil
	}
	nodes := s.thread.Roots
	var n *domain.CommentNode
	for _, i := range path {
		n = &nodes[i]
		nodes = n.Children
	}
	return n
}

// mintID derives an id from the parent's current child count and skips any
// candidate already present in the thread. Caller must hold s.mu.
func (s *Store) mintID(parentID string, siblings int) string {
	prefix := parentID + "-"
	if parentID == domain.RootID {
		prefix = rootPrefix
	}
	for n := siblings + 1; ; n++ {
		id := prefix + strconv.Itoa(n)
		if _, taken := s.index[id]; !taken {
			return id
		}
	}
}

// reindex rebuilds the id and parent indexes from the tree.
func (s *Store) reindex() {
	s.index = make(map[string][]int)
	s.parents = make(map[string]string)

	var walk func(nodes []domain.CommentNode, parentID string, prefix []int)
	walk = func(nodes []domain.CommentNode, parentID string, prefix []int) {
		for i := range nodes {
			path := make([]int, len(prefix)+1)
			copy(path, prefix)
			path[len(prefix)] = i

			s.index[nodes[i].ID] = path
			s.parents[nodes[i].ID] = parentID
			walk(nodes[i].Children, nodes[i].ID, path)
		}
	}
	walk(s.thread.Roots, domain.RootID, nil)
}

func (s *Store) event(t domain.EventType) domain.EventBase {
	return domain.EventBase{
		Timestamp: s.clock(),
		Type:      t,
		SubjectID: s.thread.SubjectID,
	}
}
