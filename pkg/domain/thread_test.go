package domain

import (
	"context"
	"errors"
	"testing"
	"time"
)

func sampleThread() *Thread {
	now := time.Date(2025, 7, 16, 22, 0, 0, 0, time.UTC)
	return &Thread{
		SubjectID: "post-1",
		Roots: []CommentNode{
			{
				ID: "c1", AuthorLabel: "Alice", Body: "Hello", CreatedAt: now, Depth: 0,
				Children: []CommentNode{
					{ID: "c1-1", AuthorLabel: "Bob", Body: "Nice!", CreatedAt: now, Depth: 1},
				},
			},
			{ID: "c2", AuthorLabel: "Carol", Body: "Hi", CreatedAt: now, Depth: 0},
		},
	}
}

func TestThread_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Thread)
		wantErr bool
	}{
		{name: "Valid", mutate: func(*Thread) {}},
		{name: "Empty", mutate: func(th *Thread) { th.Roots = nil }},
		{
			name:    "Duplicate ID Across Depths",
			mutate:  func(th *Thread) { th.Roots[0].Children[0].ID = "c2" },
			wantErr: true,
		},
		{
			name:    "Wrong Child Depth",
			mutate:  func(th *Thread) { th.Roots[0].Children[0].Depth = 3 },
			wantErr: true,
		},
		{
			name:    "Root Not At Depth Zero",
			mutate:  func(th *Thread) { th.Roots[1].Depth = 1 },
			wantErr: true,
		},
		{
			name:    "Blank Body",
			mutate:  func(th *Thread) { th.Roots[1].Body = " \n\t" },
			wantErr: true,
		},
		{
			name:    "Reserved ID",
			mutate:  func(th *Thread) { th.Roots[1].ID = RootID },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			th := sampleThread()
			tt.mutate(th)
			err := th.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidThread) {
					t.Fatalf("expected ErrInvalidThread, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestThread_CloneIsDeep(t *testing.T) {
	th := sampleThread()
	cp := th.Clone()

	cp.Roots[0].Children[0].Body = "changed"
	cp.Roots[0].Children = append(cp.Roots[0].Children, CommentNode{ID: "c1-2"})

	if th.Roots[0].Children[0].Body != "Nice!" {
		t.Errorf("clone shares child storage with original")
	}
	if len(th.Roots[0].Children) != 1 {
		t.Errorf("expected original to keep 1 child, got %d", len(th.Roots[0].Children))
	}
}

func TestThread_Count(t *testing.T) {
	if got := sampleThread().Count(); got != 3 {
		t.Errorf("expected 3 nodes, got %d", got)
	}
	if got := NewThread("empty").Count(); got != 0 {
		t.Errorf("expected 0 nodes, got %d", got)
	}
}

func TestLifecycleHooks_Merge(t *testing.T) {
	var calls []string
	a := LifecycleHooks{OnLike: func(_ context.Context, e *LikeEvent) { calls = append(calls, "a:"+e.NodeID) }}
	b := LifecycleHooks{OnLike: func(_ context.Context, e *LikeEvent) { calls = append(calls, "b:"+e.NodeID) }}

	merged := a.Merge(b)
	merged.OnLike(context.Background(), &LikeEvent{NodeID: "c1"})

	if len(calls) != 2 || calls[0] != "a:c1" || calls[1] != "b:c1" {
		t.Errorf("unexpected call order: %v", calls)
	}
	if merged.OnReplyCommitted != nil {
		t.Errorf("expected nil callback when neither side defines it")
	}
}
