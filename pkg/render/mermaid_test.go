package render_test

import (
	"strings"
	"testing"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/render"
)

func TestMermaid(t *testing.T) {
	th := &domain.Thread{
		SubjectID: "post-1",
		Roots: []domain.CommentNode{
			{ID: "c1", AuthorLabel: "Alice", Body: `Say "hello"`, Children: []domain.CommentNode{
				{ID: "c1-1", AuthorLabel: "Bob", Body: "this reply is far too long to fit in a diagram label", Depth: 1},
			}},
		},
	}

	tests := []struct {
		name        string
		view        render.ComposerView
		contains    []string
		notContains []string
	}{
		{
			name: "Tree Shape",
			contains: []string{
				"graph TD\n",
				"thread((\"post-1\"))",
				"n1[\"Alice (c1): Say #quot;hello#quot;\"]",
				"thread --> n1",
				"n1 --> n2",
			},
			notContains: []string{"classDef composing"},
		},
		{
			name: "Excerpt Truncation",
			contains: []string{
				"n2[\"Bob (c1-1): this reply is far too long to f…\"]",
			},
		},
		{
			name: "Composer Overlay",
			view: viewFunc(func(id string) (bool, string) { return id == "c1-1", "" }),
			contains: []string{
				"classDef composing",
				"class n2 composing;",
			},
			notContains: []string{"class n1 composing;"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := render.Mermaid(th, tt.view)
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("expected output to contain %q, got:\n%s", want, got)
				}
			}
			for _, unwanted := range tt.notContains {
				if strings.Contains(got, unwanted) {
					t.Errorf("expected output not to contain %q, got:\n%s", unwanted, got)
				}
			}
		})
	}
}

func TestMermaid_DistinctVertices(t *testing.T) {
	// Ids that a character substitution would fold together, plus a keyword and punctuation.
	th := &domain.Thread{
		SubjectID: "post-1",
		Roots: []domain.CommentNode{
			{ID: "a-b", AuthorLabel: "A", Body: "one"},
			{ID: "a_b", AuthorLabel: "B", Body: "two"},
			{ID: "end", AuthorLabel: "C", Body: "three"},
			{ID: "x:(y)", AuthorLabel: "D", Body: "four"},
		},
	}

	got := render.Mermaid(th, nil)
	for _, want := range []string{
		"n1[\"A (a-b): one\"]",
		"n2[\"B (a_b): two\"]",
		"n3[\"C (end): three\"]",
		"n4[\"D (x:(y)): four\"]",
		"thread --> n4",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, got)
		}
	}
	for _, line := range strings.Split(got, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "end") {
			t.Errorf("comment id leaked into a vertex name: %q", line)
		}
	}
}
