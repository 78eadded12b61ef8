/*
Package tendril is a threaded comment engine: the in-memory model of one
discussion thread, the mutations on it, and a bounded-depth rendering contract.

A thread is an ordered forest of comments. Each reply is attached to exactly
one parent (or to the thread root), receives an id derived from its parent,
and records its depth. Composer state (which inline reply editors are open and
what has been typed into them) lives beside the tree, never inside it.

# Layout

  - pkg/domain: comment nodes, threads, sentinel errors, lifecycle events.
  - pkg/thread: the per-subject Thread Store (AddReply, FindNode, ListRoots, Like).
  - pkg/composer: per-node open flags and drafts, CommitAndClose.
  - pkg/render: lazy pre-order traversal, plain text and Mermaid projections.
  - pkg/ports and pkg/adapters: persistence, commit sinks and locks (memory, file, SQLite, Redis).
  - pkg/session: per-subject serialization of load, mutate and save.

# Usage

	eng, err := tendril.New()
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	first, _ := eng.Reply(ctx, "post-42", domain.RootID, "Ana", "Great write-up")
	_, _ = eng.Reply(ctx, "post-42", first.ID, "Bo", "Agreed")

	entries, _ := eng.Entries(ctx, "post-42", nil)
	for _, e := range entries {
		fmt.Printf("%*s%s: %s\n", e.Indent*2, "", e.Node.AuthorLabel, e.Node.Body)
	}

Inline composers commit through the engine so the reply is persisted:

	drafts := composer.New(composer.WithAuthor("Cy", ""))
	drafts.Toggle(first.ID)
	drafts.SetDraft(first.ID, "Me too")
	node, err := drafts.CommitAndClose(ctx, first.ID, eng.Replier("post-42"))
*/
package tendril
