package tendril

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/tendril/pkg/composer"
	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/render"
)

// Runner drives an interactive composer session over one subject using line-oriented IO.
// It lets CLIs and tests exercise the full toggle, draft and commit cycle.
//
// Commands, one per line:
//
//	open <id>          toggle the composer under <id> ("root" for a new comment)
//	draft <id> <text>  replace the draft of <id>
//	send <id>          commit the draft of <id> and close its composer
//	like <id>          activate the like affordance
//	quit               leave the session
type Runner struct {
	Input    io.Reader
	Output   io.Writer
	Headless bool

	// Composer holds open composers and drafts. A new one is created when nil.
	Composer *composer.State

	// TextOptions are passed to render.Text on every repaint.
	TextOptions []render.TextOption
}

// NewRunner creates a Runner for the given IO.
func NewRunner(in io.Reader, out io.Writer) *Runner {
	return &Runner{
		Input:  in,
		Output: out,
	}
}

// Run executes the command loop until quit or end of input.
// Command errors are reported on Output and do not stop the loop.
func (r *Runner) Run(ctx context.Context, engine *Engine, subjectID string) error {
	if r.Input == nil {
		return errors.New("input reader must be set (use os.Stdin)")
	}
	if r.Output == nil {
		return errors.New("output writer must be set (use os.Stdout)")
	}
	if r.Composer == nil {
		r.Composer = composer.New(composer.WithSubject(subjectID))
	}

	lines := bufio.NewScanner(r.Input)
	if !r.Headless {
		fmt.Fprintf(r.Output, "--- %s ---\n", subjectID)
	}

	for {
		if err := r.paint(ctx, engine, subjectID); err != nil {
			return fmt.Errorf("render error: %w", err)
		}
		if !r.Headless {
			fmt.Fprint(r.Output, "> ")
		}
		if !lines.Scan() {
			if err := lines.Err(); err != nil {
				return fmt.Errorf("input error: %w", err)
			}
			return nil
		}

		cmd, id, arg := parseCommand(lines.Text())
		switch cmd {
		case "":
			continue
		case "quit", "exit":
			if !r.Headless {
				fmt.Fprintln(r.Output, "Bye!")
			}
			return nil
		case "open":
			r.Composer.Toggle(id)
		case "draft":
			r.Composer.SetDraft(id, arg)
		case "send":
			node, err := r.Composer.CommitAndClose(ctx, id, engine.Replier(subjectID))
			if err != nil {
				fmt.Fprintf(r.Output, "error: %v\n", err)
				continue
			}
			fmt.Fprintf(r.Output, "posted %s\n", node.ID)
		case "like":
			if err := engine.Like(ctx, subjectID, id); err != nil {
				fmt.Fprintf(r.Output, "error: %v\n", err)
			}
		default:
			fmt.Fprintf(r.Output, "unknown command %q\n", cmd)
		}
	}
}

func (r *Runner) paint(ctx context.Context, engine *Engine, subjectID string) error {
	t, err := engine.Thread(ctx, subjectID)
	if err != nil {
		return err
	}
	if err := render.Text(r.Output, render.Walk(t.Roots, r.Composer, engine.renderOpts()...), r.TextOptions...); err != nil {
		return err
	}
	if open, draft := r.Composer.Lookup(domain.RootID); open {
		fmt.Fprintf(r.Output, "> new comment: %s\n", draft)
	}
	return nil
}

// parseCommand splits "draft c1 some text" into ("draft", "c1", "some text").
// The id "root" maps to domain.RootID.
func parseCommand(line string) (cmd, id, arg string) {
	line = strings.TrimSpace(line)
	cmd, rest, _ := strings.Cut(line, " ")
	id, arg, _ = strings.Cut(strings.TrimSpace(rest), " ")
	if strings.EqualFold(id, "root") {
		id = domain.RootID
	}
	return strings.ToLower(cmd), id, arg
}
