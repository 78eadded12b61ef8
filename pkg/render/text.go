package render

import (
	"fmt"
	"io"
	"iter"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/muesli/termenv"
)

// TextOption configures Text.
type TextOption func(*textConfig)

type textConfig struct {
	profile termenv.Profile
	now     func() time.Time
	indent  string
}

// WithProfile sets the terminal colour profile. The default is termenv.Ascii (no styling).
func WithProfile(p termenv.Profile) TextOption {
	return func(c *textConfig) {
		c.profile = p
	}
}

// WithNow sets the reference time for relative timestamps.
func WithNow(now func() time.Time) TextOption {
	return func(c *textConfig) {
		c.now = now
	}
}

// WithIndentString sets the string repeated once per indentation level.
func WithIndentString(s string) TextOption {
	return func(c *textConfig) {
		c.indent = s
	}
}

// Text writes entries as an indented plain-text listing:
//
//	Alice · 3 minutes ago [c1]
//	  Hello
//	  Bob · 1 minute ago [c1-1]
//	    Nice!
func Text(w io.Writer, entries iter.Seq[Entry], opts ...TextOption) error {
	cfg := textConfig{
		profile: termenv.Ascii,
		now:     time.Now,
		indent:  "  ",
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	now := cfg.now()
	for e := range entries {
		pad := strings.Repeat(cfg.indent, e.Indent)
		author := cfg.profile.String(e.Node.AuthorLabel).Bold().String()
		meta := cfg.profile.String(fmt.Sprintf("%s [%s]", humanize.RelTime(e.Node.CreatedAt, now, "ago", "from now"), e.Node.ID)).Faint().String()

		if _, err := fmt.Fprintf(w, "%s%s · %s\n", pad, author, meta); err != nil {
			return err
		}
		for _, line := range strings.Split(e.Node.Body, "\n") {
			if _, err := fmt.Fprintf(w, "%s%s%s\n", pad, cfg.indent, line); err != nil {
				return err
			}
		}
		if e.ComposerOpen {
			prompt := cfg.profile.String("> reply:").Italic().String()
			if _, err := fmt.Fprintf(w, "%s%s%s %s\n", pad, cfg.indent, prompt, e.Draft); err != nil {
				return err
			}
		}
	}
	return nil
}
