package render

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aretw0/tendril/pkg/domain"
)

// excerptLen is the maximum number of runes of a body shown in a diagram label.
const excerptLen = 32

// subjectNode is the diagram name of the subject vertex.
const subjectNode = "thread"

// Mermaid produces a Mermaid flowchart of the reply tree.
// The subject is drawn as a ((Circle)) and every comment as a [Rectangle]
// labelled with its author, id and a body excerpt. Nodes with an open composer
// are styled as "composing" when view is not nil.
//
// Comment ids are never used as diagram names: vertices are named n1, n2, ...
// in display order, so any id (including Mermaid keywords and punctuation)
// gets its own vertex.
func Mermaid(t *domain.Thread, view ComposerView) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")
	sb.WriteString(fmt.Sprintf("    %s((\"%s\"))\n", subjectNode, escapeLabel(t.SubjectID)))

	var composing []string
	ordinal := 0
	var visit func(parent string, nodes []domain.CommentNode)
	visit = func(parent string, nodes []domain.CommentNode) {
		for _, n := range nodes {
			ordinal++
			name := "n" + strconv.Itoa(ordinal)
			label := fmt.Sprintf("%s (%s): %s", n.AuthorLabel, n.ID, excerpt(n.Body))
			sb.WriteString(fmt.Sprintf("    %s[\"%s\"]\n", name, escapeLabel(label)))
			sb.WriteString(fmt.Sprintf("    %s --> %s\n", parent, name))

			if view != nil {
				if open, _ := view.Lookup(n.ID); open {
					composing = append(composing, name)
				}
			}
			visit(name, n.Children)
		}
	}
	visit(subjectNode, t.Roots)

	if len(composing) > 0 {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds
		sb.WriteString("    classDef composing fill:#ffeb3b,stroke:#fbc02d,stroke-width:2px,color:#000;\n")
		for _, name := range composing {
			sb.WriteString(fmt.Sprintf("    class %s composing;\n", name))
		}
	}

	return sb.String()
}

func excerpt(body string) string {
	body = strings.Join(strings.Fields(body), " ")
	r := []rune(body)
	if len(r) <= excerptLen {
		return body
	}
	return string(r[:excerptLen-1]) + "…"
}

// escapeLabel keeps a label inside its quotes. Mermaid reads #quot; as a double quote.
func escapeLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "#quot;")
}
