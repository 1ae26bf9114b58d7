// Package report renders a contracts.ApplyResult, together with its
// navigation.Block list, as a self-contained HTML fragment for sharing
// outside the terminal — and, optionally, an ASCII QR code pointing at a
// URL for the rendered report. Like internal/fsapply, this is caller-side
// glue; the engine packages know nothing about HTML.
package report

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/skip2/go-qrcode"
	xhtml "golang.org/x/net/html"

	"github.com/hunkwright/hunkwright/internal/contracts"
	"github.com/hunkwright/hunkwright/internal/navigation"
)

// Options configures one Render call.
type Options struct {
	Title    string // report heading, typically the target file's path
	Language string // chroma lexer name/alias; "" picks the plaintext lexer
	Theme    string // chroma style name, e.g. "github", "monokai"
}

// Render produces an HTML document highlighting every line of result.Text,
// marking added and removed lines, and linking the navigation blocks as
// jump targets. Every source line passes through golang.org/x/net/html's
// EscapeString before insertion, so a line containing '<', '>', or '&'
// cannot break the surrounding markup (spec §8 expansion).
func Render(result contracts.ApplyResult, opts Options) (string, error) {
	style := styles.Get(opts.Theme)
	if style == nil {
		style = styles.Get("github")
	}
	if style == nil {
		style = styles.Fallback
	}

	lexer := lexers.Fallback
	if opts.Language != "" {
		if l := lexers.Get(opts.Language); l != nil {
			lexer = l
		}
	}

	blocks := navigation.Analyze(result).Blocks()
	blockKind := blockKindIndex(blocks)

	lines := splitLines(result.Text)
	var body bytes.Buffer
	for i, line := range lines {
		class := "line"
		if kind, ok := blockKind[i]; ok {
			class += " " + kind.String()
		}
		highlighted, err := highlightLine(lexer, style, line)
		if err != nil {
			return "", fmt.Errorf("report: highlighting line %d: %w", i, err)
		}
		fmt.Fprintf(&body, "<tr id=\"L%d\" class=%q><td class=\"gutter\">%d</td><td class=\"code\">%s</td></tr>\n",
			i, class, i+1, highlighted)
	}

	var nav bytes.Buffer
	for _, b := range blocks {
		fmt.Fprintf(&nav, "<li><a href=\"#L%d\">%s: line %d-%d</a></li>\n", b.Start, b.Kind, b.Start+1, b.End+1)
	}

	title := xhtml.EscapeString(opts.Title)
	return fmt.Sprintf(htmlTemplate, title, title, nav.String(), body.String()), nil
}

// QRCodeASCII returns an ASCII-art QR code encoding url, for terminals that
// can't open a link directly. This mirrors the teacher's own QR-code
// affordance for sharing a connection address, repurposed here for a
// report URL.
func QRCodeASCII(url string) (string, error) {
	q, err := qrcode.New(url, qrcode.Medium)
	if err != nil {
		return "", fmt.Errorf("report: building QR code: %w", err)
	}
	return q.ToSmallString(false), nil
}

// highlightLine tokenizes one line with lexer and wraps each token in a
// colored span per style, escaping the token text through x/net/html.
func highlightLine(lexer chroma.Lexer, style *chroma.Style, line string) (string, error) {
	iterator, err := lexer.Tokenise(nil, line)
	if err != nil {
		return "", err
	}

	var out strings.Builder
	for _, tok := range iterator.Tokens() {
		text := xhtml.EscapeString(tok.Value)
		entry := style.Get(tok.Type)
		if entry.Colour.IsSet() {
			fmt.Fprintf(&out, "<span style=\"color:%s\">%s</span>", entry.Colour.String(), text)
		} else {
			out.WriteString(text)
		}
	}
	return out.String(), nil
}

// blockKindIndex maps each row index to its block kind. Where an added and a
// removed block cover the same index, the row is marked added.
func blockKindIndex(blocks []navigation.Block) map[int]navigation.BlockKind {
	idx := make(map[int]navigation.BlockKind)
	for _, b := range blocks {
		for i := b.Start; i <= b.End; i++ {
			if prev, ok := idx[i]; ok && prev == navigation.Added {
				continue
			}
			idx[i] = b.Kind
		}
	}
	return idx
}

func splitLines(text string) []string {
	trimmed := strings.TrimSuffix(text, "\n")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "\n")
}
