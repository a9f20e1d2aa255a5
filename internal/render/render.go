// Package render applies the chat display policy to message content and
// highlights code segments for the browser.
package render

import (
	"io"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"

	"github.com/PabloGalante/assistant-chat/internal/segment"
)

// DefaultStyle is the chroma style used for /code.css.
const DefaultStyle = "github"

// Block is one independently rendered piece of a message.
type Block struct {
	Kind     segment.Kind `json:"kind"`
	Text     string       `json:"text"`
	Language string       `json:"language,omitempty"`
	HTML     string       `json:"html,omitempty"`
	Copyable bool         `json:"copyable,omitempty"`
}

// View is the rendered form of a message.
// Plain views show Text as-is; otherwise Blocks are shown in order.
type View struct {
	Plain  bool    `json:"plain"`
	Text   string  `json:"text,omitempty"`
	Blocks []Block `json:"blocks,omitempty"`
}

var formatter = html.New(html.WithClasses(true), html.TabWidth(4))

// Message renders content written by the user (isUser) or the assistant.
// User messages and replies without code are shown as plain text.
func Message(content string, isUser bool) View {
	if isUser {
		return View{Plain: true, Text: content}
	}

	segs := segment.Split(content)
	if segment.ProseOnly(segs) {
		return View{Plain: true, Text: content}
	}

	blocks := make([]Block, 0, len(segs))
	for _, s := range segs {
		if s.Kind == segment.KindProse {
			blocks = append(blocks, Block{Kind: s.Kind, Text: s.Text})
			continue
		}
		lang := s.Language
		if !s.Tagged {
			lang = segment.DetectLanguage(s.Text)
		}
		blocks = append(blocks, Block{
			Kind:     s.Kind,
			Text:     s.Text,
			Language: lang,
			HTML:     Highlight(s.Text, lang),
			Copyable: true,
		})
	}
	return View{Blocks: blocks}
}

// Highlight returns class-annotated HTML for code. It falls back to escaped
// plain text when chroma cannot tokenise the input.
func Highlight(code, language string) string {
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	it, err := lexer.Tokenise(nil, code)
	if err != nil {
		return escape(code)
	}

	var buf strings.Builder
	if err := formatter.Format(&buf, styles.Get(DefaultStyle), it); err != nil {
		return escape(code)
	}
	return buf.String()
}

// Stylesheet writes the CSS matching the classes emitted by Highlight.
func Stylesheet(w io.Writer, style string) error {
	s := styles.Get(style)
	if s == nil {
		s = styles.Fallback
	}
	return formatter.WriteCSS(w, s)
}

func escape(code string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")
	return "<pre><code>" + r.Replace(code) + "</code></pre>"
}
