// Package segment splits assistant replies into prose and fenced-code segments.
package segment

import "strings"

// Kind tells prose apart from code.
type Kind string

const (
	KindProse Kind = "prose"
	KindCode  Kind = "code"
)

const (
	fence = "```"

	// DefaultLanguage is assigned to code segments whose fence carries no tag.
	DefaultLanguage = "text"
)

// Segment is a derived view of a message's content. It is recomputed on
// every render and never stored.
type Segment struct {
	Kind     Kind   `json:"kind"`
	Text     string `json:"text"`
	Language string `json:"language,omitempty"`
	// Tagged is true when Language came from the fence info string.
	Tagged bool `json:"tagged,omitempty"`
}

type scanState int

const (
	outsideFence scanState = iota
	insideFence
)

// Split returns the ordered segments of content.
//
// A fence opens with three backticks, optionally followed directly by a
// language tag made of word characters and a single newline, and closes at
// the next three backticks. An opening fence without a closing one is left
// as prose. When nothing is produced the untrimmed content is returned as a
// single prose segment.
func Split(content string) []Segment {
	var (
		out       []Segment
		state     = outsideFence
		pos       int // scan cursor
		lastEnd   int // end of the previous closed fence
		openStart int // start of the fence being scanned
		lang      string
	)

	for {
		switch state {
		case outsideFence:
			open := strings.Index(content[pos:], fence)
			if open < 0 {
				return finish(out, content, content[lastEnd:])
			}
			openStart = pos + open
			pos = openStart + len(fence)
			tagEnd := pos
			for tagEnd < len(content) && isWordByte(content[tagEnd]) {
				tagEnd++
			}
			lang = content[pos:tagEnd]
			pos = tagEnd
			if pos < len(content) && content[pos] == '\n' {
				pos++
			}
			state = insideFence

		case insideFence:
			end := strings.Index(content[pos:], fence)
			if end < 0 {
				return finish(out, content, content[lastEnd:])
			}
			out = appendProse(out, content[lastEnd:openStart])
			out = appendCode(out, content[pos:pos+end], lang)
			pos += end + len(fence)
			lastEnd = pos
			state = outsideFence
		}
	}
}

// isWordByte matches the ASCII word class [A-Za-z0-9_].
func isWordByte(b byte) bool {
	return b == '_' ||
		(b >= 'a' && b <= 'z') ||
		(b >= 'A' && b <= 'Z') ||
		(b >= '0' && b <= '9')
}

func appendProse(out []Segment, text string) []Segment {
	text = strings.TrimSpace(text)
	if text == "" {
		return out
	}
	return append(out, Segment{Kind: KindProse, Text: text})
}

func appendCode(out []Segment, body, lang string) []Segment {
	body = strings.TrimSpace(body)
	if body == "" {
		return out
	}
	seg := Segment{Kind: KindCode, Text: body, Language: DefaultLanguage}
	if lang != "" {
		seg.Language = lang
		seg.Tagged = true
	}
	return append(out, seg)
}

func finish(out []Segment, content, rest string) []Segment {
	out = appendProse(out, rest)
	if len(out) == 0 {
		return []Segment{{Kind: KindProse, Text: content}}
	}
	return out
}
