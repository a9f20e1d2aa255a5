package segment_test

import (
	"strings"
	"testing"
	"unicode"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/assistant-chat/internal/segment"
)

func prose(text string) segment.Segment {
	return segment.Segment{Kind: segment.KindProse, Text: text}
}

func code(lang, text string) segment.Segment {
	return segment.Segment{Kind: segment.KindCode, Text: text, Language: lang, Tagged: lang != segment.DefaultLanguage}
}

func TestSplit(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []segment.Segment
	}{
		{
			name:    "empty content",
			content: "",
			want:    []segment.Segment{prose("")},
		},
		{
			name:    "plain text",
			content: "plain text, no fences",
			want:    []segment.Segment{prose("plain text, no fences")},
		},
		{
			name:    "plain text is trimmed",
			content: "  padded\n",
			want:    []segment.Segment{prose("padded")},
		},
		{
			name:    "whitespace only falls back to untrimmed content",
			content: "   ",
			want:    []segment.Segment{prose("   ")},
		},
		{
			name:    "prose code prose",
			content: "before\n```js\nconst x=1;\n```\nafter",
			want: []segment.Segment{
				prose("before"),
				code("js", "const x=1;"),
				prose("after"),
			},
		},
		{
			name:    "fence without tag",
			content: "```\nfoo()\n```",
			want:    []segment.Segment{code(segment.DefaultLanguage, "foo()")},
		},
		{
			name:    "tag must follow the fence directly",
			content: "``` js\nx\n```",
			want:    []segment.Segment{code(segment.DefaultLanguage, "js\nx")},
		},
		{
			name:    "tag followed by code on the same line",
			content: "```python print(1)```",
			want:    []segment.Segment{code("python", "print(1)")},
		},
		{
			name:    "empty code body falls back to the raw content",
			content: "```js\n```",
			want:    []segment.Segment{prose("```js\n```")},
		},
		{
			name:    "unclosed fence stays prose",
			content: "intro\n```go\nfunc main() {}",
			want:    []segment.Segment{prose("intro\n```go\nfunc main() {}")},
		},
		{
			name:    "unclosed fence after a closed one",
			content: "a\n```x\n1\n```\nb\n```y\n2",
			want: []segment.Segment{
				prose("a"),
				code("x", "1"),
				prose("b\n```y\n2"),
			},
		},
		{
			name:    "adjacent code blocks",
			content: "```a\n1\n``````b\n2\n```",
			want: []segment.Segment{
				code("a", "1"),
				code("b", "2"),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, segment.Split(tt.content))
		})
	}
}

func squash(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

func TestJoinReassemblesContent(t *testing.T) {
	inputs := []string{
		"before\n```js\nconst x=1;\n```\nafter",
		"Here you go:\n\n```go\npackage main\n\nfunc main() {}\n```\n\nAnd SQL:\n```sql\nSELECT 1;\n```",
		"```\nno tag\n```",
		"``` js\nx\n```",
		"```python print(1)```",
		"intro\n```go\nunclosed",
		"just words",
	}

	for _, in := range inputs {
		got := segment.Join(segment.Split(in))
		assert.Equal(t, squash(in), squash(got), "input %q", in)
	}
}

func TestProseOnly(t *testing.T) {
	require.True(t, segment.ProseOnly(segment.Split("hello")))
	require.False(t, segment.ProseOnly(segment.Split("see\n```sh\nls\n```")))
}

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		code string
		want string
	}{
		{"import React from 'react'", "typescript"},
		{"export const x = 1", "typescript"},
		{"def greet():\n    pass", "python"},
		{"import os", "python"},
		{"public class Main {}", "java"},
		// the python marker wins over the java one
		{`System.out.println("import x");`, "python"},
		{"#include <stdio.h>", "cpp"},
		{"int main() { return 0; }", "cpp"},
		{"SELECT * FROM users", "sql"},
		{"CREATE TABLE t (id int)", "sql"},
		{"<div>hi</div>", "html"},
		{"body { color: red }", "css"},
		{"hello world", "plaintext"},
		{"", "plaintext"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, segment.DetectLanguage(tt.code), "code %q", tt.code)
	}
}
