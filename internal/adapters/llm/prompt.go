package llm

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/PabloGalante/assistant-chat/internal/domain"
)

const SystemPrompt = "You are an intelligent AI assistant. Provide helpful, accurate, and concise responses. " +
	"If the user uploads files, summarize what you can based on the file names, types, and content previews."

// previewLimit is how much of a text file is shown to the model.
const previewLimit = 1000

var textExtensions = map[string]bool{
	".js": true, ".ts": true, ".py": true, ".java": true, ".c": true, ".cpp": true,
	".json": true, ".md": true, ".txt": true, ".csv": true, ".html": true, ".css": true,
}

// UserContent is the user turn sent to the model: the typed message followed
// by a list of uploaded files and a description of each.
func UserContent(req domain.CompletionRequest) string {
	if len(req.Attachments) == 0 {
		return req.Message
	}

	var b strings.Builder
	b.WriteString(req.Message)

	b.WriteString("\n\nThe user also uploaded the following files:")
	for _, a := range req.Attachments {
		fmt.Fprintf(&b, "\n- %s (%s, %d bytes)", a.Name, contentType(a), a.Size)
	}

	for _, a := range req.Attachments {
		b.WriteString(describeAttachment(a))
	}
	return b.String()
}

func describeAttachment(a domain.Attachment) string {
	switch {
	case isTextFile(a):
		text := string(a.Data)
		preview := text
		suffix := ""
		if len(text) > previewLimit {
			preview = truncateRunes(text, previewLimit)
			suffix = "\n...[truncated]"
		}
		return fmt.Sprintf("\n\nFile: %s\nType: %s\nSize: %d bytes\nContent Preview:\n%s%s",
			a.Name, contentType(a), a.Size, preview, suffix)
	case strings.HasPrefix(a.ContentType, "image/"):
		return fmt.Sprintf("\n\nImage: %s\nType: %s\nSize: %d bytes", a.Name, a.ContentType, a.Size)
	default:
		return fmt.Sprintf("\n\nFile: %s\nType: %s\nSize: %d bytes", a.Name, contentType(a), a.Size)
	}
}

func isTextFile(a domain.Attachment) bool {
	if strings.HasPrefix(a.ContentType, "text") {
		return true
	}
	return textExtensions[strings.ToLower(filepath.Ext(a.Name))]
}

func contentType(a domain.Attachment) string {
	if a.ContentType == "" {
		return "unknown"
	}
	return a.ContentType
}

// truncateRunes cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func utf8RuneStart(b byte) bool {
	return b&0xC0 != 0x80
}

// historyRole maps a stored author onto the chat-completion role names.
func historyRole(m *domain.Message) string {
	if m.Author == domain.RoleUser {
		return "user"
	}
	return "assistant"
}
