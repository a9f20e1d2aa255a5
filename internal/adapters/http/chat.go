package httpadapter

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"regexp"

	"github.com/PabloGalante/assistant-chat/internal/domain"
)

const (
	chatFailure      = "Failed to get AI response"
	documentFilename = "ai-response.txt"
)

// documentRequest spots prompts asking for something to download.
var documentRequest = regexp.MustCompile(`(?i)\b(generate|create|download).*\b(document|file|txt|report|summary)`)

func wantsDocument(message string) bool {
	return documentRequest.MatchString(message)
}

// handleChat forwards one message (plus optional files) to the completion
// backend. It keeps no session state.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	message, attachments, err := s.readMessage(w, r, "message")
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	reply, err := s.completion.Complete(r.Context(), domain.CompletionRequest{
		Message:     message,
		Attachments: attachments,
	})
	if err != nil {
		logger(r).Error("completion failed", "error", errors.Join(domain.ErrAssistantUnreachable, err))
		writeError(w, http.StatusInternalServerError, chatFailure)
		return
	}

	if wantsDocument(message) {
		w.Header().Set("Content-Type", "text/plain")
		w.Header().Set("Content-Disposition", `attachment; filename="`+documentFilename+`"`)
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, reply)
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{Response: reply})
}

// readMessage accepts either a JSON body or a multipart form carrying the
// text in field and any number of files, kept in upload order.
func (s *Server) readMessage(w http.ResponseWriter, r *http.Request, field string) (string, []domain.Attachment, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return "", nil, errors.New("invalid JSON body")
		}
		text, _ := body[field].(string)
		return text, nil, nil
	}

	mr, err := r.MultipartReader()
	if err != nil {
		return "", nil, errors.New("invalid multipart body")
	}

	var (
		message     string
		attachments []domain.Attachment
	)
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", nil, errors.New("invalid multipart body")
		}

		data, err := io.ReadAll(part)
		_ = part.Close()
		if err != nil {
			return "", nil, errors.New("invalid multipart body")
		}

		if part.FileName() == "" {
			if part.FormName() == field {
				message = string(data)
			}
			continue
		}
		attachments = append(attachments, domain.Attachment{
			Name:        part.FileName(),
			ContentType: part.Header.Get("Content-Type"),
			Size:        int64(len(data)),
			Data:        data,
		})
	}

	return message, attachments, nil
}
