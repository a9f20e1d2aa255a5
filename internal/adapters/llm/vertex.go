package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/PabloGalante/assistant-chat/internal/domain"
)

const DefaultVertexModel = "gemini-2.5-flash"

type VertexConfig struct {
	ProjectID string
	Location  string
	Model     string
}

type VertexClient struct {
	client    *genai.Client
	modelName string
}

var _ domain.CompletionClient = (*VertexClient)(nil)

// NewVertexClient creates a completion backend on Vertex AI (Gemini).
func NewVertexClient(ctx context.Context, cfg VertexConfig) (*VertexClient, error) {
	if cfg.ProjectID == "" || cfg.Location == "" {
		return nil, fmt.Errorf("vertex: project id and location must be set")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultVertexModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Project:  cfg.ProjectID,
		Location: cfg.Location,
		Backend:  genai.BackendVertexAI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating Vertex AI client: %w", err)
	}

	return &VertexClient{
		client:    client,
		modelName: cfg.Model,
	}, nil
}

// Complete implements domain.CompletionClient.
func (v *VertexClient) Complete(ctx context.Context, req domain.CompletionRequest) (string, error) {
	contents := vertexContents(req)

	temp := float32(defaultTemperature)
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(SystemPrompt, genai.RoleUser),
		Temperature:       &temp,
		MaxOutputTokens:   int32(defaultMaxTokens),
	}

	res, err := v.client.Models.GenerateContent(ctx, v.modelName, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("vertex generate content: %w", err)
	}

	text := res.Text()
	if text == "" {
		return emptyReply, nil
	}
	return text, nil
}

func vertexContents(req domain.CompletionRequest) []*genai.Content {
	contents := make([]*genai.Content, 0, len(req.History)+1)
	for _, m := range req.History {
		role := genai.RoleModel
		if m.IsUser() {
			role = genai.RoleUser
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}
	return append(contents, genai.NewContentFromText(UserContent(req), genai.RoleUser))
}
