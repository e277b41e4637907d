// Package aiproxy forwards legal-consultant prompts and document images to
// a hosted generative model.
package aiproxy

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/starford/lexdesk/internal/apperr"
)

// Default models.
const (
	DefaultChatModel   = "gemini-2.5-flash"
	DefaultVisionModel = "gemini-2.5-pro"
)

// ErrMissingKey is returned when no API key is configured.
var ErrMissingKey = errors.New("missing GEMINI_API_KEY")

// SystemInstruction frames every consultant conversation.
const SystemInstruction = `You are the legal assistant of a law office in the United Arab Emirates.
Give precise advice grounded in current UAE legislation.
Keep a formal, professional legal tone.
When drafting memoranda, follow the formats accepted by the Abu Dhabi Judicial Department and the Al Ain courts.
Answer in the language of the question.`

// Generator produces model text.
type Generator interface {
	// Consult answers a free-text legal question.
	Consult(ctx context.Context, prompt string) (string, error)
	// Analyze answers prompt about an inline image.
	Analyze(ctx context.Context, mimeType string, data []byte, prompt string) (string, error)
}

// Gemini is the Generator backed by the Gemini API.
type Gemini struct {
	client      *genai.Client
	chatModel   string
	visionModel string
}

// NewGemini creates a Gemini generator. It fails with ErrMissingKey when
// apiKey is empty.
func NewGemini(ctx context.Context, apiKey, chatModel, visionModel string) (*Gemini, error) {
	if apiKey == "" {
		return nil, ErrMissingKey
	}
	if chatModel == "" {
		chatModel = DefaultChatModel
	}
	if visionModel == "" {
		visionModel = DefaultVisionModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("aiproxy: create client: %w", err)
	}
	return &Gemini{client: client, chatModel: chatModel, visionModel: visionModel}, nil
}

// Consult sends prompt with the consultant system instruction.
func (g *Gemini) Consult(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.chatModel, genai.Text(prompt), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(SystemInstruction, genai.RoleUser),
	})
	if err != nil {
		return "", fmt.Errorf("aiproxy: consult: %w", err)
	}
	return resp.Text(), nil
}

// Analyze sends the image followed by prompt.
func (g *Gemini) Analyze(ctx context.Context, mimeType string, data []byte, prompt string) (string, error) {
	content := genai.NewContentFromParts([]*genai.Part{
		genai.NewPartFromBytes(data, mimeType),
		genai.NewPartFromText(prompt),
	}, genai.RoleUser)
	resp, err := g.client.Models.GenerateContent(ctx, g.visionModel, []*genai.Content{content}, nil)
	if err != nil {
		return "", fmt.Errorf("aiproxy: analyze: %w", err)
	}
	return resp.Text(), nil
}

// ParseDataURL splits data:<mime>;base64,<payload> into its mime type and
// decoded bytes. A bare base64 payload is accepted as image/png.
func ParseDataURL(s string) (string, []byte, error) {
	mime := "image/png"
	payload := s
	if strings.HasPrefix(s, "data:") {
		meta, rest, ok := strings.Cut(strings.TrimPrefix(s, "data:"), ",")
		if !ok {
			return "", nil, fmt.Errorf("aiproxy: malformed data url: %w", apperr.ErrValidation)
		}
		m, _, _ := strings.Cut(meta, ";")
		if m != "" {
			mime = m
		}
		payload = rest
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(payload))
	if err != nil {
		return "", nil, fmt.Errorf("aiproxy: decode image: %w: %v", apperr.ErrValidation, err)
	}
	if len(data) == 0 {
		return "", nil, fmt.Errorf("aiproxy: empty image: %w", apperr.ErrValidation)
	}
	return mime, data, nil
}
