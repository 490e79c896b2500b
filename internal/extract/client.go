package extract

import (
	"context"
	"encoding/base64"
	"errors"
	"net"
	"os"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const systemPrompt = "You are a medical records assistant extracting structured values " +
	"from laboratory report documents. Respond with strict JSON only."

// FailureClass buckets transport failures for logging; a failed sub-batch
// is never retried within a run, the next scheduled run re-scans it.
type FailureClass int

const (
	FailureNone FailureClass = iota
	FailureTimeout
	FailureRateLimit
	FailureServer
	FailureClient
)

func (c FailureClass) String() string {
	switch c {
	case FailureTimeout:
		return "timeout"
	case FailureRateLimit:
		return "rate_limit"
	case FailureServer:
		return "server"
	case FailureClient:
		return "client"
	default:
		return "none"
	}
}

// LLMCaller is the seam between the extractor and the model API.
type LLMCaller interface {
	GenerateJSON(ctx context.Context, prompt string, docs []Document) (string, error)
}

// AnthropicMessager matches the slice of the Anthropic client we use, so
// tests can substitute a fake.
type AnthropicMessager interface {
	New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

// AnthropicCaller sends extraction batches to the Anthropic messages API.
type AnthropicCaller struct {
	messages AnthropicMessager
	model    anthropic.Model
}

// NewAnthropicCallerFromEnv builds a caller from ANTHROPIC_API_KEY.
func NewAnthropicCallerFromEnv(model string) (*AnthropicCaller, error) {
	apiKey := strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY"))
	if apiKey == "" {
		return nil, errors.New("ANTHROPIC_API_KEY not configured")
	}
	c := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &AnthropicCaller{messages: &c.Messages, model: anthropic.Model(model)}, nil
}

// NewAnthropicCallerWithMessager is the test constructor.
func NewAnthropicCallerWithMessager(m AnthropicMessager, model string) *AnthropicCaller {
	return &AnthropicCaller{messages: m, model: anthropic.Model(model)}
}

func (a *AnthropicCaller) GenerateJSON(ctx context.Context, prompt string, docs []Document) (string, error) {
	blocks := make([]anthropic.ContentBlockParamUnion, 0, len(docs)+1)
	for _, doc := range docs {
		data := base64.StdEncoding.EncodeToString(doc.Data)
		if strings.HasPrefix(doc.MediaType, "image/") {
			blocks = append(blocks, anthropic.NewImageBlockBase64(doc.MediaType, data))
			continue
		}
		blocks = append(blocks, anthropic.NewDocumentBlock(anthropic.Base64PDFSourceParam{Data: data}))
	}
	blocks = append(blocks, anthropic.NewTextBlock(prompt))

	resp, err := a.messages.New(ctx, anthropic.MessageNewParams{
		Model:       a.model,
		MaxTokens:   8192,
		System:      []anthropic.TextBlockParam{{Text: systemPrompt}},
		Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(blocks...)},
		Temperature: anthropic.Float(0),
	})
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, b := range resp.Content {
		if b.Type == "text" {
			sb.WriteString(b.Text)
		}
	}
	return sb.String(), nil
}

// ClassifyTransportError buckets an API error for logging.
func ClassifyTransportError(err error) FailureClass {
	if err == nil {
		return FailureNone
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return FailureTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return FailureTimeout
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "429"):
		return FailureRateLimit
	case strings.Contains(msg, "status code: 5") || strings.Contains(msg, "server error"):
		return FailureServer
	case strings.Contains(msg, "status code: 4"):
		return FailureClient
	default:
		return FailureServer
	}
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		parts := strings.SplitN(s, "\n", 2)
		if len(parts) == 2 {
			s = parts[1]
		}
		s = strings.TrimPrefix(s, "json")
		s = strings.TrimSpace(strings.TrimSuffix(s, "```"))
	}
	return s
}
