package copywriter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"pinflow/internal/domain"
)

const openAIDefaultTimeout = 90 * time.Second

// OpenAIOptions configures the OpenAI-backed copy generator.
type OpenAIOptions struct {
	APIKey       string
	Model        string
	BaseURL      string
	Organization string
	HTTPClient   *http.Client
}

// OpenAIGenerator produces a Concept via the chat-completions API in JSON
// mode. The adapter performs exactly one outbound call per invocation; the
// pipeline owns any retry policy.
type OpenAIGenerator struct {
	apiKey       string
	model        string
	baseURL      string
	organization string
	client       *http.Client
}

type openAIChatRequest struct {
	Model          string          `json:"model"`
	Messages       []openAIMessage `json:"messages"`
	Temperature    float64         `json:"temperature,omitempty"`
	ResponseFormat *openAIFormat   `json:"response_format,omitempty"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIFormat struct {
	Type string `json:"type"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type conceptPayload struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

// NewOpenAIGenerator constructs the adapter with sane defaults.
func NewOpenAIGenerator(opts OpenAIOptions) (*OpenAIGenerator, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("copywriter: openai api key is required")
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = "gpt-4o-mini"
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: openAIDefaultTimeout}
	}
	return &OpenAIGenerator{
		apiKey:       strings.TrimSpace(opts.APIKey),
		model:        model,
		baseURL:      baseURL,
		organization: strings.TrimSpace(opts.Organization),
		client:       client,
	}, nil
}

// GenerateConcept maps the product fields into pin copy. It never returns a
// partially populated Concept: any failure yields a zero Concept plus a
// classified error.
func (g *OpenAIGenerator) GenerateConcept(ctx context.Context, product domain.ProductInput) (domain.Concept, error) {
	// Empty copy inputs degrade model output badly, so the remote call is
	// skipped outright.
	if strings.TrimSpace(product.Title) == "" || strings.TrimSpace(product.Description) == "" {
		return domain.Concept{}, domain.E(domain.KindInvalidInput, "product title and description are required for copy generation")
	}

	payload := openAIChatRequest{
		Model:       g.model,
		Temperature: 0.5,
		ResponseFormat: &openAIFormat{
			Type: "json_object",
		},
		Messages: []openAIMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: buildUserPrompt(product)},
		},
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return domain.Concept{}, domain.Wrap(domain.KindInternal, "failed to encode copy request", err)
	}
	endpoint := g.baseURL + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return domain.Concept{}, domain.Wrap(domain.KindInternal, "failed to build copy request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)
	if g.organization != "" {
		httpReq.Header.Set("OpenAI-Organization", g.organization)
	}

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return domain.Concept{}, domain.Wrap(domain.KindUpstreamUnavailable, "text-generation service unreachable", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 300 {
		return domain.Concept{}, classifyStatus(resp.StatusCode, "text-generation")
	}

	var out openAIChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return domain.Concept{}, domain.Wrap(domain.KindUpstreamMalformed, "text-generation response is not valid JSON", err)
	}
	if len(out.Choices) == 0 {
		return domain.Concept{}, domain.E(domain.KindUpstreamMalformed, "text-generation response contains no choices")
	}
	text := strings.TrimSpace(out.Choices[0].Message.Content)
	if text == "" {
		return domain.Concept{}, domain.E(domain.KindUpstreamMalformed, "text-generation response is empty")
	}
	parsed, err := parseModelPayload[conceptPayload](text)
	if err != nil {
		return domain.Concept{}, domain.Wrap(domain.KindUpstreamMalformed, "text-generation payload does not match the concept schema", err)
	}

	concept := domain.Concept{
		Title:       strings.TrimSpace(parsed.Title),
		Description: coalesce(parsed.Description, product.Description),
		Tags:        normalizeTags(parsed.Tags),
	}
	if concept.Title == "" {
		return domain.Concept{}, domain.E(domain.KindUpstreamMalformed, "text-generation payload is missing a title")
	}
	if len(concept.Tags) == 0 {
		return domain.Concept{}, domain.E(domain.KindUpstreamMalformed, "text-generation payload contains no usable tags")
	}
	return concept, nil
}

// classifyStatus maps an HTTP status onto the failure taxonomy: throttling
// and server-side errors are transient, everything else is a rejection.
func classifyStatus(status int, service string) *domain.Error {
	if status == http.StatusRequestTimeout || status == http.StatusTooManyRequests || status >= 500 {
		return domain.Ef(domain.KindUpstreamUnavailable, "%s service returned status %d", service, status)
	}
	return domain.Ef(domain.KindUpstreamRejected, "%s service rejected the request with status %d", service, status)
}

const systemPrompt = "You are a Pinterest SEO copywriter for affiliate marketing. " +
	"Respond strictly with JSON matching this schema: " +
	`{"title":string,"description":string,"tags":string[]}` +
	". The title must be keyword-rich and at most 70 characters. The description must be " +
	"two energetic, conversion-focused sentences. Provide 6 to 8 concise SEO tags."

func buildUserPrompt(product domain.ProductInput) string {
	sb := &strings.Builder{}
	fmt.Fprintf(sb, "Craft pin copy for this product. marketplace=%q, sku_or_link=%q, title=%q, description=%q",
		product.Marketplace, product.SKUOrLink, product.Title, product.Description)
	if angle := strings.TrimSpace(product.PromoAngle); angle != "" {
		fmt.Fprintf(sb, ", promotional_angle=%q", angle)
	}
	return sb.String()
}

var _ Generator = (*OpenAIGenerator)(nil)
