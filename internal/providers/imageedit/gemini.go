// Package imageedit wraps the image-editing service that transforms the
// uploaded product photo according to an instruction derived from the
// generated concept.
package imageedit

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"pinflow/internal/domain"
	"pinflow/internal/infra"
)

// Editor is the contract the pipeline depends on for the edit stage.
type Editor interface {
	EditImage(ctx context.Context, image domain.UploadedImage, instruction string) (domain.EditedImage, error)
}

const geminiDefaultTimeout = 120 * time.Second

// GeminiOptions configures the Gemini-backed image editor.
type GeminiOptions struct {
	APIKey        string
	Model         string
	BaseURL       string
	HTTPClient    *http.Client
	Logger        *infra.Logger
	MaxImageBytes int64
}

// GeminiEditor performs a single generateContent call with the source image
// inlined next to the instruction and expects an image part back.
type GeminiEditor struct {
	apiKey        string
	model         string
	baseURL       string
	client        *http.Client
	logger        *infra.Logger
	maxImageBytes int64
}

type geminiRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiInlineData struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

type geminiGenerationConfig struct {
	ResponseModalities []string `json:"responseModalities,omitempty"`
	CandidateCount     int      `json:"candidateCount,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

// NewGeminiEditor constructs the adapter with sane defaults.
func NewGeminiEditor(opts GeminiOptions) (*GeminiEditor, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("imageedit: gemini api key is required")
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = "gemini-2.5-flash-image"
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: geminiDefaultTimeout}
	}
	logger := opts.Logger
	if logger == nil {
		discard := infra.Logger(zerolog.New(io.Discard))
		logger = &discard
	}
	return &GeminiEditor{
		apiKey:        strings.TrimSpace(opts.APIKey),
		model:         model,
		baseURL:       baseURL,
		client:        client,
		logger:        logger,
		maxImageBytes: opts.MaxImageBytes,
	}, nil
}

// EditImage transforms the source image per the instruction and returns the
// edited bytes normalized to the pin canvas. Failures are atomic: no partial
// EditedImage is ever returned.
func (g *GeminiEditor) EditImage(ctx context.Context, image domain.UploadedImage, instruction string) (domain.EditedImage, error) {
	if len(image.Data) == 0 {
		return domain.EditedImage{}, domain.E(domain.KindInvalidInput, "source image must not be empty")
	}
	// Checked locally to save the round trip the remote service would reject.
	if g.maxImageBytes > 0 && int64(len(image.Data)) > g.maxImageBytes {
		return domain.EditedImage{}, domain.Ef(domain.KindPayloadTooLarge,
			"source image is %d bytes, the editing service accepts at most %d", len(image.Data), g.maxImageBytes)
	}
	instruction = strings.TrimSpace(instruction)
	if instruction == "" {
		return domain.EditedImage{}, domain.E(domain.KindInvalidInput, "edit instruction must not be empty")
	}

	payload := geminiRequest{
		Contents: []geminiContent{{
			Role: "user",
			Parts: []geminiPart{
				{Text: instruction},
				{InlineData: &geminiInlineData{
					MIMEType: image.ContentType,
					Data:     base64.StdEncoding.EncodeToString(image.Data),
				}},
			},
		}},
		GenerationConfig: &geminiGenerationConfig{
			ResponseModalities: []string{"IMAGE"},
			CandidateCount:     1,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return domain.EditedImage{}, domain.Wrap(domain.KindInternal, "failed to encode edit request", err)
	}
	endpoint := g.baseURL + "/models/" + url.PathEscape(g.model) + ":generateContent"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return domain.EditedImage{}, domain.Wrap(domain.KindInternal, "failed to build edit request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return domain.EditedImage{}, domain.Wrap(domain.KindUpstreamUnavailable, "image-editing service unreachable", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 300 {
		if resp.StatusCode == http.StatusRequestTimeout || resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return domain.EditedImage{}, domain.Ef(domain.KindUpstreamUnavailable, "image-editing service returned status %d", resp.StatusCode)
		}
		return domain.EditedImage{}, domain.Ef(domain.KindUpstreamRejected, "image-editing service rejected the request with status %d", resp.StatusCode)
	}

	var decoded geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return domain.EditedImage{}, domain.Wrap(domain.KindUpstreamMalformed, "image-editing response is not valid JSON", err)
	}
	data, err := firstImageBytes(decoded)
	if err != nil {
		return domain.EditedImage{}, err
	}

	edited, err := fitToCanvas(data)
	if err != nil {
		return domain.EditedImage{}, err
	}
	g.logger.Debug().
		Str("model", g.model).
		Int("source_bytes", len(image.Data)).
		Int("edited_bytes", len(edited.Data)).
		Msg("imageedit: edited image ready")
	return edited, nil
}

// firstImageBytes extracts the first non-empty inline image from the response.
func firstImageBytes(resp geminiResponse) ([]byte, error) {
	for _, cand := range resp.Candidates {
		for _, part := range cand.Content.Parts {
			if part.InlineData == nil || part.InlineData.Data == "" {
				continue
			}
			data, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
			if err != nil {
				return nil, domain.Wrap(domain.KindUpstreamMalformed, "image-editing response carries undecodable image data", err)
			}
			if len(data) > 0 {
				return data, nil
			}
		}
	}
	return nil, domain.E(domain.KindUpstreamMalformed, "image-editing response contains no image")
}

var _ Editor = (*GeminiEditor)(nil)
