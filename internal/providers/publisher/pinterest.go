// Package publisher wraps the social-publishing service that turns an edited
// image plus pin copy into a durable, publicly visible pin.
package publisher

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"pinflow/internal/domain"
	"pinflow/internal/infra"
)

// Publisher is the contract the pipeline depends on for the publish stage.
// Publishing creates an irreversible remote artifact, so callers must never
// retry it blindly.
type Publisher interface {
	Publish(ctx context.Context, image domain.EditedImage, concept domain.Concept, affiliateLink, boardID string) (domain.PublishResult, error)
}

const pinterestDefaultTimeout = 30 * time.Second

// Field caps enforced by the pin API.
const (
	titleMaxChars       = 100
	descriptionMaxChars = 500
	noteMaxChars        = 250
)

// acceptedContentTypes lists the image formats the pin API takes as base64
// media.
var acceptedContentTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

// PinterestOptions configures the Pinterest-backed publisher.
type PinterestOptions struct {
	AccessToken string
	BaseURL     string
	HTTPClient  *http.Client
	Logger      *infra.Logger
}

// PinterestPublisher creates pins through the v5 API.
type PinterestPublisher struct {
	accessToken string
	baseURL     string
	client      *http.Client
	logger      *infra.Logger
}

type mediaSource struct {
	SourceType  string `json:"source_type"`
	ContentType string `json:"content_type"`
	Data        string `json:"data"`
}

type createPinRequest struct {
	BoardID     string      `json:"board_id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Link        string      `json:"link"`
	AltText     string      `json:"alt_text"`
	Note        string      `json:"note,omitempty"`
	MediaSource mediaSource `json:"media_source"`
}

type createPinResponse struct {
	ID   string `json:"id"`
	Link string `json:"link"`
	URL  string `json:"url"`
}

// NewPinterestPublisher constructs the adapter with sane defaults.
func NewPinterestPublisher(opts PinterestOptions) (*PinterestPublisher, error) {
	if strings.TrimSpace(opts.AccessToken) == "" {
		return nil, errors.New("publisher: pinterest access token is required")
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.pinterest.com/v5"
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: pinterestDefaultTimeout}
	}
	logger := opts.Logger
	if logger == nil {
		discard := infra.Logger(zerolog.New(io.Discard))
		logger = &discard
	}
	return &PinterestPublisher{
		accessToken: strings.TrimSpace(opts.AccessToken),
		baseURL:     baseURL,
		client:      client,
		logger:      logger,
	}, nil
}

// Publish creates one pin on the given board. Malformed local inputs are
// rejected before any remote call; once the request is sent the outcome is
// final either way.
func (p *PinterestPublisher) Publish(ctx context.Context, image domain.EditedImage, concept domain.Concept, affiliateLink, boardID string) (domain.PublishResult, error) {
	if strings.TrimSpace(boardID) == "" {
		return domain.PublishResult{}, domain.E(domain.KindInvalidInput, "target board id is required")
	}
	if len(image.Data) == 0 {
		return domain.PublishResult{}, domain.E(domain.KindInvalidInput, "edited image must not be empty")
	}
	if !acceptedContentTypes[strings.ToLower(image.ContentType)] {
		return domain.PublishResult{}, domain.Ef(domain.KindInvalidInput, "pin media must be jpeg or png, got %q", image.ContentType)
	}
	if err := domain.ValidateAffiliateLink(affiliateLink); err != nil {
		return domain.PublishResult{}, err
	}

	payload := createPinRequest{
		BoardID:     boardID,
		Title:       truncateRunes(concept.Title, titleMaxChars),
		Description: truncateRunes(concept.Description, descriptionMaxChars),
		Link:        strings.TrimSpace(affiliateLink),
		AltText:     truncateRunes(concept.Description, descriptionMaxChars),
		Note:        truncateRunes(strings.Join(concept.Tags, ", "), noteMaxChars),
		MediaSource: mediaSource{
			SourceType:  "image_base64",
			ContentType: image.ContentType,
			Data:        base64.StdEncoding.EncodeToString(image.Data),
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return domain.PublishResult{}, domain.Wrap(domain.KindInternal, "failed to encode pin request", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/pins", bytes.NewReader(body))
	if err != nil {
		return domain.PublishResult{}, domain.Wrap(domain.KindInternal, "failed to build pin request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.accessToken)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return domain.PublishResult{}, domain.Wrap(domain.KindUpstreamUnavailable, "publishing service unreachable", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 300 {
		if resp.StatusCode == http.StatusRequestTimeout || resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return domain.PublishResult{}, domain.Ef(domain.KindUpstreamUnavailable, "publishing service returned status %d", resp.StatusCode)
		}
		return domain.PublishResult{}, domain.Ef(domain.KindUpstreamRejected, "publishing service rejected the pin with status %d", resp.StatusCode)
	}

	var decoded createPinResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return domain.PublishResult{}, domain.Wrap(domain.KindUpstreamMalformed, "publishing response is not valid JSON", err)
	}
	pinID := strings.TrimSpace(decoded.ID)
	if pinID == "" {
		return domain.PublishResult{}, domain.E(domain.KindUpstreamMalformed, "publishing response is missing the pin id")
	}
	pinURL := strings.TrimSpace(decoded.URL)
	if pinURL == "" {
		// The create response does not always echo a public URL; the pin id
		// determines the canonical one.
		pinURL = "https://www.pinterest.com/pin/" + pinID + "/"
	}
	p.logger.Info().
		Str("pin_id", pinID).
		Str("board_id", boardID).
		Msg("publisher: pin created")
	return domain.PublishResult{PinID: pinID, PinURL: pinURL}, nil
}

func truncateRunes(s string, max int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

var _ Publisher = (*PinterestPublisher)(nil)
