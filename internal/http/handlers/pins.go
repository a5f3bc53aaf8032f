package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"pinflow/internal/domain"
)

var (
	errUploadMissing    = errors.New("a product_image upload is required")
	errUploadUnreadable = errors.New("the uploaded image could not be read")
)

// multipartMemoryLimit keeps small forms in memory; the image part spills to
// a temp file above this.
const multipartMemoryLimit = 8 << 20

type pinResponse struct {
	RunID  string `json:"run_id"`
	Status string `json:"status"`

	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	PinID       string   `json:"pin_id,omitempty"`
	PinURL      string   `json:"pin_url,omitempty"`

	OriginalKey string `json:"original_media_key,omitempty"`
	EditedKey   string `json:"edited_media_key,omitempty"`

	Stage   string `json:"stage,omitempty"`
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message,omitempty"`
}

// CreatePin accepts the operator form (product fields + one image) and runs
// the full pipeline synchronously, rendering either the published pin or the
// stage-attributed failure.
func (a *App) CreatePin(w http.ResponseWriter, r *http.Request) {
	if a.MaxUploadBytes > 0 {
		// Slack for the non-file fields on top of the image cap.
		r.Body = http.MaxBytesReader(w, r.Body, a.MaxUploadBytes+1<<20)
	}
	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "expected a multipart form with a product_image file")
		return
	}

	image, err := a.readUpload(r)
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	in := domain.ProductInput{
		Marketplace:   domain.Marketplace(strings.TrimSpace(r.FormValue("marketplace"))),
		SKUOrLink:     strings.TrimSpace(r.FormValue("sku_or_link")),
		Image:         image,
		Title:         strings.TrimSpace(r.FormValue("title")),
		Description:   strings.TrimSpace(r.FormValue("description")),
		AffiliateLink: strings.TrimSpace(r.FormValue("affiliate_link")),
		PromoAngle:    strings.TrimSpace(r.FormValue("promo_angle")),
	}
	if m, perr := domain.ParseMarketplace(string(in.Marketplace)); perr == nil {
		in.Marketplace = m
	}

	run := a.Pipeline.Run(r.Context(), in)

	resp := pinResponse{RunID: run.ID, Status: string(run.Status)}
	a.archiveMedia(r, run, &resp)

	if run.Status == domain.StatusPublished {
		resp.Title = run.Concept.Title
		resp.Description = run.Concept.Description
		resp.Tags = run.Concept.Tags
		resp.PinID = run.Publish.PinID
		resp.PinURL = run.Publish.PinURL
		a.json(w, http.StatusCreated, resp)
		return
	}

	resp.Stage = string(run.Failure.Stage)
	resp.Kind = string(run.Failure.Kind)
	resp.Message = run.Failure.Message
	a.json(w, statusForKind(run.Failure.Kind), resp)
}

// readUpload pulls the image part out of the form and sniffs its real content
// type rather than trusting the declared one.
func (a *App) readUpload(r *http.Request) (domain.UploadedImage, error) {
	file, _, err := r.FormFile("product_image")
	if err != nil {
		return domain.UploadedImage{}, errUploadMissing
	}
	defer func() {
		_ = file.Close()
	}()
	data, err := io.ReadAll(file)
	if err != nil {
		return domain.UploadedImage{}, errUploadUnreadable
	}
	contentType := ""
	if len(data) > 0 {
		contentType = http.DetectContentType(data)
	}
	return domain.UploadedImage{Data: data, ContentType: contentType}, nil
}

// archiveMedia writes the original and edited bytes into the media store,
// best effort; an archive failure never changes the run outcome.
func (a *App) archiveMedia(r *http.Request, run *domain.PipelineRun, resp *pinResponse) {
	if a.Media == nil {
		return
	}
	if len(run.Input.Image.Data) > 0 {
		key := "originals/" + run.ID + extensionFor(run.Input.Image.ContentType)
		if stored, err := a.Media.Write(r.Context(), key, run.Input.Image.Data); err == nil {
			resp.OriginalKey = stored
		} else {
			a.Logger.Warn().Err(err).Str("run_id", run.ID).Msg("handlers: failed to archive original image")
		}
	}
	if run.Edited != nil {
		key := "generated/" + run.ID + extensionFor(run.Edited.ContentType)
		if stored, err := a.Media.Write(r.Context(), key, run.Edited.Data); err == nil {
			resp.EditedKey = stored
		} else {
			a.Logger.Warn().Err(err).Str("run_id", run.ID).Msg("handlers: failed to archive edited image")
		}
	}
}

func extensionFor(contentType string) string {
	switch strings.ToLower(contentType) {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".bin"
	}
}

func statusForKind(kind domain.Kind) int {
	switch kind {
	case domain.KindInvalidInput:
		return http.StatusBadRequest
	case domain.KindPayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case domain.KindUpstreamUnavailable:
		return http.StatusGatewayTimeout
	case domain.KindUpstreamRejected, domain.KindUpstreamMalformed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
