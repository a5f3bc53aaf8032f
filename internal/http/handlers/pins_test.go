package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"pinflow/internal/domain"
	"pinflow/internal/infra"
	"pinflow/internal/storage"
)

type stubRunner struct {
	got  domain.ProductInput
	next func(in domain.ProductInput) *domain.PipelineRun
}

func (s *stubRunner) Run(ctx context.Context, in domain.ProductInput) *domain.PipelineRun {
	s.got = in
	return s.next(in)
}

func publishedRun(in domain.ProductInput) *domain.PipelineRun {
	run := domain.NewPipelineRun(in)
	run.MarkValidated()
	run.SetConcept(domain.Concept{
		Title:       "Ergo Wireless Mouse Deal",
		Description: "Work comfier. Shop now.",
		Tags:        []string{"office", "mouse"},
	})
	run.SetEdited(domain.EditedImage{Data: []byte{0xFF, 0xD8, 0xFF}, ContentType: "image/jpeg", Width: 1000, Height: 1500})
	run.SetPublished(domain.PublishResult{PinID: "8123", PinURL: "https://www.pinterest.com/pin/8123/"})
	return run
}

func failedRun(stage domain.Stage, kind domain.Kind) func(in domain.ProductInput) *domain.PipelineRun {
	return func(in domain.ProductInput) *domain.PipelineRun {
		run := domain.NewPipelineRun(in)
		run.Fail(stage, domain.E(kind, "stage failed"))
		return run
	}
}

func newTestApp(t *testing.T, runner Runner) *App {
	t.Helper()
	media, err := storage.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore returned error: %v", err)
	}
	return NewApp(runner, media, infra.Logger(zerolog.New(io.Discard)), 20<<20)
}

// jpeg magic bytes so content-type sniffing sees a real image.
var jpegUpload = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 0x4A, 0x46, 0x49, 0x46}

func pinForm(t *testing.T, fields map[string]string, upload []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field %q: %v", k, err)
		}
	}
	if upload != nil {
		fw, err := mw.CreateFormFile("product_image", "product.jpg")
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := fw.Write(upload); err != nil {
			t.Fatalf("write form file: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close form: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func defaultFields() map[string]string {
	return map[string]string{
		"marketplace":    "AMAZON",
		"sku_or_link":    "B000X",
		"title":          "Wireless Mouse",
		"description":    "Ergonomic wireless mouse",
		"affiliate_link": "https://aff.example/x",
		"promo_angle":    "Summer Sale",
	}
}

func TestCreatePinSuccess(t *testing.T) {
	dir := t.TempDir()
	media, err := storage.NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore returned error: %v", err)
	}
	runner := &stubRunner{next: publishedRun}
	app := NewApp(runner, media, infra.Logger(zerolog.New(io.Discard)), 20<<20)

	body, contentType := pinForm(t, defaultFields(), jpegUpload)
	req := httptest.NewRequest(http.MethodPost, "/v1/pins", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	app.CreatePin(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d (body: %s)", rec.Code, http.StatusCreated, rec.Body)
	}
	var resp pinResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != string(domain.StatusPublished) || resp.PinID != "8123" {
		t.Fatalf("response = %+v", resp)
	}
	if resp.Title == "" || len(resp.Tags) == 0 {
		t.Fatalf("pin copy missing from response: %+v", resp)
	}

	// The form marketplace is canonicalized before the run starts.
	if runner.got.Marketplace != domain.MarketplaceAmazon {
		t.Fatalf("marketplace = %q, want %q", runner.got.Marketplace, domain.MarketplaceAmazon)
	}
	if runner.got.Image.ContentType != "image/jpeg" {
		t.Fatalf("sniffed content type = %q", runner.got.Image.ContentType)
	}

	// Both the original and the edited image are archived.
	if resp.OriginalKey == "" || resp.EditedKey == "" {
		t.Fatalf("media keys missing: %+v", resp)
	}
	for _, key := range []string{resp.OriginalKey, resp.EditedKey} {
		if _, err := os.Stat(filepath.Join(dir, filepath.FromSlash(key))); err != nil {
			t.Fatalf("archived media %q not on disk: %v", key, err)
		}
	}
}

func TestCreatePinMissingUpload(t *testing.T) {
	app := newTestApp(t, &stubRunner{next: publishedRun})

	body, contentType := pinForm(t, defaultFields(), nil)
	req := httptest.NewRequest(http.MethodPost, "/v1/pins", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	app.CreatePin(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestCreatePinUnknownMarketplacePassedThrough(t *testing.T) {
	runner := &stubRunner{next: failedRun(domain.StageValidate, domain.KindInvalidInput)}
	app := newTestApp(t, runner)

	fields := defaultFields()
	fields["marketplace"] = "wish"
	body, contentType := pinForm(t, fields, jpegUpload)
	req := httptest.NewRequest(http.MethodPost, "/v1/pins", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	app.CreatePin(rec, req)

	// The raw value reaches the pipeline so the failure is attributed there.
	if runner.got.Marketplace != domain.Marketplace("wish") {
		t.Fatalf("marketplace = %q, want raw passthrough", runner.got.Marketplace)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestCreatePinMapsFailureKinds(t *testing.T) {
	cases := []struct {
		name  string
		stage domain.Stage
		kind  domain.Kind
		want  int
	}{
		{"invalid input", domain.StageValidate, domain.KindInvalidInput, http.StatusBadRequest},
		{"payload too large", domain.StageEdit, domain.KindPayloadTooLarge, http.StatusRequestEntityTooLarge},
		{"upstream unavailable", domain.StageCopy, domain.KindUpstreamUnavailable, http.StatusGatewayTimeout},
		{"upstream rejected", domain.StagePublish, domain.KindUpstreamRejected, http.StatusBadGateway},
		{"malformed response", domain.StageEdit, domain.KindUpstreamMalformed, http.StatusBadGateway},
		{"internal", domain.StageCopy, domain.KindInternal, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := newTestApp(t, &stubRunner{next: failedRun(tc.stage, tc.kind)})

			body, contentType := pinForm(t, defaultFields(), jpegUpload)
			req := httptest.NewRequest(http.MethodPost, "/v1/pins", body)
			req.Header.Set("Content-Type", contentType)
			rec := httptest.NewRecorder()

			app.CreatePin(rec, req)

			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d", rec.Code, tc.want)
			}
			var resp pinResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if resp.Stage != string(tc.stage) || resp.Kind != string(tc.kind) {
				t.Fatalf("failure attribution = %s/%s, want %s/%s", resp.Stage, resp.Kind, tc.stage, tc.kind)
			}
		})
	}
}
