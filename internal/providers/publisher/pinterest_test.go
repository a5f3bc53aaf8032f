package publisher

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"unicode/utf8"

	"pinflow/internal/domain"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}
}

func newTestPublisher(t *testing.T, rt roundTripFunc) *PinterestPublisher {
	t.Helper()
	p, err := NewPinterestPublisher(PinterestOptions{
		AccessToken: "dummy",
		HTTPClient:  &http.Client{Transport: rt},
	})
	if err != nil {
		t.Fatalf("NewPinterestPublisher returned error: %v", err)
	}
	return p
}

func testEditedImage() domain.EditedImage {
	return domain.EditedImage{
		Data:        []byte{0xFF, 0xD8, 0xFF, 0xE0},
		ContentType: "image/jpeg",
		Width:       1000,
		Height:      1500,
	}
}

func testConcept() domain.Concept {
	return domain.Concept{
		Title:       "Ergo Wireless Mouse Deal",
		Description: "Work comfier. Shop now.",
		Tags:        []string{"office", "mouse", "desk setup"},
	}
}

func TestPublishCreatesPin(t *testing.T) {
	image := testEditedImage()
	var calls int
	p := newTestPublisher(t, func(r *http.Request) (*http.Response, error) {
		calls++
		if got := r.Header.Get("Authorization"); got != "Bearer dummy" {
			t.Fatalf("Authorization = %q", got)
		}
		if !strings.HasSuffix(r.URL.Path, "/pins") {
			t.Fatalf("path = %q, want /pins", r.URL.Path)
		}
		var req createPinRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.BoardID != "board-1" {
			t.Fatalf("board_id = %q", req.BoardID)
		}
		if req.Link != "https://aff.example/x" {
			t.Fatalf("link = %q", req.Link)
		}
		if req.MediaSource.SourceType != "image_base64" {
			t.Fatalf("source_type = %q", req.MediaSource.SourceType)
		}
		decoded, err := base64.StdEncoding.DecodeString(req.MediaSource.Data)
		if err != nil || len(decoded) != len(image.Data) {
			t.Fatalf("media data does not round-trip: %v", err)
		}
		return jsonResponse(http.StatusCreated, `{"id":"8123","url":""}`), nil
	})

	got, err := p.Publish(context.Background(), image, testConcept(), "https://aff.example/x", "board-1")
	if err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
	if got.PinID != "8123" {
		t.Fatalf("PinID = %q", got.PinID)
	}
	if got.PinURL != "https://www.pinterest.com/pin/8123/" {
		t.Fatalf("PinURL = %q", got.PinURL)
	}
}

func TestPublishCapsCopyFields(t *testing.T) {
	concept := domain.Concept{
		Title:       strings.Repeat("t", 300),
		Description: strings.Repeat("d", 900),
		Tags:        []string{strings.Repeat("g", 400)},
	}
	p := newTestPublisher(t, func(r *http.Request) (*http.Response, error) {
		var req createPinRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if n := utf8.RuneCountInString(req.Title); n != titleMaxChars {
			t.Fatalf("title length = %d, want %d", n, titleMaxChars)
		}
		if n := utf8.RuneCountInString(req.Description); n != descriptionMaxChars {
			t.Fatalf("description length = %d, want %d", n, descriptionMaxChars)
		}
		if n := utf8.RuneCountInString(req.Note); n != noteMaxChars {
			t.Fatalf("note length = %d, want %d", n, noteMaxChars)
		}
		return jsonResponse(http.StatusCreated, `{"id":"8123"}`), nil
	})

	if _, err := p.Publish(context.Background(), testEditedImage(), concept, "https://aff.example/x", "board-1"); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
}

func TestPublishRejectsBadInputsLocally(t *testing.T) {
	cases := []struct {
		name string
		call func(p *PinterestPublisher) error
	}{
		{
			"missing board",
			func(p *PinterestPublisher) error {
				_, err := p.Publish(context.Background(), testEditedImage(), testConcept(), "https://aff.example/x", " ")
				return err
			},
		},
		{
			"empty image",
			func(p *PinterestPublisher) error {
				_, err := p.Publish(context.Background(), domain.EditedImage{ContentType: "image/jpeg"}, testConcept(), "https://aff.example/x", "board-1")
				return err
			},
		},
		{
			"unsupported media type",
			func(p *PinterestPublisher) error {
				img := testEditedImage()
				img.ContentType = "image/webp"
				_, err := p.Publish(context.Background(), img, testConcept(), "https://aff.example/x", "board-1")
				return err
			},
		},
		{
			"malformed affiliate link",
			func(p *PinterestPublisher) error {
				_, err := p.Publish(context.Background(), testEditedImage(), testConcept(), "not a url", "board-1")
				return err
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var calls int
			p := newTestPublisher(t, func(r *http.Request) (*http.Response, error) {
				calls++
				return jsonResponse(http.StatusCreated, `{"id":"8123"}`), nil
			})
			err := tc.call(p)
			if err == nil {
				t.Fatal("expected error")
			}
			if got := domain.KindOf(err); got != domain.KindInvalidInput {
				t.Fatalf("Kind = %q, want %q", got, domain.KindInvalidInput)
			}
			if calls != 0 {
				t.Fatalf("calls = %d, want 0", calls)
			}
		})
	}
}

func TestPublishClassifiesFailures(t *testing.T) {
	cases := []struct {
		name string
		rt   roundTripFunc
		want domain.Kind
	}{
		{
			"network error",
			func(r *http.Request) (*http.Response, error) { return nil, errors.New("connection reset") },
			domain.KindUpstreamUnavailable,
		},
		{
			"server error",
			func(r *http.Request) (*http.Response, error) {
				return jsonResponse(http.StatusServiceUnavailable, "{}"), nil
			},
			domain.KindUpstreamUnavailable,
		},
		{
			"expired token",
			func(r *http.Request) (*http.Response, error) { return jsonResponse(http.StatusUnauthorized, "{}"), nil },
			domain.KindUpstreamRejected,
		},
		{
			"missing pin id",
			func(r *http.Request) (*http.Response, error) { return jsonResponse(http.StatusCreated, `{"url":"u"}`), nil },
			domain.KindUpstreamMalformed,
		},
		{
			"invalid json body",
			func(r *http.Request) (*http.Response, error) { return jsonResponse(http.StatusCreated, "<html>"), nil },
			domain.KindUpstreamMalformed,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := newTestPublisher(t, tc.rt)
			_, err := p.Publish(context.Background(), testEditedImage(), testConcept(), "https://aff.example/x", "board-1")
			if err == nil {
				t.Fatal("expected error")
			}
			if got := domain.KindOf(err); got != tc.want {
				t.Fatalf("Kind = %q, want %q", got, tc.want)
			}
		})
	}
}
