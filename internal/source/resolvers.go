package source

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"PosterIntake/internal/domain"
	"PosterIntake/internal/ports"
	"PosterIntake/internal/urlguard"
)

// DefaultMaxImageBytes bounds decoded inline uploads.
const DefaultMaxImageBytes = 10 << 20

var imageExtensions = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
	"image/gif":  "gif",
}

// Base64Resolver decodes inline image data. Accepts bare base64 or a data: URI.
type Base64Resolver struct {
	MaxBytes int
}

var _ Resolver = (*Base64Resolver)(nil)

func (r *Base64Resolver) Kind() Kind { return KindImageBase64 }

func (r *Base64Resolver) Resolve(_ context.Context, req Request) (Resolved, error) {
	payload := req.Value
	if strings.HasPrefix(payload, "data:") {
		comma := strings.IndexByte(payload, ',')
		if comma < 0 || !strings.Contains(payload[:comma], ";base64") {
			return Resolved{}, fmt.Errorf("malformed data uri: %w", domain.ErrInvalidInput)
		}
		payload = payload[comma+1:]
	}

	body, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		body, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
	}
	if err != nil {
		return Resolved{}, fmt.Errorf("decode image: %w", domain.ErrInvalidInput)
	}

	limit := r.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxImageBytes
	}
	if len(body) == 0 || len(body) > limit {
		return Resolved{}, fmt.Errorf("image size %d outside 1..%d bytes: %w", len(body), limit, domain.ErrInvalidInput)
	}

	contentType := http.DetectContentType(body)
	ext, ok := imageExtensions[contentType]
	if !ok {
		return Resolved{}, fmt.Errorf("unsupported image type %s: %w", contentType, domain.ErrInvalidInput)
	}

	return Resolved{
		Content: domain.PosterContent{
			ImageURL: "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(body),
		},
		Upload: &Upload{Body: body, ContentType: contentType, Extension: ext},
	}, nil
}

// ImageURLResolver passes a validated remote image URL to the model.
type ImageURLResolver struct{}

var _ Resolver = ImageURLResolver{}

func (ImageURLResolver) Kind() Kind { return KindImageURL }

func (ImageURLResolver) Resolve(_ context.Context, req Request) (Resolved, error) {
	u, err := urlguard.Validate(req.Value)
	if err != nil {
		return Resolved{}, err
	}
	return Resolved{Content: domain.PosterContent{ImageURL: u.String()}}, nil
}

// PageResolver fetches an event page and hands its readable text to the model.
type PageResolver struct {
	Fetcher ports.PageFetcher
}

var _ Resolver = (*PageResolver)(nil)

func (r *PageResolver) Kind() Kind { return KindPageURL }

func (r *PageResolver) Resolve(ctx context.Context, req Request) (Resolved, error) {
	u, err := urlguard.Validate(req.Value)
	if err != nil {
		return Resolved{}, err
	}
	if r.Fetcher == nil {
		return Resolved{}, domain.ErrPageFetchNotConfigured
	}

	text, err := r.Fetcher.FetchText(ctx, u)
	if err != nil {
		if errors.Is(err, domain.ErrForbiddenHost) {
			return Resolved{}, fmt.Errorf("fetch page: %w", err)
		}
		return Resolved{}, fmt.Errorf("failed to fetch event page (%v): %w", err, domain.ErrInvalidInput)
	}
	if strings.TrimSpace(text) == "" {
		return Resolved{}, fmt.Errorf("page has no readable text: %w", domain.ErrParseFailure)
	}
	return Resolved{Content: domain.PosterContent{PageText: text, SourceURL: u.String()}}, nil
}

// NewDefaultRegistry registers all three resolvers.
func NewDefaultRegistry(fetcher ports.PageFetcher, maxImageBytes int) *Registry {
	reg := NewRegistry()
	reg.Register(&Base64Resolver{MaxBytes: maxImageBytes})
	reg.Register(ImageURLResolver{})
	reg.Register(&PageResolver{Fetcher: fetcher})
	return reg
}
