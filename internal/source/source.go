package source

import (
	"context"
	"fmt"
	"strings"

	"PosterIntake/internal/domain"
)

// Kind names the way a submitter supplied the poster.
type Kind string

const (
	KindImageBase64 Kind = "image_base64"
	KindImageURL    Kind = "image_url"
	KindPageURL     Kind = "page_url"
)

// Request carries the raw, untrusted value for one kind.
type Request struct {
	Kind  Kind
	Value string
}

// Upload is image data that must be stored before the draft references it.
type Upload struct {
	Body        []byte
	ContentType string
	Extension   string
}

// Resolved is the content handed to the model plus what to persist about its origin.
type Resolved struct {
	Content domain.PosterContent
	Upload  *Upload
}

// Resolver turns one kind of submission into model-ready content.
type Resolver interface {
	Kind() Kind
	Resolve(ctx context.Context, req Request) (Resolved, error)
}

// Registry keeps a mapping from kinds to their resolvers.
type Registry struct {
	resolvers map[Kind]Resolver
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{resolvers: map[Kind]Resolver{}}
}

// Register adds or replaces a resolver.
func (r *Registry) Register(resolver Resolver) {
	if r.resolvers == nil {
		r.resolvers = map[Kind]Resolver{}
	}
	r.resolvers[resolver.Kind()] = resolver
}

// Resolve dispatches the request to the resolver registered for its kind.
func (r *Registry) Resolve(ctx context.Context, req Request) (Resolved, error) {
	resolver, ok := r.resolvers[req.Kind]
	if !ok {
		return Resolved{}, fmt.Errorf("source %s is not registered: %w", req.Kind, domain.ErrInvalidInput)
	}
	return resolver.Resolve(ctx, req)
}

// Pick builds the request from the three mutually exclusive submission fields.
func Pick(imageBase64, imageURL, pageURL string) (Request, error) {
	var picked []Request
	if v := strings.TrimSpace(imageBase64); v != "" {
		picked = append(picked, Request{Kind: KindImageBase64, Value: v})
	}
	if v := strings.TrimSpace(imageURL); v != "" {
		picked = append(picked, Request{Kind: KindImageURL, Value: v})
	}
	if v := strings.TrimSpace(pageURL); v != "" {
		picked = append(picked, Request{Kind: KindPageURL, Value: v})
	}

	switch len(picked) {
	case 0:
		return Request{}, fmt.Errorf("imageUrl, imageBase64 or sourceUrl is required: %w", domain.ErrInvalidInput)
	case 1:
		return picked[0], nil
	default:
		return Request{}, fmt.Errorf("only one of imageUrl, imageBase64 or sourceUrl may be set: %w", domain.ErrInvalidInput)
	}
}
