// Package pinning uploads token icons and metadata documents to content
// hosting services and returns the URIs the on-chain metadata points at.
package pinning

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// ErrUploadFailed wraps every failure to store an asset.
var ErrUploadFailed = errors.New("asset upload failed")

// Pinner stores assets and returns a publicly resolvable URI for each.
type Pinner interface {
	PinFile(ctx context.Context, name, contentType string, r io.Reader) (string, error)
	PinJSON(ctx context.Context, name string, v any) (string, error)
}

// TokenMetadata is the off-chain JSON document referenced by the Metaplex
// metadata account.
type TokenMetadata struct {
	Name        string      `json:"name"`
	Symbol      string      `json:"symbol"`
	Description string      `json:"description"`
	Image       string      `json:"image"`
	Attributes  []Attribute `json:"attributes"`
}

// Attribute is a single trait entry.
type Attribute struct {
	TraitType string `json:"trait_type"`
	Value     string `json:"value"`
}

// NewTokenMetadata builds the metadata document for a fungible token.
func NewTokenMetadata(name, symbol, imageURI string) TokenMetadata {
	return TokenMetadata{
		Name:        name,
		Symbol:      symbol,
		Description: fmt.Sprintf("%s token, symbol: %s", name, symbol),
		Image:       imageURI,
		Attributes:  []Attribute{},
	}
}

// Icon is the image file submitted with a token form.
type Icon struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

// Assets holds the URIs produced by UploadTokenAssets.
type Assets struct {
	ImageURI    string
	MetadataURI string
	Metadata    TokenMetadata
}

// UploadTokenAssets uploads the icon once, then the metadata document that
// references it.
func UploadTokenAssets(ctx context.Context, p Pinner, name, symbol string, icon Icon) (Assets, error) {
	contentType := icon.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	imageURI, err := p.PinFile(ctx, icon.Filename, contentType, icon.Body)
	if err != nil {
		return Assets{}, fmt.Errorf("upload icon: %w", err)
	}

	meta := NewTokenMetadata(name, symbol, imageURI)
	metadataURI, err := p.PinJSON(ctx, "metadata.json", meta)
	if err != nil {
		return Assets{}, fmt.Errorf("upload metadata: %w", err)
	}

	return Assets{ImageURI: imageURI, MetadataURI: metadataURI, Metadata: meta}, nil
}

func uploadErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrUploadFailed, op, err)
}
