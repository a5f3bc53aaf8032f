package domain

import (
	"net/url"
	"strings"
)

// Marketplace enumerates the storefronts a product can be sourced from.
type Marketplace string

const (
	MarketplaceShein      Marketplace = "Shein"
	MarketplaceAmazon     Marketplace = "Amazon"
	MarketplaceAliExpress Marketplace = "AliExpress"
	MarketplaceTemu       Marketplace = "Temu"
	MarketplaceEtsy       Marketplace = "Etsy"
	MarketplaceEbay       Marketplace = "eBay"
	MarketplaceWalmart    Marketplace = "Walmart"
)

var marketplaces = map[string]Marketplace{
	"shein":      MarketplaceShein,
	"amazon":     MarketplaceAmazon,
	"aliexpress": MarketplaceAliExpress,
	"temu":       MarketplaceTemu,
	"etsy":       MarketplaceEtsy,
	"ebay":       MarketplaceEbay,
	"walmart":    MarketplaceWalmart,
}

// ParseMarketplace maps operator input onto the canonical enum value. An
// unrecognized marketplace is an error, never a silent default.
func ParseMarketplace(raw string) (Marketplace, error) {
	m, ok := marketplaces[strings.ToLower(strings.TrimSpace(raw))]
	if !ok {
		return "", Ef(KindInvalidInput, "unrecognized marketplace %q", strings.TrimSpace(raw))
	}
	return m, nil
}

// UploadedImage carries the raw bytes of the operator-supplied product photo
// together with its declared content type.
type UploadedImage struct {
	Data        []byte
	ContentType string
}

// ProductInput is the manually entered product data plus the uploaded image
// that seeds one pipeline run.
type ProductInput struct {
	Marketplace   Marketplace
	SKUOrLink     string
	Image         UploadedImage
	Title         string
	Description   string
	AffiliateLink string
	PromoAngle    string
}

// acceptedUploadTypes mirrors the upload formats the original form allowed.
var acceptedUploadTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/gif":  true,
	"image/webp": true,
}

// Validate checks every local invariant before any external call is made.
func (p ProductInput) Validate() error {
	if _, ok := marketplaces[strings.ToLower(string(p.Marketplace))]; !ok {
		return Ef(KindInvalidInput, "unrecognized marketplace %q", string(p.Marketplace))
	}
	if strings.TrimSpace(p.SKUOrLink) == "" {
		return E(KindInvalidInput, "sku or product link is required")
	}
	if strings.TrimSpace(p.Title) == "" {
		return E(KindInvalidInput, "product title is required")
	}
	if strings.TrimSpace(p.Description) == "" {
		return E(KindInvalidInput, "product description is required")
	}
	if len(p.Image.Data) == 0 {
		return E(KindInvalidInput, "product image must not be empty")
	}
	if !acceptedUploadTypes[strings.ToLower(p.Image.ContentType)] {
		return Ef(KindInvalidInput, "unsupported image type %q, use png, jpeg, gif or webp", p.Image.ContentType)
	}
	if err := validateLink(p.AffiliateLink); err != nil {
		return err
	}
	return nil
}

// validateLink requires an absolute http(s) URL so shoppers can actually
// reach the product from the published pin.
func validateLink(link string) error {
	u, err := url.Parse(strings.TrimSpace(link))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return E(KindInvalidInput, "affiliate link must be an absolute URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return Ef(KindInvalidInput, "affiliate link scheme %q is not allowed", u.Scheme)
	}
	return nil
}

// ValidateAffiliateLink is the same check exported for the publisher adapter,
// which rejects malformed links locally instead of burning a remote call.
func ValidateAffiliateLink(link string) error {
	return validateLink(link)
}
