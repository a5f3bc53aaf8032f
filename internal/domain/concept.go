package domain

// Concept is the marketing copy derived from the product fields: a pin-ready
// title and description plus an ordered list of SEO tags. It is immutable
// once produced; later stages only read from it.
type Concept struct {
	Title       string
	Description string
	Tags        []string
}

// EditedImage is the transformed product photo returned by the image editor,
// already normalized to a format the publisher accepts.
type EditedImage struct {
	Data        []byte
	ContentType string
	Width       int
	Height      int
}

// PublishResult identifies the durable artifact created on the publishing
// platform.
type PublishResult struct {
	PinID  string
	PinURL string
}
