package openai

import "encoding/json"

// GenerateRequest describes a text-to-image call.
type GenerateRequest struct {
	Prompt            string
	N                 int
	Size              string
	Quality           string
	Background        string
	OutputFormat      string
	OutputCompression int
	Moderation        string
	PartialImages     int
	User              string
}

// SourceImage carries the bytes of an input image for edit calls.
type SourceImage struct {
	Filename string
	MIME     string
	Data     []byte
}

// EditRequest describes an image-edit call. Mask is optional; opaque mask
// pixels keep the original image, transparent pixels mark the editable
// region. A mask whose dimensions differ from the source is resized before
// upload, preserving its alpha channel.
type EditRequest struct {
	Image             SourceImage
	Mask              *SourceImage
	Prompt            string
	N                 int
	Size              string
	Quality           string
	InputFidelity     string
	OutputFormat      string
	OutputCompression int
	User              string
}

// ImagePayload is one generated image, as returned by the API.
type ImagePayload struct {
	B64  string
	Data []byte
}

// Outcome is the normalized result of a generation or edit call.
type Outcome struct {
	Images       []ImagePayload
	Usage        json.RawMessage
	Created      int64
	Size         string
	Quality      string
	Background   string
	OutputFormat string
	TimingMs     int64
}

// StreamEventType mirrors the event names on the streaming wire.
type StreamEventType string

const (
	StreamPartialImage StreamEventType = "partial_image"
	StreamCompleted    StreamEventType = "completed"
	StreamError        StreamEventType = "error"
)

// StreamEvent is one event from a streaming generation. Partial events carry
// the intermediate payload and its index; the completed event carries the
// final payload plus usage.
type StreamEvent struct {
	Type         StreamEventType
	B64          string
	PartialIndex int
	Created      int64
	Size         string
	Quality      string
	Background   string
	OutputFormat string
	Usage        json.RawMessage
	Err          error
}
