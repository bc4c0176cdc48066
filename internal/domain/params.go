package domain

// GenerationParams carries the image-generation parameters forwarded to the
// provider. Field names follow the provider's API surface so the stored JSON
// matches what was actually sent.
type GenerationParams struct {
	Quality           string `json:"quality"`
	Size              string `json:"size"`
	OutputFormat      string `json:"output_format"`
	Background        string `json:"background"`
	OutputCompression int    `json:"output_compression"`
	Moderation        string `json:"moderation"`
	InputFidelity     string `json:"input_fidelity"`
	N                 int    `json:"n"`
	Stream            bool   `json:"stream"`
	PartialImages     int    `json:"partial_images"`
}

// DefaultGenerationParams mirrors the provider defaults applied when a
// submission omits a field.
func DefaultGenerationParams() GenerationParams {
	return GenerationParams{
		Quality:           "auto",
		Size:              "auto",
		OutputFormat:      "png",
		Background:        "auto",
		OutputCompression: 85,
		Moderation:        "auto",
		InputFidelity:     "low",
		N:                 1,
	}
}

// Normalize fills zero values with provider defaults.
func (p *GenerationParams) Normalize() {
	def := DefaultGenerationParams()
	if p.Quality == "" {
		p.Quality = def.Quality
	}
	if p.Size == "" {
		p.Size = def.Size
	}
	if p.OutputFormat == "" {
		p.OutputFormat = def.OutputFormat
	}
	if p.Background == "" {
		p.Background = def.Background
	}
	if p.OutputCompression == 0 {
		p.OutputCompression = def.OutputCompression
	}
	if p.Moderation == "" {
		p.Moderation = def.Moderation
	}
	if p.InputFidelity == "" {
		p.InputFidelity = def.InputFidelity
	}
	if p.N == 0 {
		p.N = def.N
	}
}

var (
	validQualities  = map[string]bool{"auto": true, "low": true, "medium": true, "high": true}
	validSizes      = map[string]bool{"auto": true, "1024x1024": true, "1536x1024": true, "1024x1536": true}
	validFormats    = map[string]bool{"png": true, "jpeg": true, "webp": true}
	validBackground = map[string]bool{"auto": true, "transparent": true, "opaque": true}
	validFidelity   = map[string]bool{"low": true, "high": true}
)

// Validate returns the list of field errors for the parameter set. Transparent
// backgrounds require an alpha-capable output format, checked here at
// submission time rather than at generation time.
func (p GenerationParams) Validate() []FieldError {
	var errs []FieldError
	if !validQualities[p.Quality] {
		errs = append(errs, FieldError{Field: "quality", Message: "must be one of auto, low, medium, high"})
	}
	if !validSizes[p.Size] {
		errs = append(errs, FieldError{Field: "size", Message: "must be one of auto, 1024x1024, 1536x1024, 1024x1536"})
	}
	if !validFormats[p.OutputFormat] {
		errs = append(errs, FieldError{Field: "output_format", Message: "must be one of png, jpeg, webp"})
	}
	if !validBackground[p.Background] {
		errs = append(errs, FieldError{Field: "background", Message: "must be one of auto, transparent, opaque"})
	}
	if p.Background == "transparent" && p.OutputFormat != "png" && p.OutputFormat != "webp" {
		errs = append(errs, FieldError{Field: "background", Message: "transparent background requires png or webp output"})
	}
	if p.OutputCompression < 0 || p.OutputCompression > 100 {
		errs = append(errs, FieldError{Field: "output_compression", Message: "must be between 0 and 100"})
	}
	if !validFidelity[p.InputFidelity] {
		errs = append(errs, FieldError{Field: "input_fidelity", Message: "must be low or high"})
	}
	if p.N < 1 || p.N > 10 {
		errs = append(errs, FieldError{Field: "n", Message: "must be between 1 and 10"})
	}
	if p.PartialImages < 0 || p.PartialImages > 3 {
		errs = append(errs, FieldError{Field: "partial_images", Message: "must be between 0 and 3"})
	}
	if p.PartialImages > 0 && !p.Stream {
		errs = append(errs, FieldError{Field: "partial_images", Message: "requires stream to be enabled"})
	}
	return errs
}
