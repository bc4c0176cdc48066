package domain

import (
	"strings"
	"time"
)

// StyleCategory groups styles for the catalog (Anime, Cartoon, Art, ...).
type StyleCategory struct {
	ID          string
	Name        string
	Slug        string
	Description string
	Icon        string
	Color       string
	IsActive    bool
	SortOrder   int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Style is a named prompt template plus default generation parameters applied
// during style-transfer jobs. The catalog is read-mostly: the job pipeline
// reads styles but never writes them.
type Style struct {
	ID                   string
	CategoryID           string
	Name                 string
	Slug                 string
	Description          string
	PromptTemplate       string
	PreviewImage         string
	Thumbnail            string
	DefaultQuality       string
	DefaultBackground    string
	DefaultOutputFormat  string
	DefaultSize          string
	DefaultCompression   int
	SupportsTransparency bool
	SupportsStreaming    bool
	MaxPromptLength      int
	IsActive             bool
	IsPremium            bool
	SortOrder            int
	PopularityScore      int
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// ExpandPrompt substitutes the user's prompt into the style template. The
// template uses {original_prompt} and {style_name} placeholders.
func (s *Style) ExpandPrompt(userPrompt string) string {
	if userPrompt == "" {
		userPrompt = "Transform this image to " + s.Name + " style"
	}
	out := strings.ReplaceAll(s.PromptTemplate, "{original_prompt}", userPrompt)
	out = strings.ReplaceAll(out, "{style_name}", s.Name)
	return out
}

// FillDefaults replaces any `auto` parameter with the style's default so that
// style-transfer jobs inherit the curated settings.
func (s *Style) FillDefaults(p *GenerationParams) {
	if p.Quality == "auto" && s.DefaultQuality != "" {
		p.Quality = s.DefaultQuality
	}
	if p.Background == "auto" && s.DefaultBackground != "" {
		p.Background = s.DefaultBackground
	}
	if p.Size == "auto" && s.DefaultSize != "" {
		p.Size = s.DefaultSize
	}
	if s.DefaultOutputFormat != "" && p.OutputFormat == "" {
		p.OutputFormat = s.DefaultOutputFormat
	}
}
