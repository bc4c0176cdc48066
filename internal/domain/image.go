package domain

import "time"

// Image is an uploaded source image available as input for edit and
// style-transfer jobs. Uploads are validated and moderated before storage.
type Image struct {
	ID               string
	UserID           string
	OriginalFilename string
	Title            string
	StorageKey       string
	URL              string
	Format           string
	SizeBytes        int64
	ModerationPassed bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// AllowedImageFormats lists the upload formats accepted at validation time.
var AllowedImageFormats = map[string]bool{
	"png":  true,
	"jpg":  true,
	"jpeg": true,
	"webp": true,
}

// MaxUploadBytes caps the size of a single uploaded source image.
const MaxUploadBytes = 10 << 20
