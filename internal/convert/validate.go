package convert

import (
	"bytes"

	"github.com/gilmarTelles/xlsx-to-pdf/internal/domain"
)

// zipMagic is the local-file-header signature of a ZIP container. The xlsx
// format is a ZIP archive, so this is a cheap structural check; a correctly
// signed but otherwise broken file is caught later by the transformer.
var zipMagic = []byte{'P', 'K', 0x03, 0x04}

// ValidateUpload checks presence, size and container signature of an upload.
// It is a pure function of its inputs.
func ValidateUpload(data []byte, declaredSize int64, maxBytes int) error {
	if len(data) == 0 {
		return domain.ErrMissingFile
	}
	if int64(len(data)) > int64(maxBytes) || declaredSize > int64(maxBytes) {
		return domain.ErrFileTooLarge
	}
	if len(data) < len(zipMagic) || !bytes.Equal(data[:len(zipMagic)], zipMagic) {
		return domain.ErrInvalidFormat
	}
	return nil
}
