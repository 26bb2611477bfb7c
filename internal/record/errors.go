package record

import "errors"

var (
	// ErrStoreCorrupt marks a stored payload that could not be read as a
	// collection. It is recovered by moving the payload to a backup key and
	// starting over; Load logs it but never returns it.
	ErrStoreCorrupt = errors.New("stored collection is corrupt")

	// ErrNotFound is returned when a status update names an unknown record.
	ErrNotFound = errors.New("record not found")

	// ErrExtractionIncomplete is returned when the extracted fields lack a
	// name. Nothing is stored for such a page.
	ErrExtractionIncomplete = errors.New("extraction incomplete: no name found")
)
