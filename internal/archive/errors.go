package archive

import "errors"

// Each sentinel below that a call returns is wrapped with offending offset/path context via
// fmt.Errorf("...: %w", Err...) so callers can use errors.Is to distinguish
// failure kinds without parsing message text.
var (
	// ErrHeaderCorrupt is fatal at open: bad magic, or a header/table that
	// doesn't parse.
	ErrHeaderCorrupt = errors.New("header corrupt")

	// ErrUnsupportedVersion is fatal at open: the version field names a
	// format revision this reader does not support.
	ErrUnsupportedVersion = errors.New("unsupported version")

	// ErrTruncatedIndex is fatal for the affected operation: a read of the
	// index would run past EOF.
	ErrTruncatedIndex = errors.New("truncated index")

	// ErrTruncatedPayload is fatal for the affected operation: a read of a
	// tile payload would run past EOF.
	ErrTruncatedPayload = errors.New("truncated payload")

	// ErrInvalidLevel is an argument error: no such level_id.
	ErrInvalidLevel = errors.New("invalid level")

	// ErrOutOfBounds is an argument error: a (row, col) outside the level's
	// declared grid.
	ErrOutOfBounds = errors.New("out of bounds")

	// ErrPayloadTooLarge is fatal for that write: a tile payload exceeds
	// the 24-bit length field's capacity (2^24 - 1 bytes).
	ErrPayloadTooLarge = errors.New("payload too large")

	// ErrPayloadUnavailable names the non-fatal condition of a referenced
	// payload that could not be read. Write does not return it: the tile is
	// omitted (its index slot stays zero), the write continues, and
	// occurrences are counted in Summary.PayloadUnavailable.
	ErrPayloadUnavailable = errors.New("payload unavailable")
)
