package termgrid

import "errors"

var (
	// ErrNilPayload is returned when Render is called without a payload.
	ErrNilPayload = errors.New("termgrid: nil payload")

	// ErrInvalidSettings is returned when the payload settings describe
	// an empty cell grid, an empty cell size, or an empty target.
	ErrInvalidSettings = errors.New("termgrid: invalid settings")

	// ErrRowCount is returned when the payload row slice does not match
	// the cell grid height.
	ErrRowCount = errors.New("termgrid: row count does not match cell grid")
)
