package session

import "errors"

// ErrNotOpen is returned when editing a sheet the workspace has not loaded.
var ErrNotOpen = errors.New("sheet is not open in this session")
