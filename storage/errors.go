package storage

import "fmt"

// RestoreError is returned when a backup handed to Restore is not valid JSON.
type RestoreError struct {
	Size int
}

func (e *RestoreError) Error() string {
	return fmt.Sprintf("cannot restore %d bytes: not a valid JSON document", e.Size)
}
