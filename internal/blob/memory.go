package blob

import (
	memorystore "imagingcore/internal/infra/blob/memory"
)

// NewMemory returns an in-memory payload store suitable for tests.
func NewMemory() Store { return memorystore.New() }
