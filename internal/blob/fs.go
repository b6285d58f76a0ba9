package blob

import (
	infraFS "imagingcore/internal/infra/blob/fs"
)

// NewFilesystem constructs a filesystem-backed payload store rooted at path.
func NewFilesystem(root string) (Store, error) {
	return infraFS.New(root)
}
