package ports

import "poetry-export/internal/types"

// OutputPort writes a rendered export document. An empty path selects
// standard output.
type OutputPort interface {
	WriteDocument(path string, doc types.ExportDocument) error
}
