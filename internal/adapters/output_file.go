package adapters

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"poetry-export/internal/ports"
	"poetry-export/internal/types"
)

// OutputFileAdapter writes export documents. Relative paths are resolved
// against Dir, the invocation working directory. An empty path writes to
// Stdout.
type OutputFileAdapter struct {
	Dir    string
	Stdout io.Writer
}

func NewOutputFileAdapter(dir string, stdout io.Writer) OutputFileAdapter {
	return OutputFileAdapter{Dir: dir, Stdout: stdout}
}

func (a OutputFileAdapter) WriteDocument(path string, doc types.ExportDocument) error {
	if path == "" {
		if a.Stdout == nil {
			return errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("no output path and no standard output configured")
		}
		if _, err := io.WriteString(a.Stdout, doc.Content); err != nil {
			return errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("failed to write to standard output").
				WithCause(err)
		}
		return nil
	}
	target := a.Resolve(path)
	if err := writeFileAtomic(target, []byte(doc.Content), 0o644); err != nil {
		return err
	}
	log.Debug().Str("path", target).Str("format", string(doc.Format)).Msg("export written")
	return nil
}

// Resolve returns the absolute destination for path.
func (a OutputFileAdapter) Resolve(path string) string {
	if filepath.IsAbs(path) || a.Dir == "" {
		return filepath.Clean(path)
	}
	return filepath.Join(a.Dir, path)
}

// writeFileAtomic writes data next to path and renames it into place, so
// readers see either the previous file or the complete new one. The
// temporary file is removed on every failure path.
func writeFileAtomic(path string, data []byte, perm os.FileMode) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-")
	if err != nil {
		return writeFailed(path, err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return writeFailed(path, err)
	}
	if err = tmp.Sync(); err != nil {
		return writeFailed(path, err)
	}
	if err = tmp.Close(); err != nil {
		return writeFailed(path, err)
	}
	if err = os.Chmod(tmpPath, perm); err != nil {
		return writeFailed(path, err)
	}
	if err = os.Rename(tmpPath, path); err != nil {
		return writeFailed(path, err)
	}
	return nil
}

func writeFailed(path string, cause error) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeInternal).
		WithMsg(fmt.Sprintf("failed to write %s", path)).
		WithCause(cause)
}

var _ ports.OutputPort = OutputFileAdapter{}
