package httpapi

import (
	"net/http"
	"os"
	"path"
)

// staticFS serves files only. A directory is reachable when it has an
// index.html; otherwise it reports not found instead of a listing.
type staticFS struct {
	root http.FileSystem
}

func (s staticFS) Open(name string) (http.File, error) {
	f, err := s.root.Open(name)
	if err != nil {
		return nil, err
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if !info.IsDir() {
		return f, nil
	}

	index, err := s.root.Open(path.Join(name, "index.html"))
	if err != nil {
		_ = f.Close()
		return nil, os.ErrNotExist
	}
	_ = index.Close()
	return f, nil
}
