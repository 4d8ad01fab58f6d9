// Package document stores downloaded decision files on disk, addressed by
// content hash so re-imports of the same file do not duplicate it.
package document

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
)

// Stored describes a file placed in the store.
type Stored struct {
	// Path is relative to the store root.
	Path   string
	SHA256 string
	Size   int64
}

// Store is a content-addressed file store rooted at a directory. Files are
// laid out as <root>/ab/cd/<hash><ext> using the first two byte pairs of the
// hex digest.
type Store struct {
	root string
}

// NewStore creates the root directory if needed.
func NewStore(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, eris.Wrapf(err, "document: create store dir %s", root)
	}
	return &Store{root: root}, nil
}

// Root returns the store root directory.
func (s *Store) Root() string {
	return s.root
}

// Put reads r to the end, hashes it and moves it into place. Writing goes
// through a temp file so a failed download never leaves a partial file under
// a content hash.
func (s *Store) Put(r io.Reader, ext string) (*Stored, error) {
	tmp := filepath.Join(s.root, "tmp-"+uuid.NewString())
	f, err := os.Create(tmp)
	if err != nil {
		return nil, eris.Wrap(err, "document: create temp file")
	}

	h := sha256.New()
	size, err := io.Copy(io.MultiWriter(f, h), r)
	closeErr := f.Close()
	if err != nil {
		_ = os.Remove(tmp)
		return nil, eris.Wrap(err, "document: write temp file")
	}
	if closeErr != nil {
		_ = os.Remove(tmp)
		return nil, eris.Wrap(closeErr, "document: close temp file")
	}

	digest := hex.EncodeToString(h.Sum(nil))
	relPath := filepath.Join(digest[0:2], digest[2:4], digest+ext)
	dest := filepath.Join(s.root, relPath)

	if _, err := os.Stat(dest); err == nil {
		// Same content already stored.
		_ = os.Remove(tmp)
		return &Stored{Path: relPath, SHA256: digest, Size: size}, nil
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		_ = os.Remove(tmp)
		return nil, eris.Wrap(err, "document: create shard dir")
	}
	if err := os.Rename(tmp, dest); err != nil {
		_ = os.Remove(tmp)
		return nil, eris.Wrap(err, "document: move into place")
	}

	return &Stored{Path: relPath, SHA256: digest, Size: size}, nil
}

// Open returns a reader for a stored file by its relative path.
func (s *Store) Open(relPath string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(s.root, relPath))
	if err != nil {
		return nil, eris.Wrapf(err, "document: open %s", relPath)
	}
	return f, nil
}
