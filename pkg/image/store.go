package image

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"
)

var bucketImages = []byte("images")

// NotFoundError is returned when an image reference has not been
// imported into the store
type NotFoundError struct {
	Ref string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("image not found in store: %s", e.Ref)
}

// IsNotFound reports whether err indicates a missing image
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// Record describes one cached image
type Record struct {
	Ref        string    `json:"ref"`
	Digest     string    `json:"digest"`
	RootfsPath string    `json:"rootfsPath"`
	SizeBytes  int64     `json:"sizeBytes"`
	ImportedAt time.Time `json:"importedAt"`
}

// Store resolves image references to local root filesystems. Rootfs
// directories live under <root>/rootfs keyed by a digest of the
// normalized reference; the reference index is a bbolt database so
// the cache survives engine restarts.
type Store struct {
	root string
	db   *bolt.DB
}

// NewStore opens (or creates) an image store rooted at dir
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create image root: %w", err)
	}

	db, err := bolt.Open(filepath.Join(dir, "images.db"), 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open image index: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketImages)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create image bucket: %w", err)
	}

	return &Store{root: dir, db: db}, nil
}

// Close closes the index database
func (s *Store) Close() error {
	return s.db.Close()
}

// Resolve returns the local rootfs path for an image reference. The
// reference must have been imported; resolution never reaches out to
// a registry.
func (s *Store) Resolve(ctx context.Context, ref string) (string, error) {
	normalized := normalizeRef(ref)

	var rec Record
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketImages).Get([]byte(normalized))
		if data == nil {
			return &NotFoundError{Ref: ref}
		}
		return json.Unmarshal(data, &rec)
	})
	if err != nil {
		return "", err
	}

	if _, err := os.Stat(rec.RootfsPath); err != nil {
		// Index entry without backing files: treat as missing
		return "", &NotFoundError{Ref: ref}
	}

	return rec.RootfsPath, nil
}

// Import extracts a rootfs archive (tar, optionally gzipped) into the
// store and indexes it under the given reference. Re-importing a
// reference replaces its previous contents.
func (s *Store) Import(ctx context.Context, ref, archivePath string) (*Record, error) {
	normalized := normalizeRef(ref)
	digest := refDigest(normalized)

	dest := filepath.Join(s.root, "rootfs", digest)
	if err := os.RemoveAll(dest); err != nil {
		return nil, fmt.Errorf("failed to clear rootfs dir: %w", err)
	}
	if err := os.MkdirAll(dest, 0755); err != nil {
		return nil, fmt.Errorf("failed to create rootfs dir: %w", err)
	}

	size, err := extractArchive(archivePath, dest)
	if err != nil {
		os.RemoveAll(dest)
		return nil, fmt.Errorf("failed to extract %s: %w", archivePath, err)
	}

	rec := Record{
		Ref:        normalized,
		Digest:     digest,
		RootfsPath: dest,
		SizeBytes:  size,
		ImportedAt: time.Now(),
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(&rec)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketImages).Put([]byte(normalized), data)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to index image: %w", err)
	}

	return &rec, nil
}

// List returns every indexed image
func (s *Store) List() ([]*Record, error) {
	var records []*Record
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketImages).ForEach(func(k, v []byte) error {
			var rec Record
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			records = append(records, &rec)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Remove deletes an image's rootfs and index entry. Removing an
// unknown reference is not an error.
func (s *Store) Remove(ref string) error {
	normalized := normalizeRef(ref)

	var rec Record
	found := false
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketImages)
		data := b.Get([]byte(normalized))
		if data == nil {
			return nil
		}
		if err := json.Unmarshal(data, &rec); err != nil {
			return err
		}
		found = true
		return b.Delete([]byte(normalized))
	})
	if err != nil {
		return fmt.Errorf("failed to remove image index entry: %w", err)
	}

	if found {
		if err := os.RemoveAll(rec.RootfsPath); err != nil {
			return fmt.Errorf("failed to remove rootfs: %w", err)
		}
	}

	return nil
}

// normalizeRef appends :latest to untagged references so that
// "alpine" and "alpine:latest" share one cache entry
func normalizeRef(ref string) string {
	slash := strings.LastIndex(ref, "/")
	if !strings.Contains(ref[slash+1:], ":") {
		return ref + ":latest"
	}
	return ref
}

func refDigest(ref string) string {
	sum := sha256.Sum256([]byte(ref))
	return hex.EncodeToString(sum[:])
}

// extractArchive unpacks a tar (or tar.gz) archive into dest,
// rejecting entries that escape it. Returns the total bytes of
// regular-file content written.
func extractArchive(archivePath, dest string) (int64, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	var reader io.Reader = f
	if strings.HasSuffix(archivePath, ".gz") || strings.HasSuffix(archivePath, ".tgz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return 0, err
		}
		defer gz.Close()
		reader = gz
	}

	var total int64
	tr := tar.NewReader(reader)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return total, err
		}

		target := filepath.Join(dest, filepath.Clean("/"+hdr.Name))
		if !strings.HasPrefix(target, filepath.Clean(dest)+string(os.PathSeparator)) && target != filepath.Clean(dest) {
			return total, fmt.Errorf("archive entry escapes destination: %s", hdr.Name)
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, os.FileMode(hdr.Mode)); err != nil {
				return total, err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return total, err
			}
			out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(hdr.Mode))
			if err != nil {
				return total, err
			}
			n, err := io.Copy(out, tr)
			out.Close()
			if err != nil {
				return total, err
			}
			total += n
		case tar.TypeSymlink:
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return total, err
			}
			if err := os.Symlink(hdr.Linkname, target); err != nil {
				return total, err
			}
		default:
			// Character devices, fifos and friends are skipped;
			// they are not needed for the rootfs content we cache
		}
	}

	return total, nil
}
