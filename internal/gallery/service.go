// Package gallery stores the uploaded images on the local filesystem.
// Deletes move files to a private trash directory outside the served tree,
// never remove them.
package gallery

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrFileTooLarge   = errors.New("image file too large")
	ErrDisallowedType = errors.New("disallowed image type")
	ErrInvalidName    = errors.New("invalid image name")
	ErrNotFound       = errors.New("image not found")
)

// extensionByMime doubles as the upload whitelist.
var extensionByMime = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
}

const thumbsDirName = ".thumbs"

type Service struct {
	rootDir        string
	trashDir       string
	maxUploadBytes int64
}

func NewService(rootDir, trashDir string, maxUploadBytes int64) (*Service, error) {
	if strings.TrimSpace(rootDir) == "" {
		return nil, fmt.Errorf("gallery root directory is required")
	}
	if strings.TrimSpace(trashDir) == "" {
		return nil, fmt.Errorf("gallery trash directory is required")
	}
	if maxUploadBytes <= 0 {
		return nil, fmt.Errorf("max upload bytes must be > 0")
	}

	for _, dir := range []string{rootDir, trashDir, filepath.Join(rootDir, thumbsDirName)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating gallery directory: %w", err)
		}
	}

	return &Service{
		rootDir:        rootDir,
		trashDir:       trashDir,
		maxUploadBytes: maxUploadBytes,
	}, nil
}

func (s *Service) MaxUploadBytes() int64 {
	return s.maxUploadBytes
}

// Root returns the directory the image file server should expose.
func (s *Service) Root() string {
	return s.rootDir
}

// ThumbsRoot returns the directory holding generated thumbnails.
func (s *Service) ThumbsRoot() string {
	return filepath.Join(s.rootDir, thumbsDirName)
}

// List returns the stored image names, sorted.
func (s *Service) List() ([]string, error) {
	entries, err := os.ReadDir(s.rootDir)
	if err != nil {
		return nil, fmt.Errorf("reading gallery directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Save stores one image under a random name and returns that name. The
// content type is sniffed from the bytes, not trusted from the client.
func (s *Service) Save(src io.Reader) (string, error) {
	sniff := make([]byte, 512)
	n, err := io.ReadFull(src, sniff)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", fmt.Errorf("reading image data: %w", err)
	}
	sniff = sniff[:n]

	ext, ok := extensionByMime[http.DetectContentType(sniff)]
	if !ok {
		return "", ErrDisallowedType
	}

	name := strings.ReplaceAll(uuid.New().String(), "-", "") + ext
	destPath := filepath.Join(s.rootDir, name)

	tmpFile, err := os.CreateTemp(s.rootDir, name+".tmp-*")
	if err != nil {
		return "", fmt.Errorf("creating temporary image file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	full := io.MultiReader(bytes.NewReader(sniff), src)
	written, err := io.Copy(tmpFile, io.LimitReader(full, s.maxUploadBytes+1))
	if err != nil {
		return "", fmt.Errorf("writing image file: %w", err)
	}
	if written > s.maxUploadBytes {
		return "", ErrFileTooLarge
	}
	if err := tmpFile.Close(); err != nil {
		return "", fmt.Errorf("closing image file: %w", err)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return "", fmt.Errorf("storing image file: %w", err)
	}

	// Thumbnail generation is best-effort; the full image is already
	// stored and servable without it.
	_ = s.writeThumbnail(name)
	return name, nil
}

// Trash moves an image (and its thumbnail, if any) to the trash directory.
func (s *Service) Trash(name string) error {
	cleaned, err := s.cleanName(name)
	if err != nil {
		return err
	}

	srcPath := filepath.Join(s.rootDir, cleaned)
	if _, err := os.Stat(srcPath); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("checking image file: %w", err)
	}

	if err := os.Rename(srcPath, filepath.Join(s.trashDir, cleaned)); err != nil {
		return fmt.Errorf("moving image to trash: %w", err)
	}

	_ = os.Remove(filepath.Join(s.ThumbsRoot(), thumbName(cleaned)))
	return nil
}

// cleanName rejects anything that could escape the gallery directory.
func (s *Service) cleanName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", ErrInvalidName
	}
	return name, nil
}
