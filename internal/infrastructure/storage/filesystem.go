package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/jhoicas/inventario-eventos/internal/application/ports"
	"github.com/jhoicas/inventario-eventos/internal/domain"
)

var _ ports.ImageStore = (*FileStore)(nil)

// FileStore guarda imágenes en disco y las expone bajo una URL base (servida como estático).
type FileStore struct {
	root    string
	baseURL string
}

// NewFileStore crea el directorio raíz si no existe.
func NewFileStore(root, baseURL string) (*FileStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("storage: crear %s: %w", root, err)
	}
	return &FileStore{root: root, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Root directorio físico (para montar el estático en Fiber).
func (s *FileStore) Root() string { return s.root }

// Save escribe la imagen con un nombre único y retorna su URL pública.
func (s *FileStore) Save(ctx context.Context, folder string, img *ports.Image) (string, error) {
	if img.Empty() {
		return "", fmt.Errorf("%w: imagen vacía", domain.ErrInvalidInput)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	folder = cleanFolder(folder)
	dir := filepath.Join(s.root, folder)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("storage: crear carpeta: %w", err)
	}
	name := uuid.NewString() + extension(img)
	if err := os.WriteFile(filepath.Join(dir, name), img.Data, 0o644); err != nil {
		return "", fmt.Errorf("storage: escribir imagen: %w", err)
	}
	return s.baseURL + "/" + path.Join(folder, name), nil
}

// Delete borra la imagen referenciada por url. URLs ajenas o archivos inexistentes se ignoran.
func (s *FileStore) Delete(ctx context.Context, url string) error {
	if url == "" {
		return nil
	}
	rel, ok := strings.CutPrefix(url, s.baseURL+"/")
	if !ok {
		return nil
	}
	rel = path.Clean("/" + rel)[1:]
	if err := os.Remove(filepath.Join(s.root, filepath.FromSlash(rel))); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("storage: borrar imagen: %w", err)
	}
	return nil
}

func cleanFolder(folder string) string {
	folder = path.Clean("/" + folder)[1:]
	if folder == "" {
		return "misc"
	}
	return folder
}

func extension(img *ports.Image) string {
	if ext := strings.ToLower(filepath.Ext(img.Filename)); ext != "" {
		return ext
	}
	if exts, _ := mime.ExtensionsByType(img.ContentType); len(exts) > 0 {
		return exts[0]
	}
	return ".bin"
}
