package services

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"taskeval/internal/apperrors"
)

// FileService stores uploaded task attachments under a local root and
// hands back the public URL the evaluation step later fetches.
type FileService interface {
	Save(userID int64, originalName string, src io.Reader) (string, error)
	Resolve(userParam, name string) (string, error)
}

type fileService struct {
	rootDir string
	baseURL string
}

func NewFileService(rootDir, baseURL string) FileService {
	return &fileService{
		rootDir: filepath.Clean(rootDir),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

func (s *fileService) Save(userID int64, originalName string, src io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	name := uuid.NewString() + ext

	dir := filepath.Join(s.rootDir, strconv.FormatInt(userID, 10))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	dst, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", fmt.Errorf("write upload file: %w", err)
	}

	return fmt.Sprintf("%s/files/%d/%s", s.baseURL, userID, name), nil
}

// Resolve maps URL path segments back to a file on disk, rejecting
// anything that tries to leave the upload root.
func (s *fileService) Resolve(userParam, name string) (string, error) {
	if _, err := strconv.ParseInt(userParam, 10, 64); err != nil {
		return "", apperrors.NotFound("file not found")
	}
	if name == "" || strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return "", apperrors.NotFound("file not found")
	}
	path := filepath.Join(s.rootDir, userParam, name)
	if _, err := os.Stat(path); err != nil {
		return "", apperrors.NotFound("file not found")
	}
	return path, nil
}
