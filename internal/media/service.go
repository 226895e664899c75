package media

import (
	"fmt"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"stroke_rehab_backend/internal/common"
	"stroke_rehab_backend/internal/config"
)

// Recording kinds accepted for upload.
const (
	KindAudio = "audio"
	KindVideo = "video"
)

var allowedExtensions = map[string]map[string]bool{
	KindAudio: {".mp3": true, ".wav": true, ".m4a": true, ".ogg": true, ".webm": true},
	KindVideo: {".mp4": true, ".mov": true, ".avi": true, ".webm": true, ".mkv": true},
}

const maxUploadSize = 100 << 20 // 100 MiB

// StoredFile describes a persisted upload.
type StoredFile struct {
	Filename string `json:"filename"`
	Kind     string `json:"kind"`
	Size     int64  `json:"size"`
	Path     string `json:"path"`
}

// Service stores exercise recordings on the local filesystem under a
// per-kind directory, with generated names so uploads never collide.
type Service struct {
	basePath string
	logger   *zap.Logger
}

// NewService creates the media service and its storage directories.
func NewService(cfg *config.Config, logger *zap.Logger) (*Service, error) {
	for _, kind := range []string{KindAudio, KindVideo} {
		dir := filepath.Join(cfg.MediaStoragePath, kind)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create media directory %s: %w", dir, err)
		}
	}
	return &Service{basePath: cfg.MediaStoragePath, logger: logger}, nil
}

// Store validates and persists an uploaded recording.
func (s *Service) Store(c *gin.Context, kind string, fileHeader *multipart.FileHeader) (*StoredFile, error) {
	extensions, ok := allowedExtensions[kind]
	if !ok {
		return nil, common.ErrBadRequest.WithDetails(fmt.Sprintf("Unsupported media kind %q.", kind))
	}
	if fileHeader.Size > maxUploadSize {
		return nil, common.ErrBadRequest.WithDetails("The uploaded file exceeds the maximum allowed size.")
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if !extensions[ext] {
		return nil, common.ErrBadRequest.WithDetails(fmt.Sprintf("File extension %q is not allowed for %s uploads.", ext, kind))
	}

	filename := uuid.NewString() + ext
	destination := filepath.Join(s.basePath, kind, filename)
	if err := c.SaveUploadedFile(fileHeader, destination); err != nil {
		s.logger.Error("Failed to save uploaded file", zap.Error(err), zap.String("destination", destination))
		return nil, fmt.Errorf("failed to save uploaded file: %w", err)
	}

	s.logger.Info("Media stored", zap.String("kind", kind), zap.String("filename", filename), zap.Int64("size", fileHeader.Size))
	return &StoredFile{
		Filename: filename,
		Kind:     kind,
		Size:     fileHeader.Size,
		Path:     fmt.Sprintf("/media/%s/%s", kind, filename),
	}, nil
}

// Resolve maps a kind and filename to the absolute path of a stored file.
// The filename must be a bare generated name; path traversal is rejected.
func (s *Service) Resolve(kind, filename string) (string, error) {
	if _, ok := allowedExtensions[kind]; !ok {
		return "", common.ErrBadRequest.WithDetails(fmt.Sprintf("Unsupported media kind %q.", kind))
	}
	if filename != filepath.Base(filename) || strings.Contains(filename, "..") {
		return "", common.ErrBadRequest.WithDetails("Invalid filename.")
	}

	path := filepath.Join(s.basePath, kind, filename)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return "", common.ErrNotFound.WithDetails("Media file not found.")
		}
		return "", err
	}
	return path, nil
}
