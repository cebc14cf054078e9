package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/h2non/filetype"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/freelance-contracts/internal/domain/entity"
	"github.com/ignatzorin/freelance-contracts/internal/pkg/apperror"
)

const (
	sniffBytes      = 261
	defaultMimeType = "application/octet-stream"
)

// MediaFinder ищет запись о загруженном файле.
type MediaFinder interface {
	GetByID(ctx context.Context, id uuid.UUID) (*MediaFile, error)
}

// AttachmentStore разрешает ссылки на загруженные файлы для результатов работы.
type AttachmentStore struct {
	media    MediaFinder
	rootPath string
	log      logrus.FieldLogger
}

// NewAttachmentStore создаёт хранилище вложений поверх каталога загрузок.
func NewAttachmentStore(media MediaFinder, rootPath string, log logrus.FieldLogger) (*AttachmentStore, error) {
	if err := os.MkdirAll(rootPath, 0o755); err != nil {
		return nil, fmt.Errorf("storage: не удалось создать каталог %s: %w", rootPath, err)
	}
	return &AttachmentStore{media: media, rootPath: rootPath, log: log}, nil
}

// Resolve находит файл владельца и определяет его MIME-тип по содержимому.
// Чужой файл неотличим от отсутствующего.
func (s *AttachmentStore) Resolve(ctx context.Context, fileRef uuid.UUID, ownerID uuid.UUID) (*entity.Attachment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	media, err := s.media.GetByID(ctx, fileRef)
	if err != nil {
		if errors.Is(err, ErrMediaNotFound) {
			return nil, apperror.ErrAttachmentNotFound
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить файл")
	}
	if media.UserID != ownerID {
		return nil, apperror.ErrAttachmentNotFound
	}

	mimeType, err := s.DetectMimeType(media.FilePath)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"file_ref": fileRef,
			"path":     media.FilePath,
		}).WithError(err).Warn("storage: не удалось определить тип файла по содержимому")
		mimeType = ""
	}
	if mimeType == "" {
		mimeType = media.FileType
	}
	if mimeType == "" {
		mimeType = defaultMimeType
	}

	return &entity.Attachment{
		ID:       media.ID,
		OwnerID:  media.UserID,
		FilePath: media.FilePath,
		MimeType: mimeType,
	}, nil
}

// DetectMimeType читает начало файла и возвращает MIME-тип.
// Для нераспознанного содержимого возвращает пустую строку.
func (s *AttachmentStore) DetectMimeType(relativePath string) (string, error) {
	target, err := s.safePath(relativePath)
	if err != nil {
		return "", err
	}

	f, err := os.Open(target)
	if err != nil {
		return "", fmt.Errorf("storage: не удалось открыть файл: %w", err)
	}
	defer f.Close()

	head := make([]byte, sniffBytes)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("storage: ошибка чтения файла: %w", err)
	}

	kind, err := filetype.Match(head[:n])
	if err != nil || kind == filetype.Unknown {
		return "", nil
	}
	return kind.MIME.Value, nil
}

// safePath не выпускает путь за пределы каталога загрузок.
func (s *AttachmentStore) safePath(relativePath string) (string, error) {
	clean := filepath.Clean("/" + relativePath)
	target := filepath.Join(s.rootPath, clean)
	root := filepath.Clean(s.rootPath)
	if target != root && !strings.HasPrefix(target, root+string(filepath.Separator)) {
		return "", fmt.Errorf("storage: недопустимый путь %q", relativePath)
	}
	return target, nil
}
