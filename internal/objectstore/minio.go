// Package objectstore загружает отчеты в S3-совместимое хранилище
// и строит их публичные ссылки.
package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/magabrotheeeer/interview-coach/internal/config"
)

// Store бакет объектного хранилища
type Store struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

// New создает клиента. Если public_base_url не задан, ссылки строятся от endpoint.
func New(cfg config.ObjectStorage) (*Store, error) {
	const op = "objectstore.New"

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	base := cfg.PublicBaseURL
	if base == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		base = fmt.Sprintf("%s://%s/%s", scheme, cfg.Endpoint, cfg.Bucket)
	}

	return &Store{client: client, bucket: cfg.Bucket, publicURL: strings.TrimRight(base, "/")}, nil
}

// EnsureBucket создает бакет, если его нет
func (s *Store) EnsureBucket(ctx context.Context) error {
	const op = "objectstore.EnsureBucket"

	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Upload кладет объект по ключу, перезаписывая существующий, и возвращает публичную ссылку
func (s *Store) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	const op = "objectstore.Upload"

	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return PublicURL(s.publicURL, key), nil
}

// PublicURL ссылка на объект с экранированием сегментов ключа
func PublicURL(base, key string) string {
	segments := strings.Split(key, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return strings.TrimRight(base, "/") + "/" + strings.Join(segments, "/")
}
