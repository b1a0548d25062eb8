package invoice

import (
	"context"
	"fmt"
	"io"
	"path"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"google.golang.org/api/option"
)

// GcsDocumentStore keeps documents in a Google Cloud Storage bucket. Keys are
// random UUIDs with the original file extension preserved.
type GcsDocumentStore struct {
	client *storage.Client
	bucket string
}

// NewGcsDocumentStore creates a store over the given bucket. With an empty
// credentialsFile the client uses Application Default Credentials.
func NewGcsDocumentStore(ctx context.Context, bucket string, credentialsFile string) (*GcsDocumentStore, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("could not create storage client: %w", err)
	}
	return &GcsDocumentStore{client: client, bucket: bucket}, nil
}

func (s *GcsDocumentStore) Put(ctx context.Context, fileName string, content []byte, contentType string) (string, error) {
	key := uuid.NewString() + path.Ext(fileName)

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(content); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("could not write document to bucket: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("could not finish document upload: %w", err)
	}
	return key, nil
}

func (s *GcsDocumentStore) Get(ctx context.Context, key string) ([]byte, error) {
	r, err := s.client.Bucket(s.bucket).Object(key).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not open document reader: %w", err)
	}
	defer r.Close()

	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("could not read document: %w", err)
	}
	return content, nil
}

func (s *GcsDocumentStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Bucket(s.bucket).Object(key).Delete(ctx); err != nil {
		return fmt.Errorf("could not delete document: %w", err)
	}
	return nil
}

func (s *GcsDocumentStore) SignedDownloadURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	url, err := s.client.Bucket(s.bucket).SignedURL(key, &storage.SignedURLOptions{
		Scheme:  storage.SigningSchemeV4,
		Method:  "GET",
		Expires: time.Now().Add(ttl),
	})
	if err != nil {
		return "", fmt.Errorf("could not sign download url: %w", err)
	}
	return url, nil
}

func (s *GcsDocumentStore) Close() error {
	return s.client.Close()
}
