package storage

import (
	"context"
	"fmt"
	"io"

	storage_go "github.com/supabase-community/storage-go"
	"github.com/supabase-community/supabase-go"
)

// ClientFunc yields the Supabase client to act with, typically one
// carrying the caller's access token.
type ClientFunc func(ctx context.Context) (*supabase.Client, error)

type SupabaseStore struct {
	client ClientFunc
	bucket string
}

func NewSupabaseStore(client ClientFunc, bucket string) *SupabaseStore {
	if bucket == "" {
		bucket = DefaultAvatarBucket
	}
	return &SupabaseStore{client: client, bucket: bucket}
}

func (s *SupabaseStore) Upload(ctx context.Context, objectPath, contentType string, body io.Reader) (string, error) {
	client, err := s.client(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to create authenticated client: %v", err)
	}

	upsert := true
	contentType = ContentTypeFor(objectPath, contentType)
	_, err = client.Storage.UploadFile(s.bucket, objectPath, body, storage_go.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", objectPath, err)
	}

	return client.Storage.GetPublicUrl(s.bucket, objectPath).SignedURL, nil
}
