// Package storage stages uploaded files in the object-storage bucket and
// hands back their public references.
package storage

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"time"

	storage "github.com/supabase-community/storage-go"

	"image-studio-backend/internal/models"
)

var nonAlphanumeric = regexp.MustCompile(`[^A-Za-z0-9]`)

type Uploader struct {
	client        *storage.Client
	bucket        string
	publicBaseURL string
}

func NewUploader(supabaseURL, serviceKey, bucket, publicBaseURL string) *Uploader {
	baseURL := strings.TrimSuffix(supabaseURL, "/")
	client := storage.NewClient(baseURL+"/storage/v1", serviceKey, nil)

	return &Uploader{
		client:        client,
		bucket:        bucket,
		publicBaseURL: strings.TrimSuffix(publicBaseURL, "/"),
	}
}

// Store writes one file to the bucket and returns its public reference.
// Files are accepted verbatim: no dedup, no hashing, no size or type checks.
func (u *Uploader) Store(identity, filename string, data []byte, contentType string) (models.AssetRef, error) {
	key := ObjectKey(identity, filename, time.Now())

	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := u.client.UploadFile(u.bucket, key, bytes.NewReader(data), storage.FileOptions{
		ContentType: &contentType,
	})
	if err != nil {
		return models.AssetRef{}, fmt.Errorf("failed to store %s: %w", filename, err)
	}

	return models.AssetRef{URL: u.publicBaseURL + "/" + key}, nil
}

// ObjectKey derives the storage key for an upload. Keys embed the request
// time in milliseconds, so repeat uploads of the same filename land under
// distinct keys.
func ObjectKey(identity, filename string, at time.Time) string {
	return fmt.Sprintf("%s_%d_%s", SanitizeIdentity(identity), at.UnixMilli(), filename)
}

// SanitizeIdentity maps every character outside [A-Za-z0-9] to an
// underscore. An absent identity becomes the literal "anonymous".
func SanitizeIdentity(identity string) string {
	if identity == "" {
		return "anonymous"
	}
	return nonAlphanumeric.ReplaceAllString(identity, "_")
}
