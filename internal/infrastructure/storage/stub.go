// Package storage provides object storage implementations for file operations.
package storage

import (
	"context"
	"errors"
	"sync"
	"time"

	knowledgeapp "github.com/chatforge/backend/internal/application/knowledge"
)

// StubObjectStorage is an in-memory implementation of ObjectStorageService.
// Objects uploaded through Upload are kept in a map so the ingestion flow
// works end to end without a real backend. Use this for development and
// tests; production deployments configure S3-compatible storage.
type StubObjectStorage struct {
	// BaseURL is the base URL for generating upload/download URLs
	// Defaults to "https://storage.example.com" if not set
	BaseURL string

	mu      sync.RWMutex
	objects map[string][]byte
}

// NewStubObjectStorage creates a new StubObjectStorage
func NewStubObjectStorage() *StubObjectStorage {
	return &StubObjectStorage{
		BaseURL: "https://storage.example.com",
		objects: make(map[string][]byte),
	}
}

// Ensure StubObjectStorage implements ObjectStorageService
var _ knowledgeapp.ObjectStorageService = (*StubObjectStorage)(nil)

// Upload stores the object in memory
func (s *StubObjectStorage) Upload(ctx context.Context, storageKey string, data []byte, contentType string) error {
	if storageKey == "" {
		return errors.New("storage key is required")
	}

	buf := make([]byte, len(data))
	copy(buf, data)

	s.mu.Lock()
	s.objects[storageKey] = buf
	s.mu.Unlock()

	return nil
}

// Download returns a previously uploaded object
func (s *StubObjectStorage) Download(ctx context.Context, storageKey string) ([]byte, error) {
	if storageKey == "" {
		return nil, errors.New("storage key is required")
	}

	s.mu.RLock()
	data, ok := s.objects[storageKey]
	s.mu.RUnlock()

	if !ok {
		return nil, errors.New("object not found: " + storageKey)
	}

	buf := make([]byte, len(data))
	copy(buf, data)
	return buf, nil
}

// GenerateUploadURL generates a stub presigned URL for uploading a file
func (s *StubObjectStorage) GenerateUploadURL(
	ctx context.Context,
	storageKey, contentType string,
	expiresIn time.Duration,
) (string, time.Time, error) {
	if storageKey == "" {
		return "", time.Time{}, errors.New("storage key is required")
	}

	expiresAt := time.Now().Add(expiresIn)
	url := s.BaseURL + "/upload/" + storageKey + "?expires=" + expiresAt.Format(time.RFC3339)

	return url, expiresAt, nil
}

// GenerateDownloadURL generates a stub presigned URL for downloading a file
func (s *StubObjectStorage) GenerateDownloadURL(
	ctx context.Context,
	storageKey string,
	expiresIn time.Duration,
) (string, time.Time, error) {
	if storageKey == "" {
		return "", time.Time{}, errors.New("storage key is required")
	}

	expiresAt := time.Now().Add(expiresIn)
	url := s.BaseURL + "/download/" + storageKey + "?expires=" + expiresAt.Format(time.RFC3339)

	return url, expiresAt, nil
}

// DeleteObject removes the object from memory if present
func (s *StubObjectStorage) DeleteObject(ctx context.Context, storageKey string) error {
	if storageKey == "" {
		return errors.New("storage key is required")
	}

	s.mu.Lock()
	delete(s.objects, storageKey)
	s.mu.Unlock()

	return nil
}

// ObjectExists reports whether an object was uploaded through this stub.
// Keys never seen are still reported as existing so the presigned-upload
// confirmation flow keeps working during development.
func (s *StubObjectStorage) ObjectExists(ctx context.Context, storageKey string) (bool, error) {
	if storageKey == "" {
		return false, errors.New("storage key is required")
	}
	return true, nil
}
