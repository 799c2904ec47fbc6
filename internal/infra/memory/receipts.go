package memory

import (
	"context"
	"io"
	"strings"
	"sync"
)

// ReceiptStore keeps receipts in memory when no FTP server is configured.
type ReceiptStore struct {
	baseURL string

	mu    sync.RWMutex
	files map[string][]byte
}

func NewReceiptStore(baseURL string) *ReceiptStore {
	if baseURL == "" {
		baseURL = "memory://"
	}
	return &ReceiptStore{baseURL: strings.TrimSuffix(baseURL, "/") + "/", files: make(map[string][]byte)}
}

func (s *ReceiptStore) UploadReceipt(_ context.Context, name string, body io.Reader) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	s.files[name] = data
	s.mu.Unlock()
	return s.baseURL + name, nil
}

// File returns an uploaded receipt.
func (s *ReceiptStore) File(name string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.files[name]
	return data, ok
}
