package ftp

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/jlaffaye/ftp"
)

// ReceiptStore uploads receipts to an FTP server and serves them from baseURL.
type ReceiptStore struct {
	addr     string
	user     string
	password string
	baseURL  string
	timeout  time.Duration

	mu   sync.Mutex
	conn *ftp.ServerConn
}

func NewReceiptStore(host, port, user, password, baseURL string) *ReceiptStore {
	return &ReceiptStore{
		addr:     host + ":" + port,
		user:     user,
		password: password,
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		timeout:  10 * time.Second,
	}
}

func (s *ReceiptStore) connect(ctx context.Context) error {
	conn, err := ftp.Dial(s.addr, ftp.DialWithTimeout(s.timeout), ftp.DialWithContext(ctx))
	if err != nil {
		return fmt.Errorf("connect to ftp: %w", err)
	}
	if err := conn.Login(s.user, s.password); err != nil {
		_ = conn.Quit()
		return fmt.Errorf("login to ftp: %w", err)
	}
	s.conn = conn
	return nil
}

// UploadReceipt stores body at name and returns its public URL. A broken
// connection is re-established once.
func (s *ReceiptStore) UploadReceipt(ctx context.Context, name string, body io.Reader) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		if err := s.connect(ctx); err != nil {
			return "", err
		}
	} else if err := s.conn.NoOp(); err != nil {
		_ = s.conn.Quit()
		if err := s.connect(ctx); err != nil {
			return "", err
		}
	}

	if dir := path.Dir(name); dir != "." {
		// exists already on every upload after the first
		_ = s.conn.MakeDir(dir)
	}
	if err := s.conn.Stor(name, body); err != nil {
		return "", fmt.Errorf("upload receipt: %w", err)
	}
	return s.baseURL + "/" + name, nil
}

// Close ends the FTP session.
func (s *ReceiptStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	err := s.conn.Quit()
	s.conn = nil
	return err
}
