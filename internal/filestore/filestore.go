// Package filestore keeps a content-addressed cache of test files that are
// referenced by URL instead of being sent inline.
package filestore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	"github.com/puzpuzpuz/xsync/v3"
)

var ErrNotScheduled = errors.New("file has not been scheduled for download")

type entry struct {
	url  string
	once sync.Once
	done chan struct{}
	err  error
}

type FileStore struct {
	fileDir  string
	downlDir string

	client *http.Client
	logger *slog.Logger

	entries   *xsync.MapOf[string, *entry]
	awaited   chan string
	scheduled chan string
}

type Option func(*FileStore)

func WithHTTPClient(c *http.Client) Option {
	return func(fs *FileStore) { fs.client = c }
}

func WithLogger(l *slog.Logger) Option {
	return func(fs *FileStore) { fs.logger = l }
}

// New creates a store that keeps verified files in fileDir and partial
// downloads in downlDir. Start must be running for Await to make progress.
func New(fileDir string, downlDir string, opts ...Option) *FileStore {
	fs := &FileStore{
		fileDir:   fileDir,
		downlDir:  downlDir,
		client:    http.DefaultClient,
		logger:    slog.Default(),
		entries:   xsync.NewMapOf[string, *entry](),
		awaited:   make(chan string, 10000),
		scheduled: make(chan string, 10000),
	}
	for _, opt := range opts {
		opt(fs)
	}
	return fs
}

// Schedule queues a download of url under its sha256 key. Scheduling the
// same key twice is a no-op.
func (fs *FileStore) Schedule(key string, url string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	if strings.TrimSpace(url) == "" {
		return fmt.Errorf("empty url for file %s", key)
	}

	_, loaded := fs.entries.LoadOrCompute(key, func() *entry {
		return &entry{url: url, done: make(chan struct{})}
	})
	if loaded {
		return nil
	}

	fs.scheduled <- key
	return nil
}

// Await blocks until the file is downloaded and verified and returns its
// content.
func (fs *FileStore) Await(key string) ([]byte, error) {
	return fs.AwaitContext(context.Background(), key)
}

func (fs *FileStore) AwaitContext(ctx context.Context, key string) ([]byte, error) {
	e, ok := fs.entries.Load(key)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotScheduled, key)
	}

	// move it to the front of the queue
	select {
	case fs.awaited <- key:
	default:
	}

	select {
	case <-e.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if e.err != nil {
		return nil, e.err
	}

	data, err := os.ReadFile(filepath.Join(fs.fileDir, key))
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", key, err)
	}
	return data, nil
}

// Start downloads scheduled files until ctx is cancelled, preferring files
// that somebody is waiting for.
func (fs *FileStore) Start(ctx context.Context) error {
	if err := os.MkdirAll(fs.fileDir, 0o755); err != nil {
		return fmt.Errorf("failed to create file store directory: %w", err)
	}
	if err := os.MkdirAll(fs.downlDir, 0o755); err != nil {
		return fmt.Errorf("failed to create download directory: %w", err)
	}

	for {
		var key string
		select {
		case key = <-fs.awaited:
		default:
			select {
			case key = <-fs.awaited:
			case key = <-fs.scheduled:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		fs.process(key)
	}
}

func (fs *FileStore) process(key string) {
	e, ok := fs.entries.Load(key)
	if !ok {
		return
	}
	e.once.Do(func() {
		e.err = fs.downloadIfDoesNotExist(key, e.url)
		if e.err != nil {
			fs.logger.Warn("file download failed", "key", key, "url", e.url, "error", e.err)
			// allow a later Schedule to retry
			fs.entries.Delete(key)
		}
		close(e.done)
	})
}

func (fs *FileStore) downloadIfDoesNotExist(key string, url string) error {
	filePath := filepath.Join(fs.fileDir, key)
	if _, err := os.Stat(filePath); err == nil {
		return nil
	}

	tmpPath := filepath.Join(fs.downlDir, key+"."+uuid.NewString())
	defer os.Remove(tmpPath)

	if err := fs.download(url, tmpPath, key); err != nil {
		return fmt.Errorf("failed to download file %s: %w", key, err)
	}
	if err := os.Rename(tmpPath, filePath); err != nil {
		return fmt.Errorf("failed to move file %s to file store: %w", key, err)
	}
	return nil
}

func (fs *FileStore) download(url string, path string, wantSha256 string) error {
	resp, err := fs.client.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	var body io.Reader = resp.Body
	if isZstd(url, resp.Header.Get("Content-Type")) {
		dec, err := zstd.NewReader(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to create zstd decoder: %w", err)
		}
		defer dec.Close()
		body = dec
	}

	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer out.Close()

	h := sha256.New()
	if _, err := io.Copy(io.MultiWriter(out, h), body); err != nil {
		return err
	}
	if got := hex.EncodeToString(h.Sum(nil)); !strings.EqualFold(got, wantSha256) {
		return fmt.Errorf("sha256 mismatch: expected %s, got %s", wantSha256, got)
	}
	return out.Close()
}

func isZstd(url string, contentType string) bool {
	return strings.HasSuffix(url, ".zst") || strings.HasPrefix(contentType, "application/zstd")
}

func validateKey(key string) error {
	b, err := hex.DecodeString(key)
	if err != nil || len(b) != sha256.Size {
		return fmt.Errorf("invalid sha256 key %q", key)
	}
	return nil
}
