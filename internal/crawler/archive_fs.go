package crawler

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

var invalidFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// FileSystemArchive saves raw page snapshots to disk for debugging crawls.
type FileSystemArchive struct {
	root     string
	maxBytes int64
	logger   *zap.Logger
}

// NewFileSystemArchive returns an archive rooted at dir.
func NewFileSystemArchive(root string, maxBytes int64, logger *zap.Logger) (*FileSystemArchive, error) {
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create archive dir %s: %w", root, err)
	}
	return &FileSystemArchive{
		root:     root,
		maxBytes: maxBytes,
		logger:   logger,
	}, nil
}

// SavePage writes the page body to disk and returns the target path.
func (a *FileSystemArchive) SavePage(ctx context.Context, page Page) (string, error) {
	if len(page.Body) == 0 {
		return "", fmt.Errorf("empty page body")
	}
	if a.maxBytes > 0 && int64(len(page.Body)) > a.maxBytes {
		return "", fmt.Errorf("page size %d exceeds max %d", len(page.Body), a.maxBytes)
	}
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("context canceled: %w", err)
	}

	ext := ".html"
	if IsPDFURL(pageAddress(page)) {
		ext = ".pdf"
	}
	target := filepath.Join(a.root, safeBasename(pageAddress(page))+ext)

	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return "", fmt.Errorf("creating archive dir for %s: %w", target, err)
	}
	if err := os.WriteFile(target, page.Body, 0o600); err != nil {
		return "", fmt.Errorf("writing snapshot to %s: %w", target, err)
	}
	return target, nil
}

func safeBasename(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return hashURL(raw)
	}
	host := invalidFilenameChars.ReplaceAllString(u.Hostname(), "_")
	p := strings.Trim(u.EscapedPath(), "/")
	if p == "" {
		p = "root"
	}
	p = invalidFilenameChars.ReplaceAllString(p, "_")
	return fmt.Sprintf("%s_%s_%s", host, p, hashURL(raw)[:16])
}

func hashURL(raw string) string {
	sum := sha1.Sum([]byte(raw))
	return hex.EncodeToString(sum[:])
}
