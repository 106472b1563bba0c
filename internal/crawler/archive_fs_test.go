package crawler

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestFileSystemArchiveSavePage(t *testing.T) {
	dir := t.TempDir()
	archive, err := NewFileSystemArchive(dir, 1024, zap.NewNop())
	require.NoError(t, err)

	page := Page{
		URL:  "https://pref.example.jp/nyusatsu/r8_eizo.html?page=1",
		Body: []byte("<html>公告</html>"),
	}
	path, err := archive.SavePage(context.Background(), page)
	require.NoError(t, err)
	require.Equal(t, ".html", filepath.Ext(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, page.Body, data)
}

func TestFileSystemArchiveNamesPDFs(t *testing.T) {
	archive, err := NewFileSystemArchive(t.TempDir(), 1024, zap.NewNop())
	require.NoError(t, err)

	page := Page{
		URL:     "https://pref.example.jp/docs/youkou.pdf",
		Headers: map[string][]string{"Content-Type": {"application/pdf"}},
		Body:    []byte("%PDF-1.4"),
	}
	path, err := archive.SavePage(context.Background(), page)
	require.NoError(t, err)
	require.Equal(t, ".pdf", filepath.Ext(path))
}

func TestFileSystemArchiveRejectsOversizedPage(t *testing.T) {
	archive, err := NewFileSystemArchive(t.TempDir(), 4, zap.NewNop())
	require.NoError(t, err)

	_, err = archive.SavePage(context.Background(), Page{
		URL:  "https://pref.example.jp/big.html",
		Body: []byte("<html>too large</html>"),
	})
	require.Error(t, err)
}
