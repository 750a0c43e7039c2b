package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.txt")
	require.NoError(t, os.WriteFile(src, []byte("hello world"), 0o600))

	n, err := copyFile(src, filepath.Join(dir, "out.txt"))
	require.NoError(t, err)
	assert.Equal(t, int64(11), n)

	got, err := os.ReadFile(filepath.Join(dir, "out.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(got))
}

func TestCopyFileMissingSource(t *testing.T) {
	_, err := copyFile(filepath.Join(t.TempDir(), "nope.txt"), filepath.Join(t.TempDir(), "out.txt"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestIngestFileRejectsUnsupportedType(t *testing.T) {
	_, err := ingestFile(context.Background(), "/tmp/slides.pptx")
	assert.ErrorContains(t, err, "unsupported file type")
}

func TestCommandsAreRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"ingest", "query", "delete", "stats", "mcp"} {
		assert.True(t, names[want], want)
	}
}

func TestQueryRequiresDocument(t *testing.T) {
	doc := queryCmd.Flags().Lookup("doc")
	require.NotNil(t, doc)
	assert.Equal(t, []string{"true"}, doc.Annotations[cobra.BashCompOneRequiredFlag])
}
