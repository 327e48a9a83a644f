package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadStatements(t *testing.T) {
	path := filepath.Join(t.TempDir(), "statements.txt")
	content := "Coffee at Starbucks for $5.50\n\n# weekend trip\nUber ride downtown $18.20\n   \n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	statements, err := readStatements(path)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"Coffee at Starbucks for $5.50",
		"Uber ride downtown $18.20",
	}, statements)
}

func TestReadStatementsMissingFile(t *testing.T) {
	_, err := readStatements(filepath.Join(t.TempDir(), "nope.txt"))
	assert.Error(t, err)
}
