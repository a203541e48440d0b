package main

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, image.NewRGBA(image.Rect(0, 0, w, h))))
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := newApp(&out).Run(context.Background(), append([]string{"cardtool"}, args...))
	return out.String(), err
}

func TestScan(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "KAITO.png"), 10, 10)
	writePNG(t, filepath.Join(dir, "初音未来", "card_01.png"), 10, 10)

	out, err := run(t, "scan", "--asset-dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "初音未来/card_01.png")
	assert.Contains(t, out, "2 images, 2 characters")
}

func TestScan_MissingDirectory(t *testing.T) {
	_, err := run(t, "scan", "--asset-dir", filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	assetDir := filepath.Join(dir, "menu")
	writePNG(t, filepath.Join(assetDir, "KAITO.png"), 10, 10)
	aliasFile := filepath.Join(dir, "aliases.json")
	require.NoError(t, os.WriteFile(aliasFile, []byte(`{"KAITO": ["kaito"]}`), 0644))

	out, err := run(t, "validate", "--asset-dir", assetDir, "--alias-file", aliasFile)
	require.NoError(t, err)
	assert.Contains(t, out, "All inputs are valid")

	require.NoError(t, os.WriteFile(aliasFile, []byte(`[]`), 0644))
	_, err = run(t, "validate", "--asset-dir", assetDir, "--alias-file", aliasFile)
	assert.ErrorIs(t, err, errValidationFailed)
}

func TestTeaser(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "KAITO.png")
	writePNG(t, source, 300, 200)
	outDir := filepath.Join(dir, "out")

	out, err := run(t, "teaser", "--out", outDir, "--crop-size", "50", "--policy", "center", source)
	require.NoError(t, err)

	path := strings.TrimSpace(out)
	assert.True(t, strings.HasPrefix(path, outDir))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.Width)
	assert.Equal(t, 50, cfg.Height)
}

func TestTeaser_RequiresImage(t *testing.T) {
	_, err := run(t, "teaser")
	assert.Error(t, err)
}
