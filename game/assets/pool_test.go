package assets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wricardo/cardguess/game/engine"
)

func TestScan(t *testing.T) {
	dir := t.TempDir()
	writeTestImage(t, filepath.Join(dir, "初音未来.png"), 4, 4)
	writeTestImage(t, filepath.Join(dir, "KAITO.JPG"), 4, 4) // png bytes, extension is all that matters for scanning
	writeTestImage(t, filepath.Join(dir, "镜音连", "card_01.png"), 4, 4)
	writeTestImage(t, filepath.Join(dir, "镜音连", "card_02.jpeg"), 4, 4)
	writeTestImage(t, filepath.Join(dir, "deep", "nested", "x.png"), 4, 4)
	writeTestImage(t, filepath.Join(dir, ".hidden.png"), 4, 4)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))

	candidates, err := Scan(dir)
	require.NoError(t, err)

	ids := make([]string, len(candidates))
	for i, c := range candidates {
		ids[i] = c.ID
	}
	assert.Equal(t, []string{"KAITO.JPG", "初音未来.png", "镜音连/card_01.png", "镜音连/card_02.jpeg"}, ids)

	byID := make(map[string]engine.Candidate)
	for _, c := range candidates {
		byID[c.ID] = c
	}
	assert.Equal(t, "KAITO", byID["KAITO.JPG"].Answer)
	assert.Equal(t, "初音未来", byID["初音未来.png"].Answer)
	assert.Equal(t, "镜音连", byID["镜音连/card_01.png"].Answer)
	assert.Equal(t, filepath.Join(dir, "镜音连", "card_02.jpeg"), byID["镜音连/card_02.jpeg"].Path)

	assert.Equal(t, []string{"KAITO", "初音未来", "镜音连"}, Answers(candidates))
}

func TestScan_MissingDirectory(t *testing.T) {
	_, err := Scan(filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, engine.ErrConfigInvalid)
}

func TestPool_DrawEmpty(t *testing.T) {
	pool := NewPool(t.TempDir(), 1)
	n, err := pool.Rescan()
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = pool.Draw()
	assert.ErrorIs(t, err, engine.ErrPoolEmpty)
}

func TestPool_RescanReplacesWholesale(t *testing.T) {
	dir := t.TempDir()
	writeTestImage(t, filepath.Join(dir, "MEIKO.png"), 4, 4)

	pool := NewPool(dir, 7)
	n, err := pool.Rescan()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	c, err := pool.Draw()
	require.NoError(t, err)
	assert.Equal(t, "MEIKO", c.Answer)

	require.NoError(t, os.Remove(filepath.Join(dir, "MEIKO.png")))
	writeTestImage(t, filepath.Join(dir, "KAITO.png"), 4, 4)

	n, err = pool.Rescan()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, ok := pool.Lookup("MEIKO.png")
	assert.False(t, ok)
	c, ok = pool.Lookup("KAITO.png")
	assert.True(t, ok)
	assert.Equal(t, "KAITO", c.Answer)
	assert.Equal(t, []string{"KAITO"}, pool.Answers())
}

func TestPool_DrawDeterministicForSeed(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.png", "b.png", "c.png", "d.png", "e.png"} {
		writeTestImage(t, filepath.Join(dir, name), 2, 2)
	}

	draws := func(seed uint64) []string {
		pool := NewPool(dir, seed)
		_, err := pool.Rescan()
		require.NoError(t, err)
		var out []string
		for i := 0; i < 10; i++ {
			c, err := pool.Draw()
			require.NoError(t, err)
			out = append(out, c.ID)
		}
		return out
	}

	assert.Equal(t, draws(42), draws(42))
}

func TestPool_ListIsCopy(t *testing.T) {
	dir := t.TempDir()
	writeTestImage(t, filepath.Join(dir, "a.png"), 2, 2)
	pool := NewPool(dir, 1)
	_, err := pool.Rescan()
	require.NoError(t, err)

	list := pool.List()
	list[0].Answer = "changed"
	assert.Equal(t, "a", pool.List()[0].Answer)
	assert.Equal(t, 1, pool.Len())
}

func TestIsImage(t *testing.T) {
	assert.True(t, IsImage("a.PNG"))
	assert.True(t, IsImage("a.jpeg"))
	assert.True(t, IsImage("a.Jpg"))
	assert.False(t, IsImage("a.gif"))
	assert.False(t, IsImage("png"))
}
