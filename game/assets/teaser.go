package assets

import (
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	"image/png"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/wricardo/cardguess/game/config"
	"github.com/wricardo/cardguess/game/engine"
)

// GeneratorOptions configures a teaser Generator
type GeneratorOptions struct {
	Dir      string // output directory for teaser files
	CropSize int
	Policy   string // config.CropCenter or config.CropRandom
	Seed     uint64 // 0 picks a random seed
	Reaper   *Reaper
}

// Generator produces square partial crops of source images
type Generator struct {
	dir      string
	cropSize int
	policy   string
	reaper   *Reaper

	rng   *rand.Rand
	rngMu sync.Mutex
}

// NewGenerator creates a teaser generator. Unknown policies fall back to random.
func NewGenerator(opts GeneratorOptions) *Generator {
	if opts.CropSize <= 0 {
		opts.CropSize = engine.DefaultCropSize
	}
	if opts.Policy != config.CropCenter {
		opts.Policy = config.CropRandom
	}
	if opts.Dir == "" {
		opts.Dir = filepath.Join(os.TempDir(), "cardguess")
	}
	seed := engine.SeedOrRandom(opts.Seed)

	return &Generator{
		dir:      opts.Dir,
		cropSize: opts.CropSize,
		policy:   opts.Policy,
		reaper:   opts.Reaper,
		rng:      rand.New(rand.NewPCG(seed, seed>>1|1)),
	}
}

// Dir returns the teaser output directory
func (g *Generator) Dir() string {
	return g.dir
}

// Generate crops sourcePath and writes the teaser as PNG, returning its path.
// The artifact is tracked by the reaper when one is configured.
func (g *Generator) Generate(sourcePath string) (string, error) {
	src, err := decodeImage(sourcePath)
	if err != nil {
		return "", err
	}

	rect := g.cropRect(src.Bounds())
	teaser := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	draw.Draw(teaser, teaser.Bounds(), src, rect.Min, draw.Src)

	if err := os.MkdirAll(g.dir, 0755); err != nil {
		return "", fmt.Errorf("create teaser directory: %w", err)
	}

	out := filepath.Join(g.dir, fmt.Sprintf("teaser_%s.png", uuid.NewString()))
	if err := writePNG(out, teaser); err != nil {
		os.Remove(out)
		return "", fmt.Errorf("%w: encode teaser for %s: %v", engine.ErrAssetUnreadable, sourcePath, err)
	}

	if g.reaper != nil {
		g.reaper.Track(out)
	}
	logrus.Debugf("Generated teaser %s from %s (%dx%d at %d,%d)",
		out, sourcePath, rect.Dx(), rect.Dy(), rect.Min.X, rect.Min.Y)
	return out, nil
}

// cropRect returns the square region to cut out of bounds. The side never
// exceeds the smaller image dimension, and a square source at least as large
// as the crop size loses one pixel so the teaser is never the whole card. An
// image smaller than the crop size gets the largest centred square.
func (g *Generator) cropRect(bounds image.Rectangle) image.Rectangle {
	w, h := bounds.Dx(), bounds.Dy()
	small := min(w, h) < g.cropSize
	side := min(g.cropSize, w, h)
	if !small && side == w && side == h && side > 1 {
		side--
	}

	var x, y int
	if g.policy == config.CropCenter || small {
		x = (w - side) / 2
		y = (h - side) / 2
	} else {
		g.rngMu.Lock()
		x = g.rng.IntN(w - side + 1)
		y = g.rng.IntN(h - side + 1)
		g.rngMu.Unlock()
	}

	origin := bounds.Min.Add(image.Pt(x, y))
	return image.Rectangle{Min: origin, Max: origin.Add(image.Pt(side, side))}
}

func decodeImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", engine.ErrAssetUnreadable, path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", engine.ErrAssetUnreadable, path, err)
	}
	if img.Bounds().Empty() {
		return nil, fmt.Errorf("%w: %s has no pixels", engine.ErrAssetUnreadable, path)
	}
	return img, nil
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
