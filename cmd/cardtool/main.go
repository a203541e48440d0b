// Command cardtool is an operator CLI for the card guessing game's inputs.
//
//	cardtool scan     list the candidates an asset directory yields
//	cardtool validate check the alias file against the asset directory
//	cardtool teaser   cut a teaser from one image, as a round would
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"
	"github.com/wricardo/cardguess/game/assets"
	"github.com/wricardo/cardguess/game/config"
	"github.com/wricardo/cardguess/validate"
)

var errValidationFailed = errors.New("validation failed")

func main() {
	_ = godotenv.Load()

	if err := newApp(os.Stdout).Run(context.Background(), os.Args); err != nil {
		logrus.Fatal(err)
	}
}

func assetDirFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "asset-dir",
		Usage:   "directory of card images",
		Value:   "menu",
		Sources: cli.EnvVars("ASSET_DIRECTORY"),
	}
}

func newApp(w io.Writer) *cli.Command {
	return &cli.Command{
		Name:   "cardtool",
		Usage:  "inspect and check card guessing game assets",
		Writer: w,
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "debug", Usage: "enable debug logging"},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			if cmd.Bool("debug") {
				logrus.SetLevel(logrus.DebugLevel)
			}
			return ctx, nil
		},
		Commands: []*cli.Command{
			{
				Name:   "scan",
				Usage:  "list the candidates found in the asset directory",
				Flags:  []cli.Flag{assetDirFlag()},
				Action: runScan,
			},
			{
				Name:  "validate",
				Usage: "check the alias file and asset directory",
				Flags: []cli.Flag{
					assetDirFlag(),
					&cli.StringFlag{
						Name:    "alias-file",
						Usage:   "alias file to check",
						Value:   "aliases.json",
						Sources: cli.EnvVars("ALIAS_FILE"),
					},
				},
				Action: runValidate,
			},
			{
				Name:      "teaser",
				Usage:     "generate a teaser crop of an image",
				ArgsUsage: "<image>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "out", Usage: "output directory", Value: "."},
					&cli.IntFlag{Name: "crop-size", Usage: "side of the square crop", Value: 200, Sources: cli.EnvVars("CROP_SIZE")},
					&cli.StringFlag{Name: "policy", Usage: "center or random", Value: config.CropRandom, Sources: cli.EnvVars("CROP_POLICY")},
					&cli.Uint64Flag{Name: "seed", Usage: "PRNG seed, 0 picks one", Sources: cli.EnvVars("SEED")},
				},
				Action: runTeaser,
			},
		},
	}
}

func runScan(ctx context.Context, cmd *cli.Command) error {
	candidates, err := assets.Scan(cmd.String("asset-dir"))
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(cmd.Root().Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ANSWER\tID")
	for _, candidate := range candidates {
		fmt.Fprintf(tw, "%s\t%s\n", candidate.Answer, candidate.ID)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(cmd.Root().Writer, "\n%d images, %d characters\n", len(candidates), len(assets.Answers(candidates)))
	return nil
}

func runValidate(ctx context.Context, cmd *cli.Command) error {
	results := validate.Run(cmd.String("asset-dir"), cmd.String("alias-file"))
	if !validate.Print(cmd.Root().Writer, results) {
		return errValidationFailed
	}
	return nil
}

func runTeaser(ctx context.Context, cmd *cli.Command) error {
	source := cmd.Args().First()
	if source == "" {
		return fmt.Errorf("teaser: an image path is required")
	}

	generator := assets.NewGenerator(assets.GeneratorOptions{
		Dir:      cmd.String("out"),
		CropSize: cmd.Int("crop-size"),
		Policy:   cmd.String("policy"),
		Seed:     cmd.Uint64("seed"),
	})

	path, err := generator.Generate(source)
	if err != nil {
		return err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	fmt.Fprintln(cmd.Root().Writer, abs)
	return nil
}
