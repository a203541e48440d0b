// Package validate checks the game's on-disk inputs before a server is
// started with them. It checks:
//   - the alias file parses as a flat JSON object of string arrays
//   - no canonical name or alias is blank
//   - the asset directory is readable and holds at least one image
//   - every image decodes
//   - every answer drawn from the asset directory has an alias entry
package validate

import (
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/wricardo/cardguess/game/assets"
	"github.com/wricardo/cardguess/game/config"
	"github.com/wricardo/cardguess/game/engine"
)

// ValidationResult captures the outcome of validating a single input.
// Warnings never make a result invalid; they report coverage gaps the
// server tolerates.
type ValidationResult struct {
	File     string
	Valid    bool
	Errors   []string
	Warnings []string
	Info     []string
}

func (r *ValidationResult) fail(format string, args ...interface{}) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// AliasFile loads and validates an alias file. The table is returned even
// when invalid so later checks can still run against what was parsed.
func AliasFile(path string) (ValidationResult, config.AliasTable) {
	result := ValidationResult{
		File:  filepath.Base(path),
		Valid: true,
	}

	table, err := config.ReadAliasFile(path)
	if err != nil {
		result.fail("%v", err)
		return result, nil
	}

	aliasCount := 0
	for name, aliases := range table {
		aliasCount += len(aliases)
		if len(aliases) == 0 {
			result.Warnings = append(result.Warnings, fmt.Sprintf("%s has no aliases, only the canonical name matches", name))
		}
		seen := make(map[string]bool)
		for _, alias := range aliases {
			key := engine.Normalize(alias)
			if seen[key] {
				result.Warnings = append(result.Warnings, fmt.Sprintf("%s lists alias %q more than once", name, alias))
			}
			seen[key] = true
		}
	}
	result.Info = append(result.Info, fmt.Sprintf("✓ %d characters, %d aliases", len(table), aliasCount))
	return result, table
}

// Pool scans an asset directory and checks that every image decodes and
// every answer has an alias entry in table. A nil table skips the coverage
// check.
func Pool(dir string, table config.AliasTable) ValidationResult {
	result := ValidationResult{
		File:  filepath.Base(filepath.Clean(dir)),
		Valid: true,
	}

	candidates, err := assets.Scan(dir)
	if err != nil {
		result.fail("%v", err)
		return result
	}
	if len(candidates) == 0 {
		result.fail("%v: no images in %s", engine.ErrPoolEmpty, dir)
		return result
	}

	for _, candidate := range candidates {
		if err := decodable(candidate.Path); err != nil {
			result.fail("%s: %v", candidate.ID, err)
		}
	}

	answers := assets.Answers(candidates)
	result.Info = append(result.Info, fmt.Sprintf("✓ %d images, %d characters", len(candidates), len(answers)))

	if table != nil {
		for _, answer := range answers {
			if _, ok := table[answer]; !ok {
				result.Warnings = append(result.Warnings, fmt.Sprintf("%s has no alias entry", answer))
			}
		}
	}
	return result
}

// Run validates the alias file and the asset directory together
func Run(assetDir, aliasFile string) []ValidationResult {
	aliasResult, table := AliasFile(aliasFile)
	return []ValidationResult{aliasResult, Pool(assetDir, table)}
}

// Print writes a report of results to w and reports whether all were valid
func Print(w io.Writer, results []ValidationResult) bool {
	allValid := true
	for _, result := range results {
		fmt.Fprintf(w, "\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Fprintln(w, "✅ VALID")
		} else {
			fmt.Fprintln(w, "❌ INVALID")
			allValid = false
		}
		for _, info := range result.Info {
			fmt.Fprintln(w, "  "+info)
		}
		for _, warning := range result.Warnings {
			fmt.Fprintln(w, "  ⚠️  "+warning)
		}
		for _, err := range result.Errors {
			fmt.Fprintln(w, "  ❌ "+err)
		}
	}

	fmt.Fprintf(w, "\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Fprintln(w, "✅ All inputs are valid!")
	} else {
		fmt.Fprintln(w, "❌ Some inputs have errors")
	}
	return allValid
}

// decodable reads only the image header; the decoders are registered by
// the assets package.
func decodable(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %v", engine.ErrAssetUnreadable, err)
	}
	defer f.Close()

	if _, _, err := image.DecodeConfig(f); err != nil {
		return fmt.Errorf("%w: %v", engine.ErrAssetUnreadable, err)
	}
	return nil
}
