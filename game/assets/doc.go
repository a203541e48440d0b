// Package assets manages the image side of the game: the candidate pool
// scanned from the asset directory, the teaser generator that crops a
// partial view out of a full image, and the reaper that deletes generated
// teasers once their round is over.
package assets
