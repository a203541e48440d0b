// Package config provides configuration management for the card guessing game.
//
// The config package handles:
//   - Loading the alias file (canonical answer -> accepted aliases)
//   - Creating the alias file with a built-in default set when it is missing
//   - Reading game settings from the environment
//   - Falling back to documented defaults for unsafe numeric settings
//
// Alias File Format:
//
// The alias file is a flat UTF-8 JSON object. Keys are canonical answers
// (case-sensitive), values are arrays of alias strings:
//
//	{
//	  "初音未来": ["miku", "初音"],
//	  "镜音连": ["len", "连"]
//	}
//
// The table is loaded once at startup and is read-only for the lifetime of
// the process.
//
// Usage:
//
//	settings, err := config.LoadSettings()
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	manager, err := config.NewManager(settings.AliasFile)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	aliases, err := manager.Aliases("初音未来")
//
// Environment:
//
// ASSET_DIRECTORY, ALIAS_FILE, TEASER_DIRECTORY, CROP_SIZE, CROP_POLICY,
// MAX_ATTEMPTS, TIMEOUT_SECONDS, SCOPE_ALLOW_LIST, SEED,
// POOL_RESCAN_INTERVAL and LOG_LEVEL. See Settings for defaults.
package config
