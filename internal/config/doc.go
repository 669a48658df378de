// Package config loads, normalizes, and validates tubenote configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// SUPADATA_API_KEY, NOTION_TOKEN, and AI_MODEL. The Config struct is built once
// at process start and handed to every collaborator; nothing else reads the
// environment.
package config
