package migrations

import "embed"

// Files exposes embedded SQL schema files, one directory per backend.
//
//go:embed postgres/*.sql sqlite/*.sql
var Files embed.FS
