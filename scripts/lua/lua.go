// Package lua embeds the Redis scripts used by the ledger backend.
package lua

import _ "embed"

// CommitScript validates and applies a staged ledger transaction atomically.
//
//go:embed commit.lua
var CommitScript string
