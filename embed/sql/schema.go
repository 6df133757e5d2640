package sql

import _ "embed"

// Schema creates the key-value table backing the ledger.
//
//go:embed schema.sql
var Schema string
