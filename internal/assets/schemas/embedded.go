// Package schemasassets provides embedded JSON schemas for standalone
// binary behavior.
//
// Schemas are embedded at compile time so corpus validation works in
// installed binaries regardless of the working directory.
package schemasassets

import _ "embed"

// CorpusPassageSchema is the embedded reference-corpus passage schema.
//
//go:embed corpus-passage.schema.json
var CorpusPassageSchema []byte
