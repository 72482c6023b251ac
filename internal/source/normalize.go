package source

import (
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// chainPool holds transformer chains; a chain is stateful and must not be shared.
var chainPool = sync.Pool{
	New: func() any {
		return transform.Chain(
			norm.NFKC,
			width.Fold,                         // fullwidth digits and letters to ASCII
			runes.Remove(runes.In(unicode.Cf)), // zero-width and BOM characters
		)
	},
}

// Normalize folds extracted text into the plain form the event parser
// expects. Invalid UTF-8 is dropped.
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	s = strings.ToValidUTF8(s, "")

	tr := chainPool.Get().(transform.Transformer)
	out, _, err := transform.String(tr, s)
	tr.Reset()
	chainPool.Put(tr)
	if err != nil {
		return s
	}
	return out
}
