package phpserialize

import (
	"fmt"
	"strings"
)

// Pair is a single key/value entry. Order of pairs is preserved verbatim
// in the output; callers are responsible for sorting.
type Pair struct {
	Key   string
	Value string
}

// MarshalStringMap serializes ordered string pairs as a PHP associative
// array: a:N:{s:len:"key";s:len:"value";...}.
//
// Lengths are byte lengths, not rune counts, matching PHP's serialize()
// on raw byte strings. The output must stay bit-exact with the reference:
// webhook signatures are computed over exactly this representation, so any
// deviation invalidates every signature.
func MarshalStringMap(pairs []Pair) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "a:%d:{", len(pairs))
	for _, p := range pairs {
		writeString(&b, p.Key)
		writeString(&b, p.Value)
	}
	b.WriteString("}")
	return []byte(b.String())
}

func writeString(b *strings.Builder, s string) {
	fmt.Fprintf(b, "s:%d:\"%s\";", len(s), s)
}
