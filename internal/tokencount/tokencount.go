// Package tokencount provides a best-effort token estimate for upstream
// responses that omit usage counts.
package tokencount

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

var (
	once sync.Once
	enc  *tiktoken.Tiktoken
)

func encoding() *tiktoken.Tiktoken {
	once.Do(func() {
		e, err := tiktoken.GetEncoding("cl100k_base")
		if err == nil {
			enc = e
		}
	})
	return enc
}

// Estimate returns the token count of text, falling back to a
// characters/4 approximation if the tokenizer failed to initialize (e.g.
// no network access to fetch its vocabulary file).
func Estimate(text string) int {
	if text == "" {
		return 0
	}
	if e := encoding(); e != nil {
		return len(e.Encode(text, nil, nil))
	}
	return (len(text) + 3) / 4
}
