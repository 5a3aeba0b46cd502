package fsmonitor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenStringRoundTrip(t *testing.T) {
	tok := Token{SessionID: "abc123", Seq: 7}
	assert.Equal(t, ":internal:abc123:7", tok.String())

	parsed, ok := ParseToken(tok.String())
	assert.True(t, ok)
	assert.Equal(t, tok, parsed)
}

func TestParseTokenRejectsGarbage(t *testing.T) {
	for _, s := range []string{"", "/", "v1-deadbeef", ":internal:", ":internal:sid", ":internal:sid:notanumber"} {
		_, ok := ParseToken(s)
		assert.False(t, ok, "expected %q to be rejected", s)
	}
}
