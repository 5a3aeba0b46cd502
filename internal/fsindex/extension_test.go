package fsindex

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitkit/parafs/internal/bitmap"
)

func TestTimestampRoundTrip(t *testing.T) {
	now := time.Unix(0, 1234567890)
	dirty := bitmap.New()
	dirty.Set(3)
	dirty.Set(70)

	e := NewFromTimestamp(now, dirty)
	encoded, err := e.Encode()
	require.NoError(t, err)

	decoded, err := Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, VersionTimestamp, decoded.Version)
	assert.Equal(t, now.UnixNano(), decoded.TimestampNanos)
	assert.Equal(t, dirty.Positions(), decoded.Dirty.Positions())
}

func TestTokenRoundTrip(t *testing.T) {
	e := NewFromToken(":internal:sid:9", bitmap.New())
	encoded, err := e.Encode()
	require.NoError(t, err)

	decoded, err := Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, VersionToken, decoded.Version)
	assert.Equal(t, ":internal:sid:9", decoded.Token)
}

func TestDecodeRejectsTruncatedHeader(t *testing.T) {
	_, err := Decode([]byte{0, 0})
	assert.Error(t, err)
}

func TestEncodeRejectsUnsupportedVersion(t *testing.T) {
	e := Extension{Version: 99}
	_, err := e.Encode()
	assert.Error(t, err)
}

func TestMintTokenFromTimestampMintsFreshSession(t *testing.T) {
	e := NewFromTimestamp(time.Now(), bitmap.New())
	tok := e.MintToken(func() string { return "new-session" })
	assert.Equal(t, "new-session", tok.SessionID)
	assert.Equal(t, uint64(0), tok.Seq)
}

func TestMintTokenFromOpaqueTokenPreservesIt(t *testing.T) {
	e := NewFromToken(":internal:keep-me:4", bitmap.New())
	tok := e.MintToken(func() string { t.Fatal("should not mint a new session"); return "" })
	assert.Equal(t, "keep-me", tok.SessionID)
	assert.Equal(t, uint64(4), tok.Seq)
}
