package wireproto

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPacketRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePacket(&buf, []byte("hello")))
	require.NoError(t, WriteFlush(&buf))

	r := bufio.NewReader(&buf)
	data, flush, err := ReadPacket(r)
	require.NoError(t, err)
	assert.False(t, flush)
	assert.Equal(t, "hello", string(data))

	_, flush, err = ReadPacket(r)
	require.NoError(t, err)
	assert.True(t, flush)
}

func TestWritePacketRejectsEmptyBody(t *testing.T) {
	var buf bytes.Buffer
	err := WritePacket(&buf, nil)
	assert.Error(t, err)
}

func TestHandshakeRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteHandshake(&buf, SupportedVersion, []Capability{CapQueue, CapWrite, CapGet1, CapMget}))

	hs, err := ReadHandshake(bufio.NewReader(&buf))
	require.NoError(t, err)
	assert.Equal(t, SupportedVersion, hs.Version)
	assert.True(t, hs.Supports(CapQueue))
	assert.True(t, hs.Supports(CapMget))
	assert.False(t, hs.Supports(Capability("bogus")))
}

func TestHandshakeRejectsIncompatibleMajor(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteHandshake(&buf, "v2.0.0", []Capability{CapQueue}))

	_, err := ReadHandshake(bufio.NewReader(&buf))
	assert.Error(t, err)
}

func TestQueueRecordRoundTrip(t *testing.T) {
	want := QueueRecord{
		PCNr:       3,
		HelperNr:   1,
		Mode:       0100644,
		AttrAction: 1,
		CRLFAction: 0,
		Ident:      0,
		Encoding:   "UTF-16",
		Name:       "src/main.go",
	}
	copy(want.OID[:], bytes.Repeat([]byte{0xab}, oidSize))

	got, err := DecodeQueueRecord(want.Encode())
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestDecodeQueueRecordRejectsShortBuffer(t *testing.T) {
	_, err := DecodeQueueRecord([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestResultRecordRoundTrip(t *testing.T) {
	want := ResultRecord{
		PCNr:       5,
		HelperNr:   2,
		ErrorClass: 1,
		Errno:      13,
		Stat: Stat{
			Dev: 64, Ino: 9182, UID: 1000, GID: 1000,
			Size: 4096, MtimeSec: 1700000000, MtimeNsec: 500, Mode: 0100644,
		},
	}
	got, err := DecodeResultRecord(want.Encode())
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestCommandRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCommand(&buf, CmdMget))

	cmd, err := ReadCommand(bufio.NewReader(&buf))
	require.NoError(t, err)
	assert.Equal(t, CmdMget, cmd)
}
