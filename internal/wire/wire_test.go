package wire

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupHeaderRoundTrip(t *testing.T) {
	h := GroupHeader{GroupSequence: 5, TrackID: 42}
	var buf bytes.Buffer
	require.NoError(t, h.Encode(&buf))

	got, err := DecodeGroupHeader(&buf)
	require.NoError(t, err)
	assert.Equal(t, h, got)
}

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeFrame(&buf, []byte("hello")))
	require.NoError(t, EncodeFrame(&buf, []byte{}))

	f1, err := DecodeFrame(&buf)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), f1)

	f2, err := DecodeFrame(&buf)
	require.NoError(t, err)
	assert.Equal(t, []byte{}, f2)

	_, err = DecodeFrame(&buf)
	assert.ErrorIs(t, err, io.EOF)
}

func TestFrameTruncatedPayloadIsAborted(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeFrame(&buf, []byte("hello world")))
	truncated := buf.Bytes()[:3]

	_, err := DecodeFrame(bytes.NewReader(truncated))
	require.Error(t, err)
	assert.NotErrorIs(t, err, io.EOF)
}

func TestFrameLengthExceedsMaximum(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeFrame(&bytes.Buffer{}, nil))
	buf.Write([]byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}) // varint(0x3FFFFFFFFFFFFFFF)

	_, err := DecodeFrame(&buf)
	require.Error(t, err)
}

func TestAnnounceRecordRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	rec := AnnounceRecord{Path: "/live/cam1", Active: true}
	require.NoError(t, rec.Encode(&buf))

	got, err := DecodeAnnounceRecord(&buf)
	require.NoError(t, err)
	assert.Equal(t, rec, got)
}
