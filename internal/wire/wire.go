// Package wire implements the binary framing used on MoQ data and control
// streams: group headers, length-prefixed frames, and announce records.
//
// Varints follow the QUIC variable-length integer encoding via
// quic-go/quicvarint rather than a hand-rolled codec, since quic-go is
// already required for the transport itself.
package wire

import (
	"bufio"
	"fmt"
	"io"

	"github.com/quic-go/quic-go/quicvarint"
)

// MaxFrameLength bounds a single frame's length prefix to guard against a
// corrupt or malicious peer claiming an unbounded allocation.
const MaxFrameLength = 64 << 20 // 64MiB

// GroupHeader is the fixed header written once at the start of every group
// stream: { group_sequence: varint, track_id: varint }.
type GroupHeader struct {
	GroupSequence uint64
	TrackID       uint64
}

// Encode writes the group header to w.
func (h GroupHeader) Encode(w io.Writer) error {
	b := make([]byte, 0, quicvarint.Len(h.GroupSequence)+quicvarint.Len(h.TrackID))
	b = quicvarint.Append(b, h.GroupSequence)
	b = quicvarint.Append(b, h.TrackID)
	_, err := w.Write(b)
	return err
}

// DecodeGroupHeader reads a group header from r. r must be the same reader
// (or wrap the same underlying stream) that any subsequent DecodeFrame
// calls on this stream will use — see NewReader.
func DecodeGroupHeader(r quicvarint.Reader) (GroupHeader, error) {
	seq, err := quicvarint.Read(r)
	if err != nil {
		return GroupHeader{}, fmt.Errorf("wire: read group_sequence: %w", err)
	}
	id, err := quicvarint.Read(r)
	if err != nil {
		return GroupHeader{}, fmt.Errorf("wire: read track_id: %w", err)
	}
	return GroupHeader{GroupSequence: seq, TrackID: id}, nil
}

// EncodeFrame writes a length-prefixed frame payload to w.
func EncodeFrame(w io.Writer, payload []byte) error {
	b := make([]byte, 0, quicvarint.Len(uint64(len(payload)))+len(payload))
	b = quicvarint.Append(b, uint64(len(payload)))
	b = append(b, payload...)
	_, err := w.Write(b)
	return err
}

// DecodeFrame reads one length-prefixed frame from r. It returns io.EOF
// verbatim when the stream ends cleanly between frames (graceful
// end-of-group), and a non-EOF error for a truncated frame (aborted group).
//
// r must be a single reader reused across every DecodeFrame call for the
// life of the stream (see NewReader): wrapping a fresh reader per call
// silently drops bytes it read ahead into its own internal buffer but
// didn't return.
func DecodeFrame(r quicvarint.Reader) ([]byte, error) {
	n, err := quicvarint.Read(r)
	if err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("wire: read frame length: %w", err)
	}
	if n > MaxFrameLength {
		return nil, fmt.Errorf("wire: frame length %d exceeds maximum %d", n, MaxFrameLength)
	}
	if n == 0 {
		return []byte{}, nil
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, fmt.Errorf("wire: truncated frame payload: %w", io.ErrUnexpectedEOF)
		}
		return nil, err
	}
	return payload, nil
}

// AnnounceRecord is the wire shape of a single announce event on the
// announce bus's control stream: { path: varint-len string, active: byte }.
type AnnounceRecord struct {
	Path   string
	Active bool
}

func (a AnnounceRecord) Encode(w io.Writer) error {
	pathBytes := []byte(a.Path)
	b := make([]byte, 0, quicvarint.Len(uint64(len(pathBytes)))+len(pathBytes)+1)
	b = quicvarint.Append(b, uint64(len(pathBytes)))
	b = append(b, pathBytes...)
	if a.Active {
		b = append(b, 1)
	} else {
		b = append(b, 0)
	}
	_, err := w.Write(b)
	return err
}

func DecodeAnnounceRecord(r quicvarint.Reader) (AnnounceRecord, error) {
	n, err := quicvarint.Read(r)
	if err != nil {
		return AnnounceRecord{}, err
	}
	path := make([]byte, n)
	if _, err := io.ReadFull(r, path); err != nil {
		return AnnounceRecord{}, fmt.Errorf("wire: truncated announce path: %w", err)
	}
	flag := make([]byte, 1)
	if _, err := io.ReadFull(r, flag); err != nil {
		return AnnounceRecord{}, fmt.Errorf("wire: truncated announce flag: %w", err)
	}
	return AnnounceRecord{Path: string(path), Active: flag[0] != 0}, nil
}

// NewReader adapts an io.Reader to quicvarint.Reader (io.ByteReader +
// io.Reader), buffering only when the underlying reader doesn't already
// implement ReadByte. Callers decoding more than one value from a
// long-lived stream (a group's frames, a session's control messages) must
// call this once and reuse the result — see DecodeFrame.
func NewReader(r io.Reader) quicvarint.Reader {
	return byteReader(r)
}

func byteReader(r io.Reader) quicvarint.Reader {
	if br, ok := r.(quicvarint.Reader); ok {
		return br
	}
	return bufio.NewReaderSize(r, 1)
}
