package wire

import (
	"fmt"
	"io"

	"github.com/quic-go/quic-go/quicvarint"
)

// ControlMessageType tags the body of a record on a session's long-lived
// control stream.
type ControlMessageType byte

const (
	ControlAnnounce    ControlMessageType = 0x1
	ControlSubscribe   ControlMessageType = 0x2
	ControlUnsubscribe ControlMessageType = 0x3
)

// SubscribeControl is sent by a subscriber to request a track; TrackID is
// subscriber-chosen and echoed back by the publisher on every group stream
// for that subscription.
type SubscribeControl struct {
	TrackID       uint64
	BroadcastPath string
	TrackName     string
	Priority      uint8
}

// UnsubscribeControl cancels a previously issued SubscribeControl.
type UnsubscribeControl struct {
	TrackID uint64
}

// EncodeControlEnvelope writes a tagged, length-prefixed control record.
func EncodeControlEnvelope(w io.Writer, typ ControlMessageType, body []byte) error {
	b := make([]byte, 0, 1+quicvarint.Len(uint64(len(body)))+len(body))
	b = append(b, byte(typ))
	b = quicvarint.Append(b, uint64(len(body)))
	b = append(b, body...)
	_, err := w.Write(b)
	return err
}

// DecodeControlEnvelope reads the next tagged control record's type and raw
// body from r. As with DecodeFrame, r must be reused across every call for
// the life of the control stream rather than freshly wrapped each time.
func DecodeControlEnvelope(r quicvarint.Reader) (ControlMessageType, []byte, error) {
	tagBuf := make([]byte, 1)
	if _, err := io.ReadFull(r, tagBuf); err != nil {
		return 0, nil, err
	}
	n, err := quicvarint.Read(r)
	if err != nil {
		return 0, nil, fmt.Errorf("wire: read control body length: %w", err)
	}
	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return 0, nil, fmt.Errorf("wire: truncated control body: %w", err)
	}
	return ControlMessageType(tagBuf[0]), body, nil
}

func EncodeSubscribeControl(s SubscribeControl) []byte {
	pathBytes := []byte(s.BroadcastPath)
	nameBytes := []byte(s.TrackName)
	b := make([]byte, 0, 32+len(pathBytes)+len(nameBytes))
	b = quicvarint.Append(b, s.TrackID)
	b = quicvarint.Append(b, uint64(len(pathBytes)))
	b = append(b, pathBytes...)
	b = quicvarint.Append(b, uint64(len(nameBytes)))
	b = append(b, nameBytes...)
	b = append(b, s.Priority)
	return b
}

func DecodeSubscribeControl(body []byte) (SubscribeControl, error) {
	r := byteReader(&sliceReader{body})
	trackID, err := quicvarint.Read(r)
	if err != nil {
		return SubscribeControl{}, err
	}
	path, err := readVarBytes(r)
	if err != nil {
		return SubscribeControl{}, err
	}
	name, err := readVarBytes(r)
	if err != nil {
		return SubscribeControl{}, err
	}
	var prio [1]byte
	if _, err := io.ReadFull(r, prio[:]); err != nil {
		return SubscribeControl{}, err
	}
	return SubscribeControl{
		TrackID:       trackID,
		BroadcastPath: string(path),
		TrackName:     string(name),
		Priority:      prio[0],
	}, nil
}

func EncodeUnsubscribeControl(u UnsubscribeControl) []byte {
	return quicvarint.Append(nil, u.TrackID)
}

func DecodeUnsubscribeControl(body []byte) (UnsubscribeControl, error) {
	r := byteReader(&sliceReader{body})
	trackID, err := quicvarint.Read(r)
	if err != nil {
		return UnsubscribeControl{}, err
	}
	return UnsubscribeControl{TrackID: trackID}, nil
}

func readVarBytes(r quicvarint.Reader) ([]byte, error) {
	n, err := quicvarint.Read(r)
	if err != nil {
		return nil, err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}

// sliceReader adapts a []byte to io.Reader for the decode helpers above.
type sliceReader struct {
	b []byte
}

func (s *sliceReader) Read(p []byte) (int, error) {
	if len(s.b) == 0 {
		return 0, io.EOF
	}
	n := copy(p, s.b)
	s.b = s.b[n:]
	return n, nil
}
