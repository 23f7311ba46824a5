package moq

import (
	"github.com/stinkydev/moqgo/internal/moqtest"
	"github.com/stinkydev/moqgo/quic"
)

// newFakeConnPair returns two in-memory quic.Connection implementations
// wired to each other, letting session_test.go run a real handshake and
// data exchange without a network or a QUIC stack.
func newFakeConnPair() (quic.Connection, quic.Connection) {
	return moqtest.NewPair()
}
