package rebot_test

import (
	"context"
	"encoding/binary"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vdatab/devaccess/accessor"
	"github.com/vdatab/devaccess/backend/numeric"
	"github.com/vdatab/devaccess/backend/rebot"
	"github.com/vdatab/devaccess/catalogue"
	"github.com/vdatab/devaccess/obslog"
	"github.com/vdatab/devaccess/regpath"
	"github.com/vdatab/devaccess/usertype"
)

// fakeServer is a minimal rebot server grounded on
// core_engine/devices/ne2000.go's request/response loop style: accept
// one connection, answer hello with welcome, then serve reads/writes
// against an in-memory word store until the connection closes.
type fakeServer struct {
	ln    net.Listener
	store map[uint32]uint32
}

func startFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	s := &fakeServer{ln: ln, store: make(map[uint32]uint32)}
	go s.serve()
	return s
}

func (s *fakeServer) serve() {
	conn, err := s.ln.Accept()
	if err != nil {
		return
	}
	defer conn.Close()

	header := make([]byte, 16)
	if _, err := io.ReadFull(conn, header); err != nil {
		return
	}
	// hello -> welcome
	welcome := make([]byte, 16)
	binary.LittleEndian.PutUint32(welcome[0:], uint32(rebotOpWelcome))
	binary.LittleEndian.PutUint32(welcome[4:], 0xABCD)
	binary.LittleEndian.PutUint32(welcome[8:], rebot.ProtocolVersion)
	conn.Write(welcome)

	for {
		if _, err := io.ReadFull(conn, header); err != nil {
			return
		}
		opcode := binary.LittleEndian.Uint32(header[0:])
		address := binary.LittleEndian.Uint32(header[4:])
		lengthOrValue := binary.LittleEndian.Uint32(header[8:])
		bar := binary.LittleEndian.Uint32(header[12:])
		_ = bar
		switch opcode {
		case rebotOpRead:
			resp := make([]byte, 16)
			binary.LittleEndian.PutUint32(resp[0:], uint32(rebotOpData))
			conn.Write(resp)
			payload := make([]byte, lengthOrValue*4)
			for i := uint32(0); i < lengthOrValue; i++ {
				binary.LittleEndian.PutUint32(payload[i*4:], s.store[address+i])
			}
			conn.Write(payload)
		case rebotOpWrite:
			payload := make([]byte, lengthOrValue*4)
			if _, err := io.ReadFull(conn, payload); err != nil {
				return
			}
			for i := uint32(0); i < lengthOrValue; i++ {
				s.store[address+i] = binary.LittleEndian.Uint32(payload[i*4:])
			}
			ack := make([]byte, 16)
			binary.LittleEndian.PutUint32(ack[0:], uint32(rebotOpAck))
			conn.Write(ack)
		default:
			return
		}
	}
}

// Opcode values of protocol.go's exported Op* constants, repeated here
// as untyped constants.
const (
	rebotOpHello    = 0
	rebotOpWelcome  = 1
	rebotOpRead     = 2
	rebotOpWrite    = 3
	rebotOpAck      = 4
	rebotOpData     = 5
	rebotOpHeartbeat = 6
)

func scalarRegister(path string) (*catalogue.Catalogue, map[string]numeric.RegisterLayout) {
	p := regpath.New(path)
	cat := catalogue.New()
	cat.Add(catalogue.Info{
		Path:       p,
		NChannels:  1,
		NElements:  1,
		Descriptor: catalogue.NumericDescriptor(usertype.Int64, 0, usertype.Int32),
		Readable:   true,
		Writeable:  true,
	})
	layouts := map[string]numeric.RegisterLayout{
		path: {Bar: 0, ByteAddress: 0, ByteSize: 4, Channels: []numeric.ChannelLayout{{Width: 32, Signed: true}}},
	}
	return cat, layouts
}

func TestRebotBackendReadWriteRoundTrip(t *testing.T) {
	server := startFakeServer(t)
	defer server.ln.Close()

	cat, layouts := scalarRegister("/rebot/reg")
	b := rebot.New(server.ln.Addr().String(), time.Second, cat, layouts, obslog.NewNop())
	require.NoError(t, b.Open(context.Background()))
	defer b.Close()

	reg, err := b.ScalarAccessorInt64(regpath.New("/rebot/reg"), catalogue.AccessMode(0))
	require.NoError(t, err)
	require.NoError(t, accessor.WriteScalar[int64](context.Background(), reg, 55))

	v, err := accessor.ReadScalar[int64](context.Background(), reg)
	require.NoError(t, err)
	require.Equal(t, int64(55), v)
}
