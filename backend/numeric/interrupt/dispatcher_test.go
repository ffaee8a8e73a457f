package interrupt_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vdatab/devaccess/backend/numeric/interrupt"
	"github.com/vdatab/devaccess/version"
)

type fakeWriter struct {
	written map[string]uint32
	values  map[string]uint32
}

func newFakeWriter() *fakeWriter {
	return &fakeWriter{written: make(map[string]uint32), values: make(map[string]uint32)}
}

func (w *fakeWriter) WriteRegister(name string, value uint32) error {
	w.written[name] = value
	return nil
}

func (w *fakeWriter) ReadRegister(name string) (uint32, error) {
	return w.values[name], nil
}

func TestNodeConfigValidateRejectsMultipleAckRegisters(t *testing.T) {
	cfg := interrupt.NodeConfig{
		Ack:       interrupt.AckISR,
		Registers: interrupt.HandshakeRegisters{ISR: "ISR", IAR: "IAR"},
	}
	require.Error(t, cfg.Validate())
}

func TestNodeConfigValidateAcceptsSingleAckRegister(t *testing.T) {
	cfg := interrupt.NodeConfig{
		Ack:       interrupt.AckISR,
		Registers: interrupt.HandshakeRegisters{ISR: "ISR"},
	}
	require.NoError(t, cfg.Validate())
}

func TestActivateWritesEnableOnlyWhenSubscribed(t *testing.T) {
	writer := newFakeWriter()
	cfg := interrupt.NodeConfig{
		Bit: 2, Ack: interrupt.AckNone, Enable: interrupt.EnableSIECIE,
		Registers: interrupt.HandshakeRegisters{SIE: "SIE"},
	}
	node, err := interrupt.NewNode(cfg, writer)
	require.NoError(t, err)

	require.NoError(t, node.Activate(context.Background(), nil))
	require.Empty(t, writer.written, "no subscriber yet, enable register must not be touched")

	node.Subscribe("a", 4)
	require.NoError(t, node.Activate(context.Background(), nil))
	require.Equal(t, uint32(1<<2), writer.written["SIE"])
}

func TestTriggerAcknowledgesAndBroadcasts(t *testing.T) {
	writer := newFakeWriter()
	cfg := interrupt.NodeConfig{
		Bit: 1, Ack: interrupt.AckISR,
		Registers: interrupt.HandshakeRegisters{ISR: "ISR"},
	}
	node, err := interrupt.NewNode(cfg, writer)
	require.NoError(t, err)
	queue := node.Subscribe("a", 4)

	v := version.Next()
	require.NoError(t, node.Trigger(v))
	require.Equal(t, uint32(1<<1), writer.written["ISR"])

	select {
	case update := <-queue:
		require.NoError(t, update.Err)
		require.True(t, update.Version.Equal(v))
	case <-time.After(time.Second):
		t.Fatal("no update delivered")
	}
}

func TestBroadcastDropsOldestOnFullQueue(t *testing.T) {
	node, err := interrupt.NewNode(interrupt.NodeConfig{}, nil)
	require.NoError(t, err)
	queue := node.Subscribe("a", 1)

	require.NoError(t, node.Trigger(version.Next()))
	second := version.Next()
	require.NoError(t, node.Trigger(second))

	update := <-queue
	require.True(t, update.Version.Equal(second), "full queue should have dropped the oldest update")
}

func TestPoisonDeliversErrorToSubscribersAndChildren(t *testing.T) {
	root, err := interrupt.NewNode(interrupt.NodeConfig{}, nil)
	require.NoError(t, err)
	child, err := root.Child(0, interrupt.NodeConfig{}, nil)
	require.NoError(t, err)

	rootQueue := root.Subscribe("r", 4)
	childQueue := child.Subscribe("c", 4)

	root.Poison("backend faulted")

	select {
	case u := <-rootQueue:
		require.Error(t, u.Err)
	case <-time.After(time.Second):
		t.Fatal("root subscriber never poisoned")
	}
	select {
	case u := <-childQueue:
		require.Error(t, u.Err)
	case <-time.After(time.Second):
		t.Fatal("child subscriber never poisoned")
	}
}

func TestUnsubscribeClosesQueue(t *testing.T) {
	node, err := interrupt.NewNode(interrupt.NodeConfig{}, nil)
	require.NoError(t, err)
	queue := node.Subscribe("a", 4)
	node.Unsubscribe("a")

	_, ok := <-queue
	require.False(t, ok)
}
