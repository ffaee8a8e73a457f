// Package interrupt implements the async dispatch and interrupt
// handshake of spec §4.3: an InterruptDispatcher tree keyed by
// interrupt path, with the five acknowledge/enable handshake variants.
// Grounded on core_engine/devices/pic.go's 8259A ISR/IMR/OCW
// acknowledge-and-clear protocol, generalized from a fixed 8-line
// controller to an arbitrary-depth, declaratively-configured node.
package interrupt

import (
	"github.com/vdatab/devaccess/deverr"
)

// AckVariant is the acknowledge-register handshake of spec §4.3.
type AckVariant int

const (
	AckNone AckVariant = iota
	AckISR             // acknowledge by writing 1<<bit to ISR
	AckIAR             // acknowledge by writing 1<<bit to IAR; ISR retains the raw latch
	AckICR             // acknowledge by writing 1<<bit to ICR
)

// EnableVariant is the subscribe/unsubscribe handshake of spec §4.3.
type EnableVariant int

const (
	EnableNone EnableVariant = iota
	EnableSIECIE            // write 1<<bit to SIE to subscribe, CIE to unsubscribe
	EnableMasterBit         // a master-enable register set on first subscription, cleared on teardown
)

// HandshakeRegisters names the registers a node's handshake writes
// to; Ack/Enable select which of these are meaningful.
type HandshakeRegisters struct {
	ISR, IER, IAR, ICR, SIE, CIE, MER string
}

// NodeConfig is a controller-description entry for one dispatcher
// node, parsed (out of band, per spec §6) from an interrupt-controller
// description.
type NodeConfig struct {
	Bit       uint
	Ack       AckVariant
	Enable    EnableVariant
	Registers HandshakeRegisters
}

// Validate rejects configurations the spec names as logic errors: at
// most one ack variant and at most one enable variant per node.
func (c NodeConfig) Validate() error {
	if c.Ack != AckNone {
		set := 0
		for _, r := range []string{c.Registers.ISR, c.Registers.IAR, c.Registers.ICR} {
			if r != "" {
				set++
			}
		}
		if set > 1 {
			return deverr.Logicf("", "interrupt node declares more than one acknowledge register")
		}
	}
	if c.Enable != EnableNone {
		set := 0
		if c.Registers.SIE != "" || c.Registers.CIE != "" {
			set++
		}
		if c.Registers.MER != "" {
			set++
		}
		if set > 1 {
			return deverr.Logicf("", "interrupt node declares more than one enable variant")
		}
	}
	return nil
}

// RegisterWriter is the hardware write hook a node's handshake uses to
// touch ISR/IER/IAR/ICR/SIE/CIE/MER. Backends supply this over their
// own raw transport.
type RegisterWriter interface {
	WriteRegister(name string, value uint32) error
	ReadRegister(name string) (uint32, error)
}
