package catalogue

import "github.com/vdatab/devaccess/usertype"

// FundamentalKind is the coarse data-family a register holds.
type FundamentalKind uint8

const (
	Numeric FundamentalKind = iota
	Boolean
	StringKind
	NoData
)

// DataDescriptor captures the static shape of one register's data, per
// spec §3: fundamental kind, signedness, digit counts, and the raw and
// transport wire types.
type DataDescriptor struct {
	Fundamental       FundamentalKind
	IsIntegral        bool
	IsSigned          bool
	NDigits           int
	NFractionalDigits int
	// RawDataType is the exact wire word for registers that support
	// raw access (typically Int32); it is usertype.Void otherwise.
	RawDataType usertype.Kind
	// TransportLayerDataType is the type values travel as between the
	// backend and the accessor pipeline before any user-type
	// conversion is applied.
	TransportLayerDataType usertype.Kind
}

// SupportsRaw reports whether this descriptor names a usable raw wire type.
func (d DataDescriptor) SupportsRaw() bool {
	return d.RawDataType != usertype.Void
}

// NumericDescriptor builds a DataDescriptor for a numeric register with
// the given user type, fractional digit count and raw wire type.
func NumericDescriptor(userType usertype.Kind, nFractionalDigits int, rawType usertype.Kind) DataDescriptor {
	return DataDescriptor{
		Fundamental:            Numeric,
		IsIntegral:             userType.IsIntegral(),
		IsSigned:               userType.IsSigned(),
		NDigits:                digitsFor(userType),
		NFractionalDigits:      nFractionalDigits,
		RawDataType:            rawType,
		TransportLayerDataType: userType,
	}
}

// BooleanDescriptor builds a DataDescriptor for a single-bit boolean register.
func BooleanDescriptor() DataDescriptor {
	return DataDescriptor{
		Fundamental:            Boolean,
		TransportLayerDataType: usertype.Boolean,
		RawDataType:            usertype.Void,
	}
}

// StringDescriptor builds a DataDescriptor for a string register backed
// by a fixed-width raw byte area.
func StringDescriptor(rawType usertype.Kind) DataDescriptor {
	return DataDescriptor{
		Fundamental:            StringKind,
		TransportLayerDataType: usertype.String,
		RawDataType:            rawType,
	}
}

// VoidDescriptor builds a DataDescriptor for a register that carries no
// data (a pure trigger).
func VoidDescriptor() DataDescriptor {
	return DataDescriptor{Fundamental: NoData, TransportLayerDataType: usertype.Void, RawDataType: usertype.Void}
}

func digitsFor(k usertype.Kind) int {
	switch k {
	case usertype.Int8, usertype.Uint8:
		return 3
	case usertype.Int16, usertype.Uint16:
		return 5
	case usertype.Int32, usertype.Uint32:
		return 10
	case usertype.Int64, usertype.Uint64:
		return 20
	case usertype.Float32:
		return 7
	case usertype.Float64:
		return 15
	default:
		return 0
	}
}
