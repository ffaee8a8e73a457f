package plugins

import "github.com/vdatab/devaccess/catalogue"

// ApplyTypeHint rewrites desc's advertised fundamental kind and
// integral/signed flags to hint, without altering transfer behaviour,
// per spec §4.4. Digit counts and raw/transport types are left as the
// underlying target declared them.
func ApplyTypeHint(desc catalogue.DataDescriptor, hint catalogue.FundamentalKind, isIntegral, isSigned bool) catalogue.DataDescriptor {
	desc.Fundamental = hint
	desc.IsIntegral = isIntegral
	desc.IsSigned = isSigned
	return desc
}
