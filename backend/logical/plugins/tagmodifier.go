package plugins

// TagOperation is one step of a tagModifier plugin application, spec
// §4.4: "set / add / remove / convenience presets".
type TagOperation struct {
	Set    []string
	Add    []string
	Remove []string
}

// ApplyTagModifier rewrites tags per op, returning a fresh tag set.
// tagModifier operates on the virtual register's catalogue entry
// rather than its runtime accessor, since tags are catalogue metadata
// (catalogue.Info.Tags), not part of the transfer-element contract.
func ApplyTagModifier(tags map[string]struct{}, op TagOperation) map[string]struct{} {
	out := make(map[string]struct{})
	if len(op.Set) > 0 {
		for _, t := range op.Set {
			out[t] = struct{}{}
		}
		return out
	}
	for t := range tags {
		out[t] = struct{}{}
	}
	for _, t := range op.Add {
		out[t] = struct{}{}
	}
	for _, t := range op.Remove {
		delete(out, t)
	}
	return out
}
