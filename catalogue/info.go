package catalogue

import "github.com/vdatab/devaccess/regpath"

// AccessMode is a set of independent flags describing how a register
// may be transferred, per spec §3.
type AccessMode uint8

const (
	// Raw: the user buffer carries untransformed wire words. Only
	// legal when the backend exposes a raw type and is accessed with
	// that exact type.
	Raw AccessMode = 1 << iota
	// WaitForNewData: reads block until the backend pushes an update;
	// the accessor owns a queue of pending updates.
	WaitForNewData
)

// Has reports whether flag is set in m.
func (m AccessMode) Has(flag AccessMode) bool { return m&flag != 0 }

// With returns m with flag set.
func (m AccessMode) With(flag AccessMode) AccessMode { return m | flag }

// Info binds a path to its shape, data descriptor, access rights and tags.
type Info struct {
	Path        regpath.Path
	NChannels   int
	NElements   int // elements per channel
	NDimensions int // 0, 1, or 2
	Descriptor  DataDescriptor
	Supported   AccessMode
	Readable    bool
	Writeable   bool
	Tags        map[string]struct{}
}

// HasTag reports whether t is a member of info's tag set.
func (info Info) HasTag(t string) bool {
	_, ok := info.Tags[t]
	return ok
}

// WithTags returns a copy of info with its tag set replaced.
func (info Info) WithTags(tags map[string]struct{}) Info {
	info.Tags = tags
	return info
}

// CloneTags returns a fresh copy of info's tag set, safe to mutate
// without affecting the original Info.
func (info Info) CloneTags() map[string]struct{} {
	out := make(map[string]struct{}, len(info.Tags))
	for t := range info.Tags {
		out[t] = struct{}{}
	}
	return out
}
