// Package shareddummy implements the shared-dummy backend of spec
// §4.9: a file-backed shared-memory segment, keyed by a hash of
// (instance-id, absolute map-file path, user), so that independent
// processes attaching the same key observe the same register
// contents. Grounded on core_engine/hypervisor/paging.go's page-table
// mmap usage (the teacher maps guest RAM through a plain file
// descriptor) and on network/tap_device.go's raw-fd handling for the
// advisory-lock discipline around a shared kernel resource.
package shareddummy

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/edsrzf/mmap-go"
	"golang.org/x/sys/unix"

	"github.com/vdatab/devaccess/backend/numeric"
	"github.com/vdatab/devaccess/catalogue"
	"github.com/vdatab/devaccess/obslog"
)

// Key identifies a shared segment; two processes constructing the
// same Key attach the same underlying file.
type Key struct {
	InstanceID  string
	MapFilePath string // must be the absolute path per spec §4.9
	User        string
}

// segmentName hashes key into a filesystem-safe name, per spec §4.9's
// "keyed by a hash of (instance-id, absolute map-file path, user)".
func (k Key) segmentName() string {
	h := sha256.Sum256([]byte(k.InstanceID + "\x00" + k.MapFilePath + "\x00" + k.User))
	return "devaccess-dummy-" + hex.EncodeToString(h[:])
}

// Backend is the shared-dummy backend: a numeric.Backend whose
// AddressSpace is backed by a shared, file-mmap'd segment guarded by
// an OS advisory lock (golang.org/x/sys/unix.Flock) during open/size
// negotiation, and by the AddressSpace's own in-process mutex during
// individual transfers (spec §5's per-backend atomicity guarantee).
type Backend struct {
	*numeric.Backend
	file *os.File
	maps []mmap.MMap
}

// Open attaches (creating if absent) the shared segment identified by
// key, sized to hold every bar in barSizes, and constructs a
// shareddummy Backend exposing cat through layouts. dir is the
// directory backing segments are created in (e.g. "/dev/shm" or
// os.TempDir()).
func Open(dir string, key Key, barSizes map[int]int, cat *catalogue.Catalogue, layouts map[string]numeric.RegisterLayout, log *obslog.Logger) (*Backend, error) {
	total := 0
	order := make([]int, 0, len(barSizes))
	for bar, size := range barSizes {
		total += size
		order = append(order, bar)
	}
	sort.Ints(order)

	path := filepath.Join(dir, key.segmentName())
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, fmt.Errorf("shareddummy: open segment %s: %w", path, err)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX); err != nil {
		f.Close()
		return nil, fmt.Errorf("shareddummy: lock segment %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		unix.Flock(int(f.Fd()), unix.LOCK_UN)
		f.Close()
		return nil, err
	}
	if info.Size() < int64(total) {
		if err := f.Truncate(int64(total)); err != nil {
			unix.Flock(int(f.Fd()), unix.LOCK_UN)
			f.Close()
			return nil, fmt.Errorf("shareddummy: size segment %s: %w", path, err)
		}
	}
	unix.Flock(int(f.Fd()), unix.LOCK_UN)

	bars := make(map[int][]byte, len(order))
	maps := make([]mmap.MMap, 0, len(order))
	offset := int64(0)
	for _, bar := range order {
		size := barSizes[bar]
		m, err := mmap.MapRegion(f, size, mmap.RDWR, 0, offset)
		if err != nil {
			for _, prior := range maps {
				prior.Unmap()
			}
			f.Close()
			return nil, fmt.Errorf("shareddummy: mmap bar %d: %w", bar, err)
		}
		bars[bar] = m
		maps = append(maps, m)
		offset += int64(size)
	}

	space := numeric.NewAddressSpaceFromBars(bars)
	return &Backend{
		Backend: numeric.New(space, cat, layouts, log),
		file:    f,
		maps:    maps,
	}, nil
}

// Close unmaps the shared segment and closes the backing file. The
// segment itself persists on disk so other attached processes keep
// seeing its contents, per spec §4.9.
func (b *Backend) Close() error {
	for _, m := range b.maps {
		m.Unmap()
	}
	err := b.file.Close()
	if stateErr := b.Backend.Close(); stateErr != nil && err == nil {
		err = stateErr
	}
	return err
}
