// Package consistencygroup implements the data consistency group of
// spec §4.6: a set of named accessors whose freshly read values are
// declared jointly consistent once they share a version, in either
// exact (current-version-only) or historized (bounded-ring,
// tolerant-of-skew) mode.
package consistencygroup

import (
	"context"

	"github.com/vdatab/devaccess/accessor"
	"github.com/vdatab/devaccess/deverr"
	"github.com/vdatab/devaccess/version"
)

// Mode selects the group's consistency-tracking discipline.
type Mode int

const (
	// Exact requires every member's current version to be identical.
	Exact Mode = iota
	// Historized tolerates members arriving in different update
	// rounds by retaining a bounded ring of past versions per member.
	Historized
)

// DefaultRingLength is the historized mode's ring length absent an
// explicit override, per spec §4.6 ("implementation default 16").
const DefaultRingLength = 16

// member erases the user type of one accessor bound into the group so
// Group itself need not be generic over a single T.
type member interface {
	update(ctx context.Context) error
	currentVersion() version.Number
	snapshot() any
	restore(snap any)
}

type typedMember[T any] struct {
	acc accessor.Accessor[T]
}

func (m *typedMember[T]) update(ctx context.Context) error {
	return accessor.ReadOneShot(ctx, m.acc)
}

func (m *typedMember[T]) currentVersion() version.Number { return m.acc.VersionNumber() }

func (m *typedMember[T]) snapshot() any {
	channels := make([][]T, m.acc.NChannels())
	for ch := range channels {
		src := m.acc.Channel(ch)
		cp := make([]T, len(src))
		copy(cp, src)
		channels[ch] = cp
	}
	return channels
}

func (m *typedMember[T]) restore(snap any) {
	channels := snap.([][]T)
	for ch, data := range channels {
		m.acc.SetChannel(ch, data)
	}
}

// Member is a named accessor bound into a Group, built by NewMember.
type Member struct {
	id string
	m  member
}

// NewMember wraps acc as a consistency group member named id.
func NewMember[T any](id string, acc accessor.Accessor[T]) Member {
	return Member{id: id, m: &typedMember[T]{acc: acc}}
}

type ringEntry struct {
	v       version.Number
	payload any
}

// ring is a bounded FIFO of (version, payload) pairs for historized mode.
type ring struct {
	entries []ringEntry
	cap     int
}

func newRing(cap int) *ring { return &ring{cap: cap} }

func (r *ring) push(v version.Number, payload any) {
	r.entries = append(r.entries, ringEntry{v: v, payload: payload})
	if len(r.entries) > r.cap {
		r.entries = r.entries[len(r.entries)-r.cap:]
	}
}

func (r *ring) find(v version.Number) (any, bool) {
	for i := len(r.entries) - 1; i >= 0; i-- {
		if r.entries[i].v.Equal(v) {
			return r.entries[i].payload, true
		}
	}
	return nil, false
}

func (r *ring) truncateBelow(v version.Number) {
	i := 0
	for i < len(r.entries) && r.entries[i].v.Less(v) {
		i++
	}
	r.entries = r.entries[i:]
}

// truncateThrough drops every entry at or before v, so a version
// already matched into a consistent round can never match again on a
// later Update (spec §8 scenario 4's "true exactly twice", not once
// per subsequent call that still happens to share a stale version).
func (r *ring) truncateThrough(v version.Number) {
	i := 0
	for i < len(r.entries) && !r.entries[i].v.Equal(v) {
		i++
	}
	if i < len(r.entries) {
		i++
	}
	r.entries = r.entries[i:]
}

// Group is a data consistency group, exact or historized per spec
// §4.6.
type Group struct {
	mode     Mode
	ringLen  int
	order    []string
	members  map[string]member
	versions map[string]version.Number // exact mode
	decided  map[string]bool           // exact mode, last decision
	rings    map[string]*ring          // historized mode
}

// New constructs an exact-mode Group.
func New() *Group {
	return &Group{
		mode:     Exact,
		members:  make(map[string]member),
		versions: make(map[string]version.Number),
		decided:  make(map[string]bool),
	}
}

// NewHistorized constructs a historized-mode Group with the given
// per-member ring length (DefaultRingLength if ringLen <= 0).
func NewHistorized(ringLen int) *Group {
	if ringLen <= 0 {
		ringLen = DefaultRingLength
	}
	return &Group{
		mode:    Historized,
		ringLen: ringLen,
		members: make(map[string]member),
		rings:   make(map[string]*ring),
	}
}

// Add binds m into the group.
func (g *Group) Add(m Member) {
	g.order = append(g.order, m.id)
	g.members[m.id] = m.m
	if g.mode == Historized {
		g.rings[m.id] = newRing(g.ringLen)
	}
}

// Update performs one read transfer of the member named id and
// re-evaluates group consistency. It returns whether the group is now
// consistent. A transfer error is surfaced to the caller and leaves
// the group's tracked state unchanged, per spec §4.6.
func (g *Group) Update(ctx context.Context, id string) (bool, error) {
	m, ok := g.members[id]
	if !ok {
		return false, deverr.Logicf(id, "unknown consistency group member")
	}
	if err := m.update(ctx); err != nil {
		return false, deverr.Wrap(id, err, "consistency group member transfer failed")
	}
	if g.mode == Exact {
		return g.updateExact(id, m)
	}
	return g.updateHistorized(id, m)
}

func (g *Group) updateExact(id string, m member) (bool, error) {
	v := m.currentVersion()
	if old, ok := g.versions[id]; ok && old.Equal(v) {
		return g.decided[id], nil
	}
	g.versions[id] = v

	consistent := !v.IsNull()
	for _, other := range g.order {
		ov, ok := g.versions[other]
		if !ok || ov.IsNull() || !ov.Equal(v) {
			consistent = false
			break
		}
	}
	for _, other := range g.order {
		g.decided[other] = consistent
	}
	return consistent, nil
}

func (g *Group) updateHistorized(id string, m member) (bool, error) {
	v := m.currentVersion()
	g.rings[id].push(v, m.snapshot())

	entries := g.rings[id].entries
	for i := len(entries) - 1; i >= 0; i-- {
		cand := entries[i].v
		if cand.IsNull() {
			continue
		}
		payloads := make(map[string]any, len(g.order))
		allPresent := true
		for _, other := range g.order {
			p, ok := g.rings[other].find(cand)
			if !ok {
				allPresent = false
				break
			}
			payloads[other] = p
		}
		if !allPresent {
			continue
		}
		for _, other := range g.order {
			g.members[other].restore(payloads[other])
			g.rings[other].truncateThrough(cand)
		}
		return true, nil
	}
	return false, nil
}
