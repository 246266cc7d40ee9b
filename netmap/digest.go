package netmap

import (
	"crypto/sha256"
	"encoding/binary"
	"sort"
)

// Digest returns a stable hash over a level's non-VOID entities: position,
// flags, and RTT-bearing links. Two levels with the same digest have the
// same externally-visible routing state, independent of map-internal
// bookkeeping order — used by tests asserting idempotent ingest (re-
// delivering the same CLOSE produces no observable map change).
func (l *Level) Digest() string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	h := sha256.New()
	var positions []Position

	if l.IsLeaf() {
		for pos, n := range l.nodes {
			if n.IsVoid() {
				continue
			}
			positions = append(positions, pos)
		}
		sort.Slice(positions, func(i, j int) bool { return positions[i] < positions[j] })
		for _, pos := range positions {
			n := l.nodes[pos]
			hashEntity(h, uint16(n.Pos), uint16(n.Flags), n.Neighbors)
		}
		return hexSum(h)
	}

	for pos, g := range l.gnodes {
		if g.IsVoid() {
			continue
		}
		positions = append(positions, pos)
	}
	sort.Slice(positions, func(i, j int) bool { return positions[i] < positions[j] })
	for _, pos := range positions {
		g := l.gnodes[pos]
		hashEntity(h, uint16(g.Pos), uint16(g.Flags), g.Neighbors)
	}
	return hexSum(h)
}

func hashEntity(h interface{ Write([]byte) (int, error) }, pos, flags uint16, links []NeighborLink) {
	var buf [4]byte
	binary.BigEndian.PutUint16(buf[0:2], pos)
	binary.BigEndian.PutUint16(buf[2:4], flags)
	h.Write(buf[:])

	sorted := append([]NeighborLink(nil), links...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Pos < sorted[j].Pos })
	for _, lk := range sorted {
		var lb [6]byte
		binary.BigEndian.PutUint16(lb[0:2], uint16(lk.Pos))
		binary.BigEndian.PutUint32(lb[2:6], uint32(lk.RTT))
		h.Write(lb[:])
	}
}

func hexSum(h interface {
	Sum([]byte) []byte
}) string {
	sum := h.Sum(nil)
	const hexdigits = "0123456789abcdef"
	out := make([]byte, len(sum)*2)
	for i, b := range sum {
		out[i*2] = hexdigits[b>>4]
		out[i*2+1] = hexdigits[b&0xf]
	}
	return string(out)
}
