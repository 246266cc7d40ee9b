package netmap

import (
	"encoding/binary"
	"io"
	"os"

	"github.com/Masterminds/semver/v3"
	"github.com/teranos/netsukuku/qspnerrors"
)

var fileMagic = [4]byte{'N', 'T', 'K', 0}

// FileVersion is the wire-format version this build writes.
const FileVersion = 1

// readableVersions is the set of persisted map-file versions this build
// can still load, expressed as a semver constraint so format evolution is
// explicit rather than an implicit "only newest" check.
var readableVersions = mustConstraint("<= 1.x")

func mustConstraint(c string) *semver.Constraints {
	con, err := semver.NewConstraint(c)
	if err != nil {
		panic(err)
	}
	return con
}

// fileLink is the on-disk representation of one neighbor link.
type fileLink struct {
	Pos Position
	RTT RTTMicro
}

// SaveFile persists one map level in the §6 wire format:
// [magic "NTK\0"][u8 version][u8 level][u16 entries] followed by entries of
// [u16 pos][u8 flags][u8 link_count][links...].
func (l *Level) SaveFile(w io.Writer) error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var entries []struct {
		pos   Position
		flags NodeFlags
		links []NeighborLink
	}

	if l.IsLeaf() {
		for _, n := range l.nodes {
			entries = append(entries, struct {
				pos   Position
				flags NodeFlags
				links []NeighborLink
			}{n.Pos, n.Flags, n.Neighbors})
		}
	} else {
		for _, g := range l.gnodes {
			entries = append(entries, struct {
				pos   Position
				flags NodeFlags
				links []NeighborLink
			}{g.Pos, g.Flags, g.Neighbors})
		}
	}

	hdr := make([]byte, 0, 8)
	hdr = append(hdr, fileMagic[:]...)
	hdr = append(hdr, FileVersion, byte(l.level))
	entryCount := make([]byte, 2)
	binary.BigEndian.PutUint16(entryCount, uint16(len(entries)))
	hdr = append(hdr, entryCount...)
	if _, err := w.Write(hdr); err != nil {
		return err
	}

	for _, e := range entries {
		if len(e.links) > 255 {
			return qspnerrors.MapInconsistency("link count exceeds u8 on save")
		}
		rec := make([]byte, 4)
		binary.BigEndian.PutUint16(rec[0:2], uint16(e.pos))
		rec[2] = byte(e.flags)
		rec[3] = byte(len(e.links))
		if _, err := w.Write(rec); err != nil {
			return err
		}
		for _, lk := range e.links {
			lb := make([]byte, 6)
			binary.BigEndian.PutUint16(lb[0:2], uint16(lk.Pos))
			binary.BigEndian.PutUint32(lb[2:6], uint32(lk.RTT))
			if _, err := w.Write(lb); err != nil {
				return err
			}
		}
	}
	return nil
}

// LoadFile reads a persisted map level written by SaveFile, rejecting
// files whose version this build does not understand.
func LoadFile(r io.Reader) (*Level, error) {
	hdr := make([]byte, 8)
	if _, err := io.ReadFull(r, hdr); err != nil {
		return nil, qspnerrors.MalformedPacket("map file shorter than header")
	}
	if [4]byte{hdr[0], hdr[1], hdr[2], hdr[3]} != fileMagic {
		return nil, qspnerrors.MalformedPacket("bad map file magic")
	}

	version := hdr[4]
	v, err := semver.NewVersion(itoaVersion(version))
	if err != nil {
		return nil, qspnerrors.MalformedPacket("unparsable map file version")
	}
	if !readableVersions.Check(v) {
		return nil, qspnerrors.MalformedPacket("unsupported map file version")
	}

	level := int(hdr[5])
	entryCount := binary.BigEndian.Uint16(hdr[6:8])

	l := NewLevel(level)
	for i := uint16(0); i < entryCount; i++ {
		rec := make([]byte, 4)
		if _, err := io.ReadFull(r, rec); err != nil {
			return nil, qspnerrors.MalformedPacket("truncated map file entry")
		}
		pos := Position(binary.BigEndian.Uint16(rec[0:2]))
		flags := NodeFlags(rec[2])
		linkCount := int(rec[3])

		links := make([]NeighborLink, linkCount)
		for j := 0; j < linkCount; j++ {
			lb := make([]byte, 6)
			if _, err := io.ReadFull(r, lb); err != nil {
				return nil, qspnerrors.MalformedPacket("truncated map file link")
			}
			links[j] = NeighborLink{
				Pos: Position(binary.BigEndian.Uint16(lb[0:2])),
				RTT: RTTMicro(binary.BigEndian.Uint32(lb[2:6])),
			}
		}

		if l.IsLeaf() {
			l.nodes[pos] = &Node{Pos: pos, Flags: flags, Neighbors: links}
		} else {
			l.gnodes[pos] = &GNode{Pos: pos, Flags: flags, Neighbors: links}
		}
	}
	return l, nil
}

// SaveToPath writes the level to a file at path, creating or truncating it.
func (l *Level) SaveToPath(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return l.SaveFile(f)
}

// LoadFromPath reads a level from a file at path.
func LoadFromPath(path string) (*Level, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadFile(f)
}

func itoaVersion(v byte) string {
	digits := "0123456789"
	if v < 10 {
		return string(digits[v])
	}
	if v >= 100 {
		return string(digits[v/100]) + string(digits[v/10%10]) + string(digits[v%10])
	}
	return string(digits[v/10]) + string(digits[v%10])
}
