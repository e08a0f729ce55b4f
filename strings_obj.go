package kuroko

import "unicode/utf8"

// codepointWidth picks the narrowest fixed-width buffer that can hold
// every codepoint in a string, mirroring the teacher's vm_charset.go
// charsetSize tiers (ASCII/Latin1/BMP/Unicode), narrowed from "largest
// rune in a charset" to "largest rune in a string" per spec §9's design
// note: "lazily materialize into one of three width-specialized buffers
// (1/2/4 bytes) to preserve O(1) indexing without quadrupling memory
// for ASCII-heavy workloads."
type codepointWidth uint8

const (
	widthUnknown codepointWidth = iota
	width1
	width2
	width4
)

// KrkString is Kuroko's immutable, interned string object (§3). data
// holds the canonical UTF-8 bytes; the codepoint index is built lazily
// on first use that needs O(1) indexing (e.g. subscript, len by
// codepoint) rather than at construction time.
type KrkString struct {
	ObjHeader
	data  []byte
	count int // codepoint count, computed eagerly (cheap, needed for len())

	width codepointWidth
	idx1  []uint8  // valid when width == width1
	idx2  []uint16 // valid when width == width2
	idx4  []uint32 // valid when width == width4
}

func newStringObj(data []byte) *KrkString {
	s := &KrkString{ObjHeader: newHeader(ObjKindString, nil), data: data}
	s.count = utf8.RuneCount(data)
	s.hashCache = fnv1a(data)
	s.hashValid = true
	return s
}

// CodepointCount returns the number of Unicode codepoints (not bytes).
func (s *KrkString) CodepointCount() int { return s.count }

// buildIndex materializes the width-specialized codepoint offset table
// the first time random-access indexing is needed. All codepoints are
// scanned once to find the widest one, then every byte-offset-of-Nth-
// codepoint is recorded in the narrowest buffer that fits.
func (s *KrkString) buildIndex() {
	if s.width != widthUnknown {
		return
	}
	max := rune(0)
	offsets := make([]int, 0, s.count)
	for i := 0; i < len(s.data); {
		r, size := utf8.DecodeRune(s.data[i:])
		offsets = append(offsets, i)
		if r > max {
			max = r
		}
		i += size
	}
	switch {
	case max <= 0xFF && len(s.data) <= 0xFF:
		s.width = width1
		s.idx1 = make([]uint8, len(offsets))
		for i, o := range offsets {
			s.idx1[i] = uint8(o)
		}
	case len(s.data) <= 0xFFFF:
		s.width = width2
		s.idx2 = make([]uint16, len(offsets))
		for i, o := range offsets {
			s.idx2[i] = uint16(o)
		}
	default:
		s.width = width4
		s.idx4 = make([]uint32, len(offsets))
		for i, o := range offsets {
			s.idx4[i] = uint32(o)
		}
	}
}

// ByteOffset returns the byte offset of the i'th codepoint, building
// the index on first use.
func (s *KrkString) ByteOffset(i int) int {
	s.buildIndex()
	switch s.width {
	case width1:
		return int(s.idx1[i])
	case width2:
		return int(s.idx2[i])
	default:
		return int(s.idx4[i])
	}
}

// RuneAt returns the i'th codepoint.
func (s *KrkString) RuneAt(i int) rune {
	start := s.ByteOffset(i)
	r, _ := utf8.DecodeRune(s.data[start:])
	return r
}

func (s *KrkString) String() string { return string(s.data) }

func fnv1a(data []byte) uint32 {
	const (
		offset = 2166136261
		prime  = 16777619
	)
	h := uint32(offset)
	for _, b := range data {
		h ^= uint32(b)
		h *= prime
	}
	return h
}

// internString returns the canonical *KrkString for data, allocating
// and registering a new one only if no equal string already exists
// (§3 invariant: "for any two live String objects, equal byte content
// implies identical object identity").
func (vm *VM) internString(data []byte) *KrkString {
	if s, ok := vm.strings.find(string(data)); ok {
		return s
	}
	s := newStringObj(data)
	s.Class = vm.classes.Str
	vm.registerObject(s)
	vm.strings.add(s)
	return s
}

func (vm *VM) internStr(s string) *KrkString {
	return vm.internString([]byte(s))
}

func (vm *VM) stringValue(s string) Value {
	return ObjectValue(vm.internStr(s))
}
