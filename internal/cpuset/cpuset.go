package cpuset

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/bits"
)

// SYSTEM_CPU_SET_INFORMATION flag bits.
const (
	FlagParked                   uint8 = 0x1
	FlagAllocated                uint8 = 0x2
	FlagAllocatedToTargetProcess uint8 = 0x4
	FlagRealtime                 uint8 = 0x8
)

const (
	recordTypeCpuSet = 0
	recordHeaderSize = 8
	// RecordSize is the size of one SYSTEM_CPU_SET_INFORMATION record
	// of type CpuSetInformation.
	RecordSize = 32
)

var ErrMalformedRecord = errors.New("malformed cpu set record")

// CpuSet is one logical processor as reported by
// GetSystemCpuSetInformation. It is a snapshot and goes stale at once.
type CpuSet struct {
	ID                    uint32
	Group                 uint16
	LogicalProcessorIndex uint8
	CoreIndex             uint8
	LastLevelCacheIndex   uint8
	NumaNodeIndex         uint8
	EfficiencyClass       uint8
	Flags                 uint8
	SchedulingClass       uint8
	AllocationTag         uint64
}

func (c CpuSet) Parked() bool    { return c.Flags&FlagParked != 0 }
func (c CpuSet) Allocated() bool { return c.Flags&FlagAllocated != 0 }
func (c CpuSet) Realtime() bool  { return c.Flags&FlagRealtime != 0 }

func (c CpuSet) AllocatedToTargetProcess() bool {
	return c.Flags&FlagAllocatedToTargetProcess != 0
}

// ParseCpuSetInformation decodes the buffer filled by
// GetSystemCpuSetInformation. Records are size prefixed and records of
// unknown type are skipped.
func ParseCpuSetInformation(buf []byte) ([]CpuSet, error) {
	var sets []CpuSet
	for off := 0; off < len(buf); {
		if len(buf)-off < recordHeaderSize {
			return sets, fmt.Errorf("%w: %d trailing bytes at offset %d", ErrMalformedRecord, len(buf)-off, off)
		}
		size := int(binary.LittleEndian.Uint32(buf[off:]))
		typ := binary.LittleEndian.Uint32(buf[off+4:])
		if size < recordHeaderSize || off+size > len(buf) {
			return sets, fmt.Errorf("%w: size %d at offset %d", ErrMalformedRecord, size, off)
		}

		if typ == recordTypeCpuSet {
			if size < RecordSize {
				return sets, fmt.Errorf("%w: short cpu set record (%d bytes) at offset %d", ErrMalformedRecord, size, off)
			}
			r := buf[off : off+size]
			sets = append(sets, CpuSet{
				ID:                    binary.LittleEndian.Uint32(r[8:]),
				Group:                 binary.LittleEndian.Uint16(r[12:]),
				LogicalProcessorIndex: r[14],
				CoreIndex:             r[15],
				LastLevelCacheIndex:   r[16],
				NumaNodeIndex:         r[17],
				EfficiencyClass:       r[18],
				Flags:                 r[19],
				SchedulingClass:       r[20],
				AllocationTag:         binary.LittleEndian.Uint64(r[24:]),
			})
		}
		off += size
	}
	return sets, nil
}

// Mask is an allowed CPU set bit vector, 64 cores per word.
type Mask []uint64

// FullMask sets one bit for every one of n logical processors.
func FullMask(n int) Mask {
	if n <= 0 {
		return Mask{}
	}
	mask := make(Mask, (n+63)/64)
	for i := range mask {
		mask[i] = ^uint64(0)
	}
	if rem := n % 64; rem != 0 {
		mask[len(mask)-1] = 1<<uint(rem) - 1
	}
	return mask
}

// Count returns the number of set bits.
func (m Mask) Count() int {
	n := 0
	for _, w := range m {
		n += bits.OnesCount64(w)
	}
	return n
}

func (m Mask) String() string {
	s := ""
	for i := len(m) - 1; i >= 0; i-- {
		if s == "" {
			s = fmt.Sprintf("%#x", m[i])
		} else {
			s += fmt.Sprintf("%016x", m[i])
		}
	}
	if s == "" {
		return "0x0"
	}
	return s
}
