package cpuset

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(id uint32, lp uint8, flags uint8) []byte {
	r := make([]byte, RecordSize)
	binary.LittleEndian.PutUint32(r[0:], RecordSize)
	binary.LittleEndian.PutUint32(r[4:], recordTypeCpuSet)
	binary.LittleEndian.PutUint32(r[8:], id)
	binary.LittleEndian.PutUint16(r[12:], 0)
	r[14] = lp
	r[15] = lp / 2
	r[18] = 1
	r[19] = flags
	binary.LittleEndian.PutUint64(r[24:], 0xABCD)
	return r
}

func TestParseCpuSetInformation(t *testing.T) {
	var buf []byte
	buf = append(buf, record(256, 0, FlagAllocated|FlagAllocatedToTargetProcess|FlagRealtime)...)
	buf = append(buf, record(257, 1, FlagParked)...)

	sets, err := ParseCpuSetInformation(buf)
	require.NoError(t, err)
	require.Len(t, sets, 2)

	assert.Equal(t, uint32(256), sets[0].ID)
	assert.Equal(t, uint8(0), sets[0].LogicalProcessorIndex)
	assert.Equal(t, uint8(1), sets[0].EfficiencyClass)
	assert.Equal(t, uint64(0xABCD), sets[0].AllocationTag)
	assert.True(t, sets[0].Allocated())
	assert.True(t, sets[0].AllocatedToTargetProcess())
	assert.True(t, sets[0].Realtime())
	assert.False(t, sets[0].Parked())

	assert.Equal(t, uint32(257), sets[1].ID)
	assert.Equal(t, uint8(1), sets[1].LogicalProcessorIndex)
	assert.True(t, sets[1].Parked())
	assert.False(t, sets[1].Realtime())
}

func TestParseSkipsUnknownRecordTypes(t *testing.T) {
	other := make([]byte, 16)
	binary.LittleEndian.PutUint32(other[0:], 16)
	binary.LittleEndian.PutUint32(other[4:], 7)

	buf := append(other, record(300, 4, 0)...)
	sets, err := ParseCpuSetInformation(buf)
	require.NoError(t, err)
	require.Len(t, sets, 1)
	assert.Equal(t, uint32(300), sets[0].ID)
}

func TestParseLargerRecords(t *testing.T) {
	r := make([]byte, 40)
	copy(r, record(9, 3, FlagRealtime))
	binary.LittleEndian.PutUint32(r[0:], 40)

	sets, err := ParseCpuSetInformation(append(r, record(10, 4, 0)...))
	require.NoError(t, err)
	require.Len(t, sets, 2)
	assert.Equal(t, uint32(10), sets[1].ID)
}

func TestParseMalformed(t *testing.T) {
	_, err := ParseCpuSetInformation([]byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrMalformedRecord)

	r := record(1, 0, 0)
	binary.LittleEndian.PutUint32(r[0:], 64)
	_, err = ParseCpuSetInformation(r)
	assert.ErrorIs(t, err, ErrMalformedRecord)

	short := make([]byte, 16)
	binary.LittleEndian.PutUint32(short[0:], 16)
	_, err = ParseCpuSetInformation(short)
	assert.ErrorIs(t, err, ErrMalformedRecord)

	zero := make([]byte, 8)
	_, err = ParseCpuSetInformation(zero)
	assert.ErrorIs(t, err, ErrMalformedRecord)
}

func TestParseEmpty(t *testing.T) {
	sets, err := ParseCpuSetInformation(nil)
	require.NoError(t, err)
	assert.Empty(t, sets)
}

func TestFullMask(t *testing.T) {
	assert.Equal(t, Mask{0b11111111}, FullMask(8))
	assert.Equal(t, Mask{255}, FullMask(8))
	assert.Equal(t, Mask{1}, FullMask(1))
	assert.Equal(t, Mask{1<<63 - 1}, FullMask(63))
	assert.Equal(t, Mask{^uint64(0)}, FullMask(64))
	assert.Equal(t, Mask{^uint64(0), 0xF}, FullMask(68))
	assert.Empty(t, FullMask(0))

	for _, n := range []int{1, 8, 12, 63, 64, 65, 128} {
		assert.Equal(t, n, FullMask(n).Count())
	}
}

func TestMaskString(t *testing.T) {
	assert.Equal(t, "0xff", FullMask(8).String())
	assert.Equal(t, "0xfffffffffffffffff", FullMask(68).String())
	assert.Equal(t, "0x0", Mask{}.String())
}
