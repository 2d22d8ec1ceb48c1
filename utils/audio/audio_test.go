package audio

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestULawToWav(t *testing.T) {
	payload := []byte{0x00, 0x7f, 0xff, 0x80}
	wav, err := ULawToWav(payload)
	require.NoError(t, err)

	// 44-byte header plus one 16-bit sample per µ-law byte.
	require.Len(t, wav, 44+2*len(payload))
	assert.Equal(t, "RIFF", string(wav[0:4]))
	assert.Equal(t, "WAVE", string(wav[8:12]))
	assert.EqualValues(t, 8000, binary.LittleEndian.Uint32(wav[24:28]))
	assert.EqualValues(t, 1, binary.LittleEndian.Uint16(wav[22:24]))
	assert.EqualValues(t, 2*len(payload), binary.LittleEndian.Uint32(wav[40:44]))
}

func TestPCMBytesToWavBytesRejectsBadInput(t *testing.T) {
	_, err := PCMBytesToWavBytes(nil, 1, 8000)
	assert.Error(t, err)

	_, err = PCMBytesToWavBytes([]byte{1, 2, 3}, 1, 8000)
	assert.Error(t, err, "odd sample byte count")

	_, err = PCMBytesToWavBytes([]byte{1, 2}, 3, 8000)
	assert.Error(t, err, "channel count out of range")

	_, err = PCMBytesToWavBytes([]byte{1, 2}, 1, 0)
	assert.Error(t, err, "non-positive sample rate")
}

func TestALawBytesToPCMLength(t *testing.T) {
	pcm := ALawBytesToPCM([]byte{0x55, 0xd5})
	assert.Len(t, pcm, 4)
}
