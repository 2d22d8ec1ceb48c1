// Package audio converts G.711 telephony payloads into WAV containers the
// transcription service accepts.
package audio

import (
	"bytes"
	"encoding/binary"
	"errors"

	"github.com/zaf/g711"
)

// G.711 payloads are 8 kHz mono by definition.
const (
	telephonySampleRate = 8000
	telephonyChannels   = 1
)

// ULawBytesToPCM converts 8-bit µ-law bytes to 16-bit little-endian PCM.
func ULawBytesToPCM(uBytes []byte) []byte {
	return g711.DecodeUlaw(uBytes)
}

// ALawBytesToPCM converts 8-bit A-law bytes to 16-bit little-endian PCM.
func ALawBytesToPCM(aBytes []byte) []byte {
	return g711.DecodeAlaw(aBytes)
}

// ULawToWav decodes a µ-law payload and wraps it in a WAV container.
func ULawToWav(uBytes []byte) ([]byte, error) {
	return PCMBytesToWavBytes(ULawBytesToPCM(uBytes), telephonyChannels, telephonySampleRate)
}

// ALawToWav decodes an A-law payload and wraps it in a WAV container.
func ALawToWav(aBytes []byte) ([]byte, error) {
	return PCMBytesToWavBytes(ALawBytesToPCM(aBytes), telephonyChannels, telephonySampleRate)
}

// PCMBytesToWavBytes wraps 16-bit little-endian PCM into a WAV container.
// Supports mono or stereo.
func PCMBytesToWavBytes(pcm []byte, numChannels, sampleRate int) ([]byte, error) {
	if len(pcm) == 0 {
		return nil, errors.New("PCM data is empty")
	}
	if numChannels <= 0 || numChannels > 2 {
		return nil, errors.New("only mono (1) or stereo (2) channels supported")
	}
	if sampleRate <= 0 {
		return nil, errors.New("sample rate must be positive")
	}
	if len(pcm)%2 != 0 {
		return nil, errors.New("PCM byte slice length must be even (16-bit samples)")
	}

	const (
		bitsPerSample = 16
		headerSize    = 44
	)
	byteRate := sampleRate * numChannels * bitsPerSample / 8
	blockAlign := numChannels * bitsPerSample / 8

	buf := bytes.NewBuffer(make([]byte, 0, headerSize+len(pcm)))
	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, uint32(36+len(pcm)))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(buf, binary.LittleEndian, uint32(16)) // PCM chunk size
	binary.Write(buf, binary.LittleEndian, uint16(1))  // PCM format
	binary.Write(buf, binary.LittleEndian, uint16(numChannels))
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(buf, binary.LittleEndian, uint32(byteRate))
	binary.Write(buf, binary.LittleEndian, uint16(blockAlign))
	binary.Write(buf, binary.LittleEndian, uint16(bitsPerSample))
	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, uint32(len(pcm)))
	buf.Write(pcm)

	return buf.Bytes(), nil
}
