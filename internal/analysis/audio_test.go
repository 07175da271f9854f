package analysis

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeAudioData(t *testing.T) {
	raw := []byte{0x1a, 0x45, 0xdf, 0xa3, 0x00, 0x01}
	encoded := base64.StdEncoding.EncodeToString(raw)

	audio, mimeType, err := DecodeAudioData("data:audio/webm;codecs=opus;base64,"+encoded, 0)
	require.NoError(t, err)
	assert.Equal(t, raw, audio)
	assert.Equal(t, "audio/webm", mimeType)

	audio, mimeType, err = DecodeAudioData(encoded, 0)
	require.NoError(t, err)
	assert.Equal(t, raw, audio)
	assert.Equal(t, DefaultMimeType, mimeType)

	audio, _, err = DecodeAudioData(base64.RawStdEncoding.EncodeToString(raw), 0)
	require.NoError(t, err)
	assert.Equal(t, raw, audio)

	_, mimeType, err = DecodeAudioData("data:audio/MP4;base64,"+encoded, 0)
	require.NoError(t, err)
	assert.Equal(t, "audio/mp4", mimeType)
}

func TestDecodeAudioData_Limit(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString(make([]byte, 100))

	_, _, err := DecodeAudioData(encoded, 100)
	assert.NoError(t, err)

	_, _, err = DecodeAudioData(encoded, 99)
	assert.Error(t, err)
}

func TestFilenameForMime(t *testing.T) {
	assert.Equal(t, "audio.webm", FilenameForMime("audio/webm"))
	assert.Equal(t, "audio.ogg", FilenameForMime("audio/ogg"))
	assert.Equal(t, "audio.mp3", FilenameForMime("audio/mpeg"))
	assert.Equal(t, "audio.m4a", FilenameForMime("audio/x-m4a"))
	assert.Equal(t, "audio.wav", FilenameForMime("AUDIO/WAV"))
	assert.Equal(t, "audio.webm", FilenameForMime("video/quicktime"))
	assert.Equal(t, "audio.webm", FilenameForMime(""))
}
