package main

import (
	"os"
	"path/filepath"
	"testing"

	"improbable-love/internal/capture"
	"improbable-love/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadStory_Text(t *testing.T) {
	input, err := readStory("  We met at a coffee shop  ", "", "", "")
	require.NoError(t, err)
	assert.Equal(t, models.TextStory("We met at a coffee shop"), input)

	_, err = readStory("   ", "", "", "")
	assert.ErrorIs(t, err, capture.ErrEmptyStory)
}

func TestReadStory_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "story.txt")
	require.NoError(t, os.WriteFile(path, []byte("We met on a train.\n"), 0o644))

	input, err := readStory("", path, "", "")
	require.NoError(t, err)
	assert.Equal(t, "We met on a train.", input.Text)
}

func TestReadStory_Audio(t *testing.T) {
	path := filepath.Join(t.TempDir(), "story.ogg")
	require.NoError(t, os.WriteFile(path, []byte("OggS-data"), 0o644))

	input, err := readStory("", "", path, "")
	require.NoError(t, err)
	assert.Equal(t, models.InputAudio, input.Kind)
	assert.Equal(t, "audio/ogg", input.MimeType)
	assert.Equal(t, []byte("OggS-data"), input.Audio)

	input, err = readStory("", "", path, "audio/webm")
	require.NoError(t, err)
	assert.Equal(t, "audio/webm", input.MimeType)

	empty := filepath.Join(t.TempDir(), "empty.webm")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	_, err = readStory("", "", empty, "")
	assert.ErrorIs(t, err, capture.ErrNoAudio)
}

func TestReadStory_ExactlyOneSource(t *testing.T) {
	_, err := readStory("", "", "", "")
	assert.Error(t, err)

	_, err = readStory("text", "file.txt", "", "")
	assert.Error(t, err)
}
