package speech

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"improbable-love/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFactory(t *testing.T) {
	openaiCfg := &config.OpenAIConfig{APIKey: "sk-test", BaseURL: "http://localhost/v1"}

	svc, err := Factory(&config.SpeechConfig{Provider: ""}, openaiCfg)
	require.NoError(t, err)
	assert.Equal(t, ProviderOpenAI, svc.Provider())

	svc, err = Factory(&config.SpeechConfig{Provider: ProviderWhisperHTTP, URL: "http://localhost/asr"}, openaiCfg)
	require.NoError(t, err)
	assert.Equal(t, ProviderWhisperHTTP, svc.Provider())

	_, err = Factory(&config.SpeechConfig{Provider: ProviderWhisperHTTP}, openaiCfg)
	assert.Error(t, err)

	_, err = Factory(&config.SpeechConfig{Provider: "edge"}, openaiCfg)
	assert.Error(t, err)

	_, err = Factory(&config.SpeechConfig{Provider: ProviderOpenAI}, &config.OpenAIConfig{})
	assert.Error(t, err)
}

func TestOpenAIWhisper_Transcribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/audio/transcriptions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "whisper-1", r.FormValue("model"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "audio.webm", header.Filename)
		data, _ := io.ReadAll(file)
		assert.Equal(t, "RIFFDATA", string(data))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text":"  We met at a coffee shop.  "}`))
	}))
	defer srv.Close()

	svc, err := NewOpenAIWhisper(
		&config.SpeechConfig{Model: "whisper-1", Timeout: 2 * time.Second},
		&config.OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL + "/v1"},
	)
	require.NoError(t, err)

	text, err := svc.Transcribe(context.Background(), []byte("RIFFDATA"), "audio.webm")
	require.NoError(t, err)
	assert.Equal(t, "We met at a coffee shop.", text)
}

func TestOpenAIWhisper_EmptyAudio(t *testing.T) {
	svc, err := NewOpenAIWhisper(&config.SpeechConfig{Model: "whisper-1"}, &config.OpenAIConfig{APIKey: "sk-test"})
	require.NoError(t, err)

	_, err = svc.Transcribe(context.Background(), nil, "audio.webm")
	assert.Error(t, err)
}

func TestWhisperHTTP_Transcribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer local-key", r.Header.Get("Authorization"))
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "text", r.FormValue("response_format"))
		assert.Equal(t, "base", r.FormValue("model"))

		_, header, err := r.FormFile("file")
		require.NoError(t, err)
		assert.Equal(t, "audio.ogg", header.Filename)

		_, _ = w.Write([]byte("we met on a train\n"))
	}))
	defer srv.Close()

	svc, err := NewWhisperHTTP(&config.SpeechConfig{
		URL:     srv.URL,
		Model:   "base",
		APIKey:  "local-key",
		Timeout: 2 * time.Second,
	})
	require.NoError(t, err)

	text, err := svc.Transcribe(context.Background(), []byte("OggS"), "audio.ogg")
	require.NoError(t, err)
	assert.Equal(t, "we met on a train", text)
}

func TestWhisperHTTP_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	svc, err := NewWhisperHTTP(&config.SpeechConfig{URL: srv.URL, Timeout: time.Second})
	require.NoError(t, err)

	_, err = svc.Transcribe(context.Background(), []byte("OggS"), "audio.ogg")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}
