package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"improbable-love/internal/capture"
	"improbable-love/internal/client"
	"improbable-love/internal/models"
	"improbable-love/internal/render"
)

var audioTypes = map[string]string{
	".webm": "audio/webm",
	".ogg":  "audio/ogg",
	".opus": "audio/ogg",
	".mp3":  "audio/mpeg",
	".m4a":  "audio/mp4",
	".wav":  "audio/wav",
	".flac": "audio/flac",
}

func main() {
	server := flag.String("server", "http://localhost:3001", "分析服务地址")
	text := flag.String("text", "", "故事文本")
	file := flag.String("file", "", "从文件读取故事文本，- 表示标准输入")
	audio := flag.String("audio", "", "录音文件路径")
	mimeType := flag.String("mime", "", "录音格式，默认按扩展名推断")
	timeout := flag.Duration("timeout", 2*time.Minute, "请求超时")
	flag.Parse()

	input, err := readStory(*text, *file, *audio, *mimeType)
	if err != nil {
		fmt.Fprintf(os.Stderr, "lovestory: %v\n", err)
		flag.Usage()
		os.Exit(2)
	}

	c := client.New(*server, &http.Client{Timeout: *timeout})
	resp, err := c.Submit(context.Background(), input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "lovestory: %v\n", err)
		os.Exit(1)
	}

	if input.Kind == models.InputAudio {
		fmt.Printf("Transcription:\n%s\n\n", resp.Transcription)
	}
	if err := render.Build(&resp.Analysis).WriteText(os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "lovestory: %v\n", err)
		os.Exit(1)
	}
}

// readStory 三种输入方式只能选一种
func readStory(text, file, audio, mimeType string) (models.StoryInput, error) {
	given := 0
	for _, v := range []string{text, file, audio} {
		if v != "" {
			given++
		}
	}
	if given != 1 {
		return models.StoryInput{}, fmt.Errorf("specify exactly one of -text, -file or -audio")
	}

	if audio != "" {
		return recordFile(audio, mimeType)
	}

	var buf capture.TextBuffer
	if text != "" {
		buf.Set(text)
	} else {
		data, err := readTextFile(file)
		if err != nil {
			return models.StoryInput{}, err
		}
		buf.Set(string(data))
	}
	return buf.Artifact()
}

func readTextFile(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

// recordFile 把录音文件当作一次完整的录音会话写入 Recorder
func recordFile(path, mimeType string) (models.StoryInput, error) {
	if mimeType == "" {
		mimeType = audioTypes[strings.ToLower(filepath.Ext(path))]
	}

	f, err := os.Open(path)
	if err != nil {
		return models.StoryInput{}, err
	}
	defer f.Close()

	rec := capture.NewRecorder(mimeType)
	defer rec.Close()
	if err := rec.Start(); err != nil {
		return models.StoryInput{}, err
	}
	if _, err := io.Copy(rec, f); err != nil {
		_ = rec.Restart()
		return models.StoryInput{}, fmt.Errorf("read %s: %w", path, err)
	}
	if err := rec.Stop(); err != nil {
		return models.StoryInput{}, err
	}
	return rec.Artifact()
}
