package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"improbable-love/config"
	"improbable-love/internal/speech"
)

// 用一段本地录音检查转写服务配置是否可用
func main() {
	file := flag.String("file", "", "录音文件路径")
	provider := flag.String("provider", "", "覆盖 SPEECH_PROVIDER")
	flag.Parse()

	if *file == "" {
		fmt.Fprintln(os.Stderr, "用法: transcribe -file story.webm [-provider openai|whisper-http]")
		os.Exit(2)
	}

	cfg, err := config.LoadEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}
	if *provider != "" {
		cfg.Speech.Provider = *provider
	}

	svc, err := speech.Factory(&cfg.Speech, &cfg.OpenAI)
	if err != nil {
		fmt.Fprintf(os.Stderr, "创建转写服务失败: %v\n", err)
		os.Exit(1)
	}

	audio, err := os.ReadFile(*file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "读取录音失败: %v\n", err)
		os.Exit(1)
	}

	start := time.Now()
	text, err := svc.Transcribe(context.Background(), audio, filepath.Base(*file))
	if err != nil {
		fmt.Fprintf(os.Stderr, "转写失败 (%s): %v\n", svc.Provider(), err)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stderr, "%s 转写完成，耗时 %s\n", svc.Provider(), time.Since(start).Round(time.Millisecond))
	fmt.Println(text)
}
