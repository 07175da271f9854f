package analysis

import (
	"encoding/base64"
	"fmt"
	"strings"

	apperrors "improbable-love/internal/errors"
)

// DefaultMimeType 是浏览器 MediaRecorder 的默认录音格式
const DefaultMimeType = "audio/webm"

var mimeExtensions = map[string]string{
	"audio/webm":  "webm",
	"audio/ogg":   "ogg",
	"audio/mpeg":  "mp3",
	"audio/mp3":   "mp3",
	"audio/mp4":   "m4a",
	"audio/m4a":   "m4a",
	"audio/x-m4a": "m4a",
	"audio/wav":   "wav",
	"audio/wave":  "wav",
	"audio/x-wav": "wav",
	"audio/flac":  "flac",
}

// DecodeAudioData 解码 data URL（data:audio/webm;base64,...）或裸 base64 字符串，
// 返回音频字节和 MIME 类型。maxBytes <= 0 时不限制大小。
func DecodeAudioData(data string, maxBytes int) ([]byte, string, error) {
	payload := strings.TrimSpace(data)
	mimeType := DefaultMimeType

	if strings.HasPrefix(payload, "data:") {
		header, body, ok := strings.Cut(payload, ",")
		if !ok {
			return nil, "", apperrors.NewBadRequestError("audioData 不是合法的 data URL", nil)
		}
		params := strings.Split(strings.TrimPrefix(header, "data:"), ";")
		if !containsFold(params[1:], "base64") {
			return nil, "", apperrors.NewBadRequestError("audioData 必须是 base64 编码", nil)
		}
		if mt := strings.ToLower(strings.TrimSpace(params[0])); mt != "" {
			mimeType = mt
		}
		payload = body
	}

	if payload == "" {
		return nil, "", apperrors.NewBadRequestError("audioData 为空", nil)
	}
	if maxBytes > 0 && base64.StdEncoding.DecodedLen(len(payload)) > maxBytes+3 {
		return nil, "", apperrors.NewBadRequestError(fmt.Sprintf("音频超过 %d 字节上限", maxBytes), nil)
	}

	audio, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		audio, err = base64.RawStdEncoding.DecodeString(payload)
	}
	if err != nil {
		return nil, "", apperrors.NewBadRequestError("audioData 不是合法的 base64", err)
	}
	if len(audio) == 0 {
		return nil, "", apperrors.NewBadRequestError("audioData 为空", nil)
	}
	if maxBytes > 0 && len(audio) > maxBytes {
		return nil, "", apperrors.NewBadRequestError(fmt.Sprintf("音频超过 %d 字节上限", maxBytes), nil)
	}

	return audio, mimeType, nil
}

// FilenameForMime 根据 MIME 类型生成转写接口需要的文件名
func FilenameForMime(mimeType string) string {
	if ext, ok := mimeExtensions[strings.ToLower(strings.TrimSpace(mimeType))]; ok {
		return "audio." + ext
	}
	return "audio.webm"
}

func containsFold(items []string, target string) bool {
	for _, item := range items {
		if strings.EqualFold(strings.TrimSpace(item), target) {
			return true
		}
	}
	return false
}
