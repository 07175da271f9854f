package ai

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	apperrors "improbable-love/internal/errors"
	"improbable-love/internal/models"
	"improbable-love/internal/odds"
)

type rawAnalysis struct {
	Events      []rawEvent      `json:"events"`
	FinalOneInX json.RawMessage `json:"finalOneInX"`
	Summary     string          `json:"summary"`
}

type rawEvent struct {
	Circumstance string         `json:"circumstance"`
	Conditions   []rawCondition `json:"conditions"`
}

type rawCondition struct {
	Description string          `json:"description"`
	OneInX      json.RawMessage `json:"oneInX"`
}

// ParseAnalysis 将模型输出解析为 AnalysisResult 并校验取值。
// 每个 oneInX 必须是有限正数，(0,1) 之间的值按 1 处理；
// finalOneInX 缺失或无效时用所有条件的乘积重新计算，乘积溢出时置 0。
func ParseAnalysis(content string) (*models.AnalysisResult, error) {
	body := stripCodeFence(content)
	if body == "" || body == "null" {
		return nil, apperrors.NewMalformedOutputError("模型输出为空", nil)
	}

	var raw rawAnalysis
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		return nil, apperrors.NewMalformedOutputError("模型输出不是合法的分析JSON", err)
	}

	result := &models.AnalysisResult{
		Events:  make([]models.Event, 0, len(raw.Events)),
		Summary: strings.TrimSpace(raw.Summary),
	}

	for i, ev := range raw.Events {
		event := models.Event{
			Circumstance: strings.TrimSpace(ev.Circumstance),
			Conditions:   make([]models.Condition, 0, len(ev.Conditions)),
		}
		for j, cond := range ev.Conditions {
			x, ok, err := parseNumber(cond.OneInX)
			if err != nil || !ok {
				return nil, apperrors.NewMalformedOutputError(
					fmt.Sprintf("events[%d].conditions[%d].oneInX 不是数字", i, j), err)
			}
			if !odds.Valid(x) {
				return nil, apperrors.NewMalformedOutputError(
					fmt.Sprintf("events[%d].conditions[%d].oneInX 无效: %v", i, j, x), nil)
			}
			event.Conditions = append(event.Conditions, models.Condition{
				Description: strings.TrimSpace(cond.Description),
				OneInX:      math.Max(1, x),
			})
		}
		result.Events = append(result.Events, event)
	}

	final, ok, err := parseNumber(raw.FinalOneInX)
	switch {
	case err == nil && ok && odds.Valid(final):
		result.FinalOneInX = math.Max(1, final)
	default:
		recomputed := odds.CombineEvents(result.Events)
		if odds.Valid(recomputed) {
			result.FinalOneInX = recomputed
		} else {
			result.FinalOneInX = 0
		}
	}

	return result, nil
}

// parseNumber 接受 JSON 数字或数字字符串（允许千分位逗号），null 或缺失时 ok=false
func parseNumber(raw json.RawMessage) (float64, bool, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return 0, false, nil
	}

	var n float64
	if err := json.Unmarshal(trimmed, &n); err == nil {
		return n, true, nil
	}

	var s string
	if err := json.Unmarshal(trimmed, &s); err != nil {
		return 0, false, err
	}
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false, err
	}
	return n, true, nil
}

// stripCodeFence 去掉模型偶尔包裹的 ```json 代码块
func stripCodeFence(content string) string {
	s := strings.TrimSpace(content)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
