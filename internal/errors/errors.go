// internal/errors/errors.go
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType 定义错误类型
type ErrorType string

const (
	// 请求相关
	ErrorTypeBadRequest ErrorType = "bad_request"

	// 上游服务相关
	ErrorTypeUpstreamTranscription ErrorType = "upstream_transcription"
	ErrorTypeUpstreamGeneration    ErrorType = "upstream_generation"
	ErrorTypeMalformedOutput       ErrorType = "malformed_generation_output"
	ErrorTypeUpstreamLookup        ErrorType = "upstream_lookup"

	// 客户端相关
	ErrorTypeNetwork           ErrorType = "network"
	ErrorTypeServer            ErrorType = "server"
	ErrorTypeMalformedResponse ErrorType = "malformed_response"

	ErrorTypeConfiguration ErrorType = "configuration"
)

// AppError 应用程序错误结构
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
	Code    string // 用户友好的错误代码
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap 实现错误链接
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError 创建新的 AppError
func NewAppError(errType ErrorType, message string, originalError error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Err:     originalError,
		Code:    generateErrorCode(errType),
	}
}

// NewBadRequestError 创建请求格式错误
func NewBadRequestError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeBadRequest, message, originalError)
}

// NewTranscriptionError 创建语音转写错误
func NewTranscriptionError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeUpstreamTranscription, message, originalError)
}

// NewGenerationError 创建文本生成错误
func NewGenerationError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeUpstreamGeneration, message, originalError)
}

// NewMalformedOutputError 创建模型输出无法解析的错误
func NewMalformedOutputError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeMalformedOutput, message, originalError)
}

// NewLookupError 创建城市查询错误
func NewLookupError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeUpstreamLookup, message, originalError)
}

// NewNetworkError 创建网络错误
func NewNetworkError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeNetwork, message, originalError)
}

// NewServerError 创建服务端返回非成功状态的错误
func NewServerError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeServer, message, originalError)
}

// NewMalformedResponseError 创建响应无法解析的错误
func NewMalformedResponseError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeMalformedResponse, message, originalError)
}

// NewConfigurationError 创建配置错误
func NewConfigurationError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeConfiguration, message, originalError)
}

// TypeOf 返回错误链中第一个 AppError 的类型，没有则返回空字符串
func TypeOf(err error) ErrorType {
	var appError *AppError
	if errors.As(err, &appError) {
		return appError.Type
	}
	return ""
}

// IsType 检查错误链中是否存在指定类型的 AppError
func IsType(err error, errType ErrorType) bool {
	return err != nil && TypeOf(err) == errType
}

// IsBadRequestError 检查是否为请求格式错误
func IsBadRequestError(err error) bool {
	return IsType(err, ErrorTypeBadRequest)
}

// IsConfigurationError 检查是否为配置错误
func IsConfigurationError(err error) bool {
	return IsType(err, ErrorTypeConfiguration)
}

// HTTPStatus 将错误映射为对外的HTTP状态码
func HTTPStatus(err error) int {
	switch TypeOf(err) {
	case ErrorTypeBadRequest:
		return http.StatusBadRequest
	case ErrorTypeUpstreamLookup, ErrorTypeNetwork:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// generateErrorCode 根据错误类型生成错误代码
func generateErrorCode(errType ErrorType) string {
	switch errType {
	case ErrorTypeBadRequest:
		return "BAD_REQUEST"
	case ErrorTypeUpstreamTranscription:
		return "TRANSCRIPTION_FAILED"
	case ErrorTypeUpstreamGeneration:
		return "GENERATION_FAILED"
	case ErrorTypeMalformedOutput:
		return "MALFORMED_GENERATION_OUTPUT"
	case ErrorTypeUpstreamLookup:
		return "CITY_LOOKUP_FAILED"
	case ErrorTypeNetwork:
		return "NETWORK_ERROR"
	case ErrorTypeServer:
		return "SERVER_ERROR"
	case ErrorTypeMalformedResponse:
		return "MALFORMED_RESPONSE"
	case ErrorTypeConfiguration:
		return "CONFIGURATION_ERROR"
	default:
		return "UNKNOWN_ERROR"
	}
}
