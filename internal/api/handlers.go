package api

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"improbable-love/internal/ai"
	apperrors "improbable-love/internal/errors"
	"improbable-love/internal/intake"
	"improbable-love/internal/models"
	"improbable-love/internal/render"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// 返回给客户端的通用错误信息，细节只写入服务端日志
const (
	msgProcessingFailed = "Failed to process story"
	msgLookupFailed     = "Failed to fetch cities"
	msgInvalidBody      = "Invalid request body"
	msgBodyTooLarge     = "Request body too large"
)

// healthHandler 健康检查处理程序
func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// analyzeHandler 处理 POST /api/analyze
func (s *Server) analyzeHandler(c *gin.Context) {
	var req models.AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondBindError(c, err)
		return
	}

	resp, err := s.analyzer.Analyze(c.Request.Context(), req)
	if err != nil {
		s.respondAnalysisError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// renderHandler 将分析结果渲染为 HTML 片段，expanded 指定展开的事件
func (s *Server) renderHandler(c *gin.Context) {
	expanded := render.NoneExpanded
	if raw := c.Query("expanded"); raw != "" {
		i, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "expanded must be an integer"})
			return
		}
		expanded = i
	}

	body, err := c.GetRawData()
	if err != nil {
		s.respondBindError(c, err)
		return
	}

	// 客户端回传的结果同样不可信，按模型输出的规则重新校验
	result, err := ai.ParseAnalysis(string(body))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Invalid analysis result"})
		return
	}

	view := render.Build(result)
	if expanded != render.NoneExpanded {
		view.Toggle(expanded)
	}

	var buf bytes.Buffer
	if err := view.WriteHTML(&buf); err != nil {
		s.logger.Error("渲染分析结果失败", zap.String("request_id", requestID(c)), zap.Error(err))
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to render analysis"})
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

// citiesHandler 代理城市查询，API Key 只保存在服务端
func (s *Server) citiesHandler(c *gin.Context) {
	query := c.Query("q")
	cities, err := s.cities.Search(c.Request.Context(), query)
	if err != nil {
		s.logger.Error("城市查询失败",
			zap.String("request_id", requestID(c)),
			zap.String("query", query),
			zap.String("error_type", string(apperrors.TypeOf(err))),
			zap.Error(err),
		)
		c.JSON(apperrors.HTTPStatus(err), models.ErrorResponse{Error: msgLookupFailed})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"query":  strings.TrimSpace(query),
		"cities": cities,
	})
}

// meetingMethodsHandler 返回“如何相识”的选项
func (s *Server) meetingMethodsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, intake.MeetingMethods)
}

// intakeHandler 处理表单的 next / back / submit
func (s *Server) intakeHandler(c *gin.Context) {
	var form intake.Form
	if err := c.ShouldBindJSON(&form); err != nil {
		s.respondBindError(c, err)
		return
	}
	if form.Step < intake.StepPartnerOne || form.Step > intake.StepMeeting {
		form.Step = intake.StepPartnerOne
	}

	var err error
	switch action := c.Param("action"); action {
	case "next":
		err = form.Next()
	case "back":
		err = form.Back()
	case "submit":
		err = form.Validate()
	default:
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "unknown action " + action})
		return
	}

	var verr *intake.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":  "Please complete the highlighted fields",
			"fields": verr.Fields,
			"form":   form,
		})
	case err != nil:
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "form": form})
	default:
		c.JSON(http.StatusOK, gin.H{"form": form})
	}
}

// respondAnalysisError 请求错误原样返回，其余错误只返回通用信息
func (s *Server) respondAnalysisError(c *gin.Context, err error) {
	if apperrors.IsBadRequestError(err) {
		var appErr *apperrors.AppError
		errors.As(err, &appErr)
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: appErr.Message})
		return
	}

	s.logger.Error("故事分析失败",
		zap.String("request_id", requestID(c)),
		zap.String("error_type", string(apperrors.TypeOf(err))),
		zap.Error(err),
		zap.Stack("stack"),
	)
	c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: msgProcessingFailed})
}

func (s *Server) respondBindError(c *gin.Context, err error) {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		c.JSON(http.StatusRequestEntityTooLarge, models.ErrorResponse{Error: msgBodyTooLarge})
		return
	}
	c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: msgInvalidBody})
}
