package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"improbable-love/internal/capture"
	"improbable-love/internal/cities"
	apperrors "improbable-love/internal/errors"
	"improbable-love/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const wsWriteTimeout = 10 * time.Second

// socketMessage 是客户端发来的控制消息
type socketMessage struct {
	Type  string `json:"type"`
	Query string `json:"query,omitempty"`
}

// socketEvent 是服务端推送的消息
type socketEvent struct {
	Type     string                  `json:"type"`
	Session  string                  `json:"session,omitempty"`
	State    capture.State           `json:"state,omitempty"`
	Duration string                  `json:"duration,omitempty"`
	Seconds  int                     `json:"seconds,omitempty"`
	Bytes    int                     `json:"bytes,omitempty"`
	Query    string                  `json:"query,omitempty"`
	Analysis *models.AnalyzeResponse `json:"analysis,omitempty"`
	Error    string                  `json:"error,omitempty"`
}

// citiesEvent 是城市查询结果，空结果也要带上 cities 字段
type citiesEvent struct {
	Type   string        `json:"type"`
	Query  string        `json:"query"`
	Cities []models.City `json:"cities"`
}

// socketConn 串行化对同一连接的写操作
type socketConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *socketConn) send(event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

func (s *Server) upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 32 * 1024,
		CheckOrigin:     s.checkOrigin,
	}
}

// checkOrigin 只允许配置中的来源，非浏览器客户端不带 Origin 时放行
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.config.Server.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

// openSocket 升级连接并返回一个在连接结束或服务关闭时取消的 context
func (s *Server) openSocket(c *gin.Context) (*socketConn, context.Context, context.CancelFunc, bool) {
	conn, err := s.upgrader().Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("websocket 升级失败", zap.String("request_id", requestID(c)), zap.Error(err))
		return nil, nil, nil, false
	}
	conn.SetReadLimit(s.config.Server.MaxBodyBytes)

	ctx, cancel := context.WithCancel(s.ctx)
	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()
	return &socketConn{conn: conn}, ctx, cancel, true
}

// recordSocketHandler 处理录音会话：文本帧为控制消息，二进制帧为音频数据
func (s *Server) recordSocketHandler(c *gin.Context) {
	mimeType := c.DefaultQuery("mime", "audio/webm")
	sock, ctx, cancel, ok := s.openSocket(c)
	if !ok {
		return
	}
	defer cancel()

	session := &recordSession{
		id:       uuid.NewString(),
		sock:     sock,
		analyzer: s.analyzer,
		logger:   s.logger,
	}
	session.recorder = capture.NewRecorder(mimeType,
		capture.WithMaxBytes(s.config.Analysis.MaxAudioBytes),
		capture.WithOnTick(func(time.Duration) {
			session.sendState()
		}),
	)
	defer session.recorder.Close()

	s.logger.Info("录音会话开始", zap.String("session", session.id), zap.String("mime", mimeType))
	session.sendState()

	for {
		msgType, data, err := sock.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) && ctx.Err() == nil {
				s.logger.Warn("录音会话异常断开", zap.String("session", session.id), zap.Error(err))
			}
			break
		}

		switch msgType {
		case websocket.BinaryMessage:
			if _, err := session.recorder.Write(data); err != nil {
				session.sendError(err.Error())
			}
		case websocket.TextMessage:
			var msg socketMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				session.sendError("invalid message")
				continue
			}
			session.handle(ctx, msg)
		}
	}

	cancel()
	session.wg.Wait()
	s.logger.Info("录音会话结束", zap.String("session", session.id))
}

type recordSession struct {
	id        string
	sock      *socketConn
	recorder  *capture.Recorder
	analyzer  Analyzer
	logger    *zap.Logger
	analyzing atomic.Bool
	wg        sync.WaitGroup
}

func (r *recordSession) handle(ctx context.Context, msg socketMessage) {
	var err error
	switch msg.Type {
	case "start":
		err = r.recorder.Start()
	case "stop":
		err = r.recorder.Stop()
	case "restart":
		err = r.recorder.Restart()
	case "reset":
		err = r.recorder.Reset()
	case "status":
	case "analyze":
		r.analyze(ctx)
		return
	default:
		r.sendError("unknown message type " + msg.Type)
		return
	}
	if err != nil {
		r.sendError(err.Error())
		return
	}
	r.sendState()
}

// analyze 在后台提交录音，同一会话同一时间只允许一次分析
func (r *recordSession) analyze(ctx context.Context) {
	input, err := r.recorder.Artifact()
	if err != nil {
		r.sendError(err.Error())
		return
	}
	if !r.analyzing.CompareAndSwap(false, true) {
		r.sendError("an analysis is already in progress")
		return
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer r.analyzing.Store(false)

		resp, err := r.analyzer.AnalyzeStory(ctx, input)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			r.logger.Error("录音分析失败",
				zap.String("session", r.id),
				zap.String("error_type", string(apperrors.TypeOf(err))),
				zap.Error(err),
				zap.Stack("stack"),
			)
			r.sendError(msgProcessingFailed)
			return
		}
		_ = r.sock.send(socketEvent{Type: "analysis", Session: r.id, Analysis: resp})
	}()
}

func (r *recordSession) sendState() {
	d := r.recorder.Duration()
	_ = r.sock.send(socketEvent{
		Type:     "state",
		Session:  r.id,
		State:    r.recorder.State(),
		Duration: capture.FormatDuration(d),
		Seconds:  int(d / time.Second),
		Bytes:    r.recorder.Size(),
	})
}

func (r *recordSession) sendError(msg string) {
	_ = r.sock.send(socketEvent{Type: "error", Session: r.id, Error: msg})
}

// citiesSocketHandler 为每个连接驱动一个防抖的城市查询
func (s *Server) citiesSocketHandler(c *gin.Context) {
	sock, ctx, cancel, ok := s.openSocket(c)
	if !ok {
		return
	}
	defer cancel()

	typeahead := cities.NewTypeahead(s.cities, s.config.Cities.Debounce, func(res cities.Result) {
		if res.Err != nil {
			s.logger.Error("城市查询失败",
				zap.String("query", res.Query),
				zap.String("error_type", string(apperrors.TypeOf(res.Err))),
				zap.Error(res.Err),
			)
			_ = sock.send(socketEvent{Type: "error", Query: res.Query, Error: msgLookupFailed})
			return
		}
		_ = sock.send(citiesEvent{Type: "cities", Query: res.Query, Cities: res.Cities})
	})
	defer typeahead.Close()

	for {
		msgType, data, err := sock.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) && ctx.Err() == nil {
				s.logger.Warn("城市查询会话异常断开", zap.Error(err))
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		var msg socketMessage
		if err := json.Unmarshal(data, &msg); err != nil || msg.Type != "input" {
			_ = sock.send(socketEvent{Type: "error", Error: "invalid message"})
			continue
		}
		typeahead.Input(msg.Query)
	}
}
