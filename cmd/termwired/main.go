// Command termwired runs a shell on a PTY, mirrors its output into a grid,
// and serves encoded frames over HTTP and WebSocket.
package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/bytedance/sonic"
	"github.com/creack/pty"
	termwire "github.com/danielgatis/go-termwire"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap"
)

// Config is read from TERMWIRED_* environment variables.
type Config struct {
	Host           string        `envconfig:"HOST" default:"0.0.0.0"`
	Port           string        `envconfig:"PORT" default:"8080"`
	Shell          string        `envconfig:"SHELL"`
	Cols           int           `envconfig:"COLS" default:"80"`
	Rows           int           `envconfig:"ROWS" default:"24"`
	FrameInterval  time.Duration `envconfig:"FRAME_INTERVAL" default:"50ms"`
	MaxLineBytes   int           `envconfig:"MAX_LINE_BYTES" default:"0"`
	MaxResultBytes int           `envconfig:"MAX_RESULT_BYTES" default:"0"`
	LogDev         bool          `envconfig:"LOG_DEV" default:"false"`
}

// session couples a PTY-backed shell with the grid mirroring its output.
type session struct {
	grid *termwire.Grid
	cmd  *exec.Cmd
	ptmx *os.File
}

func startSession(cfg Config) (*session, error) {
	shell := cfg.Shell
	if shell == "" {
		shell = os.Getenv("SHELL")
	}
	if shell == "" {
		shell = "/bin/bash"
	}

	cmd := exec.Command(shell)
	cmd.Env = append(os.Environ(), "TERM=xterm-256color")

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{
		Rows: uint16(cfg.Rows),
		Cols: uint16(cfg.Cols),
	})
	if err != nil {
		return nil, fmt.Errorf("start pty: %w", err)
	}

	s := &session{
		grid: termwire.NewGrid(cfg.Cols, cfg.Rows),
		cmd:  cmd,
		ptmx: ptmx,
	}
	go s.pump()

	return s, nil
}

// pump mirrors PTY output into the grid until the shell exits.
func (s *session) pump() {
	buf := make([]byte, 4096)
	for {
		n, err := s.ptmx.Read(buf)
		if n > 0 {
			s.grid.Write(buf[:n])
		}
		if err != nil {
			return
		}
	}
}

func (s *session) resize(cols, rows int) error {
	if cols <= 0 || rows <= 0 {
		return fmt.Errorf("invalid size %dx%d", cols, rows)
	}
	if err := pty.Setsize(s.ptmx, &pty.Winsize{Rows: uint16(rows), Cols: uint16(cols)}); err != nil {
		return fmt.Errorf("resize pty: %w", err)
	}
	s.grid.Resize(cols, rows)
	return nil
}

func (s *session) close() {
	if s.cmd.Process != nil {
		s.cmd.Process.Kill()
	}
	s.ptmx.Close()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type server struct {
	session       *session
	encoder       *termwire.Encoder
	logger        *zap.Logger
	frameInterval time.Duration
}

// encodeFrame snapshots the grid and, when a query is given, overlays a
// highlight region on every match visible in the window.
func (s *server) encodeFrame(offset, limit int, query string) (*termwire.TerminalData, error) {
	frame, err := s.encoder.Encode(s.session.grid, offset, limit)
	if err != nil {
		return nil, err
	}
	if query == "" {
		return frame, nil
	}

	width := len([]rune(query))
	var regions []termwire.HighlightRegion
	for _, m := range s.session.grid.Search(query) {
		line := m.Row - frame.Offset
		if line < 0 || line >= len(frame.Lines) {
			continue
		}
		regions = append(regions, termwire.HighlightRegion{
			Line:            line,
			Start:           m.Col,
			End:             m.Col + width,
			BackgroundColor: "#ffff00",
		})
	}

	return frame.WithHighlights(regions), nil
}

func (s *server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *server) handleSnapshot(c *gin.Context) {
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))

	frame, err := s.encodeFrame(offset, limit, c.Query("q"))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, termwire.ErrCapacityExceeded) {
			status = http.StatusInsufficientStorage
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	data, err := sonic.Marshal(frame)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "application/json", data)
}

func (s *server) handleInput(c *gin.Context) {
	var req struct {
		Data string `json:"data" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if _, err := s.session.ptmx.Write([]byte(req.Data)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *server) handleResize(c *gin.Context) {
	var req struct {
		Cols int `json:"cols" binding:"required"`
		Rows int `json:"rows" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.session.resize(req.Cols, req.Rows); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// clientMessage is what WebSocket clients send: keystrokes or resizes.
type clientMessage struct {
	Type string `json:"type"`
	Data string `json:"data,omitempty"`
	Cols int    `json:"cols,omitempty"`
	Rows int    `json:"rows,omitempty"`
}

// handleStream pushes encoded frames on a fixed interval, skipping frames
// identical to the last one sent.
func (s *server) handleStream(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Error("websocket upgrade", zap.Error(err))
		return
	}
	defer conn.Close()

	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	query := c.Query("q")

	done := make(chan struct{})
	go s.readClient(conn, done)

	ticker := time.NewTicker(s.frameInterval)
	defer ticker.Stop()

	var last []byte
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			frame, err := s.encodeFrame(offset, limit, query)
			if err != nil {
				s.logger.Error("encode frame", zap.Error(err))
				return
			}
			data, err := sonic.Marshal(frame)
			if err != nil {
				s.logger.Error("marshal frame", zap.Error(err))
				return
			}
			if bytes.Equal(data, last) {
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
			last = data
		}
	}
}

func (s *server) readClient(conn *websocket.Conn, done chan struct{}) {
	defer close(done)
	for {
		var msg clientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}

		switch msg.Type {
		case "input":
			if _, err := s.session.ptmx.Write([]byte(msg.Data)); err != nil {
				s.logger.Warn("pty write", zap.Error(err))
			}
		case "resize":
			if err := s.session.resize(msg.Cols, msg.Rows); err != nil {
				s.logger.Warn("resize", zap.Error(err))
			}
		}
	}
}

func main() {
	var cfg Config
	if err := envconfig.Process("termwired", &cfg); err != nil {
		log.Fatalf("load config: %v", err)
	}

	var logger *zap.Logger
	var err error
	if cfg.LogDev {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	sess, err := startSession(cfg)
	if err != nil {
		logger.Fatal("start session", zap.Error(err))
	}
	defer sess.close()

	var opts []termwire.EncoderOption
	if cfg.MaxLineBytes > 0 {
		opts = append(opts, termwire.WithMaxLineBytes(cfg.MaxLineBytes))
	}
	if cfg.MaxResultBytes > 0 {
		opts = append(opts, termwire.WithMaxResultBytes(cfg.MaxResultBytes))
	}

	srv := &server{
		session:       sess,
		encoder:       termwire.NewEncoder(opts...),
		logger:        logger,
		frameInterval: cfg.FrameInterval,
	}

	if !cfg.LogDev {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", srv.handleHealth)
	router.GET("/api/snapshot", srv.handleSnapshot)
	router.POST("/api/input", srv.handleInput)
	router.POST("/api/resize", srv.handleResize)
	router.GET("/ws", srv.handleStream)

	httpSrv := &http.Server{
		Addr:    net.JoinHostPort(cfg.Host, cfg.Port),
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("listening",
			zap.String("addr", httpSrv.Addr),
			zap.Int("cols", cfg.Cols),
			zap.Int("rows", cfg.Rows))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("serve", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
}
