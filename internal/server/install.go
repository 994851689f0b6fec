package server

import (
	"bytes"
	"net/http"
	"time"

	"github.com/GriffinCanCode/apcore/internal/installer"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	uploadTimeout = 2 * time.Minute
	writeTimeout  = 10 * time.Second
)

// Frame is one progress message on the install websocket.
type Frame struct {
	Type    string `json:"type"`
	Line    string `json:"line,omitempty"`
	Success *bool  `json:"success,omitempty"`
}

// Frame types.
const (
	FrameStdout = "stdout"
	FrameStderr = "stderr"
	FrameFinish = "finish"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  64 * 1024,
	WriteBufferSize: 16 * 1024,
}

// wsObserver forwards install progress as frames. The installer serializes
// observer calls, which satisfies the one-writer rule of the connection.
type wsObserver struct {
	conn   *websocket.Conn
	logger *zap.Logger
	broken bool
}

func (o *wsObserver) send(f Frame) {
	if o.broken {
		return
	}
	_ = o.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := o.conn.WriteJSON(f); err != nil {
		o.broken = true
		o.logger.Debug("Install client went away", zap.Error(err))
	}
}

func (o *wsObserver) OnStdout(line string) { o.send(Frame{Type: FrameStdout, Line: line}) }
func (o *wsObserver) OnStderr(line string) { o.send(Frame{Type: FrameStderr, Line: line}) }
func (o *wsObserver) OnFinish(success bool) {
	o.send(Frame{Type: FrameFinish, Success: &success})
}

func (s *Server) installModule(c *gin.Context) {
	kind, err := installer.ParseKind(c.Query("kind"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()
	s.metrics.IncWSConnections()
	defer s.metrics.DecWSConnections()

	conn.SetReadLimit(s.cfg.MaxPackageBytes)
	_ = conn.SetReadDeadline(time.Now().Add(uploadTimeout))
	_, pkg, err := conn.ReadMessage()
	if err != nil {
		s.logger.Warn("Package upload failed", zap.String("kind", kind.String()), zap.Error(err))
		return
	}
	_ = conn.SetReadDeadline(time.Time{})

	s.logger.Info("Install requested", zap.String("kind", kind.String()), zap.Int("bytes", len(pkg)))
	obs := &wsObserver{conn: conn, logger: s.logger.Logger}
	s.deps.Installer.Install(c.Request.Context(), bytes.NewReader(pkg), kind, obs)

	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeTimeout))
}
