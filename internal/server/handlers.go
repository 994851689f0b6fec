package server

import (
	"net/http"
	"time"

	"github.com/GriffinCanCode/apcore/internal/providers/system"
	"github.com/GriffinCanCode/apcore/internal/shell"
	"github.com/gin-gonic/gin"
)

// SessionStatus describes a session.
type SessionStatus struct {
	ID         string    `json:"id"`
	Mechanism  string    `json:"mechanism"`
	Privileged bool      `json:"privileged"`
	Alive      bool      `json:"alive"`
	StartedAt  time.Time `json:"started_at"`
	Error      string    `json:"error,omitempty"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	Session SessionStatus   `json:"session"`
	Host    system.HostInfo `json:"host"`
}

func sessionStatus(s *shell.Session) SessionStatus {
	st := SessionStatus{
		ID:         s.ID().String(),
		Mechanism:  s.Mechanism().Name,
		Privileged: s.IsPrivileged(),
		Alive:      s.IsAlive(),
		StartedAt:  s.StartedAt(),
	}
	if err := s.Cause(); err != nil {
		st.Error = err.Error()
	}
	return st
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) status(c *gin.Context) {
	c.JSON(http.StatusOK, StatusResponse{
		Session: sessionStatus(s.deps.Sessions.Get()),
		Host:    s.deps.System.Info(),
	})
}

func (s *Server) refreshSession(c *gin.Context) {
	next := s.deps.Sessions.Refresh(c.Request.Context())
	c.JSON(http.StatusOK, sessionStatus(next))
}

func (s *Server) listModules(c *gin.Context) {
	c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(s.deps.Modules.List()))
}

func (s *Server) toggleModule(enable bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		respondOK(c, s.deps.Modules.Toggle(id, enable), gin.H{"id": id, "enabled": enable})
	}
}

func (s *Server) uninstallModule(c *gin.Context) {
	id := c.Param("id")
	respondOK(c, s.deps.Modules.Uninstall(id), gin.H{"id": id})
}

type namespaceBody struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

func (s *Server) getNamespace(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"enabled": s.deps.System.GlobalNamespaceEnabled()})
}

func (s *Server) setNamespace(c *gin.Context) {
	var body namespaceBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.deps.System.SetGlobalNamespaceEnabled(*body.Enabled)
	c.JSON(http.StatusAccepted, gin.H{"enabled": *body.Enabled})
}

func (s *Server) capabilities(c *gin.Context) {
	c.JSON(http.StatusOK, s.deps.System.Check())
}

func (s *Server) restartApp(c *gin.Context) {
	pkg := c.Param("package")
	respondOK(c, s.deps.System.RestartApp(pkg), gin.H{"package": pkg})
}

type rebootBody struct {
	Reason string `json:"reason"`
}

func (s *Server) reboot(c *gin.Context) {
	var body rebootBody
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	respondOK(c, s.deps.System.Reboot(body.Reason), gin.H{"reason": body.Reason})
}

// respondOK reports a boolean backend outcome. Failures map to 502 since
// the backend, not the request, failed.
func respondOK(c *gin.Context, ok bool, fields gin.H) {
	fields["ok"] = ok
	status := http.StatusOK
	if !ok {
		status = http.StatusBadGateway
	}
	c.JSON(status, fields)
}
