package fake

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/slok/jarvis/internal/log"
	"github.com/slok/jarvis/internal/model"
)

// ServerConfig is the configuration of the fake backend server.
type ServerConfig struct {
	Planner Planner
	Skills  []model.Skill
	Tools   []model.Tool
	// StageDelay is the pause between pushed stages.
	StageDelay time.Duration
	IDGen      func() string
	Logger     log.Logger
}

func (c *ServerConfig) defaults() error {
	if c.Planner == nil {
		c.Planner = KeywordPlanner
	}
	if c.Skills == nil {
		c.Skills = DefaultSkills
	}
	if c.Tools == nil {
		c.Tools = DefaultTools
	}
	if c.StageDelay < 0 {
		return fmt.Errorf("stage delay can't be negative")
	}
	if c.IDGen == nil {
		c.IDGen = uuid.NewString
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "fake.Server"})
	return nil
}

// DefaultSkills are the skills served when none are configured.
var DefaultSkills = []model.Skill{
	{ID: "file_report", Name: "File report", Description: "Summarizes the files of a directory"},
	{ID: "web_digest", Name: "Web digest", Description: "Fetches and digests a web page"},
}

// DefaultTools are the tools served when none are configured.
var DefaultTools = []model.Tool{
	{ID: "shell", Name: "Shell", Description: "Runs shell commands in the sandbox"},
	{ID: "fs_read", Name: "File reader", Description: "Reads files from the workspace"},
	{ID: "fs_write", Name: "File writer", Description: "Writes files in the workspace"},
}

type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsClient) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

// Server is an in-process task execution backend. It mimics the real backend
// API and push channel with a deterministic planner and no real execution.
type Server struct {
	planner    Planner
	skills     []model.Skill
	tools      []model.Tool
	stageDelay time.Duration
	idGen      func() string
	logger     log.Logger
	engine     *gin.Engine
	upgrader   websocket.Upgrader

	mu      sync.Mutex
	clients map[*wsClient]struct{}
	pending map[string]Plan
}

// NewServer returns a new fake backend server.
func NewServer(cfg ServerConfig) (*Server, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		planner:    cfg.Planner,
		skills:     cfg.Skills,
		tools:      cfg.Tools,
		stageDelay: cfg.StageDelay,
		idGen:      cfg.IDGen,
		logger:     cfg.Logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: map[*wsClient]struct{}{},
		pending: map[string]Plan{},
	}

	g := gin.New()
	g.Use(gin.Recovery(), s.logRequests())
	g.POST("/api/tasks", s.createTask)
	g.POST("/api/tasks/:id/approve", s.approveTask)
	g.GET("/api/skills", s.listSkills)
	g.GET("/api/tools", s.listTools)
	g.GET("/ws", s.serveWS)
	s.engine = g

	return s, nil
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler { return s.engine }

// ListenAndServe serves on addr until the context ends.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.engine}

	errC := make(chan error, 1)
	go func() {
		s.logger.Infof("Fake backend listening on %s", addr)
		errC <- srv.ListenAndServe()
	}()

	select {
	case err := <-errC:
		return fmt.Errorf("could not serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.closeClients()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("could not shutdown: %w", err)
	}

	return nil
}

// ConnectedClients returns the number of open push connections.
func (s *Server) ConnectedClients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

func (s *Server) logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debugf("%s %s %d (%s)", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

// --- JSON wire types ---

type taskRequestJSON struct {
	Description string `json:"description" binding:"required"`
}

type approvalRequestJSON struct {
	TaskID   string `json:"task_id"`
	Approved bool   `json:"approved"`
}

type stepJSON struct {
	StepID      string `json:"step_id"`
	Description string `json:"description"`
	RiskLevel   string `json:"risk_level"`
}

type artifactJSON struct {
	Path        string `json:"path"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

type updateJSON struct {
	Type      string `json:"type"`
	Stage     string `json:"stage"`
	Data      gin.H  `json:"data"`
	Timestamp string `json:"timestamp"`
}

func stepsJSON(steps []model.ApprovalStep) []stepJSON {
	res := make([]stepJSON, 0, len(steps))
	for i, s := range steps {
		res = append(res, stepJSON{StepID: fmt.Sprintf("step_%d", i+1), Description: s.Description, RiskLevel: string(s.RiskLevel)})
	}
	return res
}

func artifactsJSON(as []model.Artifact) []artifactJSON {
	res := make([]artifactJSON, 0, len(as))
	for _, a := range as {
		res = append(res, artifactJSON{Path: a.Path, Type: a.Type, Description: a.Description})
	}
	return res
}

// --- Handlers ---

func (s *Server) createTask(c *gin.Context) {
	var req taskRequestJSON
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	ctx := c.Request.Context()
	taskID := s.idGen()
	plan := s.planner.Plan(taskID, req.Description)

	s.update(ctx, model.StageReceived, gin.H{"description": req.Description})
	s.update(ctx, model.StageTaskCreated, gin.H{"task_id": taskID, "status": "new"})
	s.update(ctx, model.StageBuildingContext, gin.H{})
	s.update(ctx, model.StageContextBuilt, gin.H{})
	s.update(ctx, model.StageRouting, gin.H{})

	if plan.Err != nil {
		s.update(ctx, model.StageError, gin.H{"message": plan.Err.Error()})
		c.JSON(http.StatusInternalServerError, gin.H{"detail": plan.Err.Error()})
		return
	}

	if plan.QA {
		s.update(ctx, model.StageCompleted, gin.H{"task_id": taskID, "answer": plan.Answer, "qa": true})
		c.JSON(http.StatusOK, gin.H{"task_id": taskID, "status": "completed", "answer": plan.Answer, "qa": true})
		return
	}

	steps := stepsJSON(plan.Steps)
	s.update(ctx, model.StageRouted, gin.H{"type": "tools"})
	s.update(ctx, model.StagePlanning, gin.H{})
	s.update(ctx, model.StagePlanned, gin.H{"steps": steps})

	if needsApproval(plan.Steps) {
		s.mu.Lock()
		s.pending[taskID] = plan
		s.mu.Unlock()

		risk := maxRisk(plan.Steps)
		s.update(ctx, model.StageWaitingApproval, gin.H{"task_id": taskID, "max_risk": risk, "steps": steps})
		c.JSON(http.StatusOK, gin.H{"task_id": taskID, "status": "waiting_approval", "max_risk": risk, "steps": steps})
		return
	}

	s.update(ctx, model.StageExecuting, gin.H{})
	arts := artifactsJSON(plan.Artifacts)
	s.update(ctx, model.StageCompleted, gin.H{"task_id": taskID, "artifacts": arts, "summary": plan.Summary})
	c.JSON(http.StatusOK, gin.H{"task_id": taskID, "status": "completed", "artifacts": arts, "summary": plan.Summary})
}

func (s *Server) approveTask(c *gin.Context) {
	taskID := c.Param("id")

	var req approvalRequestJSON
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	s.mu.Lock()
	plan, ok := s.pending[taskID]
	delete(s.pending, taskID)
	s.mu.Unlock()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Task not found"})
		return
	}

	ctx := c.Request.Context()
	if !req.Approved {
		s.update(ctx, model.StageCancelled, gin.H{"task_id": taskID})
		c.JSON(http.StatusOK, gin.H{"task_id": taskID, "status": "cancelled"})
		return
	}

	arts := artifactsJSON(plan.Artifacts)
	s.update(ctx, model.StageCompleted, gin.H{"task_id": taskID, "artifacts": arts, "summary": plan.Summary})
	c.JSON(http.StatusOK, gin.H{"task_id": taskID, "status": "completed", "artifacts": arts, "summary": plan.Summary})
}

func (s *Server) listSkills(c *gin.Context) {
	skills := make([]gin.H, 0, len(s.skills))
	for _, sk := range s.skills {
		skills = append(skills, gin.H{"skill_id": sk.ID, "name": sk.Name, "description": sk.Description})
	}
	c.JSON(http.StatusOK, gin.H{"skills": skills})
}

func (s *Server) listTools(c *gin.Context) {
	tools := make([]gin.H, 0, len(s.tools))
	for _, t := range s.tools {
		tools = append(tools, gin.H{"tool_id": t.ID, "name": t.Name, "description": t.Description})
	}
	c.JSON(http.StatusOK, gin.H{"tools": tools})
}

func (s *Server) serveWS(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warningf("Could not upgrade connection: %s", err)
		return
	}

	client := &wsClient{conn: conn}
	s.mu.Lock()
	s.clients[client] = struct{}{}
	s.mu.Unlock()
	s.logger.Debugf("Push client connected")

	defer func() {
		s.mu.Lock()
		delete(s.clients, client)
		s.mu.Unlock()
		_ = conn.Close()
		s.logger.Debugf("Push client disconnected")
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var msg struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(data, &msg); err != nil {
			s.logger.Warningf("Invalid client message: %s", err)
			continue
		}
		if msg.Type == string(model.PushMessageTypePing) {
			if err := client.writeJSON(gin.H{"type": model.PushMessageTypePong}); err != nil {
				return
			}
		}
	}
}

// update broadcasts a stage update to every push client.
func (s *Server) update(ctx context.Context, stage model.Stage, data gin.H) {
	if s.stageDelay > 0 {
		select {
		case <-time.After(s.stageDelay):
		case <-ctx.Done():
		}
	}

	msg := updateJSON{
		Type:      string(model.PushMessageTypeTaskUpdate),
		Stage:     string(stage),
		Data:      data,
		Timestamp: time.Now().Format(time.RFC3339Nano),
	}

	s.mu.Lock()
	clients := make([]*wsClient, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()

	for _, c := range clients {
		if err := c.writeJSON(msg); err != nil {
			s.logger.Debugf("Could not push update: %s", err)
		}
	}
}

func (s *Server) closeClients() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		_ = c.conn.Close()
	}
}
