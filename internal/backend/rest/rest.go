package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/slok/jarvis/internal/log"
	"github.com/slok/jarvis/internal/model"
)

const apiPrefix = "/api"

// ClientConfig is the configuration for the REST backend client.
type ClientConfig struct {
	// BaseURL is the backend HTTP base URL (e.g. http://localhost:8000).
	BaseURL string
	// HTTPClient is the HTTP client used for the requests.
	HTTPClient *http.Client
	Logger     log.Logger
}

func (c *ClientConfig) defaults() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base url is required")
	}
	if _, err := url.Parse(c.BaseURL); err != nil {
		return fmt.Errorf("invalid base url: %w", err)
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")

	if c.HTTPClient == nil {
		c.HTTPClient = http.DefaultClient
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "backend.REST"})
	return nil
}

// Client is an HTTP+JSON implementation of backend.Client.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     log.Logger
}

// NewClient creates a new REST backend client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		httpClient: cfg.HTTPClient,
		logger:     cfg.Logger,
	}, nil
}

// --- JSON wire types ---

type taskRequestJSON struct {
	Description string `json:"description"`
}

type stepJSON struct {
	Description string `json:"description"`
	RiskLevel   string `json:"risk_level"`
}

type artifactJSON struct {
	Path        string `json:"path"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

type taskReplyJSON struct {
	Status    string         `json:"status"`
	TaskID    string         `json:"task_id"`
	Steps     []stepJSON     `json:"steps"`
	QA        bool           `json:"qa"`
	Answer    string         `json:"answer"`
	Summary   string         `json:"summary"`
	Artifacts []artifactJSON `json:"artifacts"`
}

type approvalRequestJSON struct {
	TaskID   string `json:"task_id"`
	Approved bool   `json:"approved"`
}

type approvalReplyJSON struct {
	TaskID    string         `json:"task_id"`
	Status    string         `json:"status"`
	Summary   string         `json:"summary"`
	Artifacts []artifactJSON `json:"artifacts"`
}

type skillJSON struct {
	SkillID     string `json:"skill_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type skillsReplyJSON struct {
	Skills []skillJSON `json:"skills"`
}

type toolJSON struct {
	ToolID      string `json:"tool_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type toolsReplyJSON struct {
	Tools []toolJSON `json:"tools"`
}

func toModelArtifacts(as []artifactJSON) []model.Artifact {
	if len(as) == 0 {
		return nil
	}
	res := make([]model.Artifact, 0, len(as))
	for _, a := range as {
		res = append(res, model.Artifact{Path: a.Path, Type: a.Type, Description: a.Description})
	}
	return res
}

func (r taskReplyJSON) toModel() *model.TaskReply {
	var steps []model.ApprovalStep
	for _, s := range r.Steps {
		steps = append(steps, model.ApprovalStep{
			Description: s.Description,
			RiskLevel:   model.RiskLevel(s.RiskLevel),
		})
	}

	return &model.TaskReply{
		Status:    model.TaskStatus(r.Status),
		TaskID:    r.TaskID,
		Steps:     steps,
		QA:        r.QA,
		Answer:    r.Answer,
		Summary:   r.Summary,
		Artifacts: toModelArtifacts(r.Artifacts),
	}
}

func (r approvalReplyJSON) toModel() *model.ApprovalReply {
	return &model.ApprovalReply{
		TaskID:    r.TaskID,
		Status:    model.TaskStatus(r.Status),
		Summary:   r.Summary,
		Artifacts: toModelArtifacts(r.Artifacts),
	}
}

// --- backend.Client interface implementation ---

// CreateTask submits a task to the backend.
func (c *Client) CreateTask(ctx context.Context, description string) (*model.TaskReply, error) {
	var reply taskReplyJSON
	err := c.doJSON(ctx, http.MethodPost, apiPrefix+"/tasks", taskRequestJSON{Description: description}, &reply)
	if err != nil {
		return nil, fmt.Errorf("could not create task: %w", err)
	}

	c.logger.Debugf("Task created with status %q (task: %q)", reply.Status, reply.TaskID)
	return reply.toModel(), nil
}

// ApproveTask sends an approval decision to the backend.
func (c *Client) ApproveTask(ctx context.Context, decision model.ApprovalDecision) (*model.ApprovalReply, error) {
	if decision.TaskID == "" {
		return nil, fmt.Errorf("task id is required: %w", model.ErrNotValid)
	}

	path := fmt.Sprintf("%s/tasks/%s/approve", apiPrefix, url.PathEscape(decision.TaskID))
	body := approvalRequestJSON{TaskID: decision.TaskID, Approved: decision.Approved}

	var reply approvalReplyJSON
	if err := c.doJSON(ctx, http.MethodPost, path, body, &reply); err != nil {
		return nil, fmt.Errorf("could not approve task: %w", err)
	}

	c.logger.Debugf("Approval decision for task %s sent (approved: %t), status %q", decision.TaskID, decision.Approved, reply.Status)
	return reply.toModel(), nil
}

// ListSkills lists the backend skills.
func (c *Client) ListSkills(ctx context.Context) ([]model.Skill, error) {
	var reply skillsReplyJSON
	if err := c.doJSON(ctx, http.MethodGet, apiPrefix+"/skills", nil, &reply); err != nil {
		return nil, fmt.Errorf("could not list skills: %w", err)
	}

	skills := make([]model.Skill, 0, len(reply.Skills))
	for _, s := range reply.Skills {
		skills = append(skills, model.Skill{ID: s.SkillID, Name: s.Name, Description: s.Description})
	}
	return skills, nil
}

// ListTools lists the backend tools.
func (c *Client) ListTools(ctx context.Context) ([]model.Tool, error) {
	var reply toolsReplyJSON
	if err := c.doJSON(ctx, http.MethodGet, apiPrefix+"/tools", nil, &reply); err != nil {
		return nil, fmt.Errorf("could not list tools: %w", err)
	}

	tools := make([]model.Tool, 0, len(reply.Tools))
	for _, t := range reply.Tools {
		tools = append(tools, model.Tool{ID: t.ToolID, Name: t.Name, Description: t.Description})
	}
	return tools, nil
}

// doJSON makes a JSON request and decodes the JSON response into out.
// Any transport, status or decoding failure is wrapped with model.ErrRequestFailed.
func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	u := c.baseURL + path

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("could not encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return fmt.Errorf("could not create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w: %w", method, u, model.ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("HTTP %d from %s: %w", resp.StatusCode, u, model.ErrRequestFailed)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("could not decode response from %s: %w: %w", u, model.ErrRequestFailed, err)
	}

	return nil
}
