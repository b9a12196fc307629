// Copyright 2026 © The Agent Registry Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/conneskills/cs-agent-registry-api/pkg/core"
	"github.com/conneskills/cs-agent-registry-api/pkg/discovery"
	"github.com/conneskills/cs-agent-registry-api/pkg/errors"
	"github.com/conneskills/cs-agent-registry-api/pkg/registry"
	"github.com/conneskills/cs-agent-registry-api/pkg/store"
)

type handlers struct {
	svc *registry.Service
}

func (h *handlers) register(e *echo.Echo) {
	e.GET("/health", h.health)

	registerResources(e, "/skills", resourceRoutes[core.Skill, *core.Skill]{res: h.svc.Skills, one: "skill", many: "skills"})
	registerResources(e, "/tools", resourceRoutes[core.Tool, *core.Tool]{res: h.svc.Tools, one: "tool", many: "tools"})
	registerResources(e, "/rag", resourceRoutes[core.RAGConfig, *core.RAGConfig]{res: h.svc.RAG, one: "rag_config", many: "rag_configs"})
	registerResources(e, "/prompts", resourceRoutes[core.Prompt, *core.Prompt]{res: h.svc.Prompts, one: "prompt", many: "prompts"})
	registerResources(e, "/architectures", resourceRoutes[core.Architecture, *core.Architecture]{
		res:     h.svc.Architectures,
		one:     "architecture",
		many:    "architectures",
		idField: "architecture_id",
	})

	e.POST("/agents", h.createAgent)
	e.GET("/agents", h.listAgents)
	e.GET("/agents/:id", h.getAgent)
	e.PUT("/agents/:id", h.updateAgent)
	e.DELETE("/agents/:id", h.deleteAgent)
	e.PATCH("/agents/:id/url", h.setAgentURL)

	e.GET("/discover", h.discover)
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status     string            `json:"status"`
	Storage    StorageHealth     `json:"storage"`
	Components map[string]string `json:"components,omitempty"`
}

// StorageHealth describes the storage backend.
type StorageHealth struct {
	Type   string `json:"type"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func (h *handlers) health(c echo.Context) error {
	ctx := c.Request().Context()
	results, overall := h.svc.Health(ctx)

	resp := HealthResponse{
		Status:     strings.ToLower(string(overall)),
		Storage:    StorageHealth{Type: h.svc.StorageType(), Status: "error"},
		Components: make(map[string]string, len(results)),
	}
	for _, r := range results {
		resp.Components[r.Component] = strings.ToLower(string(r.Status))
		if r.Component != "storage" {
			continue
		}
		if s := r.Details["status"]; s != "" {
			resp.Storage.Status = s
		}
		if r.Error != nil {
			resp.Storage.Error = r.Error.Error()
		}
	}

	status := http.StatusOK
	if overall == core.HealthUnhealthy {
		status = http.StatusServiceUnavailable
	}
	return c.JSON(status, resp)
}

type resourceRoutes[T any, PT store.Record[T]] struct {
	res     *registry.Resources[T, PT]
	one     string
	many    string
	idField string
}

func registerResources[T any, PT store.Record[T]](e *echo.Echo, path string, rr resourceRoutes[T, PT]) {
	e.POST(path, rr.create)
	e.GET(path, rr.list)
	e.GET(path+"/:id", rr.get)
	e.PUT(path+"/:id", rr.update)
	e.DELETE(path+"/:id", rr.delete)
}

func (rr resourceRoutes[T, PT]) create(c echo.Context) error {
	var item T
	if err := c.Bind(&item); err != nil {
		return badRequest(err)
	}
	out, err := rr.res.Create(c.Request().Context(), item)
	if err != nil {
		return err
	}
	body := map[string]any{"status": "created", rr.one: out}
	if rr.idField != "" {
		body[rr.idField] = PT(&out).Meta().ID
	}
	return c.JSON(http.StatusOK, body)
}

func (rr resourceRoutes[T, PT]) list(c echo.Context) error {
	items, err := rr.res.List(c.Request().Context(), c.QueryParam("tag"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"count": len(items), rr.many: items})
}

func (rr resourceRoutes[T, PT]) get(c echo.Context) error {
	item, err := rr.res.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, item)
}

func (rr resourceRoutes[T, PT]) update(c echo.Context) error {
	var item T
	if err := c.Bind(&item); err != nil {
		return badRequest(err)
	}
	out, err := rr.res.Update(c.Request().Context(), c.Param("id"), item)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"status": "updated", rr.one: out})
}

func (rr resourceRoutes[T, PT]) delete(c echo.Context) error {
	id := c.Param("id")
	if err := rr.res.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"status": "deleted", "id": id})
}

// AgentEnvelope is returned by agent writes.
type AgentEnvelope struct {
	Status  string     `json:"status"`
	AgentID string     `json:"agent_id"`
	Agent   core.Agent `json:"agent"`
}

// AgentList is returned by GET /agents.
type AgentList struct {
	Count  int          `json:"count"`
	Agents []core.Agent `json:"agents"`
}

type setURLRequest struct {
	URL string `json:"url"`
}

func (h *handlers) createAgent(c echo.Context) error {
	var req core.AgentRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(err)
	}
	agent, err := h.svc.Agents.Create(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, AgentEnvelope{Status: "created", AgentID: agent.ID, Agent: agent})
}

func (h *handlers) listAgents(c echo.Context) error {
	agents, err := h.svc.Agents.List(c.Request().Context(), registry.AgentFilter{
		Tag:           c.QueryParam("tag"),
		AgentType:     c.QueryParam("agent_type"),
		ExecutionType: c.QueryParam("execution_type"),
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, AgentList{Count: len(agents), Agents: agents})
}

func (h *handlers) getAgent(c echo.Context) error {
	agent, err := h.svc.Agents.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, agent)
}

func (h *handlers) updateAgent(c echo.Context) error {
	var req core.AgentRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(err)
	}
	agent, err := h.svc.Agents.Update(c.Request().Context(), c.Param("id"), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, AgentEnvelope{Status: "updated", AgentID: agent.ID, Agent: agent})
}

func (h *handlers) deleteAgent(c echo.Context) error {
	id := c.Param("id")
	if err := h.svc.Agents.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"status": "deleted", "id": id})
}

func (h *handlers) setAgentURL(c echo.Context) error {
	var req setURLRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(err)
	}
	agent, err := h.svc.Agents.SetURL(c.Request().Context(), c.Param("id"), req.URL)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, agent)
}

// DiscoverResponse is returned by GET /discover. Exactly one of
// RecommendedAgent and Message is set.
type DiscoverResponse struct {
	Query            string        `json:"query"`
	RecommendedAgent *core.Agent   `json:"recommended_agent,omitempty"`
	Score            int           `json:"score,omitempty"`
	MatchedSkill     string        `json:"matched_skill,omitempty"`
	Alternatives     []Alternative `json:"alternatives,omitempty"`
	Message          string        `json:"message,omitempty"`
}

// Alternative is a lower-ranked discovery match.
type Alternative struct {
	Agent        core.Agent `json:"agent"`
	Score        int        `json:"score"`
	MatchedSkill string     `json:"matched_skill"`
}

func (h *handlers) discover(c echo.Context) error {
	query := strings.TrimSpace(c.QueryParam("query"))
	if query == "" {
		return errors.Invalid("query", "is required")
	}
	limit := 1
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return errors.Invalid("limit", "must be a positive integer")
		}
		limit = n
	}

	matches, err := h.svc.Discover(c.Request().Context(), query, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, discoverResponse(query, matches))
}

func discoverResponse(query string, matches []discovery.Match) DiscoverResponse {
	if len(matches) == 0 {
		return DiscoverResponse{Query: query, Message: "no agent matches the query"}
	}
	best := matches[0]
	resp := DiscoverResponse{
		Query:            query,
		RecommendedAgent: &best.Agent,
		Score:            best.Score,
		MatchedSkill:     best.Skill.Name,
	}
	for _, m := range matches[1:] {
		resp.Alternatives = append(resp.Alternatives, Alternative{
			Agent:        m.Agent,
			Score:        m.Score,
			MatchedSkill: m.Skill.Name,
		})
	}
	return resp
}
