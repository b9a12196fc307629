// Copyright 2026 © The Agent Registry Authors
// SPDX-License-Identifier: Apache-2.0

// Package client is the Go client agent runtimes use to read resolved agents
// and prompts from the registry.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/conneskills/cs-agent-registry-api/pkg/core"
	"github.com/conneskills/cs-agent-registry-api/pkg/errors"
)

// Client talks to a registry server.
type Client struct {
	BaseURL   string
	HTTP      *http.Client
	AuthToken string
}

// New creates a client pointing at baseURL.
func New(baseURL string) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	return &Client{
		BaseURL: baseURL,
		HTTP:    http.DefaultClient,
	}
}

// ListOptions filters ListAgents.
type ListOptions struct {
	Tag           string
	AgentType     string
	ExecutionType string
}

// Match is one discovery result.
type Match struct {
	Agent        core.Agent
	Score        int
	MatchedSkill string
}

// GetAgent returns the resolved agent stored under id.
func (c *Client) GetAgent(ctx context.Context, id string) (core.Agent, error) {
	var out core.Agent
	err := c.do(ctx, http.MethodGet, "/agents/"+url.PathEscape(id), nil, &out)
	return out, err
}

// GetPrompt returns the prompt stored under id, e.g. to resolve a role's prompt_ref.
func (c *Client) GetPrompt(ctx context.Context, id string) (core.Prompt, error) {
	var out core.Prompt
	err := c.do(ctx, http.MethodGet, "/prompts/"+url.PathEscape(id), nil, &out)
	return out, err
}

// ListAgents returns agents in creation order.
func (c *Client) ListAgents(ctx context.Context, opts ListOptions) ([]core.Agent, error) {
	q := url.Values{}
	if opts.Tag != "" {
		q.Set("tag", opts.Tag)
	}
	if opts.AgentType != "" {
		q.Set("agent_type", opts.AgentType)
	}
	if opts.ExecutionType != "" {
		q.Set("execution_type", opts.ExecutionType)
	}
	path := "/agents"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out struct {
		Count  int          `json:"count"`
		Agents []core.Agent `json:"agents"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Agents, nil
}

// SetAgentURL records the invocation URL of a deployed agent.
func (c *Client) SetAgentURL(ctx context.Context, id, agentURL string) (core.Agent, error) {
	var out core.Agent
	err := c.do(ctx, http.MethodPatch, "/agents/"+url.PathEscape(id)+"/url", map[string]string{"url": agentURL}, &out)
	return out, err
}

// Discover returns up to limit matches for query, best first. An empty slice
// means no agent matched.
func (c *Client) Discover(ctx context.Context, query string, limit int) ([]Match, error) {
	q := url.Values{"query": {query}}
	if limit > 1 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var out struct {
		RecommendedAgent *core.Agent `json:"recommended_agent"`
		Score            int         `json:"score"`
		MatchedSkill     string      `json:"matched_skill"`
		Alternatives     []struct {
			Agent        core.Agent `json:"agent"`
			Score        int        `json:"score"`
			MatchedSkill string     `json:"matched_skill"`
		} `json:"alternatives"`
	}
	if err := c.do(ctx, http.MethodGet, "/discover?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	matches := []Match{}
	if out.RecommendedAgent == nil {
		return matches, nil
	}
	matches = append(matches, Match{Agent: *out.RecommendedAgent, Score: out.Score, MatchedSkill: out.MatchedSkill})
	for _, alt := range out.Alternatives {
		matches = append(matches, Match{Agent: alt.Agent, Score: alt.Score, MatchedSkill: alt.MatchedSkill})
	}
	return matches, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	if c == nil || c.BaseURL == "" {
		return errors.Invalid("registry base url", "is not configured")
	}
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return errors.New(errors.CodeInvalidInput, "encode request", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return errors.New(errors.CodeInvalidInput, "build request", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if strings.TrimSpace(c.AuthToken) != "" {
		req.Header.Set("Authorization", "Bearer "+c.AuthToken)
	}

	resp, err := c.http().Do(req)
	if err != nil {
		return errors.New(errors.CodeStorageUnavailable, "registry unreachable", err).
			WithContext("url", c.BaseURL).
			WithRecoverable(true)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.New(errors.CodeInternal, "decode registry response", err)
	}
	return nil
}

// decodeError rebuilds the registry error from a {"detail","code"} body.
func decodeError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var body struct {
		Detail string `json:"detail"`
		Code   string `json:"code"`
	}
	_ = json.Unmarshal(data, &body)

	code := errors.ErrorCode(body.Code)
	if code == "" {
		code = codeForStatus(resp.StatusCode)
	}
	msg := body.Detail
	if msg == "" {
		msg = fmt.Sprintf("registry returned %s", resp.Status)
	}
	re := errors.New(code, msg, nil).WithContext("status", resp.StatusCode)
	re.StatusCode = resp.StatusCode
	if code == errors.CodeStorageUnavailable || resp.StatusCode >= http.StatusInternalServerError {
		re.Recoverable = true
	}
	return re
}

func codeForStatus(status int) errors.ErrorCode {
	switch {
	case status == http.StatusNotFound:
		return errors.CodeNotFound
	case status == http.StatusServiceUnavailable:
		return errors.CodeStorageUnavailable
	case status >= 400 && status < 500:
		return errors.CodeInvalidInput
	default:
		return errors.CodeInternal
	}
}

func (c *Client) http() *http.Client {
	if c != nil && c.HTTP != nil {
		return c.HTTP
	}
	return http.DefaultClient
}
