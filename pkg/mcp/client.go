/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/carverauto/cellradar/pkg/logger"
)

var (
	errUnexpectedStatus = errors.New("unexpected HTTP status")
	errIDMismatch       = errors.New("response id does not match request")
	errNoResponse       = errors.New("no JSON-RPC response in event stream")
	errEmptyResult      = errors.New("response has neither result nor error")
)

const (
	defaultClientTimeout = 60 * time.Second
	maxResponseBytes     = 8 << 20
	ssePrefix            = "data:"
)

// Client is a synchronous MCP client over streamable HTTP. Each call is
// one POST; JSON and event-stream responses are both understood.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
	logger   logger.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithAPIKey sends key in the X-API-Key header.
func WithAPIKey(key string) ClientOption {
	return func(c *Client) {
		c.apiKey = key
	}
}

// WithClientHTTP replaces the default HTTP client.
func WithClientHTTP(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.http = hc
	}
}

// NewClient creates a Client posting to endpoint, e.g. http://host:9000/mcp.
func NewClient(endpoint string, log logger.Logger, opts ...ClientOption) *Client {
	c := &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: defaultClientTimeout},
		logger:   log,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Initialize performs the MCP handshake.
func (c *Client) Initialize(ctx context.Context) (*InitializeResult, error) {
	var out InitializeResult

	err := c.call(ctx, MethodInitialize, InitializeParams{
		ProtocolVersion: ProtocolVersion,
		Capabilities:    map[string]interface{}{},
		ClientInfo:      Implementation{Name: "cellradar-client", Version: "1.0.0"},
	}, &out)
	if err != nil {
		return nil, err
	}

	return &out, nil
}

// ListTools returns the server's tool catalog.
func (c *Client) ListTools(ctx context.Context) ([]ToolDefinition, error) {
	var out ToolsListResult

	if err := c.call(ctx, MethodToolsList, struct{}{}, &out); err != nil {
		return nil, err
	}

	return out.Tools, nil
}

// CallTool invokes name and blocks until its result arrives. A tool that
// ran but failed is reported through IsError, not err.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]interface{}) (*ToolCallResult, error) {
	if args == nil {
		args = map[string]interface{}{}
	}

	params := struct {
		Name      string                 `json:"name"`
		Arguments map[string]interface{} `json:"arguments"`
	}{Name: name, Arguments: args}

	var out ToolCallResult

	if err := c.call(ctx, MethodToolsCall, params, &out); err != nil {
		return nil, fmt.Errorf("call %s: %w", name, err)
	}

	return &out, nil
}

func (c *Client) call(ctx context.Context, method string, params, out interface{}) error {
	id := uuid.NewString()

	rawParams, err := json.Marshal(params)
	if err != nil {
		return err
	}

	body, err := json.Marshal(JSONRPCRequest{JSONRPC: jsonRPCVersion, ID: id, Method: method, Params: rawParams})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/event-stream")

	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	c.logger.Debug().Str("method", method).Str("id", id).Msg("Sending MCP request")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))

		return fmt.Errorf("%w: %d %s", errUnexpectedStatus, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	rpc, err := readResponse(resp, id)
	if err != nil {
		return err
	}

	if rpc.Error != nil {
		return rpc.Error
	}

	if len(rpc.Result) == 0 {
		return errEmptyResult
	}

	return json.Unmarshal(rpc.Result, out)
}

func readResponse(resp *http.Response, id string) (*JSONRPCResponse, error) {
	body := io.LimitReader(resp.Body, maxResponseBytes)

	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if mediaType == "text/event-stream" {
		return readEventStream(body, id)
	}

	var rpc JSONRPCResponse

	if err := json.NewDecoder(body).Decode(&rpc); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if fmt.Sprint(rpc.ID) != id {
		return nil, fmt.Errorf("%w: got %v", errIDMismatch, rpc.ID)
	}

	return &rpc, nil
}

// readEventStream returns the first data event answering id. Multi-line
// data fields are joined as the event-stream format requires.
func readEventStream(r io.Reader, id string) (*JSONRPCResponse, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxResponseBytes)

	var data strings.Builder

	flush := func() *JSONRPCResponse {
		defer data.Reset()

		var rpc JSONRPCResponse
		if data.Len() == 0 || json.Unmarshal([]byte(data.String()), &rpc) != nil {
			return nil
		}

		if fmt.Sprint(rpc.ID) != id {
			return nil
		}

		return &rpc
	}

	for scanner.Scan() {
		line := scanner.Text()

		if line == "" {
			if rpc := flush(); rpc != nil {
				return rpc, nil
			}

			continue
		}

		if strings.HasPrefix(line, ssePrefix) {
			if data.Len() > 0 {
				data.WriteByte('\n')
			}

			data.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, ssePrefix), " "))
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if rpc := flush(); rpc != nil {
		return rpc, nil
	}

	return nil, errNoResponse
}
