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
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/carverauto/cellradar/pkg/logger"
	"github.com/carverauto/cellradar/pkg/models"
	"github.com/carverauto/cellradar/pkg/version"
)

const (
	serverName      = "cellradar-mcp"
	maxRequestBytes = 1 << 20
)

// Server answers MCP JSON-RPC requests on a single endpoint.
type Server struct {
	commands Commands
	tools    []*Tool
	byName   map[string]*Tool
	logger   logger.Logger
}

// NewServer creates a Server exposing the full tool catalog over commands.
func NewServer(commands Commands, log logger.Logger) *Server {
	s := &Server{
		commands: commands,
		tools:    Tools(),
		byName:   make(map[string]*Tool),
		logger:   log,
	}

	for _, t := range s.tools {
		s.byName[t.Name] = t

		for _, alias := range t.Aliases {
			s.byName[alias] = t
		}
	}

	return s
}

// RegisterRoutes adds the /mcp endpoint to router.
func (s *Server) RegisterRoutes(router *mux.Router) {
	s.logger.Info().Int("tools", len(s.tools)).Msg("Registering MCP routes")

	router.HandleFunc("/mcp", s.handleMCPRequest).Methods(http.MethodPost)
	router.HandleFunc("/mcp/", s.handleMCPRequest).Methods(http.MethodPost)
}

func (s *Server) handleMCPRequest(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var req JSONRPCRequest

	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		s.write(w, errorResponse(nil, CodeParseError, "Parse error", err.Error()))

		return
	}

	if req.JSONRPC != jsonRPCVersion || req.Method == "" {
		s.write(w, errorResponse(req.ID, CodeInvalidRequest, "Invalid Request", "expected a JSON-RPC 2.0 request"))

		return
	}

	if req.ID == nil {
		if !strings.HasPrefix(req.Method, notificationScope) {
			s.logger.Debug().Str("method", req.Method).Msg("Ignoring notification")
		}

		w.WriteHeader(http.StatusAccepted)

		return
	}

	s.write(w, s.Handle(r.Context(), &req))
}

// Handle dispatches one JSON-RPC request.
func (s *Server) Handle(ctx context.Context, req *JSONRPCRequest) *JSONRPCResponse {
	switch req.Method {
	case MethodInitialize:
		return successResponse(req.ID, InitializeResult{
			ProtocolVersion: ProtocolVersion,
			Capabilities:    map[string]interface{}{"tools": map[string]interface{}{}},
			ServerInfo:      Implementation{Name: serverName, Version: version.GetVersion()},
		})
	case MethodPing:
		return successResponse(req.ID, struct{}{})
	case MethodToolsList:
		defs := make([]ToolDefinition, 0, len(s.tools))
		for _, t := range s.tools {
			defs = append(defs, t.Definition())
		}

		return successResponse(req.ID, ToolsListResult{Tools: defs})
	case MethodToolsCall:
		return s.handleToolCall(ctx, req)
	default:
		return errorResponse(req.ID, CodeMethodNotFound, "Method not found", fmt.Sprintf("Unknown method: %s", req.Method))
	}
}

func (s *Server) handleToolCall(ctx context.Context, req *JSONRPCRequest) *JSONRPCResponse {
	var params ToolCallParams

	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errorResponse(req.ID, CodeInvalidParams, "Invalid params", err.Error())
	}

	tool, ok := s.byName[params.Name]
	if !ok {
		return errorResponse(req.ID, CodeInvalidParams, "Unknown tool", fmt.Sprintf("Tool not found: %s", params.Name))
	}

	raw, err := decodeArguments(params.Arguments)
	if err != nil {
		return errorResponse(req.ID, CodeInvalidParams, "Invalid params", err.Error())
	}

	s.logger.Info().Str("tool", tool.Name).Msg("Calling tool")

	result := tool.Invoke(ctx, s.commands, raw)

	text, err := json.Marshal(result)
	if err != nil {
		return errorResponse(req.ID, CodeInternalError, "Internal error", "failed to marshal tool result")
	}

	isError := failed(result)
	if isError {
		s.logger.Warn().Str("tool", tool.Name).RawJSON("result", text).Msg("Tool returned an error")
	}

	return successResponse(req.ID, ToolCallResult{
		Content: []Content{{Type: "text", Text: string(text)}},
		IsError: isError,
	})
}

var errArgumentsNotObject = errors.New("arguments must be a JSON object")

// decodeArguments keeps numbers as json.Number so integers survive intact.
func decodeArguments(data json.RawMessage) (map[string]interface{}, error) {
	raw := make(map[string]interface{})

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return raw, nil
	}

	if trimmed[0] != '{' {
		return nil, errArgumentsNotObject
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()

	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}

	return raw, nil
}

func failed(result interface{}) bool {
	switch r := result.(type) {
	case *models.CommandResult:
		return !r.OK()
	case *models.AvailabilityReport:
		return r == nil || r.Status != models.ReportOK
	default:
		return false
	}
}

func (s *Server) write(w http.ResponseWriter, resp *JSONRPCResponse) {
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Error().Err(err).Msg("Failed to encode MCP response")
	}
}

func successResponse(id, result interface{}) *JSONRPCResponse {
	data, err := json.Marshal(result)
	if err != nil {
		return errorResponse(id, CodeInternalError, "Internal error", err.Error())
	}

	return &JSONRPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: data}
}

func errorResponse(id interface{}, code int, message, data string) *JSONRPCResponse {
	return &JSONRPCResponse{
		JSONRPC: jsonRPCVersion,
		ID:      id,
		Error:   &JSONRPCError{Code: code, Message: message, Data: data},
	}
}
