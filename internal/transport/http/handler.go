package httptransport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"pmkisan/internal/tools"
	"pmkisan/pkg/requestcontext"
)

const maxArgumentBytes = 64 << 10

// ToolCaller is the tool registry surface served over HTTP.
type ToolCaller interface {
	Tools() []tools.Tool
	CallTool(ctx context.Context, name string, arguments json.RawMessage) (output string, isError bool, err error)
}

// ToolResult is the body of a successful POST /tools/{name}.
type ToolResult struct {
	Output  string `json:"output"`
	IsError bool   `json:"is_error"`
}

// ToolHandler exposes the tool registry.
type ToolHandler struct {
	tools  ToolCaller
	logger *slog.Logger
}

func NewToolHandler(caller ToolCaller, logger *slog.Logger) *ToolHandler {
	return &ToolHandler{tools: caller, logger: logger}
}

// Register mounts the tool routes on r.
func (h *ToolHandler) Register(r chi.Router) {
	r.Get("/tools", h.handleListTools)
	r.Post("/tools/{name}", h.handleCallTool)
}

func (h *ToolHandler) handleListTools(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"tools": h.tools.Tools()})
}

func (h *ToolHandler) handleCallTool(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	name := chi.URLParam(r, "name")

	args, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxArgumentBytes))
	if err != nil {
		h.logger.WarnContext(ctx, "failed to read tool arguments",
			"tool", name,
			"request_id", requestID,
			"error", err,
		)
		writeError(w, http.StatusBadRequest, "invalid_request", "request body could not be read")
		return
	}

	output, isError, err := h.tools.CallTool(ctx, name, args)
	switch {
	case errors.Is(err, tools.ErrUnknownTool):
		writeError(w, http.StatusNotFound, "unknown_tool", "no tool named "+name)
		return
	case errors.Is(err, tools.ErrInvalidArguments):
		h.logger.WarnContext(ctx, "invalid tool arguments",
			"tool", name,
			"request_id", requestID,
		)
		writeError(w, http.StatusBadRequest, "invalid_arguments", "arguments must be a JSON object matching the tool schema")
		return
	case err != nil:
		h.logger.ErrorContext(ctx, "tool call failed",
			"tool", name,
			"request_id", requestID,
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, "internal", "tool call failed")
		return
	}

	writeJSON(w, http.StatusOK, ToolResult{Output: output, IsError: isError})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code, description string) {
	writeJSON(w, status, map[string]string{
		"error":             code,
		"error_description": description,
	})
}
