package web

import (
	"encoding/json"
	"log/slog"

	"github.com/dukex/operion-forms/pkg/engine"
	"github.com/dukex/operion-forms/pkg/engine/httpclient"
	"github.com/gofiber/fiber/v3"
)

// EngineHandlers serves an engine.Client over the JSON command protocol
// spoken by httpclient, so forms frontends can share one engine process.
type EngineHandlers struct {
	engine engine.Client
	logger *slog.Logger
}

func NewEngineHandlers(client engine.Client, logger *slog.Logger) *EngineHandlers {
	return &EngineHandlers{engine: client, logger: logger.With("module", "engine_server")}
}

func (h *EngineHandlers) Command(c fiber.Ctx) error {
	var req httpclient.Request
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	ctx := engine.WithRole(c.Context(), req.Role)

	var (
		result any
		err    error
	)

	switch command := c.Params("command"); command {
	case httpclient.CommandGetWorkflowInitialInfo:
		result, err = h.engine.GetWorkflowInitialInfo(ctx, req.Type)
	case httpclient.CommandGetWorkflowInfo:
		result, err = h.engine.GetWorkflowInfo(ctx, req.ID)
	case httpclient.CommandCreateWorkflowInstance:
		result, err = h.engine.CreateWorkflowInstance(ctx, req.Type, req.Params)
	case httpclient.CommandExecuteWorkflowActivity:
		result, err = h.engine.ExecuteWorkflowActivity(ctx, req.Type, req.ID, req.Action, req.Params)
	default:
		return badRequest(c, "unknown engine command "+command)
	}

	if err != nil {
		h.logger.InfoContext(ctx, "Engine command failed", "command", c.Params("command"), "error", err)

		return c.JSON(httpclient.Response{Error: &httpclient.ErrorBody{
			Kind:    httpclient.ErrorKind(err),
			Message: engine.Message(err),
		}})
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(httpclient.Response{Result: payload})
}
