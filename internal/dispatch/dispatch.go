// Package dispatch routes tool calls requested by the reasoning engine
// to their execution venue: server-immediate tools run here, inside the
// request; client-deferred capabilities are expanded into commands for
// the browser.
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/haasonsaas/mapgate/internal/observability"
	"github.com/haasonsaas/mapgate/internal/registry"
	"github.com/haasonsaas/mapgate/pkg/models"
)

// CommandExpander converts validated arguments of a client-deferred
// capability into browser commands plus an optional user-facing note.
type CommandExpander func(toolCallID string, args json.RawMessage) ([]models.ClientCommand, string, error)

// Outcome is the result of dispatching one batch of tool calls.
//
// Results holds tool messages for every call that produced one: all
// server-immediate executions and every failed call regardless of
// venue. Deferred calls that expanded successfully produce commands
// instead; their results arrive from the client in a later turn.
type Outcome struct {
	Results  []models.Message
	Commands []models.ClientCommand
	Note     string
}

// Deferred reports whether the batch produced commands for the client.
func (o *Outcome) Deferred() bool { return len(o.Commands) > 0 }

// Dispatcher validates and routes tool calls.
type Dispatcher struct {
	registry  *registry.Registry
	expanders map[string]CommandExpander
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// New creates a Dispatcher. metrics may be nil.
func New(reg *registry.Registry, logger *slog.Logger, metrics *observability.Metrics) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		registry:  reg,
		expanders: make(map[string]CommandExpander),
		logger:    logger,
		metrics:   metrics,
	}
}

// RegisterExpander installs the expander for a client-deferred
// capability. The capability must already exist in the registry.
func (d *Dispatcher) RegisterExpander(name string, exp CommandExpander) error {
	desc, ok := d.registry.Lookup(name)
	if !ok {
		return fmt.Errorf("dispatch: unknown capability %q", name)
	}
	if desc.Venue != registry.VenueClient {
		return fmt.Errorf("dispatch: capability %q is not client-deferred", name)
	}
	d.expanders[name] = exp
	return nil
}

// Dispatch routes a batch of tool calls. Per-call failures never fail
// the batch; they become error tool results the engine can react to.
func (d *Dispatcher) Dispatch(ctx context.Context, calls []models.ToolCall) *Outcome {
	out := &Outcome{}

	type serverJob struct {
		index int
		call  models.ToolCall
		tool  registry.Tool
	}
	var serverJobs []serverJob
	results := make([]*models.Message, len(calls))

	for i, call := range calls {
		desc, ok := d.registry.Lookup(call.Name)
		if !ok {
			d.logger.Warn("tool call for unknown capability", "tool", call.Name, "tool_call_id", call.ID)
			results[i] = errorResult(call.ID, fmt.Sprintf("unknown capability: %s", call.Name))
			d.countTool(call.Name, "unknown")
			continue
		}
		if err := d.registry.Validate(call.Name, call.Arguments); err != nil {
			d.logger.Warn("tool call arguments rejected", "tool", call.Name, "error", err)
			results[i] = errorResult(call.ID, err.Error())
			d.countTool(call.Name, "invalid")
			continue
		}

		switch desc.Venue {
		case registry.VenueClient:
			exp, ok := d.expanders[call.Name]
			if !ok {
				results[i] = errorResult(call.ID, fmt.Sprintf("capability %s has no expander", call.Name))
				d.countTool(call.Name, "error")
				continue
			}
			cmds, note, err := exp(call.ID, call.Arguments)
			if err != nil {
				d.logger.Warn("command expansion failed", "tool", call.Name, "error", err)
				results[i] = errorResult(call.ID, err.Error())
				d.countTool(call.Name, "error")
				continue
			}
			out.Commands = append(out.Commands, cmds...)
			if note != "" {
				out.Note = note
			}
			d.countTool(call.Name, "deferred")
		case registry.VenueServer:
			tool, ok := d.registry.Server(call.Name)
			if !ok {
				results[i] = errorResult(call.ID, fmt.Sprintf("capability %s has no server implementation", call.Name))
				d.countTool(call.Name, "error")
				continue
			}
			serverJobs = append(serverJobs, serverJob{index: i, call: call, tool: tool})
		}
	}

	var wg sync.WaitGroup
	for _, job := range serverJobs {
		wg.Add(1)
		go func(job serverJob) {
			defer wg.Done()
			results[job.index] = d.execute(ctx, job.call, job.tool)
		}(job)
	}
	wg.Wait()

	for _, res := range results {
		if res != nil {
			out.Results = append(out.Results, *res)
		}
	}
	return out
}

func (d *Dispatcher) execute(ctx context.Context, call models.ToolCall, tool registry.Tool) (msg *models.Message) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("tool execution panicked", "tool", call.Name, "panic", r)
			msg = errorResult(call.ID, fmt.Sprintf("internal error in %s", call.Name))
			d.countTool(call.Name, "panic")
		}
	}()

	res, err := tool.Execute(ctx, call.Arguments)
	if err != nil {
		d.logger.Warn("tool execution failed", "tool", call.Name, "error", err)
		d.countTool(call.Name, "error")
		return errorResult(call.ID, err.Error())
	}

	outcome := "ok"
	if res.IsError {
		outcome = "tool_error"
	}
	d.countTool(call.Name, outcome)

	result := models.ToolMessage(models.ToolResult{
		ToolCallID: call.ID,
		Content:    res.Content,
		IsError:    res.IsError,
	})
	return &result
}

func (d *Dispatcher) countTool(name, outcome string) {
	if d.metrics != nil {
		d.metrics.ToolExecutions.WithLabelValues(name, outcome).Inc()
	}
}

func errorResult(callID, message string) *models.Message {
	payload, _ := json.Marshal(map[string]any{"ok": false, "error": message})
	result := models.ToolMessage(models.ToolResult{
		ToolCallID: callID,
		Content:    string(payload),
		IsError:    true,
	})
	return &result
}
