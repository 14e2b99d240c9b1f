package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"github.com/54b3r/budgetai-go/internal/logging"
)

// queryInput is the JSON argument object. Some models send "question"
// instead of "query"; both are accepted.
type queryInput struct {
	Query    string `json:"query"`
	Question string `json:"question"`
}

func (in queryInput) text() string {
	if strings.TrimSpace(in.Query) != "" {
		return in.Query
	}
	return in.Question
}

// adapter exposes a Tool as an Eino InvokableTool.
type adapter struct {
	tool  Tool
	trace *Trace
}

var _ tool.InvokableTool = (*adapter)(nil)

// Adapt wraps t for registration with the agent. Every call is logged and
// recorded in trace (when non-nil) and in the Trace attached to the call
// context with WithTrace.
func Adapt(t Tool, trace *Trace) tool.InvokableTool {
	return &adapter{tool: t, trace: trace}
}

// Info returns the tool metadata with a single required "query" parameter.
func (a *adapter) Info(_ context.Context) (*schema.ToolInfo, error) {
	return &schema.ToolInfo{
		Name: a.tool.Name(),
		Desc: a.tool.Description(),
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"query": {
				Type:     schema.String,
				Desc:     "La question ou les mots-clés à rechercher, en français.",
				Required: true,
			},
		}),
	}, nil
}

// InvokableRun parses the arguments and runs the tool. A failing tool
// returns an observation starting with ObservationErrorPrefix and a nil
// error so the agent can fall back to the other tool.
func (a *adapter) InvokableRun(ctx context.Context, argumentsInJSON string, _ ...tool.Option) (string, error) {
	log := logging.FromContext(ctx).With(slog.String("tool", a.tool.Name()))
	start := time.Now()

	query, err := parseQuery(argumentsInJSON)
	if err == nil {
		log.Debug("tool: invoke", slog.String("query", query))
		var out string
		out, err = a.tool.Invoke(ctx, query)
		if err == nil {
			call := Call{Tool: a.tool.Name(), Query: query, ResultChars: len(out), Duration: time.Since(start)}
			a.record(ctx, call)
			log.Info("tool: completed", slog.Int("result_chars", call.ResultChars), slog.Duration("duration", call.Duration))
			return out, nil
		}
	}

	err = fmt.Errorf("%w: %s: %w", ErrToolInvocation, a.tool.Name(), err)
	a.record(ctx, Call{Tool: a.tool.Name(), Query: query, Duration: time.Since(start), Err: err})
	log.Warn("tool: failed", slog.String("error", err.Error()), slog.Duration("duration", time.Since(start)))
	return fmt.Sprintf("%s (%s) : %v", ObservationErrorPrefix, a.tool.Name(), err), nil
}

func (a *adapter) record(ctx context.Context, c Call) {
	a.trace.record(c)
	if t := traceFrom(ctx); t != a.trace {
		t.record(c)
	}
}

// parseQuery accepts {"query": ...}, {"question": ...} or a bare JSON string.
func parseQuery(args string) (string, error) {
	args = strings.TrimSpace(args)
	var in queryInput
	if err := json.Unmarshal([]byte(args), &in); err != nil {
		var bare string
		if json.Unmarshal([]byte(args), &bare) != nil {
			return "", fmt.Errorf("invalid arguments %q: %w", args, err)
		}
		in.Query = bare
	}
	q := strings.TrimSpace(in.text())
	if q == "" {
		return "", fmt.Errorf("query is required")
	}
	return q, nil
}
