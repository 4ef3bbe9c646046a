package server

import (
	"context"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"gopkg.in/yaml.v3"

	"github.com/mj1618/onboard-cli/internal/platform"
)

// stepEntry is one row of list_steps.
type stepEntry struct {
	Number      int    `yaml:"number"`
	Action      string `yaml:"action"`
	Description string `yaml:"description"`
	When        string `yaml:"when,omitempty"`
}

func toText(v interface{}) *mcp.CallToolResult {
	b, err := yaml.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("yaml encode: %v", err))
	}
	return mcp.NewToolResultText(string(b))
}

func intParam(params map[string]interface{}, key string, defaultVal int) int {
	switch v := params[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return defaultVal
}

func floatParam(params map[string]interface{}, key string, defaultVal float64) float64 {
	switch v := params[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return defaultVal
}

func stringParam(params map[string]interface{}, key, defaultVal string) string {
	if v, ok := params[key].(string); ok {
		return v
	}
	return defaultVal
}

func (s *Server) handleListSteps(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := request.GetArguments()
	cat := s.bot.Catalog
	from := intParam(params, "from", 1)
	to := intParam(params, "to", cat.Max())

	var entries []stepEntry
	for _, st := range cat.Range(from, to) {
		e := stepEntry{Number: st.Number, Action: st.Action.Kind(), Description: st.Description}
		if st.When != nil {
			e.When = st.When.String()
		}
		entries = append(entries, e)
	}
	return toText(entries), nil
}

func (s *Server) handleRunStep(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := request.GetArguments()
	n := intParam(params, "step", 0)
	target := intParam(params, "target", 0)

	s.providerMu.Lock()
	defer s.providerMu.Unlock()

	result, err := s.bot.RunStep(ctx, n, target)
	if err != nil {
		result.OK = false
		result.Error = err.Error()
		b, _ := yaml.Marshal(result)
		return mcp.NewToolResultError(string(b)), nil
	}
	return toText(result), nil
}

func (s *Server) handleTestSkip(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	timeout := platform.Seconds(floatParam(request.GetArguments(), "timeout", 10))

	s.providerMu.Lock()
	defer s.providerMu.Unlock()

	rep, err := s.bot.TestSkip(ctx, timeout)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return toText(rep), nil
}

func (s *Server) handleTestTarget(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	target := intParam(request.GetArguments(), "target", 0)

	s.providerMu.Lock()
	defer s.providerMu.Unlock()

	rep, err := s.bot.TestTarget(ctx, target)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return toText(rep), nil
}

func (s *Server) handleScreenInfo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	annotate := stringParam(request.GetArguments(), "annotate", "")

	s.providerMu.Lock()
	defer s.providerMu.Unlock()

	info, err := s.bot.Info(ctx, annotate)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return toText(info), nil
}

func (s *Server) handleApp(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	act := stringParam(request.GetArguments(), "action", "")

	s.providerMu.Lock()
	defer s.providerMu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	var err error
	switch act {
	case "start":
		err = s.bot.StartApp(ctx)
	case "stop":
		err = s.bot.StopApp(ctx)
	default:
		return mcp.NewToolResultError(fmt.Sprintf("unknown app action %q (use start or stop)", act)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return toText(map[string]string{"app": s.bot.Config.Game.Package, "action": act}), nil
}
