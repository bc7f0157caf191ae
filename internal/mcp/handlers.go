package mcp

import (
	"context"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ppiankov/forkpin/internal/gate"
	"github.com/ppiankov/forkpin/internal/source"
)

// ResolveInput defines parameters for the forkpin_resolve tool.
type ResolveInput struct {
	Override *string `json:"override,omitempty" jsonschema:"value to use for the override variable instead of the process environment; \"0\" selects the registry"`
	Unset    bool    `json:"unset,omitempty" jsonschema:"treat the override variable as unset regardless of the process environment"`
	Strict   *bool   `json:"strict,omitempty" jsonschema:"reject override values other than \"0\""`
}

// ResolveOutput contains the decision or the refusal.
type ResolveOutput struct {
	DecisionID  string `json:"decision_id"`
	Source      string `json:"source,omitempty"`
	Reason      string `json:"reason,omitempty"`
	ForkPath    string `json:"fork_path"`
	Explanation string `json:"explanation,omitempty"`
	Refused     bool   `json:"refused,omitempty"`
	ErrorCode   string `json:"error_code,omitempty"`
	Error       string `json:"error,omitempty"`
}

// ProbeInput takes no parameters.
type ProbeInput struct{}

// ProbeOutput reports the fork probe result.
type ProbeOutput struct {
	Path    string   `json:"path"`
	Exists  bool     `json:"exists"`
	IsDir   bool     `json:"is_dir"`
	Missing []string `json:"missing,omitempty"`
	Valid   bool     `json:"valid"`
	Detail  string   `json:"detail"`
}

func (s *Server) handleResolve(ctx context.Context, req *mcpsdk.CallToolRequest, input ResolveInput) (*mcpsdk.CallToolResult, ResolveOutput, error) {
	outcome, err := s.gate.CheckWith(ctx, gate.Input{
		Override: input.Override,
		Unset:    input.Unset,
		Strict:   input.Strict,
	})

	out := ResolveOutput{
		DecisionID: outcome.ID,
		ForkPath:   outcome.Context.ForkPath,
	}
	if outcome.Err != nil {
		out.Refused = true
		out.ErrorCode = string(source.CodeOf(outcome.Err))
		out.Error = outcome.Err.Error()
		return &mcpsdk.CallToolResult{
			IsError: true,
			Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: out.Error}},
		}, out, nil
	}
	if err != nil {
		// audit_required and the decision could not be recorded
		return nil, ResolveOutput{}, err
	}

	out.Source = string(outcome.Decision.Kind)
	out.Reason = string(outcome.Decision.Reason)
	out.Explanation = outcome.Decision.Explain()
	return nil, out, nil
}

func (s *Server) handleProbe(ctx context.Context, req *mcpsdk.CallToolRequest, input ProbeInput) (*mcpsdk.CallToolResult, ProbeOutput, error) {
	cfg := s.gate.Config()
	r := s.gate.Probe()
	return nil, ProbeOutput{
		Path:    cfg.ForkPath,
		Exists:  r.Exists,
		IsDir:   r.IsDir,
		Missing: r.Missing,
		Valid:   r.Valid,
		Detail:  r.Detail(),
	}, nil
}
