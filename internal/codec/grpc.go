package codec

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"
)

// generateMethod is the unary RPC served by the generation sidecar. Payloads
// are google.protobuf.Struct so no generated stubs are required.
const generateMethod = "/roleplay.v1.GenerationService/Generate"

// #region client-struct
// GRPCGenerator calls an out-of-process generation service over gRPC.
type GRPCGenerator struct {
	conn      grpc.ClientConnInterface
	closer    func() error
	maxTokens int
}

// #endregion client-struct

// #region constructor
// NewGRPCGenerator connects to the generation gRPC server.
func NewGRPCGenerator(addr string, maxTokens int) (*GRPCGenerator, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	return &GRPCGenerator{conn: conn, closer: conn.Close, maxTokens: maxTokens}, nil
}

// NewGRPCGeneratorWithConn creates a GRPCGenerator over an injected connection.
// Used for testing without a real gRPC server.
func NewGRPCGeneratorWithConn(conn grpc.ClientConnInterface, maxTokens int) *GRPCGenerator {
	return &GRPCGenerator{conn: conn, maxTokens: maxTokens}
}

// #endregion constructor

// #region close
// Close shuts down the gRPC connection.
func (g *GRPCGenerator) Close() error {
	if g.closer == nil {
		return nil
	}
	return g.closer()
}

// #endregion close

// Name identifies the provider in logs and metrics.
func (g *GRPCGenerator) Name() string { return "grpc" }

// #region generate
// Generate sends the system instruction and recent turns to the sidecar.
func (g *GRPCGenerator) Generate(ctx context.Context, req Request) (string, error) {
	turns := make([]any, 0, len(req.Turns))
	for _, m := range req.Turns {
		turns = append(turns, map[string]any{
			"speaker": string(m.Speaker),
			"text":    m.Text,
		})
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = g.maxTokens
	}

	in, err := structpb.NewStruct(map[string]any{
		"system":     req.System,
		"turns":      turns,
		"max_tokens": maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	out := &structpb.Struct{}
	if err := g.conn.Invoke(ctx, generateMethod, in, out); err != nil {
		return "", fmt.Errorf("generate rpc: %w", err)
	}

	text := strings.TrimSpace(out.GetFields()["text"].GetStringValue())
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// #endregion generate
