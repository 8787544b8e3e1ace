//go:build integration

package anthropic

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/catonblt/novelbuddies/internal/core"
	"github.com/catonblt/novelbuddies/internal/fileops"
	"github.com/catonblt/novelbuddies/internal/orchestrator"
	"github.com/catonblt/novelbuddies/internal/provider"
)

// These tests call the live API and need ANTHROPIC_API_KEY:
//
//	go test -tags=integration ./modules/provider/anthropic/...

const integrationTimeout = 60 * time.Second

func TestIntegration_CompleteNamesCharacter(t *testing.T) {
	a := integrationProvider(t)
	ctx, cancel := context.WithTimeout(context.Background(), integrationTimeout)
	defer cancel()

	resp, err := a.Complete(ctx, provider.CompletionRequest{
		System: "You are a terse editor. Reply with the requested name only.",
		Messages: []provider.LLMMessage{{
			Role:    provider.MessageRoleUser,
			Content: "The protagonist of my draft is called Elena Marsh. Repeat her first name.",
		}},
		MaxTokens: 16,
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if !strings.Contains(resp.Content, "Elena") {
		t.Errorf("content = %q, want it to contain Elena", resp.Content)
	}
	if resp.Usage.PromptTokens == 0 || resp.Usage.CompletionTokens == 0 {
		t.Errorf("usage = %+v, want both sides counted", resp.Usage)
	}
}

func TestIntegration_StreamFileOperation(t *testing.T) {
	a := integrationProvider(t)
	ctx, cancel := context.WithTimeout(context.Background(), integrationTimeout)
	defer cancel()

	ch, err := a.Stream(ctx, provider.CompletionRequest{
		System: orchestrator.FileOperationInstructions(),
		Messages: []provider.LLMMessage{{
			Role:    provider.MessageRoleUser,
			Content: "Create characters/elena.md containing the single line: Elena Marsh, 32, cartographer.",
		}},
		MaxTokens: 512,
	})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	res, err := provider.Collect(ctx, ch, nil)
	if err != nil {
		t.Fatalf("stream: %v", err)
	}

	parsed := fileops.Parse(res.Content)
	if len(parsed.Ops) == 0 {
		t.Fatalf("no file operation in reply:\n%s", res.Content)
	}
	op := parsed.Ops[0]
	if op.Kind != fileops.KindCreate || op.Path != "characters/elena.md" {
		t.Errorf("op = %s %s, want create characters/elena.md", op.Kind, op.Path)
	}
}

func TestIntegration_HealthCheck(t *testing.T) {
	a := integrationProvider(t)
	ctx, cancel := context.WithTimeout(context.Background(), integrationTimeout)
	defer cancel()

	if err := a.HealthCheck(ctx); err != nil {
		t.Fatalf("HealthCheck: %v", err)
	}
}

func integrationProvider(t *testing.T) *Anthropic {
	t.Helper()
	if os.Getenv("ANTHROPIC_API_KEY") == "" {
		t.Skip("ANTHROPIC_API_KEY not set")
	}
	a := &Anthropic{}
	if err := a.Provision(core.NewAppContext(nil, t.TempDir(), t.TempDir())); err != nil {
		t.Fatalf("Provision: %v", err)
	}
	if err := a.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	return a
}
