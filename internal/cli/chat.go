package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kolah/parley/internal/builder"
	"github.com/kolah/parley/internal/config"
	"github.com/kolah/parley/internal/history"
	"github.com/kolah/parley/internal/index"
	"github.com/kolah/parley/internal/loader"
	"github.com/kolah/parley/internal/oracle"
	"github.com/kolah/parley/internal/retry"
	"github.com/kolah/parley/internal/session"
	"github.com/kolah/parley/internal/transport"
)

func ChatCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Interactive session: describe what you want, parley calls the API",
		RunE:  runChat,
	}
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cmd)
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.Debug)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx := cmd.Context()
	engine, err := buildEngine(ctx, cfg, logger)
	if err != nil {
		return err
	}

	if !cfg.Execute {
		cmd.PrintErrln("Preview mode: requests are shown, not sent. Pass --execute to perform real calls.")
	}
	cmd.PrintErrln("Type a request, /cancel to drop a suspended request, /quit to exit.")

	const user = "local"
	scanner := bufio.NewScanner(cmd.InOrStdin())
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024)
	awaitingFollowup := false

	for {
		cmd.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())

		switch line {
		case "/quit", "/exit":
			return nil
		case "/cancel":
			reply := engine.Abandon(user)
			cmd.Println(reply.Response)
			awaitingFollowup = false
			continue
		}

		var reply session.Reply
		if awaitingFollowup {
			reply = engine.Resume(ctx, user, line)
		} else {
			reply = engine.Process(ctx, user, line)
		}
		cmd.Println(reply.Response)
		awaitingFollowup = reply.NeedsFollowup
	}

	return scanner.Err()
}

func newLogger(debug bool) (*zap.Logger, error) {
	if !debug {
		return zap.NewNop(), nil
	}
	return zap.NewDevelopment()
}

func buildEngine(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*session.Engine, error) {
	result, err := loader.LoadFile(cfg.Spec)
	if err != nil {
		return nil, fmt.Errorf("loading spec: %w", err)
	}
	for _, w := range result.Warnings {
		logger.Warn(w)
	}

	ops := loader.Operations(result)
	if len(ops) == 0 {
		return nil, fmt.Errorf("spec defines no operations")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = loader.BaseURL(result)
	}
	if baseURL == "" {
		return nil, fmt.Errorf("no base URL: pass --base-url or add a server to the spec")
	}

	gemini, err := oracle.NewGemini(ctx, cfg.Oracle.APIKey, cfg.Oracle.Model, cfg.Oracle.Timeout, logger)
	if err != nil {
		return nil, err
	}

	var idx index.Index
	if semantic, err := index.NewSemantic(ctx, cfg.Oracle.APIKey, cfg.Oracle.EmbeddingModel, ops); err != nil {
		logger.Warn("semantic index unavailable, falling back to lexical", zap.Error(err))
		idx = index.NewLexical(ops)
	} else {
		idx = semantic
	}

	var tp transport.Transport = transport.NewClient(cfg.Request.Timeout)
	if cfg.Request.Preflight {
		tp, err = transport.WithPreflight(tp, result.Raw)
		if err != nil {
			return nil, fmt.Errorf("enabling preflight validation: %w", err)
		}
	}

	policy := retry.Policy{
		MaxAttempts:       cfg.Retry.MaxAttempts,
		Delay:             cfg.Retry.Delay,
		RetryableStatuses: cfg.Retry.RetryableStatuses,
		FixablePatterns:   cfg.Retry.FixablePatterns,
	}
	retrier := retry.NewController(tp, gemini, policy, logger)

	return session.NewEngine(
		gemini,
		idx,
		builder.New(baseURL, cfg.Token),
		retrier,
		history.NewStore(cfg.History.Cap),
		logger,
		session.Options{
			Execute:        cfg.Execute,
			ContextTurns:   cfg.History.ContextTurns,
			CandidateLimit: cfg.Index.Limit,
			FollowupTTL:    cfg.Retry.FollowupTTL,
			Scope:          cfg.Scope,
		},
	), nil
}
