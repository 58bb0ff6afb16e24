package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"fundbridge-gpt/internal/catalog"
	"fundbridge-gpt/internal/service"
	"fundbridge-gpt/internal/session"
	"fundbridge-gpt/internal/storage"
	"fundbridge-gpt/internal/tokens"
	"fundbridge-gpt/internal/tui"
)

// noVectors is the vector cleaner for terminal sessions, which never
// index documents.
type noVectors struct{}

func (noVectors) DeleteSession(ctx context.Context, sessionID string) error { return nil }

func chatCmd(a *app) *cobra.Command {
	var model string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat with the basic chatbot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, ok := catalog.Lookup(model); !ok {
				return &service.ValidationError{Field: "model", Message: fmt.Sprintf("unknown model %q", model)}
			}

			db, err := storage.New(a.cfg.DBPath)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer func() {
				_ = db.Close()
			}()
			if err := storage.Migrate(db); err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}

			ctx := cmd.Context()
			sessions := session.NewManager(storage.NewSessionRepo(db), storage.NewDocumentRepo(db), noVectors{}, a.cfg.SessionTTL)
			sess, err := sessions.Create(ctx, model)
			if err != nil {
				return err
			}
			// The transcript lives only as long as the window.
			defer func() {
				_ = sessions.End(context.WithoutCancel(ctx), sess.ID)
			}()

			chat := service.NewChatService(a.llm, sessions, tokens.NewBudget(a.counter))
			_, err = tea.NewProgram(tui.New(ctx, chat, sess, a.apiKey), tea.WithAltScreen(), tea.WithContext(ctx)).Run()
			return err
		},
	}
	cmd.Flags().StringVarP(&model, "model", "m", a.cfg.DefaultModel, "Model ID (see 'fundbridge models')")

	return cmd
}
