package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pulpoai/agentcore/internal/config"
	"github.com/pulpoai/agentcore/pkg/types"
)

func buildDecideCmd() *cobra.Command {
	var (
		configPath     string
		workspaceID    string
		vertical       string
		tier           string
		conversationID string
		input          string
	)

	cmd := &cobra.Command{
		Use:   "decide",
		Short: "Run a single conversational turn and print the result as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				configPath = defaultConfigPath()
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			a, err := buildApp(cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			snapshot := types.ConversationSnapshot{
				ConversationID: conversationID,
				WorkspaceID:    workspaceID,
				Vertical:       types.Vertical(vertical),
				UserInput:      input,
				Slots:          map[types.CanonicalSlotName]string{},
			}
			workspace := types.Workspace{
				ID:       workspaceID,
				Vertical: types.Vertical(vertical),
				Tier:     types.Tier(tier),
				Status:   types.WorkspaceActive,
				Policy:   types.DefaultWorkspacePolicy(),
			}

			resp, err := a.Orchestrator.Decide(cmd.Context(), snapshot, workspace)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(resp)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to YAML configuration file")
	cmd.Flags().StringVar(&workspaceID, "workspace", "", "workspace id")
	cmd.Flags().StringVar(&vertical, "vertical", string(types.VerticalServices), "workspace vertical")
	cmd.Flags().StringVar(&tier, "tier", string(types.TierBasic), "workspace tier")
	cmd.Flags().StringVar(&conversationID, "conversation", "", "conversation id")
	cmd.Flags().StringVar(&input, "input", "", "user utterance")

	return cmd
}
