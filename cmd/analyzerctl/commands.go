package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/chat-analyzer/gateway/internal/model"
)

func newAgentsCmd(opts *options) *cobra.Command {
	var connectionType string

	cmd := &cobra.Command{
		Use:   "agents",
		Short: "List agents",
		Long:  `Fetch the agent list, optionally for a single connection type.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := signIn(cmd.Context(), opts)
			if err != nil {
				return err
			}

			ct := model.ConnectionType(connectionType)
			agents := a.Agents.Fetch(cmd.Context(), ct)
			if err := storeError(a.Agents.Err()); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), agents)
		},
	}
	cmd.Flags().StringVarP(&connectionType, "connection-type", "t", "", "connection type (jotform, chatgpt, file)")
	return cmd
}

func newConversationsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "conversations [agent-id]",
		Short: "List an agent's conversations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := signIn(cmd.Context(), opts)
			if err != nil {
				return err
			}

			agentID := model.ID(args[0])
			a.Conversations.Fetch(cmd.Context(), agentID)
			if err := storeError(a.Conversations.Err()); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), a.Conversations.ForAgent(agentID))
		},
	}
}

func newStatsCmd(opts *options) *cobra.Command {
	var refresh bool

	cmd := &cobra.Command{
		Use:   "stats [agent-id]",
		Short: "Print an agent's conversation statistics",
		Long:  `Load an agent's conversations and every message, then print the derived statistics.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := signIn(cmd.Context(), opts)
			if err != nil {
				return err
			}

			agentID := model.ID(args[0])
			a.Conversations.Fetch(cmd.Context(), agentID)
			if err := storeError(a.Conversations.Err()); err != nil {
				return err
			}
			load := a.LoadAgentMessages
			if refresh {
				load = a.ReloadAgentMessages
			}
			if err := load(cmd.Context(), agentID); err != nil {
				return err
			}
			if err := storeError(a.Messages.Err()); err != nil {
				return err
			}

			view, err := a.Statistics(agentID)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), view)
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "reload threads that are already cached")
	return cmd
}

func newDashboardCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard [agent-id]",
		Short: "Print an agent's dashboard",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := signIn(cmd.Context(), opts)
			if err != nil {
				return err
			}

			view, err := a.Dashboard(cmd.Context(), model.ID(args[0]))
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), view)
		},
	}
}

func newSearchCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "search [agent-id] [query...]",
		Short: "Semantic search over an agent's messages",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := signIn(cmd.Context(), opts)
			if err != nil {
				return err
			}

			results, err := a.SemanticSearch(cmd.Context(), model.ID(args[0]), strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), results)
		},
	}
}
