package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/bupple-inc/ai-engine/internal/utils"
	"github.com/bupple-inc/ai-engine/providers/ai"
	"github.com/bupple-inc/ai-engine/providers/memory"
)

func newHistoryCmd(global *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect and edit stored conversations",
	}
	cmd.AddCommand(
		newHistoryListCmd(global),
		newHistoryAddCmd(global),
		newHistoryClearCmd(global),
	)
	return cmd
}

// withHistory opens the engine and hands the scoped memory driver to fn.
func withHistory(cmd *cobra.Command, global *globalFlags, args []string, fn func(*memory.Driver) error) error {
	eng, closeEngine, err := global.openEngine(cmd.Context())
	if err != nil {
		return err
	}
	defer closeEngine()

	driver, err := eng.MemoryDriver(args[0])
	if err != nil {
		return err
	}
	return fn(driver.WithParent(args[1], args[2]))
}

func newHistoryListCmd(global *globalFlags) *cobra.Command {
	var raw bool
	cmd := &cobra.Command{
		Use:   "list <driver> <class> <id>",
		Short: "List the stored turns of a conversation",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(cmd, global, args, func(history *memory.Driver) error {
				out := cmd.OutOrStdout()
				if raw {
					messages, err := history.Messages(cmd.Context())
					if err != nil {
						return err
					}
					encoded, err := json.MarshalIndent(messages, "", "  ")
					if err != nil {
						return err
					}
					fmt.Fprintln(out, string(encoded))
					return nil
				}

				messages, err := history.History(cmd.Context())
				if err != nil {
					return err
				}
				if len(messages) == 0 {
					fmt.Fprintln(out, "No messages.")
					return nil
				}
				w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ROLE\tTYPE\tCONTENT")
				for _, m := range messages {
					fmt.Fprintf(w, "%s\t%s\t%s\n", m.Role, m.Type, utils.TruncateString(m.Content, 72))
				}
				return w.Flush()
			})
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "print the driver-native JSON records")
	return cmd
}

func newHistoryAddCmd(global *globalFlags) *cobra.Command {
	var (
		role        string
		contentType string
		messageID   string
	)
	cmd := &cobra.Command{
		Use:   "add <driver> <class> <id> <content>",
		Short: "Append one turn to a conversation",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			r := ai.MessageRole(role)
			switch r {
			case ai.RoleUser, ai.RoleAssistant, ai.RoleSystem, ai.RoleModel:
			default:
				return fmt.Errorf("role %q: want system, user or assistant", role)
			}

			return withHistory(cmd, global, args, func(history *memory.Driver) error {
				opts := []memory.AddOption{memory.WithType(ai.ContentType(contentType))}
				if messageID != "" {
					opts = append(opts, memory.WithMessageID(messageID))
				}
				return history.AddMessage(cmd.Context(), r, args[3], opts...)
			})
		},
	}
	cmd.Flags().StringVarP(&role, "role", "r", string(ai.RoleUser), "message role")
	cmd.Flags().StringVar(&contentType, "type", "", "content type (text, image, audio, video, document)")
	cmd.Flags().StringVar(&messageID, "message-id", "", "id recorded in the message metadata")
	return cmd
}

func newHistoryClearCmd(global *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "clear <driver> <class> <id>",
		Short: "Delete every stored turn of a conversation for one driver",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(cmd, global, args, func(history *memory.Driver) error {
				if err := history.Clear(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "History cleared.")
				return nil
			})
		},
	}
}
