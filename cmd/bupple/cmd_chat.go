package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bupple-inc/ai-engine/core/engine"
	"github.com/bupple-inc/ai-engine/internal/utils"
	"github.com/bupple-inc/ai-engine/providers/ai"
	"github.com/bupple-inc/ai-engine/providers/memory"
)

type chatFlags struct {
	driver      string
	model       string
	system      string
	contextHTML string
	thread      string
	temperature float64
	maxTokens   int
	asJSON      bool
	usage       bool
}

func newChatCmd(global *globalFlags, streaming bool) *cobra.Command {
	flags := &chatFlags{}

	cmd := &cobra.Command{
		Use:   "chat <prompt>...",
		Short: "Send a prompt and print the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, global, flags, strings.Join(args, " "), streaming)
		},
	}
	if streaming {
		cmd.Use = "stream <prompt>..."
		cmd.Short = "Send a prompt and print the reply as it arrives"
	}

	f := cmd.Flags()
	f.StringVarP(&flags.driver, "driver", "d", "", "chat driver: openai, claude or gemini (default default.chat)")
	f.StringVarP(&flags.model, "model", "m", "", "model override")
	f.StringVarP(&flags.system, "system", "s", "", "system prompt")
	f.StringVar(&flags.contextHTML, "context-html", "", "HTML file converted to Markdown and sent as context")
	f.StringVarP(&flags.thread, "thread", "t", "", "conversation scope as <class>/<id>; history is loaded and saved")
	f.Float64Var(&flags.temperature, "temperature", 0, "sampling temperature")
	f.IntVar(&flags.maxTokens, "max-tokens", 0, "reply token limit")
	if !streaming {
		f.BoolVar(&flags.asJSON, "json", false, "extract the JSON object or array from the reply")
		f.BoolVar(&flags.usage, "usage", false, "print token usage to stderr")
	}
	return cmd
}

func runChat(cmd *cobra.Command, global *globalFlags, flags *chatFlags, prompt string, streaming bool) error {
	ctx := cmd.Context()
	eng, closeEngine, err := global.openEngine(ctx)
	if err != nil {
		return err
	}
	defer closeEngine()

	chat, err := eng.Chat(flags.driver)
	if err != nil {
		return err
	}

	history, err := flags.history(eng, chat.Provider())
	if err != nil {
		return err
	}

	messages, err := flags.messages(ctx, history, prompt)
	if err != nil {
		return err
	}
	options := flags.options(cmd)

	out := cmd.OutOrStdout()
	var reply string
	if streaming {
		reply, err = streamReply(ctx, out, chat, messages, options)
	} else {
		reply, err = sendReply(ctx, out, cmd.ErrOrStderr(), eng, chat, messages, options, flags)
	}
	if err != nil {
		return err
	}

	if history != nil {
		if err := history.AddUserMessage(ctx, prompt); err != nil {
			return err
		}
		return history.AddAssistantMessage(ctx, reply)
	}
	return nil
}

func sendReply(ctx context.Context, out, errOut io.Writer, eng *engine.Engine, chat ai.ChatDriver, messages []ai.Message, options ai.Options, flags *chatFlags) (string, error) {
	overview := &ai.Overview{}
	ctx = overview.ToContext(ctx)

	response, err := chat.Send(ctx, messages, options)
	if err != nil {
		return "", err
	}

	if flags.asJSON {
		value := eng.ParseJSON(response.Content)
		if value == nil {
			return "", errors.New("reply holds no JSON object or array")
		}
		encoded, err := json.MarshalIndent(value, "", "  ")
		if err != nil {
			return "", err
		}
		fmt.Fprintln(out, string(encoded))
	} else {
		fmt.Fprintln(out, response.Content)
	}

	if flags.usage {
		usage := overview.TotalUsage()
		fmt.Fprintf(errOut, "model=%s requests=%d prompt_tokens=%d completion_tokens=%d total_tokens=%d",
			response.Model, overview.Requests(), usage.PromptTokens, usage.CompletionTokens, usage.TotalTokens)
		if pricing, ok := eng.Config().Pricing.Lookup(response.Model); ok {
			fmt.Fprintf(errOut, " cost=%s", pricing.Summarize(usage))
		}
		fmt.Fprintln(errOut)
	}
	return response.Content, nil
}

func streamReply(ctx context.Context, out io.Writer, chat ai.ChatDriver, messages []ai.Message, options ai.Options) (string, error) {
	stream, err := chat.Stream(ctx, messages, options)
	if err != nil {
		return "", err
	}

	var reply strings.Builder
	for delta, err := range stream.Iter() {
		if err != nil {
			fmt.Fprintln(out)
			return "", err
		}
		reply.WriteString(delta.Content)
		fmt.Fprint(out, delta.Content)
	}
	fmt.Fprintln(out)
	return reply.String(), nil
}

// history returns the scoped memory driver for --thread, or nil.
func (f *chatFlags) history(eng *engine.Engine, provider ai.Provider) (*memory.Driver, error) {
	if f.thread == "" {
		return nil, nil
	}
	class, id, err := parseThread(f.thread)
	if err != nil {
		return nil, err
	}
	driver, err := eng.MemoryDriver(provider.String())
	if err != nil {
		return nil, err
	}
	return driver.WithParent(class, id), nil
}

// messages assembles system prompt, HTML context, stored history and the
// prompt, in that order.
func (f *chatFlags) messages(ctx context.Context, history *memory.Driver, prompt string) ([]ai.Message, error) {
	var messages []ai.Message
	if f.system != "" {
		messages = append(messages, ai.Message{Role: ai.RoleSystem, Content: f.system})
	}

	if f.contextHTML != "" {
		raw, err := os.ReadFile(f.contextHTML)
		if err != nil {
			return nil, fmt.Errorf("read context: %w", err)
		}
		markdown, err := utils.HTMLToMarkdown(string(raw))
		if err != nil {
			return nil, err
		}
		messages = append(messages, ai.Message{Role: ai.RoleSystem, Content: "Context:\n\n" + markdown})
	}

	if history != nil {
		stored, err := history.History(ctx)
		if err != nil {
			return nil, err
		}
		messages = append(messages, stored...)
	}

	return append(messages, ai.Message{Role: ai.RoleUser, Content: prompt}), nil
}

func (f *chatFlags) options(cmd *cobra.Command) ai.Options {
	options := ai.Options{}
	if f.model != "" {
		options["model"] = f.model
	}
	if cmd.Flags().Changed("temperature") {
		options["temperature"] = f.temperature
	}
	if cmd.Flags().Changed("max-tokens") {
		options["max_tokens"] = f.maxTokens
	}
	return options
}

func parseThread(thread string) (string, string, error) {
	class, id, ok := strings.Cut(thread, "/")
	if !ok || class == "" || id == "" {
		return "", "", fmt.Errorf("thread %q: want <class>/<id>", thread)
	}
	return class, id, nil
}
