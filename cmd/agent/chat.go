package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat (Ctrl-C to quit, /reset to clear)",
	RunE:  runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().BoolP("verbose", "v", false, "Show which tool was used for each answer")
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	raw, _ := cmd.Flags().GetBool("raw")
	verbose, _ := cmd.Flags().GetBool("verbose")
	out := newPrinter(raw)

	// Set up graceful shutdown on Ctrl-C (SIGINT) / SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sess, closeStore, err := newSession(ctx, cmd, cfg, logger, nil)
	if err != nil {
		return err
	}
	defer closeStore()

	fmt.Println("Chat with the research agent (Ctrl-C to quit, /reset to start over)")

	// stdin reader goroutine -> lines into channel
	scanner := bufio.NewScanner(os.Stdin)
	inputCh := make(chan string)
	go func() {
		defer close(inputCh)
		for scanner.Scan() {
			select {
			case inputCh <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

outer:
	for {
		out.Prompt()
		var (
			line string
			ok   bool
		)
		select {
		case <-ctx.Done():
			fmt.Println("\nExiting...")
			break outer
		case line, ok = <-inputCh:
			if !ok {
				break outer
			}
		}

		line = strings.TrimSpace(line)
		switch line {
		case "":
			continue
		case "/reset":
			sess.ResetConversation(ctx)
			out.Note("conversation reset")
			continue
		case "/exit", "/quit":
			break outer
		}

		res, err := sess.AskResult(ctx, line)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				fmt.Println("\nExiting...")
				break outer
			}
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}
		if verbose && res.Invocation != nil {
			out.Note("used tool %s", res.Invocation.Name)
		}
		out.Answer(res.Answer, true)
	}
	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: stdin read error: %v\n", err)
	}
	return nil
}
