package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a single question and print the answer",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		raw, _ := cmd.Flags().GetBool("raw")

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		sess, closeStore, err := newSession(ctx, cmd, cfg, newLogger(cfg), nil)
		if err != nil {
			return err
		}
		defer closeStore()

		answer, err := sess.Ask(ctx, strings.Join(args, " "))
		if err != nil {
			return err
		}
		newPrinter(raw).Answer(answer, false)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(askCmd)
}
