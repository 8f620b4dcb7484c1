package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize [file]",
	Short: "Summarize a file, or stdin when no file is given",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		raw, _ := cmd.Flags().GetBool("raw")

		var in io.Reader = cmd.InOrStdin()
		if len(args) == 1 {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			in = f
		}
		data, err := io.ReadAll(in)
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}
		text := strings.TrimSpace(string(data))
		if text == "" {
			return fmt.Errorf("nothing to summarize")
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		sess, closeStore, err := newSession(ctx, cmd, cfg, newLogger(cfg), nil)
		if err != nil {
			return err
		}
		defer closeStore()

		summary, err := sess.Summarize(ctx, text)
		if err != nil {
			return err
		}
		newPrinter(raw).Answer(&summary, false)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(summarizeCmd)
}
