package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/petasbytes/research-agent/memory"
)

var exportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Write a persisted session transcript to a JSON file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		store, closeStore, err := newMemory(cfg)
		if err != nil {
			return err
		}
		defer closeStore()
		if store == nil {
			return fmt.Errorf("export needs persistence: set store.kind to file or redis (AGT_PERSIST)")
		}

		id, _ := cmd.Flags().GetString("session")
		if id == "" {
			id = defaultSessionID
		}
		msgs, err := store.Load(cmd.Context(), id)
		if err != nil {
			return err
		}
		if msgs == nil {
			return fmt.Errorf("session %q has no saved transcript", id)
		}
		if err := memory.SaveConversation(args[0], msgs); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %d messages to %s\n", len(msgs), args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
}
