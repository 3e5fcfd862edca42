package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"tinypal/internal/catalog"
)

func init() {
	cmd := &cobra.Command{
		Use:   "assistant",
		Short: "Activate Tinu and print the normalized cards and chips",
		Args:  cobra.NoArgs,
		RunE:  runAssistant,
	}

	cmd.Flags().StringP("screen", "s", catalog.ScreenDidYouKnow, "Screen the assistant is opened from: did_you_know or flash_cards")
	cmd.Flags().String("child", "", "Child id (default: $TINYPAL_CHILD_ID)")
	cmd.Flags().String("topic", "", "Topic (default: $TINYPAL_TOPIC)")

	RootCmd.AddCommand(cmd)
}

func runAssistant(cmd *cobra.Command, args []string) error {
	screen, _ := cmd.Flags().GetString("screen")
	child, _ := cmd.Flags().GetString("child")
	topic, _ := cmd.Flags().GetString("topic")

	assistantContext, ok := catalog.AssistantContext(screen)
	if !ok {
		return fmt.Errorf("unknown screen %q", screen)
	}

	cfg := loadConfig()
	if child == "" {
		child = cfg.ChildID
	}
	if topic == "" {
		topic = cfg.Topic
	}

	client, err := newClient(cfg)
	if err != nil {
		return err
	}
	activation, err := client.ActivateAssistant(cmd.Context(), child, assistantContext, "", topic)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), activation)
}
