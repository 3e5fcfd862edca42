package cli

import (
	"github.com/spf13/cobra"

	"tinypal/internal/catalog"
)

func init() {
	cmd := &cobra.Command{
		Use:   "answers",
		Short: "Fetch normalized personalized answers",
		Long:  "Submits the demo questionnaire and prints the normalized Did You Know and flash cards. Unreachable upstreams print the offline content.",
		Args:  cobra.NoArgs,
		RunE:  runAnswers,
	}

	cmd.Flags().String("parent", "", "Parent id (default: $TINYPAL_PARENT_ID)")
	cmd.Flags().String("child", "", "Child id (default: $TINYPAL_CHILD_ID)")

	RootCmd.AddCommand(cmd)
}

func runAnswers(cmd *cobra.Command, args []string) error {
	parent, _ := cmd.Flags().GetString("parent")
	child, _ := cmd.Flags().GetString("child")

	cfg := loadConfig()
	if parent == "" {
		parent = cfg.ParentID
	}
	if child == "" {
		child = cfg.ChildID
	}

	client, err := newClient(cfg)
	if err != nil {
		return err
	}
	answers, err := client.FetchPersonalizedAnswers(cmd.Context(), parent, child, catalog.DemoResponses())
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), answers)
}
