package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newListCommand(env *environment) *cobra.Command {
	return &cobra.Command{
		Use:       "list messages|enums|services|files",
		Short:     "List the types defined by the loaded schemas",
		ValidArgs: []string{"messages", "enums", "services", "files"},
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := env.codec()
			if err != nil {
				return err
			}
			var names []string
			switch args[0] {
			case "messages":
				names = p.ListMessages()
			case "enums":
				names = p.ListEnums()
			case "services":
				names = p.ListServices()
			case "files":
				names = p.Registry().ListFiles()
			}
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}
