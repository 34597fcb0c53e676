package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/fieldtrial/pkg/field/arrange"
	"github.com/matzehuels/fieldtrial/pkg/pipeline"
)

// completionCommand creates the completion command for generating shell completions.
func (c *CLI) completionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for fieldtrial.

Bash:
  $ source <(fieldtrial completion bash)

Zsh:
  $ fieldtrial completion zsh > "${fpath[1]}/_fieldtrial"

Fish:
  $ fieldtrial completion fish > ~/.config/fish/completions/fieldtrial.fish

PowerShell:
  PS> fieldtrial completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletionV2(out, true)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
			return nil
		},
	}
}

// completeFormats completes comma-separated --format values.
func completeFormats(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	return pipeline.FormatNames(), cobra.ShellCompDirectiveNoFileComp
}

// completeStrategies completes --strategy values.
func completeStrategies(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	return arrange.Strategies(), cobra.ShellCompDirectiveNoFileComp
}
