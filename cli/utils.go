package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/hokaccha/go-prettyjson"
	"github.com/spf13/cobra"
)

func logJSONCmd(cmd cobra.Command, iface any) {
	p, err := prettyjson.Marshal(iface)
	if err != nil {
		logErrorCmd(cmd, err)

		return
	}

	fmt.Fprintln(cmd.OutOrStdout(), string(p))
}

func logErrorCmd(cmd cobra.Command, err error) {
	boldRed := color.New(color.FgRed, color.Bold)
	fmt.Fprintf(cmd.ErrOrStderr(), "\nerror: %s\n\n", boldRed.Sprintf("%s", err))
}

func logSuccessCmd(cmd cobra.Command, msg string) {
	green := color.New(color.FgGreen)
	fmt.Fprintln(cmd.OutOrStdout(), green.Sprint(msg))
}

func logUsageCmd(cmd cobra.Command, u string) {
	fmt.Fprintf(cmd.OutOrStdout(), color.YellowString("\nusage: %s\n\n"), u)
}
