// Command dirprocess renders template sources from an input tree into a
// process root and copies everything else alongside.
package main

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/dirprocess/cmd/dirprocess/commands"
	dpcerrors "git.home.luguber.info/inful/dirprocess/internal/errors"
	"git.home.luguber.info/inful/dirprocess/internal/version"
)

func main() {
	cli := &commands.CLI{}
	parser := kong.Parse(cli,
		kong.Name("dirprocess"),
		kong.Description("Render templates from an input tree into a process root"),
		kong.Vars{"version": version.String()},
		kong.UsageOnError(),
	)

	global := &commands.Global{Logger: slog.Default(), Out: os.Stdout}
	if err := parser.Run(global, cli); err != nil {
		dpcerrors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).HandleError(err)
	}
}
