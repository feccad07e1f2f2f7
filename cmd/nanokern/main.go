// Binary nanokern boots the task table, scheduler, and trap dispatcher and
// drives them against a host console, the userspace-visible equivalent of
// flashing the kernel image JOS boots from a bootloader.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/google/subcommands"
)

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")
	subcommands.Register(new(runCommand), "")

	flag.Parse()
	os.Exit(int(subcommands.Execute(context.Background())))
}
