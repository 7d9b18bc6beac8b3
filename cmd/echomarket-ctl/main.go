package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	cli "github.com/spf13/pflag"

	"echomarket/internal/ipc"
)

func main() {
	socket := cli.StringP("socket", "s", ipc.SocketPath, "Control socket path")
	cli.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: echomarket-ctl [--socket path] say <text> | screen <name> | logout | status")
		cli.PrintDefaults()
	}
	cli.Parse()

	args := cli.Args()
	if len(args) == 0 {
		cli.Usage()
		os.Exit(2)
	}

	msg := ipc.ControlMessage{
		Cmd:  args[0],
		Text: strings.Join(args[1:], " "),
	}

	reply, err := ipc.Send(*socket, msg)
	if err != nil {
		color.Red("echomarket daemon not running: %v", err)
		os.Exit(1)
	}

	if !reply.OK {
		color.Red("%s", reply.Text)
		os.Exit(1)
	}
	color.Green("%s", reply.Text)
}
