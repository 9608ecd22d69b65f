// Command scepclient drives the five public SCEP client operations
// (spec §4.6) from the command line: get CA capabilities, get the CA
// chain, get the rollover chain, enrol (with polling), and query a
// certificate or CRL.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli"
)

// Version is set by an LDFLAG at build time.
var Version = "N/A"

func main() {
	app := cli.NewApp()
	app.Name = "scepclient"
	app.Usage = "enroll and query certificates over SCEP"
	app.Version = Version
	app.Commands = []cli.Command{
		getCapsCommand,
		getCACertCommand,
		getRolloverCommand,
		enrollCommand,
		getCertCommand,
		getCRLCommand,
	}

	if err := app.Run(os.Args); err != nil {
		fatal(err)
	}
}

func fatal(err error) {
	if os.Getenv("SCEPCLIENT_DEBUG") == "1" {
		fmt.Fprintf(os.Stderr, "%+v\n", err)
	} else {
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(1)
}
