package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli"
)

var getCapsCommand = cli.Command{
	Name:  "getcaps",
	Usage: "print the CA's advertised capabilities",
	Flags: []cli.Flag{urlFlag, profileFlag, insecureFlag, identityCertFlag, identityKeyFlag},
	Action: func(ctx *cli.Context) error {
		c, err := newClient(ctx)
		if err != nil {
			fatal(err)
			return nil
		}
		caps, err := c.GetCapabilities(context.Background())
		if err != nil {
			fatal(err)
			return nil
		}
		for cap := range caps {
			fmt.Println(cap)
		}
		return nil
	},
}
