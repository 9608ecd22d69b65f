package main

import (
	"context"

	"github.com/urfave/cli"
)

var getCACertCommand = cli.Command{
	Name:  "getcacert",
	Usage: "fetch the CA's certificate chain and write the first certificate in it",
	Flags: []cli.Flag{urlFlag, profileFlag, insecureFlag, identityCertFlag, identityKeyFlag, outFlag},
	Action: func(ctx *cli.Context) error {
		c, err := newClient(ctx)
		if err != nil {
			fatal(err)
			return nil
		}
		chain, err := c.GetCACertificate(context.Background())
		if err != nil {
			fatal(err)
			return nil
		}
		if len(chain) == 0 {
			fatal(errEmptyChain)
			return nil
		}
		if err := writeCertificatePEM(ctx.String("out"), chain[0]); err != nil {
			fatal(err)
		}
		return nil
	},
}
