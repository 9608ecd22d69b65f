package main

import (
	"context"

	"github.com/urfave/cli"
)

var getRolloverCommand = cli.Command{
	Name:  "getrollover",
	Usage: "fetch the CA's next (rollover) certificate chain and write the first certificate in it",
	Flags: []cli.Flag{urlFlag, profileFlag, insecureFlag, identityCertFlag, identityKeyFlag, outFlag},
	Action: func(ctx *cli.Context) error {
		c, err := newClient(ctx)
		if err != nil {
			fatal(err)
			return nil
		}
		chain, err := c.GetRolloverCertificate(context.Background())
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
