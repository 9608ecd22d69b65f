package main

import (
	"context"
	"math/big"

	"github.com/pkg/errors"
	"github.com/urfave/cli"
)

var getCertCommand = cli.Command{
	Name:  "getcert",
	Usage: "query a previously issued certificate by serial number",
	Flags: []cli.Flag{urlFlag, profileFlag, insecureFlag, identityCertFlag, identityKeyFlag, serialFlag, outFlag},
	Action: func(ctx *cli.Context) error {
		serial, ok := new(big.Int).SetString(ctx.String("serial"), 10)
		if !ok {
			fatal(errors.Errorf("%q is not a valid decimal serial number", ctx.String("serial")))
			return nil
		}

		c, err := newClient(ctx)
		if err != nil {
			fatal(err)
			return nil
		}
		chain, err := c.GetCertificate(context.Background(), serial)
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
