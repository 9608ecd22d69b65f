package main

import (
	"context"
	"math/big"
	"os"

	"github.com/pkg/errors"
	"github.com/urfave/cli"
)

var getCRLCommand = cli.Command{
	Name:  "getcrl",
	Usage: "query the CRL covering a certificate's issuer, by that certificate's serial number",
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
		der, err := c.GetCRL(context.Background(), serial)
		if err != nil {
			fatal(err)
			return nil
		}
		if der == nil {
			fatal(errors.New("CA response carried no CRL"))
			return nil
		}
		if err := os.WriteFile(ctx.String("out"), der, 0o644); err != nil {
			fatal(errors.Wrapf(err, "error writing %s", ctx.String("out")))
		}
		return nil
	},
}
