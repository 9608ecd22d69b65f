package main

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/urfave/cli"

	"github.com/asyd/jscep-client-bc-jdk6/transaction"
)

var enrollCommand = cli.Command{
	Name:  "enroll",
	Usage: "submit a certificate request and poll until it is issued or refused",
	Flags: []cli.Flag{
		urlFlag, profileFlag, insecureFlag, identityCertFlag, identityKeyFlag,
		csrFlag, renewFlag, pollIntervalFlag, maxPollsFlag, outFlag,
	},
	Action: func(ctx *cli.Context) error {
		csr, err := loadCSR(ctx.String("csr"))
		if err != nil {
			fatal(err)
			return nil
		}

		c, err := newClient(ctx)
		if err != nil {
			fatal(err)
			return nil
		}

		background := context.Background()
		tx, err := c.Enroll(background, csr, ctx.Bool("renew"))
		if err != nil {
			fatal(err)
			return nil
		}

		state, err := tx.Send(background)
		if err != nil {
			fatal(err)
			return nil
		}

		state, err = pollUntilTerminal(background, tx, state, ctx.Duration("poll-interval"), ctx.Int("max-polls"))
		if err != nil {
			fatal(err)
			return nil
		}

		switch state {
		case transaction.StateCertIssued:
			certs := tx.Certificates()
			if len(certs) == 0 {
				fatal(errEmptyChain)
				return nil
			}
			if err := writeCertificatePEM(ctx.String("out"), certs[0]); err != nil {
				fatal(err)
			}
		case transaction.StateCertReqPending:
			fatal(errors.Errorf("request still CERT_REQ_PENDING after %d polls", ctx.Int("max-polls")))
		default:
			fatal(errors.Errorf("enrollment failed: %s (failInfo=%s)", state, tx.FailInfo()))
		}
		return nil
	},
}

func pollUntilTerminal(ctx context.Context, tx *transaction.EnrollmentTransaction, state transaction.State, interval time.Duration, maxPolls int) (transaction.State, error) {
	for i := 0; state == transaction.StateCertReqPending && i < maxPolls; i++ {
		select {
		case <-ctx.Done():
			return state, ctx.Err()
		case <-time.After(interval):
		}

		next, err := tx.Poll(ctx)
		if err != nil {
			return state, err
		}
		state = next
	}
	return state, nil
}
