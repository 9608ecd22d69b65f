package main

import (
	"time"

	"github.com/urfave/cli"
)

var urlFlag = cli.StringFlag{
	Name:  "url",
	Usage: "the CA's SCEP `ENDPOINT`, e.g. https://ca.example.com/scep",
}

var profileFlag = cli.StringFlag{
	Name:  "profile",
	Usage: "optional CA `PROFILE` name",
}

var insecureFlag = cli.BoolFlag{
	Name:  "insecure-skip-trust",
	Usage: "approve every CA certificate without prompting (testing only)",
}

var identityCertFlag = cli.StringFlag{
	Name:  "identity-cert",
	Usage: "path to the requester's PEM certificate",
}

var identityKeyFlag = cli.StringFlag{
	Name:  "identity-key",
	Usage: "path to the requester's PEM RSA private key",
}

var outFlag = cli.StringFlag{
	Name:  "out",
	Usage: "path to write the resulting PEM certificate to",
}

var serialFlag = cli.StringFlag{
	Name:  "serial",
	Usage: "decimal certificate `SERIAL` to look up",
}

var csrFlag = cli.StringFlag{
	Name:  "csr",
	Usage: "path to the PEM PKCS#10 certificate request to enrol",
}

var renewFlag = cli.BoolFlag{
	Name:  "renew",
	Usage: "send a renewal request (RenewalReq) instead of an initial PKCSReq",
}

var pollIntervalFlag = cli.DurationFlag{
	Name:  "poll-interval",
	Usage: "how long to wait between CertPoll attempts while the CA reports CERT_REQ_PENDING",
	Value: 5 * time.Second,
}

var maxPollsFlag = cli.IntFlag{
	Name:  "max-polls",
	Usage: "maximum number of CertPoll attempts before giving up",
	Value: 12,
}
