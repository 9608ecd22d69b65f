package main

import (
	"net/url"

	"github.com/pkg/errors"
	"github.com/urfave/cli"

	"github.com/asyd/jscep-client-bc-jdk6/client"
)

var errEmptyChain = errors.New("CA returned an empty certificate chain")

func newClient(ctx *cli.Context) (*client.Client, error) {
	endpoint, err := url.Parse(ctx.String("url"))
	if err != nil {
		return nil, errors.Wrap(err, "error parsing --url")
	}

	cert, err := loadCertificate(ctx.String("identity-cert"))
	if err != nil {
		return nil, err
	}
	key, err := loadPrivateKey(ctx.String("identity-key"))
	if err != nil {
		return nil, err
	}

	opts := []client.Option{}
	if profile := ctx.String("profile"); profile != "" {
		opts = append(opts, client.WithProfile(profile))
	}

	return client.New(endpoint, client.Identity{Certificate: cert, PrivateKey: key}, trustForContext(ctx.Bool("insecure-skip-trust")), opts...)
}
