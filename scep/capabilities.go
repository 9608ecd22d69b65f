package scep

import "strings"

// Capability is one token from the closed vocabulary a CA may advertise
// in response to GetCACaps. Unknown tokens are ignored by ParseCapabilities.
type Capability string

// The full set of capability tokens this client understands.
const (
	CapAES              Capability = "AES"
	CapDES3             Capability = "DES3"
	CapSHA1             Capability = "SHA-1"
	CapSHA256           Capability = "SHA-256"
	CapSHA512           Capability = "SHA-512"
	CapPOSTPKIOperation Capability = "POSTPKIOperation"
	CapGetNextCACert    Capability = "GetNextCACert"
	CapRenewal          Capability = "Renewal"
	CapSCEPStandard     Capability = "SCEPStandard"
)

// Capabilities is the set of capabilities advertised by a CA for a given
// profile. The zero value is the empty set (every predicate defaults
// conservatively: no POST, no rollover, DES3/SHA-1 only).
type Capabilities map[Capability]struct{}

// ParseCapabilities parses the newline-separated capability token list
// returned by GetCACaps. Tokens outside the closed vocabulary are
// silently ignored, per spec.
func ParseCapabilities(body string) Capabilities {
	caps := make(Capabilities)
	for _, line := range strings.Split(body, "\n") {
		tok := Capability(strings.TrimSpace(line))
		if tok == "" {
			continue
		}
		switch tok {
		case CapAES, CapDES3, CapSHA1, CapSHA256, CapSHA512,
			CapPOSTPKIOperation, CapGetNextCACert, CapRenewal, CapSCEPStandard:
			caps[tok] = struct{}{}
		}
	}
	return caps
}

// Has reports whether the set advertises the given capability.
func (c Capabilities) Has(cap Capability) bool {
	_, ok := c[cap]
	return ok
}

// PostSupported reports whether the CA accepts PKIOperation over POST.
func (c Capabilities) PostSupported() bool {
	return c.Has(CapPOSTPKIOperation)
}

// RolloverSupported reports whether GetNextCACert is implemented.
func (c Capabilities) RolloverSupported() bool {
	return c.Has(CapGetNextCACert)
}

// RenewalSupported reports whether the CA accepts RenewalReq in place of
// PKCSReq for a client re-enrolling under its current identity.
func (c Capabilities) RenewalSupported() bool {
	return c.Has(CapRenewal)
}

// StrongestCipher returns AES if advertised, otherwise DES3 (the
// protocol's universal floor; every CA must support it).
func (c Capabilities) StrongestCipher() Capability {
	if c.Has(CapAES) {
		return CapAES
	}
	return CapDES3
}

// StrongestDigest returns the strongest of SHA-512, SHA-256, SHA-1 that
// both client and CA support; SHA-1 is the universal floor.
func (c Capabilities) StrongestDigest() Capability {
	switch {
	case c.Has(CapSHA512):
		return CapSHA512
	case c.Has(CapSHA256):
		return CapSHA256
	default:
		return CapSHA1
	}
}
