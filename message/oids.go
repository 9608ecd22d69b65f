package message

import "encoding/asn1"

// SCEP authenticated-attribute OIDs (draft-gutmann-scep-09 §3.2.1, fixed
// by the protocol). Grounded on the identical arc used by the
// certificate authority's own scep/scep.go.
var (
	oidSCEPmessageType    = asn1.ObjectIdentifier{2, 16, 840, 1, 113733, 1, 9, 2}
	oidSCEPpkiStatus      = asn1.ObjectIdentifier{2, 16, 840, 1, 113733, 1, 9, 3}
	oidSCEPfailInfo       = asn1.ObjectIdentifier{2, 16, 840, 1, 113733, 1, 9, 4}
	oidSCEPsenderNonce    = asn1.ObjectIdentifier{2, 16, 840, 1, 113733, 1, 9, 5}
	oidSCEPrecipientNonce = asn1.ObjectIdentifier{2, 16, 840, 1, 113733, 1, 9, 6}
	oidSCEPtransactionID  = asn1.ObjectIdentifier{2, 16, 840, 1, 113733, 1, 9, 7}

	// oidSCEPprofile carries the optional CA profile name (spec §3); it is
	// not part of the base RFC vocabulary, but follows the same private
	// enterprise arc the CA vendor uses for its own SCEP extensions.
	oidSCEPprofile = asn1.ObjectIdentifier{2, 16, 840, 1, 113733, 1, 9, 8}
)

// Digest algorithm OIDs, selected per spec §4.4 strongest-mutually-
// supported rule.
var (
	oidDigestSHA1   = asn1.ObjectIdentifier{1, 3, 14, 3, 2, 26}
	oidDigestSHA256 = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 2, 1}
	oidDigestSHA512 = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 2, 3}
)
