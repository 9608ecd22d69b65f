package transaction

// contentTypePKIMessage is the Content-Type every PKIOperation/CertRep
// response must carry (RFC 8894 §4; same value as request's
// contentTypePKIMessage constant, duplicated here since it is unexported
// across packages).
const contentTypePKIMessage = "application/x-pki-message"

// matchesContentType reports whether got (an HTTP Content-Type header,
// possibly with a "; charset=..." suffix) names want.
func matchesContentType(got, want string) bool {
	for i := 0; i < len(got); i++ {
		if got[i] == ';' {
			got = got[:i]
			break
		}
	}
	return got == want
}
