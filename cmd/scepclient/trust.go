package main

import (
	"bufio"
	"crypto/sha256"
	"crypto/x509"
	"fmt"
	"os"
	"strings"

	"github.com/asyd/jscep-client-bc-jdk6/client"
)

// trustForContext returns the trust callback the --insecure-skip-trust
// flag selects: either blanket approval, or an interactive prompt
// printing the CA's subject and SHA-256 fingerprint to stderr (spec §6's
// trust callback contract: present a candidate, observe a verdict).
func trustForContext(skipPrompt bool) client.TrustFunc {
	if skipPrompt {
		return func(*x509.Certificate) bool { return true }
	}
	return promptTrust
}

func promptTrust(cert *x509.Certificate) bool {
	fingerprint := sha256.Sum256(cert.Raw)
	fmt.Fprintf(os.Stderr, "CA certificate:\n  Subject: %s\n  SHA-256: %x\nTrust this certificate? [y/N]: ", cert.Subject, fingerprint)

	reader := bufio.NewReader(os.Stdin)
	line, _ := reader.ReadString('\n')
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
