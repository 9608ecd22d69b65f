// Package logging provides the logrus field-bag helper the client uses to
// trace transaction and transport activity. It is adapted from the
// certificate authority's logging.LoggerHandler: the same
// logrus.Fields-per-call-site idiom, shrunk from an HTTP access log down
// to the handful of fields a SCEP operation cares about.
package logging

import "github.com/sirupsen/logrus"

// std is the package-level logger every helper writes through. Tests that
// want to assert on output can call SetOutput/SetLevel on it via
// logrus.StandardLogger semantics by swapping std with SetLogger.
var std = logrus.StandardLogger()

// SetLogger overrides the logger used by Entry. Intended for tests and for
// applications that want the client to log through an existing logrus
// instance instead of the default standard logger.
func SetLogger(l *logrus.Logger) {
	std = l
}

// Entry starts a log entry for the named operation (e.g. "client.Enroll",
// "transaction.send"). Callers chain WithField/WithFields and finish with
// Debug/Info/Warn/Error, exactly as the teacher's handler.go builds up
// logrus.Fields before writing.
func Entry(op string) *logrus.Entry {
	return std.WithField("op", op)
}

// Transaction augments Entry with the correlation fields every transaction
// log line carries: the transaction id and the message type in flight.
// Call sites add outcome fields (pki-status, fail-info) themselves.
func Transaction(op string, transactionID, messageType string) *logrus.Entry {
	return Entry(op).WithFields(logrus.Fields{
		"transaction-id": transactionID,
		"message-type":   messageType,
	})
}
