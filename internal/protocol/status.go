package protocol

import "strings"

// StatusOK is the reply to a write request that fully succeeded.
const StatusOK = "ok"

const errorPrefix = "error: "

// ErrorStatus formats a failure reply.
func ErrorStatus(reason string) string {
	return errorPrefix + reason
}

// IsError reports whether status is a failure reply
func IsError(status string) bool {
	return strings.HasPrefix(status, errorPrefix)
}

// ErrorReason returns the reason part of a failure reply.
func ErrorReason(status string) string {
	return strings.TrimPrefix(status, errorPrefix)
}
