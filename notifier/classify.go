package notifier

import (
	"fmt"
	"strings"
)

// hardFailureSubstrings is the substring set that, when found in a delivery
// error, means the recipient can never be reached again on this channel:
// the dispatcher auto-deactivates the subscription rather than retry it
// on the next cycle.
var hardFailureSubstrings = []string{
	"blocked",
	"forbidden",
	"chat not found",
	"user deactivated",
	"bot kicked",
}

// IsHardFailure reports whether msg matches one of the known
// unrecoverable delivery error classes.
func IsHardFailure(msg string) bool {
	lower := strings.ToLower(msg)
	for _, s := range hardFailureSubstrings {
		if strings.Contains(lower, s) {
			return true
		}
	}
	for code := range twilioHardCodes {
		if strings.Contains(lower, fmt.Sprintf("twilio code %d", code)) {
			return true
		}
	}
	return false
}

// twilioHardCodes maps Twilio's structured error codes to whether the
// recipient is permanently unreachable. This is the structured layer;
// IsHardFailure's substring match is the fallback for transports (like
// Telegram) that only expose plain-text errors.
var twilioHardCodes = map[int]string{
	21211: "invalid_recipient",
	21408: "permission_denied_region",
	21610: "recipient_opted_out",
	21614: "not_mobile_number",
}

// ClassifyTwilioCode reports whether a Twilio error code names a
// permanent, non-retryable failure, and the classification string for
// logging.
func ClassifyTwilioCode(code int) (hard bool, class string) {
	class, ok := twilioHardCodes[code]
	return ok, class
}
