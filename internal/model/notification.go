package model

// NotificationKind selects the template an outbound message is rendered with.
type NotificationKind string

const (
	// NotifyOTPCode carries a six digit code.  Data: name, code, purpose.
	NotifyOTPCode NotificationKind = "otp-code"
	// NotifyInvitation carries a code and a join link.  Data: name, code,
	// familyName, inviterName, role, link.
	NotifyInvitation NotificationKind = "invitation"
)

// Valid reports whether k is a known template kind.
func (k NotificationKind) Valid() bool {
	return k == NotifyOTPCode || k == NotifyInvitation
}
