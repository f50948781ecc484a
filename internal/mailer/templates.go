package mailer

import (
	"fmt"
	"time"
)

const passwordResetSubject = "Password Reset Request"

// RenderPasswordReset builds the reset e-mail for a user
func RenderPasswordReset(from, to, username, resetURL string, ttl time.Duration) Email {
	body := fmt.Sprintf(`Hello %s,

To reset your password, click the following link:
%s

If you did not request this, simply ignore this email.

This link will expire in %s.
`, username, resetURL, humanizeTTL(ttl))

	return Email{
		From:    from,
		To:      to,
		Subject: passwordResetSubject,
		Body:    body,
	}
}

func humanizeTTL(d time.Duration) string {
	switch {
	case d >= time.Hour && d%time.Hour == 0:
		return plural(int(d/time.Hour), "hour")
	case d >= time.Minute && d%time.Minute == 0:
		return plural(int(d/time.Minute), "minute")
	default:
		return d.String()
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
