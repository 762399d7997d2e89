package email

import "fmt"

// ApprovalEmailHTML returns the HTML body notifying a requester that their
// admin access was approved. The registration link is where they choose
// their own password; no credential is created on their behalf.
func ApprovalEmailHTML(firstName, appName, registrationURL string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>Your admin access was approved</title>
</head>
<body style="margin:0;padding:0;font-family:-apple-system,BlinkMacSystemFont,'Segoe UI',Roboto,Helvetica,Arial,sans-serif;background-color:#f4f5f7;">
<table width="100%%" cellpadding="0" cellspacing="0" style="background-color:#f4f5f7;padding:40px 0;">
<tr><td align="center">
<table width="480" cellpadding="0" cellspacing="0" style="background-color:#ffffff;border-radius:8px;overflow:hidden;box-shadow:0 2px 8px rgba(0,0,0,0.08);">
  <tr><td style="padding:32px 40px 24px;text-align:center;">
    <h1 style="margin:0;font-size:24px;color:#1a1a2e;">Access approved</h1>
  </td></tr>
  <tr><td style="padding:0 40px;">
    <p style="margin:0 0 24px;font-size:15px;color:#4a4a68;line-height:1.6;">
      Hi %s, your request for administrative access to <strong>%s</strong> has been approved.
      Complete your registration below to choose a password and sign in.
    </p>
  </td></tr>
  <tr><td style="padding:0 40px 24px;text-align:center;">
    <a href="%s" style="display:inline-block;background-color:#6c63ff;color:#ffffff;text-decoration:none;border-radius:6px;padding:14px 32px;font-size:15px;font-weight:600;">Complete registration</a>
  </td></tr>
  <tr><td style="padding:0 40px 32px;">
    <p style="margin:0;font-size:13px;color:#8888a0;line-height:1.5;">
      Registration only works with the email address this message was sent to.
      If you did not request access, you can safely ignore this email.
    </p>
  </td></tr>
  <tr><td style="padding:16px 40px;background-color:#f9f9fc;border-top:1px solid #eeeef2;">
    <p style="margin:0;font-size:12px;color:#aaaabc;text-align:center;">
      &copy; %s &mdash; This is an automated message, please do not reply.
    </p>
  </td></tr>
</table>
</td></tr>
</table>
</body>
</html>`, firstName, appName, registrationURL, appName)
}

// ApprovalEmailText returns the plain-text body for an approval notification
func ApprovalEmailText(firstName, appName, registrationURL string) string {
	return fmt.Sprintf(`Access approved

Hi %s, your request for administrative access to %s has been approved.

Complete your registration here to choose a password and sign in:
%s

Registration only works with the email address this message was sent to.
If you did not request access, you can safely ignore this email.

- %s`, firstName, appName, registrationURL, appName)
}

// RejectionEmailText returns the plain-text body for a rejection notification.
// Plain text only; there is nothing to click.
func RejectionEmailText(firstName, appName string) string {
	return fmt.Sprintf(`Hi %s,

Your request for administrative access to %s was not approved.
If you believe this is a mistake, please contact the school office.

- %s`, firstName, appName, appName)
}
