package email

import (
	"fmt"
	"strings"
)

// RequestItem is one blood type line of a request for email purposes
type RequestItem struct {
	BloodType string
	Units     int
}

// BuildRequestAcceptedBody builds the HTML body for the request accepted email
func BuildRequestAcceptedBody(requestID, bankName string, items []RequestItem) string {
	var itemsHTML strings.Builder
	for _, item := range items {
		itemsHTML.WriteString(fmt.Sprintf(
			`<tr>
				<td style="padding: 12px; border-bottom: 1px solid #eee;">%s</td>
				<td style="padding: 12px; border-bottom: 1px solid #eee; text-align: right;">%d</td>
			</tr>`,
			item.BloodType,
			item.Units,
		))
	}

	source := bankName
	if source == "" {
		source = "the assigned blood bank"
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
	<div style="background: linear-gradient(135deg, #b71c1c 0%%, #e53935 100%%); padding: 30px; border-radius: 10px 10px 0 0;">
		<h1 style="color: white; margin: 0; font-size: 24px;">Request Accepted</h1>
	</div>

	<div style="background: #fff; padding: 30px; border: 1px solid #eee; border-top: none; border-radius: 0 0 10px 10px;">
		<p style="margin-top: 0;">Your blood request has been accepted by %s and is now being processed.</p>

		<div style="background: #f8f9fa; padding: 15px; border-radius: 5px; margin: 20px 0;">
			<p style="margin: 0; font-size: 14px; color: #666;">Request number</p>
			<p style="margin: 5px 0 0 0; font-size: 18px; font-weight: bold; font-family: monospace;">%s</p>
		</div>

		<h2 style="font-size: 18px; border-bottom: 2px solid #b71c1c; padding-bottom: 10px;">Requested Units</h2>

		<table style="width: 100%%; border-collapse: collapse; margin: 20px 0;">
			<thead>
				<tr style="background: #f8f9fa;">
					<th style="padding: 12px; text-align: left; font-weight: 600;">Blood type</th>
					<th style="padding: 12px; text-align: right; font-weight: 600;">Units</th>
				</tr>
			</thead>
			<tbody>
				%s
			</tbody>
		</table>

		<p>You will be notified again when the delivery is scheduled.</p>

		<hr style="border: none; border-top: 1px solid #eee; margin: 30px 0;">

		<p style="font-size: 12px; color: #999; margin-bottom: 0;">
			This is an automated message. Please contact network support with any questions.
		</p>
	</div>
</body>
</html>`, source, requestID, itemsHTML.String())
}

// BuildVoucherAcceptedBody builds the HTML body for the voucher accepted email
func BuildVoucherAcceptedBody(code, bankName string) string {
	bank := bankName
	if bank == "" {
		bank = "a blood bank in the network"
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
	<div style="background: linear-gradient(135deg, #b71c1c 0%%, #e53935 100%%); padding: 30px; border-radius: 10px 10px 0 0;">
		<h1 style="color: white; margin: 0; font-size: 24px;">Voucher Accepted</h1>
	</div>

	<div style="background: #fff; padding: 30px; border: 1px solid #eee; border-top: none; border-radius: 0 0 10px 10px;">
		<p style="margin-top: 0;">Good news — your donation voucher has been accepted by %s.</p>

		<div style="background: #f8f9fa; padding: 15px; border-radius: 5px; margin: 20px 0;">
			<p style="margin: 0; font-size: 14px; color: #666;">Voucher code</p>
			<p style="margin: 5px 0 0 0; font-size: 18px; font-weight: bold; font-family: monospace;">%s</p>
		</div>

		<p>One unit has been reserved against this voucher. The bank will mark it complete once the unit is handed over.</p>

		<hr style="border: none; border-top: 1px solid #eee; margin: 30px 0;">

		<p style="font-size: 12px; color: #999; margin-bottom: 0;">
			This is an automated message. Please contact network support with any questions.
		</p>
	</div>
</body>
</html>`, bank, code)
}
