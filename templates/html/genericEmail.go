package templates

import (
	"fmt"
	"html"
	"strings"
)

const emailStyle = `
    body { font-family: 'Segoe UI', Tahoma, Geneva, Verdana, sans-serif; margin: 0; padding: 0; background-color: #0b0f14; }
    .container { max-width: 600px; margin: 0 auto; background-color: #131a22; }
    .header { background: linear-gradient(135deg, #dc2626 0%%, #7f1d1d 100%%); padding: 40px 30px; text-align: center; }
    .header h1 { color: #fff; margin: 0; font-size: 24px; font-weight: 700; }
    .content { padding: 40px 30px; color: #e5e7eb; line-height: 1.6; font-size: 15px; }
    .report { background: rgba(220, 38, 38, 0.08); border: 1px solid rgba(220, 38, 38, 0.3); border-radius: 12px; padding: 16px 20px; margin: 16px 0; }
    .report h3 { color: #fff; margin: 0 0 6px 0; font-size: 16px; }
    .meta { color: #9ca3af; font-size: 13px; }
    .badge { display: inline-block; padding: 2px 8px; border-radius: 6px; font-size: 12px; font-weight: 700; text-transform: uppercase; }
    .badge-critical { background: #7f1d1d; color: #fecaca; }
    .badge-high { background: #9a3412; color: #fed7aa; }
    .badge-medium { background: #854d0e; color: #fef08a; }
    .badge-low { background: #14532d; color: #bbf7d0; }
    .cta-button { display: inline-block; background: #dc2626; color: #fff; padding: 12px 24px; border-radius: 8px; text-decoration: none; font-weight: 700; margin-top: 16px; }
    .footer { padding: 30px; text-align: center; color: #6b7280; font-size: 12px; border-top: 1px solid rgba(255,255,255,0.1); }
    .footer a { color: #f87171; text-decoration: none; }`

// layout wraps already-escaped body HTML in the branded shell
func layout(title, bodyHTML, baseURL string) string {
	safeTitle := html.EscapeString(title)
	safeURL := html.EscapeString(baseURL)
	return fmt.Sprintf(`<!DOCTYPE html PUBLIC "-//W3C//DTD XHTML 1.0 Strict//EN" "http://www.w3.org/TR/xhtml1/DTD/xhtml1-strict.dtd">
<html xmlns="http://www.w3.org/1999/xhtml">
<head>
  <meta http-equiv="Content-Type" content="text/html; charset=utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1, minimum-scale=1, maximum-scale=1">
  <title>%s</title>
  <style type="text/css">`+emailStyle+`
  </style>
</head>
<body>
  <div class="container">
    <div class="header">
      <h1>%s</h1>
    </div>
    <div class="content">
      %s
    </div>
    <div class="footer">
      <p>&copy; CrimeShield | <a href="%s">%s</a></p>
      <p>You receive this email because you are a CrimeShield moderator.</p>
    </div>
  </div>
</body>
</html>`, safeTitle, safeTitle, bodyHTML, safeURL, safeURL)
}

// RenderGenericEmail generates branded HTML for a generic email.
// bodyContent is plain text that gets HTML-escaped and has newlines converted to <br> tags.
func RenderGenericEmail(subject, bodyContent, baseURL string) string {
	escaped := html.EscapeString(bodyContent)
	return layout(subject, strings.ReplaceAll(escaped, "\n", "<br>"), baseURL)
}
