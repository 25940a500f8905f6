package email

import (
	"fmt"
	"strings"

	"lms/config"
)

// Variables are the substitution values for a template. Values are
// formatted with %v, so numbers are fine.
type Variables map[string]interface{}

// Rendered is a template with all variables substituted.
type Rendered struct {
	Subject string
	Text    string
	HTML    string
}

func defaultVariables() Variables {
	appURL := ""
	if config.AppConfig != nil {
		appURL = config.AppConfig.AppURL
	}
	return Variables{
		"name":             "there",
		"firstLessonUrl":   appURL + "/dashboard",
		"pricingUrl":       appURL + "/pricing",
		"billingUrl":       appURL + "/dashboard/billing",
		"updatePaymentUrl": appURL + "/dashboard/billing",
		"resumeUrl":        appURL + "/dashboard",
		"resubscribeUrl":   appURL + "/pricing",
		"certificateUrl":   appURL + "/certificate",
	}
}

// Render substitutes {{key}} placeholders in subject and body. Unknown
// placeholders are left in place so a missing variable is visible in test
// output rather than silently blank.
func Render(t Template, vars Variables) Rendered {
	merged := defaultVariables()
	for k, v := range vars {
		merged[k] = v
	}

	substitute := func(s string) string {
		for k, v := range merged {
			s = strings.ReplaceAll(s, "{{"+k+"}}", fmt.Sprintf("%v", v))
		}
		return s
	}

	subject := substitute(t.Subject)
	text := substitute(t.Text)

	return Rendered{
		Subject: subject,
		Text:    text,
		HTML:    htmlWrap(subject, text),
	}
}

// htmlWrap produces the HTML part from the text body.
func htmlWrap(title, text string) string {
	var b strings.Builder
	b.WriteString(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
<div style="max-width: 600px; margin: 0 auto; padding: 20px;">
<h2 style="color: #2563eb;">`)
	b.WriteString(title)
	b.WriteString("</h2>\n")
	for _, para := range strings.Split(text, "\n\n") {
		b.WriteString("<p>")
		b.WriteString(strings.ReplaceAll(strings.TrimSpace(para), "\n", "<br>"))
		b.WriteString("</p>\n")
	}
	b.WriteString(`</div>
</body>
</html>`)
	return b.String()
}
