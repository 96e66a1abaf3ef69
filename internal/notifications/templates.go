package notifications

import (
	"fmt"
	"strings"
	"text/template"
)

// Template names accepted by the dispatcher.
const (
	TemplateApprovalStatus    = "approval_status"
	TemplateInvite            = "invite"
	TemplateOwnerWelcome      = "owner_welcome"
	TemplateRenewal           = "renewal"
	TemplateRenewalReminder   = "renewal_reminder"
	TemplateQuestionAsked     = "question_asked"
	TemplateMembershipRequest = "membership_request"
)

// Each template renders the subject on the first line, then a blank line,
// then the plain-text body.
var templateSources = map[string]string{
	TemplateApprovalStatus: `{{if .Approved}}{{.ClubName}} has been approved!{{else}}{{.ClubName}} was not approved{{end}}

Hello,

{{if .Approved -}}
Your club, {{.ClubName}}, has been approved and is now visible in the directory:

{{.ClubURL}}
{{- else -}}
Your club, {{.ClubName}}, was reviewed and has not been approved.
{{if .Comment}}
Reviewer comments:

{{.Comment}}
{{end -}}
You can update your club page and resubmit it for review at any time:

{{.ClubURL}}
{{- end}}
`,
	TemplateInvite: `Invitation to join {{.ClubName}}

Hello,

You have been invited to join {{.ClubName}} as {{.RoleName}}. Click the link
below to accept the invitation:

{{.InviteURL}}

If you were not expecting this invitation, you can ignore this email.
`,
	TemplateOwnerWelcome: `Welcome to {{.ClubName}}!

Hello {{.Name}},

You are now an owner of {{.ClubName}}. You can edit your club page, manage
members, and post events here:

{{.ClubURL}}
`,
	TemplateRenewal: `Renew {{.ClubName}} for the new school year

Hello,

It is time to renew {{.ClubName}} for the upcoming school year. Until the
club is renewed and re-approved it will not appear in the directory.

Renew here:

{{.RenewURL}}
`,
	TemplateRenewalReminder: `Reminder: {{.ClubName}} has not been renewed

Hello,

{{.ClubName}} has not yet been renewed for the upcoming school year. If no
action is taken the club will remain hidden from the directory.

Renew here:

{{.RenewURL}}
`,
	TemplateQuestionAsked: `Someone asked a question about {{.ClubName}}

Hello,

A new question was posted on the {{.ClubName}} page:

{{.Question}}

Answer it here:

{{.ClubURL}}
`,
	TemplateMembershipRequest: `{{.Name}} wants to join {{.ClubName}}

Hello,

{{.Name}} has requested to join {{.ClubName}}. You can accept or reject the
request from your club management page:

{{.ClubURL}}
`,
}

func parseTemplates() (map[string]*template.Template, error) {
	parsed := make(map[string]*template.Template, len(templateSources))
	for name, src := range templateSources {
		tmpl, err := template.New(name).Parse(src)
		if err != nil {
			return nil, fmt.Errorf("notifications: parse template %s: %w", name, err)
		}
		parsed[name] = tmpl
	}
	return parsed, nil
}

// splitRendered separates the subject line from the body.
func splitRendered(rendered string) (subject, body string) {
	parts := strings.SplitN(rendered, "\n", 2)
	subject = strings.TrimSpace(parts[0])
	if len(parts) > 1 {
		body = strings.TrimLeft(parts[1], "\n")
	}
	return subject, body
}
