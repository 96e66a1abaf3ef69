package notifications

import (
	"context"
	"fmt"
	"net/mail"
	"sort"
	"strings"
	"text/template"

	"go.uber.org/zap"
	"gorm.io/gorm"

	appmail "github.com/pennlabs/clubs/pkg/mail"
	"github.com/pennlabs/clubs/pkg/metrics"

	"github.com/pennlabs/clubs/internal/models"
)

// Dispatcher renders and sends the application's notification emails.
//
// Sending is fire-and-forget: failures are logged and counted but never
// propagated, so a mail outage cannot roll back the mutation that triggered
// the notification.
type Dispatcher struct {
	db        *gorm.DB
	mailer    appmail.Mailer
	baseURL   string
	log       *zap.Logger
	templates map[string]*template.Template
}

// NewDispatcher builds a Dispatcher with all templates parsed up front.
func NewDispatcher(db *gorm.DB, mailer appmail.Mailer, baseURL string, log *zap.Logger) (*Dispatcher, error) {
	parsed, err := parseTemplates()
	if err != nil {
		return nil, err
	}

	if log == nil {
		log = zap.NewNop()
	}

	return &Dispatcher{
		db:        db,
		mailer:    mailer,
		baseURL:   strings.TrimRight(baseURL, "/"),
		log:       log,
		templates: parsed,
	}, nil
}

// OfficerEmails returns the notification recipients for a club: the emails
// of active officers and owners plus the club's contact address when it is
// a valid email. The result is trimmed, deduplicated and sorted.
func (d *Dispatcher) OfficerEmails(ctx context.Context, club *models.Club) ([]string, error) {
	var emails []string
	err := d.db.WithContext(ctx).
		Table("memberships").
		Joins("JOIN users ON users.id = memberships.user_id").
		Where("memberships.club_id = ? AND memberships.active = ? AND memberships.role <= ?",
			club.ID, true, models.RoleOfficer).
		Pluck("users.email", &emails).Error
	if err != nil {
		return nil, err
	}

	emails = append(emails, club.Email)

	seen := make(map[string]struct{}, len(emails))
	out := make([]string, 0, len(emails))
	for _, email := range emails {
		email = strings.TrimSpace(email)
		if email == "" {
			continue
		}
		if _, err := mail.ParseAddress(email); err != nil {
			continue
		}
		if _, ok := seen[email]; ok {
			continue
		}
		seen[email] = struct{}{}
		out = append(out, email)
	}
	sort.Strings(out)
	return out, nil
}

// ClubApprovalStatus notifies a club's officers of an approval decision.
func (d *Dispatcher) ClubApprovalStatus(ctx context.Context, club *models.Club) {
	approved := club.Approved != nil && *club.Approved
	d.sendToOfficers(ctx, club, TemplateApprovalStatus, map[string]interface{}{
		"ClubName": club.Name,
		"ClubURL":  d.clubURL(club.Code),
		"Approved": approved,
		"Comment":  club.ApprovedComment,
	})
}

// MembershipInvite emails an invitation to its recipient.
func (d *Dispatcher) MembershipInvite(ctx context.Context, club *models.Club, invite *models.MembershipInvite) {
	d.send(ctx, TemplateInvite, []string{invite.Email}, map[string]interface{}{
		"ClubName":  club.Name,
		"RoleName":  models.RoleName(invite.Role),
		"InviteURL": fmt.Sprintf("%s/club/%s/invite/%s?token=%s", d.baseURL, club.Code, invite.ID, invite.Token),
	})
}

// OwnerWelcome greets the creator of a freshly registered club.
func (d *Dispatcher) OwnerWelcome(ctx context.Context, club *models.Club, owner *models.User) {
	d.send(ctx, TemplateOwnerWelcome, []string{owner.Email}, map[string]interface{}{
		"ClubName": club.Name,
		"Name":     owner.FullName(),
		"ClubURL":  d.clubURL(club.Code),
	})
}

// ClubRenewal asks a club's officers to renew it for the new school year.
func (d *Dispatcher) ClubRenewal(ctx context.Context, club *models.Club) {
	d.sendToOfficers(ctx, club, TemplateRenewal, map[string]interface{}{
		"ClubName": club.Name,
		"RenewURL": d.clubURL(club.Code) + "/renew",
	})
}

// ClubRenewalReminder nudges clubs that have not completed renewal.
func (d *Dispatcher) ClubRenewalReminder(ctx context.Context, club *models.Club) {
	d.sendToOfficers(ctx, club, TemplateRenewalReminder, map[string]interface{}{
		"ClubName": club.Name,
		"RenewURL": d.clubURL(club.Code) + "/renew",
	})
}

// QuestionAsked tells a club's officers about a new public question.
func (d *Dispatcher) QuestionAsked(ctx context.Context, club *models.Club, question *models.QuestionAnswer) {
	d.sendToOfficers(ctx, club, TemplateQuestionAsked, map[string]interface{}{
		"ClubName": club.Name,
		"Question": question.Question,
		"ClubURL":  d.clubURL(club.Code),
	})
}

// MembershipRequested tells a club's officers that someone asked to join.
func (d *Dispatcher) MembershipRequested(ctx context.Context, club *models.Club, requester *models.User) {
	d.sendToOfficers(ctx, club, TemplateMembershipRequest, map[string]interface{}{
		"ClubName": club.Name,
		"Name":     requester.FullName(),
		"ClubURL":  d.clubURL(club.Code),
	})
}

func (d *Dispatcher) sendToOfficers(ctx context.Context, club *models.Club, tmpl string, data map[string]interface{}) {
	recipients, err := d.OfficerEmails(ctx, club)
	if err != nil {
		d.log.Error("resolve recipients", zap.String("club", club.Code), zap.Error(err))
		metrics.EmailsSent.WithLabelValues(tmpl, "error").Inc()
		return
	}
	if len(recipients) == 0 {
		return
	}
	d.send(ctx, tmpl, recipients, data)
}

func (d *Dispatcher) send(ctx context.Context, tmpl string, to []string, data map[string]interface{}) {
	t, ok := d.templates[tmpl]
	if !ok {
		d.log.Error("unknown mail template", zap.String("template", tmpl))
		metrics.EmailsSent.WithLabelValues(tmpl, "error").Inc()
		return
	}

	var buf strings.Builder
	if err := t.Execute(&buf, data); err != nil {
		d.log.Error("render mail template", zap.String("template", tmpl), zap.Error(err))
		metrics.EmailsSent.WithLabelValues(tmpl, "error").Inc()
		return
	}

	if d.mailer == nil {
		d.log.Debug("mailer not configured, dropping mail", zap.String("template", tmpl))
		metrics.EmailsSent.WithLabelValues(tmpl, "dropped").Inc()
		return
	}

	subject, body := splitRendered(buf.String())
	err := d.mailer.Send(ctx, appmail.Message{
		To:      to,
		Subject: subject,
		Body:    body,
	})
	if err != nil {
		d.log.Warn("send mail",
			zap.String("template", tmpl),
			zap.Int("recipients", len(to)),
			zap.Error(err),
		)
		metrics.EmailsSent.WithLabelValues(tmpl, "error").Inc()
		return
	}

	metrics.EmailsSent.WithLabelValues(tmpl, "sent").Inc()
}

func (d *Dispatcher) clubURL(code string) string {
	return d.baseURL + "/club/" + code
}
