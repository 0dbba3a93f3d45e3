package templates

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/crimeshield/crimeshield-api/models"
)

func reportBlock(r models.Report, baseURL string) string {
	level := html.EscapeString(r.ThreatLevel)
	where := r.Location.Address
	if where == "" {
		where = r.Location.City
	}
	desc := r.Description
	if len(desc) > 280 {
		desc = desc[:280] + "..."
	}
	return fmt.Sprintf(`<div class="report">
        <h3>%s</h3>
        <span class="badge badge-%s">%s</span> <span class="meta">%s &middot; %s &middot; %s</span>
        <p>%s</p>
        <a class="meta" href="%s/posts/%s">Open report</a>
      </div>`,
		html.EscapeString(r.Title),
		level, level,
		html.EscapeString(r.Category),
		html.EscapeString(where),
		r.CreatedAt.Time().UTC().Format("Jan 2 15:04 MST"),
		html.EscapeString(desc),
		html.EscapeString(baseURL), r.ID.Hex())
}

// RenderAlertEmail generates the HTML sent to moderators when a critical report is filed
func RenderAlertEmail(r models.Report, baseURL string) string {
	body := `<p>A new report was filed with a <strong>` + html.EscapeString(r.ThreatLevel) + `</strong> threat level.</p>` +
		reportBlock(r, baseURL) +
		`<a href="` + html.EscapeString(baseURL) + `/admin/posts" class="cta-button">Open moderation queue</a>`
	return layout("New critical report", body, baseURL)
}

// RenderDigestEmail generates the daily digest of high and critical reports
func RenderDigestEmail(reports []models.Report, since time.Time, baseURL string) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<p>%d high or critical reports since %s.</p>`, len(reports), since.UTC().Format("Jan 2 15:04 MST"))
	if len(reports) == 0 {
		b.WriteString(`<p class="meta">Nothing to review today.</p>`)
	}
	for _, r := range reports {
		b.WriteString(reportBlock(r, baseURL))
	}
	return layout("CrimeShield daily digest", b.String(), baseURL)
}

// RenderModerationEmail tells a reporter that the status of their report changed
func RenderModerationEmail(r models.Report, reason, baseURL string) string {
	body := fmt.Sprintf(`<p>The status of your report is now <strong>%s</strong>.</p>`, html.EscapeString(r.Status))
	if reason != "" {
		body += `<p><strong>Reason:</strong> ` + html.EscapeString(reason) + `</p>`
	}
	body += reportBlock(r, baseURL)
	return layout("Your report was reviewed", body, baseURL)
}
