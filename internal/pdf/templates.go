package pdf

import (
	"encoding/base64"
	"fmt"
	"html/template"
	"strings"

	"github.com/aniiishetty/event/internal/model"
)

// Documents are assembled with html/template so every registrant-supplied
// string is escaped before it reaches the browser. The original app
// interpolated raw strings into markup, which let a crafted name inject
// markup into generated documents.

const idCardTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<title>Delegate ID Card</title>
<style>
  body { font-family: Arial, sans-serif; margin: 40px; }
  .card {
    width: 420px; margin: 40px auto; padding: 24px;
    border: 2px solid #008080; border-radius: 8px; text-align: center;
  }
  .badge { font-size: 28px; font-weight: bold; color: #008080; }
  .photo { width: 140px; height: 160px; object-fit: cover; margin: 12px 0; }
  .name { font-size: 22px; font-weight: bold; margin-top: 8px; }
  .meta { font-size: 14px; color: #333; margin-top: 4px; }
</style>
</head>
<body>
  <div class="card">
    <div class="badge">DELEGATE #{{.Badge}}</div>
    {{if .PhotoURL}}<img class="photo" src="{{.PhotoURL}}" alt="photo">{{end}}
    <div class="name">{{.Name}}</div>
    <div class="meta">{{.Designation}}</div>
    {{if .CollegeName}}<div class="meta">{{.CollegeName}}</div>{{end}}
    {{if .CommitteeMember}}<div class="meta">Committee: {{.CommitteeMember}}</div>{{end}}
    <div class="meta">{{.Reason}}</div>
  </div>
</body>
</html>`

const rosterTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<title>Attendee Roster</title>
<style>
  body { font-family: Arial, sans-serif; margin: 40px; }
  h1 { text-align: center; color: #008080; }
  table { width: 100%; border-collapse: collapse; margin-top: 20px; }
  table, th, td { border: 1px solid #000; }
  th, td { padding: 6px; text-align: left; font-size: 12px; }
  img { width: 60px; height: 70px; object-fit: cover; }
</style>
</head>
<body>
  <h1>Attendee Roster</h1>
  <table>
    <tr>
      <th>#</th><th>Photo</th><th>Name</th><th>Designation</th>
      <th>College</th><th>Phone</th><th>Email</th><th>Reason</th>
    </tr>
    {{range .Rows}}
    <tr>
      <td>{{.Badge}}</td>
      <td>{{if .PhotoURL}}<img src="{{.PhotoURL}}" alt="photo">{{end}}</td>
      <td>{{.Name}}</td>
      <td>{{.Designation}}</td>
      <td>{{.CollegeName}}</td>
      <td>{{.Phone}}</td>
      <td>{{.Email}}</td>
      <td>{{.Reason}}</td>
    </tr>
    {{end}}
  </table>
</body>
</html>`

var (
	idCardTmpl = template.Must(template.New("idcard").Parse(idCardTemplate))
	rosterTmpl = template.Must(template.New("roster").Parse(rosterTemplate))
)

type cardData struct {
	Badge           string
	Name            string
	Designation     string
	CollegeName     string
	CommitteeMember string
	Phone           string
	Email           string
	Reason          string
	PhotoURL        template.URL
}

// Badge renders the event id as the zero-padded form printed on documents.
// Storage stays numeric.
func Badge(eventID int) string {
	return fmt.Sprintf("%04d", eventID)
}

func photoDataURL(photo []byte) template.URL {
	if len(photo) == 0 {
		return ""
	}
	// The URL type bypasses the template url filter, which rejects data:
	// schemes. Content is base64 of raw bytes, never a registrant string.
	return template.URL("data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(photo))
}

func cardDataFrom(reg *model.Registration) cardData {
	d := cardData{
		Badge:       Badge(reg.EventID),
		Name:        reg.Name,
		Designation: string(reg.Designation),
		CollegeName: reg.CollegeName,
		Phone:       reg.Phone,
		Email:       reg.Email,
		Reason:      reg.Reason,
		PhotoURL:    photoDataURL(reg.Photo),
	}
	if reg.CommitteeMember != nil {
		d.CommitteeMember = *reg.CommitteeMember
	}
	return d
}

func BuildIDCardHTML(reg *model.Registration) (string, error) {
	var sb strings.Builder
	if err := idCardTmpl.Execute(&sb, cardDataFrom(reg)); err != nil {
		return "", fmt.Errorf("build id card html: %w", err)
	}
	return sb.String(), nil
}

func BuildRosterHTML(regs []model.Registration) (string, error) {
	rows := make([]cardData, 0, len(regs))
	for i := range regs {
		rows = append(rows, cardDataFrom(&regs[i]))
	}

	var sb strings.Builder
	if err := rosterTmpl.Execute(&sb, struct{ Rows []cardData }{rows}); err != nil {
		return "", fmt.Errorf("build roster html: %w", err)
	}
	return sb.String(), nil
}
