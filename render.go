// render.go is the display layer fed by the controller: a standalone HTML
// report and a plain-text summary, both built from a CanonicalResult only.
package main

import (
	"bytes"
	"fmt"
	"html"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

// Renderer paints a normalized result.
type Renderer interface {
	Render(w io.Writer, r CanonicalResult) error
}

// bucketLabels heads the P1, P2 and P3 sections in that order.
var bucketLabels = []struct {
	label string
	class string
}{
	{"🚨 Critical - Do Immediately", "high"},
	{"⚠️ Important - This Week", "medium"},
	{"📋 Monitor - Ongoing", "low"},
}

// HTMLRenderer writes a self-contained HTML report. Markdown in action text
// and in the answer to the farmer's question is converted with goldmark;
// raw HTML inside it is not passed through.
type HTMLRenderer struct {
	md  goldmark.Markdown
	now func() time.Time
}

// NewHTMLRenderer configures GFM with hard line breaks.
func NewHTMLRenderer() *HTMLRenderer {
	return &HTMLRenderer{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(gmhtml.WithHardWraps()),
		),
		now: time.Now,
	}
}

type itemView struct {
	Body      template.HTML
	Deadline  string
	Resources string
	Cost      string
	Outcome   string
}

type bucketView struct {
	Label string
	Class string
	Items []itemView
}

type emailView struct {
	State     string
	Recipient string
	Message   string
}

type reportView struct {
	Location    string
	Date        string
	HorizonDays int
	Risks       []RiskRow
	Sources     []string
	Question    string
	Answer      template.HTML
	ShowQA      bool
	Buckets     []bucketView
	Email       emailView
}

func (h *HTMLRenderer) Render(w io.Writer, r CanonicalResult) error {
	view := reportView{
		Location:    r.Location,
		Date:        h.now().Format("2006-01-02"),
		HorizonDays: r.ForecastResults.ForecastHorizonDays,
		Risks:       knownRisks(r.ForecastResults.RiskCategories),
		Sources:     r.ForecastResults.DataSources,
		Question:    r.ActionPlan.UserQuestion,
		Answer:      h.markdown(r.ActionPlan.UserQueryResponse),
		ShowQA:      r.ActionPlan.UserQuestion != "" || r.ActionPlan.UserQueryResponse != "",
		Email:       emailBox(r),
	}
	if view.Question == "" {
		view.Question = "—"
	}
	buckets := [][]ActionItem{r.ActionPlan.P1, r.ActionPlan.P2, r.ActionPlan.P3}
	for i, b := range bucketLabels {
		bv := bucketView{Label: b.label, Class: b.class}
		for _, item := range buckets[i] {
			bv.Items = append(bv.Items, h.item(item))
		}
		view.Buckets = append(view.Buckets, bv)
	}
	if err := reportTemplate.Execute(w, view); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return nil
}

func (h *HTMLRenderer) item(a ActionItem) itemView {
	v := itemView{Body: h.markdown(a.Title())}
	if rec := a.Record; rec != nil {
		v.Deadline = rec.Deadline
		v.Resources = strings.Join(rec.Resources, ", ")
		if rec.CostEstimate != "" {
			v.Cost = "₹" + rec.CostEstimate
		}
		v.Outcome = rec.ExpectedOutcome
	}
	return v
}

// markdown converts text; empty text renders as an em dash and a
// conversion failure falls back to escaped text with <br> line breaks.
func (h *HTMLRenderer) markdown(text string) template.HTML {
	if text == "" {
		return "—"
	}
	var buf bytes.Buffer
	if err := h.md.Convert([]byte(text), &buf); err != nil {
		return template.HTML(strings.ReplaceAll(html.EscapeString(text), "\n", "<br>"))
	}
	return template.HTML(buf.String())
}

func emailBox(r CanonicalResult) emailView {
	status := r.ActionPlan.EmailDeliveryStatus
	str := func(key, fallback string) string {
		if s, ok := status[key].(string); ok && s != "" {
			return s
		}
		return fallback
	}
	switch strings.ToLower(r.EmailState()) {
	case "success":
		return emailView{
			State:     "success",
			Recipient: str("EmailRecipient", "Provided Address"),
			Message:   str("Message", "Email Notification Sent Successfully"),
		}
	case "skipped":
		return emailView{State: "skipped", Message: str("Reason", "No Email Address Provided")}
	case "error":
		return emailView{
			State:   "error",
			Message: str("Message", "Unable To Send Email Notification. Please Check Your Email Address."),
		}
	}
	return emailView{}
}

var reportTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"lower": strings.ToLower,
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Forecast for {{.Location}}</title>
<style>
body{font-family:sans-serif;max-width:60rem;margin:2rem auto;padding:0 1rem}
.RiskCard{display:inline-block;border:1px solid #ccc;border-radius:6px;padding:.5rem 1rem;margin:.25rem}
.RiskCard.high{border-color:#c0392b}.RiskCard.medium{border-color:#e67e22}.RiskCard.low{border-color:#27ae60}
.DataChip{display:inline-block;background:#eef;border-radius:1rem;padding:.1rem .6rem;margin:.15rem}
.ActionMeta .meta{margin-right:.75rem;font-size:.9em;color:#555}
.InfoBox{border-radius:6px;padding:.75rem;margin-top:1rem}
.InfoBox.success{background:#e8f8ee}.InfoBox.info{background:#eef4fb}.InfoBox.error{background:#fdecea}
</style>
</head>
<body>
<header>
<h1>{{.Location}}</h1>
<p>{{.Date}} · {{.HorizonDays}} days ahead</p>
</header>
<section id="RiskOverview">
{{range .Risks}}<div class="RiskCard {{lower .Level}}">
<div class="RiskName">{{.Icon}} {{.Name}}</div>
<div class="RiskLevel">{{.Level}}</div>
<div class="RiskConfidence">Confidence: {{.Confidence}}%</div>
</div>
{{end}}</section>
<section id="DataSources">
{{range .Sources}}<span class="DataChip">✓ {{.}}</span>
{{end}}</section>
{{if .ShowQA}}<section id="QuestionAnswerBox">
<h2>Your Question</h2>
<p id="FarmerQuestion">{{.Question}}</p>
<div id="UserQueryResponse" class="markdown-content">{{.Answer}}</div>
</section>
{{end}}<section id="ActionPlan">
{{range .Buckets}}<h2>{{.Label}}</h2>
<ul>
{{$class := .Class}}{{range .Items}}<li class="ActionItem priority-{{$class}}">
<div class="markdown-content">{{.Body}}</div>
{{if or .Deadline .Resources .Cost .Outcome}}<div class="ActionMeta">
{{if .Deadline}}<span class="meta dead">🕒 {{.Deadline}}</span>{{end}}
{{if .Resources}}<span class="meta res">🔧 {{.Resources}}</span>{{end}}
{{if .Cost}}<span class="meta cost">{{.Cost}}</span>{{end}}
{{if .Outcome}}<span class="meta outcome">🎯 {{.Outcome}}</span>{{end}}
</div>{{end}}
</li>
{{else}}<li class="ActionItem">No Actions Required At This Priority Level</li>
{{end}}</ul>
{{end}}</section>
<section id="EmailStatus">
{{if eq .Email.State "success"}}<div class="InfoBox success"><strong>✅ Email Delivered</strong>
<div>Sent To: {{.Email.Recipient}}</div><div>{{.Email.Message}}</div></div>
{{else if eq .Email.State "skipped"}}<div class="InfoBox info"><strong>ℹ️ Email Skipped</strong>
<div>{{.Email.Message}}</div></div>
{{else if eq .Email.State "error"}}<div class="InfoBox error"><strong>⚠️ Email Delivery Failed</strong>
<div>{{.Email.Message}}</div></div>
{{end}}</section>
</body>
</html>
`))

// TextRenderer prints a compact terminal summary.
type TextRenderer struct{}

func (TextRenderer) Render(w io.Writer, r CanonicalResult) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Forecast for %s (%d days)\n", r.Location, r.ForecastResults.ForecastHorizonDays)
	for _, risk := range knownRisks(r.ForecastResults.RiskCategories) {
		fmt.Fprintf(&b, "  %s %-18s %-8s %g%%\n", risk.Icon, risk.Name, risk.Level, risk.Confidence)
	}
	if len(r.ForecastResults.DataSources) > 0 {
		fmt.Fprintf(&b, "Sources: %s\n", strings.Join(r.ForecastResults.DataSources, ", "))
	}
	buckets := [][]ActionItem{r.ActionPlan.P1, r.ActionPlan.P2, r.ActionPlan.P3}
	for i, bl := range bucketLabels {
		fmt.Fprintf(&b, "%s\n", bl.label)
		if len(buckets[i]) == 0 {
			b.WriteString("  - No Actions Required At This Priority Level\n")
			continue
		}
		for _, item := range buckets[i] {
			fmt.Fprintf(&b, "  - %s\n", firstLine(item.Title()))
		}
	}
	if r.ActionPlan.UserQuestion != "" {
		fmt.Fprintf(&b, "Q: %s\n", r.ActionPlan.UserQuestion)
	}
	if r.ActionPlan.UserQueryResponse != "" {
		fmt.Fprintf(&b, "A: %s\n", r.ActionPlan.UserQueryResponse)
	}
	if state := r.EmailState(); state != "" {
		fmt.Fprintf(&b, "Email: %s\n", strings.ToLower(state))
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
