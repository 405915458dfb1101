// Package report renders executive PDF reports from analysis, scoring,
// bias, and decision sections.
package report

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/01382253386/ai-hr-decision-platform/internal/domain"
)

type rgb struct{ r, g, b int }

var (
	darkBG    = rgb{26, 26, 46}
	blue      = rgb{79, 142, 247}
	lightBlue = rgb{232, 240, 254}
	red       = rgb{255, 75, 75}
	orange    = rgb{255, 140, 0}
	green     = rgb{0, 200, 81}
	grey      = rgb{102, 102, 102}
	lightGrey = rgb{245, 245, 245}
	darkText  = rgb{26, 26, 46}
)

func severityColor(severity string) rgb {
	switch strings.ToLower(severity) {
	case "critical", "high":
		return red
	case "medium":
		return orange
	case "low":
		return green
	}
	return grey
}

// PDFRenderer implements domain.ReportRenderer with a four page layout:
// decision summary, candidate ranking, bias analysis, risk assessment.
type PDFRenderer struct {
	// Now is swappable for deterministic output in tests.
	Now func() time.Time
}

// NewPDFRenderer constructs a PDFRenderer.
func NewPDFRenderer() *PDFRenderer { return &PDFRenderer{Now: time.Now} }

// Render produces the PDF bytes for the given sections. Nil sections are
// skipped.
func (p *PDFRenderer) Render(_ domain.Context, in domain.ReportInput) ([]byte, error) {
	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetMargins(20, 20, 20)
	doc.SetAutoPageBreak(true, 20)
	now := p.Now()
	doc.SetCreationDate(now)
	doc.SetModificationDate(now)

	p.coverPage(doc, in, now)
	p.rankingPage(doc, in.ScoringResult)
	p.biasPage(doc, in.BiasReport)
	p.riskPage(doc, in, now)

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("op=report.render: %w", err)
	}
	return buf.Bytes(), nil
}

func (p *PDFRenderer) coverPage(doc *fpdf.Fpdf, in domain.ReportInput, now time.Time) {
	doc.AddPage()
	w := contentWidth(doc)

	fill(doc, darkBG)
	text(doc, rgb{255, 255, 255})
	doc.SetFont("Helvetica", "B", 24)
	doc.CellFormat(w, 22, "AI HR DECISION PLATFORM", "", 1, "C", true, 0, "")

	text(doc, grey)
	doc.SetFont("Helvetica", "", 8)
	doc.CellFormat(w, 8, "Executive Decision Report  |  Generated: "+now.Format("02 Jan 2006, 15:04"), "", 1, "C", false, 0, "")
	doc.Ln(4)

	if d := in.Decision; d != nil {
		box := red
		if strings.Contains(strings.ToUpper(d.Verdict), "APPROVE") {
			box = green
		}
		fill(doc, box)
		text(doc, rgb{255, 255, 255})
		doc.SetFont("Helvetica", "B", 11)
		doc.CellFormat(w, 14, fmt.Sprintf("RECOMMENDED ACTION: %s / %s", d.Verdict, d.CandidateName), "", 1, "C", true, 0, "")
		doc.Ln(3)

		text(doc, darkText)
		doc.SetFont("Helvetica", "", 10)
		if d.Reasoning != "" {
			doc.MultiCell(w, 6, "Reasoning: "+d.Reasoning, "", "L", false)
		}
		if d.Recommendation != "" {
			doc.MultiCell(w, 6, "Next Step: "+d.Recommendation, "", "L", false)
		}
		doc.Ln(4)
	}

	if pa := in.ProblemAnalysis; pa != nil {
		sectionHeader(doc, "Problem Analysis")

		colW := []float64{w * 0.15, w * 0.15, w * 0.70}
		fill(doc, lightBlue)
		text(doc, darkText)
		doc.SetFont("Helvetica", "B", 9)
		doc.CellFormat(colW[0], 8, "Urgency", "1", 0, "L", true, 0, "")
		doc.CellFormat(colW[1], 8, "Type", "1", 0, "L", true, 0, "")
		doc.CellFormat(colW[2], 8, "Business Need", "1", 1, "L", true, 0, "")

		text(doc, severityColor(pa.Urgency))
		doc.CellFormat(colW[0], 8, strings.ToUpper(pa.Urgency), "1", 0, "L", false, 0, "")
		text(doc, darkText)
		doc.SetFont("Helvetica", "", 9)
		doc.CellFormat(colW[1], 8, titleCase(pa.ProblemType), "1", 0, "L", false, 0, "")
		doc.CellFormat(colW[2], 8, pa.BusinessNeed, "1", 1, "L", false, 0, "")
		doc.Ln(4)

		bulletList(doc, w, "Constraints", pa.Constraints, "- ")
		bulletList(doc, w, "Success Goals", pa.SuccessGoals, "- ")
		bulletList(doc, w, "Hidden Risks Identified", pa.HiddenRisks, "! ")
	}
}

func (p *PDFRenderer) rankingPage(doc *fpdf.Fpdf, sr *domain.ScoringResult) {
	doc.AddPage()
	w := contentWidth(doc)
	sectionHeader(doc, "Candidate Ranking")

	if sr == nil {
		text(doc, darkText)
		doc.SetFont("Helvetica", "", 10)
		doc.CellFormat(w, 8, "No scoring data provided.", "", 1, "L", false, 0, "")
		return
	}

	text(doc, darkText)
	doc.SetFont("Helvetica", "", 10)
	doc.CellFormat(w, 8, "Role Type: "+titleCase(string(sr.RoleType)), "", 1, "L", false, 0, "")
	doc.Ln(2)

	colW := []float64{w * 0.08, w * 0.22, w * 0.12, w * 0.14, w * 0.22, w * 0.22}
	fill(doc, darkBG)
	text(doc, rgb{255, 255, 255})
	doc.SetFont("Helvetica", "B", 8)
	for i, h := range []string{"Rank", "Candidate", "Score", "Confidence", "Top Strength", "Top Risk"} {
		last := 0
		if i == 5 {
			last = 1
		}
		doc.CellFormat(colW[i], 8, h, "1", last, "L", true, 0, "")
	}

	text(doc, darkText)
	doc.SetFont("Helvetica", "", 9)
	for i, c := range sr.Ranking {
		shade := i%2 == 1
		fill(doc, lightGrey)
		doc.CellFormat(colW[0], 8, fmt.Sprintf("#%d", i+1), "1", 0, "L", shade, 0, "")
		doc.CellFormat(colW[1], 8, c.Name, "1", 0, "L", shade, 0, "")
		doc.CellFormat(colW[2], 8, fmt.Sprintf("%d/100", c.Score), "1", 0, "L", shade, 0, "")
		doc.CellFormat(colW[3], 8, c.Confidence, "1", 0, "L", shade, 0, "")
		doc.CellFormat(colW[4], 8, titleCase(string(c.TopStrength)), "1", 0, "L", shade, 0, "")
		doc.CellFormat(colW[5], 8, titleCase(string(c.TopRisk)), "1", 1, "L", shade, 0, "")
	}
	doc.Ln(4)

	doc.SetFont("Helvetica", "B", 9)
	doc.CellFormat(w, 7, "Scoring Weights Used", "", 1, "L", false, 0, "")
	weights := []struct {
		name  string
		value float64
	}{
		{"Skill Match", sr.WeightsUsed.SkillMatch},
		{"Culture Fit", sr.WeightsUsed.CultureFit},
		{"Execution Speed", sr.WeightsUsed.ExecutionSpeed},
		{"Cost Efficiency", sr.WeightsUsed.CostEfficiency},
		{"Adaptability", sr.WeightsUsed.Adaptability},
	}
	cw := w / float64(len(weights))
	fill(doc, lightBlue)
	doc.SetFont("Helvetica", "B", 8)
	for i, we := range weights {
		last := 0
		if i == len(weights)-1 {
			last = 1
		}
		doc.CellFormat(cw, 7, we.name, "1", last, "C", true, 0, "")
	}
	doc.SetFont("Helvetica", "", 9)
	for i, we := range weights {
		last := 0
		if i == len(weights)-1 {
			last = 1
		}
		doc.CellFormat(cw, 7, fmt.Sprintf("%d%%", int(we.value*100)), "1", last, "C", false, 0, "")
	}

	if ba := sr.BiasAudit; ba != nil {
		doc.Ln(4)
		sectionHeader(doc, "Scoring Bias Audit")
		text(doc, darkText)
		doc.SetFont("Helvetica", "", 10)
		doc.CellFormat(w, 7, "Scoring Bias Risk: "+strings.ToUpper(ba.ScoringBiasRisk), "", 1, "L", false, 0, "")
		for _, warn := range ba.BiasWarnings {
			doc.MultiCell(w, 6, "! "+warn, "", "L", false)
		}
		if ba.Recommendation != "" {
			doc.MultiCell(w, 6, "Recommendation: "+ba.Recommendation, "", "L", false)
		}
	}
}

func (p *PDFRenderer) biasPage(doc *fpdf.Fpdf, br *domain.BiasReport) {
	doc.AddPage()
	w := contentWidth(doc)
	sectionHeader(doc, "Bias Analysis Report")

	if br == nil {
		text(doc, darkText)
		doc.SetFont("Helvetica", "", 10)
		doc.CellFormat(w, 8, "No bias analysis data provided.", "", 1, "L", false, 0, "")
		return
	}

	cw := w / 3
	fill(doc, lightBlue)
	text(doc, darkText)
	doc.SetFont("Helvetica", "B", 9)
	doc.CellFormat(cw, 8, "Overall Bias Risk", "1", 0, "L", true, 0, "")
	doc.CellFormat(cw, 8, "Bias Score", "1", 0, "L", true, 0, "")
	doc.CellFormat(cw, 8, "Compliance Risk", "1", 1, "L", true, 0, "")

	text(doc, severityColor(br.OverallBiasRisk))
	doc.CellFormat(cw, 8, strings.ToUpper(br.OverallBiasRisk), "1", 0, "L", false, 0, "")
	doc.CellFormat(cw, 8, fmt.Sprintf("%d/100", br.BiasScore), "1", 0, "L", false, 0, "")
	text(doc, severityColor(br.ComplianceRisk))
	doc.CellFormat(cw, 8, strings.ToUpper(br.ComplianceRisk), "1", 1, "L", false, 0, "")
	doc.Ln(4)

	text(doc, darkText)
	if len(br.Flags) > 0 {
		doc.SetFont("Helvetica", "B", 10)
		doc.CellFormat(w, 7, fmt.Sprintf("%d Bias Flags Detected", len(br.Flags)), "", 1, "L", false, 0, "")
		doc.SetFont("Helvetica", "", 9)
		for _, f := range br.Flags {
			fill(doc, lightGrey)
			text(doc, severityColor(f.Severity))
			doc.SetFont("Helvetica", "B", 9)
			doc.CellFormat(w, 7, fmt.Sprintf("%s / %s", f.Type, strings.ToUpper(f.Severity)), "LTR", 1, "L", true, 0, "")
			text(doc, darkText)
			doc.SetFont("Helvetica", "", 9)
			doc.MultiCell(w, 5, fmt.Sprintf("Trigger: %q\nWhy: %s\nFix: %s", f.TriggerText, f.Explanation, f.SuggestedFix), "LBR", "L", true)
			doc.Ln(2)
		}
	}

	if br.ComplianceNote != "" {
		sectionHeader(doc, "Legal / Compliance Note")
		text(doc, darkText)
		doc.SetFont("Helvetica", "", 10)
		doc.MultiCell(w, 6, br.ComplianceNote, "", "L", false)
	}
	if br.CleanSummary != "" {
		sectionHeader(doc, "Bias-Free Rewrite")
		text(doc, darkText)
		doc.SetFont("Helvetica", "", 10)
		doc.MultiCell(w, 6, br.CleanSummary, "", "L", false)
	}
}

func (p *PDFRenderer) riskPage(doc *fpdf.Fpdf, in domain.ReportInput, now time.Time) {
	doc.AddPage()
	w := contentWidth(doc)
	sectionHeader(doc, "Risk Assessment & Recommendations")

	type riskItem struct{ category, risk, severity string }
	var items []riskItem
	if in.ProblemAnalysis != nil {
		for _, r := range in.ProblemAnalysis.HiddenRisks {
			items = append(items, riskItem{"AI-Identified Risk", r, "medium"})
		}
	}
	if in.BiasReport != nil {
		for _, f := range in.BiasReport.Flags {
			items = append(items, riskItem{"Bias Risk", f.Type, f.Severity})
		}
	}

	text(doc, darkText)
	if len(items) == 0 {
		doc.SetFont("Helvetica", "", 10)
		doc.CellFormat(w, 8, "No significant risks identified.", "", 1, "L", false, 0, "")
	} else {
		colW := []float64{w * 0.22, w * 0.55, w * 0.23}
		fill(doc, darkBG)
		text(doc, rgb{255, 255, 255})
		doc.SetFont("Helvetica", "B", 9)
		doc.CellFormat(colW[0], 8, "Category", "1", 0, "L", true, 0, "")
		doc.CellFormat(colW[1], 8, "Risk", "1", 0, "L", true, 0, "")
		doc.CellFormat(colW[2], 8, "Severity", "1", 1, "L", true, 0, "")

		text(doc, darkText)
		doc.SetFont("Helvetica", "", 9)
		for i, it := range items {
			shade := i%2 == 1
			fill(doc, lightGrey)
			doc.CellFormat(colW[0], 8, it.category, "1", 0, "L", shade, 0, "")
			doc.CellFormat(colW[1], 8, it.risk, "1", 0, "L", shade, 0, "")
			doc.CellFormat(colW[2], 8, strings.ToUpper(it.severity), "1", 1, "L", shade, 0, "")
		}
	}

	doc.Ln(10)
	text(doc, grey)
	doc.SetFont("Helvetica", "", 7)
	doc.MultiCell(w, 5, "AI HR Decision Platform  |  Confidential  |  "+now.Format("02 Jan 2006")+
		"  |  This report was generated by AI and should be reviewed by a qualified HR professional.", "T", "C", false)
}

func contentWidth(doc *fpdf.Fpdf) float64 {
	pw, _ := doc.GetPageSize()
	left, _, right, _ := doc.GetMargins()
	return pw - left - right
}

func sectionHeader(doc *fpdf.Fpdf, title string) {
	text(doc, blue)
	doc.SetFont("Helvetica", "B", 13)
	doc.CellFormat(contentWidth(doc), 10, title, "B", 1, "L", false, 0, "")
	doc.Ln(2)
}

func bulletList(doc *fpdf.Fpdf, w float64, title string, items []string, marker string) {
	if len(items) == 0 {
		return
	}
	text(doc, darkText)
	doc.SetFont("Helvetica", "B", 9)
	doc.CellFormat(w, 7, title, "", 1, "L", false, 0, "")
	doc.SetFont("Helvetica", "", 9)
	for _, it := range items {
		doc.MultiCell(w, 5, marker+it, "", "L", false)
	}
	doc.Ln(2)
}

func fill(doc *fpdf.Fpdf, c rgb) { doc.SetFillColor(c.r, c.g, c.b) }
func text(doc *fpdf.Fpdf, c rgb) { doc.SetTextColor(c.r, c.g, c.b) }

// titleCase renders snake_case identifiers as display labels.
func titleCase(s string) string {
	words := strings.Fields(strings.ReplaceAll(s, "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
