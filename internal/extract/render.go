package extract

import (
	"fmt"
	"strings"

	"github.com/joblens/matcher/internal/models"
	"github.com/joblens/matcher/internal/textnorm"
)

// RenderAttributes renders a structured record as labeled lines, the richer
// document form for embedding and reranking: it surfaces the salient
// attributes the models would otherwise have to dig out of noisy prose.
// Returns "" for failure markers, which callers treat as "fall back to plain
// text".
func RenderAttributes(a *models.VacancyAttributes) string {
	if a.Failed() {
		return ""
	}

	lines := []string{
		"Job title: " + a.JobTitle,
		"Occupation: " + a.Occupation,
		"Skills: " + strings.Join(a.Skills, ", "),
		"Work type: " + a.WorkType,
		"Seniority: " + a.Seniority,
		"Contact info: " + a.ContactInfo,
		"Location: " + a.Location,
		"Salary: " + a.Salary,
		"Employment type: " + a.EmploymentType,
	}

	return strings.Join(lines, "\n")
}

// DocumentText is the single place deciding how a vacancy is rendered as a
// document: structured rendering when extraction succeeded, plain normalized
// text otherwise. Raw HTML-bearing content is never the answer.
func DocumentText(content string, attrs *models.VacancyAttributes) string {
	if rendered := RenderAttributes(attrs); rendered != "" {
		return rendered
	}

	return textnorm.Document(content)
}

// Prompt builds the extraction prompt for a vacancy. The schema mirrors
// VacancyAttributes; the model is told to answer with bare JSON, though
// ParseAttributes copes when it does not.
func Prompt(vacancyText string) string {
	return fmt.Sprintf(promptTemplate, strings.TrimSpace(vacancyText))
}

const promptTemplate = `Extract structured data from the job posting below.
Return JSON strictly following this schema:
{
  "job_title": "",
  "occupation": "",
  "skills": [],
  "work_type": "",
  "seniority": "",
  "contact_info": "",
  "location": "",
  "salary": "",
  "employment_type": ""
}

Rules:
- occupation = profession category (IT, Sales, Logistics, Manual labor, etc.)
- If a field is not mentioned, use ""
- skills = list of technologies or skills
- salary = the offered salary
- employment_type = full-time, part-time, remote, or hybrid
- contact_info = contact details (email, phone, skype, telegram)
- location = city and country
- Return only JSON, no surrounding text

Job posting text:
"""
%s
"""
`
