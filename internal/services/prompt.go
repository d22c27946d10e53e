package services

import (
	"fmt"
	"strings"
)

const (
	RecruiterSystemMessage  = "You are a professional recruiter."
	ExtractorSystemMessage  = "You are an expert recruiter specializing in job matching. You answer with valid JSON only."
	scoringScaleDescription = "0 - Not Met\n1 - Somewhat Met\n2 - Strongly Met"
)

type PromptBuilder struct{}

func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{}
}

// BuildResumeExtractionPrompt asks for the résumé fields the graph is built from.
func (pb *PromptBuilder) BuildResumeExtractionPrompt(resumeText string) string {
	return fmt.Sprintf(`Your task is to extract structured information from a candidate's resume.

RESUME:
---
%s
---

Extract the following fields:

0. full_name: The candidate's full name as written in the resume. Do not infer it from an email or username. If it is not stated, use "Unknown".
1. experience: A list of job experiences, each with:
   - company: Company name.
   - position: Job title.
   - duration: Time period of employment.
   - description: Brief description of key responsibilities or achievements.
2. education: A list of educational qualifications, each with:
   - school: Institution name.
   - major: Field of study.
   - degree: Degree obtained.
   - duration: Time period of study.
3. technical_skills:
   - programming_languages: Programming languages the candidate is proficient in (e.g. Python, Java).
   - frameworks: Tools or frameworks the candidate has used (e.g. React, Django, TensorFlow).
   - skills: Other technical skills (e.g. Data Engineering, Machine Learning).
4. key_accomplishments: 1-3 major achievements in the candidate's career.

Guidelines:
- Return valid JSON only, with no introduction and no explanation.
- Use null or an empty array [] for anything not mentioned.
- Do not fabricate information that is not stated in the resume.
- Keep the field names exactly as specified.
- Answer in English even when the resume is written in another language.`, resumeText)
}

// BuildJobExtractionPrompt asks for the job description fields used for scoring.
func (pb *PromptBuilder) BuildJobExtractionPrompt(jobText string) string {
	return fmt.Sprintf(`Your task is to extract structured information from a job description.

JOB DESCRIPTION:
---
%s
---

Extract the following fields:

- title: Job title.
- company: Hiring company.
- location: Work location.
- required_qualifications: List of mandatory qualifications, one requirement per entry.
- preferred_qualifications: List of nice-to-have qualifications, one requirement per entry.
- description: Short summary of the role.
- experience_level: Seniority or years of experience expected.
- employment_type: Full-time, part-time, contract, etc.

Guidelines:
- Return valid JSON only, with no introduction and no explanation.
- Use null or an empty array [] for anything not mentioned.
- Do not fabricate information that is not stated in the job description.
- Keep the field names exactly as specified.
- Answer in English.`, jobText)
}

// BuildScoringPrompt enumerates exactly the qualifications to score. When job
// is nil or lists none, the model is asked to derive them from jobText.
func (pb *PromptBuilder) BuildScoringPrompt(resumeText, jobText string, job *JobRecord) string {
	var b strings.Builder

	b.WriteString("You are a professional recruiter tasked with evaluating how well a candidate's resume matches the qualifications for a job.\n\n")

	if job.HasQualifications() {
		if job.Title != "" {
			fmt.Fprintf(&b, "JOB TITLE: %s\n", job.Title)
		}
		if job.Description != "" {
			fmt.Fprintf(&b, "JOB SUMMARY: %s\n", job.Description)
		}
	} else {
		fmt.Fprintf(&b, "JOB DESCRIPTION: %s\n", jobText)
	}

	fmt.Fprintf(&b, "\nCANDIDATE'S RESUME:\n%s\n\n", resumeText)
	fmt.Fprintf(&b, "Score each qualification on this scale:\n%s\n\n", scoringScaleDescription)

	if job.HasQualifications() {
		b.WriteString("Please evaluate ONLY the following qualifications, and return your response in JSON format with explanations for each score:\n\n")
		writeQualifications(&b, "REQUIRED QUALIFICATIONS", job.RequiredQualifications)
		writeQualifications(&b, "PREFERRED QUALIFICATIONS", job.PreferredQualifications)
	} else {
		b.WriteString("Identify the required and preferred qualifications stated in the job description, then score each of them. Do not add qualifications the job description does not state.\n\n")
	}

	b.WriteString(`Format your response as valid JSON with this structure:
{
  "requiredScores": [ { "qualification": "...", "score": 0, "explanation": "..." } ],
  "preferredScores": [ { "qualification": "...", "score": 0, "explanation": "..." } ],
  "overallFeedback": "..."
}`)

	return b.String()
}

func writeQualifications(b *strings.Builder, heading string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "%s:\n", heading)
	for i, item := range items {
		fmt.Fprintf(b, "%d. %s\n", i+1, item)
	}
	b.WriteString("\n")
}
