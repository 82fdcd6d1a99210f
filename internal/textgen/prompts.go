package textgen

import (
	"strings"
	"text/template"
)

var treatmentPrompt = template.Must(template.New("treatment").Parse(
	`You are an expert agricultural advisor. A farmer has detected the following disease in their crops: {{.Disease}}.

Provide detailed treatment guidance for this disease. The response should be in Markdown format.
Use bullet points for actionable steps. Use bold for important terms.

Focus on treatments that are easily accessible and environmentally friendly where possible.

Example format:
**Initial Actions:**
- First action item.
- Second action item.

**Ongoing Management:**
- First ongoing action.
- Second ongoing action.

DO NOT include any disclaimers or introductory/concluding statements.
DO NOT ask for additional information.`))

var diseaseInfoPrompt = template.Must(template.New("disease_info").Parse(
	`Provide information for the following plant disease: {{.Disease}}.

- The description should be a single, concise paragraph.
- Provide at least 3-4 common symptoms as a list.
- The cause should be a single, concise paragraph.

Do not include any introductory or concluding text.`))

type promptInput struct {
	Disease string
}

func render(tmpl *template.Template, disease string) (string, error) {
	var b strings.Builder
	if err := tmpl.Execute(&b, promptInput{Disease: disease}); err != nil {
		return "", err
	}
	return b.String(), nil
}
