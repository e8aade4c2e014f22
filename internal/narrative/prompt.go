package narrative

import (
	"fmt"
	"strings"
)

const normalOpening = "It is good to know that you did not have any disease and your chest X-ray is predicted as NORMAL."

const diseaseTemplate = `You are a medical assistant.

The predicted disease is %[1]s.

Respond STRICTLY in the following structure.

SECTION 1: SUMMARY
Write ONE single paragraph of about 15 sentences explaining %[1]s.
Each sentence must end with a full stop.
Do NOT use bullet points here.

SECTION 2: COMMON SYMPTOMS
Provide bullet points.
Each bullet must be ONE sentence.
Each sentence must end with a full stop.

SECTION 3: PRECAUTIONS
Provide exactly 10 bullet points.
Each bullet must be ONE sentence.
Each sentence must end with a full stop.

SECTION 4: PREVENTION MEASURES
Provide exactly 10 bullet points.
Each bullet must be ONE sentence.
Each sentence must end with a full stop.

Rules:
- Do NOT skip any section.
- Do NOT merge sections.
- Do NOT add extra blank lines.
- Do NOT use markdown symbols.
- Use simple, patient-friendly medical language.
`

// Prompt builds the user message for disease. The normal label gets the
// precautions-only variant covering every configured disease.
func (c *Client) Prompt(disease string) string {
	if disease != c.cfg.Normal {
		return fmt.Sprintf(diseaseTemplate, disease)
	}

	var b strings.Builder
	b.WriteString("You are a medical assistant.\n\n")
	b.WriteString("Start with this exact line:\n")
	fmt.Fprintf(&b, "%q\n\n", normalOpening)
	b.WriteString("Then provide precautions in the following STRICT structure.\n\n")
	for _, d := range c.cfg.Diseases {
		fmt.Fprintf(&b, "Heading: Precautions for %s\n", d)
		b.WriteString("Provide 5 bullet points.\n")
		b.WriteString("Each bullet must be ONE sentence.\n")
		b.WriteString("Each sentence must end with a full stop.\n\n")
	}
	b.WriteString(`Rules:
- Do NOT provide any disease summary.
- Do NOT mention symptoms.
- Do NOT mention diagnosis.
- Do NOT add extra blank lines.
- Do NOT use markdown symbols.
- Use clear, patient-friendly language.
`)
	return b.String()
}
