package gemini

import (
	"fmt"
	"strings"
)

const systemInstruction = `You review community crime reports and news articles.
Answer with a single JSON object and nothing else, using exactly these keys:
"summary" (one or two sentences), "category" (one of theft, assault, vandalism, fraud,
burglary, harassment, drug, cybercrime, traffic, other), "threatLevel" (one of low,
medium, high, critical), "isCrimeRelated" (boolean), "confidence" (0 to 1),
"tags" (up to five short lowercase keywords), "language" (ISO 639-1 code of the text).
When images are attached, use them as additional evidence.`

func buildPrompt(title, description string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Title: %s\n", strings.TrimSpace(title))
	fmt.Fprintf(&sb, "Description: %s\n", strings.TrimSpace(description))
	return sb.String()
}
