package anthropic

import (
	"fmt"
	"strings"

	"github.com/praktika-app/praktika/internal/ai"
)

const systemPrompt = `You are an experienced Indonesian university laboratory assistant who writes formal practicum reports (laporan praktikum). You write in Bahasa Indonesia using standard academic register, and you never invent data the student did not provide.`

// buildReportPrompt assembles the generation prompt from the student's notes
func buildReportPrompt(params ai.GenerateReportParams) string {
	var b strings.Builder

	b.WriteString(`Write a complete practicum report from the student's notes below.

The report must contain these sections, in order:
1. **Tujuan** - restate the objective formally
2. **Dasar Teori** - brief theoretical background relevant to the practicum
3. **Alat dan Bahan** - equipment and materials, inferred from the procedure
4. **Prosedur Kerja** - the procedure as numbered steps
5. **Hasil Pengamatan** - the observations, organized into tables where the data allows
6. **Pembahasan** - analysis of the results against the theory, including likely sources of error
7. **Kesimpulan** - conclusions that answer the stated objective

**Important Guidelines:**
- Base Hasil Pengamatan and Pembahasan strictly on the observations given
- If the notes are too thin for a section, keep that section short rather than fabricating detail
- Use markdown formatting inside section bodies (tables, numbered lists, bold)
- Write section bodies in Bahasa Indonesia

`)

	fmt.Fprintf(&b, "**Judul Praktikum:** %s\n", params.Title)
	if params.Course != "" {
		fmt.Fprintf(&b, "**Mata Kuliah:** %s\n", params.Course)
	}
	fmt.Fprintf(&b, "\n**Tujuan (dari mahasiswa):**\n%s\n", params.Objective)
	if params.Methods != "" {
		fmt.Fprintf(&b, "\n**Prosedur (dari mahasiswa):**\n%s\n", params.Methods)
	}
	fmt.Fprintf(&b, "\n**Data dan Pengamatan (dari mahasiswa):**\n%s\n", params.Observations)

	b.WriteString(`
**Response Format:**
Return your report as a JSON object with this exact structure:

{
  "sections": [
    {
      "heading": "Tujuan",
      "body": "Markdown body of the section"
    }
  ],
  "summary": "One-paragraph abstract of the whole report, in Bahasa Indonesia"
}

**Important:** Return ONLY the JSON object, no additional text or explanation.`)

	return b.String()
}
