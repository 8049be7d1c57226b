package summarizer

import "strings"

const (
	transcriptPlaceholder = "{transcript}"

	summaryPrompt = `You are given the full transcript of a YouTube video.
Produce a structured summary with the following sections:

1. **Overview** - A 2-3 sentence high-level summary of what the video covers.
2. **Key Takeaways** - A bulleted list of the most important points, concepts, or lessons from the video (aim for 5-10 items).
3. **Detailed Notes** - A concise but thorough breakdown of the content organized by topic or chronological section. Use sub-bullets where helpful.

Keep the language clear and concise. Focus on substance over filler.

Here is the transcript:

` + transcriptPlaceholder
)

// BuildPrompt substitutes the transcript into the fixed summary template.
func BuildPrompt(transcript string) string {
	return strings.Replace(summaryPrompt, transcriptPlaceholder, transcript, 1)
}
