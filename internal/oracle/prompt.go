package oracle

import (
	"fmt"
	"strings"
)

func classificationPrompt(text, sender, platform string, rubric []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The following message was posted on %s by %s.\n\n", platform, sender)
	fmt.Fprintf(&b, "Message:\n%s\n\n", text)
	b.WriteString("Classify the contribution described in the message using exactly one of these rubric categories:\n")
	for _, r := range rubric {
		fmt.Fprintf(&b, "- %s\n", r)
	}
	b.WriteString("\nEstimate the number of tokens to provision for it under that rubric.\n")
	b.WriteString("Reply with nothing but the category and the amount separated by a semicolon, for example:\n")
	if len(rubric) > 0 {
		fmt.Fprintf(&b, "%s; 100.00\n", rubric[0])
	} else {
		b.WriteString("Category; 100.00\n")
	}
	return b.String()
}

func contributorsPrompt(text, sender, platform string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The following message was posted on %s by %s.\n\n", platform, sender)
	fmt.Fprintf(&b, "Message:\n%s\n\n", text)
	b.WriteString("List every person who made the contribution described in the message. ")
	b.WriteString("If the message names nobody else, the poster is the contributor.\n")
	b.WriteString("Reply with nothing but their handles or names separated by semicolons, for example:\n")
	b.WriteString("@alice;Bob Smith\n")
	return b.String()
}
