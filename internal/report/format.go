package report

import (
	"fmt"
	"strings"
)

// Format renders a summary as markdown-ish text for the batch CLI and the
// webhook notifier.
func Format(sum *Summary) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "*%s*\n", sum.Headline)
	fmt.Fprintf(&sb, "Demand index: %.2f (confidence %.2f)\n", sum.DemandIndex, sum.Confidence)

	if sum.Narrative != "" {
		sb.WriteString("\n")
		sb.WriteString(sum.Narrative)
		sb.WriteString("\n")
	}

	writeSection := func(title string, items []string) {
		if len(items) == 0 {
			return
		}
		fmt.Fprintf(&sb, "\n*%s*\n", title)
		for _, item := range items {
			fmt.Fprintf(&sb, "  - %s\n", item)
		}
	}

	if len(sum.RankedDemand) > 0 {
		sb.WriteString("\n*Problem areas by demand*\n")
		for _, r := range sum.RankedDemand {
			fmt.Fprintf(&sb, "  - %.2f  %s\n", r.Composite, r.Problem)
		}
	}

	writeSection("Top jobs", sum.TopJobs)
	writeSection("Top pains", sum.TopPains)
	writeSection("Qualified opportunities", sum.Opportunities)
	writeSection("Next steps", sum.NextSteps)

	return sb.String()
}
