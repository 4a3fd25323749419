package research

import (
	"fmt"
	"strings"
)

// Markdown renders the report for display and for the session's report
// artifact.
func (r *Report) Markdown() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# Research Report: %s\n\n", r.Topic)
	fmt.Fprintf(&sb, "*Generated: %s*\n\n", r.GeneratedAt.Format("2006-01-02 15:04 UTC"))

	sb.WriteString("## Executive Summary\n\n")
	sb.WriteString(r.ExecutiveSummary)
	sb.WriteString("\n\n")

	if len(r.Findings) > 0 {
		sb.WriteString("## Key Findings\n\n")
		for i, f := range r.Findings {
			fmt.Fprintf(&sb, "### %d. %s\n\n", i+1, f.KeyPoint)
			fmt.Fprintf(&sb, "**Confidence:** %.0f%%\n\n", f.Confidence*100)
			for _, e := range f.Evidence {
				fmt.Fprintf(&sb, "- %s\n", e)
			}
			if len(f.Evidence) > 0 {
				sb.WriteString("\n")
			}
			if len(f.Sources) > 0 {
				sb.WriteString("**Sources:**\n")
				for _, s := range f.Sources {
					fmt.Fprintf(&sb, "- <%s>\n", s)
				}
				sb.WriteString("\n")
			}
		}
	}

	if r.Methodology != "" {
		sb.WriteString("## Methodology\n\n")
		sb.WriteString(r.Methodology)
		sb.WriteString("\n\n")
	}

	if len(r.Limitations) > 0 {
		sb.WriteString("## Limitations\n\n")
		for _, l := range r.Limitations {
			fmt.Fprintf(&sb, "- %s\n", l)
		}
		sb.WriteString("\n")
	}

	if len(r.Recommendations) > 0 {
		sb.WriteString("## Recommendations for Further Research\n\n")
		for _, rec := range r.Recommendations {
			fmt.Fprintf(&sb, "- %s\n", rec)
		}
		sb.WriteString("\n")
	}

	if sources := r.AllSources(); len(sources) > 0 {
		sb.WriteString("## All Sources\n\n")
		for i, s := range sources {
			fmt.Fprintf(&sb, "%d. <%s>\n", i+1, s)
		}
	}

	return strings.TrimRight(sb.String(), "\n") + "\n"
}
