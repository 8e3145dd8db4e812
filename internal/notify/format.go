package notify

import (
	"fmt"
	"strings"

	"github.com/hamed0406/healthalert/internal/domain"
	"github.com/hamed0406/healthalert/internal/eventbuilder"
)

// Title is a one-line headline, e.g. "[CRITICAL] healthCheck.web (prod)".
func Title(eventName string, ev domain.Event) string {
	t := fmt.Sprintf("[%s] %s", strings.ToUpper(ev.Level), eventName)
	if ev.Info.Site != "" {
		t += " (" + ev.Info.Site + ")"
	}
	return t
}

// Text describes the matched threshold and the per-subgroup counts. A
// summary built by the summary event builder is reused when present.
func Text(ev domain.Event) string {
	var b strings.Builder
	if m := ev.Info.MatchedThreshold; m != nil {
		fmt.Fprintf(&b, "threshold %s breached", m.Type)
		if st, ok := m.Detail["status"]; ok {
			fmt.Fprintf(&b, ": %v count=%v limit=%v", st, m.Detail["count"], m.Detail["limit"])
		}
		b.WriteString("\n")
	}
	if s, ok := ev.Info.Extra["summary"].(string); ok && s != "" {
		b.WriteString(s)
	} else {
		b.WriteString(eventbuilder.Summarize(ev.Info.ServerSetCounts))
	}
	return b.String()
}
