package chat

import (
	"bytes"
	"strings"
)

const systemPreamble = `You are the build assistant for an application the user is creating.
Answer questions about the application conversationally.

When the user asks for a change to the application, call the queue_request
tool with a short requirement description free of implementation detail,
then confirm to the user only after the tool acknowledges the request.
Use web.search for facts you do not know and app.info for details about
the current application. Never invent an acknowledgment.`

// buildPreamble merges the fixed instructional template with the supplied
// project-context summary.
func buildPreamble(projectSummary string) string {
	var buf bytes.Buffer
	buf.WriteString(systemPreamble)
	if s := strings.TrimSpace(projectSummary); s != "" {
		buf.WriteString("\n\n[PROJECT CONTEXT]\n")
		buf.WriteString(s)
	}
	return buf.String()
}
