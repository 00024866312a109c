// ABOUTME: Transcript export to a standalone HTML file
// ABOUTME: Assistant markdown is rendered with goldmark, user text is escaped

package main

import (
	"bytes"
	"fmt"
	"html"
	"os"
	"strings"

	"github.com/yuin/goldmark"

	"github.com/yjar/chat-core/internal/api"
	"github.com/yjar/chat-core/internal/controller"
)

const exportHeader = `<!DOCTYPE html>
<html lang="de">
<head>
<meta charset="utf-8">
<title>YJAR Chat Verlauf</title>
<style>
body { font-family: sans-serif; max-width: 640px; margin: 2rem auto; }
.user { text-align: right; color: #1c3d5a; }
.assistant { text-align: left; }
.msg { margin: 0.5rem 0; padding: 0.5rem 0.75rem; border-radius: 8px; background: #f1f5f9; display: inline-block; }
</style>
</head>
<body>
<h1>YJAR Chat Verlauf</h1>
`

// exportTranscript writes the transcript as a standalone HTML page.
// Assistant answers may contain markdown; they go through goldmark.
func exportTranscript(snap controller.Snapshot, path string) error {
	if len(snap.Messages) == 0 {
		return fmt.Errorf("kein Verlauf vorhanden")
	}

	var buf strings.Builder
	buf.WriteString(exportHeader)

	for _, m := range snap.Messages {
		if m.Role == api.RoleAssistant {
			var htmlBuf bytes.Buffer
			if err := goldmark.Convert([]byte(m.Content), &htmlBuf); err != nil {
				htmlBuf.WriteString(html.EscapeString(m.Content))
			}
			buf.WriteString(`<div class="assistant"><span class="msg">` + htmlBuf.String() + "</span></div>\n")
			continue
		}
		buf.WriteString(`<div class="user"><span class="msg">` + html.EscapeString(m.Content) + "</span></div>\n")
	}

	buf.WriteString("</body>\n</html>\n")
	return os.WriteFile(path, []byte(buf.String()), 0644)
}
