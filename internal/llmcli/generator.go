// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llmcli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
)

// phrasePromptTmpl asks for search phrases as a JSON array of strings.
var phrasePromptTmpl = template.Must(template.New("phrases").Parse(`You are helping build a literature search for the research topic below.

Return exactly {{.Count}} short search phrases (2-6 words each) that would
find primary research papers on this topic. Do not include the words
"review", "survey", "overview" or "tutorial". Use plain ASCII.

Respond with only a JSON array of strings, no other text.

Topic: {{.Topic}}
`))

// CommandGenerator produces search phrases by running an external command.
type CommandGenerator struct {
	Cmd Command
}

// Generate renders the phrase prompt, runs the command once, and parses
// the phrases it prints. A JSON array is preferred; otherwise every
// non-empty output line is one phrase.
func (g *CommandGenerator) Generate(ctx context.Context, topic string, count int) ([]string, error) {
	var buf bytes.Buffer
	if err := phrasePromptTmpl.Execute(&buf, struct {
		Topic string
		Count int
	}{Topic: topic, Count: count}); err != nil {
		return nil, fmt.Errorf("rendering prompt: %w", err)
	}

	out, err := g.Cmd.run(ctx, buf.String())
	if err != nil {
		return nil, err
	}
	phrases := parsePhrases(out)
	if len(phrases) == 0 {
		return nil, fmt.Errorf("%s returned no phrases", g.Cmd.Name)
	}
	return phrases, nil
}

func parsePhrases(out []byte) []string {
	if raw, ok := extractJSON(out, '[', ']'); ok {
		var arr []string
		if err := json.Unmarshal(raw, &arr); err == nil {
			return trimAll(arr)
		}
	}
	var lines []string
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "```") {
			continue
		}
		lines = append(lines, stripBullet(line))
	}
	return trimAll(lines)
}

// stripBullet removes list markers such as "- ", "* " or "3. ".
func stripBullet(line string) string {
	line = strings.TrimLeft(line, "-*• ")
	if i := strings.IndexAny(line, ".)"); i > 0 && i <= 3 {
		digits := true
		for _, r := range line[:i] {
			if r < '0' || r > '9' {
				digits = false
				break
			}
		}
		if digits {
			line = line[i+1:]
		}
	}
	return strings.Trim(strings.TrimSpace(line), `"`)
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
