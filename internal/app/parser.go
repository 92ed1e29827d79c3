package app

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/traingen/go-traingen/internal/repository"
)

// sectionPattern matches labelled output sections in either the plain
// "SCENARIO:" form or the markdown "## Scenario" form, case-insensitively
var sectionPattern = regexp.MustCompile(`(?im)^(?:#{1,4}\s*)?(scenario|response|answer|citations?)\s*:?\s*$|^(scenario|response|answer|citations?)\s*:\s*`)

type jsonScenario struct {
	Scenario  string          `json:"scenario"`
	Response  string          `json:"response"`
	Citations json.RawMessage `json:"citations"`
}

// parseScenario extracts a candidate from raw model output. Models vary in
// how faithfully they follow the structural contract, so parsing is tolerant:
// labelled sections, markdown headers, and a bare JSON object are all
// accepted. Citations naming unknown chunk ids are dropped.
func parseScenario(raw string, knownChunkIDs map[string]struct{}) (*repository.ScenarioCandidate, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return nil, ErrMalformedOutput
	}

	cand := parseJSONScenario(text)
	if cand == nil {
		cand = parseSectionedScenario(text)
	}
	if cand == nil || cand.PromptText == "" || cand.ResponseText == "" {
		return nil, ErrMalformedOutput
	}

	cand.RawAgentOutput = raw
	cand.CitedKnowledgeIDs = resolveCitations(cand.CitedKnowledgeIDs, knownChunkIDs)
	return cand, nil
}

// parseJSONScenario handles replies that are a JSON object, optionally inside
// a fenced code block
func parseJSONScenario(text string) *repository.ScenarioCandidate {
	body := text
	if start := strings.Index(body, "{"); start >= 0 {
		if end := strings.LastIndex(body, "}"); end > start {
			body = body[start : end+1]
		}
	}

	var parsed jsonScenario
	if err := json.Unmarshal([]byte(body), &parsed); err != nil {
		return nil
	}
	if parsed.Scenario == "" || parsed.Response == "" {
		return nil
	}

	return &repository.ScenarioCandidate{
		PromptText:        strings.TrimSpace(parsed.Scenario),
		ResponseText:      strings.TrimSpace(parsed.Response),
		CitedKnowledgeIDs: parseJSONCitations(parsed.Citations),
	}
}

// parseJSONCitations accepts either a JSON array of strings or a single
// comma-separated string
func parseJSONCitations(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}

	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return splitCitationList(single)
	}
	return nil
}

// parseSectionedScenario splits labelled output into sections and maps them
// onto a candidate
func parseSectionedScenario(text string) *repository.ScenarioCandidate {
	matches := sectionPattern.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return nil
	}

	cand := &repository.ScenarioCandidate{}
	for i, m := range matches {
		label := sectionLabel(text, m)
		start := m[1]
		end := len(text)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		body := strings.TrimSpace(text[start:end])

		switch label {
		case "scenario":
			if cand.PromptText == "" {
				cand.PromptText = body
			}
		case "response", "answer":
			if cand.ResponseText == "" {
				cand.ResponseText = body
			}
		case "citation", "citations":
			if cand.CitedKnowledgeIDs == nil {
				cand.CitedKnowledgeIDs = splitCitationList(body)
			}
		}
	}
	return cand
}

func sectionLabel(text string, match []int) string {
	for _, group := range []int{2, 4} {
		if match[group] >= 0 {
			return strings.ToLower(text[match[group]:match[group+1]])
		}
	}
	return ""
}

// splitCitationList splits a citation line on commas, newlines, and list
// bullets
func splitCitationList(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == '\n' || r == ';'
	})

	var ids []string
	for _, f := range fields {
		id := strings.Trim(strings.TrimSpace(f), "-*[] ")
		if id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// resolveCitations keeps only citations that name a known chunk id
func resolveCitations(cited []string, known map[string]struct{}) []string {
	var resolved []string
	seen := make(map[string]struct{})
	for _, id := range cited {
		if _, ok := known[id]; !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		resolved = append(resolved, id)
	}
	return resolved
}
