package agent

import (
	"regexp"
	"strings"
)

// ParseOutcome classifies one assistant reply. Parsing is total: every
// input maps to exactly one outcome and never fails.
type ParseOutcome int

const (
	// ParseNone means the reply contains neither a terminal answer nor an
	// action request.
	ParseNone ParseOutcome = iota

	// ParseTerminal means the reply is a final answer.
	ParseTerminal

	// ParseAction means the reply requests a tool invocation; Tool and
	// Argument are populated.
	ParseAction

	// ParseFailure means the reply signals an action but no well-formed
	// tool call could be extracted.
	ParseFailure
)

// String returns the outcome name for logging.
func (o ParseOutcome) String() string {
	switch o {
	case ParseTerminal:
		return "terminal"
	case ParseAction:
		return "action"
	case ParseFailure:
		return "parse-failure"
	default:
		return "none"
	}
}

// ParseResult is the tagged result of parsing one assistant reply.
type ParseResult struct {
	Outcome  ParseOutcome
	Tool     string
	Argument string
}

// answerMarkers are the tokens that mark a reply as a final answer. The
// model may reply in English or French, so both locales are recognized,
// case-insensitively.
var answerMarkers = []string{"answer", "réponse"}

// pauseMarker is the protocol token the model emits after requesting an
// action.
const pauseMarker = "PAUSE"

// actionMention detects that a reply is attempting an action, even when the
// action line itself is malformed.
var actionMention = regexp.MustCompile(`(?i)\baction\b`)

// actionLine extracts the tool name and optional argument from a line of
// the form "Action: tool_name(arg)". Surrounding whitespace, markdown bold
// markers, parentheses, and either straight quote character around the
// argument are tolerated.
var actionLine = regexp.MustCompile(`(?im)^[ \t>*-]*\**action\**\s*:\s*\**([A-Za-z_][A-Za-z0-9_]*)\**\s*(?:\(\s*(.*?)\s*\)|(\S.*?))?\s*\**\s*$`)

// Parse classifies raw assistant text as a terminal answer, an action
// request, a parse failure, or none of these.
func Parse(text string) ParseResult {
	hasPause := strings.Contains(strings.ToUpper(text), pauseMarker)
	hasAction := actionMention.MatchString(text)

	if hasPause && hasAction {
		if m := actionLine.FindStringSubmatch(text); m != nil {
			arg := m[2]
			if arg == "" {
				arg = m[3]
			}
			return ParseResult{
				Outcome:  ParseAction,
				Tool:     m[1],
				Argument: cleanArgument(arg),
			}
		}
		return ParseResult{Outcome: ParseFailure}
	}

	lower := strings.ToLower(text)
	for _, marker := range answerMarkers {
		if strings.Contains(lower, marker) {
			return ParseResult{Outcome: ParseTerminal}
		}
	}

	return ParseResult{Outcome: ParseNone}
}

// cleanArgument strips surrounding whitespace and either straight quote
// character from an extracted argument.
func cleanArgument(arg string) string {
	arg = strings.TrimSpace(arg)
	arg = strings.Trim(arg, `"'`)
	return strings.TrimSpace(arg)
}
