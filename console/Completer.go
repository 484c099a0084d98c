package console

import (
	"strconv"

	"github.com/c-bata/go-prompt"
)

// Helpers that produce completion candidates. Called from the
// GetCandidatesFunc entries in CommandTable.go and from the completer in
// ConsoleProcess.go.

// getSensorCandidates returns the sensors from the last repository walk.
func getSensorCandidates(dir *SensorDirectory) []prompt.Suggest {
	entries := dir.Entries()
	suggests := make([]prompt.Suggest, 0, len(entries))
	for _, entry := range entries {
		if entry.Full == nil {
			continue
		}
		suggests = append(suggests, prompt.Suggest{
			Text:        strconv.Itoa(int(entry.Full.SensorNumber)),
			Description: entry.Full.Name,
		})
	}
	return suggests
}

// getThresholdNameCandidates returns the threshold names of the threshold
// command, in the value block order.
func getThresholdNameCandidates() []prompt.Suggest {
	return []prompt.Suggest{
		{Text: "lnc", Description: "lower non-critical"},
		{Text: "lc", Description: "lower critical"},
		{Text: "unc", Description: "upper non-critical"},
		{Text: "uc", Description: "upper critical"},
	}
}

// getCommandNameCandidates returns every command name and alias with its
// summary.
func getCommandNameCandidates() []prompt.Suggest {
	suggests := make([]prompt.Suggest, 0, len(CommandTable))
	for _, cmdDef := range CommandTable {
		suggests = append(suggests, prompt.Suggest{
			Text:        cmdDef.Name,
			Description: cmdDef.Summary,
		})
		for _, alias := range cmdDef.Aliases {
			suggests = append(suggests, prompt.Suggest{
				Text:        alias,
				Description: cmdDef.Summary,
			})
		}
	}
	return suggests
}

// splitWords splits an input line into words. Used together with
// Document.GetWordBeforeCursor and Document.TextBeforeCursor from go-prompt.
func splitWords(line string) []string {
	if line == "" {
		return []string{}
	}

	words := make([]string, 0)
	var word string
	inQuote := false
	lastWasSpace := true // treat the start of line as after a space

	for _, r := range line {
		switch r {
		case ' ', '\t':
			if !inQuote {
				if !lastWasSpace && word != "" {
					words = append(words, word)
					word = ""
				}
				lastWasSpace = true
			} else { // inside quotes a space belongs to the word
				word += string(r)
				lastWasSpace = false
			}
		case '"', '\'':
			inQuote = !inQuote
			lastWasSpace = false
		default:
			word += string(r)
			lastWasSpace = false
		}
	}

	if word != "" {
		words = append(words, word)
	}

	// a trailing space opens a new, still empty word
	if lastWasSpace {
		words = append(words, "")
	}

	return words
}
