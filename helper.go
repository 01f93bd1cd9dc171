package orm

import (
	"strings"
)

// LikeEscapeClause goes right after a LIKE whose pattern came from
// ContainsPattern.
const LikeEscapeClause = ` ESCAPE '\'`

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// EscapeLike escapes the LIKE metacharacters in s, so it only ever matches
// itself.
func EscapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// ContainsPattern is the LIKE pattern for "contains s, ignoring case". It is
// meant to be compared against LOWER(column).
func ContainsPattern(s string) string {
	return "%" + EscapeLike(strings.ToLower(s)) + "%"
}

// Convert the content of a .sql script into individual statements.
// Input is the lines of the script, output is one string per statement,
// without the trailing ';' and with '--' comments removed.
func ConvertSQLCommands(lines []string) []string {
	var commands []string
	var currentCommand strings.Builder

	for _, line := range lines {
		if commentIndex := strings.Index(line, "--"); commentIndex != -1 {
			line = line[:commentIndex]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		currentCommand.WriteString(line)
		currentCommand.WriteString(" ")

		if strings.Contains(line, ";") {
			parts := strings.Split(currentCommand.String(), ";")
			for _, part := range parts[:len(parts)-1] {
				if command := strings.TrimSpace(part); command != "" {
					commands = append(commands, command)
				}
			}
			currentCommand.Reset()
			currentCommand.WriteString(parts[len(parts)-1])
		}
	}

	if command := strings.TrimSpace(currentCommand.String()); command != "" {
		commands = append(commands, command)
	}
	return commands
}
