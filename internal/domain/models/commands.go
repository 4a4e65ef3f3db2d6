package models

import "strings"

// CommandType enumerates the manager queries accepted over WhatsApp.
type CommandType string

const (
	CommandToday   CommandType = "hoy"
	CommandCash    CommandType = "caja"
	CommandReport  CommandType = "reporte"
	CommandHelp    CommandType = "ayuda"
	CommandUnknown CommandType = "unknown"
)

// Command represents a parsed instruction extracted from WhatsApp text.
type Command struct {
	Type CommandType
	Raw  string
	Args []string
}

// ParseCommand derives a Command instance from free-form text messages.
func ParseCommand(message string) Command {
	tokens := strings.Fields(strings.ToLower(strings.TrimSpace(message)))
	cmd := Command{Type: CommandUnknown, Raw: message}
	if len(tokens) == 0 {
		return cmd
	}

	switch head := strings.TrimPrefix(tokens[0], "/"); head {
	case string(CommandToday), "today":
		cmd.Type = CommandToday
	case string(CommandCash), "cash", "saldo":
		cmd.Type = CommandCash
	case string(CommandReport), "report":
		cmd.Type = CommandReport
	case string(CommandHelp), "help":
		cmd.Type = CommandHelp
	}

	if len(tokens) > 1 {
		cmd.Args = tokens[1:]
	}

	return cmd
}
