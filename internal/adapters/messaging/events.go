package messaging

import (
	"encoding/json"
	"errors"
	"fmt"
)

// CommandType тип управляющей команды воркера
type CommandType = string

const (
	RunImportCommand       CommandType = "run_import"
	EnableScheduleCommand  CommandType = "enable_schedule"
	DisableScheduleCommand CommandType = "disable_schedule"
)

// Command управляющая команда, получаемая из топика команд
type Command struct {
	CommandType CommandType     `json:"command_type"`
	Payload     json.RawMessage `json:"payload,omitempty"`
}

// ParseCommand разбирает тело сообщения с командой
func ParseCommand(data []byte) (*Command, error) {
	var cmd Command
	if err := json.Unmarshal(data, &cmd); err != nil {
		return nil, fmt.Errorf("ошибка разбора команды: %w", err)
	}
	if cmd.CommandType == "" {
		return nil, errors.New("не указан тип команды")
	}
	return &cmd, nil
}

// NewCommand собирает тело сообщения с командой
func NewCommand(commandType CommandType) ([]byte, error) {
	return json.Marshal(Command{CommandType: commandType})
}
