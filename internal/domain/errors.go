package domain

import "errors"

var (
	// ErrSessionNotFound is returned when no session exists for a room code.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrQuizNotFound indicates the quiz document could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrTeamNotFound is returned when a player names a team that does not exist.
	ErrTeamNotFound = errors.New("team not found")
	// ErrEmptyTeamName is returned by AddTeam and UpdateTeam for blank names.
	ErrEmptyTeamName = errors.New("team name must not be empty")
	// ErrUnknownSetting is returned when a setting name is not recognized.
	ErrUnknownSetting = errors.New("unknown setting")
	// ErrInvalidSettingValue is returned when a setting value has the wrong type.
	ErrInvalidSettingValue = errors.New("invalid setting value")
	// ErrUnknownCommand is returned for command types the engine does not handle.
	ErrUnknownCommand = errors.New("unknown command")
	// ErrForbidden is returned when a player sends a host-only command.
	ErrForbidden = errors.New("command not permitted for this role")
	// ErrSnapshotNotFound is returned by snapshot stores when nothing was saved under a key.
	ErrSnapshotNotFound = errors.New("snapshot not found")
)
