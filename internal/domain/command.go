package domain

// CommandType names a mutation a client may request.
type CommandType string

const (
	CmdLoadQuiz     CommandType = "load_quiz"
	CmdLoadDocument CommandType = "load_document"
	CmdReset        CommandType = "reset"
	CmdStart        CommandType = "start"
	CmdReveal       CommandType = "reveal"
	CmdResume       CommandType = "resume"
	CmdFinish       CommandType = "finish"
	CmdSetPhase     CommandType = "set_phase"
	CmdAdvance      CommandType = "advance"
	CmdRetreat      CommandType = "retreat"
	CmdJump         CommandType = "jump"
	CmdAddTeam      CommandType = "add_team"
	CmdRemoveTeam   CommandType = "remove_team"
	CmdUpdateTeam   CommandType = "update_team"
	CmdSetScore     CommandType = "set_score"
	CmdAddStreak    CommandType = "add_streak"
	CmdResetStreak  CommandType = "reset_streak"
	CmdScoreTeam    CommandType = "score_team"
	CmdScoreLocked  CommandType = "score_locked"
	CmdBuzz         CommandType = "buzz"
	CmdLock         CommandType = "lock"
	CmdResetRound   CommandType = "reset_round"
	CmdStartTimer   CommandType = "start_timer"
	CmdStopTimer    CommandType = "stop_timer"
	CmdToggle       CommandType = "toggle_setting"
	CmdSetSetting   CommandType = "set_setting"
)

// PlayerAllowed reports whether a non-host connection may send the command.
func (t CommandType) PlayerAllowed() bool {
	return t == CmdBuzz || t == CmdLock
}

// Persistent reports whether an accepted command of this type can change
// the restartable subset of State.
func (t CommandType) Persistent() bool {
	switch t {
	case CmdLoadQuiz, CmdLoadDocument, CmdReset, CmdAddTeam, CmdRemoveTeam, CmdUpdateTeam,
		CmdSetScore, CmdAddStreak, CmdResetStreak, CmdScoreTeam, CmdScoreLocked, CmdToggle, CmdSetSetting:
		return true
	}
	return false
}

// Command is the wire form of a session mutation. Only the fields relevant
// to Type are read.
type Command struct {
	Type       CommandType `json:"type"`
	QuizID     string      `json:"quizId,omitempty"`
	Document   string      `json:"document,omitempty"`
	ShareToken string      `json:"shareToken,omitempty"`
	Phase      Phase       `json:"phase,omitempty"`
	Round      int         `json:"round,omitempty"`
	Question   int         `json:"question,omitempty"`
	TeamID     string      `json:"teamId,omitempty"`
	Name       string      `json:"name,omitempty"`
	Color      string      `json:"color,omitempty"`
	Score      int         `json:"score,omitempty"`
	Correct    bool        `json:"correct,omitempty"`
	Answer     *Answer     `json:"answer,omitempty"`
	Setting    Setting     `json:"setting,omitempty"`
	Value      any         `json:"value,omitempty"`
}

// Role is the self-declared capacity of a connection.
type Role string

const (
	RoleHost   Role = "host"
	RolePlayer Role = "player"
)

// Actor identifies who sent a command.
type Actor struct {
	Role   Role
	TeamID string
}

// Authorize checks cmd against the actor's role. Players are limited to
// buzzing and locking for their own team; the team id is forced to theirs.
func (a Actor) Authorize(cmd Command) (Command, error) {
	if a.Role != RolePlayer {
		return cmd, nil
	}
	if !cmd.Type.PlayerAllowed() {
		return cmd, ErrForbidden
	}
	if a.TeamID == "" {
		return cmd, ErrTeamNotFound
	}
	cmd.TeamID = a.TeamID
	return cmd, nil
}
