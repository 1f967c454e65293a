package holdem

import "fmt"

// NoSeat marks an unset seat index: a closed street's current turn, or a
// cursor scan that found nobody.
const NoSeat = -1

// Stage is the street a hand is on.
type Stage byte

const (
	StagePreflop  Stage = 1
	StageFlop     Stage = 2
	StageTurn     Stage = 3
	StageRiver    Stage = 4
	StageShowdown Stage = 5
)

var StageDictionary = map[Stage]string{
	StagePreflop:  "PREFLOP",
	StageFlop:     "FLOP",
	StageTurn:     "TURN",
	StageRiver:    "RIVER",
	StageShowdown: "SHOWDOWN",
}

func (s Stage) String() string {
	if name, ok := StageDictionary[s]; ok {
		return name
	}
	return fmt.Sprintf("Stage(%d)", byte(s))
}

// Next returns the street that follows s. Showdown has no successor.
func (s Stage) Next() (Stage, bool) {
	switch s {
	case StagePreflop:
		return StageFlop, true
	case StageFlop:
		return StageTurn, true
	case StageTurn:
		return StageRiver, true
	case StageRiver:
		return StageShowdown, true
	default:
		return s, false
	}
}

func (s Stage) MarshalText() ([]byte, error) {
	name, ok := StageDictionary[s]
	if !ok {
		return nil, fmt.Errorf("unknown stage %d", byte(s))
	}
	return []byte(name), nil
}

func (s *Stage) UnmarshalText(b []byte) error {
	for k, v := range StageDictionary {
		if v == string(b) {
			*s = k
			return nil
		}
	}
	return fmt.Errorf("unknown stage %q", string(b))
}

// TableState is the lifecycle state of a table. Transitions only move forward.
type TableState byte

const (
	TableStateLobby   TableState = 1
	TableStateInGame  TableState = 2
	TableStateSummary TableState = 3
)

var TableStateDictionary = map[TableState]string{
	TableStateLobby:   "LOBBY",
	TableStateInGame:  "IN_GAME",
	TableStateSummary: "SUMMARY",
}

func (s TableState) String() string {
	if name, ok := TableStateDictionary[s]; ok {
		return name
	}
	return fmt.Sprintf("TableState(%d)", byte(s))
}

func (s TableState) MarshalText() ([]byte, error) {
	name, ok := TableStateDictionary[s]
	if !ok {
		return nil, fmt.Errorf("unknown table state %d", byte(s))
	}
	return []byte(name), nil
}

func (s *TableState) UnmarshalText(b []byte) error {
	for k, v := range TableStateDictionary {
		if v == string(b) {
			*s = k
			return nil
		}
	}
	return fmt.Errorf("unknown table state %q", string(b))
}

// ActionType 动作类型：CHECK / CALL / BET（含 RAISE）/ FOLD
type ActionType byte

const (
	ActionCheck ActionType = 1
	ActionCall  ActionType = 2
	ActionBet   ActionType = 3
	ActionFold  ActionType = 4
)

var ActionTypeDictionary = map[ActionType]string{
	ActionCheck: "CHECK",
	ActionCall:  "CALL",
	ActionBet:   "BET",
	ActionFold:  "FOLD",
}

func (a ActionType) String() string {
	if name, ok := ActionTypeDictionary[a]; ok {
		return name
	}
	return fmt.Sprintf("ActionType(%d)", byte(a))
}

// ParseActionType accepts the wire names; RAISE is an alias of BET.
func ParseActionType(s string) (ActionType, error) {
	if s == "RAISE" {
		return ActionBet, nil
	}
	for k, v := range ActionTypeDictionary {
		if v == s {
			return k, nil
		}
	}
	return 0, IllegalAction("unsupported action %q", s)
}

func (a ActionType) MarshalText() ([]byte, error) {
	name, ok := ActionTypeDictionary[a]
	if !ok {
		return nil, fmt.Errorf("unknown action %d", byte(a))
	}
	return []byte(name), nil
}

func (a *ActionType) UnmarshalText(b []byte) error {
	v, err := ParseActionType(string(b))
	if err != nil {
		return err
	}
	*a = v
	return nil
}
