package holdem

import "fmt"

// TableConfig is fixed at table creation.
type TableConfig struct {
	InitialStack int64 `json:"initial_stack"`
	SmallBlind   int64 `json:"small_blind"`
	BigBlind     int64 `json:"big_blind"`

	// bcrypt hash; empty means the table is open.
	PasswordHash string `json:"password_hash,omitempty"`
}

func (c TableConfig) Validate() error {
	if c.SmallBlind <= 0 || c.BigBlind < c.SmallBlind {
		return Validation("invalid blinds: sb=%d bb=%d", c.SmallBlind, c.BigBlind)
	}
	if c.InitialStack < c.BigBlind {
		return Validation("initial stack %d must cover the big blind %d", c.InitialStack, c.BigBlind)
	}
	return nil
}

func (c TableConfig) String() string {
	return fmt.Sprintf("%d/%d stack=%d", c.SmallBlind, c.BigBlind, c.InitialStack)
}
