package holdem

import (
	"maps"
	"slices"
	"time"
)

// Hand is one deal at a table. Seat fields are seat indices; money maps are
// keyed by player id.
type Hand struct {
	Number int   `json:"number"`
	Stage  Stage `json:"stage"`

	Dealer      int `json:"dealer"`
	SmallBlind  int `json:"small_blind"`
	BigBlind    int `json:"big_blind"`
	FirstToAct  int `json:"first_to_act"`
	CurrentTurn int `json:"current_turn"`

	Pot        int64            `json:"pot"`
	CurrentBet int64            `json:"current_bet"`
	RoundBets  map[string]int64 `json:"round_bets"`
	TotalBets  map[string]int64 `json:"total_bets"`
	AllIn      map[string]bool  `json:"all_in"`

	LastAggressor int `json:"last_aggressor"`
	// Aggressed is set once somebody bets or raises on the current street.
	// Posting blinds does not count.
	Aggressed bool `json:"aggressed"`

	VotingOpen  bool        `json:"voting_open"`
	Winners     []string    `json:"winners"`
	Pots        []PotResult `json:"pots,omitempty"`
	ConfirmedAt *time.Time  `json:"confirmed_at,omitempty"`

	// StartingChips is sum(stack) of every seated player before blinds.
	StartingChips int64     `json:"starting_chips"`
	StartedAt     time.Time `json:"started_at"`
}

func newHand(number int, now time.Time) *Hand {
	return &Hand{
		Number:        number,
		Stage:         StagePreflop,
		CurrentTurn:   NoSeat,
		FirstToAct:    NoSeat,
		LastAggressor: NoSeat,
		RoundBets:     make(map[string]int64),
		TotalBets:     make(map[string]int64),
		AllIn:         make(map[string]bool),
		StartedAt:     now,
	}
}

func (h *Hand) Clone() *Hand {
	if h == nil {
		return nil
	}
	cp := *h
	cp.RoundBets = maps.Clone(h.RoundBets)
	cp.TotalBets = maps.Clone(h.TotalBets)
	cp.AllIn = maps.Clone(h.AllIn)
	cp.Winners = slices.Clone(h.Winners)
	if h.Pots != nil {
		cp.Pots = make([]PotResult, len(h.Pots))
		for i, p := range h.Pots {
			cp.Pots[i] = p.clone()
		}
	}
	if h.ConfirmedAt != nil {
		at := *h.ConfirmedAt
		cp.ConfirmedAt = &at
	}
	return &cp
}

// ensureMaps repairs maps dropped by a JSON round trip of an empty hand.
func (h *Hand) ensureMaps() {
	if h.RoundBets == nil {
		h.RoundBets = make(map[string]int64)
	}
	if h.TotalBets == nil {
		h.TotalBets = make(map[string]int64)
	}
	if h.AllIn == nil {
		h.AllIn = make(map[string]bool)
	}
}

// Settled reports whether chips have been paid out and the hand is final.
func (h *Hand) Settled() bool {
	return h != nil && h.Stage == StageShowdown && h.ConfirmedAt != nil && !h.VotingOpen
}

// RoundClosed: nobody is on the clock; waiting for the host.
func (h *Hand) RoundClosed() bool { return h.CurrentTurn == NoSeat }

func (h *Hand) maxRoundBet() int64 {
	var m int64
	for _, b := range h.RoundBets {
		m = max(m, b)
	}
	return m
}

func (h *Hand) resetStreet() {
	clear(h.RoundBets)
	h.CurrentBet = 0
	h.Aggressed = false
}
