package holdem

import (
	"cmp"
	"slices"
)

// Seating is the occupied seats of a table indexed by seat number.
type Seating []*Player

// NewSeating orders players by seat and checks that seat numbers form a
// contiguous 0..n-1 range.
func NewSeating(players []*Player) (Seating, error) {
	if slices.Contains(players, nil) {
		return nil, IllegalState("nil player record")
	}
	s := slices.Clone(players)
	slices.SortFunc(s, func(a, b *Player) int { return cmp.Compare(a.Seat, b.Seat) })
	for i, p := range s {
		if p.Seat != i {
			return nil, IllegalState("seat indices not contiguous: player %s at %d, want %d", p.ID, p.Seat, i)
		}
	}
	return s, nil
}

func (s Seating) At(seat int) *Player {
	if seat < 0 || seat >= len(s) {
		return nil
	}
	return s[seat]
}

func (s Seating) ByID(id string) *Player {
	for _, p := range s {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// WalkOnce 从 from 的下一个（step=-1 时为上一个）座位开始绕桌一圈，返回第一个满足 fn 的座位。
// from itself is visited last, so a lone qualifying seat finds itself.
func (s Seating) WalkOnce(from, step int, fn func(*Player) bool) int {
	n := len(s)
	if n == 0 {
		return NoSeat
	}
	for i := 1; i <= n; i++ {
		seat := ((from+step*i)%n + n) % n
		if fn(s[seat]) {
			return seat
		}
	}
	return NoSeat
}

// FirstFrom is WalkOnce that also considers from itself first.
func (s Seating) FirstFrom(from int, fn func(*Player) bool) int {
	return s.WalkOnce(from-1, 1, fn)
}

func (s Seating) Count(fn func(*Player) bool) int {
	n := 0
	for _, p := range s {
		if fn(p) {
			n++
		}
	}
	return n
}

func (s Seating) Filter(fn func(*Player) bool) []*Player {
	var out []*Player
	for _, p := range s {
		if fn(p) {
			out = append(out, p)
		}
	}
	return out
}

// TotalChips sums every stack at the table.
func (s Seating) TotalChips() int64 {
	var sum int64
	for _, p := range s {
		sum += p.Stack
	}
	return sum
}

// Compact renumbers seats 0..n-1 preserving order. Used after a player
// leaves.
func (s Seating) Compact() Seating {
	out := make(Seating, 0, len(s))
	for _, p := range s {
		if p == nil {
			continue
		}
		p.Seat = len(out)
		out = append(out, p)
	}
	return out
}
