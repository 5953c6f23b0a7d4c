package lottery

import "testing"

func TestSortNumbers(t *testing.T) {
	tests := []struct {
		name string
		in   [MainNumberCount]int
		want [MainNumberCount]int
	}{
		{"already sorted", [5]int{1, 2, 3, 4, 5}, [5]int{1, 2, 3, 4, 5}},
		{"reversed", [5]int{69, 44, 29, 17, 3}, [5]int{3, 17, 29, 44, 69}},
		{"duplicates", [5]int{7, 3, 7, 1, 3}, [5]int{1, 3, 3, 7, 7}},
		{"all equal", [5]int{5, 5, 5, 5, 5}, [5]int{5, 5, 5, 5, 5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sortNumbers(tt.in); got != tt.want {
				t.Errorf("sortNumbers(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestContainsOrdered(t *testing.T) {
	sorted := [MainNumberCount]int{3, 17, 29, 44, 69}
	for _, n := range sorted {
		if !containsOrdered(sorted, n) {
			t.Errorf("containsOrdered(%v, %d) = false, want true", sorted, n)
		}
	}
	for _, n := range []int{1, 2, 18, 43, 68, 70} {
		if containsOrdered(sorted, n) {
			t.Errorf("containsOrdered(%v, %d) = true, want false", sorted, n)
		}
	}
}

func TestCountMatches(t *testing.T) {
	winning := WinningTicket{Numbers: [5]int{3, 17, 29, 44, 69}, Bonus: 7}

	tests := []struct {
		name      string
		ticket    Ticket
		wantCount int
		wantBonus bool
	}{
		{
			name:      "perfect match",
			ticket:    Ticket{Numbers: [5]int{3, 17, 29, 44, 69}, Bonus: 7},
			wantCount: 5,
			wantBonus: true,
		},
		{
			name:      "no primary hits bonus only",
			ticket:    Ticket{Numbers: [5]int{1, 2, 4, 5, 6}, Bonus: 7},
			wantCount: 0,
			wantBonus: true,
		},
		{
			name:      "partial without bonus",
			ticket:    Ticket{Numbers: [5]int{3, 17, 30, 45, 68}, Bonus: 9},
			wantCount: 2,
			wantBonus: false,
		},
		{
			name:      "duplicate slots each count",
			ticket:    Ticket{Numbers: [5]int{29, 29, 29, 30, 31}, Bonus: 1},
			wantCount: 3,
			wantBonus: false,
		},
		{
			name:      "total miss",
			ticket:    Ticket{Numbers: [5]int{1, 2, 4, 5, 6}, Bonus: 8},
			wantCount: 0,
			wantBonus: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			count, bonus := countMatches(tt.ticket, winning)
			if count != tt.wantCount || bonus != tt.wantBonus {
				t.Errorf("countMatches() = (%d, %v), want (%d, %v)",
					count, bonus, tt.wantCount, tt.wantBonus)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		matches int
		bonus   bool
		want    int
	}{
		{5, true, 1},
		{5, false, 2},
		{4, true, 3},
		{4, false, 4},
		{3, true, 4},
		{3, false, 5},
		{2, true, 5},
		{2, false, 6},
		{1, true, 6},
		{1, false, 7},
		{0, true, 8},
		{0, false, 0},
	}
	for _, tt := range tests {
		if got := classify(tt.matches, tt.bonus); got != tt.want {
			t.Errorf("classify(%d, %v) = %d, want %d", tt.matches, tt.bonus, got, tt.want)
		}
	}
}
