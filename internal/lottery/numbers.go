package lottery

// sortNumbers returns the canonical ascending ordering of a ticket's five
// primary numbers. Insertion sort; the input is always exactly five elements.
func sortNumbers(numbers [MainNumberCount]int) [MainNumberCount]int {
	for i := 1; i < len(numbers); i++ {
		value := numbers[i]
		j := i - 1
		for j >= 0 && numbers[j] > value {
			numbers[j+1] = numbers[j]
			j--
		}
		numbers[j+1] = value
	}
	return numbers
}

// containsOrdered reports whether target occurs in the sorted five-element
// array. Classic low/high binary search; indexes are signed so the lower
// bound can pass below zero without wrapping when the target is smaller than
// every element.
func containsOrdered(sorted [MainNumberCount]int, target int) bool {
	low, high := 0, len(sorted)-1
	for low <= high {
		mid := (low + high) / 2
		switch {
		case sorted[mid] == target:
			return true
		case sorted[mid] < target:
			low = mid + 1
		default:
			high = mid - 1
		}
	}
	return false
}

// countMatches counts how many of the ticket's numbers occur in the winning
// ticket and whether the bonus number matches. Both tickets hold their
// numbers sorted. Each ticket slot is counted independently, so a duplicated
// number that occurs in the winning ticket counts once per slot.
func countMatches(ticket Ticket, winning WinningTicket) (matchCount int, bonusMatch bool) {
	for _, n := range ticket.Numbers {
		if containsOrdered(winning.Numbers, n) {
			matchCount++
		}
	}
	return matchCount, ticket.Bonus == winning.Bonus
}

// classify maps a match count and bonus-match flag to a prize tier, 1 being
// the rarest and 0 meaning no prize. Distribution only classifies tickets
// with at least one hit, so the final zero branch is unreachable there; it is
// kept for completeness.
func classify(matchCount int, bonusMatch bool) int {
	switch matchCount {
	case 5:
		if bonusMatch {
			return 1
		}
		return 2
	case 4:
		if bonusMatch {
			return 3
		}
		return 4
	case 3:
		if bonusMatch {
			return 4
		}
		return 5
	case 2:
		if bonusMatch {
			return 5
		}
		return 6
	case 1:
		if bonusMatch {
			return 6
		}
		return 7
	default:
		if bonusMatch {
			return 8
		}
		return 0
	}
}
