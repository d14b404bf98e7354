package stats

// WinRate is won/played as a percentage. No rounding is applied.
func WinRate(won, played int) float64 {
	if played <= 0 {
		return 0
	}
	return float64(won) / float64(played) * 100
}

func Average(total float64, count int) float64 {
	if count <= 0 {
		return 0
	}
	return total / float64(count)
}
