package agents

// UpdateMood advances the happiness state machine with one draw.
// A contrary draw (unhappy while Happy, or happy while Unhappy) extends the
// streak; once the streak reaches flipThreshold the state flips and the
// streak resets. A confirming draw resets the streak. UnhappyTicks counts
// consecutive ticks spent Unhappy.
func (h *Human) UpdateMood(unhappyDraw bool, flipThreshold int) {
	contrary := unhappyDraw == h.Happy
	if contrary {
		h.MoodStreak++
		if h.MoodStreak >= flipThreshold {
			h.Happy = !h.Happy
			h.MoodStreak = 0
		}
	} else {
		h.MoodStreak = 0
	}

	if h.Happy {
		h.UnhappyTicks = 0
	} else {
		h.UnhappyTicks++
	}
}

// CanRelocate reports whether the human is unhappy and past the move cooldown.
func (h *Human) CanRelocate() bool {
	return !h.Happy && h.TicksSinceLastMove >= 2
}
