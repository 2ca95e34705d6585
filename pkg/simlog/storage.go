package simlog

// RefineStorageStates turns point samples into a staircase: every sample is
// followed by a copy of itself stamped with the time of the next sample, so
// a value holds until it changes. n samples yield 2n-1 states.
func RefineStorageStates(states []StorageState) []StorageState {
	if len(states) == 0 {
		return []StorageState{}
	}

	refined := make([]StorageState, 0, 2*len(states)-1)

	for i, state := range states {
		refined = append(refined, state)

		if i+1 < len(states) {
			hold := state
			hold.Time = states[i+1].Time
			refined = append(refined, hold)
		}
	}

	return refined
}
