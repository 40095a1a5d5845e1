package scheduling

// GenerateSlots partitions availability windows into fixed-duration bookable
// slots and marks each one against existing booked sessions. A slot is only
// emitted when it fits entirely inside its window; no partial trailing slot.
// A slot is unavailable when its start time matches a non-cancelled session's
// start time. Pure function of its inputs: ordered and deterministic.
func GenerateSlots(windows []*Availability, durationMinutes int, booked []*Session) ([]Slot, error) {
	if durationMinutes <= 0 {
		return nil, nil
	}

	occupied := make(map[int]*Session, len(booked))
	for _, s := range booked {
		if s.Status == StatusCancelled {
			continue
		}
		start, err := parseClock(s.StartTime)
		if err != nil {
			return nil, err
		}
		occupied[start] = s
	}

	var slots []Slot
	for _, w := range windows {
		if !w.Active {
			continue
		}
		winStart, err := parseClock(w.StartTime)
		if err != nil {
			return nil, err
		}
		winEnd, err := parseClock(w.EndTime)
		if err != nil {
			return nil, err
		}

		for start := winStart; start+durationMinutes <= winEnd; start += durationMinutes {
			slot := Slot{
				StartTime:   formatClock(start),
				EndTime:     formatClock(start + durationMinutes),
				IsAvailable: true,
			}
			if s, ok := occupied[start]; ok {
				slot.IsAvailable = false
				id := s.ID
				slot.OccupyingSession = &id
			}
			slots = append(slots, slot)
		}
	}
	return slots, nil
}
