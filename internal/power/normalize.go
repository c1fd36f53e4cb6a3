package power

// Normalize converts a raw per-device channel list into a Reading.
//
// Channels are classified in the order received:
//   - the combined-mains channel ("1,2,3") becomes Total
//   - the first main leg ("1,2") becomes PhaseA
//   - the second main leg ("3,4") becomes PhaseB
//   - any other channel with a non-empty name and usage > 0 becomes a
//     circuit entry; a repeated name overwrites the earlier value
//
// A nil usage is treated as 0. A payload without a combined-mains channel
// yields Total == 0 rather than an error; the metering hardware reports the
// mains on every snapshot, so an absence is noise, not a fault worth
// rejecting the whole reading for.
//
// Parameters:
//   - ts: Reading timestamp, seconds since epoch
//   - channels: Raw channels from the device usage snapshot
//
// Returns:
//   - Reading: Normalized reading with a non-nil Circuits map
func Normalize(ts int64, channels []Channel) Reading {
	r := Reading{
		TS:       ts,
		Circuits: make(map[string]float64),
	}

	for _, ch := range channels {
		usage := 0.0
		if ch.Usage != nil {
			usage = *ch.Usage
		}

		switch ch.Num {
		case ChannelTotal:
			r.Total = usage
		case ChannelPhaseA:
			u := usage
			r.PhaseA = &u
		case ChannelPhaseB:
			u := usage
			r.PhaseB = &u
		default:
			if ch.Name != "" && usage > 0 {
				r.Circuits[ch.Name] = usage
			}
		}
	}

	return r
}
