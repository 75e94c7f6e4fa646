package availability

import "strings"

type TechnicianSlot struct {
	Time         string `json:"time"`
	TechnicianID int64  `json:"technician_id"`
}

// TechnicianSlots keeps the slots that have at least one available
// technician and pairs each with the first such technician. Time is the
// clock part of the vendor timestamp, e.g. "13:00:00Z".
func TechnicianSlots(slots []CapacitySlot) []TechnicianSlot {
	out := []TechnicianSlot{}
	for _, s := range slots {
		_, clock, ok := strings.Cut(s.RawStart, "T")
		if !ok {
			continue
		}
		if id, ok := freeTechnician(s); ok {
			out = append(out, TechnicianSlot{Time: clock, TechnicianID: id})
		}
	}
	return out
}

func freeTechnician(s CapacitySlot) (int64, bool) {
	for _, t := range s.Technicians {
		if t.Available {
			return t.ID, true
		}
	}
	return 0, false
}

func hasFreeTechnician(s CapacitySlot) bool {
	_, ok := freeTechnician(s)
	return ok && strings.Contains(s.RawStart, "T")
}
