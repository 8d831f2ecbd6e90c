package core

// MonthSummary is the financial overview of a set of events.
type MonthSummary struct {
	TotalEvents         int     `json:"totalEvents"`
	TotalIncome         float64 `json:"totalIncome"`
	TotalAdvance        float64 `json:"totalAdvance"`
	TotalPending        float64 `json:"totalPending"`
	TotalMarketingCosts float64 `json:"totalMarketingCosts"`
	TotalMaterialsCosts float64 `json:"totalMaterialsCosts"`
	TotalTravelCosts    float64 `json:"totalTravelCosts"`
	TotalMiscCosts      float64 `json:"totalMiscCosts"`
	TotalCosts          float64 `json:"totalCosts"`
	NetIncome           float64 `json:"netIncome"`
}

// NetEarnings is price minus marketing and the other cost categories. It
// applies to any event regardless of status.
func NetEarnings(e Event) float64 {
	return e.Price - e.MarketingCosts - e.OtherCosts.Total()
}

// PendingAmount is the authoritative outstanding balance of an event. The
// stored PendingPayment field is not consulted.
func PendingAmount(e Event) float64 {
	return e.Price - e.AdvancePayment
}

// Approved keeps the events whose status counts towards the summary.
func Approved(events []Event) []Event {
	out := make([]Event, 0, len(events))
	for _, e := range events {
		if e.Status.IsApproved() {
			out = append(out, e)
		}
	}
	return out
}

// Totals reduces events into a summary without filtering them.
func Totals(events []Event) MonthSummary {
	var s MonthSummary
	for _, e := range events {
		s.TotalEvents++
		s.TotalIncome += e.Price
		s.TotalAdvance += e.AdvancePayment
		s.TotalPending += PendingAmount(e)
		s.TotalMarketingCosts += e.MarketingCosts
		s.TotalMaterialsCosts += e.OtherCosts.Materials
		s.TotalTravelCosts += e.OtherCosts.Travel
		s.TotalMiscCosts += e.OtherCosts.Misc
	}
	s.TotalCosts = s.TotalMarketingCosts + s.TotalMaterialsCosts + s.TotalTravelCosts + s.TotalMiscCosts
	s.NetIncome = s.TotalIncome - s.TotalCosts
	return s
}

// Summarize computes the month summary over the approved subset of events.
// Events are expected to be already restricted to the month's window.
func Summarize(events []Event) MonthSummary {
	return Totals(Approved(events))
}

// NetEarningsByID maps each event id to its net earnings.
func NetEarningsByID(events []Event) map[string]float64 {
	out := make(map[string]float64, len(events))
	for _, e := range events {
		out[e.ID] = NetEarnings(e)
	}
	return out
}
