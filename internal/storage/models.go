package storage

// Event is a row of the events table. Dates and timestamps are stored as
// fixed-width UTC text so that string order matches time order.
type Event struct {
	ID             string
	ClientName     string
	Date           string
	Status         string
	ContactNumber  string
	InstagramID    string
	Location       string
	StartTime      string
	EndTime        string
	Artists        string
	MarketingCosts float64
	Price          float64
	AdvancePayment float64
	PendingPayment float64
	MaterialsCost  float64
	TravelCost     float64
	MiscCost       float64
	CreatedAt      string
	UpdatedAt      string
	Version        int64
	SyncStatus     string
}

type Artist struct {
	ID        string
	Name      string
	CreatedAt string
}

type User struct {
	UID          string
	Email        string
	PasswordHash []byte
	Role         string
	CreatedAt    string
	UpdatedAt    string
}

type StatusLabel struct {
	Status string
	Label  string
}

type PendingSyncRow struct {
	ID        string
	Version   int64
	UpdatedAt string
}
