package models

type StatusCount struct {
	Status string `bun:"status" json:"status"`
	Count  int    `bun:"count" json:"count"`
}

type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

type ExpoAnalytics struct {
	ExpoID               string          `json:"expoId"`
	TotalBooths          int             `json:"totalBooths"`
	BoothsByStatus       map[string]int  `json:"boothsByStatus"`
	OccupancyRate        float64         `json:"occupancyRate"`
	CommittedRevenue     float64         `json:"committedRevenue"`
	PotentialRevenue     float64         `json:"potentialRevenue"`
	RegistrationsByState map[string]int  `json:"registrationsByStatus"`
	TopCategories        []CategoryCount `json:"topCategories"`
}

type AttendanceReport struct {
	ExpoID     string `json:"expoId"`
	Attendance int    `json:"attendance"`
}

type SessionPopularity struct {
	SessionID     string `json:"sessionId"`
	Title         string `json:"title"`
	Bookmarks     int    `json:"bookmarks"`
	Registrations int    `json:"registrations"`
}
