package domain

type Cat struct {
	ID              int64   `json:"id"`
	Name            string  `json:"name"`
	YearsExperience int     `json:"years_experience"`
	Breed           string  `json:"breed"`
	Salary          float64 `json:"salary"`
}

// CatSummary is the partial cat projection embedded in mission listings.
type CatSummary struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	Breed           string `json:"breed"`
	YearsExperience int    `json:"years_experience"`
}

type Mission struct {
	ID       int64       `json:"id"`
	Complete bool        `json:"complete"`
	CatID    *int64      `json:"cat_id"`
	Cat      *CatSummary `json:"cat,omitempty"`
	Targets  []Target    `json:"targets"`
}

// Assigned reports whether a cat currently references the mission.
func (m Mission) Assigned() bool {
	return m.CatID != nil
}

type Target struct {
	ID        int64  `json:"id"`
	MissionID int64  `json:"mission_id"`
	Name      string `json:"name"`
	Country   string `json:"country"`
	Notes     string `json:"notes"`
	Complete  bool   `json:"complete"`
}

// NewTarget is one entry of a mission creation batch.
type NewTarget struct {
	Name    string
	Country string
	Notes   string
}

const (
	MinTargetsPerMission = 1
	MaxTargetsPerMission = 3
)

func (c Cat) Summary() CatSummary {
	return CatSummary{
		ID:              c.ID,
		Name:            c.Name,
		Breed:           c.Breed,
		YearsExperience: c.YearsExperience,
	}
}
