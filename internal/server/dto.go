package server

import (
	"spyagency/internal/domain"
	"spyagency/internal/engine"
)

// Request payloads

type CreateCatRequest struct {
	Name            string  `json:"name" minLength:"1" maxLength:"100" example:"Tom"`
	YearsExperience int     `json:"years_experience" minimum:"0" maximum:"50" example:"5"`
	Breed           string  `json:"breed" minLength:"1" maxLength:"100" example:"Siamese"`
	Salary          float64 `json:"salary" exclusiveMinimum:"0" example:"1500"`
}

type UpdateCatSalaryRequest struct {
	Salary float64 `json:"salary" exclusiveMinimum:"0" example:"2000"`
}

type TargetRequest struct {
	Name    string `json:"name" minLength:"1" maxLength:"100" example:"Mr. Whiskers"`
	Country string `json:"country" minLength:"1" maxLength:"100" example:"UK"`
	Notes   string `json:"notes,omitempty" maxLength:"1000"`
}

type CreateMissionRequest struct {
	Targets []TargetRequest `json:"targets" minItems:"1" maxItems:"3"`
}

// UpdateTargetRequest: absent fields are left unchanged.
type UpdateTargetRequest struct {
	Notes    *string `json:"notes,omitempty" maxLength:"1000"`
	Complete *bool   `json:"complete,omitempty"`
}

// Responses

type CatResponse struct {
	ID              int64   `json:"id"`
	Name            string  `json:"name"`
	YearsExperience int     `json:"years_experience"`
	Breed           string  `json:"breed"`
	Salary          float64 `json:"salary"`
}

type CatSummaryResponse struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	Breed           string `json:"breed"`
	YearsExperience int    `json:"years_experience"`
}

type TargetResponse struct {
	ID        int64  `json:"id"`
	MissionID int64  `json:"mission_id"`
	Name      string `json:"name"`
	Country   string `json:"country"`
	Notes     string `json:"notes"`
	Complete  bool   `json:"complete"`
}

type MissionResponse struct {
	ID       int64               `json:"id"`
	Complete bool                `json:"complete"`
	CatID    *int64              `json:"cat_id"`
	Cat      *CatSummaryResponse `json:"cat,omitempty"`
	Targets  []TargetResponse    `json:"targets"`
}

type TargetUpdateResponse struct {
	TargetResponse
	MissionComplete bool `json:"mission_complete"`
}

func catResponse(c domain.Cat) CatResponse {
	return CatResponse{
		ID:              c.ID,
		Name:            c.Name,
		YearsExperience: c.YearsExperience,
		Breed:           c.Breed,
		Salary:          c.Salary,
	}
}

func mapCats(items []domain.Cat) []CatResponse {
	out := make([]CatResponse, 0, len(items))
	for _, c := range items {
		out = append(out, catResponse(c))
	}
	return out
}

func targetResponse(t domain.Target) TargetResponse {
	return TargetResponse{
		ID:        t.ID,
		MissionID: t.MissionID,
		Name:      t.Name,
		Country:   t.Country,
		Notes:     t.Notes,
		Complete:  t.Complete,
	}
}

func missionResponse(m domain.Mission) MissionResponse {
	res := MissionResponse{
		ID:       m.ID,
		Complete: m.Complete,
		CatID:    m.CatID,
		Targets:  make([]TargetResponse, 0, len(m.Targets)),
	}
	if m.Cat != nil {
		res.Cat = &CatSummaryResponse{
			ID:              m.Cat.ID,
			Name:            m.Cat.Name,
			Breed:           m.Cat.Breed,
			YearsExperience: m.Cat.YearsExperience,
		}
	}
	for _, t := range m.Targets {
		res.Targets = append(res.Targets, targetResponse(t))
	}
	return res
}

func mapMissions(items []domain.Mission) []MissionResponse {
	out := make([]MissionResponse, 0, len(items))
	for _, m := range items {
		out = append(out, missionResponse(m))
	}
	return out
}

func targetUpdateResponse(r engine.TargetUpdateResult) TargetUpdateResponse {
	return TargetUpdateResponse{
		TargetResponse:  targetResponse(r.Target),
		MissionComplete: r.MissionComplete,
	}
}

func newTargets(in []TargetRequest) []domain.NewTarget {
	out := make([]domain.NewTarget, 0, len(in))
	for _, t := range in {
		out = append(out, domain.NewTarget{Name: t.Name, Country: t.Country, Notes: t.Notes})
	}
	return out
}
