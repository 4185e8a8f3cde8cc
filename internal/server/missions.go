package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"spyagency/internal/engine"
)

type missionPath struct {
	ID int64 `path:"id" minimum:"1"`
}

type missionBody struct {
	Body MissionResponse `json:"body"`
}

func registerMissions(api huma.API, h handlers) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-mission",
		Method:        http.MethodPost,
		Path:          "/missions",
		Summary:       "Create mission with its targets",
		Tags:          []string{"missions"},
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusUnprocessableEntity},
	}, func(ctx context.Context, input *struct {
		Body CreateMissionRequest `json:"body"`
	}) (*missionBody, error) {
		m, err := h.e.CreateMission(ctx, newTargets(input.Body.Targets))
		if err != nil {
			return nil, h.handleError(ctx, err)
		}
		return &missionBody{Body: missionResponse(m)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-missions",
		Method:      http.MethodGet,
		Path:        "/missions",
		Summary:     "List missions",
		Tags:        []string{"missions"},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []MissionResponse `json:"body"`
	}, error) {
		items, err := h.e.ListMissions(ctx)
		if err != nil {
			return nil, h.handleError(ctx, err)
		}
		return &struct {
			Body []MissionResponse `json:"body"`
		}{Body: mapMissions(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-mission",
		Method:      http.MethodGet,
		Path:        "/missions/{id}",
		Summary:     "Get mission",
		Tags:        []string{"missions"},
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *missionPath) (*missionBody, error) {
		m, err := h.e.GetMission(ctx, input.ID)
		if err != nil {
			return nil, h.handleError(ctx, err)
		}
		return &missionBody{Body: missionResponse(m)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-mission",
		Method:        http.MethodDelete,
		Path:          "/missions/{id}",
		Summary:       "Delete mission",
		Description:   "Only unassigned missions can be deleted; their targets go with them.",
		Tags:          []string{"missions"},
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *missionPath) (*struct{}, error) {
		if err := h.e.DeleteMission(ctx, input.ID); err != nil {
			return nil, h.handleError(ctx, err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "assign-cat",
		Method:      http.MethodPut,
		Path:        "/missions/{id}/assign/{cat_id}",
		Summary:     "Assign cat to mission",
		Tags:        []string{"missions"},
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID    int64 `path:"id" minimum:"1"`
		CatID int64 `path:"cat_id" minimum:"1"`
	}) (*missionBody, error) {
		m, err := h.e.AssignCat(ctx, input.ID, input.CatID)
		if err != nil {
			return nil, h.handleError(ctx, err)
		}
		return &missionBody{Body: missionResponse(m)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "unassign-cat",
		Method:      http.MethodDelete,
		Path:        "/missions/{id}/assign",
		Summary:     "Unassign cat from mission",
		Tags:        []string{"missions"},
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *missionPath) (*missionBody, error) {
		m, err := h.e.UnassignCat(ctx, input.ID)
		if err != nil {
			return nil, h.handleError(ctx, err)
		}
		return &missionBody{Body: missionResponse(m)}, nil
	})
}

func registerTargets(api huma.API, h handlers) {
	huma.Register(api, huma.Operation{
		OperationID: "update-target",
		Method:      http.MethodPut,
		Path:        "/targets/{id}",
		Summary:     "Update target notes or completion",
		Description: "Notes are frozen once the target or its mission is complete. Completing the last open target completes the mission.",
		Tags:        []string{"targets"},
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound, http.StatusUnprocessableEntity},
	}, func(ctx context.Context, input *struct {
		ID   int64               `path:"id" minimum:"1"`
		Body UpdateTargetRequest `json:"body"`
	}) (*struct {
		Body TargetUpdateResponse `json:"body"`
	}, error) {
		res, err := h.e.UpdateTarget(ctx, engine.TargetUpdateOptions{
			ID:       input.ID,
			Notes:    input.Body.Notes,
			Complete: input.Body.Complete,
		})
		if err != nil {
			return nil, h.handleError(ctx, err)
		}
		return &struct {
			Body TargetUpdateResponse `json:"body"`
		}{Body: targetUpdateResponse(res)}, nil
	})
}
