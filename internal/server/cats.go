package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"spyagency/internal/engine"
)

type catPath struct {
	ID int64 `path:"id" minimum:"1"`
}

func registerCats(api huma.API, h handlers) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-cat",
		Method:        http.MethodPost,
		Path:          "/cats",
		Summary:       "Recruit a cat",
		Description:   "The breed must be known to TheCatAPI.",
		Tags:          []string{"cats"},
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusUnprocessableEntity, http.StatusServiceUnavailable},
	}, func(ctx context.Context, input *struct {
		Body CreateCatRequest `json:"body"`
	}) (*struct {
		Body CatResponse `json:"body"`
	}, error) {
		c, err := h.e.CreateCat(ctx, engine.CatCreateOptions{
			Name:            input.Body.Name,
			YearsExperience: input.Body.YearsExperience,
			Breed:           input.Body.Breed,
			Salary:          input.Body.Salary,
		})
		if err != nil {
			return nil, h.handleError(ctx, err)
		}
		return &struct {
			Body CatResponse `json:"body"`
		}{Body: catResponse(c)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-cats",
		Method:      http.MethodGet,
		Path:        "/cats",
		Summary:     "List cats",
		Tags:        []string{"cats"},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []CatResponse `json:"body"`
	}, error) {
		items, err := h.e.ListCats(ctx)
		if err != nil {
			return nil, h.handleError(ctx, err)
		}
		return &struct {
			Body []CatResponse `json:"body"`
		}{Body: mapCats(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-cat",
		Method:      http.MethodGet,
		Path:        "/cats/{id}",
		Summary:     "Get cat",
		Tags:        []string{"cats"},
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *catPath) (*struct {
		Body CatResponse `json:"body"`
	}, error) {
		c, err := h.e.GetCat(ctx, input.ID)
		if err != nil {
			return nil, h.handleError(ctx, err)
		}
		return &struct {
			Body CatResponse `json:"body"`
		}{Body: catResponse(c)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-cat-salary",
		Method:      http.MethodPut,
		Path:        "/cats/{id}",
		Summary:     "Update cat salary",
		Description: "Salary is the only mutable attribute of a cat.",
		Tags:        []string{"cats"},
		Errors:      []int{http.StatusNotFound, http.StatusUnprocessableEntity},
	}, func(ctx context.Context, input *struct {
		ID   int64                  `path:"id" minimum:"1"`
		Body UpdateCatSalaryRequest `json:"body"`
	}) (*struct {
		Body CatResponse `json:"body"`
	}, error) {
		c, err := h.e.UpdateCatSalary(ctx, input.ID, input.Body.Salary)
		if err != nil {
			return nil, h.handleError(ctx, err)
		}
		return &struct {
			Body CatResponse `json:"body"`
		}{Body: catResponse(c)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-cat",
		Method:        http.MethodDelete,
		Path:          "/cats/{id}",
		Summary:       "Delete cat",
		Description:   "Refused while the cat holds an incomplete mission.",
		Tags:          []string{"cats"},
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *catPath) (*struct{}, error) {
		if err := h.e.DeleteCat(ctx, input.ID); err != nil {
			return nil, h.handleError(ctx, err)
		}
		return &struct{}{}, nil
	})
}
