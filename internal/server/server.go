package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"spyagency/internal/domain"
	"spyagency/internal/engine"
	"spyagency/internal/logger"
	"spyagency/internal/metrics"
)

const greeting = "Hello Spy Cat Agency!"

// Config for the HTTP API handler.
type Config struct {
	Engine  engine.Engine
	Logger  *slog.Logger
	Metrics *metrics.Metrics
	Version string
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"conflict"`
	Message string         `json:"message" example:"mission is already assigned to another cat"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true"`
}

// apiError models the error envelope {"error": {...}}.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

var overrideErrors sync.Once

// New returns an HTTP handler exposing the agency API.
func New(cfg Config) (http.Handler, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}
	huma.DefaultArrayNullable = false
	overrideErrors.Do(func() {
		huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
			return newAPIError(status, "", msg, errorDetails(errs))
		}
		huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
			return newAPIError(status, "", msg, errorDetails(errs))
		}
	})

	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(requestID)
	router.Use(accessLog(cfg.Logger, cfg.Metrics))

	hcfg := huma.DefaultConfig("Spy Cat Agency API", cfg.Version)
	hcfg.OpenAPIPath = ""
	hcfg.DocsPath = "" // custom Swagger UI below
	hcfg.CreateHooks = nil
	api := humachi.New(router, hcfg)

	h := handlers{e: cfg.Engine, log: cfg.Logger}
	registerDocs(router)
	registerRoot(api)
	registerHealth(api, cfg.Engine)
	registerCats(api, h)
	registerMissions(api, h)
	registerTargets(api, h)
	registerOpenAPI(router, api)
	router.Handle("/metrics", cfg.Metrics.Handler())

	return router, nil
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

func errorDetails(errs []error) map[string]any {
	if len(errs) == 0 {
		return nil
	}
	return map[string]any{"errors": errs}
}

// handlers carries what every operation needs to turn engine errors into responses.
type handlers struct {
	e   engine.Engine
	log *slog.Logger
}

func (h handlers) handleError(ctx context.Context, err error) huma.StatusError {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return newAPIError(http.StatusNotFound, "not_found", err.Error(), nil)
	case errors.Is(err, domain.ErrConflict):
		return newAPIError(http.StatusBadRequest, "conflict", err.Error(), nil)
	case errors.Is(err, domain.ErrInvalidInput):
		return newAPIError(http.StatusBadRequest, "bad_request", err.Error(), nil)
	case errors.Is(err, domain.ErrBreedUnavailable):
		return newAPIError(http.StatusServiceUnavailable, "breed_lookup_unavailable", "breed lookup unavailable, try again later", nil)
	default:
		logger.From(ctx, h.log).Error("request failed", "err", err)
		return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", nil)
	}
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "validation_failed"
	case http.StatusServiceUnavailable:
		return "unavailable"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

func registerDocs(r chi.Router) {
	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, swaggerHTML)
	})
}

func registerOpenAPI(r chi.Router, api huma.API) {
	var (
		once sync.Once
		spec []byte
	)
	r.Get("/openapi.json", func(w http.ResponseWriter, r *http.Request) {
		once.Do(func() {
			oas := api.OpenAPI()
			ensureDefaultErrorResponses(oas)
			spec, _ = json.Marshal(oas)
		})
		w.Header().Set("Content-Type", "application/json")
		w.Write(spec)
	})
}

func ensureDefaultErrorResponses(oas *huma.OpenAPI) {
	if oas == nil || oas.Paths == nil {
		return
	}
	for _, item := range oas.Paths {
		for _, op := range []*huma.Operation{item.Get, item.Put, item.Post, item.Delete} {
			if op == nil {
				continue
			}
			if op.Responses == nil {
				op.Responses = map[string]*huma.Response{}
			}
			op.Responses["default"] = &huma.Response{
				Description: "Error",
				Content: map[string]*huma.MediaType{
					"application/json": {
						Schema: &huma.Schema{Ref: "#/components/schemas/ApiError"},
					},
				},
			}
		}
	}
}

const swaggerHTML = `<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>Spy Cat Agency API Docs</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js" crossorigin></script>
    <script>
      window.onload = () => {
        SwaggerUIBundle({
          url: '/openapi.json',
          dom_id: '#swagger-ui'
        });
      };
    </script>
  </body>
</html>`

func registerRoot(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "root",
		Method:      http.MethodGet,
		Path:        "/",
		Summary:     "Greeting",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"message": greeting}}, nil
	})
}

func registerHealth(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Errors:      []int{http.StatusServiceUnavailable},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := e.DB.PingContext(ctx); err != nil {
			return nil, newAPIError(http.StatusServiceUnavailable, "unavailable", "database unreachable", nil)
		}
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok", "database": "ok"}}, nil
	})
}
