package httpapi

import (
	"net/http"

	"github.com/go-chi/render"
)

// Problem types reported by the API.
const (
	TypeBadRequest      = "/errors/bad-request"
	TypeNotFound        = "/errors/not-found"
	TypeRateLimit       = "/errors/rate-limit"
	TypePayloadTooLarge = "/errors/payload-too-large"
	TypeInternal        = "/errors/internal"
)

// Problem is an RFC 7807 problem document.
type Problem struct {
	Type      string `json:"type"`
	Title     string `json:"title"`
	Status    int    `json:"status"`
	Detail    string `json:"detail,omitempty"`
	Instance  string `json:"instance,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// Render implements render.Renderer.
func (p *Problem) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, p.Status)
	return nil
}

func newProblem(r *http.Request, status int, kind, detail string) *Problem {
	return &Problem{
		Type:      kind,
		Title:     http.StatusText(status),
		Status:    status,
		Detail:    detail,
		Instance:  r.URL.Path,
		RequestID: RequestIDFrom(r.Context()),
	}
}

func writeProblem(w http.ResponseWriter, r *http.Request, status int, kind, detail string) {
	_ = render.Render(w, r, newProblem(r, status, kind, detail))
}
