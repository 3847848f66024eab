package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/beverage-pos/api/responses"
	"github.com/angelmondragon/beverage-pos/api/validators"
	"github.com/angelmondragon/beverage-pos/internal/terminal"
	pkgerrors "github.com/angelmondragon/beverage-pos/pkg/errors"
	"github.com/angelmondragon/beverage-pos/pkg/logger"
)

const sessionParam = "sessionId"

// Sessions is the terminal session registry.
type Sessions interface {
	Open(ctx context.Context) (*terminal.Session, error)
	Get(id string) (*terminal.Session, error)
	Close(ctx context.Context, id string) error
}

type sessionResponse struct {
	*terminal.Session
	Cart any `json:"cart"`
}

// SessionOpen starts a new terminal session with an empty cart.
func SessionOpen(sessions Sessions, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := sessions.Open(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, sessionResponse{
			Session: session,
			Cart:    session.Workflow().View(),
		})
	}
}

// SessionClose discards a session and its cart.
func SessionClose(sessions Sessions, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.PathString(r, sessionParam)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := sessions.Close(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func sessionFromRequest(sessions Sessions, r *http.Request) (*terminal.Session, error) {
	if sessions == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "session registry unavailable")
	}
	id, err := validators.PathString(r, sessionParam)
	if err != nil {
		return nil, err
	}
	return sessions.Get(id)
}
