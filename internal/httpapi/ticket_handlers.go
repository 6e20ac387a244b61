package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/google/uuid"

	"eeytech.com/console/internal/audit"
	"eeytech.com/console/internal/auth"
	"eeytech.com/console/internal/obs"
	"eeytech.com/console/internal/tickets"
)

type createTicketRequest struct {
	ApplicationID string `json:"applicationId"`
	UserID        string `json:"userId"`
	Subject       string `json:"subject" validate:"required"`
	Content       string `json:"content" validate:"required"`
	Priority      string `json:"priority"`
}

type addMessageRequest struct {
	UserID  string `json:"userId"`
	Content string `json:"content" validate:"required"`
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// ticketCaller is either an application authenticated by API key or a
// session that passed the Gate.
type ticketCaller struct {
	app    *auth.Application
	claims *auth.Claims
}

func (c ticketCaller) channel() string {
	if c.app != nil {
		return "api_key"
	}
	return "session"
}

// userID picks the acting user: the session subject, or the id supplied by
// the calling application.
func (c ticketCaller) userID(supplied string) string {
	if c.claims != nil {
		return c.claims.UserID()
	}
	return supplied
}

func (c ticketCaller) canSee(t tickets.Ticket) bool {
	return c.app == nil || t.ApplicationID == c.app.ID
}

func (a *API) mountTicketRoutes(r chi.Router) {
	r.Use(a.withAPIKey)
	r.Use(httprate.Limit(a.apiKeyRPM, time.Minute,
		httprate.WithKeyFuncs(ticketRateKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			writeError(w, r, http.StatusTooManyRequests, "rate limit exceeded")
		}),
	))
	r.Get("/stream", a.streamTickets)
	r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(a.requestTimeout))
		r.Get("/", a.listTickets)
		r.Post("/", a.createTicket)
		r.Get("/{id}", a.getTicket)
		r.Post("/{id}/messages", a.addTicketMessage)
		r.Patch("/{id}/status", a.updateTicketStatus)
	})
}

func ticketRateKey(r *http.Request) (string, error) {
	if app, ok := auth.ApplicationFromContext(r.Context()); ok {
		return "app:" + app.ID, nil
	}
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}

func (a *API) ticketAccess(r *http.Request, action auth.Action) (ticketCaller, error) {
	if app, ok := auth.ApplicationFromContext(r.Context()); ok {
		return ticketCaller{app: &app}, nil
	}
	claims, err := a.gate.RequireModulePermission(r.Context(), auth.ModuleTickets, action, "")
	if err != nil {
		return ticketCaller{}, err
	}
	return ticketCaller{claims: claims}, nil
}

// loadTicket hides tickets of other applications from API-key callers.
func (a *API) loadTicket(r *http.Request, caller ticketCaller) (tickets.Ticket, error) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		return tickets.Ticket{}, auth.ErrNotFound
	}
	t, err := a.tickets.Get(r.Context(), id)
	if err != nil {
		return tickets.Ticket{}, err
	}
	if !caller.canSee(t) {
		return tickets.Ticket{}, auth.ErrNotFound
	}
	return t, nil
}

func (a *API) listTickets(w http.ResponseWriter, r *http.Request) {
	caller, err := a.ticketAccess(r, auth.ActionRead)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	filter := tickets.Filter{ApplicationID: r.URL.Query().Get("applicationId")}
	if caller.app != nil {
		filter.ApplicationID = caller.app.ID
	} else if filter.ApplicationID != "" {
		if _, err := uuid.Parse(filter.ApplicationID); err != nil {
			a.respondError(w, r, badRequest("applicationId must be a uuid"))
			return
		}
	}
	list, err := a.tickets.List(r.Context(), filter)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	if list == nil {
		list = []tickets.Ticket{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (a *API) createTicket(w http.ResponseWriter, r *http.Request) {
	caller, err := a.ticketAccess(r, auth.ActionWrite)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	var req createTicketRequest
	if err := a.decodeJSON(r, &req); err != nil {
		a.respondError(w, r, err)
		return
	}
	appID := req.ApplicationID
	if caller.app != nil {
		appID = caller.app.ID
	} else if _, err := uuid.Parse(appID); err != nil {
		a.respondError(w, r, badRequest("applicationId must be a uuid"))
		return
	}
	userID := caller.userID(req.UserID)
	if _, err := uuid.Parse(userID); err != nil {
		a.respondError(w, r, badRequest("userId must be a uuid"))
		return
	}
	t, err := a.tickets.Create(r.Context(), tickets.NewTicket{
		ApplicationID: appID,
		UserID:        userID,
		Subject:       req.Subject,
		Content:       req.Content,
		Priority:      tickets.Priority(req.Priority),
	})
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	obs.RecordTicketCreated(caller.channel())
	_ = audit.LogEvent(r.Context(), "ticket.create", map[string]any{
		"ticket_id":      t.ID,
		"application_id": t.ApplicationID,
		"channel":        caller.channel(),
	})
	writeJSON(w, http.StatusCreated, t)
}

func (a *API) getTicket(w http.ResponseWriter, r *http.Request) {
	caller, err := a.ticketAccess(r, auth.ActionRead)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	t, err := a.loadTicket(r, caller)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (a *API) addTicketMessage(w http.ResponseWriter, r *http.Request) {
	caller, err := a.ticketAccess(r, auth.ActionWrite)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	var req addMessageRequest
	if err := a.decodeJSON(r, &req); err != nil {
		a.respondError(w, r, err)
		return
	}
	userID := caller.userID(req.UserID)
	if _, err := uuid.Parse(userID); err != nil {
		a.respondError(w, r, badRequest("userId must be a uuid"))
		return
	}
	t, err := a.loadTicket(r, caller)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	msg, err := a.tickets.AddMessage(r.Context(), t.ID, userID, req.Content)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

func (a *API) updateTicketStatus(w http.ResponseWriter, r *http.Request) {
	caller, err := a.ticketAccess(r, auth.ActionWrite)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	var req updateStatusRequest
	if err := a.decodeJSON(r, &req); err != nil {
		a.respondError(w, r, err)
		return
	}
	t, err := a.loadTicket(r, caller)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	updated, err := a.tickets.UpdateStatus(r.Context(), t.ID, req.Status)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "ticket.status", map[string]any{
		"ticket_id": updated.ID,
		"status":    string(updated.Status),
	})
	writeJSON(w, http.StatusOK, updated)
}
