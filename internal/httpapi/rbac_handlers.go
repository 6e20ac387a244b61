package httpapi

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"eeytech.com/console/internal/audit"
	"eeytech.com/console/internal/auth"
)

type createApplicationRequest struct {
	Name string `json:"name" validate:"required,min=3"`
	Slug string `json:"slug" validate:"required,min=3"`
}

type createModuleRequest struct {
	Name string `json:"name" validate:"required,min=2"`
	Slug string `json:"slug" validate:"required,min=2"`
}

type createUserRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Name     string `json:"name"`
}

type createRoleRequest struct {
	ApplicationID string `json:"applicationId" validate:"required,uuid"`
	Name          string `json:"name" validate:"required,min=3"`
	Description   string `json:"description"`
}

// permissionsRequest replaces a grant set. Grants are validated by the
// admin service, which also drops entries with no actions.
type permissionsRequest struct {
	ApplicationID string       `json:"applicationId"`
	Permissions   []auth.Grant `json:"permissions"`
}

type settingsRequest struct {
	InstanceName   string `json:"instanceName" validate:"required,min=3"`
	APIURL         string `json:"apiUrl" validate:"required,url"`
	SessionTimeout string `json:"sessionTimeout" validate:"required"`
}

func (a *API) mountAdminRoutes(r chi.Router) {
	r.Route("/applications", func(r chi.Router) {
		r.Get("/", a.listApplications)
		r.Post("/", a.createApplication)
		r.Delete("/{id}", a.deleteApplication)
		r.Get("/{id}/modules", a.listModules)
		r.Post("/{id}/modules", a.createModule)
	})
	r.Route("/users", func(r chi.Router) {
		r.Get("/", a.listUsers)
		r.Post("/", a.createUser)
		r.Post("/{id}/activate", a.setUserActive(true))
		r.Post("/{id}/deactivate", a.setUserActive(false))
		r.Get("/{id}/permissions", a.userPermissions)
		r.Put("/{id}/permissions", a.replaceUserPermissions)
		r.Post("/{id}/roles/{roleId}", a.assignRole)
		r.Delete("/{id}/roles/{roleId}", a.removeRole)
	})
	r.Route("/roles", func(r chi.Router) {
		r.Get("/", a.listRoles)
		r.Post("/", a.createRole)
		r.Put("/{id}/permissions", a.setRolePermissions)
	})
	r.Get("/settings", a.getSettings)
	r.Put("/settings", a.updateSettings)
}

func (a *API) listApplications(w http.ResponseWriter, r *http.Request) {
	apps, err := a.admin.ListApplications(r.Context())
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, apps)
}

func (a *API) createApplication(w http.ResponseWriter, r *http.Request) {
	var req createApplicationRequest
	if err := a.decodeJSON(r, &req); err != nil {
		a.respondError(w, r, err)
		return
	}
	app, err := a.admin.CreateApplication(r.Context(), req.Name, req.Slug)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "application.create", map[string]any{
		"application_id": app.ID,
		"slug":           app.Slug,
	})
	w.Header().Set("Location", fmt.Sprintf("/api/applications/%s", app.ID))
	writeJSON(w, http.StatusCreated, app)
}

func (a *API) deleteApplication(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	app, err := a.admin.DeleteApplication(r.Context(), id)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	if f, ok := a.apiKeys.(apiKeyForgetter); ok {
		if err := f.Forget(r.Context(), app.APIKey); err != nil {
			a.logger.WarnContext(r.Context(), "forget api key", slog.Any("error", err))
		}
	}
	_ = audit.LogEvent(r.Context(), "application.delete", map[string]any{"application_id": id})
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) listModules(w http.ResponseWriter, r *http.Request) {
	modules, err := a.admin.ListModules(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, modules)
}

func (a *API) createModule(w http.ResponseWriter, r *http.Request) {
	var req createModuleRequest
	if err := a.decodeJSON(r, &req); err != nil {
		a.respondError(w, r, err)
		return
	}
	module, err := a.admin.CreateModule(r.Context(), chi.URLParam(r, "id"), req.Name, req.Slug)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "module.create", map[string]any{
		"application_id": module.ApplicationID,
		"slug":           module.Slug,
	})
	writeJSON(w, http.StatusCreated, module)
}

func (a *API) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := a.admin.ListUsers(r.Context())
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (a *API) createUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := a.decodeJSON(r, &req); err != nil {
		a.respondError(w, r, err)
		return
	}
	user, err := a.admin.CreateUser(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "user.create", map[string]any{
		"target_user_id": user.ID,
		"email":          user.Email,
	})
	w.Header().Set("Location", fmt.Sprintf("/api/users/%s", user.ID))
	writeJSON(w, http.StatusCreated, user)
}

func (a *API) setUserActive(active bool) http.HandlerFunc {
	event := "user.deactivate"
	if active {
		event = "user.activate"
	}
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := a.admin.SetUserActive(r.Context(), id, active); err != nil {
			a.respondError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), event, map[string]any{"target_user_id": id})
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "isActive": active})
	}
}

func (a *API) userPermissions(w http.ResponseWriter, r *http.Request) {
	grants, err := a.admin.UserPermissions(r.Context(), chi.URLParam(r, "id"), r.URL.Query().Get("applicationId"))
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	if grants == nil {
		grants = []auth.Grant{}
	}
	writeJSON(w, http.StatusOK, grants)
}

func (a *API) replaceUserPermissions(w http.ResponseWriter, r *http.Request) {
	var req permissionsRequest
	if err := a.decodeJSON(r, &req); err != nil {
		a.respondError(w, r, err)
		return
	}
	appID := req.ApplicationID
	if appID == "" {
		appID = r.URL.Query().Get("applicationId")
	}
	userID := chi.URLParam(r, "id")
	if err := a.admin.ReplaceUserPermissions(r.Context(), userID, appID, req.Permissions); err != nil {
		a.respondError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "user.permissions.replace", map[string]any{
		"target_user_id": userID,
		"application_id": appID,
		"grants":         len(req.Permissions),
	})
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) assignRole(w http.ResponseWriter, r *http.Request) {
	userID, roleID := chi.URLParam(r, "id"), chi.URLParam(r, "roleId")
	if err := a.admin.AssignRole(r.Context(), userID, roleID); err != nil {
		a.respondError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "user.role.assign", map[string]any{"target_user_id": userID, "role_id": roleID})
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) removeRole(w http.ResponseWriter, r *http.Request) {
	userID, roleID := chi.URLParam(r, "id"), chi.URLParam(r, "roleId")
	if err := a.admin.RemoveRole(r.Context(), userID, roleID); err != nil {
		a.respondError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "user.role.remove", map[string]any{"target_user_id": userID, "role_id": roleID})
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) listRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := a.admin.ListRoles(r.Context(), r.URL.Query().Get("applicationId"))
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, roles)
}

func (a *API) createRole(w http.ResponseWriter, r *http.Request) {
	var req createRoleRequest
	if err := a.decodeJSON(r, &req); err != nil {
		a.respondError(w, r, err)
		return
	}
	role, err := a.admin.CreateRole(r.Context(), req.ApplicationID, req.Name, req.Description)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "role.create", map[string]any{
		"role_id":        role.ID,
		"application_id": role.ApplicationID,
		"slug":           role.Slug,
	})
	writeJSON(w, http.StatusCreated, role)
}

func (a *API) setRolePermissions(w http.ResponseWriter, r *http.Request) {
	var req permissionsRequest
	if err := a.decodeJSON(r, &req); err != nil {
		a.respondError(w, r, err)
		return
	}
	roleID := chi.URLParam(r, "id")
	if err := a.admin.SetRolePermissions(r.Context(), roleID, req.Permissions); err != nil {
		a.respondError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "role.permissions.replace", map[string]any{
		"role_id": roleID,
		"grants":  len(req.Permissions),
	})
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) getSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := a.admin.Settings(r.Context())
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (a *API) updateSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if err := a.decodeJSON(r, &req); err != nil {
		a.respondError(w, r, err)
		return
	}
	settings, err := a.admin.UpdateSettings(r.Context(), auth.Settings{
		InstanceName:   req.InstanceName,
		APIURL:         req.APIURL,
		SessionTimeout: req.SessionTimeout,
	})
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "settings.update", nil)
	writeJSON(w, http.StatusOK, settings)
}
