package http

import (
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/sync/errgroup"

	"seguimiento/internal/activity"
	"seguimiento/internal/core"
	"seguimiento/internal/log"
	"seguimiento/internal/session"
)

func (s *Server) handleSaveFinancial(w http.ResponseWriter, r *http.Request, sess session.Session) {
	var in core.FinancialInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	in.Project = sanitizeInput(in.Project)
	in.BPIN = sanitizeInput(in.BPIN)
	rows, err := in.Records()
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := s.deps.Gateway.SaveFinancial(r.Context(), rows)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.record(r, sess.Email, activity.ActionFinancialSaved,
		fmt.Sprintf("Datos financieros guardados: %s - %s %d (%d valores)", in.Project, core.MonthName(in.Month), in.Year, len(rows)))
	log.FromContext(r.Context()).InfoContext(r.Context(), "Financial rows saved",
		log.FieldOperation, log.OpAppend,
		log.FieldProject, in.Project,
		log.FieldRows, len(rows))
	_ = NewJSONResponse().Message("Datos financieros guardados").Data(res).Write(w)
}

type activeMonthRequest struct {
	Month string `json:"mes"`
}

func (s *Server) handleSetActiveMonth(w http.ResponseWriter, r *http.Request, sess session.Session) {
	var req activeMonthRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	m, err := core.ParseMonth(req.Month)
	if err != nil {
		writeError(w, r, err)
		return
	}
	month := core.MonthName(m)
	res, err := s.deps.Gateway.SetActiveMonth(r.Context(), month)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.record(r, sess.Email, activity.ActionActiveMonthSet, "Mes activo establecido a "+month)
	_ = NewJSONResponse().Message("Mes activo actualizado").Data(res).Write(w)
}

type versionRequest struct {
	Version string `json:"version"`
}

func (s *Server) handleSetVersion(w http.ResponseWriter, r *http.Request, sess session.Session) {
	var req versionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	version := sanitizeInput(req.Version)
	if version == "" {
		writeError(w, r, invalidInput("La versión es obligatoria"))
		return
	}
	res, err := s.deps.Gateway.SetConfig(r.Context(), "version", version)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.rememberVersion(r.Context(), version)
	s.record(r, sess.Email, activity.ActionVersionSet, "Versión establecida a "+version)
	_ = NewJSONResponse().Message("Versión actualizada").Data(res).Write(w)
}

// selectors are the option lists of the admin financial form.
type selectors struct {
	Projects   []string `json:"proyectos"`
	BPINs      []string `json:"bpins"`
	ValueTypes []string `json:"tiposValor"`
}

// handleSelectors loads the three lists in parallel. A failing list is
// replaced by its default so the form stays usable.
func (s *Server) handleSelectors(w http.ResponseWriter, r *http.Request, _ session.Session) {
	var out selectors
	logger := log.FromContext(r.Context())
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		v, err := s.deps.Gateway.UniqueProjects(ctx)
		if err != nil {
			logger.WarnContext(ctx, "Project selector unavailable", log.FieldError, err.Error())
			v = nil
		}
		out.Projects = orEmpty(v)
		return nil
	})
	g.Go(func() error {
		v, err := s.deps.Gateway.UniqueBPINs(ctx)
		if err != nil {
			logger.WarnContext(ctx, "BPIN selector unavailable", log.FieldError, err.Error())
			v = nil
		}
		out.BPINs = orEmpty(v)
		return nil
	})
	g.Go(func() error {
		v, err := s.deps.Gateway.UniqueValueTypes(ctx)
		if err != nil || len(v) == 0 {
			if err != nil {
				logger.WarnContext(ctx, "Value type selector unavailable", log.FieldError, err.Error())
			}
			v = append([]string(nil), core.DefaultValueTypes...)
		}
		out.ValueTypes = v
		return nil
	})
	_ = g.Wait()
	writeData(w, out)
}

func orEmpty(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

// handleLegacyProject forwards a project form to the gateway's {tipo, datos} POST.
func (s *Server) handleLegacyProject(w http.ResponseWriter, r *http.Request, _ session.Session) {
	var datos map[string]any
	if err := decodeJSON(w, r, &datos); err != nil {
		writeError(w, r, err)
		return
	}
	if len(datos) == 0 {
		writeError(w, r, invalidInput("Los datos del proyecto son obligatorios"))
		return
	}
	res, err := s.deps.Gateway.PostLegacy(r.Context(), "proyecto", datos)
	if err != nil {
		writeError(w, r, err)
		return
	}
	_ = NewJSONResponse().Message("Proyecto enviado").Data(res).Write(w)
}

// handleListUsers lists the users without their passwords.
func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request, _ session.Session) {
	users, err := s.deps.Gateway.Users(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]core.User, 0, len(users))
	for _, u := range users {
		out = append(out, core.User{Email: u.Email})
	}
	writeData(w, out)
}

type usersRequest struct {
	Users []core.User `json:"usuarios"`
}

func (s *Server) handleReplaceUsers(w http.ResponseWriter, r *http.Request, _ session.Session) {
	var req usersRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	for i := range req.Users {
		req.Users[i].Email = sanitizeInput(req.Users[i].Email)
	}
	res, err := s.deps.Gateway.SetUsers(r.Context(), req.Users)
	if err != nil {
		writeError(w, r, err)
		return
	}
	_ = NewJSONResponse().Message("Usuarios actualizados").Data(res).Write(w)
}

func (s *Server) handleAddUser(w http.ResponseWriter, r *http.Request, _ session.Session) {
	var u core.User
	if err := decodeJSON(w, r, &u); err != nil {
		writeError(w, r, err)
		return
	}
	u.Email = sanitizeInput(u.Email)
	if u.Password == "" {
		writeError(w, r, core.ErrEmptyPassword)
		return
	}
	res, err := s.deps.Gateway.AddUser(r.Context(), u)
	if err != nil {
		writeError(w, r, err)
		return
	}
	_ = NewJSONResponse().Status(http.StatusCreated).Message("Usuario agregado").Data(res).Write(w)
}

// handleRemoveUser deletes the user named by ?email. Administrators cannot
// remove their own account.
func (s *Server) handleRemoveUser(w http.ResponseWriter, r *http.Request, sess session.Session) {
	email := sanitizeInput(r.URL.Query().Get("email"))
	if email == "" {
		writeError(w, r, core.ErrEmptyEmail)
		return
	}
	if strings.EqualFold(email, sess.Email) {
		writeError(w, r, invalidInput("No puede eliminar su propio usuario"))
		return
	}
	res, err := s.deps.Gateway.RemoveUser(r.Context(), email)
	if err != nil {
		writeError(w, r, err)
		return
	}
	_ = NewJSONResponse().Message("Usuario eliminado").Data(res).Write(w)
}
