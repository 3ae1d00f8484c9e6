package http

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/sync/errgroup"

	"seguimiento/internal/activity"
	"seguimiento/internal/aggregate"
	"seguimiento/internal/core"
	"seguimiento/internal/editbuffer"
	"seguimiento/internal/log"
	"seguimiento/internal/session"
)

// progressForm is the data of the progress editor.
type progressForm struct {
	Projects []aggregate.ProjectActivities `json:"proyectos"`
	Config   core.EditConfig               `json:"configuracion"`
	// VisibleMonths runs from January through the active month.
	VisibleMonths []string                    `json:"mesesVisibles"`
	Pending       map[string]editbuffer.Entry `json:"pendientes"`
}

// editConfig reads the edit configuration, falling back to the default
// when the gateway cannot provide it.
func (s *Server) editConfig(ctx context.Context) core.EditConfig {
	cfg, err := s.deps.Gateway.Config(ctx)
	if err != nil {
		log.FromContext(ctx).WarnContext(ctx, "Edit config unavailable, using default", log.FieldError, err.Error())
		return core.DefaultEditConfig()
	}
	return cfg
}

func (s *Server) handleProjects(w http.ResponseWriter, r *http.Request, sess session.Session) {
	var (
		ds  core.Dataset
		cfg core.EditConfig
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		ds, err = s.deps.Gateway.Dataset(ctx)
		return err
	})
	g.Go(func() error {
		cfg = s.editConfig(ctx)
		return nil
	})
	if err := g.Wait(); err != nil {
		writeError(w, r, err)
		return
	}

	s.record(r, sess.Email, activity.ActionFormAccess, "Usuario accedió al formulario de proyectos")
	writeData(w, progressForm{
		Projects:      s.deps.Engine.GroupActivities(ds.Projects),
		Config:        cfg,
		VisibleMonths: visibleMonths(cfg),
		Pending:       s.deps.Edits.Pending(sess.Token),
	})
}

// visibleMonths lists the months up to the active one, or all of them when
// the active month is unset or unknown.
func visibleMonths(cfg core.EditConfig) []string {
	all := core.MonthNames()
	m, err := core.ParseMonth(cfg.ActiveMonth)
	if err != nil {
		return all
	}
	return all[:m]
}

func (s *Server) handleStageEdit(w http.ResponseWriter, r *http.Request, sess session.Session) {
	var e editbuffer.Entry
	if err := decodeJSON(w, r, &e); err != nil {
		writeError(w, r, err)
		return
	}
	e.Project = sanitizeInput(e.Project)
	e.Activity = sanitizeInput(e.Activity)
	if e.Field == editbuffer.FieldMonthly {
		if m, err := core.ParseMonth(e.Month); err == nil {
			e.Month = core.MonthName(m)
		}
	}
	key, err := s.deps.Edits.Stage(sess.Token, e)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, map[string]string{"clave": key})
}

func (s *Server) handleDiscardEdits(w http.ResponseWriter, _ *http.Request, sess session.Session) {
	writeData(w, map[string]int{"descartados": s.deps.Edits.Discard(sess.Token)})
}

// saveRequest names the value to save. Value is optional: when absent the
// staged value for the same key is used.
type saveRequest struct {
	Project  string  `json:"proyecto"`
	Activity string  `json:"actividad"`
	Month    string  `json:"mes,omitempty"`
	Value    *string `json:"valor,omitempty"`
}

// pendingValue resolves the entry to save from the request and the buffer.
func (s *Server) pendingValue(w http.ResponseWriter, r *http.Request, sess session.Session, field editbuffer.Field) (editbuffer.Entry, error) {
	var req saveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return editbuffer.Entry{}, err
	}
	e := editbuffer.Entry{
		Field:    field,
		Project:  sanitizeInput(req.Project),
		Activity: sanitizeInput(req.Activity),
	}
	if field == editbuffer.FieldMonthly {
		m, err := core.ParseMonth(req.Month)
		if err != nil {
			return editbuffer.Entry{}, err
		}
		e.Month = core.MonthName(m)
	}
	if err := e.Validate(); err != nil {
		return editbuffer.Entry{}, err
	}
	if req.Value != nil {
		e.Value = *req.Value
		return e, nil
	}
	staged, ok := s.deps.Edits.Get(sess.Token, e.Key())
	if !ok {
		return editbuffer.Entry{}, editbuffer.ErrNothingStaged
	}
	e.Value = staged.Value
	return e, nil
}

// handleSaveMonthly writes a monthly progress value. Only the active month
// can be written.
func (s *Server) handleSaveMonthly(w http.ResponseWriter, r *http.Request, sess session.Session) {
	e, err := s.pendingValue(w, r, sess, editbuffer.FieldMonthly)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if cfg := s.editConfig(r.Context()); !cfg.Editable(e.Month) {
		writeError(w, r, fmt.Errorf("%w: %s", core.ErrMonthNotEditable, e.Month))
		return
	}
	res, err := s.deps.Gateway.UpdateMonthlyProgress(r.Context(), e.Project, e.Activity, e.Month, e.Value)
	s.finishSave(w, r, sess, e, res, err, activity.ActionProgressUpdated,
		fmt.Sprintf("Actualizado avance: %s - %s - %s: %s%%", e.Project, e.Activity, e.Month, e.Value))
}

func (s *Server) handleSaveOverall(w http.ResponseWriter, r *http.Request, sess session.Session) {
	e, err := s.pendingValue(w, r, sess, editbuffer.FieldOverall)
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := s.deps.Gateway.UpdateOverallProgress(r.Context(), e.Project, e.Activity, e.Value)
	s.finishSave(w, r, sess, e, res, err, activity.ActionOverallUpdated,
		fmt.Sprintf("Actualizado avance general: %s - %s: %s", e.Project, e.Activity, e.Value))
}

func (s *Server) handleSaveObservation(w http.ResponseWriter, r *http.Request, sess session.Session) {
	e, err := s.pendingValue(w, r, sess, editbuffer.FieldObservation)
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := s.deps.Gateway.UpdateObservation(r.Context(), e.Project, e.Activity, e.Value)
	s.finishSave(w, r, sess, e, res, err, activity.ActionObservationUpdated,
		fmt.Sprintf("Actualizada observación: %s - %s", e.Project, e.Activity))
}

// finishSave clears the saved entry from the buffer and logs the write.
// A failed write keeps the staged value so the user can retry.
func (s *Server) finishSave(w http.ResponseWriter, r *http.Request, sess session.Session, e editbuffer.Entry, res core.WriteResult, err error, action, description string) {
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.deps.Edits.Clear(sess.Token, e.Key())
	log.NewStructuredLogger(log.FromContext(r.Context())).
		LogProgressSaved(r.Context(), sess.Email, e.Project, e.Activity, e.Month)
	s.record(r, sess.Email, action, description)
	_ = NewJSONResponse().Message("Guardado correctamente").Data(res).Write(w)
}
