// Package activity records user actions in the remote activity log without
// making the caller wait for it.
package activity

import (
	"context"
	"strings"
	"sync"
	"time"

	"seguimiento/internal/log"
)

// DefaultWriteTimeout bounds a direct write to the remote log.
const DefaultWriteTimeout = 10 * time.Second

// Action names written to the log.
const (
	ActionLogin              = "LOGIN"
	ActionLogout             = "logout"
	ActionDashboardAccess    = "dashboard_access"
	ActionChartsAccess       = "graficos_access"
	ActionFormAccess         = "formulario_access"
	ActionLogsAccess         = "logs_access"
	ActionPresentationAccess = "presentacion_access"
	ActionProgressUpdated    = "avance_actualizado"
	ActionOverallUpdated     = "avance_general_actualizado"
	ActionObservationUpdated = "observacion_actualizada"
	ActionFinancialSaved     = "financiera_guardada"
	ActionAdminAttempt       = "admin_access_attempt"
	ActionAdminGranted       = "admin_access_granted"
	ActionAdminDenied        = "admin_access_denied"
	ActionAdminError         = "admin_access_error"
	ActionVersionSet         = "SET_VERSION"
	ActionActiveMonthSet     = "SET_MES_ACTIVO"
	ActionExport             = "export_financiera"
)

// Writer is the remote log.
type Writer interface {
	RecordActivity(ctx context.Context, email, action, description string) error
}

// Publisher hands entries to a queue consumed by the activity worker.
type Publisher interface {
	PublishActivity(ctx context.Context, email, action, description string) error
}

// Recorder sends entries through a Publisher when one is configured and
// writes them to the remote log directly otherwise. Failures are logged and
// never returned.
type Recorder struct {
	writer    Writer
	publisher Publisher
	timeout   time.Duration
	logger    *log.Logger
	wg        sync.WaitGroup
}

type Option func(*Recorder)

func WithPublisher(p Publisher) Option {
	return func(r *Recorder) { r.publisher = p }
}

func WithTimeout(d time.Duration) Option {
	return func(r *Recorder) {
		if d > 0 {
			r.timeout = d
		}
	}
}

func WithLogger(l *log.Logger) Option {
	return func(r *Recorder) {
		if l != nil {
			r.logger = l
		}
	}
}

func NewRecorder(w Writer, opts ...Option) *Recorder {
	r := &Recorder{
		writer:  w,
		timeout: DefaultWriteTimeout,
		logger:  log.New(log.DefaultConfig()),
	}
	for _, o := range opts {
		o(r)
	}
	r.logger = r.logger.WithComponent(log.ComponentActivity)
	return r
}

// Record queues one entry and returns immediately. Entries without an email
// are skipped.
func (r *Recorder) Record(ctx context.Context, email, action, description string) {
	email = strings.TrimSpace(email)
	if r == nil || email == "" {
		return
	}
	// detach from the request so the write outlives the response
	base := context.WithoutCancel(ctx)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		wctx, cancel := context.WithTimeout(base, r.timeout)
		defer cancel()

		var err error
		if r.publisher != nil {
			err = r.publisher.PublishActivity(wctx, email, action, description)
		} else if r.writer != nil {
			err = r.writer.RecordActivity(wctx, email, action, description)
		}
		if err != nil {
			r.logger.WarnContext(wctx, "Activity log write failed",
				log.FieldEmail, email,
				log.FieldOperation, action,
				log.FieldError, err.Error())
		}
	}()
}

// Wait blocks until every pending write has finished.
func (r *Recorder) Wait() {
	r.wg.Wait()
}
