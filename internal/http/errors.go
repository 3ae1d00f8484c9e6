package http

import (
	"errors"
	"net/http"

	"seguimiento/internal/core"
	"seguimiento/internal/editbuffer"
	"seguimiento/internal/gateway"
	"seguimiento/internal/log"
	"seguimiento/internal/session"
)

// inputError is a request that failed validation before reaching the gateway.
type inputError struct{ msg string }

func (e *inputError) Error() string { return e.msg }

func invalidInput(msg string) error { return &inputError{msg: msg} }

var (
	errUnauthenticated = errors.New("sesión requerida")
	errForbidden       = errors.New("se requieren permisos de administrador")
)

// validationMessages are the user-facing texts of the core sentinels.
var validationMessages = []struct {
	err error
	msg string
}{
	{core.ErrInvalidMonth, "Mes inválido"},
	{core.ErrInvalidYear, "Año inválido"},
	{core.ErrEmptyEmail, "El correo es obligatorio"},
	{core.ErrEmptyPassword, "La contraseña es obligatoria"},
	{core.ErrEmptyProject, "El proyecto es obligatorio"},
	{core.ErrEmptyActivity, "La actividad es obligatoria"},
	{core.ErrNoFinancialValues, "Debe ingresar al menos un valor financiero"},
	{editbuffer.ErrUnknownField, "Campo de edición desconocido"},
}

// statusFor maps an error to its HTTP status and the message returned to
// the client.
func statusFor(err error) (int, string) {
	var ie *inputError
	if errors.As(err, &ie) {
		return http.StatusUnprocessableEntity, ie.msg
	}
	for _, v := range validationMessages {
		if errors.Is(err, v.err) {
			return http.StatusUnprocessableEntity, v.msg
		}
	}

	var be *gateway.BusinessError
	switch {
	case errors.Is(err, errUnauthenticated),
		errors.Is(err, session.ErrNotFound),
		errors.Is(err, session.ErrExpired):
		return http.StatusUnauthorized, "Sesión inválida o expirada"
	case errors.Is(err, errForbidden):
		return http.StatusForbidden, "Se requieren permisos de administrador"
	case errors.Is(err, core.ErrMonthNotEditable):
		return http.StatusConflict, "Solo se puede editar el mes activo"
	case errors.Is(err, editbuffer.ErrNothingStaged):
		return http.StatusConflict, "No hay cambios pendientes para guardar"
	case errors.As(err, &be):
		if be.Message == "" {
			return http.StatusConflict, "La operación fue rechazada"
		}
		return http.StatusConflict, be.Message
	case errors.Is(err, gateway.ErrTransport):
		return http.StatusBadGateway, "No se pudo contactar el servicio de datos"
	default:
		return http.StatusInternalServerError, "Error interno"
	}
}

// writeError logs err and sends the {success: false, message} body.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := statusFor(err)
	logger := log.FromContext(r.Context())
	fields := log.NewFields().WithError(err)
	fields[log.FieldStatusCode] = status
	fields.WithErrorType(errorType(status))
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "Request failed", fields.ToSlice()...)
	} else {
		logger.WarnContext(r.Context(), "Request rejected", fields.ToSlice()...)
	}
	_ = NewJSONResponse().Fail(status, msg).Write(w)
}

func errorType(status int) string {
	switch status {
	case http.StatusUnprocessableEntity:
		return log.ErrorTypeValidation
	case http.StatusUnauthorized, http.StatusForbidden:
		return log.ErrorTypeAuth
	case http.StatusConflict:
		return log.ErrorTypeConflict
	case http.StatusBadGateway:
		return log.ErrorTypeNetwork
	default:
		return log.ErrorTypeInternal
	}
}
