// Package gateway declares the ports through which the service reads and
// writes the remote spreadsheet gateway. Backends live in subpackages.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"seguimiento/internal/core"
)

// ErrTransport marks network, status and decoding failures.
var ErrTransport = errors.New("gateway transport error")

// BusinessError is a {success: false, message} reply from the gateway.
type BusinessError struct {
	Action  string
	Message string
}

func (e *BusinessError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("gateway %s: rejected", e.Action)
	}
	return fmt.Sprintf("gateway %s: %s", e.Action, e.Message)
}

// IsBusiness reports whether err carries a gateway rejection.
func IsBusiness(err error) bool {
	var be *BusinessError
	return errors.As(err, &be)
}

// Ports for outbound adapters.
type (
	DatasetReader interface {
		// Dataset returns every project and financial row.
		Dataset(ctx context.Context) (core.Dataset, error)
	}

	FinancialWriter interface {
		// SaveFinancial appends header-keyed financial rows.
		SaveFinancial(ctx context.Context, rows []core.Record) (core.WriteResult, error)
	}

	ConfigStore interface {
		Config(ctx context.Context) (core.EditConfig, error)
		SetConfig(ctx context.Context, key, value string) (core.WriteResult, error)
		SetActiveMonth(ctx context.Context, month string) (core.WriteResult, error)
	}

	// ProgressWriter updates the activity sheet. Projects and activities are
	// addressed by name.
	ProgressWriter interface {
		UpdateMonthlyProgress(ctx context.Context, project, activity, month, value string) (core.WriteResult, error)
		UpdateOverallProgress(ctx context.Context, project, activity, value string) (core.WriteResult, error)
		UpdateObservation(ctx context.Context, project, activity, observation string) (core.WriteResult, error)
	}

	Debugger interface {
		// ColumnNames returns the gateway's raw description of sheet headers.
		ColumnNames(ctx context.Context) (json.RawMessage, error)
	}

	Authenticator interface {
		VerifyAccess(ctx context.Context, email, password string) (core.AccessResult, error)
		VerifyAdmin(ctx context.Context, email string) (core.AccessResult, error)
	}

	UserDirectory interface {
		Users(ctx context.Context) ([]core.User, error)
		SetUsers(ctx context.Context, users []core.User) (core.WriteResult, error)
		AddUser(ctx context.Context, u core.User) (core.WriteResult, error)
		RemoveUser(ctx context.Context, email string) (core.WriteResult, error)
	}

	SelectorSource interface {
		UniqueProjects(ctx context.Context) ([]string, error)
		UniqueBPINs(ctx context.Context) ([]string, error)
		UniqueValueTypes(ctx context.Context) ([]string, error)
	}

	ActivityLog interface {
		RecordActivity(ctx context.Context, email, action, description string) error
		RecentActivity(ctx context.Context, limit int) ([]core.LogEntry, error)
	}

	// LegacyPoster sends the old {tipo, datos} POST body.
	LegacyPoster interface {
		PostLegacy(ctx context.Context, kind string, data any) (core.WriteResult, error)
	}

	// Gateway is every port at once, as served by a full backend.
	Gateway interface {
		DatasetReader
		FinancialWriter
		ConfigStore
		ProgressWriter
		Debugger
		Authenticator
		UserDirectory
		SelectorSource
		ActivityLog
		LegacyPoster
	}
)
