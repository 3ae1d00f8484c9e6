// Package memory is an in-process gateway used for development and tests.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"seguimiento/internal/core"
	"seguimiento/internal/gateway"
)

// Seed file names read by NewFromFiles.
const (
	ProjectsFile  = "proyectos.json"
	FinancialFile = "financiera.json"
	UsersFile     = "usuarios.json"
)

type Store struct {
	mu        sync.Mutex
	projects  []core.Record
	financial []core.Record
	users     []core.User
	admins    map[string]bool
	config    core.EditConfig
	logs      []core.LogEntry
	legacy    []any
	now       func() time.Time
}

var _ gateway.Gateway = (*Store)(nil)

func New(projects, financial []core.Record, users []core.User) *Store {
	return &Store{
		projects:  projects,
		financial: financial,
		users:     dedupeUsers(users),
		admins:    map[string]bool{},
		config:    core.DefaultEditConfig(),
		now:       time.Now,
	}
}

// NewFromFiles seeds the store from JSON arrays in base. Missing files leave
// the corresponding data empty; users default to one admin account.
func NewFromFiles(base string) (*Store, error) {
	var projects, financial []core.Record
	var users []core.User
	if err := readJSON(filepath.Join(base, ProjectsFile), &projects); err != nil {
		return nil, err
	}
	if err := readJSON(filepath.Join(base, FinancialFile), &financial); err != nil {
		return nil, err
	}
	if err := readJSON(filepath.Join(base, UsersFile), &users); err != nil {
		return nil, err
	}
	if len(users) == 0 {
		users = []core.User{{Email: "admin@localhost", Password: "admin"}}
	}
	s := New(projects, financial, users)
	s.admins[strings.ToLower(users[0].Email)] = true
	return s, nil
}

func readJSON(path string, dst any) error {
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read seed %s: %w", path, err)
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return fmt.Errorf("parse seed %s: %w", path, err)
	}
	return nil
}

// SetAdmin marks email as an administrator.
func (s *Store) SetAdmin(email string, admin bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.admins[strings.ToLower(strings.TrimSpace(email))] = admin
}

func (s *Store) Dataset(_ context.Context) (core.Dataset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return core.DecodeDataset(s.projects, s.financial), nil
}

func (s *Store) SaveFinancial(_ context.Context, rows []core.Record) (core.WriteResult, error) {
	if len(rows) == 0 {
		return core.WriteResult{}, core.ErrNoFinancialValues
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range rows {
		cp := make(core.Record, len(r))
		for k, v := range r {
			cp[k] = v
		}
		s.financial = append(s.financial, cp)
	}
	return ok(fmt.Sprintf("%d filas guardadas", len(rows))), nil
}

func (s *Store) Config(_ context.Context) (core.EditConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.config, nil
}

func (s *Store) SetConfig(_ context.Context, key, value string) (core.WriteResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch key {
	case "version":
		s.config.Version = value
	case "mesActivo":
		s.config.ActiveMonth = strings.ToLower(value)
	case "activo":
		s.config.Active = value == "true"
	default:
		return core.WriteResult{}, &gateway.BusinessError{Action: "setConfig", Message: "clave desconocida: " + key}
	}
	return ok(""), nil
}

func (s *Store) SetActiveMonth(_ context.Context, month string) (core.WriteResult, error) {
	if _, err := core.ParseMonth(month); err != nil {
		return core.WriteResult{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config.ActiveMonth = strings.ToLower(strings.TrimSpace(month))
	return ok(""), nil
}

// findActivity returns the index of the activity row of project, mirroring
// the gateway's lookup by names.
func (s *Store) findActivity(project, activity string) (int, error) {
	for i, r := range s.projects {
		if r.Get(core.ColProject...) != project {
			continue
		}
		if r.Get(core.ColActivity...) == activity || r.Get(core.ColObjective...) == activity {
			return i, nil
		}
	}
	return -1, &gateway.BusinessError{Action: "update", Message: fmt.Sprintf("actividad no encontrada: %s / %s", project, activity)}
}

func (s *Store) UpdateMonthlyProgress(_ context.Context, project, activity, month, value string) (core.WriteResult, error) {
	m, err := core.ParseMonth(month)
	if err != nil {
		return core.WriteResult{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i, err := s.findActivity(project, activity)
	if err != nil {
		return core.WriteResult{}, err
	}
	s.projects[i][strings.ToUpper(core.MonthName(m))] = value
	return core.WriteResult{Success: true, Debug: map[string]any{"fila": i + 2}}, nil
}

func (s *Store) UpdateOverallProgress(_ context.Context, project, activity, value string) (core.WriteResult, error) {
	return s.setField(project, activity, core.ColOverall[0], value)
}

func (s *Store) UpdateObservation(_ context.Context, project, activity, observation string) (core.WriteResult, error) {
	return s.setField(project, activity, core.ColObservation[0], observation)
}

func (s *Store) setField(project, activity, key, value string) (core.WriteResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, err := s.findActivity(project, activity)
	if err != nil {
		return core.WriteResult{}, err
	}
	s.projects[i][key] = value
	return core.WriteResult{Success: true, Debug: map[string]any{"fila": i + 2}}, nil
}

// ColumnNames lists the headers seen in each seed.
func (s *Store) ColumnNames(_ context.Context) (json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[string]any{
		"success":    true,
		"principal":  headerNames(s.projects),
		"financiera": headerNames(s.financial),
	}
	b, err := json.Marshal(out)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func headerNames(rows []core.Record) []string {
	seen := map[string]struct{}{}
	for _, r := range rows {
		for k := range r {
			seen[k] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (s *Store) VerifyAccess(_ context.Context, email, password string) (core.AccessResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, strings.TrimSpace(email)) && u.Password == password {
			return core.AccessResult{Success: true}, nil
		}
	}
	return core.AccessResult{Success: false, Message: "Credenciales inválidas"}, nil
}

func (s *Store) VerifyAdmin(_ context.Context, email string) (core.AccessResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return core.AccessResult{Success: true, IsAdmin: s.admins[strings.ToLower(strings.TrimSpace(email))]}, nil
}

func (s *Store) Users(_ context.Context) ([]core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.User(nil), s.users...), nil
}

func (s *Store) SetUsers(_ context.Context, users []core.User) (core.WriteResult, error) {
	for _, u := range users {
		if err := u.Validate(); err != nil {
			return core.WriteResult{}, err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = dedupeUsers(users)
	return ok(""), nil
}

func (s *Store) AddUser(_ context.Context, u core.User) (core.WriteResult, error) {
	if err := u.Validate(); err != nil {
		return core.WriteResult{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return core.WriteResult{}, &gateway.BusinessError{Action: "addUser", Message: "El usuario ya existe"}
		}
	}
	s.users = append(s.users, u)
	return ok(""), nil
}

func (s *Store) RemoveUser(_ context.Context, email string) (core.WriteResult, error) {
	if strings.TrimSpace(email) == "" {
		return core.WriteResult{}, core.ErrEmptyEmail
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.users[:0]
	removed := false
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			removed = true
			continue
		}
		out = append(out, u)
	}
	s.users = out
	if !removed {
		return core.WriteResult{}, &gateway.BusinessError{Action: "removeUser", Message: "Usuario no encontrado"}
	}
	return ok(""), nil
}

func (s *Store) UniqueProjects(_ context.Context) ([]string, error) {
	return s.unique(core.ColProject), nil
}

func (s *Store) UniqueBPINs(_ context.Context) ([]string, error) {
	return s.unique(core.ColBPIN), nil
}

func (s *Store) UniqueValueTypes(_ context.Context) ([]string, error) {
	return s.unique(core.ColValueType), nil
}

func (s *Store) unique(keys []string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := map[string]struct{}{}
	var out []string
	for _, r := range s.financial {
		v := r.Get(keys...)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func (s *Store) RecordActivity(_ context.Context, email, action, description string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, core.LogEntry{
		Email:       email,
		Action:      action,
		Description: description,
		Date:        s.now().Format(time.RFC3339),
	})
	return nil
}

// RecentActivity returns the newest entries first.
func (s *Store) RecentActivity(_ context.Context, limit int) ([]core.LogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.logs)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]core.LogEntry, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, s.logs[i])
	}
	return out, nil
}

func (s *Store) PostLegacy(_ context.Context, kind string, data any) (core.WriteResult, error) {
	if strings.TrimSpace(kind) == "" {
		return core.WriteResult{}, &gateway.BusinessError{Action: "post", Message: "tipo requerido"}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.legacy = append(s.legacy, map[string]any{"tipo": kind, "datos": data})
	return ok(""), nil
}

// LegacyPosts returns the {tipo, datos} bodies received so far.
func (s *Store) LegacyPosts() []any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]any(nil), s.legacy...)
}

func ok(msg string) core.WriteResult {
	return core.WriteResult{Success: true, Message: msg}
}

func dedupeUsers(in []core.User) []core.User {
	seen := map[string]struct{}{}
	out := make([]core.User, 0, len(in))
	for _, u := range in {
		key := strings.ToLower(strings.TrimSpace(u.Email))
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, u)
	}
	return out
}
