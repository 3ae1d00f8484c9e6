// Package appsscript is the gateway backend that talks to the published
// Apps Script web app: GET requests keyed by an action query parameter,
// plus one legacy POST.
package appsscript

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"seguimiento/internal/core"
	"seguimiento/internal/gateway"
	"seguimiento/internal/log"
)

const (
	DefaultTimeout      = 30 * time.Second
	DefaultUsersTimeout = 6 * time.Second

	maxResponseBytes = 32 << 20
)

// Client implements every gateway port over HTTP.
type Client struct {
	endpoint     string
	http         *http.Client
	usersTimeout time.Duration
	logger       *log.StructuredLogger
}

var _ gateway.Gateway = (*Client)(nil)

type Option func(*Client)

// WithHTTPClient replaces the pooled default client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithUsersTimeout bounds the user-management calls only.
func WithUsersTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.usersTimeout = d
		}
	}
}

func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.logger = log.NewStructuredLogger(l.WithComponent(log.ComponentGateway)) }
}

// New creates a client for the web app deployed at endpoint.
func New(endpoint string, timeout time.Duration, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(endpoint))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid gateway url %q", endpoint)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &Client{
		endpoint:     u.String(),
		http:         newHTTPClient(timeout),
		usersTimeout: DefaultUsersTimeout,
		logger:       log.NewStructuredLogger(log.New(log.DefaultConfig()).WithComponent(log.ComponentGateway)),
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

func newHTTPClient(timeout time.Duration) *http.Client {
	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          20,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: timeout,
		ForceAttemptHTTP2:     true,
	}
	return &http.Client{Transport: transport, Timeout: timeout}
}

// envelope is the common part of every write reply.
type envelope struct {
	Success *bool          `json:"success"`
	Message string         `json:"message"`
	Error   string         `json:"error"`
	Debug   map[string]any `json:"debug"`
}

func (e envelope) result() core.WriteResult {
	return core.WriteResult{Success: e.Success != nil && *e.Success, Message: e.message(), Debug: e.Debug}
}

func (e envelope) message() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Error
}

// call performs a GET for action and returns the raw body. An empty action
// requests the full dataset.
func (c *Client) call(ctx context.Context, action string, params url.Values) (json.RawMessage, error) {
	q := url.Values{}
	for k, v := range params {
		q[k] = v
	}
	if action != "" {
		q.Set("action", action)
	}
	target := c.endpoint
	if len(q) > 0 {
		target += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: build request: %v", gateway.ErrTransport, actionName(action), err)
	}
	return c.do(req, action)
}

func (c *Client) do(req *http.Request, action string) (json.RawMessage, error) {
	start := time.Now()
	body, err := c.roundTrip(req, action)
	c.logger.LogGatewayCall(req.Context(), actionName(action), time.Since(start).Milliseconds(), err)
	return body, err
}

func (c *Client) roundTrip(req *http.Request, action string) (json.RawMessage, error) {
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", gateway.ErrTransport, actionName(action), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: read body: %v", gateway.ErrTransport, actionName(action), err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %s: status %d", gateway.ErrTransport, actionName(action), resp.StatusCode)
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("%w: %s: response is not JSON", gateway.ErrTransport, actionName(action))
	}
	return body, nil
}

// write performs a call whose reply must carry success: true.
func (c *Client) write(ctx context.Context, action string, params url.Values) (core.WriteResult, error) {
	body, err := c.call(ctx, action, params)
	if err != nil {
		return core.WriteResult{}, err
	}
	return decodeWrite(action, body)
}

func decodeWrite(action string, body json.RawMessage) (core.WriteResult, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return core.WriteResult{}, fmt.Errorf("%w: %s: decode: %v", gateway.ErrTransport, action, err)
	}
	if env.Success == nil || !*env.Success {
		return env.result(), &gateway.BusinessError{Action: action, Message: env.message()}
	}
	return env.result(), nil
}

func actionName(action string) string {
	if action == "" {
		return "getDatos"
	}
	return action
}

// Dataset fetches the root dump.
func (c *Client) Dataset(ctx context.Context) (core.Dataset, error) {
	body, err := c.call(ctx, "", nil)
	if err != nil {
		return core.Dataset{}, err
	}
	var raw struct {
		Projects  []core.Record `json:"proyectos"`
		Financial []core.Record `json:"financiera"`
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return core.Dataset{}, fmt.Errorf("%w: getDatos: decode: %v", gateway.ErrTransport, err)
	}
	return core.DecodeDataset(raw.Projects, raw.Financial), nil
}

// SaveFinancial sends rows as the JSON-encoded datos parameter.
func (c *Client) SaveFinancial(ctx context.Context, rows []core.Record) (core.WriteResult, error) {
	data, err := json.Marshal(rows)
	if err != nil {
		return core.WriteResult{}, fmt.Errorf("encode financial rows: %w", err)
	}
	return c.write(ctx, "guardarFinanciera", url.Values{"datos": {string(data)}})
}

// Config reads the edit configuration. Callers that need a value on
// failure use core.DefaultEditConfig.
func (c *Client) Config(ctx context.Context) (core.EditConfig, error) {
	body, err := c.call(ctx, "getConfig", nil)
	if err != nil {
		return core.EditConfig{}, err
	}
	var raw struct {
		ActiveMonth string `json:"mesActivo"`
		Active      *bool  `json:"activo"`
		Version     any    `json:"version"`
		Success     *bool  `json:"success"`
		Message     string `json:"message"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return core.EditConfig{}, fmt.Errorf("%w: getConfig: decode: %v", gateway.ErrTransport, err)
	}
	if raw.Success != nil && !*raw.Success {
		return core.EditConfig{}, &gateway.BusinessError{Action: "getConfig", Message: raw.Message}
	}
	cfg := core.EditConfig{ActiveMonth: strings.ToLower(strings.TrimSpace(raw.ActiveMonth)), Active: true}
	if raw.Active != nil {
		cfg.Active = *raw.Active
	}
	switch v := raw.Version.(type) {
	case string:
		cfg.Version = strings.TrimSpace(v)
	case float64:
		cfg.Version = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return cfg, nil
}

func (c *Client) SetConfig(ctx context.Context, key, value string) (core.WriteResult, error) {
	return c.write(ctx, "setConfig", url.Values{"key": {key}, "value": {value}})
}

func (c *Client) SetActiveMonth(ctx context.Context, month string) (core.WriteResult, error) {
	return c.write(ctx, "setMes", url.Values{"mes": {month}})
}

func (c *Client) UpdateMonthlyProgress(ctx context.Context, project, activity, month, value string) (core.WriteResult, error) {
	return c.write(ctx, "updateAvance", url.Values{
		"proyectoId":  {project},
		"actividadId": {activity},
		"mes":         {month},
		"valor":       {value},
	})
}

func (c *Client) UpdateOverallProgress(ctx context.Context, project, activity, value string) (core.WriteResult, error) {
	return c.write(ctx, "updateAvanceGeneral", url.Values{
		"proyectoId":  {project},
		"actividadId": {activity},
		"valor":       {value},
	})
}

func (c *Client) UpdateObservation(ctx context.Context, project, activity, observation string) (core.WriteResult, error) {
	return c.write(ctx, "updateObservacion", url.Values{
		"proyectoId":  {project},
		"actividadId": {activity},
		"observacion": {observation},
	})
}

func (c *Client) ColumnNames(ctx context.Context) (json.RawMessage, error) {
	return c.call(ctx, "getNombres", nil)
}

// VerifyAccess checks credentials. A rejection is a normal result, not an error.
func (c *Client) VerifyAccess(ctx context.Context, email, password string) (core.AccessResult, error) {
	body, err := c.call(ctx, "verificarAcceso", url.Values{"email": {email}, "password": {password}})
	if err != nil {
		return core.AccessResult{}, err
	}
	return decodeAccess("verificarAcceso", body)
}

func (c *Client) VerifyAdmin(ctx context.Context, email string) (core.AccessResult, error) {
	body, err := c.call(ctx, "verificarAdmin", url.Values{"email": {email}})
	if err != nil {
		return core.AccessResult{}, err
	}
	return decodeAccess("verificarAdmin", body)
}

func decodeAccess(action string, body json.RawMessage) (core.AccessResult, error) {
	var raw struct {
		Success bool   `json:"success"`
		EsAdmin *bool  `json:"esAdmin"`
		IsAdmin *bool  `json:"isAdmin"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return core.AccessResult{}, fmt.Errorf("%w: %s: decode: %v", gateway.ErrTransport, action, err)
	}
	res := core.AccessResult{Success: raw.Success, Message: raw.Message}
	switch {
	case raw.EsAdmin != nil:
		res.IsAdmin = *raw.EsAdmin
	case raw.IsAdmin != nil:
		res.IsAdmin = *raw.IsAdmin
	}
	return res, nil
}

// usersContext applies the user-management timeout.
func (c *Client) usersContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.usersTimeout)
}

func (c *Client) Users(ctx context.Context) ([]core.User, error) {
	ctx, cancel := c.usersContext(ctx)
	defer cancel()
	body, err := c.call(ctx, "getUsers", nil)
	if err != nil {
		return nil, err
	}
	var raw struct {
		Success bool        `json:"success"`
		Message string      `json:"message"`
		Users   []core.User `json:"users"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: getUsers: decode: %v", gateway.ErrTransport, err)
	}
	if !raw.Success {
		return nil, &gateway.BusinessError{Action: "getUsers", Message: raw.Message}
	}
	return raw.Users, nil
}

func (c *Client) SetUsers(ctx context.Context, users []core.User) (core.WriteResult, error) {
	data, err := json.Marshal(users)
	if err != nil {
		return core.WriteResult{}, fmt.Errorf("encode users: %w", err)
	}
	ctx, cancel := c.usersContext(ctx)
	defer cancel()
	return c.write(ctx, "setUsers", url.Values{"users": {string(data)}})
}

func (c *Client) AddUser(ctx context.Context, u core.User) (core.WriteResult, error) {
	if err := u.Validate(); err != nil {
		return core.WriteResult{}, err
	}
	data, err := json.Marshal(u)
	if err != nil {
		return core.WriteResult{}, fmt.Errorf("encode user: %w", err)
	}
	ctx, cancel := c.usersContext(ctx)
	defer cancel()
	return c.write(ctx, "addUser", url.Values{
		"user":     {string(data)},
		"email":    {u.Email},
		"password": {u.Password},
	})
}

func (c *Client) RemoveUser(ctx context.Context, email string) (core.WriteResult, error) {
	if strings.TrimSpace(email) == "" {
		return core.WriteResult{}, core.ErrEmptyEmail
	}
	ctx, cancel := c.usersContext(ctx)
	defer cancel()
	return c.write(ctx, "removeUser", url.Values{"email": {email}})
}

// UniqueProjects accepts either a list of names or a list of row objects.
func (c *Client) UniqueProjects(ctx context.Context) ([]string, error) {
	body, err := c.call(ctx, "getProyectosUnicos", nil)
	if err != nil {
		return nil, err
	}
	var raw struct {
		Proyectos []json.RawMessage `json:"proyectos"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: getProyectosUnicos: decode: %v", gateway.ErrTransport, err)
	}
	return selectorValues(raw.Proyectos, "PROYECTO", "proyecto", "Proyecto"), nil
}

// UniqueBPINs reads bpins, or the BPIN field of proyectos objects.
func (c *Client) UniqueBPINs(ctx context.Context) ([]string, error) {
	body, err := c.call(ctx, "getBPINsUnicos", nil)
	if err != nil {
		return nil, err
	}
	var raw struct {
		BPINs     []json.RawMessage `json:"bpins"`
		Proyectos []json.RawMessage `json:"proyectos"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: getBPINsUnicos: decode: %v", gateway.ErrTransport, err)
	}
	if len(raw.BPINs) > 0 {
		return selectorValues(raw.BPINs, "BPIN", "bpin"), nil
	}
	return selectorValues(raw.Proyectos, "BPIN", "bpin"), nil
}

func (c *Client) UniqueValueTypes(ctx context.Context) ([]string, error) {
	body, err := c.call(ctx, "getTiposValorUnicos", nil)
	if err != nil {
		return nil, err
	}
	var raw struct {
		Success bool              `json:"success"`
		Tipos   []json.RawMessage `json:"tipos"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: getTiposValorUnicos: decode: %v", gateway.ErrTransport, err)
	}
	if !raw.Success || len(raw.Tipos) == 0 {
		return nil, &gateway.BusinessError{Action: "getTiposValorUnicos", Message: "no value types"}
	}
	return selectorValues(raw.Tipos, "Tipo de Valor", "tipo"), nil
}

// selectorValues trims, de-duplicates and sorts values that may be plain
// strings, numbers or objects carrying one of keys.
func selectorValues(items []json.RawMessage, keys ...string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(items))
	for _, item := range items {
		var v string
		var s string
		var n json.Number
		var obj core.Record
		switch {
		case json.Unmarshal(item, &s) == nil:
			v = s
		case json.Unmarshal(item, &n) == nil:
			v = n.String()
		case json.Unmarshal(item, &obj) == nil:
			v = obj.Get(keys...)
		}
		v = strings.TrimSpace(v)
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

// RecordActivity writes one activity log line.
func (c *Client) RecordActivity(ctx context.Context, email, action, description string) error {
	_, err := c.write(ctx, "registrarLog", url.Values{
		"email":       {email},
		"accion":      {action},
		"descripcion": {description},
	})
	return err
}

// RecentActivity returns up to limit log lines, newest first as sent by the gateway.
func (c *Client) RecentActivity(ctx context.Context, limit int) ([]core.LogEntry, error) {
	body, err := c.call(ctx, "obtenerLogs", url.Values{"limite": {strconv.Itoa(limit)}})
	if err != nil {
		return nil, err
	}
	var raw struct {
		Success bool          `json:"success"`
		Message string        `json:"message"`
		Logs    []core.Record `json:"logs"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: obtenerLogs: decode: %v", gateway.ErrTransport, err)
	}
	if !raw.Success {
		return nil, &gateway.BusinessError{Action: "obtenerLogs", Message: raw.Message}
	}
	out := make([]core.LogEntry, 0, len(raw.Logs))
	for _, r := range raw.Logs {
		out = append(out, core.LogEntryFromRecord(r))
	}
	return out, nil
}

// PostLegacy sends {tipo, datos} as a JSON POST body.
func (c *Client) PostLegacy(ctx context.Context, kind string, data any) (core.WriteResult, error) {
	payload, err := json.Marshal(map[string]any{"tipo": kind, "datos": data})
	if err != nil {
		return core.WriteResult{}, fmt.Errorf("encode legacy payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return core.WriteResult{}, fmt.Errorf("%w: post %s: %v", gateway.ErrTransport, kind, err)
	}
	req.Header.Set("Content-Type", "application/json")
	action := "post:" + kind
	body, err := c.do(req, action)
	if err != nil {
		return core.WriteResult{}, err
	}
	return decodeWrite(action, body)
}

// IsTimeout reports whether err came from an expired deadline.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
