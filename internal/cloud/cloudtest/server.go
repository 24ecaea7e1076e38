// Package cloudtest runs an in-process control plane for tests. Operations
// follow a scripted status sequence so callers can exercise polling,
// failures and verification without a real backend.
package cloudtest

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"evalgo.org/portico/internal/config"
	"evalgo.org/portico/models"
)

const issuer = "portico-cloudtest"

// Server is a fake control plane.
type Server struct {
	URL string

	echo   *echo.Echo
	http   *httptest.Server
	secret []byte

	mu          sync.Mutex
	instances   map[string]*models.CloudInstance
	operations  map[string]*operation
	script      []models.OperationStatus
	failMessage string
	finalStatus string
	finalDSN    string
	deriveDSN   bool
	listDelay   time.Duration
	failures    map[string]*models.APIError
	opFetches   int
}

type operation struct {
	id       string
	org      string
	name     string
	statuses []models.OperationStatus
	pos      int
	message  string
}

func (o *operation) current() models.OperationStatus {
	return o.statuses[o.pos]
}

func (o *operation) view() *models.Operation {
	return &models.Operation{ID: o.id, Status: o.current(), Message: o.message}
}

// New starts a fake control plane and stops it when the test ends. New
// operations complete immediately until SetScript is called.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		secret:      []byte("cloudtest-secret"),
		instances:   map[string]*models.CloudInstance{},
		operations:  map[string]*operation{},
		script:      []models.OperationStatus{models.OperationCompleted},
		finalStatus: models.StatusAvailable,
		deriveDSN:   true,
		failures:    map[string]*models.APIError{},
	}
	s.echo = s.routes()
	s.http = httptest.NewServer(s.echo)
	s.URL = s.http.URL + "/v1/"
	t.Cleanup(s.http.Close)
	return s
}

// Config returns client settings pointing at the server with a valid key.
func (s *Server) Config() config.CloudConfig {
	return config.CloudConfig{
		APIURL:           s.URL,
		SecretKey:        s.Token(time.Hour),
		RequestTimeout:   5 * time.Second,
		ProbeConcurrency: 4,
	}
}

// Token signs a secret key valid for ttl. A negative ttl yields an expired key.
func (s *Server) Token(ttl time.Duration) string {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
		Issuer:    issuer,
		Subject:   "cloudtest-user",
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		panic(err)
	}
	return token
}

// SetScript sets the status sequence of operations created from now on. The
// first status is returned by the create/upgrade call itself; each fetch
// advances one step and the last status repeats.
func (s *Server) SetScript(statuses ...models.OperationStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.script = append([]models.OperationStatus(nil), statuses...)
}

// SetFailureMessage sets the message attached to operations.
func (s *Server) SetFailureMessage(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failMessage = msg
}

// SetFinalInstance sets what an instance looks like once its operation
// completes. By default it becomes available with a DSN derived from its name.
func (s *Server) SetFinalInstance(status, dsn string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finalStatus = status
	s.finalDSN = dsn
	s.deriveDSN = false
}

// SetListDelay delays the instance list response.
func (s *Server) SetListDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listDelay = d
}

// Fail makes every request for "METHOD /path" (path relative to the API
// root, e.g. "DELETE orgs/acme/instances/db1") return the error.
func (s *Server) Fail(route string, code int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[route] = &models.APIError{Code: code, Message: message}
}

// AddInstance stores an instance record.
func (s *Server) AddInstance(inst models.CloudInstance) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if inst.ID == "" {
		inst.ID = models.GenerateID("inst")
	}
	s.instances[models.InstanceRef(inst.Org, inst.Name)] = &inst
}

// Instance returns a copy of a stored instance.
func (s *Server) Instance(org, name string) (models.CloudInstance, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inst, ok := s.instances[models.InstanceRef(org, name)]
	if !ok {
		return models.CloudInstance{}, false
	}
	return *inst, true
}

// OperationFetches counts GET operations/{id} requests served.
func (s *Server) OperationFetches() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opFetches
}

func (s *Server) routes() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = HTTPErrorHandler

	api := e.Group("/v1", s.authenticate, s.injectFailures)
	api.GET("/instances/", s.listInstances)
	api.GET("/orgs/:org/instances/:name", s.getInstance)
	api.POST("/orgs/:org/instances", s.createInstance)
	api.PUT("/orgs/:org/instances/:name", s.upgradeInstance)
	api.DELETE("/orgs/:org/instances/:name", s.deleteInstance)
	api.GET("/operations/:id", s.getOperation)
	return e
}

// authenticate validates the bearer secret key.
func (s *Server) authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get("Authorization")
		tokenString, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || tokenString == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "missing secret key")
		}

		_, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		}, jwt.WithIssuer(issuer))
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				return echo.NewHTTPError(http.StatusUnauthorized, "secret key has expired")
			}
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid secret key")
		}
		return next(c)
	}
}

func (s *Server) injectFailures(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		route := c.Request().Method + " " + strings.TrimPrefix(c.Request().URL.Path, "/v1/")
		s.mu.Lock()
		apiErr, ok := s.failures[route]
		s.mu.Unlock()
		if ok {
			return apiErr
		}
		return next(c)
	}
}

func (s *Server) listInstances(c echo.Context) error {
	s.mu.Lock()
	delay := s.listDelay
	out := make([]models.CloudInstance, 0, len(s.instances))
	for _, inst := range s.instances {
		out = append(out, *inst)
	}
	s.mu.Unlock()
	slices.SortFunc(out, func(a, b models.CloudInstance) int {
		return strings.Compare(a.Ref(), b.Ref())
	})

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-c.Request().Context().Done():
			return c.Request().Context().Err()
		}
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) getInstance(c echo.Context) error {
	inst, ok := s.Instance(c.Param("org"), c.Param("name"))
	if !ok {
		return notFound(c.Param("org"), c.Param("name"))
	}
	return c.JSON(http.StatusOK, inst)
}

func (s *Server) createInstance(c echo.Context) error {
	var req models.CreateInstanceRequest
	if err := c.Bind(&req); err != nil {
		return &models.APIError{Code: http.StatusBadRequest, Message: "Invalid request body", Details: err.Error()}
	}
	if req.Org != c.Param("org") {
		return &models.APIError{Code: http.StatusBadRequest, Message: "Organization mismatch"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	ref := models.InstanceRef(req.Org, req.Name)
	if _, exists := s.instances[ref]; exists {
		return &models.APIError{Code: http.StatusConflict, Message: "Instance already exists", Details: ref}
	}
	s.instances[ref] = &models.CloudInstance{
		ID:      models.GenerateID("inst"),
		Name:    req.Name,
		Org:     req.Org,
		Status:  "creating",
		Version: req.Version,
	}
	return c.JSON(http.StatusCreated, s.startOperation(req.Org, req.Name))
}

func (s *Server) upgradeInstance(c echo.Context) error {
	var req models.UpgradeInstanceRequest
	if err := c.Bind(&req); err != nil {
		return &models.APIError{Code: http.StatusBadRequest, Message: "Invalid request body", Details: err.Error()}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	inst, ok := s.instances[models.InstanceRef(c.Param("org"), c.Param("name"))]
	if !ok {
		return notFound(c.Param("org"), c.Param("name"))
	}
	inst.Version = req.Version
	inst.Status = "upgrading"
	return c.JSON(http.StatusOK, s.startOperation(inst.Org, inst.Name))
}

func (s *Server) deleteInstance(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ref := models.InstanceRef(c.Param("org"), c.Param("name"))
	if _, ok := s.instances[ref]; !ok {
		return notFound(c.Param("org"), c.Param("name"))
	}
	delete(s.instances, ref)
	return c.JSON(http.StatusOK, &models.Operation{
		ID:      models.GenerateID("op"),
		Status:  models.OperationCompleted,
		Message: "instance deleted",
	})
}

func (s *Server) getOperation(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opFetches++
	op, ok := s.operations[c.Param("id")]
	if !ok {
		return &models.APIError{Code: http.StatusNotFound, Message: "Operation not found", Details: c.Param("id")}
	}
	if op.pos < len(op.statuses)-1 {
		op.pos++
	}
	s.settle(op)
	return c.JSON(http.StatusOK, op.view())
}

// startOperation must be called with s.mu held.
func (s *Server) startOperation(org, name string) *models.Operation {
	op := &operation{
		id:       models.GenerateID("op"),
		org:      org,
		name:     name,
		statuses: append([]models.OperationStatus(nil), s.script...),
		message:  s.failMessage,
	}
	s.operations[op.id] = op
	s.settle(op)
	return op.view()
}

// settle applies the final instance state once op completes. Must be called
// with s.mu held.
func (s *Server) settle(op *operation) {
	if op.current() != models.OperationCompleted {
		return
	}
	inst, ok := s.instances[models.InstanceRef(op.org, op.name)]
	if !ok {
		return
	}
	inst.Status = s.finalStatus
	inst.DSN = s.finalDSN
	if s.deriveDSN {
		inst.DSN = fmt.Sprintf("edgedb://%s--%s.cloudtest", op.name, op.org)
	}
}

func notFound(org, name string) error {
	return &models.APIError{
		Code:    http.StatusNotFound,
		Message: "Instance not found",
		Details: models.InstanceRef(org, name),
	}
}
