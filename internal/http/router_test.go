package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/sentrolokal/barangay/internal/auth"
	"github.com/sentrolokal/barangay/internal/barangay"
	"github.com/sentrolokal/barangay/internal/config"
	"github.com/sentrolokal/barangay/internal/ledger"
	"github.com/sentrolokal/barangay/internal/mailer"
	"github.com/sentrolokal/barangay/internal/repo"
	"github.com/sentrolokal/barangay/internal/request"
	"github.com/sentrolokal/barangay/internal/service"
)

type stubUserStore struct {
	users map[uuid.UUID]repo.User
}

func (s *stubUserStore) InsertUser(ctx context.Context, arg repo.InsertUserParams) (repo.User, error) {
	now := time.Now().UTC()
	user := repo.User{
		ID:           uuid.New(),
		Name:         arg.Name,
		Email:        arg.Email,
		PasswordHash: arg.PasswordHash,
		Barangay:     arg.Barangay,
		Role:         arg.Role,
		Verified:     arg.Verified,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.users[user.ID] = user
	return user, nil
}

func (s *stubUserStore) GetUserByEmail(ctx context.Context, email string) (repo.User, error) {
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return repo.User{}, repo.ErrNotFound
}

func (s *stubUserStore) GetUserByName(ctx context.Context, name string) (repo.User, error) {
	for _, u := range s.users {
		if u.Name == name {
			return u, nil
		}
	}
	return repo.User{}, repo.ErrNotFound
}

func (s *stubUserStore) GetUserByID(ctx context.Context, id uuid.UUID) (repo.User, error) {
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return repo.User{}, repo.ErrNotFound
}

func (s *stubUserStore) ListUsersByBarangay(ctx context.Context, brgy string) ([]repo.User, error) {
	var out []repo.User
	for _, u := range s.users {
		if u.Barangay == brgy {
			out = append(out, u)
		}
	}
	return out, nil
}

func (s *stubUserStore) SetUserVerified(ctx context.Context, id uuid.UUID, verified bool) error {
	u, ok := s.users[id]
	if !ok {
		return repo.ErrNotFound
	}
	u.Verified = verified
	s.users[id] = u
	return nil
}

func (s *stubUserStore) SetUserActive(ctx context.Context, id uuid.UUID, active bool) error {
	u, ok := s.users[id]
	if !ok {
		return repo.ErrNotFound
	}
	u.Active = active
	s.users[id] = u
	return nil
}

func (s *stubUserStore) UpdateUserPassword(ctx context.Context, id uuid.UUID, hash string) error {
	u, ok := s.users[id]
	if !ok {
		return repo.ErrNotFound
	}
	u.PasswordHash = hash
	s.users[id] = u
	return nil
}

type memLedger struct {
	emails map[uuid.UUID]*ledger.EmailVerification
	otps   map[uuid.UUID]*ledger.OTPRecord
}

func (m *memLedger) PutEmailToken(ctx context.Context, userID uuid.UUID, tokenHash string) error {
	now := time.Now().UTC()
	m.emails[userID] = &ledger.EmailVerification{TokenHash: tokenHash, CreatedAt: now, ExpiresAt: now.Add(ledger.EmailTokenTTL)}
	return nil
}

func (m *memLedger) GetEmailToken(ctx context.Context, userID uuid.UUID) (*ledger.EmailVerification, error) {
	if rec, ok := m.emails[userID]; ok {
		return rec, nil
	}
	return nil, ledger.ErrNoRecord
}

func (m *memLedger) DeleteEmailToken(ctx context.Context, userID uuid.UUID) error {
	delete(m.emails, userID)
	return nil
}

func (m *memLedger) PutOTP(ctx context.Context, userID uuid.UUID, code string) error {
	now := time.Now().UTC()
	m.otps[userID] = &ledger.OTPRecord{Code: code, CreatedAt: now, ExpiresAt: now.Add(ledger.OTPTTL)}
	return nil
}

func (m *memLedger) GetOTP(ctx context.Context, userID uuid.UUID) (*ledger.OTPRecord, error) {
	if rec, ok := m.otps[userID]; ok {
		return rec, nil
	}
	return nil, ledger.ErrNoRecord
}

func (m *memLedger) DeleteOTP(ctx context.Context, userID uuid.UUID) error {
	delete(m.otps, userID)
	return nil
}

type oneBarangay struct{}

func (oneBarangay) Resolve(ctx context.Context, slug string) (*barangay.Barangay, error) {
	if barangay.NormalizeSlug(slug) != "poblacion" {
		return nil, barangay.ErrNotFound
	}
	return &barangay.Barangay{ID: uuid.New(), Slug: "poblacion", DisplayName: "Poblacion"}, nil
}

type memRequestStore struct {
	byKind map[request.Kind][]request.Request
}

func (m *memRequestStore) Create(ctx context.Context, input request.CreateInput) (*request.Request, error) {
	r := request.Request{
		ID:           uuid.New(),
		Kind:         input.Kind,
		Barangay:     input.Barangay,
		RequesterID:  input.RequesterID,
		ResidentName: input.ResidentName,
		Purpose:      input.Purpose,
		Payload:      input.Payload,
		Status:       request.StatusPending,
		CreatedAt:    time.Now().UTC(),
	}
	m.byKind[r.Kind] = append(m.byKind[r.Kind], r)
	return &r, nil
}

func (m *memRequestStore) Get(ctx context.Context, kind request.Kind, id uuid.UUID) (*request.Request, error) {
	for _, r := range m.byKind[kind] {
		if r.ID == id {
			out := r
			return &out, nil
		}
	}
	return nil, request.ErrNotFound
}

func (m *memRequestStore) ListByBarangay(ctx context.Context, brgy string, kind request.Kind) ([]request.Request, error) {
	var out []request.Request
	for _, r := range m.byKind[kind] {
		if r.Barangay == brgy {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memRequestStore) UpdateStatus(ctx context.Context, arg request.UpdateStatusParams) (*request.Request, error) {
	for i, r := range m.byKind[arg.Kind] {
		if r.ID == arg.ID {
			r.Status = arg.Status
			if arg.DateOfIssuance != nil {
				r.DateOfIssuance = arg.DateOfIssuance
			}
			m.byKind[arg.Kind][i] = r
			return &r, nil
		}
	}
	return nil, request.ErrNotFound
}

type silentMailer struct{}

func (silentMailer) Send(ctx context.Context, msg mailer.Message) error { return nil }

type testEnv struct {
	handler  http.Handler
	identity *service.IdentityService
	users    *stubUserStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := &config.Config{
		Port:            8080,
		JWTSecret:       strings.Repeat("t", 32),
		SessionTTL:      time.Hour,
		AppBaseURL:      "http://localhost:5173",
		AllowOrigins:    []string{"http://localhost:5173"},
		RateLimitPublic: config.RateLimitConfig{RequestsPerSecond: 1000, Burst: 1000},
		RateLimitAuth:   config.RateLimitConfig{RequestsPerSecond: 1000, Burst: 1000},
	}

	users := &stubUserStore{users: make(map[uuid.UUID]repo.User)}
	verifications := &memLedger{
		emails: make(map[uuid.UUID]*ledger.EmailVerification),
		otps:   make(map[uuid.UUID]*ledger.OTPRecord),
	}
	jwtMgr := auth.NewJWTManager(cfg.JWTSecret, cfg.SessionTTL)

	identity := service.NewIdentityService(users, verifications, oneBarangay{}, silentMailer{}, jwtMgr, cfg.AppBaseURL)
	usersSvc := service.NewUsersService(users, oneBarangay{}, silentMailer{})
	requests := request.NewService(&memRequestStore{byKind: make(map[request.Kind][]request.Request)})

	handler := NewRouter(Dependencies{
		Config:   cfg,
		Identity: identity,
		Users:    usersSvc,
		Requests: requests,
	})

	return &testEnv{handler: handler, identity: identity, users: users}
}

func (e *testEnv) seedUser(t *testing.T, name, email, password, role string) repo.User {
	t.Helper()
	hash, err := auth.Hash(password)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	user, err := e.users.InsertUser(context.Background(), repo.InsertUserParams{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Barangay:     "poblacion",
		Role:         role,
		Verified:     true,
	})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func (e *testEnv) login(t *testing.T, email, password string) string {
	t.Helper()
	result, err := e.identity.Login(context.Background(), email, password)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	return result.Token
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var envelope ErrorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode error envelope: %v (%s)", err, rec.Body.String())
	}
	if envelope.Error == nil {
		t.Fatalf("no error body: %s", rec.Body.String())
	}
	return envelope.Error.Code
}

func TestSignupEndpoint(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/auth/signup", "", map[string]string{
		"name": "Juan dela Cruz", "email": "juan@example.com",
		"password": "secret123", "barangay": "poblacion",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	// missing fields
	rec = env.do(t, http.MethodPost, "/auth/signup", "", map[string]string{"email": "x@example.com"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing fields: status = %d", rec.Code)
	}

	// duplicate email
	rec = env.do(t, http.MethodPost, "/auth/signup", "", map[string]string{
		"name": "Someone Else", "email": "juan@example.com",
		"password": "secret123", "barangay": "poblacion",
	})
	if rec.Code != http.StatusBadRequest || errorCode(t, rec) != "EMAIL_TAKEN" {
		t.Fatalf("duplicate email: status = %d, code = %s", rec.Code, rec.Body.String())
	}

	// duplicate name keeps its distinct status
	rec = env.do(t, http.MethodPost, "/auth/signup", "", map[string]string{
		"name": "Juan dela Cruz", "email": "other@example.com",
		"password": "secret123", "barangay": "poblacion",
	})
	if rec.Code != http.StatusUnauthorized || errorCode(t, rec) != "NAME_TAKEN" {
		t.Fatalf("duplicate name: status = %d, code = %s", rec.Code, rec.Body.String())
	}
}

func TestLoginEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "Juan dela Cruz", "juan@example.com", "secret123", repo.RoleUser)

	rec := env.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "ghost@example.com", "password": "secret123",
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown email: status = %d", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "juan@example.com", "password": "wrong",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad password: status = %d", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "juan@example.com", "password": "secret123",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login: status = %d, body %s", rec.Code, rec.Body.String())
	}

	var cookieSet bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == "session" && c.Value != "" && c.HttpOnly {
			cookieSet = true
		}
	}
	if !cookieSet {
		t.Fatal("session cookie not set")
	}
}

func TestAuthGuard(t *testing.T) {
	env := newTestEnv(t)
	user := env.seedUser(t, "Juan dela Cruz", "juan@example.com", "secret123", repo.RoleUser)

	rec := env.do(t, http.MethodGet, "/me", "", nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("no token: status = %d", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/me", "not-a-jwt", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("invalid token: status = %d", rec.Code)
	}

	token := env.login(t, "juan@example.com", "secret123")
	rec = env.do(t, http.MethodGet, "/me", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("valid token: status = %d, body %s", rec.Code, rec.Body.String())
	}

	var envelope struct {
		Data struct {
			User repo.PublicUser `json:"user"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Data.User.ID != user.ID.String() {
		t.Fatalf("profile id = %s, want %s", envelope.Data.User.ID, user.ID)
	}
}

func TestResetTokenDoesNotOpenSession(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "Maria Santos", "maria@example.com", "secret123", repo.RoleSecretary)

	rec := env.do(t, http.MethodPost, "/auth/forgot-password", "", map[string]string{
		"email": "maria@example.com",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("forgot-password: status = %d, body %s", rec.Code, rec.Body.String())
	}

	var envelope struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Data.Token == "" {
		t.Fatal("no reset token returned")
	}

	// the correlation token must not pass the access guard
	rec = env.do(t, http.MethodGet, "/me", envelope.Data.Token, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("reset token on /me: status = %d, body %s", rec.Code, rec.Body.String())
	}
	rec = env.do(t, http.MethodGet, "/users", envelope.Data.Token, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("reset token on /users: status = %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestDocumentRequestEndpoints(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "Juan dela Cruz", "juan@example.com", "secret123", repo.RoleUser)
	env.seedUser(t, "Maria Santos", "maria@example.com", "secret123", repo.RoleSecretary)

	resident := env.login(t, "juan@example.com", "secret123")
	secretary := env.login(t, "maria@example.com", "secret123")

	rec := env.do(t, http.MethodPost, "/document-requests/barangay-clearance", resident, map[string]any{
		"purpose": "employment",
		"details": map[string]any{"address": "123 Mabini St"},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: status = %d, body %s", rec.Code, rec.Body.String())
	}

	var created struct {
		Data struct {
			Request request.Envelope `json:"request"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	id := created.Data.Request.ID

	rec = env.do(t, http.MethodPost, "/document-requests/marriage-license", resident, map[string]any{
		"purpose": "ceremony",
	})
	if rec.Code != http.StatusBadRequest || errorCode(t, rec) != "INVALID_TYPE" {
		t.Fatalf("unknown type: status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodGet, "/document-requests/", resident, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("feed: status = %d", rec.Code)
	}

	// residents cannot review
	rec = env.do(t, http.MethodPatch, "/document-requests/barangay-clearance/"+id+"/status", resident,
		map[string]string{"status": "Approved"})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("resident review: status = %d", rec.Code)
	}

	rec = env.do(t, http.MethodPatch, "/document-requests/barangay-clearance/"+id+"/status", secretary,
		map[string]string{"status": "Completed"})
	if rec.Code != http.StatusBadRequest || errorCode(t, rec) != "INVALID_TRANSITION" {
		t.Fatalf("skip approve: status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodPatch, "/document-requests/barangay-clearance/"+id+"/status", secretary,
		map[string]string{"status": "Approved"})
	if rec.Code != http.StatusOK {
		t.Fatalf("approve: status = %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestAdminOnlyBarangayListing(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "Maria Santos", "maria@example.com", "secret123", repo.RoleSecretary)

	secretary := env.login(t, "maria@example.com", "secret123")
	rec := env.do(t, http.MethodGet, "/barangays/", secretary, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("secretary barangay listing: status = %d", rec.Code)
	}
}
