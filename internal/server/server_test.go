package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/gravadigital/urna-api/internal/auth"
	"github.com/gravadigital/urna-api/internal/config"
	"github.com/gravadigital/urna-api/internal/domain/election"
	"github.com/gravadigital/urna-api/internal/domain/session"
	"github.com/gravadigital/urna-api/internal/metrics"
	"github.com/gravadigital/urna-api/internal/middleware/identity"
	"github.com/gravadigital/urna-api/internal/notify"
	"github.com/gravadigital/urna-api/internal/services"
	"github.com/gravadigital/urna-api/internal/storage/repository"
	"github.com/gravadigital/urna-api/internal/testutil"
)

const (
	testSecret     = "server-test-secret-0123456789abcdef"
	testServiceKey = "clave-de-servicio"
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Code    int             `json:"code"`
	Kind    string          `json:"kind"`
}

type ServerSuite struct {
	suite.Suite
	store    *repository.Container
	hub      *notify.Hub
	svc      *services.Services
	verifier *auth.Verifier
	router   http.Handler
}

func TestServerSuite(t *testing.T) {
	suite.Run(t, new(ServerSuite))
}

func (s *ServerSuite) SetupTest() {
	s.store = testutil.NewStore(s.T())
	s.hub = notify.NewHub(64)
	m := metrics.NewMetricService()
	s.svc = services.New(services.Dependencies{
		Store:    s.store,
		Notifier: notify.NewNotifier(s.hub, notify.BackendMemory, m),
		Metrics:  m,
	})

	hash, err := auth.HashServiceKey(testServiceKey)
	s.Require().NoError(err)

	cfg := &config.Config{Environment: "test"}
	cfg.Server.GinMode = "test"
	cfg.Auth.JWTSecret = testSecret
	cfg.Auth.ServiceKeyHash = hash
	cfg.Notify.SSEPingInterval = time.Hour
	cfg.CORS.AllowOrigins = "*"
	cfg.CORS.AllowMethods = "GET,POST,PATCH,DELETE"
	cfg.CORS.AllowHeaders = "Authorization,Content-Type,X-Service-Key"

	s.verifier = auth.NewVerifier(testSecret, "", "")
	s.router = New(cfg, Dependencies{
		Store:    s.store,
		Services: s.svc,
		Events:   s.hub,
		Metrics:  m,
	}).Router()
}

func (s *ServerSuite) TearDownTest() {
	_ = s.hub.Close()
}

func (s *ServerSuite) token(role session.Role) (string, uuid.UUID) {
	id := uuid.New()
	tok, err := s.verifier.Issue(id, role, "", time.Hour)
	s.Require().NoError(err)
	return tok, id
}

func (s *ServerSuite) do(method, path, token string, body any, headers ...string) (*httptest.ResponseRecorder, envelope) {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		_ = json.Unmarshal(w.Body.Bytes(), &env)
	}
	return w, env
}

func (s *ServerSuite) TestPingAndHealth() {
	w, _ := s.do(http.MethodGet, "/ping", "", nil)
	s.Equal(http.StatusOK, w.Code)

	w, _ = s.do(http.MethodGet, "/health", "", nil)
	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), `"dialect":"sqlite"`)

	w, _ = s.do(http.MethodGet, "/metrics", "", nil)
	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), "urna_votes_cast_total")
}

func (s *ServerSuite) TestElectionRoutesRequireSession() {
	f := testutil.SeedElection(s.T(), s.store, election.StatusVotingOpen, "Lista Azul")

	w, env := s.do(http.MethodGet, "/api/elections/"+f.Election.ID.String(), "", nil)
	s.Equal(http.StatusUnauthorized, w.Code)
	s.Equal("not_authenticated", env.Kind)

	w, _ = s.do(http.MethodGet, "/api/elections/"+f.Election.ID.String(), "garbage", nil)
	s.Equal(http.StatusUnauthorized, w.Code)
}

func (s *ServerSuite) TestCastVoteFlow() {
	f := testutil.SeedElection(s.T(), s.store, election.StatusVotingOpen, "Lista Azul", "Lista Verde")
	other := testutil.SeedElection(s.T(), s.store, election.StatusVotingOpen, "Lista Roja")
	voter, _ := s.token(session.RoleVoter)
	path := "/api/elections/" + f.Election.ID.String()

	w, env := s.do(http.MethodPost, path+"/votes", voter, obj{"list_id": other.Lists[0].ID.String()})
	s.Equal(http.StatusUnprocessableEntity, w.Code)
	s.Equal("invalid selection, reload", env.Error)

	w, env = s.do(http.MethodPost, path+"/votes", voter, obj{"list_id": "abc"})
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("validation", env.Kind)

	w, env = s.do(http.MethodGet, path+"/has-voted", voter, nil)
	s.Equal(http.StatusOK, w.Code)
	s.Contains(string(env.Data), `"has_voted":false`)

	w, env = s.do(http.MethodPost, path+"/votes", voter, obj{"list_id": f.Lists[1].ID.String()})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var cast services.CastResult
	s.Require().NoError(json.Unmarshal(env.Data, &cast))
	s.NotContains(string(env.Data), f.Lists[1].ID.String())

	w, env = s.do(http.MethodPost, path+"/votes", voter, obj{"list_id": f.Lists[0].ID.String()})
	s.Equal(http.StatusConflict, w.Code)
	s.Equal("you already voted", env.Error)
	s.Equal("already_voted", env.Kind)

	w, env = s.do(http.MethodGet, path+"/my-ballot", voter, nil)
	s.Equal(http.StatusOK, w.Code)
	s.Contains(string(env.Data), cast.Receipt)

	w, env = s.do(http.MethodGet, path+"/has-voted", voter, nil)
	s.Equal(http.StatusOK, w.Code)
	s.Contains(string(env.Data), `"has_voted":true`)

	// receipt verification is public and never reveals the choice
	w, env = s.do(http.MethodGet, "/api/receipts/"+cast.Receipt, "", nil)
	s.Equal(http.StatusOK, w.Code)
	s.NotContains(string(env.Data), f.Lists[1].ID.String())

	w, env = s.do(http.MethodGet, path+"/results", voter, nil)
	s.Equal(http.StatusOK, w.Code)
	s.Contains(string(env.Data), `"total_votes":1`)
}

func (s *ServerSuite) TestCastVoteOnClosedElection() {
	f := testutil.SeedElection(s.T(), s.store, election.StatusVotingClosed, "Lista Azul")
	voter, _ := s.token(session.RoleVoter)

	w, env := s.do(http.MethodPost, "/api/elections/"+f.Election.ID.String()+"/votes", voter, obj{"list_id": f.Lists[0].ID.String()})
	s.Equal(http.StatusConflict, w.Code)
	s.Equal("voting is not currently open", env.Error)
}

func (s *ServerSuite) TestAdminFlow() {
	admin, _ := s.token(session.RoleAdmin)
	voter, _ := s.token(session.RoleVoter)
	start := time.Now().Add(48 * time.Hour).UTC()

	body := obj{
		"title":           "Centro de Estudiantes 2027",
		"description":     "Elección anual",
		"start_date":      start.Format(time.RFC3339),
		"end_date":        start.Add(10 * time.Hour).Format(time.RFC3339),
		"eligible_voters": 800,
	}
	w, _ := s.do(http.MethodPost, "/api/admin/elections", voter, body)
	s.Equal(http.StatusForbidden, w.Code)

	w, env := s.do(http.MethodPost, "/api/admin/elections", admin, body)
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var e election.Election
	s.Require().NoError(json.Unmarshal(env.Data, &e))
	s.Equal(election.StatusDraft, e.Status)
	base := "/api/admin/elections/" + e.ID.String()

	w, env = s.do(http.MethodPost, base+"/lists", admin, obj{"name": "Lista Azul", "color": "#0033cc"})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var l election.CandidateList
	s.Require().NoError(json.Unmarshal(env.Data, &l))

	w, _ = s.do(http.MethodPost, "/api/admin/lists/"+l.ID.String()+"/candidates", admin, obj{"full_name": "Ana Pérez"})
	s.Equal(http.StatusCreated, w.Code)

	w, env = s.do(http.MethodPost, base+"/status", admin, obj{"status": "voting_open"})
	s.Equal(http.StatusConflict, w.Code)
	s.Equal("invalid_transition", env.Kind)

	w, env = s.do(http.MethodPost, base+"/status", admin, obj{"status": "whenever"})
	s.Equal(http.StatusBadRequest, w.Code)

	for _, status := range []string{"campaign", "voting_open"} {
		w, _ = s.do(http.MethodPost, base+"/status", admin, obj{"status": status})
		s.Require().Equal(http.StatusOK, w.Code, status)
	}

	w, env = s.do(http.MethodPatch, "/api/admin/lists/"+l.ID.String(), admin, obj{"name": "Lista Celeste"})
	s.Equal(http.StatusConflict, w.Code)
	s.Equal("election_locked", env.Kind)

	w, _ = s.do(http.MethodGet, base+"/audit", admin, nil)
	s.Equal(http.StatusOK, w.Code)
	w, _ = s.do(http.MethodGet, base+"/audit", voter, nil)
	s.Equal(http.StatusForbidden, w.Code)
}

func (s *ServerSuite) TestBulkTallyNeedsServiceKey() {
	f := testutil.SeedElection(s.T(), s.store, election.StatusVotingOpen, "Lista Azul", "Lista Verde")
	admin, _ := s.token(session.RoleAdmin)
	base := "/api/admin/elections/" + f.Election.ID.String()
	dist := obj{"distribution": obj{f.Lists[0].ID.String(): 40, f.Lists[1].ID.String(): 25}}

	w, env := s.do(http.MethodPost, base+"/simulate", admin, dist)
	s.Equal(http.StatusForbidden, w.Code)
	s.Equal("unauthorized", env.Kind)

	w, _ = s.do(http.MethodPost, base+"/simulate", admin, dist, identity.ServiceKeyHeader, "wrong")
	s.Equal(http.StatusForbidden, w.Code)

	w, env = s.do(http.MethodPost, base+"/simulate", admin, dist, identity.ServiceKeyHeader, testServiceKey)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	s.Contains(string(env.Data), `"votes_added":65`)

	w, _ = s.do(http.MethodPost, base+"/simulate", admin, obj{"distribution": obj{"nope": 1}}, identity.ServiceKeyHeader, testServiceKey)
	s.Equal(http.StatusBadRequest, w.Code)

	w, _ = s.do(http.MethodPost, base+"/reset", admin, nil)
	s.Equal(http.StatusForbidden, w.Code)

	w, _ = s.do(http.MethodPost, base+"/reset", admin, nil, identity.ServiceKeyHeader, testServiceKey)
	s.Equal(http.StatusOK, w.Code)

	e, err := s.store.Elections().GetByID(context.Background(), f.Election.ID)
	s.Require().NoError(err)
	s.Zero(e.TotalVotes)
}

func (s *ServerSuite) TestStreamDeliversEvents() {
	f := testutil.SeedElection(s.T(), s.store, election.StatusVotingOpen, "Lista Azul")
	voter, _ := s.token(session.RoleVoter)

	srv := httptest.NewServer(s.router)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/elections/"+f.Election.ID.String()+"/stream", nil)
	s.Require().NoError(err)
	req.Header.Set("Authorization", "Bearer "+voter)

	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.Contains(resp.Header.Get("Content-Type"), "text/event-stream")

	lines := bufio.NewScanner(resp.Body)
	next := func() string {
		for lines.Scan() {
			if strings.HasPrefix(lines.Text(), "event:") {
				return strings.TrimPrefix(lines.Text(), "event:")
			}
		}
		return ""
	}

	s.Equal("state", next())
	s.Require().Eventually(func() bool { return s.hub.Subscribers(f.Election.ID) == 1 }, time.Second, 10*time.Millisecond)

	_, err = s.svc.Voting.CastVote(context.Background(), testutil.Voter(), f.Election.ID, f.Lists[0].ID)
	s.Require().NoError(err)
	s.Equal(string(notify.KindBallotRecorded), next())
}

func (s *ServerSuite) TestUnknownElectionIs404() {
	voter, _ := s.token(session.RoleVoter)
	w, env := s.do(http.MethodGet, "/api/elections/"+uuid.NewString(), voter, nil)
	s.Equal(http.StatusNotFound, w.Code)
	s.Equal("not_found", env.Kind)

	w, _ = s.do(http.MethodGet, "/api/elections/not-a-uuid", voter, nil)
	s.Equal(http.StatusBadRequest, w.Code)
}

type obj = map[string]any
