package authz

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llantera-erp/llantera-erp/internal/shared"
)

type stubSessions struct {
	active map[string]bool
	err    error
}

func (s *stubSessions) SessionActive(_ context.Context, id string) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	return s.active[id], nil
}

func newTestMiddleware(strategy Strategy) Middleware {
	return Middleware{
		Resolver:    newTestResolver(strategy, Config{}),
		TokenSecret: testSecret,
	}
}

func okHandler(called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		w.WriteHeader(http.StatusOK)
	})
}

func requestAs(p Principal, target string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, target, nil)
	return r.WithContext(ContextWithPrincipal(r.Context(), p))
}

func decodeDenial(t *testing.T, rec *httptest.ResponseRecorder) Denial {
	t.Helper()
	var den Denial
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&den))
	return den
}

func TestPrincipalFromBearerToken(t *testing.T) {
	token, err := IssueToken(testSecret, 5, "Cajera", []string{"Cajero"}, []string{"CrearFacturas"}, time.Hour)
	require.NoError(t, err)

	mw := newTestMiddleware(sellerStrategy())
	var got Principal
	handler := mw.Principal(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = PrincipalFromContext(r.Context())
	}))

	r := httptest.NewRequest(http.MethodGet, "/api/productos", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	handler.ServeHTTP(httptest.NewRecorder(), r)

	assert.True(t, got.Authenticated)
	assert.Equal(t, int64(5), got.UserID)
	assert.Equal(t, "Cajera", got.Name)
}

func TestPrincipalWithoutCredentialsIsAnonymous(t *testing.T) {
	mw := newTestMiddleware(sellerStrategy())
	var got Principal
	handler := mw.Principal(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = PrincipalFromContext(r.Context())
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.False(t, got.Authenticated)
}

func TestPrincipalRejectsForgedToken(t *testing.T) {
	forged, err := IssueToken([]byte("clave-ajena"), 5, "", nil, nil, time.Hour)
	require.NoError(t, err)

	mw := newTestMiddleware(sellerStrategy())
	var got Principal
	handler := mw.Principal(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = PrincipalFromContext(r.Context())
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer "+forged)
	handler.ServeHTTP(httptest.NewRecorder(), r)
	assert.False(t, got.Authenticated)
}

func TestRequirePermissionUnauthenticated(t *testing.T) {
	mw := newTestMiddleware(sellerStrategy())
	called := false
	handler := mw.RequirePermission("VerProductos")(okHandler(&called))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestAs(Anonymous, "/api/productos"))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, called)
	den := decodeDenial(t, rec)
	assert.Equal(t, "VerProductos", den.PermisoRequerido)
	assert.False(t, den.TienePermiso)
}

func TestRequirePermissionDenied(t *testing.T) {
	mw := newTestMiddleware(sellerStrategy())
	called := false
	handler := mw.RequirePermission("VerCostos")(okHandler(&called))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestAs(seller(), "/api/productos"))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, called)
	den := decodeDenial(t, rec)
	assert.Equal(t, "VerCostos", den.PermisoRequerido)
	assert.False(t, den.TienePermiso)
	assert.False(t, den.EsAdministrador)
	assert.Equal(t, int64(10), den.UserID)
	assert.Equal(t, "Vendedor Uno", den.Usuario)
}

func TestRequirePermissionGranted(t *testing.T) {
	mw := newTestMiddleware(sellerStrategy())
	called := false
	handler := mw.RequirePermission("VerProductos")(okHandler(&called))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestAs(seller(), "/api/productos"))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, called)
}

func TestRequirePermissionLookupFailureIs500(t *testing.T) {
	mw := newTestMiddleware(&fakeStrategy{err: errors.New("db down")})
	called := false
	handler := mw.RequirePermission("VerProductos")(okHandler(&called))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestAs(seller(), "/api/productos"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.False(t, called)
	den := decodeDenial(t, rec)
	assert.False(t, den.TienePermiso)
}

func TestRequireAnyAndAll(t *testing.T) {
	mw := newTestMiddleware(sellerStrategy())

	called := false
	any := mw.RequireAny("VerCostos", "VerProductos")(okHandler(&called))
	rec := httptest.NewRecorder()
	any.ServeHTTP(rec, requestAs(seller(), "/x"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, called)

	called = false
	all := mw.RequireAll("VerProductos", "VerCostos")(okHandler(&called))
	rec = httptest.NewRecorder()
	all.ServeHTTP(rec, requestAs(seller(), "/x"))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, called)
}

func TestSessionGatePassesAnonymousAndTokenPrincipals(t *testing.T) {
	mw := newTestMiddleware(sellerStrategy())
	mw.Sessions = &stubSessions{active: map[string]bool{}}

	called := false
	handler := mw.SessionGate(okHandler(&called))

	// anonymous
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestAs(Anonymous, "/"))
	assert.True(t, called)

	// token principal has no session id
	called = false
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, requestAs(Principal{UserID: 5, Authenticated: true}, "/"))
	assert.True(t, called)
}

func TestSessionGateRejectsRevokedSession(t *testing.T) {
	mw := newTestMiddleware(sellerStrategy())
	mw.Sessions = &stubSessions{active: map[string]bool{"viva": true}}

	called := false
	handler := mw.SessionGate(okHandler(&called))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestAs(Principal{UserID: 5, SessionID: "muerta", Authenticated: true}, "/"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, called)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, requestAs(Principal{UserID: 5, SessionID: "viva", Authenticated: true}, "/"))
	assert.True(t, called)
}

func TestSessionGateTreatsSentinelAsRevoked(t *testing.T) {
	mw := newTestMiddleware(sellerStrategy())
	mw.Sessions = &stubSessions{err: shared.ErrSessionRevoked}

	called := false
	handler := mw.SessionGate(okHandler(&called))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestAs(Principal{UserID: 5, SessionID: "muerta", Authenticated: true}, "/"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, called)
	assert.Contains(t, rec.Body.String(), "La sesión ya no está activa")
}

func TestSessionGateFailsClosedWhenCheckErrors(t *testing.T) {
	mw := newTestMiddleware(sellerStrategy())
	mw.Sessions = &stubSessions{err: errors.New("pg down")}

	called := false
	handler := mw.SessionGate(okHandler(&called))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestAs(Principal{UserID: 5, SessionID: "viva", Authenticated: true}, "/"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, called)
}

func TestRefreshSnapshotsForcedParamRedirectsGet(t *testing.T) {
	strategy := sellerStrategy()
	mw := newTestMiddleware(strategy)

	// warm the cache so the forced refresh is observable
	mw.Resolver.Check(context.Background(), seller(), "VerProductos")
	before := strategy.fetchCount()

	called := false
	handler := mw.RefreshSnapshots(okHandler(&called))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestAs(seller(), "/productos?pagina=2&"+RefreshParam+"=1"))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.False(t, called)
	location := rec.Header().Get("Location")
	assert.Contains(t, location, "/productos")
	assert.Contains(t, location, "pagina=2")
	assert.NotContains(t, location, RefreshParam)
	assert.Equal(t, before+1, strategy.fetchCount())
}

func TestRefreshSnapshotsForcedParamOnPostContinues(t *testing.T) {
	strategy := sellerStrategy()
	mw := newTestMiddleware(strategy)

	called := false
	handler := mw.RefreshSnapshots(okHandler(&called))

	r := httptest.NewRequest(http.MethodPost, "/api/facturas?"+RefreshParam+"=1", nil)
	r = r.WithContext(ContextWithPrincipal(r.Context(), seller()))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, r)

	assert.True(t, called)
	assert.Equal(t, 1, strategy.fetchCount())
}

func TestRefreshSnapshotsProactiveOnMiss(t *testing.T) {
	strategy := sellerStrategy()
	mw := newTestMiddleware(strategy)

	called := false
	handler := mw.RefreshSnapshots(okHandler(&called))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestAs(seller(), "/productos"))

	assert.True(t, called)
	assert.Equal(t, 1, strategy.fetchCount())

	// warm now, second request does not refetch
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, requestAs(seller(), "/productos"))
	assert.Equal(t, 1, strategy.fetchCount())
}

func TestRefreshSnapshotsSkipsAnonymous(t *testing.T) {
	strategy := sellerStrategy()
	mw := newTestMiddleware(strategy)

	called := false
	handler := mw.RefreshSnapshots(okHandler(&called))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestAs(Anonymous, "/?"+RefreshParam+"=1"))

	assert.True(t, called)
	assert.Zero(t, strategy.fetchCount())
}
