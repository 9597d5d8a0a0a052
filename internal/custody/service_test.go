package custody_test

import (
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/luxfi/kms/internal/custody"
	"github.com/luxfi/kms/internal/ethkey"
	"github.com/luxfi/kms/internal/secretstore"
	"github.com/luxfi/kms/internal/store"
)

// fakeVault is a minimal in-memory stand-in for a Vault KV v2 mount,
// exercised over real HTTP the way internal/secretstore talks to it.
type fakeVault struct {
	mu   sync.Mutex
	data map[string]map[string]any
}

func newFakeVault(t *testing.T) *secretstore.Store {
	t.Helper()
	fv := &fakeVault{data: make(map[string]map[string]any)}

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/secret/data/{slot}", func(w http.ResponseWriter, r *http.Request) {
		slot := r.PathValue("slot")
		w.Header().Set("Content-Type", "application/json")
		switch r.Method {
		case http.MethodPost, http.MethodPut:
			var body struct {
				Data map[string]any `json:"data"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			fv.mu.Lock()
			fv.data[slot] = body.Data
			fv.mu.Unlock()
			_ = json.NewEncoder(w).Encode(map[string]any{
				"data": map[string]any{"created_time": "2024-01-01T00:00:00Z", "version": 1},
			})
		case http.MethodGet:
			fv.mu.Lock()
			d, ok := fv.data[slot]
			fv.mu.Unlock()
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]any{
				"data": map[string]any{"data": d, "metadata": map[string]any{"version": 1}},
			})
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	s, err := secretstore.New(server.URL, "test-token")
	require.NoError(t, err)
	return s
}

func newMockDB(t *testing.T) (*store.Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return store.New(db), mock
}

func timestampRows() *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now)
}

// TestGenerateWritesVaultAndDatabaseShares exercises the happy path: a
// recognized master key mints a new key, stashes one share in the vault and
// one in the key row, and hands the third back to the caller.
func TestGenerateWritesVaultAndDatabaseShares(t *testing.T) {
	db, mock := newMockDB(t)
	vault := newFakeVault(t)
	svc := custody.New(db, vault, zap.NewNop())

	userID := uuid.New()
	now := time.Now()
	mock.ExpectQuery("SELECT id, secret, created_at, updated_at").
		WillReturnRows(sqlmock.NewRows([]string{"id", "secret", "created_at", "updated_at"}).
			AddRow(userID, "digest-of-master", now, now))
	mock.ExpectQuery("INSERT INTO keys").WillReturnRows(timestampRows())
	mock.ExpectQuery("INSERT INTO shares").WillReturnRows(timestampRows())
	mock.ExpectQuery("INSERT INTO logs").WillReturnRows(timestampRows())

	result, err := svc.Generate(t.Context(), "master-key")
	require.NoError(t, err)
	require.NotEmpty(t, result.Key)
	require.NotEqual(t, uuid.Nil, result.ShareID)

	raw, err := base64.StdEncoding.DecodeString(result.Key)
	require.NoError(t, err)
	require.NotEmpty(t, raw)
	require.NoError(t, mock.ExpectationsWereMet())
}

// TestGenerateLogFailureDoesNotFailRequest exercises the fire-and-forget
// logging contract: a failing log write must not surface as an error once
// the key and share are already persisted.
func TestGenerateLogFailureDoesNotFailRequest(t *testing.T) {
	db, mock := newMockDB(t)
	vault := newFakeVault(t)
	svc := custody.New(db, vault, zap.NewNop())

	userID := uuid.New()
	now := time.Now()
	mock.ExpectQuery("SELECT id, secret, created_at, updated_at").
		WillReturnRows(sqlmock.NewRows([]string{"id", "secret", "created_at", "updated_at"}).
			AddRow(userID, "digest-of-master", now, now))
	mock.ExpectQuery("INSERT INTO keys").WillReturnRows(timestampRows())
	mock.ExpectQuery("INSERT INTO shares").WillReturnRows(timestampRows())
	mock.ExpectQuery("INSERT INTO logs").WillReturnError(sql.ErrConnDone)

	result, err := svc.Generate(t.Context(), "master-key")
	require.NoError(t, err)
	require.NotEmpty(t, result.Key)
	require.NoError(t, mock.ExpectationsWereMet())
}

// TestGenerateRejectsUnknownMasterKey confirms an unknown master key is
// reported as Unauthorized, not NotFound.
func TestGenerateRejectsUnknownMasterKey(t *testing.T) {
	db, mock := newMockDB(t)
	vault := newFakeVault(t)
	svc := custody.New(db, vault, zap.NewNop())

	mock.ExpectQuery("SELECT id, secret, created_at, updated_at").
		WillReturnError(sql.ErrNoRows)

	_, err := svc.Generate(t.Context(), "unknown-master-key")
	require.Error(t, err)
	ce, ok := custody.As(err)
	require.True(t, ok)
	require.Equal(t, custody.KindUnauthorized, ce.Kind)
}

// TestRevokeRejectsCrossUserShare confirms a user cannot revoke a share
// belonging to someone else's key.
func TestRevokeRejectsCrossUserShare(t *testing.T) {
	db, mock := newMockDB(t)
	vault := newFakeVault(t)
	svc := custody.New(db, vault, zap.NewNop())

	callerID := uuid.New()
	ownerID := uuid.New()
	keyID := uuid.New()
	shareID := uuid.New()
	now := time.Now()

	mock.ExpectQuery("SELECT id, secret, created_at, updated_at").
		WillReturnRows(sqlmock.NewRows([]string{"id", "secret", "created_at", "updated_at"}).
			AddRow(callerID, "digest-of-master", now, now))
	mock.ExpectQuery(`SELECT id, key_id, secret, user_index, owner, status, created_at, updated_at\s+FROM shares\s+WHERE id`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "key_id", "secret", "user_index", "owner", "status", "created_at", "updated_at"}).
			AddRow(shareID, keyID, "digest", "11", store.ShareOwnerGuest, store.ShareStatusGranted, now, now))
	mock.ExpectQuery("SELECT id, user_id, local_key, local_index, cloud_key, address, created_at, updated_at").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "local_key", "local_index", "cloud_key", "address", "created_at", "updated_at"}).
			AddRow(keyID, ownerID, "aa", "bb", "slot0001", "0xabc", now, now))

	err := svc.Revoke(t.Context(), "master-key", shareID)
	require.Error(t, err)
	ce, ok := custody.As(err)
	require.True(t, ok)
	require.Equal(t, custody.KindUnauthorized, ce.Kind)
	require.NoError(t, mock.ExpectationsWereMet())
}

// TestSignMessageRejectsRevokedShare exercises the Revoked rejection path.
func TestSignMessageRejectsRevokedShare(t *testing.T) {
	db, mock := newMockDB(t)
	vault := newFakeVault(t)
	svc := custody.New(db, vault, zap.NewNop())

	now := time.Now()
	mock.ExpectQuery(`SELECT id, key_id, secret, user_index, owner, status, created_at, updated_at\s+FROM shares\s+WHERE secret`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "key_id", "secret", "user_index", "owner", "status", "created_at", "updated_at"}).
			AddRow(uuid.New(), uuid.New(), "digest", "11", store.ShareOwnerGuest, store.ShareStatusRevoked, now, now))

	_, err := svc.SignMessage(t.Context(), base64.StdEncoding.EncodeToString([]byte{0xab, 0xcd}), "hello")
	require.Error(t, err)
	ce, ok := custody.As(err)
	require.True(t, ok)
	require.Equal(t, custody.KindRevoked, ce.Kind)
	require.NoError(t, mock.ExpectationsWereMet())
}

// TestSignMessageRejectsMalformedCredential exercises the DecodeError path,
// which must be detected before any database call.
func TestSignMessageRejectsMalformedCredential(t *testing.T) {
	db, _ := newMockDB(t)
	vault := newFakeVault(t)
	svc := custody.New(db, vault, zap.NewNop())

	_, err := svc.SignMessage(t.Context(), "not valid base64!!", "hello")
	require.Error(t, err)
	ce, ok := custody.As(err)
	require.True(t, ok)
	require.Equal(t, custody.KindDecodeError, ce.Kind)
}

// TestSignMessageRejectsUnknownCredential exercises a well-formed but
// unrecognized secret key: sign_message's documented failure surface is
// 400/500 only, so this must map to DecodeError (400), never NotFound
// (which the request surface maps to 404 for admin-scoped operations).
func TestSignMessageRejectsUnknownCredential(t *testing.T) {
	db, mock := newMockDB(t)
	vault := newFakeVault(t)
	svc := custody.New(db, vault, zap.NewNop())

	mock.ExpectQuery(`SELECT id, key_id, secret, user_index, owner, status, created_at, updated_at\s+FROM shares\s+WHERE secret`).
		WillReturnError(sql.ErrNoRows)

	_, err := svc.SignMessage(t.Context(), base64.StdEncoding.EncodeToString([]byte{0xab, 0xcd}), "hello")
	require.Error(t, err)
	ce, ok := custody.As(err)
	require.True(t, ok)
	require.Equal(t, custody.KindDecodeError, ce.Kind)
	require.NoError(t, mock.ExpectationsWereMet())
}

// TestSigningPrimitivesRoundTrip is a sanity check on the collaborators
// SignMessage composes: deriving an address and signing with the same
// reconstructed private key must verify against that address.
func TestSigningPrimitivesRoundTrip(t *testing.T) {
	priv := make([]byte, 32)
	priv[31] = 7

	addr, err := ethkey.AddressFromPrivateKey(priv)
	require.NoError(t, err)

	sig, err := ethkey.SignPersonalMessage(priv, []byte("hello"))
	require.NoError(t, err)

	ok, err := ethkey.VerifyPersonalMessage(addr, []byte("hello"), sig)
	require.NoError(t, err)
	require.True(t, ok)
}
