package main

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"strings"
)

const authSchema = `
CREATE TABLE IF NOT EXISTS api_keys (
    id            INTEGER   PRIMARY KEY,
    key_hash      TEXT      NOT NULL UNIQUE,
    scopes        TEXT      NOT NULL,
    description   TEXT      NOT NULL
);
`

// authHeader carries the raw API key on every request.
const authHeader = "lex-auth"

const (
	scopeLexiconRead  = "lexicon:read"
	scopeLexiconWrite = "lexicon:write"
	scopeServerConfig = "server:config"
	scopeServerCtl    = "server:control"
	scopeAuthManage   = "auth:manage"
	scopeMaster       = "*"
)

var knownScopes = []string{
	scopeLexiconRead,
	scopeLexiconWrite,
	scopeServerConfig,
	scopeServerCtl,
	scopeAuthManage,
	scopeMaster,
}

var errUnknownScope = errors.New("unknown scope")

type contextKey string

const contextKeyPermissions = contextKey("permissions")

// Permissions holds the authentication info for a request.
type Permissions struct {
	ScopeSet map[string]struct{} // A set for O(1) lookups
}

// AuthAPI holds the dependencies for the authentication API handlers.
type AuthAPI struct {
	db     *sql.DB
	logger *slog.Logger
}

func setupAuthSchema(db *sql.DB) error {
	if _, err := db.Exec(authSchema); err != nil {
		return fmt.Errorf("could not create auth schema: %w", err)
	}
	return nil
}

func NewAuthAPI(db *sql.DB, logger *slog.Logger) *AuthAPI {
	return &AuthAPI{
		db:     db,
		logger: logger,
	}
}

// RegisterRoutes sets up the routing for all /api/auth endpoints.
func (a *AuthAPI) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/auth/me", a.handleCheckMe)
	mux.HandleFunc("/api/auth/keys", a.handleKeys)
	mux.HandleFunc("/api/auth/keys/", a.handleKeyByID)
}

// APIKeyInfo is the structure returned when listing keys.
type APIKeyInfo struct {
	ID          int      `json:"id"`
	Scopes      []string `json:"scopes"`
	Description string   `json:"description"`
}

// CreateKeyRequest is the expected JSON body for creating a new key.
type CreateKeyRequest struct {
	Scopes      []string `json:"scopes"`
	Description string   `json:"description"`
}

// CreateKeyResponse is the JSON response after creating a key. RawKey is
// only ever shown here; the database keeps its hash.
type CreateKeyResponse struct {
	ID     int      `json:"id"`
	RawKey string   `json:"raw_key"`
	Scopes []string `json:"scopes"`
}

// Authenticate resolves the key in the lex-auth header to its scopes. While no
// key exists the API is open and every request gets the master scope.
func (a *AuthAPI) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		keyCount, err := a.countKeys(r.Context())
		if err != nil {
			a.logger.Error("Authenticate failed to count keys", "error", err)
			respondWithError(w, http.StatusInternalServerError, "Internal Server Error")
			return
		}

		if keyCount == 0 {
			ctx := context.WithValue(r.Context(), contextKeyPermissions, &Permissions{ScopeSet: map[string]struct{}{scopeMaster: {}}})
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		apiKey := r.Header.Get(authHeader)
		if apiKey == "" {
			respondWithError(w, http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
			return
		}

		var scopesStr string
		err = a.db.QueryRowContext(r.Context(), "SELECT scopes FROM api_keys WHERE key_hash = ?", hashAPIKey(apiKey)).Scan(&scopesStr)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				respondWithError(w, http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
				return
			}
			a.logger.Error("Authenticate failed to query API key", "error", err)
			respondWithError(w, http.StatusInternalServerError, "Internal Server Error")
			return
		}

		scopes := strings.Fields(scopesStr)
		scopeSet := make(map[string]struct{}, len(scopes))
		for _, s := range scopes {
			scopeSet[s] = struct{}{}
		}

		ctx := context.WithValue(r.Context(), contextKeyPermissions, &Permissions{ScopeSet: scopeSet})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireScope wraps a handler so it only runs for requests holding scope.
func requireScope(scope string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !hasScope(r, scope) {
			respondWithError(w, http.StatusForbidden, fmt.Sprintf("Forbidden: requires '%s' scope", scope))
			return
		}
		next(w, r)
	}
}

func (a *AuthAPI) countKeys(ctx context.Context) (int, error) {
	var n int
	err := a.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM api_keys").Scan(&n)
	return n, err
}

func (a *AuthAPI) handleKeys(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		requireScope(scopeAuthManage, a.listKeys)(w, r)
	case http.MethodPost:
		requireScope(scopeAuthManage, a.handleCreateKey)(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (a *AuthAPI) handleKeyByID(w http.ResponseWriter, r *http.Request) {
	idStr := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/api/auth/keys/"), "/")
	id, err := strconv.Atoi(idStr)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid key ID format in URL")
		return
	}

	if r.Method != http.MethodDelete {
		w.Header().Set("Allow", "DELETE")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed for this key resource")
		return
	}
	if !hasScope(r, scopeAuthManage) {
		respondWithError(w, http.StatusForbidden, fmt.Sprintf("Forbidden: requires '%s' scope", scopeAuthManage))
		return
	}
	a.deleteKey(w, r, id)
}

func (a *AuthAPI) handleCheckMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	perms, ok := r.Context().Value(contextKeyPermissions).(*Permissions)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Invalid or missing token")
		return
	}

	scopes := make([]string, 0, len(perms.ScopeSet))
	for s := range perms.ScopeSet {
		scopes = append(scopes, s)
	}
	slices.Sort(scopes)
	respondWithJSON(w, http.StatusOK, map[string]any{"scopes": scopes})
}

func (a *AuthAPI) listKeys(w http.ResponseWriter, r *http.Request) {
	rows, err := a.db.QueryContext(r.Context(), `SELECT id, description, scopes FROM api_keys ORDER BY id`)
	if err != nil {
		a.logger.Error("Failed to query API keys", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Database query failed")
		return
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	keys := []APIKeyInfo{}
	for rows.Next() {
		var key APIKeyInfo
		var scopesStr string
		if err = rows.Scan(&key.ID, &key.Description, &scopesStr); err != nil {
			a.logger.Error("Failed to scan API key row", "error", err)
			respondWithError(w, http.StatusInternalServerError, "Failed to process database results")
			return
		}
		key.Scopes = strings.Fields(scopesStr)
		keys = append(keys, key)
	}
	respondWithJSON(w, http.StatusOK, keys)
}

func (a *AuthAPI) handleCreateKey(w http.ResponseWriter, r *http.Request) {
	var req CreateKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid JSON request body")
		return
	}
	if err := validateScopes(req.Scopes); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := a.createKey(r.Context(), req)
	if err != nil {
		a.logger.Error("Failed to create API key", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to create key")
		return
	}
	respondWithJSON(w, http.StatusCreated, resp)
}

// createKey stores a new key. The first key created is always given the
// master scope, so the key set can never lock itself out.
func (a *AuthAPI) createKey(ctx context.Context, req CreateKeyRequest) (CreateKeyResponse, error) {
	rawKey, err := generateAPIKey()
	if err != nil {
		return CreateKeyResponse{}, err
	}

	keyCount, err := a.countKeys(ctx)
	if err != nil {
		return CreateKeyResponse{}, err
	}
	scopesStr := strings.Join(req.Scopes, " ")
	if keyCount == 0 {
		scopesStr = scopeMaster
	}

	var newID int
	err = a.db.QueryRowContext(ctx,
		`INSERT INTO api_keys (key_hash, description, scopes) VALUES (?, ?, ?) RETURNING id`,
		hashAPIKey(rawKey), req.Description, scopesStr).Scan(&newID)
	if err != nil {
		return CreateKeyResponse{}, fmt.Errorf("failed to save new key: %w", err)
	}
	a.logger.Info("API key created", "id", newID, "scopes", scopesStr)

	return CreateKeyResponse{
		ID:     newID,
		RawKey: rawKey,
		Scopes: strings.Fields(scopesStr),
	}, nil
}

func (a *AuthAPI) deleteKey(w http.ResponseWriter, r *http.Request, id int) {
	if id == 1 {
		respondWithError(w, http.StatusBadRequest, "Cannot delete the primary master key (ID 1)")
		return
	}

	res, err := a.db.ExecContext(r.Context(), "DELETE FROM api_keys WHERE id = ?", id)
	if err != nil {
		a.logger.Error("Failed to delete API key", "id", id, "error", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to delete key")
		return
	}

	if rowsAffected, _ := res.RowsAffected(); rowsAffected == 0 {
		respondWithError(w, http.StatusNotFound, "Key not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// hasScope checks if the permission set in the request context includes a required scope.
func hasScope(r *http.Request, requiredScope string) bool {
	perms, ok := r.Context().Value(contextKeyPermissions).(*Permissions)
	if !ok {
		return false
	}

	if _, isMaster := perms.ScopeSet[scopeMaster]; isMaster {
		return true
	}

	_, has := perms.ScopeSet[requiredScope]
	return has
}

// validateScopes rejects scope names no endpoint checks for.
func validateScopes(scopes []string) error {
	for _, s := range scopes {
		if !slices.Contains(knownScopes, s) {
			return fmt.Errorf("%w: %q", errUnknownScope, s)
		}
	}
	return nil
}

func generateAPIKey() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return "lex_" + hex.EncodeToString(buf), nil
}

func hashAPIKey(key string) string {
	hash := sha256.Sum256([]byte(key))
	return hex.EncodeToString(hash[:])
}
