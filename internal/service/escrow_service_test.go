package service

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/movebridge/relofund/internal/auth"
	"github.com/movebridge/relofund/internal/escrow"
	"github.com/movebridge/relofund/internal/storage/sqlite"
	"github.com/movebridge/relofund/internal/treasury"
)

type acceptAllOracle struct{}

func (acceptAllOracle) VerifyProof(ctx context.Context, fundID int64, milestone string, proof []byte) (bool, error) {
	return true, nil
}

type testEnv struct {
	server *httptest.Server
	treas  *treasury.Treasury

	adminID    string
	adminToken string
}

// setupTestServer stands up the full HTTP stack over a temp sqlite
// store, with a registered admin account and an accept-all oracle
// dialer.
func setupTestServer(t *testing.T) *testEnv {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	jwtManager := auth.NewJWTManager("test-secret-key-32-bytes-long!!!", time.Hour)
	authenticator := auth.NewPasswordAuthenticator(store)

	// The admin account must exist before the ledger is wired, since
	// the admin identity is fixed at construction.
	adminAccount, err := authenticator.Register(context.Background(), "admin@example.com", "Admin", "admin-password")
	if err != nil {
		t.Fatalf("failed to register admin: %v", err)
	}
	adminToken, err := jwtManager.Generate(adminAccount)
	if err != nil {
		t.Fatalf("failed to generate admin token: %v", err)
	}

	treas := treasury.New(store)
	ledger := escrow.New(store, treas, escrow.Options{
		Admin:        adminAccount.ID,
		RefundWindow: 24 * time.Hour,
		MaxFunds:     1000,
		Dial:         func(addr string) escrow.Oracle { return acceptAllOracle{} },
	})

	mux := http.NewServeMux()
	NewAuthService(authenticator, jwtManager).Register(mux)
	NewEscrowService(ledger, treas).Register(mux, jwtManager)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return &testEnv{
		server:     server,
		treas:      treas,
		adminID:    adminAccount.ID,
		adminToken: adminToken,
	}
}

// call sends a JSON request with an optional bearer token and decodes
// the JSON response into out (if non-nil). Returns the status code.
func (e *testEnv) call(t *testing.T, method, path, token string, body, out any) int {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, e.server.URL+path, &buf)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
	}
	return resp.StatusCode
}

// register creates an account through the API and returns its id and
// session token.
func (e *testEnv) register(t *testing.T, email string) (string, string) {
	t.Helper()
	var session struct {
		AccountID string `json:"account_id"`
		Token     string `json:"token"`
	}
	code := e.call(t, http.MethodPost, "/v1/auth/register", "",
		map[string]string{"email": email, "name": email, "password": "password-123"}, &session)
	if code != http.StatusCreated {
		t.Fatalf("register returned %d", code)
	}
	return session.AccountID, session.Token
}

// seed credits a treasury account through the admin faucet.
func (e *testEnv) seed(t *testing.T, account string, amount int64) {
	t.Helper()
	code := e.call(t, http.MethodPost, "/v1/admin/credits", e.adminToken,
		map[string]any{"account": account, "amount": amount}, nil)
	if code != http.StatusOK {
		t.Fatalf("credit returned %d", code)
	}
}

func TestAuthRequired(t *testing.T) {
	env := setupTestServer(t)

	code := env.call(t, http.MethodPost, "/v1/funds", "", map[string]any{"id": 1}, nil)
	if code != http.StatusUnauthorized {
		t.Errorf("unauthenticated request returned %d, want 401", code)
	}

	code = env.call(t, http.MethodPost, "/v1/funds", "garbage-token", map[string]any{"id": 1}, nil)
	if code != http.StatusUnauthorized {
		t.Errorf("bad token returned %d, want 401", code)
	}
}

// Full milestone flow over HTTP: create, donate, approve, release both
// milestones.
func TestMilestoneFlow(t *testing.T) {
	env := setupTestServer(t)

	ownerID, ownerToken := env.register(t, "owner@example.com")
	donorID, donorToken := env.register(t, "donor@example.com")
	env.seed(t, donorID, 2000)

	code := env.call(t, http.MethodPost, "/v1/admin/oracle", env.adminToken,
		map[string]string{"address": "http://oracle.local"}, nil)
	if code != http.StatusOK {
		t.Fatalf("set oracle returned %d", code)
	}

	code = env.call(t, http.MethodPost, "/v1/funds", ownerToken, map[string]any{
		"id": 1,
		"milestones": []map[string]any{
			{"name": "arrival", "percent": 50},
			{"name": "settled", "percent": 50},
		},
	}, nil)
	if code != http.StatusCreated {
		t.Fatalf("init funds returned %d", code)
	}

	var donation struct {
		TotalRaised int64 `json:"total_raised"`
	}
	code = env.call(t, http.MethodPost, "/v1/funds/1/donations", donorToken,
		map[string]int64{"amount": 2000}, &donation)
	if code != http.StatusOK || donation.TotalRaised != 2000 {
		t.Fatalf("donate returned %d, total %d", code, donation.TotalRaised)
	}

	code = env.call(t, http.MethodPut, "/v1/funds/1/status", ownerToken,
		map[string]string{"status": "approved"}, nil)
	if code != http.StatusOK {
		t.Fatalf("update status returned %d", code)
	}

	var release struct {
		Released int64 `json:"released"`
	}
	code = env.call(t, http.MethodPost, "/v1/funds/1/releases", ownerToken,
		map[string]any{"milestone": "arrival", "proof": []byte("proof")}, &release)
	if code != http.StatusOK || release.Released != 1000 {
		t.Fatalf("release returned %d, amount %d", code, release.Released)
	}

	code = env.call(t, http.MethodPost, "/v1/funds/1/releases", ownerToken,
		map[string]any{"milestone": "settled", "proof": []byte("proof")}, &release)
	if code != http.StatusOK || release.Released != 1000 {
		t.Fatalf("second release returned %d, amount %d", code, release.Released)
	}

	// Released milestones are one-shot.
	code = env.call(t, http.MethodPost, "/v1/funds/1/releases", ownerToken,
		map[string]any{"milestone": "arrival", "proof": []byte("proof")}, nil)
	if code != http.StatusConflict {
		t.Errorf("re-release returned %d, want 409", code)
	}

	var fund struct {
		TotalRaised int64  `json:"total_raised"`
		Released    int64  `json:"released"`
		Owner       string `json:"owner"`
	}
	code = env.call(t, http.MethodGet, "/v1/funds/1", donorToken, nil, &fund)
	if code != http.StatusOK {
		t.Fatalf("get funds returned %d", code)
	}
	if fund.Released != 2000 || fund.TotalRaised != 2000 || fund.Owner != ownerID {
		t.Errorf("fund = %+v", fund)
	}

	balance, err := env.treas.Balance(context.Background(), ownerID)
	if err != nil {
		t.Fatalf("Balance failed: %v", err)
	}
	if balance != 2000 {
		t.Errorf("owner balance = %d, want 2000", balance)
	}
}

// Refund flow over HTTP: donate, cancel, request, claim, claim again.
func TestRefundFlow(t *testing.T) {
	env := setupTestServer(t)

	_, ownerToken := env.register(t, "owner@example.com")
	donorID, donorToken := env.register(t, "donor@example.com")
	env.seed(t, donorID, 1000)

	code := env.call(t, http.MethodPost, "/v1/funds", ownerToken, map[string]any{
		"id":         1,
		"milestones": []map[string]any{{"name": "arrival", "percent": 100}},
	}, nil)
	if code != http.StatusCreated {
		t.Fatalf("init funds returned %d", code)
	}
	code = env.call(t, http.MethodPost, "/v1/funds/1/donations", donorToken,
		map[string]int64{"amount": 1000}, nil)
	if code != http.StatusOK {
		t.Fatalf("donate returned %d", code)
	}

	code = env.call(t, http.MethodPost, "/v1/funds/1/cancel", ownerToken, map[string]any{}, nil)
	if code != http.StatusOK {
		t.Fatalf("cancel returned %d", code)
	}

	var refund struct {
		Amount int64 `json:"amount"`
	}
	code = env.call(t, http.MethodPost, "/v1/funds/1/refunds", donorToken, map[string]any{}, &refund)
	if code != http.StatusOK || refund.Amount != 1000 {
		t.Fatalf("request refund returned %d, amount %d", code, refund.Amount)
	}

	var claim struct {
		Amount  int64 `json:"amount"`
		Claimed bool  `json:"claimed"`
	}
	code = env.call(t, http.MethodGet, "/v1/funds/1/refunds/"+donorID, donorToken, nil, &claim)
	if code != http.StatusOK || claim.Claimed {
		t.Fatalf("get claim returned %d, claimed %v", code, claim.Claimed)
	}

	code = env.call(t, http.MethodPost, "/v1/funds/1/refunds/claim", donorToken, map[string]any{}, nil)
	if code != http.StatusOK {
		t.Fatalf("claim returned %d", code)
	}
	balance, err := env.treas.Balance(context.Background(), donorID)
	if err != nil {
		t.Fatalf("Balance failed: %v", err)
	}
	if balance != 1000 {
		t.Errorf("donor balance = %d, want 1000", balance)
	}

	code = env.call(t, http.MethodPost, "/v1/funds/1/refunds/claim", donorToken, map[string]any{}, nil)
	if code != http.StatusConflict {
		t.Errorf("second claim returned %d, want 409", code)
	}

	var contribution struct {
		Balance int64 `json:"balance"`
	}
	code = env.call(t, http.MethodGet, "/v1/funds/1/contributions/"+donorID, donorToken, nil, &contribution)
	if code != http.StatusOK || contribution.Balance != 0 {
		t.Errorf("contribution returned %d, balance %d, want 0", code, contribution.Balance)
	}
}

func TestAdminEndpoints(t *testing.T) {
	env := setupTestServer(t)

	_, ownerToken := env.register(t, "owner@example.com")

	t.Run("oracle setup is admin-only and one-time", func(t *testing.T) {
		code := env.call(t, http.MethodPost, "/v1/admin/oracle", ownerToken,
			map[string]string{"address": "http://oracle.local"}, nil)
		if code != http.StatusForbidden {
			t.Errorf("non-admin oracle setup returned %d, want 403", code)
		}

		code = env.call(t, http.MethodPost, "/v1/admin/oracle", env.adminToken,
			map[string]string{"address": "http://oracle.local"}, nil)
		if code != http.StatusOK {
			t.Errorf("oracle setup returned %d, want 200", code)
		}

		code = env.call(t, http.MethodPost, "/v1/admin/oracle", env.adminToken,
			map[string]string{"address": "http://other.local"}, nil)
		if code != http.StatusConflict {
			t.Errorf("second oracle setup returned %d, want 409", code)
		}
	})

	t.Run("default percent validation", func(t *testing.T) {
		code := env.call(t, http.MethodPost, "/v1/admin/percent", env.adminToken,
			map[string]int64{"percent": 101}, nil)
		if code != http.StatusBadRequest {
			t.Errorf("percent 101 returned %d, want 400", code)
		}
		code = env.call(t, http.MethodPost, "/v1/admin/percent", env.adminToken,
			map[string]int64{"percent": 80}, nil)
		if code != http.StatusOK {
			t.Errorf("percent 80 returned %d, want 200", code)
		}
	})

	t.Run("faucet is admin-only", func(t *testing.T) {
		code := env.call(t, http.MethodPost, "/v1/admin/credits", ownerToken,
			map[string]any{"account": "x", "amount": 10}, nil)
		if code != http.StatusForbidden {
			t.Errorf("non-admin credit returned %d, want 403", code)
		}
	})

	t.Run("emergency withdrawal", func(t *testing.T) {
		donorID, donorToken := env.register(t, "donor@example.com")
		env.seed(t, donorID, 500)

		code := env.call(t, http.MethodPost, "/v1/funds", donorToken, map[string]any{
			"id":         7,
			"milestones": []map[string]any{{"name": "arrival", "percent": 100}},
		}, nil)
		if code != http.StatusCreated {
			t.Fatalf("init funds returned %d", code)
		}
		code = env.call(t, http.MethodPost, "/v1/funds/7/donations", donorToken,
			map[string]int64{"amount": 500}, nil)
		if code != http.StatusOK {
			t.Fatalf("donate returned %d", code)
		}

		code = env.call(t, http.MethodPost, "/v1/admin/withdrawals", donorToken,
			map[string]any{"fund_id": 7, "amount": 100}, nil)
		if code != http.StatusForbidden {
			t.Errorf("non-admin withdrawal returned %d, want 403", code)
		}

		code = env.call(t, http.MethodPost, "/v1/admin/withdrawals", env.adminToken,
			map[string]any{"fund_id": 7, "amount": 600}, nil)
		if code != http.StatusConflict {
			t.Errorf("overdraft withdrawal returned %d, want 409", code)
		}

		var withdrawal struct {
			Withdrawn int64 `json:"withdrawn"`
		}
		code = env.call(t, http.MethodPost, "/v1/admin/withdrawals", env.adminToken,
			map[string]any{"fund_id": 7, "amount": 200}, &withdrawal)
		if code != http.StatusOK || withdrawal.Withdrawn != 200 {
			t.Errorf("withdrawal returned %d, amount %d", code, withdrawal.Withdrawn)
		}
	})
}
