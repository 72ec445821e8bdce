package integration

import (
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/stockflow/stockflow/pkg/api"
	"github.com/stockflow/stockflow/pkg/auth"
	"github.com/stockflow/stockflow/pkg/auth/jwt"
)

func TestCommonUserManagesProducts(t *testing.T) {
	login := "alice-" + uuid.NewString()[:8]
	signUp(t, login, "s3cret", api.RoleCommon)
	token := signIn(t, login, "s3cret")

	qty := int64(10)
	name := "widget-" + uuid.NewString()[:8]

	// Create.
	resp := do(t, http.MethodPost, "/api/product", token, api.ProductRequest{
		Name: name, Description: "a widget", Price: 2.5, Quantity: &qty,
	})
	expectStatus(t, resp, http.StatusCreated)
	var created api.ProductResponse
	decodeJSON(t, resp, &created)
	if created.Name != name || created.Quantity != 10 {
		t.Fatalf("created = %+v", created)
	}
	productPath := fmt.Sprintf("/api/product/%d", created.ID)

	// Duplicate name conflicts.
	resp = do(t, http.MethodPost, "/api/product", token, api.ProductRequest{
		Name: name, Description: "again", Price: 1, Quantity: &qty,
	})
	expectStatus(t, resp, http.StatusConflict)
	resp.Body.Close()

	// Read back.
	resp = do(t, http.MethodGet, productPath, token, nil)
	expectStatus(t, resp, http.StatusOK)
	var got api.ProductResponse
	decodeJSON(t, resp, &got)
	if got.ID != created.ID {
		t.Errorf("id = %d, want %d", got.ID, created.ID)
	}

	// Update.
	newQty := int64(3)
	resp = do(t, http.MethodPut, productPath, token, api.ProductRequest{
		Name: name, Description: "restocked", Price: 3, Quantity: &newQty,
	})
	expectStatus(t, resp, http.StatusOK)
	var updated api.ProductResponse
	decodeJSON(t, resp, &updated)
	if updated.Quantity != 3 || updated.Description != "restocked" {
		t.Errorf("updated = %+v", updated)
	}

	// List contains it.
	resp = do(t, http.MethodGet, "/api/product", token, nil)
	expectStatus(t, resp, http.StatusOK)
	var list []api.ProductResponse
	decodeJSON(t, resp, &list)
	found := false
	for _, p := range list {
		if p.ID == created.ID {
			found = true
		}
	}
	if !found {
		t.Errorf("product %d missing from list", created.ID)
	}

	// Delete, then it is gone.
	resp = do(t, http.MethodDelete, productPath, token, nil)
	expectStatus(t, resp, http.StatusOK)
	var msg api.MessageResponse
	decodeJSON(t, resp, &msg)
	want := fmt.Sprintf("Product with ID: %d deleted successfully.", created.ID)
	if msg.Message != want {
		t.Errorf("message = %q, want %q", msg.Message, want)
	}

	resp = do(t, http.MethodGet, productPath, token, nil)
	expectStatus(t, resp, http.StatusNotFound)
	resp.Body.Close()

	// COMMON cannot reach user administration.
	resp = do(t, http.MethodGet, "/api/user", token, nil)
	expectStatus(t, resp, http.StatusForbidden)
	resp.Body.Close()
}

func TestAdminManagesUsers(t *testing.T) {
	token := signIn(t, adminLogin, adminPassword)

	login := "bob-" + uuid.NewString()[:8]
	resp := do(t, http.MethodPost, "/api/user", token, api.SignUpRequest{
		Login: login, Password: "pw-1", Role: api.RoleCommon,
	})
	expectStatus(t, resp, http.StatusCreated)
	var user api.UserResponse
	decodeJSON(t, resp, &user)
	userPath := "/api/user/" + user.ID.String()

	// Password change takes effect at sign-in.
	resp = do(t, http.MethodPut, userPath, token, api.UpdateUserRequest{
		Login: login, Password: "pw-2", Role: api.RoleCommon,
	})
	expectStatus(t, resp, http.StatusOK)
	resp.Body.Close()

	resp = do(t, http.MethodPost, "/auth/signin", "", api.SignInRequest{Login: login, Password: "pw-1"})
	expectStatus(t, resp, http.StatusUnauthorized)
	resp.Body.Close()
	signIn(t, login, "pw-2")

	// Admin is not a superuser: product routes require COMMON.
	resp = do(t, http.MethodGet, "/api/product", token, nil)
	expectStatus(t, resp, http.StatusForbidden)
	resp.Body.Close()

	resp = do(t, http.MethodDelete, userPath, token, nil)
	expectStatus(t, resp, http.StatusOK)
	resp.Body.Close()

	resp = do(t, http.MethodGet, userPath, token, nil)
	expectStatus(t, resp, http.StatusNotFound)
	resp.Body.Close()
}

func TestSignUpDuplicateLogin(t *testing.T) {
	login := "carol-" + uuid.NewString()[:8]
	signUp(t, login, "pw", api.RoleCommon)

	resp := do(t, http.MethodPost, "/auth/signup", "", api.SignUpRequest{Login: login, Password: "other", Role: api.RoleAdmin})
	expectStatus(t, resp, http.StatusConflict)

	var errResp api.ErrorResponse
	decodeJSON(t, resp, &errResp)
	if errResp.Error != api.ErrorTypeConflict {
		t.Errorf("error = %q, want %q", errResp.Error, api.ErrorTypeConflict)
	}
}

func TestExpiredTokenChallenge(t *testing.T) {
	// Same key as the server, clock two days in the past.
	past, err := jwt.NewTokenService(jwt.KeyConfig{
		Secret: []byte(testSecret),
		Issuer: "stockflow",
		TTL:    time.Hour,
		Now:    func() time.Time { return time.Now().Add(-48 * time.Hour) },
	})
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	token, _, err := past.Issue(&auth.Principal{ID: uuid.New(), Login: "dave", Role: api.RoleCommon})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	resp := do(t, http.MethodGet, "/api/product", token, nil)
	expectStatus(t, resp, http.StatusUnauthorized)
	resp.Body.Close()

	challenge := resp.Header.Get("WWW-Authenticate")
	if !strings.Contains(challenge, `error="invalid_token"`) {
		t.Errorf("WWW-Authenticate = %q, want invalid_token error", challenge)
	}
}

func TestTokenForDeletedUserStillVerifies(t *testing.T) {
	// Tokens are self-contained: deleting the user does not revoke them
	// before expiry.
	login := "erin-" + uuid.NewString()[:8]
	created := signUp(t, login, "pw", api.RoleCommon)
	userToken := signIn(t, login, "pw")

	adminToken := signIn(t, adminLogin, adminPassword)
	resp := do(t, http.MethodDelete, "/api/user/"+created.ID.String(), adminToken, nil)
	expectStatus(t, resp, http.StatusOK)
	resp.Body.Close()

	resp = do(t, http.MethodGet, "/api/product", userToken, nil)
	expectStatus(t, resp, http.StatusOK)
	resp.Body.Close()
}
