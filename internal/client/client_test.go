package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

// fakeAPI は認証APIの最小限の挙動を再現するテストサーバーです。
// ログインでクッキーを発行し、auth-check はそのクッキーの有無だけを見ます。
type fakeAPI struct {
	mux        *http.ServeMux
	forceDeny  atomic.Bool
	lastCookie atomic.Value // string
}

// handleMethod は Go 1.22 の "POST /login" 形式のメソッド付きパターンと
// 同じ挙動を Go 1.21 の ServeMux で再現するためのヘルパーです。
func (f *fakeAPI) handleMethod(method, path string, handler http.HandlerFunc) {
	f.mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		handler(w, r)
	})
}

func newFakeAPI() *fakeAPI {
	f := &fakeAPI{mux: http.NewServeMux()}

	f.handleMethod(http.MethodPost, "/login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body["login"] == "" || body["password"] == "" {
			writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "login and password must be present"})
			return
		}
		if body["password"] != "Secret1!" {
			writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "invalid credentials"})
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "token", Value: "issued-token", Path: "/", HttpOnly: true})
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "logged in successfully"})
	})

	f.handleMethod(http.MethodPost, "/register", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusCreated, map[string]any{"success": true, "message": "user registered successfully"})
	})

	f.handleMethod(http.MethodPost, "/logout", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "token", Value: "", Path: "/", MaxAge: -1})
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "logged out successfully"})
	})

	f.handleMethod(http.MethodGet, "/auth-check", func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie("token")
		if err == nil {
			f.lastCookie.Store(cookie.Value)
		} else {
			f.lastCookie.Store("")
		}
		if f.forceDeny.Load() || err != nil || cookie.Value == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "message": "no token provided"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"user":    map[string]any{"id": "id-1", "username": "alice"},
		})
	})

	return f
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func newTestClient(t *testing.T) (*Client, *fakeAPI) {
	t.Helper()
	api := newFakeAPI()
	server := httptest.NewServer(api.mux)
	t.Cleanup(server.Close)

	c, err := New(server.URL)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return c, api
}

func TestAuthCheckWithoutSession(t *testing.T) {
	c, _ := newTestClient(t)

	_, err := c.AuthCheck(context.Background())
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("AuthCheck error = %v, want ErrUnauthorized", err)
	}
}

func TestLoginThenAuthCheck(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	if err := c.Login(ctx, "alice", "Secret1!"); err != nil {
		t.Fatalf("Login returned error: %v", err)
	}

	sessionUser, err := c.AuthCheck(ctx)
	if err != nil {
		t.Fatalf("AuthCheck returned error: %v", err)
	}
	if sessionUser.Username != "alice" {
		t.Fatalf("Username = %q, want %q", sessionUser.Username, "alice")
	}
}

func TestLoginWrongPassword(t *testing.T) {
	c, _ := newTestClient(t)

	err := c.Login(context.Background(), "alice", "wrong")
	if err == nil {
		t.Fatal("expected error for wrong password")
	}
}

func TestUnauthorizedHookAndSessionClearing(t *testing.T) {
	c, api := newTestClient(t)
	ctx := context.Background()

	var hookCalls atomic.Int32
	c.OnUnauthorized(func() {
		hookCalls.Add(1)
	})

	if err := c.Login(ctx, "alice", "Secret1!"); err != nil {
		t.Fatalf("Login returned error: %v", err)
	}

	// サーバー側がセッションを拒否し始めた状況を再現
	api.forceDeny.Store(true)
	if _, err := c.AuthCheck(ctx); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("AuthCheck error = %v, want ErrUnauthorized", err)
	}
	if hookCalls.Load() != 1 {
		t.Fatalf("hook calls = %d, want 1", hookCalls.Load())
	}

	// インターセプターがローカルのクッキーを破棄しているため、
	// 次のリクエストにはトークンが付かない
	api.forceDeny.Store(false)
	_, _ = c.AuthCheck(ctx)
	if got := api.lastCookie.Load(); got != "" {
		t.Fatalf("cookie sent after clearing = %v, want empty", got)
	}
}

func TestLogoutDropsSession(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	if err := c.Login(ctx, "alice", "Secret1!"); err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if err := c.Logout(ctx); err != nil {
		t.Fatalf("Logout returned error: %v", err)
	}

	if _, err := c.AuthCheck(ctx); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("AuthCheck after logout error = %v, want ErrUnauthorized", err)
	}
}

func TestRegister(t *testing.T) {
	c, _ := newTestClient(t)

	if err := c.Register(context.Background(), "alice", "alice@x.com", "Secret1!"); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
}
