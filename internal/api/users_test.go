package api

import (
	"net/http"
	"testing"
)

type userList struct {
	Users []userView `json:"users"`
	Count int        `json:"count"`
}

type userEnvelope struct {
	Message string   `json:"message"`
	User    userView `json:"user"`
}

func TestListUsers(t *testing.T) {
	env := newTestEnv(t)
	_, zoe := env.signupAndLogin(t, "Zoe", "zoe@x.com")
	annID, ann := env.signupAndLogin(t, "Ann", "ann@x.com")
	g := createGame(t, env, ann, "Chess")

	w := env.do(t, http.MethodGet, "/users", zoe, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	list := decode[userList](t, w)
	if list.Count != 2 || list.Users[0].Name != "Ann" || list.Users[1].Name != "Zoe" {
		t.Fatalf("users = %+v, want Ann then Zoe", list.Users)
	}
	if list.Users[0].ID != annID || len(list.Users[0].Games) != 1 || list.Users[0].Games[0].ID != g.ID {
		t.Errorf("Ann's games = %+v", list.Users[0].Games)
	}
	if list.Users[1].Games == nil || len(list.Users[1].Games) != 0 {
		t.Errorf("Zoe's games = %#v, want empty", list.Users[1].Games)
	}
}

func TestGetUser(t *testing.T) {
	env := newTestEnv(t)
	annID, ann := env.signupAndLogin(t, "Ann", "ann@x.com")
	createGame(t, env, ann, "Chess")

	for _, path := range []string{"/users/" + annID, "/users/me", "/api/v1/users/me"} {
		t.Run(path, func(t *testing.T) {
			w := env.do(t, http.MethodGet, path, ann, nil)
			if w.Code != http.StatusOK {
				t.Fatalf("status = %d", w.Code)
			}
			got := decode[userEnvelope](t, w)
			if got.User.ID != annID || got.User.Email != "ann@x.com" || len(got.User.Games) != 1 {
				t.Errorf("user = %+v", got.User)
			}
		})
	}

	assertError(t, env.do(t, http.MethodGet, "/users/usr-missing", ann, nil), http.StatusNotFound, ErrCodeNotFound)
}

func TestUpdateUser(t *testing.T) {
	env := newTestEnv(t)
	annID, ann := env.signupAndLogin(t, "Ann", "ann@x.com")
	bobID, _ := env.signupAndLogin(t, "Bob", "bob@x.com")

	assertError(t, env.do(t, http.MethodPatch, "/users/"+bobID, ann, map[string]string{"email": "x@x.com"}), http.StatusForbidden, ErrCodeForbidden)
	assertError(t, env.do(t, http.MethodPatch, "/users/me", ann, map[string]string{}), http.StatusBadRequest, ErrCodeBadRequest)
	assertError(t, env.do(t, http.MethodPatch, "/users/me", ann, map[string]string{"email": "bob@x.com"}), http.StatusConflict, ErrCodeConflict)

	w := env.do(t, http.MethodPatch, "/users/"+annID, ann, map[string]string{"email": "ann@new.com", "password": "changed"})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if got := decode[userEnvelope](t, w); got.Message != "User successfully updated." || got.User.Email != "ann@new.com" {
		t.Errorf("response = %+v", got)
	}

	// Old credentials are gone, new ones work.
	assertError(t, env.do(t, http.MethodPost, "/login", "", map[string]string{"email": "ann@x.com", "password": "secret"}), http.StatusNotFound, ErrCodeNotFound)
	w = env.do(t, http.MethodPost, "/login", "", map[string]string{"email": "ann@new.com", "password": "changed"})
	if w.Code != http.StatusOK {
		t.Errorf("login with new credentials: status = %d", w.Code)
	}
}

func TestDeleteUser(t *testing.T) {
	env := newTestEnv(t)
	annID, ann := env.signupAndLogin(t, "Ann", "ann@x.com")
	bobID, bob := env.signupAndLogin(t, "Bob", "bob@x.com")
	g := createGame(t, env, ann, "Chess")
	env.do(t, http.MethodPost, "/games/"+g.ID+"/ownership", bob, nil)

	assertError(t, env.do(t, http.MethodDelete, "/users/"+annID, bob, nil), http.StatusForbidden, ErrCodeForbidden)

	w := env.do(t, http.MethodDelete, "/users/me", bob, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", w.Code)
	}

	// Bob's ownership went with him; the game stays.
	got := decode[gameResponse](t, env.do(t, http.MethodGet, "/games/"+g.ID, ann, nil)).Game
	if got.HasOwner(bobID) || len(got.Owners) != 1 {
		t.Errorf("owners = %+v, want only Ann", got.Owners)
	}

	// His still-valid token now points at nobody.
	assertError(t, env.do(t, http.MethodDelete, "/users/me", bob, nil), http.StatusNotFound, ErrCodeNotFound)
}
