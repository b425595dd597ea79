package auth

import (
	"context"
	"errors"
	"fmt"
)

// Directory manages user accounts and their credentials.
type Directory struct {
	users  UserRepository
	hasher *Hasher
	tokens *TokenService
}

// NewDirectory creates a Directory.
func NewDirectory(users UserRepository, hasher *Hasher, tokens *TokenService) *Directory {
	return &Directory{users: users, hasher: hasher, tokens: tokens}
}

// Signup registers a new account. All three fields are required.
func (d *Directory) Signup(ctx context.Context, name, email, password string) (*User, error) {
	if name == "" || email == "" || password == "" {
		return nil, ErrMissingParameter
	}

	if _, err := d.users.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailExists
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("checking email: %w", err)
	}

	hash, err := d.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	user := &User{Name: name, Email: email, PasswordHash: hash}
	if err := d.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login verifies the credentials and issues an access token.
//
// An unknown email is ErrUserNotFound and a wrong password is
// ErrInvalidCredentials; callers are told which one failed.
func (d *Directory) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	if email == "" || password == "" {
		return nil, ErrMissingParameter
	}

	user, err := d.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	if !d.hasher.Verify(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	token, claims, err := d.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, err
	}

	return &LoginResult{
		User:      user,
		Token:     token,
		Claims:    claims,
		ExpiresIn: d.tokens.Lifetime(),
	}, nil
}

// UpdateCredentials changes the identity's email, password or both.
// Fields left empty are not touched.
func (d *Directory) UpdateCredentials(ctx context.Context, identity *Claims, email, password string) (*User, error) {
	if email == "" && password == "" {
		return nil, ErrMissingParameter
	}

	user, err := d.users.GetByID(ctx, identity.SubjectID)
	if err != nil {
		return nil, err
	}

	// Hash before writing anything so both changes land in one statement.
	if password != "" {
		hash, err := d.hasher.Hash(password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}

	switch {
	case email != "" && email != user.Email:
		user.Email = email
		err = d.users.Update(ctx, user)
	case password != "":
		err = d.users.UpdatePassword(ctx, user.ID, user.PasswordHash)
	}
	if err != nil {
		return nil, err
	}

	return d.users.GetByID(ctx, user.ID)
}

// DeleteUser removes the identity's account.
func (d *Directory) DeleteUser(ctx context.Context, identity *Claims) error {
	if _, err := d.users.GetByID(ctx, identity.SubjectID); err != nil {
		return err
	}
	return d.users.Delete(ctx, identity.SubjectID)
}

// Get returns a single user.
func (d *Directory) Get(ctx context.Context, id string) (*User, error) {
	return d.users.GetByID(ctx, id)
}

// List returns every user ordered by name.
func (d *Directory) List(ctx context.Context) ([]User, error) {
	return d.users.List(ctx)
}
