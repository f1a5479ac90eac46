package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/AutoMind-2527/Backend/internal/db"
)

var ErrMissingSubject = errors.New("subject claim missing")

// Directory keeps local user rows in sync with identity-provider subjects.
type Directory struct {
	db db.Querier
}

func NewDirectory(db db.Querier) *Directory {
	return &Directory{db: db}
}

// Sync creates the user for the identity's subject or refreshes its profile.
func (d *Directory) Sync(ctx context.Context, id Identity) (User, error) {
	if id.Subject == "" {
		return User{}, ErrMissingSubject
	}
	user := User{
		Subject:  id.Subject,
		Username: id.Username,
		Email:    id.Email,
		Role:     id.Role,
	}
	row := d.db.QueryRow(ctx, `
		INSERT INTO users (subject, username, email, role)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (subject) DO UPDATE
		SET username=EXCLUDED.username, email=EXCLUDED.email, role=EXCLUDED.role, updated_at=now()
		RETURNING id, created_at, updated_at
	`, user.Subject, user.Username, user.Email, user.Role)
	if err := row.Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt); err != nil {
		return User{}, err
	}
	return user, nil
}

// IdentityFromClaims maps token claims onto an Identity. The username falls
// back to name and then to the subject.
func IdentityFromClaims(c *Claims) Identity {
	id := Identity{
		Subject: c.Subject,
		Email:   c.Email,
		Role:    RoleUser,
	}

	switch {
	case c.PreferredUsername != "":
		id.Username = c.PreferredUsername
	case c.Name != "":
		id.Username = c.Name
	default:
		id.Username = c.Subject
	}

	roles := append([]string{c.Role}, c.Roles...)
	roles = append(roles, c.RealmAccess.Roles...)
	for _, r := range roles {
		if strings.EqualFold(r, RoleAdmin) {
			id.Role = RoleAdmin
			break
		}
	}
	return id
}
