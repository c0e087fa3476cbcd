package app

import "context"

type Session struct {
	Email       string
	DisplayName string
}

type SessionChecker interface {
	CheckSession(ctx context.Context) (Session, error)
}

// PasswordVerifier exchanges an email and password for an access token. It is
// used to re-verify the current account before sensitive edits.
type PasswordVerifier interface {
	VerifyPassword(ctx context.Context, email, password string) (string, error)
}
