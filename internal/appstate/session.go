package appstate

import (
	"context"
	"fmt"

	"github.com/ahmetcoskunkizilkaya/safescan/internal/dto"
	"github.com/ahmetcoskunkizilkaya/safescan/internal/kvstore"
)

// Session is the persisted login.
type Session struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	Email        string `json:"email"`
}

func (a *App) Register(ctx context.Context, email, password string) error {
	resp, err := a.API.Register(ctx, email, password)
	if err != nil {
		return fmt.Errorf("register: %w", err)
	}
	return a.startSession(ctx, resp)
}

func (a *App) Login(ctx context.Context, email, password string) error {
	resp, err := a.API.Login(ctx, email, password)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	return a.startSession(ctx, resp)
}

// Logout forgets the session. Local quota, subscription cache and saved
// items stay on the device.
func (a *App) Logout(ctx context.Context) error {
	a.API.SetToken("")
	if err := a.Store.Remove(ctx, kvstore.KeySession); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// Forget logs out and erases everything this device stored, then reloads
// the now-empty state.
func (a *App) Forget(ctx context.Context) error {
	a.API.SetToken("")
	if err := a.Store.Clear(ctx); err != nil {
		return fmt.Errorf("failed to erase device data: %w", err)
	}
	a.Restore(ctx)
	return nil
}

func (a *App) LoggedIn() bool {
	return a.API.Token() != ""
}

// CurrentSession returns the persisted session, if any.
func (a *App) CurrentSession(ctx context.Context) (Session, bool) {
	var s Session
	ok := a.Store.Get(ctx, kvstore.KeySession, &s)
	return s, ok && s.AccessToken != ""
}

func (a *App) startSession(ctx context.Context, resp *dto.AuthResponse) error {
	a.API.SetToken(resp.AccessToken)
	s := Session{AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken, Email: resp.User.Email}
	if err := a.Store.Set(ctx, kvstore.KeySession, s); err != nil {
		return fmt.Errorf("failed to persist session: %w", err)
	}
	a.logger.Info("session started", "user_id", resp.User.ID)
	a.reconcile()
	return nil
}

func (a *App) restoreSession(ctx context.Context) {
	if s, ok := a.CurrentSession(ctx); ok {
		a.API.SetToken(s.AccessToken)
	}
}

// handleTokenExpired forces a logout when the backend rejects the token.
func (a *App) handleTokenExpired() {
	a.logger.Warn("session token expired, logging out")
	if err := a.Logout(context.Background()); err != nil {
		a.logger.Error("failed to clear expired session", "error", err)
	}
}
