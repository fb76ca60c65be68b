package auth

import (
	"context"
	"time"
)

func (m *Manager) startRefreshLoop(sess Session) {
	if sess.RefreshToken == "" || sess.ExpiresInMs <= 0 {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.mu.Lock()
	if m.cancelRefresh != nil {
		m.cancelRefresh()
	}
	m.cancelRefresh = cancel
	m.mu.Unlock()

	go m.refreshLoop(ctx, sess.UserID, sess.ExpiresInMs)
}

func (m *Manager) refreshLoop(ctx context.Context, userID string, expiresInMs int64) {
	const minWait = 30 * time.Second
	const retryDelay = 30 * time.Second
	const refreshFraction = 80

	wait := refreshWait(expiresInMs, refreshFraction, minWait)

	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}

		if err := m.Refresh(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			m.logger.Error("token refresh failed",
				"user", userID,
				"err", err,
			)
			wait = retryDelay
			continue
		}

		m.logger.Info("token refreshed", "user", userID)

		if cur := m.Current(); cur != nil && cur.ExpiresInMs > 0 {
			expiresInMs = cur.ExpiresInMs
		}
		wait = refreshWait(expiresInMs, refreshFraction, minWait)
	}
}

func (m *Manager) doRefresh(ctx context.Context) error {
	cur := m.Current()
	if cur == nil || cur.RefreshToken == "" {
		return ErrNoSession
	}

	resp, err := m.tokenRequest(ctx, "refresh_token", map[string]string{
		"refresh_token": cur.RefreshToken,
	})
	if err != nil {
		return err
	}

	next := *cur
	next.AccessToken = resp.AccessToken
	if resp.RefreshToken != "" {
		next.RefreshToken = resp.RefreshToken
	}
	if resp.ExpiresIn > 0 {
		next.ExpiresInMs = resp.ExpiresIn * 1000
	}
	// apply, not SetSession: the running loop reschedules itself.
	return m.apply(next)
}

func refreshWait(
	expiresInMs int64,
	pct int,
	floor time.Duration,
) time.Duration {
	d := time.Duration(expiresInMs) * time.Millisecond * time.Duration(pct) / 100
	if d < floor {
		return floor
	}
	return d
}
