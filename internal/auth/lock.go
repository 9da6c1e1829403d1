package auth

import (
	"context"
	"log/slog"

	"github.com/hitoshi/nebulastream/internal/model"
)

// VerifyMatch はcandidateがアカウントロックに一致するかを判定する。
// ロックがなければ常にtrue。ロックがある場合は、設定されている各フィールドが
// candidateの対応フィールドと一致する場合のみtrue（candidate側が空なら不一致）。
func VerifyMatch(lock model.Lock, candidate *model.User) bool {
	if !lock.IsSet() {
		return true
	}
	if candidate == nil {
		return false
	}
	if lock.GoogleID != "" && candidate.GoogleID != lock.GoogleID {
		return false
	}
	if lock.Email != "" && candidate.Email != lock.Email {
		return false
	}
	return true
}

// LockReader はアカウントロックを読み出すインターフェース。
type LockReader interface {
	GetLock(ctx context.Context) model.Lock
}

// LockGuard は永続化されたロックを使ってアカウント切り替えを防ぐ。
type LockGuard struct {
	locks  LockReader
	logger *slog.Logger
}

// NewLockGuard はLockGuardを生成する。
func NewLockGuard(locks LockReader, logger *slog.Logger) *LockGuard {
	if logger == nil {
		logger = slog.Default()
	}
	return &LockGuard{locks: locks, logger: logger}
}

// Verify はcandidateが現在のロックに一致するかを返す。
func (g *LockGuard) Verify(ctx context.Context, candidate *model.User) bool {
	lock := g.locks.GetLock(ctx)
	if VerifyMatch(lock, candidate) {
		return true
	}

	switch {
	case lock.GoogleID != "" && (candidate == nil || candidate.GoogleID != lock.GoogleID):
		g.logger.Warn("account mismatch detected - different Google account")
	default:
		g.logger.Warn("account mismatch detected - different email")
	}
	return false
}
