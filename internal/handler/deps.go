package handler

import (
	"dmchat/internal/app/chat"
	"dmchat/internal/app/message"
	"dmchat/internal/app/storage"
	"dmchat/internal/app/user"
	"dmchat/internal/configs"
	"dmchat/internal/pkg/auth/jwt"
	"dmchat/internal/pkg/limiter"
	"dmchat/internal/pkg/pow"
)

// AppDeps carries everything the HTTP layer needs. main owns the lifecycle of each field.
type AppDeps struct {
	Config      *configs.AppConfig
	Manager     *chat.Manager
	Verifier    *jwt.Verifier
	Users       user.Store
	Messages    message.Store
	Attachments storage.Service
	PowGate     *pow.Gate

	// AuthLimiter guards account creation and login.
	AuthLimiter *limiter.IPRateLimiter

	// WSLimiter guards websocket upgrades.
	WSLimiter *limiter.IPRateLimiter
}
