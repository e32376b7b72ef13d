package handler

import (
	"friendchat/internal/app/archive"
	"friendchat/internal/app/chat"
	"friendchat/internal/app/identity"
	"friendchat/internal/configs"
)

// AppDeps bundles the shared collaborators handed to every handler.
type AppDeps struct {
	Hub      *chat.Hub
	Config   *configs.AppConfig
	Registry *identity.Registry
	Archive  *archive.Archive
}
