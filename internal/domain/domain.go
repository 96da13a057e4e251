package domain

import (
	"github.com/yungbote/dossier-backend/internal/domain/auth"
	"github.com/yungbote/dossier-backend/internal/domain/dossier"
	"github.com/yungbote/dossier-backend/internal/domain/user"
)

type User = user.User
type UserToken = auth.UserToken
type MagicLink = auth.MagicLink

type Dossier = dossier.Dossier
type DossierPatch = dossier.Patch
type AttachmentSlot = dossier.Slot
type Attachment = dossier.Attachment

// Models lists every table the service migrates.
func Models() []any {
	return []any{
		&User{},
		&UserToken{},
		&MagicLink{},
		&Dossier{},
	}
}
