package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/dossier-backend/internal/data/repos/auth"
	"github.com/yungbote/dossier-backend/internal/data/repos/dossier"
	"github.com/yungbote/dossier-backend/internal/data/repos/user"
	"github.com/yungbote/dossier-backend/internal/platform/logger"
)

type UserRepo = user.UserRepo
type UserTokenRepo = auth.UserTokenRepo
type MagicLinkRepo = auth.MagicLinkRepo
type DossierRepo = dossier.DossierRepo

var ErrDossierNotFound = dossier.ErrNotFound

type Repos struct {
	User      UserRepo
	UserToken UserTokenRepo
	MagicLink MagicLinkRepo
	Dossier   DossierRepo
}

func New(db *gorm.DB, log *logger.Logger) Repos {
	return Repos{
		User:      user.NewUserRepo(db, log),
		UserToken: auth.NewUserTokenRepo(db, log),
		MagicLink: auth.NewMagicLinkRepo(db, log),
		Dossier:   dossier.NewDossierRepo(db, log),
	}
}
