package identity

import (
	"context"

	"github.com/threadloom/pkg/models"
)

// Store is the identity persistence surface the resolver works
// against. During an import the implementation is the import's own
// transaction, so identity records created here commit or roll back
// with the post.
//
// Lookup methods return (nil, nil) when no record matches.
type Store interface {
	UserByID(ctx context.Context, id int64) (*models.User, error)
	UserByUsername(ctx context.Context, username string) (*models.User, error)
	// UserByUsernameFold matches a username case-insensitively.
	UserByUsernameFold(ctx context.Context, username string) (*models.User, error)

	CharacterByScreenName(ctx context.Context, screenName string) (*models.Character, error)
	CreateCharacter(ctx context.Context, ch *models.Character) error

	IconByURL(ctx context.Context, url string) (*models.Icon, error)
	CharacterIcons(ctx context.Context, characterID int64) ([]models.Icon, error)
	UserIcons(ctx context.Context, userID int64) ([]models.Icon, error)
	CreateIcon(ctx context.Context, icon *models.Icon) error

	FirstCharacterGallery(ctx context.Context, characterID int64) (*models.Gallery, error)
	CreateCharacterGallery(ctx context.Context, g *models.Gallery, characterID int64) error
	AddIconToGallery(ctx context.Context, galleryID, iconID int64) error
}
