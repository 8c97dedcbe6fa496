package identity

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/threadloom/internal/scrape"
	"github.com/threadloom/pkg/models"
)

// Resolution is the outcome of resolving one scraped entry: the local
// user it belongs to, the character it was posted as (nil on the
// alias path), and the icon it was posted with (nil when the entry
// carried no avatar).
type Resolution struct {
	User      *models.User
	Character *models.Character
	Icon      *models.Icon

	alias *AccountAlias
}

// Resolver maps scraped author labels and avatars onto local identity
// records, cheapest match first, creating new records only when
// nothing matches. It never mutates or reassigns ownership of an
// existing record.
type Resolver struct {
	aliases  AliasTable
	prompter Prompter
	log      zerolog.Logger
}

func NewResolver(aliases []AccountAlias, prompter Prompter, logger zerolog.Logger) *Resolver {
	return &Resolver{
		aliases:  NewAliasTable(aliases),
		prompter: prompter,
		log:      logger,
	}
}

// Resolve maps one scraped entry onto local identity records, using
// store for lookups and creations.
func (r *Resolver) Resolve(ctx context.Context, store Store, entry *scrape.ScrapedEntry) (*Resolution, error) {
	res, err := r.resolveAuthor(ctx, store, entry.AuthorLabel)
	if err != nil {
		return nil, err
	}

	icon, err := r.resolveIcon(ctx, store, entry, res)
	if err != nil {
		return nil, err
	}
	res.Icon = icon
	return res, nil
}

func (r *Resolver) resolveAuthor(ctx context.Context, store Store, label string) (*Resolution, error) {
	if alias, ok := r.aliases.Lookup(label); ok {
		user, err := store.UserByUsername(ctx, alias.Username)
		if err != nil {
			return nil, err
		}
		if user == nil {
			return nil, fmt.Errorf("alias %q maps to missing user %q", label, alias.Username)
		}
		return &Resolution{User: user, alias: &alias}, nil
	}

	ch, err := store.CharacterByScreenName(ctx, label)
	if err != nil {
		return nil, err
	}
	if ch != nil {
		user, err := store.UserByID(ctx, ch.UserID)
		if err != nil {
			return nil, err
		}
		if user == nil {
			return nil, fmt.Errorf("character %d references missing user %d", ch.ID, ch.UserID)
		}
		return &Resolution{User: user, Character: ch}, nil
	}

	// Unrecognized handle: ask for a manual mapping, then mint a
	// character with that handle under whoever answered.
	answer, err := r.prompter.ResolveHandle(label)
	if err != nil {
		return nil, err
	}
	user, err := r.userForAnswer(ctx, store, label, answer)
	if err != nil {
		return nil, err
	}

	newCh := &models.Character{UserID: user.ID, Name: label, ScreenName: label}
	if err := store.CreateCharacter(ctx, newCh); err != nil {
		return nil, fmt.Errorf("failed to create character %q: %w", label, err)
	}
	r.log.Info().Str("handle", label).Int64("user_id", user.ID).Msg("created character for unmatched handle")
	return &Resolution{User: user, Character: newCh}, nil
}

// userForAnswer resolves a prompt answer as a user id first, then as a
// case-insensitive username.
func (r *Resolver) userForAnswer(ctx context.Context, store Store, label, answer string) (*models.User, error) {
	if id, convErr := strconv.ParseInt(answer, 10, 64); convErr == nil {
		user, err := store.UserByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if user == nil {
			return nil, &UnknownIdentityError{Handle: label}
		}
		return user, nil
	}

	user, err := store.UserByUsernameFold(ctx, answer)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, &UnknownIdentityError{Handle: label}
	}
	return user, nil
}

func (r *Resolver) resolveIcon(ctx context.Context, store Store, entry *scrape.ScrapedEntry, res *Resolution) (*models.Icon, error) {
	if entry.IconURL == "" {
		return nil, nil
	}

	// URL identity is authoritative regardless of owner.
	canonical := CanonicalIconURL(entry.IconURL)
	icon, err := store.IconByURL(ctx, canonical)
	if err != nil {
		return nil, err
	}
	if icon != nil {
		return icon, nil
	}

	keyword := DeriveKeyword(entry.IconCaption)

	owned, err := r.candidateIcons(ctx, store, res)
	if err != nil {
		return nil, err
	}
	for i := range owned {
		if owned[i].Keyword == keyword {
			return &owned[i], nil
		}
	}

	if res.alias != nil && res.alias.PrefixedKeywords {
		// Legacy captions carry a category token before the real
		// keyword; retry with everything up to the first space gone.
		if i := strings.IndexByte(keyword, ' '); i >= 0 {
			suffix := keyword[i+1:]
			for j := range owned {
				if owned[j].Keyword == suffix {
					return &owned[j], nil
				}
			}
			keyword = suffix
		}
	}

	icon = &models.Icon{UserID: res.User.ID, URL: canonical, Keyword: keyword}
	if err := store.CreateIcon(ctx, icon); err != nil {
		return nil, fmt.Errorf("failed to create icon %q: %w", keyword, err)
	}
	r.log.Debug().Str("keyword", keyword).Str("url", canonical).Msg("created icon")

	if res.Character != nil {
		if err := r.attachToGallery(ctx, store, res.Character, icon); err != nil {
			return nil, err
		}
	}
	return icon, nil
}

// candidateIcons returns the icons keyword matching runs against: the
// resolved character's gallery icons, or the user's own icons on the
// alias path where no character is involved.
func (r *Resolver) candidateIcons(ctx context.Context, store Store, res *Resolution) ([]models.Icon, error) {
	if res.Character != nil {
		return store.CharacterIcons(ctx, res.Character.ID)
	}
	return store.UserIcons(ctx, res.User.ID)
}

func (r *Resolver) attachToGallery(ctx context.Context, store Store, ch *models.Character, icon *models.Icon) error {
	gallery, err := store.FirstCharacterGallery(ctx, ch.ID)
	if err != nil {
		return err
	}
	if gallery == nil {
		gallery = &models.Gallery{UserID: ch.UserID, Name: ch.Name}
		if err := store.CreateCharacterGallery(ctx, gallery, ch.ID); err != nil {
			return fmt.Errorf("failed to create gallery for character %d: %w", ch.ID, err)
		}
	}
	if err := store.AddIconToGallery(ctx, gallery.ID, icon.ID); err != nil {
		return fmt.Errorf("failed to attach icon %d to gallery %d: %w", icon.ID, gallery.ID, err)
	}
	return nil
}

// CanonicalIconURL rewrites an avatar URL to its canonical secure form
func CanonicalIconURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.Scheme = "https"
	return u.String()
}

// DeriveKeyword turns an avatar caption into the icon's display
// keyword. The trailing default marker and any leading category prefix
// are platform noise, not part of the keyword.
func DeriveKeyword(caption string) string {
	kw := strings.TrimSpace(caption)
	kw = strings.TrimSpace(strings.TrimSuffix(kw, "(Default)"))
	if i := strings.IndexByte(kw, ':'); i >= 0 && !strings.ContainsRune(kw[:i], ' ') {
		kw = strings.TrimSpace(kw[i+1:])
	}
	return kw
}
