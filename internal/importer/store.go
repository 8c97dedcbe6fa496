package importer

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/threadloom/pkg/models"
)

// FlatRenderEnqueuer schedules a flat-rendering job on the transaction
// so it only becomes visible if the import commits. The job queue
// supplies the implementation; the store stays ignorant of job kinds.
type FlatRenderEnqueuer func(ctx context.Context, tx pgx.Tx, postID int64) error

// PgStore is the pgx-backed Store
type PgStore struct {
	pool    *pgxpool.Pool
	enqueue FlatRenderEnqueuer
}

func NewPgStore(pool *pgxpool.Pool, enqueue FlatRenderEnqueuer) *PgStore {
	return &PgStore{pool: pool, enqueue: enqueue}
}

func (s *PgStore) PostBySubject(ctx context.Context, subject string) (*models.Post, error) {
	query := `
	SELECT id, board_id, section_id, user_id, subject, status, threaded_import, created_at, updated_at
	FROM posts
	WHERE subject = $1 AND threaded_import = FALSE
	LIMIT 1
	`

	var post models.Post
	err := s.pool.QueryRow(ctx, query, subject).Scan(
		&post.ID, &post.BoardID, &post.SectionID, &post.UserID, &post.Subject,
		&post.Status, &post.ThreadedImport, &post.CreatedAt, &post.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up post by subject: %w", err)
	}
	return &post, nil
}

func (s *PgStore) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin import transaction: %w", err)
	}

	ptx := &pgTx{tx: tx, enqueue: s.enqueue}
	if err := fn(ptx); err != nil {
		_ = tx.Rollback(ctx)
		return translateConflict(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return translateConflict(fmt.Errorf("failed to commit import: %w", err))
	}
	return nil
}

// translateConflict surfaces a subject uniqueness violation as
// ErrSubjectConflict so the coordinator can report it as a duplicate
// import rather than a generic failure.
func translateConflict(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == "index_posts_on_subject_flat" {
		return ErrSubjectConflict
	}
	return err
}

// pgTx implements Tx over one pgx transaction
type pgTx struct {
	tx      pgx.Tx
	enqueue FlatRenderEnqueuer
}

func (t *pgTx) CreatePost(ctx context.Context, post *models.Post) error {
	query := `
	INSERT INTO posts (
		board_id, section_id, user_id, subject, content, character_id, icon_id,
		status, threaded_import, last_activity, created_at, updated_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, '', NOW(), NOW())
	RETURNING id, created_at, updated_at
	`

	err := t.tx.QueryRow(ctx, query,
		post.BoardID, post.SectionID, post.UserID, post.Subject, post.Content,
		post.CharacterID, post.IconID, post.Status, post.ThreadedImport,
	).Scan(&post.ID, &post.CreatedAt, &post.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert post: %w", err)
	}
	return nil
}

func (t *pgTx) CreateReply(ctx context.Context, reply *models.Reply) error {
	query := `
	INSERT INTO replies (
		post_id, reply_order, user_id, character_id, icon_id, content,
		external_timestamp, created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
	RETURNING id, created_at
	`

	err := t.tx.QueryRow(ctx, query,
		reply.PostID, reply.ReplyOrder, reply.UserID, reply.CharacterID,
		reply.IconID, reply.Content, reply.ExternalTimestamp,
	).Scan(&reply.ID, &reply.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert reply: %w", err)
	}
	return nil
}

func (t *pgTx) UpdatePostSummary(ctx context.Context, post *models.Post) error {
	query := `
	UPDATE posts
	SET last_user_id = $1, last_reply_id = $2, last_activity = $3, updated_at = NOW()
	WHERE id = $4
	`

	_, err := t.tx.Exec(ctx, query, post.LastUserID, post.LastReplyID, post.LastActivity, post.ID)
	if err != nil {
		return fmt.Errorf("failed to finalize post summary: %w", err)
	}
	return nil
}

func (t *pgTx) EnqueueFlatRender(ctx context.Context, postID int64) error {
	if t.enqueue == nil {
		return nil
	}
	return t.enqueue(ctx, t.tx, postID)
}

// identity.Store implementation

func (t *pgTx) UserByID(ctx context.Context, id int64) (*models.User, error) {
	return t.scanUser(ctx, `SELECT id, username, created_at, updated_at FROM users WHERE id = $1`, id)
}

func (t *pgTx) UserByUsername(ctx context.Context, username string) (*models.User, error) {
	return t.scanUser(ctx, `SELECT id, username, created_at, updated_at FROM users WHERE username = $1`, username)
}

func (t *pgTx) UserByUsernameFold(ctx context.Context, username string) (*models.User, error) {
	return t.scanUser(ctx, `SELECT id, username, created_at, updated_at FROM users WHERE LOWER(username) = LOWER($1)`, username)
}

func (t *pgTx) scanUser(ctx context.Context, query string, arg interface{}) (*models.User, error) {
	var user models.User
	err := t.tx.QueryRow(ctx, query, arg).Scan(&user.ID, &user.Username, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	return &user, nil
}

func (t *pgTx) CharacterByScreenName(ctx context.Context, screenName string) (*models.Character, error) {
	query := `
	SELECT id, user_id, name, screen_name, created_at, updated_at
	FROM characters
	WHERE screen_name = $1
	`

	var ch models.Character
	err := t.tx.QueryRow(ctx, query, screenName).Scan(
		&ch.ID, &ch.UserID, &ch.Name, &ch.ScreenName, &ch.CreatedAt, &ch.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up character: %w", err)
	}
	return &ch, nil
}

func (t *pgTx) CreateCharacter(ctx context.Context, ch *models.Character) error {
	query := `
	INSERT INTO characters (user_id, name, screen_name, created_at, updated_at)
	VALUES ($1, $2, $3, NOW(), NOW())
	RETURNING id, created_at, updated_at
	`

	err := t.tx.QueryRow(ctx, query, ch.UserID, ch.Name, ch.ScreenName).
		Scan(&ch.ID, &ch.CreatedAt, &ch.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert character: %w", err)
	}
	return nil
}

func (t *pgTx) IconByURL(ctx context.Context, url string) (*models.Icon, error) {
	query := `SELECT id, user_id, url, keyword, created_at FROM icons WHERE url = $1`

	var icon models.Icon
	err := t.tx.QueryRow(ctx, query, url).Scan(
		&icon.ID, &icon.UserID, &icon.URL, &icon.Keyword, &icon.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up icon by url: %w", err)
	}
	return &icon, nil
}

func (t *pgTx) CharacterIcons(ctx context.Context, characterID int64) ([]models.Icon, error) {
	query := `
	SELECT i.id, i.user_id, i.url, i.keyword, i.created_at
	FROM icons i
	JOIN galleries_icons gi ON gi.icon_id = i.id
	JOIN characters_galleries cg ON cg.gallery_id = gi.gallery_id
	WHERE cg.character_id = $1
	ORDER BY i.id
	`
	return t.scanIcons(ctx, query, characterID)
}

func (t *pgTx) UserIcons(ctx context.Context, userID int64) ([]models.Icon, error) {
	query := `SELECT id, user_id, url, keyword, created_at FROM icons WHERE user_id = $1 ORDER BY id`
	return t.scanIcons(ctx, query, userID)
}

func (t *pgTx) scanIcons(ctx context.Context, query string, arg interface{}) ([]models.Icon, error) {
	rows, err := t.tx.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to list icons: %w", err)
	}
	defer rows.Close()

	var icons []models.Icon
	for rows.Next() {
		var icon models.Icon
		if err := rows.Scan(&icon.ID, &icon.UserID, &icon.URL, &icon.Keyword, &icon.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan icon: %w", err)
		}
		icons = append(icons, icon)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list icons: %w", err)
	}
	return icons, nil
}

func (t *pgTx) CreateIcon(ctx context.Context, icon *models.Icon) error {
	query := `
	INSERT INTO icons (user_id, url, keyword, created_at)
	VALUES ($1, $2, $3, NOW())
	RETURNING id, created_at
	`

	err := t.tx.QueryRow(ctx, query, icon.UserID, icon.URL, icon.Keyword).
		Scan(&icon.ID, &icon.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert icon: %w", err)
	}
	return nil
}

func (t *pgTx) FirstCharacterGallery(ctx context.Context, characterID int64) (*models.Gallery, error) {
	query := `
	SELECT g.id, g.user_id, g.name
	FROM galleries g
	JOIN characters_galleries cg ON cg.gallery_id = g.id
	WHERE cg.character_id = $1
	ORDER BY g.id
	LIMIT 1
	`

	var g models.Gallery
	err := t.tx.QueryRow(ctx, query, characterID).Scan(&g.ID, &g.UserID, &g.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up character gallery: %w", err)
	}
	return &g, nil
}

func (t *pgTx) CreateCharacterGallery(ctx context.Context, g *models.Gallery, characterID int64) error {
	err := t.tx.QueryRow(ctx,
		`INSERT INTO galleries (user_id, name) VALUES ($1, $2) RETURNING id`,
		g.UserID, g.Name,
	).Scan(&g.ID)
	if err != nil {
		return fmt.Errorf("failed to insert gallery: %w", err)
	}

	_, err = t.tx.Exec(ctx,
		`INSERT INTO characters_galleries (character_id, gallery_id) VALUES ($1, $2)`,
		characterID, g.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to attach gallery to character: %w", err)
	}
	return nil
}

func (t *pgTx) AddIconToGallery(ctx context.Context, galleryID, iconID int64) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO galleries_icons (gallery_id, icon_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		galleryID, iconID,
	)
	if err != nil {
		return fmt.Errorf("failed to add icon to gallery: %w", err)
	}
	return nil
}
