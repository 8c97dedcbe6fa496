package importer

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/threadloom/internal/identity"
	"github.com/threadloom/internal/scrape"
	"github.com/threadloom/pkg/models"
)

// Request describes one import invocation. Values are set once by the
// caller and never mutated by the pipeline.
type Request struct {
	URL         string
	BoardID     int64
	SectionID   *int64
	Status      string // post status on success; defaults to active
	Threaded    bool
	Subject     string   // optional override for the duplicate check
	ThreadURLs  []string // explicit subthreads instead of discovery
	RequestedBy int64
}

// Fetcher retrieves a URL as a parsed document
type Fetcher interface {
	Fetch(ctx context.Context, pageURL string) (*goquery.Document, error)
}

// Store is the persistence surface of the coordinator
type Store interface {
	// PostBySubject finds an existing non-threaded post with exactly
	// this subject, or (nil, nil).
	PostBySubject(ctx context.Context, subject string) (*models.Post, error)
	// WithTx runs fn inside one transaction; every write made through
	// the Tx commits or rolls back together.
	WithTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the transactional persistence surface for a single import.
// It carries the identity store so records minted during resolution
// roll back with the post.
type Tx interface {
	identity.Store

	CreatePost(ctx context.Context, post *models.Post) error
	CreateReply(ctx context.Context, reply *models.Reply) error
	UpdatePostSummary(ctx context.Context, post *models.Post) error
	// EnqueueFlatRender schedules regeneration of the post's cached
	// flat rendering, tied to the same commit.
	EnqueueFlatRender(ctx context.Context, postID int64) error
}

// Coordinator drives one import end to end: root fetch, duplicate
// check, target discovery, reply processing, and finalization of the
// denormalized summary fields. The pipeline is sequential; each fetch
// completes before the next is issued, and the import either commits
// whole or leaves nothing behind.
type Coordinator struct {
	fetcher  Fetcher
	resolver *identity.Resolver
	store    Store
	log      zerolog.Logger
}

func NewCoordinator(fetcher Fetcher, resolver *identity.Resolver, store Store, logger zerolog.Logger) *Coordinator {
	return &Coordinator{
		fetcher:  fetcher,
		resolver: resolver,
		store:    store,
		log:      logger,
	}
}

// Run executes one import and returns the committed post
func (c *Coordinator) Run(ctx context.Context, req Request) (*models.Post, error) {
	logger := c.log.With().
		Str("run_id", uuid.NewString()).
		Str("url", req.URL).
		Bool("threaded", req.Threaded).
		Logger()

	if err := scrape.ValidateURL(req.URL); err != nil {
		return nil, err
	}
	rootURL := scrape.NormalizeURL(req.URL, req.Threaded)

	logger.Debug().Str("normalized_url", rootURL).Msg("fetching root page")
	doc, err := c.fetcher.Fetch(ctx, rootURL)
	if err != nil {
		return nil, err
	}

	entry, err := scrape.ParseEntry(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to parse post from %s: %w", rootURL, err)
	}

	subject := req.Subject
	if subject == "" {
		subject = entry.Title
	}

	// Threaded imports skip the duplicate check: importing different
	// subthreads of one thread over multiple runs is an expected
	// workflow.
	if !req.Threaded {
		existing, err := c.store.PostBySubject(ctx, subject)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, &AlreadyImportedError{PostID: existing.ID, Subject: subject}
		}
	}

	base, _ := url.Parse(rootURL)
	targets := c.targets(req, doc, base)
	logger.Info().Int("targets", len(targets)).Msg("import targets discovered")

	var post *models.Post
	var st replyState
	err = c.store.WithTx(ctx, func(tx Tx) error {
		var txErr error
		post, txErr = c.createPost(ctx, tx, req, entry, subject)
		if txErr != nil {
			return txErr
		}

		st = replyState{seen: make(map[string]bool)}
		if txErr := c.importReplies(ctx, tx, post, doc, &st); txErr != nil {
			return txErr
		}
		for _, target := range targets {
			page, txErr := c.fetcher.Fetch(ctx, target)
			if txErr != nil {
				return txErr
			}
			if txErr := c.importReplies(ctx, tx, post, page, &st); txErr != nil {
				return txErr
			}
		}

		c.finalize(post, entry, &st)
		if txErr := tx.UpdatePostSummary(ctx, post); txErr != nil {
			return txErr
		}
		return tx.EnqueueFlatRender(ctx, post.ID)
	})
	if err != nil {
		if errors.Is(err, ErrSubjectConflict) {
			// A concurrent import won the race; report it the same way
			// the pre-check would have.
			if existing, lookupErr := c.store.PostBySubject(ctx, subject); lookupErr == nil && existing != nil {
				return nil, &AlreadyImportedError{PostID: existing.ID, Subject: subject}
			}
			return nil, &AlreadyImportedError{Subject: subject}
		}
		return nil, err
	}

	logger.Info().Int64("post_id", post.ID).Int("replies", st.count).Msg("import committed")
	return post, nil
}

// targets produces the ordered list of additional fetch targets beyond
// the root page. An explicit subthread list on the request bypasses
// discovery entirely.
func (c *Coordinator) targets(req Request, doc *goquery.Document, base *url.URL) []string {
	if len(req.ThreadURLs) > 0 {
		out := make([]string, 0, len(req.ThreadURLs))
		for _, u := range req.ThreadURLs {
			out = append(out, scrape.NormalizeURL(u, true))
		}
		return out
	}
	if req.Threaded {
		links := scrape.ContinuationLinks(doc, base)
		out := make([]string, 0, len(links))
		for _, l := range links {
			out = append(out, scrape.NormalizeURL(l, true))
		}
		return out
	}
	links := scrape.PageLinks(doc, base)
	out := make([]string, 0, len(links))
	for _, l := range links {
		out = append(out, scrape.NormalizeURL(l, false))
	}
	return out
}

func (c *Coordinator) createPost(ctx context.Context, tx Tx, req Request, entry *scrape.ScrapedEntry, subject string) (*models.Post, error) {
	res, err := c.resolver.Resolve(ctx, tx, entry)
	if err != nil {
		return nil, err
	}

	status := req.Status
	if status == "" {
		status = models.PostStatusActive
	}

	post := &models.Post{
		BoardID:        req.BoardID,
		SectionID:      req.SectionID,
		UserID:         res.User.ID,
		Subject:        subject,
		Content:        entry.BodyHTML,
		Status:         status,
		ThreadedImport: req.Threaded,
	}
	if res.Character != nil {
		post.CharacterID = &res.Character.ID
	}
	if res.Icon != nil {
		post.IconID = &res.Icon.ID
	}

	if err := tx.CreatePost(ctx, post); err != nil {
		return nil, fmt.Errorf("failed to create post %q: %w", subject, err)
	}
	return post, nil
}

type replyState struct {
	seen  map[string]bool
	order int
	count int
	last  *models.Reply
}

// importReplies folds every reply on one page into the post. Replies
// already seen on an earlier page (threaded pages re-render their
// ancestors) are skipped, so the union of root and targets yields each
// reply exactly once.
func (c *Coordinator) importReplies(ctx context.Context, tx Tx, post *models.Post, doc *goquery.Document, st *replyState) error {
	for _, entry := range scrape.ParseComments(doc) {
		if entry.Permalink != "" {
			if st.seen[entry.Permalink] {
				continue
			}
			st.seen[entry.Permalink] = true
		}

		res, err := c.resolver.Resolve(ctx, tx, entry)
		if err != nil {
			return err
		}

		reply := &models.Reply{
			PostID:            post.ID,
			ReplyOrder:        st.order,
			UserID:            res.User.ID,
			Content:           entry.BodyHTML,
			ExternalTimestamp: entry.Timestamp,
		}
		if res.Character != nil {
			reply.CharacterID = &res.Character.ID
		}
		if res.Icon != nil {
			reply.IconID = &res.Icon.ID
		}

		if err := tx.CreateReply(ctx, reply); err != nil {
			return fmt.Errorf("failed to create reply %d: %w", st.order, err)
		}
		st.order++
		st.count++
		st.last = reply
	}
	return nil
}

// finalize fills the denormalized summary fields from the final reply,
// or from the post itself when the thread had none.
func (c *Coordinator) finalize(post *models.Post, entry *scrape.ScrapedEntry, st *replyState) {
	if st.last == nil {
		post.LastUserID = &post.UserID
		post.LastActivity = entry.Timestamp
		return
	}
	post.LastUserID = &st.last.UserID
	post.LastReplyID = &st.last.ID
	post.LastActivity = st.last.ExternalTimestamp
}
