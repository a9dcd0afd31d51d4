package bboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// TxBeginner is the slice of *pgxpool.Pool the service needs to open
// transactions; mocked in tests.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// BoardService orchestrates multi-entity persistence of user graphs and
// exposes the HTTP handlers in handlers.go.
type BoardService struct {
	logger    *slog.Logger
	dbconn    TxBeginner
	queries   Querier
	converter *GraphConverter
	telemetry *TelemetryConfig
	version   string
	gitSha    string
}

func NewBoardService(
	logger *slog.Logger,
	dbconn TxBeginner,
	queries Querier,
	converter *GraphConverter,
	telemetry *TelemetryConfig,
	version string,
	gitSha string,
) *BoardService {
	return &BoardService{
		logger:    logger,
		dbconn:    dbconn,
		queries:   queries,
		converter: converter,
		telemetry: telemetry,
		version:   version,
		gitSha:    gitSha,
	}
}

// ListUsers returns every user ordered by name ascending, each with its
// full owned graph, in transfer form. Read-only; no transaction.
func (s *BoardService) ListUsers(ctx context.Context) ([]UserTransfer, error) {
	start := time.Now()
	rows, err := s.queries.ListUsersByName(ctx)
	listUsersQueryDuration.WithLabelValues("ListUsersByName").Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	out := make([]UserTransfer, 0, len(rows))
	for _, row := range rows {
		g, err := s.loadGraphForUser(ctx, row)
		if err != nil {
			return nil, err
		}
		out = append(out, s.converter.UserToTransfer(g, row.ID))
	}
	return out, nil
}

// GetUser returns one user by primary key, or ErrNotFound.
func (s *BoardService) GetUser(ctx context.Context, id int64) (UserTransfer, error) {
	start := time.Now()
	row, err := s.queries.GetUser(ctx, id)
	getUserQueryDuration.WithLabelValues("GetUser").Observe(time.Since(start).Seconds())
	if errors.Is(err, pgx.ErrNoRows) {
		return UserTransfer{}, ErrNotFound
	}
	if err != nil {
		return UserTransfer{}, fmt.Errorf("failed to get user %d: %w", id, err)
	}

	g, err := s.loadGraphForUser(ctx, row)
	if err != nil {
		return UserTransfer{}, err
	}
	return s.converter.UserToTransfer(g, row.ID), nil
}

// CreateUser converts the transfer into a wired graph and persists the
// whole of it inside one transaction: every entity is durably stored or
// none are. The persistence calls run in foreign-key order (sections,
// forums, tags, user, topics, tag links, posts, pics, comments); ids are
// assigned by the store and threaded through the reciprocal links. The
// returned transfer reflects the persisted graph, assigned ids included.
func (s *BoardService) CreateUser(ctx context.Context, t UserTransfer) (UserTransfer, error) {
	ctx, span := s.tracer().Start(ctx, "CreateUser(svc)")
	defer span.End()

	g, userID := s.converter.ToUserGraph(t)
	if err := g.Validate(userID); err != nil {
		return UserTransfer{}, fmt.Errorf("graph wiring inconsistent: %w", err)
	}

	start := time.Now()
	defer func() {
		createUserTxDuration.WithLabelValues("CreateUser").Observe(time.Since(start).Seconds())
	}()

	span.AddEvent("BeginTxn")
	tx, err := s.dbconn.Begin(ctx)
	if err != nil {
		return UserTransfer{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	qtx := s.queries.(ExtendedQuerier).WithTx(tx)

	persisted, newUserID, err := s.persistGraph(ctx, qtx, g, userID)
	if err != nil {
		s.logger.ErrorContext(ctx, "error persisting user graph",
			slog.String("error", err.Error()),
			slog.String("user_hash", hashEmail(t.Email)))
		return UserTransfer{}, err
	}

	span.AddEvent("tx.Commit")
	if err := tx.Commit(ctx); err != nil {
		return UserTransfer{}, fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.logger.DebugContext(ctx, "user graph created",
		slog.Int64("user_id", newUserID),
		slog.Int("posts", len(persisted.UserPosts[newUserID])),
		slog.Int("topics", len(persisted.UserTopics[newUserID])))

	return s.converter.UserToTransfer(persisted, newUserID), nil
}

// UpdateUser overwrites scalar fields only. The nested associations in the
// inbound transfer are converted for field extraction and then discarded;
// posts, topics and comments attached to the stored user are untouched.
func (s *BoardService) UpdateUser(ctx context.Context, id int64, t UserTransfer) (UserTransfer, error) {
	ctx, span := s.tracer().Start(ctx, "UpdateUser(svc)")
	defer span.End()

	g, localID := s.converter.ToUserGraph(t)
	incoming := g.Users[localID]

	row, err := s.queries.GetUser(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return UserTransfer{}, ErrNotFound
	}
	if err != nil {
		return UserTransfer{}, fmt.Errorf("failed to load user %d: %w", id, err)
	}

	span.AddEvent("qtx.UpdateUserScalars")
	err = s.queries.UpdateUserScalars(ctx, UpdateUserParams{
		ID:       row.ID,
		Name:     incoming.Name,
		Login:    incoming.Login,
		Password: incoming.Password,
		Email:    incoming.Email,
		Role:     string(incoming.Role),
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return UserTransfer{}, ErrNotFound
	}
	if err != nil {
		return UserTransfer{}, fmt.Errorf("failed to update user %d: %w", id, err)
	}

	row.Name = incoming.Name
	row.Login = incoming.Login
	row.Password = incoming.Password
	row.Email = incoming.Email
	row.Role = string(incoming.Role)

	loaded, err := s.loadGraphForUser(ctx, row)
	if err != nil {
		return UserTransfer{}, err
	}
	return s.converter.UserToTransfer(loaded, row.ID), nil
}

// DeleteUser removes the user row; owned entities follow through the
// store's cascading delete, so nothing is left referencing a missing user.
// Deleting an absent id is idempotent success by policy.
func (s *BoardService) DeleteUser(ctx context.Context, id int64) error {
	if err := s.queries.DeleteUser(ctx, id); err != nil {
		return fmt.Errorf("failed to delete user %d: %w", id, err)
	}
	return nil
}

// loadGraphForUser reassembles the arena graph for one stored user row by
// walking the ownership chains: posts with their pics and comments, topics
// with their tags and forum/section chain, and the user's own comments.
func (s *BoardService) loadGraphForUser(ctx context.Context, row UserRow) (*Graph, error) {
	g := NewGraph()
	userID := g.PutUser(&User{
		ID:       row.ID,
		Name:     row.Name,
		Login:    row.Login,
		Password: row.Password,
		Email:    row.Email,
		Role:     Role(row.Role),
	})

	posts, err := s.queries.ListPostsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts for user %d: %w", userID, err)
	}
	for _, p := range posts {
		if err := s.loadPost(ctx, g, p); err != nil {
			return nil, err
		}
		addLink(g.UserPosts, userID, p.ID)
		g.PostUser[p.ID] = userID
	}

	comments, err := s.queries.ListCommentsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments for user %d: %w", userID, err)
	}
	for _, c := range comments {
		if _, ok := g.Comments[c.ID]; !ok {
			g.PutComment(&Comment{ID: c.ID, Name: c.Name})
		}
		addLink(g.UserComments, userID, c.ID)
		g.CommentUser[c.ID] = userID
		if c.PostID.Valid {
			g.CommentPost[c.ID] = c.PostID.Int64
		}
	}

	topics, err := s.queries.ListTopicsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list topics for user %d: %w", userID, err)
	}
	for _, t := range topics {
		g.PutTopic(&Topic{ID: t.ID, Name: t.Name})
		addLink(g.UserTopics, userID, t.ID)
		g.TopicUser[t.ID] = userID

		tags, err := s.queries.ListTagsByTopic(ctx, t.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list tags for topic %d: %w", t.ID, err)
		}
		for _, tag := range tags {
			if _, ok := g.Tags[tag.ID]; !ok {
				g.PutTag(&Tag{ID: tag.ID, Name: tag.Name})
			}
			addLink(g.TopicTags, t.ID, tag.ID)
			addLink(g.TagTopics, tag.ID, t.ID)
		}

		if t.ForumID.Valid {
			if err := s.loadForumChain(ctx, g, t.ID, t.ForumID.Int64); err != nil {
				return nil, err
			}
		}

		topicPosts, err := s.queries.ListPostsByTopic(ctx, t.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list posts for topic %d: %w", t.ID, err)
		}
		for _, p := range topicPosts {
			if err := s.loadPost(ctx, g, p); err != nil {
				return nil, err
			}
			addLink(g.TopicPosts, t.ID, p.ID)
			g.PostTopic[p.ID] = t.ID
		}
	}

	return g, nil
}

func (s *BoardService) loadPost(ctx context.Context, g *Graph, p PostRow) error {
	if _, ok := g.Posts[p.ID]; ok {
		return nil
	}
	g.PutPost(&Post{ID: p.ID, Message: p.Message, Date: p.Date})

	pics, err := s.queries.ListPicsByPost(ctx, p.ID)
	if err != nil {
		return fmt.Errorf("failed to list pics for post %d: %w", p.ID, err)
	}
	for _, pic := range pics {
		g.PutPic(&Pic{ID: pic.ID, Caption: pic.Caption, ImageLink: pic.ImageLink})
		addLink(g.PostPics, p.ID, pic.ID)
		g.PicPost[pic.ID] = p.ID
	}

	comments, err := s.queries.ListCommentsByPost(ctx, p.ID)
	if err != nil {
		return fmt.Errorf("failed to list comments for post %d: %w", p.ID, err)
	}
	for _, c := range comments {
		if _, ok := g.Comments[c.ID]; !ok {
			g.PutComment(&Comment{ID: c.ID, Name: c.Name})
		}
		addLink(g.PostComments, p.ID, c.ID)
		g.CommentPost[c.ID] = p.ID
	}
	return nil
}

func (s *BoardService) loadForumChain(ctx context.Context, g *Graph, topicID, forumID int64) error {
	forum, err := s.queries.GetForum(ctx, forumID)
	if err != nil {
		return fmt.Errorf("failed to get forum %d: %w", forumID, err)
	}
	if _, ok := g.Forums[forum.ID]; !ok {
		g.PutForum(&Forum{ID: forum.ID, Name: forum.Name})
	}
	g.TopicForum[topicID] = forum.ID
	addLink(g.ForumTopics, forum.ID, topicID)

	if forum.SectionID.Valid {
		section, err := s.queries.GetSection(ctx, forum.SectionID.Int64)
		if err != nil {
			return fmt.Errorf("failed to get section %d: %w", forum.SectionID.Int64, err)
		}
		if _, ok := g.Sections[section.ID]; !ok {
			g.PutSection(&Section{ID: section.ID, Name: section.Name})
		}
		g.ForumSection[forum.ID] = section.ID
		addLink(g.SectionForums, section.ID, forum.ID)
	}
	return nil
}

// persistGraph writes every entity reachable from userID through qtx and
// returns the same graph rebuilt around the store-assigned ids. Local ids
// are unique across types within a converter-built graph, so one map
// carries the translation.
func (s *BoardService) persistGraph(ctx context.Context, qtx Querier, g *Graph, userID int64) (*Graph, int64, error) {
	ids := make(map[int64]int64)

	// Sections, forums and tags first; topics and posts reference them.
	for _, tid := range g.UserTopics[userID] {
		if fid := g.TopicForum[tid]; fid != 0 {
			if sid := g.ForumSection[fid]; sid != 0 {
				if _, done := ids[sid]; !done {
					newID, err := qtx.CreateSection(ctx, g.Sections[sid].Name)
					if err != nil {
						return nil, 0, fmt.Errorf("failed to create section: %w", err)
					}
					ids[sid] = newID
				}
			}
			if _, done := ids[fid]; !done {
				newID, err := qtx.CreateForum(ctx, CreateForumParams{
					Name:      g.Forums[fid].Name,
					SectionID: remapID(ids, g.ForumSection[fid]),
				})
				if err != nil {
					return nil, 0, fmt.Errorf("failed to create forum: %w", err)
				}
				ids[fid] = newID
			}
		}
		for _, tagID := range g.TopicTags[tid] {
			if _, done := ids[tagID]; !done {
				newID, err := qtx.CreateTag(ctx, g.Tags[tagID].Name)
				if err != nil {
					return nil, 0, fmt.Errorf("failed to create tag: %w", err)
				}
				ids[tagID] = newID
			}
		}
	}

	u := g.Users[userID]
	newUserID, err := qtx.CreateUser(ctx, CreateUserParams{
		Name:     u.Name,
		Login:    u.Login,
		Password: u.Password,
		Email:    u.Email,
		Role:     string(u.Role),
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create user: %w", err)
	}
	ids[userID] = newUserID

	for _, tid := range g.UserTopics[userID] {
		newID, err := qtx.CreateTopic(ctx, CreateTopicParams{
			Name:    g.Topics[tid].Name,
			UserID:  remapID(ids, g.TopicUser[tid]),
			ForumID: remapID(ids, g.TopicForum[tid]),
		})
		if err != nil {
			return nil, 0, fmt.Errorf("failed to create topic: %w", err)
		}
		ids[tid] = newID

		for _, tagID := range g.TopicTags[tid] {
			if err := qtx.LinkTopicTag(ctx, LinkTopicTagParams{TopicID: newID, TagID: ids[tagID]}); err != nil {
				return nil, 0, fmt.Errorf("failed to link topic tag: %w", err)
			}
		}
	}

	persistPost := func(pid int64) error {
		if _, done := ids[pid]; done {
			return nil
		}
		p := g.Posts[pid]
		newID, err := qtx.CreatePost(ctx, CreatePostParams{
			Message: p.Message,
			Date:    p.Date,
			UserID:  remapID(ids, g.PostUser[pid]),
			TopicID: remapID(ids, g.PostTopic[pid]),
		})
		if err != nil {
			return fmt.Errorf("failed to create post: %w", err)
		}
		ids[pid] = newID

		for _, picID := range g.PostPics[pid] {
			pic := g.Pics[picID]
			newPicID, err := qtx.CreatePic(ctx, CreatePicParams{
				Caption:   pic.Caption,
				ImageLink: pic.ImageLink,
				PostID:    newID,
			})
			if err != nil {
				return fmt.Errorf("failed to create pic: %w", err)
			}
			ids[picID] = newPicID
		}
		return nil
	}

	for _, pid := range g.UserPosts[userID] {
		if err := persistPost(pid); err != nil {
			return nil, 0, err
		}
	}
	for _, tid := range g.UserTopics[userID] {
		for _, pid := range g.TopicPosts[tid] {
			if err := persistPost(pid); err != nil {
				return nil, 0, err
			}
		}
	}

	persistComment := func(cid int64) error {
		if _, done := ids[cid]; done {
			return nil
		}
		newID, err := qtx.CreateComment(ctx, CreateCommentParams{
			Name:   g.Comments[cid].Name,
			UserID: remapID(ids, g.CommentUser[cid]),
			PostID: remapID(ids, g.CommentPost[cid]),
		})
		if err != nil {
			return fmt.Errorf("failed to create comment: %w", err)
		}
		ids[cid] = newID
		return nil
	}

	for _, cid := range g.UserComments[userID] {
		if err := persistComment(cid); err != nil {
			return nil, 0, err
		}
	}
	for pid := range g.Posts {
		if _, inserted := ids[pid]; !inserted {
			continue
		}
		for _, cid := range g.PostComments[pid] {
			if err := persistComment(cid); err != nil {
				return nil, 0, err
			}
		}
	}

	return remapGraph(g, ids), newUserID, nil
}

// remapID translates a graph id through the local→store map into a
// nullable foreign key. Unset or unpersisted references come out null.
func remapID(ids map[int64]int64, id int64) pgtype.Int8 {
	if id == 0 {
		return pgtype.Int8{}
	}
	newID, ok := ids[id]
	if !ok {
		return pgtype.Int8{}
	}
	return pgtype.Int8{Int64: newID, Valid: true}
}

// remapGraph rebuilds g with every id translated through ids. Entities that
// were never persisted (no mapping) are dropped.
func remapGraph(g *Graph, ids map[int64]int64) *Graph {
	out := NewGraph()

	for old, u := range g.Users {
		if newID, ok := ids[old]; ok {
			cp := *u
			cp.ID = newID
			out.PutUser(&cp)
		}
	}
	for old, p := range g.Posts {
		if newID, ok := ids[old]; ok {
			cp := *p
			cp.ID = newID
			out.PutPost(&cp)
		}
	}
	for old, p := range g.Pics {
		if newID, ok := ids[old]; ok {
			cp := *p
			cp.ID = newID
			out.PutPic(&cp)
		}
	}
	for old, c := range g.Comments {
		if newID, ok := ids[old]; ok {
			cp := *c
			cp.ID = newID
			out.PutComment(&cp)
		}
	}
	for old, t := range g.Topics {
		if newID, ok := ids[old]; ok {
			cp := *t
			cp.ID = newID
			out.PutTopic(&cp)
		}
	}
	for old, t := range g.Tags {
		if newID, ok := ids[old]; ok {
			cp := *t
			cp.ID = newID
			out.PutTag(&cp)
		}
	}
	for old, f := range g.Forums {
		if newID, ok := ids[old]; ok {
			cp := *f
			cp.ID = newID
			out.PutForum(&cp)
		}
	}
	for old, sec := range g.Sections {
		if newID, ok := ids[old]; ok {
			cp := *sec
			cp.ID = newID
			out.PutSection(&cp)
		}
	}

	remapColl := func(src, dst map[int64][]int64) {
		for owner, members := range src {
			newOwner, ok := ids[owner]
			if !ok {
				continue
			}
			for _, member := range members {
				if newMember, ok := ids[member]; ok {
					addLink(dst, newOwner, newMember)
				}
			}
		}
	}
	remapColl(g.UserPosts, out.UserPosts)
	remapColl(g.UserTopics, out.UserTopics)
	remapColl(g.UserComments, out.UserComments)
	remapColl(g.PostPics, out.PostPics)
	remapColl(g.PostComments, out.PostComments)
	remapColl(g.TopicPosts, out.TopicPosts)
	remapColl(g.TopicTags, out.TopicTags)
	remapColl(g.TagTopics, out.TagTopics)
	remapColl(g.ForumTopics, out.ForumTopics)
	remapColl(g.SectionForums, out.SectionForums)

	remapRef := func(src, dst map[int64]int64) {
		for from, to := range src {
			newFrom, ok := ids[from]
			if !ok {
				continue
			}
			if newTo, ok := ids[to]; ok {
				dst[newFrom] = newTo
			}
		}
	}
	remapRef(g.PostUser, out.PostUser)
	remapRef(g.PostTopic, out.PostTopic)
	remapRef(g.PicPost, out.PicPost)
	remapRef(g.CommentUser, out.CommentUser)
	remapRef(g.CommentPost, out.CommentPost)
	remapRef(g.TopicUser, out.TopicUser)
	remapRef(g.TopicForum, out.TopicForum)
	remapRef(g.ForumSection, out.ForumSection)

	return out
}

func (s *BoardService) tracer() trace.Tracer {
	if s.telemetry == nil || s.telemetry.Tracer == nil {
		return noop.NewTracerProvider().Tracer("bboard")
	}
	return s.telemetry.Tracer
}
