package bboard

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// Querier is the store surface the service depends on; it is satisfied by
// *Queries and by the mocks in tests.
type Querier interface {
	CreateUser(ctx context.Context, arg CreateUserParams) (int64, error)
	GetUser(ctx context.Context, id int64) (UserRow, error)
	ListUsersByName(ctx context.Context) ([]UserRow, error)
	UpdateUserScalars(ctx context.Context, arg UpdateUserParams) error
	DeleteUser(ctx context.Context, id int64) error

	CreateSection(ctx context.Context, name string) (int64, error)
	GetSection(ctx context.Context, id int64) (SectionRow, error)
	CreateForum(ctx context.Context, arg CreateForumParams) (int64, error)
	GetForum(ctx context.Context, id int64) (ForumRow, error)
	CreateTag(ctx context.Context, name string) (int64, error)
	ListTagsByTopic(ctx context.Context, topicID int64) ([]TagRow, error)
	CreateTopic(ctx context.Context, arg CreateTopicParams) (int64, error)
	ListTopicsByUser(ctx context.Context, userID int64) ([]TopicRow, error)
	LinkTopicTag(ctx context.Context, arg LinkTopicTagParams) error

	CreatePost(ctx context.Context, arg CreatePostParams) (int64, error)
	ListPostsByUser(ctx context.Context, userID int64) ([]PostRow, error)
	ListPostsByTopic(ctx context.Context, topicID int64) ([]PostRow, error)
	CreatePic(ctx context.Context, arg CreatePicParams) (int64, error)
	ListPicsByPost(ctx context.Context, postID int64) ([]PicRow, error)
	CreateComment(ctx context.Context, arg CreateCommentParams) (int64, error)
	ListCommentsByUser(ctx context.Context, userID int64) ([]CommentRow, error)
	ListCommentsByPost(ctx context.Context, postID int64) ([]CommentRow, error)
}

// ExtendedQuerier adds transaction rebinding to Querier.
type ExtendedQuerier interface {
	Querier
	WithTx(tx pgx.Tx) ExtendedQuerier
}

// QueriesWrapper adapts *Queries to ExtendedQuerier.
type QueriesWrapper struct {
	*Queries
}

func NewQuerier(db DBTX) ExtendedQuerier {
	return &QueriesWrapper{Queries: New(db)}
}

func (qw *QueriesWrapper) WithTx(tx pgx.Tx) ExtendedQuerier {
	return &QueriesWrapper{Queries: qw.Queries.WithTx(tx)}
}

var _ Querier = (*Queries)(nil)
