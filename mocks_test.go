package bboard

import (
	"context"
	"io"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(q Querier) *BoardService {
	return NewBoardService(
		newTestLogger(),
		&MockTxBeginner{},
		q,
		NewGraphConverter(nil),
		nil,
		"test",
		"test",
	)
}

// MockTx is a minimal pgx.Tx for exercising the transactional create path.
type MockTx struct {
	CommitFunc   func(ctx context.Context) error
	RollbackFunc func(ctx context.Context) error

	Committed  bool
	RolledBack bool
}

func (m *MockTx) Commit(ctx context.Context) error {
	m.Committed = true
	if m.CommitFunc != nil {
		return m.CommitFunc(ctx)
	}
	return nil
}

func (m *MockTx) Rollback(ctx context.Context) error {
	m.RolledBack = true
	if m.RollbackFunc != nil {
		return m.RollbackFunc(ctx)
	}
	return nil
}

func (m *MockTx) Begin(ctx context.Context) (pgx.Tx, error) { return m, nil }
func (m *MockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (m *MockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (m *MockTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (m *MockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (m *MockTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}
func (m *MockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (m *MockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row { return nil }
func (m *MockTx) Conn() *pgx.Conn                                               { return nil }

// MockTxBeginner hands out MockTx values and remembers the last one.
type MockTxBeginner struct {
	BeginFunc func(ctx context.Context) (pgx.Tx, error)
	LastTx    *MockTx
}

func (m *MockTxBeginner) Begin(ctx context.Context) (pgx.Tx, error) {
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx)
	}
	m.LastTx = &MockTx{}
	return m.LastTx, nil
}

// MockQueries implements ExtendedQuerier. Unset Func fields fall back to an
// in-memory default that assigns ids from 1000 and records the insert order.
type MockQueries struct {
	nextID int64

	Calls []string

	CreatedUsers    []CreateUserParams
	CreatedSections []string
	CreatedForums   []CreateForumParams
	CreatedTags     []string
	CreatedTopics   []CreateTopicParams
	CreatedPosts    []CreatePostParams
	CreatedPics     []CreatePicParams
	CreatedComments []CreateCommentParams
	LinkedTopicTags []LinkTopicTagParams

	CreateUserFunc        func(ctx context.Context, arg CreateUserParams) (int64, error)
	GetUserFunc           func(ctx context.Context, id int64) (UserRow, error)
	ListUsersByNameFunc   func(ctx context.Context) ([]UserRow, error)
	UpdateUserScalarsFunc func(ctx context.Context, arg UpdateUserParams) error
	DeleteUserFunc        func(ctx context.Context, id int64) error

	CreateSectionFunc   func(ctx context.Context, name string) (int64, error)
	GetSectionFunc      func(ctx context.Context, id int64) (SectionRow, error)
	CreateForumFunc     func(ctx context.Context, arg CreateForumParams) (int64, error)
	GetForumFunc        func(ctx context.Context, id int64) (ForumRow, error)
	CreateTagFunc       func(ctx context.Context, name string) (int64, error)
	ListTagsByTopicFunc func(ctx context.Context, topicID int64) ([]TagRow, error)
	CreateTopicFunc     func(ctx context.Context, arg CreateTopicParams) (int64, error)
	ListTopicsByUserFunc func(ctx context.Context, userID int64) ([]TopicRow, error)
	LinkTopicTagFunc    func(ctx context.Context, arg LinkTopicTagParams) error

	CreatePostFunc         func(ctx context.Context, arg CreatePostParams) (int64, error)
	ListPostsByUserFunc    func(ctx context.Context, userID int64) ([]PostRow, error)
	ListPostsByTopicFunc   func(ctx context.Context, topicID int64) ([]PostRow, error)
	CreatePicFunc          func(ctx context.Context, arg CreatePicParams) (int64, error)
	ListPicsByPostFunc     func(ctx context.Context, postID int64) ([]PicRow, error)
	CreateCommentFunc      func(ctx context.Context, arg CreateCommentParams) (int64, error)
	ListCommentsByUserFunc func(ctx context.Context, userID int64) ([]CommentRow, error)
	ListCommentsByPostFunc func(ctx context.Context, postID int64) ([]CommentRow, error)
}

func (m *MockQueries) WithTx(tx pgx.Tx) ExtendedQuerier { return m }

func (m *MockQueries) alloc() int64 {
	if m.nextID == 0 {
		m.nextID = 999
	}
	m.nextID++
	return m.nextID
}

func (m *MockQueries) record(call string) {
	m.Calls = append(m.Calls, call)
}

func (m *MockQueries) CreateUser(ctx context.Context, arg CreateUserParams) (int64, error) {
	m.record("CreateUser")
	if m.CreateUserFunc != nil {
		return m.CreateUserFunc(ctx, arg)
	}
	m.CreatedUsers = append(m.CreatedUsers, arg)
	return m.alloc(), nil
}

func (m *MockQueries) GetUser(ctx context.Context, id int64) (UserRow, error) {
	m.record("GetUser")
	if m.GetUserFunc != nil {
		return m.GetUserFunc(ctx, id)
	}
	return UserRow{ID: id, Name: "Mock User", Login: "mock", Email: "mock@example.com", Role: "USER"}, nil
}

func (m *MockQueries) ListUsersByName(ctx context.Context) ([]UserRow, error) {
	m.record("ListUsersByName")
	if m.ListUsersByNameFunc != nil {
		return m.ListUsersByNameFunc(ctx)
	}
	return nil, nil
}

func (m *MockQueries) UpdateUserScalars(ctx context.Context, arg UpdateUserParams) error {
	m.record("UpdateUserScalars")
	if m.UpdateUserScalarsFunc != nil {
		return m.UpdateUserScalarsFunc(ctx, arg)
	}
	return nil
}

func (m *MockQueries) DeleteUser(ctx context.Context, id int64) error {
	m.record("DeleteUser")
	if m.DeleteUserFunc != nil {
		return m.DeleteUserFunc(ctx, id)
	}
	return nil
}

func (m *MockQueries) CreateSection(ctx context.Context, name string) (int64, error) {
	m.record("CreateSection")
	if m.CreateSectionFunc != nil {
		return m.CreateSectionFunc(ctx, name)
	}
	m.CreatedSections = append(m.CreatedSections, name)
	return m.alloc(), nil
}

func (m *MockQueries) GetSection(ctx context.Context, id int64) (SectionRow, error) {
	m.record("GetSection")
	if m.GetSectionFunc != nil {
		return m.GetSectionFunc(ctx, id)
	}
	return SectionRow{ID: id, Name: "Mock Section"}, nil
}

func (m *MockQueries) CreateForum(ctx context.Context, arg CreateForumParams) (int64, error) {
	m.record("CreateForum")
	if m.CreateForumFunc != nil {
		return m.CreateForumFunc(ctx, arg)
	}
	m.CreatedForums = append(m.CreatedForums, arg)
	return m.alloc(), nil
}

func (m *MockQueries) GetForum(ctx context.Context, id int64) (ForumRow, error) {
	m.record("GetForum")
	if m.GetForumFunc != nil {
		return m.GetForumFunc(ctx, id)
	}
	return ForumRow{ID: id, Name: "Mock Forum"}, nil
}

func (m *MockQueries) CreateTag(ctx context.Context, name string) (int64, error) {
	m.record("CreateTag")
	if m.CreateTagFunc != nil {
		return m.CreateTagFunc(ctx, name)
	}
	m.CreatedTags = append(m.CreatedTags, name)
	return m.alloc(), nil
}

func (m *MockQueries) ListTagsByTopic(ctx context.Context, topicID int64) ([]TagRow, error) {
	m.record("ListTagsByTopic")
	if m.ListTagsByTopicFunc != nil {
		return m.ListTagsByTopicFunc(ctx, topicID)
	}
	return nil, nil
}

func (m *MockQueries) CreateTopic(ctx context.Context, arg CreateTopicParams) (int64, error) {
	m.record("CreateTopic")
	if m.CreateTopicFunc != nil {
		return m.CreateTopicFunc(ctx, arg)
	}
	m.CreatedTopics = append(m.CreatedTopics, arg)
	return m.alloc(), nil
}

func (m *MockQueries) ListTopicsByUser(ctx context.Context, userID int64) ([]TopicRow, error) {
	m.record("ListTopicsByUser")
	if m.ListTopicsByUserFunc != nil {
		return m.ListTopicsByUserFunc(ctx, userID)
	}
	return nil, nil
}

func (m *MockQueries) LinkTopicTag(ctx context.Context, arg LinkTopicTagParams) error {
	m.record("LinkTopicTag")
	if m.LinkTopicTagFunc != nil {
		return m.LinkTopicTagFunc(ctx, arg)
	}
	m.LinkedTopicTags = append(m.LinkedTopicTags, arg)
	return nil
}

func (m *MockQueries) CreatePost(ctx context.Context, arg CreatePostParams) (int64, error) {
	m.record("CreatePost")
	if m.CreatePostFunc != nil {
		return m.CreatePostFunc(ctx, arg)
	}
	m.CreatedPosts = append(m.CreatedPosts, arg)
	return m.alloc(), nil
}

func (m *MockQueries) ListPostsByUser(ctx context.Context, userID int64) ([]PostRow, error) {
	m.record("ListPostsByUser")
	if m.ListPostsByUserFunc != nil {
		return m.ListPostsByUserFunc(ctx, userID)
	}
	return nil, nil
}

func (m *MockQueries) ListPostsByTopic(ctx context.Context, topicID int64) ([]PostRow, error) {
	m.record("ListPostsByTopic")
	if m.ListPostsByTopicFunc != nil {
		return m.ListPostsByTopicFunc(ctx, topicID)
	}
	return nil, nil
}

func (m *MockQueries) CreatePic(ctx context.Context, arg CreatePicParams) (int64, error) {
	m.record("CreatePic")
	if m.CreatePicFunc != nil {
		return m.CreatePicFunc(ctx, arg)
	}
	m.CreatedPics = append(m.CreatedPics, arg)
	return m.alloc(), nil
}

func (m *MockQueries) ListPicsByPost(ctx context.Context, postID int64) ([]PicRow, error) {
	m.record("ListPicsByPost")
	if m.ListPicsByPostFunc != nil {
		return m.ListPicsByPostFunc(ctx, postID)
	}
	return nil, nil
}

func (m *MockQueries) CreateComment(ctx context.Context, arg CreateCommentParams) (int64, error) {
	m.record("CreateComment")
	if m.CreateCommentFunc != nil {
		return m.CreateCommentFunc(ctx, arg)
	}
	m.CreatedComments = append(m.CreatedComments, arg)
	return m.alloc(), nil
}

func (m *MockQueries) ListCommentsByUser(ctx context.Context, userID int64) ([]CommentRow, error) {
	m.record("ListCommentsByUser")
	if m.ListCommentsByUserFunc != nil {
		return m.ListCommentsByUserFunc(ctx, userID)
	}
	return nil, nil
}

func (m *MockQueries) ListCommentsByPost(ctx context.Context, postID int64) ([]CommentRow, error) {
	m.record("ListCommentsByPost")
	if m.ListCommentsByPostFunc != nil {
		return m.ListCommentsByPostFunc(ctx, postID)
	}
	return nil, nil
}

var _ ExtendedQuerier = (*MockQueries)(nil)
