package bboard

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

//go:embed schema.sql
var schemaSQL string

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx, so the same
// query methods run pooled or inside a transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ApplySchema creates the tables and indexes if they do not exist yet.
func ApplySchema(ctx context.Context, db DBTX) error {
	if _, err := db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx pgx.Tx) *Queries {
	return &Queries{db: tx}
}

// Row types returned by the store. Nullable foreign keys come back as
// pgtype values; zero-valued Int8 means unset.

type UserRow struct {
	ID       int64
	Name     string
	Login    string
	Password string
	Email    string
	Role     string
}

type PostRow struct {
	ID      int64
	Message string
	Date    pgtype.Date
	UserID  pgtype.Int8
	TopicID pgtype.Int8
}

type PicRow struct {
	ID        int64
	Caption   string
	ImageLink string
	PostID    int64
}

type CommentRow struct {
	ID     int64
	Name   string
	UserID pgtype.Int8
	PostID pgtype.Int8
}

type TopicRow struct {
	ID      int64
	Name    string
	UserID  pgtype.Int8
	ForumID pgtype.Int8
}

type TagRow struct {
	ID   int64
	Name string
}

type ForumRow struct {
	ID        int64
	Name      string
	SectionID pgtype.Int8
}

type SectionRow struct {
	ID   int64
	Name string
}

// Insert params. Ids are assigned by the database and returned.

type CreateUserParams struct {
	Name     string
	Login    string
	Password string
	Email    string
	Role     string
}

type UpdateUserParams struct {
	ID       int64
	Name     string
	Login    string
	Password string
	Email    string
	Role     string
}

type CreatePostParams struct {
	Message string
	Date    pgtype.Date
	UserID  pgtype.Int8
	TopicID pgtype.Int8
}

type CreatePicParams struct {
	Caption   string
	ImageLink string
	PostID    int64
}

type CreateCommentParams struct {
	Name   string
	UserID pgtype.Int8
	PostID pgtype.Int8
}

type CreateTopicParams struct {
	Name    string
	UserID  pgtype.Int8
	ForumID pgtype.Int8
}

type CreateForumParams struct {
	Name      string
	SectionID pgtype.Int8
}

type LinkTopicTagParams struct {
	TopicID int64
	TagID   int64
}

const createUser = `INSERT INTO users (name, login, password, email, role)
VALUES ($1, $2, $3, $4, $5)
RETURNING id`

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (int64, error) {
	var id int64
	err := q.db.QueryRow(ctx, createUser,
		arg.Name, arg.Login, arg.Password, arg.Email, arg.Role,
	).Scan(&id)
	return id, err
}

const getUser = `SELECT id, name, login, password, email, role
FROM users WHERE id = $1`

func (q *Queries) GetUser(ctx context.Context, id int64) (UserRow, error) {
	var row UserRow
	err := q.db.QueryRow(ctx, getUser, id).Scan(
		&row.ID, &row.Name, &row.Login, &row.Password, &row.Email, &row.Role,
	)
	return row, err
}

const listUsersByName = `SELECT id, name, login, password, email, role
FROM users ORDER BY name ASC`

func (q *Queries) ListUsersByName(ctx context.Context) ([]UserRow, error) {
	rows, err := q.db.Query(ctx, listUsersByName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []UserRow
	for rows.Next() {
		var row UserRow
		if err := rows.Scan(&row.ID, &row.Name, &row.Login, &row.Password, &row.Email, &row.Role); err != nil {
			return nil, err
		}
		items = append(items, row)
	}
	return items, rows.Err()
}

const updateUserScalars = `UPDATE users
SET name = $2, login = $3, password = $4, email = $5, role = $6
WHERE id = $1
RETURNING id`

func (q *Queries) UpdateUserScalars(ctx context.Context, arg UpdateUserParams) error {
	var id int64
	return q.db.QueryRow(ctx, updateUserScalars,
		arg.ID, arg.Name, arg.Login, arg.Password, arg.Email, arg.Role,
	).Scan(&id)
}

const deleteUser = `DELETE FROM users WHERE id = $1`

// DeleteUser removes the user row; dependent rows go with it via ON DELETE
// CASCADE. Deleting an absent id is a no-op.
func (q *Queries) DeleteUser(ctx context.Context, id int64) error {
	_, err := q.db.Exec(ctx, deleteUser, id)
	return err
}

const createSection = `INSERT INTO sections (name) VALUES ($1) RETURNING id`

func (q *Queries) CreateSection(ctx context.Context, name string) (int64, error) {
	var id int64
	err := q.db.QueryRow(ctx, createSection, name).Scan(&id)
	return id, err
}

const getSection = `SELECT id, name FROM sections WHERE id = $1`

func (q *Queries) GetSection(ctx context.Context, id int64) (SectionRow, error) {
	var row SectionRow
	err := q.db.QueryRow(ctx, getSection, id).Scan(&row.ID, &row.Name)
	return row, err
}

const createForum = `INSERT INTO forums (name, section_id) VALUES ($1, $2) RETURNING id`

func (q *Queries) CreateForum(ctx context.Context, arg CreateForumParams) (int64, error) {
	var id int64
	err := q.db.QueryRow(ctx, createForum, arg.Name, arg.SectionID).Scan(&id)
	return id, err
}

const getForum = `SELECT id, name, section_id FROM forums WHERE id = $1`

func (q *Queries) GetForum(ctx context.Context, id int64) (ForumRow, error) {
	var row ForumRow
	err := q.db.QueryRow(ctx, getForum, id).Scan(&row.ID, &row.Name, &row.SectionID)
	return row, err
}

const createTag = `INSERT INTO tags (name) VALUES ($1) RETURNING id`

func (q *Queries) CreateTag(ctx context.Context, name string) (int64, error) {
	var id int64
	err := q.db.QueryRow(ctx, createTag, name).Scan(&id)
	return id, err
}

const listTagsByTopic = `SELECT t.id, t.name
FROM tags t JOIN topic_tags tt ON tt.tag_id = t.id
WHERE tt.topic_id = $1
ORDER BY t.id ASC`

func (q *Queries) ListTagsByTopic(ctx context.Context, topicID int64) ([]TagRow, error) {
	rows, err := q.db.Query(ctx, listTagsByTopic, topicID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []TagRow
	for rows.Next() {
		var row TagRow
		if err := rows.Scan(&row.ID, &row.Name); err != nil {
			return nil, err
		}
		items = append(items, row)
	}
	return items, rows.Err()
}

const createTopic = `INSERT INTO topics (name, user_id, forum_id) VALUES ($1, $2, $3) RETURNING id`

func (q *Queries) CreateTopic(ctx context.Context, arg CreateTopicParams) (int64, error) {
	var id int64
	err := q.db.QueryRow(ctx, createTopic, arg.Name, arg.UserID, arg.ForumID).Scan(&id)
	return id, err
}

const listTopicsByUser = `SELECT id, name, user_id, forum_id
FROM topics WHERE user_id = $1 ORDER BY id ASC`

func (q *Queries) ListTopicsByUser(ctx context.Context, userID int64) ([]TopicRow, error) {
	rows, err := q.db.Query(ctx, listTopicsByUser, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []TopicRow
	for rows.Next() {
		var row TopicRow
		if err := rows.Scan(&row.ID, &row.Name, &row.UserID, &row.ForumID); err != nil {
			return nil, err
		}
		items = append(items, row)
	}
	return items, rows.Err()
}

const linkTopicTag = `INSERT INTO topic_tags (topic_id, tag_id) VALUES ($1, $2)
ON CONFLICT DO NOTHING`

func (q *Queries) LinkTopicTag(ctx context.Context, arg LinkTopicTagParams) error {
	_, err := q.db.Exec(ctx, linkTopicTag, arg.TopicID, arg.TagID)
	return err
}

const createPost = `INSERT INTO posts (message, date, user_id, topic_id)
VALUES ($1, $2, $3, $4)
RETURNING id`

func (q *Queries) CreatePost(ctx context.Context, arg CreatePostParams) (int64, error) {
	var id int64
	err := q.db.QueryRow(ctx, createPost, arg.Message, arg.Date, arg.UserID, arg.TopicID).Scan(&id)
	return id, err
}

const listPostsByUser = `SELECT id, message, date, user_id, topic_id
FROM posts WHERE user_id = $1 ORDER BY id ASC`

func (q *Queries) ListPostsByUser(ctx context.Context, userID int64) ([]PostRow, error) {
	return q.listPosts(ctx, listPostsByUser, userID)
}

const listPostsByTopic = `SELECT id, message, date, user_id, topic_id
FROM posts WHERE topic_id = $1 ORDER BY id ASC`

func (q *Queries) ListPostsByTopic(ctx context.Context, topicID int64) ([]PostRow, error) {
	return q.listPosts(ctx, listPostsByTopic, topicID)
}

func (q *Queries) listPosts(ctx context.Context, query string, arg int64) ([]PostRow, error) {
	rows, err := q.db.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []PostRow
	for rows.Next() {
		var row PostRow
		if err := rows.Scan(&row.ID, &row.Message, &row.Date, &row.UserID, &row.TopicID); err != nil {
			return nil, err
		}
		items = append(items, row)
	}
	return items, rows.Err()
}

const createPic = `INSERT INTO pics (caption, image_link, post_id)
VALUES ($1, $2, $3)
RETURNING id`

func (q *Queries) CreatePic(ctx context.Context, arg CreatePicParams) (int64, error) {
	var id int64
	err := q.db.QueryRow(ctx, createPic, arg.Caption, arg.ImageLink, arg.PostID).Scan(&id)
	return id, err
}

const listPicsByPost = `SELECT id, caption, image_link, post_id
FROM pics WHERE post_id = $1 ORDER BY id ASC`

func (q *Queries) ListPicsByPost(ctx context.Context, postID int64) ([]PicRow, error) {
	rows, err := q.db.Query(ctx, listPicsByPost, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []PicRow
	for rows.Next() {
		var row PicRow
		if err := rows.Scan(&row.ID, &row.Caption, &row.ImageLink, &row.PostID); err != nil {
			return nil, err
		}
		items = append(items, row)
	}
	return items, rows.Err()
}

const createComment = `INSERT INTO comments (name, user_id, post_id)
VALUES ($1, $2, $3)
RETURNING id`

func (q *Queries) CreateComment(ctx context.Context, arg CreateCommentParams) (int64, error) {
	var id int64
	err := q.db.QueryRow(ctx, createComment, arg.Name, arg.UserID, arg.PostID).Scan(&id)
	return id, err
}

const listCommentsByUser = `SELECT id, name, user_id, post_id
FROM comments WHERE user_id = $1 ORDER BY id ASC`

func (q *Queries) ListCommentsByUser(ctx context.Context, userID int64) ([]CommentRow, error) {
	return q.listComments(ctx, listCommentsByUser, userID)
}

const listCommentsByPost = `SELECT id, name, user_id, post_id
FROM comments WHERE post_id = $1 ORDER BY id ASC`

func (q *Queries) ListCommentsByPost(ctx context.Context, postID int64) ([]CommentRow, error) {
	return q.listComments(ctx, listCommentsByPost, postID)
}

func (q *Queries) listComments(ctx context.Context, query string, arg int64) ([]CommentRow, error) {
	rows, err := q.db.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []CommentRow
	for rows.Next() {
		var row CommentRow
		if err := rows.Scan(&row.ID, &row.Name, &row.UserID, &row.PostID); err != nil {
			return nil, err
		}
		items = append(items, row)
	}
	return items, rows.Err()
}
