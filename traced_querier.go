package bboard

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// TracedQueriesWrapper implements the ExtendedQuerier interface and adds tracing functionality
type TracedQueriesWrapper struct {
	wrapped   ExtendedQuerier
	telemetry *TelemetryConfig
}

// NewTracedQueriesWrapper creates a new TracedQueriesWrapper that decorates an existing ExtendedQuerier
func NewTracedQueriesWrapper(wrapped ExtendedQuerier, telemetry *TelemetryConfig) ExtendedQuerier {
	if telemetry == nil || telemetry.Tracer == nil {
		return wrapped
	}
	return &TracedQueriesWrapper{
		wrapped:   wrapped,
		telemetry: telemetry,
	}
}

// WithTx creates a new TracedQueriesWrapper with a transaction
func (t *TracedQueriesWrapper) WithTx(tx pgx.Tx) ExtendedQuerier {
	return &TracedQueriesWrapper{
		wrapped:   t.wrapped.WithTx(tx),
		telemetry: t.telemetry,
	}
}

// startQuery opens a span for one store call.
func (t *TracedQueriesWrapper) startQuery(ctx context.Context, name string) (context.Context, trace.Span, time.Time) {
	ctx, span := t.telemetry.Tracer.Start(ctx, name+"(query)")
	return ctx, span, time.Now()
}

// endQuery closes the span, recording the duration metric and any error.
func (t *TracedQueriesWrapper) endQuery(ctx context.Context, span trace.Span, name string, start time.Time, err error) {
	duration := time.Since(start).Seconds()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}

	if t.telemetry.Metrics.DBQueryDuration != nil {
		t.telemetry.Metrics.DBQueryDuration.Record(ctx, duration,
			metric.WithAttributes(
				attribute.String("query", name),
			),
		)
	}

	span.SetAttributes(attribute.Float64("request.duration", duration))
	span.End()
}

func (t *TracedQueriesWrapper) CreateUser(ctx context.Context, arg CreateUserParams) (int64, error) {
	ctx, span, start := t.startQuery(ctx, "CreateUser")
	id, err := t.wrapped.CreateUser(ctx, arg)
	t.endQuery(ctx, span, "CreateUser", start, err)
	return id, err
}

func (t *TracedQueriesWrapper) GetUser(ctx context.Context, id int64) (UserRow, error) {
	ctx, span, start := t.startQuery(ctx, "GetUser")
	row, err := t.wrapped.GetUser(ctx, id)
	t.endQuery(ctx, span, "GetUser", start, err)
	return row, err
}

func (t *TracedQueriesWrapper) ListUsersByName(ctx context.Context) ([]UserRow, error) {
	ctx, span, start := t.startQuery(ctx, "ListUsersByName")
	rows, err := t.wrapped.ListUsersByName(ctx)
	t.endQuery(ctx, span, "ListUsersByName", start, err)
	return rows, err
}

func (t *TracedQueriesWrapper) UpdateUserScalars(ctx context.Context, arg UpdateUserParams) error {
	ctx, span, start := t.startQuery(ctx, "UpdateUserScalars")
	err := t.wrapped.UpdateUserScalars(ctx, arg)
	t.endQuery(ctx, span, "UpdateUserScalars", start, err)
	return err
}

func (t *TracedQueriesWrapper) DeleteUser(ctx context.Context, id int64) error {
	ctx, span, start := t.startQuery(ctx, "DeleteUser")
	err := t.wrapped.DeleteUser(ctx, id)
	t.endQuery(ctx, span, "DeleteUser", start, err)
	return err
}

func (t *TracedQueriesWrapper) CreateSection(ctx context.Context, name string) (int64, error) {
	ctx, span, start := t.startQuery(ctx, "CreateSection")
	id, err := t.wrapped.CreateSection(ctx, name)
	t.endQuery(ctx, span, "CreateSection", start, err)
	return id, err
}

func (t *TracedQueriesWrapper) GetSection(ctx context.Context, id int64) (SectionRow, error) {
	ctx, span, start := t.startQuery(ctx, "GetSection")
	row, err := t.wrapped.GetSection(ctx, id)
	t.endQuery(ctx, span, "GetSection", start, err)
	return row, err
}

func (t *TracedQueriesWrapper) CreateForum(ctx context.Context, arg CreateForumParams) (int64, error) {
	ctx, span, start := t.startQuery(ctx, "CreateForum")
	id, err := t.wrapped.CreateForum(ctx, arg)
	t.endQuery(ctx, span, "CreateForum", start, err)
	return id, err
}

func (t *TracedQueriesWrapper) GetForum(ctx context.Context, id int64) (ForumRow, error) {
	ctx, span, start := t.startQuery(ctx, "GetForum")
	row, err := t.wrapped.GetForum(ctx, id)
	t.endQuery(ctx, span, "GetForum", start, err)
	return row, err
}

func (t *TracedQueriesWrapper) CreateTag(ctx context.Context, name string) (int64, error) {
	ctx, span, start := t.startQuery(ctx, "CreateTag")
	id, err := t.wrapped.CreateTag(ctx, name)
	t.endQuery(ctx, span, "CreateTag", start, err)
	return id, err
}

func (t *TracedQueriesWrapper) ListTagsByTopic(ctx context.Context, topicID int64) ([]TagRow, error) {
	ctx, span, start := t.startQuery(ctx, "ListTagsByTopic")
	rows, err := t.wrapped.ListTagsByTopic(ctx, topicID)
	t.endQuery(ctx, span, "ListTagsByTopic", start, err)
	return rows, err
}

func (t *TracedQueriesWrapper) CreateTopic(ctx context.Context, arg CreateTopicParams) (int64, error) {
	ctx, span, start := t.startQuery(ctx, "CreateTopic")
	id, err := t.wrapped.CreateTopic(ctx, arg)
	t.endQuery(ctx, span, "CreateTopic", start, err)
	return id, err
}

func (t *TracedQueriesWrapper) ListTopicsByUser(ctx context.Context, userID int64) ([]TopicRow, error) {
	ctx, span, start := t.startQuery(ctx, "ListTopicsByUser")
	rows, err := t.wrapped.ListTopicsByUser(ctx, userID)
	t.endQuery(ctx, span, "ListTopicsByUser", start, err)
	return rows, err
}

func (t *TracedQueriesWrapper) LinkTopicTag(ctx context.Context, arg LinkTopicTagParams) error {
	ctx, span, start := t.startQuery(ctx, "LinkTopicTag")
	err := t.wrapped.LinkTopicTag(ctx, arg)
	t.endQuery(ctx, span, "LinkTopicTag", start, err)
	return err
}

func (t *TracedQueriesWrapper) CreatePost(ctx context.Context, arg CreatePostParams) (int64, error) {
	ctx, span, start := t.startQuery(ctx, "CreatePost")
	id, err := t.wrapped.CreatePost(ctx, arg)
	t.endQuery(ctx, span, "CreatePost", start, err)
	return id, err
}

func (t *TracedQueriesWrapper) ListPostsByUser(ctx context.Context, userID int64) ([]PostRow, error) {
	ctx, span, start := t.startQuery(ctx, "ListPostsByUser")
	rows, err := t.wrapped.ListPostsByUser(ctx, userID)
	t.endQuery(ctx, span, "ListPostsByUser", start, err)
	return rows, err
}

func (t *TracedQueriesWrapper) ListPostsByTopic(ctx context.Context, topicID int64) ([]PostRow, error) {
	ctx, span, start := t.startQuery(ctx, "ListPostsByTopic")
	rows, err := t.wrapped.ListPostsByTopic(ctx, topicID)
	t.endQuery(ctx, span, "ListPostsByTopic", start, err)
	return rows, err
}

func (t *TracedQueriesWrapper) CreatePic(ctx context.Context, arg CreatePicParams) (int64, error) {
	ctx, span, start := t.startQuery(ctx, "CreatePic")
	id, err := t.wrapped.CreatePic(ctx, arg)
	t.endQuery(ctx, span, "CreatePic", start, err)
	return id, err
}

func (t *TracedQueriesWrapper) ListPicsByPost(ctx context.Context, postID int64) ([]PicRow, error) {
	ctx, span, start := t.startQuery(ctx, "ListPicsByPost")
	rows, err := t.wrapped.ListPicsByPost(ctx, postID)
	t.endQuery(ctx, span, "ListPicsByPost", start, err)
	return rows, err
}

func (t *TracedQueriesWrapper) CreateComment(ctx context.Context, arg CreateCommentParams) (int64, error) {
	ctx, span, start := t.startQuery(ctx, "CreateComment")
	id, err := t.wrapped.CreateComment(ctx, arg)
	t.endQuery(ctx, span, "CreateComment", start, err)
	return id, err
}

func (t *TracedQueriesWrapper) ListCommentsByUser(ctx context.Context, userID int64) ([]CommentRow, error) {
	ctx, span, start := t.startQuery(ctx, "ListCommentsByUser")
	rows, err := t.wrapped.ListCommentsByUser(ctx, userID)
	t.endQuery(ctx, span, "ListCommentsByUser", start, err)
	return rows, err
}

func (t *TracedQueriesWrapper) ListCommentsByPost(ctx context.Context, postID int64) ([]CommentRow, error) {
	ctx, span, start := t.startQuery(ctx, "ListCommentsByPost")
	rows, err := t.wrapped.ListCommentsByPost(ctx, postID)
	t.endQuery(ctx, span, "ListCommentsByPost", start, err)
	return rows, err
}
