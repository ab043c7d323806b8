package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/edgeee/chat-backend/api"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

// Postgres provides storage in PostgreSQL.
type Postgres struct {
	bun *bun.DB
}

// Connect connects to the database and ping the DB to ensure the connection is
// working.
func Connect(ctx context.Context, connStr string) (*Postgres, error) {
	sqlDB := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(connStr)))
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	db := bun.NewDB(sqlDB, pgdialect.New())
	return &Postgres{
		bun: db,
	}, nil
}

// conversationFilter matches messages exchanged between the two users in
// either direction.
func conversationFilter(q *bun.SelectQuery, userA, userB string) *bun.SelectQuery {
	return q.Where("(sender = ? AND receiver = ?) OR (sender = ? AND receiver = ?)",
		userA, userB, userB, userA)
}

// InsertMessage inserts a message into the database with seen=false. The
// returned message holds auto generated fields, such as the message id and
// creation timestamp.
func (pg *Postgres) InsertMessage(ctx context.Context, msg api.Message) (api.Message, error) {
	m := &message{
		Sender:      msg.Sender,
		Receiver:    msg.Receiver,
		MessageText: msg.Text,
	}
	if _, err := pg.bun.NewInsert().Model(m).Exec(ctx); err != nil {
		return api.Message{}, fmt.Errorf("insert: %w", err)
	}
	return m.APIMessage(), nil
}

// ListConversation returns all messages exchanged between userA and userB in
// either direction, oldest first. The id is a secondary sort key so that the
// order stays stable when timestamps coincide.
func (pg *Postgres) ListConversation(ctx context.Context, userA, userB string, excludeMsgIDs ...string) ([]api.Message, error) {
	var msgs []message
	q := conversationFilter(pg.bun.NewSelect().Model(&msgs), userA, userB).
		Order("created_at ASC", "id ASC")

	if len(excludeMsgIDs) > 0 {
		q = q.Where("id NOT IN (?)", bun.In(excludeMsgIDs))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	out := make([]api.Message, len(msgs))
	for i, m := range msgs {
		out[i] = m.APIMessage()
	}

	return out, nil
}

// LastMessage returns the most recent message exchanged between userA and
// userB. The second return value is false when the conversation is empty.
func (pg *Postgres) LastMessage(ctx context.Context, userA, userB string) (api.Message, bool, error) {
	var m message
	q := conversationFilter(pg.bun.NewSelect().Model(&m), userA, userB).
		Order("created_at DESC", "id DESC").
		Limit(1)

	if err := q.Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return api.Message{}, false, nil
		}
		return api.Message{}, false, fmt.Errorf("scan: %w", err)
	}
	return m.APIMessage(), true, nil
}

// CountUnseen counts the unseen messages sent from sender to receiver. Unlike
// ListConversation the match is direction sensitive.
func (pg *Postgres) CountUnseen(ctx context.Context, receiver, sender string) (int, error) {
	count, err := pg.bun.NewSelect().
		Model((*message)(nil)).
		Where("receiver = ? AND sender = ? AND seen = FALSE", receiver, sender).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return count, nil
}

// MarkSeen flags every unseen message sent from sender to receiver as seen.
// The whole batch is a single UPDATE, so concurrent inserts cannot race a
// read-modify-write. Calling it again is a no-op.
func (pg *Postgres) MarkSeen(ctx context.Context, sender, receiver string) error {
	_, err := pg.bun.NewUpdate().
		Model((*message)(nil)).
		Set("seen = TRUE").
		Where("sender = ? AND receiver = ? AND seen = FALSE", sender, receiver).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update: %w", err)
	}
	return nil
}
