package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
)

type fakeTx struct {
	pgx.Tx
	committed  bool
	rolledBack bool
}

func (t *fakeTx) Commit(context.Context) error   { t.committed = true; return nil }
func (t *fakeTx) Rollback(context.Context) error { t.rolledBack = true; return nil }

type fakeBeginner struct {
	tx       *fakeTx
	deadline bool
}

func (b *fakeBeginner) Begin(ctx context.Context) (pgx.Tx, error) {
	_, b.deadline = ctx.Deadline()
	return b.tx, nil
}

func TestWithTransactionCommits(t *testing.T) {
	b := &fakeBeginner{tx: &fakeTx{}}

	err := WithTransaction(context.Background(), b, func(ctx context.Context, tx pgx.Tx) error {
		return nil
	})
	if err != nil {
		t.Fatalf("WithTransaction: %v", err)
	}
	if !b.tx.committed || b.tx.rolledBack {
		t.Errorf("committed=%v rolledBack=%v", b.tx.committed, b.tx.rolledBack)
	}
	if !b.deadline {
		t.Error("expected a default deadline on the transaction context")
	}
}

func TestWithTransactionRollsBackOnError(t *testing.T) {
	b := &fakeBeginner{tx: &fakeTx{}}
	boom := errors.New("boom")

	err := WithTransaction(context.Background(), b, func(ctx context.Context, tx pgx.Tx) error {
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("got %v, want boom", err)
	}
	if b.tx.committed || !b.tx.rolledBack {
		t.Errorf("committed=%v rolledBack=%v", b.tx.committed, b.tx.rolledBack)
	}
}

func TestWithTransactionRollsBackOnPanic(t *testing.T) {
	b := &fakeBeginner{tx: &fakeTx{}}

	defer func() {
		if recover() == nil {
			t.Fatal("panic was swallowed")
		}
		if !b.tx.rolledBack {
			t.Error("transaction not rolled back after panic")
		}
	}()

	_ = WithTransaction(context.Background(), b, func(ctx context.Context, tx pgx.Tx) error {
		panic("unexpected")
	})
}

func TestWithTransactionKeepsCallerDeadline(t *testing.T) {
	b := &fakeBeginner{tx: &fakeTx{}}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	want, _ := ctx.Deadline()

	err := WithTransaction(ctx, b, func(txCtx context.Context, tx pgx.Tx) error {
		if got, _ := txCtx.Deadline(); !got.Equal(want) {
			t.Errorf("deadline replaced: got %v want %v", got, want)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithTransaction: %v", err)
	}
}
