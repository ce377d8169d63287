package uow

import (
	"context"
	"testing"
)

func TestAfterCommitDefersUntilRun(t *testing.T) {
	ctx, hooks := WithHooks(context.Background())
	var order []int
	AfterCommit(ctx, func(context.Context) { order = append(order, 1) })
	AfterCommit(ctx, func(context.Context) { order = append(order, 2) })
	if len(order) != 0 {
		t.Fatal("hooks ran before commit")
	}
	hooks.Run(ctx)
	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Fatalf("order = %v", order)
	}
	hooks.Run(ctx)
	if len(order) != 2 {
		t.Fatal("hooks ran twice")
	}
}

func TestAfterCommitWithoutRegistryRunsImmediately(t *testing.T) {
	ran := false
	AfterCommit(context.Background(), func(context.Context) { ran = true })
	if !ran {
		t.Fatal("hook should run immediately without a registry")
	}
}

func TestDiscardDropsHooks(t *testing.T) {
	ctx, hooks := WithHooks(context.Background())
	AfterCommit(ctx, func(context.Context) { t.Fatal("discarded hook ran") })
	hooks.Discard()
	hooks.Run(ctx)
}
