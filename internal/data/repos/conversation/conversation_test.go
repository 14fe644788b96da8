package conversation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yungbote/burstreply-backend/internal/data/repos/testutil"
	types "github.com/yungbote/burstreply-backend/internal/domain"
	"github.com/yungbote/burstreply-backend/internal/platform/dbctx"
)

func TestConversationRepoCreateRejectsDuplicate(t *testing.T) {
	db := testutil.DB(t)
	repo := NewConversationRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background()}

	if err := repo.Create(dbc, &types.Conversation{ID: "c-1"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	err := repo.Create(dbc, &types.Conversation{ID: "c-1"})
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("Create duplicate: want=%v got=%v", ErrDuplicate, err)
	}

	var count int64
	if err := db.Model(&types.Conversation{}).Where("id = ?", "c-1").Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("rows: want=1 got=%d", count)
	}
}

func TestConversationRepoGetMissing(t *testing.T) {
	db := testutil.DB(t)
	repo := NewConversationRepo(db, testutil.Logger(t))

	_, err := repo.Get(dbctx.Context{Ctx: context.Background()}, "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get: want=%v got=%v", ErrNotFound, err)
	}
}

func TestConversationRepoTransitionStatusOnlyFromExpected(t *testing.T) {
	db := testutil.DB(t)
	repo := NewConversationRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background()}
	testutil.SeedConversation(t, dbc.Ctx, db, "c-1", types.ConversationOpen)

	changed, err := repo.TransitionStatus(dbc, "c-1", types.ConversationOpen, types.ConversationClosed)
	if err != nil || !changed {
		t.Fatalf("TransitionStatus first: changed=%v err=%v", changed, err)
	}
	changed, err = repo.TransitionStatus(dbc, "c-1", types.ConversationOpen, types.ConversationClosed)
	if err != nil {
		t.Fatalf("TransitionStatus second: %v", err)
	}
	if changed {
		t.Fatalf("TransitionStatus second: expected no change on closed conversation")
	}

	got, err := repo.Get(dbc, "c-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != types.ConversationClosed {
		t.Fatalf("status: want=%s got=%s", types.ConversationClosed, got.Status)
	}
}

func TestConversationRepoDeleteCascadesMessages(t *testing.T) {
	db := testutil.DB(t)
	repo := NewConversationRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background()}
	now := time.Now().UTC()

	testutil.SeedConversation(t, dbc.Ctx, db, "c-1", types.ConversationOpen)
	testutil.SeedConversation(t, dbc.Ctx, db, "c-2", types.ConversationOpen)
	testutil.SeedMessage(t, dbc.Ctx, db, "c-1", "m-1", types.MessageInbound, now)
	testutil.SeedMessage(t, dbc.Ctx, db, "c-1", "m-2", types.MessageOutbound, now)
	testutil.SeedMessage(t, dbc.Ctx, db, "c-2", "m-3", types.MessageInbound, now)

	if err := repo.Delete(dbc, "c-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	var remaining []types.Message
	if err := db.Order("id").Find(&remaining).Error; err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(remaining) != 1 || remaining[0].ID != "m-3" {
		t.Fatalf("remaining messages: want=[m-3] got=%v", remaining)
	}
	if err := repo.Delete(dbc, "c-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Delete missing: want=%v got=%v", ErrNotFound, err)
	}
}
