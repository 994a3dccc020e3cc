package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/hiten-mitsurugi/alumni-system-sub001/internal/core/domain"
)

func TestBroadcastFanout(t *testing.T) {
	groups, reg, dispatcher := newFanout()
	ctx := context.Background()

	a, b, c := newFakeClient(), newFakeClient(), newFakeClient()
	for i, cl := range []*fakeClient{a, b, c} {
		if err := reg.Register(cl, domain.Principal{UserID: string(rune('a' + i))}); err != nil {
			t.Fatalf("Register failed: %v", err)
		}
	}
	groups.Join("post_42", a.ID())
	groups.Join("post_42", b.ID())
	groups.Join("post_43", c.ID())

	dispatcher.Broadcast(ctx, "post_42", domain.NewEvent(domain.EventNewComment, map[string]any{
		"post_id":    "42",
		"comment_id": 5,
	}))

	for _, cl := range []*fakeClient{a, b} {
		msgs := cl.messages(t)
		if len(msgs) != 1 {
			t.Fatalf("expected exactly 1 message, got %d", len(msgs))
		}
		if msgs[0]["type"] != "new_comment" {
			t.Errorf("expected type new_comment, got %v", msgs[0]["type"])
		}
		if msgs[0]["comment_id"] != float64(5) {
			t.Errorf("expected comment_id 5, got %v", msgs[0]["comment_id"])
		}
		if msgs[0]["timestamp"] == nil {
			t.Error("expected a timestamp field on the wire")
		}
	}
	if got := len(c.messages(t)); got != 0 {
		t.Errorf("post_43 member should receive nothing, got %d messages", got)
	}
}

func TestBroadcastOrdering(t *testing.T) {
	groups, reg, dispatcher := newFanout()
	ctx := context.Background()

	a, b := newFakeClient(), newFakeClient()
	reg.Register(a, domain.Principal{UserID: "a"})
	reg.Register(b, domain.Principal{UserID: "b"})
	groups.Join("post_1", a.ID())
	groups.Join("post_1", b.ID())

	for i := 0; i < 10; i++ {
		dispatcher.Broadcast(ctx, "post_1", domain.NewEvent(domain.EventNewComment, map[string]any{
			"post_id": "1",
			"seq":     i,
		}))
	}

	for _, cl := range []*fakeClient{a, b} {
		msgs := cl.messages(t)
		if len(msgs) != 10 {
			t.Fatalf("expected 10 messages, got %d", len(msgs))
		}
		for i, m := range msgs {
			if m["seq"] != float64(i) {
				t.Fatalf("delivery out of order: position %d carries seq %v", i, m["seq"])
			}
		}
	}
}

func TestBroadcastFailureIsolation(t *testing.T) {
	groups, reg, dispatcher := newFanout()
	ctx := context.Background()

	m1, m2, m3 := newFakeClient(), newFakeClient(), newFakeClient()
	reg.Register(m1, domain.Principal{UserID: "u1"})
	reg.Register(m2, domain.Principal{UserID: "u2"})
	reg.Register(m3, domain.Principal{UserID: "u3"})
	for _, cl := range []*fakeClient{m1, m2, m3} {
		groups.Join("post_9", cl.ID())
		groups.Join(domain.GroupPostsFeed, cl.ID())
	}
	m2.setFail(true)

	dispatcher.Broadcast(ctx, "post_9", domain.NewEvent(domain.EventPostDeleted, map[string]any{
		"post_id": "9",
	}))

	if len(m1.messages(t)) != 1 || len(m3.messages(t)) != 1 {
		t.Error("healthy members must still receive the event")
	}
	if _, err := reg.PrincipalOf(m2.ID()); !errors.Is(err, domain.ErrConnectionNotFound) {
		t.Error("failed member should have been unregistered")
	}
	for _, group := range []string{"post_9", domain.GroupPostsFeed} {
		for _, id := range groups.MembersOf(group) {
			if id == m2.ID() {
				t.Errorf("failed member still present in %s", group)
			}
		}
	}
}

func TestAdminGroupPrincipalCheck(t *testing.T) {
	groups, reg, dispatcher := newFanout()
	ctx := context.Background()

	admin, user := newFakeClient(), newFakeClient()
	reg.Register(admin, domain.Principal{UserID: "root", Admin: true})
	reg.Register(user, domain.Principal{UserID: "joe"})
	// Simulate a membership leak: both ids end up in the admin group.
	groups.Join(domain.GroupAdmin, admin.ID())
	groups.Join(domain.GroupAdmin, user.ID())

	dispatcher.Broadcast(ctx, domain.GroupAdmin, domain.NewEvent(domain.EventPendingApproval, map[string]any{
		"post_id": "77",
	}))

	if len(admin.messages(t)) != 1 {
		t.Error("admin should receive the admin event")
	}
	if len(user.messages(t)) != 0 {
		t.Error("non-admin must be filtered even when wrongly joined to the admin group")
	}
}

func TestRouteEventPolicy(t *testing.T) {
	groups, reg, dispatcher := newFanout()
	ctx := context.Background()

	feed := newFakeClient()      // only in posts_feed
	viewer := newFakeClient()    // in post_7 and posts_feed
	owner := newFakeClient()     // in user_9
	bystander := newFakeClient() // in user_5
	reg.Register(feed, domain.Principal{UserID: "f"})
	reg.Register(viewer, domain.Principal{UserID: "v"})
	reg.Register(owner, domain.Principal{UserID: "9"})
	reg.Register(bystander, domain.Principal{UserID: "5"})
	groups.Join(domain.GroupPostsFeed, feed.ID())
	groups.Join(domain.GroupPostsFeed, viewer.ID())
	groups.Join(domain.PostGroup("7"), viewer.ID())
	groups.Join(domain.UserGroup("9"), owner.ID())
	groups.Join(domain.UserGroup("5"), bystander.ID())

	if err := dispatcher.RouteEvent(ctx, domain.NewEvent(domain.EventReactionUpdate, map[string]any{
		"post_id":       "7",
		"reaction_type": "like",
		"action":        "added",
	})); err != nil {
		t.Fatalf("RouteEvent failed: %v", err)
	}

	// Post-scoped events mirror to the feed: the viewer sits in both
	// groups and gets two copies, one per group.
	if got := len(viewer.messagesOfType(t, "reaction_update")); got != 2 {
		t.Errorf("viewer expected post group + feed copies, got %d", got)
	}
	if got := len(feed.messagesOfType(t, "reaction_update")); got != 1 {
		t.Errorf("feed-only member expected 1 copy, got %d", got)
	}

	if err := dispatcher.RouteEvent(ctx, domain.NewEvent(domain.EventPostApproval, map[string]any{
		"post_id": "7",
		"user_id": "9",
		"status":  "approved",
	})); err != nil {
		t.Fatalf("RouteEvent failed: %v", err)
	}
	if got := len(owner.messagesOfType(t, "post_approval_update")); got != 1 {
		t.Errorf("owner expected the approval update, got %d", got)
	}
	if got := len(bystander.messagesOfType(t, "post_approval_update")); got != 0 {
		t.Errorf("approval updates are private to the owner, bystander got %d", got)
	}
	if got := len(feed.messagesOfType(t, "post_approval_update")); got != 0 {
		t.Errorf("approval updates must not reach the feed, got %d", got)
	}
}

func TestRouteEventUnknownType(t *testing.T) {
	_, _, dispatcher := newFanout()
	err := dispatcher.RouteEvent(context.Background(), domain.NewEvent("mystery_event", nil))
	if !errors.Is(err, domain.ErrUnknownEventType) {
		t.Fatalf("expected ErrUnknownEventType, got %v", err)
	}
}

func TestDeliverLocalSkipsRouting(t *testing.T) {
	groups, reg, dispatcher := newFanout()
	ctx := context.Background()

	a := newFakeClient()
	reg.Register(a, domain.Principal{UserID: "a"})
	groups.Join("post_3", a.ID())

	payload := []byte(`{"type":"new_comment","post_id":"3","comment_id":1,"timestamp":"2026-01-01T00:00:00Z"}`)
	dispatcher.DeliverLocal(ctx, "post_3", payload)

	msgs := a.messages(t)
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	if msgs[0]["comment_id"] != float64(1) {
		t.Errorf("payload must pass through unmodified, got %v", msgs[0])
	}
}
