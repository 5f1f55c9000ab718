package audit

import (
	"context"
	"testing"

	"restaurant-ops/internal/docstore"
)

func TestService_AppendRequiresType(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	if err := svc.Append(context.Background(), Event{ActorUserID: "u"}); err == nil {
		t.Fatalf("expected error")
	}
	if err := NewService(nil).LogLogin(context.Background(), "u", "owner", "1.2.3.4"); err == nil {
		t.Fatalf("expected error without repository")
	}
}

func TestService_AppendsImmutableEvents(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	if err := svc.LogKnowledgeChange(context.Background(), "u", "manager", "1.2.3.4", "k1", "updated"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	evs := repo.Events()
	if len(evs) != 1 {
		t.Fatalf("expected 1 event")
	}
	if evs[0].IPAddress != "1.2.3.4" || evs[0].TargetID != "k1" {
		t.Fatalf("expected ip and target captured")
	}
	if evs[0].Type != EventTypeKnowledgeChanged {
		t.Fatalf("expected knowledge_changed")
	}
	if evs[0].ID == "" || evs[0].CreatedAt.IsZero() {
		t.Fatalf("expected id and created_at assigned")
	}
}

func TestDocstoreRepo_WritesUnderEventID(t *testing.T) {
	store := docstore.NewMemory()
	svc := NewService(NewDocstoreRepo(store))

	if err := svc.LogWorkflowTrigger(context.Background(), "u", "owner", "", "daily-report", `{"date":"2024-06-01"}`); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	docs, err := store.List(context.Background(), Collection, docstore.Query{})
	if err != nil || len(docs) != 1 {
		t.Fatalf("expected 1 audit doc, got %d err=%v", len(docs), err)
	}
	if docs[0].Data["type"] != string(EventTypeWorkflowTriggered) || docs[0].Data["targetId"] != "daily-report" {
		t.Fatalf("unexpected doc %v", docs[0].Data)
	}
	if _, ok := docs[0].Data["id"]; ok {
		t.Fatalf("expected id kept out of the document body")
	}
}

func TestService_ListNewestFirstByType(t *testing.T) {
	ctx := context.Background()
	for name, repo := range map[string]Repository{
		"memory":   NewMemoryRepo(),
		"docstore": NewDocstoreRepo(docstore.NewMemory()),
	} {
		t.Run(name, func(t *testing.T) {
			svc := NewService(repo)
			_ = svc.LogLogin(ctx, "a", "owner", "")
			_ = svc.LogKnowledgeChange(ctx, "a", "owner", "", "k1", "created")
			_ = svc.LogLogin(ctx, "b", "staff", "")

			evs, err := svc.List(ctx, ListFilter{Type: EventTypeLogin})
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if len(evs) != 2 || evs[0].ActorUserID != "b" || evs[1].ActorUserID != "a" {
				t.Fatalf("unexpected events %+v", evs)
			}
			if evs[0].ID == "" {
				t.Fatalf("expected id on listed event")
			}

			evs, _ = svc.List(ctx, ListFilter{Limit: 1})
			if len(evs) != 1 || evs[0].ActorUserID != "b" {
				t.Fatalf("expected newest event only, got %+v", evs)
			}
		})
	}
}
