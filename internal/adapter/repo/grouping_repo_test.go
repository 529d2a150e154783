package repo

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/commtamo10-tech/skatebaypublisher/internal/domain"
	"github.com/commtamo10-tech/skatebaypublisher/internal/grouping"
	"github.com/commtamo10-tech/skatebaypublisher/internal/infra"
)

// referentialExecutor checks the images.group_id foreign key on every
// statement the way Postgres does, so statement ordering bugs inside Apply
// surface without a live database.
type referentialExecutor struct {
	groups     map[string]bool
	statements []string
}

func newReferentialExecutor(existingGroups ...string) *referentialExecutor {
	e := &referentialExecutor{groups: make(map[string]bool)}
	for _, id := range existingGroups {
		e.groups[id] = true
	}
	return e
}

func (e *referentialExecutor) Exec(_ context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	e.statements = append(e.statements, query)
	switch {
	case strings.Contains(query, "INSERT INTO groups"):
		e.groups[args[0].(string)] = true
	case strings.Contains(query, "DELETE FROM groups"):
		delete(e.groups, args[0].(string))
	case strings.Contains(query, "UPDATE images SET group_id = NULL,"):
		// Detach, no reference created.
	case strings.Contains(query, "UPDATE images SET group_id"):
		groupID, _ := args[1].(string)
		if groupID != "" && !e.groups[groupID] {
			return pgconn.CommandTag{}, fmt.Errorf(`update on table "images" violates foreign key constraint "images_group_id_fkey" (SQLSTATE 23503)`)
		}
	}
	return pgconn.NewCommandTag("UPDATE 1"), nil
}

func (e *referentialExecutor) QueryRow(context.Context, string, ...any) pgx.Row {
	panic("not used by Apply")
}

func (e *referentialExecutor) Query(context.Context, string, ...any) (pgx.Rows, error) {
	panic("not used by Apply")
}

func (e *referentialExecutor) WithTx(ctx context.Context, fn func(infra.SQLExecutor) error) error {
	return fn(e)
}

func splitState() *domain.BatchState {
	state := &domain.BatchState{Batch: domain.Batch{ID: "batch-1"}}
	for i := 0; i < 3; i++ {
		state.Images = append(state.Images, domain.Image{
			ID:      fmt.Sprintf("img-%d", i),
			BatchID: "batch-1",
			GroupID: "g-1",
		})
	}
	state.Groups = []domain.Group{{
		ID: "g-1", BatchID: "batch-1",
		ImageIDs:      []string{"img-0", "img-1", "img-2"},
		SuggestedType: domain.ItemTypeWheels,
	}}
	return state
}

func TestApplyCreatesGroupRowsBeforeAssigningImages(t *testing.T) {
	state := splitState()
	cs, created, err := grouping.PlanSplit(state, "g-1", []string{"img-1"})
	if err != nil {
		t.Fatalf("PlanSplit: %v", err)
	}

	exec := newReferentialExecutor("g-1")
	repo := NewGroupingRepository(exec)
	if err := repo.Apply(context.Background(), "batch-1", cs); err != nil {
		t.Fatalf("Apply split change set: %v", err)
	}
	if !exec.groups[created.ID] {
		t.Fatalf("new group %s missing after Apply", created.ID)
	}
}

func TestApplyCreateGroupFromUnassignedImages(t *testing.T) {
	state := &domain.BatchState{Batch: domain.Batch{ID: "batch-1"}}
	for i := 0; i < 2; i++ {
		state.Images = append(state.Images, domain.Image{
			ID:      fmt.Sprintf("img-%d", i),
			BatchID: "batch-1",
		})
	}
	cs, created, err := grouping.PlanCreate(state, []string{"img-0", "img-1"}, domain.ItemTypeDeck)
	if err != nil {
		t.Fatalf("PlanCreate: %v", err)
	}

	exec := newReferentialExecutor()
	repo := NewGroupingRepository(exec)
	if err := repo.Apply(context.Background(), "batch-1", cs); err != nil {
		t.Fatalf("Apply create change set: %v", err)
	}
	if !exec.groups[created.ID] {
		t.Fatalf("new group %s missing after Apply", created.ID)
	}
}

func TestApplyDeleteDetachesBeforeRemovingGroup(t *testing.T) {
	state := splitState()
	cs, err := grouping.PlanDelete(state, "g-1")
	if err != nil {
		t.Fatalf("PlanDelete: %v", err)
	}

	exec := newReferentialExecutor("g-1")
	repo := NewGroupingRepository(exec)
	if err := repo.Apply(context.Background(), "batch-1", cs); err != nil {
		t.Fatalf("Apply delete change set: %v", err)
	}
	if exec.groups["g-1"] {
		t.Fatal("group g-1 still present after delete")
	}

	detached := false
	for _, stmt := range exec.statements {
		if strings.Contains(stmt, "UPDATE images SET group_id = NULL,") {
			detached = true
		}
		if strings.Contains(stmt, "DELETE FROM groups") && !detached {
			t.Fatal("group row deleted before its images were detached")
		}
	}
}
