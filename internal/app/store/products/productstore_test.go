package productstore_test

import (
	"errors"
	"testing"

	productstore "github.com/dalemusser/automationhub/internal/app/store/products"
	"github.com/dalemusser/automationhub/internal/app/system/indexes"
	"github.com/dalemusser/automationhub/internal/app/system/paging"
	"github.com/dalemusser/automationhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestParseSort(t *testing.T) {
	tests := []struct {
		in   string
		want productstore.Sort
		ok   bool
	}{
		{"", productstore.DefaultSort, true},
		{"price", productstore.Sort{Field: "price"}, true},
		{"price:desc", productstore.Sort{Field: "price", Desc: true}, true},
		{"createdAt:ASC", productstore.Sort{Field: "created_at"}, true},
		{"password:asc", productstore.Sort{}, false},
		{"price:sideways", productstore.Sort{}, false},
	}
	for _, tt := range tests {
		got, ok := productstore.ParseSort(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("ParseSort(%q) = %+v, %v; want %+v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestStore_ListSortAndFilter(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}
	store := productstore.New(db)
	fx := testutil.NewFixtures(t, db)
	actor := primitive.NewObjectID()

	fx.CreateProduct(ctx, "Servo Arm", "Robotics", 300, actor)
	fx.CreateProduct(ctx, "Gripper", "Robotics", 100, actor)
	fx.CreateProduct(ctx, "PLC Unit", "Control Systems", 200, actor)

	sort, _ := productstore.ParseSort("price:asc")
	got, total, err := store.List(ctx, productstore.ListFilter{Category: "Robotics"}, &sort, paging.Params{Page: 1, Limit: 10})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if total != 2 || len(got) != 2 {
		t.Fatalf("got %d/%d, want 2", len(got), total)
	}
	if got[0].Name != "Gripper" || got[1].Name != "Servo Arm" {
		t.Errorf("unexpected order: %s, %s", got[0].Name, got[1].Name)
	}

	found, _, err := store.List(ctx, productstore.ListFilter{Search: "plc"}, nil, paging.Params{Page: 1, Limit: 10})
	if err != nil {
		t.Fatalf("List search failed: %v", err)
	}
	if len(found) != 1 || found[0].Name != "PLC Unit" {
		t.Errorf("search returned %d products", len(found))
	}
}

func TestStore_SaveAndDelete(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	store := productstore.New(db)
	fx := testutil.NewFixtures(t, db)

	creator := primitive.NewObjectID()
	editor := primitive.NewObjectID()
	p := fx.CreateProduct(ctx, "Sensor", "Sensors", 50, creator)

	p.Price = 55
	p.UpdatedByID = editor
	if err := store.Save(ctx, &p); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	got, err := store.GetByID(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Price != 55 || got.UpdatedByID != editor || got.CreatedByID != creator {
		t.Errorf("unexpected product after save: %+v", got)
	}

	if err := store.Delete(ctx, p.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.GetByID(ctx, p.ID); !errors.Is(err, productstore.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
