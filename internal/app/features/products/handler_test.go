package products_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	uierrors "github.com/dalemusser/automationhub/internal/app/features/errors"
	"github.com/dalemusser/automationhub/internal/app/features/products"
	"github.com/dalemusser/automationhub/internal/app/store/audit"
	productstore "github.com/dalemusser/automationhub/internal/app/store/products"
	"github.com/dalemusser/automationhub/internal/app/system/assets"
	"github.com/dalemusser/automationhub/internal/app/system/auditlog"
	"github.com/dalemusser/automationhub/internal/app/system/indexes"
	"github.com/dalemusser/automationhub/internal/app/system/paging"
	"github.com/dalemusser/automationhub/internal/domain/models"
	"github.com/dalemusser/automationhub/internal/testutil"
	"go.uber.org/zap"
)

type env struct {
	router http.Handler
	store  *productstore.Store
	audit  *audit.Store
	files  *assets.Memory
	fx     *testutil.Fixtures
	editor models.User
	admin  models.User
}

func setup(t *testing.T) *env {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("ensure indexes: %v", err)
	}

	mem := assets.NewMemory("/uploads")
	store := productstore.New(db)
	auditStore := audit.New(db)
	h := products.NewHandler(store,
		assets.NewUploader(mem, nil, zap.NewNop()),
		auditlog.New(auditStore, zap.NewNop(), auditlog.Config{Admin: auditlog.DB}),
		uierrors.NewErrorLogger(zap.NewNop()), zap.NewNop())

	fx := testutil.NewFixtures(t, db)
	return &env{
		router: products.Routes(h),
		store:  store,
		audit:  auditStore,
		files:  mem,
		fx:     fx,
		editor: fx.CreateEditor(ctx, "editor@example.com"),
		admin:  fx.CreateAdmin(ctx, "admin@example.com"),
	}
}

func (e *env) serve(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

type productBody struct {
	Product models.Product `json:"product"`
}

func TestServeList_SortAndFilter(t *testing.T) {
	e := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	e.fx.CreateProduct(ctx, "Arm B", "Robotics", 300, e.editor.ID)
	e.fx.CreateProduct(ctx, "Arm A", "Robotics", 100, e.editor.ID)
	e.fx.CreateProduct(ctx, "Lidar", "Sensors", 50, e.editor.ID)

	rec := e.serve(testutil.NewRequest(http.MethodGet, "/?category=Robotics&sort=price:desc"))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var list []models.Product
	env := testutil.DecodeEnvelope(t, rec, &list)
	if len(list) != 2 || list[0].Name != "Arm B" || list[1].Name != "Arm A" {
		t.Errorf("list = %+v", list)
	}
	if env.Pagination == nil || env.Pagination.Total != 2 {
		t.Errorf("pagination = %+v", env.Pagination)
	}

	rec = e.serve(testutil.NewRequest(http.MethodGet, "/category/Sensors"))
	testutil.DecodeEnvelope(t, rec, &list)
	if len(list) != 1 || list[0].Name != "Lidar" {
		t.Errorf("category route list = %+v", list)
	}

	rec = e.serve(testutil.NewRequest(http.MethodGet, "/search/lidar"))
	testutil.DecodeEnvelope(t, rec, &list)
	if len(list) != 1 || list[0].Name != "Lidar" {
		t.Errorf("search route list = %+v", list)
	}
}

func TestServeList_RejectsUnknownSort(t *testing.T) {
	e := setup(t)

	for _, target := range []string{"/?sort=password:asc", "/?sort=price:sideways", "/?category=Toys"} {
		rec := e.serve(testutil.NewRequest(http.MethodGet, target))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", target, rec.Code)
		}
	}
}

func TestServeProduct(t *testing.T) {
	e := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	p := e.fx.CreateProduct(ctx, "PLC", "Control Systems", 999.5, e.editor.ID)

	rec := e.serve(testutil.NewRequest(http.MethodGet, "/"+p.ID.Hex()))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var out productBody
	testutil.DecodeEnvelope(t, rec, &out)
	if out.Product.Name != "PLC" || out.Product.Price != 999.5 {
		t.Errorf("product = %+v", out.Product)
	}

	if rec := e.serve(testutil.NewRequest(http.MethodGet, "/000000000000000000000001")); rec.Code != http.StatusNotFound {
		t.Errorf("missing status = %d, want 404", rec.Code)
	}
	if rec := e.serve(testutil.NewRequest(http.MethodGet, "/not-an-id")); rec.Code != http.StatusBadRequest {
		t.Errorf("malformed id status = %d, want 400", rec.Code)
	}
}

func TestHandleCreate(t *testing.T) {
	e := setup(t)

	req := testutil.MultipartRequest(t, http.MethodPost, "/",
		map[string]string{
			"name":        "Gripper",
			"description": "Two-finger gripper",
			"category":    "Robotics",
			"price":       "249.99",
			"features":    "soft jaws, quick change",
		},
		testutil.File{Field: assets.FormField, Name: "g.png", ContentType: "image/png", Body: testutil.PNG},
	)
	rec := e.serve(testutil.WithIdentity(req, testutil.IdentityOf(e.editor)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var out productBody
	testutil.DecodeEnvelope(t, rec, &out)
	p := out.Product
	if p.Price != 249.99 || p.Availability != models.AvailabilityInStock {
		t.Errorf("price = %v availability = %q", p.Price, p.Availability)
	}
	if len(p.Features) != 2 {
		t.Errorf("features = %v", p.Features)
	}
	if len(p.Images) != 1 || !p.Images[0].IsMain || p.Images[0].Alt != "Gripper" {
		t.Errorf("images = %+v", p.Images)
	}
	if p.CreatedByID != e.editor.ID || p.UpdatedByID != e.editor.ID {
		t.Errorf("attribution = %s/%s", p.CreatedByID.Hex(), p.UpdatedByID.Hex())
	}

	ctx, cancel := testutil.TestContext()
	defer cancel()
	events, err := e.audit.Query(ctx, audit.QueryFilter{ActorID: &e.editor.ID, Limit: 10})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(events) != 1 || events[0].EventType != audit.EventProductCreated {
		t.Errorf("audit events = %+v", events)
	}
}

func TestHandleCreate_Rejections(t *testing.T) {
	e := setup(t)

	valid := map[string]any{
		"name":        "Sensor",
		"description": "Proximity sensor",
		"category":    "Sensors",
		"price":       12.5,
	}
	tests := []struct {
		name       string
		body       map[string]any
		identity   bool
		want       int
		wantFields []string
	}{
		{"negative price", map[string]any{"name": "x", "description": "y", "category": "Sensors", "price": -1}, true, http.StatusBadRequest, []string{"price"}},
		{"missing everything", map[string]any{}, true, http.StatusBadRequest, []string{"category", "description", "name", "price"}},
		{"bad availability", map[string]any{"name": "x", "description": "y", "category": "Sensors", "price": 1, "availability": "Soon"}, true, http.StatusBadRequest, []string{"availability"}},
		{"anonymous", valid, false, http.StatusUnauthorized, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.JSONRequest(t, http.MethodPost, "/", tt.body)
			if tt.identity {
				req = testutil.WithIdentity(req, testutil.IdentityOf(e.editor))
			}
			rec := e.serve(req)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.want, rec.Body.String())
			}
			if tt.wantFields != nil {
				got := testutil.DecodeEnvelope(t, rec, nil).ErrorFields()
				if strings.Join(got, ",") != strings.Join(tt.wantFields, ",") {
					t.Errorf("fields = %v, want %v", got, tt.wantFields)
				}
			}
		})
	}

	ctx, cancel := testutil.TestContext()
	defer cancel()
	list, total, err := e.store.List(ctx, productstore.ListFilter{}, nil, paging.Params{Page: 1, Limit: 10})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 0 {
		t.Errorf("%d products stored by rejected requests: %+v", total, list)
	}
}

func TestHandleUpdate_ReplacesImages(t *testing.T) {
	e := setup(t)
	editor := testutil.IdentityOf(e.editor)

	create := testutil.MultipartRequest(t, http.MethodPost, "/",
		map[string]string{"name": "Cam", "description": "d", "category": "Sensors", "price": "10"},
		testutil.File{Field: assets.FormField, Name: "old.png", ContentType: "image/png", Body: testutil.PNG},
	)
	rec := e.serve(testutil.WithIdentity(create, editor))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rec.Code)
	}
	var out productBody
	testutil.DecodeEnvelope(t, rec, &out)
	oldKeys := e.files.Keys()

	patch := testutil.MultipartRequest(t, http.MethodPatch, "/"+out.Product.ID.Hex(),
		map[string]string{"price": "15"},
		testutil.File{Field: assets.FormField, Name: "a.png", ContentType: "image/png", Body: testutil.PNG},
		testutil.File{Field: assets.FormField, Name: "b.png", ContentType: "image/png", Body: testutil.PNG},
	)
	admin := testutil.IdentityOf(e.admin)
	rec = e.serve(testutil.WithIdentity(patch, admin))
	if rec.Code != http.StatusOK {
		t.Fatalf("patch status = %d, body %s", rec.Code, rec.Body.String())
	}
	testutil.DecodeEnvelope(t, rec, &out)
	if out.Product.Price != 15 || len(out.Product.Images) != 2 {
		t.Errorf("product = %+v", out.Product)
	}
	if out.Product.UpdatedByID != e.admin.ID || out.Product.CreatedByID != e.editor.ID {
		t.Errorf("attribution = created %s updated %s", out.Product.CreatedByID.Hex(), out.Product.UpdatedByID.Hex())
	}

	keys := e.files.Keys()
	if len(keys) != 2 {
		t.Fatalf("stored keys = %v, want the two new images", keys)
	}
	for _, k := range keys {
		if k == oldKeys[0] {
			t.Errorf("replaced image %s still stored", k)
		}
	}
}

func TestHandleUpdate_Rejections(t *testing.T) {
	e := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	p := e.fx.CreateProduct(ctx, "Drive", "Control Systems", 80, e.editor.ID)
	editor := testutil.IdentityOf(e.editor)

	tests := []struct {
		name string
		path string
		body map[string]any
		want int
	}{
		{"unknown field", "/" + p.ID.Hex(), map[string]any{"price": 90, "createdBy": e.admin.ID.Hex()}, http.StatusBadRequest},
		{"empty", "/" + p.ID.Hex(), map[string]any{}, http.StatusBadRequest},
		{"wrong type", "/" + p.ID.Hex(), map[string]any{"price": "ninety"}, http.StatusBadRequest},
		{"missing", "/000000000000000000000001", map[string]any{"price": 90}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.JSONRequest(t, http.MethodPatch, tt.path, tt.body)
			if rec := e.serve(testutil.WithIdentity(req, editor)); rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}

	stored, err := e.store.GetByID(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.Price != 80 {
		t.Errorf("price = %v, rejected patches must not change the product", stored.Price)
	}
}

func TestHandleDelete(t *testing.T) {
	e := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	p := e.fx.CreateProduct(ctx, "Old Model", "Robotics", 1, e.editor.ID)
	path := "/" + p.ID.Hex()

	rec := e.serve(testutil.WithIdentity(httptest.NewRequest(http.MethodDelete, path, nil), testutil.IdentityOf(e.editor)))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("editor delete status = %d, want 403", rec.Code)
	}

	rec = e.serve(testutil.WithIdentity(httptest.NewRequest(http.MethodDelete, path, nil), testutil.IdentityOf(e.admin)))
	if rec.Code != http.StatusOK {
		t.Fatalf("admin delete status = %d", rec.Code)
	}
	if msg := testutil.DecodeEnvelope(t, rec, nil).Message; msg != "Product deleted successfully" {
		t.Errorf("message = %q", msg)
	}
	if _, err := e.store.GetByID(ctx, p.ID); err != productstore.ErrNotFound {
		t.Errorf("GetByID after delete err = %v, want ErrNotFound", err)
	}
}
