package products

import (
	"net/http"
	"time"

	"github.com/dalemusser/automationhub/internal/app/policy/productpolicy"
	"github.com/dalemusser/automationhub/internal/app/store/audit"
	"github.com/dalemusser/automationhub/internal/app/system/apperr"
	"github.com/dalemusser/automationhub/internal/app/system/assets"
	"github.com/dalemusser/automationhub/internal/app/system/authz"
	"github.com/dalemusser/automationhub/internal/app/system/inputval"
	"github.com/dalemusser/automationhub/internal/app/system/respond"
	"github.com/dalemusser/automationhub/internal/app/system/timeouts"
	"github.com/dalemusser/automationhub/internal/domain/models"
)

var errNoChanges = apperr.New(apperr.Validation, "No fields to update")

// HandleCreate stores a new product. The body is JSON or a multipart form;
// uploaded images become the product's images, the first marked main.
//
// POST /api/products
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req productpolicy.ProductCreate
	files, err := assets.ReadCreate(w, r, &req)
	if err != nil {
		h.ErrLog.Respond(w, r, "products: bad create payload", err)
		return
	}
	if err := req.Validate(); err != nil {
		h.ErrLog.Respond(w, r, "products: invalid create payload", err)
		return
	}
	actor, err := authz.Require(r, authz.Editors)
	if err != nil {
		h.ErrLog.Respond(w, r, "products: create denied", err)
		return
	}

	ctx, cancel := timeouts.WithLong(r.Context())
	defer cancel()

	p := productpolicy.NewProduct(req, actor.UserID, time.Now().UTC())
	images, err := h.Uploader.Save(ctx, assets.PrefixProducts, files)
	if err != nil {
		h.fail(w, r, "products: store images", err)
		return
	}
	productpolicy.ReplaceImages(&p, withAlt(images, p.Name))

	created, err := h.Products.Create(ctx, p)
	if err != nil {
		h.Uploader.Discard(ctx, h.Uploader.Keys(images))
		h.fail(w, r, "products: create", err)
		return
	}
	h.AuditLog.ContentChanged(ctx, r, audit.EventProductCreated, actor.UserID, created.ID, created.Name)

	respond.Created(w, r, productResponse{Product: &created})
}

// HandleUpdate applies a patch. Uploaded images replace the existing ones,
// which are removed from storage once the product is saved.
//
// PATCH /api/products/{id}
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, idErr := inputval.PathID(r, "id")
	var upd productpolicy.ProductUpdate
	files, err := assets.ReadUpdate(w, r, &upd)
	if err != nil {
		h.ErrLog.Respond(w, r, "products: bad update payload", err)
		return
	}
	if err := inputval.Join(idErr, upd.Validate()); err != nil {
		h.ErrLog.Respond(w, r, "products: invalid update payload", err)
		return
	}
	if upd.Empty() && len(files) == 0 {
		h.ErrLog.Respond(w, r, "products: empty update", errNoChanges)
		return
	}
	actor, err := authz.Require(r, authz.Editors)
	if err != nil {
		h.ErrLog.Respond(w, r, "products: update denied", err)
		return
	}

	ctx, cancel := timeouts.WithLong(r.Context())
	defer cancel()

	p, err := h.Products.GetByID(ctx, id)
	if err != nil {
		h.fail(w, r, "products: load", err)
		return
	}
	now := time.Now().UTC()
	productpolicy.Apply(p, upd, actor.UserID, now)

	images, err := h.Uploader.Save(ctx, assets.PrefixProducts, files)
	if err != nil {
		h.fail(w, r, "products: store images", err)
		return
	}
	var replaced []string
	if len(images) > 0 {
		replaced = h.Uploader.Keys(p.Images)
		productpolicy.ReplaceImages(p, withAlt(images, p.Name))
	}

	if err := h.Products.Save(ctx, p); err != nil {
		h.Uploader.Discard(ctx, h.Uploader.Keys(images))
		h.fail(w, r, "products: save", err)
		return
	}
	h.Uploader.Discard(ctx, replaced)
	h.AuditLog.ContentChanged(ctx, r, audit.EventProductUpdated, actor.UserID, p.ID, p.Name)

	respond.OK(w, r, productResponse{Product: p})
}

// HandleDelete removes a product and its stored images.
//
// DELETE /api/products/{id}
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := inputval.PathID(r, "id")
	if err != nil {
		h.ErrLog.Respond(w, r, "products: bad id", err)
		return
	}
	actor, err := authz.Require(r, authz.Admins)
	if err != nil {
		h.ErrLog.Respond(w, r, "products: delete denied", err)
		return
	}

	ctx, cancel := timeouts.WithLong(r.Context())
	defer cancel()

	p, err := h.Products.GetByID(ctx, id)
	if err != nil {
		h.fail(w, r, "products: load", err)
		return
	}
	if err := h.Products.Delete(ctx, id); err != nil {
		h.fail(w, r, "products: delete", err)
		return
	}
	h.Uploader.Discard(ctx, h.Uploader.Keys(p.Images))
	h.AuditLog.ContentChanged(ctx, r, audit.EventProductDeleted, actor.UserID, p.ID, p.Name)

	respond.Message(w, r, http.StatusOK, "Product deleted successfully")
}

func withAlt(images []models.Image, alt string) []models.Image {
	for i := range images {
		images[i].Alt = alt
	}
	return images
}
