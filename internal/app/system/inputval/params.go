package inputval

import (
	"net/http"

	"github.com/dalemusser/automationhub/internal/app/system/apperr"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PathID parses the named chi URL parameter as an ObjectID. A malformed id is
// a validation error on that parameter.
func PathID(r *http.Request, name string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, name))
	if err != nil {
		return primitive.NilObjectID, apperr.Invalid([]apperr.FieldError{{Field: name, Message: "must be a valid id"}})
	}
	return id, nil
}
