package newsletter

import (
	"errors"
	"net/http"
	"time"

	"github.com/dalemusser/automationhub/internal/app/policy/newsletterpolicy"
	subscriberstore "github.com/dalemusser/automationhub/internal/app/store/subscribers"
	"github.com/dalemusser/automationhub/internal/app/system/authz"
	"github.com/dalemusser/automationhub/internal/app/system/inputval"
	"github.com/dalemusser/automationhub/internal/app/system/mailer"
	"github.com/dalemusser/automationhub/internal/app/system/normalize"
	"github.com/dalemusser/automationhub/internal/app/system/ratelimit"
	"github.com/dalemusser/automationhub/internal/app/system/respond"
	"github.com/dalemusser/automationhub/internal/app/system/timeouts"
	"github.com/dalemusser/automationhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const tokenLifetime = "24 hours"

// HandleSubscribe records a pending subscriber and mails the verification
// link. An address that unsubscribed earlier starts over as pending.
//
// POST /api/newsletter/subscribe
func (h *Handler) HandleSubscribe(w http.ResponseWriter, r *http.Request) {
	var req newsletterpolicy.SubscribeRequest
	if err := inputval.DecodeCreate(r.Body, &req); err != nil {
		h.ErrLog.Respond(w, r, "newsletter: bad subscribe payload", err)
		return
	}
	if err := req.Validate(); err != nil {
		h.ErrLog.Respond(w, r, "newsletter: invalid subscribe request", err)
		return
	}

	ctx, cancel := timeouts.WithShort(r.Context())
	defer cancel()

	token, err := newsletterpolicy.NewToken()
	if err != nil {
		h.fail(w, r, "newsletter: token", err)
		return
	}
	now := time.Now().UTC()
	email := normalize.Email(req.Email)

	existing, err := h.Subscribers.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if err := newsletterpolicy.Resubscribe(existing, req, token, now); err != nil {
			h.fail(w, r, "newsletter: resubscribe", err)
			return
		}
		if err := h.Subscribers.Resubscribe(ctx, existing); err != nil {
			if errors.Is(err, subscriberstore.ErrNotFound) {
				err = newsletterpolicy.ErrAlreadySubscribed
			}
			h.fail(w, r, "newsletter: save resubscribe", err)
			return
		}
	case errors.Is(err, subscriberstore.ErrNotFound):
		sub := newsletterpolicy.NewSubscriber(req, models.RequestMetadata{
			IPAddress: ratelimit.ClientIP(r),
			UserAgent: r.UserAgent(),
		}, token, now)
		if _, err := h.Subscribers.Create(ctx, sub); err != nil {
			h.fail(w, r, "newsletter: create subscriber", err)
			return
		}
	default:
		h.fail(w, r, "newsletter: load subscriber", err)
		return
	}

	h.Mail.Dispatch(mailer.NewsletterVerification(h.Site, email, token, tokenLifetime))
	respond.Message(w, r, http.StatusCreated, "Please check your email to verify your subscription")
}

// HandleVerify consumes a verification token. A token works once; unknown,
// expired and replayed tokens are all rejected the same way.
//
// GET /api/newsletter/verify/{token}
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	token := normalize.QueryParam(chi.URLParam(r, "token"))
	if !newsletterpolicy.WellFormedToken(token) {
		h.ErrLog.Respond(w, r, "newsletter: malformed token", newsletterpolicy.ErrInvalidToken)
		return
	}

	ctx, cancel := timeouts.WithShort(r.Context())
	defer cancel()

	sub, err := h.Subscribers.ConsumeToken(ctx, token, time.Now().UTC())
	if err != nil {
		if errors.Is(err, subscriberstore.ErrNotFound) {
			err = newsletterpolicy.ErrInvalidToken
		}
		h.fail(w, r, "newsletter: verify", err)
		return
	}
	h.Log.Info("newsletter subscription verified", zap.String("subscriber_id", sub.ID.Hex()))
	respond.Message(w, r, http.StatusOK, "Newsletter subscription verified successfully")
}

// HandleUnsubscribe marks an address unsubscribed.
//
// POST /api/newsletter/unsubscribe
func (h *Handler) HandleUnsubscribe(w http.ResponseWriter, r *http.Request) {
	var req newsletterpolicy.EmailRequest
	if err := inputval.DecodeCreate(r.Body, &req); err != nil {
		h.ErrLog.Respond(w, r, "newsletter: bad unsubscribe payload", err)
		return
	}
	if err := req.Validate(); err != nil {
		h.ErrLog.Respond(w, r, "newsletter: invalid unsubscribe request", err)
		return
	}

	ctx, cancel := timeouts.WithShort(r.Context())
	defer cancel()

	if err := h.Subscribers.Unsubscribe(ctx, normalize.Email(req.Email), time.Now().UTC()); err != nil {
		h.fail(w, r, "newsletter: unsubscribe", err)
		return
	}
	respond.Message(w, r, http.StatusOK, "Successfully unsubscribed from newsletter")
}

type preferencesRequest struct {
	Preferences *newsletterpolicy.PreferencesUpdate `json:"preferences"`
}

func (p *preferencesRequest) Validate() error {
	if p.Preferences == nil {
		return (&newsletterpolicy.PreferencesUpdate{}).Validate()
	}
	return p.Preferences.Validate()
}

type preferencesResponse struct {
	Preferences models.Preferences `json:"preferences"`
}

// HandlePreferences changes the categories the signed-in user's
// subscription receives. Categories left out of the request keep their
// current value.
//
// PATCH /api/newsletter/preferences
func (h *Handler) HandlePreferences(w http.ResponseWriter, r *http.Request) {
	var req preferencesRequest
	if err := inputval.DecodeUpdate(r.Body, &req); err != nil {
		h.ErrLog.Respond(w, r, "newsletter: bad preferences payload", err)
		return
	}
	if err := req.Validate(); err != nil {
		h.ErrLog.Respond(w, r, "newsletter: invalid preferences", err)
		return
	}
	id, err := authz.Require(r, authz.Anyone)
	if err != nil {
		h.ErrLog.Respond(w, r, "newsletter: preferences denied", err)
		return
	}

	ctx, cancel := timeouts.WithShort(r.Context())
	defer cancel()

	email := normalize.Email(id.Email)
	sub, err := h.Subscribers.GetByEmail(ctx, email)
	if err != nil {
		h.fail(w, r, "newsletter: load subscriber", err)
		return
	}
	prefs := sub.Preferences
	req.Preferences.ApplyTo(&prefs)

	sub, err = h.Subscribers.SetPreferences(ctx, email, prefs, time.Now().UTC())
	if err != nil {
		h.fail(w, r, "newsletter: save preferences", err)
		return
	}
	respond.OK(w, r, preferencesResponse{Preferences: sub.Preferences})
}
