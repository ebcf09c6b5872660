package cart

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"crumble/models"
	"crumble/utils"

	"github.com/julienschmidt/httprouter"
)

// Handlers exposes the engine over HTTP. Anonymous shoppers are identified
// by a device id (X-Device-ID header or cookie, minted on first contact);
// authenticated ones additionally carry a JWT resolved by OptionalAuth.
type Handlers struct {
	mgr     *Manager
	catalog Catalog
}

func NewHandlers(mgr *Manager, catalog Catalog) *Handlers {
	return &Handlers{mgr: mgr, catalog: catalog}
}

const deviceCookie = "crumble_device"

// engineFor resolves the device session's engine and reconciles its identity
// with the request's auth state. A request that arrives freshly logged in
// triggers the merge-on-login; one that arrives logged out triggers the
// local snapshot.
func (h *Handlers) engineFor(w http.ResponseWriter, r *http.Request) *Engine {
	deviceID := r.Header.Get("X-Device-ID")
	if deviceID == "" {
		if c, err := r.Cookie(deviceCookie); err == nil {
			deviceID = c.Value
		}
	}
	if deviceID == "" {
		deviceID = utils.GetUUID()
		http.SetCookie(w, &http.Cookie{
			Name:     deviceCookie,
			Value:    deviceID,
			Path:     "/",
			MaxAge:   int((90 * 24 * time.Hour).Seconds()),
			HttpOnly: true,
		})
	}

	eng := h.mgr.Engine(deviceID)
	userID := utils.GetUserIDFromRequest(r)
	if eng.UserID() != userID {
		if err := eng.SetIdentity(r.Context(), userID); err != nil {
			// Merge refused (remote unreadable); the cart stays usable in its
			// previous identity mode and the merge retries on the next request.
			log.Printf("cart: identity sync failed for device %s: %v", deviceID, err)
		}
	}
	return eng
}

func cartPayload(e *Engine) utils.M {
	state := e.State()
	return utils.M{
		"items":     state.Items,
		"coupon":    state.Coupon,
		"subtotal":  state.Subtotal(),
		"discount":  state.Discount(),
		"itemCount": state.ItemCount(),
		"persist":   e.LastPersistStatus().String(),
	}
}

// GET /api/cart
func (h *Handlers) GetCart(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	eng := h.engineFor(w, r)
	utils.RespondWithJSON(w, http.StatusOK, cartPayload(eng))
}

// POST /api/cart/items
func (h *Handlers) AddItem(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var item models.LineItem
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}
	if item.ID == "" || item.Name == "" || item.Price < 0 {
		utils.RespondWithError(w, http.StatusBadRequest, "Missing or invalid fields")
		return
	}

	eng := h.engineFor(w, r)
	eng.AddItem(item)
	utils.RespondWithJSON(w, http.StatusCreated, cartPayload(eng))
}

// PUT /api/cart/items/:id
func (h *Handlers) UpdateQuantity(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var body struct {
		Quantity int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}

	eng := h.engineFor(w, r)
	eng.UpdateQuantity(ps.ByName("id"), body.Quantity)
	utils.RespondWithJSON(w, http.StatusOK, cartPayload(eng))
}

// DELETE /api/cart/items/:id
func (h *Handlers) RemoveItem(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	eng := h.engineFor(w, r)
	eng.RemoveItem(ps.ByName("id"))
	utils.RespondWithJSON(w, http.StatusOK, cartPayload(eng))
}

// DELETE /api/cart
func (h *Handlers) ClearCart(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	eng := h.engineFor(w, r)
	eng.Clear()
	utils.RespondWithJSON(w, http.StatusOK, cartPayload(eng))
}

// POST /api/cart/coupon
func (h *Handlers) ApplyCoupon(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var body struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}

	eng := h.engineFor(w, r)
	coupon, msg, err := eng.ApplyCoupon(body.Code)
	if err != nil {
		var minErr *MinimumNotMetError
		if errors.As(err, &minErr) {
			utils.RespondWithJSON(w, http.StatusUnprocessableEntity, utils.M{
				"error":           "minimum_not_met",
				"requiredMinimum": minErr.Required,
				"subtotal":        minErr.Subtotal,
			})
			return
		}
		if errors.Is(err, ErrCouponApplied) {
			utils.RespondWithJSON(w, http.StatusConflict, utils.M{"error": "coupon_already_applied"})
			return
		}
		utils.RespondWithJSON(w, http.StatusUnprocessableEntity, utils.M{"error": "invalid_coupon"})
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"coupon": coupon, "message": msg, "discount": eng.Discount()})
}

// DELETE /api/cart/coupon
func (h *Handlers) RemoveCoupon(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	eng := h.engineFor(w, r)
	eng.RemoveCoupon()
	utils.RespondWithJSON(w, http.StatusOK, cartPayload(eng))
}

// GET /api/cart/export
func (h *Handlers) ExportCart(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	eng := h.engineFor(w, r)
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", "attachment; filename=cart-backup.json")
	json.NewEncoder(w).Encode(eng.Export())
}

// POST /api/cart/import
func (h *Handlers) ImportCart(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Failed to read body")
		return
	}

	eng := h.engineFor(w, r)
	added, dropped, err := eng.Import(raw)
	switch {
	case errors.Is(err, ErrInvalidFormat):
		utils.RespondWithJSON(w, http.StatusUnprocessableEntity, utils.M{"error": "invalid_format"})
		return
	case errors.Is(err, ErrNoValidItems):
		utils.RespondWithJSON(w, http.StatusUnprocessableEntity, utils.M{"error": "no_valid_items", "dropped": dropped})
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"imported": added, "dropped": dropped, "cart": cartPayload(eng)})
}

// POST /api/cart/events accepts client lifecycle signals (visible/online/offline/unload).
func (h *Handlers) LifecycleEvent(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var body struct {
		Event string `json:"event"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}

	eng := h.engineFor(w, r)
	eng.HandleLifecycleEvent(r.Context(), body.Event)
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"persist": eng.LastPersistStatus().String()})
}

// POST /api/cart/sync forces an immediate persistence pass.
func (h *Handlers) SyncCart(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	eng := h.engineFor(w, r)
	status := eng.Flush(r.Context())
	code := http.StatusOK
	if status == PersistFailed {
		code = http.StatusServiceUnavailable
	}
	utils.RespondWithJSON(w, code, utils.M{"persist": status.String()})
}

// POST /api/cart/restore rehydrates compressed items from the catalog.
func (h *Handlers) RestoreCart(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	eng := h.engineFor(w, r)
	eng.RestoreFullProductInfo(r.Context(), h.catalog)
	utils.RespondWithJSON(w, http.StatusOK, cartPayload(eng))
}

// POST /api/cart/validate runs an on-demand validity sweep.
func (h *Handlers) ValidateCart(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	eng := h.engineFor(w, r)
	removed := eng.ValidateAndClean()
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"removed": removed, "cart": cartPayload(eng)})
}
