package orders

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"crumble/cart"
	"crumble/db"
	"crumble/live"
	"crumble/models"
	"crumble/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ShippingFee applies to orders below the free-shipping threshold unless a
// shipping coupon waives it.
const ShippingFee = 5.99

// Handlers wires checkout to the cart engine and order updates to the live
// feed. Both collaborators are passed in from main.
type Handlers struct {
	carts *cart.Manager
	hub   *live.Hub
}

func NewHandlers(carts *cart.Manager, hub *live.Hub) *Handlers {
	return &Handlers{carts: carts, hub: hub}
}

// engineFor mirrors the cart handlers' device resolution; checkout always
// runs authenticated so no cookie is minted here.
func (h *Handlers) engineFor(r *http.Request) *cart.Engine {
	deviceID := r.Header.Get("X-Device-ID")
	if deviceID == "" {
		if c, err := r.Cookie("crumble_device"); err == nil {
			deviceID = c.Value
		}
	}
	if deviceID == "" {
		return nil
	}
	eng := h.carts.Engine(deviceID)
	userID := utils.GetUserIDFromRequest(r)
	if eng.UserID() != userID {
		if err := eng.SetIdentity(r.Context(), userID); err != nil {
			log.Printf("orders: identity sync failed for device %s: %v", deviceID, err)
		}
	}
	return eng
}

// Checkout turns the current cart into an order: validates the items, prices
// subtotal minus coupon discount plus shipping, records the order, then
// clears the cart.
func (h *Handlers) Checkout(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var input struct {
		Address       string `json:"address"`
		PaymentMethod string `json:"paymentMethod"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}
	if strings.TrimSpace(input.Address) == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Address is required")
		return
	}
	if input.PaymentMethod == "" {
		input.PaymentMethod = "cash-on-delivery"
	}

	eng := h.engineFor(r)
	if eng == nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Missing device id")
		return
	}

	eng.ValidateAndClean()
	state := eng.State()
	if len(state.Items) == 0 {
		utils.RespondWithError(w, http.StatusUnprocessableEntity, "Cart is empty")
		return
	}

	subtotal := state.Subtotal()
	discount := state.Discount()
	fee := 0.0
	if subtotal < cart.FreeShippingThreshold {
		fee = ShippingFee
	}

	order := models.Order{
		OrderID:       utils.GetUUID(),
		UserID:        userID,
		Items:         state.Items,
		Address:       input.Address,
		PaymentMethod: input.PaymentMethod,
		Subtotal:      subtotal,
		Discount:      discount,
		ShippingFee:   fee,
		Total:         subtotal - discount + fee,
		Status:        models.OrderPending,
		PickupCode:    utils.GenerateRandomString(10),
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
	if state.Coupon != nil {
		order.CouponCode = state.Coupon.Code
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()
	if _, err := db.OrderCollection.InsertOne(ctx, order); err != nil {
		log.Println("Checkout insert error:", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to place order")
		return
	}

	eng.Clear()
	eng.Flush(ctx)

	utils.RespondWithJSON(w, http.StatusCreated, order)
}

// ListMyOrders returns the caller's orders, newest first.
func (h *Handlers) ListMyOrders(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	skip, limit := utils.ParsePagination(r, 20, 100)
	opts := options.Find().SetSkip(skip).SetLimit(limit).SetSort(bson.D{{Key: "createdat", Value: -1}})

	orders, err := utils.FindAndDecode[models.Order](r.Context(), db.OrderCollection, bson.M{"userid": userID}, opts)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to retrieve orders")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"orders": orders, "count": len(orders)})
}

// GetOrder returns one order for tracking. Customers see only their own.
func (h *Handlers) GetOrder(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var order models.Order
	err := db.OrderCollection.FindOne(r.Context(),
		bson.M{"orderid": ps.ByName("orderId"), "userid": userID}).Decode(&order)
	if err == mongo.ErrNoDocuments {
		utils.RespondWithError(w, http.StatusNotFound, "Order not found")
		return
	}
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to retrieve order")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, order)
}

// UpdateStatus moves an order along its lifecycle. Owner only; illegal
// transitions are rejected. Watchers on the live feed are notified.
func (h *Handlers) UpdateStatus(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var input struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}

	orderID := ps.ByName("orderId")
	var order models.Order
	err := db.OrderCollection.FindOne(r.Context(), bson.M{"orderid": orderID}).Decode(&order)
	if err == mongo.ErrNoDocuments {
		utils.RespondWithError(w, http.StatusNotFound, "Order not found")
		return
	}
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to retrieve order")
		return
	}

	if !models.ValidTransition(order.Status, input.Status) {
		utils.RespondWithError(w, http.StatusUnprocessableEntity,
			"Cannot move order from "+order.Status+" to "+input.Status)
		return
	}

	_, err = db.OrderCollection.UpdateOne(r.Context(),
		bson.M{"orderid": orderID},
		bson.M{"$set": bson.M{"status": input.Status, "updatedat": time.Now()}},
	)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to update order")
		return
	}

	h.hub.BroadcastStatus(orderID, input.Status)
	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"status": input.Status})
}

// CancelOrder lets a customer cancel their own order before it enters baking.
func (h *Handlers) CancelOrder(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	orderID := ps.ByName("orderId")
	res, err := db.OrderCollection.UpdateOne(r.Context(),
		bson.M{
			"orderid": orderID,
			"userid":  userID,
			"status":  bson.M{"$in": []string{models.OrderPending, models.OrderConfirmed}},
		},
		bson.M{"$set": bson.M{"status": models.OrderCancelled, "updatedat": time.Now()}},
	)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to cancel order")
		return
	}
	if res.MatchedCount == 0 {
		utils.RespondWithError(w, http.StatusConflict, "Order cannot be cancelled")
		return
	}

	h.hub.BroadcastStatus(orderID, models.OrderCancelled)
	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"status": models.OrderCancelled})
}

// ListAllOrders returns every order for the dashboard. Owner only.
func (h *Handlers) ListAllOrders(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	skip, limit := utils.ParsePagination(r, 50, 200)

	filter := bson.M{}
	if status := r.URL.Query().Get("status"); status != "" {
		filter["status"] = status
	}
	opts := options.Find().SetSkip(skip).SetLimit(limit).SetSort(bson.D{{Key: "createdat", Value: -1}})

	orders, err := utils.FindAndDecode[models.Order](r.Context(), db.OrderCollection, filter, opts)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to retrieve orders")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"orders": orders, "count": len(orders)})
}
