package orders

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"crumble/db"
	"crumble/models"
	"crumble/utils"

	"github.com/julienschmidt/httprouter"
	"github.com/phpdave11/gofpdf"
	"github.com/skip2/go-qrcode"
	"go.mongodb.org/mongo-driver/bson"
)

// PickupQR returns a PNG the shop scans at pickup to match the order.
func (h *Handlers) PickupQR(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID := utils.GetUserIDFromRequest(r)
	orderID := ps.ByName("orderId")

	var order models.Order
	err := db.OrderCollection.FindOne(r.Context(),
		bson.M{"orderid": orderID, "userid": userID}).Decode(&order)
	if err != nil {
		utils.RespondWithError(w, http.StatusNotFound, "Order not found")
		return
	}

	qrData := fmt.Sprintf("order=%s&code=%s&ts=%d", order.OrderID, order.PickupCode, time.Now().Unix())
	png, err := qrcode.Encode(qrData, qrcode.Medium, 256)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to generate QR code")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Write(png)
}

// Invoice renders the order as a downloadable PDF.
func (h *Handlers) Invoice(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID := utils.GetUserIDFromRequest(r)
	orderID := ps.ByName("orderId")

	var order models.Order
	err := db.OrderCollection.FindOne(r.Context(),
		bson.M{"orderid": orderID, "userid": userID}).Decode(&order)
	if err != nil {
		utils.RespondWithError(w, http.StatusNotFound, "Order not found")
		return
	}

	qrData := fmt.Sprintf("order=%s&code=%s", order.OrderID, order.PickupCode)
	qrPNG, _ := qrcode.Encode(qrData, qrcode.Medium, 128)

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 20)
	pdf.CellFormat(0, 15, "Crumble Cake Shop - Invoice", "", 1, "C", false, 0, "")
	pdf.Ln(5)

	pdf.SetFont("Arial", "", 12)
	pdf.MultiCell(0, 8, fmt.Sprintf(
		"Order: %s\nPlaced: %s\nStatus: %s\nDeliver to: %s\nPayment: %s",
		order.OrderID,
		order.CreatedAt.Format("02 Jan 2006 15:04"),
		order.Status,
		order.Address,
		order.PaymentMethod,
	), "", "L", false)
	pdf.Ln(5)

	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(90, 8, "Item", "B", 0, "L", false, 0, "")
	pdf.CellFormat(25, 8, "Qty", "B", 0, "R", false, 0, "")
	pdf.CellFormat(30, 8, "Price", "B", 0, "R", false, 0, "")
	pdf.CellFormat(30, 8, "Total", "B", 1, "R", false, 0, "")

	pdf.SetFont("Arial", "", 12)
	for _, it := range order.Items {
		pdf.CellFormat(90, 8, it.Name, "", 0, "L", false, 0, "")
		pdf.CellFormat(25, 8, fmt.Sprintf("%d", it.Quantity), "", 0, "R", false, 0, "")
		pdf.CellFormat(30, 8, fmt.Sprintf("$%.2f", it.Price), "", 0, "R", false, 0, "")
		pdf.CellFormat(30, 8, fmt.Sprintf("$%.2f", it.Price*float64(it.Quantity)), "", 1, "R", false, 0, "")
	}
	pdf.Ln(3)

	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(145, 8, "Subtotal", "T", 0, "R", false, 0, "")
	pdf.CellFormat(30, 8, fmt.Sprintf("$%.2f", order.Subtotal), "T", 1, "R", false, 0, "")
	if order.Discount > 0 {
		pdf.CellFormat(145, 8, fmt.Sprintf("Discount (%s)", order.CouponCode), "", 0, "R", false, 0, "")
		pdf.CellFormat(30, 8, fmt.Sprintf("-$%.2f", order.Discount), "", 1, "R", false, 0, "")
	}
	pdf.CellFormat(145, 8, "Shipping", "", 0, "R", false, 0, "")
	pdf.CellFormat(30, 8, fmt.Sprintf("$%.2f", order.ShippingFee), "", 1, "R", false, 0, "")
	pdf.CellFormat(145, 8, "Total", "", 0, "R", false, 0, "")
	pdf.CellFormat(30, 8, fmt.Sprintf("$%.2f", order.Total), "", 1, "R", false, 0, "")

	if len(qrPNG) > 0 {
		imgOpts := gofpdf.ImageOptions{ImageType: "png"}
		pdf.RegisterImageOptionsReader("qr", imgOpts, bytes.NewReader(qrPNG))
		pdf.ImageOptions("qr", 150, 230, 40, 40, false, imgOpts, 0, "")
	}

	pdf.SetY(-25)
	pdf.SetFont("Arial", "I", 10)
	pdf.CellFormat(0, 10, "Show the QR code when collecting your order.", "T", 0, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to generate invoice")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename=invoice-"+order.OrderID+".pdf")
	w.Write(buf.Bytes())
}
