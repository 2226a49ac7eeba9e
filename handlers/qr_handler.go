package handlers

import (
	"net/http"

	"github.com/skip2/go-qrcode"

	"bountylink-backend/actions"
)

// handleQR renders the resource's action URL as a PNG QR code so wallets
// can pick up the flow by scanning.
func (h *ActionsHandler) handleQR(w http.ResponseWriter, r *http.Request, surface actions.Surface, id string) {
	// 404 for unknown resources rather than encoding a dead link.
	if _, err := h.fetch(r.Context(), surface, id); err != nil {
		h.fail(w, surface, nil, id, err)
		return
	}

	png, err := qrcode.Encode(h.composer.ActionURL(surface, id), qrcode.Medium, 256)
	if err != nil {
		h.fail(w, surface, nil, id, actions.NetworkUnavailable(err))
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}
