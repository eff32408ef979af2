package handler

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"proxyline/internal/service"
)

// VoiceHandler answers the telephony provider's inbound-call webhook with a
// call-control XML document.
type VoiceHandler struct {
	forwardService service.ForwardService
}

// NewVoiceHandler creates a new voice handler.
func NewVoiceHandler(forwardService service.ForwardService) *VoiceHandler {
	return &VoiceHandler{forwardService: forwardService}
}

const (
	dialXML   = `<?xml version="1.0" encoding="UTF-8"?><Response><Dial>%s</Dial></Response>`
	rejectXML = `<?xml version="1.0" encoding="UTF-8"?><Response><Say>%s</Say><Hangup/></Response>`
)

// InboundCall godoc
// @Summary Inbound proxy call webhook
// @Description Decides whether and where to forward a call to a provisioned number.
// @Tags voice
// @Accept x-www-form-urlencoded
// @Produce xml
// @Param To formData string true "Called proxy number"
// @Success 200 {string} string "call-control XML"
// @Router /voice/inbound [post]
func (h *VoiceHandler) InboundCall(c echo.Context) error {
	to := c.FormValue("To")

	decision, err := h.forwardService.DecideForward(c.Request().Context(), to)
	if err != nil {
		// The caller hears a generic rejection; the error is already logged.
		return c.Blob(http.StatusOK, echo.MIMEApplicationXML,
			[]byte(fmt.Sprintf(rejectXML, "This number is not available right now. Goodbye.")))
	}

	var doc string
	switch decision.Outcome {
	case service.OutcomeDial:
		doc = fmt.Sprintf(dialXML, decision.DialTarget)
	case service.OutcomeForwardingDisabled:
		doc = fmt.Sprintf(rejectXML, "Forwarding is disabled for this number. Goodbye.")
	case service.OutcomeExpired:
		doc = fmt.Sprintf(rejectXML, "This subscription has expired. Goodbye.")
	default:
		doc = fmt.Sprintf(rejectXML, "This number is not active. Goodbye.")
	}

	return c.Blob(http.StatusOK, echo.MIMEApplicationXML, []byte(doc))
}
