package actions

import (
	"fmt"
	"net/url"

	"bountylink-backend/ledger"
)

// Surface selects which resource kind's routes a link points at.
type Surface string

const (
	SurfaceTasks    Surface = "tasks"
	SurfaceServices Surface = "services"
)

// Composer renders resolved viewer states into wire payloads. One renderer
// per state arm; handlers never assemble response JSON themselves.
type Composer struct {
	publicBaseURL string
	appBaseURL    string
	iconURL       string
}

// NewComposer builds a composer. publicBaseURL is this server as reachable
// by wallets, appBaseURL the first-party marketplace UI.
func NewComposer(publicBaseURL, appBaseURL, iconURL string) *Composer {
	return &Composer{
		publicBaseURL: publicBaseURL,
		appBaseURL:    appBaseURL,
		iconURL:       iconURL,
	}
}

func (c *Composer) href(surface Surface, id, suffix string, hop HopContext) string {
	u := fmt.Sprintf("%s/actions/%s/%s%s", c.publicBaseURL, surface, url.PathEscape(id), suffix)
	if q := hop.Query().Encode(); q != "" {
		u += "?" + q
	}
	return u
}

// ActionURL is the public entry URL of a resource's action flow.
func (c *Composer) ActionURL(surface Surface, id string) string {
	return c.href(surface, id, "", HopContext{})
}

// SignVerifyHref is the verify endpoint that follows a sign hop.
func (c *Composer) SignVerifyHref(surface Surface, id string) string {
	return c.href(surface, id, "/sign/verify", HopContext{})
}

// CompleteHref is the terminal completion endpoint for a flow.
func (c *Composer) CompleteHref(surface Surface, id string, hop HopContext) string {
	return c.href(surface, id, "/complete", hop)
}

// ClaimCompleteHref is the completion endpoint of the claim flow.
func (c *Composer) ClaimCompleteHref(surface Surface, id string, hop HopContext) string {
	return c.href(surface, id, "/claim/complete", hop)
}

// AppLink points back into the marketplace UI for a resource.
func (c *Composer) AppLink(surface Surface, id string) string {
	return fmt.Sprintf("%s/%s/%s", c.appBaseURL, surface, url.PathEscape(id))
}

func (c *Composer) base(r *ledger.Resource) ActionResponse {
	return ActionResponse{
		Icon:        c.iconURL,
		Title:       r.Title,
		Description: StripMarkup(r.Description),
	}
}

// Discovery renders the entry hop: a disabled card when the action surface
// is off for the resource, otherwise the connect-wallet message link.
func (c *Composer) Discovery(surface Surface, r *ledger.Resource) *ActionResponse {
	resp := c.base(r)
	if !r.ActionsEnabled {
		resp.Label = "Unavailable"
		resp.Disabled = true
		return &resp
	}
	resp.Label = "Connect Wallet"
	resp.Links = &ActionLinks{Actions: []LinkedAction{c.connectLink(surface, r.ID)}}
	return &resp
}

func (c *Composer) connectLink(surface Surface, id string) LinkedAction {
	return LinkedAction{
		Type:  LinkTypeMessage,
		Href:  c.href(surface, id, "/sign", HopContext{}),
		Label: "Connect Wallet",
	}
}

// Compose renders a resolved viewer state. Disabled terminal arms carry no
// actionable post links; every other arm points at the next builder or
// verifier endpoint with the hop context the next hop needs.
func (c *Composer) Compose(state ViewerState, surface Surface, r *ledger.Resource, hop HopContext) *ActionResponse {
	resp := c.base(r)
	if hop.Description != "" {
		resp.Description = StripMarkup(hop.Description)
	}

	switch state {
	case StateUnverified, StateServiceUnverified:
		return c.Discovery(surface, r)

	case StateOwner:
		resp.Label = "Open in app"
		resp.Disabled = true
		resp.Links = &ActionLinks{Actions: []LinkedAction{{
			Type:  LinkTypeExternal,
			Href:  c.AppLink(surface, r.ID),
			Label: "Open in app",
		}}}

	case StateNoSubmissionOpen, StateSubmissionClaimedOpen:
		resp.Label = "Submit"
		// The {content} placeholder stays literal; wallets substitute it
		// from the textarea parameter before POSTing.
		submitHref := c.href(surface, r.ID, "", hop)
		if hop.Query().Encode() == "" {
			submitHref += "?content={content}"
		} else {
			submitHref += "&content={content}"
		}
		resp.Links = &ActionLinks{Actions: []LinkedAction{{
			Type:  LinkTypePost,
			Href:  submitHref,
			Label: "Submit",
			Parameters: []ActionParameter{{
				Name:     "content",
				Label:    "Describe your work",
				Type:     "textarea",
				Required: true,
			}},
		}}}

	case StateNoSubmissionClosed:
		resp.Label = "Closed"
		resp.Disabled = true

	case StateSubmissionOpen:
		resp.Label = "Under review"
		resp.Disabled = true

	case StateSubmissionWaitingClaim:
		label := "Claim " + FormatReward(r.Asset)
		resp.Label = label
		resp.Links = &ActionLinks{Actions: []LinkedAction{{
			Type:  LinkTypePost,
			Href:  c.href(surface, r.ID, "/claim", hop),
			Label: label,
		}}}

	case StateSubmissionClaimedClosed:
		resp.Label = "Claimed"
		resp.Disabled = true

	case StateServiceVerified:
		label := "Buy for " + FormatReward(r.Asset)
		resp.Label = label
		resp.Links = &ActionLinks{Actions: []LinkedAction{{
			Type:  LinkTypePost,
			Href:  c.href(surface, r.ID, "", hop),
			Label: label,
		}}}

	case StateServicePaid:
		resp.Label = "Purchased"
		resp.Disabled = true
	}

	return &resp
}

// Failure renders any classified error as a valid, disabled payload. Invalid
// signatures keep the original connect-wallet link so the client can retry
// with a fresh challenge; resource may be nil when the fetch itself failed.
func (c *Composer) Failure(surface Surface, r *ledger.Resource, id string, err error) *ActionResponse {
	ae := Classify(err)

	resp := ActionResponse{Icon: c.iconURL, Title: "Action unavailable"}
	if r != nil {
		resp = c.base(r)
	}
	resp.Disabled = true
	resp.Label = "Unavailable"
	resp.Error = &ActionError{Message: ae.Message}

	if ae.Kind == KindInvalidSignature {
		resp.Disabled = false
		resp.Label = "Connect Wallet"
		resp.Links = &ActionLinks{Actions: []LinkedAction{c.connectLink(surface, id)}}
	}
	return &resp
}

// Completed renders a terminal receipt: a redirect when the ledger supplied
// one, a plain confirmation otherwise.
func (c *Composer) Completed(surface Surface, r *ledger.Resource, rec *ledger.Receipt) *CompletedResponse {
	if rec.RedirectURL != "" {
		return &CompletedResponse{Type: LinkTypeExternal, ExternalLink: rec.RedirectURL}
	}
	msg := rec.Message
	if msg == "" {
		msg = "All done."
	}
	return &CompletedResponse{
		Type:        "completed",
		Title:       r.Title,
		Description: msg,
	}
}

// HTTPStatus maps an error kind to the status code sent alongside the
// composed payload. Bodies are always valid action payloads regardless.
func HTTPStatus(err error) int {
	switch Classify(err).Kind {
	case KindResourceNotFound:
		return 404
	case KindValidation:
		return 400
	case KindInvalidSignature:
		return 400
	case KindNetworkUnavailable:
		return 503
	default:
		return 200
	}
}
