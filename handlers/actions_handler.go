package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gagliardetto/solana-go"

	"bountylink-backend/actions"
	"bountylink-backend/chain"
	"bountylink-backend/identity"
	"bountylink-backend/ledger"
	"bountylink-backend/metrics"
)

// Ledger is the slice of the escrow ledger API the action surface consumes.
type Ledger interface {
	GetTask(ctx context.Context, id string) (*ledger.Resource, error)
	GetService(ctx context.Context, id string) (*ledger.Resource, error)
	CreateSubmission(ctx context.Context, taskID, account, content string) (*ledger.Submission, error)
	BuildClaimTransaction(ctx context.Context, taskID, account string) (*ledger.PreparedTransaction, error)
	BuildPaymentTransaction(ctx context.Context, serviceID, account string) (*ledger.PreparedTransaction, error)
	CompleteSubmission(ctx context.Context, taskID, txID string) (*ledger.Receipt, error)
	CompleteClaim(ctx context.Context, taskID, txID string) (*ledger.Receipt, error)
	CompletePayment(ctx context.Context, serviceID, txID string) (*ledger.Receipt, error)
}

// TransactionBuilder builds unsigned binding transactions.
type TransactionBuilder interface {
	BuildBindingTransaction(ctx context.Context, payer solana.PublicKey, resourceID string, purpose chain.Purpose) (string, error)
}

// Verifier checks signatures and bridges verified accounts into the
// marketplace identity layer.
type Verifier interface {
	VerifyMessage(ctx context.Context, account solana.PublicKey, signature string, purpose chain.Purpose) (*identity.Session, error)
	VerifyTransaction(ctx context.Context, account solana.PublicKey, signature string) (*identity.Session, error)
}

// ActionsHandler serves the stateless action surface. Every hop re-fetches
// the resource and resumes purely from the hop context in the query string.
type ActionsHandler struct {
	ledger   Ledger
	builder  TransactionBuilder
	verifier Verifier
	composer *actions.Composer
}

// NewActionsHandler creates the action surface handler.
func NewActionsHandler(l Ledger, b TransactionBuilder, v Verifier, c *actions.Composer) *ActionsHandler {
	return &ActionsHandler{
		ledger:   l,
		builder:  b,
		verifier: v,
		composer: c,
	}
}

// Tasks handles /actions/tasks/{id} and everything below it.
func (h *ActionsHandler) Tasks(w http.ResponseWriter, r *http.Request) {
	h.route(w, r, actions.SurfaceTasks)
}

// Services handles /actions/services/{id} and everything below it.
func (h *ActionsHandler) Services(w http.ResponseWriter, r *http.Request) {
	h.route(w, r, actions.SurfaceServices)
}

func (h *ActionsHandler) route(w http.ResponseWriter, r *http.Request, surface actions.Surface) {
	path := strings.TrimPrefix(r.URL.Path, "/actions/"+string(surface))
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if parts[0] == "" {
		h.fail(w, surface, nil, "", actions.ResourceNotFound(nil))
		return
	}
	id := parts[0]
	rest := strings.Join(parts[1:], "/")

	switch r.Method {
	case http.MethodGet:
		switch rest {
		case "":
			h.handleDiscovery(w, r, surface, id)
		case "qr":
			h.handleQR(w, r, surface, id)
		case "complete":
			h.handleComplete(w, r, surface, id)
		default:
			h.fail(w, surface, nil, id, actions.ResourceNotFound(nil))
		}
	case http.MethodPost:
		switch rest {
		case "":
			h.handleAction(w, r, surface, id)
		case "sign":
			h.handleSign(w, r, surface, id)
		case "sign/verify":
			h.handleVerify(w, r, surface, id)
		case "claim":
			h.handleClaim(w, r, surface, id)
		case "claim/complete":
			h.handleClaimComplete(w, r, surface, id)
		case "complete":
			h.handleComplete(w, r, surface, id)
		default:
			h.fail(w, surface, nil, id, actions.ResourceNotFound(nil))
		}
	default:
		h.fail(w, surface, nil, id, actions.Validation("Method not allowed"))
	}
}

func (h *ActionsHandler) fetch(ctx context.Context, surface actions.Surface, id string) (*ledger.Resource, error) {
	if surface == actions.SurfaceServices {
		return h.ledger.GetService(ctx, id)
	}
	return h.ledger.GetTask(ctx, id)
}

func (h *ActionsHandler) purpose(surface actions.Surface) chain.Purpose {
	if surface == actions.SurfaceServices {
		return chain.PurposeService
	}
	return chain.PurposeTask
}

func (h *ActionsHandler) resolve(surface actions.Surface, res *ledger.Resource, account string, verified bool) actions.ViewerState {
	if surface == actions.SurfaceServices {
		return actions.ResolveService(res, account, verified)
	}
	return actions.ResolveTask(res, account, verified)
}

// handleDiscovery is the entry hop. With a signature in the hop context it
// renders the resolved state so an abandoned flow can restart consistently;
// without one it renders the connect-wallet card.
func (h *ActionsHandler) handleDiscovery(w http.ResponseWriter, r *http.Request, surface actions.Surface, id string) {
	res, err := h.fetch(r.Context(), surface, id)
	if err != nil {
		h.fail(w, surface, nil, id, err)
		return
	}

	hop := actions.HopFromQuery(r.URL.Query())
	account := r.URL.Query().Get("account")
	if hop.Signature != "" && account != "" {
		h.writeJSON(w, http.StatusOK, h.composer.Compose(h.resolve(surface, res, account, true), surface, res, hop))
		return
	}
	h.writeJSON(w, http.StatusOK, h.composer.Discovery(surface, res))
}

type actionRequest struct {
	Account   string `json:"account"`
	Signature string `json:"signature"`
	Content   string `json:"content"`
}

func (h *ActionsHandler) parseBody(r *http.Request) (actionRequest, error) {
	var body actionRequest
	if r.Body == nil {
		return body, actions.Validation("Missing request body")
	}
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return body, actions.Validation("Malformed request body")
	}
	return body, nil
}

func (h *ActionsHandler) parseAccount(raw string) (solana.PublicKey, error) {
	if raw == "" {
		return solana.PublicKey{}, actions.Validation("Missing account")
	}
	pk, err := solana.PublicKeyFromBase58(raw)
	if err != nil {
		return solana.PublicKey{}, actions.Validation("Malformed account")
	}
	return pk, nil
}

// handleSign returns the unsigned binding transaction plus the message
// challenge, and chains to the verify endpoint.
func (h *ActionsHandler) handleSign(w http.ResponseWriter, r *http.Request, surface actions.Surface, id string) {
	body, err := h.parseBody(r)
	if err != nil {
		h.fail(w, surface, nil, id, err)
		return
	}
	payer, err := h.parseAccount(body.Account)
	if err != nil {
		h.fail(w, surface, nil, id, err)
		return
	}

	res, err := h.fetch(r.Context(), surface, id)
	if err != nil {
		h.fail(w, surface, nil, id, err)
		return
	}
	if !res.ActionsEnabled {
		h.writeJSON(w, http.StatusOK, h.composer.Discovery(surface, res))
		return
	}

	purpose := h.purpose(surface)
	tx, err := h.builder.BuildBindingTransaction(r.Context(), payer, res.ID, purpose)
	if err != nil {
		metrics.CollaboratorErrors.WithLabelValues("anchor").Inc()
		h.fail(w, surface, res, id, actions.NetworkUnavailable(err))
		return
	}

	h.writeJSON(w, http.StatusOK, &actions.TransactionResponse{
		Transaction: tx,
		Message:     chain.BuildChallenge(payer, purpose),
		Links: &actions.TxLinks{
			Next: &actions.NextAction{
				Type: actions.LinkTypePost,
				Href: h.composer.SignVerifyHref(surface, id),
			},
		},
	})
}

// handleVerify checks the caller's signature against the recomputed
// challenge, signs the account into the marketplace, and renders the
// resolved state.
func (h *ActionsHandler) handleVerify(w http.ResponseWriter, r *http.Request, surface actions.Surface, id string) {
	body, err := h.parseBody(r)
	if err != nil {
		h.fail(w, surface, nil, id, err)
		return
	}
	account, err := h.parseAccount(body.Account)
	if err != nil {
		h.fail(w, surface, nil, id, err)
		return
	}
	if body.Signature == "" {
		h.fail(w, surface, nil, id, actions.Validation("Missing signature"))
		return
	}

	res, err := h.fetch(r.Context(), surface, id)
	if err != nil {
		h.fail(w, surface, nil, id, err)
		return
	}

	session, err := h.verifier.VerifyMessage(r.Context(), account, body.Signature, h.purpose(surface))
	if err != nil {
		if actions.Classify(err).Kind == actions.KindInvalidSignature {
			metrics.VerifyFailures.Inc()
		}
		h.fail(w, surface, res, id, err)
		return
	}

	hop := actions.HopContext{Signature: body.Signature}
	state := h.resolve(surface, res, session.Account, true)
	h.writeJSON(w, http.StatusOK, h.composer.Compose(state, surface, res, hop))
}

// handleAction is POST on the resource itself: work submission for tasks,
// purchase for services. Possession of the hop signature is the proof here;
// it is not re-verified.
func (h *ActionsHandler) handleAction(w http.ResponseWriter, r *http.Request, surface actions.Surface, id string) {
	if surface == actions.SurfaceServices {
		h.handlePurchase(w, r, id)
		return
	}
	h.handleSubmit(w, r, id)
}

func (h *ActionsHandler) handleSubmit(w http.ResponseWriter, r *http.Request, taskID string) {
	surface := actions.SurfaceTasks
	hop := actions.HopFromQuery(r.URL.Query())
	if err := hop.RequireSignature(); err != nil {
		h.fail(w, surface, nil, taskID, err)
		return
	}

	body, err := h.parseBody(r)
	if err != nil {
		h.fail(w, surface, nil, taskID, err)
		return
	}
	payer, err := h.parseAccount(body.Account)
	if err != nil {
		h.fail(w, surface, nil, taskID, err)
		return
	}

	content := r.URL.Query().Get("content")
	if content == "" {
		content = body.Content
	}
	if content == "" {
		h.fail(w, surface, nil, taskID, actions.Validation("Missing content"))
		return
	}

	res, err := h.fetch(r.Context(), surface, taskID)
	if err != nil {
		h.fail(w, surface, nil, taskID, err)
		return
	}

	sub, err := h.ledger.CreateSubmission(r.Context(), res.ID, payer.String(), content)
	if err != nil {
		if errors.Is(err, ledger.ErrConflict) {
			// The submission already transitioned; show the caller where
			// they actually are instead of a raw conflict.
			h.renderCurrentState(w, r, surface, taskID, payer.String(), hop)
			return
		}
		metrics.CollaboratorErrors.WithLabelValues("ledger").Inc()
		h.fail(w, surface, res, taskID, err)
		return
	}

	tx, err := h.builder.BuildBindingTransaction(r.Context(), payer, res.ID, chain.PurposeTask)
	if err != nil {
		metrics.CollaboratorErrors.WithLabelValues("anchor").Inc()
		h.fail(w, surface, res, taskID, actions.NetworkUnavailable(err))
		return
	}

	next := hop
	next.TxID = sub.ID
	h.writeJSON(w, http.StatusOK, &actions.TransactionResponse{
		Transaction: tx,
		Message:     "Sign to bind your submission to your wallet",
		Links: &actions.TxLinks{
			Actions: []actions.LinkedAction{{
				Type:  actions.LinkTypeExternal,
				Href:  h.composer.CompleteHref(surface, taskID, next),
				Label: "Finish up",
			}},
		},
	})
}

func (h *ActionsHandler) handlePurchase(w http.ResponseWriter, r *http.Request, serviceID string) {
	surface := actions.SurfaceServices
	hop := actions.HopFromQuery(r.URL.Query())
	if err := hop.RequireSignature(); err != nil {
		h.fail(w, surface, nil, serviceID, err)
		return
	}

	body, err := h.parseBody(r)
	if err != nil {
		h.fail(w, surface, nil, serviceID, err)
		return
	}
	payer, err := h.parseAccount(body.Account)
	if err != nil {
		h.fail(w, surface, nil, serviceID, err)
		return
	}

	res, err := h.fetch(r.Context(), surface, serviceID)
	if err != nil {
		h.fail(w, surface, nil, serviceID, err)
		return
	}

	if state := actions.ResolveService(res, payer.String(), true); state != actions.StateServiceVerified {
		h.writeJSON(w, http.StatusOK, h.composer.Compose(state, surface, res, hop))
		return
	}

	prepared, err := h.ledger.BuildPaymentTransaction(r.Context(), res.ID, payer.String())
	if err != nil {
		if errors.Is(err, ledger.ErrConflict) {
			h.renderCurrentState(w, r, surface, serviceID, payer.String(), hop)
			return
		}
		metrics.CollaboratorErrors.WithLabelValues("ledger").Inc()
		h.fail(w, surface, res, serviceID, err)
		return
	}

	next := hop
	next.TxID = prepared.TxID
	h.writeJSON(w, http.StatusOK, &actions.TransactionResponse{
		Transaction: prepared.Transaction,
		Message:     "Sign to pay for " + res.Title,
		Links: &actions.TxLinks{
			Next: &actions.NextAction{
				Type: actions.LinkTypePost,
				Href: h.composer.CompleteHref(surface, serviceID, next),
			},
		},
	})
}

// handleClaim returns the real withdrawal transaction for a submission that
// is waiting to be claimed.
func (h *ActionsHandler) handleClaim(w http.ResponseWriter, r *http.Request, surface actions.Surface, id string) {
	if surface != actions.SurfaceTasks {
		h.fail(w, surface, nil, id, actions.ResourceNotFound(nil))
		return
	}

	hop := actions.HopFromQuery(r.URL.Query())
	if err := hop.RequireSignature(); err != nil {
		h.fail(w, surface, nil, id, err)
		return
	}

	body, err := h.parseBody(r)
	if err != nil {
		h.fail(w, surface, nil, id, err)
		return
	}
	payer, err := h.parseAccount(body.Account)
	if err != nil {
		h.fail(w, surface, nil, id, err)
		return
	}

	res, err := h.fetch(r.Context(), surface, id)
	if err != nil {
		h.fail(w, surface, nil, id, err)
		return
	}

	if state := actions.ResolveTask(res, payer.String(), true); state != actions.StateSubmissionWaitingClaim {
		h.writeJSON(w, http.StatusOK, h.composer.Compose(state, surface, res, hop))
		return
	}

	prepared, err := h.ledger.BuildClaimTransaction(r.Context(), res.ID, payer.String())
	if err != nil {
		if errors.Is(err, ledger.ErrConflict) {
			h.renderCurrentState(w, r, surface, id, payer.String(), hop)
			return
		}
		metrics.CollaboratorErrors.WithLabelValues("ledger").Inc()
		h.fail(w, surface, res, id, err)
		return
	}

	next := hop
	next.TxID = prepared.TxID
	h.writeJSON(w, http.StatusOK, &actions.TransactionResponse{
		Transaction: prepared.Transaction,
		Message:     "Sign to claim " + actions.FormatReward(res.Asset),
		Links: &actions.TxLinks{
			Next: &actions.NextAction{
				Type: actions.LinkTypePost,
				Href: h.composer.ClaimCompleteHref(surface, id, next),
			},
		},
	})
}

// handleClaimComplete notifies the ledger of the claim outcome. The ledger
// is the authority on duplicates, so re-invoking with the same tx id stays a
// no-op there and a valid confirmation here.
func (h *ActionsHandler) handleClaimComplete(w http.ResponseWriter, r *http.Request, surface actions.Surface, id string) {
	if surface != actions.SurfaceTasks {
		h.fail(w, surface, nil, id, actions.ResourceNotFound(nil))
		return
	}
	h.completeWith(w, r, surface, id, h.ledger.CompleteClaim)
}

// handleComplete finishes the submission flow for tasks and the payment
// flow for services.
func (h *ActionsHandler) handleComplete(w http.ResponseWriter, r *http.Request, surface actions.Surface, id string) {
	if surface == actions.SurfaceServices {
		h.completeWith(w, r, surface, id, h.ledger.CompletePayment)
		return
	}
	h.completeWith(w, r, surface, id, h.ledger.CompleteSubmission)
}

func (h *ActionsHandler) completeWith(w http.ResponseWriter, r *http.Request, surface actions.Surface, id string, complete func(context.Context, string, string) (*ledger.Receipt, error)) {
	hop := actions.HopFromQuery(r.URL.Query())
	if err := hop.RequireTxID(); err != nil {
		h.fail(w, surface, nil, id, err)
		return
	}

	res, err := h.fetch(r.Context(), surface, id)
	if err != nil {
		h.fail(w, surface, nil, id, err)
		return
	}

	receipt, err := complete(r.Context(), res.ID, hop.TxID)
	if err != nil {
		metrics.CollaboratorErrors.WithLabelValues("ledger").Inc()
		h.fail(w, surface, res, id, err)
		return
	}

	h.writeJSON(w, http.StatusOK, h.composer.Completed(surface, res, receipt))
}

// renderCurrentState re-fetches the resource and composes whatever state the
// caller is actually in. Used when the ledger rejects a write that already
// happened.
func (h *ActionsHandler) renderCurrentState(w http.ResponseWriter, r *http.Request, surface actions.Surface, id, account string, hop actions.HopContext) {
	res, err := h.fetch(r.Context(), surface, id)
	if err != nil {
		h.fail(w, surface, nil, id, err)
		return
	}
	h.writeJSON(w, http.StatusOK, h.composer.Compose(h.resolve(surface, res, account, true), surface, res, hop))
}

func (h *ActionsHandler) fail(w http.ResponseWriter, surface actions.Surface, res *ledger.Resource, id string, err error) {
	h.writeJSON(w, actions.HTTPStatus(err), h.composer.Failure(surface, res, id, err))
}

func (h *ActionsHandler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
