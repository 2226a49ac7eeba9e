package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gagliardetto/solana-go"

	"bountylink-backend/actions"
	"bountylink-backend/chain"
	"bountylink-backend/identity"
	"bountylink-backend/ledger"
)

// fakeLedger implements Ledger in memory. Completions are counted per tx id
// so idempotence is observable.
type fakeLedger struct {
	tasks    map[string]*ledger.Resource
	services map[string]*ledger.Resource

	submitErr   error
	nextSub     *ledger.Submission
	completions map[string]int
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		tasks:       map[string]*ledger.Resource{},
		services:    map[string]*ledger.Resource{},
		completions: map[string]int{},
	}
}

func (f *fakeLedger) GetTask(ctx context.Context, id string) (*ledger.Resource, error) {
	if r, ok := f.tasks[id]; ok {
		return r, nil
	}
	return nil, fmt.Errorf("get task %s: %w", id, ledger.ErrNotFound)
}

func (f *fakeLedger) GetService(ctx context.Context, id string) (*ledger.Resource, error) {
	if r, ok := f.services[id]; ok {
		return r, nil
	}
	return nil, fmt.Errorf("get service %s: %w", id, ledger.ErrNotFound)
}

func (f *fakeLedger) CreateSubmission(ctx context.Context, taskID, account, content string) (*ledger.Submission, error) {
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	return f.nextSub, nil
}

func (f *fakeLedger) BuildClaimTransaction(ctx context.Context, taskID, account string) (*ledger.PreparedTransaction, error) {
	return &ledger.PreparedTransaction{Transaction: "Y2xhaW0=", TxID: "claim-tx-1"}, nil
}

func (f *fakeLedger) BuildPaymentTransaction(ctx context.Context, serviceID, account string) (*ledger.PreparedTransaction, error) {
	return &ledger.PreparedTransaction{Transaction: "cGF5", TxID: "pay-tx-1"}, nil
}

func (f *fakeLedger) settle(txID, msg string) (*ledger.Receipt, error) {
	if f.completions[txID] > 0 {
		return &ledger.Receipt{Status: "settled", Message: msg, AlreadySettled: true}, nil
	}
	f.completions[txID]++
	return &ledger.Receipt{Status: "settled", Message: msg}, nil
}

func (f *fakeLedger) CompleteSubmission(ctx context.Context, taskID, txID string) (*ledger.Receipt, error) {
	return f.settle(txID, "Submission recorded")
}

func (f *fakeLedger) CompleteClaim(ctx context.Context, taskID, txID string) (*ledger.Receipt, error) {
	return f.settle(txID, "Reward paid")
}

func (f *fakeLedger) CompletePayment(ctx context.Context, serviceID, txID string) (*ledger.Receipt, error) {
	return f.settle(txID, "Payment received")
}

// stubBuilder returns a fixed unsigned transaction.
type stubBuilder struct {
	err error
}

func (s *stubBuilder) BuildBindingTransaction(ctx context.Context, payer solana.PublicKey, resourceID string, purpose chain.Purpose) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return "dW5zaWduZWQ=", nil
}

const (
	publicBase = "https://actions.example.com"
	appBase    = "https://app.example.com"
)

func newTestHandler(fl *fakeLedger) http.Handler {
	composer := actions.NewComposer(publicBase, appBase, publicBase+"/icon.png")
	verifier := identity.NewVerifierFunc(func(ctx context.Context, account, signature string) (*identity.Session, error) {
		return &identity.Session{Token: "tok", Account: account}, nil
	})
	h := NewActionsHandler(fl, &stubBuilder{}, verifier, composer)

	mux := http.NewServeMux()
	mux.HandleFunc("/actions/tasks/", h.Tasks)
	mux.HandleFunc("/actions/services/", h.Services)
	return mux
}

func openTask(owner string) *ledger.Resource {
	return &ledger.Resource{
		ID:             "task-1",
		Title:          "Fix the parser",
		Description:    "Deep **dive** into the [parser](https://x)",
		Open:           true,
		Owner:          owner,
		ActionsEnabled: true,
		Asset:          ledger.Asset{Mint: "mint", Symbol: "USDC", Decimals: 6, Amount: 5000000},
	}
}

func doJSON(t *testing.T, mux http.Handler, method, target string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	var decoded map[string]interface{}
	if ct := rec.Header().Get("Content-Type"); strings.HasPrefix(ct, "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
			t.Fatalf("response not JSON: %v\n%s", err, rec.Body.String())
		}
	}
	return rec, decoded
}

func firstAction(t *testing.T, payload map[string]interface{}) map[string]interface{} {
	t.Helper()
	links, ok := payload["links"].(map[string]interface{})
	if !ok {
		t.Fatalf("payload has no links: %v", payload)
	}
	acts, ok := links["actions"].([]interface{})
	if !ok || len(acts) == 0 {
		t.Fatalf("payload has no actions: %v", payload)
	}
	return acts[0].(map[string]interface{})
}

func TestDiscoveryConnectWallet(t *testing.T) {
	fl := newFakeLedger()
	fl.tasks["task-1"] = openTask("owner")
	mux := newTestHandler(fl)

	rec, payload := doJSON(t, mux, http.MethodGet, "/actions/tasks/task-1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if payload["label"] != "Connect Wallet" {
		t.Fatalf("expected connect-wallet card, got %v", payload)
	}
	if desc := payload["description"].(string); strings.ContainsAny(desc, "*[") {
		t.Fatalf("markup leaked into description: %q", desc)
	}
	act := firstAction(t, payload)
	if act["type"] != "message" {
		t.Fatalf("connect link must be a message link, got %v", act["type"])
	}
	if act["href"] != publicBase+"/actions/tasks/task-1/sign" {
		t.Fatalf("unexpected sign href %v", act["href"])
	}
}

func TestDiscoveryDisabledResource(t *testing.T) {
	fl := newFakeLedger()
	task := openTask("owner")
	task.ActionsEnabled = false
	fl.tasks["task-1"] = task
	mux := newTestHandler(fl)

	rec, payload := doJSON(t, mux, http.MethodGet, "/actions/tasks/task-1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if payload["disabled"] != true {
		t.Fatalf("expected disabled card, got %v", payload)
	}
	if _, ok := payload["links"]; ok {
		t.Fatal("disabled card must carry no links")
	}
}

func TestDiscoveryUnknownResource(t *testing.T) {
	mux := newTestHandler(newFakeLedger())

	rec, payload := doJSON(t, mux, http.MethodGet, "/actions/tasks/ghost", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
	if payload["disabled"] != true || payload["error"] == nil {
		t.Fatalf("expected disabled error payload, got %v", payload)
	}
}

func TestSignHopReturnsChallengeAndNext(t *testing.T) {
	fl := newFakeLedger()
	fl.tasks["task-1"] = openTask("owner")
	mux := newTestHandler(fl)
	wallet := solana.NewWallet()

	rec, payload := doJSON(t, mux, http.MethodPost, "/actions/tasks/task-1/sign",
		map[string]string{"account": wallet.PublicKey().String()})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if tx, _ := payload["transaction"].(string); tx == "" {
		t.Fatal("expected an unsigned transaction")
	}
	want := chain.BuildChallenge(wallet.PublicKey(), chain.PurposeTask)
	if payload["message"] != want {
		t.Fatalf("challenge mismatch: got %v", payload["message"])
	}
	links := payload["links"].(map[string]interface{})
	next := links["next"].(map[string]interface{})
	if next["href"] != publicBase+"/actions/tasks/task-1/sign/verify" {
		t.Fatalf("unexpected next href %v", next["href"])
	}
}

func TestVerifyHopRendersResolvedState(t *testing.T) {
	fl := newFakeLedger()
	fl.tasks["task-1"] = openTask("owner")
	mux := newTestHandler(fl)

	wallet := solana.NewWallet()
	sig, err := wallet.PrivateKey.Sign([]byte(chain.BuildChallenge(wallet.PublicKey(), chain.PurposeTask)))
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}

	rec, payload := doJSON(t, mux, http.MethodPost, "/actions/tasks/task-1/sign/verify",
		map[string]string{"account": wallet.PublicKey().String(), "signature": sig.String()})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if payload["label"] != "Submit" {
		t.Fatalf("verified non-owner on an open task should see Submit, got %v", payload["label"])
	}
	act := firstAction(t, payload)
	href := act["href"].(string)
	if !strings.Contains(href, "signature="+sig.String()) {
		t.Fatalf("hop signature not threaded: %s", href)
	}
	if !strings.Contains(href, "content={content}") {
		t.Fatalf("content template missing: %s", href)
	}
	params := act["parameters"].([]interface{})
	if params[0].(map[string]interface{})["type"] != "textarea" {
		t.Fatal("submit action must carry the content textarea parameter")
	}
}

func TestVerifyHopRejectsForgedSignature(t *testing.T) {
	fl := newFakeLedger()
	fl.tasks["task-1"] = openTask("owner")
	mux := newTestHandler(fl)

	wallet := solana.NewWallet()
	forger := solana.NewWallet()
	sig, err := forger.PrivateKey.Sign([]byte(chain.BuildChallenge(wallet.PublicKey(), chain.PurposeTask)))
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}

	rec, payload := doJSON(t, mux, http.MethodPost, "/actions/tasks/task-1/sign/verify",
		map[string]string{"account": wallet.PublicKey().String(), "signature": sig.String()})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	errObj := payload["error"].(map[string]interface{})
	if errObj["message"] != "Invalid signature" {
		t.Fatalf("unexpected error message %v", errObj["message"])
	}
	// The failure payload keeps a retry path to a fresh challenge.
	act := firstAction(t, payload)
	if !strings.HasSuffix(act["href"].(string), "/sign") {
		t.Fatalf("expected a connect-wallet retry link, got %v", act["href"])
	}
}

func TestOwnerSeesDisabledCardWithAppLink(t *testing.T) {
	wallet := solana.NewWallet()
	fl := newFakeLedger()
	fl.tasks["task-1"] = openTask(wallet.PublicKey().String())
	mux := newTestHandler(fl)

	sig, err := wallet.PrivateKey.Sign([]byte(chain.BuildChallenge(wallet.PublicKey(), chain.PurposeTask)))
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}

	rec, payload := doJSON(t, mux, http.MethodPost, "/actions/tasks/task-1/sign/verify",
		map[string]string{"account": wallet.PublicKey().String(), "signature": sig.String()})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if payload["disabled"] != true {
		t.Fatal("owner card must be disabled")
	}
	act := firstAction(t, payload)
	if act["type"] != "external-link" || act["href"] != appBase+"/tasks/task-1" {
		t.Fatalf("unexpected owner link %v", act)
	}
}

func TestSubmitHopCreatesSubmission(t *testing.T) {
	fl := newFakeLedger()
	fl.tasks["task-1"] = openTask("owner")
	fl.nextSub = &ledger.Submission{ID: "sub-1", Status: ledger.SubmissionOpen}
	mux := newTestHandler(fl)
	wallet := solana.NewWallet()

	rec, payload := doJSON(t, mux, http.MethodPost,
		"/actions/tasks/task-1?signature=proof&content=my+work",
		map[string]string{"account": wallet.PublicKey().String()})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if tx, _ := payload["transaction"].(string); tx == "" {
		t.Fatal("expected a binding transaction")
	}
	links := payload["links"].(map[string]interface{})
	acts := links["actions"].([]interface{})
	href := acts[0].(map[string]interface{})["href"].(string)
	if !strings.Contains(href, "/actions/tasks/task-1/complete") || !strings.Contains(href, "tx=sub-1") {
		t.Fatalf("completion link must carry the submission id: %s", href)
	}
}

func TestSubmitHopWithoutSignatureRejected(t *testing.T) {
	fl := newFakeLedger()
	fl.tasks["task-1"] = openTask("owner")
	mux := newTestHandler(fl)

	rec, _ := doJSON(t, mux, http.MethodPost, "/actions/tasks/task-1?content=work",
		map[string]string{"account": solana.NewWallet().PublicKey().String()})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestSubmitConflictRendersCurrentState(t *testing.T) {
	wallet := solana.NewWallet()
	fl := newFakeLedger()
	task := openTask("owner")
	task.Submissions = []ledger.Submission{{ID: "sub-1", Account: wallet.PublicKey().String(), Status: ledger.SubmissionWaitingClaim}}
	fl.tasks["task-1"] = task
	fl.submitErr = fmt.Errorf("create submission: %w", ledger.ErrConflict)
	mux := newTestHandler(fl)

	rec, payload := doJSON(t, mux, http.MethodPost,
		"/actions/tasks/task-1?signature=proof&content=again",
		map[string]string{"account": wallet.PublicKey().String()})
	if rec.Code != http.StatusOK {
		t.Fatalf("conflict must render state, not fail: %d", rec.Code)
	}
	if payload["label"] != "Claim 5 USDC" {
		t.Fatalf("expected the claim card, got %v", payload["label"])
	}
}

func TestClaimHopReturnsWithdrawal(t *testing.T) {
	wallet := solana.NewWallet()
	fl := newFakeLedger()
	task := openTask("owner")
	task.Submissions = []ledger.Submission{{ID: "sub-1", Account: wallet.PublicKey().String(), Status: ledger.SubmissionWaitingClaim}}
	fl.tasks["task-1"] = task
	mux := newTestHandler(fl)

	rec, payload := doJSON(t, mux, http.MethodPost, "/actions/tasks/task-1/claim?signature=proof",
		map[string]string{"account": wallet.PublicKey().String()})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if payload["transaction"] != "Y2xhaW0=" {
		t.Fatalf("expected the ledger's withdrawal transaction, got %v", payload["transaction"])
	}
	links := payload["links"].(map[string]interface{})
	next := links["next"].(map[string]interface{})
	if !strings.Contains(next["href"].(string), "/claim/complete") || !strings.Contains(next["href"].(string), "tx=claim-tx-1") {
		t.Fatalf("unexpected claim completion href %v", next["href"])
	}
}

func TestClaimHopOutOfStateRendersCurrentState(t *testing.T) {
	wallet := solana.NewWallet()
	fl := newFakeLedger()
	fl.tasks["task-1"] = openTask("owner")
	mux := newTestHandler(fl)

	rec, payload := doJSON(t, mux, http.MethodPost, "/actions/tasks/task-1/claim?signature=proof",
		map[string]string{"account": wallet.PublicKey().String()})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if payload["label"] != "Submit" {
		t.Fatalf("claim without a waiting submission should show the actual state, got %v", payload["label"])
	}
}

func TestClaimCompleteIsIdempotent(t *testing.T) {
	wallet := solana.NewWallet()
	fl := newFakeLedger()
	task := openTask("owner")
	task.Submissions = []ledger.Submission{{ID: "sub-1", Account: wallet.PublicKey().String(), Status: ledger.SubmissionWaitingClaim}}
	fl.tasks["task-1"] = task
	mux := newTestHandler(fl)

	for i := 0; i < 2; i++ {
		rec, payload := doJSON(t, mux, http.MethodPost,
			"/actions/tasks/task-1/claim/complete?signature=proof&tx=claim-tx-1", map[string]string{})
		if rec.Code != http.StatusOK {
			t.Fatalf("attempt %d: status = %d", i, rec.Code)
		}
		if payload["type"] != "completed" {
			t.Fatalf("attempt %d: expected completed payload, got %v", i, payload)
		}
	}
	if fl.completions["claim-tx-1"] != 1 {
		t.Fatalf("value moved %d times, want 1", fl.completions["claim-tx-1"])
	}
}

func TestCompleteWithoutTxRejected(t *testing.T) {
	fl := newFakeLedger()
	fl.tasks["task-1"] = openTask("owner")
	mux := newTestHandler(fl)

	rec, _ := doJSON(t, mux, http.MethodPost, "/actions/tasks/task-1/complete?signature=proof", map[string]string{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestServicePurchaseFlow(t *testing.T) {
	wallet := solana.NewWallet()
	fl := newFakeLedger()
	fl.services["svc-1"] = &ledger.Resource{
		ID:             "svc-1",
		Title:          "Logo design",
		Open:           true,
		Owner:          "owner",
		ActionsEnabled: true,
		Asset:          ledger.Asset{Symbol: "USDC", Decimals: 6, Amount: 25000000},
	}
	mux := newTestHandler(fl)

	// Verified caller sees the buy card.
	sig, err := wallet.PrivateKey.Sign([]byte(chain.BuildChallenge(wallet.PublicKey(), chain.PurposeService)))
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	rec, payload := doJSON(t, mux, http.MethodPost, "/actions/services/svc-1/sign/verify",
		map[string]string{"account": wallet.PublicKey().String(), "signature": sig.String()})
	if rec.Code != http.StatusOK {
		t.Fatalf("verify status = %d", rec.Code)
	}
	if payload["label"] != "Buy for 25 USDC" {
		t.Fatalf("expected buy card, got %v", payload["label"])
	}

	// The purchase hop hands back the ledger's payment transaction.
	rec, payload = doJSON(t, mux, http.MethodPost, "/actions/services/svc-1?signature="+sig.String(),
		map[string]string{"account": wallet.PublicKey().String()})
	if rec.Code != http.StatusOK {
		t.Fatalf("purchase status = %d: %s", rec.Code, rec.Body.String())
	}
	if payload["transaction"] != "cGF5" {
		t.Fatalf("unexpected payment transaction %v", payload["transaction"])
	}
	next := payload["links"].(map[string]interface{})["next"].(map[string]interface{})
	if !strings.Contains(next["href"].(string), "/actions/services/svc-1/complete") {
		t.Fatalf("unexpected completion href %v", next["href"])
	}

	// Completion settles exactly once.
	rec, payload = doJSON(t, mux, http.MethodPost, "/actions/services/svc-1/complete?tx=pay-tx-1", map[string]string{})
	if rec.Code != http.StatusOK || payload["type"] != "completed" {
		t.Fatalf("complete failed: %d %v", rec.Code, payload)
	}
	if fl.completions["pay-tx-1"] != 1 {
		t.Fatalf("payment settled %d times, want 1", fl.completions["pay-tx-1"])
	}
}

func TestPaidServiceShowsPurchased(t *testing.T) {
	wallet := solana.NewWallet()
	fl := newFakeLedger()
	fl.services["svc-1"] = &ledger.Resource{
		ID:             "svc-1",
		Title:          "Logo design",
		Owner:          "owner",
		ActionsEnabled: true,
		Asset:          ledger.Asset{Symbol: "USDC", Decimals: 6, Amount: 25000000},
		Submissions: []ledger.Submission{
			{ID: "order-1", Account: wallet.PublicKey().String(), Status: ledger.SubmissionClaimed},
		},
	}
	mux := newTestHandler(fl)

	rec, payload := doJSON(t, mux, http.MethodPost, "/actions/services/svc-1?signature=proof",
		map[string]string{"account": wallet.PublicKey().String()})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if payload["label"] != "Purchased" || payload["disabled"] != true {
		t.Fatalf("expected disabled purchased card, got %v", payload)
	}
}

func TestClaimOnServiceSurfaceNotFound(t *testing.T) {
	fl := newFakeLedger()
	fl.services["svc-1"] = &ledger.Resource{ID: "svc-1", Title: "Logo design", ActionsEnabled: true}
	mux := newTestHandler(fl)

	rec, _ := doJSON(t, mux, http.MethodPost, "/actions/services/svc-1/claim?signature=proof",
		map[string]string{"account": solana.NewWallet().PublicKey().String()})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("services have no claim hop; status = %d", rec.Code)
	}
}

func TestQREndpoint(t *testing.T) {
	fl := newFakeLedger()
	fl.tasks["task-1"] = openTask("owner")
	mux := newTestHandler(fl)

	req := httptest.NewRequest(http.MethodGet, "/actions/tasks/task-1/qr", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Fatalf("expected PNG, got %q", ct)
	}
	if rec.Body.Len() == 0 {
		t.Fatal("empty image body")
	}
}
