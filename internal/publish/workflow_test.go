package publish

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/commtamo10-tech/skatebaypublisher/internal/domain"
	"github.com/commtamo10-tech/skatebaypublisher/internal/ebay"
	"github.com/commtamo10-tech/skatebaypublisher/internal/pricing"
)

type fakeDraftRepo struct {
	mu      sync.Mutex
	drafts  map[string]*domain.Draft
	results []domain.PublishResult
}

func newFakeDraftRepo(drafts ...*domain.Draft) *fakeDraftRepo {
	repo := &fakeDraftRepo{drafts: make(map[string]*domain.Draft)}
	for _, d := range drafts {
		repo.drafts[d.ID] = d
	}
	return repo
}

func (f *fakeDraftRepo) Create(_ context.Context, draft *domain.Draft) error {
	f.drafts[draft.ID] = draft
	return nil
}

func (f *fakeDraftRepo) GetByID(_ context.Context, draftID string) (*domain.Draft, error) {
	draft, ok := f.drafts[draftID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *draft
	return &copied, nil
}

func (f *fakeDraftRepo) List(context.Context, domain.DraftStatus, domain.ItemType) ([]domain.Draft, error) {
	return nil, nil
}

func (f *fakeDraftRepo) Update(_ context.Context, draft *domain.Draft) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.drafts[draft.ID] = draft
	return nil
}

func (f *fakeDraftRepo) Delete(_ context.Context, draftID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.drafts[draftID]; !ok {
		return domain.ErrNotFound
	}
	delete(f.drafts, draftID)
	return nil
}

func (f *fakeDraftRepo) NextSKU(context.Context, domain.ItemType) (string, error) {
	return "OSS-MISC-0001", nil
}

func (f *fakeDraftRepo) SetPublishResult(_ context.Context, draftID string, result domain.PublishResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	draft, ok := f.drafts[draftID]
	if !ok {
		return domain.ErrNotFound
	}
	if draft.MarketplaceResults == nil {
		draft.MarketplaceResults = map[string]domain.PublishResult{}
	}
	draft.MarketplaceResults[result.MarketplaceID] = result
	f.results = append(f.results, result)
	return nil
}

func (f *fakeDraftRepo) CountByStatus(context.Context) (map[domain.DraftStatus]int, error) {
	return nil, nil
}

type fakeSettingsRepo struct {
	policies map[string]*domain.MarketplacePolicies
}

func (f *fakeSettingsRepo) MarketplacePolicies(_ context.Context, marketplaceID string) (*domain.MarketplacePolicies, error) {
	p, ok := f.policies[marketplaceID]
	if !ok {
		return nil, domain.ErrNotConfigured
	}
	return p, nil
}

func (f *fakeSettingsRepo) UpsertMarketplacePolicies(_ context.Context, p *domain.MarketplacePolicies) error {
	f.policies[p.MarketplaceID] = p
	return nil
}

type apiCall struct {
	op            string
	marketplaceID string
	offer         ebay.Offer
}

// fakeAPI succeeds by default; failures can be injected per operation and
// marketplace.
type fakeAPI struct {
	mu          sync.Mutex
	calls       []apiCall
	failOp      string
	failOn      string
	failWith    error
	failRetries int
}

func (f *fakeAPI) record(op, mpID string, offer ebay.Offer) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, apiCall{op: op, marketplaceID: mpID, offer: offer})
}

func (f *fakeAPI) fails(op, mpID string) bool {
	return f.failOp == op && f.failOn == mpID
}

func (f *fakeAPI) CreateOrReplaceInventoryItem(_ context.Context, mp ebay.Marketplace, _ ebay.InventoryItem) (int, error) {
	f.record("inventory", mp.ID, ebay.Offer{})
	if f.fails("inventory", mp.ID) {
		return f.failRetries, f.failWith
	}
	return 0, nil
}

func (f *fakeAPI) CreateOffer(_ context.Context, mp ebay.Marketplace, offer ebay.Offer) (string, int, error) {
	f.record("offer", mp.ID, offer)
	if f.fails("offer", mp.ID) {
		return "", f.failRetries, f.failWith
	}
	return "offer-" + mp.ID, 0, nil
}

func (f *fakeAPI) PublishOffer(_ context.Context, mp ebay.Marketplace, offerID string) (string, int, error) {
	f.record("publish", mp.ID, ebay.Offer{})
	if f.fails("publish", mp.ID) {
		return "", f.failRetries, f.failWith
	}
	return "listing-" + mp.ID, 0, nil
}

func (f *fakeAPI) callsFor(mpID string) []apiCall {
	var out []apiCall
	for _, c := range f.calls {
		if c.marketplaceID == mpID {
			out = append(out, c)
		}
	}
	return out
}

type failingTransport struct{}

func (failingTransport) RoundTrip(*http.Request) (*http.Response, error) {
	return nil, errors.New("no network in tests")
}

// offlineRates always serves the static fallback table.
func offlineRates() *pricing.Store {
	return pricing.NewStore(pricing.Options{
		HTTPClient: &http.Client{Transport: failingTransport{}},
	})
}

func publishableDraft() *domain.Draft {
	return &domain.Draft{
		ID:         "draft-1",
		SKU:        "OSS-WHL-0001",
		GroupID:    "group-1",
		ItemType:   domain.ItemTypeWheels,
		Title:      "Spitfire Formula Four 54mm",
		CategoryID: "36632",
		Price:      25.00,
		ImageURLs:  []string{"http://x/1.jpg"},
		Condition:  "USED_GOOD",
		Status:     domain.DraftStatusReady,
	}
}

func completePolicies(mpID string) *domain.MarketplacePolicies {
	return &domain.MarketplacePolicies{
		MarketplaceID:       mpID,
		FulfillmentPolicyID: "fp-1",
		PaymentPolicyID:     "pp-1",
		ReturnPolicyID:      "rp-1",
		LocationKey:         "loc-1",
	}
}

func newTestWorkflow(drafts *fakeDraftRepo, settings *fakeSettingsRepo, api *fakeAPI) *Workflow {
	return NewWorkflow(drafts, settings, api, offlineRates(), 4, zerolog.New(io.Discard))
}

func TestPublishMissingPolicyFailsWithoutAPIContact(t *testing.T) {
	drafts := newFakeDraftRepo(publishableDraft())
	settings := &fakeSettingsRepo{policies: map[string]*domain.MarketplacePolicies{
		"EBAY_US": completePolicies("EBAY_US"),
	}}
	api := &fakeAPI{}
	wf := newTestWorkflow(drafts, settings, api)

	outcome, err := wf.Publish(context.Background(), "draft-1", []string{"EBAY_US", "EBAY_DE"})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if outcome.Summary.Success != 1 || outcome.Summary.Partial != 0 || outcome.Summary.Failed != 1 {
		t.Fatalf("summary: got %+v, want {1 0 1}", outcome.Summary)
	}

	de := outcome.Results["EBAY_DE"]
	if de.Success || de.Error != "missing policy configuration" {
		t.Fatalf("EBAY_DE result: got %+v", de)
	}
	if calls := api.callsFor("EBAY_DE"); len(calls) != 0 {
		t.Fatalf("EBAY_DE must not reach the API, saw %v", calls)
	}

	us := outcome.Results["EBAY_US"]
	if !us.Published() || us.ListingID != "listing-EBAY_US" {
		t.Fatalf("EBAY_US result: got %+v", us)
	}
	if calls := api.callsFor("EBAY_US"); len(calls) != 3 {
		t.Fatalf("EBAY_US call sequence: got %d calls, want 3", len(calls))
	}

	stored, _ := drafts.GetByID(context.Background(), "draft-1")
	if stored.Status != domain.DraftStatusPublished {
		t.Fatalf("draft status: got %s, want PUBLISHED", stored.Status)
	}
	if len(stored.MarketplaceResults) != 2 {
		t.Fatalf("persisted results: got %d, want 2", len(stored.MarketplaceResults))
	}
}

func TestPublishSkipsAlreadyPublishedMarketplace(t *testing.T) {
	draft := publishableDraft()
	draft.Status = domain.DraftStatusPublished
	draft.MarketplaceResults = map[string]domain.PublishResult{
		"EBAY_US": {
			MarketplaceID: "EBAY_US",
			Success:       true,
			ListingID:     "listing-old",
			OfferID:       "offer-old",
			Retries:       2,
		},
	}
	drafts := newFakeDraftRepo(draft)
	settings := &fakeSettingsRepo{policies: map[string]*domain.MarketplacePolicies{
		"EBAY_US": completePolicies("EBAY_US"),
	}}
	api := &fakeAPI{}
	wf := newTestWorkflow(drafts, settings, api)

	outcome, err := wf.Publish(context.Background(), "draft-1", []string{"EBAY_US"})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	res := outcome.Results["EBAY_US"]
	if res.Note != "already published (skipped)" {
		t.Fatalf("note: got %q", res.Note)
	}
	if res.ListingID != "listing-old" || res.Retries != 0 {
		t.Fatalf("skip must return the original listing with zero retries, got %+v", res)
	}
	if len(api.calls) != 0 {
		t.Fatalf("skip must not contact the API, saw %v", api.calls)
	}
	if len(drafts.results) != 0 {
		t.Fatalf("skip must not rewrite the stored result, saw %v", drafts.results)
	}
	if outcome.Summary.Success != 1 {
		t.Fatalf("summary: got %+v, want success=1", outcome.Summary)
	}
}

func TestPublishOfferStepFailureIsPartial(t *testing.T) {
	drafts := newFakeDraftRepo(publishableDraft())
	settings := &fakeSettingsRepo{policies: map[string]*domain.MarketplacePolicies{
		"EBAY_AU": completePolicies("EBAY_AU"),
	}}
	api := &fakeAPI{
		failOp:      "publish",
		failOn:      "EBAY_AU",
		failWith:    &ebay.APIError{Status: 500, Body: "listing rejected"},
		failRetries: 2,
	}
	wf := newTestWorkflow(drafts, settings, api)

	outcome, err := wf.Publish(context.Background(), "draft-1", []string{"EBAY_AU"})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if outcome.Summary.Partial != 1 || outcome.Summary.Success != 0 {
		t.Fatalf("summary: got %+v, want partial=1", outcome.Summary)
	}
	res := outcome.Results["EBAY_AU"]
	if res.OfferID != "offer-EBAY_AU" || res.Success {
		t.Fatalf("partial result must keep offer id, got %+v", res)
	}
	if res.Retries != 2 {
		t.Fatalf("retries: got %d, want 2", res.Retries)
	}

	stored, _ := drafts.GetByID(context.Background(), "draft-1")
	if stored.Status == domain.DraftStatusPublished {
		t.Fatalf("draft must not be PUBLISHED after a failed publish")
	}
}

func TestPublishConvertsPriceToMarketplaceCurrency(t *testing.T) {
	drafts := newFakeDraftRepo(publishableDraft())
	settings := &fakeSettingsRepo{policies: map[string]*domain.MarketplacePolicies{
		"EBAY_DE": completePolicies("EBAY_DE"),
	}}
	api := &fakeAPI{}
	wf := newTestWorkflow(drafts, settings, api)

	if _, err := wf.Publish(context.Background(), "draft-1", []string{"EBAY_DE"}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	var offer ebay.Offer
	for _, c := range api.callsFor("EBAY_DE") {
		if c.op == "offer" {
			offer = c.offer
		}
	}
	if offer.Currency != "EUR" {
		t.Fatalf("offer currency: got %q, want EUR", offer.Currency)
	}
	// 25 USD at the 1.08 fallback rate.
	if offer.PriceValue != "23.15" {
		t.Fatalf("offer price: got %q, want 23.15", offer.PriceValue)
	}
}

func TestPublishUsesDraftCategory(t *testing.T) {
	draft := publishableDraft()
	// Operator changed the category in the draft editor.
	draft.CategoryID = "777777"
	drafts := newFakeDraftRepo(draft)
	settings := &fakeSettingsRepo{policies: map[string]*domain.MarketplacePolicies{
		"EBAY_US": completePolicies("EBAY_US"),
	}}
	api := &fakeAPI{}
	wf := newTestWorkflow(drafts, settings, api)

	if _, err := wf.Publish(context.Background(), "draft-1", []string{"EBAY_US"}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	var offer ebay.Offer
	for _, c := range api.callsFor("EBAY_US") {
		if c.op == "offer" {
			offer = c.offer
		}
	}
	if offer.CategoryID != "777777" {
		t.Fatalf("offer category: got %q, want the draft's 777777", offer.CategoryID)
	}
}

func TestPublishRejectsInvalidDraft(t *testing.T) {
	draft := publishableDraft()
	draft.Title = ""
	draft.ImageURLs = nil
	drafts := newFakeDraftRepo(draft)
	wf := newTestWorkflow(drafts, &fakeSettingsRepo{policies: map[string]*domain.MarketplacePolicies{}}, &fakeAPI{})

	_, err := wf.Publish(context.Background(), "draft-1", []string{"EBAY_US"})
	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(validation.Problems) != 2 {
		t.Fatalf("problems: got %v", validation.Problems)
	}
}

func TestPublishUnsupportedMarketplaceFails(t *testing.T) {
	drafts := newFakeDraftRepo(publishableDraft())
	wf := newTestWorkflow(drafts, &fakeSettingsRepo{policies: map[string]*domain.MarketplacePolicies{}}, &fakeAPI{})

	outcome, err := wf.Publish(context.Background(), "draft-1", []string{"EBAY_FR"})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if outcome.Summary.Failed != 1 {
		t.Fatalf("summary: got %+v, want failed=1", outcome.Summary)
	}
}
