// Package publish implements the resilient multi-target publishing workflow:
// one draft, several marketplaces, each processed independently with
// idempotency checks and bounded retries.
package publish

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/commtamo10-tech/skatebaypublisher/internal/domain"
	"github.com/commtamo10-tech/skatebaypublisher/internal/ebay"
	"github.com/commtamo10-tech/skatebaypublisher/internal/infra"
	"github.com/commtamo10-tech/skatebaypublisher/internal/pricing"
)

// MarketplaceAPI is the slice of the eBay client the workflow depends on.
type MarketplaceAPI interface {
	CreateOrReplaceInventoryItem(ctx context.Context, mp ebay.Marketplace, item ebay.InventoryItem) (int, error)
	CreateOffer(ctx context.Context, mp ebay.Marketplace, offer ebay.Offer) (string, int, error)
	PublishOffer(ctx context.Context, mp ebay.Marketplace, offerID string) (string, int, error)
}

// ValidationError reports why a draft cannot be published anywhere.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "draft not publishable: " + strings.Join(e.Problems, "; ")
}

// Summary condenses the per-marketplace outcomes. Partial counts marketplaces
// where an offer was created but publishing it failed.
type Summary struct {
	Success int `json:"success"`
	Partial int `json:"partial"`
	Failed  int `json:"failed"`
}

// Outcome is the aggregate result of one publish request.
type Outcome struct {
	Results map[string]domain.PublishResult `json:"results"`
	Summary Summary                         `json:"summary"`
}

// Workflow publishes drafts to marketplace targets.
type Workflow struct {
	drafts   domain.DraftRepository
	settings domain.SettingsRepository
	client   MarketplaceAPI
	rates    *pricing.Store
	parallel int
	logger   infra.Logger
}

// NewWorkflow wires the publishing pipeline.
func NewWorkflow(
	drafts domain.DraftRepository,
	settings domain.SettingsRepository,
	client MarketplaceAPI,
	rates *pricing.Store,
	parallel int,
	logger infra.Logger,
) *Workflow {
	if parallel <= 0 {
		parallel = 1
	}
	return &Workflow{
		drafts:   drafts,
		settings: settings,
		client:   client,
		rates:    rates,
		parallel: parallel,
		logger:   logger,
	}
}

// Publish runs the workflow for one draft against the requested marketplaces.
// Marketplaces are processed independently; one target's failure neither
// blocks nor rolls back the others.
func (w *Workflow) Publish(ctx context.Context, draftID string, marketplaceIDs []string) (*Outcome, error) {
	draft, err := w.drafts.GetByID(ctx, draftID)
	if err != nil {
		return nil, err
	}
	if err := validateDraft(draft); err != nil {
		return nil, err
	}
	if len(marketplaceIDs) == 0 {
		return nil, &ValidationError{Problems: []string{"at least one marketplace is required"}}
	}

	targets := dedupe(marketplaceIDs)
	results := make([]domain.PublishResult, len(targets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.parallel)
	for i, mpID := range targets {
		i, mpID := i, mpID
		g.Go(func() error {
			results[i] = w.publishOne(gctx, draft, mpID)
			return nil
		})
	}
	// Workers only report through the results slice.
	_ = g.Wait()

	outcome := &Outcome{Results: make(map[string]domain.PublishResult, len(results))}
	anyPublished := false
	for _, res := range results {
		outcome.Results[res.MarketplaceID] = res
		switch {
		case res.Success:
			outcome.Summary.Success++
			anyPublished = true
		case res.OfferID != "":
			outcome.Summary.Partial++
		default:
			outcome.Summary.Failed++
		}
	}

	if anyPublished && draft.Status != domain.DraftStatusPublished {
		draft.Status = domain.DraftStatusPublished
		if err := w.drafts.Update(ctx, draft); err != nil {
			w.logger.Warn().Err(err).Str("draft_id", draft.ID).Msg("publish: draft status update failed")
		}
	}
	return outcome, nil
}

// publishOne runs the idempotency check, configuration resolution, and the
// resilient call sequence for a single marketplace. It always returns a
// terminal result and never panics the group.
func (w *Workflow) publishOne(ctx context.Context, draft *domain.Draft, mpID string) domain.PublishResult {
	// A prior successful publish short-circuits: same result, no network call,
	// nothing rewritten.
	if prev, ok := draft.MarketplaceResults[mpID]; ok && prev.Published() {
		prev.Note = "already published (skipped)"
		prev.Retries = 0
		return prev
	}

	mp, ok := ebay.MarketplaceByID(mpID)
	if !ok {
		return w.record(ctx, draft.ID, domain.PublishResult{
			MarketplaceID: mpID,
			Error:         fmt.Sprintf("unsupported marketplace %q", mpID),
		})
	}

	policies, err := w.settings.MarketplacePolicies(ctx, mpID)
	if err != nil || !policies.Complete() {
		if err != nil && !errors.Is(err, domain.ErrNotConfigured) {
			w.logger.Error().Err(err).Str("marketplace", mpID).Msg("publish: policy lookup failed")
		}
		// Fail fast for this marketplace without contacting the API.
		return w.record(ctx, draft.ID, domain.PublishResult{
			MarketplaceID: mpID,
			Error:         "missing policy configuration",
		})
	}

	rates := w.rates.Rates(ctx)
	price := pricing.RoundPrice(pricing.Convert(draft.Price, "USD", mp.Currency, rates))

	totalRetries := 0
	retries, err := w.client.CreateOrReplaceInventoryItem(ctx, mp, ebay.InventoryItem{
		SKU:         draft.SKU,
		Title:       draft.Title,
		Description: draft.Description,
		Aspects:     draft.Aspects,
		ImageURLs:   draft.ImageURLs,
		Condition:   draft.Condition,
		Quantity:    1,
	})
	totalRetries += retries
	if err != nil {
		return w.record(ctx, draft.ID, domain.PublishResult{
			MarketplaceID: mpID,
			Retries:       totalRetries,
			Error:         fmt.Sprintf("inventory item: %v", err),
		})
	}

	offerID, retries, err := w.client.CreateOffer(ctx, mp, ebay.Offer{
		SKU:        draft.SKU,
		CategoryID: offerCategory(draft, mpID),
		PriceValue: price,
		Currency:   mp.Currency,
		Quantity:   1,
		Policies:   *policies,
	})
	totalRetries += retries
	if err != nil {
		return w.record(ctx, draft.ID, domain.PublishResult{
			MarketplaceID: mpID,
			Retries:       totalRetries,
			Error:         fmt.Sprintf("create offer: %v", err),
		})
	}

	listingID, retries, err := w.client.PublishOffer(ctx, mp, offerID)
	totalRetries += retries
	if err != nil {
		return w.record(ctx, draft.ID, domain.PublishResult{
			MarketplaceID: mpID,
			OfferID:       offerID,
			Retries:       totalRetries,
			Error:         fmt.Sprintf("publish offer: %v", err),
		})
	}

	w.logger.Info().
		Str("draft_id", draft.ID).
		Str("marketplace", mpID).
		Str("listing_id", listingID).
		Int("retries", totalRetries).
		Msg("publish: listed")
	return w.record(ctx, draft.ID, domain.PublishResult{
		MarketplaceID: mpID,
		Success:       true,
		ListingID:     listingID,
		OfferID:       offerID,
		Retries:       totalRetries,
	})
}

// record persists a terminal per-marketplace result before returning it.
func (w *Workflow) record(ctx context.Context, draftID string, result domain.PublishResult) domain.PublishResult {
	if err := w.drafts.SetPublishResult(ctx, draftID, result); err != nil {
		w.logger.Error().Err(err).
			Str("draft_id", draftID).
			Str("marketplace", result.MarketplaceID).
			Msg("publish: persist result failed")
	}
	return result
}

// offerCategory prefers the category stored on the draft, which operators can
// edit before publishing. The per-marketplace mapping only backs up drafts
// created before the category field was populated.
func offerCategory(draft *domain.Draft, mpID string) string {
	if cat := strings.TrimSpace(draft.CategoryID); cat != "" {
		return cat
	}
	return ebay.CategoryFor(draft.ItemType, mpID)
}

func validateDraft(draft *domain.Draft) error {
	var problems []string
	if strings.TrimSpace(draft.Title) == "" {
		problems = append(problems, "title is required")
	} else if len(draft.Title) > 80 {
		problems = append(problems, "title must be 80 characters or fewer")
	}
	if len(draft.ImageURLs) == 0 {
		problems = append(problems, "at least one image is required")
	}
	if draft.Price <= 0 {
		problems = append(problems, "valid price is required")
	}
	if strings.TrimSpace(draft.CategoryID) == "" {
		problems = append(problems, "category id is required")
	}
	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
